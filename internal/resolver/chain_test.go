package resolver

import (
	"testing"

	"archguard/internal/extractor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleUniverse() *Universe {
	return NewUniverse(map[string]string{
		"org.example.billing.Invoice":          "org.example.billing",
		"org.example.billing.Invoice$Line":     "org.example.billing",
		"org.example.shipping.Shipment":        "org.example.shipping",
		"org.example.repository.BadRepository": "org.example.repository",
		"org.example.EaistRequestContext":      "org.example",
		"org.example.repository.OrderQueries":  "org.example.repository",
	})
}

func TestResolverChain_Resolve(t *testing.T) {
	repoFile := FileContext{
		Package: "org.example.repository",
		Imports: []extractor.Import{
			{Path: "org.example.EaistRequestContext"},
			{Path: "org.jooq.DSLContext"},
			{Path: "org.example.generated.Tables.ORDERS", Static: true},
			{Path: "java.util.concurrent", Wildcard: true},
		},
	}
	shipFile := FileContext{
		Package: "org.example.shipping",
		Imports: []extractor.Import{{Path: "org.example.billing", Wildcard: true}},
	}

	tests := []struct {
		name      string
		req       Request
		want      string
		wantStage string
	}{
		{"nested from inside", Request{Name: "Line", File: FileContext{Package: "org.example.billing"}, Enclosing: "org.example.billing.Invoice$Line"}, "org.example.billing.Invoice$Line", "nested"},
		{"qualified analysed", Request{Name: "org.example.billing.Invoice.Line", File: repoFile}, "org.example.billing.Invoice$Line", "qualified"},
		{"qualified external", Request{Name: "java.util.ArrayList", File: repoFile}, "java.util.ArrayList", "qualified"},
		{"single import analysed", Request{Name: "EaistRequestContext", File: repoFile}, "org.example.EaistRequestContext", "imports"},
		{"single import external", Request{Name: "DSLContext", File: repoFile}, "org.jooq.DSLContext", "imports"},
		{"same package", Request{Name: "OrderQueries", File: repoFile}, "org.example.repository.OrderQueries", "package"},
		{"java.lang", Request{Name: "RuntimeException", File: repoFile}, "java.lang.RuntimeException", "java.lang"},
		{"array of java.lang", Request{Name: "String[]", File: repoFile}, "java.lang.String", "java.lang"},
		{"wildcard analysed", Request{Name: "Invoice", File: shipFile}, "org.example.billing.Invoice", "wildcard"},
		{"outer type through wildcard", Request{Name: "Invoice.Line", File: shipFile}, "org.example.billing.Invoice$Line", "wildcard"},
		{"fallback to external wildcard", Request{Name: "ExecutorService", File: repoFile}, "java.util.concurrent.ExecutorService", "fallback"},
		{"fallback to own package", Request{Name: "Unknown", File: shipFile}, "org.example.shipping.Unknown", "fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := NewDefaultChain(sampleUniverse())
			got, stage := chain.Resolve(tt.req)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantStage, stage)
		})
	}
}

func TestResolverChain_EmptyName(t *testing.T) {
	chain := NewDefaultChain(sampleUniverse())
	got, stage := chain.Resolve(Request{Name: "  "})
	assert.Empty(t, got)
	assert.Empty(t, stage)
	for _, r := range chain.Results() {
		assert.Zero(t, r.Stats.Attempted)
	}
}

func TestResolverChain_Results(t *testing.T) {
	chain := NewDefaultChain(sampleUniverse())
	file := FileContext{Package: "org.example.repository", Imports: []extractor.Import{{Path: "org.jooq.DSLContext"}}}

	chain.Resolve(Request{Name: "DSLContext", File: file})
	chain.Resolve(Request{Name: "String", File: file})
	chain.Resolve(Request{Name: "Missing", File: file})

	results := chain.Results()
	require.Len(t, results, 7)

	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Resolver
	}
	assert.Equal(t, []string{"nested", "qualified", "imports", "package", "java.lang", "wildcard", "fallback"}, names)

	assert.Equal(t, ResolveStats{Attempted: 3, Resolved: 0, Skipped: 3}, results[0].Stats)
	assert.Equal(t, ResolveStats{Attempted: 3, Resolved: 1, Skipped: 2}, results[2].Stats)
	assert.Equal(t, ResolveStats{Attempted: 2, Resolved: 1, Skipped: 1}, results[4].Stats)
	assert.Equal(t, ResolveStats{Attempted: 1, Resolved: 1, Skipped: 0}, results[6].Stats)
}

func TestUniverse_Lookup(t *testing.T) {
	u := sampleUniverse()

	id, ok := u.Lookup("org.example.billing.Invoice.Line")
	require.True(t, ok)
	assert.Equal(t, "org.example.billing.Invoice$Line", id)

	_, ok = u.Lookup("org.example.billing.Missing")
	assert.False(t, ok)
	assert.True(t, u.HasPackage("org.example.shipping"))
	assert.False(t, u.HasPackage("java.util"))
}
