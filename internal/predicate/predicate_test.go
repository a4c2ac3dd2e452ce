package predicate_test

import (
	"sync"
	"testing"

	"archguard/internal/graph"
	"archguard/internal/predicate"
	"archguard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGraph(t *testing.T) *graph.Graph {
	f := testutil.NewGraph(t).
		Class("org.example.service.OrderService", "org.springframework.stereotype.Service").
		Class("org.example.service.OrderService$Line").
		Interface("org.example.service.Ordering").
		Class("org.example.repository.OrderRepository", "org.springframework.stereotype.Repository").
		Type(graph.KindEnum, "org.example.enums.Status")
	f.Add(&graph.Symbol{ID: "org.example.service.impl.OrderServiceImpl", Name: "OrderServiceImpl",
		Package: "org.example.service.impl", Kind: graph.KindClass,
		Supertypes: []string{"org.example.service.Ordering"}})
	f.Method("org.example.service.OrderService", "place")
	return f.Build()
}

func ids(syms []*graph.Symbol) []string {
	out := make([]string, len(syms))
	for i, s := range syms {
		out[i] = s.ID
	}
	return out
}

func TestSelect_Constructors(t *testing.T) {
	g := sampleGraph(t)

	inService, err := predicate.ResideInPackage("org.example.service..")
	require.NoError(t, err)
	outsideService, err := predicate.ResideOutsideOfPackages("org.example.service..")
	require.NoError(t, err)
	implName, err := predicate.NameMatches(`.*\.impl\..*`)
	require.NoError(t, err)

	tests := []struct {
		name string
		p    predicate.Predicate
		want []string
	}{
		{"annotated by simple name", predicate.AnnotatedWith("Service"), []string{"org.example.service.OrderService"}},
		{"annotated by fqn", predicate.AnnotatedWith("org.springframework.stereotype.Repository"), []string{"org.example.repository.OrderRepository"}},
		{"interfaces", predicate.IsInterface(), []string{"org.example.service.Ordering"}},
		{"enums", predicate.IsEnum(), []string{"org.example.enums.Status"}},
		{"nested types", predicate.IsNested(), []string{"org.example.service.OrderService$Line"}},
		{"assignable types only", predicate.And(predicate.IsType(), predicate.AssignableTo("Ordering")),
			[]string{"org.example.service.Ordering", "org.example.service.impl.OrderServiceImpl"}},
		{"name regex", implName, []string{"org.example.service.impl.OrderServiceImpl"}},
		{"suffix", predicate.SimpleNameEndingWith("Repository"), []string{"org.example.repository.OrderRepository"}},
		{"top-level service types",
			predicate.And(inService, predicate.IsType(), predicate.Not(predicate.IsNested()), predicate.Not(predicate.IsInterface())),
			[]string{"org.example.service.OrderService", "org.example.service.impl.OrderServiceImpl"}},
		{"either marker", predicate.Or(predicate.AnnotatedWith("Service"), predicate.AnnotatedWith("Repository")),
			[]string{"org.example.repository.OrderRepository", "org.example.service.OrderService"}},
		{"outside service types", predicate.And(outsideService, predicate.IsType()),
			[]string{"org.example.enums.Status", "org.example.repository.OrderRepository"}},
		{"members of annotated classes", predicate.DeclaredIn(predicate.AnnotatedWith("Service")),
			[]string{"org.example.service.OrderService#place()", "org.example.service.OrderService$Line"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(predicate.Select(g, tt.p)))
		})
	}
}

func TestPredicate_Descriptions(t *testing.T) {
	p := predicate.And(predicate.AnnotatedWith("Repository"), predicate.Not(predicate.SimpleNameContaining("Dao")))
	assert.Equal(t, "annotated with @Repository and not (have simple name containing 'Dao')", p.String())

	var zero predicate.Predicate
	assert.True(t, zero.IsZero())
	assert.False(t, zero.Test(nil, &graph.Symbol{ID: "x"}))
}

func TestPredicate_InvalidInputs(t *testing.T) {
	_, err := predicate.ResideInPackage("a...b")
	assert.Error(t, err)
	_, err = predicate.NameMatches("(")
	assert.Error(t, err)
}

func TestCache_ConcurrentSelect(t *testing.T) {
	g := sampleGraph(t)
	c := predicate.NewCache(g)
	p := predicate.IsType()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Len(t, c.Select(p), 6)
		}()
	}
	wg.Wait()

	hits, misses := c.Stats()
	assert.Equal(t, 8, hits+misses)
	assert.GreaterOrEqual(t, misses, 1)
}

func TestCache_NestingChangesSelection(t *testing.T) {
	f := testutil.NewGraph(t).Class("org.example.controller.OrderController")
	f.Method("org.example.controller.OrderController", "place")
	f.Add(&graph.Symbol{ID: "org.example.controller.OrderController#helper()", Name: "helper",
		Package: "org.example.controller", Kind: graph.KindMethod, Owner: "org.example.controller.OrderController",
		Modifiers: []graph.Modifier{graph.ModPrivate}})
	g := f.Build()

	inController, err := predicate.ResideInPackage("org.example.controller..")
	require.NoError(t, err)
	methods := predicate.OfKind(graph.KindMethod)
	notPublic := predicate.Not(predicate.IsPublic())

	onOwner := predicate.And(methods, predicate.DeclaredIn(predicate.And(inController, notPublic)))
	onMember := predicate.And(methods, predicate.DeclaredIn(inController), notPublic)
	require.NotEqual(t, onOwner.String(), onMember.String())

	c := predicate.NewCache(g)
	assert.Empty(t, c.Select(onOwner))
	assert.Equal(t, []string{"org.example.controller.OrderController#helper()"}, ids(c.Select(onMember)))

	_, misses := c.Stats()
	assert.Equal(t, 2, misses)
}
