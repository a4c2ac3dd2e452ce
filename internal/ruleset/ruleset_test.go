package ruleset

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"archguard/internal/engine"
	archerrors "archguard/internal/errors"
	"archguard/internal/graph"
	"archguard/internal/rules"
	"archguard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ExampleRuleSet(t *testing.T) {
	rs, err := Load(filepath.Join("..", "..", "configs", "rules.example.yaml"))
	require.NoError(t, err)
	require.Len(t, rs, 30)

	ids := make([]string, len(rs))
	for i, r := range rs {
		ids[i] = r.ID
		assert.NotEmpty(t, r.Description, r.ID)
	}
	assert.Equal(t, "layered_architecture", ids[0])
	assert.Equal(t, "layered_architecture_strict_jooq", ids[1])
	assert.Contains(t, ids, "all_jooq_executes_except_insert_have_where_condition")

	_, ok := rs[0].Condition.(*rules.Layered)
	assert.True(t, ok)
	_, ok = rs[2].Condition.(*rules.FreeOfCycles)
	assert.True(t, ok)

	reg, err := engine.NewRegistry(rs...)
	require.NoError(t, err)
	assert.Equal(t, 30, reg.Len())
}

func TestParse_TwoLayeredConfigsDisagree(t *testing.T) {
	rs, err := Load(filepath.Join("..", "..", "configs", "rules.example.yaml"))
	require.NoError(t, err)

	f := testutil.NewGraph(t).
		Class("org.example.mapper.OrderMapper").
		Class("org.example.generated.tables.Orders")
	f.Uses("org.example.mapper.OrderMapper", "org.example.generated.tables.Orders")
	g := f.Build()

	vs, ok, err := engine.Run(g, rs[:2])
	require.NoError(t, err)
	assert.False(t, ok)
	require.Len(t, vs, 1)
	assert.Equal(t, "layered_architecture_strict_jooq", vs[0].RuleID)
	assert.Equal(t, "JooqInfrastructure accessed by disallowed layer Mapper: org.example.mapper.OrderMapper -> org.example.generated.tables.Orders (type-reference)", vs[0].Message)
}

func TestParse_RulesEvaluate(t *testing.T) {
	rs, err := Parse([]byte(`
version: 1
rules:
  - id: service_naming
    type: naming
    selector: {resideInPackage: org.example.service.., types: true, interfaces: false}
    annotation: Service
    nameContains: Service
  - id: no_services_outside_of_package
    type: leak
    selector: {resideOutsideOfPackages: org.example.service.., types: true}
    annotation: Service
  - id: disabled_rule
    type: naming
    disabled: true
`))
	require.NoError(t, err)
	require.Len(t, rs, 2)

	g := testutil.NewGraph(t).
		Class("org.example.service.OrderManager", "org.springframework.stereotype.Service").
		Class("org.example.util.Helper", "org.springframework.stereotype.Service").
		Interface("org.example.service.Lookup").
		Build()

	vs, ok, err := engine.Run(g, rs)
	require.NoError(t, err)
	assert.False(t, ok)
	require.Len(t, vs, 2)
	assert.Equal(t, `service_naming: org.example.service.OrderManager simple name does not contain "Service"`, vs[0].String())
	assert.Equal(t, "no_services_outside_of_package: org.example.util.Helper is annotated with @Service outside of its package", vs[1].String())
}

func TestParse_DependencyKindsAndCallNames(t *testing.T) {
	rs, err := Parse([]byte(`
rules:
  - id: no_unlimited_tread_pool
    type: dependency
    targets: {assignableTo: java.util.concurrent.Executors}
    kinds: method-call
    callNames: newCachedThreadPool
`))
	require.NoError(t, err)

	f := testutil.NewGraph(t).
		Class("org.example.service.Worker").
		Type(graph.KindClass, "java.util.concurrent.Executors")
	m := f.Method("org.example.service.Worker", "start")
	f.Calls(m, "java.util.concurrent.Executors#newCachedThreadPool()")
	f.Calls(m, "java.util.concurrent.Executors#newFixedThreadPool()")
	f.Method("java.util.concurrent.Executors", "newCachedThreadPool")
	f.Method("java.util.concurrent.Executors", "newFixedThreadPool")

	vs, _, err := engine.Run(f.Build(), rs)
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Contains(t, vs[0].Message, "newCachedThreadPool")
}

func TestParse_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "rules:\n  - id: a\n    type: naming\n    anotation: Service\n"},
		{"missing id", "rules:\n  - type: naming\n    annotation: Service\n"},
		{"duplicate id", "rules:\n  - {id: a, type: naming, annotation: X}\n  - {id: a, type: naming, annotation: Y}\n"},
		{"missing type", "rules:\n  - id: a\n"},
		{"unknown type", "rules:\n  - {id: a, type: sorcery}\n"},
		{"naming without requirements", "rules:\n  - {id: a, type: naming}\n"},
		{"two name substrings", "rules:\n  - {id: a, type: naming, nameContains: [A, B]}\n"},
		{"bad package pattern", "rules:\n  - {id: a, type: leak, annotation: X, selector: {resideInPackage: 'a.(b'}}\n"},
		{"bad regex", "rules:\n  - {id: a, type: leak, annotation: X, selector: {nameMatches: '('}}\n"},
		{"unknown symbol kind", "rules:\n  - {id: a, type: leak, annotation: X, selector: {kinds: widget}}\n"},
		{"unknown edge kind", "rules:\n  - {id: a, type: dependency, targets: {public: true}, kinds: teleport}\n"},
		{"dependency without endpoints", "rules:\n  - {id: a, type: dependency}\n"},
		{"conformance without requirement", "rules:\n  - {id: a, type: conformance}\n"},
		{"cycles without capture", "rules:\n  - {id: a, type: cycles, pattern: org.example.*..}\n"},
		{"layer with undeclared access", `
rules:
  - id: a
    type: layered
    layers:
      - {name: Service, packages: a.service.., mayOnlyBeAccessedBy: [Web]}
`},
		{"overlapping layers", `
rules:
  - id: a
    type: layered
    layers:
      - {name: A, packages: org.example..}
      - {name: B, packages: org.example.b..}
`},
		{"future version", "version: 2\nrules: []\n"},
		{"scalar where list expected", "rules:\n  - {id: a, type: leak, nameContains: {x: 1}}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, archerrors.IsCode(err, archerrors.ConfigurationError), err.Error())
		})
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	rs, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, rs)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, archerrors.IsCode(err, archerrors.ConfigurationError))
}

func TestSelector_Compile(t *testing.T) {
	yes, no := true, false
	g := testutil.NewGraph(t).
		Class("org.example.controller.OrderController").
		Interface("org.example.controller.OrderApi").
		Class("org.example.controller.internal.AdminInternalController").
		Build()

	tests := []struct {
		name string
		sel  *Selector
		want []string
	}{
		{"nil matches all", nil, []string{
			"org.example.controller.OrderApi",
			"org.example.controller.OrderController",
			"org.example.controller.internal.AdminInternalController",
		}},
		{"interfaces", &Selector{Interfaces: &yes}, []string{"org.example.controller.OrderApi"}},
		{"not interfaces outside internal", &Selector{
			Interfaces:              &no,
			ResideOutsideOfPackages: StringList{"..internal.."},
		}, []string{"org.example.controller.OrderController"}},
		{"any of", &Selector{AnyOf: []Selector{
			{NameMatches: ".+InternalController"},
			{SimpleNameEndingWith: "Api"},
		}}, []string{"org.example.controller.OrderApi", "org.example.controller.internal.AdminInternalController"}},
		{"not", &Selector{Not: &Selector{SimpleNameContaining: "Order"}}, []string{"org.example.controller.internal.AdminInternalController"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.sel.Compile()
			require.NoError(t, err)
			var got []string
			for _, s := range g.Symbols() {
				if p.Test(g, s) {
					got = append(got, s.ID)
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - {id: a, type: guarded_mutation, guard: filter}\n"), 0644))
	rs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	m, ok := rs[0].Condition.(*rules.GuardedMutation)
	require.True(t, ok)
	assert.Equal(t, "execute", m.Mutation)
	assert.Equal(t, "filter", m.Guard)
}

func TestParse_SelectorsDifferingOnlyInNesting(t *testing.T) {
	rs, err := Parse([]byte(`
rules:
  - id: private_members_of_private_controllers
    type: conformance
    selector: {kinds: method, declaredIn: {resideInPackage: org.example.controller.., not: {public: true}}}
    requirement: {public: true}
  - id: private_controller_methods
    type: conformance
    selector: {kinds: method, declaredIn: {resideInPackage: org.example.controller..}, not: {public: true}}
    requirement: {public: true}
`))
	require.NoError(t, err)
	require.NotEqual(t, rs[0].Selector.String(), rs[1].Selector.String())

	f := testutil.NewGraph(t).Class("org.example.controller.OrderController")
	f.Method("org.example.controller.OrderController", "place")
	f.Add(&graph.Symbol{ID: "org.example.controller.OrderController#helper()", Name: "helper",
		Package: "org.example.controller", Kind: graph.KindMethod, Owner: "org.example.controller.OrderController",
		Modifiers: []graph.Modifier{graph.ModPrivate}})

	reg, err := engine.NewRegistry(rs...)
	require.NoError(t, err)
	res, err := engine.Evaluate(context.Background(), f.Build(), reg, engine.Options{Workers: 1})
	require.NoError(t, err)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, "private_controller_methods", res.Violations[0].RuleID)
	assert.Equal(t, "org.example.controller.OrderController#helper()", res.Violations[0].Subject)
}

func TestParse_DependencySourceMembers(t *testing.T) {
	rs, err := Parse([]byte(`
rules:
  - id: no_map_arguments
    type: dependency
    sources: {resideInPackage: org.example.controller..}
    sourceMembers: {kinds: method, public: true}
    targets: {assignableTo: java.util.Map}
    kinds: parameter-type
`))
	require.NoError(t, err)
	assert.Contains(t, rs[0].Description, "no members that")

	f := testutil.NewGraph(t).
		Class("org.example.controller.OrderController").
		Add(&graph.Symbol{ID: "java.util.Map", Name: "Map", Package: "java.util", Kind: graph.KindInterface, External: true}).
		Add(&graph.Symbol{ID: "org.example.controller.OrderController#helper(Map)", Name: "helper",
			Package: "org.example.controller", Kind: graph.KindMethod, Owner: "org.example.controller.OrderController",
			Modifiers: []graph.Modifier{graph.ModPrivate}}).
		Edge("org.example.controller.OrderController#helper(Map)", "java.util.Map", graph.EdgeParameterType)

	vs, ok, err := engine.Run(f.Build(), rs)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, vs)

	_, err = Parse([]byte(`
rules:
  - id: bad
    type: dependency
    targets: {assignableTo: java.util.Map}
    sourceMembers: {kinds: lambda}
`))
	assert.True(t, archerrors.IsCode(err, archerrors.ConfigurationError))
}
