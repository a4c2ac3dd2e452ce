package rules_test

import (
	"fmt"
	"testing"

	archerrors "archguard/internal/errors"
	"archguard/internal/rules"
	"archguard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cycleRule(t *testing.T, selfLoops bool) rules.Rule {
	t.Helper()
	c, err := rules.NewFreeOfCycles("(ru.proitr.tk).(*)..", "$1 of $2", selfLoops)
	require.NoError(t, err)
	return rules.Rule{ID: "no_cycles_by_method_calls_between_slices", Condition: c}
}

func TestFreeOfCycles_SliceNaming(t *testing.T) {
	c, err := rules.NewFreeOfCycles("(ru.proitr.tk).(*)..", "$1 of $2", false)
	require.NoError(t, err)
	assert.Equal(t, "ru.proitr.tk of service", c.SliceOf("ru.proitr.tk.service.impl"))
	assert.Equal(t, "", c.SliceOf("org.example.service"))

	plain, err := rules.NewFreeOfCycles("org.example.(*)..", "", false)
	require.NoError(t, err)
	assert.Equal(t, "service", plain.SliceOf("org.example.service"))
}

func TestFreeOfCycles_ConfigurationErrors(t *testing.T) {
	_, err := rules.NewFreeOfCycles("org.example..", "", false)
	require.Error(t, err)
	assert.True(t, archerrors.IsCode(err, archerrors.ConfigurationError))

	_, err = rules.NewFreeOfCycles("org.(*)..", "$1 of $2", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing group $2")
}

func TestFreeOfCycles_Acyclic(t *testing.T) {
	g := testutil.NewGraph(t).
		Class("ru.proitr.tk.controller.A").
		Class("ru.proitr.tk.service.B").
		Class("ru.proitr.tk.repository.C").
		Uses("ru.proitr.tk.controller.A", "ru.proitr.tk.service.B").
		Uses("ru.proitr.tk.service.B", "ru.proitr.tk.repository.C").
		Uses("ru.proitr.tk.controller.A", "ru.proitr.tk.repository.C").
		Build()

	vs, err := cycleRule(t, false).Evaluate(g, nil)
	require.NoError(t, err)
	assert.Empty(t, vs)
}

func TestFreeOfCycles_ThreeSliceCycle(t *testing.T) {
	g := testutil.NewGraph(t).
		Class("ru.proitr.tk.x.X1").
		Class("ru.proitr.tk.y.Y1").
		Class("ru.proitr.tk.z.Z1").
		Uses("ru.proitr.tk.y.Y1", "ru.proitr.tk.z.Z1").
		Uses("ru.proitr.tk.z.Z1", "ru.proitr.tk.x.X1").
		Uses("ru.proitr.tk.x.X1", "ru.proitr.tk.y.Y1").
		Build()

	vs, err := cycleRule(t, false).Evaluate(g, nil)
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, []string{"ru.proitr.tk of x", "ru.proitr.tk of y", "ru.proitr.tk of z", "ru.proitr.tk of x"}, vs[0].Path)
	assert.Equal(t, "ru.proitr.tk.x.X1", vs[0].Subject)
	assert.Contains(t, vs[0].Message, "ru.proitr.tk.z.Z1 -> ru.proitr.tk.x.X1")
}

func TestFreeOfCycles_MinimalCycleInLargerComponent(t *testing.T) {
	// a -> b -> c -> a and a -> d -> a form one component; the shortest cycle through a wins.
	g := testutil.NewGraph(t).
		Class("ru.proitr.tk.a.A").
		Class("ru.proitr.tk.b.B").
		Class("ru.proitr.tk.c.C").
		Class("ru.proitr.tk.d.D").
		Uses("ru.proitr.tk.a.A", "ru.proitr.tk.b.B").
		Uses("ru.proitr.tk.b.B", "ru.proitr.tk.c.C").
		Uses("ru.proitr.tk.c.C", "ru.proitr.tk.a.A").
		Uses("ru.proitr.tk.a.A", "ru.proitr.tk.d.D").
		Uses("ru.proitr.tk.d.D", "ru.proitr.tk.a.A").
		Build()

	vs, err := cycleRule(t, false).Evaluate(g, nil)
	require.NoError(t, err)
	require.Len(t, vs, 1, "one report per strongly connected component")
	assert.Equal(t, []string{"ru.proitr.tk of a", "ru.proitr.tk of d", "ru.proitr.tk of a"}, vs[0].Path)
}

func TestFreeOfCycles_SelfLoops(t *testing.T) {
	build := func(t *testing.T) *testutil.GraphFixture {
		return testutil.NewGraph(t).
			Class("ru.proitr.tk.service.a.A").
			Class("ru.proitr.tk.service.b.B").
			Uses("ru.proitr.tk.service.a.A", "ru.proitr.tk.service.b.B").
			Uses("ru.proitr.tk.service.b.B", "ru.proitr.tk.service.a.A")
	}

	vs, err := cycleRule(t, false).Evaluate(build(t).Build(), nil)
	require.NoError(t, err)
	assert.Empty(t, vs)

	vs, err = cycleRule(t, true).Evaluate(build(t).Build(), nil)
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, []string{"ru.proitr.tk of service", "ru.proitr.tk of service"}, vs[0].Path)
}

func TestFreeOfCycles_LongChainDoesNotRecurse(t *testing.T) {
	const n = 20000
	f := testutil.NewGraph(t)
	for i := 0; i < n; i++ {
		f.Class(fmt.Sprintf("ru.proitr.tk.s%05d.C", i))
	}
	for i := 0; i < n; i++ {
		f.Uses(fmt.Sprintf("ru.proitr.tk.s%05d.C", i), fmt.Sprintf("ru.proitr.tk.s%05d.C", (i+1)%n))
	}

	vs, err := cycleRule(t, false).Evaluate(f.Build(), nil)
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Len(t, vs[0].Path, n+1)
	assert.Equal(t, "ru.proitr.tk of s00000", vs[0].Path[0])
}
