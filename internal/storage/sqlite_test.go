package storage

import (
	"context"
	"path/filepath"
	"testing"

	archerrors "archguard/internal/errors"
	"archguard/internal/graph"
	"archguard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleGraph(t *testing.T) *graph.Graph {
	f := testutil.NewGraph(t).
		Class("org.example.repository.OrderRepository", "org.springframework.stereotype.Repository").
		Class("org.example.service.OrderService", "org.springframework.stereotype.Service").
		Add(&graph.Symbol{
			ID: "org.jooq.DSLContext", Name: "DSLContext", Package: "org.jooq",
			Kind: graph.KindInterface, External: true,
		}).
		Add(&graph.Symbol{
			ID: "org.example.service.OrderService#timeout", Name: "timeout", Package: "org.example.service",
			Kind: graph.KindField, Owner: "org.example.service.OrderService",
			Modifiers:   []graph.Modifier{graph.ModPrivate, graph.ModFinal},
			Annotations: []graph.Annotation{{Name: "org.springframework.beans.factory.annotation.Value", Params: map[string]string{"value": "${timeout}"}}},
			Filepath:    "src/main/java/org/example/service/OrderService.java", StartLine: 7, EndLine: 7,
		})
	save := f.Method("org.example.repository.OrderRepository", "save", "insertInto", "values", "execute")
	place := f.Method("org.example.service.OrderService", "place", "save")
	f.Calls(place, save)
	f.Uses("org.example.repository.OrderRepository", "org.jooq.DSLContext")
	f.Edge(save, "org.jooq.DSLContext", graph.EdgeParameterType)
	return f.Build()
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	g := sampleGraph(t)

	require.NoError(t, store.SaveGraph(ctx, g))
	loaded, err := store.LoadGraph(ctx)
	require.NoError(t, err)

	assert.Equal(t, g.Symbols(), loaded.Symbols())
	assert.Equal(t, g.Edges(), loaded.Edges())
	assert.Equal(t, []string{"insertInto", "values", "execute"}, loaded.CallNames("org.example.repository.OrderRepository#save()"))
	assert.Equal(t, g.Stats(), loaded.Stats())
}

func TestSQLiteStore_SaveGraph_SnapshotSync(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveGraph(ctx, sampleGraph(t)))

	// the new snapshot drops the repository and its edges
	f := testutil.NewGraph(t).Class("org.example.service.OrderService").Class("org.example.client.Billing")
	f.Uses("org.example.service.OrderService", "org.example.client.Billing")
	require.NoError(t, store.SaveGraph(ctx, f.Build()))

	loaded, err := store.LoadGraph(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, loaded.Len())
	_, hasRepo := loaded.Symbol("org.example.repository.OrderRepository")
	assert.False(t, hasRepo)
	require.Len(t, loaded.Edges(), 1)
	assert.Equal(t, graph.Edge{From: "org.example.service.OrderService", To: "org.example.client.Billing", Kind: graph.EdgeTypeReference}, loaded.Edges()[0])
	assert.Empty(t, loaded.CallNames("org.example.repository.OrderRepository#save()"))
}

func TestSQLiteStore_SaveGraph_EmptySnapshotClearsData(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveGraph(ctx, sampleGraph(t)))
	require.NoError(t, store.SaveGraph(ctx, testutil.NewGraph(t).Build()))

	loaded, err := store.LoadGraph(ctx)
	require.NoError(t, err)
	assert.Zero(t, loaded.Len())
	assert.Empty(t, loaded.Edges())
}

func TestSQLiteStore_Lookups(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveGraph(ctx, sampleGraph(t)))

	t.Run("GetSymbol", func(t *testing.T) {
		s, err := store.GetSymbol(ctx, "org.example.service.OrderService#timeout")
		require.NoError(t, err)
		assert.Equal(t, []graph.Modifier{graph.ModPrivate, graph.ModFinal}, s.Modifiers)
		require.Len(t, s.Annotations, 1)
		assert.Equal(t, "${timeout}", s.Annotations[0].Params["value"])

		_, err = store.GetSymbol(ctx, "org.example.Missing")
		assert.True(t, archerrors.IsCode(err, archerrors.StorageError))
	})

	t.Run("FindSymbolsByFile", func(t *testing.T) {
		syms, err := store.FindSymbolsByFile(ctx, "src/main/java/org/example/service/OrderService.java")
		require.NoError(t, err)
		require.Len(t, syms, 1)
		assert.Equal(t, "org.example.service.OrderService#timeout", syms[0].ID)
	})
}

func TestSQLiteStore_ClosedDatabase(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	err = store.SaveGraph(context.Background(), sampleGraph(t))
	assert.True(t, archerrors.IsCode(err, archerrors.StorageError))
	_, err = store.LoadGraph(context.Background())
	assert.True(t, archerrors.IsCode(err, archerrors.StorageError))
}
