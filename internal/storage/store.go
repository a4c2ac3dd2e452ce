package storage

import (
	"context"

	"archguard/internal/graph"
)

// GraphStore persists symbol graph snapshots.
type GraphStore interface {
	// SaveGraph replaces the stored snapshot with g.
	SaveGraph(ctx context.Context, g *graph.Graph) error

	// LoadGraph rebuilds the stored snapshot.
	LoadGraph(ctx context.Context) (*graph.Graph, error)

	// GetSymbol retrieves a symbol by its ID.
	GetSymbol(ctx context.Context, id string) (*graph.Symbol, error)

	// FindSymbolsByFile retrieves all symbols declared in a source file.
	FindSymbolsByFile(ctx context.Context, filepath string) ([]*graph.Symbol, error)

	Close() error
}
