package index

import (
	"encoding/json"
	"fmt"
	"os"

	archerrors "archguard/internal/errors"
	"archguard/internal/graph"
)

// SnapshotVersion is the JSON snapshot format understood by LoadJSON.
const SnapshotVersion = 1

// Snapshot is the serialised form of a graph.
type Snapshot struct {
	Version int                 `json:"version"`
	Symbols []*graph.Symbol     `json:"symbols"`
	Edges   []graph.Edge        `json:"edges"`
	Calls   map[string][]string `json:"calls,omitempty"`
}

// NewSnapshot captures g with symbols sorted by ID and edges in graph order.
func NewSnapshot(g *graph.Graph) *Snapshot {
	s := &Snapshot{
		Version: SnapshotVersion,
		Symbols: g.Symbols(),
		Edges:   g.Edges(),
		Calls:   make(map[string][]string),
	}
	for _, sym := range s.Symbols {
		if calls := g.CallNames(sym.ID); len(calls) > 0 {
			s.Calls[sym.ID] = calls
		}
	}
	return s
}

// Graph rebuilds the immutable graph from the snapshot.
func (s *Snapshot) Graph() (*graph.Graph, error) {
	if s.Version != SnapshotVersion {
		return nil, archerrors.Newf(archerrors.StorageError, "unsupported snapshot version %d", s.Version)
	}
	b := graph.NewBuilder()
	for _, sym := range s.Symbols {
		b.AddSymbol(sym)
	}
	for _, e := range s.Edges {
		b.AddEdge(e)
	}
	for id, calls := range s.Calls {
		b.SetCallNames(id, calls)
	}
	g, err := b.Build()
	if err != nil {
		return nil, archerrors.Wrap(archerrors.StorageError, "invalid snapshot", err)
	}
	return g, nil
}

// SaveJSON persists the graph to a JSON file.
func SaveJSON(g *graph.Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return archerrors.Wrap(archerrors.StorageError, "failed to create graph file", err).WithSubject(path)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(NewSnapshot(g)); err != nil {
		return archerrors.Wrap(archerrors.StorageError, "failed to encode graph", err).WithSubject(path)
	}
	return nil
}

// LoadJSON loads a graph from a JSON file.
func LoadJSON(path string) (*graph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, archerrors.Wrap(archerrors.StorageError, "failed to open graph file", err).WithSubject(path)
	}
	defer f.Close()

	var s Snapshot
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return nil, archerrors.Wrap(archerrors.StorageError, fmt.Sprintf("failed to decode %s", path), err)
	}
	return s.Graph()
}
