package graph

// Stats summarises a graph for CLI output.
type Stats struct {
	Symbols       int
	External      int
	Edges         int
	Dangling      int
	SymbolsByKind map[SymbolKind]int
	EdgesByKind   map[EdgeKind]int
}

func (g *Graph) Stats() Stats {
	st := Stats{
		SymbolsByKind: make(map[SymbolKind]int),
		EdgesByKind:   make(map[EdgeKind]int),
	}
	if g == nil {
		return st
	}
	st.Symbols = len(g.order)
	st.Edges = len(g.edges)
	for _, s := range g.symbols {
		st.SymbolsByKind[s.Kind]++
		if s.External {
			st.External++
		}
	}
	for _, e := range g.edges {
		st.EdgesByKind[e.Kind]++
		if _, ok := g.symbols[e.To]; !ok {
			st.Dangling++
		} else if _, ok := g.symbols[e.From]; !ok {
			st.Dangling++
		}
	}
	return st
}
