package analysis

import (
	"sort"
	"strings"

	"archguard/internal/git"
	"archguard/internal/graph"
)

// ImpactReport summarizes the symbols affected by changes.
type ImpactReport struct {
	DirectlyAffected   []*graph.Symbol
	IndirectlyAffected []*graph.Symbol
}

// Analyzer performs impact analysis on the symbol graph.
type Analyzer struct {
	// MaxHops bounds how far dependents are followed from a directly affected symbol.
	MaxHops int

	g      *graph.Graph
	byFile map[string][]*graph.Symbol
}

// NewAnalyzer creates a new analyzer. External stubs carry no source and are never affected.
func NewAnalyzer(g *graph.Graph) *Analyzer {
	byFile := make(map[string][]*graph.Symbol)
	for _, s := range g.Symbols() {
		if s.External || s.Filepath == "" {
			continue
		}
		byFile[s.Filepath] = append(byFile[s.Filepath], s)
	}
	return &Analyzer{MaxHops: 1, g: g, byFile: byFile}
}

// AnalyzeImpact identifies which symbols are affected by the given changes.
// Direct impacts are symbols whose line range contains a changed line; indirect ones are their
// dependents up to MaxHops incoming edges away.
func (a *Analyzer) AnalyzeImpact(changes []git.ChangedFile) *ImpactReport {
	report := &ImpactReport{
		DirectlyAffected:   []*graph.Symbol{},
		IndirectlyAffected: []*graph.Symbol{},
	}

	seenDirect := make(map[string]bool)
	seenIndirect := make(map[string]bool)

	for _, change := range changes {
		for _, s := range a.symbolsIn(change.Path) {
			if seenDirect[s.ID] || !isAffected(s, change.ChangedLines) {
				continue
			}
			report.DirectlyAffected = append(report.DirectlyAffected, s)
			seenDirect[s.ID] = true
		}
	}

	frontier := report.DirectlyAffected
	for hop := 0; hop < a.MaxHops && len(frontier) > 0; hop++ {
		var next []*graph.Symbol
		for _, s := range frontier {
			for _, dep := range a.g.Dependents(s.ID) {
				if seenDirect[dep.ID] || seenIndirect[dep.ID] {
					continue
				}
				seenIndirect[dep.ID] = true
				report.IndirectlyAffected = append(report.IndirectlyAffected, dep)
				next = append(next, dep)
			}
		}
		frontier = next
	}

	sortByID(report.DirectlyAffected)
	sortByID(report.IndirectlyAffected)
	return report
}

// symbolsIn matches a changed path against stored paths; either side may be relative to a different root.
func (a *Analyzer) symbolsIn(path string) []*graph.Symbol {
	path = strings.TrimPrefix(path, "./")
	if syms, ok := a.byFile[path]; ok {
		return syms
	}
	var out []*graph.Symbol
	for file, syms := range a.byFile {
		if strings.HasSuffix(file, "/"+path) || strings.HasSuffix(path, "/"+file) {
			out = append(out, syms...)
		}
	}
	return out
}

// Scope returns the identifiers of every affected symbol.
// Both IDs and full names are included since violations name members by signature.
func (r *ImpactReport) Scope() map[string]bool {
	scope := make(map[string]bool)
	for _, list := range [][]*graph.Symbol{r.DirectlyAffected, r.IndirectlyAffected} {
		for _, s := range list {
			scope[s.ID] = true
			scope[s.FullName()] = true
		}
	}
	return scope
}

// Scope returns the symbols changed by changes plus their dependents up to hops edges away.
func Scope(g *graph.Graph, changes []git.ChangedFile, hops int) map[string]bool {
	a := NewAnalyzer(g)
	a.MaxHops = hops
	return a.AnalyzeImpact(changes).Scope()
}

func isAffected(s *graph.Symbol, lines []int) bool {
	for _, line := range lines {
		if line >= s.StartLine && line <= s.EndLine {
			return true
		}
	}
	return false
}

func sortByID(syms []*graph.Symbol) {
	sort.Slice(syms, func(i, j int) bool { return syms[i].ID < syms[j].ID })
}
