package analysis

import (
	"testing"

	"archguard/internal/git"
	"archguard/internal/graph"
	"archguard/internal/report"
	"archguard/internal/rules"
	"archguard/internal/testutil"

	"github.com/stretchr/testify/assert"
)

func located(id, name, pkg, owner, file string, kind graph.SymbolKind, start, end int) *graph.Symbol {
	s := &graph.Symbol{
		ID: id, Name: name, Package: pkg, Kind: kind, Owner: owner,
		Filepath: file, StartLine: start, EndLine: end,
	}
	if kind == graph.KindMethod {
		s.Signature = owner + "." + name + "()"
	}
	return s
}

func impactGraph(t *testing.T) *graph.Graph {
	const repoFile = "src/main/java/a/repo/Repo.java"
	const svcFile = "src/main/java/a/svc/Svc.java"

	return testutil.NewGraph(t).
		Add(located("a.repo.Repo", "Repo", "a.repo", "", repoFile, graph.KindClass, 3, 20)).
		Add(located("a.repo.Repo#save()", "save", "a.repo", "a.repo.Repo", repoFile, graph.KindMethod, 5, 9)).
		Add(located("a.repo.Repo#load()", "load", "a.repo", "a.repo.Repo", repoFile, graph.KindMethod, 11, 15)).
		Add(located("a.svc.Svc", "Svc", "a.svc", "", svcFile, graph.KindClass, 3, 30)).
		Add(located("a.svc.Svc#run()", "run", "a.svc", "a.svc.Svc", svcFile, graph.KindMethod, 5, 12)).
		Add(&graph.Symbol{ID: "java.util.List", Name: "List", Package: "java.util", Kind: graph.KindInterface, External: true}).
		Add(located("a.web.Api", "Api", "a.web", "", "src/main/java/a/web/Api.java", graph.KindClass, 1, 20)).
		Add(located("a.web.Api#get()", "get", "a.web", "a.web.Api", "src/main/java/a/web/Api.java", graph.KindMethod, 4, 8)).
		Calls("a.svc.Svc#run()", "a.repo.Repo#save()").
		Calls("a.web.Api#get()", "a.svc.Svc#run()").
		Uses("a.repo.Repo#load()", "java.util.List").
		Build()
}

func ids(syms []*graph.Symbol) []string {
	out := make([]string, len(syms))
	for i, s := range syms {
		out[i] = s.ID
	}
	return out
}

func TestAnalyzeImpact(t *testing.T) {
	g := impactGraph(t)

	tests := []struct {
		name     string
		changes  []git.ChangedFile
		direct   []string
		indirect []string
	}{
		{
			name:     "method body change pulls in its callers",
			changes:  []git.ChangedFile{{Path: "src/main/java/a/repo/Repo.java", ChangedLines: []int{6}}},
			direct:   []string{"a.repo.Repo", "a.repo.Repo#save()"},
			indirect: []string{"a.svc.Svc#run()"},
		},
		{
			name:     "change between members touches only the type",
			changes:  []git.ChangedFile{{Path: "src/main/java/a/repo/Repo.java", ChangedLines: []int{10}}},
			direct:   []string{"a.repo.Repo"},
			indirect: []string{},
		},
		{
			name:     "path relative to a parent directory",
			changes:  []git.ChangedFile{{Path: "service/src/main/java/a/repo/Repo.java", ChangedLines: []int{12}}},
			direct:   []string{"a.repo.Repo", "a.repo.Repo#load()"},
			indirect: []string{},
		},
		{
			name:     "unknown file",
			changes:  []git.ChangedFile{{Path: "README.md", ChangedLines: []int{1}}},
			direct:   []string{},
			indirect: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewAnalyzer(g).AnalyzeImpact(tt.changes)
			assert.Equal(t, tt.direct, ids(r.DirectlyAffected))
			assert.Equal(t, tt.indirect, ids(r.IndirectlyAffected))
		})
	}
}

func TestScope_FiltersViolations(t *testing.T) {
	g := impactGraph(t)
	scope := Scope(g, []git.ChangedFile{{Path: "src/main/java/a/repo/Repo.java", ChangedLines: []int{7}}}, 1)

	assert.True(t, scope["a.repo.Repo#save()"])
	assert.True(t, scope["a.repo.Repo.save()"])
	assert.True(t, scope["a.svc.Svc.run()"])
	assert.False(t, scope["a.repo.Repo#load()"])

	vs := []rules.Violation{
		{RuleID: "r", Subject: "a.svc.Svc.run()", Message: "in scope"},
		{RuleID: "r", Subject: "a.repo.Repo.load()", Message: "out of scope"},
		{RuleID: "broken", Subject: "broken", Message: "error", Error: true},
	}
	kept := report.FilterByScope(vs, scope)
	assert.Len(t, kept, 2)
	assert.Equal(t, "in scope", kept[0].Message)
	assert.True(t, kept[1].Error)
}

func TestAnalyzeImpact_Hops(t *testing.T) {
	g := impactGraph(t)
	changes := []git.ChangedFile{{Path: "src/main/java/a/repo/Repo.java", ChangedLines: []int{6}}}

	a := NewAnalyzer(g)
	a.MaxHops = 2
	assert.Equal(t, []string{"a.svc.Svc#run()", "a.web.Api#get()"}, ids(a.AnalyzeImpact(changes).IndirectlyAffected))

	a.MaxHops = 0
	r := a.AnalyzeImpact(changes)
	assert.Equal(t, []string{"a.repo.Repo", "a.repo.Repo#save()"}, ids(r.DirectlyAffected))
	assert.Empty(t, r.IndirectlyAffected)
}
