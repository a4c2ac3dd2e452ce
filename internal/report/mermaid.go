package report

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"archguard/internal/rules"
)

const maxMermaidEdges = 20

var mermaidIDPattern = regexp.MustCompile(`[^a-z0-9_]`)

// Mermaid draws the violations as a dependency flow: cycle paths hop by hop, and every
// other subject/related pair collapsed to its packages, heaviest edges first.
func Mermaid(vs []rules.Violation) string {
	type edge struct {
		from, to string
	}
	cycleEdges := map[edge]bool{}
	weights := map[edge]int{}
	nodes := map[string]bool{}

	for _, v := range vs {
		if len(v.Path) > 1 {
			for i := 0; i+1 < len(v.Path); i++ {
				e := edge{from: v.Path[i], to: v.Path[i+1]}
				cycleEdges[e] = true
				nodes[e.from], nodes[e.to] = true, true
			}
			continue
		}
		if v.Error || v.Related == "" {
			continue
		}
		e := edge{from: PackageOf(v.Subject), to: PackageOf(v.Related)}
		if e.from == "" || e.to == "" || e.from == e.to {
			continue
		}
		weights[e]++
	}

	type weighted struct {
		e edge
		w int
	}
	deps := make([]weighted, 0, len(weights))
	for e, w := range weights {
		deps = append(deps, weighted{e: e, w: w})
	}
	sort.Slice(deps, func(i, j int) bool {
		if deps[i].w == deps[j].w {
			if deps[i].e.from == deps[j].e.from {
				return deps[i].e.to < deps[j].e.to
			}
			return deps[i].e.from < deps[j].e.from
		}
		return deps[i].w > deps[j].w
	})
	if len(deps) > maxMermaidEdges {
		deps = deps[:maxMermaidEdges]
	}
	for _, d := range deps {
		nodes[d.e.from], nodes[d.e.to] = true, true
	}

	names := make([]string, 0, len(nodes))
	for n := range nodes {
		names = append(names, n)
	}
	sort.Strings(names)

	cycles := make([]edge, 0, len(cycleEdges))
	for e := range cycleEdges {
		cycles = append(cycles, e)
	}
	sort.Slice(cycles, func(i, j int) bool {
		if cycles[i].from == cycles[j].from {
			return cycles[i].to < cycles[j].to
		}
		return cycles[i].from < cycles[j].from
	})

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("graph LR\n")
	for _, n := range names {
		sb.WriteString(fmt.Sprintf("    %s[%q]\n", sanitizeMermaidID(n), n))
	}
	for _, e := range cycles {
		sb.WriteString(fmt.Sprintf("    %s -->|cycle| %s\n", sanitizeMermaidID(e.from), sanitizeMermaidID(e.to)))
	}
	for _, d := range deps {
		sb.WriteString(fmt.Sprintf("    %s -.->|%d| %s\n", sanitizeMermaidID(d.e.from), d.w, sanitizeMermaidID(d.e.to)))
	}
	sb.WriteString("```\n")
	return sb.String()
}

// PackageOf guesses the package of a reported name ("a.b.C", "a.b.C.m(x.Y)", "a.b.C$D")
// by taking the leading lower-case segments.
func PackageOf(name string) string {
	if i := strings.IndexAny(name, "(#$"); i >= 0 {
		name = name[:i]
	}
	var segs []string
	for _, seg := range strings.Split(name, ".") {
		if seg == "" || (seg[0] >= 'A' && seg[0] <= 'Z') {
			break
		}
		segs = append(segs, seg)
	}
	return strings.Join(segs, ".")
}

func sanitizeMermaidID(v string) string {
	v = strings.TrimSpace(strings.ToLower(v))
	if v == "" {
		return "node"
	}
	v = mermaidIDPattern.ReplaceAllString(strings.ReplaceAll(v, "-", "_"), "_")
	if v[0] >= '0' && v[0] <= '9' {
		v = "n_" + v
	}
	return v
}
