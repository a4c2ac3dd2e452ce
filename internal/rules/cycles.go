package rules

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	archerrors "archguard/internal/errors"
	"archguard/internal/graph"
	"archguard/internal/predicate"
)

// FreeOfCycles partitions symbols into slices and reports dependency cycles between slices.
type FreeOfCycles struct {
	pattern         *predicate.PackagePattern
	template        string
	reportSelfLoops bool
}

// NewFreeOfCycles builds the rule from a package pattern with at least one capture group.
// template names slices from the captures ("$1 of $2"); empty joins them with ".".
func NewFreeOfCycles(pattern, template string, reportSelfLoops bool) (*FreeOfCycles, error) {
	pp, err := predicate.CompilePackagePattern(pattern)
	if err != nil {
		return nil, archerrors.Wrap(archerrors.ConfigurationError, "slice pattern", err)
	}
	if pp.Groups() == 0 {
		return nil, archerrors.Newf(archerrors.ConfigurationError, "slice pattern %q has no capture group", pattern)
	}
	for i := pp.Groups() + 1; i <= 9; i++ {
		if strings.Contains(template, "$"+strconv.Itoa(i)) {
			return nil, archerrors.Newf(archerrors.ConfigurationError, "slice naming %q refers to missing group $%d", template, i)
		}
	}
	return &FreeOfCycles{pattern: pp, template: template, reportSelfLoops: reportSelfLoops}, nil
}

// SliceOf names the slice of a package, or returns "" when the package is in no slice.
func (c *FreeOfCycles) SliceOf(pkg string) string {
	caps := c.pattern.Captures(pkg)
	if caps == nil {
		return ""
	}
	if c.template == "" {
		return strings.Join(caps, ".")
	}
	name := c.template
	for i := len(caps); i >= 1; i-- {
		name = strings.ReplaceAll(name, "$"+strconv.Itoa(i), caps[i-1])
	}
	return name
}

type sample struct {
	from, to string
}

func (s sample) less(o sample) bool {
	if s.from != o.from {
		return s.from < o.from
	}
	return s.to < o.to
}

func (s sample) String() string { return s.from + " -> " + s.to }

type sliceGraph struct {
	adj     map[string][]string
	samples map[[2]string]sample
}

func (sg *sliceGraph) add(a, b string, s sample) {
	k := [2]string{a, b}
	if cur, ok := sg.samples[k]; ok {
		if s.less(cur) {
			sg.samples[k] = s
		}
		return
	}
	sg.samples[k] = s
	sg.adj[a] = append(sg.adj[a], b)
}

func (c *FreeOfCycles) Check(g *graph.Graph, _ []*graph.Symbol) ([]Violation, error) {
	sg := &sliceGraph{adj: make(map[string][]string), samples: make(map[[2]string]sample)}
	// slice -> dependencies between its own distinct packages
	inner := make(map[string]*sliceGraph)
	nodes := make(map[string]bool)

	for _, e := range g.Edges() {
		from, to, err := endpoints(g, e)
		if err != nil {
			return nil, err
		}
		sa, sb := c.SliceOf(from.Package), c.SliceOf(to.Package)
		if sa == "" || sb == "" {
			continue
		}
		s := sample{from: from.FullName(), to: to.FullName()}
		if sa == sb {
			if c.reportSelfLoops && from.Package != to.Package {
				ig := inner[sa]
				if ig == nil {
					ig = &sliceGraph{adj: make(map[string][]string), samples: make(map[[2]string]sample)}
					inner[sa] = ig
				}
				ig.add(from.Package, to.Package, s)
			}
			continue
		}
		nodes[sa], nodes[sb] = true, true
		sg.add(sa, sb, s)
	}

	order := make([]string, 0, len(nodes))
	for n := range nodes {
		order = append(order, n)
	}
	sort.Strings(order)
	for _, succ := range sg.adj {
		sort.Strings(succ)
	}

	var vs []Violation
	for _, comp := range stronglyConnected(order, sg.adj) {
		if len(comp) < 2 {
			continue
		}
		members := make(map[string]bool, len(comp))
		for _, n := range comp {
			members[n] = true
		}
		cycle := shortestCycle(comp[0], members, sg.adj)
		if cycle == nil {
			return nil, archerrors.Newf(archerrors.RuleEvaluationError, "no cycle through %q in its component", comp[0])
		}
		vs = append(vs, cycleViolation(cycle, sg.samples))
	}

	if c.reportSelfLoops {
		slices := make([]string, 0, len(inner))
		for name := range inner {
			slices = append(slices, name)
		}
		sort.Strings(slices)
		for _, name := range slices {
			if v, ok := selfLoop(name, inner[name]); ok {
				vs = append(vs, v)
			}
		}
	}
	return vs, nil
}

func cycleViolation(cycle []string, samples map[[2]string]sample) Violation {
	hops := make([]string, 0, len(cycle)-1)
	var first sample
	for i := 0; i+1 < len(cycle); i++ {
		s := samples[[2]string{cycle[i], cycle[i+1]}]
		if i == 0 {
			first = s
		}
		hops = append(hops, s.String())
	}
	return Violation{
		Message: fmt.Sprintf("Cycle detected: %s (dependencies: %s)", strings.Join(cycle, " -> "), strings.Join(hops, "; ")),
		Subject: first.from,
		Related: first.to,
		Path:    cycle,
	}
}

// selfLoop reports a slice whose sub-packages depend on each other in both directions.
func selfLoop(slice string, ig *sliceGraph) (Violation, bool) {
	var best [2]sample
	found := false
	for k, s := range ig.samples {
		back, ok := ig.samples[[2]string{k[1], k[0]}]
		if !ok {
			continue
		}
		if !found || s.less(best[0]) {
			best = [2]sample{s, back}
			found = true
		}
	}
	if !found {
		return Violation{}, false
	}
	return Violation{
		Message: fmt.Sprintf("Cycle detected: %s -> %s (dependencies: %s; %s)", slice, slice, best[0], best[1]),
		Subject: best[0].from,
		Related: best[0].to,
		Path:    []string{slice, slice},
	}, true
}

// stronglyConnected runs Tarjan's algorithm with an explicit work stack.
// Components are returned with their members sorted.
func stronglyConnected(nodes []string, adj map[string][]string) [][]string {
	type frame struct {
		node string
		next int
	}

	index := make(map[string]int, len(nodes))
	low := make(map[string]int, len(nodes))
	onStack := make(map[string]bool, len(nodes))
	var stack []string
	var comps [][]string
	counter := 0

	visit := func(n string) {
		index[n] = counter
		low[n] = counter
		counter++
		stack = append(stack, n)
		onStack[n] = true
	}

	for _, root := range nodes {
		if _, seen := index[root]; seen {
			continue
		}
		visit(root)
		work := []frame{{node: root}}

		for len(work) > 0 {
			top := &work[len(work)-1]
			succ := adj[top.node]
			if top.next < len(succ) {
				w := succ[top.next]
				top.next++
				if _, seen := index[w]; !seen {
					visit(w)
					work = append(work, frame{node: w})
				} else if onStack[w] && index[w] < low[top.node] {
					low[top.node] = index[w]
				}
				continue
			}

			v := top.node
			work = work[:len(work)-1]
			if len(work) > 0 {
				parent := work[len(work)-1].node
				if low[v] < low[parent] {
					low[parent] = low[v]
				}
			}
			if low[v] != index[v] {
				continue
			}
			var comp []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			sort.Strings(comp)
			comps = append(comps, comp)
		}
	}

	sort.Slice(comps, func(i, j int) bool { return comps[i][0] < comps[j][0] })
	return comps
}

// shortestCycle finds the shortest path from start back to itself inside members,
// visiting neighbours in their sorted order.
func shortestCycle(start string, members map[string]bool, adj map[string][]string) []string {
	prev := make(map[string]string)
	visited := map[string]bool{start: true}
	queue := []string{start}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, w := range adj[cur] {
			if !members[w] {
				continue
			}
			if w == start {
				var rev []string
				for n := cur; n != start; n = prev[n] {
					rev = append(rev, n)
				}
				cycle := []string{start}
				for i := len(rev) - 1; i >= 0; i-- {
					cycle = append(cycle, rev[i])
				}
				return append(cycle, start)
			}
			if !visited[w] {
				visited[w] = true
				prev[w] = cur
				queue = append(queue, w)
			}
		}
	}
	return nil
}
