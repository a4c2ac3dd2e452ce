package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"archguard/internal/crawler"
	archerrors "archguard/internal/errors"
	"archguard/internal/extractor"
	"archguard/internal/graph"
	"archguard/internal/resolver"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Indexer orchestrates source import: crawl, extract, resolve and build the symbol graph.
type Indexer struct {
	crawler   *crawler.Crawler
	extractor *extractor.Extractor
	workers   int
	logger    *zap.Logger
}

// NewIndexer creates a new indexer. A nil logger discards output; workers <= 0 means NumCPU.
func NewIndexer(c *crawler.Crawler, ext *extractor.Extractor, workers int, logger *zap.Logger) *Indexer {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{crawler: c, extractor: ext, workers: workers, logger: logger.Named("index")}
}

// Result is a built graph with what it took to build it.
type Result struct {
	Graph    *graph.Graph
	Files    int
	External int
	Stages   []resolver.StageResult
}

// BuildGraph scans the project root and constructs the symbol graph.
func (i *Indexer) BuildGraph(ctx context.Context, root string) (*Result, error) {
	files, err := i.crawler.ListFiles(root)
	if err != nil {
		return nil, archerrors.Wrap(archerrors.ImportError, "scan failed", err).WithSubject(root)
	}
	i.logger.Debug("source files found", zap.String("root", root), zap.Int("files", len(files)))

	parsed, err := i.extractAll(ctx, files)
	if err != nil {
		return nil, err
	}

	b := newGraphAssembler(root, parsed, i.logger)
	g, err := b.build()
	if err != nil {
		return nil, archerrors.Wrap(archerrors.ImportError, "graph assembly failed", err)
	}

	res := &Result{Graph: g, Files: len(files), External: b.external, Stages: b.chain.Results()}
	for _, st := range res.Stages {
		i.logger.Debug("resolver stage",
			zap.String("resolver", st.Resolver),
			zap.Int("attempted", st.Stats.Attempted),
			zap.Int("resolved", st.Stats.Resolved))
	}
	i.logger.Info("graph built",
		zap.Int("files", res.Files),
		zap.Int("symbols", g.Len()),
		zap.Int("edges", len(g.Edges())),
		zap.Int("external", res.External))
	return res, nil
}

// extractAll parses files on a bounded pool; results keep the order of files.
func (i *Indexer) extractAll(ctx context.Context, files []string) ([]*extractor.FileUnits, error) {
	out := make([]*extractor.FileUnits, len(files))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(i.workers)

	for idx, path := range files {
		idx, path := idx, path
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			src, err := os.ReadFile(path)
			if err != nil {
				return archerrors.Wrap(archerrors.ImportError, "read failed", err).WithSubject(path)
			}
			fu, err := i.extractor.ExtractSource(egCtx, path, src)
			if err != nil {
				return archerrors.Wrap(archerrors.ImportError, "parse failed", err).WithSubject(path)
			}
			out[idx] = fu
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// memberIndex lists the members of analysed types by name.
type memberIndex struct {
	methods      map[string][]*extractor.CodeUnit
	constructors map[string][]*extractor.CodeUnit
	fields       map[string]string
}

type graphAssembler struct {
	root     string
	files    []*extractor.FileUnits
	logger   *zap.Logger
	chain    *resolver.ResolverChain
	types    map[string]*extractor.CodeUnit
	members  memberIndex
	supers   map[string][]string
	b        *graph.Builder
	stubs    map[string]bool
	external int
}

func newGraphAssembler(root string, files []*extractor.FileUnits, logger *zap.Logger) *graphAssembler {
	a := &graphAssembler{
		root:   root,
		files:  files,
		logger: logger,
		types:  make(map[string]*extractor.CodeUnit),
		members: memberIndex{
			methods:      make(map[string][]*extractor.CodeUnit),
			constructors: make(map[string][]*extractor.CodeUnit),
			fields:       make(map[string]string),
		},
		supers: make(map[string][]string),
		b:      graph.NewBuilder(),
		stubs:  make(map[string]bool),
	}

	typePkgs := make(map[string]string)
	for _, fu := range files {
		for _, u := range fu.Types() {
			if _, dup := a.types[u.ID]; dup {
				continue
			}
			a.types[u.ID] = u
			typePkgs[u.ID] = u.Package
		}
	}
	a.chain = resolver.NewDefaultChain(resolver.NewUniverse(typePkgs))
	return a
}

func fileContext(fu *extractor.FileUnits) resolver.FileContext {
	return resolver.FileContext{Package: fu.Package, Imports: fu.Imports}
}

// enclosing is the type whose scope a unit's names are looked up in.
func enclosing(u *extractor.CodeUnit) string {
	if extractor.IsTypeUnit(u.UnitType) {
		return u.ID
	}
	return u.Owner
}

func (a *graphAssembler) resolve(fu *extractor.FileUnits, u *extractor.CodeUnit, name string) string {
	id, _ := a.chain.Resolve(resolver.Request{Name: name, File: fileContext(fu), Enclosing: enclosing(u)})
	return id
}

func (a *graphAssembler) build() (*graph.Graph, error) {
	// first pass: symbols and member index, first declaration wins
	seen := make(map[string]bool)
	type pending struct {
		fu *extractor.FileUnits
		u  *extractor.CodeUnit
	}
	var units []pending
	for _, fu := range a.files {
		for _, u := range fu.Units {
			if seen[u.ID] {
				a.logger.Warn("duplicate declaration skipped", zap.String("id", u.ID), zap.String("file", fu.Path))
				continue
			}
			seen[u.ID] = true
			units = append(units, pending{fu, u})
			a.indexMember(u)
		}
	}

	for _, p := range units {
		a.b.AddSymbol(a.symbol(p.fu, p.u))
		if len(p.u.Calls) > 0 {
			a.b.SetCallNames(p.u.ID, p.u.Calls)
		}
	}

	// second pass: edges, creating stubs for referenced types outside the sources
	for _, p := range units {
		for _, r := range p.u.Relations {
			a.edge(p.fu, p.u, r)
		}
	}
	return a.b.Build()
}

func (a *graphAssembler) indexMember(u *extractor.CodeUnit) {
	switch u.UnitType {
	case extractor.UnitMethod:
		key := u.Owner + "#" + u.Name
		a.members.methods[key] = append(a.members.methods[key], u)
	case extractor.UnitConstructor:
		a.members.constructors[u.Owner] = append(a.members.constructors[u.Owner], u)
	case extractor.UnitField:
		a.members.fields[u.Owner+"#"+u.Name] = u.ID
	}
}

func (a *graphAssembler) symbol(fu *extractor.FileUnits, u *extractor.CodeUnit) *graph.Symbol {
	s := &graph.Symbol{
		ID:        u.ID,
		Name:      u.Name,
		Package:   fu.Package,
		Kind:      graph.SymbolKind(u.UnitType),
		Owner:     u.Owner,
		Filepath:  a.relPath(fu.Path),
		StartLine: u.StartLine,
		EndLine:   u.EndLine,
	}
	for _, m := range u.Modifiers {
		s.Modifiers = append(s.Modifiers, graph.Modifier(m))
	}
	for _, ann := range u.Annotations {
		s.Annotations = append(s.Annotations, graph.Annotation{Name: a.resolve(fu, u, ann.Name), Params: ann.Params})
	}
	for _, st := range u.Supertypes {
		id := a.resolve(fu, u, st)
		if id == "" {
			continue
		}
		s.Supertypes = append(s.Supertypes, id)
	}
	a.supers[u.ID] = s.Supertypes

	if d, ok := u.Details.(extractor.MethodDetails); ok {
		s.Signature = a.signature(fu, u, d)
	}
	return s
}

// signature renders "pkg.Owner.name(pkg.T1, int[])" from resolved parameter types.
func (a *graphAssembler) signature(fu *extractor.FileUnits, u *extractor.CodeUnit, d extractor.MethodDetails) string {
	params := make([]string, len(d.Parameters))
	for i, p := range d.Parameters {
		elem := extractor.ElementType(p.Type)
		dims := strings.TrimPrefix(p.Type, elem)
		switch {
		case primitives[elem], containsString(u.TypeParams, elem):
			params[i] = p.Type
		default:
			params[i] = strings.ReplaceAll(a.resolve(fu, u, elem), "$", ".") + dims
		}
	}
	return fmt.Sprintf("%s.%s(%s)", strings.ReplaceAll(u.Owner, "$", "."), u.Name, strings.Join(params, ", "))
}

func (a *graphAssembler) relPath(path string) string {
	rel, err := filepath.Rel(a.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (a *graphAssembler) edge(fu *extractor.FileUnits, u *extractor.CodeUnit, r extractor.Relation) {
	if primitives[r.Target] || containsString(u.TypeParams, r.Target) {
		return
	}
	typeID := a.resolve(fu, u, r.Target)
	if typeID == "" {
		return
	}

	to := typeID
	if _, internal := a.types[typeID]; internal {
		to = a.memberTarget(typeID, r)
	} else {
		a.stub(typeID)
	}

	e := graph.Edge{From: u.ID, To: to, Kind: graph.EdgeKind(r.Kind)}
	if r.Kind == extractor.RelationMethodCall || r.Kind == extractor.RelationConstructorCall {
		e.CallName = r.CallName
	}
	a.b.AddEdge(e)
}

// memberTarget picks the declared member a call or access lands on, searching supertypes,
// and falls back to the type itself.
func (a *graphAssembler) memberTarget(typeID string, r extractor.Relation) string {
	switch r.Kind {
	case extractor.RelationConstructorCall:
		if m := pickByArity(a.members.constructors[typeID], r.Args); m != "" {
			return m
		}
	case extractor.RelationMethodCall:
		for _, t := range a.typeAndSupertypes(typeID) {
			if m := pickByArity(a.members.methods[t+"#"+r.Member], r.Args); m != "" {
				return m
			}
		}
		// record accessors are implicit
		if rec := a.types[typeID]; rec != nil && rec.UnitType == extractor.UnitRecord && r.Args == 0 {
			if f, ok := a.members.fields[typeID+"#"+r.Member]; ok {
				return f
			}
		}
	case extractor.RelationFieldAccess:
		for _, t := range a.typeAndSupertypes(typeID) {
			if f, ok := a.members.fields[t+"#"+r.Member]; ok {
				return f
			}
		}
	}
	return typeID
}

func (a *graphAssembler) typeAndSupertypes(typeID string) []string {
	out := []string{typeID}
	seen := map[string]bool{typeID: true}
	for i := 0; i < len(out); i++ {
		for _, st := range a.supers[out[i]] {
			if !seen[st] {
				seen[st] = true
				out = append(out, st)
			}
		}
	}
	return out
}

func pickByArity(candidates []*extractor.CodeUnit, args int) string {
	if len(candidates) == 0 {
		return ""
	}
	sorted := append([]*extractor.CodeUnit(nil), candidates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	for _, c := range sorted {
		if d, ok := c.Details.(extractor.MethodDetails); ok && len(d.Parameters) == args {
			return c.ID
		}
	}
	return sorted[0].ID
}

// stub adds an External symbol for a type referenced but not declared in the sources.
func (a *graphAssembler) stub(typeID string) {
	if a.stubs[typeID] {
		return
	}
	a.stubs[typeID] = true
	a.external++

	pkg, name := "", typeID
	if i := strings.LastIndex(typeID, "."); i >= 0 {
		pkg, name = typeID[:i], typeID[i+1:]
	}
	a.b.AddSymbol(&graph.Symbol{
		ID:        typeID,
		Name:      name,
		Package:   pkg,
		Kind:      graph.KindClass,
		Modifiers: []graph.Modifier{graph.ModPublic},
		External:  true,
	})
}

var primitives = map[string]bool{
	"int": true, "long": true, "short": true, "byte": true, "char": true,
	"boolean": true, "float": true, "double": true, "void": true, "var": true,
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
