package resolver

import (
	"strings"

	"archguard/internal/extractor"
)

// ResolveStats counts what one stage of the chain did.
type ResolveStats struct {
	Attempted int
	Resolved  int
	Skipped   int
}

// StageResult reports one resolver of the chain.
type StageResult struct {
	Resolver string
	Stats    ResolveStats
}

// FileContext is what a source file contributes to name lookup.
type FileContext struct {
	Package string
	Imports []extractor.Import
}

// Request is a raw type name as written at some point in a source file.
type Request struct {
	Name string
	File FileContext
	// Enclosing is the ID of the innermost type declaring the use site.
	Enclosing string
}

// TypeResolver maps a raw type name to a fully-qualified type ID.
type TypeResolver interface {
	Name() string
	Resolve(u *Universe, req Request) (string, bool)
}

// ResolverChain asks each resolver in turn until one answers.
// It keeps per-stage statistics and is not safe for concurrent use.
type ResolverChain struct {
	universe  *Universe
	resolvers []TypeResolver
	stats     []ResolveStats
}

func NewResolverChain(u *Universe, resolvers ...TypeResolver) *ResolverChain {
	return &ResolverChain{
		universe:  u,
		resolvers: resolvers,
		stats:     make([]ResolveStats, len(resolvers)),
	}
}

// NewDefaultChain resolves nested, qualified, imported, same-package, java.lang and
// wildcard-imported names, and falls back to a best guess so that every name gets an ID.
func NewDefaultChain(u *Universe) *ResolverChain {
	return NewResolverChain(u,
		NestedResolver{},
		QualifiedResolver{},
		ImportResolver{},
		PackageResolver{},
		JavaLangResolver{},
		WildcardResolver{},
		FallbackResolver{},
	)
}

// Resolve returns the type ID for req.Name and the name of the resolver that produced it.
// Array dimensions are dropped; an empty name resolves to nothing.
func (c *ResolverChain) Resolve(req Request) (string, string) {
	req.Name = extractor.ElementType(strings.TrimSpace(req.Name))
	if req.Name == "" {
		return "", ""
	}
	for i, r := range c.resolvers {
		c.stats[i].Attempted++
		if id, ok := r.Resolve(c.universe, req); ok {
			c.stats[i].Resolved++
			return id, r.Name()
		}
		c.stats[i].Skipped++
	}
	return "", ""
}

// Results returns the statistics of every stage, in chain order.
func (c *ResolverChain) Results() []StageResult {
	out := make([]StageResult, len(c.resolvers))
	for i, r := range c.resolvers {
		out[i] = StageResult{Resolver: r.Name(), Stats: c.stats[i]}
	}
	return out
}

// Universe is the set of types declared in the analysed sources.
type Universe struct {
	types    map[string]bool
	byDotted map[string]string
	packages map[string]bool
}

// NewUniverse indexes type IDs (nested types joined by '$') with their packages.
func NewUniverse(types map[string]string) *Universe {
	u := &Universe{
		types:    make(map[string]bool, len(types)),
		byDotted: make(map[string]string, len(types)),
		packages: make(map[string]bool),
	}
	for id, pkg := range types {
		u.types[id] = true
		u.byDotted[strings.ReplaceAll(id, "$", ".")] = id
		u.packages[pkg] = true
	}
	return u
}

// Lookup accepts a type ID or its dotted form ("a.Outer.Inner") and returns the type ID.
func (u *Universe) Lookup(name string) (string, bool) {
	if u.types[name] {
		return name, true
	}
	id, ok := u.byDotted[name]
	return id, ok
}

// HasPackage reports whether any analysed type lives in pkg.
func (u *Universe) HasPackage(pkg string) bool {
	return u.packages[pkg]
}

func splitFirst(name string) (string, string) {
	if i := strings.Index(name, "."); i >= 0 {
		return name[:i], name[i+1:]
	}
	return name, ""
}

func join(prefix, rest string) string {
	if rest == "" {
		return prefix
	}
	return prefix + "." + rest
}

// NestedResolver finds member types of the enclosing type and of its outer types.
type NestedResolver struct{}

func (NestedResolver) Name() string { return "nested" }

func (NestedResolver) Resolve(u *Universe, req Request) (string, bool) {
	first, rest := splitFirst(req.Name)
	for cur := req.Enclosing; cur != ""; {
		if id, ok := u.Lookup(join(strings.ReplaceAll(cur, "$", ".")+"."+first, rest)); ok {
			return id, true
		}
		i := strings.LastIndex(cur, "$")
		if i < 0 {
			break
		}
		cur = cur[:i]
	}
	return "", false
}

// QualifiedResolver accepts names that are already fully qualified.
type QualifiedResolver struct{}

func (QualifiedResolver) Name() string { return "qualified" }

func (QualifiedResolver) Resolve(u *Universe, req Request) (string, bool) {
	if !strings.Contains(req.Name, ".") {
		return "", false
	}
	if id, ok := u.Lookup(req.Name); ok {
		return id, true
	}
	// a lower-case first segment is a package, not an outer type
	first, _ := splitFirst(req.Name)
	if first != "" && strings.ToLower(first[:1]) == first[:1] {
		return req.Name, true
	}
	return "", false
}

// ImportResolver uses single-type imports.
type ImportResolver struct{}

func (ImportResolver) Name() string { return "imports" }

func (ImportResolver) Resolve(u *Universe, req Request) (string, bool) {
	first, rest := splitFirst(req.Name)
	for _, imp := range req.File.Imports {
		if imp.Static || imp.Wildcard {
			continue
		}
		if imp.Path != first && !strings.HasSuffix(imp.Path, "."+first) {
			continue
		}
		full := join(imp.Path, rest)
		if id, ok := u.Lookup(full); ok {
			return id, true
		}
		return full, true
	}
	return "", false
}

// PackageResolver finds types declared in the same package.
type PackageResolver struct{}

func (PackageResolver) Name() string { return "package" }

func (PackageResolver) Resolve(u *Universe, req Request) (string, bool) {
	return u.Lookup(join(req.File.Package, req.Name))
}

// JavaLangResolver knows the implicitly imported java.lang types.
type JavaLangResolver struct{}

func (JavaLangResolver) Name() string { return "java.lang" }

func (JavaLangResolver) Resolve(u *Universe, req Request) (string, bool) {
	first, _ := splitFirst(req.Name)
	if javaLang[first] {
		return "java.lang." + req.Name, true
	}
	return "", false
}

// WildcardResolver finds analysed types through on-demand imports.
type WildcardResolver struct{}

func (WildcardResolver) Name() string { return "wildcard" }

func (WildcardResolver) Resolve(u *Universe, req Request) (string, bool) {
	for _, imp := range req.File.Imports {
		if imp.Static || !imp.Wildcard {
			continue
		}
		if id, ok := u.Lookup(imp.Path + "." + req.Name); ok {
			return id, true
		}
	}
	return "", false
}

// FallbackResolver always answers: the first on-demand import that is not an analysed
// package, otherwise the current package.
type FallbackResolver struct{}

func (FallbackResolver) Name() string { return "fallback" }

func (FallbackResolver) Resolve(u *Universe, req Request) (string, bool) {
	for _, imp := range req.File.Imports {
		if imp.Static || !imp.Wildcard || u.HasPackage(imp.Path) {
			continue
		}
		return imp.Path + "." + req.Name, true
	}
	return join(req.File.Package, req.Name), true
}

var javaLang = map[string]bool{
	"Object": true, "String": true, "Integer": true, "Long": true, "Short": true, "Byte": true,
	"Character": true, "Boolean": true, "Double": true, "Float": true, "Number": true, "Void": true,
	"Math": true, "StrictMath": true, "System": true, "Runtime": true, "Process": true,
	"Thread": true, "ThreadLocal": true, "Runnable": true, "Iterable": true, "Comparable": true,
	"CharSequence": true, "StringBuilder": true, "StringBuffer": true, "Class": true,
	"Enum": true, "Record": true, "Cloneable": true, "AutoCloseable": true,
	"Throwable": true, "Exception": true, "RuntimeException": true, "Error": true,
	"IllegalArgumentException": true, "IllegalStateException": true, "NullPointerException": true,
	"UnsupportedOperationException": true, "IndexOutOfBoundsException": true,
	"ArithmeticException": true, "ClassCastException": true, "InterruptedException": true,
	"CloneNotSupportedException": true, "NumberFormatException": true, "SecurityException": true,
	"AssertionError": true, "OutOfMemoryError": true, "StackOverflowError": true,
	"Override": true, "Deprecated": true, "SuppressWarnings": true, "FunctionalInterface": true,
	"SafeVarargs": true,
}
