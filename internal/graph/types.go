package graph

import "strings"

type SymbolKind string

const (
	KindClass       SymbolKind = "class"
	KindInterface   SymbolKind = "interface"
	KindEnum        SymbolKind = "enum"
	KindAnnotation  SymbolKind = "annotation"
	KindRecord      SymbolKind = "record"
	KindMethod      SymbolKind = "method"
	KindConstructor SymbolKind = "constructor"
	KindField       SymbolKind = "field"
)

// IsType reports whether the kind denotes a type declaration rather than a member.
func (k SymbolKind) IsType() bool {
	switch k {
	case KindClass, KindInterface, KindEnum, KindAnnotation, KindRecord:
		return true
	}
	return false
}

// IsCodeUnit reports whether the kind has a body that can make calls.
func (k SymbolKind) IsCodeUnit() bool {
	return k == KindMethod || k == KindConstructor
}

type Modifier string

const (
	ModPublic    Modifier = "public"
	ModProtected Modifier = "protected"
	ModPrivate   Modifier = "private"
	ModStatic    Modifier = "static"
	ModAbstract  Modifier = "abstract"
	ModFinal     Modifier = "final"
)

type EdgeKind string

const (
	EdgeMethodCall      EdgeKind = "method-call"
	EdgeFieldAccess     EdgeKind = "field-access"
	EdgeTypeReference   EdgeKind = "type-reference"
	EdgeThrows          EdgeKind = "throws-declaration"
	EdgeConstructorCall EdgeKind = "constructor-call"
	EdgeParameterType   EdgeKind = "parameter-type"
)

// Annotation is a resolved annotation identifier with its literal parameters.
type Annotation struct {
	Name   string            `json:"name"`
	Params map[string]string `json:"params,omitempty"`
}

// SimpleName returns the last dotted segment of the annotation name.
func (a Annotation) SimpleName() string {
	return lastSegment(a.Name)
}

// Matches compares against a fully-qualified id, or only the simple name when id has no dot.
func (a Annotation) Matches(id string) bool {
	if strings.Contains(id, ".") {
		return a.Name == id
	}
	return a.SimpleName() == id
}

// Symbol is a class, interface, method, constructor or field.
type Symbol struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Package     string       `json:"package"`
	Kind        SymbolKind   `json:"kind"`
	Modifiers   []Modifier   `json:"modifiers,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
	Owner       string       `json:"owner,omitempty"`
	Supertypes  []string     `json:"supertypes,omitempty"`
	Signature   string       `json:"signature,omitempty"`
	External    bool         `json:"external,omitempty"`
	Filepath    string       `json:"filepath,omitempty"`
	StartLine   int          `json:"start_line,omitempty"`
	EndLine     int          `json:"end_line,omitempty"`
}

// Segments returns the package path as ordered segments.
func (s *Symbol) Segments() []string {
	if s.Package == "" {
		return nil
	}
	return strings.Split(s.Package, ".")
}

func (s *Symbol) HasModifier(m Modifier) bool {
	for _, mod := range s.Modifiers {
		if mod == m {
			return true
		}
	}
	return false
}

func (s *Symbol) AnnotatedWith(id string) bool {
	for _, a := range s.Annotations {
		if a.Matches(id) {
			return true
		}
	}
	return false
}

// FullName is the name used in reports: the ID for types and fields, the signature for code units.
func (s *Symbol) FullName() string {
	if s.Kind.IsCodeUnit() && s.Signature != "" {
		return s.Signature
	}
	return s.ID
}

// Edge is a directed dependency between two symbols.
type Edge struct {
	From     string   `json:"from"`
	To       string   `json:"to"`
	Kind     EdgeKind `json:"kind"`
	CallName string   `json:"call_name,omitempty"`
}

func lastSegment(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}
