package extractor

// Unit types emitted by the Java extractor. They match graph.SymbolKind values.
const (
	UnitClass       = "class"
	UnitInterface   = "interface"
	UnitEnum        = "enum"
	UnitAnnotation  = "annotation"
	UnitRecord      = "record"
	UnitMethod      = "method"
	UnitConstructor = "constructor"
	UnitField       = "field"
)

// Relation kinds. They match graph.EdgeKind values.
const (
	RelationMethodCall      = "method-call"
	RelationFieldAccess     = "field-access"
	RelationTypeReference   = "type-reference"
	RelationThrows          = "throws-declaration"
	RelationConstructorCall = "constructor-call"
	RelationParameterType   = "parameter-type"
)

// CodeUnit is one declaration extracted from a source file.
// Type names inside a unit are raw (as written); the resolver turns them into FQNs.
type CodeUnit struct {
	ID          string          `json:"id"`
	Filepath    string          `json:"filepath"`
	Package     string          `json:"package"`
	Language    string          `json:"language"`
	StartLine   int             `json:"start_line"`
	EndLine     int             `json:"end_line"`
	UnitType    string          `json:"unit_type"`
	Name        string          `json:"name"`
	Owner       string          `json:"owner,omitempty"`
	Description string          `json:"description,omitempty"`
	Modifiers   []string        `json:"modifiers,omitempty"`
	Annotations []AnnotationRef `json:"annotations,omitempty"`
	Supertypes  []string        `json:"supertypes,omitempty"`
	// TypeParams are the generic parameter names visible in a code unit; they never resolve to types.
	TypeParams []string `json:"type_params,omitempty"`

	Details   interface{} `json:"details,omitempty"`
	Relations []Relation  `json:"relations,omitempty"`
	// Calls lists call-site names made in the unit body, in source order.
	Calls []string `json:"calls,omitempty"`
}

// MethodDetails describes a method or constructor signature.
type MethodDetails struct {
	Parameters []Param  `json:"parameters"`
	Returns    string   `json:"returns,omitempty"`
	Throws     []string `json:"throws,omitempty"`
	Signature  string   `json:"signature"`
}

// FieldDetails describes a field declaration.
type FieldDetails struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

type Param struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// AnnotationRef is an annotation as written, with its literal arguments.
type AnnotationRef struct {
	Name   string            `json:"name"`
	Params map[string]string `json:"params,omitempty"`
}

// Relation is a raw dependency from a unit. Target is a type name as written;
// Member names the called method or accessed field on that type, when known.
type Relation struct {
	Target   string `json:"target"`
	Kind     string `json:"kind"`
	Member   string `json:"member,omitempty"`
	CallName string `json:"call_name,omitempty"`
	Args     int    `json:"args,omitempty"`
	Line     int    `json:"line"`
}

// Import is one import declaration of a file.
type Import struct {
	Path     string `json:"path"`
	Static   bool   `json:"static,omitempty"`
	Wildcard bool   `json:"wildcard,omitempty"`
}

// FileUnits is everything extracted from one source file.
type FileUnits struct {
	Path    string      `json:"path"`
	Package string      `json:"package"`
	Imports []Import    `json:"imports,omitempty"`
	Units   []*CodeUnit `json:"units"`
}

// Types returns the type declarations of the file, in source order.
func (f *FileUnits) Types() []*CodeUnit {
	var out []*CodeUnit
	for _, u := range f.Units {
		if IsTypeUnit(u.UnitType) {
			out = append(out, u)
		}
	}
	return out
}

// IsTypeUnit reports whether a unit type is a class-like declaration.
func IsTypeUnit(unitType string) bool {
	switch unitType {
	case UnitClass, UnitInterface, UnitEnum, UnitAnnotation, UnitRecord:
		return true
	}
	return false
}
