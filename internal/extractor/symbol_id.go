package extractor

import (
	"regexp"
	"strings"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// TypeID builds the ID of a type: the package-qualified name with nested types joined by '$'.
func TypeID(pkg string, names ...string) string {
	nested := strings.Join(names, "$")
	if pkg == "" {
		return nested
	}
	return pkg + "." + nested
}

// NestedTypeID appends a nested type name to its enclosing type ID.
func NestedTypeID(outer, name string) string {
	return outer + "$" + name
}

// MemberID builds the ID of a method or constructor from its owner and raw parameter types.
func MemberID(owner, name string, paramTypes []string) string {
	erased := make([]string, len(paramTypes))
	for i, t := range paramTypes {
		erased[i] = EraseType(t)
	}
	return owner + "#" + name + "(" + strings.Join(erased, ",") + ")"
}

// FieldID builds the ID of a field.
func FieldID(owner, name string) string {
	return owner + "#" + name
}

// EraseType drops generic arguments and annotations from a type as written
// ("Map<String, List<X>>" -> "Map", "String..." -> "String[]").
func EraseType(t string) string {
	t = canonicalize(t)
	for strings.HasPrefix(t, "@") {
		i := strings.Index(t, " ")
		if i < 0 {
			return ""
		}
		t = t[i+1:]
	}
	var sb strings.Builder
	depth := 0
	for _, r := range t {
		switch {
		case r == '<':
			depth++
		case r == '>':
			depth--
		case depth == 0 && r != ' ':
			sb.WriteRune(r)
		}
	}
	out := sb.String()
	if strings.HasSuffix(out, "...") {
		out = strings.TrimSuffix(out, "...") + "[]"
	}
	return out
}

// ElementType strips array dimensions from an erased type.
func ElementType(t string) string {
	for strings.HasSuffix(t, "[]") {
		t = strings.TrimSuffix(t, "[]")
	}
	return t
}

func canonicalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return whitespaceRe.ReplaceAllString(s, " ")
}
