package predicate

import (
	"fmt"
	"regexp"
	"strings"
)

// PackagePattern matches dotted package names.
//
// Syntax:
//
//	a.b        exactly package a.b
//	a.b..      a.b and every sub-package
//	..b..      any package containing the segment b
//	a.*.c      * matches exactly one segment
//	(a.b).(*)  parentheses capture, used to name slices
type PackagePattern struct {
	raw string
	re  *regexp.Regexp
}

// CompilePackagePattern parses an ArchUnit-style package pattern.
func CompilePackagePattern(pattern string) (*PackagePattern, error) {
	p := strings.TrimSpace(pattern)
	if p == "" {
		return nil, fmt.Errorf("empty package pattern")
	}
	if strings.Contains(p, "...") {
		return nil, fmt.Errorf("package pattern %q: more than two consecutive dots", pattern)
	}

	if p == ".." {
		return &PackagePattern{raw: p, re: regexp.MustCompile(`^.*$`)}, nil
	}

	parts := strings.Split(p, "..")
	var sb strings.Builder
	sb.WriteString("^")
	for i, part := range parts {
		last := i == len(parts)-1
		switch {
		case i == 0 && part == "" && !last:
			sb.WriteString(`(?:.*\.)?`)
		case last && part == "" && i > 0:
			sb.WriteString(`(?:\..*)?`)
		default:
			if i > 0 && parts[i-1] != "" {
				sb.WriteString(`(?:\.[^.]+)*\.`)
			}
			segs, err := translateSegments(part)
			if err != nil {
				return nil, fmt.Errorf("package pattern %q: %w", pattern, err)
			}
			sb.WriteString(segs)
		}
	}
	sb.WriteString("$")

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, fmt.Errorf("package pattern %q: %w", pattern, err)
	}
	return &PackagePattern{raw: p, re: re}, nil
}

// MustCompilePackagePattern is CompilePackagePattern that panics on error.
func MustCompilePackagePattern(pattern string) *PackagePattern {
	pp, err := CompilePackagePattern(pattern)
	if err != nil {
		panic(err)
	}
	return pp
}

func translateSegments(part string) (string, error) {
	var sb strings.Builder
	depth := 0
	for _, r := range part {
		switch r {
		case '.':
			sb.WriteString(`\.`)
		case '*':
			sb.WriteString(`[^.]+`)
		case '(':
			depth++
			sb.WriteRune(r)
		case ')':
			depth--
			if depth < 0 {
				return "", fmt.Errorf("unbalanced parenthesis")
			}
			sb.WriteRune(r)
		default:
			if !isIdentRune(r) {
				return "", fmt.Errorf("invalid character %q", r)
			}
			sb.WriteRune(r)
		}
	}
	if depth != 0 {
		return "", fmt.Errorf("unbalanced parenthesis")
	}
	return sb.String(), nil
}

func isIdentRune(r rune) bool {
	return r == '_' || r == '$' || r == '-' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func (p *PackagePattern) String() string { return p.raw }

// Matches reports whether pkg is covered by the pattern.
func (p *PackagePattern) Matches(pkg string) bool {
	return p.re.MatchString(pkg)
}

// Captures returns the capture groups of a match, or nil when pkg does not match.
func (p *PackagePattern) Captures(pkg string) []string {
	m := p.re.FindStringSubmatch(pkg)
	if m == nil {
		return nil
	}
	return m[1:]
}

// Groups returns the number of capture groups.
func (p *PackagePattern) Groups() int {
	return p.re.NumSubexp()
}

// LiteralPrefix returns the leading fixed segments of the pattern and whether
// the pattern also covers sub-packages of that prefix.
func (p *PackagePattern) LiteralPrefix() (prefix string, open bool) {
	raw := strings.NewReplacer("(", "", ")", "").Replace(p.raw)
	if strings.HasPrefix(raw, "..") {
		return "", true
	}
	var segs []string
	rest := raw
	for rest != "" {
		if strings.HasPrefix(rest, "..") {
			return strings.Join(segs, "."), true
		}
		rest = strings.TrimPrefix(rest, ".")
		seg := rest
		if i := strings.Index(rest, "."); i >= 0 {
			seg = rest[:i]
		}
		if strings.Contains(seg, "*") {
			return strings.Join(segs, "."), true
		}
		segs = append(segs, seg)
		rest = rest[len(seg):]
	}
	return strings.Join(segs, "."), false
}

// Overlaps conservatively reports whether two patterns can match a common package.
func (p *PackagePattern) Overlaps(other *PackagePattern) bool {
	a, aOpen := p.LiteralPrefix()
	b, bOpen := other.LiteralPrefix()
	switch {
	case a == b:
		return true
	case aOpen && covers(a, b):
		return true
	case bOpen && covers(b, a):
		return true
	}
	return false
}

func covers(prefix, pkg string) bool {
	return prefix == "" || pkg == prefix || strings.HasPrefix(pkg, prefix+".")
}
