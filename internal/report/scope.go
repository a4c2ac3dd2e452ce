package report

import "archguard/internal/rules"

// FilterByScope keeps violations whose subject or related symbol is in scope.
// Rule-level error records are always kept. A nil scope keeps everything.
func FilterByScope(vs []rules.Violation, scope map[string]bool) []rules.Violation {
	if scope == nil {
		return vs
	}
	out := make([]rules.Violation, 0, len(vs))
	for _, v := range vs {
		if v.Error || scope[v.Subject] || (v.Related != "" && scope[v.Related]) {
			out = append(out, v)
		}
	}
	return out
}
