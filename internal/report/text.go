// Package report renders evaluation results for humans and for CI harnesses.
package report

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"archguard/internal/engine"
	"archguard/internal/rules"
)

// WriteText renders one "<rule id>: <message>" line per violation, in the given order.
func WriteText(w io.Writer, vs []rules.Violation) error {
	bw := bufio.NewWriter(w)
	for _, v := range vs {
		if _, err := bw.WriteString(v.String() + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Text returns the WriteText rendering as a string.
func Text(vs []rules.Violation) string {
	var sb strings.Builder
	for _, v := range vs {
		sb.WriteString(v.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Summary is a short human-readable footer for a run.
func Summary(res *engine.Result) string {
	var failed, errored []string
	for _, r := range res.Rules {
		switch r.Status {
		case engine.StatusFailed:
			failed = append(failed, fmt.Sprintf("%s (%d)", r.ID, r.Violations))
		case engine.StatusError:
			errored = append(errored, r.ID)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d rules, %d violations", len(res.Rules), len(res.Violations))
	if len(failed) > 0 {
		fmt.Fprintf(&sb, "; failed: %s", strings.Join(failed, ", "))
	}
	if len(errored) > 0 {
		fmt.Fprintf(&sb, "; errors: %s", strings.Join(errored, ", "))
	}
	if res.Incomplete {
		skipped := append([]string(nil), res.Skipped...)
		sort.Strings(skipped)
		fmt.Fprintf(&sb, "; INCOMPLETE, skipped: %s", strings.Join(skipped, ", "))
	}
	return sb.String()
}
