package report

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"archguard/internal/engine"
	"archguard/internal/rules"
)

type RunSummary struct {
	RuleCount        int            `json:"rule_count"`
	FailedRules      int            `json:"failed_rules"`
	ErroredRules     int            `json:"errored_rules"`
	SkippedRules     int            `json:"skipped_rules"`
	ViolationCount   int            `json:"violation_count"`
	ViolationsByRule map[string]int `json:"violations_by_rule"`
}

// Report is the machine-readable form of a run.
type Report struct {
	Version     string              `json:"version"`
	RunID       string              `json:"run_id"`
	GeneratedAt string              `json:"generated_at"`
	DurationMS  int64               `json:"duration_ms"`
	Success     bool                `json:"success"`
	Incomplete  bool                `json:"incomplete"`
	Skipped     []string            `json:"skipped,omitempty"`
	Scope       []string            `json:"scope,omitempty"`
	Rules       []engine.RuleResult `json:"rules"`
	Violations  []rules.Violation   `json:"violations"`
	Summary     RunSummary          `json:"summary"`
}

// NewReport captures res; vs overrides the violation list (e.g. after scope filtering) when non-nil.
func NewReport(res *engine.Result, vs []rules.Violation) *Report {
	if vs == nil {
		vs = res.Violations
	}
	r := &Report{
		Version:    "v1",
		RunID:      res.RunID,
		DurationMS: res.Duration.Milliseconds(),
		Incomplete: res.Incomplete,
		Skipped:    res.Skipped,
		Rules:      res.Rules,
		Violations: append([]rules.Violation{}, vs...),
	}
	r.Finalize()
	return r
}

func (r *Report) Finalize() {
	if r == nil {
		return
	}
	r.GeneratedAt = time.Now().UTC().Format(time.RFC3339)

	byRule := make(map[string]int)
	for _, v := range r.Violations {
		byRule[v.RuleID]++
	}
	s := RunSummary{
		RuleCount:        len(r.Rules),
		ViolationCount:   len(r.Violations),
		ViolationsByRule: byRule,
	}
	for _, rr := range r.Rules {
		switch rr.Status {
		case engine.StatusFailed:
			s.FailedRules++
		case engine.StatusError:
			s.ErroredRules++
		case engine.StatusSkipped:
			s.SkippedRules++
		}
	}
	r.Summary = s
	r.Success = s.ViolationCount == 0
}

func (r *Report) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func (r *Report) Save(path string) error {
	if r == nil {
		return nil
	}
	r.Finalize()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0644)
}
