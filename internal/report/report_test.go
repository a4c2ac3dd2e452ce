package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"archguard/internal/engine"
	"archguard/internal/rules"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *engine.Result {
	return &engine.Result{
		RunID: "run-1",
		Violations: []rules.Violation{
			{RuleID: "layered_architecture", Message: "Repository accessed by disallowed layer Inbound: a.controller.C -> a.repository.R (type-reference)",
				Subject: "a.controller.C", Related: "a.repository.R"},
			{RuleID: "no_cycles", Message: "Cycle detected: x -> y -> x (dependencies: a.x.X -> a.y.Y; a.y.Y -> a.x.X)",
				Subject: "a.x.X", Related: "a.y.Y", Path: []string{"x", "y", "x"}},
			{RuleID: "broken", Message: "rule evaluation failed: boom", Subject: "broken", Error: true, Code: "RULE_EVALUATION_ERROR"},
		},
		Rules: []engine.RuleResult{
			{ID: "layered_architecture", Status: engine.StatusFailed, Violations: 1},
			{ID: "no_cycles", Status: engine.StatusFailed, Violations: 1},
			{ID: "broken", Status: engine.StatusError, Violations: 1},
			{ID: "late", Status: engine.StatusSkipped},
		},
		Incomplete: true,
		Skipped:    []string{"late"},
	}
}

func TestWriteText(t *testing.T) {
	res := sampleResult()
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, res.Violations))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "layered_architecture: Repository accessed by disallowed layer Inbound"))
	assert.Equal(t, buf.String(), Text(res.Violations))
}

func TestSummary(t *testing.T) {
	s := Summary(sampleResult())
	assert.Equal(t, "4 rules, 3 violations; failed: layered_architecture (1), no_cycles (1); errors: broken; INCOMPLETE, skipped: late", s)
}

func TestReport_JSON(t *testing.T) {
	r := NewReport(sampleResult(), nil)
	assert.False(t, r.Success)
	assert.Equal(t, 1, r.Summary.SkippedRules)
	assert.Equal(t, 1, r.Summary.ErroredRules)
	assert.Equal(t, 2, r.Summary.FailedRules)

	var buf bytes.Buffer
	require.NoError(t, r.Write(&buf))
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
	assert.Equal(t, true, decoded["incomplete"])

	path := filepath.Join(t.TempDir(), "out", "report.json")
	require.NoError(t, r.Save(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"violation_count": 3`)

	empty := NewReport(&engine.Result{}, []rules.Violation{})
	assert.True(t, empty.Success)
}

func TestMermaid(t *testing.T) {
	out := Mermaid(sampleResult().Violations)
	assert.True(t, strings.HasPrefix(out, "```mermaid\ngraph LR\n"))
	assert.Contains(t, out, `x -->|cycle| y`)
	assert.Contains(t, out, `y -->|cycle| x`)
	assert.Contains(t, out, `a_controller -.->|1| a_repository`)
	assert.NotContains(t, out, "broken")
}

func TestPackageOf(t *testing.T) {
	assert.Equal(t, "org.example.service", PackageOf("org.example.service.OrderService"))
	assert.Equal(t, "org.example.service", PackageOf("org.example.service.OrderService.place(java.util.Map)"))
	assert.Equal(t, "org.example", PackageOf("org.example.Outer$Inner"))
	assert.Equal(t, "", PackageOf("Unqualified"))
}

func TestFilterByScope(t *testing.T) {
	vs := sampleResult().Violations
	assert.Equal(t, vs, FilterByScope(vs, nil))

	kept := FilterByScope(vs, map[string]bool{"a.repository.R": true})
	require.Len(t, kept, 2)
	assert.Equal(t, "layered_architecture", kept[0].RuleID)
	assert.True(t, kept[1].Error)
}
