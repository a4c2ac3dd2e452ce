// Package engine evaluates a registry of rules against an immutable symbol graph.
package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	archerrors "archguard/internal/errors"
	"archguard/internal/graph"
	"archguard/internal/predicate"
	"archguard/internal/rules"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// Options tune a run. Zero values mean NumCPU workers, no timeout and a no-op logger.
type Options struct {
	Workers int
	Timeout time.Duration
	Logger  *zap.Logger
}

// RuleResult summarises one rule of a run.
type RuleResult struct {
	ID          string        `json:"id"`
	Description string        `json:"description,omitempty"`
	Status      Status        `json:"status"`
	Violations  int           `json:"violations"`
	Duration    time.Duration `json:"duration_ns"`
	Error       string        `json:"error,omitempty"`
}

// Result is the outcome of one evaluation run.
type Result struct {
	RunID      string            `json:"run_id"`
	StartedAt  time.Time         `json:"started_at"`
	Duration   time.Duration     `json:"duration_ns"`
	Violations []rules.Violation `json:"violations"`
	Rules      []RuleResult      `json:"rules"`
	// Incomplete is set when the deadline stopped rules from being launched.
	Incomplete bool     `json:"incomplete"`
	Skipped    []string `json:"skipped,omitempty"`
}

// Success reports whether the run found no violations at all.
func (r *Result) Success() bool {
	return len(r.Violations) == 0
}

// Errors returns the rule-level error records.
func (r *Result) Errors() []rules.Violation {
	var out []rules.Violation
	for _, v := range r.Violations {
		if v.Error {
			out = append(out, v)
		}
	}
	return out
}

type outcome struct {
	ran        bool
	violations []rules.Violation
	err        error
	duration   time.Duration
}

// Evaluate runs every registered rule against g on a bounded worker pool.
// Violations are merged in registry order regardless of scheduling. A failing or panicking rule
// becomes one error violation. Once ctx is done no further rules are started and the result is
// marked incomplete.
func Evaluate(ctx context.Context, g *graph.Graph, reg *Registry, opts Options) (*Result, error) {
	if g == nil {
		return nil, archerrors.New(archerrors.ConfigurationError, "no graph to evaluate")
	}
	if reg == nil {
		return nil, archerrors.New(archerrors.ConfigurationError, "no rule registry")
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("engine")

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	res := &Result{RunID: uuid.NewString(), StartedAt: time.Now()}
	rs := reg.Rules()
	outcomes := make([]outcome, len(rs))
	cache := predicate.NewCache(g)

	log.Debug("Starting evaluation",
		zap.String("run_id", res.RunID),
		zap.Int("rules", len(rs)),
		zap.Int("workers", workers),
		zap.Int("symbols", g.Len()))

	var eg errgroup.Group
	eg.SetLimit(workers)
	for i := range rs {
		if ctx.Err() != nil {
			break
		}
		i := i
		eg.Go(func() error {
			// Go may block on the limit until after the deadline passed.
			if ctx.Err() != nil {
				return nil
			}
			outcomes[i] = runRule(log, g, cache, rs[i])
			return nil
		})
	}
	_ = eg.Wait()

	for i, rule := range rs {
		o := outcomes[i]
		rr := RuleResult{ID: rule.ID, Description: rule.Description, Duration: o.duration}
		switch {
		case !o.ran:
			rr.Status = StatusSkipped
			res.Incomplete = true
			res.Skipped = append(res.Skipped, rule.ID)
		case o.err != nil:
			rr.Status = StatusError
			rr.Error = o.err.Error()
			rr.Violations = 1
			res.Violations = append(res.Violations, errorViolation(rule.ID, o.err))
		default:
			rr.Violations = len(o.violations)
			rr.Status = StatusPassed
			if rr.Violations > 0 {
				rr.Status = StatusFailed
			}
			res.Violations = append(res.Violations, o.violations...)
		}
		res.Rules = append(res.Rules, rr)
	}
	res.Duration = time.Since(res.StartedAt)

	if res.Incomplete {
		log.Warn("Evaluation incomplete, deadline reached",
			zap.String("run_id", res.RunID),
			zap.Strings("skipped", res.Skipped))
	}
	hits, misses := cache.Stats()
	log.Debug("Evaluation finished",
		zap.String("run_id", res.RunID),
		zap.Int("violations", len(res.Violations)),
		zap.Int("selector_cache_hits", hits),
		zap.Int("selector_cache_misses", misses),
		zap.Duration("duration", res.Duration))

	return res, nil
}

func runRule(log *zap.Logger, g *graph.Graph, cache *predicate.Cache, rule rules.Rule) (o outcome) {
	start := time.Now()
	o.ran = true
	defer func() {
		if r := recover(); r != nil {
			o.violations = nil
			o.err = archerrors.Newf(archerrors.RuleEvaluationError, "panic: %v", r).WithSubject(rule.ID)
		}
		o.duration = time.Since(start)
		if o.err != nil {
			log.Warn("Rule failed", zap.String("rule", rule.ID), zap.Error(o.err))
		} else {
			log.Debug("Rule finished",
				zap.String("rule", rule.ID),
				zap.Int("violations", len(o.violations)),
				zap.Duration("duration", o.duration))
		}
	}()

	log.Debug("Rule started", zap.String("rule", rule.ID))
	o.violations, o.err = rule.Evaluate(g, cache)
	if o.err != nil && archerrors.CodeOf(o.err) == "" {
		o.err = archerrors.Wrap(archerrors.RuleEvaluationError, "rule "+rule.ID, o.err)
	}
	return o
}

func errorViolation(ruleID string, err error) rules.Violation {
	subject := ruleID
	var ae *archerrors.ArchError
	if errors.As(err, &ae) && ae.Subject != "" {
		subject = ae.Subject
	}
	return rules.Violation{
		RuleID:  ruleID,
		Message: fmt.Sprintf("rule evaluation failed: %v", err),
		Subject: subject,
		Error:   true,
		Code:    string(archerrors.CodeOf(err)),
	}
}

// Run evaluates rs with default options and reports the violations and whether the run was clean.
func Run(g *graph.Graph, rs []rules.Rule) ([]rules.Violation, bool, error) {
	reg, err := NewRegistry(rs...)
	if err != nil {
		return nil, false, err
	}
	res, err := Evaluate(context.Background(), g, reg, Options{})
	if err != nil {
		return nil, false, err
	}
	return res.Violations, res.Success(), nil
}
