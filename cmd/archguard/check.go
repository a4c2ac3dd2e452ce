package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"archguard/internal/analysis"
	"archguard/internal/engine"
	archerrors "archguard/internal/errors"
	"archguard/internal/git"
	"archguard/internal/graph"
	"archguard/internal/index"
	"archguard/internal/report"
	"archguard/internal/ruleset"
	"archguard/internal/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	formatText    = "text"
	formatJSON    = "json"
	formatMermaid = "mermaid"
)

func (a *app) checkCmd() *cobra.Command {
	var (
		graphPath string
		format    string
		since     string
		out       string
		only      []string
		hops      int
	)
	cmd := &cobra.Command{
		Use:   "check [path]",
		Short: "Evaluate the rule set against a project graph",
		Long: "Evaluate the rule set against the graph given by --graph, the database given by --db, " +
			"or, when neither exists, a fresh import of path.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case formatText, formatJSON, formatMermaid:
			default:
				return archerrors.Configf("unknown format %q (want text, json or mermaid)", format)
			}
			root := a.cfg.Project.Root
			if len(args) > 0 {
				root = args[0]
			}

			reg, err := a.registry(only)
			if err != nil {
				return err
			}
			g, err := a.loadGraph(cmd, graphPath, root)
			if err != nil {
				return err
			}

			res, err := engine.Evaluate(cmd.Context(), g, reg, engine.Options{
				Workers: intFlag(cmd, "workers", a.cfg.Rules.Workers),
				Timeout: durationFlag(cmd, "timeout", a.cfg.Rules.Timeout),
				Logger:  a.logger,
			})
			if err != nil {
				return err
			}

			violations := res.Violations
			var scope map[string]bool
			if since != "" {
				changes, err := git.GetChangedFiles(cmd.Context(), root, since)
				if err != nil {
					return archerrors.Wrap(archerrors.ConfigurationError, "changed files since "+since, err)
				}
				scope = analysis.Scope(g, changes, hops)
				violations = report.FilterByScope(violations, scope)
				a.logger.Info("Scoped to changes",
					zap.String("since", since),
					zap.Int("files", len(changes)),
					zap.Int("symbols", len(scope)),
					zap.Int("violations", len(violations)))
			}

			rep := report.NewReport(res, violations)
			rep.Scope = scopeList(scope)
			if err := a.render(cmd, format, res, rep); err != nil {
				return err
			}
			if out != "" {
				if err := rep.Save(out); err != nil {
					return archerrors.Wrap(archerrors.StorageError, "write report", err)
				}
			}

			if len(violations) > 0 || res.Incomplete {
				return errViolations
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&graphPath, "graph", "g", "", "Read the graph from a JSON snapshot instead of the database")
	flags.StringVarP(&format, "format", "f", formatText, "Output format: text, json or mermaid")
	flags.StringVar(&since, "since", "", "Only report violations touching code changed since this git ref")
	flags.IntVar(&hops, "since-hops", 1, "How many dependency hops around changed code count as changed")
	flags.StringVarP(&out, "out", "o", "", "Also write the JSON report to this file")
	flags.StringSliceVar(&only, "rule", nil, "Evaluate only these rule IDs (repeatable)")
	flags.Duration("timeout", 0, "Evaluation deadline (default from config)")
	flags.IntP("workers", "w", 0, "Parallel rule workers (default from config)")
	return cmd
}

func (a *app) registry(only []string) (*engine.Registry, error) {
	rs, err := ruleset.Load(a.cfg.Rules.File)
	if err != nil {
		return nil, err
	}
	reg, err := engine.NewRegistry(rs...)
	if err != nil {
		return nil, err
	}
	if len(only) > 0 {
		return reg.Filter(only)
	}
	return reg, nil
}

// loadGraph prefers an explicit snapshot, then the database, then a fresh import.
func (a *app) loadGraph(cmd *cobra.Command, graphPath, root string) (*graph.Graph, error) {
	if graphPath != "" {
		return index.LoadJSON(graphPath)
	}

	if _, err := os.Stat(a.cfg.Storage.DB); err == nil {
		return loadStored(cmd.Context(), a.cfg.Storage.DB)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, archerrors.Wrap(archerrors.StorageError, "stat "+a.cfg.Storage.DB, err)
	}

	a.logger.Info("No stored graph, importing project", zap.String("root", root))
	res, err := a.buildGraph(cmd.Context(), root, a.cfg.Project.Exclude, a.cfg.Rules.Workers)
	if err != nil {
		return nil, err
	}
	return res.Graph, nil
}

func loadStored(ctx context.Context, path string) (*graph.Graph, error) {
	store, err := storage.NewSQLiteStore(path)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.LoadGraph(ctx)
}

func (a *app) render(cmd *cobra.Command, format string, res *engine.Result, rep *report.Report) error {
	w := cmd.OutOrStdout()
	switch format {
	case formatJSON:
		return rep.Write(w)
	case formatMermaid:
		_, err := fmt.Fprint(w, report.Mermaid(rep.Violations))
		return err
	default:
		if err := report.WriteText(w, rep.Violations); err != nil {
			return err
		}
		_, err := fmt.Fprintln(cmd.ErrOrStderr(), report.Summary(res))
		return err
	}
}

func scopeList(scope map[string]bool) []string {
	if scope == nil {
		return nil
	}
	out := make([]string, 0, len(scope))
	for id := range scope {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
