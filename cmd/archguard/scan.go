package main

import (
	"context"
	"fmt"
	"time"

	"archguard/internal/crawler"
	"archguard/internal/extractor"
	"archguard/internal/index"
	"archguard/internal/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) scanCmd() *cobra.Command {
	var (
		out     string
		exclude []string
	)
	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Import a Java project and store its symbol graph",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := a.cfg.Project.Root
			if len(args) > 0 {
				root = args[0]
			}
			workers := intFlag(cmd, "workers", a.cfg.Rules.Workers)

			res, err := a.buildGraph(cmd.Context(), root, append(a.cfg.Project.Exclude, exclude...), workers)
			if err != nil {
				return err
			}

			store, err := storage.NewSQLiteStore(a.cfg.Storage.DB)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.SaveGraph(cmd.Context(), res.Graph); err != nil {
				return err
			}
			if out != "" {
				if err := index.SaveJSON(res.Graph, out); err != nil {
					return err
				}
			}

			st := res.Graph.Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d files: %d symbols (%d external), %d edges -> %s\n",
				res.Files, st.Symbols, st.External, st.Edges, a.cfg.Storage.DB)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Also write the graph as a JSON snapshot")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Skip files whose path contains this token (repeatable)")
	cmd.Flags().IntP("workers", "w", 0, "Parallel extraction workers (default from config)")
	return cmd
}

// buildGraph runs the full import pipeline over root.
func (a *app) buildGraph(ctx context.Context, root string, exclude []string, workers int) (*index.Result, error) {
	ext, err := extractor.NewExtractor("java")
	if err != nil {
		return nil, err
	}
	ix := index.NewIndexer(crawler.NewCrawler(ext, exclude...), ext, workers, a.logger)

	start := time.Now()
	res, err := ix.BuildGraph(ctx, root)
	if err != nil {
		return nil, err
	}
	for _, st := range res.Stages {
		a.logger.Debug("Resolver stage",
			zap.String("stage", st.Resolver),
			zap.Int("attempted", st.Stats.Attempted),
			zap.Int("resolved", st.Stats.Resolved))
	}
	a.logger.Info("Graph built",
		zap.String("root", root),
		zap.Int("files", res.Files),
		zap.Int("symbols", res.Graph.Len()),
		zap.Duration("duration", time.Since(start)))
	return res, nil
}
