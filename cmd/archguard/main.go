package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"archguard/internal/config"
	archerrors "archguard/internal/errors"
	"archguard/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	exitOK         = 0
	exitViolations = 1
	exitConfig     = 2
)

// errViolations signals a completed check that found violations or could not finish.
var errViolations = errors.New("architecture check failed")

// app holds what the subcommands share after flags are parsed.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	dbPath    string
	rulesPath string

	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	code := exitCode(err)
	if err != nil && !errors.Is(err, errViolations) {
		fmt.Fprintln(stderr, "Error:", err)
	}
	return code
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errViolations):
		return exitViolations
	case archerrors.IsCode(err, archerrors.ConfigurationError):
		return exitConfig
	default:
		return exitViolations
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "archguard",
		Short:         "Architecture rule checks for Java projects",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Path to archguard config (YAML)")
	flags.StringVarP(&a.dbPath, "db", "d", "", "Path to the SQLite graph database")
	flags.StringVarP(&a.rulesPath, "rules", "r", "", "Path to the rule set (YAML)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format: console or json")

	root.AddCommand(a.scanCmd())
	root.AddCommand(a.checkCmd())
	root.AddCommand(a.rulesCmd())
	return root
}

// setup loads configuration and lets explicit flags win over it.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return archerrors.Wrap(archerrors.ConfigurationError, "load config", err)
	}
	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Storage.DB = a.dbPath
	}
	if flags.Changed("rules") {
		cfg.Rules.File = a.rulesPath
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = a.logFormat
	}
	a.cfg = cfg
	a.logger = logging.New(cfg.Log.Level, logging.Format(cfg.Log.Format))
	return nil
}

func durationFlag(cmd *cobra.Command, name string, current time.Duration) time.Duration {
	if !cmd.Flags().Changed(name) {
		return current
	}
	d, _ := cmd.Flags().GetDuration(name)
	return d
}

func intFlag(cmd *cobra.Command, name string, current int) int {
	if !cmd.Flags().Changed(name) {
		return current
	}
	n, _ := cmd.Flags().GetInt(name)
	return n
}
