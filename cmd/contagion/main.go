// Package main implements the contagion binary.
// It runs the contagion analysis, the permutation experiment, or extracts a
// toy sample of the kill log, depending on the subcommand.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/arkilian/contagion/internal/analysis"
	"github.com/arkilian/contagion/internal/config"
	"github.com/arkilian/contagion/internal/ingest"
	"github.com/arkilian/contagion/internal/logging"
	"github.com/arkilian/contagion/internal/report"
	"github.com/arkilian/contagion/internal/simulation"
)

var (
	version = "dev"
	commit  = "unknown"
)

// options holds the parsed command line.
type options struct {
	configFile  string
	envFile     string
	kills       string
	cheaters    string
	sqlite      string
	detail      bool
	trials      int
	seed        uint64
	concurrency int
	n           int
	out         string
	format      string
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "contagion: %v\n", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "Contagion - measures whether exposure to cheaters precedes players turning cheater\n\n")
	fmt.Fprintf(w, "Usage: contagion <command> [options]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	fmt.Fprintf(w, "  analyze    Count players who started cheating after observing cheating\n")
	fmt.Fprintf(w, "  simulate   Compare the observed count against permutation trials\n")
	fmt.Fprintf(w, "  sample     Write a toy sample of the kill log\n")
	fmt.Fprintf(w, "  version    Show version information\n")
	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  contagion analyze -kills kills.txt -cheaters cheaters.txt -detail\n")
	fmt.Fprintf(w, "  contagion simulate -sqlite matches.db -trials 1000 -concurrency 8\n")
	fmt.Fprintf(w, "  contagion sample -kills kills.txt.sz -cheaters cheaters.txt -n 500 -out toy.txt\n")
	fmt.Fprintf(w, "\nEnvironment Variables:\n")
	fmt.Fprintf(w, "  CONTAGION_KILLS_PATH      Kill log path\n")
	fmt.Fprintf(w, "  CONTAGION_CHEATERS_PATH   Cheater registry path\n")
	fmt.Fprintf(w, "  CONTAGION_STORAGE_TYPE    Storage type (local, s3)\n")
	fmt.Fprintf(w, "  CONTAGION_S3_BUCKET       Bucket holding the inputs\n")
	fmt.Fprintf(w, "  CONTAGION_LOG_LEVEL       Log level (debug, info, warn, error)\n")
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		usage(os.Stderr)
		return fmt.Errorf("missing command")
	}

	cmd := args[0]
	switch cmd {
	case "analyze", "simulate", "sample":
	case "version", "-version", "--version":
		fmt.Fprintf(stdout, "contagion version %s (commit: %s)\n", version, commit)
		return nil
	case "help", "-h", "-help", "--help":
		usage(stdout)
		return nil
	default:
		usage(os.Stderr)
		return fmt.Errorf("unknown command %q", cmd)
	}

	opts, set, err := parseFlags(cmd, args[1:])
	if err != nil {
		return err
	}

	cfg, err := loadConfig(opts, set)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	out := stdout
	if opts.out != "" {
		f, err := os.Create(opts.out)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	logger.Info("Starting contagion",
		zap.String("command", cmd),
		zap.String("version", version),
		zap.String("storage", cfg.Storage.Type),
	)

	switch cmd {
	case "analyze":
		return runAnalyze(ctx, cfg, logger, out, format, opts.detail)
	case "simulate":
		return runSimulate(ctx, cfg, logger, out, format)
	default:
		return runSample(ctx, cfg, logger, out)
	}
}

// parseFlags parses the subcommand flags and reports which were set
// explicitly.
func parseFlags(cmd string, args []string) (*options, map[string]bool, error) {
	opts := &options{}
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)

	fs.StringVar(&opts.configFile, "config", "", "Path to configuration file (YAML or JSON)")
	fs.StringVar(&opts.envFile, "env-file", ".env", "Path to a .env file with CONTAGION_* variables")
	fs.StringVar(&opts.kills, "kills", "", "Kill log path (tab-separated, optionally .sz)")
	fs.StringVar(&opts.cheaters, "cheaters", "", "Cheater registry path")
	fs.StringVar(&opts.sqlite, "sqlite", "", "SQLite database with kills and cheaters tables")
	fs.BoolVar(&opts.detail, "detail", false, "Print the victim/witness breakdown and player ids")
	fs.IntVar(&opts.trials, "trials", 0, "Number of permutation trials")
	fs.Uint64Var(&opts.seed, "seed", 0, "Base seed for permutation trials")
	fs.IntVar(&opts.concurrency, "concurrency", 0, "Trials run in parallel")
	fs.IntVar(&opts.n, "n", 0, "Truncate the kill log to a toy sample of n events")
	fs.StringVar(&opts.out, "out", "", "Write output to this file instead of stdout")
	fs.StringVar(&opts.format, "format", "text", "Output format: text, json")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return opts, set, nil
}

// loadConfig loads configuration from file, environment, and command line flags.
func loadConfig(opts *options, set map[string]bool) (*config.Config, error) {
	var cfg *config.Config
	var err error

	// Start with defaults or load from file
	if opts.configFile != "" {
		cfg, err = config.LoadFromFile(opts.configFile)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.DefaultConfig()
	}

	// Apply environment variables
	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return nil, err
	}
	if err := config.LoadFromEnv(cfg); err != nil {
		return nil, err
	}

	// Apply command line flags (highest priority)
	if opts.kills != "" {
		cfg.Input.KillsPath = opts.kills
	}
	if opts.cheaters != "" {
		cfg.Input.CheatersPath = opts.cheaters
	}
	if opts.sqlite != "" {
		cfg.Input.SQLitePath = opts.sqlite
	}
	if set["trials"] {
		cfg.Simulation.Trials = opts.trials
	}
	if set["seed"] {
		cfg.Simulation.Seed = opts.seed
	}
	if set["concurrency"] {
		cfg.Simulation.Concurrency = opts.concurrency
	}
	if set["n"] {
		cfg.Input.SampleSize = opts.n
	}

	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*ingest.Dataset, error) {
	src, err := ingest.NewSource(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return src.Load(ctx)
}

func runAnalyze(ctx context.Context, cfg *config.Config, logger *zap.Logger, w io.Writer, format report.Format, detail bool) error {
	ds, err := load(ctx, cfg, logger)
	if err != nil {
		return err
	}

	pipeline, err := analysis.New(analysis.OptionsFromConfig(cfg, logger))
	if err != nil {
		return err
	}
	res, err := pipeline.Analyze(ctx, ds.Kills, ds.Registry)
	if err != nil {
		return err
	}

	if format == report.FormatJSON {
		return report.WriteJSON(w, report.NewSummary(res, detail))
	}
	return report.WriteSummary(w, res, detail)
}

func runSimulate(ctx context.Context, cfg *config.Config, logger *zap.Logger, w io.Writer, format report.Format) error {
	ds, err := load(ctx, cfg, logger)
	if err != nil {
		return err
	}

	pipeline, err := analysis.New(analysis.OptionsFromConfig(cfg, logger))
	if err != nil {
		return err
	}
	runner, err := simulation.NewRunner(pipeline, simulation.RunnerConfig{
		Trials:      cfg.Simulation.Trials,
		Seed:        cfg.Simulation.Seed,
		Concurrency: cfg.Simulation.Concurrency,
	}, logger)
	if err != nil {
		return err
	}

	exp, err := runner.Run(ctx, ds.Kills, ds.Registry)
	if err != nil {
		return err
	}

	if format == report.FormatJSON {
		return report.WriteJSON(w, exp)
	}
	return report.WriteExperiment(w, exp)
}

func runSample(ctx context.Context, cfg *config.Config, logger *zap.Logger, w io.Writer) error {
	if cfg.Input.SampleSize <= 0 {
		return fmt.Errorf("sample requires -n > 0")
	}
	ds, err := load(ctx, cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("Writing sample", zap.Int("events", len(ds.Kills)))
	return ingest.WriteKills(w, ds.Kills)
}
