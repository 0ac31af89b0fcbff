package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/qq511939992/walrepl/internal/cliconfig"
	"github.com/qq511939992/walrepl/internal/scenario"
	"github.com/qq511939992/walrepl/pkg/follower"
	walog "github.com/qq511939992/walrepl/pkg/log"
	"github.com/qq511939992/walrepl/pkg/replication"
	"github.com/qq511939992/walrepl/pkg/state"
	"github.com/qq511939992/walrepl/plugins/faultwatcher"
)

const helpDescription = `
Drive a WAL replication strategy from a scenario script.

walrepl plays the storage engine: it opens write transactions, ships frame
batches through the replication state machine to an in-memory follower and
checks every step against the error the script expects. Faults can be armed
from the script or, while the run is in progress, from a watched fault file.
`

var exampleUsage = strings.TrimSpace(`
  walrepl --script commit.toml
  walrepl --script chaos.toml --fault-file faults.toml --log-level debug
  walrepl validate chaos.toml
  walrepl status
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := cliconfig.Logger()

	// loadConfig layers file, env and flags into cfg.
	loadConfig := func(cmd *cobra.Command) error {
		cfgFile := cfgPath
		if cfgFile == "" {
			cfgFile = cliconfig.DefaultConfigPath()
		}

		changed := map[string]bool{}
		cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

		if cfgFile != "" && cliconfig.FileExists(cfgFile) {
			fc, err := cliconfig.LoadFileConfig(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
				return err
			}
		}

		// Env overrides the file but not explicitly set flags.
		return cliconfig.ApplyEnvConfig(&cfg, changed)
	}

	root := &cobra.Command{
		Use:     "walrepl",
		Short:   "Drive a WAL replication strategy from a scenario script",
		Long:    strings.TrimSpace(helpDescription),
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			log = cliconfig.LoggerWithLevel(cfg.LogLevel)
			log.Info().Interface("config", cfg).Msg("configuration")

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, log)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.walrepl/config.toml)")
	root.Flags().StringVar(&cfg.Script, "script", cfg.Script, "scenario script to run")
	root.Flags().StringVar(&cfg.Strategy, "strategy", cfg.Strategy, "name to register the strategy under")
	root.Flags().StringVar(&cfg.Schema, "schema", cfg.Schema, "follower schema frames are forwarded to")
	root.Flags().IntVar(&cfg.PageSize, "page-size", cfg.PageSize, "page size override for the script (0 = use script)")
	root.Flags().IntVar(&cfg.MaxFrames, "max-frames", cfg.MaxFrames, "maximum frames recorded per epoch (0 = unbounded)")
	root.Flags().IntVar(&cfg.MaxBatchBytes, "max-batch-bytes", cfg.MaxBatchBytes, "maximum flattened batch size sent to the follower (0 = unbounded)")
	root.Flags().StringVar(&cfg.FaultFile, "fault-file", cfg.FaultFile, "TOML fault file to watch (optional)")
	root.Flags().DurationVar(&cfg.DebounceDelay, "debounce", cfg.DebounceDelay, "delay before applying a changed fault file")
	root.Flags().DurationVar(&cfg.BackoffInitial, "backoff-initial", cfg.BackoffInitial, "first retry delay after an injected failure")
	root.Flags().DurationVar(&cfg.BackoffMax, "backoff-max", cfg.BackoffMax, "maximum retry delay")
	root.Flags().StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "directory for status.json (default: $HOME/.walrepl)")
	root.Flags().BoolVar(&cfg.Status, "status", cfg.Status, "write status.json after the run")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	root.AddCommand(&cobra.Command{
		Use:   "validate <script>",
		Short: "Parse a scenario script without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := scenario.LoadScript(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d steps, page size %d\n", args[0], len(script.Steps), script.PageSize)
			return nil
		},
	})

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print the status of the last run",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := cfg.StateDir
			if dir == "" {
				h, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				dir = filepath.Join(h, ".walrepl")
			}
			s, err := state.NewFileRepository(dir).Load(cmd.Context())
			if err != nil {
				return err
			}
			if s.IsEmpty() {
				return fmt.Errorf("no status in %s", dir)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		},
	}
	statusCmd.Flags().StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "directory holding status.json")
	root.AddCommand(statusCmd)

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("walrepl")
		os.Exit(1)
	}
}

// run executes the configured scenario and saves the run status.
func run(ctx context.Context, cfg cliconfig.Config, log zerolog.Logger) error {
	script, err := scenario.LoadScript(cfg.Script)
	if err != nil {
		return fmt.Errorf("load script: %w", err)
	}
	if cfg.PageSize > 0 {
		script.PageSize = cfg.PageSize
	}

	logger := walog.NewZerologAdapterWithLogger(log).With(walog.String("strategy", cfg.Strategy))
	f := follower.NewMemory(cfg.Schema)

	opts := []replication.Option{
		replication.WithLogger(logger),
		replication.WithFollower(f, cfg.Schema),
		replication.WithMaxFrames(cfg.MaxFrames),
		replication.WithMaxBatchBytes(cfg.MaxBatchBytes),
	}
	if cfg.FaultFile != "" {
		opts = append(opts, faultwatcher.WithFaultWatcher(faultwatcher.Config{
			Path:          cfg.FaultFile,
			DebounceDelay: cfg.DebounceDelay,
		}))
	}

	r, err := replication.New(cfg.Strategy, opts...)
	if err != nil {
		return fmt.Errorf("create strategy: %w", err)
	}
	if err := replication.Register(r, true); err != nil {
		return fmt.Errorf("register strategy: %w", err)
	}
	defer func() { _ = replication.Unregister(cfg.Strategy) }()

	if err := r.Start(ctx); err != nil {
		return fmt.Errorf("start strategy: %w", err)
	}
	defer func() {
		if err := r.Stop(context.Background()); err != nil {
			log.Error().Err(err).Msg("stop strategy")
		}
	}()

	runner := scenario.NewRunner(r, logger)
	runner.SetBackoff(cfg.BackoffInitial, cfg.BackoffMax)

	report, runErr := runner.Run(ctx, script)

	log.Info().
		Int("steps", len(report.Steps)).
		Int("failures", report.Failures()).
		Str("phase", report.Status.Phase).
		Int("frames", report.Status.Frames).
		Int("follower_pages", f.PageCount(cfg.Schema)).
		Int("follower_commits", f.Commits(cfg.Schema)).
		Msg("scenario finished")

	if cfg.Status {
		repo := state.NewFileRepository(cfg.StateDir)
		if err := repo.Save(context.Background(), report.Status); err != nil {
			log.Error().Err(err).Str("path", repo.Path()).Msg("failed to save status")
		}
	}

	return runErr
}
