package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"pathwatch/internal/core/config"
	"pathwatch/internal/ui/cli"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "./pathwatch.toml"

func newRootCmd(out io.Writer) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "pathwatch",
		Short:         "Watch files and directories and report what changed.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "Path to config file")

	root.AddCommand(
		newWatchCmd(&configPath),
		newJournalCmd(&configPath),
		newVersionCmd(),
	)
	return root
}

func newWatchCmd(configPath *string) *cobra.Command {
	var (
		ui       bool
		journal  bool
		metrics  string
		executor string
		kinds    []string
	)

	cmd := &cobra.Command{
		Use:     "watch [paths...]",
		Short:   "Watch paths and print one line per change",
		Example: "pathwatch watch ./notes ./inbox --ui --journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath, cmd.Flag("config").Changed)
			if err != nil {
				return err
			}

			if len(args) > 0 {
				cfg.WatchPaths = args
			}
			flags := cmd.Flags()
			if flags.Changed("ui") {
				cfg.UI.Enabled = ui
			}
			if flags.Changed("journal") {
				cfg.Journal.Enabled = journal
			}
			if flags.Changed("latency") {
				cfg.Watch.Latency, _ = flags.GetDuration("latency")
			}
			if flags.Changed("executor") {
				cfg.Watch.Executor = strings.ToLower(strings.TrimSpace(executor))
			}
			if flags.Changed("kinds") {
				cfg.Watch.Kinds = normalizeKinds(kinds)
			}
			if flags.Changed("metrics") {
				cfg.Observability.Enabled = metrics != ""
				if metrics != "" {
					cfg.Observability.MetricsAddr = metrics
				}
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}

			closeLog, err := setupLogging(cfg.Log, cfg.UI.Enabled)
			if err != nil {
				return err
			}
			defer closeLog()

			return cli.RunWatch(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&ui, "ui", false, "Show a live terminal view instead of printing lines")
	flags.BoolVar(&journal, "journal", false, "Persist events to the sqlite journal")
	flags.Duration("latency", 0, "Coalesce changes seen within this window into one batch")
	flags.StringVar(&executor, "executor", "", "Delivery executor: queue or loop")
	flags.StringSliceVar(&kinds, "kinds", nil, "Only report these change kinds (created,removed,renamed,modified,metadata,other)")
	flags.StringVar(&metrics, "metrics", "", "Serve /metrics and /health on this address")
	return cmd
}

func newJournalCmd(configPath *string) *cobra.Command {
	var (
		limit  int
		counts bool
		path   string
	)

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Print recently journaled events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath, cmd.Flag("config").Changed)
			if err != nil {
				return err
			}
			if path == "" {
				path = cfg.Journal.Path
			}
			return cli.RunJournal(cmd.Context(), path, limit, counts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of events to print")
	cmd.Flags().BoolVar(&counts, "counts", false, "Print totals per change kind instead of events")
	cmd.Flags().StringVar(&path, "path", "", "Journal database (defaults to journal.path from config)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pathwatch %s\n", version)
		},
	}
}

// loadConfig reads the config file, falling back to defaults when the
// default file is absent, then applies PATHWATCH_* overrides.
func loadConfig(path string, explicit bool) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load config %q: %w", path, err)
		}
		cfg = config.DefaultConfig()
	}

	config.ApplyEnvOverrides(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func normalizeKinds(kinds []string) []string {
	out := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		if kind = strings.ToLower(strings.TrimSpace(kind)); kind != "" {
			out = append(out, kind)
		}
	}
	return out
}
