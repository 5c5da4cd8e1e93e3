package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/emucfg/emucfg/internal/config"
	"github.com/emucfg/emucfg/internal/configurator"
	"github.com/emucfg/emucfg/internal/extract"
	"github.com/emucfg/emucfg/internal/invoke"
	"github.com/emucfg/emucfg/internal/profile"
	"github.com/emucfg/emucfg/internal/reconcile"
)

var (
	cfgFile string
	debug   bool

	cfg *config.Config
)

// Debug logs a formatted message at debug level
func Debug(format string, args ...interface{}) {
	slog.Debug(fmt.Sprintf(format, args...))
}

var rootCmd = &cobra.Command{
	Use:   "emucfg",
	Short: "emucfg - emulator machine configuration",
	Long: `emucfg discovers the configurable parts of an emulated machine and keeps
your choices in step as the emulator's description of the machine changes.

Show a machine's configuration:
  emucfg query apple2e

Change slots and options:
  emucfg config apple2e --set sl6=ssc --set ramsize=128K

Run the configured machine:
  emucfg launch apple2e

Manage saved profiles:
  emucfg profiles
  emucfg prune apple2e`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.emucfg/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func initConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if debug {
		cfg.Log.Level = "debug"
	}
	setupLogger(cfg.Log)
	Debug("Config loaded successfully")
	return nil
}

func setupLogger(lc config.LogConfig) {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	switch lc.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	}

	// stdout carries command output, so logs default to stderr
	var handler slog.Handler
	if lc.File != "" && lc.File != "-" {
		f, err := os.OpenFile(lc.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file, falling back to stderr: %v\n", err)
			handler = slog.NewTextHandler(os.Stderr, opts)
		} else {
			handler = slog.NewTextHandler(f, opts)
		}
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func newController() *invoke.Controller {
	runner := &invoke.ExecRunner{
		Binary: cfg.Emulator.Binary,
		Dir:    cfg.Emulator.WorkingDir,
	}
	return invoke.NewController(runner,
		invoke.WithFlag(cfg.Emulator.ListXMLFlag),
		invoke.WithLogger(slog.Default()))
}

func newExtractor() *extract.Extractor {
	return &extract.Extractor{
		KnownSoftware: cfg.Software.Known,
		LegacyDevices: cfg.Emulator.LegacyDevices,
		Logger:        slog.Default(),
	}
}

// configuratorFactory builds configurators that share one controller and
// restore each machine's saved profile.
func configuratorFactory(store *profile.Store) configurator.Factory {
	controller := newController()
	extractor := newExtractor()
	return func(machine string) *configurator.Configurator {
		var saved map[string]string
		if p, err := store.Load(machine); err == nil {
			saved = p.Selections
			Debug("Restoring %d saved selection(s) for %s", len(saved), machine)
		} else {
			Debug("No profile for %s: %v", machine, err)
		}
		session := reconcile.NewSession(machine, reconcile.WithLogger(slog.Default()))
		return configurator.New(controller, extractor, session,
			configurator.WithSaved(saved),
			configurator.WithLogger(slog.Default()))
	}
}
