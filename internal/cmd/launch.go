package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/emucfg/emucfg/internal/element"
	"github.com/emucfg/emucfg/internal/launch"
	"github.com/emucfg/emucfg/internal/profile"
)

var launchDryRun bool

var launchCmd = &cobra.Command{
	Use:   "launch <machine> [-- extra emulator args]",
	Short: "Run a machine with its saved configuration",
	Long: `Run the emulator for a machine with the selections from its profile.

The machine is queried first so that only selections that are still valid
are passed on. Arguments after -- are appended to the command line after
the configured emulator.extra_args.

Examples:
  emucfg launch apple2e
  emucfg launch pc -- -flop1 dos.img
  emucfg launch pc --dry-run`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLaunch,
}

func init() {
	launchCmd.Flags().BoolVarP(&launchDryRun, "dry-run", "n", false, "print the command line instead of running it")
	rootCmd.AddCommand(launchCmd)
}

func runLaunch(cmd *cobra.Command, args []string) error {
	machine := args[0]

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := profile.NewStore()
	if err != nil {
		return fmt.Errorf("failed to open profile store: %w", err)
	}

	out, err := configuratorFactory(store)(machine).Run(ctx, "", nil)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", machine, err)
	}

	lc := &launch.Config{
		Binary:    cfg.Emulator.Binary,
		Dir:       cfg.Emulator.WorkingDir,
		Machine:   machine,
		Args:      element.Args(out.Elements, nil),
		ExtraArgs: append(append([]string{}, cfg.Emulator.ExtraArgs...), args[1:]...),
		Logger:    slog.Default(),
	}

	if launchDryRun {
		fmt.Println(lc.Binary, shellJoin(lc.CommandLine()))
		return nil
	}

	l, err := launch.Run(ctx, lc)
	if err != nil {
		return err
	}
	if l.ExitReason == launch.ExitFailed {
		return fmt.Errorf("%s exited with status %d", cfg.Emulator.Binary, l.ExitCode)
	}
	return nil
}
