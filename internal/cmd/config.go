package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/emucfg/emucfg/internal/configurator"
	"github.com/emucfg/emucfg/internal/profile"
	"github.com/emucfg/emucfg/internal/report"
)

var (
	configSets    []string
	configNoSave  bool
	configVerbose bool
)

var configCmd = &cobra.Command{
	Use:   "config <machine>",
	Short: "Change the configuration of a machine",
	Long: `Select a machine and apply changes one at a time, showing how the
emulator's description of the machine changes after each one.

Each --set starts a new round; elements that appear, disappear or change
are listed. The final selections are saved to the machine's profile.

Examples:
  emucfg config apple2e
  emucfg config apple2e --set sl6=ssc --set sl6:ssc:rs232=null_modem
  emucfg config pc --set ramsize=640K --no-save`,
	Args: cobra.ExactArgs(1),
	RunE: runConfig,
}

func init() {
	configCmd.Flags().StringArrayVarP(&configSets, "set", "s", []string{}, "set an element value as name=value (repeatable)")
	configCmd.Flags().BoolVar(&configNoSave, "no-save", false, "do not update the saved profile")
	configCmd.Flags().BoolVarP(&configVerbose, "verbose", "v", false, "also list unchanged elements")
	rootCmd.AddCommand(configCmd)
}

type assignment struct {
	name, value string
}

func parseAssignments(sets []string) ([]assignment, error) {
	out := make([]assignment, 0, len(sets))
	for _, s := range sets {
		name, value, ok := strings.Cut(s, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --set %q, expected name=value", s)
		}
		out = append(out, assignment{name: name, value: strings.TrimSpace(value)})
	}
	return out, nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	machine := args[0]

	changes, err := parseAssignments(configSets)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := profile.NewStore()
	if err != nil {
		return fmt.Errorf("failed to open profile store: %w", err)
	}

	selector := configurator.NewSelector(configuratorFactory(store), 1, nil)
	defer selector.Close()

	next := func() (configurator.Outcome, error) {
		select {
		case out := <-selector.Results():
			return out, out.Err
		case <-ctx.Done():
			return configurator.Outcome{}, fmt.Errorf("interrupted")
		}
	}
	opts := report.Options{Verbose: configVerbose}

	if err := selector.Select(machine); err != nil {
		return err
	}
	last, err := next()
	if err != nil {
		return err
	}
	report.PrintUnits(os.Stdout, machine, last.Units, opts)

	for _, c := range changes {
		if _, ok := last.Elements.Get(c.name); !ok {
			fmt.Printf("\nWarning: %s has no element %q; passing it to the emulator as is\n", machine, c.name)
		}
		fmt.Printf("\nSetting %s = %s\n", c.name, c.value)
		if err := selector.Change(c.name, c.value); err != nil {
			return err
		}
		last, err = next()
		if err != nil {
			return err
		}
		report.PrintUnits(os.Stdout, machine, last.Units, opts)
	}

	fmt.Println()
	report.PrintElements(os.Stdout, last.Elements)

	if configNoSave {
		return nil
	}
	p := &profile.Profile{
		Machine:    machine,
		Selections: last.Elements.Values(),
	}
	if err := store.Save(p); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	Debug("Saved profile for %s to %s", machine, store.Dir())
	return nil
}
