package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/emucfg/emucfg/internal/profile"
	"github.com/emucfg/emucfg/internal/report"
)

var queryVerbose bool

var queryCmd = &cobra.Command{
	Use:   "query <machine>",
	Short: "Show the configurable elements of a machine",
	Long: `Ask the emulator to describe a machine and print its configurable
elements with the values currently selected.

Saved selections from the machine's profile are applied.

Examples:
  emucfg query apple2e
  emucfg query pc --verbose`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().BoolVarP(&queryVerbose, "verbose", "v", false, "also list internal devices and software lists")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
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
	if out.Retries > 0 {
		Debug("Query for %s needed %d fallback(s)", machine, out.Retries)
	}

	ex := out.Extraction
	fmt.Printf("%s (%s)\n\n", ex.Description, ex.Machine)
	report.PrintElements(os.Stdout, out.Elements)

	if ex.NeedsMigration {
		fmt.Println("\nSome devices were skipped; this emulator omits device details in legacy mode.")
	}

	if queryVerbose {
		if len(ex.InternalDevices) > 0 {
			fmt.Println("\nInternal devices:")
			for _, d := range ex.InternalDevices {
				fmt.Printf("  %-20s %s\n", d.Name, d.Description)
			}
		}
		if len(ex.SoftwareLists) > 0 {
			fmt.Println("\nSoftware lists:")
			for _, sl := range ex.SoftwareLists {
				if sl.Filter != "" {
					fmt.Printf("  %s (filter %s)\n", sl.Name, sl.Filter)
				} else {
					fmt.Printf("  %s\n", sl.Name)
				}
			}
		}
	}

	return nil
}
