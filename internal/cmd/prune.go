package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/emucfg/emucfg/internal/profile"
)

var pruneAll bool

var pruneCmd = &cobra.Command{
	Use:   "prune [machine...]",
	Short: "Remove saved machine profiles",
	Long: `Remove the saved profiles of the named machines, or of every machine
with --all. The next query of a pruned machine starts from the emulator's
defaults.`,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)
	pruneCmd.Flags().BoolVarP(&pruneAll, "all", "a", false, "remove all profiles")
}

func runPrune(cmd *cobra.Command, args []string) error {
	if !pruneAll && len(args) == 0 {
		return fmt.Errorf("name at least one machine or use --all")
	}

	store, err := profile.NewStore()
	if err != nil {
		return fmt.Errorf("failed to access profile store: %w", err)
	}

	machines := args
	if pruneAll {
		profiles, err := store.List()
		if err != nil {
			return fmt.Errorf("failed to list profiles: %w", err)
		}
		machines = machines[:0:0]
		for _, p := range profiles {
			machines = append(machines, p.Machine)
		}
	}

	removedCount := pruneProfiles(os.Stdout, store, machines)

	if removedCount == 0 {
		fmt.Println("No profiles to remove.")
	} else {
		fmt.Printf("Removed %d profile(s).\n", removedCount)
	}

	return nil
}

// pruneProfiles deletes the profiles of machines and returns how many
// existed.
func pruneProfiles(w io.Writer, store *profile.Store, machines []string) int {
	removed := 0
	for _, m := range machines {
		// unreadable profiles are still removed
		if _, err := store.Load(m); errors.Is(err, profile.ErrProfileNotFound) {
			_, _ = fmt.Fprintf(w, "No profile for %s\n", m)
			continue
		}
		if err := store.Delete(m); err != nil {
			_, _ = fmt.Fprintf(w, "Warning: failed to delete profile %s: %v\n", m, err)
			continue
		}
		_, _ = fmt.Fprintf(w, "Removed profile: %s\n", m)
		removed++
	}
	return removed
}
