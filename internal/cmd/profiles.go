package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/emucfg/emucfg/internal/profile"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List saved machine profiles",
	Long:  `List every machine with saved selections, with the selections and when they were last updated.`,
	Args:  cobra.NoArgs,
	RunE:  runProfiles,
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}

func runProfiles(cmd *cobra.Command, args []string) error {
	store, err := profile.NewStore()
	if err != nil {
		return fmt.Errorf("failed to open profile store: %w", err)
	}

	profiles, err := store.List()
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}

	if len(profiles) == 0 {
		fmt.Println("No saved profiles.")
		return nil
	}

	// Create tabwriter for aligned output
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "MACHINE\tSELECTIONS\tUPDATED")
	_, _ = fmt.Fprintln(w, "-------\t----------\t-------")

	for _, p := range profiles {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n",
			p.Machine,
			formatSelections(p.Selections),
			p.UpdatedAt.Local().Format("2006-01-02 15:04:05"),
		)
	}

	_ = w.Flush()
	return nil
}

func formatSelections(sel map[string]string) string {
	if len(sel) == 0 {
		return "(defaults)"
	}
	names := make([]string, 0, len(sel))
	for name := range sel {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+sel[name])
	}
	if len(parts) > 4 {
		return strings.Join(parts[:4], " ") + fmt.Sprintf(" (+%d more)", len(parts)-4)
	}
	return strings.Join(parts, " ")
}

// shellJoin quotes args for display on a shell command line
func shellJoin(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		if a == "" || strings.ContainsAny(a, " \t\"'$\\") {
			quoted[i] = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
		} else {
			quoted[i] = a
		}
	}
	return strings.Join(quoted, " ")
}
