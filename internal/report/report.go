package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/emucfg/emucfg/internal/element"
	"github.com/emucfg/emucfg/internal/reconcile"
)

const maxDisplayUnits = 20

// Options controls what PrintUnits shows.
type Options struct {
	// Verbose also lists unchanged elements.
	Verbose bool
}

// PrintUnits prints a human-readable summary of one round's differences.
func PrintUnits(w io.Writer, machine string, units []reconcile.MergedUnit, opts Options) {
	counts := make(map[reconcile.Difference]int)
	for _, u := range units {
		counts[u.Diff]++
	}

	if len(units) == counts[reconcile.Unchanged] && !opts.Verbose {
		_, _ = fmt.Fprintf(w, "\n%s: no changes.\n", machine)
		return
	}

	_, _ = fmt.Fprintf(w, "\n%s\n", machine)
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 40))

	shown := visible(units, opts)
	if len(shown) > maxDisplayUnits {
		// first few of every kind, then the totals
		perKind := make(map[reconcile.Difference]int)
		for _, u := range shown {
			if perKind[u.Diff] >= 5 {
				continue
			}
			printUnit(w, u)
			perKind[u.Diff]++
		}
		_, _ = fmt.Fprintf(w, "  (%d elements: %d created, %d added, %d changed, %d unchanged, %d deleted)\n",
			len(units),
			counts[reconcile.Created],
			counts[reconcile.Added],
			counts[reconcile.Changed],
			counts[reconcile.Unchanged],
			counts[reconcile.Deleted])
		return
	}
	for _, u := range shown {
		printUnit(w, u)
	}
}

func visible(units []reconcile.MergedUnit, opts Options) []reconcile.MergedUnit {
	if opts.Verbose {
		return units
	}
	out := make([]reconcile.MergedUnit, 0, len(units))
	for _, u := range units {
		if u.Diff != reconcile.Unchanged {
			out = append(out, u)
		}
	}
	return out
}

// printUnit prints a single difference line
func printUnit(w io.Writer, u reconcile.MergedUnit) {
	switch u.Diff {
	case reconcile.Created:
		_, _ = fmt.Fprintf(w, "  * %-30s %s\n", u.Name(), value(u.New))
	case reconcile.Added:
		_, _ = fmt.Fprintf(w, "  + %-30s %s\n", u.Name(), value(u.New))
	case reconcile.Changed:
		name := u.Name()
		if prev := u.New.Previous(); prev != "" {
			name = fmt.Sprintf("%s (was %s)", name, prev)
		}
		_, _ = fmt.Fprintf(w, "  ~ %-30s %s → %s\n", name, value(u.Old), value(u.New))
	case reconcile.Unchanged:
		_, _ = fmt.Fprintf(w, "  = %-30s %s\n", u.Name(), value(u.New))
	case reconcile.Deleted:
		_, _ = fmt.Fprintf(w, "  - %s\n", u.Name())
	}
}

// value returns the displayable selection of an element
func value(el element.Element) string {
	var v string
	switch e := el.(type) {
	case *element.Bios:
		v = e.Value
	case *element.Ram:
		v = e.Value
	case *element.Slot:
		v = e.Value
	case *element.Device:
		v = e.Value
	}
	if v == "" {
		return "(none)"
	}
	return v
}

// PrintElements prints the committed element table.
func PrintElements(w io.Writer, list *element.List) {
	if list.Len() == 0 {
		_, _ = fmt.Fprintln(w, "No configurable elements.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tKIND\tVALUE\tCHOICES\tDEPENDS ON")
	for _, el := range list.Elements() {
		deps := make([]string, 0, len(el.Deps()))
		for _, d := range el.Deps() {
			deps = append(deps, d.ElementName())
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			el.ElementName(),
			el.Kind(),
			value(el),
			choices(el),
			strings.Join(deps, ","))
	}
	_ = tw.Flush()
}

func choices(el element.Element) string {
	var names []string
	switch e := el.(type) {
	case *element.Bios:
		for _, o := range e.Options {
			names = append(names, o.Name)
		}
	case *element.Ram:
		for _, o := range e.Options {
			names = append(names, o.Name)
		}
	case *element.Slot:
		for _, o := range e.Options {
			names = append(names, o.Name)
		}
	case *element.Device:
		names = e.Extensions
	}
	if len(names) > 5 {
		return strings.Join(names[:5], ",") + fmt.Sprintf(",+%d more", len(names)-5)
	}
	return strings.Join(names, ",")
}
