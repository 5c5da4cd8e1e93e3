package element

import "slices"

// Fixed element names for the machine-wide choices. They double as the
// emulator switches that select them.
const (
	BiosName = "bios"
	RamName  = "ramsize"
)

// Args renders the selections held by list as emulator command-line
// arguments. overrides replace the value of the named element; overrides
// for names the list does not know are appended in sorted order. Options
// left at their default are not emitted.
func Args(list *List, overrides map[string]string) []string {
	var args []string
	seen := make(map[string]bool)

	for _, el := range list.Elements() {
		name := el.ElementName()
		seen[name] = true
		value, overridden := overrides[name]

		switch e := el.(type) {
		case *Bios:
			if !overridden {
				value = e.Value
			}
			if value != "" && value != e.DefaultValue() {
				args = append(args, "-"+name, value)
			}
		case *Ram:
			if !overridden {
				value = e.Value
			}
			if value != "" && value != e.DefaultValue() {
				args = append(args, "-"+name, value)
			}
		case *Slot:
			if !overridden {
				value = e.Value
			}
			if value != e.DefaultValue() {
				args = append(args, "-"+name, value)
			}
		case *Device:
			if !overridden {
				value = e.Value
			}
			if value != "" {
				args = append(args, "-"+deviceSwitch(e), value)
			}
		}
	}

	var extra []string
	for name := range overrides {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	slices.Sort(extra)
	for _, name := range extra {
		args = append(args, "-"+name, overrides[name])
	}

	return args
}

func deviceSwitch(d *Device) string {
	if d.Instance != "" {
		return d.Instance
	}
	return d.Name
}
