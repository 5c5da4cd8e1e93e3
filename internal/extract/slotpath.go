package extract

import (
	"strings"

	"github.com/emucfg/emucfg/internal/element"
)

// ResolveSlotPath walks the option tree rooted at top for a colon-separated
// path of the form slot:option:slot[:option:slot...]. The slot at the end
// of the path is returned as a copy named by the full path. It returns
// false when any segment no longer exists in the tree.
func ResolveSlotPath(top []*element.Slot, path string) (*element.Slot, bool) {
	segments := strings.Split(path, ":")
	found, ok := resolve(top, segments)
	if !ok {
		return nil, false
	}
	positioned := found.Clone().(*element.Slot)
	positioned.Name = path
	positioned.PreviousName = ""
	positioned.Dependencies = nil
	return positioned, true
}

func resolve(slots []*element.Slot, segments []string) (*element.Slot, bool) {
	if len(segments) == 0 || segments[0] == "" {
		return nil, false
	}

	var slot *element.Slot
	for _, s := range slots {
		if s.Name == segments[0] {
			slot = s
			break
		}
	}
	if slot == nil {
		return nil, false
	}
	if len(segments) == 1 {
		return slot, true
	}

	// A path that ends on an option names a device, not a slot.
	if len(segments) == 2 {
		return nil, false
	}
	opt, ok := slot.Option(segments[1])
	if !ok {
		return nil, false
	}
	return resolve(opt.Slots, segments[2:])
}

// pluggedIn reports whether every option named along path is the one
// currently selected in its slot. selected holds the values known so far
// by slot path; slots missing from it are at their default.
func pluggedIn(top []*element.Slot, selected map[string]string, path string) bool {
	segments := strings.Split(path, ":")
	for i := 1; i < len(segments); i += 2 {
		prefix := strings.Join(segments[:i], ":")
		value, ok := selected[prefix]
		if !ok {
			slot, found := ResolveSlotPath(top, prefix)
			if !found {
				return false
			}
			value = slot.Value
		}
		if value != segments[i] {
			return false
		}
	}
	return true
}
