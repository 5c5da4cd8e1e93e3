package extract

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/emucfg/emucfg/internal/element"
	"github.com/emucfg/emucfg/internal/listxml"
)

// ErrMachineNotFound is returned when the document has no entry for the
// requested machine.
var ErrMachineNotFound = errors.New("machine not found in listxml output")

// InternalDevice is a device the machine references directly. It is
// informational only and never becomes an element.
type InternalDevice struct {
	Name        string
	Description string
}

// SoftwareListRef is a software list declared compatible with the machine.
type SoftwareListRef struct {
	Name   string
	Filter string
}

// Result is the transient element set offered by one query.
type Result struct {
	Machine         string
	Description     string
	InternalDevices []InternalDevice
	SoftwareLists   []SoftwareListRef
	Elements        []element.Element

	// NeedsMigration is set when devices without extensions were skipped
	// while the emulator runs in a mode that omits device descriptions.
	NeedsMigration bool
}

// Extractor builds elements from a parsed -listxml document.
type Extractor struct {
	// KnownSoftware maps software list names to the interfaces their
	// entries provide.
	KnownSoftware map[string][]string
	// LegacyDevices marks an emulator mode that does not yet emit full
	// device descriptions.
	LegacyDevices bool
	Logger        *slog.Logger
}

func (e *Extractor) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Extract builds the element set for machine. saved holds previously
// chosen values keyed by element name; nested slot selections use
// colon-separated paths and are restored when the path still resolves.
func (e *Extractor) Extract(doc *listxml.Document, machine string, saved map[string]string) (*Result, error) {
	m, ok := doc.Machine(machine)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMachineNotFound, machine)
	}

	res := &Result{
		Machine:     m.Name,
		Description: m.Description,
	}

	for _, ref := range m.DeviceRefs {
		dev := InternalDevice{Name: ref.Name}
		if entry, ok := doc.Machine(ref.Name); ok {
			dev.Description = entry.Description
		}
		res.InternalDevices = append(res.InternalDevices, dev)
	}

	for _, sl := range m.SoftwareLists {
		res.SoftwareLists = append(res.SoftwareLists, SoftwareListRef{Name: sl.Name, Filter: sl.Filter})
	}

	if bios := buildBios(m.BiosSets); bios != nil {
		res.Elements = append(res.Elements, bios)
	}
	if ram := buildRam(m.RamOptions); ram != nil {
		res.Elements = append(res.Elements, ram)
	}

	softwareInterfaces := e.softwareInterfaces(res.SoftwareLists)
	for _, d := range m.Devices {
		dev, skipped := buildDevice(d, softwareInterfaces)
		if skipped {
			if e.LegacyDevices {
				res.NeedsMigration = true
			}
			e.logger().Debug("skipping device without extensions", "machine", machine, "type", d.Type, "tag", d.Tag)
			continue
		}
		if dev != nil {
			res.Elements = append(res.Elements, dev)
		}
	}

	var slots []*element.Slot
	for _, s := range m.Slots {
		slot := buildSlot(doc, s, map[string]bool{m.Name: true})
		if slot == nil {
			continue
		}
		slots = append(slots, slot)
		res.Elements = append(res.Elements, slot)
	}

	names := make(map[string]bool, len(res.Elements))
	for _, el := range res.Elements {
		names[el.ElementName()] = true
	}
	applySaved(res.Elements, saved)

	// parents sort before their children, so each path sees the values
	// chosen above it
	selected := make(map[string]string, len(slots))
	for _, s := range slots {
		selected[s.Name] = s.Value
	}
	for _, path := range nestedPaths(saved) {
		if names[path] {
			continue
		}
		nested, ok := ResolveSlotPath(slots, path)
		if !ok || !pluggedIn(slots, selected, path) {
			e.logger().Debug("dropping saved slot selection", "machine", machine, "path", path)
			continue
		}
		if nested.HasOption(saved[path]) {
			nested.Value = saved[path]
		}
		names[path] = true
		selected[path] = nested.Value
		res.Elements = append(res.Elements, nested)
	}

	return res, nil
}

func (e *Extractor) softwareInterfaces(lists []SoftwareListRef) map[string]bool {
	ifaces := make(map[string]bool)
	for _, sl := range lists {
		for _, iface := range e.KnownSoftware[sl.Name] {
			ifaces[iface] = true
		}
	}
	return ifaces
}

func buildBios(sets []listxml.BiosSet) *element.Bios {
	if len(sets) < 2 {
		return nil
	}
	bios := &element.Bios{Base: element.Base{Name: element.BiosName}}
	for _, s := range sets {
		bios.Options = append(bios.Options, element.Option{
			Name:        s.Name,
			Description: s.Description,
			Default:     listxml.IsYes(s.Default),
		})
	}
	bios.Value = bios.DefaultValue()
	return bios
}

func buildRam(options []listxml.RamOption) *element.Ram {
	if len(options) < 2 {
		return nil
	}
	ram := &element.Ram{Base: element.Base{Name: element.RamName}}
	for _, o := range options {
		size := strings.TrimSpace(o.Value)
		ram.Options = append(ram.Options, element.Option{
			Name:        size,
			Description: o.Name,
			Default:     o.Default != nil,
		})
	}
	ram.Value = ram.DefaultValue()
	return ram
}

// buildDevice returns skipped=true for a mountable device that declares no
// extensions. Devices without an instance are not attachment points at all.
func buildDevice(d listxml.Device, softwareInterfaces map[string]bool) (dev *element.Device, skipped bool) {
	if len(d.Instances) == 0 {
		return nil, false
	}
	if len(d.Extensions) == 0 {
		return nil, true
	}

	inst := d.Instances[0]
	dev = &element.Device{
		Base:      element.Base{Name: inst.Name},
		Type:      d.Type,
		Tag:       d.Tag,
		Instance:  inst.Name,
		Brief:     inst.BriefName,
		Mandatory: listxml.IsYes(d.Mandatory),
	}
	for _, iface := range strings.Split(d.Interface, ",") {
		if iface = strings.TrimSpace(iface); iface != "" {
			dev.Interfaces = append(dev.Interfaces, iface)
		}
	}
	for _, ext := range d.Extensions {
		dev.Extensions = append(dev.Extensions, ext.Name)
	}
	dev.Compatible = slices.ContainsFunc(dev.Interfaces, func(iface string) bool {
		return softwareInterfaces[iface]
	})
	return dev, false
}

// buildSlot resolves every option's target device for its description and
// sub-slots. Options whose devname cannot be resolved are dropped; a slot
// left with fewer than two options is not a choice and yields nil.
func buildSlot(doc *listxml.Document, s listxml.Slot, visiting map[string]bool) *element.Slot {
	if len(s.Options) < 2 {
		return nil
	}

	slot := &element.Slot{Base: element.Base{Name: s.Name}}
	for _, o := range s.Options {
		target, ok := doc.Machine(o.DevName)
		if !ok {
			continue
		}
		opt := element.SlotOption{
			Name:        o.Name,
			DevName:     o.DevName,
			Description: target.Description,
			Default:     listxml.IsYes(o.Default),
		}
		if !visiting[target.Name] {
			visiting[target.Name] = true
			for _, sub := range target.Slots {
				if child := buildSlot(doc, sub, visiting); child != nil {
					opt.Slots = append(opt.Slots, child)
				}
			}
			delete(visiting, target.Name)
		}
		slot.Options = append(slot.Options, opt)
	}
	if len(slot.Options) < 2 {
		return nil
	}
	slot.Value = slot.DefaultValue()
	return slot
}

func applySaved(elements []element.Element, saved map[string]string) {
	for _, el := range elements {
		value, ok := saved[el.ElementName()]
		if !ok {
			continue
		}
		switch e := el.(type) {
		case *element.Bios:
			if e.HasOption(value) {
				e.Value = value
			}
		case *element.Ram:
			if e.HasOption(value) {
				e.Value = value
			}
		case *element.Slot:
			if e.HasOption(value) {
				e.Value = value
			}
		case *element.Device:
			e.Value = value
		}
	}
}

func nestedPaths(saved map[string]string) []string {
	var paths []string
	for name := range saved {
		if strings.Contains(name, ":") {
			paths = append(paths, name)
		}
	}
	slices.Sort(paths)
	return paths
}
