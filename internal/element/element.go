package element

import (
	"fmt"
	"slices"
	"strings"
)

// Kind identifies the concrete type of an Element.
type Kind int

const (
	KindBios Kind = iota
	KindRam
	KindSlot
	KindDevice
)

func (k Kind) String() string {
	switch k {
	case KindBios:
		return "bios"
	case KindRam:
		return "ram"
	case KindSlot:
		return "slot"
	case KindDevice:
		return "device"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Element is one configurable unit of a machine. The set of implementations
// is closed: *Bios, *Ram, *Slot and *Device.
type Element interface {
	Kind() Kind
	ElementName() string
	Previous() string
	SetPrevious(name string)
	Deps() []Element
	SetDeps(deps []Element)

	// SetValue carries the selection of prev forward when prev is the same
	// kind and its value is still valid. It reports whether the element is
	// unchanged relative to prev.
	SetValue(prev Element) bool
	Describe() string
	Clone() Element

	sealed()
}

// Base holds the fields shared by every element kind.
type Base struct {
	Name         string
	PreviousName string
	Dependencies []Element
}

func (b *Base) ElementName() string     { return b.Name }
func (b *Base) Previous() string        { return b.PreviousName }
func (b *Base) SetPrevious(name string) { b.PreviousName = name }
func (b *Base) Deps() []Element         { return b.Dependencies }
func (b *Base) SetDeps(deps []Element)  { b.Dependencies = deps }
func (b *Base) sealed()                 {}

// Option is one choice of a Bios or Ram element.
type Option struct {
	Name        string
	Description string
	Default     bool
}

// Bios selects one of the machine's BIOS sets.
type Bios struct {
	Base
	Options []Option
	Value   string
}

// Ram selects one of the machine's RAM sizes.
type Ram struct {
	Base
	Options []Option
	Value   string
}

// SlotOption is one card or sub-device that can be plugged into a slot.
// Slots lists the sub-device's own configurable slots.
type SlotOption struct {
	Name        string
	DevName     string
	Description string
	Default     bool
	Slots       []*Slot
}

// Slot is a named mount point with an ordered option set.
type Slot struct {
	Base
	Options []SlotOption
	Value   string
}

// Device is an attachment point for media files.
type Device struct {
	Base
	Type       string
	Tag        string
	Instance   string
	Brief      string
	Mandatory  bool
	Interfaces []string
	Extensions []string
	Compatible bool
	Value      string
}

func (*Bios) Kind() Kind   { return KindBios }
func (*Ram) Kind() Kind    { return KindRam }
func (*Slot) Kind() Kind   { return KindSlot }
func (*Device) Kind() Kind { return KindDevice }

// DefaultValue returns the option flagged as default, or the first option.
func (b *Bios) DefaultValue() string { return defaultOption(b.Options) }

// DefaultValue returns the option flagged as default, or the first option.
func (r *Ram) DefaultValue() string { return defaultOption(r.Options) }

// DefaultValue returns the option flagged as default. A slot without a
// default option is empty by default.
func (s *Slot) DefaultValue() string {
	for _, o := range s.Options {
		if o.Default {
			return o.Name
		}
	}
	return ""
}

// Option returns the slot option with the given name.
func (s *Slot) Option(name string) (*SlotOption, bool) {
	for i := range s.Options {
		if s.Options[i].Name == name {
			return &s.Options[i], true
		}
	}
	return nil, false
}

// HasOption reports whether name is one of the slot's options. The empty
// value is always accepted.
func (s *Slot) HasOption(name string) bool {
	if name == "" {
		return true
	}
	_, ok := s.Option(name)
	return ok
}

// HasOption reports whether name is one of the BIOS sets.
func (b *Bios) HasOption(name string) bool { return hasOption(b.Options, name) }

// HasOption reports whether name is one of the RAM sizes.
func (r *Ram) HasOption(name string) bool { return hasOption(r.Options, name) }

func (b *Bios) SetValue(prev Element) bool {
	p, ok := prev.(*Bios)
	if !ok {
		return false
	}
	carried := carryValue(&b.Value, p.Value, hasOption(b.Options, p.Value))
	return carried && slices.Equal(optionNames(b.Options), optionNames(p.Options))
}

func (r *Ram) SetValue(prev Element) bool {
	p, ok := prev.(*Ram)
	if !ok {
		return false
	}
	carried := carryValue(&r.Value, p.Value, hasOption(r.Options, p.Value))
	return carried && slices.Equal(optionNames(r.Options), optionNames(p.Options))
}

func (s *Slot) SetValue(prev Element) bool {
	p, ok := prev.(*Slot)
	if !ok {
		return false
	}
	carried := carryValue(&s.Value, p.Value, s.HasOption(p.Value))
	return carried && slices.Equal(s.optionNames(), p.optionNames())
}

func (d *Device) SetValue(prev Element) bool {
	p, ok := prev.(*Device)
	if !ok {
		return false
	}
	d.Value = p.Value
	return slices.Equal(d.Extensions, p.Extensions) &&
		slices.Equal(d.Interfaces, p.Interfaces) &&
		d.Compatible == p.Compatible
}

func (b *Bios) Describe() string {
	return fmt.Sprintf("bios %s = %s (%d sets)", b.Name, b.Value, len(b.Options))
}

func (r *Ram) Describe() string {
	return fmt.Sprintf("ram %s = %s (%d sizes)", r.Name, r.Value, len(r.Options))
}

func (s *Slot) Describe() string {
	value := s.Value
	if value == "" {
		value = "[none]"
	}
	return fmt.Sprintf("slot %s = %s (%d options)", s.Name, value, len(s.Options))
}

func (d *Device) Describe() string {
	flags := ""
	if d.Mandatory {
		flags += " mandatory"
	}
	if d.Compatible {
		flags += " softlist"
	}
	return fmt.Sprintf("device %s [%s]%s ext=%s", d.Name, d.Type, flags, strings.Join(d.Extensions, ","))
}

func (b *Bios) Clone() Element {
	c := *b
	c.Options = slices.Clone(b.Options)
	c.Dependencies = slices.Clone(b.Dependencies)
	return &c
}

func (r *Ram) Clone() Element {
	c := *r
	c.Options = slices.Clone(r.Options)
	c.Dependencies = slices.Clone(r.Dependencies)
	return &c
}

// Clone copies the slot. The sub-device slot trees are shared.
func (s *Slot) Clone() Element {
	c := *s
	c.Options = slices.Clone(s.Options)
	c.Dependencies = slices.Clone(s.Dependencies)
	return &c
}

func (d *Device) Clone() Element {
	c := *d
	c.Interfaces = slices.Clone(d.Interfaces)
	c.Extensions = slices.Clone(d.Extensions)
	c.Dependencies = slices.Clone(d.Dependencies)
	return &c
}

func (s *Slot) optionNames() []string {
	names := make([]string, len(s.Options))
	for i, o := range s.Options {
		names[i] = o.Name
	}
	return names
}

// carryValue copies prev into dst when valid, otherwise leaves dst alone.
// Returns whether dst now equals prev.
func carryValue(dst *string, prev string, valid bool) bool {
	if valid {
		*dst = prev
	}
	return *dst == prev
}

func defaultOption(options []Option) string {
	for _, o := range options {
		if o.Default {
			return o.Name
		}
	}
	if len(options) > 0 {
		return options[0].Name
	}
	return ""
}

func hasOption(options []Option, name string) bool {
	for _, o := range options {
		if o.Name == name {
			return true
		}
	}
	return false
}

func optionNames(options []Option) []string {
	names := make([]string, len(options))
	for i, o := range options {
		names[i] = o.Name
	}
	return names
}

// Select sets the value of el when value is acceptable for its kind and
// reports whether the value changed.
func Select(el Element, value string) bool {
	var cur *string
	switch e := el.(type) {
	case *Bios:
		if !e.HasOption(value) {
			return false
		}
		cur = &e.Value
	case *Ram:
		if !e.HasOption(value) {
			return false
		}
		cur = &e.Value
	case *Slot:
		if !e.HasOption(value) {
			return false
		}
		cur = &e.Value
	case *Device:
		cur = &e.Value
	default:
		return false
	}
	if *cur == value {
		return false
	}
	*cur = value
	return true
}
