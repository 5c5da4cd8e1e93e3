package element

import (
	"fmt"
	"maps"
	"slices"
)

// List is an ordered collection of elements with unique names.
type List struct {
	items []Element
	index map[string]Element
}

// NewList creates an empty list.
func NewList() *List {
	return &List{index: make(map[string]Element)}
}

// Append adds el to the end of the list. A name already present is an error.
func (l *List) Append(el Element) error {
	name := el.ElementName()
	if _, exists := l.index[name]; exists {
		return fmt.Errorf("duplicate element name: %s", name)
	}
	l.items = append(l.items, el)
	l.index[name] = el
	return nil
}

// Get returns the element with the given name.
func (l *List) Get(name string) (Element, bool) {
	if l == nil {
		return nil, false
	}
	el, ok := l.index[name]
	return el, ok
}

// Position returns the position of the named element, or -1.
func (l *List) Position(name string) int {
	if l == nil {
		return -1
	}
	return slices.IndexFunc(l.items, func(el Element) bool {
		return el.ElementName() == name
	})
}

// At returns the element at position i.
func (l *List) At(i int) Element { return l.items[i] }

// Len returns the number of elements.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// Elements returns the elements in insertion order.
func (l *List) Elements() []Element {
	if l == nil {
		return nil
	}
	return slices.Clone(l.items)
}

// Index returns a copy of the name index.
func (l *List) Index() map[string]Element {
	if l == nil {
		return map[string]Element{}
	}
	return maps.Clone(l.index)
}

// Values returns the current selection of every element that has one.
func (l *List) Values() map[string]string {
	values := make(map[string]string)
	for _, el := range l.Elements() {
		switch e := el.(type) {
		case *Bios:
			values[e.Name] = e.Value
		case *Ram:
			values[e.Name] = e.Value
		case *Slot:
			values[e.Name] = e.Value
		case *Device:
			if e.Value != "" {
				values[e.Name] = e.Value
			}
		}
	}
	return values
}
