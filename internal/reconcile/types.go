package reconcile

import (
	"errors"
	"fmt"

	"github.com/emucfg/emucfg/internal/element"
)

// ErrSequence is returned when session operations are called out of order.
var ErrSequence = errors.New("session operation out of sequence")

// Difference classifies an element relative to the previous round.
type Difference int

const (
	Created Difference = iota
	Added
	Changed
	Unchanged
	Deleted
)

func (d Difference) String() string {
	switch d {
	case Created:
		return "created"
	case Added:
		return "added"
	case Changed:
		return "changed"
	case Unchanged:
		return "unchanged"
	case Deleted:
		return "deleted"
	default:
		return fmt.Sprintf("difference(%d)", int(d))
	}
}

// MergedUnit pairs an element with its predecessor. Old is nil for
// Created and Added, New is nil for Deleted.
type MergedUnit struct {
	Old  element.Element
	New  element.Element
	Diff Difference
}

// Name returns the name of the element the unit describes.
func (u MergedUnit) Name() string {
	if u.New != nil {
		return u.New.ElementName()
	}
	if u.Old != nil {
		return u.Old.ElementName()
	}
	return ""
}

// State is the position of a session in its round lifecycle.
type State int

const (
	StateIdle State = iota
	StateOpen
	StateMatching
	StateMerged
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpen:
		return "open"
	case StateMatching:
		return "matching"
	case StateMerged:
		return "merged"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}
