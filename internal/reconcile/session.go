package reconcile

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/emucfg/emucfg/internal/element"
)

// Session reconciles successive element sets for one machine.
//
// A round starts with Reset, receives the freshly extracted elements through
// Add, and ends with Commit (which installs the round as the new baseline)
// or Rollback (which discards it). The baseline is never modified during a
// round; the elements added to a round are new values, so rolling back only
// has to restore the baseline slot from backup.
//
// A Session is not safe for concurrent use. Only one round per machine is
// ever in flight.
type Session struct {
	machine    string
	logger     *slog.Logger
	postCommit func(*element.List)

	state    State
	baseline *element.List

	// round-scoped
	origin   string
	first    bool
	backup   *element.List
	pending  *element.List
	previous map[string]element.Element
	renamed  map[string]element.Element
	selected map[string]string
	anchor   element.Element
	units    []MergedUnit
	changed  bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithPostCommit registers a hook run with the new baseline on every commit.
func WithPostCommit(fn func(*element.List)) Option {
	return func(s *Session) { s.postCommit = fn }
}

// NewSession creates an idle session with no baseline.
func NewSession(machine string, opts ...Option) *Session {
	s := &Session{
		machine: machine,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Machine returns the machine the session belongs to.
func (s *Session) Machine() string { return s.machine }

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Baseline returns the last committed element list, or nil before the
// first commit.
func (s *Session) Baseline() *element.List { return s.baseline }

// Reset begins a round. origin names the element whose change triggered the
// round; it is empty for a plain (re)selection of the machine.
func (s *Session) Reset(origin string) error {
	if s.state != StateIdle {
		return fmt.Errorf("%w: reset in state %s", ErrSequence, s.state)
	}

	s.origin = origin
	s.first = s.baseline == nil
	s.backup = s.baseline
	s.pending = element.NewList()
	s.previous = s.baseline.Index()
	s.renamed = make(map[string]element.Element)
	s.selected = make(map[string]string)
	s.anchor = nil
	s.units = nil
	s.changed = s.first
	s.state = StateOpen
	return nil
}

// Select records a value chosen by the user for this round. It is applied
// to the named element after the previous value has been carried forward,
// so the user's choice wins over the predecessor's.
func (s *Session) Select(name, value string) error {
	if s.state != StateOpen && s.state != StateMatching {
		return fmt.Errorf("%w: select in state %s", ErrSequence, s.state)
	}
	s.selected[name] = value
	return nil
}

// Add matches el against the previous round and appends it to the current
// round.
func (s *Session) Add(el element.Element) (Difference, error) {
	if s.state != StateOpen && s.state != StateMatching {
		return 0, fmt.Errorf("%w: add in state %s", ErrSequence, s.state)
	}
	name := el.ElementName()
	if _, exists := s.pending.Get(name); exists {
		return 0, fmt.Errorf("duplicate element %q in round for %s", name, s.machine)
	}
	s.state = StateMatching

	unit := MergedUnit{New: el}
	old, matched := s.match(name, el.Kind())
	switch {
	case s.first:
		unit.Diff = Created
		s.applySelection(el)
	case !matched:
		unit.Diff = Added
		s.changed = true
		s.applySelection(el)
	default:
		oldName := old.ElementName()
		delete(s.previous, oldName)
		if oldName == s.origin {
			s.anchor = el
		}
		if oldName != name {
			el.SetPrevious(oldName)
			s.renamed[oldName] = el
		}

		unit.Old = old
		unchanged := el.SetValue(old)
		if s.applySelection(el) {
			unchanged = false
		}
		if unchanged {
			unit.Diff = Unchanged
		} else {
			unit.Diff = Changed
			s.changed = true
		}
	}

	if err := s.pending.Append(el); err != nil {
		return 0, err
	}
	s.units = append(s.units, unit)
	return unit.Diff, nil
}

func (s *Session) applySelection(el element.Element) bool {
	value, ok := s.selected[el.ElementName()]
	return ok && element.Select(el, value)
}

// match looks name up among the unconsumed elements of the previous round,
// falling back to the trailing-"1" rename heuristic.
func (s *Session) match(name string, kind element.Kind) (element.Element, bool) {
	if s.first {
		return nil, false
	}
	if old, ok := s.previous[name]; ok && old.Kind() == kind {
		return old, true
	}
	alt, ok := renameCandidate(name)
	if !ok {
		return nil, false
	}
	if old, ok := s.previous[alt]; ok && old.Kind() == kind {
		return old, true
	}
	return nil, false
}

// renameCandidate toggles a trailing "1": "cartridge1" becomes "cartridge"
// and "cartridge" becomes "cartridge1". The strip case is tried first; names
// ending in any other digit have no candidate.
func renameCandidate(name string) (string, bool) {
	n := len(name)
	if n >= 2 && name[n-1] == '1' && isLower(name[n-2]) {
		return name[:n-1], true
	}
	if n >= 1 && !isDigit(name[n-1]) {
		return name + "1", true
	}
	return "", false
}

func isLower(c byte) bool { return c >= 'a' && c <= 'z' }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// Merge finishes matching: it rewires dependencies onto the live element
// set and emits Deleted units for every unmatched element of the previous
// round.
func (s *Session) Merge() error {
	if s.state != StateOpen && s.state != StateMatching {
		return fmt.Errorf("%w: merge in state %s", ErrSequence, s.state)
	}
	s.rewire()
	s.detectDeletions()
	s.state = StateMerged
	return nil
}

func (s *Session) rewire() {
	for _, u := range s.units {
		switch u.Diff {
		case Added:
			if s.anchor != nil {
				u.New.SetDeps([]element.Element{s.anchor})
			}
		case Changed, Unchanged:
			oldDeps := u.Old.Deps()
			if len(oldDeps) == 0 {
				continue
			}
			deps := make([]element.Element, 0, len(oldDeps))
			for _, d := range oldDeps {
				if live, ok := s.resolveLive(d.ElementName()); ok {
					deps = append(deps, live)
				}
			}
			u.New.SetDeps(deps)
		}
	}
}

// resolveLive finds the current-round element standing for an element name
// of the previous round.
func (s *Session) resolveLive(name string) (element.Element, bool) {
	if el, ok := s.renamed[name]; ok {
		return el, true
	}
	return s.pending.Get(name)
}

func (s *Session) detectDeletions() {
	if s.backup == nil {
		return
	}
	old := s.backup.Elements()
	for i, el := range old {
		if left, ok := s.previous[el.ElementName()]; !ok || left != el {
			continue
		}
		s.changed = true

		at := 0
		if i > 0 {
			pred := old[i-1]
			if j := slices.IndexFunc(s.units, func(u MergedUnit) bool { return u.Old == pred }); j >= 0 {
				at = j + 1
			}
		}
		s.units = slices.Insert(s.units, at, MergedUnit{Old: el, Diff: Deleted})
	}
}

// Commit installs the round as the new baseline and returns the ordered
// differences together with whether anything changed. A round that was not
// merged yet is merged first.
func (s *Session) Commit() ([]MergedUnit, bool, error) {
	if s.state == StateOpen || s.state == StateMatching {
		if err := s.Merge(); err != nil {
			return nil, false, err
		}
	}
	if s.state != StateMerged {
		return nil, false, fmt.Errorf("%w: commit in state %s", ErrSequence, s.state)
	}

	s.baseline = s.pending
	if s.postCommit != nil {
		s.postCommit(s.baseline)
	}
	units, changed := s.units, s.changed
	s.logger.Debug("round committed",
		"machine", s.machine,
		"origin", s.origin,
		"elements", s.baseline.Len(),
		"units", len(units),
		"changed", changed)

	s.clearRound()
	return units, changed, nil
}

// Rollback discards the round and restores the previous baseline.
func (s *Session) Rollback() error {
	if s.state == StateIdle {
		return fmt.Errorf("%w: rollback in state %s", ErrSequence, s.state)
	}
	s.baseline = s.backup
	s.logger.Debug("round rolled back", "machine", s.machine, "origin", s.origin)
	s.clearRound()
	return nil
}

func (s *Session) clearRound() {
	s.origin = ""
	s.first = false
	s.backup = nil
	s.pending = nil
	s.previous = nil
	s.renamed = nil
	s.selected = nil
	s.anchor = nil
	s.units = nil
	s.changed = false
	s.state = StateIdle
}
