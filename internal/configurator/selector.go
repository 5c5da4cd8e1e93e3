package configurator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/emucfg/emucfg/internal/invoke"
)

// ErrNoMachine is returned by Change before any machine was selected.
var ErrNoMachine = errors.New("no machine selected")

// ErrClosed is returned after Close.
var ErrClosed = errors.New("selector closed")

// Factory creates the configurator for a newly selected machine.
type Factory func(machine string) *Configurator

// Selector tracks the machine the user is configuring. Each round runs on
// its own goroutine; a new round cancels the one in flight and starts once
// it has finished, so a session never sees two rounds at a time.
type Selector struct {
	factory Factory
	logger  *slog.Logger
	results chan Outcome
	done    chan struct{}

	mu         sync.Mutex
	closed     bool
	current    *Configurator
	selections map[string]string
	cancel     context.CancelFunc
	last       chan struct{}
	wg         sync.WaitGroup
}

// NewSelector creates a selector. results is the buffer size of the
// outcome channel.
func NewSelector(factory Factory, results int, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{
		factory: factory,
		logger:  logger,
		results: make(chan Outcome, results),
		done:    make(chan struct{}),
	}
}

// Results delivers the outcome of every round that was not cancelled.
func (s *Selector) Results() <-chan Outcome { return s.results }

// Select makes machine the active one. Any round in flight for the previous
// machine is cancelled and its session is dropped. The initial round for
// the new machine is started immediately.
func (s *Selector) Select(machine string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	s.current = s.factory(machine)
	s.selections = make(map[string]string)
	s.startLocked("")
	return nil
}

// Change records a new value for the named element and starts a round with
// that element as origin.
func (s *Selector) Change(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.current == nil {
		return ErrNoMachine
	}

	s.selections[name] = value
	s.startLocked(name)
	return nil
}

// Selections returns a copy of the choices recorded for the active machine.
func (s *Selector) Selections() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.selections)
}

func (s *Selector) startLocked(origin string) {
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	prev := s.last
	finished := make(chan struct{})
	s.last = finished

	cfg := s.current
	selections := maps.Clone(s.selections)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(finished)
		defer cancel()

		if prev != nil {
			<-prev
		}
		if ctx.Err() != nil {
			return
		}

		out, err := cfg.Run(ctx, origin, selections)
		if errors.Is(err, invoke.ErrCancelled) {
			s.logger.Debug("round cancelled", "machine", out.Machine, "round", out.RoundID)
			return
		}
		if err != nil {
			s.logger.Warn("round failed", "machine", out.Machine, "round", out.RoundID, "error", err)
			out.Err = fmt.Errorf("configure %s: %w", out.Machine, err)
		}

		select {
		case s.results <- *out:
		case <-s.done:
		}
	}()
}

// Close cancels the round in flight, waits for all rounds to finish and
// closes the results channel.
func (s *Selector) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	close(s.done)
	s.mu.Unlock()

	s.wg.Wait()
	close(s.results)
}
