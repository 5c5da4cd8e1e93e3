package configurator

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"github.com/google/uuid"

	"github.com/emucfg/emucfg/internal/element"
	"github.com/emucfg/emucfg/internal/extract"
	"github.com/emucfg/emucfg/internal/invoke"
	"github.com/emucfg/emucfg/internal/reconcile"
)

// Outcome is the result of one committed round.
type Outcome struct {
	RoundID    string
	Machine    string
	Origin     string
	Units      []reconcile.MergedUnit
	Changed    bool
	Elements   *element.List
	Extraction *extract.Result
	Retries    int
	// Err is set when the round failed. Outcomes are only delivered for
	// rounds that were not cancelled.
	Err error
}

// Configurator runs reconciliation rounds for one machine.
type Configurator struct {
	controller *invoke.Controller
	extractor  *extract.Extractor
	session    *reconcile.Session
	saved      map[string]string
	logger     *slog.Logger
}

// Option configures a Configurator.
type Option func(*Configurator)

// WithLogger sets the configurator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Configurator) { c.logger = logger }
}

// WithSaved restores previously saved selections on the first round.
func WithSaved(saved map[string]string) Option {
	return func(c *Configurator) { c.saved = maps.Clone(saved) }
}

// New creates a configurator driving session.
func New(controller *invoke.Controller, extractor *extract.Extractor, session *reconcile.Session, opts ...Option) *Configurator {
	c := &Configurator{
		controller: controller,
		extractor:  extractor,
		session:    session,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the session the configurator drives.
func (c *Configurator) Session() *reconcile.Session { return c.session }

// Run performs one round. origin names the element whose change triggered
// the round and selections holds the user's choices so far. A cancelled or
// failed round leaves the session as it was before the round started.
func (c *Configurator) Run(ctx context.Context, origin string, selections map[string]string) (*Outcome, error) {
	machine := c.session.Machine()
	out := &Outcome{
		RoundID: uuid.New().String(),
		Machine: machine,
		Origin:  origin,
	}
	log := c.logger.With("round", out.RoundID, "machine", machine)

	// the first round starts from the profile, later ones from the
	// baseline; selections win over both
	baseline := c.session.Baseline()
	saved := make(map[string]string, len(c.saved)+len(selections))
	if baseline == nil {
		maps.Copy(saved, c.saved)
	} else {
		maps.Copy(saved, baseline.Values())
	}
	maps.Copy(saved, selections)

	args := element.Args(baseline, selections)
	if baseline == nil {
		args = element.Args(nil, saved)
	}

	res, err := c.controller.Query(ctx, machine, args)
	if res != nil {
		out.Retries = res.Retries
	}
	if err != nil {
		return out, err
	}

	extraction, err := c.extractor.Extract(res.Document, machine, saved)
	if err != nil {
		return out, fmt.Errorf("failed to extract %s: %w", machine, err)
	}
	out.Extraction = extraction

	if err := c.session.Reset(origin); err != nil {
		return out, err
	}
	for name, value := range selections {
		if err := c.session.Select(name, value); err != nil {
			return out, c.abort(err)
		}
	}
	for _, el := range extraction.Elements {
		if _, err := c.session.Add(el); err != nil {
			return out, c.abort(err)
		}
	}

	if ctx.Err() != nil {
		return out, c.abort(invoke.ErrCancelled)
	}
	if err := c.session.Merge(); err != nil {
		return out, c.abort(err)
	}
	if ctx.Err() != nil {
		return out, c.abort(invoke.ErrCancelled)
	}

	units, changed, err := c.session.Commit()
	if err != nil {
		return out, c.abort(err)
	}
	out.Units = units
	out.Changed = changed
	out.Elements = c.session.Baseline()

	log.Debug("round complete",
		"origin", origin,
		"elements", out.Elements.Len(),
		"changed", changed,
		"retries", out.Retries)
	return out, nil
}

func (c *Configurator) abort(cause error) error {
	if err := c.session.Rollback(); err != nil {
		return fmt.Errorf("%w (rollback: %v)", cause, err)
	}
	return cause
}
