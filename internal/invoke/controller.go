package invoke

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/emucfg/emucfg/internal/listxml"
	"golang.org/x/sync/semaphore"
)

// MaxFallbacks is the number of adjusted retries after the emulator
// rejects an option.
const MaxFallbacks = 2

// DefaultFlag requests structured output from the emulator.
const DefaultFlag = "-listxml"

var (
	// ErrNoResult means no document could be obtained. Callers treat it as
	// "no configuration available".
	ErrNoResult = errors.New("no listxml result")

	// ErrCancelled is returned when the query was abandoned because its
	// context was cancelled.
	ErrCancelled = fmt.Errorf("query cancelled: %w", context.Canceled)
)

// Parsing a full -listxml document is CPU and memory heavy, so only one
// query runs at a time process-wide.
var querySem = semaphore.NewWeighted(1)

var unknownOptionRe = regexp.MustCompile(`^Error: unknown option:?\s+(\S+)`)

// Result is the outcome of one query.
type Result struct {
	// Document is nil when the query failed.
	Document *listxml.Document
	// Retries counts the fallback attempts that were made.
	Retries int
	// Args are the arguments of the last invocation, without the machine
	// name and the structured-output flag.
	Args []string
}

// Controller obtains -listxml documents from the emulator.
type Controller struct {
	runner Runner
	flag   string
	logger *slog.Logger
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithFlag overrides the structured-output flag.
func WithFlag(flag string) ControllerOption {
	return func(c *Controller) { c.flag = flag }
}

// WithLogger sets the controller logger.
func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) { c.logger = logger }
}

// NewController creates a controller that starts processes through r.
func NewController(r Runner, opts ...ControllerOption) *Controller {
	c := &Controller{
		runner: r,
		flag:   DefaultFlag,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query asks the emulator to describe machine when started with args.
//
// When the emulator rejects an option, the query is retried at most
// MaxFallbacks times: first with the singular/plural counterpart of the
// option ("-harddisk1" and "-harddisk"), then without the option and its
// value. Failure is reported as ErrNoResult together with a Result whose
// Document is nil.
func (c *Controller) Query(ctx context.Context, machine string, args []string) (*Result, error) {
	res := &Result{Args: slices.Clone(args)}

	if err := ctx.Err(); err != nil {
		return res, ErrCancelled
	}
	if err := querySem.Acquire(ctx, 1); err != nil {
		return res, ErrCancelled
	}
	defer querySem.Release(1)

	for {
		if ctx.Err() != nil {
			return res, ErrCancelled
		}

		full := append([]string{machine}, res.Args...)
		full = append(full, c.flag)
		c.logger.Debug("querying emulator", "machine", machine, "args", full, "retries", res.Retries)

		doc, errLine, err := c.run(ctx, full)
		if ctx.Err() != nil {
			return res, ErrCancelled
		}
		if err != nil {
			return res, fmt.Errorf("%w: %v", ErrNoResult, err)
		}
		if doc != nil {
			res.Document = doc
			return res, nil
		}

		option, ok := unknownOption(errLine)
		if !ok {
			return res, fmt.Errorf("%w: unexpected emulator output %q", ErrNoResult, errLine)
		}
		if res.Retries >= MaxFallbacks {
			return res, fmt.Errorf("%w: emulator rejected %s after %d fallbacks", ErrNoResult, option, res.Retries)
		}

		next, ok := fallback(res.Args, option, res.Retries)
		if !ok {
			return res, fmt.Errorf("%w: emulator rejected %s which was not requested", ErrNoResult, option)
		}
		c.logger.Warn("emulator rejected option, retrying",
			"machine", machine,
			"option", option,
			"attempt", res.Retries)
		res.Retries++
		res.Args = next

		if ctx.Err() != nil {
			return res, ErrCancelled
		}
	}
}

// run performs one invocation. It returns either a parsed document or the
// first line of output when the output is not structured.
func (c *Controller) run(ctx context.Context, args []string) (*listxml.Document, string, error) {
	rc, err := c.runner.Start(ctx, args)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = rc.Close() }()

	if ctx.Err() != nil {
		return nil, "", ctx.Err()
	}

	br := bufio.NewReader(rc)
	// a process that exits non-zero ends its output with the exit error,
	// so whatever text arrived before it is still usable
	head, err := br.Peek(len(listxml.Prologue))
	if err != nil && len(head) == 0 && !errors.Is(err, io.EOF) {
		return nil, "", fmt.Errorf("failed to read emulator output: %w", err)
	}

	if listxml.HasPrologue(head) {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		doc, err := listxml.Parse(br)
		if err != nil {
			return nil, "", err
		}
		return doc, "", nil
	}

	line, err := br.ReadString('\n')
	if err != nil && line == "" && !errors.Is(err, io.EOF) {
		return nil, "", fmt.Errorf("failed to read emulator output: %w", err)
	}
	return nil, strings.TrimRight(line, "\r\n"), nil
}

// unknownOption extracts the option name from an "unknown option" error.
func unknownOption(line string) (string, bool) {
	m := unknownOptionRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// fallback returns the argument list for the next attempt. Attempt 0 swaps
// the rejected option for its singular/plural counterpart, attempt 1 drops
// the option together with its value.
func fallback(args []string, option string, attempt int) ([]string, bool) {
	i := slices.Index(args, option)
	if i < 0 {
		return nil, false
	}
	next := slices.Clone(args)

	switch attempt {
	case 0:
		next[i] = togglePlural(option)
	case 1:
		end := min(i+2, len(next))
		next = slices.Delete(next, i, end)
	default:
		return nil, false
	}
	return next, true
}

func togglePlural(option string) string {
	if trimmed, ok := strings.CutSuffix(option, "1"); ok {
		return trimmed
	}
	return option + "1"
}
