// Package controller holds the state of one import/export form and runs
// conversions off the caller's goroutine, one at a time.
package controller

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/nconklindev/sas2xlsx/internal/converter"
	"github.com/nconklindev/sas2xlsx/internal/types"
)

type State int

const (
	Idle State = iota
	Running
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Running:
		return "Export in progress..."
	case Done:
		return "Export successful!"
	case Failed:
		return "Export failed"
	}
	return ""
}

const (
	MsgMissingSource = "Please select a SAS file to export"
	MsgMissingBoth   = "Please select both files"
)

// ErrBusy is returned by Trigger while a conversion is in flight. Nothing is started.
var ErrBusy = errors.New("a conversion is already running")

// MissingInputError means Trigger was called before the required paths were set.
type MissingInputError struct {
	Message string
}

func (e *MissingInputError) Error() string {
	return e.Message
}

type ConvertFunc func(types.ConversionRequest) (*types.ConversionResult, error)

// Outcome is delivered once per triggered conversion, success or not.
type Outcome struct {
	Request types.ConversionRequest
	Result  *types.ConversionResult
	Err     error
}

type Snapshot struct {
	Source      string
	Destination string
	Derived     bool
	State       State
	Err         error
}

type Controller struct {
	mu          sync.Mutex
	convert     ConvertFunc
	logger      *slog.Logger
	source      string
	destination string
	derived     bool
	state       State
	err         error
}

type Option func(*Controller)

func WithDerivedPath(derived bool) Option {
	return func(c *Controller) {
		c.derived = derived
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// New returns an idle controller. The derived path policy starts on.
func New(convert ConvertFunc, opts ...Option) *Controller {
	c := &Controller{
		convert: convert,
		derived: true,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) SetSource(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.source = path
	if c.derived {
		c.destination = converter.DerivedPath(path)
	}
}

func (c *Controller) SetDestination(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.destination = path
}

// SetDerivedPathPolicy toggles the policy. Turning it on recomputes the
// destination; turning it off keeps the last destination for editing.
func (c *Controller) SetDerivedPathPolicy(derived bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.derived = derived
	if derived {
		c.destination = converter.DerivedPath(c.source)
	}
}

func (c *Controller) Source() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source
}

func (c *Controller) Destination() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destination
}

func (c *Controller) DerivedPathPolicy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.derived
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the error of the last failed conversion.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Source:      c.source,
		Destination: c.destination,
		Derived:     c.derived,
		State:       c.state,
		Err:         c.err,
	}
}

// Trigger validates the form and starts a conversion on a new goroutine.
// The returned channel receives exactly one Outcome and is then closed; the
// state has already moved to Done or Failed when the Outcome arrives.
func (c *Controller) Trigger() (<-chan Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Running {
		return nil, ErrBusy
	}
	if err := c.validate(); err != nil {
		return nil, err
	}

	if c.derived {
		c.destination = converter.DerivedPath(c.source)
	}
	req := types.ConversionRequest{SourcePath: c.source, DestinationPath: c.destination}

	c.state = Running
	c.err = nil
	c.logger.Info("conversion started", "source", req.SourcePath, "destination", req.DestinationPath)

	outcomes := make(chan Outcome, 1)
	go c.run(req, outcomes)

	return outcomes, nil
}

func (c *Controller) validate() error {
	if c.derived {
		if c.source == "" {
			return &MissingInputError{Message: MsgMissingSource}
		}
		return nil
	}
	if c.source == "" || c.destination == "" {
		return &MissingInputError{Message: MsgMissingBoth}
	}
	return nil
}

func (c *Controller) run(req types.ConversionRequest, outcomes chan<- Outcome) {
	start := time.Now()
	result, err := c.convert(req)

	c.mu.Lock()
	if err != nil {
		c.state = Failed
		c.err = err
		c.logger.Error("conversion failed", "source", req.SourcePath, "destination", req.DestinationPath, "error", err)
	} else {
		c.state = Done
		c.logger.Info("conversion finished", "destination", req.DestinationPath, "elapsed", time.Since(start))
	}
	c.mu.Unlock()

	outcomes <- Outcome{Request: req, Result: result, Err: err}
	close(outcomes)
}
