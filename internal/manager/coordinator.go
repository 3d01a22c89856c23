package manager

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/pilot-core/internal/controller"
)

// Logger defines the logging interface used by the manager package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// stagedRequest is a validated switch request waiting to be applied by the
// next tick. The name lists are already filtered: every entry is claimed and
// in the required source state.
type stagedRequest struct {
	start      []string
	stop       []string
	strictness controller.Strictness
	startASAP  bool
	stagedAt   time.Time

	// result receives the aggregate apply outcome exactly once.
	result chan error
}

// Outcome describes an applied switch request.
type Outcome struct {
	Started    []string
	Stopped    []string
	Strictness controller.Strictness
	StartASAP  bool
	Err        error
	StagedAt   time.Time
	AppliedAt  time.Time
}

// Coordinator validates switch requests against current registry state,
// stages them into a single-slot pending holder, and blocks the calling
// goroutine until the update cycle applies them.
//
// At most one request is staged at a time. A request is either fully
// validated before staging or never staged; there is no partial staging.
type Coordinator struct {
	registry *controller.Registry
	logger   Logger

	mu      sync.Mutex
	pending *stagedRequest

	// onApplied, if set, is invoked from the update-cycle goroutine after a
	// request is applied. It must not block.
	onApplied func(Outcome)
}

// NewCoordinator creates a switch coordinator over the given registry.
func NewCoordinator(registry *controller.Registry) *Coordinator {
	return &Coordinator{
		registry: registry,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the coordinator.
func (c *Coordinator) SetLogger(logger Logger) {
	c.logger = logger
}

// SetOnApplied sets the callback invoked after each applied request.
func (c *Coordinator) SetOnApplied(fn func(Outcome)) {
	c.mu.Lock()
	c.onApplied = fn
	c.mu.Unlock()
}

// Pending reports whether a request is currently staged.
func (c *Coordinator) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil
}

// Switch validates and stages a switch request, then blocks until the
// update cycle applies it.
//
// Under StrictnessStrict any unknown name, any start candidate that is not
// Inactive, or any stop candidate that is not Active rejects the whole
// request synchronously with ErrValidationRejected: nothing is staged and
// no slot state changes. Under best-effort (including unspecified)
// strictness, offending names are dropped and the request proceeds with
// the remainder.
//
// If both lists are empty after filtering, Switch returns nil immediately
// without staging — no update-cycle round trip is needed.
//
// A zero timeout waits indefinitely for the next tick. A positive timeout
// withdraws the staged request and returns ErrSwitchTimeout if no tick has
// consumed it in time; if a tick has already claimed the request, Switch
// waits out the in-flight application and returns its result.
func (c *Coordinator) Switch(start, stop []string, strictness controller.Strictness, startASAP bool, timeout time.Duration) error {
	strict := strictness == controller.StrictnessStrict

	// Stops are validated and claimed first; a controller leaving the stop
	// set releases its resources before any new claimant activates.
	claimedStop, err := c.registry.ClaimEligible(stop, controller.StateActive, strict)
	if err != nil {
		return fmt.Errorf("%w: stop list: %w", ErrValidationRejected, err)
	}
	claimedStart, err := c.registry.ClaimEligible(start, controller.StateInactive, strict)
	if err != nil {
		c.registry.Release(claimedStop...)
		return fmt.Errorf("%w: start list: %w", ErrValidationRejected, err)
	}

	// Trivial no-op: nothing left to do after policy filtering.
	if len(claimedStart) == 0 && len(claimedStop) == 0 {
		return nil
	}

	req := &stagedRequest{
		start:      claimedStart,
		stop:       claimedStop,
		strictness: strictness,
		startASAP:  startASAP,
		stagedAt:   time.Now().UTC(),
		result:     make(chan error, 1),
	}

	c.mu.Lock()
	if c.pending != nil {
		c.mu.Unlock()
		c.registry.Release(claimedStop...)
		c.registry.Release(claimedStart...)
		return ErrSwitchInProgress
	}
	c.pending = req
	c.mu.Unlock()

	c.logger.Debug("switch request staged",
		"start", claimedStart,
		"stop", claimedStop,
		"strictness", strictness,
		"start_asap", startASAP,
	)

	if timeout <= 0 {
		return <-req.result
	}

	select {
	case applyErr := <-req.result:
		return applyErr
	case <-time.After(timeout):
	}

	// Withdraw if the request is still staged. If a tick has already taken
	// it, the application is in flight and bounded; wait for its result.
	c.mu.Lock()
	if c.pending == req {
		c.pending = nil
		c.mu.Unlock()
		c.registry.Release(req.stop...)
		c.registry.Release(req.start...)
		c.logger.Warn("switch request withdrawn after timeout", "timeout", timeout)
		return ErrSwitchTimeout
	}
	c.mu.Unlock()
	return <-req.result
}

// ApplyPending consumes and applies the staged request, if any. It is
// called by the update cycle at the top of each tick; callers blocked in
// Switch are woken with the aggregate result.
//
// Deactivations run before activations, in the request's fixed order. Once
// application begins it runs to completion within the tick; there is no
// mid-application cancellation.
//
// Returns true if a request was applied.
func (c *Coordinator) ApplyPending() bool {
	c.mu.Lock()
	req := c.pending
	c.pending = nil
	onApplied := c.onApplied
	c.mu.Unlock()

	if req == nil {
		return false
	}

	var failures []error
	stopped := make([]string, 0, len(req.stop))
	started := make([]string, 0, len(req.start))

	for _, name := range req.stop {
		if err := c.registry.Deactivate(name); err != nil {
			failures = append(failures, err)
			continue
		}
		stopped = append(stopped, name)
	}
	for _, name := range req.start {
		if err := c.registry.Activate(name); err != nil {
			failures = append(failures, err)
			continue
		}
		started = append(started, name)
	}

	c.registry.Release(req.stop...)
	c.registry.Release(req.start...)

	// Validation already checked every name against state that could not
	// change while claimed, so failures here are hook-level. Best-effort
	// requests absorb them; strict requests surface them.
	var aggregate error
	if len(failures) > 0 {
		c.logger.Warn("switch applied with failures",
			"started", started,
			"stopped", stopped,
			"failures", len(failures),
		)
		if req.strictness == controller.StrictnessStrict {
			aggregate = fmt.Errorf("%w: %w", ErrSwitchFailed, errors.Join(failures...))
		}
	} else {
		c.logger.Info("switch applied", "started", started, "stopped", stopped)
	}

	outcome := Outcome{
		Started:    started,
		Stopped:    stopped,
		Strictness: req.strictness,
		StartASAP:  req.startASAP,
		Err:        aggregate,
		StagedAt:   req.stagedAt,
		AppliedAt:  time.Now().UTC(),
	}

	req.result <- aggregate
	if onApplied != nil {
		onApplied(outcome)
	}
	return true
}
