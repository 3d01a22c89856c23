package manager

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/pilot-core/internal/controller"
)

// defaultCycleRate is the tick rate used when none is configured.
const defaultCycleRate = 100 // Hz

// MetricsSink receives tick timing measurements from the update cycle.
// Implementations must not block; the tick budget depends on it.
type MetricsSink interface {
	// Tick reports one completed tick: how long the tick body took, whether
	// it overran the cycle period, and how many controllers were updated.
	Tick(duration time.Duration, overrun bool, active int)
}

// noopMetrics discards tick measurements.
type noopMetrics struct{}

func (noopMetrics) Tick(time.Duration, bool, int) {}

// Cycle is the periodic driver of the controller manager.
//
// Each tick applies at most one staged switch request, then runs the
// periodic update callback of every Active controller in registration
// order. All tick work is bounded: lifecycle hooks and update callbacks
// are assumed bounded, and nothing in the tick body waits on callers.
//
// The tick body is exposed as Step so tests and external drivers can
// advance the cycle deterministically without the internal ticker.
type Cycle struct {
	registry *controller.Registry
	coord    *Coordinator
	rate     uint
	logger   Logger
	metrics  MetricsSink

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	done     chan struct{}
	lastTick time.Time
	ticks    uint64
	overruns uint64
}

// NewCycle creates an update cycle over the given registry and coordinator.
// rate is the tick frequency in Hz; zero selects the default.
func NewCycle(registry *controller.Registry, coord *Coordinator, rate uint) *Cycle {
	if rate == 0 {
		rate = defaultCycleRate
	}
	return &Cycle{
		registry: registry,
		coord:    coord,
		rate:     rate,
		logger:   noopLogger{},
		metrics:  noopMetrics{},
	}
}

// SetLogger sets the logger for the cycle.
func (c *Cycle) SetLogger(logger Logger) {
	c.logger = logger
}

// SetMetrics sets the tick metrics sink.
func (c *Cycle) SetMetrics(sink MetricsSink) {
	c.metrics = sink
}

// Rate returns the configured tick rate in Hz.
func (c *Cycle) Rate() uint {
	return c.rate
}

// Period returns the duration of one cycle period.
func (c *Cycle) Period() time.Duration {
	return time.Second / time.Duration(c.rate)
}

// Start launches the tick loop in a background goroutine. It returns
// ErrCycleRunning if the loop is already running.
func (c *Cycle) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrCycleRunning
	}
	var loopCtx context.Context
	loopCtx, c.cancel = context.WithCancel(ctx)
	c.running = true
	c.done = make(chan struct{})
	c.lastTick = time.Time{}
	c.mu.Unlock()

	go c.run(loopCtx)

	c.logger.Info("update cycle started", "rate_hz", c.rate, "period", c.Period())
	return nil
}

// Stop halts the tick loop and waits for the in-flight tick, if any, to
// complete. A staged switch request left unconsumed stays staged until the
// next Start or an explicit Step.
func (c *Cycle) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	cancel()
	<-done

	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	c.logger.Info("update cycle stopped")
}

// Running reports whether the tick loop is active.
func (c *Cycle) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// run is the ticker loop. It exits when ctx is cancelled.
func (c *Cycle) run(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.Period())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.Step(now)
		}
	}
}

// Step executes one tick at the given instant: drain the staged switch
// request, then update every Active controller.
func (c *Cycle) Step(now time.Time) {
	c.mu.Lock()
	dt := c.Period()
	if !c.lastTick.IsZero() {
		dt = now.Sub(c.lastTick)
	}
	c.lastTick = now
	c.mu.Unlock()

	start := time.Now()

	c.coord.ApplyPending()

	failures := c.registry.UpdateActive(dt)
	for name, err := range failures {
		c.logger.Error("controller update failed", "name", name, "error", err)
	}

	elapsed := time.Since(start)
	overrun := elapsed > c.Period()
	active := c.registry.GetStats().ByState[controller.StateActive]

	c.mu.Lock()
	c.ticks++
	if overrun {
		c.overruns++
	}
	c.mu.Unlock()

	if overrun {
		c.logger.Warn("tick overran cycle period",
			"elapsed", elapsed,
			"period", c.Period(),
			"active", active,
		)
	}
	c.metrics.Tick(elapsed, overrun, active)
}

// CycleStats reports tick counters for monitoring.
type CycleStats struct {
	RateHz   uint   `json:"rate_hz"`
	Running  bool   `json:"running"`
	Ticks    uint64 `json:"ticks"`
	Overruns uint64 `json:"overruns"`
}

// Stats returns current cycle statistics.
func (c *Cycle) Stats() CycleStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CycleStats{
		RateHz:   c.rate,
		Running:  c.running,
		Ticks:    c.ticks,
		Overruns: c.overruns,
	}
}
