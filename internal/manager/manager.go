package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/pilot-core/internal/controller"
)

// ParamProvider supplies per-controller parameters consulted before
// configure. It is the manager's view of the configuration layer.
type ParamProvider interface {
	// UpdateRate returns the declared update rate for a controller name,
	// and whether one is declared at all.
	UpdateRate(name string) (uint, bool)
}

// EventSink receives lifecycle notifications. Implementations must not
// block: transition events are emitted from lifecycle operations and, for
// switches, from the update-cycle goroutine.
type EventSink interface {
	// ControllerState is emitted after every committed lifecycle transition.
	ControllerState(name string, from, to controller.State)

	// SwitchApplied is emitted after the update cycle applies a staged
	// switch request.
	SwitchApplied(outcome Outcome)
}

// Recorder persists lifecycle history. Implementations must not block.
type Recorder interface {
	RecordTransition(name string, from, to controller.State)
	RecordSwitch(outcome Outcome)
}

// Options configures a Manager.
type Options struct {
	// Factory resolves controller type names to instances. Required.
	Factory controller.Factory

	// UpdateRate is the update-cycle tick rate in Hz and the default rate
	// assigned to freshly loaded controllers. Zero selects the default.
	UpdateRate uint

	// Params supplies per-controller parameters. Optional.
	Params ParamProvider

	// Logger for the manager and its components. Optional.
	Logger Logger

	// Events receives lifecycle notifications. Optional.
	Events EventSink

	// History persists transitions and switches. Optional.
	History Recorder
}

// Manager is the externally callable controller manager.
//
// It composes the registry, switch coordinator and update cycle under one
// API with matching lifetimes, and adds no logic beyond delegation and
// event fan-out.
type Manager struct {
	registry *controller.Registry
	coord    *Coordinator
	cycle    *Cycle
	params   ParamProvider
	logger   Logger
	events   EventSink
	history  Recorder
}

// New creates a controller manager.
func New(opts Options) (*Manager, error) {
	if opts.Factory == nil {
		return nil, fmt.Errorf("manager: factory is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	rate := opts.UpdateRate
	if rate == 0 {
		rate = defaultCycleRate
	}

	registry := controller.NewRegistry(opts.Factory, rate)
	registry.SetLogger(logger)

	coord := NewCoordinator(registry)
	coord.SetLogger(logger)

	cycle := NewCycle(registry, coord, rate)
	cycle.SetLogger(logger)

	m := &Manager{
		registry: registry,
		coord:    coord,
		cycle:    cycle,
		params:   opts.Params,
		logger:   logger,
		events:   opts.Events,
		history:  opts.History,
	}

	registry.SetObserver(m.onTransition)
	coord.SetOnApplied(m.onSwitchApplied)

	return m, nil
}

// onTransition fans out committed lifecycle transitions.
func (m *Manager) onTransition(name string, from, to controller.State) {
	if m.events != nil {
		m.events.ControllerState(name, from, to)
	}
	if m.history != nil {
		m.history.RecordTransition(name, from, to)
	}
}

// onSwitchApplied fans out applied switch requests.
func (m *Manager) onSwitchApplied(outcome Outcome) {
	if m.events != nil {
		m.events.SwitchApplied(outcome)
	}
	if m.history != nil {
		m.history.RecordSwitch(outcome)
	}
}

// Start launches the update cycle.
func (m *Manager) Start(ctx context.Context) error {
	return m.cycle.Start(ctx)
}

// Stop halts the update cycle. Loaded controllers keep their states.
func (m *Manager) Stop() {
	m.cycle.Stop()
}

// LoadController instantiates a controller of the given type and registers
// it under name in state Unconfigured. It returns a nil handle on failure
// with the registry unchanged.
func (m *Manager) LoadController(name, typeName string) (*controller.Handle, error) {
	h, err := m.registry.Load(name, typeName)
	if err != nil {
		return nil, err
	}
	if m.events != nil {
		// An empty from state marks the initial load.
		m.events.ControllerState(name, "", controller.StateUnconfigured)
	}
	return h, nil
}

// UnloadController removes a controller. It fails while the controller is
// Active or claimed by a staged switch request.
func (m *Manager) UnloadController(name string) error {
	return m.registry.Unload(name)
}

// ConfigureController runs the configure transition for the named
// controller, consulting the parameter provider for a declared update rate
// first. The rate is frozen once configure succeeds.
func (m *Manager) ConfigureController(name string) error {
	if m.params != nil {
		if rate, ok := m.params.UpdateRate(name); ok {
			if err := m.registry.SetUpdateRate(name, rate); err != nil {
				// A frozen rate is not an error: the declared value only
				// applies to the first configure.
				if !errors.Is(err, controller.ErrRateFrozen) {
					return err
				}
				m.logger.Debug("update rate already frozen", "name", name)
			}
		}
	}
	return m.registry.Configure(name)
}

// SetUpdateRate declares a controller's update rate ahead of its first
// configure. It fails once the rate is frozen.
func (m *Manager) SetUpdateRate(name string, rate uint) error {
	return m.registry.SetUpdateRate(name, rate)
}

// ShutdownController moves a controller to the terminal Finalized state.
func (m *Manager) ShutdownController(name string) error {
	return m.registry.Shutdown(name)
}

// SwitchController atomically deactivates the stop set and activates the
// start set at the top of the next update-cycle tick, blocking the caller
// until the request is applied.
//
// See Coordinator.Switch for the strictness, no-op and timeout contract.
func (m *Manager) SwitchController(start, stop []string, strictness controller.Strictness, startASAP bool, timeout time.Duration) error {
	return m.coord.Switch(start, stop, strictness, startASAP, timeout)
}

// SwitchPending reports whether a switch request is staged and unconsumed.
func (m *Manager) SwitchPending() bool {
	return m.coord.Pending()
}

// LoadedControllers returns a point-in-time snapshot of handles for all
// registered controllers, in registration order.
func (m *Manager) LoadedControllers() []*controller.Handle {
	return m.registry.Handles()
}

// GetController returns a handle for the named controller.
func (m *Manager) GetController(name string) (*controller.Handle, error) {
	return m.registry.Handle(name)
}

// ControllerCount returns the number of registered controllers.
func (m *Manager) ControllerCount() int {
	return m.registry.Count()
}

// Cycle returns the update cycle, for startup wiring and stats queries.
func (m *Manager) Cycle() *Cycle {
	return m.cycle
}

// RegistryStats returns current registry statistics.
func (m *Manager) RegistryStats() controller.Stats {
	return m.registry.GetStats()
}
