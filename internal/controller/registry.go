package controller

import (
	"fmt"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
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

// Observer is notified after every committed lifecycle transition.
// It is invoked outside the registry lock and must not block.
type Observer func(name string, from, to State)

// slot is the registry's record for one loaded controller. The instance
// pointer is never nil once the slot exists and is owned exclusively by
// the registry.
type slot struct {
	name       string
	typeName   string
	instance   Controller
	state      State
	updateRate uint
	claimed    bool // reserved by a staged switch request
}

// Registry is the name-keyed table of controller slots.
//
// It owns every controller instance, enforces the lifecycle state machine
// on each slot, and preserves registration order for the update cycle.
//
// All public methods are thread-safe.
type Registry struct {
	factory     Factory
	defaultRate uint

	mu    sync.RWMutex
	slots map[string]*slot
	order []string // registration order, drives update order

	logger   Logger
	observer Observer
}

// NewRegistry creates a new controller registry.
// defaultRate is the update rate assigned to freshly loaded controllers
// until a configure freezes a different value.
func NewRegistry(factory Factory, defaultRate uint) *Registry {
	return &Registry{
		factory:     factory,
		defaultRate: defaultRate,
		slots:       make(map[string]*slot),
		logger:      noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetObserver sets the transition observer. Pass nil to remove it.
func (r *Registry) SetObserver(obs Observer) {
	r.mu.Lock()
	r.observer = obs
	r.mu.Unlock()
}

// notify invokes the observer outside the registry lock.
func (r *Registry) notify(name string, from, to State) {
	r.mu.RLock()
	obs := r.observer
	r.mu.RUnlock()
	if obs != nil {
		obs(name, from, to)
	}
}

// Load instantiates a controller of the given type and registers it under
// name in state Unconfigured.
//
// It returns a nil handle and leaves the registry unchanged if the name is
// already registered or the factory cannot produce an instance.
func (r *Registry) Load(name, typeName string) (*Handle, error) {
	r.mu.Lock()
	if _, exists := r.slots[name]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrAlreadyLoaded, name)
	}
	r.mu.Unlock()

	// Instantiate without holding the lock; construction may be slow.
	instance, err := r.factory.Instantiate(typeName)
	if err != nil {
		return nil, fmt.Errorf("%w: type %q: %w", ErrInstantiationFailed, typeName, err)
	}
	if instance == nil {
		return nil, fmt.Errorf("%w: type %q: factory returned nil", ErrInstantiationFailed, typeName)
	}

	r.mu.Lock()
	// Re-check: a concurrent Load may have won the name.
	if _, exists := r.slots[name]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrAlreadyLoaded, name)
	}
	r.slots[name] = &slot{
		name:       name,
		typeName:   typeName,
		instance:   instance,
		state:      StateUnconfigured,
		updateRate: r.defaultRate,
	}
	r.order = append(r.order, name)
	r.mu.Unlock()

	r.logger.Info("controller loaded", "name", name, "type", typeName)
	return &Handle{registry: r, name: name, typeName: typeName}, nil
}

// Unload removes a controller slot. The slot's shutdown hook is invoked and
// the instance released.
//
// Unload is refused while the controller is Active or claimed by a staged
// switch request.
func (r *Registry) Unload(name string) error {
	r.mu.Lock()
	s, ok := r.slots[name]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if s.state == StateActive {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrStillActive, name)
	}
	if s.claimed {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrClaimed, name)
	}

	from := s.state
	if s.state != StateFinalized {
		if err := s.instance.OnShutdown(); err != nil {
			r.logger.Warn("shutdown hook failed during unload", "name", name, "error", err)
		}
		s.state = StateFinalized
	}

	delete(r.slots, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	r.logger.Info("controller unloaded", "name", name, "type", s.typeName)
	if from != StateFinalized {
		r.notify(name, from, StateFinalized)
	}
	return nil
}

// ClaimEligible claims every candidate that is registered and in the want
// state, marking the slots as reserved for a staged switch request.
//
// Under strict policy any unknown name or wrong-state candidate fails the
// whole call: nothing stays claimed and an error describing the offender is
// returned. Otherwise offenders are silently dropped and only the eligible
// remainder is claimed.
//
// The returned names preserve the candidate order. Claims are released with
// Release.
func (r *Registry) ClaimEligible(candidates []string, want State, strict bool) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	claimed := make([]string, 0, len(candidates))
	release := func() {
		for _, n := range claimed {
			r.slots[n].claimed = false
		}
	}

	for _, name := range candidates {
		s, ok := r.slots[name]
		if !ok {
			if strict {
				release()
				return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
			}
			continue
		}
		if s.state != want {
			if strict {
				release()
				return nil, fmt.Errorf("%w: %q is %q, want %q", ErrInvalidTransition, name, s.state, want)
			}
			continue
		}
		if s.claimed {
			// Already reserved by another staged request; the coordinator's
			// single-slot holder makes this unreachable in practice.
			if strict {
				release()
				return nil, fmt.Errorf("%w: %q", ErrClaimed, name)
			}
			continue
		}
		s.claimed = true
		claimed = append(claimed, name)
	}
	return claimed, nil
}

// Release clears the switch claim on the given controllers.
func (r *Registry) Release(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		if s, ok := r.slots[name]; ok {
			s.claimed = false
		}
	}
}

// UpdateActive invokes the periodic update callback on every Active
// controller in registration order. dt is the time since the previous tick.
//
// Hook errors are collected per controller and returned; they never abort
// the pass.
func (r *Registry) UpdateActive(dt time.Duration) map[string]error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var failures map[string]error
	for _, name := range r.order {
		s := r.slots[name]
		if s.state != StateActive {
			continue
		}
		if err := s.instance.Update(dt); err != nil {
			if failures == nil {
				failures = make(map[string]error)
			}
			failures[name] = err
		}
	}
	return failures
}

// Handle returns a non-owning handle for the named controller.
func (r *Registry) Handle(name string) (*Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.slots[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return &Handle{registry: r, name: s.name, typeName: s.typeName}, nil
}

// Handles returns a point-in-time snapshot of handles for all registered
// controllers, in registration order.
func (r *Registry) Handles() []*Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handles := make([]*Handle, 0, len(r.order))
	for _, name := range r.order {
		s := r.slots[name]
		handles = append(handles, &Handle{registry: r, name: s.name, typeName: s.typeName})
	}
	return handles
}

// Count returns the number of registered controllers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.slots)
}

// State returns the lifecycle state of the named controller.
func (r *Registry) State(name string) (State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.slots[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return s.state, nil
}

// UpdateRate returns the configured update rate of the named controller.
func (r *Registry) UpdateRate(name string) (uint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.slots[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return s.updateRate, nil
}

// SetUpdateRate sets the update rate of an Unconfigured controller. The
// rate is frozen once the controller leaves Unconfigured; later calls fail
// with ErrRateFrozen and have no effect on the reported value.
func (r *Registry) SetUpdateRate(name string, rate uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if s.state != StateUnconfigured {
		return fmt.Errorf("%w: %q", ErrRateFrozen, name)
	}
	s.updateRate = rate
	return nil
}

// Stats returns registry statistics for monitoring.
type Stats struct {
	Total   int            `json:"total"`
	ByState map[State]int  `json:"by_state"`
	ByType  map[string]int `json:"by_type"`
}

// GetStats returns current registry statistics.
func (r *Registry) GetStats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{
		Total:   len(r.slots),
		ByState: make(map[State]int),
		ByType:  make(map[string]int),
	}
	for _, s := range r.slots {
		stats.ByState[s.state]++
		stats.ByType[s.typeName]++
	}
	return stats
}
