package controller

import "fmt"

// Configure runs the configure transition for the named controller.
//
// From Unconfigured the configure hook is invoked directly. From Inactive
// the cleanup hook runs first; if cleanup fails the operation aborts with
// the controller still Inactive. If cleanup succeeds but the subsequent
// configure fails, the controller is left Unconfigured, mirroring the
// from-Unconfigured failure case.
//
// Configuring an Active or Finalized controller is always an error with no
// state change.
func (r *Registry) Configure(name string) error {
	r.mu.Lock()
	s, ok := r.slots[name]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if s.claimed {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrClaimed, name)
	}

	from := s.state
	switch from {
	case StateUnconfigured:
		// Fall through to the configure hook.
	case StateInactive:
		if err := s.instance.OnCleanup(); err != nil {
			r.mu.Unlock()
			r.logger.Warn("cleanup failed, reconfigure aborted", "name", name, "error", err)
			return fmt.Errorf("%w: %q: %w", ErrCleanupFailed, name, err)
		}
		s.state = StateUnconfigured
	case StateActive:
		r.mu.Unlock()
		return fmt.Errorf("%w: configure while active: %q", ErrInvalidTransition, name)
	case StateFinalized:
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrFinalized, name)
	default:
		r.mu.Unlock()
		return fmt.Errorf("%w: %q in state %q", ErrInvalidTransition, name, from)
	}

	if err := s.instance.OnConfigure(); err != nil {
		// The slot stays (or becomes) Unconfigured, matching the plain
		// configure failure case.
		to := s.state
		r.mu.Unlock()
		r.logger.Warn("configure hook failed", "name", name, "error", err)
		if from != to {
			r.notify(name, from, to)
		}
		return fmt.Errorf("%w: %q: %w", ErrConfigureFailed, name, err)
	}
	s.state = StateInactive
	rate := s.updateRate
	r.mu.Unlock()

	r.logger.Info("controller configured", "name", name, "update_rate", rate)
	if from != StateInactive {
		r.notify(name, from, StateInactive)
	}
	return nil
}

// Activate runs the activate transition. Only an Inactive controller can be
// activated; a failed activate hook leaves it Inactive.
func (r *Registry) Activate(name string) error {
	r.mu.Lock()
	s, ok := r.slots[name]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if s.state != StateInactive {
		st := s.state
		r.mu.Unlock()
		return fmt.Errorf("%w: activate from %q: %q", ErrInvalidTransition, st, name)
	}
	if err := s.instance.OnActivate(); err != nil {
		r.mu.Unlock()
		r.logger.Warn("activate hook failed", "name", name, "error", err)
		return fmt.Errorf("%w: %q: %w", ErrActivateFailed, name, err)
	}
	s.state = StateActive
	r.mu.Unlock()

	r.logger.Info("controller activated", "name", name)
	r.notify(name, StateInactive, StateActive)
	return nil
}

// Deactivate runs the deactivate transition. A failed deactivate hook is
// surfaced in the logs but the controller is still considered stopped.
func (r *Registry) Deactivate(name string) error {
	r.mu.Lock()
	s, ok := r.slots[name]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if s.state != StateActive {
		st := s.state
		r.mu.Unlock()
		return fmt.Errorf("%w: deactivate from %q: %q", ErrInvalidTransition, st, name)
	}
	if err := s.instance.OnDeactivate(); err != nil {
		r.logger.Warn("deactivate hook failed", "name", name, "error", err)
	}
	s.state = StateInactive
	r.mu.Unlock()

	r.logger.Info("controller deactivated", "name", name)
	r.notify(name, StateActive, StateInactive)
	return nil
}

// Shutdown moves a controller to the terminal Finalized state from any
// state. All subsequent configure/activate requests on this slot fail.
func (r *Registry) Shutdown(name string) error {
	r.mu.Lock()
	s, ok := r.slots[name]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if s.claimed {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrClaimed, name)
	}
	from := s.state
	if from == StateFinalized {
		r.mu.Unlock()
		return nil
	}
	if err := s.instance.OnShutdown(); err != nil {
		r.logger.Warn("shutdown hook failed", "name", name, "error", err)
	}
	s.state = StateFinalized
	r.mu.Unlock()

	r.logger.Info("controller shut down", "name", name)
	r.notify(name, from, StateFinalized)
	return nil
}
