package controller

// Handle is a non-owning view of a loaded controller.
//
// Handles are returned by the registry for inspection only: state and
// update-rate reads route through the registry's lock, and there is no way
// to reach the underlying instance. All mutation goes through the manager.
//
// A handle stays valid after its controller is unloaded; reads then report
// StateFinalized and a zero update rate.
type Handle struct {
	registry *Registry
	name     string
	typeName string
}

// Name returns the controller's unique name.
func (h *Handle) Name() string {
	return h.name
}

// Type returns the controller's declared type name.
func (h *Handle) Type() string {
	return h.typeName
}

// State returns the controller's current lifecycle state.
func (h *Handle) State() State {
	st, err := h.registry.State(h.name)
	if err != nil {
		return StateFinalized
	}
	return st
}

// UpdateRate returns the controller's configured update rate in Hz.
func (h *Handle) UpdateRate() uint {
	rate, err := h.registry.UpdateRate(h.name)
	if err != nil {
		return 0
	}
	return rate
}

// Resources returns the resource identifiers the controller claims, if it
// reports any. The identifiers are opaque to the registry.
func (h *Handle) Resources() []string {
	h.registry.mu.RLock()
	defer h.registry.mu.RUnlock()
	s, ok := h.registry.slots[h.name]
	if !ok {
		return nil
	}
	if rc, ok := s.instance.(ResourceClaimer); ok {
		return rc.ClaimedResources()
	}
	return nil
}
