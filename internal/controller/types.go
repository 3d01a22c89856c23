package controller

import (
	"fmt"
	"time"
)

// State represents a controller's lifecycle state.
type State string

const (
	// StateUnconfigured is the initial state after loading. The controller
	// exists but has not acquired any configuration or resources.
	StateUnconfigured State = "unconfigured"

	// StateInactive means the controller is configured but not executing.
	StateInactive State = "inactive"

	// StateActive means the controller is executed by the update cycle.
	StateActive State = "active"

	// StateFinalized is terminal. A finalized controller accepts no further
	// lifecycle transitions.
	StateFinalized State = "finalized"
)

// Valid reports whether s is one of the four lifecycle states.
func (s State) Valid() bool {
	switch s {
	case StateUnconfigured, StateInactive, StateActive, StateFinalized:
		return true
	}
	return false
}

// Strictness governs how a switch request treats unknown or ineligible
// controller names.
type Strictness string

const (
	// StrictnessUnspecified applies best-effort filtering.
	StrictnessUnspecified Strictness = "unspecified"

	// StrictnessStrict rejects the entire request if any name is unknown or
	// not in the required source state.
	StrictnessStrict Strictness = "strict"

	// StrictnessBestEffort silently drops unknown and ineligible names and
	// proceeds with the remainder.
	StrictnessBestEffort Strictness = "best_effort"
)

// ParseStrictness converts a string to a Strictness value.
// An empty string maps to StrictnessUnspecified.
func ParseStrictness(s string) (Strictness, error) {
	switch Strictness(s) {
	case "", StrictnessUnspecified:
		return StrictnessUnspecified, nil
	case StrictnessStrict:
		return StrictnessStrict, nil
	case StrictnessBestEffort:
		return StrictnessBestEffort, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStrictness, s)
}

// Controller is the capability set every control-policy plugin implements.
//
// Hooks return nil on success. A non-nil error is interpreted by the
// lifecycle state machine; it never terminates the process. All hooks must
// be bounded in time — the update cycle budget depends on it.
type Controller interface {
	// OnConfigure acquires configuration. Called on the transition
	// Unconfigured → Inactive.
	OnConfigure() error

	// OnActivate claims runtime resources. Called on Inactive → Active.
	OnActivate() error

	// OnDeactivate releases runtime resources. Called on Active → Inactive.
	OnDeactivate() error

	// OnCleanup returns the controller to a fresh unconfigured state.
	// Called as the first half of a reconfigure from Inactive.
	OnCleanup() error

	// OnShutdown is the terminal hook. Called on the transition to Finalized.
	OnShutdown() error

	// Update is the periodic callback, invoked every tick while Active.
	// dt is the time since the previous tick.
	Update(dt time.Duration) error
}

// ResourceClaimer is an optional interface a controller may implement to
// report the resource identifiers it claims while Active. The identifiers
// are opaque to the registry; they exist for inspection only.
type ResourceClaimer interface {
	ClaimedResources() []string
}

// Factory resolves a declared type name to a controller instance.
// It is the registry's only collaborator for instantiation; the concrete
// plugin-loading mechanism lives behind it.
type Factory interface {
	// Instantiate returns a new controller for the given type name.
	// It returns an error for unknown types and failed construction.
	Instantiate(typeName string) (Controller, error)
}
