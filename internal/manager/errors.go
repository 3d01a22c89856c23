package manager

import "errors"

// Domain errors for the manager package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, manager.ErrSwitchInProgress) {
//	    // retry after the pending switch resolves
//	}
var (
	// ErrValidationRejected is returned when a strict switch request names
	// an unknown or ineligible controller. Nothing is staged and no slot
	// state changes.
	ErrValidationRejected = errors.New("switch: validation rejected")

	// ErrSwitchInProgress is returned when a switch request arrives while
	// another request is already staged and unconsumed.
	ErrSwitchInProgress = errors.New("switch: request already pending")

	// ErrSwitchTimeout is returned when a staged request is not consumed by
	// the update cycle within the requested bound. The request is withdrawn.
	ErrSwitchTimeout = errors.New("switch: timed out waiting for update cycle")

	// ErrSwitchFailed is returned when applying a strict request fails at
	// the hook level despite passing validation.
	ErrSwitchFailed = errors.New("switch: apply failed")

	// ErrCycleRunning is returned when starting an update cycle that is
	// already running.
	ErrCycleRunning = errors.New("cycle: already running")
)
