package controller

import "errors"

// Domain errors for the controller package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, controller.ErrNotFound) {
//	    // handle not found case
//	}
var (
	// ErrNotFound is returned when a controller name is not registered.
	ErrNotFound = errors.New("controller: not found")

	// ErrAlreadyLoaded is returned when loading a controller under a name
	// that is already registered.
	ErrAlreadyLoaded = errors.New("controller: already loaded")

	// ErrInstantiationFailed is returned when the factory cannot produce an
	// instance for the declared type.
	ErrInstantiationFailed = errors.New("controller: instantiation failed")

	// ErrInvalidTransition is returned when a lifecycle operation is not
	// permitted from the controller's current state.
	ErrInvalidTransition = errors.New("controller: invalid transition")

	// ErrCleanupFailed is returned when a reconfigure from Inactive aborts
	// because the cleanup hook failed. The controller remains Inactive.
	ErrCleanupFailed = errors.New("controller: cleanup failed")

	// ErrConfigureFailed is returned when the configure hook fails.
	ErrConfigureFailed = errors.New("controller: configure failed")

	// ErrActivateFailed is returned when the activate hook fails.
	ErrActivateFailed = errors.New("controller: activate failed")

	// ErrFinalized is returned for lifecycle operations on a controller that
	// has been shut down.
	ErrFinalized = errors.New("controller: finalized")

	// ErrStillActive is returned when unloading a controller that is Active.
	ErrStillActive = errors.New("controller: still active")

	// ErrClaimed is returned when mutating a controller that a staged switch
	// request has claimed.
	ErrClaimed = errors.New("controller: claimed by pending switch")

	// ErrRateFrozen is returned when setting the update rate of a controller
	// that has left the Unconfigured state.
	ErrRateFrozen = errors.New("controller: update rate frozen after configure")

	// ErrInvalidStrictness is returned when a strictness value is not
	// recognised.
	ErrInvalidStrictness = errors.New("controller: invalid strictness")
)
