package plugin

import "errors"

// Domain errors for the plugin package.
var (
	// ErrUnknownType is returned when no constructor is registered for a
	// type name.
	ErrUnknownType = errors.New("plugin: unknown type")

	// ErrTypeExists is returned when registering a duplicate type name.
	ErrTypeExists = errors.New("plugin: type already registered")

	// ErrInvalidType is returned for an empty type name or nil constructor.
	ErrInvalidType = errors.New("plugin: invalid registration")

	// ErrConstructionFailed is returned when a registered constructor
	// fails or panics.
	ErrConstructionFailed = errors.New("plugin: construction failed")
)
