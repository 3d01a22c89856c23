// Package plugin provides the type-name-keyed controller factory for
// Pilot Core.
//
// Controller implementations register a constructor under a type name, and
// the registry resolves names to fresh instances on demand. This is the
// process-local stand-in for a dynamic plugin loader: the controller
// registry only ever sees the factory interface, so the resolution
// mechanism can be replaced without touching the lifecycle engine.
//
// Type names are conventionally namespaced, e.g. "pilot/noop".
//
// All methods are safe for concurrent use.
package plugin
