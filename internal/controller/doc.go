// Package controller provides the controller registry and lifecycle state
// machine for Pilot Core.
//
// A controller is a pluggable control-policy instance. The registry is the
// single owner of every loaded controller: it instantiates them through an
// injected factory, tracks their lifecycle state, and exposes non-owning
// handles for inspection. All mutation routes through the registry; handles
// are read-only.
//
// # Lifecycle
//
// Every controller moves through four states:
//
//	Unconfigured ──configure──▶ Inactive ──activate──▶ Active
//	     ▲                        │   ▲                  │
//	     └───(cleanup+configure)──┘   └────deactivate────┘
//
//	any state ──shutdown──▶ Finalized (terminal)
//
// Hook failures never corrupt state: a failed configure leaves the controller
// Unconfigured, a failed activate leaves it Inactive, and a failed cleanup
// aborts the reconfigure with the controller still Inactive.
//
// # Thread Safety
//
// The Registry is safe for concurrent use. All slot mutations are protected
// by a registry-wide mutex; lifecycle hooks are invoked with the lock held,
// which gives the single-writer discipline the update cycle relies on. Hooks
// are assumed bounded in time.
package controller
