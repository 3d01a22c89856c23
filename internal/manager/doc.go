// Package manager composes the controller registry, switch coordinator and
// update cycle into the externally callable controller manager.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────────┐
//	│                        Controller Manager                        │
//	│                                                                  │
//	│  ┌───────────────┐   ┌──────────────────┐   ┌────────────────┐  │
//	│  │    Manager    │   │   Coordinator    │   │     Cycle      │  │
//	│  │ (manager.go)  │──▶│ (coordinator.go) │◀──│   (cycle.go)   │  │
//	│  │               │   │                  │   │                │  │
//	│  │ • facade      │   │ • validation     │   │ • tick driver  │  │
//	│  │ • events      │   │ • staging        │   │ • apply switch │  │
//	│  │ • history     │   │ • caller wakeup  │   │ • run updates  │  │
//	│  └───────────────┘   └──────────────────┘   └────────────────┘  │
//	│          │                     │                     │           │
//	│          └─────────────────────┴─────────────────────┘           │
//	│                                │                                 │
//	│                     controller.Registry                          │
//	└──────────────────────────────────────────────────────────────────┘
//
// # Concurrency
//
// Two execution contexts touch the registry: arbitrary caller goroutines
// (load, configure, unload) and the single update-cycle goroutine (applying
// staged switches, running Active controllers). Caller-side mutations only
// act on slots the cycle never executes (Unconfigured/Inactive), and every
// slot mutation goes through the registry's lock, so the two paths are
// mutually exclusive per slot.
//
// SwitchController stages at most one request at a time. The calling
// goroutine blocks until the cycle consumes and applies the request; a
// second call while one is staged is rejected with ErrSwitchInProgress
// rather than queued, so a request can never be silently clobbered.
package manager
