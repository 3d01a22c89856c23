// Package statebus publishes controller lifecycle events to MQTT and
// accepts switch requests submitted over the bus.
//
// # Topics
//
//	pilot/controller/<name>/state   retained per-controller state (published)
//	pilot/switch/applied            applied switch outcomes (published)
//	pilot/switch/request            switch requests (subscribed)
//	pilot/switch/result/<id>        per-request results (published)
//
// The publisher side implements the manager's event sink: publishes are
// handed to the MQTT client's async machinery and never block lifecycle
// operations or the update cycle.
package statebus
