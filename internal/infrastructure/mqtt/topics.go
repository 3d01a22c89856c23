package mqtt

import "fmt"

// Topic prefixes for the Pilot Core MQTT surface.
//
// Controller topics use the scheme: pilot/controller/{name}/state
const (
	// TopicPrefix is the base for all Pilot Core topics.
	TopicPrefix = "pilot"

	// TopicPrefixController is the base for per-controller topics.
	TopicPrefixController = "pilot/controller"

	// TopicPrefixSwitch is the base for switch request and outcome topics.
	TopicPrefixSwitch = "pilot/switch"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "pilot/system"
)

// Topics provides builders for Pilot Core MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.ControllerState("diff_drive")
//	// Returns: "pilot/controller/diff_drive/state"
type Topics struct{}

// ControllerState returns the retained state topic for one controller.
//
// Example: pilot/controller/diff_drive/state
func (Topics) ControllerState(name string) string {
	return fmt.Sprintf("%s/%s/state", TopicPrefixController, name)
}

// SwitchApplied returns the topic for applied switch outcomes.
//
// Example: pilot/switch/applied
func (Topics) SwitchApplied() string {
	return fmt.Sprintf("%s/applied", TopicPrefixSwitch)
}

// SwitchRequest returns the topic external callers publish switch requests
// to.
//
// Example: pilot/switch/request
func (Topics) SwitchRequest() string {
	return fmt.Sprintf("%s/request", TopicPrefixSwitch)
}

// SwitchResult returns the topic for results of bus-submitted switch
// requests, keyed by the caller-supplied request ID.
//
// Example: pilot/switch/result/req-abc123
func (Topics) SwitchResult(requestID string) string {
	return fmt.Sprintf("%s/result/%s", TopicPrefixSwitch, requestID)
}

// SystemStatus returns the system status topic.
//
// Example: pilot/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllControllerStates returns a pattern matching every controller state
// topic.
//
// Pattern: pilot/controller/+/state
func (Topics) AllControllerStates() string {
	return fmt.Sprintf("%s/+/state", TopicPrefixController)
}

// AllTopics returns a pattern matching all Pilot Core topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: pilot/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
