package statebus

import (
	"encoding/json"
	"time"

	"github.com/nerrad567/pilot-core/internal/controller"
	"github.com/nerrad567/pilot-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/pilot-core/internal/manager"
)

// Logger defines the logging interface used by the bus.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Client is the slice of the MQTT client the bus needs.
type Client interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	PublishRetained(topic string, payload []byte) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Switcher accepts switch requests. The manager satisfies this.
type Switcher interface {
	SwitchController(start, stop []string, strictness controller.Strictness, startASAP bool, timeout time.Duration) error
}

// StatePayload is the JSON body published to per-controller state topics.
type StatePayload struct {
	Controller string `json:"controller"`
	From       string `json:"from,omitempty"`
	To         string `json:"to"`
	Timestamp  string `json:"timestamp"`
}

// SwitchPayload is the JSON body published for applied switch requests.
type SwitchPayload struct {
	Started    []string `json:"started"`
	Stopped    []string `json:"stopped"`
	Strictness string   `json:"strictness"`
	StartASAP  bool     `json:"start_asap"`
	Error      string   `json:"error,omitempty"`
	StagedAt   string   `json:"staged_at"`
	AppliedAt  string   `json:"applied_at"`
}

// SwitchRequest is the JSON body accepted on the switch request topic.
type SwitchRequest struct {
	// ID, when set, selects the result topic pilot/switch/result/<id>.
	ID         string   `json:"id,omitempty"`
	Start      []string `json:"start"`
	Stop       []string `json:"stop"`
	Strictness string   `json:"strictness"`
	StartASAP  bool     `json:"start_asap"`
	TimeoutMS  int      `json:"timeout_ms"`
}

// SwitchResult is the JSON body published per bus-submitted request.
type SwitchResult struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// defaultQueueSize is the publish buffer length.
const defaultQueueSize = 256

// message is one queued publish.
type message struct {
	topic    string
	payload  []byte
	retained bool
}

// Bus fans controller lifecycle events out to MQTT.
//
// It implements the manager's event sink. Events are queued to a
// background publisher and dropped, with a warning, when the queue is
// full; lifecycle operations never wait on the broker.
type Bus struct {
	client Client
	logger Logger
	topics mqtt.Topics
	queue  chan message
	done   chan struct{}
}

// New creates a bus over the given MQTT client and starts its publish
// loop. Call Close to drain and stop it.
func New(client Client, logger Logger) *Bus {
	if logger == nil {
		logger = noopLogger{}
	}
	b := &Bus{
		client: client,
		logger: logger,
		queue:  make(chan message, defaultQueueSize),
		done:   make(chan struct{}),
	}
	go b.run()
	return b
}

// ControllerState publishes a retained per-controller state update.
// An empty from state marks the initial load.
func (b *Bus) ControllerState(name string, from, to controller.State) {
	payload, err := json.Marshal(StatePayload{
		Controller: name,
		From:       string(from),
		To:         string(to),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		b.logger.Error("marshalling state payload", "name", name, "error", err)
		return
	}
	b.enqueue(message{topic: b.topics.ControllerState(name), payload: payload, retained: true})
}

// SwitchApplied publishes one applied switch outcome.
func (b *Bus) SwitchApplied(outcome manager.Outcome) {
	body := SwitchPayload{
		Started:    outcome.Started,
		Stopped:    outcome.Stopped,
		Strictness: string(outcome.Strictness),
		StartASAP:  outcome.StartASAP,
		StagedAt:   outcome.StagedAt.Format(time.RFC3339Nano),
		AppliedAt:  outcome.AppliedAt.Format(time.RFC3339Nano),
	}
	if outcome.Err != nil {
		body.Error = outcome.Err.Error()
	}
	payload, err := json.Marshal(body)
	if err != nil {
		b.logger.Error("marshalling switch payload", "error", err)
		return
	}
	b.enqueue(message{topic: b.topics.SwitchApplied(), payload: payload})
}

// enqueue queues a publish without blocking; full queues drop the message.
func (b *Bus) enqueue(msg message) {
	select {
	case b.queue <- msg:
	default:
		b.logger.Warn("state bus queue full, dropping message", "topic", msg.topic)
	}
}

// Close stops the bus after draining queued publishes.
func (b *Bus) Close() {
	close(b.queue)
	<-b.done
}

// run is the publish loop. It exits when the queue is closed and drained.
func (b *Bus) run() {
	defer close(b.done)
	for msg := range b.queue {
		var err error
		if msg.retained {
			err = b.client.PublishRetained(msg.topic, msg.payload)
		} else {
			err = b.client.Publish(msg.topic, msg.payload, 1, false)
		}
		if err != nil {
			b.logger.Warn("state bus publish failed", "topic", msg.topic, "error", err)
		}
	}
}

// ListenSwitchRequests subscribes to the switch request topic and forwards
// each request to the switcher. Results are published to the per-request
// result topic when the request carries an ID.
func (b *Bus) ListenSwitchRequests(sw Switcher) error {
	return b.client.Subscribe(b.topics.SwitchRequest(), 1, func(topic string, payload []byte) error {
		var req SwitchRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			b.logger.Warn("rejecting malformed switch request", "error", err)
			return nil
		}

		strictness, err := controller.ParseStrictness(req.Strictness)
		if err != nil {
			b.publishResult(req.ID, err)
			return nil
		}

		// The switch blocks until an update tick applies it; run it off
		// the MQTT delivery goroutine.
		go func() {
			timeout := time.Duration(req.TimeoutMS) * time.Millisecond
			err := sw.SwitchController(req.Start, req.Stop, strictness, req.StartASAP, timeout)
			b.publishResult(req.ID, err)
		}()
		return nil
	})
}

// publishResult publishes the result of a bus-submitted switch request.
// Requests without an ID get no result topic.
func (b *Bus) publishResult(id string, switchErr error) {
	if id == "" {
		return
	}
	result := SwitchResult{ID: id, OK: switchErr == nil}
	if switchErr != nil {
		result.Error = switchErr.Error()
	}
	payload, err := json.Marshal(result)
	if err != nil {
		b.logger.Error("marshalling switch result", "id", id, "error", err)
		return
	}
	b.enqueue(message{topic: b.topics.SwitchResult(id), payload: payload})
}
