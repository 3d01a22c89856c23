package history

import (
	"context"
	"time"

	"github.com/nerrad567/pilot-core/internal/controller"
	"github.com/nerrad567/pilot-core/internal/manager"
)

// Logger defines the logging interface used by the recorder.
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

// defaultQueueSize is the recorder's write buffer length.
const defaultQueueSize = 256

// writeTimeout bounds each repository write.
const writeTimeout = 5 * time.Second

// record is one queued history write.
type record struct {
	transition *Transition
	sw         *Switch
}

// Recorder is an asynchronous writer of lifecycle history.
//
// It implements manager.Recorder: the record methods never block the
// caller. Writes are queued to a background goroutine and dropped, with a
// warning, when the queue is full.
type Recorder struct {
	repo   Repository
	logger Logger
	queue  chan record
	done   chan struct{}
}

// NewRecorder creates a recorder over the given repository and starts its
// write loop. Call Close to flush and stop it.
func NewRecorder(repo Repository, logger Logger) *Recorder {
	if logger == nil {
		logger = noopLogger{}
	}
	r := &Recorder{
		repo:   repo,
		logger: logger,
		queue:  make(chan record, defaultQueueSize),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// RecordTransition queues one transition write.
func (r *Recorder) RecordTransition(name string, from, to controller.State) {
	r.enqueue(record{transition: &Transition{
		Controller: name,
		From:       string(from),
		To:         string(to),
		CreatedAt:  time.Now().UTC(),
	}})
}

// RecordSwitch queues one switch write.
func (r *Recorder) RecordSwitch(outcome manager.Outcome) {
	sw := &Switch{
		Started:    outcome.Started,
		Stopped:    outcome.Stopped,
		Strictness: string(outcome.Strictness),
		StartASAP:  outcome.StartASAP,
		StagedAt:   outcome.StagedAt,
		AppliedAt:  outcome.AppliedAt,
	}
	if outcome.Err != nil {
		sw.Error = outcome.Err.Error()
	}
	r.enqueue(record{sw: sw})
}

// enqueue queues a write without blocking; full queues drop the record.
func (r *Recorder) enqueue(rec record) {
	select {
	case r.queue <- rec:
	default:
		r.logger.Warn("history queue full, dropping record")
	}
}

// Close stops the recorder after draining queued writes.
func (r *Recorder) Close() {
	close(r.queue)
	<-r.done
}

// run is the write loop. It exits when the queue is closed and drained.
func (r *Recorder) run() {
	defer close(r.done)
	for rec := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		var err error
		switch {
		case rec.transition != nil:
			err = r.repo.CreateTransition(ctx, rec.transition)
		case rec.sw != nil:
			err = r.repo.CreateSwitch(ctx, rec.sw)
		}
		cancel()
		if err != nil {
			r.logger.Error("history write failed", "error", err)
		}
	}
}
