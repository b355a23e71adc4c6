package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// RecorderConfig contains configuration for the async audit recorder.
type RecorderConfig struct {
	// BufferSize is the capacity of the event channel.
	// Default: 1000
	BufferSize int

	// WriteTimeout bounds each storage write.
	// Default: 5 seconds
	WriteTimeout time.Duration

	// OnDrop is called whenever an event is dropped because the buffer is
	// full or the recorder is closed. It must be cheap and non-blocking.
	OnDrop func()

	// OnStoreError is called when a storage write fails.
	OnStoreError func(error)
}

// DefaultRecorderConfig returns the default recorder configuration.
func DefaultRecorderConfig() *RecorderConfig {
	return &RecorderConfig{
		BufferSize:   1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder is a Sink that writes events to Storage, or forwards them to
// another Sink, from a background goroutine. Record never blocks.
type Recorder struct {
	store  func(ctx context.Context, event *Event) error
	config *RecorderConfig
	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool

	recorded atomic.Int64
	dropped  atomic.Int64
	failed   atomic.Int64
}

// NewRecorder creates a recorder and starts its writer goroutine.
func NewRecorder(storage Storage, config *RecorderConfig) *Recorder {
	return newRecorder(storage.Store, config, "audit.recorder")
}

// NewAsyncSink wraps sink so that Record never blocks the caller. Events
// are handed to sink from a background goroutine; when the buffer is full
// they are dropped and counted. WriteTimeout is not applied to sink. Close
// drains pending events.
func NewAsyncSink(sink Sink, config *RecorderConfig) *Recorder {
	if sink == nil {
		sink = NopSink{}
	}
	forward := func(_ context.Context, event *Event) error {
		sink.Record(*event)
		return nil
	}
	return newRecorder(forward, config, "audit.async_sink")
}

func newRecorder(store func(context.Context, *Event) error, config *RecorderConfig, component string) *Recorder {
	if config == nil {
		config = DefaultRecorderConfig()
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 1000
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}

	r := &Recorder{
		store:  store,
		config: config,
		events: make(chan Event, config.BufferSize),
		done:   make(chan struct{}),
		logger: slog.Default().With("component", component),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Debug("audit recorder initialized",
		"buffer_size", config.BufferSize,
		"write_timeout", config.WriteTimeout,
	)

	return r
}

// Record enqueues the event for writing. If the buffer is full or the
// recorder is closed, the event is dropped.
func (r *Recorder) Record(event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.drop(event, "recorder closed")
		return
	}

	select {
	case r.events <- event:
	default:
		r.drop(event, "buffer full")
	}
}

func (r *Recorder) drop(event Event, reason string) {
	r.dropped.Add(1)
	if r.config.OnDrop != nil {
		r.config.OnDrop()
	}
	r.logger.Warn("audit event dropped",
		"event_id", event.ID,
		"reason_code", event.ReasonCode,
		"reason", reason,
	)
}

// Close stops accepting events, drains the buffer and waits for pending
// writes. It is safe to call more than once.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	close(r.done)
	r.wg.Wait()

	r.logger.Debug("audit recorder shut down",
		"recorded", r.recorded.Load(),
		"dropped", r.dropped.Load(),
		"failed", r.failed.Load(),
	)
	return nil
}

// Recorded returns the number of events written to storage.
func (r *Recorder) Recorded() int64 {
	return r.recorded.Load()
}

// Dropped returns the number of events dropped.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Failed returns the number of events whose storage write failed.
func (r *Recorder) Failed() int64 {
	return r.failed.Load()
}

// worker drains the event channel until Close.
func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case event := <-r.events:
			r.write(event)

		case <-r.done:
			for {
				select {
				case event := <-r.events:
					r.write(event)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.store(ctx, &event); err != nil {
		r.failed.Add(1)
		if r.config.OnStoreError != nil {
			r.config.OnStoreError(err)
		}
		r.logger.Error("failed to store audit event",
			"event_id", event.ID,
			"error", err,
		)
		return
	}
	r.recorded.Add(1)
}
