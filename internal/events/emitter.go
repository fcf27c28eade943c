package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/valinor-ai/snsgate/internal/platform/metrics"
)

// EmitterConfig configures the async emitter.
type EmitterConfig struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
}

// AsyncEmitter implements Emitter with a buffered channel and background worker.
type AsyncEmitter struct {
	ch        chan Event
	sink      Sink
	cfg       EmitterConfig
	wg        sync.WaitGroup
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewAsyncEmitter creates and starts an async emitter delivering to sink.
func NewAsyncEmitter(sink Sink, cfg EmitterConfig) *AsyncEmitter {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 250 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &AsyncEmitter{
		ch:     make(chan Event, cfg.BufferSize),
		sink:   sink,
		cfg:    cfg,
		cancel: cancel,
	}

	e.wg.Add(1)
	go e.worker(ctx)

	return e
}

// Emit enqueues an event. Never blocks the caller; drops if the buffer is full.
func (e *AsyncEmitter) Emit(_ context.Context, event Event) {
	select {
	case e.ch <- event:
	default:
		metrics.EventsDropped.Inc()
		slog.Warn("event buffer full, dropping event",
			"kind", event.Kind,
			"message_id", event.MessageID,
		)
	}
}

// Close stops the worker after delivering everything still buffered.
func (e *AsyncEmitter) Close() error {
	e.closeOnce.Do(func() {
		e.cancel()
		e.wg.Wait()
		e.flush(e.drainAll())
	})
	return nil
}

func (e *AsyncEmitter) worker(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.FlushInterval)
	defer ticker.Stop()

	var batch []Event

	for {
		select {
		case <-ctx.Done():
			batch = append(batch, e.drainAll()...)
			e.flush(batch)
			return

		case ev := <-e.ch:
			batch = append(batch, ev)
			if len(batch) >= e.cfg.BatchSize {
				e.flush(batch)
				batch = nil
			}

		case <-ticker.C:
			if len(batch) > 0 {
				e.flush(batch)
				batch = nil
			}
		}
	}
}

func (e *AsyncEmitter) flush(events []Event) {
	if len(events) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := e.sink.Deliver(ctx, events); err != nil {
		slog.Error("event delivery failed", "error", err, "count", len(events))
	}
}

func (e *AsyncEmitter) drainAll() []Event {
	var events []Event
	for {
		select {
		case ev := <-e.ch:
			events = append(events, ev)
		default:
			return events
		}
	}
}
