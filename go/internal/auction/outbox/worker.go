package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mcdev12/auctionroom/go/internal/auction/events"
	"github.com/rs/zerolog/log"
)

type Config struct {
	BufferSize     int
	MaxRetries     int
	RetryDelay     time.Duration
	PublishTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		BufferSize:     1024,
		MaxRetries:     3,
		RetryDelay:     200 * time.Millisecond,
		PublishTimeout: 5 * time.Second,
	}
}

// Worker forwards room-wide events to a publisher on its own goroutine. Emit never
// blocks: when the buffer is full the event is dropped and counted.
type Worker struct {
	publisher EventPublisher
	metrics   MetricsCollector
	config    Config

	queue chan *events.Event

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

func NewWorker(publisher EventPublisher, cfg Config, metrics MetricsCollector) *Worker {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultConfig().PublishTimeout
	}
	if metrics == nil {
		metrics = &NoOpMetricsCollector{}
	}
	return &Worker{
		publisher: publisher,
		metrics:   metrics,
		config:    cfg,
		queue:     make(chan *events.Event, cfg.BufferSize),
	}
}

// Publishable reports whether an event belongs on the stream. Private events and
// countdown ticks stay inside the room.
func Publishable(event *events.Event) bool {
	return event != nil && !event.Private() && event.Type != events.EventTypeTimer
}

// Emit implements events.Emitter
func (w *Worker) Emit(event *events.Event) {
	if !Publishable(event) {
		return
	}
	select {
	case w.queue <- event:
	default:
		w.metrics.RecordEventDropped(string(event.Type))
		log.Warn().
			Str("event_type", string(event.Type)).
			Uint64("seq", event.Seq).
			Msg("outbox buffer full, dropping event")
	}
}

// Start runs the worker until ctx is cancelled, then drains what is already queued
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("outbox worker already running")
	}
	w.running = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run(ctx)

	log.Info().
		Int("buffer_size", w.config.BufferSize).
		Int("max_retries", w.config.MaxRetries).
		Msg("outbox worker started")

	return nil
}

// Wait blocks until the worker has stopped
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			w.drain()
			log.Info().Msg("outbox worker stopped")
			return
		case event := <-w.queue:
			w.process(ctx, event)
		}
	}
}

// drain publishes whatever is buffered with a fresh deadline
func (w *Worker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), w.config.PublishTimeout)
	defer cancel()
	for {
		select {
		case event := <-w.queue:
			w.process(ctx, event)
		default:
			return
		}
	}
}

func (w *Worker) process(ctx context.Context, event *events.Event) {
	start := time.Now()
	err := w.publishWithRetry(ctx, event)
	w.metrics.RecordEventProcessed(string(event.Type), err == nil, time.Since(start))
	if err != nil {
		log.Error().
			Err(err).
			Str("event_id", event.ID).
			Str("event_type", string(event.Type)).
			Msg("failed to publish event")
	}
}

func (w *Worker) publishWithRetry(ctx context.Context, event *events.Event) error {
	var lastErr error

	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.config.RetryDelay * time.Duration(attempt)):
			}
		}

		pctx, cancel := context.WithTimeout(ctx, w.config.PublishTimeout)
		err := w.publisher.Publish(pctx, event)
		cancel()
		w.metrics.RecordPublishAttempt(string(event.Type), attempt+1, err == nil)
		if err != nil {
			lastErr = err
			log.Warn().
				Err(err).
				Str("event_id", event.ID).
				Int("attempt", attempt+1).
				Msg("failed to publish event, retrying")
			continue
		}

		return nil
	}

	return fmt.Errorf("failed after %d attempts: %w", w.config.MaxRetries+1, lastErr)
}
