package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Sink consumes audit events (file, webhook, redis).
type Sink interface {
	Name() string
	Deliver(context.Context, *Event) error
	Close(context.Context) error
}

// Emitter buffers events and delivers them to sinks on background
// workers. A full queue drops the event rather than blocking.
type Emitter struct {
	queue           chan *Event
	sinks           []Sink
	shutdownTimeout time.Duration
	logger          zerolog.Logger

	enqueued atomic.Uint64
	dropped  atomic.Uint64

	countsMu    sync.Mutex
	sinkSuccess map[string]uint64
	sinkFailure map[string]uint64

	closeMu sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
}

// EmitterConfig controls queue and worker sizing.
type EmitterConfig struct {
	QueueSize       int
	Workers         int
	ShutdownTimeout time.Duration
}

// NewEmitter starts background workers delivering to the given sinks.
func NewEmitter(cfg EmitterConfig, sinks []Sink, logger zerolog.Logger) *Emitter {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1000
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 2 * time.Second
	}

	e := &Emitter{
		queue:           make(chan *Event, queueSize),
		sinks:           sinks,
		shutdownTimeout: shutdownTimeout,
		logger:          logger,
		sinkSuccess:     make(map[string]uint64, len(sinks)),
		sinkFailure:     make(map[string]uint64, len(sinks)),
	}

	for i := 0; i < workers; i++ {
		e.wg.Add(1)
		go e.worker()
	}

	return e
}

// Emit enqueues the event without blocking the request path.
func (e *Emitter) Emit(ev *Event) {
	if e == nil || ev == nil {
		return
	}

	e.closeMu.RLock()
	defer e.closeMu.RUnlock()

	if e.closed {
		e.dropped.Add(1)
		return
	}

	select {
	case e.queue <- ev:
		e.enqueued.Add(1)
	default:
		e.dropped.Add(1)
	}
}

// Close stops accepting events and waits briefly to drain the queue.
func (e *Emitter) Close(ctx context.Context) {
	if e == nil {
		return
	}
	e.closeMu.Lock()
	if e.closed {
		e.closeMu.Unlock()
		return
	}
	e.closed = true
	close(e.queue)
	e.closeMu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, e.shutdownTimeout)
	defer cancel()

	select {
	case <-done:
	case <-ctx.Done():
	}

	for _, s := range e.sinks {
		if err := s.Close(ctx); err != nil {
			e.logger.Warn().Err(err).Str("sink", s.Name()).Msg("audit sink close failed")
		}
	}
}

// Enqueued returns how many events were accepted onto the queue.
func (e *Emitter) Enqueued() uint64 { return e.enqueued.Load() }

// Dropped returns how many events were discarded (queue full or closed).
func (e *Emitter) Dropped() uint64 { return e.dropped.Load() }

// SinkSuccess returns the delivery-success count for a sink.
func (e *Emitter) SinkSuccess(name string) uint64 {
	e.countsMu.Lock()
	defer e.countsMu.Unlock()
	return e.sinkSuccess[name]
}

// SinkFailure returns the delivery-failure count for a sink.
func (e *Emitter) SinkFailure(name string) uint64 {
	e.countsMu.Lock()
	defer e.countsMu.Unlock()
	return e.sinkFailure[name]
}

func (e *Emitter) worker() {
	defer e.wg.Done()
	for ev := range e.queue {
		e.deliver(ev)
	}
}

func (e *Emitter) deliver(ev *Event) {
	for _, s := range e.sinks {
		err := s.Deliver(context.Background(), ev)

		e.countsMu.Lock()
		if err != nil {
			e.sinkFailure[s.Name()]++
		} else {
			e.sinkSuccess[s.Name()]++
		}
		e.countsMu.Unlock()

		if err != nil {
			e.logger.Warn().Err(err).Str("sink", s.Name()).Msg("audit delivery failed")
		}
	}
}
