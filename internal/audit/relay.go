package audit

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Overflow selects what Emit does when the queue is full.
type Overflow uint8

const (
	// Block waits for room or for the caller's context to end.
	Block Overflow = iota
	// Drop discards the event and counts it.
	Drop
)

// Options configures a Relay.
type Options struct {
	Capacity int
	Overflow Overflow
	// Logger reports sinks that panic. Defaults to a no-op logger.
	Logger *zerolog.Logger
}

// Relay hands events to a Sink from a single goroutine so that callers never
// wait on sink I/O. A nil *Relay accepts and discards everything.
type Relay struct {
	sink     Sink
	overflow Overflow
	log      zerolog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	idle   chan struct{}

	lost      atomic.Uint64
	delivered atomic.Uint64
}

// NewRelay starts the delivery goroutine. Call Close to drain and stop it.
func NewRelay(sink Sink, opts Options) *Relay {
	if sink == nil {
		sink = NoOpSink{}
	}
	capacity := opts.Capacity
	if capacity < 1 {
		capacity = 1
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("component", "audit").Logger()
	}

	r := &Relay{
		sink:     sink,
		overflow: opts.Overflow,
		log:      log,
		queue:    make(chan Event, capacity),
		idle:     make(chan struct{}),
	}
	go r.loop()
	return r
}

func (r *Relay) loop() {
	defer close(r.idle)
	for ev := range r.queue {
		r.deliver(ev)
	}
}

func (r *Relay) deliver(ev Event) {
	defer func() {
		if p := recover(); p != nil {
			r.lost.Add(1)
			r.log.Error().Interface("panic", p).Str("event", ev.EventType).Msg("audit sink panicked")
		}
	}()
	r.sink.Emit(context.Background(), ev)
	r.delivered.Add(1)
}

// Emit queues ev. Under Drop it never blocks; under Block it waits until the
// event is queued or ctx is done, and a cancelled wait counts as lost.
// Events emitted after Close are ignored.
func (r *Relay) Emit(ctx context.Context, ev Event) {
	if r == nil {
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}

	if r.overflow == Drop {
		select {
		case r.queue <- ev:
		default:
			r.lost.Add(1)
		}
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case r.queue <- ev:
	case <-ctx.Done():
		r.lost.Add(1)
	}
}

// Close stops intake and returns once every queued event reached the sink.
// It is safe to call more than once.
func (r *Relay) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()
	<-r.idle
}

// Dropped counts events that never reached the sink.
func (r *Relay) Dropped() uint64 {
	if r == nil {
		return 0
	}
	return r.lost.Load()
}

// Delivered counts events the sink accepted.
func (r *Relay) Delivered() uint64 {
	if r == nil {
		return 0
	}
	return r.delivered.Load()
}

// Pending reports how many events are queued but not yet delivered.
func (r *Relay) Pending() int {
	if r == nil {
		return 0
	}
	return len(r.queue)
}
