// Package dispatch is a small in-process signal bus.
//
// Listeners connect to a named signal and receive every subsequent Send on it.
// Delivery happens on a single worker goroutine so listeners observe signals
// in the order they were first sent and a slow listener never blocks the sender.
// A signal that is sent again while an earlier Send of it is still waiting is
// merged into the waiting one and carries the latest payload, so repeated
// signals are never lost behind a slow listener. Only when the queue is full
// of distinct signals is a new one dropped and logged.
package dispatch

import (
	"context"
	"sync"

	"github.com/nerrad567/c4bridge-core/internal/infrastructure/logging"
)

// SignalDeviceUpdate is sent after every successful sync.
const SignalDeviceUpdate = "control4_bridge_device_update"

// DefaultQueueSize bounds the number of distinct undelivered signals.
const DefaultQueueSize = 64

// Handler receives the payload passed to Send.
type Handler = func(payload any)

type listener struct {
	id      uint64
	handler Handler
}

// Dispatcher routes signals to connected listeners.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners map[string][]listener
	pending   map[string]any
	nextID    uint64
	closed    bool

	queue  chan string
	done   chan struct{}
	logger *logging.Logger
}

// New starts a dispatcher with the given queue size (DefaultQueueSize if <= 0).
func New(queueSize int, logger *logging.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = logging.Discard()
	}
	d := &Dispatcher{
		listeners: make(map[string][]listener),
		pending:   make(map[string]any),
		queue:     make(chan string, queueSize),
		done:      make(chan struct{}),
		logger:    logger,
	}
	go d.run()
	return d
}

// Connect registers h for signal and returns a function that disconnects it.
// The returned function is safe to call more than once.
func (d *Dispatcher) Connect(signal string, h Handler) (disconnect func()) {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.listeners[signal] = append(d.listeners[signal], listener{id: id, handler: h})
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { d.remove(signal, id) })
	}
}

func (d *Dispatcher) remove(signal string, id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ls := d.listeners[signal]
	for i, l := range ls {
		if l.id == id {
			d.listeners[signal] = append(ls[:i:i], ls[i+1:]...)
			break
		}
	}
	if len(d.listeners[signal]) == 0 {
		delete(d.listeners, signal)
	}
}

// Send queues signal for delivery and returns immediately. If the same signal
// is already waiting it is merged and payload replaces the waiting payload.
// It reports false if the signal was dropped (queue full or dispatcher closed).
func (d *Dispatcher) Send(signal string, payload any) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return false
	}
	if _, waiting := d.pending[signal]; waiting {
		d.pending[signal] = payload
		return true
	}
	select {
	case d.queue <- signal:
		d.pending[signal] = payload
		return true
	default:
		d.logger.Warn("dispatch queue full, dropping signal", "signal", signal)
		return false
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for signal := range d.queue {
		// Taking the payload out of pending before delivery lets a Send made
		// during delivery queue a fresh round.
		d.mu.Lock()
		payload := d.pending[signal]
		delete(d.pending, signal)
		ls := make([]listener, len(d.listeners[signal]))
		copy(ls, d.listeners[signal])
		d.mu.Unlock()

		for _, l := range ls {
			d.deliver(signal, payload, l)
		}
	}
}

func (d *Dispatcher) deliver(signal string, payload any, l listener) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("signal handler panicked", "signal", signal, "panic", r)
		}
	}()
	l.handler(payload)
}

// Close stops accepting signals, drains the queue and waits for the worker,
// giving up when ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
