package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/c4bridge-core/internal/bridge"
	"github.com/nerrad567/c4bridge-core/internal/infrastructure/logging"
)

const (
	// DefaultBufferSize is used when NewRecorder is given a size <= 0.
	DefaultBufferSize = 512

	maxBatch      = 64
	writeTimeout  = 5 * time.Second
	pruneInterval = time.Hour
)

// Counter receives per-event command counts after each batch is written.
type Counter interface {
	RecordCommandEvents(bridgeID, event string, n int)
}

// Recorder is a bridge.Observer that writes lifecycle entries asynchronously.
// When its buffer is full, entries are dropped and counted rather than
// blocking the store.
type Recorder struct {
	repo     Repository
	bridgeID string
	logger   *logging.Logger

	retention time.Duration
	counter   Counter
	now       func() time.Time

	events  chan Entry
	dropped atomic.Uint64

	mu      sync.RWMutex
	closed  bool
	started bool
	done    chan struct{}
}

var _ bridge.Observer = (*Recorder)(nil)

// NewRecorder creates a recorder for bridgeID. Call Start before use.
func NewRecorder(repo Repository, bridgeID string, bufferSize int, logger *logging.Logger) *Recorder {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Recorder{
		repo:     repo,
		bridgeID: bridgeID,
		logger:   logger,
		now:      time.Now,
		events:   make(chan Entry, bufferSize),
		done:     make(chan struct{}),
	}
}

// SetRetention enables hourly pruning of entries older than d. Zero disables it.
func (r *Recorder) SetRetention(d time.Duration) {
	r.retention = d
}

// SetCounter installs a metrics sink for written events.
func (r *Recorder) SetCounter(c Counter) {
	r.counter = c
}

// Start launches the writer goroutine. It stops when ctx is cancelled or
// Close is called.
func (r *Recorder) Start(ctx context.Context) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.mu.Unlock()

	go r.run(ctx)
}

func (r *Recorder) CommandQueued(cmd bridge.Command) {
	r.enqueue(EventQueued, cmd)
}

func (r *Recorder) CommandsDelivered(cmds []bridge.Command) {
	for _, c := range cmds {
		r.enqueue(EventDelivered, c)
	}
}

func (r *Recorder) CommandsAcked(cmds []bridge.Command) {
	for _, c := range cmds {
		r.enqueue(EventAcked, c)
	}
}

// Dropped returns the number of entries discarded because the buffer was full.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

func (r *Recorder) enqueue(event string, cmd bridge.Command) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}

	e := Entry{
		CommandID:  cmd.ID,
		BridgeID:   r.bridgeID,
		DeviceID:   cmd.DeviceID,
		Action:     cmd.Action,
		Params:     cmd.Params,
		Event:      event,
		OccurredAt: r.now().UTC(),
	}
	select {
	case r.events <- e:
	default:
		if r.dropped.Add(1) == 1 {
			r.logger.Warn("audit buffer full, dropping entries", "capacity", cap(r.events))
		}
	}
}

func (r *Recorder) run(ctx context.Context) {
	defer close(r.done)

	var prune <-chan time.Time
	if r.retention > 0 {
		ticker := time.NewTicker(pruneInterval)
		defer ticker.Stop()
		prune = ticker.C
		r.prune(ctx)
	}

	for {
		select {
		case e, ok := <-r.events:
			if !ok {
				return
			}
			r.write(r.collect(e))
		case <-prune:
			r.prune(ctx)
		case <-ctx.Done():
			r.drain()
			return
		}
	}
}

// collect gathers first plus whatever else is already buffered, up to maxBatch.
func (r *Recorder) collect(first Entry) []Entry {
	batch := []Entry{first}
	for len(batch) < maxBatch {
		select {
		case e, ok := <-r.events:
			if !ok {
				return batch
			}
			batch = append(batch, e)
		default:
			return batch
		}
	}
	return batch
}

// drain writes everything still buffered without waiting for more.
func (r *Recorder) drain() {
	for {
		select {
		case e, ok := <-r.events:
			if !ok {
				return
			}
			r.write(r.collect(e))
		default:
			return
		}
	}
}

func (r *Recorder) write(batch []Entry) {
	// Detached from the run context so entries drained during shutdown still land.
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := r.repo.CreateBatch(ctx, batch); err != nil {
		r.logger.Error("writing audit entries failed", "count", len(batch), "error", err)
		return
	}

	if r.counter != nil {
		counts := make(map[string]int, 3)
		for _, e := range batch {
			counts[e.Event]++
		}
		for event, n := range counts {
			r.counter.RecordCommandEvents(r.bridgeID, event, n)
		}
	}
}

func (r *Recorder) prune(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	n, err := r.repo.Prune(ctx, r.now().Add(-r.retention))
	if err != nil {
		r.logger.Warn("pruning audit entries failed", "error", err)
		return
	}
	if n > 0 {
		r.logger.Info("pruned audit entries", "count", n)
	}
}

// Close stops accepting entries, flushes the buffer and waits for the writer.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.events)
	}
	started := r.started
	r.mu.Unlock()

	if !started {
		return nil
	}
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
