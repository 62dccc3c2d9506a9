package errorlog

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Default logger settings.
const (
	DefaultCapacity  = 100
	DefaultBatchSize = 10
	DefaultInterval  = 30 * time.Second
)

// Reporter delivers a batch of entries to a remote collector.
type Reporter interface {
	Report(ctx context.Context, entries []Entry) error
}

// Options configures a Logger.
type Options struct {
	// Capacity bounds the ring buffer returned by GetErrors.
	Capacity int

	// Reporter receives queued batches. Nil disables the queue.
	Reporter Reporter

	// BatchSize is the queue length that triggers an immediate flush.
	BatchSize int

	// Interval is the periodic flush interval of the background flusher.
	Interval time.Duration

	// MaxQueue bounds the delivery queue, including re-queued entries. When full,
	// the oldest entries are dropped.
	MaxQueue int
}

func (o Options) withDefaults() Options {
	if o.Capacity <= 0 {
		o.Capacity = DefaultCapacity
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.MaxQueue < o.BatchSize {
		o.MaxQueue = o.BatchSize * 10
	}
	return o
}

// Logger is the error logger. Log is safe for concurrent use and never panics.
type Logger struct {
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	ring    []Entry
	head    int
	size    int
	queue   []Entry
	dropped int

	flushing atomic.Bool
	trigger  chan struct{}

	runMu   sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// New creates a Logger.
func New(opts Options, logger *slog.Logger) *Logger {
	opts = opts.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{
		opts:    opts,
		logger:  logger,
		now:     time.Now,
		ring:    make([]Entry, opts.Capacity),
		trigger: make(chan struct{}, 1),
	}
}

// Log records err with optional details. A nil err is ignored.
func (l *Logger) Log(ctx context.Context, err error, details map[string]any) {
	if err == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("error logger recovered from panic", slog.Any("panic", r))
		}
	}()

	entry := newEntry(err, details, l.now())

	l.logger.ErrorContext(ctx, "error recorded",
		slog.String("id", entry.ID.String()),
		slog.String("code", string(entry.Code)),
		slog.String("message", entry.Message),
		slog.Any("details", entry.Details),
	)

	l.mu.Lock()
	l.push(entry)
	full := false
	if l.opts.Reporter != nil {
		l.enqueue(entry)
		full = len(l.queue) >= l.opts.BatchSize
	}
	l.mu.Unlock()

	if full {
		select {
		case l.trigger <- struct{}{}:
		default:
		}
	}
}

// push appends to the ring buffer, evicting the oldest entry when full.
func (l *Logger) push(entry Entry) {
	idx := (l.head + l.size) % len(l.ring)
	l.ring[idx] = entry
	if l.size < len(l.ring) {
		l.size++
		return
	}
	l.head = (l.head + 1) % len(l.ring)
}

// enqueue appends to the delivery queue, dropping the oldest entries past MaxQueue.
func (l *Logger) enqueue(entries ...Entry) {
	l.queue = append(l.queue, entries...)
	if over := len(l.queue) - l.opts.MaxQueue; over > 0 {
		l.queue = append(l.queue[:0:0], l.queue[over:]...)
		l.dropped += over
	}
}

// GetErrors returns the buffered entries, oldest first.
func (l *Logger) GetErrors() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, l.size)
	for i := range l.size {
		out[i] = l.ring[(l.head+i)%len(l.ring)]
	}
	return out
}

// Clear empties the ring buffer. Queued entries are kept.
func (l *Logger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.ring)
	l.head, l.size = 0, 0
}

// Pending returns the number of entries waiting for delivery.
func (l *Logger) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Dropped returns the number of queued entries discarded because the queue was full.
func (l *Logger) Dropped() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}
