package errorlog

import (
	"context"
	"log/slog"
	"time"
)

// Flush delivers the queued entries to the reporter in batches. Concurrent calls
// return immediately while a flush is in flight. On delivery failure the batch is
// put back at the front of the queue and the error is returned.
func (l *Logger) Flush(ctx context.Context) error {
	if l.opts.Reporter == nil {
		return nil
	}
	if !l.flushing.CompareAndSwap(false, true) {
		return nil
	}
	defer l.flushing.Store(false)

	for {
		l.mu.Lock()
		n := min(len(l.queue), l.opts.BatchSize)
		batch := make([]Entry, n)
		copy(batch, l.queue[:n])
		l.queue = l.queue[n:]
		l.mu.Unlock()

		if n == 0 {
			return nil
		}

		if err := l.opts.Reporter.Report(ctx, batch); err != nil {
			l.requeue(batch)
			l.logger.Warn("failed to deliver error batch",
				slog.Int("entries", n),
				slog.Any("error", err),
			)
			return err
		}
	}
}

func (l *Logger) requeue(batch []Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pending := l.queue
	l.queue = make([]Entry, 0, len(batch)+len(pending))
	l.queue = append(l.queue, batch...)
	l.enqueue(pending...)
}

// Start runs the background flusher until ctx is done or Stop is called. It flushes
// every Interval and whenever the queue reaches BatchSize. Start is a no-op without
// a reporter or when the flusher is already running.
func (l *Logger) Start(ctx context.Context) {
	if l.opts.Reporter == nil {
		return
	}

	l.runMu.Lock()
	defer l.runMu.Unlock()
	if l.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.stopped = make(chan struct{})

	go l.run(runCtx, l.stopped)
}

func (l *Logger) run(ctx context.Context, stopped chan struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(l.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-l.trigger:
		}
		_ = l.Flush(ctx)
	}
}

// Stop stops the background flusher and attempts a final flush bounded by ctx.
func (l *Logger) Stop(ctx context.Context) error {
	l.runMu.Lock()
	cancel, stopped := l.cancel, l.stopped
	l.cancel, l.stopped = nil, nil
	l.runMu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-stopped

	return l.Flush(ctx)
}
