package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// runLoop ticks tick on the given cadence until ctx is cancelled. Each tick
// is wrapped in recover() so a panic is logged and the loop resumes on its
// next normal cadence, per spec §4.3 ("All loops must be crash-safe").
func runLoop(ctx context.Context, name string, interval time.Duration, logger *zap.Logger, tick func(ctx context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	safeTick(ctx, name, logger, tick)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			safeTick(ctx, name, logger, tick)
		}
	}
}

func safeTick(ctx context.Context, name string, logger *zap.Logger, tick func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("monitoring loop panicked, resuming next cycle",
				zap.String("loop", name), zap.Any("panic", r))
		}
	}()

	tick(ctx)
}

// loop is one Runnable background signal loop.
type loop struct {
	name     string
	interval time.Duration
	logger   *zap.Logger
	tick     func(ctx context.Context)

	cancel context.CancelFunc
	done   chan struct{}
}

func newLoop(name string, interval time.Duration, logger *zap.Logger, tick func(ctx context.Context)) *loop {
	return &loop{name: name, interval: interval, logger: logger, tick: tick}
}

// Start launches the loop in a goroutine; it returns immediately.
func (l *loop) Start(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})

	go func() {
		defer close(l.done)
		runLoop(loopCtx, l.name, l.interval, l.logger, l.tick)
	}()

	return nil
}

// Shutdown cancels the loop and waits for its current tick to finish; the
// wait has no time bound.
func (l *loop) Shutdown() error {
	if l.cancel == nil {
		return nil
	}

	l.cancel()
	<-l.done

	return nil
}
