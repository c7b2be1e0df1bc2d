package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Retrier re-delivers failed notifications and reports how many succeeded
type Retrier interface {
	RetryFailed(ctx context.Context, limit int) (int, error)
}

// NotificationRetryWorker periodically re-delivers FAILED notifications
type NotificationRetryWorker struct {
	retrier   Retrier
	interval  time.Duration
	batchSize int
	logger    *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	lastRun time.Time
}

// NewNotificationRetryWorker creates the retry worker
func NewNotificationRetryWorker(retrier Retrier, interval time.Duration, batchSize int, logger *zap.Logger) *NotificationRetryWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &NotificationRetryWorker{
		retrier:   retrier,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Start launches the poll loop
func (w *NotificationRetryWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return fmt.Errorf("%s is already running", w.Name())
	}

	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	w.logger.Info("Notification retry worker started",
		zap.Duration("interval", w.interval),
		zap.Int("batch_size", w.batchSize))

	go w.loop(loopCtx, w.done)
	return nil
}

// Stop cancels the loop and waits for an in-flight pass to finish
func (w *NotificationRetryWorker) Stop() error {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel = nil
	w.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// Name returns the worker name for identification
func (w *NotificationRetryWorker) Name() string {
	return "NotificationRetryWorker"
}

// LastRun returns when the last pass finished
func (w *NotificationRetryWorker) LastRun() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastRun
}

func (w *NotificationRetryWorker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *NotificationRetryWorker) runOnce(ctx context.Context) {
	delivered, err := w.retrier.RetryFailed(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("Notification retry pass failed", zap.Error(err))
	} else if delivered > 0 {
		w.logger.Info("Re-delivered notifications", zap.Int("delivered", delivered))
	}

	w.mu.Lock()
	w.lastRun = time.Now()
	w.mu.Unlock()
}
