package dispatcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/garyjia/groupware-approval/internal/domain/event"
)

// mockLogger implements Logger for testing
type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func (m *mockLogger) ErrorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}

func newQueued(docID int64) *event.Event {
	return event.NewEvent(event.TypeNotificationQueued, docID, map[string]interface{}{"notification_id": docID})
}

func TestSubscribe(t *testing.T) {
	t.Run("runs handlers in registration order", func(t *testing.T) {
		d := NewDispatcher()
		var order []string

		d.Subscribe(event.TypeNotificationQueued, "first", func(ctx context.Context, evt *event.Event) error {
			order = append(order, "first")
			return nil
		})
		d.Subscribe(event.TypeNotificationQueued, "second", func(ctx context.Context, evt *event.Event) error {
			order = append(order, "second")
			return nil
		})

		if err := d.Dispatch(context.Background(), newQueued(1)); err != nil {
			t.Fatalf("dispatch failed: %v", err)
		}
		if len(order) != 2 || order[0] != "first" || order[1] != "second" {
			t.Errorf("unexpected order: %v", order)
		}
	})

	t.Run("generates a name when empty", func(t *testing.T) {
		d := NewDispatcher()
		d.Subscribe(event.TypeDocumentApproved, "", func(ctx context.Context, evt *event.Event) error { return nil })

		handlers := d.ListHandlers(event.TypeDocumentApproved)
		if len(handlers) != 1 {
			t.Fatalf("expected 1 handler, got %d", len(handlers))
		}
		if handlers[0].Name != "document.approved-0" {
			t.Errorf("unexpected name %q", handlers[0].Name)
		}
		if handlers[0].Handler != nil {
			t.Error("handler func must not be exposed")
		}
	})

	t.Run("ignores other event types", func(t *testing.T) {
		d := NewDispatcher()
		called := false
		d.Subscribe(event.TypeDocumentRejected, "rejected", func(ctx context.Context, evt *event.Event) error {
			called = true
			return nil
		})

		if err := d.Dispatch(context.Background(), newQueued(1)); err != nil {
			t.Fatalf("dispatch failed: %v", err)
		}
		if called {
			t.Error("handler for another type was called")
		}
	})
}

func TestDispatch(t *testing.T) {
	t.Run("stops at first error", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))
		boom := errors.New("boom")
		secondCalled := false

		d.Subscribe(event.TypeNotificationQueued, "failing", func(ctx context.Context, evt *event.Event) error {
			return boom
		})
		d.Subscribe(event.TypeNotificationQueued, "after", func(ctx context.Context, evt *event.Event) error {
			secondCalled = true
			return nil
		})

		err := d.Dispatch(context.Background(), newQueued(1))
		if !errors.Is(err, boom) {
			t.Fatalf("expected wrapped boom, got %v", err)
		}
		if secondCalled {
			t.Error("handlers after a failure must not run")
		}
		if logger.ErrorCount() != 1 {
			t.Errorf("expected 1 error log, got %d", logger.ErrorCount())
		}
	})

	t.Run("recovers from panics", func(t *testing.T) {
		d := NewDispatcher()
		d.Subscribe(event.TypeNotificationQueued, "panics", func(ctx context.Context, evt *event.Event) error {
			panic("nil template")
		})

		if err := d.Dispatch(context.Background(), newQueued(1)); err == nil {
			t.Fatal("expected error from panicking handler")
		}
	})

	t.Run("rejects events after close", func(t *testing.T) {
		d := NewDispatcher()
		if err := d.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}
		if err := d.Dispatch(context.Background(), newQueued(1)); !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
		if err := d.Close(); !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed on second close, got %v", err)
		}
	})
}

func TestDispatchAsync(t *testing.T) {
	t.Run("survives caller cancellation", func(t *testing.T) {
		d := NewDispatcher()
		done := make(chan error, 1)

		d.Subscribe(event.TypeNotificationQueued, "deliver", func(ctx context.Context, evt *event.Event) error {
			time.Sleep(10 * time.Millisecond)
			done <- ctx.Err()
			return nil
		})

		ctx, cancel := context.WithCancel(context.Background())
		d.DispatchAsync(ctx, newQueued(1))
		cancel()

		select {
		case err := <-done:
			if err != nil {
				t.Errorf("handler context was canceled: %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("handler did not run")
		}
		_ = d.Close()
	})

	t.Run("applies the async timeout", func(t *testing.T) {
		d := NewDispatcher(WithAsyncTimeout(5 * time.Millisecond))
		var deadline atomic.Bool

		d.Subscribe(event.TypeNotificationQueued, "slow", func(ctx context.Context, evt *event.Event) error {
			_, ok := ctx.Deadline()
			deadline.Store(ok)
			<-ctx.Done()
			return ctx.Err()
		})

		d.DispatchAsync(context.Background(), newQueued(1))
		_ = d.Close()

		if !deadline.Load() {
			t.Error("expected a deadline on the handler context")
		}
	})

	t.Run("bounds concurrency", func(t *testing.T) {
		d := NewDispatcher(WithMaxConcurrency(2))
		var running, peak atomic.Int32

		d.Subscribe(event.TypeNotificationQueued, "deliver", func(ctx context.Context, evt *event.Event) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return nil
		})

		for i := int64(0); i < 10; i++ {
			d.DispatchAsync(context.Background(), newQueued(i))
		}
		_ = d.Close()

		if peak.Load() > 2 {
			t.Errorf("expected at most 2 concurrent handlers, saw %d", peak.Load())
		}
	})

	t.Run("logs handler errors", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))
		d.Subscribe(event.TypeNotificationQueued, "failing", func(ctx context.Context, evt *event.Event) error {
			return errors.New("lark unavailable")
		})

		d.DispatchAsync(context.Background(), newQueued(1))
		_ = d.Close()

		if logger.ErrorCount() != 1 {
			t.Errorf("expected 1 error log, got %d", logger.ErrorCount())
		}
	})

	t.Run("drops events after close", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))
		var called atomic.Bool
		d.Subscribe(event.TypeNotificationQueued, "deliver", func(ctx context.Context, evt *event.Event) error {
			called.Store(true)
			return nil
		})
		_ = d.Close()

		d.DispatchAsync(context.Background(), newQueued(1))
		time.Sleep(10 * time.Millisecond)

		if called.Load() {
			t.Error("handler ran after close")
		}
		if logger.ErrorCount() != 1 {
			t.Errorf("expected drop to be logged, got %d errors", logger.ErrorCount())
		}
	})
}

func TestConcurrentSubscribeAndDispatch(t *testing.T) {
	d := NewDispatcher()
	var count atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			d.Subscribe(event.TypeApprovalRequested, "", func(ctx context.Context, evt *event.Event) error {
				count.Add(1)
				return nil
			})
		}()
		go func(id int64) {
			defer wg.Done()
			_ = d.Dispatch(context.Background(), event.NewEvent(event.TypeApprovalRequested, id, nil))
		}(int64(i))
	}
	wg.Wait()

	if got := len(d.ListHandlers(event.TypeApprovalRequested)); got != 10 {
		t.Errorf("expected 10 handlers, got %d", got)
	}
}

func TestDispatchAsyncRacingClose(t *testing.T) {
	for round := 0; round < 20; round++ {
		d := NewDispatcher(WithLogger(&mockLogger{}))
		var started, finished atomic.Int64
		d.Subscribe(event.TypeNotificationQueued, "deliver", func(ctx context.Context, evt *event.Event) error {
			started.Add(1)
			time.Sleep(time.Millisecond)
			finished.Add(1)
			return nil
		})

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				for j := 0; j < 20; j++ {
					d.DispatchAsync(context.Background(), newQueued(id))
				}
			}(int64(i))
		}

		time.Sleep(time.Millisecond)
		_ = d.Close()
		afterClose := finished.Load()
		wg.Wait()
		time.Sleep(5 * time.Millisecond)

		// every handler accepted before Close finished before Close returned
		if started.Load() != afterClose {
			t.Fatalf("round %d: %d handlers started, %d finished before close returned",
				round, started.Load(), afterClose)
		}
	}
}
