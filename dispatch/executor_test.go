package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestExecutor_Execute(t *testing.T) {
	e := NewExecutor()

	res := e.Execute(context.Background(), 42, func(_ context.Context, data any) (any, error) {
		return data.(int) * 2, nil
	})

	if res.Err != nil {
		t.Fatalf("Execute() error = %v", res.Err)
	}
	if res.Value != 84 {
		t.Errorf("Value = %v, want 84", res.Value)
	}
	if res.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", res.Attempts)
	}
}

func TestExecutor_ExecuteError(t *testing.T) {
	e := NewExecutor()
	wantErr := errors.New("boom")

	res := e.Execute(context.Background(), nil, func(context.Context, any) (any, error) {
		return nil, wantErr
	})

	if !errors.Is(res.Err, wantErr) {
		t.Errorf("Err = %v, want %v", res.Err, wantErr)
	}
}

func TestExecutor_ExecutePanic(t *testing.T) {
	var handled atomic.Bool
	e := NewExecutor(WithPanicHandler(func(_, _ any, _ []byte) {
		handled.Store(true)
	}))

	res := e.Execute(context.Background(), nil, func(context.Context, any) (any, error) {
		panic("kaboom")
	})

	if !res.Panicked {
		t.Fatal("expected Panicked")
	}
	if !errors.Is(res.Err, ErrPanic) {
		t.Errorf("Err = %v, want ErrPanic", res.Err)
	}
	var perr *PanicError
	if !errors.As(res.Err, &perr) {
		t.Fatal("expected *PanicError")
	}
	if perr.Value != "kaboom" {
		t.Errorf("PanicError.Value = %v, want kaboom", perr.Value)
	}
	if !handled.Load() {
		t.Error("panic handler was not called")
	}
}

func TestExecutor_ExecuteCancelledContext(t *testing.T) {
	e := NewExecutor()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := e.Execute(ctx, nil, func(context.Context, any) (any, error) {
		t.Error("listener should not run with cancelled context")
		return nil, nil
	})

	if !errors.Is(res.Err, context.Canceled) {
		t.Errorf("Err = %v, want context.Canceled", res.Err)
	}
}

func TestExecutor_ExecuteWithTimeout(t *testing.T) {
	e := NewExecutor()

	res := e.ExecuteWithTimeout(context.Background(), nil, func(context.Context, any) (any, error) {
		time.Sleep(200 * time.Millisecond)
		return "late", nil
	}, 20*time.Millisecond)

	if !errors.Is(res.Err, ErrTimeout) {
		t.Fatalf("Err = %v, want ErrTimeout", res.Err)
	}
}

func TestExecutor_TimeoutDoesNotPreempt(t *testing.T) {
	e := NewExecutor()
	finished := make(chan struct{})

	res := e.ExecuteWithTimeout(context.Background(), nil, func(context.Context, any) (any, error) {
		time.Sleep(50 * time.Millisecond)
		close(finished)
		return nil, nil
	}, 10*time.Millisecond)

	if !errors.Is(res.Err, ErrTimeout) {
		t.Fatalf("Err = %v, want ErrTimeout", res.Err)
	}

	// The listener keeps running; only its result is discarded.
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("listener did not run to completion after timeout")
	}
}

func TestExecutor_ExecuteWithTimeoutZero(t *testing.T) {
	e := NewExecutor()

	res := e.ExecuteWithTimeout(context.Background(), nil, func(context.Context, any) (any, error) {
		return "ok", nil
	}, 0)

	if res.Err != nil || res.Value != "ok" {
		t.Errorf("zero timeout should execute inline, got (%v, %v)", res.Value, res.Err)
	}
}

func TestExecutor_ExecuteWithRetry(t *testing.T) {
	e := NewExecutor()
	var calls atomic.Int32

	start := time.Now()
	res := e.ExecuteWithRetry(context.Background(), nil, func(context.Context, any) (any, error) {
		if calls.Add(1) < 3 {
			return nil, errors.New("transient")
		}
		return "third time lucky", nil
	}, 0, Policy{MaxAttempts: 3, Delay: 20 * time.Millisecond})
	elapsed := time.Since(start)

	if res.Err != nil {
		t.Fatalf("Err = %v, want success on third attempt", res.Err)
	}
	if res.Value != "third time lucky" {
		t.Errorf("Value = %v", res.Value)
	}
	if res.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", res.Attempts)
	}
	// Linear backoff: 1x delay before attempt 2, 2x before attempt 3.
	if elapsed < 60*time.Millisecond {
		t.Errorf("elapsed = %s, want >= 60ms of backoff pauses", elapsed)
	}
}

func TestExecutor_ExecuteWithRetryExhausted(t *testing.T) {
	e := NewExecutor()
	wantErr := errors.New("permanent")
	var calls atomic.Int32

	res := e.ExecuteWithRetry(context.Background(), nil, func(context.Context, any) (any, error) {
		calls.Add(1)
		return nil, wantErr
	}, 0, Policy{MaxAttempts: 3, Delay: time.Millisecond})

	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
	if !errors.Is(res.Err, ErrRetryExhausted) {
		t.Fatalf("Err = %v, want ErrRetryExhausted", res.Err)
	}
	if !errors.Is(res.Err, wantErr) {
		t.Errorf("RetryError should wrap the last failure, got %v", res.Err)
	}
	var rerr *RetryError
	if !errors.As(res.Err, &rerr) {
		t.Fatal("expected *RetryError")
	}
	if rerr.Attempts != 3 {
		t.Errorf("RetryError.Attempts = %d, want 3", rerr.Attempts)
	}
}

func TestExecutor_ExecuteWithRetryCancelled(t *testing.T) {
	e := NewExecutor()
	ctx, cancel := context.WithCancel(context.Background())

	var calls atomic.Int32
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	res := e.ExecuteWithRetry(ctx, nil, func(context.Context, any) (any, error) {
		calls.Add(1)
		return nil, errors.New("transient")
	}, 0, Policy{MaxAttempts: 5, Delay: 100 * time.Millisecond})

	if !errors.Is(res.Err, context.Canceled) {
		t.Errorf("Err = %v, want context.Canceled", res.Err)
	}
	if got := calls.Load(); got >= 5 {
		t.Errorf("cancellation should stop the backoff loop early, calls = %d", got)
	}
}

func TestTimeoutError(t *testing.T) {
	err := &TimeoutError{Timeout: time.Second}
	if !errors.Is(err, ErrTimeout) {
		t.Error("TimeoutError should match ErrTimeout")
	}
	if err.Error() == "" {
		t.Error("empty error string")
	}
}
