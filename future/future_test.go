package future

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestGo_ResolvesOnce(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})

	f := Go(context.Background(), func(ctx context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	})

	if f.Ready() {
		t.Fatal("future should not be ready before the operation completes")
	}
	close(release)

	for i := 0; i < 3; i++ {
		got, err := f.Get(context.Background())
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got != 42 {
			t.Errorf("Get() = %d, want 42", got)
		}
	}

	if calls.Load() != 1 {
		t.Errorf("operation ran %d times, want 1", calls.Load())
	}
}

func TestGo_PropagatesError(t *testing.T) {
	boom := errors.New("store unavailable")
	f := Go(context.Background(), func(ctx context.Context) (string, error) {
		return "", boom
	})

	_, err := f.Result()
	if !errors.Is(err, boom) {
		t.Fatalf("Result() error = %v, want %v", err, boom)
	}
}

func TestGo_RecoversPanic(t *testing.T) {
	f := Go(context.Background(), func(ctx context.Context) (int, error) {
		panic("kaboom")
	})

	_, err := f.Result()
	if err == nil || !strings.Contains(err.Error(), "kaboom") {
		t.Fatalf("Result() error = %v, want panic error", err)
	}
}

func TestGo_NotCancelledByCallerContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	release := make(chan struct{})

	f := Go(ctx, func(ctx context.Context) (int, error) {
		close(started)
		<-release
		return 7, ctx.Err()
	})

	<-started
	cancel()

	if _, err := f.Get(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Get() with cancelled ctx error = %v, want context.Canceled", err)
	}

	close(release)
	got, err := f.Result()
	if err != nil {
		t.Fatalf("operation saw cancellation: %v", err)
	}
	if got != 7 {
		t.Errorf("Result() = %d, want 7", got)
	}
}

func TestResolvedAndFailed(t *testing.T) {
	r := Resolved("ok", nil)
	if !r.Ready() {
		t.Fatal("Resolved future should be ready")
	}
	if v, err := r.Result(); v != "ok" || err != nil {
		t.Errorf("Resolved Result() = %q, %v", v, err)
	}

	boom := errors.New("boom")
	f := Failed[int](boom)
	if v, err := f.Result(); v != 0 || !errors.Is(err, boom) {
		t.Errorf("Failed Result() = %d, %v", v, err)
	}
}

func TestThen(t *testing.T) {
	ctx := context.Background()
	base := Go(ctx, func(ctx context.Context) (int, error) { return 2, nil })
	doubled := Then(ctx, base, func(ctx context.Context, v int) (int, error) { return v * 2, nil })

	if v, err := doubled.Result(); v != 4 || err != nil {
		t.Errorf("Then Result() = %d, %v", v, err)
	}

	boom := errors.New("boom")
	var ran atomic.Bool
	failed := Then(ctx, Failed[int](boom), func(ctx context.Context, v int) (int, error) {
		ran.Store(true)
		return v, nil
	})
	if _, err := failed.Result(); !errors.Is(err, boom) {
		t.Errorf("Then on failed future error = %v", err)
	}
	if ran.Load() {
		t.Error("Then should not run fn when the source failed")
	}
}

func TestWaitAll(t *testing.T) {
	ctx := context.Background()
	slow := Go(ctx, func(ctx context.Context) (int, error) {
		time.Sleep(10 * time.Millisecond)
		return 1, nil
	})
	fast := Resolved(2, nil)

	if err := WaitAll(ctx, slow, fast, nil); err != nil {
		t.Fatalf("WaitAll() error = %v", err)
	}
	if !slow.Ready() {
		t.Error("WaitAll returned before all futures were ready")
	}

	boom := errors.New("boom")
	if err := WaitAll(ctx, fast, Failed[int](boom)); !errors.Is(err, boom) {
		t.Errorf("WaitAll() error = %v, want %v", err, boom)
	}
}
