package index

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestReindexer_CoalescesBurst(t *testing.T) {
	runner := &countingRunner{}
	var done atomic.Int32
	r := NewReindexer(runner, 50*time.Millisecond, quietLogger(), func(IndexResult) { done.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	for i := 0; i < 10; i++ {
		r.Trigger()
		time.Sleep(5 * time.Millisecond)
	}

	eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return done.Load() == 1
	}, "expected one completed run")

	time.Sleep(150 * time.Millisecond)
	if n := runner.n.Load(); n != 1 {
		t.Errorf("expected burst to coalesce into 1 run, got %d", n)
	}
}

func TestReindexer_LastResult(t *testing.T) {
	runner := runnerFunc(func(context.Context) IndexResult {
		return IndexResult{Success: false, Output: "boom"}
	})
	r := NewReindexer(runner, 10*time.Millisecond, quietLogger(), nil)

	if _, at := r.Last(); !at.IsZero() {
		t.Fatal("expected zero time before first run")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)
	r.Trigger()

	eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		_, at := r.Last()
		return !at.IsZero()
	}, "run never completed")

	res, _ := r.Last()
	if res.Success || res.Output != "boom" {
		t.Errorf("Last() = %+v", res)
	}
}

func TestReindexer_StopsOnCancel(t *testing.T) {
	r := NewReindexer(&countingRunner{}, time.Hour, quietLogger(), nil)
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() { errc <- r.Run(ctx) }()
	r.Trigger()
	cancel()

	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestValidateSchedule(t *testing.T) {
	for _, spec := range []string{"", "*/15 * * * *", "@hourly", "0 3 * * 1-5"} {
		if err := ValidateSchedule(spec); err != nil {
			t.Errorf("ValidateSchedule(%q): %v", spec, err)
		}
	}
	for _, spec := range []string{"every minute", "* * *", "61 * * * *"} {
		if err := ValidateSchedule(spec); err == nil {
			t.Errorf("ValidateSchedule(%q): expected error", spec)
		}
	}
}

func TestSchedule_DisabledReturnsImmediately(t *testing.T) {
	r := NewReindexer(&countingRunner{}, time.Second, quietLogger(), nil)
	if err := Schedule(context.Background(), "", r, quietLogger()); err != nil {
		t.Errorf("Schedule: %v", err)
	}
}

func TestSchedule_InvalidSpec(t *testing.T) {
	r := NewReindexer(&countingRunner{}, time.Second, quietLogger(), nil)
	if err := Schedule(context.Background(), "nope", r, quietLogger()); err == nil {
		t.Error("expected parse error")
	}
}

type runnerFunc func(context.Context) IndexResult

func (f runnerFunc) Reindex(ctx context.Context) IndexResult { return f(ctx) }
