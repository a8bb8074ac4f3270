package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestPoller_FirstObservationAndChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper.md")
	if err := os.WriteFile(path, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	p := &Poller{
		Name:     "manuscript",
		Path:     path,
		Interval: 10 * time.Millisecond,
		OnChange: func(context.Context) error {
			calls.Add(1)
			return nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	waitFor(t, func() bool { return calls.Load() == 1 })

	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return calls.Load() == 2 })

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestPoller_MissingFileIsNotAChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build", "paper.pdf")

	var calls atomic.Int32
	p := &Poller{
		Path:     path,
		Interval: 5 * time.Millisecond,
		OnChange: func(context.Context) error {
			calls.Add(1)
			return nil
		},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	_ = p.Run(ctx)

	if calls.Load() != 0 {
		t.Errorf("OnChange called %d times for a missing file", calls.Load())
	}
}

func TestPoller_HandlerErrorKeepsPolling(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper.md")
	_ = os.WriteFile(path, []byte("x"), 0o644)

	var calls atomic.Int32
	p := &Poller{
		Path:     path,
		Interval: 5 * time.Millisecond,
		OnChange: func(context.Context) error {
			calls.Add(1)
			return errors.New("sync failed")
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	waitFor(t, func() bool { return calls.Load() == 1 })
	later := time.Now().Add(2 * time.Hour)
	_ = os.Chtimes(path, later, later)
	waitFor(t, func() bool { return calls.Load() == 2 })

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRun_FirstTaskToStopCancelsOthers(t *testing.T) {
	var stopped atomic.Bool
	blocking := func(ctx context.Context) error {
		<-ctx.Done()
		stopped.Store(true)
		return nil
	}
	quick := func(context.Context) error { return nil }

	errc := make(chan error, 1)
	go func() { errc <- Run(context.Background(), nil, blocking, quick) }()

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after a task stopped")
	}
	if !stopped.Load() {
		t.Error("blocking task was not cancelled")
	}
}

func TestRun_TaskErrorIsReturned(t *testing.T) {
	boom := errors.New("boom")
	err := Run(context.Background(), nil,
		func(ctx context.Context) error { <-ctx.Done(); return nil },
		func(context.Context) error { return boom },
	)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}

func TestRun_NoTasks(t *testing.T) {
	if err := Run(context.Background(), nil); err == nil {
		t.Fatal("expected error without tasks")
	}
}

func TestPublishCopier(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "paper_latex", "build", "paper.pdf")
	dst := filepath.Join(dir, "paper.pdf")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, []byte("%PDF-1.7 built"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := PublishCopier(src, dst, nil)(context.Background()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "%PDF-1.7 built" {
		t.Errorf("published = %q", got)
	}
}

func TestPublishCopier_MissingSource(t *testing.T) {
	dir := t.TempDir()
	err := PublishCopier(filepath.Join(dir, "nope.pdf"), filepath.Join(dir, "out.pdf"), nil)(context.Background())
	if err == nil {
		t.Fatal("expected error for missing build output")
	}
}

func TestCommandTask_EmptyCommand(t *testing.T) {
	if err := CommandTask(nil, "", nil, nil, nil)(context.Background()); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestCommandTask_CancelledIsNotError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := CommandTask([]string{"sleep", "5"}, "", nil, nil, nil)(ctx); err != nil {
		t.Fatalf("err = %v, want nil after cancellation", err)
	}
}
