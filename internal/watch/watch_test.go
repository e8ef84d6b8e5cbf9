package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldIgnore(t *testing.T) {
	for _, p := range []string{"/a/.glace-1.js", "/a/index.html~", "/a/.index.html.swp", "/a/#x#", "/a/Thumbs.db", "/a/.DS_Store"} {
		assert.True(t, ShouldIgnore(p), p)
	}
	for _, p := range []string{"/a/index.html", "/a/app.ts", "/a/b#c"} {
		assert.False(t, ShouldIgnore(p), p)
	}
}

func TestDebounceCoalesces(t *testing.T) {
	var calls atomic.Int32
	db := debounce(30*time.Millisecond, func() { calls.Add(1) })
	for range 5 {
		db.Fire()
		time.Sleep(5 * time.Millisecond)
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 10*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWorkerCoalescesRequestsDuringBuild(t *testing.T) {
	release := make(chan struct{})
	var (
		mu       sync.Mutex
		triggers []string
	)
	w := New(t.TempDir(), func(_ context.Context, trigger string) error {
		mu.Lock()
		triggers = append(triggers, trigger)
		n := len(triggers)
		mu.Unlock()
		if n == 1 {
			<-release
		}
		return nil
	}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.worker(ctx)

	w.request(TriggerChange)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(triggers) == 1
	}, time.Second, 5*time.Millisecond)

	for range 10 {
		w.request(TriggerChange)
	}
	close(release)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(triggers) == 2
	}, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, triggers, 2)
}

func TestRunRebuildsOnChange(t *testing.T) {
	root := t.TempDir()
	var builds atomic.Int32
	w := New(root, func(context.Context, string) error {
		builds.Add(1)
		return nil
	}, Options{Debounce: 20 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Hidden files never trigger.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(root, ".hidden"), []byte("x"), 0o644)
		_ = os.WriteFile(filepath.Join(root, "index.html"), []byte(time.Now().String()), 0o644)
		return builds.Load() >= 1
	}, 3*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestRunSchedulesPeriodicBuilds(t *testing.T) {
	var (
		builds   atomic.Int32
		schedule atomic.Int32
	)
	w := New(t.TempDir(), func(_ context.Context, trigger string) error {
		builds.Add(1)
		if trigger == TriggerSchedule {
			schedule.Add(1)
		}
		return nil
	}, Options{Interval: 50 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return schedule.Load() >= 2 }, 3*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestRunMissingRoot(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing"), func(context.Context, string) error { return nil }, Options{})
	err := w.Run(context.Background())
	require.Error(t, err)
}
