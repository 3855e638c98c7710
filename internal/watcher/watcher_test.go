package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherDebouncesBursts(t *testing.T) {
	root := t.TempDir()

	var calls atomic.Int32
	w, err := New(root, 50*time.Millisecond, func(context.Context) {
		calls.Add(1)
	})
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()

	// A burst of writes lands as one callback.
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, "SKILL.md"), []byte("x"), 0o644))
		time.Sleep(5 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return calls.Load() == 1 },
		2*time.Second, 10*time.Millisecond)

	// Quiet period, then another change fires again.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "SKILL.md"), []byte("y"), 0o644))
	assert.Eventually(t, func() bool { return calls.Load() == 2 },
		2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestWatcherSeesNewBundles(t *testing.T) {
	root := t.TempDir()

	var calls atomic.Int32
	w, err := New(root, 30*time.Millisecond, func(context.Context) {
		calls.Add(1)
	})
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	dir := filepath.Join(root, "new-skill")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	assert.Eventually(t, func() bool { return calls.Load() >= 1 },
		2*time.Second, 10*time.Millisecond)
}

func TestWatcherMissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope"), time.Second, func(context.Context) {})
	assert.Error(t, err)
}
