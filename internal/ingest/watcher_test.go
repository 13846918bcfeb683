package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherRequiresRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{}, testLogger())
	assert.Error(t, err)
}

func TestWatcherInitialScanEmitsExisting(t *testing.T) {
	dir := t.TempDir()
	seed := filepath.Join(dir, "seed.pdf")
	require.NoError(t, os.WriteFile(seed, []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.txt"), []byte("x"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, errs, err := StartWatcher(ctx, WatchConfig{Roots: []string{dir}, InitialScan: true}, testLogger())
	require.NoError(t, err)

	select {
	case got := <-events:
		assert.Equal(t, seed, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no initial scan event")
	}

	// only the allowed extension was seeded
	select {
	case extra := <-events:
		t.Fatalf("unexpected event %q", extra)
	default:
	}

	cancel()
	for range events {
	}
	for range errs {
	}
}

func TestWatcherSeesNewFiles(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, errs, err := StartWatcher(ctx, WatchConfig{Roots: []string{dir}}, testLogger())
	require.NoError(t, err)

	dropped := filepath.Join(dir, "fresh.png")
	require.NoError(t, os.WriteFile(dropped, []byte("png bytes"), 0o600))

	select {
	case got := <-events:
		assert.Equal(t, dropped, got)
	case err := <-errs:
		t.Fatalf("watcher error: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("no event for new file")
	}

	cancel()
	for range events {
	}
	for range errs {
	}
}
