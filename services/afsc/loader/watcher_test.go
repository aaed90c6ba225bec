// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package loader

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type changeRecorder struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *changeRecorder) handle(_ context.Context, paths []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, paths)
}

func (r *changeRecorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]string, len(r.calls))
	copy(out, r.calls)
	return out
}

func TestWatcherDebouncesDocumentChanges(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	doc := writeDoc(t, root, "enlisted.yml", "1A: Aircrew operations\n")

	rec := &changeRecorder{}
	w, err := NewWatcher([]string{root}, rec.handle, WatcherOptions{Debounce: 50 * time.Millisecond})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	assert.True(t, w.IsWatching())

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(doc, []byte("1A: Aircrew operations\n1B: Cyber\n"), 0o644))
	}
	// Non-document files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(doc), "notes.txt"), []byte("x"), 0o644))

	require.Eventually(t, func() bool { return len(rec.snapshot()) >= 1 }, 3*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)

	calls := rec.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{doc}, calls[0])

	w.Stop()
	w.Stop()
	assert.False(t, w.IsWatching())
}

func TestWatcherFallsBackToSearchPathRoot(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	rec := &changeRecorder{}
	w, err := NewWatcher([]string{root}, rec.handle, WatcherOptions{Debounce: 20 * time.Millisecond})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(root, "stray.yml"), []byte("x: y\n"), 0o644))
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, 3*time.Second, 10*time.Millisecond)
}

func TestWatcherNoPaths(t *testing.T) {
	defer goleak.VerifyNone(t)

	w, err := NewWatcher([]string{filepath.Join(t.TempDir(), "missing")}, nil, WatcherOptions{})
	require.NoError(t, err)
	assert.ErrorIs(t, w.Start(context.Background()), ErrNoWatchablePaths)
	assert.False(t, w.IsWatching())
	w.Stop()
}

func TestWatcherSetPaths(t *testing.T) {
	defer goleak.VerifyNone(t)

	oldRoot, newRoot := t.TempDir(), t.TempDir()
	oldDoc := writeDoc(t, oldRoot, "officer.yml", "11MX: Mobility pilot\n")
	newDoc := writeDoc(t, newRoot, "officer.yml", "11MX: Mobility pilot\n")

	rec := &changeRecorder{}
	w, err := NewWatcher(nil, rec.handle, WatcherOptions{Debounce: 20 * time.Millisecond})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()
	assert.True(t, w.IsWatching())

	w.SetPaths([]string{oldRoot})
	require.NoError(t, os.WriteFile(oldDoc, []byte("11MX: Changed\n"), 0o644))
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, 3*time.Second, 10*time.Millisecond)

	w.SetPaths([]string{newRoot})
	require.NoError(t, os.WriteFile(oldDoc, []byte("11MX: Ignored\n"), 0o644))
	require.NoError(t, os.WriteFile(newDoc, []byte("11MX: Changed\n"), 0o644))
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, 3*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	calls := rec.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{oldDoc}, calls[0])
	assert.Equal(t, []string{newDoc}, calls[1])
}

func TestWatcherStopsOnContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	w, err := NewWatcher([]string{t.TempDir()}, nil, WatcherOptions{})
	require.NoError(t, err)
	require.NoError(t, w.Start(ctx))
	cancel()
	w.Stop()
}
