// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_InitialBuildAndRebuildOnChange(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "lib.rs"), []byte("fn first() {}\n"), 0o644))

	results := make(chan *Relationships, 4)
	handler := func(rels *Relationships, err error) {
		if err == nil {
			results <- rels
		}
	}

	w, err := NewWatcher(root, NewBuilder(WithWorkerCount(1)), handler, 20*time.Millisecond)
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go func() { _ = w.Start(ctx) }()

	select {
	case rels := <-results:
		assert.Contains(t, rels.Functions(), "first")
	case <-ctx.Done():
		t.Fatal("timed out waiting for initial build")
	}

	require.NoError(t, os.WriteFile(filepath.Join(root, "lib.rs"),
		[]byte("fn first() {}\nfn second() {}\n"), 0o644))

	deadline := time.After(4 * time.Second)
	for {
		select {
		case rels := <-results:
			if _, ok := rels.Functions()["second"]; ok {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for rebuild")
		}
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "lib.rs"), []byte("fn f() {}\n"), 0o644))

	w, err := NewWatcher(root, NewBuilder(WithWorkerCount(1)), nil, 0)
	require.NoError(t, err)

	w.Stop()
	w.Stop()
}

func TestWatcher_RelevantFiltersEvents(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), NewBuilder(), nil, 0)
	require.NoError(t, err)
	defer w.Stop()

	assert.True(t, w.relevant(fsnotify.Event{Name: "src/lib.rs", Op: fsnotify.Write}))
	assert.False(t, w.relevant(fsnotify.Event{Name: "notes.txt", Op: fsnotify.Write}))
	assert.False(t, w.relevant(fsnotify.Event{Name: ".lib.rs.swp", Op: fsnotify.Write}))
	// Extension-less creates pass through for directory tracking.
	assert.True(t, w.relevant(fsnotify.Event{Name: "src/newdir", Op: fsnotify.Create}))
	assert.False(t, w.relevant(fsnotify.Event{Name: "src/newdir", Op: fsnotify.Chmod}))
}
