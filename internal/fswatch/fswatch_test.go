package fswatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoalesce(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name     string
		firstOp  Operation
		nextOp   Operation
		wantNil  bool
		wantOp   Operation
	}{
		{name: "create then modify stays create", firstOp: OpCreate, nextOp: OpModify, wantOp: OpCreate},
		{name: "create then delete cancels out", firstOp: OpCreate, nextOp: OpDelete, wantNil: true},
		{name: "modify then delete becomes delete", firstOp: OpModify, nextOp: OpDelete, wantOp: OpDelete},
		{name: "delete then create becomes modify", firstOp: OpDelete, nextOp: OpCreate, wantOp: OpModify},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			existing := &pendingEvent{
				event:   FileEvent{Path: "a.go", Operation: tc.firstOp, Timestamp: now},
				firstOp: tc.firstOp,
			}
			next := FileEvent{Path: "a.go", Operation: tc.nextOp, Timestamp: now}

			result := coalesce(existing, next)
			if tc.wantNil {
				assert.Nil(t, result)
				return
			}
			require.NotNil(t, result)
			assert.Equal(t, tc.wantOp, result.Operation)
		})
	}
}

func TestDebouncer_CoalescesBurstsIntoOneBatch(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.add(FileEvent{Path: "a.go", Operation: OpCreate, Timestamp: time.Now()})
	d.add(FileEvent{Path: "a.go", Operation: OpModify, Timestamp: time.Now()})
	d.add(FileEvent{Path: "b.go", Operation: OpModify, Timestamp: time.Now()})

	select {
	case batch := <-d.Output():
		assert.Len(t, batch, 2)
		byPath := map[string]Operation{}
		for _, e := range batch {
			byPath[e.Path] = e.Operation
		}
		assert.Equal(t, OpCreate, byPath["a.go"])
		assert.Equal(t, OpModify, byPath["b.go"])
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for debounced batch")
	}
}

func TestDebouncer_CreateThenDeleteProducesNoEvent(t *testing.T) {
	d := newDebouncer(15 * time.Millisecond)
	defer d.Stop()

	d.add(FileEvent{Path: "tmp.go", Operation: OpCreate, Timestamp: time.Now()})
	d.add(FileEvent{Path: "tmp.go", Operation: OpDelete, Timestamp: time.Now()})

	select {
	case batch := <-d.Output():
		t.Fatalf("expected no batch, got %v", batch)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPollingWatcher_DetectsCreateModifyDelete(t *testing.T) {
	root := t.TempDir()
	pw := newPollingWatcher(30 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = pw.Start(ctx, root)
	}()

	time.Sleep(50 * time.Millisecond)

	filePath := filepath.Join(root, "new.go")
	require.NoError(t, os.WriteFile(filePath, []byte("package x"), 0o644))

	ev := waitForEvent(t, pw.Events(), "new.go", OpCreate)
	assert.Equal(t, OpCreate, ev.Operation)

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, os.WriteFile(filePath, []byte("package x\n// changed"), 0o644))
	waitForEvent(t, pw.Events(), "new.go", OpModify)

	require.NoError(t, os.Remove(filePath))
	waitForEvent(t, pw.Events(), "new.go", OpDelete)

	require.NoError(t, pw.Stop())
}

func waitForEvent(t *testing.T, ch <-chan FileEvent, path string, op Operation) FileEvent {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("events channel closed before seeing %s %s", path, op)
			}
			if ev.Path == path && ev.Operation == op {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s %s", path, op)
		}
	}
}

func TestHybridWatcher_DetectsFileCreationEndToEnd(t *testing.T) {
	root := t.TempDir()

	w, err := NewHybridWatcher(Options{DebounceWindow: 30 * time.Millisecond, PollInterval: 50 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = w.Start(ctx, root)
	}()

	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main"), 0o644))

	select {
	case batch := <-w.Events():
		require.NotEmpty(t, batch)
		found := false
		for _, ev := range batch {
			if ev.Path == "main.go" {
				found = true
			}
		}
		assert.True(t, found, "expected main.go in batch %v", batch)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for hybrid watcher event")
	}

	require.NoError(t, w.Stop())
}

func TestHybridWatcher_GitignoreChangeEmitsSpecialEvent(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("*.log\n"), 0o644))

	w, err := NewHybridWatcher(Options{DebounceWindow: 30 * time.Millisecond, PollInterval: 50 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = w.Start(ctx, root)
	}()

	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("*.log\n*.tmp\n"), 0o644))

	select {
	case batch := <-w.Events():
		found := false
		for _, ev := range batch {
			if ev.Operation == OpGitignoreChange {
				found = true
			}
		}
		assert.True(t, found, "expected a gitignore-change event in batch %v", batch)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for gitignore-change event")
	}

	require.NoError(t, w.Stop())
}

func TestHybridWatcher_IgnoresDataDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".astdb"), 0o755))

	w, err := NewHybridWatcher(DefaultOptions())
	require.NoError(t, err)

	assert.True(t, w.shouldIgnore(".astdb/index.db", false))
	assert.True(t, w.shouldIgnoreDir(".astdb"))
	assert.True(t, w.shouldIgnore(".git/HEAD", false))
	assert.False(t, w.shouldIgnore("main.go", false))
}
