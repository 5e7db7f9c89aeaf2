package app

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherPostsTrackedChanges(t *testing.T) {
	dir := t.TempDir()
	tracked := filepath.Join(dir, "tracked.csv")
	other := filepath.Join(dir, "other.csv")
	require.NoError(t, os.WriteFile(tracked, []byte("1\n"), 0o644))

	events := make(chan *fileChangedEvent, 16)
	w, err := newWatcher(func(ev tcell.Event) error {
		events <- ev.(*fileChangedEvent)
		return nil
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	require.NoError(t, w.track(tracked))

	require.NoError(t, os.WriteFile(other, []byte("x\n"), 0o644))
	require.NoError(t, os.WriteFile(tracked, []byte("2\n"), 0o644))

	select {
	case ev := <-events:
		assert.Equal(t, tracked, ev.path)
		assert.False(t, ev.When().IsZero())
	case <-time.After(5 * time.Second):
		t.Fatal("no event for the tracked file")
	}
	for len(events) > 0 {
		assert.Equal(t, tracked, (<-events).path)
	}
}
