//go:build linux

package tailer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type watcherFixture struct {
	t     *testing.T
	path  string
	w     *Watcher
	lines []string
}

func newWatcherFixture(t *testing.T, existing *string) *watcherFixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "auth.log")
	if existing != nil {
		appendTo(t, path, *existing)
	}
	w, err := NewWatcher(path, nil, zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return &watcherFixture{t: t, path: path, w: w}
}

// update runs one watcher pass and returns the lines it produced.
func (f *watcherFixture) update() []string {
	f.lines = nil
	f.w.Update(func(line string) { f.lines = append(f.lines, line) })
	return f.lines
}

func ptr(s string) *string { return &s }

func TestWatcher_ExistingContentIsNotReplayed(t *testing.T) {
	f := newWatcherFixture(t, ptr("old 1\nold 2\n"))
	assert.Equal(t, StatePresent, f.w.State())
	assert.Empty(t, f.update())

	appendTo(t, f.path, "new\n")
	assert.Equal(t, []string{"new"}, f.update())
}

func TestWatcher_AppendsDeliveredOnceInOrder(t *testing.T) {
	f := newWatcherFixture(t, ptr(""))

	appendTo(t, f.path, "1\n2\n")
	appendTo(t, f.path, "3\n")
	assert.Equal(t, []string{"1", "2", "3"}, f.update())
	assert.Empty(t, f.update())

	appendTo(t, f.path, "4\n")
	assert.Equal(t, []string{"4"}, f.update())
}

func TestWatcher_NoEventsReturnsImmediately(t *testing.T) {
	f := newWatcherFixture(t, ptr(""))
	assert.Empty(t, f.update())
	assert.Empty(t, f.update())
}

func TestWatcher_FileAbsentAtStart(t *testing.T) {
	f := newWatcherFixture(t, nil)
	assert.Equal(t, StateAbsent, f.w.State())
	assert.Empty(t, f.update())

	appendTo(t, f.path, "first\nsecond\n")
	assert.Equal(t, []string{"first", "second"}, f.update())
	assert.Equal(t, StatePresent, f.w.State())
}

func TestWatcher_DeleteAndRecreate(t *testing.T) {
	f := newWatcherFixture(t, ptr(""))

	appendTo(t, f.path, "before\n")
	require.NoError(t, os.Remove(f.path))
	assert.Equal(t, []string{"before"}, f.update())
	assert.Equal(t, StateAbsent, f.w.State())

	appendTo(t, f.path, "after\n")
	assert.Equal(t, []string{"after"}, f.update())
	assert.Equal(t, StatePresent, f.w.State())

	appendTo(t, f.path, "more\n")
	assert.Equal(t, []string{"more"}, f.update())
}

func TestWatcher_DeleteAndRecreateInOneBatch(t *testing.T) {
	f := newWatcherFixture(t, ptr(""))

	require.NoError(t, os.Remove(f.path))
	appendTo(t, f.path, "recreated\n")
	assert.Equal(t, []string{"recreated"}, f.update())
	assert.Empty(t, f.update())
}

func TestWatcher_RenameAndRecreate(t *testing.T) {
	f := newWatcherFixture(t, ptr(""))

	old, err := os.OpenFile(f.path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	defer old.Close()

	_, err = old.WriteString("rotated 1\n")
	require.NoError(t, err)
	require.NoError(t, os.Rename(f.path, f.path+".1"))
	// Late writes to the renamed file are still picked up.
	_, err = old.WriteString("rotated 2\n")
	require.NoError(t, err)
	appendTo(t, f.path, "fresh\n")

	assert.Equal(t, []string{"rotated 1", "rotated 2", "fresh"}, f.update())

	appendTo(t, f.path+".1", "ignored\n")
	appendTo(t, f.path, "fresh 2\n")
	assert.Equal(t, []string{"fresh 2"}, f.update())
}

func TestWatcher_RenamedAwayOnly(t *testing.T) {
	f := newWatcherFixture(t, ptr(""))

	require.NoError(t, os.Rename(f.path, f.path+".1"))
	assert.Empty(t, f.update())
	assert.Equal(t, StateAbsent, f.w.State())

	appendTo(t, f.path+".1", "not watched\n")
	assert.Empty(t, f.update())
}

func TestWatcher_RenamedOntoWatchedName(t *testing.T) {
	f := newWatcherFixture(t, nil)

	staged := f.path + ".tmp"
	appendTo(t, staged, "staged line\n")
	require.NoError(t, os.Rename(staged, f.path))

	assert.Equal(t, []string{"staged line"}, f.update())
}

func TestWatcher_Truncation(t *testing.T) {
	f := newWatcherFixture(t, ptr("line one that is long\nline two that is long\n"))

	require.NoError(t, os.Truncate(f.path, 0))
	appendTo(t, f.path, "after truncate\n")
	assert.Equal(t, []string{"after truncate"}, f.update())

	appendTo(t, f.path, "next\n")
	assert.Equal(t, []string{"next"}, f.update())
}

func TestWatcher_OtherFilesIgnored(t *testing.T) {
	f := newWatcherFixture(t, ptr(""))

	appendTo(t, filepath.Join(filepath.Dir(f.path), "syslog"), "noise\n")
	assert.Empty(t, f.update())
	assert.Equal(t, StatePresent, f.w.State())
}

func TestWatcher_File(t *testing.T) {
	f := newWatcherFixture(t, nil)

	dir, err := filepath.EvalSymlinks(filepath.Dir(f.path))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "auth.log"), f.w.File().Path())
	assert.Equal(t, "auth.log", f.w.File().Filename)
}

func TestNewWatcher_MissingDirectory(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "nope", "auth.log"), nil, zap.NewNop().Sugar())
	assert.Error(t, err)
}
