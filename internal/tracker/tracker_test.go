//go:build linux

package tracker

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/livp123/authguard/internal/classifier"
)

const failureLine = "workstation sudo: pam_unix(sudo:auth): authentication failure; logname=john uid=1000 euid=0 tty=/dev/pts/7 ruser=john rhost=  user=john"

const benignLine = "workstation CRON[9419]: pam_unix(cron:session): session opened for user root(uid=0) by (uid=0)"

type fakeClock struct {
	now int64
}

func (c *fakeClock) NowMillis() int64 { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now += d.Milliseconds() }

type trackerFixture struct {
	t       *testing.T
	path    string
	clock   *fakeClock
	tracker *Tracker
	calls   int
}

func newTrackerFixture(t *testing.T, modify func(p *Params)) *trackerFixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "auth.log")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	params := DefaultParams(path)
	if modify != nil {
		modify(&params)
	}
	clock := &fakeClock{now: time.Date(2024, 2, 10, 14, 0, 0, 0, time.UTC).UnixMilli()}
	tr, err := New(params, zap.NewNop().Sugar(), &Options{Clock: clock})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	return &trackerFixture{t: t, path: path, clock: clock, tracker: tr}
}

func (f *trackerFixture) write(lines ...string) {
	f.t.Helper()
	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(f.t, err)
	defer file.Close()
	for _, line := range lines {
		_, err := fmt.Fprintln(file, line)
		require.NoError(f.t, err)
	}
}

// update runs one tracker pass and returns how many times the callback fired.
func (f *trackerFixture) update() int {
	before := f.calls
	f.tracker.Update(func() { f.calls++ })
	return f.calls - before
}

func stamped(ts time.Time, msg string) string {
	return ts.Format(classifier.TimestampLayout) + " " + msg
}

// TestTracker_Threshold tests that the third failure triggers the callback
// TestTracker_Threshold 测试第三次失败触发回调
func TestTracker_Threshold(t *testing.T) {
	f := newTrackerFixture(t, nil)

	f.write(failureLine, failureLine)
	assert.Equal(t, 0, f.update())
	assert.Equal(t, 2, f.tracker.FailedCount())

	f.write(failureLine)
	assert.Equal(t, 1, f.update())
	assert.Equal(t, 3, f.tracker.FailedCount())
}

func TestTracker_ThresholdOncePerUpdate(t *testing.T) {
	f := newTrackerFixture(t, nil)

	f.write(failureLine, failureLine, failureLine, failureLine, failureLine)
	assert.Equal(t, 1, f.update())
	assert.Equal(t, 5, f.tracker.FailedCount())

	assert.Equal(t, 0, f.update(), "no new lines, no callback")
}

// TestTracker_ThresholdRefiresOnNewFailures tests that the callback fires
// again only when an update adds failures while at the limit
// TestTracker_ThresholdRefiresOnNewFailures 测试达到上限后仅在出现新失败时再次回调
func TestTracker_ThresholdRefiresOnNewFailures(t *testing.T) {
	f := newTrackerFixture(t, nil)

	f.write(failureLine, failureLine, failureLine)
	assert.Equal(t, 1, f.update())

	f.write(benignLine)
	assert.Equal(t, 0, f.update())
	f.clock.Advance(time.Hour)
	assert.Equal(t, 0, f.update())

	f.write(failureLine)
	assert.Equal(t, 1, f.update())
	assert.Equal(t, 4, f.tracker.FailedCount())
}

func TestTracker_Params(t *testing.T) {
	f := newTrackerFixture(t, func(p *Params) {
		p.MaxFailedAttempts = 7
		p.IgnoreSubsequentFailsMs = 250
	})

	got := f.tracker.Params()
	assert.Equal(t, f.path, got.FilePath)
	assert.Equal(t, 7, got.MaxFailedAttempts)
	assert.Equal(t, DefaultResetAfterSeconds, got.ResetAfterSeconds)
	assert.Equal(t, 250, got.IgnoreSubsequentFailsMs)
}

func TestTracker_LimitLogNamesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.log")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	core, logs := observer.New(zapcore.InfoLevel)

	params := DefaultParams(path)
	params.MaxFailedAttempts = 1
	tr, err := New(params, zap.New(core).Sugar(), nil)
	require.NoError(t, err)
	defer tr.Close()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = fmt.Fprintln(f, failureLine)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	fired := false
	tr.Update(func() { fired = true })
	assert.True(t, fired)

	entries := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Message, "limit of 1 reached")
	assert.Contains(t, entries[0].Message, "auth.log")
}

func TestTracker_BenignLinesNotCounted(t *testing.T) {
	f := newTrackerFixture(t, nil)

	f.write(benignLine, benignLine, benignLine, failureLine)
	assert.Equal(t, 0, f.update())
	assert.Equal(t, 1, f.tracker.FailedCount())
}

func TestTracker_LastFailureUsesEmbeddedTimestamp(t *testing.T) {
	f := newTrackerFixture(t, nil)

	ts := time.Date(2024, 2, 10, 13, 59, 0, 0, time.UTC)
	f.write(stamped(ts, failureLine))
	f.update()
	assert.Equal(t, ts.UnixMilli(), f.tracker.LastFailureMillis())

	f.write(failureLine)
	f.update()
	assert.Equal(t, f.clock.now, f.tracker.LastFailureMillis())
}

// TestTracker_Decay tests that an idle count resets
// TestTracker_Decay 测试空闲后计数被重置
func TestTracker_Decay(t *testing.T) {
	f := newTrackerFixture(t, func(p *Params) { p.ResetAfterSeconds = 5 })

	f.write(failureLine, failureLine)
	assert.Equal(t, 0, f.update())
	assert.Equal(t, 2, f.tracker.FailedCount())

	f.clock.Advance(6 * time.Second)
	f.write(failureLine, failureLine)
	assert.Equal(t, 0, f.update())
	assert.Equal(t, 2, f.tracker.FailedCount())
}

func TestTracker_DecayWithoutNewLines(t *testing.T) {
	f := newTrackerFixture(t, func(p *Params) { p.ResetAfterSeconds = 5 })

	f.write(failureLine)
	f.update()

	f.clock.Advance(5 * time.Second)
	f.update()
	assert.Equal(t, 1, f.tracker.FailedCount(), "exactly the window is not past it")

	f.clock.Advance(time.Millisecond)
	f.update()
	assert.Equal(t, 0, f.tracker.FailedCount())
	assert.Zero(t, f.tracker.LastFailureMillis())
}

func TestTracker_NoDecayOnceThresholdReached(t *testing.T) {
	f := newTrackerFixture(t, func(p *Params) { p.ResetAfterSeconds = 5 })

	f.write(failureLine, failureLine, failureLine)
	assert.Equal(t, 1, f.update())

	f.clock.Advance(time.Hour)
	f.update()
	assert.Equal(t, 3, f.tracker.FailedCount())

	f.write(failureLine)
	assert.Equal(t, 1, f.update())
}

// TestTracker_Debounce tests the ignore window
// TestTracker_Debounce 测试忽略窗口
func TestTracker_Debounce(t *testing.T) {
	base := time.Date(2024, 2, 10, 14, 0, 0, 0, time.UTC)

	t.Run("within window", func(t *testing.T) {
		f := newTrackerFixture(t, func(p *Params) { p.IgnoreSubsequentFailsMs = 1000 })
		f.write(stamped(base, failureLine), stamped(base.Add(200*time.Millisecond), failureLine))
		f.update()
		assert.Equal(t, 1, f.tracker.FailedCount())
		assert.Equal(t, base.UnixMilli(), f.tracker.LastFailureMillis())
	})

	t.Run("outside window", func(t *testing.T) {
		f := newTrackerFixture(t, func(p *Params) { p.IgnoreSubsequentFailsMs = 1000 })
		f.write(stamped(base, failureLine), stamped(base.Add(1500*time.Millisecond), failureLine))
		f.update()
		assert.Equal(t, 2, f.tracker.FailedCount())
	})

	t.Run("window edge is ignored", func(t *testing.T) {
		f := newTrackerFixture(t, func(p *Params) { p.IgnoreSubsequentFailsMs = 1000 })
		f.write(stamped(base, failureLine), stamped(base.Add(time.Second), failureLine))
		f.update()
		assert.Equal(t, 1, f.tracker.FailedCount())
	})

	t.Run("disabled", func(t *testing.T) {
		f := newTrackerFixture(t, nil)
		f.write(stamped(base, failureLine), stamped(base, failureLine))
		f.update()
		assert.Equal(t, 2, f.tracker.FailedCount())
	})

	t.Run("across updates", func(t *testing.T) {
		f := newTrackerFixture(t, func(p *Params) { p.IgnoreSubsequentFailsMs = 1000 })
		f.write(stamped(base, failureLine))
		f.update()
		f.write(stamped(base.Add(500*time.Millisecond), failureLine))
		f.update()
		assert.Equal(t, 1, f.tracker.FailedCount())
	})
}

func TestTracker_CountsAcrossRotation(t *testing.T) {
	f := newTrackerFixture(t, nil)

	f.write(failureLine)
	f.update()

	require.NoError(t, os.Rename(f.path, f.path+".1"))
	require.NoError(t, os.WriteFile(f.path, []byte(failureLine+"\n"), 0o644))
	assert.Equal(t, 0, f.update())
	assert.Equal(t, 2, f.tracker.FailedCount())

	require.NoError(t, os.Remove(f.path))
	require.NoError(t, os.WriteFile(f.path, []byte(failureLine+"\n"), 0o644))
	assert.Equal(t, 1, f.update())
}

func TestTracker_CountsAfterTruncation(t *testing.T) {
	f := newTrackerFixture(t, nil)

	f.write(benignLine, benignLine, benignLine)
	f.update()

	require.NoError(t, os.Truncate(f.path, 0))
	f.write(failureLine)
	f.update()
	assert.Equal(t, 1, f.tracker.FailedCount())
}

func TestTracker_CustomClassifier(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.log")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	c, err := classifier.New([]classifier.Rule{{Marker: "sshd[", Phrase: "Failed password"}}, nil)
	require.NoError(t, err)
	params := DefaultParams(path)
	params.MaxFailedAttempts = 1
	tr, err := New(params, zap.NewNop().Sugar(), &Options{Classifier: c})
	require.NoError(t, err)
	defer tr.Close()

	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = file.WriteString(failureLine + "\nhost sshd[7]: Failed password for root\n")
	require.NoError(t, err)
	require.NoError(t, file.Close())

	fired := false
	tr.Update(func() { fired = true })
	assert.True(t, fired)
	assert.Equal(t, 1, tr.FailedCount())
}
