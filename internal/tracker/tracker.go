package tracker

import (
	"time"

	"go.uber.org/zap"

	"github.com/livp123/authguard/internal/classifier"
	"github.com/livp123/authguard/internal/metrics"
	"github.com/livp123/authguard/internal/notify"
	"github.com/livp123/authguard/internal/tailer"
	"github.com/livp123/authguard/internal/utils/logger"
)

// Clock returns wall-clock time in milliseconds since the epoch.
type Clock interface {
	NowMillis() int64
}

// SystemClock reads time.Now.
type SystemClock struct{}

func (SystemClock) NowMillis() int64 {
	return time.Now().UnixMilli()
}

// Classifier decides whether a line is an authentication failure.
type Classifier interface {
	IsFailureMessage(line string) bool
}

type defaultClassifier struct{}

func (defaultClassifier) IsFailureMessage(line string) bool {
	return classifier.IsFailureMessage(line)
}

// Options overrides the collaborators of a Tracker. Nil fields use the
// system clock, the default PAM rules and the platform notifier.
// Options 用于替换 Tracker 的协作组件，空字段使用默认实现。
type Options struct {
	Clock      Clock
	Classifier Classifier
	Notifier   notify.Notifier
}

// Tracker counts authentication failures read from the monitored file and
// reports when the configured maximum is reached. It is not safe for
// concurrent use; a single loop drives it through Update.
// Tracker 统计被监控文件中的认证失败次数，并在达到上限时发出通知。
type Tracker struct {
	params     Params
	watcher    *tailer.Watcher
	classifier Classifier
	clock      Clock
	log        *zap.SugaredLogger

	failedCount       int
	lastFailureMillis int64
}

// New validates params and starts watching the file. No Tracker is
// returned on error.
// New 校验参数并开始监控文件，出错时不会返回 Tracker。
func New(params Params, log *zap.SugaredLogger, opts *Options) (*Tracker, error) {
	log = logger.OrGlobal(log)
	if opts == nil {
		opts = &Options{}
	}
	if err := params.Validate(); err != nil {
		if opts.Notifier != nil {
			_ = opts.Notifier.Close()
		}
		return nil, err
	}

	watcher, err := tailer.NewWatcher(params.FilePath, opts.Notifier, log)
	if err != nil {
		return nil, err
	}

	t := &Tracker{
		params:     params,
		watcher:    watcher,
		classifier: opts.Classifier,
		clock:      opts.Clock,
		log:        log,
	}
	if t.classifier == nil {
		t.classifier = defaultClassifier{}
	}
	if t.clock == nil {
		t.clock = SystemClock{}
	}
	metrics.FailedAttempts.Set(0)
	return t, nil
}

// Params returns the policy the tracker was built with.
func (t *Tracker) Params() Params {
	return t.params
}

// FailedCount is the number of failures counted in the current window.
func (t *Tracker) FailedCount() int {
	return t.failedCount
}

// LastFailureMillis is the timestamp of the last counted failure, or 0.
func (t *Tracker) LastFailureMillis() int64 {
	return t.lastFailureMillis
}

// Update decays a stale count, consumes the lines appended since the last
// call and calls onThresholdExceeded at most once if the count has reached
// the maximum.
// Update 处理计数衰减与新增日志行，达到上限时最多调用一次 onThresholdExceeded。
func (t *Tracker) Update(onThresholdExceeded func()) {
	if t.shouldReset() {
		t.reset()
	}

	newFailures := 0
	t.watcher.Update(func(line string) {
		if t.countLine(line) {
			newFailures++
		}
	})

	if newFailures == 0 {
		return
	}
	t.failedCount += newFailures
	metrics.FailedAttempts.Set(float64(t.failedCount))
	t.log.Warnf("Authentication failed %d time(s)", t.failedCount)

	if t.failedCount >= t.params.MaxFailedAttempts {
		metrics.ThresholdExceeded.Inc()
		t.log.Errorf("Authentication failure limit of %d reached in %s", t.params.MaxFailedAttempts, t.watcher.File())
		if onThresholdExceeded != nil {
			onThresholdExceeded()
		}
	}
}

// countLine reports whether line is a failure that is not debounced, and
// records its timestamp if so.
func (t *Tracker) countLine(line string) bool {
	if !t.classifier.IsFailureMessage(line) {
		return false
	}
	metrics.FailureLines.Inc()
	t.log.Infof("Authentication failure message: %s", line)

	ts := classifier.ExtractTimestampMillis(line)
	if ts == 0 {
		ts = t.clock.NowMillis()
	}

	if ignore := int64(t.params.IgnoreSubsequentFailsMs); ignore > 0 && t.lastFailureMillis != 0 {
		if gap := ts - t.lastFailureMillis; gap <= ignore {
			metrics.IgnoredFailures.Inc()
			t.log.Infof("Authentication failure ignored (%d ms since last)", gap)
			return false
		}
	}
	t.lastFailureMillis = ts
	return true
}

// shouldReset reports whether a count below the maximum has aged past the
// reset window. Once the maximum is reached the count no longer decays.
func (t *Tracker) shouldReset() bool {
	if t.lastFailureMillis == 0 {
		return false
	}
	if t.failedCount <= 0 || t.failedCount >= t.params.MaxFailedAttempts {
		return false
	}
	elapsed := t.clock.NowMillis() - t.lastFailureMillis
	return elapsed > int64(t.params.ResetAfterSeconds)*1000
}

func (t *Tracker) reset() {
	t.log.Infof("Resetting %d failed attempt(s) after %d seconds without failures", t.failedCount, t.params.ResetAfterSeconds)
	t.failedCount = 0
	t.lastFailureMillis = 0
	metrics.Resets.Inc()
	metrics.FailedAttempts.Set(0)
}

// Close stops watching the file.
func (t *Tracker) Close() error {
	return t.watcher.Close()
}
