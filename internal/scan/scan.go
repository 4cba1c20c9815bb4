// Package scan replays an existing log file through the classifier once,
// without following it.
// Package scan 将已有日志文件一次性通过分类器回放，不持续跟踪。
package scan

import (
	"context"
	"strings"

	"github.com/nxadm/tail"
	"go.uber.org/zap"

	"github.com/livp123/authguard/internal/classifier"
	"github.com/livp123/authguard/internal/tracker"
	"github.com/livp123/authguard/internal/utils/logger"
	"github.com/livp123/authguard/pkg/errors"
)

// Failure is one matching line.
type Failure struct {
	Line            int    `json:"line"`
	Text            string `json:"text"`
	TimestampMillis int64  `json:"timestamp_ms"`
}

// Report is the result of scanning one file.
// Report 是扫描单个文件的结果。
type Report struct {
	File     string    `json:"file"`
	Lines    int       `json:"lines"`
	Failures []Failure `json:"failures"`
}

// File reads path from the start to its current end and collects the lines
// c classifies as failures.
// File 从头读取 path 到当前末尾，收集被分类为失败的行。
func File(ctx context.Context, path string, c tracker.Classifier, log *zap.SugaredLogger) (*Report, error) {
	log = logger.OrGlobal(log)
	t, err := tail.TailFile(path, tail.Config{
		Follow:    false,
		MustExist: true,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return nil, errors.NewFileError(path, err)
	}
	defer t.Cleanup()

	report := &Report{File: path, Failures: []Failure{}}
	for {
		select {
		case <-ctx.Done():
			_ = t.Stop()
			return report, ctx.Err()
		case line, ok := <-t.Lines:
			if !ok {
				if err := t.Wait(); err != nil {
					return report, errors.NewFileError(path, err)
				}
				log.Debugf("Scanned %d lines of %s, %d failures", report.Lines, path, len(report.Failures))
				return report, nil
			}
			if line.Err != nil {
				log.Warnf("Error reading %s: %v", path, line.Err)
				continue
			}
			report.Lines++
			text := strings.TrimSuffix(line.Text, "\r")
			if !c.IsFailureMessage(text) {
				continue
			}
			report.Failures = append(report.Failures, Failure{
				Line:            report.Lines,
				Text:            text,
				TimestampMillis: classifier.ExtractTimestampMillis(text),
			})
		}
	}
}

// Verdict is what the failure policy would have done with a report.
// Verdict 表示失败策略对扫描结果的判定。
type Verdict struct {
	Counted  int `json:"counted"`
	Ignored  int `json:"ignored"`
	Resets   int `json:"resets"`
	Triggers int `json:"triggers"`
	// FirstTrigger is the line that first reached the limit, or 0.
	FirstTrigger int `json:"first_trigger"`
}

// Replay applies the debounce, decay and limit of params to the failures
// in order, using their embedded timestamps as the clock. A failure without
// a timestamp reuses the previous one.
// Replay 以行内时间戳作为时钟，按顺序对失败记录应用去抖、衰减与上限策略。
func Replay(report *Report, params tracker.Params) Verdict {
	var (
		v     Verdict
		count int
		last  int64
		now   int64
	)
	for _, f := range report.Failures {
		if f.TimestampMillis != 0 {
			now = f.TimestampMillis
		}
		if last != 0 && count > 0 && count < params.MaxFailedAttempts &&
			now-last > int64(params.ResetAfterSeconds)*1000 {
			count, last = 0, 0
			v.Resets++
		}
		if params.IgnoreSubsequentFailsMs > 0 && last != 0 && now-last <= int64(params.IgnoreSubsequentFailsMs) {
			v.Ignored++
			continue
		}
		last = now
		count++
		v.Counted++
		if count >= params.MaxFailedAttempts {
			v.Triggers++
			if v.FirstTrigger == 0 {
				v.FirstTrigger = f.Line
			}
		}
	}
	return v
}
