package tracker

import (
	"fmt"

	"github.com/livp123/authguard/pkg/errors"
)

const (
	DefaultMaxFailedAttempts       = 3
	DefaultResetAfterSeconds       = 30 * 60
	DefaultIgnoreSubsequentFailsMs = 0
)

// Params is the failure counting policy together with the monitored file.
// Params 是失败计数策略以及被监控的文件。
type Params struct {
	FilePath                string
	MaxFailedAttempts       int
	ResetAfterSeconds       int
	IgnoreSubsequentFailsMs int
}

// DefaultParams returns the default policy for path.
// DefaultParams 返回 path 的默认策略。
func DefaultParams(path string) Params {
	return Params{
		FilePath:                path,
		MaxFailedAttempts:       DefaultMaxFailedAttempts,
		ResetAfterSeconds:       DefaultResetAfterSeconds,
		IgnoreSubsequentFailsMs: DefaultIgnoreSubsequentFailsMs,
	}
}

// Validate checks the policy bounds.
// Validate 检查策略参数的取值范围。
func (p Params) Validate() error {
	if p.FilePath == "" {
		return fmt.Errorf("%w: file path not specified", errors.ErrConfigInvalid)
	}
	if p.MaxFailedAttempts <= 0 {
		return fmt.Errorf("%w: max-failed-attempts must be greater than 0, got %d", errors.ErrConfigInvalid, p.MaxFailedAttempts)
	}
	if p.ResetAfterSeconds <= 0 {
		return fmt.Errorf("%w: reset-after-seconds must be greater than 0, got %d", errors.ErrConfigInvalid, p.ResetAfterSeconds)
	}
	if p.IgnoreSubsequentFailsMs < 0 {
		return fmt.Errorf("%w: ignore-subsequent-fails-ms must not be negative, got %d", errors.ErrConfigInvalid, p.IgnoreSubsequentFailsMs)
	}
	return nil
}

func (p Params) String() string {
	return fmt.Sprintf("file=%s, max-failed-attempts=%d, reset-after-seconds=%d, ignore-subsequent-fails-ms=%d",
		p.FilePath, p.MaxFailedAttempts, p.ResetAfterSeconds, p.IgnoreSubsequentFailsMs)
}
