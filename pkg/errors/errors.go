package errors

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	ErrInvalidFilePath     = errors.New("invalid file path")
	ErrFileNotFound        = errors.New("file not found")
	ErrDirectoryNotFound   = errors.New("directory not found")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrConfigNotFound      = errors.New("config not found")
	ErrConfigInvalid       = errors.New("invalid configuration")
	ErrInvalidExpression   = errors.New("invalid rule expression")
	ErrNotifierUnavailable = errors.New("file change notifier unavailable")
	ErrActionFailed        = errors.New("threshold action failed")
	ErrTimeout             = errors.New("operation timeout")
)

// Is reports whether any error in err's chain matches target.
// Is 报告 err 链中是否有错误与 target 匹配。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

func NewPathError(path string, reason string) error {
	return fmt.Errorf("%w: %q: %s", ErrInvalidFilePath, path, reason)
}

func NewDirectoryError(dir string, reason error) error {
	return fmt.Errorf("%w: %s: %v", ErrDirectoryNotFound, dir, reason)
}

// NewFileError classifies an open/stat failure on path.
// NewFileError 对 path 的打开/状态获取失败进行分类。
func NewFileError(path string, reason error) error {
	switch {
	case errors.Is(reason, fs.ErrPermission):
		return fmt.Errorf("%w: %s: %v", ErrPermissionDenied, path, reason)
	case errors.Is(reason, fs.ErrNotExist):
		return fmt.Errorf("%w: %s: %v", ErrFileNotFound, path, reason)
	default:
		return fmt.Errorf("open %s: %w", path, reason)
	}
}

func NewConfigError(field string, value interface{}) error {
	return fmt.Errorf("%w: field=%s value=%v", ErrConfigInvalid, field, value)
}

func NewExpressionError(expr string, reason error) error {
	return fmt.Errorf("%w: %q: %v", ErrInvalidExpression, expr, reason)
}

func NewNotifierError(op string, reason error) error {
	return fmt.Errorf("%w: %s: %v", ErrNotifierUnavailable, op, reason)
}

func NewActionError(command string, reason error) error {
	return fmt.Errorf("%w: %s: %w", ErrActionFailed, command, reason)
}
