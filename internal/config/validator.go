package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/livp123/authguard/internal/classifier"
)

// ValidationError represents a single validation error.
// ValidationError 表示单个验证错误。
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value"`
}

// ValidationWarning represents a potential issue that's not critical.
// ValidationWarning 表示非关键的潜在问题。
type ValidationWarning struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value"`
}

// ValidationResult contains all validation errors and warnings.
// ValidationResult 包含所有验证错误和警告。
type ValidationResult struct {
	Valid    bool                `json:"valid"`
	Errors   []ValidationError   `json:"errors"`
	Warnings []ValidationWarning `json:"warnings"`
}

func newResult() *ValidationResult {
	return &ValidationResult{Valid: true, Errors: []ValidationError{}, Warnings: []ValidationWarning{}}
}

// AddError adds a validation error.
// AddError 添加验证错误。
func (r *ValidationResult) AddError(field, message string, value any) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message, Value: value})
	r.Valid = false
}

// AddWarning adds a validation warning.
// AddWarning 添加验证警告。
func (r *ValidationResult) AddWarning(field, message string, value any) {
	r.Warnings = append(r.Warnings, ValidationWarning{Field: field, Message: message, Value: value})
}

// Error joins the error messages, or returns "" when valid.
func (r *ValidationResult) Error() string {
	if r.Valid {
		return ""
	}
	parts := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return strings.Join(parts, "; ")
}

// ValidateSyntax validates the YAML syntax of the configuration.
// ValidateSyntax 验证配置的 YAML 语法。
func ValidateSyntax(data []byte) *ValidationResult {
	result := newResult()
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		result.AddError("config", fmt.Sprintf("YAML syntax error: %v", err), nil)
	}
	return result
}

// Validate validates the entire configuration.
// Validate 验证整个配置。
func Validate(cfg *GlobalConfig) *ValidationResult {
	result := newResult()
	validateMonitor(&cfg.Monitor, result)
	validateClassifier(&cfg.Classifier, result)
	validateAction(&cfg.Action, result)
	validateMetrics(&cfg.Metrics, result)
	validateLogging(cfg, result)
	return result
}

func validateMonitor(cfg *MonitorConfig, result *ValidationResult) {
	if cfg.File == "" {
		result.AddError("monitor.file", "file path not specified", cfg.File)
	}
	if cfg.MaxFailedAttempts <= 0 {
		result.AddError("monitor.max_failed_attempts", "must be greater than 0", cfg.MaxFailedAttempts)
	}
	if cfg.ResetAfterSeconds <= 0 {
		result.AddError("monitor.reset_after_seconds", "must be greater than 0", cfg.ResetAfterSeconds)
	}
	if cfg.IgnoreSubsequentFailsMs < 0 {
		result.AddError("monitor.ignore_subsequent_fails_ms", "must not be negative", cfg.IgnoreSubsequentFailsMs)
	}
	if cfg.IgnoreSubsequentFailsMs > 0 && int64(cfg.IgnoreSubsequentFailsMs) >= int64(cfg.ResetAfterSeconds)*1000 {
		result.AddWarning("monitor.ignore_subsequent_fails_ms",
			"debounce window is not shorter than the reset window, the count can never exceed 1", cfg.IgnoreSubsequentFailsMs)
	}
	if cfg.PollInterval != "" {
		d, err := time.ParseDuration(cfg.PollInterval)
		switch {
		case err != nil:
			result.AddError("monitor.poll_interval", fmt.Sprintf("invalid duration: %v", err), cfg.PollInterval)
		case d <= 0:
			result.AddError("monitor.poll_interval", "must be positive", cfg.PollInterval)
		case d > 10*time.Second:
			result.AddWarning("monitor.poll_interval", "long intervals delay the response to failures", cfg.PollInterval)
		}
	}
}

func validateClassifier(cfg *ClassifierConfig, result *ValidationResult) {
	for i, r := range cfg.Rules {
		if r.Marker == "" || r.Phrase == "" {
			result.AddError(fmt.Sprintf("classifier.rules[%d]", i), "marker and phrase are required", r)
		}
	}
	for i, src := range cfg.Expressions {
		if _, err := classifier.New(nil, []string{src}); err != nil {
			result.AddError(fmt.Sprintf("classifier.expressions[%d]", i), err.Error(), src)
		}
	}
}

func validateAction(cfg *ActionConfig, result *ValidationResult) {
	if len(cfg.Command) == 0 || strings.TrimSpace(cfg.Command[0]) == "" {
		result.AddError("action.command", "command is required", cfg.Command)
	}
	if cfg.Timeout != "" {
		if d, err := time.ParseDuration(cfg.Timeout); err != nil || d <= 0 {
			result.AddError("action.timeout", "must be a positive duration", cfg.Timeout)
		}
	}
	if cfg.DryRun {
		result.AddWarning("action.dry_run", "the action will only be logged", cfg.DryRun)
	}
}

func validateMetrics(cfg *MetricsConfig, result *ValidationResult) {
	if !cfg.Enabled {
		return
	}
	if _, _, err := net.SplitHostPort(cfg.Listen); err != nil {
		result.AddError("metrics.listen", fmt.Sprintf("invalid listen address: %v", err), cfg.Listen)
	}
}

func validateLogging(cfg *GlobalConfig, result *ValidationResult) {
	switch strings.ToLower(cfg.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		result.AddWarning("logging.level", "unknown level, using info", cfg.Logging.Level)
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "", "console", "json":
	default:
		result.AddWarning("logging.format", "unknown format, using console", cfg.Logging.Format)
	}
	if cfg.Logging.Enabled && cfg.Logging.Path == "" {
		result.AddError("logging.path", "path is required when file logging is enabled", cfg.Logging.Path)
	}
	if cfg.Logging.Enabled && cfg.Logging.Path == cfg.Monitor.File {
		result.AddError("logging.path", "must differ from monitor.file", cfg.Logging.Path)
	}
}
