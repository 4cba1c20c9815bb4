package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/livp123/authguard/internal/action"
	"github.com/livp123/authguard/internal/classifier"
	"github.com/livp123/authguard/internal/tracker"
	"github.com/livp123/authguard/internal/utils/fileutil"
	"github.com/livp123/authguard/internal/utils/logger"
	"github.com/livp123/authguard/pkg/errors"
)

// GlobalConfig is the top level configuration file.
// GlobalConfig 是顶层配置文件结构。
type GlobalConfig struct {
	Monitor    MonitorConfig        `yaml:"monitor"`
	Classifier ClassifierConfig     `yaml:"classifier"`
	Action     ActionConfig         `yaml:"action"`
	Metrics    MetricsConfig        `yaml:"metrics"`
	Logging    logger.LoggingConfig `yaml:"logging"`
	Daemon     DaemonConfig         `yaml:"daemon"`
}

// MonitorConfig is the watched file and its failure policy.
// MonitorConfig 是被监控的文件及其失败策略。
type MonitorConfig struct {
	File                    string `yaml:"file"`
	MaxFailedAttempts       int    `yaml:"max_failed_attempts"`
	ResetAfterSeconds       int    `yaml:"reset_after_seconds"`
	IgnoreSubsequentFailsMs int    `yaml:"ignore_subsequent_fails_ms"`
	PollInterval            string `yaml:"poll_interval"` // e.g. "500ms"
}

// ClassifierConfig extends or replaces the built-in failure rules.
// ClassifierConfig 扩展或替换内置的失败规则。
type ClassifierConfig struct {
	Rules       []classifier.Rule `yaml:"rules,omitempty"`       // Empty: built-in PAM rules / 为空时使用内置 PAM 规则
	Expressions []string          `yaml:"expressions,omitempty"` // expr-lang boolean expressions / expr-lang 布尔表达式
}

// ActionConfig is the command run when the limit is reached.
// ActionConfig 是达到上限时执行的命令。
type ActionConfig struct {
	Command       []string `yaml:"command"`
	Timeout       string   `yaml:"timeout"`
	DryRun        bool     `yaml:"dry_run"`
	ExitOnTrigger bool     `yaml:"exit_on_trigger"`
}

// MetricsConfig controls the Prometheus endpoint.
// MetricsConfig 控制 Prometheus 端点。
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// DaemonConfig holds process level settings.
// DaemonConfig 包含进程级设置。
type DaemonConfig struct {
	PidFile string `yaml:"pid_file"` // Empty: no PID file / 为空时不写 PID 文件
}

// Default returns the built-in configuration.
// Default 返回内置默认配置。
func Default() *GlobalConfig {
	return &GlobalConfig{
		Monitor: MonitorConfig{
			File:                    DefaultMonitorFile,
			MaxFailedAttempts:       tracker.DefaultMaxFailedAttempts,
			ResetAfterSeconds:       tracker.DefaultResetAfterSeconds,
			IgnoreSubsequentFailsMs: tracker.DefaultIgnoreSubsequentFailsMs,
			PollInterval:            DefaultPollInterval.String(),
		},
		Action: ActionConfig{
			Command:       append([]string(nil), action.DefaultCommand...),
			Timeout:       action.DefaultTimeout.String(),
			ExitOnTrigger: false,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  DefaultMetricsListen,
		},
		Logging: logger.LoggingConfig{
			Level:      "info",
			Format:     "console",
			Path:       "/var/log/authguard/authguard.log",
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error.
// Load 在默认配置之上读取 path，文件不存在时不报错。
func Load(path string) (*GlobalConfig, error) {
	cfg := Default()
	safePath := filepath.Clean(path) // Sanitize path to prevent directory traversal
	data, err := os.ReadFile(safePath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.NewFileError(safePath, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.NewConfigError("config", err)
	}
	return cfg, nil
}

// Save writes cfg to path atomically.
// Save 以原子方式将配置写入 path。
func Save(path string, cfg *GlobalConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return errors.NewDirectoryError(filepath.Dir(path), err)
	}
	return fileutil.AtomicWriteFile(path, data, 0o640)
}

// Params converts the monitor section into tracker parameters.
// Params 将 monitor 配置转换为 tracker 参数。
func (c *GlobalConfig) Params() tracker.Params {
	return tracker.Params{
		FilePath:                c.Monitor.File,
		MaxFailedAttempts:       c.Monitor.MaxFailedAttempts,
		ResetAfterSeconds:       c.Monitor.ResetAfterSeconds,
		IgnoreSubsequentFailsMs: c.Monitor.IgnoreSubsequentFailsMs,
	}
}

// PollInterval parses monitor.poll_interval, falling back to the default.
func (c *GlobalConfig) PollInterval() time.Duration {
	return parseDuration(c.Monitor.PollInterval, DefaultPollInterval)
}

// ActionTimeout parses action.timeout, falling back to the default.
func (c *GlobalConfig) ActionTimeout() time.Duration {
	return parseDuration(c.Action.Timeout, action.DefaultTimeout)
}

// ActionConfig converts the action section for the command handler.
func (c *GlobalConfig) ActionConfig() action.Config {
	return action.Config{
		Command: c.Action.Command,
		Timeout: c.ActionTimeout(),
		DryRun:  c.Action.DryRun,
	}
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
