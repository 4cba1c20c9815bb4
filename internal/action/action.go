// Package action runs the host command configured for when the failed
// attempt limit is reached.
// Package action 在失败次数达到上限时执行配置的主机命令。
package action

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/livp123/authguard/internal/metrics"
	"github.com/livp123/authguard/internal/utils/logger"
	"github.com/livp123/authguard/pkg/errors"
)

// DefaultTimeout bounds a single command run.
const DefaultTimeout = 30 * time.Second

// DefaultCommand powers the machine off.
var DefaultCommand = []string{"systemctl", "poweroff"}

// Handler performs the remediation when the limit is reached.
// Handler 在达到上限时执行处置动作。
type Handler interface {
	Trigger(ctx context.Context) error
}

// Config describes the command to run.
type Config struct {
	Command []string
	Timeout time.Duration
	DryRun  bool
}

// CommandHandler runs an external command and logs its output.
// CommandHandler 执行外部命令并记录其输出。
type CommandHandler struct {
	command []string
	timeout time.Duration
	dryRun  bool
	log     *zap.SugaredLogger
}

// NewCommandHandler checks cfg and returns a handler for it.
// NewCommandHandler 校验配置并返回对应的处理器。
func NewCommandHandler(cfg Config, log *zap.SugaredLogger) (*CommandHandler, error) {
	if len(cfg.Command) == 0 || strings.TrimSpace(cfg.Command[0]) == "" {
		return nil, errors.NewConfigError("action.command", cfg.Command)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &CommandHandler{
		command: append([]string(nil), cfg.Command...),
		timeout: timeout,
		dryRun:  cfg.DryRun,
		log:     logger.OrGlobal(log),
	}, nil
}

// Command returns the configured command line.
func (h *CommandHandler) Command() string {
	return strings.Join(h.command, " ")
}

// Trigger runs the command and waits for it, at most for the configured
// timeout. In dry run mode the command is only logged.
// Trigger 执行命令并等待其结束，最长等待配置的超时时间；演练模式下只记录日志。
func (h *CommandHandler) Trigger(ctx context.Context) error {
	if h.dryRun {
		metrics.ActionRuns.WithLabelValues("dry_run").Inc()
		h.log.Warnf("Dry run, not executing: %s", h.Command())
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	h.log.Warnf("Executing: %s", h.Command())
	cmd := exec.CommandContext(ctx, h.command[0], h.command[1:]...) // #nosec G204 // command comes from the administrator's config
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	h.logOutput(&out)

	if ctx.Err() == context.DeadlineExceeded {
		metrics.ActionRuns.WithLabelValues("timeout").Inc()
		return errors.NewActionError(h.Command(), errors.ErrTimeout)
	}
	if err != nil {
		metrics.ActionRuns.WithLabelValues("failure").Inc()
		return errors.NewActionError(h.Command(), err)
	}
	metrics.ActionRuns.WithLabelValues("success").Inc()
	return nil
}

func (h *CommandHandler) logOutput(out *bytes.Buffer) {
	scanner := bufio.NewScanner(out)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			h.log.Infof("[%s] %s", h.command[0], line)
		}
	}
}
