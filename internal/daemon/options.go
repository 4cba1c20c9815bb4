package daemon

import (
	"github.com/livp123/authguard/internal/action"
	"github.com/livp123/authguard/internal/notify"
	"github.com/livp123/authguard/internal/tracker"
)

// DaemonOptions configuration options for the daemon
type DaemonOptions struct {
	// Handler replaces the configured command handler.
	// Handler 用于替换配置中的命令处理器。
	Handler action.Handler
	// Clock and Notifier are passed to the tracker; nil selects the defaults.
	Clock    tracker.Clock
	Notifier notify.Notifier
}
