package daemon

import (
	"context"
	"os"
	"time"

	"github.com/livp123/authguard/internal/action"
	"github.com/livp123/authguard/internal/classifier"
	"github.com/livp123/authguard/internal/config"
	"github.com/livp123/authguard/internal/metrics"
	"github.com/livp123/authguard/internal/tracker"
	"github.com/livp123/authguard/internal/utils/logger"
)

// Run monitors cfg.Monitor.File until ctx is done, running the configured
// action every time an update reaches the failure limit. It returns early
// after the first action when action.exit_on_trigger is set.
// Run 持续监控文件直到 ctx 结束，每次达到失败上限时执行配置的动作。
func Run(ctx context.Context, cfg *config.GlobalConfig, opts *DaemonOptions) error {
	log := logger.Get(ctx)
	if opts == nil {
		opts = &DaemonOptions{}
	}

	if cfg.Daemon.PidFile != "" {
		if err := managePidFile(cfg.Daemon.PidFile); err != nil {
			return err
		}
		defer removePidFile(cfg.Daemon.PidFile, log)
	}

	c, err := classifier.New(cfg.Classifier.Rules, cfg.Classifier.Expressions)
	if err != nil {
		return err
	}

	handler := opts.Handler
	if handler == nil {
		h, err := action.NewCommandHandler(cfg.ActionConfig(), log)
		if err != nil {
			return err
		}
		handler = h
	}

	tr, err := tracker.New(cfg.Params(), log, &tracker.Options{
		Clock:      opts.Clock,
		Classifier: c,
		Notifier:   opts.Notifier,
	})
	if err != nil {
		return err
	}
	defer tr.Close()

	if cfg.Metrics.Enabled {
		srv, err := metrics.Listen(cfg.Metrics.Listen, log)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	interval := cfg.PollInterval()
	log.Infof("🚀 Monitoring process %d started with parameters %s", os.Getpid(), tr.Params())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		triggered := false
		tr.Update(func() { triggered = true })
		if triggered {
			if err := handler.Trigger(ctx); err != nil {
				log.Errorf("❌ Threshold action failed: %v", err)
			}
			if cfg.Action.ExitOnTrigger {
				log.Info("🛑 Stopping after threshold action")
				return nil
			}
		}

		select {
		case <-ctx.Done():
			log.Info("👋 Monitoring process stopped")
			return nil
		case <-ticker.C:
		}
	}
}
