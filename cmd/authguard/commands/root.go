package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/livp123/authguard/internal/config"
	"github.com/livp123/authguard/internal/daemon"
	"github.com/livp123/authguard/internal/runtime"
	"github.com/livp123/authguard/internal/utils/logger"
	"github.com/livp123/authguard/pkg/errors"
)

var (
	// globalCfg is loaded once per invocation in PersistentPreRun.
	globalCfg *config.GlobalConfig
	// loadErr is kept so that commands needing a valid file can fail on it.
	loadErr error

	maxFailedAttempts       int
	resetAfterSeconds       int
	ignoreSubsequentFailsMs int
)

var RootCmd = &cobra.Command{
	Use:   "authguard [file]",
	Short: "Run an action after repeated authentication failures",
	// Short: 在多次认证失败后执行动作
	Long: `authguard follows an authentication log (default /var/log/auth.log) across
rotation and truncation, counts PAM authentication failures and runs a command
(default "systemctl poweroff") once the configured limit is reached.
authguard 跟踪认证日志（支持轮转与截断），统计 PAM 认证失败次数，
并在达到上限时执行命令（默认 "systemctl poweroff"）。`,
	Args: cobra.MaximumNArgs(1),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Load configuration to get logging settings
		// 加载配置以获取日志设置
		globalCfg, loadErr = config.Load(config.GetConfigPath())
		if loadErr != nil {
			// If config fails to load, use default logging config (console only)
			// 如果加载配置失败，使用默认日志配置（仅控制台）
			globalCfg = config.Default()
			logger.Init(logger.LoggingConfig{Level: "info"})
		} else {
			logger.Init(globalCfg.Logging)
		}

		// Inject logger into context
		// 将 Logger 注入 Context
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		cmd.SetContext(logger.WithContext(ctx, logger.Get(nil)))
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if loadErr != nil {
			return loadErr
		}
		cfg := globalCfg
		applyOverrides(cmd, cfg, args)

		log := logger.Get(cmd.Context())
		result := config.Validate(cfg)
		for _, w := range result.Warnings {
			log.Warnf("⚠️  %s: %s", w.Field, w.Message)
		}
		if !result.Valid {
			return fmt.Errorf("%w: %s", errors.ErrConfigInvalid, result.Error())
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return daemon.Run(ctx, cfg, nil)
	},
	SilenceUsage: true,
}

// applyOverrides puts the positional file and the explicitly set flags over
// the loaded configuration.
// applyOverrides 用位置参数与显式设置的标志覆盖已加载的配置。
func applyOverrides(cmd *cobra.Command, cfg *config.GlobalConfig, args []string) {
	if len(args) > 0 {
		cfg.Monitor.File = args[0]
	}
	flags := cmd.Flags()
	if flags.Changed("max-failed-attempts") {
		cfg.Monitor.MaxFailedAttempts = maxFailedAttempts
	}
	if flags.Changed("reset-after-seconds") {
		cfg.Monitor.ResetAfterSeconds = resetAfterSeconds
	}
	if flags.Changed("ignore-subsequent-fails-ms") {
		cfg.Monitor.IgnoreSubsequentFailsMs = ignoreSubsequentFailsMs
	}
	if runtime.DryRun {
		cfg.Action.DryRun = true
	}
}

func init() {
	// Config file path
	// 配置文件路径
	RootCmd.PersistentFlags().StringVarP(&runtime.ConfigPath, "config", "c", "", fmt.Sprintf("Path to configuration file (default: %s)", config.DefaultConfigPath))

	// Failure policy, overriding the monitor section of the config file
	// 失败策略，覆盖配置文件中的 monitor 部分
	RootCmd.PersistentFlags().IntVar(&maxFailedAttempts, "max-failed-attempts", 3, "Failures that trigger the action")
	RootCmd.PersistentFlags().IntVar(&resetAfterSeconds, "reset-after-seconds", 1800, "Seconds without failures after which the count resets")
	RootCmd.PersistentFlags().IntVar(&ignoreSubsequentFailsMs, "ignore-subsequent-fails-ms", 0, "Failures closer than this to the previous one are ignored (0 disables)")

	RootCmd.Flags().BoolVar(&runtime.DryRun, "dry-run", false, "Log the action instead of running it")

	RootCmd.CompletionOptions.DisableDescriptions = true
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
