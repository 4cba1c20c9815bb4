package config

import "time"

const (
	// DefaultConfigPath is the standard location for the authguard configuration file.
	// DefaultConfigPath 是 authguard 配置文件的标准位置。
	DefaultConfigPath = "/etc/authguard/config.yaml"

	// DefaultMonitorFile is the PAM log on Debian based systems.
	// DefaultMonitorFile 是 Debian 系统上的 PAM 日志。
	DefaultMonitorFile = "/var/log/auth.log"

	// DefaultPollInterval is the pause between two monitor updates.
	// DefaultPollInterval 是两次监控更新之间的间隔。
	DefaultPollInterval = 500 * time.Millisecond

	// DefaultMetricsListen is the address of the Prometheus endpoint.
	// DefaultMetricsListen 是 Prometheus 端点的监听地址。
	DefaultMetricsListen = "127.0.0.1:9412"
)
