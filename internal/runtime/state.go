package runtime

// ConfigPath stores the path to the configuration file provided via CLI flags.
// ConfigPath 存储通过 CLI 标志提供的配置文件路径。
var ConfigPath string

// DryRun is set by --dry-run; the threshold action is logged instead of run.
// DryRun 由 --dry-run 设置，达到阈值时只记录动作而不执行。
var DryRun bool
