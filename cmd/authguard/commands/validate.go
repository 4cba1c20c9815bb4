package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/livp123/authguard/internal/config"
	"github.com/livp123/authguard/pkg/errors"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	// Short: 验证配置文件
	Long: `Check the YAML syntax and the values of the configuration file.
检查配置文件的 YAML 语法与取值。`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		path := config.GetConfigPath()

		data, err := os.ReadFile(path) // #nosec G304 // path is chosen by the administrator
		if err != nil {
			if !os.IsNotExist(err) {
				return errors.NewFileError(path, err)
			}
			fmt.Fprintf(out, "ℹ️  %s does not exist, checking built-in defaults\n", path)
		} else if syntax := config.ValidateSyntax(data); !syntax.Valid {
			fmt.Fprintf(out, "❌ %s\n", syntax.Error())
			return fmt.Errorf("%w: %s", errors.ErrConfigInvalid, path)
		}
		if loadErr != nil {
			return loadErr
		}

		cfg := globalCfg
		applyOverrides(cmd, cfg, nil)
		result := config.Validate(cfg)
		for _, w := range result.Warnings {
			fmt.Fprintf(out, "⚠️  %s: %s (%v)\n", w.Field, w.Message, w.Value)
		}
		for _, e := range result.Errors {
			fmt.Fprintf(out, "❌ %s: %s (%v)\n", e.Field, e.Message, e.Value)
		}
		if !result.Valid {
			return fmt.Errorf("%w: %d error(s) in %s", errors.ErrConfigInvalid, len(result.Errors), path)
		}
		fmt.Fprintf(out, "✅ Configuration is valid (monitoring %s)\n", cfg.Monitor.File)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(validateCmd)
}
