package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/livp123/authguard/internal/classifier"
	"github.com/livp123/authguard/internal/scan"
	"github.com/livp123/authguard/internal/utils/fmtutil"
)

var scanJSON bool

var scanCmd = &cobra.Command{
	Use:   "scan <file>",
	Short: "Report the authentication failures in an existing file",
	// Short: 报告已有文件中的认证失败
	Long: `Read a log file once from the start and list the lines classified as
authentication failures, together with what the failure policy would have done.
从头读取一次日志文件，列出被判定为认证失败的行以及失败策略的判定结果。`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if loadErr != nil {
			return loadErr
		}
		cfg := globalCfg
		applyOverrides(cmd, cfg, args)

		c, err := classifier.New(cfg.Classifier.Rules, cfg.Classifier.Expressions)
		if err != nil {
			return err
		}
		report, err := scan.File(cmd.Context(), args[0], c, nil)
		if err != nil {
			return err
		}
		params := cfg.Params()
		if err := params.Validate(); err != nil {
			return err
		}
		verdict := scan.Replay(report, params)

		out := cmd.OutOrStdout()
		if scanJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				*scan.Report
				Verdict scan.Verdict `json:"verdict"`
			}{report, verdict})
		}

		for _, f := range report.Failures {
			fmt.Fprintf(out, "%6d: %s\n", f.Line, f.Text)
		}
		fmt.Fprintf(out, "%s lines, %s failures (%d counted, %d ignored, %d resets)\n",
			fmtutil.FormatNumberWithComma(report.Lines), fmtutil.FormatNumberWithComma(len(report.Failures)),
			verdict.Counted, verdict.Ignored, verdict.Resets)
		fmt.Fprintf(out, "Policy: %s\n", fmtutil.FormatPolicy(params.MaxFailedAttempts,
			time.Duration(params.ResetAfterSeconds)*time.Second,
			time.Duration(params.IgnoreSubsequentFailsMs)*time.Millisecond))
		if verdict.Triggers > 0 {
			fmt.Fprintf(out, "🚨 Limit of %d reached at line %d\n", params.MaxFailedAttempts, verdict.FirstTrigger)
		} else {
			fmt.Fprintf(out, "✅ Limit of %d not reached\n", params.MaxFailedAttempts)
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Print the report as JSON")
	RootCmd.AddCommand(scanCmd)
}
