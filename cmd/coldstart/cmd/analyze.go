package cmd

import (
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Query init durations without forcing new cold starts",
	Long: `Runs only the Logs Insights query over the function's log group. Use
--lookback to cover the window of an earlier run.`,
	Example: `  coldstart analyze -f my-function --lookback 2h`,
	Args:    cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd, benchFlagKeys)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBench(cmd, 0)
	},
}

func init() {
	addBenchFlags(analyzeCmd)
	analyzeCmd.Flags().Lookup("settle").Hidden = true
	rootCmd.AddCommand(analyzeCmd)
}
