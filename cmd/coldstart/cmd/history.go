package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/spf13/cobra"
	"github.com/tartarus-sandbox/coldstart/pkg/config"
	"github.com/tartarus-sandbox/coldstart/pkg/domain"
	"github.com/tartarus-sandbox/coldstart/pkg/erebus"
	"github.com/tartarus-sandbox/coldstart/pkg/hades"
)

var (
	historyFunction string
	historyLimit    int
	historyPrune    time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded runs, show one, or prune old ones",
	Example: `  coldstart history --history-redis redis://localhost:6379/0 -f my-function
  coldstart history 1f0c7e8a-4b1d-4f7e-9a55-3c2b8d1e6f20
  coldstart history --prune 720h --report-dir ./reports`,
	Args: cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if historyPrune < 0 {
			return fmt.Errorf("--prune must not be negative, got %s", historyPrune)
		}
		return bindFlags(cmd, map[string]string{
			config.KeyHistoryRedis: "history-redis",
			config.KeyReportDir:    "report-dir",
			config.KeyReportBucket: "report-s3-bucket",
		})
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.HistoryRedis == "" {
			return errors.New("history requires --history-redis or history.redis in the config file")
		}

		registry, err := hades.NewRedisRegistryFromURL(cfg.HistoryRedis)
		if err != nil {
			return err
		}
		defer registry.Close()

		ctx := cmd.Context()
		if historyPrune > 0 {
			var awsCfg aws.Config
			if cfg.ReportS3.Bucket != "" {
				if awsCfg, err = loadAWS(ctx, cfg); err != nil {
					return err
				}
			}
			archives, err := buildArchives(awsCfg, cfg)
			if err != nil {
				return err
			}
			n, err := pruneRuns(ctx, registry, archives, time.Now().Add(-historyPrune))
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d run(s) older than %s\n", n, historyPrune)
			return err
		}

		return showHistory(ctx, cmd, registry, cfg.Output, args)
	},
}

func showHistory(ctx context.Context, cmd *cobra.Command, registry hades.Registry, output string, args []string) error {
	if len(args) == 1 {
		run, err := registry.GetRun(ctx, domain.RunID(args[0]))
		if err != nil {
			return err
		}
		return renderRun(cmd.OutOrStdout(), output, run)
	}

	runs, err := registry.ListRuns(ctx, historyFunction, historyLimit)
	if err != nil {
		return err
	}
	return renderHistory(cmd.OutOrStdout(), output, runs)
}

// pruneRuns deletes runs started before cutoff together with their archived
// reports.
func pruneRuns(ctx context.Context, registry hades.Registry, archives []*erebus.Archive, cutoff time.Time) (int, error) {
	return hades.Prune(ctx, registry, cutoff, func(ctx context.Context, run *domain.Run) error {
		for _, a := range archives {
			if _, err := a.Delete(ctx, run); err != nil {
				return err
			}
		}
		return nil
	})
}

func init() {
	historyCmd.Flags().String("history-redis", "", "Redis holding the run history (redis://host:port/db)")
	historyCmd.Flags().StringVarP(&historyFunction, "function", "f", "", "Only list runs of this function")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of runs to list")
	historyCmd.Flags().DurationVar(&historyPrune, "prune", 0, "Delete runs (and their archived reports) older than this")
	historyCmd.Flags().String("report-dir", "", "Report directory to prune alongside the history")
	historyCmd.Flags().String("report-s3-bucket", "", "Report bucket to prune alongside the history")
	rootCmd.AddCommand(historyCmd)
}
