package cmd

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/spf13/cobra"
	"github.com/tartarus-sandbox/coldstart/pkg/cocytus"
	"github.com/tartarus-sandbox/coldstart/pkg/config"
	"github.com/tartarus-sandbox/coldstart/pkg/domain"
	"github.com/tartarus-sandbox/coldstart/pkg/hypnos"
	"github.com/tartarus-sandbox/coldstart/pkg/judges"
	"github.com/tartarus-sandbox/coldstart/pkg/olympus"
)

var (
	runFunction      string
	runIterations    int
	runPayload       string
	runLogGroup      string
	runStreamFilter  string
	runGroupByMemory bool
	runAssertions    []string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Force cold starts and report init duration statistics",
	Example: `  coldstart run -f my-function -i 20
  coldstart run -f arn:aws:lambda:eu-west-1:123456789012:function:api -p file://event.json --assert 'p99 < 800.0'`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if runIterations < 1 {
			return fmt.Errorf("--iterations must be at least 1, got %d", runIterations)
		}
		return bindFlags(cmd, benchFlagKeys)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBench(cmd, runIterations)
	},
}

// benchFlagKeys maps config keys to the flags shared by run and analyze.
var benchFlagKeys = map[string]string{
	config.KeySettle:       "settle",
	config.KeyPollTimeout:  "poll-timeout",
	config.KeyLookback:     "lookback",
	config.KeyHistoryRedis: "history-redis",
	config.KeyReportDir:    "report-dir",
	config.KeyReportBucket: "report-s3-bucket",
	config.KeyMetricsFile:  "metrics-file",
}

func addBenchFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&runFunction, "function", "f", "", "Function name, partial ARN or ARN")
	cmd.Flags().StringVar(&runLogGroup, "log-group", "", "Log group to query (default /aws/lambda/<function name>)")
	cmd.Flags().StringVar(&runStreamFilter, "log-stream-filter", "", "Only query log streams matching this pattern")
	cmd.Flags().BoolVar(&runGroupByMemory, "group-by-memory", true, "Report one row per configured memory size")
	cmd.Flags().Duration("lookback", 0, "Start the query window this long before the run")
	cmd.Flags().Duration("poll-timeout", 0, "Give up polling after this long (0 waits forever)")
	cmd.Flags().Duration("settle", config.DefaultSettle, "Wait between the last invocation and the query")
	cmd.Flags().StringArrayVar(&runAssertions, "assert", nil, "CEL assertion every bucket must satisfy, e.g. 'p99 < 500' or 'count >= 10' (repeatable)")
	cmd.Flags().String("history-redis", "", "Record the run in Redis (redis://host:port/db)")
	cmd.Flags().String("report-dir", "", "Write the run report into this directory")
	cmd.Flags().String("report-s3-bucket", "", "Upload the run report to this S3 bucket")
	cmd.Flags().String("metrics-file", "", "Write Prometheus metrics to this file")
	_ = cmd.MarkFlagRequired("function")
}

func init() {
	addBenchFlags(runCmd)
	runCmd.Flags().IntVarP(&runIterations, "iterations", "i", 1, "Number of cold starts to force")
	runCmd.Flags().StringVarP(&runPayload, "payload", "p", "", "Invocation payload: literal JSON, file://path, ssm:/param or env:VAR")
	rootCmd.AddCommand(runCmd)
}

// runBench wires the AWS clients into a Bench and renders its result. With
// zero iterations nothing is mutated or invoked.
func runBench(cmd *cobra.Command, iterations int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	logger := newLogger(cfg)
	metrics := newMetrics(cfg)

	awsCfg, err := loadAWS(ctx, cfg)
	if err != nil {
		return err
	}

	chain, err := newJudges(runAssertions)
	if err != nil {
		return err
	}

	sinks, closeSinks, err := buildSinks(awsCfg, cfg)
	if err != nil {
		return err
	}
	defer closeSinks()

	bench := &olympus.Bench{
		Analyzer:    newAnalyzer(awsCfg, cfg, logger, metrics),
		Judges:      chain,
		Sinks:       sinks,
		DeadLetters: cocytus.NewLogSink(logger),
		Settle:      cfg.Settle,
		Metrics:     metrics,
		Logger:      logger,
	}

	fn := domain.FunctionRef(runFunction)
	if iterations > 0 {
		payload, err := resolvePayload(ctx, awsCfg, runPayload)
		if err != nil {
			return err
		}
		driver := hypnos.NewDriver(lambda.NewFromConfig(awsCfg), hypnos.Target{Function: fn, Payload: payload}, logger, metrics)
		driver.PollInterval = cfg.PollInterval
		driver.PollTimeout = cfg.PollTimeout
		bench.Driver = driver
	}

	run, runErr := bench.Run(ctx, olympus.Options{
		Function:      fn,
		LogGroup:      runLogGroup,
		Iterations:    iterations,
		Lookback:      cfg.Lookback,
		StreamFilter:  runStreamFilter,
		GroupByMemory: runGroupByMemory,
	})
	flushMetrics(ctx, cfg, metrics, logger)

	if run != nil {
		if err := renderRun(cmd.OutOrStdout(), cfg.Output, run); err != nil {
			return err
		}
	}
	return runErr
}

func newJudges(exprs []string) (*judges.Chain, error) {
	if len(exprs) == 0 {
		return nil, nil
	}
	judge, err := judges.NewCELJudge(exprs)
	if err != nil {
		return nil, err
	}
	return &judges.Chain{Judges: []judges.Judge{judge}}, nil
}
