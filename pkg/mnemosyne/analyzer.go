// Package mnemosyne runs Logs Insights queries over a function's log group and
// turns the completed result into cold-start statistics.
package mnemosyne

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/tartarus-sandbox/coldstart/pkg/domain"
	"github.com/tartarus-sandbox/coldstart/pkg/hermes"
	"github.com/tartarus-sandbox/coldstart/pkg/stats"
)

// DefaultPollInterval is the delay between GetQueryResults calls.
const DefaultPollInterval = time.Second

// LogsAPI is the subset of the CloudWatch Logs client the analyzer needs.
type LogsAPI interface {
	DescribeLogGroups(ctx context.Context, params *cloudwatchlogs.DescribeLogGroupsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogGroupsOutput, error)
	StartQuery(ctx context.Context, params *cloudwatchlogs.StartQueryInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.StartQueryOutput, error)
	GetQueryResults(ctx context.Context, params *cloudwatchlogs.GetQueryResultsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.GetQueryResultsOutput, error)
}

// LogGroupNotFoundError is returned before any query is started when the
// log group does not exist.
type LogGroupNotFoundError struct {
	LogGroup string
}

func (e *LogGroupNotFoundError) Error() string {
	return fmt.Sprintf("log group %s does not exist", e.LogGroup)
}

// Query describes one analysis.
type Query struct {
	LogGroup string
	Start    time.Time
	// End defaults to the time the query is submitted.
	End time.Time
	QueryOptions
}

// Analyzer submits a query and polls it to completion.
type Analyzer struct {
	Logs         LogsAPI
	PollInterval time.Duration
	// PollTimeout bounds the wait for completion. Zero waits forever.
	PollTimeout time.Duration
	Logger      hermes.Logger
	Metrics     hermes.Metrics

	sleep func(context.Context, time.Duration) error
	now   func() time.Time
}

// NewAnalyzer constructs an analyzer polling once per second.
func NewAnalyzer(api LogsAPI, logger hermes.Logger, metrics hermes.Metrics) *Analyzer {
	if logger == nil {
		logger = hermes.NopLogger{}
	}
	if metrics == nil {
		metrics = hermes.NewNoopMetrics()
	}
	return &Analyzer{
		Logs:         api,
		PollInterval: DefaultPollInterval,
		Logger:       logger,
		Metrics:      metrics,
		sleep:        domain.SleepContext,
		now:          time.Now,
	}
}

// Analyze returns one record per result row. With GroupByMemory set, rows
// without a memory size are dropped.
func (a *Analyzer) Analyze(ctx context.Context, q Query) ([]stats.Record, error) {
	rows, err := a.run(ctx, q)
	if err != nil {
		return nil, err
	}
	records, err := stats.Reduce(rows, q.GroupByMemory)
	if err != nil {
		return nil, fmt.Errorf("failed to parse query results: %w", err)
	}
	return records, nil
}

// AnalyzeOne folds every result row into a single record.
func (a *Analyzer) AnalyzeOne(ctx context.Context, q Query) (stats.Record, error) {
	rows, err := a.run(ctx, q)
	if err != nil {
		return stats.Record{}, err
	}
	rec, err := stats.Fold(rows)
	if err != nil {
		return stats.Record{}, fmt.Errorf("failed to parse query results: %w", err)
	}
	return rec, nil
}

func (a *Analyzer) run(ctx context.Context, q Query) ([]stats.Row, error) {
	a.Logger.Info(ctx, "Analyzing logs in log group", map[string]any{"log_group": q.LogGroup})

	if err := a.CheckLogGroup(ctx, q.LogGroup); err != nil {
		return nil, err
	}

	queryID, err := a.start(ctx, q)
	if err != nil {
		return nil, err
	}
	return a.WaitComplete(ctx, queryID)
}

// CheckLogGroup fails with *LogGroupNotFoundError unless logGroup exists.
func (a *Analyzer) CheckLogGroup(ctx context.Context, logGroup string) error {
	out, err := a.Logs.DescribeLogGroups(ctx, &cloudwatchlogs.DescribeLogGroupsInput{
		LogGroupNamePrefix: aws.String(logGroup),
	})
	if err != nil {
		return fmt.Errorf("failed to describe log groups: %w", err)
	}
	for _, g := range out.LogGroups {
		if aws.ToString(g.LogGroupName) == logGroup {
			return nil
		}
	}
	return &LogGroupNotFoundError{LogGroup: logGroup}
}

func (a *Analyzer) start(ctx context.Context, q Query) (string, error) {
	end := q.End
	if end.IsZero() {
		end = a.now()
	}

	out, err := a.Logs.StartQuery(ctx, &cloudwatchlogs.StartQueryInput{
		LogGroupName: aws.String(q.LogGroup),
		QueryString:  aws.String(BuildQuery(q.QueryOptions)),
		StartTime:    aws.Int64(q.Start.Unix()),
		EndTime:      aws.Int64(end.Unix()),
	})
	if err != nil {
		return "", fmt.Errorf("failed to start query: %w", err)
	}
	if out.QueryId == nil {
		return "", fmt.Errorf("start query on %s returned no query id", q.LogGroup)
	}

	a.Logger.Info(ctx, "Query started", map[string]any{
		"log_group": q.LogGroup,
		"query_id":  aws.ToString(out.QueryId),
		"start":     q.Start.UTC().Format(time.RFC3339),
		"end":       end.UTC().Format(time.RFC3339),
	})
	return aws.ToString(out.QueryId), nil
}

// WaitComplete polls queryID until the engine reports Complete. Every other
// status, including Failed and Cancelled, is polled again.
func (a *Analyzer) WaitComplete(ctx context.Context, queryID string) ([]stats.Row, error) {
	if a.PollTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.PollTimeout)
		defer cancel()
	}

	interval := a.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	for {
		a.Logger.Info(ctx, "Fetching query result", map[string]any{"query_id": queryID})
		a.Metrics.IncCounter(hermes.MetricQueryPolls, 1)

		out, err := a.Logs.GetQueryResults(ctx, &cloudwatchlogs.GetQueryResultsInput{
			QueryId: aws.String(queryID),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get query results: %w", err)
		}

		if out.Status == types.QueryStatusComplete {
			fields := map[string]any{"query_id": queryID, "rows": len(out.Results)}
			if out.Statistics != nil {
				fields["records_matched"] = out.Statistics.RecordsMatched
				fields["records_scanned"] = out.Statistics.RecordsScanned
			}
			a.Logger.Info(ctx, "Query is complete, parsing results", fields)
			return toRows(out.Results), nil
		}

		a.Logger.Info(ctx, "Query is not complete, sleeping", map[string]any{
			"query_id": queryID,
			"status":   out.Status,
		})
		if err := a.sleep(ctx, interval); err != nil {
			return nil, fmt.Errorf("waiting for query %s: %w", queryID, err)
		}
	}
}

func toRows(results [][]types.ResultField) []stats.Row {
	rows := make([]stats.Row, 0, len(results))
	for _, result := range results {
		row := make(stats.Row, 0, len(result))
		for _, f := range result {
			row = append(row, stats.Field{Name: aws.ToString(f.Field), Value: aws.ToString(f.Value)})
		}
		rows = append(rows, row)
	}
	return rows
}
