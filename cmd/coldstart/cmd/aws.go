package cmd

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/tartarus-sandbox/coldstart/pkg/cerberus"
	"github.com/tartarus-sandbox/coldstart/pkg/charon"
	"github.com/tartarus-sandbox/coldstart/pkg/config"
	"github.com/tartarus-sandbox/coldstart/pkg/erebus"
	"github.com/tartarus-sandbox/coldstart/pkg/hades"
	"github.com/tartarus-sandbox/coldstart/pkg/hermes"
	"github.com/tartarus-sandbox/coldstart/pkg/mnemosyne"
	"github.com/tartarus-sandbox/coldstart/pkg/olympus"
)

// loadAWS resolves the shared AWS config. Every client built from it goes
// through the per-operation throttle.
func loadAWS(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}

	throttle := charon.NewThrottle(cfg.APIRate, cfg.APIBurst)
	awsCfg.APIOptions = append(awsCfg.APIOptions, throttle.AddToStack)
	return awsCfg, nil
}

func newAnalyzer(awsCfg aws.Config, cfg *config.Config, logger hermes.Logger, metrics hermes.Metrics) *mnemosyne.Analyzer {
	a := mnemosyne.NewAnalyzer(cloudwatchlogs.NewFromConfig(awsCfg), logger, metrics)
	a.PollInterval = cfg.PollInterval
	a.PollTimeout = cfg.PollTimeout
	return a
}

func resolvePayload(ctx context.Context, awsCfg aws.Config, ref string) ([]byte, error) {
	if ref == "" {
		return nil, nil
	}
	r := cerberus.NewResolver(
		cerberus.FileSource{},
		cerberus.EnvSource{},
		cerberus.NewSSMSource(ssm.NewFromConfig(awsCfg)),
	)
	payload, err := r.Resolve(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve payload: %w", err)
	}
	return payload, nil
}

// buildSinks opens every configured run sink. The returned func releases them.
func buildSinks(awsCfg aws.Config, cfg *config.Config) ([]olympus.Sink, func(), error) {
	var (
		sinks   []olympus.Sink
		closers []func() error
	)
	closeAll := func() {
		for _, c := range closers {
			_ = c()
		}
	}

	if cfg.HistoryRedis != "" {
		registry, err := hades.NewRedisRegistryFromURL(cfg.HistoryRedis)
		if err != nil {
			return nil, nil, err
		}
		registry.TTL = cfg.HistoryTTL
		sinks = append(sinks, registry)
		closers = append(closers, registry.Close)
	}

	archives, err := buildArchives(awsCfg, cfg)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	for _, a := range archives {
		sinks = append(sinks, a)
	}

	return sinks, closeAll, nil
}

// buildArchives opens the report archives named in cfg: a local directory,
// an S3 bucket, or both.
func buildArchives(awsCfg aws.Config, cfg *config.Config) ([]*erebus.Archive, error) {
	var archives []*erebus.Archive
	format := erebus.Format(cfg.ReportFormat)

	if cfg.ReportDir != "" {
		store, err := erebus.NewLocalStore(cfg.ReportDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open report dir: %w", err)
		}
		archives = append(archives, erebus.NewArchive(store, format))
	}

	if cfg.ReportS3.Bucket != "" {
		store, err := erebus.NewS3Store(awsCfg, erebus.S3Options{
			Bucket:    cfg.ReportS3.Bucket,
			Prefix:    cfg.ReportS3.Prefix,
			Endpoint:  cfg.ReportS3.Endpoint,
			AccessKey: cfg.ReportS3.AccessKey,
			SecretKey: cfg.ReportS3.SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open report bucket: %w", err)
		}
		archives = append(archives, erebus.NewArchive(store, format))
	}
	return archives, nil
}

type metricsSink interface {
	hermes.Metrics
	WriteFile(path string) error
}

func newMetrics(cfg *config.Config) hermes.Metrics {
	if cfg.MetricsFile == "" {
		return hermes.NewNoopMetrics()
	}
	return hermes.NewPrometheusMetrics()
}

func flushMetrics(ctx context.Context, cfg *config.Config, metrics hermes.Metrics, logger hermes.Logger) {
	m, ok := metrics.(metricsSink)
	if !ok || cfg.MetricsFile == "" {
		return
	}
	if err := m.WriteFile(cfg.MetricsFile); err != nil {
		logger.Warn(ctx, "Failed to write metrics file", map[string]any{"path": cfg.MetricsFile, "error": err.Error()})
	}
}
