package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. COLDSTART_POLL_INTERVAL.
const EnvPrefix = "COLDSTART"

// Keys shared by flags, the config file and the environment.
const (
	KeyRegion          = "region"
	KeyProfile         = "profile"
	KeyLogLevel        = "log.level"
	KeyLogFormat       = "log.format"
	KeyOutput          = "output"
	KeySettle          = "settle"
	KeyPollInterval    = "poll.interval"
	KeyPollTimeout     = "poll.timeout"
	KeyLookback        = "lookback"
	KeyAPIRate         = "api.rate"
	KeyAPIBurst        = "api.burst"
	KeyHistoryRedis    = "history.redis"
	KeyHistoryTTL      = "history.ttl"
	KeyReportDir       = "report.dir"
	KeyReportFormat    = "report.format"
	KeyReportBucket    = "report.s3.bucket"
	KeyReportPrefix    = "report.s3.prefix"
	KeyReportEndpoint  = "report.s3.endpoint"
	KeyReportAccessKey = "report.s3.access_key"
	KeyReportSecretKey = "report.s3.secret_key"
	KeyMetricsFile     = "metrics.file"
)

const (
	DefaultSettle       = 10 * time.Second
	DefaultPollInterval = time.Second
)

type S3Config struct {
	Bucket    string
	Prefix    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

type Config struct {
	Region    string
	Profile   string
	LogLevel  string
	LogFormat string
	Output    string

	Settle       time.Duration
	PollInterval time.Duration
	PollTimeout  time.Duration
	Lookback     time.Duration

	APIRate  float64
	APIBurst int

	HistoryRedis string
	HistoryTTL   time.Duration
	ReportDir    string
	ReportFormat string
	ReportS3     S3Config
	MetricsFile  string
}

// SetDefaults registers defaults and environment binding on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyOutput, "table")
	v.SetDefault(KeySettle, DefaultSettle)
	v.SetDefault(KeyPollInterval, DefaultPollInterval)
	v.SetDefault(KeyPollTimeout, time.Duration(0))
	v.SetDefault(KeyLookback, time.Duration(0))
	v.SetDefault(KeyAPIRate, 10.0)
	v.SetDefault(KeyAPIBurst, 1)
	v.SetDefault(KeyReportFormat, "json")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads the effective configuration from v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Region:       v.GetString(KeyRegion),
		Profile:      v.GetString(KeyProfile),
		LogLevel:     strings.ToLower(v.GetString(KeyLogLevel)),
		LogFormat:    strings.ToLower(v.GetString(KeyLogFormat)),
		Output:       strings.ToLower(v.GetString(KeyOutput)),
		Settle:       v.GetDuration(KeySettle),
		PollInterval: v.GetDuration(KeyPollInterval),
		PollTimeout:  v.GetDuration(KeyPollTimeout),
		Lookback:     v.GetDuration(KeyLookback),
		APIRate:      v.GetFloat64(KeyAPIRate),
		APIBurst:     v.GetInt(KeyAPIBurst),
		HistoryRedis: v.GetString(KeyHistoryRedis),
		HistoryTTL:   v.GetDuration(KeyHistoryTTL),
		ReportDir:    v.GetString(KeyReportDir),
		ReportFormat: strings.ToLower(v.GetString(KeyReportFormat)),
		ReportS3: S3Config{
			Bucket:    v.GetString(KeyReportBucket),
			Prefix:    v.GetString(KeyReportPrefix),
			Endpoint:  v.GetString(KeyReportEndpoint),
			AccessKey: v.GetString(KeyReportAccessKey),
			SecretKey: v.GetString(KeyReportSecretKey),
		},
		MetricsFile: v.GetString(KeyMetricsFile),
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	switch c.Output {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("unsupported output %q (want table, json or yaml)", c.Output)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q (want text or json)", c.LogFormat)
	}
	switch c.ReportFormat {
	case "json", "yaml":
	default:
		return fmt.Errorf("unsupported report format %q (want json or yaml)", c.ReportFormat)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.Settle < 0 || c.PollTimeout < 0 || c.Lookback < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	return nil
}
