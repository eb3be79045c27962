package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tartarus-sandbox/coldstart/pkg/config"
	"github.com/tartarus-sandbox/coldstart/pkg/hermes"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "coldstart",
	Short: "Lambda cold start benchmark",
	Long: `Forces a series of cold starts on a Lambda function by mutating its
environment, then reads the init durations back out of CloudWatch Logs
Insights and reports percentiles per memory size.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.coldstart.yaml)")
	rootCmd.PersistentFlags().String("region", "", "AWS region (default from the AWS config chain)")
	rootCmd.PersistentFlags().String("profile", "", "AWS shared config profile")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "Output format: table, json or yaml")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text or json")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log progress at info level")

	for key, flag := range map[string]string{
		config.KeyRegion:    "region",
		config.KeyProfile:   "profile",
		config.KeyOutput:    "output",
		config.KeyLogFormat: "log-format",
	} {
		_ = viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag))
	}
}

func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".coldstart")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
		}
	}
}

// bindFlags binds command-local flags to config keys. Called from PreRunE so
// that commands sharing a flag name do not steal each other's bindings.
func bindFlags(cmd *cobra.Command, flags map[string]string) error {
	for key, name := range flags {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("bind --%s: %w", name, err)
		}
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if verbose {
		cfg.LogLevel = "info"
	}
	return cfg, nil
}

// newLogger writes to stderr so stdout carries only the report.
func newLogger(cfg *config.Config) hermes.Logger {
	level := log.WarnLevel
	if l, err := log.ParseLevel(cfg.LogLevel); err == nil {
		level = l
	}

	if cfg.LogFormat == "json" {
		var slogLevel slog.Level
		if err := slogLevel.UnmarshalText([]byte(level.String())); err != nil {
			slogLevel = slog.LevelWarn
		}
		return hermes.NewSlogAdapter(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel})))
	}

	handler := log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "coldstart",
		Level:           level,
		ReportTimestamp: true,
	})
	return hermes.NewSlogAdapter(slog.New(handler))
}
