package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "View current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		keys := viper.AllKeys()
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", k, displayValue(k, viper.Get(k)))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		viper.Set(key, value)
		if err := writeConfig(); err != nil {
			return fmt.Errorf("error writing config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s to %s\n", key, value)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		val := viper.Get(args[0])
		if val == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Not set")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), displayValue(args[0], val))
		}
	},
}

// displayValue masks credentials so they never reach the terminal.
func displayValue(key string, val any) any {
	k := strings.ToLower(key)
	if !strings.HasSuffix(k, "secret_key") && !strings.HasSuffix(k, "password") {
		return val
	}
	if s, ok := val.(string); ok && s == "" {
		return s
	}
	return "********"
}

// writeConfig updates the file viper read, or creates $HOME/.coldstart.yaml.
func writeConfig() error {
	err := viper.WriteConfig()
	var notFound viper.ConfigFileNotFoundError
	if err == nil || !errors.As(err, &notFound) {
		return err
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	return viper.SafeWriteConfigAs(filepath.Join(home, ".coldstart.yaml"))
}

func init() {
	configCmd.AddCommand(configViewCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	rootCmd.AddCommand(configCmd)
}
