package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var rootCmd = &cobra.Command{
	Use:   "treepush",
	Short: "Push content-addressed commit graphs to a remote object store",
	Long:  "CLI for pushing commit/tree/file object graphs to a remote store, skipping objects already present.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ~/.config/treepush/config.yaml)")
	rootCmd.PersistentFlags().String("credentials", "", "credentials JSON file (required)")
	rootCmd.PersistentFlags().String("cacert", "", "CA bundle to verify the remote TLS certificate")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error, none)")
	rootCmd.PersistentFlags().Bool("dry-run", false, "simulate without any remote operations")

	viper.BindPFlag("credentials", rootCmd.PersistentFlags().Lookup("credentials"))
	viper.BindPFlag("cacert", rootCmd.PersistentFlags().Lookup("cacert"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("dry_run", rootCmd.PersistentFlags().Lookup("dry-run"))
}

func initConfig() {
	if cfg := rootCmd.PersistentFlags().Lookup("config").Value.String(); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("TREEPUSH")
	viper.AutomaticEnv()

	viper.ReadInConfig()
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "treepush")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "treepush")
	}
	return ".treepush"
}

// newLogger builds a zap logger from the configured level.
func newLogger() (*zap.Logger, error) {
	level := viper.GetString("log_level")
	if level == "none" {
		return zap.NewNop(), nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
