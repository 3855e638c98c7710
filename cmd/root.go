package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cn-vhql/AS-SKILLS/internal/config"
	"github.com/cn-vhql/AS-SKILLS/internal/logging"
	"github.com/cn-vhql/AS-SKILLS/internal/registry"
)

var (
	flagConfig    string
	flagLogLevel  string
	flagLogFormat string
)

var rootCmd = &cobra.Command{
	Use:          "as-skills",
	Short:        "Skill registry and matching engine for conversational agents",
	SilenceUsage: true, // don't print usage on operational errors
	Long: `as-skills discovers skill bundles (directories with a SKILL.md
descriptor), matches them against free-text queries, and activates the
winners by expanding their full instruction payload.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if flagLogLevel != "" {
			if err := logging.SetLevel(flagLogLevel); err != nil {
				return err
			}
		}
		if flagLogFormat != "" {
			logging.SetFormat(flagLogFormat)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config file (default ~/.as-skills/config.yaml when present)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format: text or json")
}

// Execute is called by main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// defaultConfigPath returns ~/.as-skills/config.yaml when it exists,
// otherwise "" so pure-default runs need no file at all.
func defaultConfigPath() string {
	dir, err := config.HomeDir()
	if err != nil {
		return ""
	}
	p := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}

func loadConfig() (config.Config, error) {
	path := flagConfig
	if path == "" {
		path = defaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("cannot load config: %w", err)
	}
	if flagLogLevel == "" {
		if err := logging.SetLevel(cfg.LogLevel); err != nil {
			return config.Config{}, err
		}
	}
	if flagLogFormat == "" {
		logging.SetFormat(cfg.LogFormat)
	}
	return cfg, nil
}

// openRegistry builds a registry from the effective config and runs the
// initial scan. The caller owns Close.
func openRegistry(ctx context.Context) (*registry.Registry, config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, config.Config{}, err
	}
	reg, err := registry.New(cfg)
	if err != nil {
		return nil, config.Config{}, err
	}
	if _, err := reg.Discover(ctx); err != nil {
		_ = reg.Close()
		return nil, config.Config{}, err
	}
	return reg, cfg, nil
}
