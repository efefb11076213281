// Package main provides the entry point for the HKJC race advisor.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/hkjc-advisor/internal/config"
	"github.com/yourusername/hkjc-advisor/internal/engine"
	"github.com/yourusername/hkjc-advisor/internal/features"
	applogger "github.com/yourusername/hkjc-advisor/internal/logger"
	"github.com/yourusername/hkjc-advisor/internal/strategy"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	logLevel   string
	cfg        *config.Config
	logger     *logrus.Logger
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")

	rootCmd.AddCommand(serveCmd, validateCmd, adviseCmd, historyCmd, remoteCmd, versionCmd)
}

var rootCmd = &cobra.Command{
	Use:           "advisor",
	Short:         "Validate race data and recommend bets",
	Long:          `Validates HKJC race payloads, ranks the entrants and recommends a selection with a confidence band.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		if err := loadConfig(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		setupLogger(cmd)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "advisor %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errNotOK) {
			os.Exit(1)
		}
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig() error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}
	if err := config.ReloadFromEnv(cfg); err != nil {
		return err
	}
	if logLevel != "" {
		cfg.App.LogLevel = logLevel
	}
	return config.Validate(cfg)
}

// setupLogger logs to stdout when serving; other commands log to stderr so
// that their output on stdout stays parseable
func setupLogger(cmd *cobra.Command) {
	if cmd == serveCmd {
		logger = applogger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)
		return
	}
	logger = applogger.NewLoggerWithOutput(cfg.App.LogLevel, cfg.App.Environment, cmd.ErrOrStderr())
}

// newEngine builds an engine from the configured constants
func newEngine() *engine.Engine {
	opts := []engine.Option{
		engine.WithExtractor(features.NewExtractor(features.WithParams(cfg.ExtractorParams()))),
		engine.WithRecommender(strategy.NewCompositeStrategy(strategy.WithThresholds(cfg.Thresholds()))),
	}
	if cfg.Cache.Enabled {
		opts = append(opts, engine.WithCache(engine.NewAdviceCache(cfg.CacheTTL(), cfg.Cache.MaxSize)))
	}
	return engine.New(logger, opts...)
}
