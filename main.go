package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configFile string
	testDir    string
	debugMode  bool
	noHistory  bool

	logger *zap.Logger
	config *Config
)

var rootCmd = &cobra.Command{
	Use:   "agent-reliability",
	Short: "Measure how reliably two agents exchange messages through files",
	Long: `A tool for testing agent-to-agent communication reliability.

Two agents take turns writing an expected token into a mailbox file while a
coordinator polls for it with a timeout, loop after loop, and reports how many
cycles completed. A chat log records every step.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = newLogger(debugMode)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		config, err = NewConfig(buildOverrides())
		if err != nil {
			return err
		}
		if testDir != "" {
			config.Settings.TestDir = testDir
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to settings file (.yaml or .toml)")
	rootCmd.PersistentFlags().StringVar(&testDir, "dir", "", "Directory for the chat log and message files")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noHistory, "no-history", false, "Do not record this run in the history database")

	rootCmd.AddCommand(initCmd, coordinateCmd, simulateCmd, seedCmd, runCmd, historyCmd)
}

// newLogger builds the operational logger; it writes to stderr so stdout stays for reports
func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.DisableStacktrace = true
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

func buildOverrides() *ConfigOverrides {
	overrides := &ConfigOverrides{}
	if configFile != "" {
		overrides.SettingsPath = &configFile
	}
	if senderPromptPath != "" {
		overrides.SenderPromptPath = &senderPromptPath
	}
	if receiverPromptPath != "" {
		overrides.ReceiverPromptPath = &receiverPromptPath
	}
	if runPromptPath != "" {
		overrides.RunnerPromptPath = &runPromptPath
	}
	return overrides
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
