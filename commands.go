package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// coordinate
	coordinateLoops    int
	senderPromptPath   string
	receiverPromptPath string
	apiKey             string

	// simulate
	simulateLoops int

	// seed
	seedFrom int
	seedTo   int

	// run
	runLoops      int
	runFilename   string
	runParallel   bool
	runBatch      int
	runQueue      int
	runPromptPath string

	// history
	historyLimit int
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default settings into .agent-reliability/",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureConfigExists(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Settings: %s\n", getConfigPath("settings.yaml"))
		return nil
	},
}

var coordinateCmd = &cobra.Command{
	Use:   "coordinate",
	Short: "Run the two-agent mailbox exchange against real agents",
	Long: `Runs the configured number of loops. Each loop clears both mailboxes,
launches the sender, waits for its token, launches the receiver, waits for
its token, then waits for both agents to exit. The final report is appended
to the chat log and printed.

With agents.driver "api" the agents are played by the Anthropic API and an
API key is required (--api-key or ANTHROPIC_API_KEY).`,
	Args: cobra.NoArgs,
	RunE: runCoordinate,
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Play both agents in-process to exercise the mailbox files",
	Args:  cobra.NoArgs,
	RunE:  runSimulate,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Append a synthetic transcript to the chat log",
	Long: `Appends fabricated loop blocks and a canned closing report to the chat log.
Nothing is executed: every figure in the report is a constant, not a
measurement. Use it to produce fixture transcripts. Seeded runs are never
recorded in the history.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

var runCmd = &cobra.Command{
	Use:   "run <agent_name>",
	Short: "Ask the agent CLI to talk to a sub-agent, loop after loop",
	Long: `Runs the agent CLI with a prompt that asks it to use <agent_name>, and logs
each prompt, response and execution time to <filename>_<unix_timestamp>.log.
The log can be analyzed with the analyze tool.`,
	Args: cobra.ExactArgs(1),
	RunE: runLoopRunner,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	coordinateCmd.Flags().IntVarP(&coordinateLoops, "loops", "l", 0, "Number of loops (default: settings loops)")
	coordinateCmd.Flags().StringVar(&senderPromptPath, "sender-prompt", "", "Path to custom sender instructions template")
	coordinateCmd.Flags().StringVar(&receiverPromptPath, "receiver-prompt", "", "Path to custom receiver instructions template")
	coordinateCmd.Flags().StringVar(&apiKey, "api-key", "", "Anthropic API key (api driver only)")

	simulateCmd.Flags().IntVarP(&simulateLoops, "loops", "l", 0, "Number of loops (default: settings loops)")

	seedCmd.Flags().IntVar(&seedFrom, "from", 2, "First loop number")
	seedCmd.Flags().IntVar(&seedTo, "to", 100, "Last loop number")

	runCmd.Flags().IntVarP(&runLoops, "loops", "l", 1, "Number of times to run the test")
	runCmd.Flags().StringVarP(&runFilename, "filename", "f", "chat", "Base name for output file (will be formatted as <name>_<unix_timestamp>.log)")
	runCmd.Flags().BoolVarP(&runParallel, "parallel", "p", false, "Run tests in parallel batches")
	runCmd.Flags().IntVar(&runBatch, "batch", 0, "Number of parallel executions to run at once (default: runner.batch_size, only used with --parallel)")
	runCmd.Flags().IntVarP(&runQueue, "queue", "q", 0, "Number of worker goroutines for queue mode")
	runCmd.Flags().StringVar(&runPromptPath, "prompt", "", "Path to Go template file for custom prompts")
	runCmd.MarkFlagsMutuallyExclusive("parallel", "queue")

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of runs to list")
}

func runCoordinate(cmd *cobra.Command, args []string) error {
	settings := config.Settings
	if coordinateLoops > 0 {
		settings.Loops = coordinateLoops
	}
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	chatLog := NewChatLog(settings.ChatLogPath())
	driver, err := newDriver(settings, chatLog)
	if err != nil {
		return err
	}

	coordinator, err := NewCoordinator(config, chatLog, driver, logger)
	if err != nil {
		return err
	}

	startedAt := time.Now()
	stats, err := coordinator.Run(cmd.Context())
	if err != nil {
		return err
	}

	report, err := NewCoordinatorReport(stats, time.Now()).Render()
	if err != nil {
		return err
	}
	if err := chatLog.Event(report); err != nil {
		logger.Warn("Failed to append report to chat log", zap.Error(err))
	}
	fmt.Fprintln(cmd.OutOrStdout(), report)

	recordRun(cmd.Context(), HistoryRecord{
		Kind:      KindCoordinate,
		StartedAt: startedAt,
		Duration:  stats.Duration,
		Attempted: stats.Attempted(),
		Succeeded: stats.Succeeded,
		Failed:    stats.Failed,
		Output:    chatLog.Path(),
	})
	return nil
}

func newDriver(settings *Settings, chatLog *ChatLog) (AgentDriver, error) {
	if settings.Agents.Driver != DriverAPI {
		return NewCLIDriver(settings.Agents.Command, settings.TestDir, logger), nil
	}

	key := apiKey
	if key == "" {
		key = os.Getenv("ANTHROPIC_API_KEY")
	}
	if key == "" {
		return nil, fmt.Errorf("API key required: use --api-key flag or ANTHROPIC_API_KEY environment variable")
	}
	logger.Debug("Using API driver", zap.String("model", settings.Agents.API.Model))
	return NewAPIDriver(key, settings.Agents.API, config.GetAPISystemPrompt(), chatLog, logger)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	settings := config.Settings
	if simulateLoops > 0 {
		settings.Loops = simulateLoops
	}
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	startedAt := time.Now()
	sim := NewSimulation(settings, logger)
	stats, err := sim.Run(cmd.Context())
	if err != nil {
		return err
	}
	printSimulationSummary(cmd.OutOrStdout(), stats)

	recordRun(cmd.Context(), HistoryRecord{
		Kind:      KindSimulate,
		StartedAt: startedAt,
		Duration:  stats.Duration,
		Attempted: stats.Attempted(),
		Succeeded: stats.Succeeded,
		Failed:    stats.Failed,
		Output:    sim.ChatLog().Path(),
	})
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	settings := config.Settings
	chatLog := NewChatLog(settings.ChatLogPath())
	if err := Seed(chatLog, settings, seedFrom, seedTo); err != nil {
		return err
	}
	printSeedSummary(cmd.OutOrStdout(), seedTo-seedFrom+1)
	return nil
}

func runLoopRunner(cmd *cobra.Command, args []string) error {
	settings := config.Settings

	prompt, err := config.GetRunnerPrompt()
	if err != nil {
		return err
	}
	batch := runBatch
	if batch <= 0 {
		batch = settings.Runner.BatchSize
	}

	runner := NewRunner(RunnerConfig{
		AgentName: args[0],
		Loops:     runLoops,
		Filename:  runFilename,
		Parallel:  runParallel,
		BatchSize: batch,
		Queue:     runQueue,
		Prompt:    prompt,
		Command:   settings.Runner.Command,
		Args:      settings.Runner.Args,
		Pause:     settings.Runner.Pause,
		Dir:       settings.TestDir,
	}, NewRealRunner(), logger)

	startedAt := time.Now()
	result, err := runner.Run(cmd.Context())
	if result != nil {
		printRunnerSummary(cmd.OutOrStdout(), result)
		recordRun(cmd.Context(), HistoryRecord{
			Kind:      KindRun,
			StartedAt: startedAt,
			Duration:  result.Duration,
			Attempted: result.Attempted,
			Succeeded: result.Attempted - result.Failed,
			Failed:    result.Failed,
			Output:    result.OutputFile,
		})
	}
	if err != nil {
		return fmt.Errorf("error running reliability test: %w", err)
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	history, err := OpenHistory(config.Settings.HistoryDB)
	if err != nil {
		return err
	}
	defer history.Close()

	records, err := history.Recent(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	printHistory(cmd.OutOrStdout(), records)
	return nil
}

// recordRun stores rec in the history database; failures only warn
func recordRun(ctx context.Context, rec HistoryRecord) {
	if noHistory {
		return
	}
	history, err := OpenHistory(config.Settings.HistoryDB)
	if err != nil {
		logger.Warn("Run history unavailable", zap.Error(err))
		return
	}
	defer history.Close()

	// An interrupted run is still worth recording
	id, err := history.Record(context.WithoutCancel(ctx), rec)
	if err != nil {
		logger.Warn("Failed to record run", zap.Error(err))
		return
	}
	logger.Debug("Recorded run", zap.String("id", id), zap.String("kind", rec.Kind))
}
