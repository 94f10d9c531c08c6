package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultBatchSize = 5
	entryTimeFormat  = "2006-01-02 15:04:05 UTC"
)

// RunnerConfig describes one `run` invocation
type RunnerConfig struct {
	AgentName string
	Loops     int
	Filename  string
	Parallel  bool
	BatchSize int
	Queue     int
	Prompt    string // text/template source
	Command   string
	Args      []string
	Pause     time.Duration
	Dir       string
}

// Mode determines the execution mode from the flags
func (c RunnerConfig) Mode() ExecutionMode {
	if c.Queue > 0 {
		return Queue
	} else if c.Parallel {
		return Parallel
	}
	return Sequential
}

// RunnerPromptData is the data available to the runner prompt template
type RunnerPromptData struct {
	AgentName string
	Loop      int
	Loops     int
}

// RunnerResult summarises a finished run
type RunnerResult struct {
	OutputFile string
	Duration   time.Duration
	Attempted  int
	Failed     int
}

// Runner drives the agent CLI with a fixed prompt, loop after loop
type Runner struct {
	config RunnerConfig
	exec   CommandRunner
	logger *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	attempted int
	failed    int
}

// NewRunner creates a Runner executing commands through exec
func NewRunner(config RunnerConfig, exec CommandRunner, logger *zap.Logger) *Runner {
	return &Runner{config: config, exec: exec, logger: logger, now: time.Now}
}

// Run executes all loops in the configured mode and returns where the log went
func (r *Runner) Run(ctx context.Context) (*RunnerResult, error) {
	if r.config.Loops <= 0 {
		return nil, fmt.Errorf("loops must be positive, got %d", r.config.Loops)
	}
	// Fail on a broken template before any loop runs
	if _, err := r.prompt(1); err != nil {
		return nil, err
	}

	outputFile := fmt.Sprintf("%s_%d.log", r.config.Filename, r.now().Unix())
	if r.config.Dir != "" && !filepath.IsAbs(outputFile) {
		outputFile = filepath.Join(r.config.Dir, outputFile)
	}
	out := NewChatLog(outputFile)

	mode := r.config.Mode()
	r.logger.Info("Running loops",
		zap.Int("loops", r.config.Loops),
		zap.String("agent", r.config.AgentName),
		zap.Stringer("mode", mode),
		zap.String("output", outputFile))

	start := time.Now()
	var err error
	switch mode {
	case Queue:
		err = r.runQueue(ctx, out)
	case Parallel:
		err = r.runParallel(ctx, out)
	default:
		err = r.runSequential(ctx, out)
	}

	r.mu.Lock()
	result := &RunnerResult{
		OutputFile: outputFile,
		Duration:   time.Since(start),
		Attempted:  r.attempted,
		Failed:     r.failed,
	}
	r.mu.Unlock()

	r.logger.Info(fmt.Sprintf("✓ All %d loops completed", r.config.Loops),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", result.Duration))
	return result, err
}

func (r *Runner) runSequential(ctx context.Context, out *ChatLog) error {
	for loop := 1; loop <= r.config.Loops; loop++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.loop(ctx, loop, out)

		if loop < r.config.Loops {
			r.logger.Debug("Waiting before next iteration")
			if err := sleepContext(ctx, r.config.Pause); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Runner) runParallel(ctx context.Context, out *ChatLog) error {
	batch := r.config.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}

	for first := 1; first <= r.config.Loops; first += batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		last := min(first+batch-1, r.config.Loops)
		r.logger.Debug(fmt.Sprintf("→ Starting batch: loops %d-%d", first, last))

		var g errgroup.Group
		for loop := first; loop <= last; loop++ {
			g.Go(func() error {
				r.loop(ctx, loop, out)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		r.logger.Debug(fmt.Sprintf("✓ Batch completed: loops %d-%d", first, last))
	}
	return nil
}

func (r *Runner) runQueue(ctx context.Context, out *ChatLog) error {
	work := make(chan int, r.config.Loops)
	for loop := 1; loop <= r.config.Loops; loop++ {
		work <- loop
	}
	close(work)

	g, gctx := errgroup.WithContext(ctx)
	for w := 1; w <= r.config.Queue; w++ {
		g.Go(func() error {
			r.logger.Debug("Worker started", zap.Int("worker", w))
			for loop := range work {
				if err := gctx.Err(); err != nil {
					return err
				}
				r.logger.Debug("Worker processing loop", zap.Int("worker", w), zap.Int("loop", loop))
				r.loop(gctx, loop, out)
			}
			return nil
		})
	}
	return g.Wait()
}

func (r *Runner) prompt(loop int) (string, error) {
	return renderPrompt("runner", r.config.Prompt, RunnerPromptData{
		AgentName: r.config.AgentName,
		Loop:      loop,
		Loops:     r.config.Loops,
	})
}

// loop runs one command and appends its entry; failures are counted, never fatal
func (r *Runner) loop(ctx context.Context, loop int, out *ChatLog) {
	err := r.executeLoop(ctx, loop, out)

	r.mu.Lock()
	r.attempted++
	if err != nil {
		r.failed++
	}
	r.mu.Unlock()

	if err != nil {
		r.logger.Warn("✗ Execution error", zap.Error(fmt.Errorf("loop %d: %w", loop, err)))
	}
}

func (r *Runner) executeLoop(ctx context.Context, loop int, out *ChatLog) error {
	prompt, err := r.prompt(loop)
	if err != nil {
		return err
	}
	r.logger.Debug("→ Executing agent CLI",
		zap.Int("loop", loop),
		zap.String("agent", r.config.AgentName),
		zap.String("prompt", prompt))

	args := append(append([]string(nil), r.config.Args...), prompt)
	started := time.Now()
	res, runErr := r.exec.Run(ctx, r.config.Command, args, RunOpts{Dir: r.config.Dir})
	elapsed := time.Since(started)

	var entry strings.Builder
	fmt.Fprintf(&entry, "=== Loop %d/%d - %s ===\n", loop, r.config.Loops, r.now().UTC().Format(entryTimeFormat))
	fmt.Fprintf(&entry, "Prompt: %s\n", prompt)
	fmt.Fprintf(&entry, "Response:\n%s\n", strings.TrimSpace(res.Stdout))
	if res.Stderr != "" {
		fmt.Fprintf(&entry, "Errors:\n%s\n", strings.TrimSpace(res.Stderr))
	}
	fmt.Fprintf(&entry, "Execution time: %v\n", elapsed)
	entry.WriteString("---\n\n")

	if err := out.Append(entry.String()); err != nil {
		r.logger.Error("Error writing to log file", zap.Error(err))
	}

	name := filepath.Base(r.config.Command)
	if runErr != nil {
		return fmt.Errorf("%s execution failed: %w", name, runErr)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%s execution failed: exit status %d", name, res.ExitCode)
	}
	return nil
}
