package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Coordinator runs the two-agent mailbox exchange loop after loop
type Coordinator struct {
	settings       *Settings
	driver         AgentDriver
	chatLog        *ChatLog
	toReceiver     *Mailbox
	toSender       *Mailbox
	senderPrompt   string
	receiverPrompt string
	logger         *zap.Logger

	stats RunStats
}

// NewCoordinator wires a coordinator from settings and a driver.
// chatLog must be the same log the driver writes to, if it writes at all.
func NewCoordinator(config *Config, chatLog *ChatLog, driver AgentDriver, logger *zap.Logger) (*Coordinator, error) {
	senderPrompt, err := config.GetSenderPrompt()
	if err != nil {
		return nil, err
	}
	receiverPrompt, err := config.GetReceiverPrompt()
	if err != nil {
		return nil, err
	}

	s := config.Settings
	return &Coordinator{
		settings:       s,
		driver:         driver,
		chatLog:        chatLog,
		toReceiver:     NewMailbox(s.ToReceiverPath(), s.Mailbox.PollInterval),
		toSender:       NewMailbox(s.ToSenderPath(), s.Mailbox.PollInterval),
		senderPrompt:   senderPrompt,
		receiverPrompt: receiverPrompt,
		logger:         logger,
	}, nil
}

// ChatLog returns the transcript the coordinator writes to
func (c *Coordinator) ChatLog() *ChatLog {
	return c.chatLog
}

// Stats returns a copy of the counters gathered so far
func (c *Coordinator) Stats() RunStats {
	stats := c.stats
	stats.Errors = append([]string(nil), c.stats.Errors...)
	return stats
}

func (c *Coordinator) event(msg string) error {
	c.logger.Debug(msg)
	return c.chatLog.Event(msg)
}

func (c *Coordinator) addError(msg string) {
	c.stats.Errors = append(c.stats.Errors, msg)
}

// Run executes every loop, pausing between them, until done or ctx is cancelled
func (c *Coordinator) Run(ctx context.Context) (RunStats, error) {
	loops := c.settings.Loops
	if err := c.event(fmt.Sprintf("Starting %d-loop agent communication reliability test", loops)); err != nil {
		return c.Stats(), fmt.Errorf("writing chat log: %w", err)
	}

	start := time.Now()
	for loop := 1; loop <= loops; loop++ {
		c.logger.Info(fmt.Sprintf("[%d/%d] → Running communication loop", loop, loops))

		result := c.RunLoop(ctx, loop)
		if result.Status == StatusInterrupted {
			_ = c.event("Test interrupted by user")
			break
		}
		if result.Error != nil && !IsLoopFailure(result.Error) {
			_ = c.event(fmt.Sprintf("Loop %d: Unexpected error: %v", loop, result.Error))
			c.addError(fmt.Sprintf("Loop %d unexpected error: %v", loop, result.Error))
			result.Status = StatusFailed
		}
		c.stats.Record(result)

		if result.Status == StatusSuccess {
			c.logger.Info(fmt.Sprintf("✓ Loop %d completed", loop), zap.Duration("elapsed", result.Duration))
		} else {
			_ = c.event(fmt.Sprintf("Loop %d: FAILED", loop))
			c.logger.Warn(fmt.Sprintf("✗ Loop %d failed", loop), zap.Error(result.Error))
		}

		if loop == loops {
			continue
		}
		if err := sleepContext(ctx, c.settings.Timeouts.LoopPause); err != nil {
			_ = c.event("Test interrupted by user")
			break
		}
	}
	c.stats.Duration = time.Since(start)

	c.stats.LineCount = -1
	if n, err := c.chatLog.LineCount(); err == nil {
		c.stats.LineCount = n
	}
	return c.Stats(), nil
}

// loopFailure marks an expected, already-logged loop failure
type loopFailure struct {
	err error
}

func (f *loopFailure) Error() string { return f.err.Error() }
func (f *loopFailure) Unwrap() error { return f.err }

// IsLoopFailure reports whether err is an ordinary loop failure rather than an unexpected error
func IsLoopFailure(err error) bool {
	var f *loopFailure
	return errors.As(err, &f)
}

func failed(loop int, start time.Time, err error) LoopResult {
	return LoopResult{Loop: loop, Status: StatusFailed, Duration: time.Since(start), Error: &loopFailure{err: err}}
}

// RunLoop executes one complete communication loop
func (c *Coordinator) RunLoop(ctx context.Context, loop int) LoopResult {
	start := time.Now()
	sender := c.settings.Agents.Sender
	receiver := c.settings.Agents.Receiver

	if err := c.event(fmt.Sprintf("=== Starting Communication Loop %d ===", loop)); err != nil {
		return LoopResult{Loop: loop, Status: StatusFailed, Error: err}
	}

	if err := c.cleanMessageFiles(); err != nil {
		c.addError(fmt.Sprintf("Failed to clean message files: %v", err))
		return failed(loop, start, err)
	}

	// Step 1: launch the sender
	senderSpec := AgentSpec{
		Name:   sender.Name,
		Peer:   receiver.Name,
		Token:  sender.Token,
		Outbox: c.toReceiver.Path,
		Inbox:  c.toSender.Path,
		Loop:   loop,
	}
	if err := c.event(fmt.Sprintf("Loop %d: Launching %s agent", loop, sender.Name)); err != nil {
		return LoopResult{Loop: loop, Status: StatusFailed, Error: err}
	}
	senderProc, err := c.launch(ctx, senderSpec, c.senderPrompt)
	if err != nil {
		if ctx.Err() != nil {
			return LoopResult{Loop: loop, Status: StatusInterrupted, Error: ctx.Err()}
		}
		c.addError("Failed to " + err.Error())
		return failed(loop, start, err)
	}

	// Step 2: wait for the sender's message
	if err := c.event(fmt.Sprintf("Loop %d: Waiting for %s message", loop, sender.Name)); err != nil {
		c.terminate(senderProc)
		return LoopResult{Loop: loop, Status: StatusFailed, Error: err}
	}
	message, err := c.waitFor(ctx, c.toReceiver, sender.Token)
	if err != nil {
		c.terminate(senderProc)
		if ctx.Err() != nil {
			return LoopResult{Loop: loop, Status: StatusInterrupted, Error: ctx.Err()}
		}
		_ = c.event(fmt.Sprintf("Loop %d: TIMEOUT - %s message not received", loop, sender.Name))
		return failed(loop, start, err)
	}
	if err := c.event(fmt.Sprintf("Loop %d: Received %s message: %s", loop, sender.Name, message)); err != nil {
		c.terminate(senderProc)
		return LoopResult{Loop: loop, Status: StatusFailed, Error: err}
	}

	// Step 3: launch the receiver
	receiverSpec := AgentSpec{
		Name:   receiver.Name,
		Peer:   sender.Name,
		Token:  receiver.Token,
		Outbox: c.toSender.Path,
		Inbox:  c.toReceiver.Path,
		Loop:   loop,
	}
	if err := c.event(fmt.Sprintf("Loop %d: Launching %s agent", loop, receiver.Name)); err != nil {
		c.terminate(senderProc)
		return LoopResult{Loop: loop, Status: StatusFailed, Error: err}
	}
	receiverProc, err := c.launch(ctx, receiverSpec, c.receiverPrompt)
	if err != nil {
		c.terminate(senderProc)
		if ctx.Err() != nil {
			return LoopResult{Loop: loop, Status: StatusInterrupted, Error: ctx.Err()}
		}
		c.addError("Failed to " + err.Error())
		return failed(loop, start, err)
	}

	// Step 4: wait for the receiver's response
	if err := c.event(fmt.Sprintf("Loop %d: Waiting for %s response", loop, receiver.Name)); err != nil {
		c.terminate(senderProc, receiverProc)
		return LoopResult{Loop: loop, Status: StatusFailed, Error: err}
	}
	response, err := c.waitFor(ctx, c.toSender, receiver.Token)
	if err != nil {
		c.terminate(senderProc, receiverProc)
		if ctx.Err() != nil {
			return LoopResult{Loop: loop, Status: StatusInterrupted, Error: ctx.Err()}
		}
		_ = c.event(fmt.Sprintf("Loop %d: TIMEOUT - %s response not received", loop, receiver.Name))
		return failed(loop, start, err)
	}
	if err := c.event(fmt.Sprintf("Loop %d: Received %s response: %s", loop, receiver.Name, response)); err != nil {
		c.terminate(senderProc, receiverProc)
		return LoopResult{Loop: loop, Status: StatusFailed, Error: err}
	}

	// Step 5: wait for both processes to exit
	for _, p := range []struct {
		name string
		proc AgentProcess
	}{{sender.Name, senderProc}, {receiver.Name, receiverProc}} {
		exit, err := c.waitExit(ctx, p.proc)
		if err != nil {
			c.terminate(senderProc, receiverProc)
			if ctx.Err() != nil {
				return LoopResult{Loop: loop, Status: StatusInterrupted, Error: ctx.Err()}
			}
			_ = c.event(fmt.Sprintf("Loop %d: Agent processes timed out", loop))
			return failed(loop, start, err)
		}
		c.logger.Debug("Agent exited",
			zap.String("agent", p.name),
			zap.Int("loop", loop),
			zap.Int("exit_code", exit.ExitCode))
	}

	if err := c.event(fmt.Sprintf("Loop %d: Communication cycle completed successfully", loop)); err != nil {
		return LoopResult{Loop: loop, Status: StatusFailed, Error: err}
	}
	return LoopResult{Loop: loop, Status: StatusSuccess, Duration: time.Since(start)}
}

func (c *Coordinator) cleanMessageFiles() error {
	if err := c.toReceiver.Clear(); err != nil {
		return err
	}
	return c.toSender.Clear()
}

func (c *Coordinator) launch(ctx context.Context, spec AgentSpec, promptTemplate string) (AgentProcess, error) {
	instructions, err := renderPrompt(spec.Name, promptTemplate, PromptData{
		Loop:    spec.Loop,
		Loops:   c.settings.Loops,
		Agent:   spec.Name,
		Peer:    spec.Peer,
		Token:   spec.Token,
		Outbox:  spec.Outbox,
		Inbox:   spec.Inbox,
		ChatLog: c.chatLog.Path(),
	})
	if err != nil {
		return nil, &AgentError{Agent: spec.Name, Loop: spec.Loop, Op: "launch", Err: err}
	}

	proc, err := c.driver.Launch(ctx, spec, instructions)
	if err != nil {
		return nil, &AgentError{Agent: spec.Name, Loop: spec.Loop, Op: "launch", Err: err}
	}
	return proc, nil
}

func (c *Coordinator) waitFor(ctx context.Context, box *Mailbox, token string) (string, error) {
	result, err := box.WaitFor(ctx, token, c.settings.Timeouts.Message)
	for _, readErr := range result.ReadErrors {
		c.addError(fmt.Sprintf("Error reading %s: %s", box.Path, readErr))
	}
	if err != nil {
		return "", err
	}
	return result.Content, nil
}

func (c *Coordinator) waitExit(ctx context.Context, proc AgentProcess) (AgentExit, error) {
	exitCtx, cancel := context.WithTimeout(ctx, c.settings.Timeouts.Exit)
	defer cancel()

	exit, err := proc.Wait(exitCtx)
	if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return exit, ErrExitTimeout
	}
	return exit, err
}

func (c *Coordinator) terminate(procs ...AgentProcess) {
	for _, p := range procs {
		if err := p.Terminate(); err != nil {
			c.logger.Warn("Terminating agent failed", zap.Error(err))
		}
	}
}

// sleepContext sleeps for d, returning early with ctx.Err() on cancellation
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
