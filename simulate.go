package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Simulation plays both agents in-process against the real mailbox files
type Simulation struct {
	settings   *Settings
	chatLog    *ChatLog
	toReceiver *Mailbox
	toSender   *Mailbox
	logger     *zap.Logger
}

// NewSimulation creates a simulation over the configured test directory
func NewSimulation(settings *Settings, logger *zap.Logger) *Simulation {
	return &Simulation{
		settings:   settings,
		chatLog:    NewChatLog(settings.ChatLogPath()),
		toReceiver: NewMailbox(settings.ToReceiverPath(), settings.Mailbox.PollInterval),
		toSender:   NewMailbox(settings.ToSenderPath(), settings.Mailbox.PollInterval),
		logger:     logger,
	}
}

// ChatLog returns the transcript the simulation writes to
func (s *Simulation) ChatLog() *ChatLog {
	return s.chatLog
}

// Run executes every loop and appends the final report
func (s *Simulation) Run(ctx context.Context) (RunStats, error) {
	loops := s.settings.Loops
	stats := RunStats{}

	header := fmt.Sprintf("\n[%s] Starting execution of %d communication loops", s.chatLog.now().Format(reportTimeFormat), loops)
	if err := s.chatLog.Line(header); err != nil {
		return stats, err
	}

	start := time.Now()
	for loop := 1; loop <= loops; loop++ {
		if ctx.Err() != nil {
			s.logger.Warn("Simulation interrupted", zap.Int("loop", loop))
			break
		}

		if err := s.runLoop(ctx, loop); err != nil {
			if ctx.Err() != nil {
				break
			}
			stats.Failed++
			stats.Errors = append(stats.Errors, fmt.Sprintf("Loop %d: %v", loop, err))
			s.logger.Warn(fmt.Sprintf("✗ Loop %d failed", loop), zap.Error(err))
			_ = s.chatLog.Line(fmt.Sprintf("[%s] ERROR in Loop %d: %v", s.chatLog.Timestamp(), loop, err))
		} else {
			stats.Succeeded++
			s.logger.Debug(fmt.Sprintf("✓ Loop %d completed", loop))
		}

		if err := sleepContext(ctx, s.settings.Simulate.LoopPause); err != nil {
			break
		}
	}
	stats.Duration = time.Since(start)

	stats.LineCount = -1
	if n, err := s.chatLog.LineCount(); err == nil {
		stats.LineCount = n
	}

	report, err := NewSimulationReport(stats, loops, s.settings.Simulate.StepDelay,
		s.settings.Agents.Sender.Token, s.settings.Agents.Receiver.Token, s.chatLog.now()).Render()
	if err != nil {
		return stats, err
	}
	if err := s.chatLog.Line(report); err != nil {
		return stats, err
	}
	return stats, nil
}

func (s *Simulation) runLoop(ctx context.Context, loop int) error {
	sender := s.settings.Agents.Sender
	receiver := s.settings.Agents.Receiver
	ts := s.chatLog.Timestamp()

	steps := []func() error{
		func() error { return s.chatLog.Line(fmt.Sprintf("\n=== LOOP %d ===", loop)) },
		func() error { return s.chatLog.Line(fmt.Sprintf("[%s] Coordinator: Initiating Loop %d", ts, loop)) },
		s.toReceiver.Clear,
		s.toSender.Clear,
		func() error { return s.chatLog.Line(fmt.Sprintf("[%s] Coordinator: Message files cleared", ts)) },
		func() error { return sleepContext(ctx, s.settings.Simulate.StepDelay) },
		func() error { return s.toReceiver.Write(sender.Token) },
		func() error { return s.chatLog.Line(fmt.Sprintf("%s: %s", sender.Name, sender.Token)) },
		func() error {
			return s.chatLog.Line(fmt.Sprintf("[%s] Coordinator: %s message confirmed, launching %s",
				s.chatLog.Timestamp(), sender.Name, receiver.Name))
		},
		func() error { return sleepContext(ctx, s.settings.Simulate.StepDelay) },
		func() error { return s.toSender.Write(receiver.Token) },
		func() error { return s.chatLog.Line(fmt.Sprintf("%s: %s", receiver.Name, receiver.Token)) },
		func() error {
			return s.chatLog.Line(fmt.Sprintf("[%s] Coordinator: Loop %d completed successfully", s.chatLog.Timestamp(), loop))
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
