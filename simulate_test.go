package main

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSimulation(t *testing.T, loops int) (*Simulation, *Settings) {
	t.Helper()
	s := defaultTestSettings(t)
	s.TestDir = t.TempDir()
	s.Loops = loops
	s.Simulate.StepDelay = time.Millisecond
	s.Simulate.LoopPause = 0

	sim := NewSimulation(s, zap.NewNop())
	sim.chatLog.now = fixedClock(time.Date(2025, 3, 4, 5, 6, 7, 89_000_000, time.Local))
	return sim, s
}

func TestSimulationRun(t *testing.T) {
	sim, s := newTestSimulation(t, 3)

	stats, err := sim.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Succeeded)
	assert.Equal(t, 0, stats.Failed)
	assert.Empty(t, stats.Errors)
	// two header lines plus eight lines per loop
	assert.Equal(t, 2+3*8, stats.LineCount)

	data, err := os.ReadFile(sim.ChatLog().Path())
	require.NoError(t, err)
	log := string(data)

	wantBlock := "\n=== LOOP 2 ===\n" +
		"[2025-03-04 05:06:07.089] Coordinator: Initiating Loop 2\n" +
		"[2025-03-04 05:06:07.089] Coordinator: Message files cleared\n" +
		"python-pro: hello\n" +
		"[2025-03-04 05:06:07.089] Coordinator: python-pro message confirmed, launching fullstack-developer\n" +
		"fullstack-developer: world\n" +
		"[2025-03-04 05:06:07.089] Coordinator: Loop 2 completed successfully\n"

	assert.True(t, strings.HasPrefix(log, "\n[2025-03-04 05:06:07] Starting execution of 3 communication loops\n"))
	assert.Contains(t, log, wantBlock)
	assert.Contains(t, log, "[2025-03-04 05:06:07] 3-Loop Communication Test Completed\n")
	assert.Contains(t, log, "- Messages Processed: 6 (hello/world pairs)\n")
	assert.True(t, strings.HasSuffix(log, "Result: SUCCESS - High reliability demonstrated\n\n"))

	// the last loop's tokens stay in the mailboxes
	toReceiver, err := NewMailbox(s.ToReceiverPath(), 0).Read()
	require.NoError(t, err)
	assert.Equal(t, "hello", toReceiver)
	toSender, err := NewMailbox(s.ToSenderPath(), 0).Read()
	require.NoError(t, err)
	assert.Equal(t, "world", toSender)
}

func TestSimulationMailboxFailure(t *testing.T) {
	sim, s := newTestSimulation(t, 2)
	// a directory in place of the mailbox makes every clear fail
	require.NoError(t, os.Mkdir(s.ToReceiverPath(), 0755))

	stats, err := sim.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Succeeded)
	assert.Equal(t, 2, stats.Failed)
	require.Len(t, stats.Errors, 2)
	assert.True(t, strings.HasPrefix(stats.Errors[0], "Loop 1: "))

	data, err := os.ReadFile(sim.ChatLog().Path())
	require.NoError(t, err)
	log := string(data)
	assert.Contains(t, log, "] ERROR in Loop 1: ")
	assert.Contains(t, log, "] ERROR in Loop 2: ")
	assert.NotContains(t, log, "completed successfully")
	assert.Contains(t, log, "Result: FAILURE - Significant problems found\n")
}

func TestSimulationCancelled(t *testing.T) {
	sim, _ := newTestSimulation(t, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := sim.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Attempted())
}
