package main

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reportTime = time.Date(2025, 6, 1, 12, 30, 0, 0, time.Local)

func TestNewCoordinatorReportAssessment(t *testing.T) {
	tests := []struct {
		name              string
		succeeded, failed int
		wantComm          string
		wantProtocol      string
		wantEffectiveness string
	}{
		{"all succeed", 100, 0, "EXCELLENT", "RELIABLE", "HIGH"},
		{"95 percent", 95, 5, "EXCELLENT", "UNRELIABLE", "HIGH"},
		{"90 percent", 90, 10, "GOOD", "UNRELIABLE", "HIGH"},
		{"85 percent", 85, 15, "GOOD", "UNRELIABLE", "MODERATE"},
		{"short run", 3, 1, "POOR", "RELIABLE", "LOW"},
		{"70 succeeded", 70, 30, "POOR", "UNRELIABLE", "MODERATE"},
		{"nothing attempted", 0, 0, "POOR", "RELIABLE", "LOW"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewCoordinatorReport(RunStats{Succeeded: tt.succeeded, Failed: tt.failed}, reportTime)
			assert.Equal(t, tt.wantComm, r.Communication)
			assert.Equal(t, tt.wantProtocol, r.Protocol)
			assert.Equal(t, tt.wantEffectiveness, r.Effectiveness)
			assert.Equal(t, tt.succeeded+tt.failed, r.Attempted)
		})
	}
}

func TestCoordinatorReportRender(t *testing.T) {
	stats := RunStats{
		Succeeded: 2,
		Failed:    1,
		Errors:    []string{"Failed to clean message files: denied", "Error reading box: busy"},
		Duration:  12500 * time.Millisecond,
		LineCount: 42,
	}

	out, err := NewCoordinatorReport(stats, reportTime).Render()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "\n\n=== AGENT COMMUNICATION RELIABILITY TEST RESULTS ===\n"))
	for _, want := range []string{
		"Test Duration: 12.50 seconds\n",
		"Total Communication Cycles Attempted: 3\n",
		"Successful Communication Cycles: 2\n",
		"Failed Communication Cycles: 1\n",
		"Communication Reliability Rate: 66.67%\n",
		"Chat Log Final Line Count: 42\n",
		"Total Errors Encountered: 2\n\nDetailed Errors:\n1. Failed to clean message files: denied\n2. Error reading box: busy\n",
		"Inter-agent communication reliability: POOR\n",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "No errors encountered")
	assert.True(t, strings.HasSuffix(out, "Test completed at: 2025-06-01 12:30:00\n"))
}

func TestCoordinatorReportNoErrorsUnknownLines(t *testing.T) {
	out, err := NewCoordinatorReport(RunStats{Succeeded: 1, LineCount: -1}, reportTime).Render()
	require.NoError(t, err)

	assert.Contains(t, out, "Chat Log Final Line Count: Unknown\n")
	assert.Contains(t, out, "Total Errors Encountered: 0\nNo errors encountered during testing.\n")
	assert.NotContains(t, out, "Detailed Errors")
}

func TestNewSimulationReport(t *testing.T) {
	stats := RunStats{Succeeded: 100, Duration: 4 * time.Second, LineCount: 800}
	r := NewSimulationReport(stats, 100, 10*time.Millisecond, "hello", "world", reportTime)

	assert.InDelta(t, 0.04, r.AverageLoop, 1e-9)
	assert.Equal(t, 200, r.Messages)
	// 100 loops of two 10ms steps is 2s of work out of 4s
	assert.InDelta(t, 50.0, r.Overhead, 1e-9)
	assert.InDelta(t, 25.0, r.Throughput, 1e-9)
	assert.Equal(t, "EXCELLENT", r.Communication)
	assert.Equal(t, "RELIABLE", r.Passing)
	assert.Equal(t, "OPTIMAL", r.Coordination)
	assert.Equal(t, "PRECISE", r.Timing)
	assert.Equal(t, "SUCCESS - High reliability demonstrated", r.Result)
}

func TestNewSimulationReportZeroDuration(t *testing.T) {
	r := NewSimulationReport(RunStats{Succeeded: 3}, 3, 10*time.Millisecond, "hello", "world", reportTime)
	assert.Zero(t, r.Overhead)
	assert.Zero(t, r.Throughput)
	assert.Zero(t, r.AverageLoop)
}

func TestNewSimulationReportAssessment(t *testing.T) {
	tests := []struct {
		succeeded, failed int
		seconds           float64
		wantComm          string
		wantCoordination  string
		wantTiming        string
		wantResult        string
	}{
		{99, 1, 5, "EXCELLENT", "OPTIMAL", "PRECISE", "SUCCESS - High reliability demonstrated"},
		{96, 4, 12, "GOOD", "GOOD", "ACCEPTABLE", "PARTIAL - Some issues detected"},
		{90, 10, 29.9, "POOR", "NEEDS_IMPROVEMENT", "ACCEPTABLE", "PARTIAL - Some issues detected"},
		{50, 50, 30, "POOR", "NEEDS_IMPROVEMENT", "SLOW", "FAILURE - Significant problems found"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d of %d", tt.succeeded, tt.succeeded+tt.failed), func(t *testing.T) {
			stats := RunStats{
				Succeeded: tt.succeeded,
				Failed:    tt.failed,
				Duration:  time.Duration(tt.seconds * float64(time.Second)),
			}
			r := NewSimulationReport(stats, tt.succeeded+tt.failed, 0, "hello", "world", reportTime)
			assert.Equal(t, tt.wantComm, r.Communication)
			assert.Equal(t, "UNRELIABLE", r.Passing)
			assert.Equal(t, tt.wantCoordination, r.Coordination)
			assert.Equal(t, tt.wantTiming, r.Timing)
			assert.Equal(t, tt.wantResult, r.Result)
		})
	}
}

func TestSimulationReportRender(t *testing.T) {
	stats := RunStats{Succeeded: 3, Duration: 1500 * time.Millisecond, LineCount: 24}
	out, err := NewSimulationReport(stats, 3, 10*time.Millisecond, "hello", "world", reportTime).Render()
	require.NoError(t, err)

	for _, want := range []string{
		"[2025-06-01 12:30:00] 3-Loop Communication Test Completed\n",
		"- Test Duration: 1.500 seconds\n",
		"- Average Loop Time: 0.500 seconds per loop\n",
		"- Communication Reliability Rate: 100.00%\n",
		"- Messages Processed: 6 (hello/world pairs)\n",
		"- Throughput: 2.00 cycles/second\n",
	} {
		assert.Contains(t, out, want)
	}
	assert.True(t, strings.HasSuffix(out, "Result: SUCCESS - High reliability demonstrated\n"))
}

func TestSeedReportRender(t *testing.T) {
	out, err := SeedReport{CompletedAt: "2025-06-01 12:30:00", SenderToken: "hello", ReceiverToken: "world"}.Render()
	require.NoError(t, err)

	assert.Contains(t, out, "[2025-06-01 12:30:00] 100-Loop Communication Test Completed\n")
	assert.Contains(t, out, "- Messages Processed: 200 (hello/world pairs)\n")
	assert.Contains(t, out, "- Chat Log Final Line Count: 820\n")
}
