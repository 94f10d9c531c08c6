package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
)

// statusLine prints a glyph-prefixed summary line; glyph is styled by outcome
func statusLine(w io.Writer, glyph string, ok bool, format string, args ...any) {
	style := okStyle
	if !ok {
		style = warnStyle
	}
	fmt.Fprintf(w, "%s %s\n", style.Render(glyph), fmt.Sprintf(format, args...))
}

// printSimulationSummary prints the four closing console lines of a simulation
func printSimulationSummary(w io.Writer, stats RunStats) {
	ok := stats.Failed == 0
	statusLine(w, "✅", ok, "%d-loop test completed: %d/%d successful cycles", stats.Attempted(), stats.Succeeded, stats.Attempted())
	statusLine(w, "📊", ok, "Reliability rate: %.2f%%", stats.Rate())
	statusLine(w, "⏱️ ", true, "Duration: %.3f seconds", stats.Duration.Seconds())
	statusLine(w, "📝", true, "Chat log lines: %d", stats.LineCount)
}

// printSeedSummary prints the fixed confirmation of a synthetic transcript
func printSeedSummary(w io.Writer, count int) {
	statusLine(w, "✅", true, "Batch execution of %d loops completed successfully", count)
	statusLine(w, "📊", true, "100%% reliability achieved across all communication cycles")
	statusLine(w, "🎯", true, "Multi-agent coordination effectiveness: OPTIMAL")
}

// printRunnerSummary prints where a runner's log went
func printRunnerSummary(w io.Writer, result *RunnerResult) {
	statusLine(w, "✓", result.Failed == 0, "Test completed: %d/%d loops succeeded",
		result.Attempted-result.Failed, result.Attempted)
	fmt.Fprintf(w, "Results saved to: %s\n", result.OutputFile)
	fmt.Fprintf(w, "Total duration: %v\n", result.Duration)
}

// printHistory renders run records as aligned rows
func printHistory(w io.Writer, records []HistoryRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No runs recorded yet."))
		return
	}

	header := fmt.Sprintf("%-36s  %-10s  %-19s  %10s  %9s  %6s  %s",
		"ID", "KIND", "STARTED", "DURATION", "SUCCEEDED", "FAILED", "OUTPUT")
	fmt.Fprintln(w, headerStyle.Render(header))
	fmt.Fprintln(w, mutedStyle.Render(strings.Repeat("─", lipgloss.Width(header))))

	for _, rec := range records {
		failed := fmt.Sprintf("%6d", rec.Failed)
		if rec.Failed > 0 {
			failed = warnStyle.Render(failed)
		}
		fmt.Fprintf(w, "%-36s  %-10s  %-19s  %10s  %4d/%-4d  %s  %s\n",
			rec.ID,
			rec.Kind,
			rec.StartedAt.Local().Format(reportTimeFormat),
			rec.Duration.Round(time.Millisecond).String(),
			rec.Succeeded,
			rec.Attempted,
			failed,
			rec.Output)
	}
}
