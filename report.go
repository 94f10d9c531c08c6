package main

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"
	"time"
)

//go:embed config/reports/coordinator.tmpl
var coordinatorReportTemplate string

//go:embed config/reports/simulation.tmpl
var simulationReportTemplate string

//go:embed config/reports/seed.tmpl
var seedReportTemplate string

var reportFuncs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

// CoordinatorReport is the data behind the coordinator's final report
type CoordinatorReport struct {
	Seconds       float64
	Attempted     int
	Succeeded     int
	Failed        int
	Rate          float64
	LineCount     string
	Errors        []string
	Communication string
	Protocol      string
	Effectiveness string
	CompletedAt   string
}

// NewCoordinatorReport assesses stats the way the coordinator reports them
func NewCoordinatorReport(stats RunStats, completedAt time.Time) CoordinatorReport {
	rate := stats.Rate()

	lineCount := "Unknown"
	if stats.LineCount >= 0 {
		lineCount = fmt.Sprint(stats.LineCount)
	}

	r := CoordinatorReport{
		Seconds:     stats.Duration.Seconds(),
		Attempted:   stats.Attempted(),
		Succeeded:   stats.Succeeded,
		Failed:      stats.Failed,
		Rate:        rate,
		LineCount:   lineCount,
		Errors:      stats.Errors,
		CompletedAt: completedAt.Format(reportTimeFormat),
	}

	switch {
	case rate >= 95:
		r.Communication = "EXCELLENT"
	case rate >= 85:
		r.Communication = "GOOD"
	default:
		r.Communication = "POOR"
	}

	r.Protocol = "UNRELIABLE"
	if stats.Failed < 5 {
		r.Protocol = "RELIABLE"
	}

	switch {
	case stats.Succeeded >= 90:
		r.Effectiveness = "HIGH"
	case stats.Succeeded >= 70:
		r.Effectiveness = "MODERATE"
	default:
		r.Effectiveness = "LOW"
	}
	return r
}

// SimulationReport is the data behind the simulation's final report
type SimulationReport struct {
	CompletedAt   string
	Loops         int
	Seconds       float64
	AverageLoop   float64
	Attempted     int
	Succeeded     int
	Failed        int
	Rate          float64
	Communication string
	Passing       string
	Coordination  string
	Timing        string
	LineCount     int
	Messages      int
	SenderToken   string
	ReceiverToken string
	Overhead      float64
	Throughput    float64
	Result        string
}

// NewSimulationReport computes the simulation's derived figures.
// stepDelay is the sleep before each of the two agent writes in a loop.
func NewSimulationReport(stats RunStats, loops int, stepDelay time.Duration, sender, receiver string, completedAt time.Time) SimulationReport {
	rate := stats.Rate()
	seconds := stats.Duration.Seconds()

	r := SimulationReport{
		CompletedAt:   completedAt.Format(reportTimeFormat),
		Loops:         loops,
		Seconds:       seconds,
		Attempted:     stats.Attempted(),
		Succeeded:     stats.Succeeded,
		Failed:        stats.Failed,
		Rate:          rate,
		LineCount:     stats.LineCount,
		Messages:      stats.Succeeded * 2,
		SenderToken:   sender,
		ReceiverToken: receiver,
	}
	if loops > 0 {
		r.AverageLoop = seconds / float64(loops)
	}
	if seconds > 0 {
		work := float64(stats.Succeeded) * 2 * stepDelay.Seconds()
		r.Overhead = (seconds - work) / seconds * 100
		r.Throughput = float64(stats.Succeeded) / seconds
	}

	switch {
	case rate >= 99:
		r.Communication = "EXCELLENT"
	case rate >= 95:
		r.Communication = "GOOD"
	default:
		r.Communication = "POOR"
	}

	r.Passing = "UNRELIABLE"
	if stats.Failed == 0 {
		r.Passing = "RELIABLE"
	}

	switch {
	case stats.Succeeded >= 99:
		r.Coordination = "OPTIMAL"
	case stats.Succeeded >= 95:
		r.Coordination = "GOOD"
	default:
		r.Coordination = "NEEDS_IMPROVEMENT"
	}

	switch {
	case seconds < 10:
		r.Timing = "PRECISE"
	case seconds < 30:
		r.Timing = "ACCEPTABLE"
	default:
		r.Timing = "SLOW"
	}

	switch {
	case rate >= 99:
		r.Result = "SUCCESS - High reliability demonstrated"
	case rate >= 90:
		r.Result = "PARTIAL - Some issues detected"
	default:
		r.Result = "FAILURE - Significant problems found"
	}
	return r
}

// SeedReport fills the fixed closing report of a synthetic transcript
type SeedReport struct {
	CompletedAt   string
	SenderToken   string
	ReceiverToken string
}

func renderReport(name, text string, data any) (string, error) {
	tmpl, err := template.New(name).Funcs(reportFuncs).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parsing %s report: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s report: %w", name, err)
	}
	return buf.String(), nil
}

// Render formats the coordinator report
func (r CoordinatorReport) Render() (string, error) {
	return renderReport("coordinator", coordinatorReportTemplate, r)
}

// Render formats the simulation report
func (r SimulationReport) Render() (string, error) {
	return renderReport("simulation", simulationReportTemplate, r)
}

// Render formats the synthetic closing report
func (r SeedReport) Render() (string, error) {
	return renderReport("seed", seedReportTemplate, r)
}
