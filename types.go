package main

import "time"

// LoopStatus represents the outcome of one communication loop
type LoopStatus string

const (
	StatusSuccess     LoopStatus = "success"
	StatusFailed      LoopStatus = "failed"
	StatusInterrupted LoopStatus = "interrupted"
)

// LoopResult tracks the outcome of a single loop
type LoopResult struct {
	Loop     int
	Status   LoopStatus
	Duration time.Duration
	Error    error
}

// RunStats accumulates counters for a whole run
type RunStats struct {
	Succeeded int
	Failed    int
	Errors    []string
	Duration  time.Duration
	// LineCount is the chat log line count at report time, -1 when unreadable
	LineCount int
}

// Attempted is the number of loops that reached a verdict
func (s RunStats) Attempted() int {
	return s.Succeeded + s.Failed
}

// Rate is the success percentage, 0 when nothing was attempted
func (s RunStats) Rate() float64 {
	total := s.Attempted()
	if total == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(total) * 100
}

// Record folds a loop result into the counters
func (s *RunStats) Record(r LoopResult) {
	switch r.Status {
	case StatusSuccess:
		s.Succeeded++
	case StatusFailed:
		s.Failed++
	}
}

// ExecutionMode selects how the loop runner schedules loops
type ExecutionMode int

const (
	Sequential ExecutionMode = iota
	Parallel
	Queue
)

func (m ExecutionMode) String() string {
	switch m {
	case Parallel:
		return "parallel"
	case Queue:
		return "queue"
	default:
		return "sequential"
	}
}
