package main

import "time"

// LogEntry is one loop of a runner log
type LogEntry struct {
	Loop              int
	Timestamp         time.Time
	Prompt            string
	MainAgentResponse string // "What I told the agent"
	SubAgentResponse  string // "Agent's response"
	RawResponse       string
	Errors            string
	ExecutionTime     time.Duration
}

// ResponseCluster groups responses similar to its first member
type ResponseCluster struct {
	Responses []int // indices into the analyzed responses
	Centroid  string
	Size      int
}

// AnalysisResult summarises the responses of one agent
type AnalysisResult struct {
	TotalResponses    int
	AverageSimilarity float64
	MostCommonPattern string
	MostCommonCount   int
	MostAbnormal      LogEntry
	// MostAbnormalResponse is the analyzed text of MostAbnormal
	MostAbnormalResponse string
	AbnormalityScore     float64
	SimilarityMatrix     [][]float64
	Clusters             []ResponseCluster
}

// Consistency is the share of responses in the largest cluster
func (r *AnalysisResult) Consistency() float64 {
	if r.TotalResponses == 0 {
		return 0
	}
	return float64(r.MostCommonCount) / float64(r.TotalResponses)
}

// DualAgentResult holds the analysis of both sides of every entry
type DualAgentResult struct {
	TotalEntries       int
	MainAgentAnalysis  *AnalysisResult
	SubAgentAnalysis   *AnalysisResult
	MainAgentResponses []string
	SubAgentResponses  []string
	Entries            []LogEntry
}
