package main

import "fmt"

// AnalyzeLogFile parses filename and analyzes both agents' responses
func AnalyzeLogFile(filename string) (*DualAgentResult, error) {
	entries, err := ParseLogFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log file: %w", err)
	}
	return Analyze(entries), nil
}

// Analyze runs the similarity analysis over each agent's non-empty responses
func Analyze(entries []LogEntry) *DualAgentResult {
	result := &DualAgentResult{
		TotalEntries: len(entries),
		Entries:      entries,
	}
	if len(entries) == 0 {
		return result
	}

	var mainOwners, subOwners []LogEntry
	for _, entry := range entries {
		if entry.MainAgentResponse != "" {
			result.MainAgentResponses = append(result.MainAgentResponses, entry.MainAgentResponse)
			mainOwners = append(mainOwners, entry)
		}
		if entry.SubAgentResponse != "" {
			result.SubAgentResponses = append(result.SubAgentResponses, entry.SubAgentResponse)
			subOwners = append(subOwners, entry)
		}
	}

	result.MainAgentAnalysis = analyzeResponses(result.MainAgentResponses, mainOwners)
	result.SubAgentAnalysis = analyzeResponses(result.SubAgentResponses, subOwners)
	return result
}

// analyzeResponses expects owners[i] to be the entry responses[i] came from
func analyzeResponses(responses []string, owners []LogEntry) *AnalysisResult {
	if len(responses) == 0 {
		return nil
	}

	matrix := SimilarityMatrix(responses)
	abnormal, score := MostAbnormal(matrix)
	clusters := ClusterResponses(responses, matrix, clusterThreshold)
	pattern, count := mostCommonPattern(responses, clusters)

	return &AnalysisResult{
		TotalResponses:       len(responses),
		AverageSimilarity:    AverageSimilarity(matrix),
		MostCommonPattern:    pattern,
		MostCommonCount:      count,
		MostAbnormal:         owners[abnormal],
		MostAbnormalResponse: responses[abnormal],
		AbnormalityScore:     score,
		SimilarityMatrix:     matrix,
		Clusters:             clusters,
	}
}

// mostCommonPattern is the first response of the largest cluster
func mostCommonPattern(responses []string, clusters []ResponseCluster) (string, int) {
	if len(clusters) == 0 || len(clusters[0].Responses) == 0 {
		return "", 0
	}
	largest := clusters[0]
	return responses[largest.Responses[0]], largest.Size
}

// AssessReliability grades a result from its similarity, abnormality and consistency
func AssessReliability(result *AnalysisResult) string {
	avg := result.AverageSimilarity
	abnormality := result.AbnormalityScore
	consistency := result.Consistency()

	switch {
	case avg >= 0.9 && abnormality <= 0.2 && consistency >= 0.8:
		return "EXCELLENT - Highly consistent responses"
	case avg >= 0.7 && abnormality <= 0.4 && consistency >= 0.6:
		return "GOOD - Generally consistent with minor variations"
	case avg >= 0.5 && abnormality <= 0.6 && consistency >= 0.4:
		return "MODERATE - Some inconsistency present"
	case avg >= 0.3 && abnormality <= 0.8:
		return "POOR - Significant inconsistencies detected"
	default:
		return "VERY POOR - Highly unreliable responses"
	}
}
