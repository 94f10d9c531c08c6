package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

const (
	maxMatrixSize      = 10
	maxShownClusters   = 3
	maxVerboseClusters = 5
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	bannerStyle  = lipgloss.NewStyle().Bold(true).Border(lipgloss.NormalBorder(), false, false, true, false)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	gradeStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	poorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// PrintDualAgentResult writes the analysis of both agents to w
func PrintDualAgentResult(w io.Writer, result *DualAgentResult) {
	fmt.Fprintln(w, titleStyle.Render("=== DUAL AGENT RELIABILITY ANALYSIS ==="))
	fmt.Fprintf(w, "Total Log Entries: %d\n", result.TotalEntries)
	fmt.Fprintf(w, "Main Agent Responses: %d\n", len(result.MainAgentResponses))
	fmt.Fprintf(w, "Sub Agent Responses: %d\n", len(result.SubAgentResponses))

	sides := []struct {
		heading string
		name    string
		result  *AnalysisResult
	}{
		{`MAIN AGENT ANALYSIS ("What I told the agent")`, "Main Agent", result.MainAgentAnalysis},
		{`SUB AGENT ANALYSIS ("Agent's response")`, "Sub Agent", result.SubAgentAnalysis},
	}
	for _, side := range sides {
		fmt.Fprintln(w)
		if side.result == nil {
			fmt.Fprintln(w, sectionStyle.Render("--- "+strings.ToUpper(side.name)+" ANALYSIS ---"))
			fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("No %s responses found", strings.ToLower(side.name))))
			continue
		}
		fmt.Fprintln(w, bannerStyle.Render(side.heading))
		printSingleAgentAnalysis(w, side.result, side.name)
	}
}

func printSingleAgentAnalysis(w io.Writer, result *AnalysisResult, agentName string) {
	fmt.Fprintf(w, "Total Responses: %d\n", result.TotalResponses)
	fmt.Fprintf(w, "Average Similarity: %.3f (%.1f%%)\n", result.AverageSimilarity, result.AverageSimilarity*100)

	fmt.Fprintln(w, "\n"+sectionStyle.Render("--- CLUSTERING ANALYSIS ---"))
	fmt.Fprintf(w, "Found %d distinct response clusters\n", len(result.Clusters))
	for i, cluster := range result.Clusters {
		if i >= maxShownClusters {
			break
		}
		percentage := float64(cluster.Size) / float64(result.TotalResponses) * 100
		fmt.Fprintf(w, "Cluster %d: %d responses (%.1f%%) - \"%s\"\n",
			i+1, cluster.Size, percentage, truncateString(cluster.Centroid, 50))
	}

	fmt.Fprintln(w, "\n"+sectionStyle.Render("--- MOST COMMON PATTERN ---"))
	if result.MostCommonPattern != "" {
		fmt.Fprintf(w, "Pattern: \"%s\"\n", result.MostCommonPattern)
		fmt.Fprintf(w, "Frequency: %d/%d (%.1f%%)\n", result.MostCommonCount, result.TotalResponses, result.Consistency()*100)
	} else {
		fmt.Fprintln(w, "No dominant pattern found")
	}

	fmt.Fprintln(w, "\n"+sectionStyle.Render("--- MOST ABNORMAL RESPONSE ---"))
	if result.AbnormalityScore > 0 {
		fmt.Fprintf(w, "Abnormality Score: %.3f (%.1f%%)\n", result.AbnormalityScore, result.AbnormalityScore*100)
		fmt.Fprintf(w, "Loop: %d\n", result.MostAbnormal.Loop)
		fmt.Fprintf(w, "Response: \"%s\"\n", truncateString(result.MostAbnormalResponse, 200))
		fmt.Fprintf(w, "Timestamp: %s\n", formatTimestamp(result))
	} else {
		fmt.Fprintln(w, "No significantly abnormal responses found")
	}

	fmt.Fprintln(w, "\n"+sectionStyle.Render("--- RELIABILITY ASSESSMENT ---"))
	grade := AssessReliability(result)
	style := gradeStyle
	if strings.HasPrefix(grade, "POOR") || strings.HasPrefix(grade, "VERY POOR") {
		style = poorStyle
	}
	fmt.Fprintf(w, "%s Reliability: %s\n", agentName, style.Render(grade))
}

func formatTimestamp(result *AnalysisResult) string {
	if result.MostAbnormal.Timestamp.IsZero() {
		return "unknown"
	}
	return result.MostAbnormal.Timestamp.Format(entryTimeFormat)
}

// PrintVerbose writes the similarity matrices and detailed clusters
func PrintVerbose(w io.Writer, result *DualAgentResult) {
	if result.MainAgentAnalysis != nil {
		fmt.Fprintln(w, "\n"+bannerStyle.Render("MAIN AGENT VERBOSE OUTPUT"))
		printVerboseAnalysis(w, result.MainAgentAnalysis, "Main Agent")
	}
	if result.SubAgentAnalysis != nil {
		fmt.Fprintln(w, "\n"+bannerStyle.Render("SUB AGENT VERBOSE OUTPUT"))
		printVerboseAnalysis(w, result.SubAgentAnalysis, "Sub Agent")
	}
}

func printVerboseAnalysis(w io.Writer, result *AnalysisResult, agentName string) {
	fmt.Fprintln(w, "\n"+sectionStyle.Render(fmt.Sprintf("--- %s SIMILARITY MATRIX ---", strings.ToUpper(agentName))))
	matrix := result.SimilarityMatrix
	n := len(matrix)
	if n > maxMatrixSize {
		fmt.Fprintf(w, "Matrix too large (%dx%d), showing first %dx%d subset:\n", n, n, maxMatrixSize, maxMatrixSize)
		n = maxMatrixSize
	}

	fmt.Fprint(w, "     ")
	for j := 0; j < n; j++ {
		fmt.Fprintf(w, "%6d", j+1)
	}
	fmt.Fprintln(w)
	for i := 0; i < n; i++ {
		fmt.Fprintf(w, "%3d: ", i+1)
		for j := 0; j < n; j++ {
			fmt.Fprintf(w, "%6.3f", matrix[i][j])
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "\n"+sectionStyle.Render(fmt.Sprintf("--- %s DETAILED CLUSTERS ---", strings.ToUpper(agentName))))
	for i, cluster := range result.Clusters {
		if i >= maxVerboseClusters {
			fmt.Fprintf(w, "... and %d more clusters\n", len(result.Clusters)-maxVerboseClusters)
			break
		}
		fmt.Fprintf(w, "Cluster %d (%d responses):\n", i+1, cluster.Size)
		fmt.Fprintf(w, "  Representative: \"%s\"\n", truncateString(cluster.Centroid, 100))
		fmt.Fprintf(w, "  Response indices: %v\n", cluster.Responses)
	}
}

// PrintDebug writes what was extracted from every entry
func PrintDebug(w io.Writer, entries []LogEntry) {
	fmt.Fprintln(w, "\n"+titleStyle.Render("=== DEBUG: DUAL AGENT EXTRACTED RESPONSES ==="))
	for i, entry := range entries {
		fmt.Fprintf(w, "Loop %d:\n", entry.Loop)
		fmt.Fprintf(w, "  Main Agent: %s\n", debugValue(entry.MainAgentResponse))
		fmt.Fprintf(w, "  Sub Agent:  %s\n", debugValue(entry.SubAgentResponse))
		if i < len(entries)-1 {
			fmt.Fprintln(w)
		}
	}
	fmt.Fprintln(w)
}

func debugValue(s string) string {
	if s == "" {
		return dimStyle.Render("[none]")
	}
	return fmt.Sprintf("%q", truncateString(s, 100))
}

// SaveResults writes a report to filename: YAML for .yaml/.yml, text otherwise
func SaveResults(result *DualAgentResult, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		enc := yaml.NewEncoder(file)
		enc.SetIndent(2)
		if err := enc.Encode(newYAMLReport(result)); err != nil {
			return fmt.Errorf("encoding YAML report: %w", err)
		}
		return enc.Close()
	default:
		writeTextReport(file, result)
		return nil
	}
}

func writeTextReport(w io.Writer, result *DualAgentResult) {
	fmt.Fprintf(w, "Dual Agent Reliability Analysis Report\n")
	fmt.Fprintf(w, "======================================\n\n")

	fmt.Fprintf(w, "Total Log Entries: %d\n", result.TotalEntries)
	fmt.Fprintf(w, "Main Agent Responses: %d\n", len(result.MainAgentResponses))
	fmt.Fprintf(w, "Sub Agent Responses: %d\n\n", len(result.SubAgentResponses))

	if result.MainAgentAnalysis != nil {
		fmt.Fprintf(w, "=== MAIN AGENT ANALYSIS ===\n")
		writeTextAnalysis(w, result.MainAgentAnalysis)
		fmt.Fprintf(w, "\n")
	}
	if result.SubAgentAnalysis != nil {
		fmt.Fprintf(w, "=== SUB AGENT ANALYSIS ===\n")
		writeTextAnalysis(w, result.SubAgentAnalysis)
	}
}

func writeTextAnalysis(w io.Writer, result *AnalysisResult) {
	fmt.Fprintf(w, "Total Responses: %d\n", result.TotalResponses)
	fmt.Fprintf(w, "Average Similarity: %.4f\n", result.AverageSimilarity)
	fmt.Fprintf(w, "Most Common Pattern Count: %d\n", result.MostCommonCount)
	fmt.Fprintf(w, "Abnormality Score: %.4f\n", result.AbnormalityScore)
	fmt.Fprintf(w, "Reliability: %s\n\n", AssessReliability(result))

	fmt.Fprintf(w, "Most Common Pattern:\n%s\n\n", result.MostCommonPattern)
	fmt.Fprintf(w, "Most Abnormal Response (Loop %d):\n%s\n\n", result.MostAbnormal.Loop, result.MostAbnormalResponse)

	fmt.Fprintf(w, "Similarity Matrix:\n")
	for i, row := range result.SimilarityMatrix {
		fmt.Fprintf(w, "Row %d: ", i+1)
		for _, val := range row {
			fmt.Fprintf(w, "%.4f ", val)
		}
		fmt.Fprintf(w, "\n")
	}

	fmt.Fprintf(w, "\nClusters:\n")
	for i, cluster := range result.Clusters {
		fmt.Fprintf(w, "Cluster %d: %d responses - %v\n", i+1, cluster.Size, cluster.Responses)
		fmt.Fprintf(w, "  Centroid: %s\n", cluster.Centroid)
	}
}

type yamlCluster struct {
	Size      int    `yaml:"size"`
	Responses []int  `yaml:"responses"`
	Centroid  string `yaml:"centroid"`
}

type yamlAnalysis struct {
	TotalResponses    int           `yaml:"total_responses"`
	AverageSimilarity float64       `yaml:"average_similarity"`
	Reliability       string        `yaml:"reliability"`
	MostCommonPattern string        `yaml:"most_common_pattern"`
	MostCommonCount   int           `yaml:"most_common_count"`
	AbnormalityScore  float64       `yaml:"abnormality_score"`
	MostAbnormalLoop  int           `yaml:"most_abnormal_loop"`
	MostAbnormal      string        `yaml:"most_abnormal_response"`
	SimilarityMatrix  [][]float64   `yaml:"similarity_matrix,flow"`
	Clusters          []yamlCluster `yaml:"clusters"`
}

type yamlReport struct {
	TotalEntries       int           `yaml:"total_entries"`
	MainAgentResponses int           `yaml:"main_agent_responses"`
	SubAgentResponses  int           `yaml:"sub_agent_responses"`
	MainAgent          *yamlAnalysis `yaml:"main_agent,omitempty"`
	SubAgent           *yamlAnalysis `yaml:"sub_agent,omitempty"`
}

func newYAMLReport(result *DualAgentResult) yamlReport {
	return yamlReport{
		TotalEntries:       result.TotalEntries,
		MainAgentResponses: len(result.MainAgentResponses),
		SubAgentResponses:  len(result.SubAgentResponses),
		MainAgent:          newYAMLAnalysis(result.MainAgentAnalysis),
		SubAgent:           newYAMLAnalysis(result.SubAgentAnalysis),
	}
}

func newYAMLAnalysis(result *AnalysisResult) *yamlAnalysis {
	if result == nil {
		return nil
	}
	clusters := make([]yamlCluster, 0, len(result.Clusters))
	for _, c := range result.Clusters {
		clusters = append(clusters, yamlCluster{Size: c.Size, Responses: c.Responses, Centroid: c.Centroid})
	}
	return &yamlAnalysis{
		TotalResponses:    result.TotalResponses,
		AverageSimilarity: result.AverageSimilarity,
		Reliability:       AssessReliability(result),
		MostCommonPattern: result.MostCommonPattern,
		MostCommonCount:   result.MostCommonCount,
		AbnormalityScore:  result.AbnormalityScore,
		MostAbnormalLoop:  result.MostAbnormal.Loop,
		MostAbnormal:      result.MostAbnormalResponse,
		SimilarityMatrix:  result.SimilarityMatrix,
		Clusters:          clusters,
	}
}

// truncateString shortens s to maxLen runes with an ellipsis
func truncateString(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
