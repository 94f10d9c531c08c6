package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	verbose    bool
	outputFile string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "analyze <log_file>",
	Short: "Analyze agent reliability test logs",
	Long: `Analyze agent reliability run logs to quantify response similarity,
identify common patterns, and detect abnormal responses.

The analysis provides:
- Overall similarity metrics between responses
- Clustering of similar responses
- Most common response pattern
- Most abnormal/outlier response
- Reliability assessment`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runAnalysis,
}

func init() {
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output including similarity matrix")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Save detailed results to file (.yaml/.yml for YAML)")
	rootCmd.Flags().BoolVarP(&debug, "debug", "d", false, "Show extracted responses for debugging")
}

func runAnalysis(cmd *cobra.Command, args []string) error {
	logFile := args[0]
	out := cmd.OutOrStdout()

	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		return fmt.Errorf("log file '%s' does not exist", logFile)
	}

	fmt.Fprintf(out, "Analyzing log file: %s\n", logFile)
	fmt.Fprintln(out, "Processing...")

	result, err := AnalyzeLogFile(logFile)
	if err != nil {
		return fmt.Errorf("analyzing log file: %w", err)
	}
	if result.TotalEntries == 0 {
		fmt.Fprintln(out, "No log entries found in log file")
		return nil
	}

	if debug {
		PrintDebug(out, result.Entries)
	}
	PrintDualAgentResult(out, result)
	if verbose {
		PrintVerbose(out, result)
	}

	if outputFile != "" {
		if err := SaveResults(result, outputFile); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: Failed to save results to file: %v\n", err)
		} else {
			fmt.Fprintf(out, "\nDetailed results saved to: %s\n", outputFile)
		}
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
