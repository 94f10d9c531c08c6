package main

import (
	"sort"
	"strings"
	"unicode"
)

// clusterThreshold is the overall similarity a response needs to join a cluster
const clusterThreshold = 0.7

// LevenshteinDistance is the rune edit distance between a and b
func LevenshteinDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// LevenshteinSimilarity converts distance to a 0-1 score; two empty strings are identical
func LevenshteinSimilarity(a, b string) float64 {
	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(LevenshteinDistance(a, b))/float64(maxLen)
}

// JaccardSimilarity compares the lowercase word sets of a and b
func JaccardSimilarity(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)

	intersection := 0
	for word := range setA {
		if setB[word] {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 1.0
	}
	return float64(intersection) / float64(union)
}

// OverallSimilarity weights Levenshtein 40% and Jaccard 60%
func OverallSimilarity(a, b string) float64 {
	return 0.4*LevenshteinSimilarity(a, b) + 0.6*JaccardSimilarity(a, b)
}

func wordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, word := range tokenize(strings.ToLower(text)) {
		set[word] = true
	}
	return set
}

// tokenize splits text into runs of letters and digits
func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// SimilarityMatrix computes the symmetric pairwise similarity of responses
func SimilarityMatrix(responses []string) [][]float64 {
	n := len(responses)
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
		matrix[i][i] = 1.0
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sim := OverallSimilarity(responses[i], responses[j])
			matrix[i][j] = sim
			matrix[j][i] = sim
		}
	}
	return matrix
}

// AverageSimilarity is the mean over distinct pairs; fewer than two responses score 1
func AverageSimilarity(matrix [][]float64) float64 {
	n := len(matrix)
	if n <= 1 {
		return 1.0
	}

	total := 0.0
	count := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			total += matrix[i][j]
			count++
		}
	}
	return total / float64(count)
}

// MostAbnormal returns the index with the lowest mean similarity to the
// others and 1 minus that mean. The first index wins ties.
func MostAbnormal(matrix [][]float64) (int, float64) {
	n := len(matrix)
	if n <= 1 {
		return 0, 0.0
	}

	lowest := 1.0
	index := 0
	for i := 0; i < n; i++ {
		sum := 0.0
		for j := 0; j < n; j++ {
			if i != j {
				sum += matrix[i][j]
			}
		}
		if mean := sum / float64(n-1); mean < lowest {
			lowest = mean
			index = i
		}
	}
	return index, 1.0 - lowest
}

// ClusterResponses greedily groups each unvisited response with every later
// response at least threshold similar to it, largest cluster first
func ClusterResponses(responses []string, matrix [][]float64, threshold float64) []ResponseCluster {
	n := len(responses)
	if n == 0 {
		return nil
	}

	visited := make([]bool, n)
	var clusters []ResponseCluster
	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		cluster := ResponseCluster{Responses: []int{i}, Centroid: responses[i], Size: 1}
		visited[i] = true

		for j := i + 1; j < n; j++ {
			if !visited[j] && matrix[i][j] >= threshold {
				cluster.Responses = append(cluster.Responses, j)
				cluster.Size++
				visited[j] = true
			}
		}
		clusters = append(clusters, cluster)
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].Size > clusters[j].Size
	})
	return clusters
}
