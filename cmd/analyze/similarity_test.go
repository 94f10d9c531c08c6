package main

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"hello", "hello", 0},
		{"héllo", "hello", 1},
		{"flaw", "lawn", 2},
	}
	for _, tt := range tests {
		if got := LevenshteinDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("LevenshteinDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
		if got := LevenshteinDistance(tt.b, tt.a); got != tt.want {
			t.Errorf("LevenshteinDistance(%q, %q) = %d, want %d (symmetric)", tt.b, tt.a, got, tt.want)
		}
	}
}

func TestLevenshteinSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1},
		{"abc", "abd", 2.0 / 3.0},
		{"abc", "xyz", 0},
		{"hello", "hello", 1},
	}
	for _, tt := range tests {
		if got := LevenshteinSimilarity(tt.a, tt.b); !approx(got, tt.want) {
			t.Errorf("LevenshteinSimilarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestJaccardSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1},
		{"Hello, world!", "world hello", 1},
		{"a b", "b c", 1.0 / 3.0},
		{"abc", "", 0},
		{"hello hello hello", "hello", 1},
	}
	for _, tt := range tests {
		if got := JaccardSimilarity(tt.a, tt.b); !approx(got, tt.want) {
			t.Errorf("JaccardSimilarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestOverallSimilarity(t *testing.T) {
	if got := OverallSimilarity("hello world", "hello world"); !approx(got, 1) {
		t.Errorf("identical strings = %v, want 1", got)
	}
	// Levenshtein 2/3 weighted 0.4, Jaccard 0 weighted 0.6
	if got := OverallSimilarity("abc", "abd"); !approx(got, 0.4*2.0/3.0) {
		t.Errorf("OverallSimilarity(abc, abd) = %v", got)
	}
}

func TestSimilarityMatrix(t *testing.T) {
	responses := []string{"hello", "hello", "bye"}
	matrix := SimilarityMatrix(responses)

	if len(matrix) != 3 {
		t.Fatalf("matrix has %d rows, want 3", len(matrix))
	}
	for i := range matrix {
		if matrix[i][i] != 1 {
			t.Errorf("matrix[%d][%d] = %v, want 1", i, i, matrix[i][i])
		}
		for j := range matrix {
			if matrix[i][j] != matrix[j][i] {
				t.Errorf("matrix not symmetric at %d,%d", i, j)
			}
		}
	}
	if !approx(matrix[0][1], 1) {
		t.Errorf("identical responses scored %v", matrix[0][1])
	}
	if SimilarityMatrix(nil) == nil {
		t.Error("empty input should give an empty, non-nil matrix")
	}
}

func TestAverageSimilarity(t *testing.T) {
	matrix := [][]float64{
		{1, 0.9, 0.1},
		{0.9, 1, 0.2},
		{0.1, 0.2, 1},
	}
	if got := AverageSimilarity(matrix); !approx(got, 0.4) {
		t.Errorf("AverageSimilarity() = %v, want 0.4", got)
	}
	if got := AverageSimilarity([][]float64{{1}}); got != 1 {
		t.Errorf("single response = %v, want 1", got)
	}
	if got := AverageSimilarity(nil); got != 1 {
		t.Errorf("no responses = %v, want 1", got)
	}
}

func TestMostAbnormal(t *testing.T) {
	tests := []struct {
		name      string
		matrix    [][]float64
		wantIndex int
		wantScore float64
	}{
		{"outlier", [][]float64{{1, 0.9, 0.1}, {0.9, 1, 0.2}, {0.1, 0.2, 1}}, 2, 0.85},
		{"tie keeps first", [][]float64{{1, 0.5}, {0.5, 1}}, 0, 0.5},
		{"identical", [][]float64{{1, 1}, {1, 1}}, 0, 0},
		{"single", [][]float64{{1}}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index, score := MostAbnormal(tt.matrix)
			if index != tt.wantIndex || !approx(score, tt.wantScore) {
				t.Errorf("MostAbnormal() = %d, %v; want %d, %v", index, score, tt.wantIndex, tt.wantScore)
			}
		})
	}
}

func TestClusterResponses(t *testing.T) {
	tests := []struct {
		name      string
		responses []string
		want      []ResponseCluster
	}{
		{
			name:      "groups near duplicates",
			responses: []string{"hello world", "hello world!", "goodbye moon", "hello world"},
			want: []ResponseCluster{
				{Responses: []int{0, 1, 3}, Centroid: "hello world", Size: 3},
				{Responses: []int{2}, Centroid: "goodbye moon", Size: 1},
			},
		},
		{
			name:      "largest cluster first",
			responses: []string{"x y", "hello world", "hello world"},
			want: []ResponseCluster{
				{Responses: []int{1, 2}, Centroid: "hello world", Size: 2},
				{Responses: []int{0}, Centroid: "x y", Size: 1},
			},
		},
		{
			name:      "empty",
			responses: nil,
			want:      nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClusterResponses(tt.responses, SimilarityMatrix(tt.responses), clusterThreshold)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ClusterResponses() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTokenize(t *testing.T) {
	got := tokenize("it's 2 o'clock, ok?")
	want := []string{"it", "s", "2", "o", "clock", "ok"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tokenize() mismatch (-want +got):\n%s", diff)
	}
}
