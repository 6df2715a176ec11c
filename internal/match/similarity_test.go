package match

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a        string
		b        string
		expected float64
	}{
		// Identical and empty
		{"", "", 1.0},
		{"status", "status", 1.0},
		{"", "abc", 0.0},

		// Case-insensitive
		{"Status", "status", 1.0},
		{"DUE DATE", "due date", 1.0},

		// Partial overlap
		{"abcd", "bcde", 0.75},
		{"Statuz", "Status", 10.0 / 12.0},
		{"Statuses", "Status", 12.0 / 14.0},
		{"Priority", "Priorities", 14.0 / 18.0},

		// Disjoint
		{"abc", "xyz", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Similarity(tt.a, tt.b), 1e-9)
			assert.InDelta(t, Similarity(tt.a, tt.b), Similarity(tt.b, tt.a), 1e-9, "symmetric for these inputs")
		})
	}
}

func TestSimilarity_MatchingBlocksRecurse(t *testing.T) {
	// Blocks "a" and "cd" on either side of the mismatch: M=3, T=8.
	assert.InDelta(t, 0.75, Similarity("abcd", "axcd"), 1e-9)
	// difflib reference value for ("private", "privacy").
	assert.InDelta(t, 10.0/14.0, Similarity("private", "privacy"), 1e-9)
}

func TestFirst(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		names     []string
		threshold float64
		expected  int
	}{
		{
			name:      "exact match ignoring case",
			candidate: "Status",
			names:     []string{"Tag", "status"},
			threshold: DefaultThreshold,
			expected:  1,
		},
		{
			name:      "first above threshold wins over exact",
			candidate: "Status",
			names:     []string{"Statuses", "Status"},
			threshold: DefaultThreshold,
			expected:  0,
		},
		{
			name:      "below threshold is never merged",
			candidate: "Status",
			names:     []string{"Statuz"},
			threshold: DefaultThreshold,
			expected:  -1,
		},
		{
			name:      "lower threshold admits near miss",
			candidate: "Status",
			names:     []string{"Statuz", "Status"},
			threshold: 0.8,
			expected:  0,
		},
		{
			name:      "empty list",
			candidate: "Status",
			names:     nil,
			threshold: DefaultThreshold,
			expected:  -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, First(tt.candidate, tt.names, tt.threshold))
		})
	}
}

func BenchmarkSimilarity(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = Similarity(fmt.Sprintf("Research Paper %d", i%10), "research papers")
	}
}
