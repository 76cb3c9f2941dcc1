package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: nil,
		},
		{
			name:     "single value",
			input:    "groceries",
			expected: []string{"groceries"},
		},
		{
			name:     "mixed case is lowered",
			input:    "Groceries, HOUSING",
			expected: []string{"groceries", "housing"},
		},
		{
			name:     "varied spacing",
			input:    "travel,  dining , other",
			expected: []string{"travel", "dining", "other"},
		},
		{
			name:     "trailing comma",
			input:    "utilities,",
			expected: []string{"utilities"},
		},
		{
			name:     "only spaces",
			input:    "   ",
			expected: nil,
		},
		{
			name:     "multiple commas",
			input:    ",,entertainment,,other,,",
			expected: []string{"entertainment", "other"},
		},
		{
			name:     "internal spaces preserved",
			input:    "eating out, public transport",
			expected: []string{"eating out", "public transport"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitList(tt.input))
		})
	}
}
