package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsWord(t *testing.T) {
	tests := []struct {
		text     string
		word     string
		expected bool
	}{
		{"monthly rent payment", "rent", true},
		{"rent", "rent", true},
		{"gift for parent", "rent", false},
		{"current account fee", "rent", false},
		{"parent rent", "rent", true},
		{"spa day", "spa", true},
		{"space heater", "spa", false},
		{"facebook marketplace", "market", false},
		{"whole foods market", "market", true},
		{"netflix.com", "netflix", true},
		{"weekend movies", "movie", true},
		{"at&t wireless", "at&t", true},
		{"whole foods #12", "whole foods", true},
		{"wholefoods", "whole foods", false},
		{"anything", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.text+"/"+tt.word, func(t *testing.T) {
			assert.Equal(t, tt.expected, containsWord(tt.text, tt.word))
		})
	}
}
