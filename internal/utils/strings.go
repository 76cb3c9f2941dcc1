// Package utils holds small helpers shared by configuration and the analysis pipeline.
package utils

import "strings"

// SplitList splits a comma-separated string and returns trimmed, lower-cased, non-empty values.
// Returns nil for empty/whitespace-only input.
func SplitList(s string) []string {
	if s == "" {
		return nil
	}

	var result []string
	for _, v := range strings.Split(s, ",") {
		trimmed := strings.ToLower(strings.TrimSpace(v))
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return nil
	}

	return result
}
