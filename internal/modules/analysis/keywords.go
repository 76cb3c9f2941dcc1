package analysis

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// pluralSuffixes may follow a keyword without breaking the match ("movie" matches "movies").
var pluralSuffixes = []string{"", "s", "es"}

// containsWord reports whether word occurs in text as a whole word or phrase. Both arguments
// are expected in lower case.
func containsWord(text, word string) bool {
	if word == "" {
		return false
	}
	for start := 0; start+len(word) <= len(text); {
		i := strings.Index(text[start:], word)
		if i < 0 {
			return false
		}
		i += start
		if wordStart(text, i) && wordEnd(text[i+len(word):]) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		start = i + size
	}
	return false
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if containsWord(text, k) {
			return true
		}
	}
	return false
}

func wordStart(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func wordEnd(rest string) bool {
	for _, suffix := range pluralSuffixes {
		if !strings.HasPrefix(rest, suffix) {
			continue
		}
		tail := rest[len(suffix):]
		if tail == "" {
			return true
		}
		if r, _ := utf8.DecodeRuneInString(tail); !isWordRune(r) {
			return true
		}
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
