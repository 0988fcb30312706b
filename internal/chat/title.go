package chat

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	DefaultTitle     = "New Chat"
	derivedTitleMax  = 50
	editedTitleMax   = 100
	wordBoundaryBias = 0.7
)

var titlePrefixes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(hi|hello|hey|greetings),?\s*`),
	regexp.MustCompile(`(?i)^(can you|could you|please|would you)\s+`),
	regexp.MustCompile(`(?i)^(i need|i want|i would like)\s+`),
	regexp.MustCompile(`(?i)^(help me|assist me)\s+`),
}

var trailingPunct = regexp.MustCompile(`[.,;:]+$`)

// GenerateChatTitle derives a short chat title from the first user query.
// Greeting and request prefixes are stripped, the result is capitalized and
// truncated to 50 characters, preferring a word boundary when the cut point
// lands past 70% of the limit. Trailing punctuation is removed except for
// question and exclamation marks.
func GenerateChatTitle(query string) string {
	cleaned := normalizeWhitespace(query)
	if cleaned == "" {
		return DefaultTitle
	}

	title := cleaned
	for _, prefix := range titlePrefixes {
		title = prefix.ReplaceAllString(title, "")
	}

	title = capitalizeFirst(title)

	truncated := false
	if r := []rune(title); len(r) > derivedTitleMax {
		cut := string(r[:derivedTitleMax])
		lastSpace := strings.LastIndex(cut, " ")
		if float64(lastSpace) > derivedTitleMax*wordBoundaryBias {
			cut = cut[:lastSpace]
		}
		truncated = len([]rune(cut)) < len([]rune(cleaned))
		title = cut
	}

	title = trailingPunct.ReplaceAllString(title, "")
	if title == "" {
		return DefaultTitle
	}
	if truncated {
		title += "..."
	}
	return title
}

// ValidateChatTitle normalizes a user-edited title and reports whether it is
// acceptable: non-empty and at most 100 characters after whitespace
// normalization.
func ValidateChatTitle(title string) (string, bool) {
	cleaned := normalizeWhitespace(title)
	if cleaned == "" || len([]rune(cleaned)) > editedTitleMax {
		return "", false
	}
	return cleaned, true
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func capitalizeFirst(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
