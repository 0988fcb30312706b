package chat

import (
	"strings"
	"testing"
)

func TestGenerateChatTitleStripsPrefixes(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"hi, what is the capital of France", "What is the capital of France"},
		{"Hello can you explain recursion", "Explain recursion"},
		{"could you summarize this document", "Summarize this document"},
		{"i need a vacation plan", "A vacation plan"},
		{"help me debug this function", "Debug this function"},
		{"plain question about dogs", "Plain question about dogs"},
	}
	for _, tc := range cases {
		if got := GenerateChatTitle(tc.in); got != tc.want {
			t.Fatalf("GenerateChatTitle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestGenerateChatTitleEmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\t "} {
		if got := GenerateChatTitle(in); got != DefaultTitle {
			t.Fatalf("GenerateChatTitle(%q) = %q, want %q", in, got, DefaultTitle)
		}
	}
}

func TestGenerateChatTitleTruncatesAtWordBoundary(t *testing.T) {
	in := "explain the difference between concurrency and parallelism in modern programming languages"
	got := GenerateChatTitle(in)

	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected truncated title to end with ellipsis, got %q", got)
	}
	base := strings.TrimSuffix(got, "...")
	if len([]rune(base)) > 50 {
		t.Fatalf("truncated title too long: %d runes in %q", len([]rune(base)), got)
	}
	if strings.HasSuffix(base, " ") {
		t.Fatalf("truncated title has trailing space: %q", got)
	}
	// The cut must land on a word from the input, not mid-word garbage.
	if !strings.Contains(in, strings.ToLower(strings.TrimPrefix(base, "Explain"))) {
		t.Fatalf("truncated title %q is not a prefix of the input", got)
	}
}

func TestGenerateChatTitleShortInputNotTruncated(t *testing.T) {
	got := GenerateChatTitle("what is Go")
	if strings.HasSuffix(got, "...") {
		t.Fatalf("short title should not be truncated: %q", got)
	}
	if got != "What is Go" {
		t.Fatalf("got %q, want %q", got, "What is Go")
	}
}

func TestGenerateChatTitleTrailingPunctuation(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"what is recursion.", "What is recursion"},
		{"what is recursion,", "What is recursion"},
		{"what is recursion?", "What is recursion?"},
		{"really!", "Really!"},
	}
	for _, tc := range cases {
		if got := GenerateChatTitle(tc.in); got != tc.want {
			t.Fatalf("GenerateChatTitle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestGenerateChatTitleCollapsesWhitespace(t *testing.T) {
	if got := GenerateChatTitle("what   is\n\n  Go"); got != "What is Go" {
		t.Fatalf("got %q", got)
	}
}

func TestValidateChatTitle(t *testing.T) {
	if _, ok := ValidateChatTitle(""); ok {
		t.Fatalf("empty title should be rejected")
	}
	if _, ok := ValidateChatTitle("   \t "); ok {
		t.Fatalf("whitespace-only title should be rejected")
	}
	if _, ok := ValidateChatTitle(strings.Repeat("a", 101)); ok {
		t.Fatalf("title over 100 chars should be rejected")
	}

	got, ok := ValidateChatTitle("  My   chat  ")
	if !ok {
		t.Fatalf("valid title rejected")
	}
	if got != "My chat" {
		t.Fatalf("got %q, want %q", got, "My chat")
	}

	if _, ok := ValidateChatTitle(strings.Repeat("b", 100)); !ok {
		t.Fatalf("title of exactly 100 chars should be accepted")
	}
}
