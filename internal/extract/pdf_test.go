package extract

import (
	"errors"
	"testing"
)

func TestNormalizeWhitespace(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"  leading and trailing \t", "leading and trailing"},
		{"runs   of\t\tspaces collapse", "runs of spaces collapse"},
		{"lines\nsurvive  intact", "lines\nsurvive intact"},
		{"   \t ", ""},
	}

	for _, tc := range cases {
		if got := normalizeWhitespace(tc.in); got != tc.want {
			t.Errorf("normalizeWhitespace(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// TestExtractPages_Garbage verifies unreadable input surfaces
// ErrExtraction so batch ingestion can skip the file and continue.
func TestExtractPages_Garbage(t *testing.T) {
	_, err := ExtractPages([]byte("not a pdf at all"))
	if err == nil {
		t.Fatal("ExtractPages succeeded on garbage input")
	}
	if !errors.Is(err, ErrExtraction) {
		t.Errorf("error %v is not ErrExtraction", err)
	}
}
