package importer

import (
	"math"
	"testing"
)

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"john smith", "jon smith", 1},
		{"flaw", "lawn", 2},
		{"josé", "jose", 1},
	}
	for _, c := range cases {
		if got := levenshtein([]rune(c.a), []rune(c.b)); got != c.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestSimilarText(t *testing.T) {
	cases := []struct {
		a, b string
		want float64
	}{
		{"World", "Word", 8.0 / 9.0},
		{"john smith", "jon smith", 18.0 / 19.0},
		{"abc", "xyz", 0},
		{"", "", 0},
	}
	for _, c := range cases {
		if got := similarText(c.a, c.b); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("similarText(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestSoundex(t *testing.T) {
	cases := map[string]string{
		"Robert":     "R163",
		"Rupert":     "R163",
		"Tymczak":    "T522",
		"Pfister":    "P236",
		"john smith": "J525",
		"jon smith":  "J525",
		"A":          "A000",
		"":           "",
	}
	for in, want := range cases {
		if got := soundex(in); got != want {
			t.Errorf("soundex(%q) = %q, want %q", in, got, want)
		}
	}
}
