package importer_test

import (
	"testing"

	"frs/profile-service/internal/importer"
)

// ── Similarity ─────────────────────────────────────────────────────────────

func TestSimilarity_IdenticalIsOne(t *testing.T) {
	for _, s := range []string{"", "a", "john smith", "María José", "o'neil-smith"} {
		if got := importer.Similarity(s, s); got != 1.0 {
			t.Errorf("Similarity(%q, %q) = %v, want 1.0", s, s, got)
		}
	}
}

func TestSimilarity_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"john smith", "jon smith"},
		{"maria garcia", "john smith"},
		{"abcab", "bcabc"},
		{"world", "word"},
		{"", "x"},
		{"anne-marie", "annemarie"},
	}
	for _, p := range pairs {
		ab := importer.Similarity(p[0], p[1])
		ba := importer.Similarity(p[1], p[0])
		if ab != ba {
			t.Errorf("Similarity(%q, %q) = %v but reversed = %v", p[0], p[1], ab, ba)
		}
	}
}

func TestSimilarity_CloseNamesPassThreshold(t *testing.T) {
	got := importer.Similarity("john smith", "jon smith")
	if got < importer.FuzzyThreshold {
		t.Errorf("Similarity(john smith, jon smith) = %v, want >= %v", got, importer.FuzzyThreshold)
	}
	// One edit, nine shared characters and equal soundex codes: the blend
	// exceeds 1.0 and is left that way.
	if got <= 1.0 {
		t.Errorf("Similarity(john smith, jon smith) = %v, want > 1.0 (unclamped)", got)
	}
}

func TestSimilarity_DistantNamesFailThreshold(t *testing.T) {
	if got := importer.Similarity("maria garcia", "john smith"); got >= importer.FuzzyThreshold {
		t.Errorf("Similarity(maria garcia, john smith) = %v, want < %v", got, importer.FuzzyThreshold)
	}
}
