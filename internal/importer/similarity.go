package importer

// FuzzyThreshold is the minimum Similarity score for a fuzzy name match.
const FuzzyThreshold = 0.85

const (
	levenshteinWeight = 0.4
	similarTextWeight = 0.5
	soundexBonus      = 0.3
)

// Similarity blends three name-comparison heuristics into one score:
//
//	0.4 * (1 - levenshtein/maxLen) + 0.5 * similarText + 0.3 if soundex codes agree
//
// The result is not clamped: a close edit distance plus a soundex hit can push
// it above 1.0. Callers only ever compare it against FuzzyThreshold.
// Identical strings short-circuit to exactly 1.0.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}

	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}

	lev := 1.0 - float64(levenshtein(ra, rb))/float64(maxLen)
	sim := similarText(a, b)

	bonus := 0.0
	if soundex(a) == soundex(b) {
		bonus = soundexBonus
	}

	return levenshteinWeight*lev + similarTextWeight*sim + bonus
}

// levenshtein returns the edit distance between a and b with unit costs for
// insertion, deletion and substitution.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// similarText returns the classic similar_text ratio in [0,1]: twice the
// number of characters shared by recursively matched common runs, divided by
// the combined length.
//
// The recursion picks the first longest run, which makes the raw algorithm
// order-sensitive; arguments are put in a fixed order first so the ratio is
// the same whichever way round the names are passed.
func similarText(a, b string) float64 {
	if b < a {
		a, b = b, a
	}
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 0
	}
	return float64(similarChars(ra, rb)*2) / float64(total)
}

// similarChars counts common characters: the longest common run plus,
// recursively, the common characters left and right of it.
func similarChars(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	pos1, pos2, longest := 0, 0, 0
	for i := 0; i < len(a); i++ {
		for j := 0; j < len(b); j++ {
			k := 0
			for i+k < len(a) && j+k < len(b) && a[i+k] == b[j+k] {
				k++
			}
			if k > longest {
				pos1, pos2, longest = i, j, k
			}
		}
	}
	if longest == 0 {
		return 0
	}

	return longest +
		similarChars(a[:pos1], b[:pos2]) +
		similarChars(a[pos1+longest:], b[pos2+longest:])
}

// soundexCodes maps A..Z to their soundex digit; 0 marks letters that are
// dropped (vowels, H, W, Y).
var soundexCodes = [26]byte{
	0, '1', '2', '3', 0, '1', '2', 0, 0, '2', '2', '4', '5',
	'5', 0, '1', '2', '6', '2', '3', 0, '1', 0, '2', 0, '2',
}

// soundex returns the four-character English Soundex code of s. Non-letters
// are ignored; an empty input yields an empty code.
func soundex(s string) string {
	if s == "" {
		return ""
	}

	var code [4]byte
	n := 0
	var last byte
	for i := 0; i < len(s) && n < 4; i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if c < 'A' || c > 'Z' {
			continue
		}
		if n == 0 {
			code[n] = c
			n++
			last = soundexCodes[c-'A']
			continue
		}
		d := soundexCodes[c-'A']
		if d != last {
			if d != 0 {
				code[n] = d
				n++
			}
			last = d
		}
	}
	for ; n < 4; n++ {
		code[n] = '0'
	}

	return string(code[:])
}
