package ranking

import (
	"strings"
	"unicode"
)

// tokenize lowercases the input and splits it into runs of latin
// alphanumerics and runs of Hangul/Han characters. Keeping the CJK runs as
// tokens is what lets the lexical signal catch department names and article
// numbers that the embedding space under-weights.
func tokenize(s string) []string {
	if s == "" {
		return nil
	}

	const (
		classNone = iota
		classAlnum
		classCJK
	)
	classify := func(r rune) int {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			return classAlnum
		case unicode.Is(unicode.Hangul, r) || unicode.Is(unicode.Han, r):
			return classCJK
		default:
			return classNone
		}
	}

	tokens := make([]string, 0, 24)
	var b strings.Builder
	current := classNone
	flush := func() {
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	for _, r := range s {
		r = unicode.ToLower(r)
		class := classify(r)
		if class == classNone {
			flush()
			current = classNone
			continue
		}
		if class != current {
			flush()
			current = class
		}
		b.WriteRune(r)
	}
	flush()
	return tokens
}

// runePrefix returns the first n runes of s. Comparing bounded prefixes
// keeps the diversity pass cheap on long chunk texts without cutting a
// multi-byte rune in half.
func runePrefix(s string, n int) string {
	if n <= 0 {
		return ""
	}
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}

func termFrequencies(tokens []string) map[string]float64 {
	out := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		out[token]++
	}
	return out
}
