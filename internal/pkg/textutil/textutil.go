// Package textutil provides text and vector helpers shared by the chunking
// and retrieval layers.
package textutil

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// CosineSimilarity computes the cosine similarity of two vectors.
// The result is in [-1, 1]; mismatched or empty vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// TruncateString truncates a string to at most maxLen Unicode characters.
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen])
}

var sentenceEndRegex = regexp.MustCompile(`([.!?])\s+`)

// SplitSentences splits text into sentences on terminal punctuation followed
// by whitespace. Punctuation stays attached to its sentence. Transcript text
// is prose, so this heuristic holds up well enough for breakpoint detection.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	marked := sentenceEndRegex.ReplaceAllString(text, "$1\x00")
	parts := strings.Split(marked, "\x00")

	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}

// FlattenNewlines replaces every line break in s with a single space.
func FlattenNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\r", " ")
}

// Percentile computes the p-th percentile of values using linear
// interpolation between closest ranks. p is in [0, 100].
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}

	frac := rank - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}
