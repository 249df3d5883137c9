package structured

import (
	"fmt"
	"sort"
	"strings"
)

// NotFound is the sentinel returned when no key in a parsed mapping matches
// a requested field.
const NotFound = "Information not found in the context."

// Answer is the validated result of one generation. Fields missing from the
// model output carry the NotFound sentinel rather than being empty.
type Answer struct {
	Answer    string `json:"answer"`
	Sentiment string `json:"sentiment_classification"`
	Evidence  string `json:"key_evidence"`
}

// AnswerFromMap maps a parsed JSON object onto the Answer schema. Each field
// is resolved strictly by its canonical key first, then by fuzzy lookup, so
// model key-naming drift ("Sentiment Classification", "sentiment") still
// lands in the right field.
func AnswerFromMap(m map[string]any) Answer {
	return Answer{
		Answer:    resolveField(m, "answer", "answer"),
		Sentiment: resolveField(m, "sentiment_classification", "sentiment"),
		Evidence:  resolveField(m, "key_evidence", "evidence"),
	}
}

func resolveField(m map[string]any, canonicalKey, fuzzyName string) string {
	if v, ok := m[canonicalKey]; ok {
		return stringify(v)
	}
	return GetField(m, fuzzyName)
}

// GetField looks up a field by case-insensitive substring match over the
// mapping's keys. Multiple matching keys have their values joined by line
// breaks in key order; no match returns the NotFound sentinel.
func GetField(m map[string]any, field string) string {
	needle := strings.ToLower(field)

	var matched []string
	for key := range m {
		if strings.Contains(strings.ToLower(key), needle) {
			matched = append(matched, key)
		}
	}
	if len(matched) == 0 {
		return NotFound
	}
	sort.Strings(matched)

	values := make([]string, len(matched))
	for i, key := range matched {
		values[i] = stringify(m[key])
	}
	return strings.Join(values, "\n")
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Text serializes the answer for a human or a judge model to read.
func (a Answer) Text() string {
	var sb strings.Builder
	sb.WriteString("Answer: ")
	sb.WriteString(a.Answer)
	sb.WriteString("\n\nSentiment Classification: ")
	sb.WriteString(a.Sentiment)
	sb.WriteString("\n\nKey Evidence: ")
	sb.WriteString(a.Evidence)
	return sb.String()
}

// ParseAnswer parses model output and maps it onto the Answer schema.
func ParseAnswer(text string) (Answer, Outcome, error) {
	m, outcome, err := Parse(text)
	if err != nil {
		return Answer{}, 0, err
	}
	return AnswerFromMap(m), outcome, nil
}
