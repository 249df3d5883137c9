// Package structured parses model-generated text into validated records.
// Models are instructed to emit bare JSON, but the instruction is not a
// guarantee: output may arrive wrapped in code fences, prose, or with small
// syntax defects. Parsing is a two-stage contract: strict first, then a
// tolerant repair pass, with the engaged path observable to callers.
package structured

import (
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/fedscope/fedscope/pkg/utils/json"
)

// Outcome records which parse path succeeded.
type Outcome int

const (
	// OutcomeStrict means the text parsed as-is (after fence stripping).
	OutcomeStrict Outcome = iota
	// OutcomeRepaired means the repair pass had to fix the text first.
	OutcomeRepaired
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStrict:
		return "strict"
	case OutcomeRepaired:
		return "repaired"
	default:
		return "unknown"
	}
}

// ParseError is model output that could not be recovered as structured data
// even after tolerant repair. Raw carries the original text for diagnosis.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("structured: unparseable model output: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse extracts a JSON object from model output. Fence stripping happens
// before the strict attempt, so fenced-but-valid JSON reports OutcomeStrict:
// removing a markdown wrapper is unwrapping, not repair. The repair pass and
// OutcomeRepaired are reserved for actual syntax defects (trailing commas,
// unbalanced quotes or braces). A *ParseError is returned only when both
// passes fail; retrying is the caller's decision.
func Parse(text string) (map[string]any, Outcome, error) {
	stripped := stripFences(text)

	var result map[string]any
	if err := json.Unmarshal([]byte(stripped), &result); err == nil {
		return result, OutcomeStrict, nil
	}

	repaired, err := jsonrepair.JSONRepair(stripped)
	if err != nil {
		return nil, 0, &ParseError{Raw: text, Err: err}
	}
	if err := json.Unmarshal([]byte(repaired), &result); err != nil {
		return nil, 0, &ParseError{Raw: text, Err: err}
	}
	return result, OutcomeRepaired, nil
}

// stripFences removes a surrounding markdown code fence and any prose around
// the outermost JSON object.
func stripFences(text string) string {
	s := strings.TrimSpace(text)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	// Trim prose before the first brace and after the last one.
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}

	return s
}
