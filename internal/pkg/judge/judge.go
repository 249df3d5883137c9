// Package judge scores generated answers against per-query rubrics using an
// independent judge model.
package judge

import (
	"context"
	"fmt"
	"strings"

	"github.com/fedscope/fedscope/internal/pkg/prompt"
	"github.com/fedscope/fedscope/internal/pkg/structured"
	"github.com/fedscope/fedscope/pkg/llm"
)

// QueryID is a stable identifier for a canonical evaluation query. Rubrics
// are keyed by ID, not list position, so reordering the query set cannot
// silently mis-score.
type QueryID string

const (
	// QueryTransitory2021 asks how the "transitory" framing of inflation
	// evolved through 2021.
	QueryTransitory2021 QueryID = "transitory-2021"
	// QueryCrisisComparison asks to compare unemployment urgency post-2008
	// versus the 2020 pandemic onset.
	QueryCrisisComparison QueryID = "crisis-2008-vs-2020"
	// QueryRateDecision2025 asks for the December 2025 rate decision and the
	// description of federal data availability.
	QueryRateDecision2025 QueryID = "rate-decision-2025"
)

// Rubric is a boolean checklist for one known query.
type Rubric struct {
	ID           QueryID
	SystemPrompt string
	Criteria     []string
}

// RubricNotFoundError marks a lookup with an unknown query ID. Only the
// fixed canonical queries have rubrics; anything else is a programming
// error at the call site.
type RubricNotFoundError struct {
	ID QueryID
}

func (e *RubricNotFoundError) Error() string {
	return fmt.Sprintf("judge: no rubric for query %q", e.ID)
}

var rubrics = map[QueryID]Rubric{
	QueryTransitory2021: {
		ID:           QueryTransitory2021,
		SystemPrompt: transitoryRubricPrompt,
		Criteria:     []string{"mentions_transitory", "mentions_early_2021", "mentions_late_2021", "shifted"},
	},
	QueryCrisisComparison: {
		ID:           QueryCrisisComparison,
		SystemPrompt: crisisRubricPrompt,
		Criteria:     []string{"mentions_2008_tone", "mentions_2020_tone", "provides_comparison"},
	},
	QueryRateDecision2025: {
		ID:           QueryRateDecision2025,
		SystemPrompt: hallucinationRubricPrompt,
		Criteria:     []string{"interest_rate_match", "data_availability_match", "hallucination_detected"},
	},
}

// RubricFor returns the rubric for a query ID.
func RubricFor(id QueryID) (Rubric, error) {
	rubric, ok := rubrics[id]
	if !ok {
		return Rubric{}, &RubricNotFoundError{ID: id}
	}
	return rubric, nil
}

// Verdict is the judge model's parsed criteria mapping, restricted to the
// rubric's declared criteria. Criteria the judge omitted are simply absent,
// never defaulted.
type Verdict map[string]any

// Truthy reports whether a criterion value stringifies, case-insensitively,
// to "true". The judge model may emit native booleans, "True", or the word
// inside a string; all count the same.
func Truthy(value any) bool {
	return strings.EqualFold(fmt.Sprint(value), "true")
}

// Score counts the truthy criteria.
func (v Verdict) Score() int {
	score := 0
	for _, value := range v {
		if Truthy(value) {
			score++
		}
	}
	return score
}

// Scorer evaluates generated answers with a judge model.
type Scorer struct {
	judge llm.ChatProvider
}

// NewScorer creates a Scorer backed by the given judge model.
func NewScorer(judge llm.ChatProvider) *Scorer {
	return &Scorer{judge: judge}
}

// Score runs the rubric for queryID against the answer and reduces the
// verdict to an integer. The parse outcome is returned so callers can track
// how often the repair pass engages on judge output.
func (s *Scorer) Score(ctx context.Context, answer structured.Answer, queryID QueryID) (Verdict, int, structured.Outcome, error) {
	rubric, err := RubricFor(queryID)
	if err != nil {
		return nil, 0, 0, err
	}

	raw, err := s.judge.Generate(ctx, buildJudgePrompt(answer), rubric.SystemPrompt, prompt.StopSequences)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("judge: model invocation for %s: %w", queryID, err)
	}

	parsed, outcome, err := structured.Parse(raw)
	if err != nil {
		return nil, 0, 0, err
	}

	// Keep only declared criteria: a chatty judge emitting extra keys must
	// not inflate the score.
	verdict := make(Verdict, len(rubric.Criteria))
	for _, criterion := range rubric.Criteria {
		if value, ok := parsed[criterion]; ok {
			verdict[criterion] = value
		}
	}

	return verdict, verdict.Score(), outcome, nil
}

func buildJudgePrompt(answer structured.Answer) string {
	var sb strings.Builder
	sb.WriteString("### GENERATED ANSWER TO EVALUATE:\n")
	sb.WriteString(answer.Text())
	sb.WriteString("\n\n### ANSWER FORMAT\n")
	sb.WriteString("Return a valid JSON object matching the structure in your instructions.\n\n")
	sb.WriteString("Do not add any markdown formatting (like ```json) or conversational text outside the JSON object.\n")
	return sb.String()
}
