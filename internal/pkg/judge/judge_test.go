package judge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fedscope/fedscope/internal/pkg/structured"
)

type scriptedJudge struct {
	response   string
	err        error
	gotPrompt  string
	gotSystem  string
	gotStop    []string
	timesAsked int
}

func (j *scriptedJudge) Generate(ctx context.Context, prompt, systemPrompt string, stop []string) (string, error) {
	j.timesAsked++
	j.gotPrompt = prompt
	j.gotSystem = systemPrompt
	j.gotStop = stop
	return j.response, j.err
}

func (j *scriptedJudge) Name() string { return "scripted" }

func sampleAnswer() structured.Answer {
	return structured.Answer{
		Answer:    "The term transitory was dropped in late 2021.",
		Sentiment: "Hawkish",
		Evidence:  "no longer think of it as transitory [Date: 2021-11-03 | Page: 7 of 22]",
	}
}

func TestRubricFor(t *testing.T) {
	for _, id := range []QueryID{QueryTransitory2021, QueryCrisisComparison, QueryRateDecision2025} {
		rubric, err := RubricFor(id)
		require.NoError(t, err)
		assert.Equal(t, id, rubric.ID)
		assert.NotEmpty(t, rubric.SystemPrompt)
		assert.NotEmpty(t, rubric.Criteria)
	}
}

func TestRubricFor_Unknown(t *testing.T) {
	_, err := RubricFor("made-up-query")

	var notFound *RubricNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, QueryID("made-up-query"), notFound.ID)
}

func TestVerdict_Score(t *testing.T) {
	tests := []struct {
		name    string
		verdict Verdict
		want    int
	}{
		{
			name:    "native booleans",
			verdict: Verdict{"a": true, "b": false, "c": true},
			want:    2,
		},
		{
			name:    "stringified booleans",
			verdict: Verdict{"a": "True", "b": "true", "c": "false"},
			want:    2,
		},
		{
			name:    "mixed types",
			verdict: Verdict{"a": true, "b": "True", "c": false},
			want:    2,
		},
		{
			name:    "empty verdict",
			verdict: Verdict{},
			want:    0,
		},
		{
			name:    "non-boolean values",
			verdict: Verdict{"a": 1, "b": "yes"},
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.verdict.Score())
		})
	}
}

func TestScorer_Score(t *testing.T) {
	model := &scriptedJudge{
		response: `{"mentions_transitory": true, "mentions_early_2021": true, "mentions_late_2021": "True", "shifted": false}`,
	}
	scorer := NewScorer(model)

	verdict, score, outcome, err := scorer.Score(context.Background(), sampleAnswer(), QueryTransitory2021)
	require.NoError(t, err)
	assert.Equal(t, 3, score)
	assert.Equal(t, structured.OutcomeStrict, outcome)
	assert.Len(t, verdict, 4)

	// The judge sees the rubric as system prompt and the answer in the
	// human turn, with the standard stop sequences.
	assert.Contains(t, model.gotSystem, "transitory")
	assert.Contains(t, model.gotPrompt, "The term transitory was dropped")
	assert.Contains(t, model.gotPrompt, "Sentiment Classification: Hawkish")
	assert.Equal(t, []string{"Human:", "System:"}, model.gotStop)
}

func TestScorer_Score_RepairedOutput(t *testing.T) {
	model := &scriptedJudge{
		response: "```json\n{\"mentions_2008_tone\": true, \"mentions_2020_tone\": true, \"provides_comparison\": true,}\n```",
	}
	scorer := NewScorer(model)

	_, score, outcome, err := scorer.Score(context.Background(), sampleAnswer(), QueryCrisisComparison)
	require.NoError(t, err)
	assert.Equal(t, 3, score)
	assert.Equal(t, structured.OutcomeRepaired, outcome)
}

func TestScorer_Score_UnknownQuery(t *testing.T) {
	model := &scriptedJudge{}
	scorer := NewScorer(model)

	_, _, _, err := scorer.Score(context.Background(), sampleAnswer(), "nope")

	var notFound *RubricNotFoundError
	assert.ErrorAs(t, err, &notFound)
	assert.Equal(t, 0, model.timesAsked, "model must not be invoked without a rubric")
}

func TestScorer_Score_ModelFailure(t *testing.T) {
	model := &scriptedJudge{err: errors.New("rate limited")}
	scorer := NewScorer(model)

	_, _, _, err := scorer.Score(context.Background(), sampleAnswer(), QueryRateDecision2025)
	assert.Error(t, err)
}

func TestScorer_Score_UnparseableVerdict(t *testing.T) {
	model := &scriptedJudge{response: "I cannot evaluate this answer"}
	scorer := NewScorer(model)

	_, _, _, err := scorer.Score(context.Background(), sampleAnswer(), QueryTransitory2021)

	var parseErr *structured.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestScorer_Score_IgnoresUndeclaredCriteria(t *testing.T) {
	model := &scriptedJudge{
		response: `{"mentions_transitory": true, "mentions_early_2021": false, "mentions_late_2021": false, "shifted": false, "overall_impression": true, "note": "great answer"}`,
	}
	scorer := NewScorer(model)

	verdict, score, _, err := scorer.Score(context.Background(), sampleAnswer(), QueryTransitory2021)
	require.NoError(t, err)

	assert.Equal(t, 1, score)
	assert.NotContains(t, verdict, "overall_impression")
	assert.NotContains(t, verdict, "note")
	assert.Len(t, verdict, 4)
}
