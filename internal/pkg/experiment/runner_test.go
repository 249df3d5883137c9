package experiment

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fedscope/fedscope/internal/fedscope/biz"
	"github.com/fedscope/fedscope/internal/model"
	"github.com/fedscope/fedscope/internal/pkg/judge"
	"github.com/fedscope/fedscope/internal/pkg/structured"
)

type fakeAnalyzer struct {
	collection string
	k          int
	err        error
	calls      int
}

func (f *fakeAnalyzer) Analyze(_ context.Context, question string) (*biz.QueryResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &biz.QueryResult{
		Analysis: model.Analysis{
			Sentiment: "Neutral",
			Answer:    "answer to: " + question,
			Evidence:  "evidence",
		},
		ParseOutcome: structured.OutcomeStrict,
		Retrieved:    f.k,
	}, nil
}

type fakeScorer struct {
	score   int
	verdict judge.Verdict
	err     error
	calls   int
}

func (f *fakeScorer) Score(_ context.Context, _ structured.Answer, _ judge.QueryID) (judge.Verdict, int, structured.Outcome, error) {
	f.calls++
	if f.err != nil {
		return nil, 0, structured.OutcomeStrict, f.err
	}
	if f.verdict != nil {
		return f.verdict, f.score, structured.OutcomeStrict, nil
	}
	return judge.Verdict{"criterion": true}, f.score, structured.OutcomeStrict, nil
}

type recordingTracker struct {
	runs      []string
	params    []map[string]string
	metrics   map[string]float64
	artifacts map[string]any
	statuses  map[string]string
	nextID    int
}

func newRecordingTracker() *recordingTracker {
	return &recordingTracker{
		metrics:   map[string]float64{},
		artifacts: map[string]any{},
		statuses:  map[string]string{},
	}
}

func (r *recordingTracker) StartRun(_ context.Context, name string, params map[string]string) (string, error) {
	r.nextID++
	runID := fmt.Sprintf("run-%d", r.nextID)
	r.runs = append(r.runs, name)
	r.params = append(r.params, params)
	r.statuses[runID] = RunStatusRunning
	return runID, nil
}

func (r *recordingTracker) LogMetric(_ context.Context, runID, key string, value float64) error {
	r.metrics[runID+"/"+key] = value
	return nil
}

func (r *recordingTracker) LogArtifact(_ context.Context, runID, name string, payload any) error {
	r.artifacts[runID+"/"+name] = payload
	return nil
}

func (r *recordingTracker) FinishRun(_ context.Context, runID, status string) error {
	r.statuses[runID] = status
	return nil
}

func (r *recordingTracker) Close() error { return nil }

func newTestRunner(t *testing.T, scorer QueryScorer, tracker Tracker, config Config) *Runner {
	t.Helper()
	factory := func(collection string, k int) (Analyzer, error) {
		return &fakeAnalyzer{collection: collection, k: k}, nil
	}
	runner, err := NewRunner(factory, scorer, tracker, config)
	require.NoError(t, err)
	return runner
}

func sweepConfig(collections ...string) Config {
	return Config{
		Collections: collections,
		KValues:     []int{15, 30},
		PacingFloor: -1,
	}
}

func TestNewRunnerRejectsUndecodableCollection(t *testing.T) {
	factory := func(string, int) (Analyzer, error) { return &fakeAnalyzer{}, nil }
	_, err := NewRunner(factory, &fakeScorer{}, newRecordingTracker(), Config{
		Collections: []string{"not_a_collection_name"},
	})
	assert.Error(t, err)
}

func TestNewRunnerRejectsEmptySweep(t *testing.T) {
	factory := func(string, int) (Analyzer, error) { return &fakeAnalyzer{}, nil }
	_, err := NewRunner(factory, &fakeScorer{}, newRecordingTracker(), Config{})
	assert.Error(t, err)
}

func TestRunSweepsCollectionsAndKValues(t *testing.T) {
	tracker := newRecordingTracker()
	scorer := &fakeScorer{score: 2}
	runner := newTestRunner(t, scorer, tracker, sweepConfig(
		"Recursive_character_size-1500_overlap-15",
		"Semantic_chunker_97.5th_percentile",
	))

	summaries, err := runner.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, summaries, 4, "2 collections x 2 k values")
	assert.Equal(t, []string{
		"Recursive_character_size-1500_overlap-15_k-15",
		"Recursive_character_size-1500_overlap-15_k-30",
		"Semantic_chunker_97.5th_percentile_k-15",
		"Semantic_chunker_97.5th_percentile_k-30",
	}, tracker.runs)

	// 3 canonical queries, 2 points each.
	assert.Equal(t, 6, summaries[0].OverallScore)
	assert.Equal(t, 6.0, tracker.metrics["run-1/overall_score"])
	for _, status := range tracker.statuses {
		assert.Equal(t, RunStatusFinished, status)
	}
}

func TestRunLogsDecodedParams(t *testing.T) {
	tracker := newRecordingTracker()
	runner := newTestRunner(t, &fakeScorer{}, tracker, sweepConfig(
		"Recursive_character_size-500_overlap-10",
	))

	_, err := runner.Run(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, tracker.params)
	first := tracker.params[0]
	assert.Equal(t, "recursive_character", first["method"])
	assert.Equal(t, "500", first["chunk_size"])
	assert.Equal(t, "10", first["overlap_percent"])
	assert.Equal(t, "15", first["k"])
}

func TestRunWritesArtifactPerQuery(t *testing.T) {
	tracker := newRecordingTracker()
	runner := newTestRunner(t, &fakeScorer{score: 1}, tracker, Config{
		Collections: []string{"Recursive_character_size-1500_overlap-15"},
		KValues:     []int{15},
		PacingFloor: -1,
	})

	_, err := runner.Run(context.Background())
	require.NoError(t, err)

	for _, query := range CanonicalQueries {
		key := fmt.Sprintf("run-1/answer_query_%s.json", query.ID)
		payload, ok := tracker.artifacts[key]
		require.True(t, ok, "missing artifact for %s", query.ID)

		outcome, ok := payload.(QueryOutcome)
		require.True(t, ok)
		assert.Equal(t, QueryStatusSuccess, outcome.Status)
		assert.Equal(t, query.ID, outcome.QueryID)
	}
}

func TestRunLogsPerCriterionMetrics(t *testing.T) {
	tracker := newRecordingTracker()
	scorer := &fakeScorer{
		score: 2,
		verdict: judge.Verdict{
			"mentions_transitory": true,
			"mentions_early_2021": "True",
			"shifted":             false,
		},
	}
	runner := newTestRunner(t, scorer, tracker, Config{
		Collections: []string{"Recursive_character_size-1500_overlap-15"},
		KValues:     []int{15},
		PacingFloor: -1,
	})

	_, err := runner.Run(context.Background())
	require.NoError(t, err)

	for _, query := range CanonicalQueries {
		assert.Equal(t, 1.0, tracker.metrics[fmt.Sprintf("run-1/%s_mentions_transitory", query.ID)])
		assert.Equal(t, 1.0, tracker.metrics[fmt.Sprintf("run-1/%s_mentions_early_2021", query.ID)])

		shifted, ok := tracker.metrics[fmt.Sprintf("run-1/%s_shifted", query.ID)]
		require.True(t, ok, "false criteria are logged as 0, not omitted")
		assert.Equal(t, 0.0, shifted)

		assert.Equal(t, 2.0, tracker.metrics[fmt.Sprintf("run-1/%s_score", query.ID)])
	}
	assert.Equal(t, 6.0, tracker.metrics["run-1/overall_score"])
}

func TestRunNoMetricsForFailedQueries(t *testing.T) {
	tracker := newRecordingTracker()
	factory := func(collection string, k int) (Analyzer, error) {
		return &fakeAnalyzer{err: errors.New("model unavailable")}, nil
	}
	runner, err := NewRunner(factory, &fakeScorer{}, tracker, Config{
		Collections: []string{"Recursive_character_size-1500_overlap-15"},
		KValues:     []int{15},
		PacingFloor: -1,
	})
	require.NoError(t, err)

	_, err = runner.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, tracker.metrics, 1, "only overall_score for a run with no scored queries")
	assert.Equal(t, 0.0, tracker.metrics["run-1/overall_score"])
}

func TestRunGenerationFailureIsRecordedAndSweepContinues(t *testing.T) {
	tracker := newRecordingTracker()
	factory := func(collection string, k int) (Analyzer, error) {
		return &fakeAnalyzer{err: errors.New("model unavailable")}, nil
	}
	runner, err := NewRunner(factory, &fakeScorer{score: 3}, tracker, Config{
		Collections: []string{"Recursive_character_size-1500_overlap-15"},
		KValues:     []int{15},
		PacingFloor: -1,
	})
	require.NoError(t, err)

	summaries, err := runner.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, summaries, 1)
	assert.Zero(t, summaries[0].OverallScore)
	for _, outcome := range summaries[0].Queries {
		assert.Equal(t, QueryStatusGenerationFailed, outcome.Status)
		assert.Contains(t, outcome.Error, "model unavailable")
	}
	assert.Equal(t, RunStatusFinished, tracker.statuses["run-1"], "run still closes cleanly")
}

func TestRunScoringFailureIsRecordedAndSweepContinues(t *testing.T) {
	tracker := newRecordingTracker()
	scorer := &fakeScorer{err: errors.New("judge unreachable")}
	runner := newTestRunner(t, scorer, tracker, Config{
		Collections: []string{"Recursive_character_size-1500_overlap-15"},
		KValues:     []int{15},
		PacingFloor: -1,
	})

	summaries, err := runner.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, summaries, 1)
	for _, outcome := range summaries[0].Queries {
		assert.Equal(t, QueryStatusScoringFailed, outcome.Status)
		assert.NotNil(t, outcome.Answer, "the generated answer is still preserved")
	}
}

func TestRunAbortsOnCancelledContext(t *testing.T) {
	tracker := newRecordingTracker()
	runner := newTestRunner(t, &fakeScorer{}, tracker, sweepConfig(
		"Recursive_character_size-1500_overlap-15",
	))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx)
	assert.Error(t, err)
}
