// Package experiment runs the retrieval-parameter sweep: every collection
// crossed with every retrieval depth, three canonical queries each, scored
// by the judge and persisted through a Tracker.
package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/logger"
	"golang.org/x/time/rate"

	"github.com/fedscope/fedscope/internal/fedscope/biz"
	"github.com/fedscope/fedscope/internal/pkg/chunker"
	"github.com/fedscope/fedscope/internal/pkg/judge"
	"github.com/fedscope/fedscope/internal/pkg/structured"
)

// DefaultPacingFloor is the minimum wall-clock spacing between query
// invocations, sized for free-tier model rate limits.
const DefaultPacingFloor = 61 * time.Second

// Per-query statuses. A failed query never aborts the sweep; its status and
// error are recorded and the run continues.
const (
	QueryStatusSuccess          = "success"
	QueryStatusGenerationFailed = "generation_failed"
	QueryStatusScoringFailed    = "scoring_failed"
)

// Analyzer generates one answer. Satisfied by *biz.Analyst.
type Analyzer interface {
	Analyze(ctx context.Context, question string) (*biz.QueryResult, error)
}

// AnalyzerFactory builds an analyzer for one (collection, k) configuration.
type AnalyzerFactory func(collection string, k int) (Analyzer, error)

// QueryScorer scores one answer against a rubric. Satisfied by *judge.Scorer.
type QueryScorer interface {
	Score(ctx context.Context, answer structured.Answer, queryID judge.QueryID) (judge.Verdict, int, structured.Outcome, error)
}

// Config holds the sweep configuration.
type Config struct {
	// Collections to evaluate. Each must decode with the collection-name
	// codec.
	Collections []string

	// KValues are the retrieval depths to cross with each collection.
	KValues []int

	// Queries default to CanonicalQueries.
	Queries []CanonicalQuery

	// PacingFloor is the minimum spacing between query invocations.
	// Zero selects DefaultPacingFloor; a negative value disables pacing.
	PacingFloor time.Duration
}

// QueryOutcome is the recorded result of one query in one run.
type QueryOutcome struct {
	QueryID      judge.QueryID      `json:"query_id"`
	Question     string             `json:"question"`
	Status       string             `json:"status"`
	Error        string             `json:"error,omitempty"`
	Answer       *structured.Answer `json:"answer,omitempty"`
	ParseOutcome string             `json:"parse_outcome,omitempty"`
	Verdict      judge.Verdict      `json:"verdict,omitempty"`
	Score        int                `json:"score"`
	Elapsed      time.Duration      `json:"elapsed_ns"`
}

// RunSummary summarizes one completed run.
type RunSummary struct {
	RunID        string         `json:"run_id"`
	Name         string         `json:"name"`
	Collection   string         `json:"collection"`
	K            int            `json:"k"`
	OverallScore int            `json:"overall_score"`
	Queries      []QueryOutcome `json:"queries"`
}

// Runner executes the sweep strictly sequentially.
type Runner struct {
	factory AnalyzerFactory
	scorer  QueryScorer
	tracker Tracker
	config  Config
	limiter *rate.Limiter
}

// NewRunner creates a runner. The factory is invoked once per run.
func NewRunner(factory AnalyzerFactory, scorer QueryScorer, tracker Tracker, config Config) (*Runner, error) {
	if len(config.Collections) == 0 {
		return nil, fmt.Errorf("experiment: no collections to evaluate")
	}
	for _, name := range config.Collections {
		if _, err := chunker.ParseCollectionName(name); err != nil {
			return nil, fmt.Errorf("experiment: undecodable collection name: %w", err)
		}
	}
	if len(config.KValues) == 0 {
		config.KValues = DefaultKValues
	}
	if len(config.Queries) == 0 {
		config.Queries = CanonicalQueries
	}
	if config.PacingFloor == 0 {
		config.PacingFloor = DefaultPacingFloor
	}

	var limiter *rate.Limiter
	if config.PacingFloor > 0 {
		limiter = rate.NewLimiter(rate.Every(config.PacingFloor), 1)
	}

	return &Runner{
		factory: factory,
		scorer:  scorer,
		tracker: tracker,
		config:  config,
		limiter: limiter,
	}, nil
}

// Run executes every (collection, k) combination. A context error aborts
// the sweep; any other failure is confined to its run or query.
func (r *Runner) Run(ctx context.Context) ([]RunSummary, error) {
	summaries := make([]RunSummary, 0, len(r.config.Collections)*len(r.config.KValues))

	for _, collection := range r.config.Collections {
		for _, k := range r.config.KValues {
			summary, err := r.runOne(ctx, collection, k)
			if err != nil {
				return summaries, err
			}
			summaries = append(summaries, *summary)
		}
	}

	return summaries, nil
}

func (r *Runner) runOne(ctx context.Context, collection string, k int) (*RunSummary, error) {
	runName := fmt.Sprintf("%s_k-%d", collection, k)
	logger.Infow("starting experiment run", "run", runName)

	params, err := chunker.ParseCollectionName(collection)
	if err != nil {
		return nil, fmt.Errorf("experiment: decoding collection %q: %w", collection, err)
	}

	runID, err := r.tracker.StartRun(ctx, runName, runParams(params, k))
	if err != nil {
		return nil, err
	}

	analyzer, err := r.factory(collection, k)
	if err != nil {
		_ = r.tracker.FinishRun(ctx, runID, RunStatusFailed)
		return nil, fmt.Errorf("experiment: building analyzer for %q: %w", runName, err)
	}

	summary := &RunSummary{
		RunID:      runID,
		Name:       runName,
		Collection: collection,
		K:          k,
	}

	for _, query := range r.config.Queries {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				_ = r.tracker.FinishRun(ctx, runID, RunStatusFailed)
				return nil, fmt.Errorf("experiment: pacing interrupted: %w", err)
			}
		}

		outcome := r.runQuery(ctx, analyzer, query)
		summary.OverallScore += outcome.Score
		summary.Queries = append(summary.Queries, outcome)

		if ctx.Err() != nil {
			_ = r.tracker.FinishRun(ctx, runID, RunStatusFailed)
			return nil, fmt.Errorf("experiment: sweep interrupted: %w", ctx.Err())
		}

		artifactName := fmt.Sprintf("answer_query_%s.json", query.ID)
		if err := r.tracker.LogArtifact(ctx, runID, artifactName, outcome); err != nil {
			logger.Warnw("failed to write query artifact",
				"run", runName,
				"query", string(query.ID),
				"error", err.Error(),
			)
		}

		r.logQueryMetrics(ctx, runID, runName, outcome)
	}

	if err := r.tracker.LogMetric(ctx, runID, "overall_score", float64(summary.OverallScore)); err != nil {
		_ = r.tracker.FinishRun(ctx, runID, RunStatusFailed)
		return nil, err
	}
	if err := r.tracker.FinishRun(ctx, runID, RunStatusFinished); err != nil {
		return nil, err
	}

	logger.Infow("experiment run finished",
		"run", runName,
		"overall_score", summary.OverallScore,
	)
	return summary, nil
}

// logQueryMetrics records one 0/1 metric per verdict criterion plus the
// query's score. Metric write failures degrade the run record, not the
// sweep: the verdict also survives in the query artifact.
func (r *Runner) logQueryMetrics(ctx context.Context, runID, runName string, outcome QueryOutcome) {
	if outcome.Status != QueryStatusSuccess {
		return
	}

	for criterion, value := range outcome.Verdict {
		metric := 0.0
		if judge.Truthy(value) {
			metric = 1.0
		}
		key := fmt.Sprintf("%s_%s", outcome.QueryID, criterion)
		if err := r.tracker.LogMetric(ctx, runID, key, metric); err != nil {
			logger.Warnw("failed to log criterion metric",
				"run", runName,
				"metric", key,
				"error", err.Error(),
			)
		}
	}

	scoreKey := fmt.Sprintf("%s_score", outcome.QueryID)
	if err := r.tracker.LogMetric(ctx, runID, scoreKey, float64(outcome.Score)); err != nil {
		logger.Warnw("failed to log query score metric",
			"run", runName,
			"metric", scoreKey,
			"error", err.Error(),
		)
	}
}

func (r *Runner) runQuery(ctx context.Context, analyzer Analyzer, query CanonicalQuery) QueryOutcome {
	outcome := QueryOutcome{
		QueryID:  query.ID,
		Question: query.Question,
	}

	start := time.Now()
	result, err := analyzer.Analyze(ctx, query.Question)
	outcome.Elapsed = time.Since(start)
	if err != nil {
		logger.Warnw("answer generation failed",
			"query", string(query.ID),
			"error", err.Error(),
		)
		outcome.Status = QueryStatusGenerationFailed
		outcome.Error = err.Error()
		return outcome
	}

	answer := structured.Answer{
		Answer:    result.Analysis.Answer,
		Sentiment: result.Analysis.Sentiment,
		Evidence:  result.Analysis.Evidence,
	}
	outcome.Answer = &answer
	outcome.ParseOutcome = result.ParseOutcome.String()

	verdict, score, _, err := r.scorer.Score(ctx, answer, query.ID)
	if err != nil {
		logger.Warnw("judge scoring failed",
			"query", string(query.ID),
			"error", err.Error(),
		)
		outcome.Status = QueryStatusScoringFailed
		outcome.Error = err.Error()
		return outcome
	}

	outcome.Status = QueryStatusSuccess
	outcome.Verdict = verdict
	outcome.Score = score
	return outcome
}

func runParams(params chunker.Params, k int) map[string]string {
	out := map[string]string{
		"method": string(params.Method),
		"k":      fmt.Sprintf("%d", k),
	}
	switch params.Method {
	case chunker.MethodSemantic:
		out["percentile"] = fmt.Sprintf("%g", params.Percentile)
		out["min_chunk_size"] = fmt.Sprintf("%d", params.MinChunkSize)
	default:
		out["chunk_size"] = fmt.Sprintf("%d", params.ChunkSize)
		out["overlap_percent"] = fmt.Sprintf("%d", params.OverlapPercent)
	}
	return out
}
