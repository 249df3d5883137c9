// Package biz implements the analysis pipeline: retrieval over ingested
// transcripts followed by grounded, citation-backed answer generation.
package biz

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fedscope/fedscope/internal/fedscope/metrics"
	"github.com/fedscope/fedscope/internal/fedscope/store"
	"github.com/fedscope/fedscope/internal/model"
	"github.com/fedscope/fedscope/internal/pkg/prompt"
	"github.com/fedscope/fedscope/internal/pkg/structured"
	"github.com/fedscope/fedscope/pkg/llm"
)

// DefaultCollection is the production retrieval collection. The chunking
// sweep settled on 1500-character recursive chunks with 15% overlap.
const DefaultCollection = "Recursive_character_size-1500_overlap-15"

// AnalystConfig holds the retrieval parameters of the answer pipeline.
type AnalystConfig struct {
	Collection      string
	K               int
	FetchK          int
	DiversityWeight float64
}

// DefaultAnalystConfig returns the production pipeline parameters.
func DefaultAnalystConfig() *AnalystConfig {
	return &AnalystConfig{
		Collection:      DefaultCollection,
		K:               20,
		FetchK:          100,
		DiversityWeight: 0.7,
	}
}

// Validate checks the configuration.
func (c *AnalystConfig) Validate() error {
	if c.Collection == "" {
		return fmt.Errorf("biz: collection is empty")
	}
	if c.K <= 0 {
		return fmt.Errorf("biz: k must be positive, got %d", c.K)
	}
	if c.FetchK < c.K {
		return fmt.Errorf("biz: fetch_k %d must be at least k %d", c.FetchK, c.K)
	}
	if c.DiversityWeight < 0 || c.DiversityWeight > 1 {
		return fmt.Errorf("biz: diversity weight must be in [0, 1], got %g", c.DiversityWeight)
	}
	return nil
}

// GenerationError reports a model response that could not be parsed into an
// answer. Raw preserves the full model output for inspection.
type GenerationError struct {
	Raw string
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("biz: unparseable model response: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// QueryResult is the outcome of one analysis query.
type QueryResult struct {
	Analysis model.Analysis `json:"analysis"`

	// ParseOutcome records whether the model response parsed strictly or
	// needed the repair pass.
	ParseOutcome structured.Outcome `json:"parse_outcome"`

	// Retrieved is the number of chunks placed in the model context.
	Retrieved int `json:"retrieved"`

	Elapsed time.Duration `json:"elapsed"`
}

// Analyst answers questions over ingested press-conference transcripts.
type Analyst struct {
	store    store.VectorStore
	embedder llm.EmbeddingProvider
	chat     llm.ChatProvider
	config   *AnalystConfig
	metrics  *metrics.PipelineMetrics
}

// NewAnalyst creates an analyst. A nil config selects the production
// parameters.
func NewAnalyst(vectorStore store.VectorStore, embedder llm.EmbeddingProvider, chat llm.ChatProvider, config *AnalystConfig) (*Analyst, error) {
	if config == nil {
		config = DefaultAnalystConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Analyst{
		store:    vectorStore,
		embedder: embedder,
		chat:     chat,
		config:   config,
		metrics:  metrics.Get(),
	}, nil
}

// Analyze retrieves context for the question and generates a structured,
// citation-backed answer.
func (a *Analyst) Analyze(ctx context.Context, question string) (result *QueryResult, err error) {
	start := time.Now()
	defer func() {
		a.metrics.RecordQuery(err)
	}()

	ctx, span := otel.Tracer("fedscope/biz").Start(ctx, "analyst.Analyze")
	defer span.End()
	span.SetAttributes(
		attribute.String("collection", a.config.Collection),
		attribute.Int("k", a.config.K),
	)

	req := store.RetrievalRequest{
		Question:        question,
		K:               a.config.K,
		FetchK:          a.config.FetchK,
		DiversityWeight: a.config.DiversityWeight,
	}
	retrievalStart := time.Now()
	chunks, err := a.store.Retrieve(ctx, a.config.Collection, a.embedder, req)
	a.metrics.RecordRetrieval(time.Since(retrievalStart), err)
	if err != nil {
		return nil, fmt.Errorf("biz: retrieving context: %w", err)
	}

	if len(chunks) == 0 {
		logger.Warnw("no chunks retrieved, returning sentinel answer",
			"collection", a.config.Collection,
		)
		return &QueryResult{
			Analysis: model.Analysis{
				Sentiment: structured.NotFound,
				Answer:    structured.NotFound,
				Evidence:  structured.NotFound,
			},
			ParseOutcome: structured.OutcomeStrict,
			Elapsed:      time.Since(start),
		}, nil
	}

	contextText := prompt.FormatContext(chunks)
	answerPrompt := prompt.BuildAnswerPrompt(question, contextText)

	logger.Infow("generating answer",
		"collection", a.config.Collection,
		"chunks", len(chunks),
		"model", a.chat.Name(),
	)

	llmStart := time.Now()
	raw, err := a.chat.Generate(ctx, answerPrompt, prompt.AnalystSystemPrompt, prompt.StopSequences)
	a.metrics.RecordLLMCall(time.Since(llmStart), err)
	if err != nil {
		return nil, fmt.Errorf("biz: generating answer: %w", err)
	}

	answer, outcome, err := structured.ParseAnswer(raw)
	if err != nil {
		a.metrics.RecordParseError()
		return nil, &GenerationError{Raw: raw, Err: err}
	}
	if outcome == structured.OutcomeRepaired {
		a.metrics.RecordParseRepair()
		logger.Warnw("model response needed JSON repair", "model", a.chat.Name())
	}
	span.SetAttributes(
		attribute.Int("chunks", len(chunks)),
		attribute.String("parse_outcome", outcome.String()),
	)

	return &QueryResult{
		Analysis: model.Analysis{
			Sentiment: answer.Sentiment,
			Answer:    answer.Answer,
			Evidence:  answer.Evidence,
		},
		ParseOutcome: outcome,
		Retrieved:    len(chunks),
		Elapsed:      time.Since(start),
	}, nil
}

// Stats reports the collections visible to the analyst.
func (a *Analyst) Stats(ctx context.Context) ([]store.CollectionInfo, error) {
	return a.store.ListCollections(ctx)
}
