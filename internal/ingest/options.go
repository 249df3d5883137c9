// Package ingest wires the transcript ingestion CLI.
package ingest

import (
	"errors"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/fedscope/fedscope/internal/pkg/chunker"
	llmopts "github.com/fedscope/fedscope/pkg/options/llm"
	logopts "github.com/fedscope/fedscope/pkg/options/logger"
	milvusopts "github.com/fedscope/fedscope/pkg/options/milvus"
)

// Options contains all ingestion options.
type Options struct {
	// DataDir holds the cleaned transcript JSON documents.
	DataDir string `json:"data-dir" mapstructure:"data-dir"`

	// Recreate drops each target collection before ingesting. This is the
	// recovery path for partially ingested collections.
	Recreate bool `json:"recreate" mapstructure:"recreate"`

	// ChunkSizes are the recursive chunk sizes to build.
	ChunkSizes []int `json:"chunk-sizes" mapstructure:"chunk-sizes"`

	// OverlapPercents are the recursive overlap percentages to build.
	OverlapPercents []int `json:"overlap-percents" mapstructure:"overlap-percents"`

	// Percentiles are the semantic breakpoint percentiles to build.
	Percentiles []float64 `json:"percentiles" mapstructure:"percentiles"`

	// MinChunkSize is the semantic undersized-chunk merge floor.
	MinChunkSize int `json:"min-chunk-size" mapstructure:"min-chunk-size"`

	// Log contains logger configuration.
	Log *logopts.Options `json:"log" mapstructure:"log"`

	// Milvus contains Milvus connection configuration.
	Milvus *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// Embedding configures the retrieval-index embedding model.
	Embedding *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// ChunkEmbedding configures the cheaper embedding model used only for
	// semantic boundary detection.
	ChunkEmbedding *llmopts.ProviderOptions `json:"chunk-embedding" mapstructure:"chunk-embedding"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		DataDir:         "data/transcripts",
		ChunkSizes:      chunker.DefaultChunkSizes,
		OverlapPercents: chunker.DefaultOverlapPercents,
		Percentiles:     chunker.DefaultPercentiles,
		MinChunkSize:    chunker.DefaultMinChunkSize,
		Log:             logopts.NewOptions(),
		Milvus:          milvusopts.NewOptions(),
		Embedding:       llmopts.NewEmbeddingOptions(),
		ChunkEmbedding:  llmopts.NewChunkEmbeddingOptions(),
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.DataDir, "data-dir", o.DataDir, "Directory of cleaned transcript JSON documents.")
	fs.BoolVar(&o.Recreate, "recreate", o.Recreate, "Drop target collections before ingesting.")
	fs.IntSliceVar(&o.ChunkSizes, "chunk-sizes", o.ChunkSizes, "Recursive chunk sizes to build.")
	fs.IntSliceVar(&o.OverlapPercents, "overlap-percents", o.OverlapPercents, "Recursive overlap percentages to build.")
	fs.Float64SliceVar(&o.Percentiles, "percentiles", o.Percentiles, "Semantic breakpoint percentiles to build.")
	fs.IntVar(&o.MinChunkSize, "min-chunk-size", o.MinChunkSize, "Semantic undersized-chunk merge floor.")
	o.Log.AddFlags(fs)
	o.Milvus.AddFlags(fs)
	o.Embedding.AddFlags(fs, "embedding")
	o.ChunkEmbedding.AddFlags(fs, "chunk-embedding")
}

// Validate validates the options.
func (o *Options) Validate() error {
	if o.DataDir == "" {
		return fmt.Errorf("data-dir is required")
	}
	if len(o.ChunkSizes)+len(o.Percentiles) == 0 {
		return fmt.Errorf("nothing to ingest: no chunk sizes and no percentiles")
	}
	if len(o.ChunkSizes) > 0 && len(o.OverlapPercents) == 0 {
		return fmt.Errorf("overlap-percents is required with chunk-sizes")
	}
	if err := o.Log.Validate(); err != nil {
		return err
	}
	if errs := o.Milvus.Validate(); len(errs) > 0 {
		return errors.Join(errs...)
	}
	if errs := o.Embedding.Validate(); len(errs) > 0 {
		return errors.Join(errs...)
	}
	if len(o.Percentiles) > 0 {
		if errs := o.ChunkEmbedding.Validate(); len(errs) > 0 {
			return errors.Join(errs...)
		}
	}

	for _, params := range o.Grid() {
		if err := params.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Complete completes the options with defaults.
func (o *Options) Complete() error {
	if err := o.Log.Complete(); err != nil {
		return err
	}
	if err := o.Embedding.Complete(); err != nil {
		return err
	}
	return o.ChunkEmbedding.Complete()
}

// Grid builds the chunking configurations selected by the options.
func (o *Options) Grid() []chunker.Params {
	return chunker.Grid(o.ChunkSizes, o.OverlapPercents, o.Percentiles, o.MinChunkSize)
}
