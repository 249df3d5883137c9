// Package fedscope wires the analysis HTTP service.
package fedscope

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/fedscope/fedscope/internal/fedscope/biz"
	llmopts "github.com/fedscope/fedscope/pkg/options/llm"
	logopts "github.com/fedscope/fedscope/pkg/options/logger"
	milvusopts "github.com/fedscope/fedscope/pkg/options/milvus"
)

// PipelineOptions holds the retrieval parameters of the answer pipeline.
type PipelineOptions struct {
	// Collection is the Milvus collection the service retrieves from.
	Collection string `json:"collection" mapstructure:"collection"`

	// K is the number of chunks placed in the model context.
	K int `json:"k" mapstructure:"k"`

	// FetchK is the candidate pool fetched before re-ranking.
	FetchK int `json:"fetch-k" mapstructure:"fetch-k"`

	// DiversityWeight trades relevance against diversity in [0, 1].
	DiversityWeight float64 `json:"diversity-weight" mapstructure:"diversity-weight"`
}

// NewPipelineOptions returns the production pipeline parameters.
func NewPipelineOptions() *PipelineOptions {
	config := biz.DefaultAnalystConfig()
	return &PipelineOptions{
		Collection:      config.Collection,
		K:               config.K,
		FetchK:          config.FetchK,
		DiversityWeight: config.DiversityWeight,
	}
}

// AddFlags adds pipeline flags to the flagset.
func (o *PipelineOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Collection, "pipeline.collection", o.Collection, "Milvus collection to retrieve from.")
	fs.IntVar(&o.K, "pipeline.k", o.K, "Number of chunks in the model context.")
	fs.IntVar(&o.FetchK, "pipeline.fetch-k", o.FetchK, "Candidate pool size before re-ranking.")
	fs.Float64Var(&o.DiversityWeight, "pipeline.diversity-weight", o.DiversityWeight, "Relevance/diversity trade-off in [0, 1].")
}

// AnalystConfig converts the options into the biz layer configuration.
func (o *PipelineOptions) AnalystConfig() *biz.AnalystConfig {
	return &biz.AnalystConfig{
		Collection:      o.Collection,
		K:               o.K,
		FetchK:          o.FetchK,
		DiversityWeight: o.DiversityWeight,
	}
}

// Options contains all analysis service options.
type Options struct {
	// HTTPAddr is the listen address of the HTTP server.
	HTTPAddr string `json:"http-addr" mapstructure:"http-addr"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`

	// Log contains logger configuration.
	Log *logopts.Options `json:"log" mapstructure:"log"`

	// Milvus contains Milvus connection configuration.
	Milvus *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// Embedding configures the retrieval-index embedding model.
	Embedding *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// Chat configures the answer model.
	Chat *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`

	// Pipeline contains the retrieval parameters.
	Pipeline *PipelineOptions `json:"pipeline" mapstructure:"pipeline"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		HTTPAddr:        ":8080",
		ShutdownTimeout: 10 * time.Second,
		Log:             logopts.NewOptions(),
		Milvus:          milvusopts.NewOptions(),
		Embedding:       llmopts.NewEmbeddingOptions(),
		Chat:            llmopts.NewChatOptions(),
		Pipeline:        NewPipelineOptions(),
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.HTTPAddr, "http-addr", o.HTTPAddr, "HTTP server listen address.")
	fs.DurationVar(&o.ShutdownTimeout, "shutdown-timeout", o.ShutdownTimeout, "Graceful shutdown timeout.")
	o.Log.AddFlags(fs)
	o.Milvus.AddFlags(fs)
	o.Embedding.AddFlags(fs, "embedding")
	o.Chat.AddFlags(fs, "chat")
	o.Pipeline.AddFlags(fs)
}

// Validate validates the options.
func (o *Options) Validate() error {
	if o.HTTPAddr == "" {
		return fmt.Errorf("http-addr is required")
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
	if errs := o.Chat.Validate(); len(errs) > 0 {
		return errors.Join(errs...)
	}
	return o.Pipeline.AnalystConfig().Validate()
}

// Complete completes the options with defaults.
func (o *Options) Complete() error {
	if err := o.Log.Complete(); err != nil {
		return err
	}
	if err := o.Embedding.Complete(); err != nil {
		return err
	}
	return o.Chat.Complete()
}
