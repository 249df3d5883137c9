// Package eval wires the retrieval experiment sweep CLI.
package eval

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/fedscope/fedscope/internal/pkg/chunker"
	"github.com/fedscope/fedscope/internal/pkg/experiment"
	llmopts "github.com/fedscope/fedscope/pkg/options/llm"
	logopts "github.com/fedscope/fedscope/pkg/options/logger"
	milvusopts "github.com/fedscope/fedscope/pkg/options/milvus"
)

// Options contains all evaluation options.
type Options struct {
	// Collections restricts the sweep to the named collections. Empty
	// means every decodable collection in the store.
	Collections []string `json:"collections" mapstructure:"collections"`

	// KValues are the retrieval depths to cross with each collection.
	KValues []int `json:"k-values" mapstructure:"k-values"`

	// TrackerDSN is the SQLite file holding run records.
	TrackerDSN string `json:"tracker-dsn" mapstructure:"tracker-dsn"`

	// ArtifactDir receives the per-query answer artifacts. Empty disables
	// artifact files.
	ArtifactDir string `json:"artifact-dir" mapstructure:"artifact-dir"`

	// PacingFloor is the minimum spacing between query invocations.
	PacingFloor time.Duration `json:"pacing-floor" mapstructure:"pacing-floor"`

	// Log contains logger configuration.
	Log *logopts.Options `json:"log" mapstructure:"log"`

	// Milvus contains Milvus connection configuration.
	Milvus *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// Embedding configures the query embedding model.
	Embedding *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// Chat configures the answering model.
	Chat *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`

	// Judge configures the scoring model.
	Judge *llmopts.ProviderOptions `json:"judge" mapstructure:"judge"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		KValues:     experiment.DefaultKValues,
		TrackerDSN:  "fedscope_runs.db",
		ArtifactDir: "artifacts",
		PacingFloor: experiment.DefaultPacingFloor,
		Log:         logopts.NewOptions(),
		Milvus:      milvusopts.NewOptions(),
		Embedding:   llmopts.NewEmbeddingOptions(),
		Chat:        llmopts.NewChatOptions(),
		Judge:       llmopts.NewJudgeOptions(),
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringSliceVar(&o.Collections, "collections", o.Collections, "Collections to evaluate; empty evaluates every decodable collection.")
	fs.IntSliceVar(&o.KValues, "k-values", o.KValues, "Retrieval depths to cross with each collection.")
	fs.StringVar(&o.TrackerDSN, "tracker-dsn", o.TrackerDSN, "SQLite file holding run records.")
	fs.StringVar(&o.ArtifactDir, "artifact-dir", o.ArtifactDir, "Directory for per-query answer artifacts; empty disables them.")
	fs.DurationVar(&o.PacingFloor, "pacing-floor", o.PacingFloor, "Minimum spacing between query invocations; negative disables pacing.")
	o.Log.AddFlags(fs)
	o.Milvus.AddFlags(fs)
	o.Embedding.AddFlags(fs, "embedding")
	o.Chat.AddFlags(fs, "chat")
	o.Judge.AddFlags(fs, "judge")
}

// Validate validates the options.
func (o *Options) Validate() error {
	if len(o.KValues) == 0 {
		return fmt.Errorf("k-values is required")
	}
	for _, k := range o.KValues {
		if k <= 0 {
			return fmt.Errorf("k-values must be positive, got %d", k)
		}
	}
	if o.TrackerDSN == "" {
		return fmt.Errorf("tracker-dsn is required")
	}
	for _, name := range o.Collections {
		if _, err := chunker.ParseCollectionName(name); err != nil {
			return err
		}
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
	if errs := o.Judge.Validate(); len(errs) > 0 {
		return errors.Join(errs...)
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
	if err := o.Chat.Complete(); err != nil {
		return err
	}
	return o.Judge.Complete()
}
