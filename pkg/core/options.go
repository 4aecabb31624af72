package core

import (
	"go.uber.org/zap"

	"github.com/hypermem/hypermem-go/pkg/classify"
	"github.com/hypermem/hypermem-go/pkg/encoding"
	"github.com/hypermem/hypermem-go/pkg/storage"
)

// Option is a function type for configuring a Client at construction.
//
// Options are applied using the functional options pattern, allowing
// flexible configuration without requiring all parameters.
type Option func(*clientOptions)

// clientOptions collects construction-time overrides. Anything left nil
// falls back to the Config-driven default.
type clientOptions struct {
	store      storage.Store
	embedder   encoding.Embedder
	classifier classify.Classifier
	logger     *zap.Logger

	// noClassifier distinguishes "no override" from an explicit nil.
	noClassifier bool
}

// WithStore overrides the storage backend.
//
// The default is the adaptive store that scans brute force below 100 records
// and switches to the HNSW index above.
//
// Example:
//
//	client, _ := core.NewClient(config, core.WithStore(storage.NewBruteStore()))
func WithStore(store storage.Store) Option {
	return func(opts *clientOptions) {
		opts.store = store
	}
}

// WithEmbedder overrides the text embedder.
//
// The embedder's output width must match the configured EmbeddingDim.
// The default is the deterministic hash embedder, optionally chained with
// the OpenAI embedder when Config.OpenAI is set.
//
// Example:
//
//	client, _ := core.NewClient(config,
//	    core.WithEmbedder(encoding.NewHashEmbedder(384, 7)),
//	)
func WithEmbedder(embedder encoding.Embedder) Option {
	return func(opts *clientOptions) {
		opts.embedder = embedder
	}
}

// WithClassifier overrides the content classifier. Passing nil disables
// classification: records stay unlabeled and keep the flat wave defaults.
//
// The default is the keyword heuristic classifier.
func WithClassifier(classifier classify.Classifier) Option {
	return func(opts *clientOptions) {
		opts.classifier = classifier
		opts.noClassifier = classifier == nil
	}
}

// WithLogger attaches a structured logger to the client and its background
// consolidation work. The default is a no-op logger.
//
// Example:
//
//	logger, _ := zap.NewProduction()
//	client, _ := core.NewClient(config, core.WithLogger(logger))
func WithLogger(logger *zap.Logger) Option {
	return func(opts *clientOptions) {
		opts.logger = logger
	}
}

// applyOptions applies construction options over the defaults.
func applyOptions(opts []Option) *clientOptions {
	options := &clientOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
