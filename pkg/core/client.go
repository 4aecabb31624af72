package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/hypermem/hypermem-go/pkg/classify"
	"github.com/hypermem/hypermem-go/pkg/codebook"
	"github.com/hypermem/hypermem-go/pkg/consolidation"
	"github.com/hypermem/hypermem-go/pkg/encoding"
	"github.com/hypermem/hypermem-go/pkg/engine"
	"github.com/hypermem/hypermem-go/pkg/integration"
	"github.com/hypermem/hypermem-go/pkg/kuramoto"
	"github.com/hypermem/hypermem-go/pkg/memory"
	"github.com/hypermem/hypermem-go/pkg/persistence"
	"github.com/hypermem/hypermem-go/pkg/storage"
)

// Client is the main hypermem client for associative memory management.
//
// It provides a complete interface over the hypervector memory engine:
//   - Wave-modulated similarity recall with graph expansion
//   - Interference-driven consolidation (dreaming)
//   - Kuramoto phase synchronization and cluster detection
//   - Integration metrics and health reporting
//   - SQLite snapshot persistence
//
// The client is thread-safe and can be used concurrently from multiple
// goroutines; internally a single writer is serialized over the engine.
//
// Example usage:
//
//	config := core.DefaultConfig()
//	config.SnapshotPath = "./memories.db"
//	client, _ := core.NewClient(config)
//	defer client.Close()
//
//	m, _ := client.Remember(ctx, "the cat sat on the mat")
//	results, _ := client.Recall(ctx, "where did the cat sit?", 5)
type Client struct {
	// config contains the client configuration.
	config *Config

	// store is the storage backend owning all records.
	store storage.Store

	// eng orchestrates encode, insert, wiring, and recall.
	eng *engine.Engine

	// pipeline encodes text into hypervector records.
	pipeline *encoding.Pipeline

	// audioPipeline encodes audio feature vectors through a codebook seeded
	// apart from the text codebook, keeping the two modalities
	// near-orthogonal.
	audioPipeline *encoding.Pipeline

	// dreamer drives multi-cycle consolidation.
	dreamer *consolidation.Dreamer

	// assessor computes the integration metrics.
	assessor *integration.Assessor

	// logger receives structured operational events.
	logger *zap.Logger

	// consolidations counts dream cycles run over the client's lifetime,
	// carried into snapshot metadata.
	consolidations uint64

	// audioSeq numbers audio ingestions for their content tags.
	audioSeq uint64

	// mu protects concurrent access to the client.
	mu sync.RWMutex
}

// NewClient creates a new hypermem client.
//
// The client is initialized with:
//   - A seeded projection codebook (plus a second, offset-seeded codebook
//     for audio features)
//   - The text embedder (local hash embedder by default; when Config.OpenAI
//     is set, the remote embedder with hash fallback and a bounded cache)
//   - The storage backend (adaptive brute-force/HNSW store by default)
//   - The keyword heuristic classifier, consolidation engine, and
//     integration assessor
//
// Parameters:
//   - cfg: Configuration containing geometry, embedder, and tuning settings
//   - opts: Optional overrides (WithStore, WithEmbedder, WithLogger, ...)
//
// Returns a new Client instance, or an error if initialization fails.
//
// Example:
//
//	config := core.DefaultConfig()
//	client, err := core.NewClient(config,
//	    core.WithLogger(logger),
//	)
func NewClient(cfg *Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	options := applyOptions(opts)

	logger := options.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, NewMemoryError("NewClient", err)
	}

	embedder := options.embedder
	if embedder == nil {
		embedder, err = buildEmbedder(cfg, logger)
		if err != nil {
			return nil, err
		}
	}

	var classifier classify.Classifier
	if options.noClassifier {
		classifier = nil
	} else if options.classifier != nil {
		classifier = options.classifier
	} else {
		classifier = classify.NewHeuristic()
	}

	textBook := codebook.New(cfg.EmbeddingDim, cfg.Dimensions, cfg.Seed)
	audioBook := codebook.New(cfg.EmbeddingDim, cfg.Dimensions, cfg.Seed+1)

	pipeline, err := encoding.NewPipeline(textBook, embedder, classifier, node)
	if err != nil {
		return nil, NewMemoryError("NewClient", err)
	}
	audioPipeline, err := encoding.NewPipeline(audioBook, nil, classifier, node)
	if err != nil {
		return nil, NewMemoryError("NewClient", err)
	}

	store := options.store
	if store == nil {
		store = storage.NewHNSWStore()
	}

	consolidator := consolidation.New(cfg.Consolidation, logger)

	return &Client{
		config:        cfg,
		store:         store,
		eng:           engine.New(store, pipeline, classifier, cfg.Engine),
		pipeline:      pipeline,
		audioPipeline: audioPipeline,
		dreamer:       consolidation.NewDreamer(consolidator, cfg.DreamCycles, logger),
		assessor:      integration.NewAssessor(),
		logger:        logger,
	}, nil
}

// buildEmbedder assembles the embedder chain from the configuration: hash
// embedder alone, or OpenAI with hash fallback, cached when caching is
// enabled.
func buildEmbedder(cfg *Config, logger *zap.Logger) (encoding.Embedder, error) {
	hash := encoding.NewHashEmbedder(cfg.EmbeddingDim, cfg.Seed)
	if cfg.OpenAI == nil {
		return hash, nil
	}

	remote, err := encoding.NewOpenAIEmbedder(&encoding.OpenAIConfig{
		APIKey:     cfg.OpenAI.APIKey,
		Model:      cfg.OpenAI.Model,
		BaseURL:    cfg.OpenAI.BaseURL,
		Dimensions: cfg.EmbeddingDim,
	})
	if err != nil {
		return nil, NewMemoryError("NewClient", err)
	}

	chain, err := encoding.NewFallbackEmbedder(remote, hash, logger)
	if err != nil {
		return nil, NewMemoryError("NewClient", err)
	}
	if cfg.CacheEntries == 0 {
		return chain, nil
	}
	return encoding.NewCachedEmbedder(chain, cfg.CacheEntries)
}

// Engine exposes the underlying engine for advanced callers (migration,
// custom consolidation drivers). Access through it is not serialized by the
// client's lock.
func (c *Client) Engine() *engine.Engine {
	return c.eng
}

// Remember encodes text into a new layer-0 memory, stores it, and wires
// skip links to similar memories on other layers.
//
// Parameters:
//   - ctx: Context for cancellation (forwarded to the embedder)
//   - content: Memory content (text string)
//
// Returns the created Memory, or an error if encoding or insertion fails.
//
// Example:
//
//	m, err := client.Remember(ctx, "user prefers the dark theme")
func (c *Client) Remember(ctx context.Context, content string) (*memory.Memory, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, err := c.eng.Remember(ctx, content)
	if err != nil {
		return nil, NewMemoryError("Remember", err)
	}
	c.logger.Debug("memory stored",
		zap.Int64("id", m.ID),
		zap.String("category", m.Category),
	)
	return m, nil
}

// RememberAtLayer stores a memory at an explicit layer and amplitude. Used
// for back-filling older material into deeper layers.
func (c *Client) RememberAtLayer(ctx context.Context, content string, layer int, amplitude float64) (*memory.Memory, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, err := c.eng.RememberAtLayer(ctx, content, layer, amplitude)
	if err != nil {
		return nil, NewMemoryError("RememberAtLayer", err)
	}
	return m, nil
}

// RememberAudio stores a fixed-length audio feature vector as a memory.
//
// The features are projected through a codebook seeded apart from the text
// codebook, so audio memories land near-orthogonal to text memories and the
// two modalities never collide in recall. The feature width must match the
// configured EmbeddingDim.
//
// The record's content is a synthesized "audio:<n>" tag; the DSP front end
// producing the features is the caller's concern.
func (c *Client) RememberAudio(_ context.Context, features []float64) (*memory.Memory, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.audioSeq++
	m, err := c.audioPipeline.EncodeFeatures(features, fmt.Sprintf("audio:%d", c.audioSeq))
	if err != nil {
		c.audioSeq--
		return nil, NewMemoryError("RememberAudio", err)
	}
	if err := c.eng.RememberMemory(m); err != nil {
		c.audioSeq--
		return nil, NewMemoryError("RememberAudio", err)
	}
	return m, nil
}

// Recall encodes the query and returns the top-k memories ranked by
// similarity × effective strength, expanded one hop along strong skip links.
//
// Parameters:
//   - ctx: Context for cancellation (forwarded to the embedder)
//   - query: Query text
//   - topK: Maximum number of results (defaults to 10 when <= 0)
//
// Returns the ranked results, or an error if query encoding fails.
//
// Example:
//
//	results, err := client.Recall(ctx, "what theme does the user like?", 5)
//	for _, r := range results {
//	    fmt.Println(r.Content, r.Score)
//	}
func (c *Client) Recall(ctx context.Context, query string, topK int) ([]engine.RecallResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if topK <= 0 {
		topK = 10
	}
	results, err := c.eng.Recall(ctx, query, topK)
	if err != nil {
		return nil, NewMemoryError("Recall", err)
	}
	return results, nil
}

// Get looks up a single memory by ID.
func (c *Client) Get(id int64) (*memory.Memory, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, err := c.store.Get(id)
	if err != nil {
		return nil, NewMemoryError("Get", err)
	}
	return m, nil
}

// Forget hard-deletes a memory and removes every inbound link to it.
func (c *Client) Forget(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.eng.Forget(id); err != nil {
		return NewMemoryError("Forget", err)
	}
	c.logger.Debug("memory forgotten", zap.Int64("id", id))
	return nil
}

// Boost multiplies a memory's amplitude by factor. Factors below 1 weaken
// the memory; the amplitude never goes negative.
func (c *Client) Boost(id int64, factor float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.eng.Boost(id, factor); err != nil {
		return NewMemoryError("Boost", err)
	}
	return nil
}

// Relate creates an explicit reciprocal skip link between two memories with
// the given strength.
func (c *Client) Relate(a, b int64, strength float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.eng.Relate(a, b, strength); err != nil {
		return NewMemoryError("Relate", err)
	}
	return nil
}

// Dream runs the configured number of consolidation cycles and reports the
// integration state before and after.
//
// Each cycle replays a sliding two-layer window, detects wave interference,
// bundles summaries, strengthens and prunes, synchronizes phases, promotes
// aged memories to deeper layers, wires cross-layer links, and may
// hallucinate one synthesis from weakly related fragments.
//
// Returns the resonance report; Emerged is true when the integration level
// rose across the dream.
func (c *Client) Dream() integration.ResonanceReport {
	c.mu.Lock()
	defer c.mu.Unlock()

	report := c.assessor.Resonate(c.eng, c.dreamer)
	c.consolidations += uint64(len(report.Cycles))
	c.logger.Info("dream complete",
		zap.Int("cycles", len(report.Cycles)),
		zap.Float64("phi_delta", report.PhiDelta),
		zap.Bool("emerged", report.Emerged),
	)
	return report
}

// Clusters detects phase-synchronized memory clusters of at least minSize
// members.
func (c *Client) Clusters(minSize int) []kuramoto.Cluster {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.assessor.Sync.Clusters(c.store, minSize)
}

// Stats computes the current integration state: Phi, Xi, Kuramoto order,
// cluster and link counts, and the derived level.
func (c *Client) Stats() integration.State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.assessor.Assess(c.eng)
}

// Health assembles the full system report: integration state, wave
// dynamics, link topology, clusters, and health warnings. Render it with
// integration.Format.
func (c *Client) Health() integration.SystemReport {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.assessor.FullReport(c.eng)
}

// Count returns the number of stored memories.
func (c *Client) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.store.Count()
}

// Save writes every memory to the configured snapshot file in one
// transaction, replacing any previous snapshot contents.
//
// Returns ErrNoSnapshotPath when the client was configured without a
// snapshot path.
func (c *Client) Save(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.config.SnapshotPath == "" {
		return NewMemoryError("Save", ErrNoSnapshotPath)
	}
	snap, err := persistence.Open(c.config.SnapshotPath)
	if err != nil {
		return NewMemoryError("Save", err)
	}
	defer func() { _ = snap.Close() }()

	level := integration.LevelFromPhi(c.assessor.Phi(c.eng).Phi)
	snap.SetMetadata(c.consolidations, level.String())

	err = snap.Save(ctx, c.store.All(), persistence.Params{
		Seed:      c.config.Seed,
		InputDim:  c.config.EmbeddingDim,
		OutputDim: c.config.Dimensions,
	})
	if err != nil {
		return NewMemoryError("Save", err)
	}
	c.logger.Info("snapshot saved",
		zap.String("path", c.config.SnapshotPath),
		zap.Int("memories", c.store.Count()),
	)
	return nil
}

// Load replaces the client's memories with the snapshot contents.
//
// The snapshot must have been written with the same codebook parameters
// (seed and dimensions); otherwise its vectors live in a different space
// and ErrSnapshotMismatch is returned. On any error the in-memory state is
// left untouched.
func (c *Client) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.config.SnapshotPath == "" {
		return NewMemoryError("Load", ErrNoSnapshotPath)
	}
	snap, err := persistence.Open(c.config.SnapshotPath)
	if err != nil {
		return NewMemoryError("Load", err)
	}
	defer func() { _ = snap.Close() }()

	memories, params, err := snap.Load(ctx)
	if err != nil {
		return NewMemoryError("Load", err)
	}
	if params != (persistence.Params{}) {
		same := params.Seed == c.config.Seed &&
			params.InputDim == c.config.EmbeddingDim &&
			params.OutputDim == c.config.Dimensions
		if !same {
			return NewMemoryError("Load", ErrSnapshotMismatch)
		}
	}

	for _, id := range c.store.IDs() {
		c.store.Delete(id)
	}
	for _, m := range memories {
		if err := c.store.Insert(m); err != nil {
			return NewMemoryError("Load", err)
		}
	}
	c.consolidations = snap.Metadata().Consolidations

	c.logger.Info("snapshot loaded",
		zap.String("path", c.config.SnapshotPath),
		zap.Int("memories", len(memories)),
	)
	return nil
}

// Close releases the client's resources: the embedding cache (when one is
// attached) and the logger's buffered output.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if closer, ok := c.pipeline.Embedder().(interface{ Close() }); ok {
		closer.Close()
	}
	_ = c.logger.Sync()
	return nil
}
