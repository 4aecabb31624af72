// Package engine orchestrates the core memory operations: encode → store →
// link-wiring on the way in, and similarity + wave + graph-expansion
// retrieval on the way out.
package engine

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/hypermem/hypermem-go/pkg/classify"
	"github.com/hypermem/hypermem-go/pkg/encoding"
	"github.com/hypermem/hypermem-go/pkg/hdc"
	"github.com/hypermem/hypermem-go/pkg/memory"
	"github.com/hypermem/hypermem-go/pkg/storage"
)

// Config tunes link wiring and retrieval expansion.
type Config struct {
	// LinkThreshold is the minimum cosine similarity for automatic link
	// creation on insert.
	LinkThreshold float64 `json:"link_threshold"`

	// ExpansionMinStrength is the minimum link strength followed during
	// graph-expansion recall.
	ExpansionMinStrength float64 `json:"expansion_min_strength"`

	// ExpansionDamping scales the score of entries reached through a link.
	ExpansionDamping float64 `json:"expansion_damping"`

	// RetrievalBoost is added to a link's strength each time recall
	// traverses it.
	RetrievalBoost float64 `json:"retrieval_boost"`

	// RelatedBoost multiplies similarity for result pairs the classifier
	// considers related.
	RelatedBoost float64 `json:"related_boost"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		LinkThreshold:        0.7,
		ExpansionMinStrength: 0.4,
		ExpansionDamping:     0.8,
		RetrievalBoost:       0.01,
		RelatedBoost:         1.2,
	}
}

// RecallResult is one entry returned by Recall.
type RecallResult struct {
	// ID identifies the recalled memory.
	ID int64 `json:"id"`

	// Content is the memory's text.
	Content string `json:"content"`

	// Similarity is the cosine similarity to the query, after any related
	// pair boosts.
	Similarity float64 `json:"similarity"`

	// Strength is the memory's effective strength at recall time.
	Strength float64 `json:"strength"`

	// Score is the ranking score (similarity × strength for direct hits,
	// damped link-weighted score for expanded hits).
	Score float64 `json:"score"`

	// AgeHours is the memory's age in hours.
	AgeHours float64 `json:"age_hours"`

	// Layer is the memory's temporal layer.
	Layer int `json:"layer"`

	// Expanded marks entries reached through a skip link rather than
	// directly by similarity search.
	Expanded bool `json:"expanded,omitempty"`
}

// Engine is the single-writer orchestrator over a store and an encoding
// pipeline.
type Engine struct {
	store      storage.Store
	pipeline   *encoding.Pipeline
	classifier classify.Classifier
	config     Config
}

// New creates an engine. classifier may be nil, disabling related-pair
// boosts.
func New(store storage.Store, pipeline *encoding.Pipeline, classifier classify.Classifier, config Config) *Engine {
	return &Engine{
		store:      store,
		pipeline:   pipeline,
		classifier: classifier,
		config:     config,
	}
}

// Store exposes the underlying backend to the consolidation and metric
// layers. Callers must respect the single-writer discipline.
func (e *Engine) Store() storage.Store {
	return e.store
}

// Pipeline returns the engine's encoding pipeline.
func (e *Engine) Pipeline() *encoding.Pipeline {
	return e.pipeline
}

// Classifier returns the engine's classifier, nil when none is attached.
func (e *Engine) Classifier() classify.Classifier {
	return e.classifier
}

// Remember encodes text into a new layer-0 memory, stores it, and wires
// skip links to similar memories on other layers.
func (e *Engine) Remember(ctx context.Context, text string) (*memory.Memory, error) {
	return e.RememberAtLayer(ctx, text, 0, 1.0)
}

// RememberAtLayer stores a memory at an explicit layer and amplitude. Used
// by migration, which back-fills older material into deeper layers.
func (e *Engine) RememberAtLayer(ctx context.Context, text string, layer int, amplitude float64) (*memory.Memory, error) {
	m, err := e.pipeline.Encode(ctx, text)
	if err != nil {
		return nil, err
	}
	m.Layer = layer
	m.Wave.Amplitude = amplitude

	if err := e.store.Insert(m); err != nil {
		return nil, err
	}
	e.WireLinks(m)
	return m, nil
}

// RememberMemory inserts an externally constructed record (e.g. an audio
// memory from a separately seeded codebook) and wires its links.
func (e *Engine) RememberMemory(m *memory.Memory) error {
	if err := e.store.Insert(m); err != nil {
		return err
	}
	e.WireLinks(m)
	return nil
}

// WireLinks scans all existing memories and creates reciprocal links for
// every record on a different layer whose similarity to m exceeds the link
// threshold.
//
// Link strength = similarity · (0.5 + 0.5 · phiWeight(span)), rewarding
// spans near powers of the golden ratio. This is an O(n) scan; large callers
// can pre-filter candidates through the similarity index before the exact
// check.
func (e *Engine) WireLinks(m *memory.Memory) int {
	created := 0
	for _, other := range e.store.All() {
		if other.ID == m.ID || other.Layer == m.Layer {
			continue
		}
		sim := hdc.CosineSimilarity(m.Vector, other.Vector)
		if sim <= e.config.LinkThreshold {
			continue
		}

		span := m.Layer - other.Layer
		if span < 0 {
			span = -span
		}
		strength := sim * (0.5 + 0.5*phiWeight(float64(span)))

		if m.AddLink(memory.SkipLink{TargetID: other.ID, Strength: strength, Span: span}) {
			created++
		}
		other.AddLink(memory.SkipLink{TargetID: m.ID, Strength: strength, Span: span})
	}
	return created
}

// phiWeight rewards spans close to powers of the golden ratio
// (φ, φ², φ³, … ≈ 1.6, 2.6, 4.2, 6.9, 11.1, 18.0, 29.0, …):
//
//	1 − min(1, min_k |span − φ^k| / φ^k)  for k in 1..8
func phiWeight(span float64) float64 {
	minDist := 1.0
	for k := 1; k <= 8; k++ {
		phiK := math.Pow(hdc.Phi, float64(k))
		dist := math.Abs(span-phiK) / phiK
		if dist < minDist {
			minDist = dist
		}
	}
	return 1 - minDist
}

// Recall encodes the query and returns the top-k memories ranked by
// similarity × effective strength, expanded one hop along strong skip links.
//
// Each traversed link is reinforced by the retrieval boost. Result pairs the
// classifier considers related get their similarity boosted, and entries
// whose differentiation signature diverges from the query's get a diversity
// boost on their score.
func (e *Engine) Recall(ctx context.Context, query string, topK int) ([]RecallResult, error) {
	qvec, err := e.pipeline.EncodeQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return e.RecallVector(qvec, topK), nil
}

// RecallVector runs retrieval for an already-encoded query hypervector.
func (e *Engine) RecallVector(qvec []float64, topK int) []RecallResult {
	now := time.Now()
	queryXi := hdc.XiSignature(qvec)

	direct := e.store.WaveSearch(qvec, topK, now)

	seen := make(map[int64]bool, len(direct))
	results := make([]RecallResult, 0, len(direct)*2)

	for _, hit := range direct {
		m, err := e.store.Get(hit.ID)
		if err != nil {
			continue
		}
		seen[hit.ID] = true
		results = append(results, e.buildResult(m, hit.Similarity, hit.Score, now, queryXi, false))
	}

	// One-hop graph expansion along strong links.
	for _, hit := range direct {
		m, err := e.store.Get(hit.ID)
		if err != nil {
			continue
		}
		for i := range m.Links {
			link := &m.Links[i]
			if link.Strength < e.config.ExpansionMinStrength || seen[link.TargetID] {
				continue
			}
			target, err := e.store.Get(link.TargetID)
			if err != nil {
				continue
			}

			seen[link.TargetID] = true
			score := hit.Score * link.Strength * e.config.ExpansionDamping
			sim := hdc.CosineSimilarity(qvec, target.Vector)
			r := e.buildResult(target, sim, score, now, queryXi, true)
			results = append(results, r)

			// Traversal reinforces the link.
			link.Strength += e.config.RetrievalBoost
			if link.Strength > 1 {
				link.Strength = 1
			}
		}
	}

	e.boostRelatedPairs(results)

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

// buildResult assembles one recall entry, applying the differentiation
// boost against the query's signature.
func (e *Engine) buildResult(m *memory.Memory, sim, score float64, now time.Time, queryXi []float64, expanded bool) RecallResult {
	if len(m.XiSignature) == 0 {
		// Lazily recompute signatures missing from old snapshots.
		m.XiSignature = hdc.XiSignature(m.Vector)
	}
	score = hdc.XiDiversityBoost(score, queryXi, m.XiSignature)

	return RecallResult{
		ID:         m.ID,
		Content:    m.Content,
		Similarity: sim,
		Strength:   m.EffectiveStrength(now),
		Score:      score,
		AgeHours:   now.Sub(m.CreatedAt).Hours(),
		Layer:      m.Layer,
		Expanded:   expanded,
	}
}

// boostRelatedPairs multiplies similarity for every result pair whose
// classifier labels are related.
func (e *Engine) boostRelatedPairs(results []RecallResult) {
	if e.classifier == nil {
		return
	}
	labels := make([]*classify.Label, len(results))
	for i, r := range results {
		m, err := e.store.Get(r.ID)
		if err != nil || m.Coordinates == nil {
			continue
		}
		labels[i] = &classify.Label{Category: m.Category, Coordinates: *m.Coordinates}
	}

	for i := 0; i < len(results); i++ {
		if labels[i] == nil {
			continue
		}
		for j := i + 1; j < len(results); j++ {
			if labels[j] == nil {
				continue
			}
			if e.classifier.Related(*labels[i], *labels[j]) {
				results[i].Similarity *= e.config.RelatedBoost
				results[j].Similarity *= e.config.RelatedBoost
			}
		}
	}
}

// Forget hard-deletes a memory and removes every inbound link to it.
func (e *Engine) Forget(id int64) error {
	if _, err := e.store.Get(id); err != nil {
		return err
	}
	e.store.Delete(id)
	for _, m := range e.store.All() {
		m.RemoveLink(id)
	}
	return nil
}

// Boost multiplies a memory's amplitude by factor.
func (e *Engine) Boost(id int64, factor float64) error {
	m, err := e.store.Get(id)
	if err != nil {
		return err
	}
	m.Wave.Amplitude *= factor
	if m.Wave.Amplitude < 0 {
		m.Wave.Amplitude = 0
	}
	return nil
}

// Relate creates an explicit reciprocal link between two memories with the
// given strength.
func (e *Engine) Relate(a, b int64, strength float64) error {
	ma, err := e.store.Get(a)
	if err != nil {
		return err
	}
	mb, err := e.store.Get(b)
	if err != nil {
		return err
	}

	span := ma.Layer - mb.Layer
	if span < 0 {
		span = -span
	}
	ma.AddLink(memory.SkipLink{TargetID: b, Strength: strength, Span: span})
	mb.AddLink(memory.SkipLink{TargetID: a, Strength: strength, Span: span})
	return nil
}

// ReinforceLink adds boost to the strength of the link from one memory to
// another, clamped at 1.0. A missing link is created with the boost as its
// initial strength; missing records are ignored.
func (e *Engine) ReinforceLink(from, to int64, boost float64) {
	m, err := e.store.Get(from)
	if err != nil {
		return
	}
	if link := m.LinkTo(to); link != nil {
		link.Strength += boost
		if link.Strength > 1 {
			link.Strength = 1
		}
		return
	}

	target, err := e.store.Get(to)
	if err != nil {
		return
	}
	span := m.Layer - target.Layer
	if span < 0 {
		span = -span
	}
	m.AddLink(memory.SkipLink{TargetID: to, Strength: boost, Span: span})
}

// DecayLinks multiplies every link's strength by factor.
func (e *Engine) DecayLinks(factor float64) {
	for _, m := range e.store.All() {
		for i := range m.Links {
			m.Links[i].Strength *= factor
		}
	}
}
