// Package consolidation implements the dreaming layer: staged offline
// processing that replays recent memories, resolves wave interference,
// bundles summaries, synchronizes phases, promotes records to deeper
// temporal layers, and synthesizes novel memories from distant clusters.
package consolidation

import (
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hypermem/hypermem-go/pkg/classify"
	"github.com/hypermem/hypermem-go/pkg/engine"
	"github.com/hypermem/hypermem-go/pkg/hdc"
	"github.com/hypermem/hypermem-go/pkg/kuramoto"
	"github.com/hypermem/hypermem-go/pkg/memory"
)

// summaryPrefix tags bundle records so later stages can skip them.
const summaryPrefix = "__consolidation"

// Config tunes the consolidation stages.
type Config struct {
	// InterferenceThreshold is the minimum cosine similarity for two
	// memories to interfere at all.
	InterferenceThreshold float64 `json:"interference_threshold"`

	// PhaseAlignment is the phase difference (radians) below which
	// interference is constructive; differences above π minus this value
	// are destructive. Everything between is neutral.
	PhaseAlignment float64 `json:"phase_alignment"`

	// PruneFloor is the amplitude below which a penalized memory is
	// ghosted (amplitude forced to exactly zero).
	PruneFloor float64 `json:"prune_floor"`

	// ConstructiveBoost is added to each amplitude of a constructive pair.
	ConstructiveBoost float64 `json:"constructive_boost"`

	// DestructivePenalty is subtracted from each amplitude of a
	// destructive pair.
	DestructivePenalty float64 `json:"destructive_penalty"`

	// Sync holds the Kuramoto parameters for the phase alignment stage.
	Sync kuramoto.Sync `json:"sync"`
}

// DefaultConfig returns the standard consolidation tuning.
func DefaultConfig() Config {
	return Config{
		InterferenceThreshold: 0.6,
		PhaseAlignment:        math.Pi / 4,
		PruneFloor:            0.05,
		ConstructiveBoost:     0.3,
		DestructivePenalty:    0.4,
		Sync:                  kuramoto.DefaultSync(),
	}
}

// Report collects statistics from a single consolidation cycle.
type Report struct {
	MemoriesReplayed     int           `json:"memories_replayed"`
	InterferencePairs    int           `json:"interference_pairs"`
	ConstructivePairs    int           `json:"constructive_pairs"`
	DestructivePairs     int           `json:"destructive_pairs"`
	BundlesCreated       int           `json:"bundles_created"`
	MemoriesStrengthened int           `json:"memories_strengthened"`
	MemoriesPruned       int           `json:"memories_pruned"`
	ClustersSynced       int           `json:"clusters_synced"`
	SyncOrderImprovement float64       `json:"sync_order_improvement"`
	MemoriesTransferred  int           `json:"memories_transferred"`
	LinksCreated         int           `json:"links_created"`
	Hallucinations       int           `json:"hallucinations"`
	Duration             time.Duration `json:"duration"`
}

type interferenceKind int

const (
	constructive interferenceKind = iota
	destructive
)

// interferencePair is a detected interfering memory pair.
type interferencePair struct {
	a, b       int64
	similarity float64
	kind       interferenceKind
}

// Consolidator runs the staged consolidation cycle.
type Consolidator struct {
	config Config
	logger *zap.Logger
}

// New creates a consolidator. logger may be nil.
func New(config Config, logger *zap.Logger) *Consolidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consolidator{config: config, logger: logger}
}

// Consolidate runs one full cycle over memories in the given layer range.
//
// Stages, in order: replay collects the working set; detect finds
// interference pairs; bundle summarizes each layer into the next; strengthen
// boosts constructive pairs; sync phase-locks similarity clusters; prune
// penalizes destructive pairs; transfer promotes aged memories; wire creates
// skip links for constructive cross-layer pairs and classifier-related
// records; hallucinate synthesizes one record from maximally distant
// memories.
//
// Parameters:
//   - eng: the memory engine whose store is consolidated.
//   - minLayer: lowest temporal layer included in the working set.
//   - maxLayer: highest temporal layer included in the working set.
//
// Returns:
//   - Report: per-stage counters for the cycle.
func (c *Consolidator) Consolidate(eng *engine.Engine, minLayer, maxLayer int) Report {
	start := time.Now()
	var report Report

	working := c.stageReplay(eng, minLayer, maxLayer)
	report.MemoriesReplayed = len(working)

	pairs := c.stageDetect(eng, working)
	report.InterferencePairs = len(pairs)
	for _, p := range pairs {
		if p.kind == constructive {
			report.ConstructivePairs++
		} else {
			report.DestructivePairs++
		}
	}

	report.BundlesCreated = c.stageBundle(eng, working, maxLayer)
	report.MemoriesStrengthened = c.stageStrengthen(eng, pairs)
	report.ClustersSynced, report.SyncOrderImprovement = c.stageSync(eng, working)
	report.MemoriesPruned = c.stagePrune(eng, pairs)
	report.MemoriesTransferred = c.stageTransfer(eng)
	report.LinksCreated = c.stageWire(eng, pairs)
	report.Hallucinations = c.stageHallucinate(eng, working)

	report.Duration = time.Since(start)
	c.logger.Debug("consolidation cycle complete",
		zap.Int("min_layer", minLayer),
		zap.Int("max_layer", maxLayer),
		zap.Int("replayed", report.MemoriesReplayed),
		zap.Int("interference_pairs", report.InterferencePairs),
		zap.Int("bundles", report.BundlesCreated),
		zap.Int("links", report.LinksCreated),
		zap.Duration("duration", report.Duration))
	return report
}

// stageReplay collects the IDs of memories inside the layer range.
func (c *Consolidator) stageReplay(eng *engine.Engine, minLayer, maxLayer int) []int64 {
	var ids []int64
	for _, m := range eng.Store().All() {
		if m.Layer >= minLayer && m.Layer <= maxLayer {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// stageDetect finds interfering pairs in the working set. Pairs above the
// similarity threshold are constructive when their phases align within
// PhaseAlignment and destructive when they oppose within the same margin.
func (c *Consolidator) stageDetect(eng *engine.Engine, working []int64) []interferencePair {
	var pairs []interferencePair
	for i := 0; i < len(working); i++ {
		a, err := eng.Store().Get(working[i])
		if err != nil {
			continue
		}
		for j := i + 1; j < len(working); j++ {
			b, err := eng.Store().Get(working[j])
			if err != nil {
				continue
			}

			sim := hdc.CosineSimilarity(a.Vector, b.Vector)
			if sim <= c.config.InterferenceThreshold {
				continue
			}

			diff := math.Mod(math.Abs(a.Wave.Phase-b.Wave.Phase), 2*math.Pi)
			if diff > math.Pi {
				diff = 2*math.Pi - diff
			}

			var kind interferenceKind
			switch {
			case diff < c.config.PhaseAlignment:
				kind = constructive
			case diff > math.Pi-c.config.PhaseAlignment:
				kind = destructive
			default:
				continue
			}

			pairs = append(pairs, interferencePair{
				a:          working[i],
				b:          working[j],
				similarity: sim,
				kind:       kind,
			})
		}
	}
	return pairs
}

// stageBundle summarizes each populated layer into a single bundle record
// one layer deeper.
func (c *Consolidator) stageBundle(eng *engine.Engine, working []int64, maxLayer int) int {
	created := 0
	for layer := 0; layer <= maxLayer; layer++ {
		var vectors [][]float64
		for _, id := range working {
			m, err := eng.Store().Get(id)
			if err != nil || m.Layer != layer {
				continue
			}
			vectors = append(vectors, m.Vector)
		}
		if len(vectors) < 2 {
			continue
		}

		summary := eng.Pipeline().Synthesize(hdc.Bundle(vectors...),
			fmt.Sprintf("%s_summary_layer_%d", summaryPrefix, layer))
		summary.Layer = layer + 1
		if eng.Store().Insert(summary) == nil {
			created++
		}
	}
	return created
}

// stageStrengthen boosts both amplitudes of each constructive pair and
// pulls the phases to their average.
func (c *Consolidator) stageStrengthen(eng *engine.Engine, pairs []interferencePair) int {
	count := 0
	for _, p := range pairs {
		if p.kind != constructive {
			continue
		}
		a, errA := eng.Store().Get(p.a)
		b, errB := eng.Store().Get(p.b)
		if errA != nil || errB != nil {
			continue
		}
		avgPhase := (a.Wave.Phase + b.Wave.Phase) / 2

		a.Wave.Amplitude += c.config.ConstructiveBoost
		a.Wave.Phase = avgPhase
		count++

		b.Wave.Amplitude += c.config.ConstructiveBoost
		b.Wave.Phase = avgPhase
		count++
	}
	return count
}

// stageSync runs Kuramoto phase synchronization on each similarity cluster
// within the working set. Returns the cluster count and the summed order
// parameter improvement.
func (c *Consolidator) stageSync(eng *engine.Engine, working []int64) (int, float64) {
	mems := make([]*memory.Memory, 0, len(working))
	for _, id := range working {
		if m, err := eng.Store().Get(id); err == nil {
			mems = append(mems, m)
		}
	}

	n := len(mems)
	adj := make([][]int, n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sim := hdc.CosineSimilarity(mems[i].Vector, mems[j].Vector)
			if sim > c.config.Sync.CouplingThreshold {
				adj[i] = append(adj[i], j)
				adj[j] = append(adj[j], i)
			}
		}
	}

	visited := make([]bool, n)
	synced := 0
	improvement := 0.0

	for start := 0; start < n; start++ {
		if visited[start] {
			continue
		}
		component := []int{start}
		queue := []int{start}
		visited[start] = true
		for len(queue) > 0 {
			node := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			for _, nb := range adj[node] {
				if !visited[nb] {
					visited[nb] = true
					component = append(component, nb)
					queue = append(queue, nb)
				}
			}
		}
		if len(component) < 2 {
			continue
		}

		cluster := make([]*memory.Memory, len(component))
		for i, idx := range component {
			cluster[i] = mems[idx]
		}
		result := c.config.Sync.SyncCluster(cluster)

		improvement += result.FinalOrder - result.InitialOrder
		synced++
	}

	return synced, improvement
}

// stagePrune penalizes both amplitudes of each destructive pair, ghosting
// any that fall below the prune floor.
func (c *Consolidator) stagePrune(eng *engine.Engine, pairs []interferencePair) int {
	count := 0
	for _, p := range pairs {
		if p.kind != destructive {
			continue
		}
		for _, id := range [2]int64{p.a, p.b} {
			m, err := eng.Store().Get(id)
			if err != nil {
				continue
			}
			m.Wave.Amplitude -= c.config.DestructivePenalty
			if m.Wave.Amplitude < c.config.PruneFloor {
				m.Wave.Amplitude = 0
			}
			count++
		}
	}
	return count
}

// stageTransfer promotes aged memories to deeper temporal layers:
// layer 0 after an hour, layer 1 after a day, layer 2 after a week.
func (c *Consolidator) stageTransfer(eng *engine.Engine) int {
	now := time.Now()
	count := 0
	for _, m := range eng.Store().All() {
		age := now.Sub(m.CreatedAt)
		switch {
		case m.Layer == 0 && age > time.Hour:
			m.Layer = 1
		case m.Layer == 1 && age > 24*time.Hour:
			m.Layer = 2
		case m.Layer == 2 && age > 7*24*time.Hour:
			m.Layer = 3
		default:
			continue
		}
		count++
	}
	return count
}

// stageWire creates reciprocal skip links for constructive cross-layer
// pairs (strength = similarity × 0.8) and for classifier-related records
// (strength 0.3).
func (c *Consolidator) stageWire(eng *engine.Engine, pairs []interferencePair) int {
	count := 0

	for _, p := range pairs {
		if p.kind != constructive {
			continue
		}
		a, errA := eng.Store().Get(p.a)
		b, errB := eng.Store().Get(p.b)
		if errA != nil || errB != nil {
			continue
		}
		if a.Layer == b.Layer {
			continue
		}
		if a.LinkTo(b.ID) != nil {
			continue
		}

		span := a.Layer - b.Layer
		if span < 0 {
			span = -span
		}
		strength := p.similarity * 0.8
		a.AddLink(memory.SkipLink{TargetID: b.ID, Strength: strength, Span: span})
		b.AddLink(memory.SkipLink{TargetID: a.ID, Strength: strength, Span: span})
		count++
	}

	classifier := eng.Classifier()
	if classifier == nil {
		return count
	}

	all := eng.Store().All()
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			a, b := all[i], all[j]
			if a.Coordinates == nil || b.Coordinates == nil {
				continue
			}
			labelA := classify.Label{Category: a.Category, Coordinates: *a.Coordinates}
			labelB := classify.Label{Category: b.Category, Coordinates: *b.Coordinates}
			if !classifier.Related(labelA, labelB) {
				continue
			}
			if a.LinkTo(b.ID) != nil || b.LinkTo(a.ID) != nil {
				continue
			}

			span := a.Layer - b.Layer
			if span < 0 {
				span = -span
			}
			a.AddLink(memory.SkipLink{TargetID: b.ID, Strength: 0.3, Span: span})
			b.AddLink(memory.SkipLink{TargetID: a.ID, Strength: 0.3, Span: span})
			count++
		}
	}

	return count
}

// stageHallucinate bundles the two or three most mutually distant
// high-amplitude memories into a single synthesized record. The new record
// starts at amplitude 0.3 and is linked to its parents both ways at
// strength 0.5. Returns the number of records created (0 or 1).
func (c *Consolidator) stageHallucinate(eng *engine.Engine, working []int64) int {
	if len(working) < 3 {
		return 0
	}

	var candidates []*memory.Memory
	for _, id := range working {
		m, err := eng.Store().Get(id)
		if err != nil {
			continue
		}
		if m.Wave.Amplitude > c.config.PruneFloor && !strings.HasPrefix(m.Content, summaryPrefix) {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) < 3 {
		return 0
	}

	// Most distant pair.
	minSim := math.MaxFloat64
	pi, pj := 0, 1
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			sim := hdc.CosineSimilarity(candidates[i].Vector, candidates[j].Vector)
			if sim < minSim {
				minSim = sim
				pi, pj = i, j
			}
		}
	}

	// Third memory most distant from both.
	third := -1
	minMaxSim := math.MaxFloat64
	for k := 0; k < len(candidates); k++ {
		if k == pi || k == pj {
			continue
		}
		simA := hdc.CosineSimilarity(candidates[k].Vector, candidates[pi].Vector)
		simB := hdc.CosineSimilarity(candidates[k].Vector, candidates[pj].Vector)
		if maxSim := math.Max(simA, simB); maxSim < minMaxSim {
			minMaxSim = maxSim
			third = k
		}
	}

	parents := []*memory.Memory{candidates[pi], candidates[pj]}
	if third >= 0 {
		parents = append(parents, candidates[third])
	}

	vectors := make([][]float64, len(parents))
	phrases := make([]string, len(parents))
	parentIDs := make([]int64, len(parents))
	for i, p := range parents {
		vectors[i] = p.Vector
		phrase := p.Content
		if len(phrase) > 60 {
			phrase = phrase[:60]
		}
		phrases[i] = phrase
		parentIDs[i] = p.ID
	}

	synthesis := eng.Pipeline().Synthesize(hdc.Bundle(vectors...),
		"[hallucination] Synthesis of: "+strings.Join(phrases, " | "))
	synthesis.Wave.Amplitude = 0.3
	synthesis.Hallucinated = true
	synthesis.ParentIDs = parentIDs

	if err := eng.Store().Insert(synthesis); err != nil {
		return 0
	}

	for _, p := range parents {
		synthesis.AddLink(memory.SkipLink{TargetID: p.ID, Strength: 0.5, Span: 0})
		p.AddLink(memory.SkipLink{TargetID: synthesis.ID, Strength: 0.5, Span: 0})
	}

	return 1
}
