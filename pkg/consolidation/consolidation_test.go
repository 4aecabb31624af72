package consolidation

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypermem/hypermem-go/pkg/classify"
	"github.com/hypermem/hypermem-go/pkg/codebook"
	"github.com/hypermem/hypermem-go/pkg/encoding"
	"github.com/hypermem/hypermem-go/pkg/engine"
	"github.com/hypermem/hypermem-go/pkg/hdc"
	"github.com/hypermem/hypermem-go/pkg/memory"
	"github.com/hypermem/hypermem-go/pkg/storage"
)

const testDim = 512

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	// No pipeline classifier: synthesized records keep deterministic
	// default waves.
	cb := codebook.New(128, testDim, 42)
	pipe, err := encoding.NewPipeline(cb, encoding.NewHashEmbedder(128, 42), nil, node)
	require.NoError(t, err)

	return engine.New(storage.NewBruteStore(), pipe, classify.NewHeuristic(), engine.DefaultConfig())
}

// insertRaw stores a hand-crafted record, bypassing encoding and the
// engine's automatic link wiring.
func insertRaw(t *testing.T, eng *engine.Engine, id int64, vector []float64, phase float64, layer int, content string) *memory.Memory {
	t.Helper()
	m := &memory.Memory{
		ID:        id,
		Vector:    vector,
		Wave:      hdc.Wave{Amplitude: 1.0, Frequency: 0, Phase: phase, DecayRate: 0},
		CreatedAt: time.Now(),
		Layer:     layer,
		Content:   content,
	}
	require.NoError(t, eng.Store().Insert(m))
	return m
}

func blockVector(start int) []float64 {
	v := make([]float64, testDim)
	for i := start; i < start+32; i++ {
		v[i] = 1.0
	}
	return hdc.Normalized(v)
}

func TestConstructiveInterferenceStrengthens(t *testing.T) {
	eng := newTestEngine(t)
	v := blockVector(0)
	a := insertRaw(t, eng, 1, v, 0.0, 0, "aligned one")
	b := insertRaw(t, eng, 2, v, 0.1, 0, "aligned two")

	report := New(DefaultConfig(), nil).Consolidate(eng, 0, 1)

	assert.Greater(t, report.ConstructivePairs, 0)
	assert.Greater(t, a.Wave.Amplitude, 1.0, "constructive pair should gain amplitude")
	assert.Greater(t, b.Wave.Amplitude, 1.0)
	assert.InDelta(t, a.Wave.Phase, b.Wave.Phase, 1e-9, "phases pulled to their average")
}

func TestDestructiveInterferenceWeakens(t *testing.T) {
	eng := newTestEngine(t)
	v := blockVector(0)
	a := insertRaw(t, eng, 1, v, 0.0, 0, "opposed one")
	b := insertRaw(t, eng, 2, v, math.Pi, 0, "opposed two")

	report := New(DefaultConfig(), nil).Consolidate(eng, 0, 1)

	assert.Greater(t, report.DestructivePairs, 0)
	assert.Less(t, a.Wave.Amplitude, 1.0, "destructive pair should lose amplitude")
	assert.Less(t, b.Wave.Amplitude, 1.0)
}

func TestPruneGhostsBelowFloor(t *testing.T) {
	eng := newTestEngine(t)
	v := blockVector(0)
	a := insertRaw(t, eng, 1, v, 0.0, 0, "opposed one")
	b := insertRaw(t, eng, 2, v, math.Pi, 0, "opposed two")

	config := DefaultConfig()
	config.DestructivePenalty = 1.5
	report := New(config, nil).Consolidate(eng, 0, 1)

	assert.Greater(t, report.MemoriesPruned, 0)
	assert.Zero(t, a.Wave.Amplitude, "ghosted amplitude is exactly zero")
	assert.Zero(t, b.Wave.Amplitude)
}

func TestBundleSummarizesLayer(t *testing.T) {
	eng := newTestEngine(t)
	insertRaw(t, eng, 1, blockVector(0), 0.0, 0, "quantum physics theory")
	insertRaw(t, eng, 2, blockVector(64), 0.0, 0, "cooking pasta recipes")
	insertRaw(t, eng, 3, blockVector(128), 0.0, 0, "alpine hiking trails")

	before := eng.Store().Count()
	report := New(DefaultConfig(), nil).Consolidate(eng, 0, 1)

	assert.Greater(t, report.BundlesCreated, 0)
	assert.Greater(t, eng.Store().Count(), before)

	var summary *memory.Memory
	for _, m := range eng.Store().All() {
		if strings.HasPrefix(m.Content, summaryPrefix) {
			summary = m
			break
		}
	}
	require.NotNil(t, summary, "summary record should exist")
	assert.Equal(t, 1, summary.Layer, "summary sits one layer deeper")

	component, err := eng.Store().Get(1)
	require.NoError(t, err)
	assert.Greater(t, hdc.CosineSimilarity(summary.Vector, component.Vector), 0.0,
		"bundle stays similar to its components")
}

func TestTransferPromotesAgedMemories(t *testing.T) {
	eng := newTestEngine(t)
	m := insertRaw(t, eng, 1, blockVector(0), 0.0, 0, "old memory")
	m.CreatedAt = time.Now().Add(-2 * time.Hour)

	report := New(DefaultConfig(), nil).Consolidate(eng, 0, 1)

	assert.Greater(t, report.MemoriesTransferred, 0)
	assert.Equal(t, 1, m.Layer)
}

func TestTransferLeavesFreshMemoriesAlone(t *testing.T) {
	eng := newTestEngine(t)
	m := insertRaw(t, eng, 1, blockVector(0), 0.0, 0, "fresh memory")

	New(DefaultConfig(), nil).Consolidate(eng, 0, 1)

	assert.Equal(t, 0, m.Layer)
}

func TestWireLinksCrossLayerConstructivePairs(t *testing.T) {
	eng := newTestEngine(t)
	v := blockVector(0)
	a := insertRaw(t, eng, 1, v, 0.0, 0, "recent view")
	b := insertRaw(t, eng, 2, v, 0.0, 1, "older view")

	report := New(DefaultConfig(), nil).Consolidate(eng, 0, 1)

	assert.Greater(t, report.LinksCreated, 0)
	link := a.LinkTo(b.ID)
	require.NotNil(t, link, "forward link should exist")
	assert.InDelta(t, 0.8, link.Strength, 1e-6, "strength is similarity scaled by 0.8")
	assert.Equal(t, 1, link.Span)
	require.NotNil(t, b.LinkTo(a.ID), "reverse link should exist")
}

func TestWireLinksGeometricallyRelatedPairs(t *testing.T) {
	eng := newTestEngine(t)
	a := insertRaw(t, eng, 1, blockVector(0), 0.0, 0, "first fact")
	b := insertRaw(t, eng, 2, blockVector(64), 0.0, 0, "second fact")
	a.Category = "knowledge"
	a.Coordinates = &classify.Coordinates{H2: 0, D: 0, L: 1}
	b.Category = "knowledge"
	b.Coordinates = &classify.Coordinates{H2: 0, D: 0, L: 2}

	report := New(DefaultConfig(), nil).Consolidate(eng, 0, 1)

	assert.Greater(t, report.LinksCreated, 0)
	link := a.LinkTo(b.ID)
	require.NotNil(t, link)
	assert.InDelta(t, 0.3, link.Strength, 1e-9)
	require.NotNil(t, b.LinkTo(a.ID))
}

func TestHallucinationFromDistantMemories(t *testing.T) {
	eng := newTestEngine(t)
	insertRaw(t, eng, 1, blockVector(0), 0.0, 0, "quantum physics theory")
	insertRaw(t, eng, 2, blockVector(64), 0.0, 0, "cooking pasta recipes")
	insertRaw(t, eng, 3, blockVector(128), 0.0, 0, "alpine hiking trails")

	config := DefaultConfig()
	config.InterferenceThreshold = 0.99
	report := New(config, nil).Consolidate(eng, 0, 1)

	assert.Equal(t, 1, report.Hallucinations)

	var synthesis *memory.Memory
	for _, m := range eng.Store().All() {
		if m.Hallucinated {
			synthesis = m
			break
		}
	}
	require.NotNil(t, synthesis)
	assert.True(t, strings.HasPrefix(synthesis.Content, "[hallucination]"))
	assert.Len(t, synthesis.ParentIDs, 3)
	assert.InDelta(t, 0.3, synthesis.Wave.Amplitude, 1e-9,
		"syntheses start weak and must prove themselves")
	assert.Len(t, synthesis.Links, 3, "linked to every parent")

	parent, err := eng.Store().Get(synthesis.ParentIDs[0])
	require.NoError(t, err)
	link := parent.LinkTo(synthesis.ID)
	require.NotNil(t, link, "parents link back to the synthesis")
	assert.InDelta(t, 0.5, link.Strength, 1e-9)
}

func TestHallucinationSkippedWithFewMemories(t *testing.T) {
	eng := newTestEngine(t)
	insertRaw(t, eng, 1, blockVector(0), 0.0, 0, "one")
	insertRaw(t, eng, 2, blockVector(64), 0.0, 0, "two")

	report := New(DefaultConfig(), nil).Consolidate(eng, 0, 1)
	assert.Zero(t, report.Hallucinations)
}

func TestDreamRunsCyclesOfIncreasingDepth(t *testing.T) {
	eng := newTestEngine(t)
	insertRaw(t, eng, 1, blockVector(0), 0.0, 0, "recent thought")
	insertRaw(t, eng, 2, blockVector(64), 0.0, 1, "day old thought")
	insertRaw(t, eng, 3, blockVector(128), 0.0, 2, "week old thought")

	before := eng.Store().Count()
	dreamer := NewDreamer(New(DefaultConfig(), nil), 0, nil)
	reports := dreamer.Dream(eng)

	require.Len(t, reports, DefaultDreamCycles)
	assert.Greater(t, reports[0].MemoriesReplayed, 0, "first cycle covers layers 0-1")
	assert.GreaterOrEqual(t, eng.Store().Count(), before, "dreaming never deletes records")
}
