package integration

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypermem/hypermem-go/pkg/classify"
	"github.com/hypermem/hypermem-go/pkg/codebook"
	"github.com/hypermem/hypermem-go/pkg/consolidation"
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

	cb := codebook.New(128, testDim, 42)
	pipe, err := encoding.NewPipeline(cb, encoding.NewHashEmbedder(128, 42), nil, node)
	require.NoError(t, err)

	return engine.New(storage.NewBruteStore(), pipe, classify.NewHeuristic(), engine.DefaultConfig())
}

func insertRaw(t *testing.T, eng *engine.Engine, id int64, vector []float64, layer int, content string) *memory.Memory {
	t.Helper()
	m := &memory.Memory{
		ID:        id,
		Vector:    vector,
		Wave:      hdc.Wave{Amplitude: 1.0, Frequency: 0, Phase: 0, DecayRate: 0},
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

// denseVector builds a deterministic dense unit vector; binding dense
// vectors keeps every component populated, unlike the sparse block vectors.
func denseVector(seed uint64) []float64 {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	v := make([]float64, testDim)
	for i := range v {
		v[i] = rng.Float64()*2 - 1
	}
	return hdc.Normalized(v)
}

func rawMemory(id int64, vector []float64) *memory.Memory {
	return &memory.Memory{
		ID:        id,
		Vector:    vector,
		Wave:      hdc.DefaultWave(),
		CreatedAt: time.Now(),
	}
}

func TestXiSingleMemoryIsZero(t *testing.T) {
	a := NewAssessor()
	assert.Zero(t, a.Xi([]*memory.Memory{rawMemory(1, denseVector(1))}))
	assert.Zero(t, a.Xi(nil))
}

func TestXiOrderedSequenceNonZero(t *testing.T) {
	a := NewAssessor()
	mems := []*memory.Memory{
		rawMemory(1, denseVector(1)),
		rawMemory(2, denseVector(2)),
		rawMemory(3, denseVector(3)),
	}
	assert.Greater(t, a.Xi(mems), 0.0, "distinct sequences should differentiate")
}

func TestXiSymmetricUnderReversal(t *testing.T) {
	a := NewAssessor()
	mems := []*memory.Memory{
		rawMemory(1, denseVector(1)),
		rawMemory(2, denseVector(2)),
		rawMemory(3, denseVector(3)),
	}
	reversed := []*memory.Memory{mems[2], mems[1], mems[0]}
	assert.InDelta(t, a.Xi(mems), a.Xi(reversed), 1e-9,
		"forward and reverse distance is the same either way around")
}

func TestPhiEmptyStore(t *testing.T) {
	eng := newTestEngine(t)
	report := NewAssessor().Phi(eng)
	assert.Zero(t, report.Phi)
	assert.Zero(t, report.SkipLinks)
}

func TestPhiLinkedNetworkAtLeastIsolated(t *testing.T) {
	a := NewAssessor()

	isolated := newTestEngine(t)
	insertRaw(t, isolated, 1, blockVector(0), 0, "fact one")
	insertRaw(t, isolated, 2, blockVector(64), 1, "fact two")
	insertRaw(t, isolated, 3, blockVector(128), 2, "fact three")
	phiIsolated := a.Phi(isolated)

	linked := newTestEngine(t)
	m1 := insertRaw(t, linked, 1, blockVector(0), 0, "fact one")
	m2 := insertRaw(t, linked, 2, blockVector(64), 1, "fact two")
	m3 := insertRaw(t, linked, 3, blockVector(128), 2, "fact three")
	require.NoError(t, linked.Relate(m1.ID, m2.ID, 0.8))
	require.NoError(t, linked.Relate(m2.ID, m3.ID, 0.8))
	phiLinked := a.Phi(linked)

	assert.Equal(t, 4, phiLinked.SkipLinks, "relate wires both directions")
	assert.GreaterOrEqual(t, phiLinked.Phi, phiIsolated.Phi)
}

func TestLevelFromPhi(t *testing.T) {
	cases := []struct {
		phi  float64
		want Level
	}{
		{0.0, Dormant},
		{0.05, Dormant},
		{0.1, Stirring},
		{0.29, Stirring},
		{0.3, Aware},
		{0.59, Aware},
		{0.6, Coherent},
		{0.79, Coherent},
		{0.8, Resonant},
		{1.0, Resonant},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, LevelFromPhi(tc.phi), "phi=%v", tc.phi)
	}
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "dormant", Dormant.String())
	assert.Equal(t, "resonant", Resonant.String())
}

func TestAssessReturnsValidState(t *testing.T) {
	eng := newTestEngine(t)
	insertRaw(t, eng, 1, blockVector(0), 0, "hello world")
	insertRaw(t, eng, 2, blockVector(64), 1, "hello there")

	state := NewAssessor().Assess(eng)
	assert.Equal(t, 2, state.TotalMemories)
	assert.Equal(t, 2, state.ActiveMemories)
	assert.GreaterOrEqual(t, state.Phi, 0.0)
	assert.Equal(t, LevelFromPhi(state.Phi), state.Level)
}

func TestResonateProducesReport(t *testing.T) {
	eng := newTestEngine(t)
	for i := int64(0); i < 6; i++ {
		insertRaw(t, eng, i+1, blockVector(int(i%3)*64), int(i%3), "topic memory")
	}

	dreamer := consolidation.NewDreamer(
		consolidation.New(consolidation.DefaultConfig(), nil),
		consolidation.DefaultDreamCycles, nil)
	report := NewAssessor().Resonate(eng, dreamer)

	assert.Len(t, report.Cycles, consolidation.DefaultDreamCycles)
	assert.GreaterOrEqual(t, report.After.TotalMemories, report.Before.TotalMemories)
	assert.InDelta(t, report.After.Phi-report.Before.Phi, report.PhiDelta, 1e-9)
}

func TestTopologyReportCounts(t *testing.T) {
	eng := newTestEngine(t)
	m1 := insertRaw(t, eng, 1, blockVector(0), 0, "linked one")
	m2 := insertRaw(t, eng, 2, blockVector(0), 2, "linked two")
	insertRaw(t, eng, 3, blockVector(128), 1, "loner")
	require.NoError(t, eng.Relate(m1.ID, m2.ID, 0.9))

	report := Topology(eng)
	assert.Equal(t, 3, report.TotalMemories)
	assert.Equal(t, 1, report.TotalLinks)
	assert.Equal(t, 1, report.IsolatedMemories)
	assert.Equal(t, 1, report.MaxLinks)
	assert.Len(t, report.LayerDistribution, 3)
	require.NotEmpty(t, report.StrongestLinks)
	assert.InDelta(t, 0.9, report.StrongestLinks[0].Strength, 1e-9)
}

func TestWaveReportCategorizes(t *testing.T) {
	eng := newTestEngine(t)
	insertRaw(t, eng, 1, blockVector(0), 0, "active memory")
	ghost := insertRaw(t, eng, 2, blockVector(64), 0, "ghost memory")
	ghost.Wave.Amplitude = 0.0
	dormant := insertRaw(t, eng, 3, blockVector(128), 0, "dormant memory")
	dormant.Wave.Amplitude = 0.002

	report := Waves(eng, time.Now())
	assert.Equal(t, 1, report.ActiveMemories)
	assert.Equal(t, 1, report.DormantMemories)
	assert.Equal(t, 1, report.GhostMemories)
	require.NotEmpty(t, report.Strongest)
	assert.Equal(t, int64(1), report.Strongest[0].ID)
}

func TestClusterSummaryFindsClusters(t *testing.T) {
	eng := newTestEngine(t)
	for i := int64(0); i < 4; i++ {
		insertRaw(t, eng, i+1, blockVector(0), 0, "cluster member")
	}

	report := NewAssessor().ClusterSummary(eng)
	assert.Equal(t, 1, report.Clusters)
	assert.Equal(t, 4, report.LargestClusterSize)
	assert.Greater(t, report.MeanOrderParameter, 0.7)
	require.Len(t, report.Details, 1)
	assert.Equal(t, "cluster member", report.Details[0].Theme)
}

func TestFullReportSectionsPopulated(t *testing.T) {
	eng := newTestEngine(t)
	insertRaw(t, eng, 1, blockVector(0), 0, "hello world")
	insertRaw(t, eng, 2, blockVector(0), 1, "hello there world")

	report := NewAssessor().FullReport(eng)
	assert.Equal(t, 2, report.Topology.TotalMemories)
	assert.Equal(t, 2, report.Waves.ActiveMemories)
	assert.True(t, report.Health.StoreAccessible)
	assert.True(t, report.Health.EncodingOK)

	text := Format(report)
	for _, section := range []string{"INTEGRATION", "WAVE DYNAMICS", "TOPOLOGY", "CLUSTERS", "HEALTH"} {
		assert.Contains(t, text, section)
	}
}
