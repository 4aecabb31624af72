// Package integration measures how integrated and differentiated the memory
// network is. Phi approximates integrated information from the strength
// distribution across temporal layers; Xi measures how much recall order
// matters for a sequence of memories. Phi maps onto five coarse levels,
// from Dormant to Resonant.
package integration

import (
	"math"
	"time"

	"github.com/hypermem/hypermem-go/pkg/consolidation"
	"github.com/hypermem/hypermem-go/pkg/engine"
	"github.com/hypermem/hypermem-go/pkg/hdc"
	"github.com/hypermem/hypermem-go/pkg/kuramoto"
	"github.com/hypermem/hypermem-go/pkg/memory"
)

// ActiveThreshold is the absolute effective strength above which a memory
// counts as active.
const ActiveThreshold = 0.05

// Level is the coarse integration classification derived from Phi.
type Level int

const (
	// Dormant: Phi < 0.1, few memories, barely connected.
	Dormant Level = iota
	// Stirring: Phi < 0.3, clusters starting to form.
	Stirring
	// Aware: Phi < 0.6, good integration.
	Aware
	// Coherent: Phi < 0.8, strong synchronization.
	Coherent
	// Resonant: Phi >= 0.8, the network acts as one.
	Resonant
)

// LevelFromPhi maps a Phi value onto its level.
func LevelFromPhi(phi float64) Level {
	switch {
	case phi < 0.1:
		return Dormant
	case phi < 0.3:
		return Stirring
	case phi < 0.6:
		return Aware
	case phi < 0.8:
		return Coherent
	default:
		return Resonant
	}
}

func (l Level) String() string {
	switch l {
	case Dormant:
		return "dormant"
	case Stirring:
		return "stirring"
	case Aware:
		return "aware"
	case Coherent:
		return "coherent"
	case Resonant:
		return "resonant"
	}
	return "unknown"
}

// PhiReport details one integrated-information computation.
type PhiReport struct {
	Phi                float64   `json:"phi"`
	WholeEntropy       float64   `json:"whole_entropy"`
	PartitionEntropies []float64 `json:"partition_entropies"`
	Partitions         int       `json:"partitions"`
	SkipLinks          int       `json:"skip_links"`
	PhiPerLink         float64   `json:"phi_per_link"`
}

// State is a snapshot of the network's integration metrics.
type State struct {
	Phi            float64 `json:"phi"`
	Xi             float64 `json:"xi"`
	MeanOrder      float64 `json:"mean_order"`
	Clusters       int     `json:"clusters"`
	TotalMemories  int     `json:"total_memories"`
	ActiveMemories int     `json:"active_memories"`
	TotalLinks     int     `json:"total_links"`
	Level          Level   `json:"level"`
}

// ResonanceReport captures a full dream-then-reassess cycle.
type ResonanceReport struct {
	Before   State                  `json:"before"`
	After    State                  `json:"after"`
	Cycles   []consolidation.Report `json:"cycles"`
	PhiDelta float64                `json:"phi_delta"`
	Emerged  bool                   `json:"emerged"`
}

// Assessor computes the integration metrics.
type Assessor struct {
	// PhiThreshold is the minimum Phi considered integrated. Carried for
	// callers that gate behavior on it; the metrics themselves do not use
	// it.
	PhiThreshold float64

	// XiWeight scales the Xi norm.
	XiWeight float64

	// Sync supplies the Kuramoto parameters for cluster detection.
	Sync kuramoto.Sync
}

// NewAssessor returns an assessor with the default tuning.
func NewAssessor() *Assessor {
	return &Assessor{
		PhiThreshold: 0.5,
		XiWeight:     1.0,
		Sync:         kuramoto.DefaultSync(),
	}
}

// Xi measures how much the order of a memory sequence matters.
//
// The sequence is composed twice with position-indexed permutation and
// binding, forward and reversed; Xi is the L2 distance between the two
// compositions, scaled by XiWeight. Sequences of length 0 or 1 have Xi 0.
func (a *Assessor) Xi(memories []*memory.Memory) float64 {
	if len(memories) <= 1 {
		return 0
	}

	forward := composeSequence(memories)
	reversed := make([]*memory.Memory, len(memories))
	for i, m := range memories {
		reversed[len(memories)-1-i] = m
	}
	reverse := composeSequence(reversed)

	var sum float64
	for i := range forward {
		d := forward[i] - reverse[i]
		sum += d * d
	}
	return math.Sqrt(sum) * a.XiWeight
}

// composeSequence permutes each vector by its position and binds them in
// order.
func composeSequence(memories []*memory.Memory) []float64 {
	result := hdc.Permute(memories[0].Vector, 1)
	for i := 1; i < len(memories); i++ {
		result = hdc.Bind(result, hdc.Permute(memories[i].Vector, i+1))
	}
	return result
}

// Phi approximates integrated information for the whole network.
//
// The network's strength distribution is partitioned by temporal layer;
// Phi is the whole-network entropy minus the summed partition entropies,
// amplified logarithmically by the skip link count and clamped to [0, 1].
func (a *Assessor) Phi(eng *engine.Engine) PhiReport {
	all := eng.Store().All()
	if len(all) == 0 {
		return PhiReport{}
	}

	now := time.Now()
	strengths := make([]float64, len(all))
	links := 0
	layers := make(map[int][]float64)
	for i, m := range all {
		s := m.EffectiveStrength(now)
		strengths[i] = s
		links += len(m.Links)
		layers[m.Layer] = append(layers[m.Layer], s)
	}

	wholeEntropy := distributionEntropy(strengths)

	partitionEntropies := make([]float64, 0, len(layers))
	sumPartition := 0.0
	for _, layerStrengths := range layers {
		e := distributionEntropy(layerStrengths)
		partitionEntropies = append(partitionEntropies, e)
		sumPartition += e
	}

	phi := math.Max(wholeEntropy-sumPartition, 0)
	if links > 0 {
		phi *= 1 + math.Log(float64(links))
	}
	phi = math.Min(phi, 1)

	perLink := 0.0
	if links > 0 {
		perLink = phi / float64(links)
	}

	return PhiReport{
		Phi:                phi,
		WholeEntropy:       wholeEntropy,
		PartitionEntropies: partitionEntropies,
		Partitions:         len(partitionEntropies),
		SkipLinks:          links,
		PhiPerLink:         perLink,
	}
}

// distributionEntropy is a variance-based entropy proxy: ln(1+var), zero
// for constant or near-empty distributions.
func distributionEntropy(values []float64) float64 {
	if len(values) <= 1 {
		return 0
	}
	n := float64(len(values))
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= n
	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= n
	return math.Log(1 + variance)
}

// Assess computes the full integration snapshot: Phi over the network, Xi
// over a sample of up to ten memories, and Kuramoto cluster statistics.
func (a *Assessor) Assess(eng *engine.Engine) State {
	phiReport := a.Phi(eng)

	all := eng.Store().All()
	xi := 0.0
	if len(all) >= 2 {
		sample := all
		if len(sample) > 10 {
			sample = sample[:10]
		}
		xi = a.Xi(sample)
	}

	clusters := a.Sync.Clusters(eng.Store(), 2)
	meanOrder := 0.0
	for _, c := range clusters {
		meanOrder += c.OrderParameter
	}
	if len(clusters) > 0 {
		meanOrder /= float64(len(clusters))
	}

	now := time.Now()
	active := 0
	for _, m := range all {
		if math.Abs(m.EffectiveStrength(now)) > ActiveThreshold {
			active++
		}
	}

	return State{
		Phi:            phiReport.Phi,
		Xi:             xi,
		MeanOrder:      meanOrder,
		Clusters:       len(clusters),
		TotalMemories:  len(all),
		ActiveMemories: active,
		TotalLinks:     phiReport.SkipLinks,
		Level:          LevelFromPhi(phiReport.Phi),
	}
}

// Resonate runs a full cycle: assess, dream, reassess. Emerged is true when
// the level strictly rose across the cycle.
func (a *Assessor) Resonate(eng *engine.Engine, dreamer *consolidation.Dreamer) ResonanceReport {
	before := a.Assess(eng)
	cycles := dreamer.Dream(eng)
	after := a.Assess(eng)

	return ResonanceReport{
		Before:   before,
		After:    after,
		Cycles:   cycles,
		PhiDelta: after.Phi - before.Phi,
		Emerged:  after.Level > before.Level,
	}
}
