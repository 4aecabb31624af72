// Package kuramoto implements Kuramoto phase synchronization over memory
// oscillators. Clusters of related memories phase-lock into coherent
// narratives; the order parameter r measures collective coherence, where
// r=1 means perfect sync and r≈0 means incoherent.
package kuramoto

import (
	"math"

	"github.com/hypermem/hypermem-go/pkg/hdc"
	"github.com/hypermem/hypermem-go/pkg/memory"
	"github.com/hypermem/hypermem-go/pkg/storage"
)

// Sync drives Kuramoto integration on sets of memory oscillators.
type Sync struct {
	// CouplingStrength is the base coupling constant K.
	CouplingStrength float64
	// Dt is the Euler integration time step.
	Dt float64
	// Steps caps integration steps per sync round.
	Steps int
	// CouplingThreshold is the minimum cosine similarity for two
	// memories to be considered coupled.
	CouplingThreshold float64
}

// DefaultSync returns a Sync with the standard tuning.
//
// Returns:
//   - Sync: K=0.5, dt=0.1, 10 steps, coupling threshold 0.5.
func DefaultSync() Sync {
	return Sync{
		CouplingStrength:  0.5,
		Dt:                0.1,
		Steps:             10,
		CouplingThreshold: 0.5,
	}
}

// Cluster is a phase-locked group of memories.
type Cluster struct {
	MemoryIDs      []int64   `json:"memory_ids"`
	OrderParameter float64   `json:"order_parameter"`
	MeanPhase      float64   `json:"mean_phase"`
	Coherence      float64   `json:"coherence"`
	Theme          []float64 `json:"theme"`
}

// Report summarizes one SyncCluster run.
type Report struct {
	MemoriesSynced int     `json:"memories_synced"`
	InitialOrder   float64 `json:"initial_order"`
	FinalOrder     float64 `json:"final_order"`
	StepsTaken     int     `json:"steps_taken"`
	Converged      bool    `json:"converged"`
}

// OrderParameter computes r = |1/N Σ e^(iφⱼ)| over the given memories.
// An empty slice yields 0.
func OrderParameter(memories []*memory.Memory) float64 {
	if len(memories) == 0 {
		return 0
	}
	var sumCos, sumSin float64
	for _, m := range memories {
		sumCos += math.Cos(m.Wave.Phase)
		sumSin += math.Sin(m.Wave.Phase)
	}
	n := float64(len(memories))
	return math.Hypot(sumCos/n, sumSin/n)
}

// MeanPhase computes the circular mean phase of the given memories.
func MeanPhase(memories []*memory.Memory) float64 {
	var sumCos, sumSin float64
	for _, m := range memories {
		sumCos += math.Cos(m.Wave.Phase)
		sumSin += math.Sin(m.Wave.Phase)
	}
	return math.Atan2(sumSin, sumCos)
}

// SyncCluster runs Kuramoto integration on a cluster of memories,
// updating each memory's phase in place.
//
// Coupling weight between two memories is their cosine similarity when it
// exceeds CouplingThreshold, boosted by (1+strength) for each skip link
// between the pair. Integration stops early once the order parameter
// changes by less than 1e-6 between steps.
//
// Parameters:
//   - memories: oscillators to synchronize, phases mutated in place.
//
// Returns:
//   - Report: order parameter before and after, steps taken, convergence.
func (s Sync) SyncCluster(memories []*memory.Memory) Report {
	n := len(memories)
	if n < 2 {
		return Report{
			MemoriesSynced: n,
			InitialOrder:   1.0,
			FinalOrder:     1.0,
			Converged:      true,
		}
	}

	weights := make([][]float64, n)
	for i := range weights {
		weights[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sim := hdc.CosineSimilarity(memories[i].Vector, memories[j].Vector)
			if sim <= s.CouplingThreshold {
				continue
			}
			w := sim
			for _, link := range memories[i].Links {
				if link.TargetID == memories[j].ID {
					w *= 1.0 + link.Strength
					break
				}
			}
			for _, link := range memories[j].Links {
				if link.TargetID == memories[i].ID {
					w *= 1.0 + link.Strength
					break
				}
			}
			weights[i][j] = w
			weights[j][i] = w
		}
	}

	initialOrder := OrderParameter(memories)
	prevOrder := initialOrder
	nf := float64(n)

	dphi := make([]float64, n)
	for step := 0; step < s.Steps; step++ {
		for i := 0; i < n; i++ {
			var couplingSum float64
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}
				couplingSum += weights[i][j] * math.Sin(memories[j].Wave.Phase-memories[i].Wave.Phase)
			}
			dphi[i] = memories[i].Wave.Frequency + (s.CouplingStrength/nf)*couplingSum
		}
		for i := 0; i < n; i++ {
			memories[i].Wave.Phase += dphi[i] * s.Dt
		}

		currentOrder := OrderParameter(memories)
		if step > 0 && math.Abs(currentOrder-prevOrder) < 1e-6 {
			return Report{
				MemoriesSynced: n,
				InitialOrder:   initialOrder,
				FinalOrder:     currentOrder,
				StepsTaken:     step + 1,
				Converged:      true,
			}
		}
		prevOrder = currentOrder
	}

	return Report{
		MemoriesSynced: n,
		InitialOrder:   initialOrder,
		FinalOrder:     OrderParameter(memories),
		StepsTaken:     s.Steps,
		Converged:      false,
	}
}

// Clusters finds groups of memories that have phase-locked.
//
// Connected components are built over the similarity graph (edges where
// cosine similarity exceeds CouplingThreshold); components smaller than
// minSize or with order parameter at or below 0.3 are dropped. Each
// cluster's theme is the bundled vector of its members.
func (s Sync) Clusters(store storage.Store, minSize int) []Cluster {
	all := store.All()
	n := len(all)
	if n < minSize {
		return nil
	}

	adj := make([][]int, n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if hdc.CosineSimilarity(all[i].Vector, all[j].Vector) > s.CouplingThreshold {
				adj[i] = append(adj[i], j)
				adj[j] = append(adj[j], i)
			}
		}
	}

	visited := make([]bool, n)
	var clusters []Cluster

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
			for _, neighbor := range adj[node] {
				if !visited[neighbor] {
					visited[neighbor] = true
					component = append(component, neighbor)
					queue = append(queue, neighbor)
				}
			}
		}

		if len(component) < minSize {
			continue
		}

		members := make([]*memory.Memory, len(component))
		for i, idx := range component {
			members[i] = all[idx]
		}

		r := OrderParameter(members)
		if r <= 0.3 {
			continue
		}

		vectors := make([][]float64, len(members))
		ids := make([]int64, len(members))
		for i, m := range members {
			vectors[i] = m.Vector
			ids[i] = m.ID
		}

		clusters = append(clusters, Cluster{
			MemoryIDs:      ids,
			OrderParameter: r,
			MeanPhase:      MeanPhase(members),
			Coherence:      r,
			Theme:          hdc.Bundle(vectors...),
		})
	}

	return clusters
}
