// Package memory defines the stored unit of the engine: the memory record
// and its outgoing skip links.
//
// Records are owned by the storage backend. Other components hold transient
// references during an operation and write mutations back through the
// backend's mutable accessor; they never keep a long-lived alias.
package memory

import (
	"time"

	"github.com/hypermem/hypermem-go/pkg/classify"
	"github.com/hypermem/hypermem-go/pkg/hdc"
)

// SkipLink is a directed, weighted edge to another memory.
//
// Links are created in reciprocal pairs (A→B and B→A) except for rare
// asymmetric synthesis cases. Duplicate edges to the same target are merged
// at creation time, keeping the stronger edge.
type SkipLink struct {
	// TargetID identifies the linked memory.
	TargetID int64 `json:"target_id"`

	// Strength is the edge weight, roughly in [0, 1].
	Strength float64 `json:"strength"`

	// Resonance is an optional descriptor vector. Currently carried as
	// payload only; nothing reads it yet.
	Resonance []float64 `json:"resonance,omitempty"`

	// Span is the absolute temporal-layer difference at creation time.
	Span int `json:"span"`
}

// Memory is the atomic stored unit: a unit-length hypervector plus the wave,
// graph, and provenance state that everything else mutates.
type Memory struct {
	// ID is the unique snowflake identifier.
	ID int64 `json:"id"`

	// Vector is the unit-length hypervector representation.
	Vector []float64 `json:"vector"`

	// Wave holds the oscillation parameters that modulate strength over time.
	Wave hdc.Wave `json:"wave"`

	// CreatedAt is the creation timestamp.
	CreatedAt time.Time `json:"created_at"`

	// Layer is the temporal bucket, 0 = newest. Consolidation promotes
	// records to deeper layers as they age.
	Layer int `json:"layer"`

	// Links is the ordered list of outgoing skip links.
	Links []SkipLink `json:"links,omitempty"`

	// Content is the original free text (or a synthetic tag for audio and
	// hallucinated records).
	Content string `json:"content"`

	// Hallucinated marks records synthesized by consolidation rather than
	// directly remembered.
	Hallucinated bool `json:"hallucinated,omitempty"`

	// ParentIDs lists the source memories of a synthesized record.
	ParentIDs []int64 `json:"parent_ids,omitempty"`

	// Category is the classifier's coarse label, empty when unclassified.
	Category string `json:"category,omitempty"`

	// Coordinates is the classifier's geometric placement, nil when
	// unclassified.
	Coordinates *classify.Coordinates `json:"coordinates,omitempty"`

	// XiSignature is the differentiation signature derived from Vector.
	// Empty on records loaded from old snapshots until recomputed.
	XiSignature []float64 `json:"xi_signature,omitempty"`
}

// EffectiveStrength evaluates the record's wave-modulated strength at now.
func (m *Memory) EffectiveStrength(now time.Time) float64 {
	return m.Wave.StrengthAt(m.CreatedAt, now)
}

// AddLink appends a link to target, merging with an existing edge to the
// same target by keeping the higher strength. Returns true if a new edge was
// created.
func (m *Memory) AddLink(link SkipLink) bool {
	for i := range m.Links {
		if m.Links[i].TargetID == link.TargetID {
			if link.Strength > m.Links[i].Strength {
				m.Links[i].Strength = link.Strength
			}
			return false
		}
	}
	m.Links = append(m.Links, link)
	return true
}

// LinkTo returns a pointer to the link targeting id, or nil if none exists.
func (m *Memory) LinkTo(id int64) *SkipLink {
	for i := range m.Links {
		if m.Links[i].TargetID == id {
			return &m.Links[i]
		}
	}
	return nil
}

// RemoveLink deletes any edge targeting id. Returns true if one was removed.
func (m *Memory) RemoveLink(id int64) bool {
	for i := range m.Links {
		if m.Links[i].TargetID == id {
			m.Links = append(m.Links[:i], m.Links[i+1:]...)
			return true
		}
	}
	return false
}
