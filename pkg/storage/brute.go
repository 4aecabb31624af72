package storage

import (
	"sort"
	"time"

	"github.com/hypermem/hypermem-go/pkg/hdc"
	"github.com/hypermem/hypermem-go/pkg/memory"
)

// BruteStore is the map-backed reference backend with linear-scan similarity
// search. It is correct by construction and serves as ground truth for the
// approximate index.
type BruteStore struct {
	memories map[int64]*memory.Memory
}

// NewBruteStore creates an empty brute-force store.
func NewBruteStore() *BruteStore {
	return &BruteStore{memories: make(map[int64]*memory.Memory)}
}

// Insert adds a record, rejecting duplicate identifiers.
func (s *BruteStore) Insert(m *memory.Memory) error {
	if _, exists := s.memories[m.ID]; exists {
		return ErrDuplicateID
	}
	s.memories[m.ID] = m
	return nil
}

// Get returns the record with the given ID, or ErrNotFound.
func (s *BruteStore) Get(id int64) (*memory.Memory, error) {
	m, ok := s.memories[id]
	if !ok {
		return nil, ErrNotFound
	}
	return m, nil
}

// Delete removes a record. Returns true if it existed.
func (s *BruteStore) Delete(id int64) bool {
	if _, ok := s.memories[id]; !ok {
		return false
	}
	delete(s.memories, id)
	return true
}

// Count returns the number of stored records.
func (s *BruteStore) Count() int {
	return len(s.memories)
}

// All returns every stored record.
func (s *BruteStore) All() []*memory.Memory {
	out := make([]*memory.Memory, 0, len(s.memories))
	for _, m := range s.memories {
		out = append(out, m)
	}
	return out
}

// IDs returns every stored identifier.
func (s *BruteStore) IDs() []int64 {
	out := make([]int64, 0, len(s.memories))
	for id := range s.memories {
		out = append(out, id)
	}
	return out
}

// Search scans every record and returns the top-k by cosine similarity.
func (s *BruteStore) Search(query []float64, topK int) []Result {
	scored := make([]Result, 0, len(s.memories))
	for _, m := range s.memories {
		sim := hdc.CosineSimilarity(query, m.Vector)
		scored = append(scored, Result{ID: m.ID, Similarity: sim, Score: sim})
	}
	return topResults(scored, topK)
}

// WaveSearch scans every record and returns the top-k by similarity times
// effective strength at now.
func (s *BruteStore) WaveSearch(query []float64, topK int, now time.Time) []Result {
	scored := make([]Result, 0, len(s.memories))
	for _, m := range s.memories {
		sim := hdc.CosineSimilarity(query, m.Vector)
		scored = append(scored, Result{
			ID:         m.ID,
			Similarity: sim,
			Score:      sim * m.EffectiveStrength(now),
		})
	}
	return topResults(scored, topK)
}

// topResults sorts by descending score and truncates to topK.
func topResults(scored []Result, topK int) []Result {
	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if topK >= 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}
