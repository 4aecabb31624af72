package storage

import (
	"container/heap"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/hypermem/hypermem-go/pkg/hdc"
	"github.com/hypermem/hypermem-go/pkg/memory"
)

// HNSW defaults.
const (
	// DefaultMaxLayers caps the index's layer count.
	DefaultMaxLayers = 6

	// DefaultEfConstruction is the beam width for inserts.
	DefaultEfConstruction = 200

	// DefaultEfSearch is the beam width for queries.
	DefaultEfSearch = 50

	// DefaultM is the neighbor budget per node on layers above 0. Layer 0
	// allows 2M neighbors.
	DefaultM = 16

	// HNSWThreshold is the record count below which the HNSW store falls
	// back to a brute-force scan; the index is not worth its recall loss on
	// small collections.
	HNSWThreshold = 100
)

// candidate is one scored node during search.
type candidate struct {
	id  int64
	sim float64
}

// maxCandHeap pops the most similar candidate first.
type maxCandHeap []candidate

func (h maxCandHeap) Len() int            { return len(h) }
func (h maxCandHeap) Less(i, j int) bool  { return h[i].sim > h[j].sim }
func (h maxCandHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *maxCandHeap) Push(x interface{}) { *h = append(*h, x.(candidate)) }
func (h *maxCandHeap) Pop() interface{} {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}

// minCandHeap pops the least similar candidate first, keeping the worst kept
// result on top.
type minCandHeap []candidate

func (h minCandHeap) Len() int            { return len(h) }
func (h minCandHeap) Less(i, j int) bool  { return h[i].sim < h[j].sim }
func (h minCandHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minCandHeap) Push(x interface{}) { *h = append(*h, x.(candidate)) }
func (h *minCandHeap) Pop() interface{} {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}

// hnswNode is one vector in the index with its per-layer neighbor lists.
type hnswNode struct {
	id        int64
	vector    []float64
	neighbors [][]int64 // neighbors[layer]
	level     int
}

// hnswIndex is a lightweight hierarchical navigable small world graph for
// approximate nearest neighbor search.
type hnswIndex struct {
	maxLayers      int
	efConstruction int
	efSearch       int
	m              int
	mMax0          int
	ml             float64 // level normalization factor, 1/ln(M)

	nodes      map[int64]*hnswNode
	entryPoint int64
	hasEntry   bool
	maxLevel   int

	rng *rand.Rand
}

// newHNSWIndex creates an index with the given parameters. The seed fixes
// the level-assignment sequence, which keeps tests reproducible.
func newHNSWIndex(maxLayers, efConstruction, efSearch, m int, seed uint64) *hnswIndex {
	return &hnswIndex{
		maxLayers:      maxLayers,
		efConstruction: efConstruction,
		efSearch:       efSearch,
		m:              m,
		mMax0:          m * 2,
		ml:             1.0 / math.Log(float64(m)),
		nodes:          make(map[int64]*hnswNode),
		rng:            rand.New(rand.NewPCG(seed, seed^0xda3e39cb94b95bdb)),
	}
}

// randomLevel draws a level from the exponential distribution
// floor(−ln(U)·ml), capped at maxLayers−1.
func (idx *hnswIndex) randomLevel() int {
	r := idx.rng.Float64()
	for r == 0 {
		r = idx.rng.Float64()
	}
	level := int(math.Floor(-math.Log(r) * idx.ml))
	if level > idx.maxLayers-1 {
		level = idx.maxLayers - 1
	}
	return level
}

// insert adds a vector to the index.
func (idx *hnswIndex) insert(id int64, vector []float64) {
	level := idx.randomLevel()

	node := &hnswNode{
		id:        id,
		vector:    vector,
		neighbors: make([][]int64, level+1),
		level:     level,
	}

	if !idx.hasEntry {
		idx.entryPoint = id
		idx.hasEntry = true
		idx.maxLevel = level
		idx.nodes[id] = node
		return
	}

	ep := idx.entryPoint
	idx.nodes[id] = node

	// Greedy descent through layers above the new node's level.
	currentEP := ep
	for lc := idx.maxLevel; lc > level; lc-- {
		currentEP = idx.greedyClosest(vector, currentEP, lc)
	}

	// Insert at each layer from min(level, maxLevel) down to 0.
	startLayer := level
	if idx.maxLevel < startLayer {
		startLayer = idx.maxLevel
	}
	epSet := []int64{currentEP}

	for lc := startLayer; lc >= 0; lc-- {
		mMax := idx.m
		if lc == 0 {
			mMax = idx.mMax0
		}

		candidates := idx.searchLayer(vector, epSet, idx.efConstruction, lc)

		limit := mMax
		if limit > len(candidates) {
			limit = len(candidates)
		}
		neighbors := make([]int64, limit)
		for i := 0; i < limit; i++ {
			neighbors[i] = candidates[i].id
		}
		node.neighbors[lc] = neighbors

		// Bidirectional connections, pruning over-full neighbor lists.
		for _, nbID := range neighbors {
			nb, ok := idx.nodes[nbID]
			if !ok || lc > nb.level {
				continue
			}
			if !containsID(nb.neighbors[lc], id) {
				nb.neighbors[lc] = append(nb.neighbors[lc], id)
				if len(nb.neighbors[lc]) > mMax {
					idx.pruneNeighbors(nb, lc, mMax)
				}
			}
		}

		epSet = make([]int64, 0, len(candidates))
		for _, c := range candidates {
			epSet = append(epSet, c.id)
		}
	}

	if level > idx.maxLevel {
		idx.entryPoint = id
		idx.maxLevel = level
	}
}

// pruneNeighbors keeps a node's mMax most similar neighbors at a layer.
func (idx *hnswIndex) pruneNeighbors(node *hnswNode, layer, mMax int) {
	scored := make([]candidate, 0, len(node.neighbors[layer]))
	for _, nbID := range node.neighbors[layer] {
		nb, ok := idx.nodes[nbID]
		if !ok {
			continue
		}
		scored = append(scored, candidate{id: nbID, sim: hdc.CosineSimilarity(node.vector, nb.vector)})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].sim > scored[j].sim })
	if len(scored) > mMax {
		scored = scored[:mMax]
	}

	kept := make([]int64, len(scored))
	for i, c := range scored {
		kept[i] = c.id
	}
	node.neighbors[layer] = kept
}

// greedyClosest follows the single best neighbor at a layer until no
// neighbor improves on the current node.
func (idx *hnswIndex) greedyClosest(query []float64, ep int64, layer int) int64 {
	current := ep
	currentSim := -1.0
	if n, ok := idx.nodes[ep]; ok {
		currentSim = hdc.CosineSimilarity(query, n.vector)
	}

	for {
		node, ok := idx.nodes[current]
		if !ok || layer > node.level {
			break
		}

		changed := false
		for _, nbID := range node.neighbors[layer] {
			nb, ok := idx.nodes[nbID]
			if !ok {
				continue
			}
			if sim := hdc.CosineSimilarity(query, nb.vector); sim > currentSim {
				current = nbID
				currentSim = sim
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return current
}

// searchLayer runs bounded-beam best-first search at one layer, returning up
// to ef candidates sorted by descending similarity.
func (idx *hnswIndex) searchLayer(query []float64, entryPoints []int64, ef, layer int) []candidate {
	visited := make(map[int64]bool)
	candidates := &maxCandHeap{}
	results := &minCandHeap{}
	heap.Init(candidates)
	heap.Init(results)

	for _, ep := range entryPoints {
		if visited[ep] {
			continue
		}
		visited[ep] = true
		n, ok := idx.nodes[ep]
		if !ok {
			continue
		}
		c := candidate{id: ep, sim: hdc.CosineSimilarity(query, n.vector)}
		heap.Push(candidates, c)
		heap.Push(results, c)
	}

	for candidates.Len() > 0 {
		c := heap.Pop(candidates).(candidate)

		// Once the best remaining candidate is worse than the worst kept
		// result, no expansion can improve the result set.
		if results.Len() >= ef && c.sim < (*results)[0].sim {
			break
		}

		node, ok := idx.nodes[c.id]
		if !ok || layer > node.level {
			continue
		}

		for _, nbID := range node.neighbors[layer] {
			if visited[nbID] {
				continue
			}
			visited[nbID] = true
			nb, ok := idx.nodes[nbID]
			if !ok {
				continue
			}

			sim := hdc.CosineSimilarity(query, nb.vector)
			if results.Len() < ef || sim > (*results)[0].sim {
				cand := candidate{id: nbID, sim: sim}
				heap.Push(candidates, cand)
				heap.Push(results, cand)
				if results.Len() > ef {
					heap.Pop(results)
				}
			}
		}
	}

	out := make([]candidate, results.Len())
	copy(out, *results)
	sort.Slice(out, func(i, j int) bool { return out[i].sim > out[j].sim })
	return out
}

// search returns the top-k approximate nearest neighbors of query.
func (idx *hnswIndex) search(query []float64, topK int) []candidate {
	if !idx.hasEntry {
		return nil
	}

	currentEP := idx.entryPoint
	for lc := idx.maxLevel; lc >= 1; lc-- {
		currentEP = idx.greedyClosest(query, currentEP, lc)
	}

	ef := idx.efSearch
	if topK > ef {
		ef = topK
	}
	candidates := idx.searchLayer(query, []int64{currentEP}, ef, 0)
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates
}

// remove deletes a node, strips it from all neighbor lists, and re-elects
// the entry point if needed.
func (idx *hnswIndex) remove(id int64) bool {
	node, ok := idx.nodes[id]
	if !ok {
		return false
	}
	delete(idx.nodes, id)

	for layer, neighbors := range node.neighbors {
		for _, nbID := range neighbors {
			nb, ok := idx.nodes[nbID]
			if !ok || layer > nb.level {
				continue
			}
			nb.neighbors[layer] = removeID(nb.neighbors[layer], id)
		}
	}

	if idx.entryPoint == id {
		idx.hasEntry = false
		idx.maxLevel = 0
		for _, n := range idx.nodes {
			if !idx.hasEntry || n.level > idx.maxLevel {
				idx.entryPoint = n.id
				idx.maxLevel = n.level
				idx.hasEntry = true
			}
		}
	}
	return true
}

func containsID(ids []int64, id int64) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func removeID(ids []int64, id int64) []int64 {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

// HNSWStore is the approximate backend: a record arena plus an HNSW index.
//
// Below HNSWThreshold records it answers queries with a brute-force scan;
// the index only takes over once the collection is large enough for its
// recall tradeoff to pay off. Degraded recall (not exact top-k) is an
// accepted property above the threshold.
type HNSWStore struct {
	memories  map[int64]*memory.Memory
	index     *hnswIndex
	threshold int
}

// NewHNSWStore creates an HNSW-backed store with default parameters.
func NewHNSWStore() *HNSWStore {
	return NewHNSWStoreWithParams(DefaultMaxLayers, DefaultEfConstruction, DefaultEfSearch, DefaultM, rand.Uint64())
}

// NewHNSWStoreWithParams creates an HNSW-backed store with explicit index
// parameters and level-assignment seed.
func NewHNSWStoreWithParams(maxLayers, efConstruction, efSearch, m int, seed uint64) *HNSWStore {
	return &HNSWStore{
		memories:  make(map[int64]*memory.Memory),
		index:     newHNSWIndex(maxLayers, efConstruction, efSearch, m, seed),
		threshold: HNSWThreshold,
	}
}

// Insert adds a record to the arena and the index.
func (s *HNSWStore) Insert(m *memory.Memory) error {
	if _, exists := s.memories[m.ID]; exists {
		return ErrDuplicateID
	}
	s.index.insert(m.ID, m.Vector)
	s.memories[m.ID] = m
	return nil
}

// Get returns the record with the given ID, or ErrNotFound.
func (s *HNSWStore) Get(id int64) (*memory.Memory, error) {
	m, ok := s.memories[id]
	if !ok {
		return nil, ErrNotFound
	}
	return m, nil
}

// Delete removes a record from the arena and the index.
func (s *HNSWStore) Delete(id int64) bool {
	if _, ok := s.memories[id]; !ok {
		return false
	}
	delete(s.memories, id)
	s.index.remove(id)
	return true
}

// Count returns the number of stored records.
func (s *HNSWStore) Count() int {
	return len(s.memories)
}

// All returns every stored record.
func (s *HNSWStore) All() []*memory.Memory {
	out := make([]*memory.Memory, 0, len(s.memories))
	for _, m := range s.memories {
		out = append(out, m)
	}
	return out
}

// IDs returns every stored identifier.
func (s *HNSWStore) IDs() []int64 {
	out := make([]int64, 0, len(s.memories))
	for id := range s.memories {
		out = append(out, id)
	}
	return out
}

// Search returns the top-k records by cosine similarity, via the index once
// the collection exceeds the brute-force threshold.
func (s *HNSWStore) Search(query []float64, topK int) []Result {
	if len(s.memories) < s.threshold {
		return s.bruteSearch(query, topK)
	}

	candidates := s.index.search(query, topK)
	out := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, Result{ID: c.id, Similarity: c.sim, Score: c.sim})
	}
	return out
}

// WaveSearch returns the top-k records by similarity × effective strength.
//
// Above the threshold it over-fetches 3× from the index, then re-ranks the
// candidates by the modulated score.
func (s *HNSWStore) WaveSearch(query []float64, topK int, now time.Time) []Result {
	if len(s.memories) < s.threshold {
		scored := make([]Result, 0, len(s.memories))
		for _, m := range s.memories {
			sim := hdc.CosineSimilarity(query, m.Vector)
			scored = append(scored, Result{ID: m.ID, Similarity: sim, Score: sim * m.EffectiveStrength(now)})
		}
		return topResults(scored, topK)
	}

	candidates := s.index.search(query, topK*3)
	scored := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		m, ok := s.memories[c.id]
		if !ok {
			continue
		}
		scored = append(scored, Result{ID: c.id, Similarity: c.sim, Score: c.sim * m.EffectiveStrength(now)})
	}
	return topResults(scored, topK)
}

func (s *HNSWStore) bruteSearch(query []float64, topK int) []Result {
	scored := make([]Result, 0, len(s.memories))
	for _, m := range s.memories {
		sim := hdc.CosineSimilarity(query, m.Vector)
		scored = append(scored, Result{ID: m.ID, Similarity: sim, Score: sim})
	}
	return topResults(scored, topK)
}
