// Package storage provides the pluggable backend that owns all memory
// records: a brute-force reference implementation and an approximate
// HNSW-backed index.
//
// The backend is the single owner and mutator of record state. Other
// components fetch records through Get, mutate in place, and must not cache
// the pointer across calls that may also mutate the store.
package storage

import (
	"errors"
	"time"

	"github.com/hypermem/hypermem-go/pkg/memory"
)

// Predefined errors for storage operations.
var (
	// ErrNotFound indicates that a requested memory was not found.
	ErrNotFound = errors.New("memory not found")

	// ErrDuplicateID indicates an insert with an identifier that already
	// exists.
	ErrDuplicateID = errors.New("duplicate memory id")
)

// Result is one scored entry from a similarity search.
type Result struct {
	// ID identifies the matched memory.
	ID int64

	// Similarity is the raw cosine similarity to the query.
	Similarity float64

	// Score is the ranking score: equal to Similarity for plain search,
	// similarity × effective strength for wave-modulated search.
	Score float64
}

// Store is the pluggable storage backend for hypervector memories.
//
// Implementations are not safe for concurrent use; the engine serializes
// access. Get returns a pointer into the store's arena, which doubles as the
// mutable accessor: mutate through it within a single operation, never
// across inserts or deletes.
type Store interface {
	// Insert adds a record. Fails with ErrDuplicateID on an existing ID.
	Insert(m *memory.Memory) error

	// Get looks up a record by ID. Fails with ErrNotFound.
	Get(id int64) (*memory.Memory, error)

	// Delete removes a record. Returns true if it existed.
	Delete(id int64) bool

	// Count returns the number of stored records.
	Count() int

	// All returns every stored record, in unspecified order.
	All() []*memory.Memory

	// IDs returns every stored identifier, in unspecified order.
	IDs() []int64

	// Search returns the top-k records by cosine similarity to query.
	Search(query []float64, topK int) []Result

	// WaveSearch returns the top-k records by similarity × effective
	// strength at the given time.
	WaveSearch(query []float64, topK int, now time.Time) []Result
}
