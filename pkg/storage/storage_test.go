package storage

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypermem/hypermem-go/pkg/hdc"
	"github.com/hypermem/hypermem-go/pkg/memory"
)

func randomVector(rng *rand.Rand, dim int) []float64 {
	v := make([]float64, dim)
	for i := range v {
		v[i] = rng.Float64()*2 - 1
	}
	hdc.Normalize(v)
	return v
}

func unitVector(dim, index int) []float64 {
	v := make([]float64, dim)
	v[index] = 1.0
	return v
}

func makeMemory(id int64, vector []float64) *memory.Memory {
	return &memory.Memory{
		ID:        id,
		Vector:    vector,
		Wave:      hdc.DefaultWave(),
		CreatedAt: time.Now(),
	}
}

// storeUnderTest lets the same contract tests run against both backends.
func backends() map[string]func() Store {
	return map[string]func() Store{
		"brute": func() Store { return NewBruteStore() },
		"hnsw":  func() Store { return NewHNSWStoreWithParams(6, 200, 50, 16, 1) },
	}
}

func TestStoreInsertGetDelete(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			s := newStore()

			m := makeMemory(1, unitVector(8, 0))
			require.NoError(t, s.Insert(m))
			assert.Equal(t, 1, s.Count())

			// Duplicate IDs are rejected.
			assert.ErrorIs(t, s.Insert(makeMemory(1, unitVector(8, 1))), ErrDuplicateID)

			got, err := s.Get(1)
			require.NoError(t, err)
			assert.Same(t, m, got)

			_, err = s.Get(99)
			assert.ErrorIs(t, err, ErrNotFound)

			assert.True(t, s.Delete(1))
			assert.False(t, s.Delete(1))
			assert.Equal(t, 0, s.Count())
		})
	}
}

func TestStoreGetIsMutableAccessor(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			s := newStore()
			require.NoError(t, s.Insert(makeMemory(1, unitVector(8, 0))))

			m, err := s.Get(1)
			require.NoError(t, err)
			m.Wave.Amplitude = 0.25

			again, err := s.Get(1)
			require.NoError(t, err)
			assert.Equal(t, 0.25, again.Wave.Amplitude)
		})
	}
}

func TestStoreSearchRanksBySimilarity(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			s := newStore()

			require.NoError(t, s.Insert(makeMemory(1, unitVector(8, 0))))
			require.NoError(t, s.Insert(makeMemory(2, unitVector(8, 1))))
			require.NoError(t, s.Insert(makeMemory(3, []float64{0.9, 0.1, 0, 0, 0, 0, 0, 0})))

			results := s.Search(unitVector(8, 0), 2)
			require.Len(t, results, 2)
			assert.Equal(t, int64(1), results[0].ID)
			assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
			assert.Equal(t, int64(3), results[1].ID)
		})
	}
}

func TestStoreWaveSearchModulates(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			s := newStore()
			now := time.Now()

			// Same vector, but one memory is nearly ghosted.
			strong := makeMemory(1, unitVector(8, 0))
			strong.Wave = hdc.Wave{Amplitude: 1.0, Frequency: 0, DecayRate: 0}
			weak := makeMemory(2, unitVector(8, 0))
			weak.Wave = hdc.Wave{Amplitude: 0.01, Frequency: 0, DecayRate: 0}

			require.NoError(t, s.Insert(strong))
			require.NoError(t, s.Insert(weak))

			results := s.WaveSearch(unitVector(8, 0), 2, now)
			require.Len(t, results, 2)
			assert.Equal(t, int64(1), results[0].ID, "higher amplitude should rank first")
			assert.Greater(t, results[0].Score, results[1].Score)

			// Raw similarity is identical; only the modulated score differs.
			assert.InDelta(t, results[0].Similarity, results[1].Similarity, 1e-6)
		})
	}
}

func TestStoreAllAndIDs(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			s := newStore()
			for i := int64(1); i <= 5; i++ {
				require.NoError(t, s.Insert(makeMemory(i, unitVector(8, int(i%8)))))
			}

			assert.Len(t, s.All(), 5)
			assert.ElementsMatch(t, []int64{1, 2, 3, 4, 5}, s.IDs())
		})
	}
}

func TestHNSWEmptySearch(t *testing.T) {
	s := NewHNSWStoreWithParams(6, 200, 50, 16, 1)
	assert.Empty(t, s.Search(unitVector(8, 0), 5))
	assert.Empty(t, s.WaveSearch(unitVector(8, 0), 5, time.Now()))
}

func TestHNSWIndexAboveThreshold(t *testing.T) {
	s := NewHNSWStoreWithParams(6, 200, 50, 16, 7)
	rng := rand.New(rand.NewPCG(21, 0))

	// Push well past the brute-force threshold so queries hit the index.
	dim := 32
	target := randomVector(rng, dim)
	require.NoError(t, s.Insert(makeMemory(1, target)))
	for i := int64(2); i <= 150; i++ {
		require.NoError(t, s.Insert(makeMemory(i, randomVector(rng, dim))))
	}
	require.Greater(t, s.Count(), HNSWThreshold)

	results := s.Search(target, 1)
	require.NotEmpty(t, results)
	assert.Equal(t, int64(1), results[0].ID, "exact vector should be found by the index")
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-4)
}

func TestHNSWDeleteReelectsEntry(t *testing.T) {
	s := NewHNSWStoreWithParams(6, 200, 50, 16, 3)
	require.NoError(t, s.Insert(makeMemory(1, unitVector(4, 0))))
	require.NoError(t, s.Insert(makeMemory(2, unitVector(4, 1))))

	assert.True(t, s.Delete(1))

	results := s.Search(unitVector(4, 0), 5)
	require.Len(t, results, 1)
	assert.Equal(t, int64(2), results[0].ID)
}

func TestHNSWRecallFloor(t *testing.T) {
	const (
		dim        = 64
		n          = 500
		topK       = 10
		numQueries = 20
	)

	s := NewHNSWStoreWithParams(6, 200, 50, 16, 11)
	ground := NewBruteStore()
	rng := rand.New(rand.NewPCG(1234, 0))

	for i := int64(1); i <= n; i++ {
		v := randomVector(rng, dim)
		require.NoError(t, s.Insert(makeMemory(i, v)))
		require.NoError(t, ground.Insert(makeMemory(i, v)))
	}

	var totalRecall float64
	for q := 0; q < numQueries; q++ {
		query := randomVector(rng, dim)

		truth := make(map[int64]bool, topK)
		for _, r := range ground.Search(query, topK) {
			truth[r.ID] = true
		}

		found := 0
		for _, r := range s.Search(query, topK) {
			if truth[r.ID] {
				found++
			}
		}
		totalRecall += float64(found) / float64(topK)
	}

	avgRecall := totalRecall / numQueries
	assert.Greater(t, avgRecall, 0.8, "recall@%d should stay above the floor, got %.3f", topK, avgRecall)
}
