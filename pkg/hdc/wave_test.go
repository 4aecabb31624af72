package hdc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWaveStrengthAtZero(t *testing.T) {
	w := Wave{Amplitude: 1.0, Frequency: 1.0, Phase: 0, DecayRate: 0.01}
	assert.InDelta(t, 1.0, w.Strength(0), 1e-9, "strength at t=0 with zero phase equals amplitude")
}

func TestWaveDecayMonotonic(t *testing.T) {
	// With frequency 0 the cosine term is constant, so positive decay makes
	// strength strictly decreasing.
	w := Wave{Amplitude: 1.0, Frequency: 0, Phase: 0, DecayRate: 0.001}

	prev := w.Strength(0)
	for _, seconds := range []float64{1, 10, 100, 1000, 10000} {
		cur := w.Strength(time.Duration(seconds * float64(time.Second)))
		assert.Less(t, cur, prev, "strength should strictly decrease at t=%vs", seconds)
		prev = cur
	}
}

func TestWaveLongHorizonStable(t *testing.T) {
	w := Wave{Amplitude: 1.0, Frequency: 0.5, Phase: 1.2, DecayRate: 1e-9}

	// Multi-year elapsed times must not produce NaN or Inf.
	for _, years := range []int{1, 5, 50} {
		elapsed := time.Duration(years) * 365 * 24 * time.Hour
		s := w.Strength(elapsed)
		assert.False(t, s != s, "strength must not be NaN at %d years", years)
		assert.LessOrEqual(t, s, 1.0)
		assert.GreaterOrEqual(t, s, -1.0)
	}
}

func TestWavePhaseShift(t *testing.T) {
	base := Wave{Amplitude: 1.0, Frequency: 1.0, Phase: 0, DecayRate: 0}
	shifted := Wave{Amplitude: 1.0, Frequency: 1.0, Phase: 3.14159265358979, DecayRate: 0}

	// Opposite phases produce opposite strengths at t=0.
	assert.InDelta(t, -base.Strength(0), shifted.Strength(0), 1e-6)
}

func TestDefaultWave(t *testing.T) {
	w := DefaultWave()
	assert.Equal(t, 1.0, w.Amplitude)
	assert.Equal(t, 1.0, w.Frequency)
	assert.Equal(t, 0.0, w.Phase)
	assert.Greater(t, w.DecayRate, 0.0)
}

func TestStrengthAt(t *testing.T) {
	w := Wave{Amplitude: 1.0, Frequency: 0, Phase: 0, DecayRate: 0.1}
	created := time.Now()

	s0 := w.StrengthAt(created, created)
	s1 := w.StrengthAt(created, created.Add(10*time.Second))
	assert.Greater(t, s0, s1)
}
