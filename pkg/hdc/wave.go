package hdc

import (
	"math"
	"time"
)

// Wave holds the oscillation parameters that modulate a memory's strength
// over time.
//
// Effective strength follows a decayed cosine:
//
//	S(t) = Amplitude · cos(2π·Frequency·t + Phase) · e^(−DecayRate·t)
//
// where t is elapsed seconds since creation. All arithmetic is double
// precision so the formula stays stable for t from zero to multi-year
// magnitudes.
type Wave struct {
	// Amplitude is the base strength. New memories start at 1.0; consolidation
	// drives ghosts to exactly 0.0.
	Amplitude float64 `json:"amplitude"`

	// Frequency is the oscillation frequency in Hz.
	Frequency float64 `json:"frequency"`

	// Phase is the oscillation phase offset in radians.
	Phase float64 `json:"phase"`

	// DecayRate is the exponential decay constant per second.
	DecayRate float64 `json:"decay_rate"`
}

// DefaultWave returns the wave parameters assigned to a freshly encoded
// memory: full amplitude, 1 Hz, zero phase, and a decay constant that halves
// strength on the order of a day.
func DefaultWave() Wave {
	return Wave{
		Amplitude: 1.0,
		Frequency: 1.0,
		Phase:     0.0,
		DecayRate: 1e-5,
	}
}

// Strength evaluates the wave at the given elapsed time since creation.
//
// With Frequency 0 the cosine term is constant, so Strength is strictly
// decreasing in elapsed time for any positive DecayRate.
func (w Wave) Strength(elapsed time.Duration) float64 {
	t := elapsed.Seconds()
	return w.Amplitude * math.Cos(2*math.Pi*w.Frequency*t+w.Phase) * math.Exp(-w.DecayRate*t)
}

// StrengthAt evaluates the wave at absolute time now for a memory created at
// createdAt.
func (w Wave) StrengthAt(createdAt, now time.Time) float64 {
	return w.Strength(now.Sub(createdAt))
}
