package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategorize(t *testing.T) {
	h := NewHeuristic()

	tests := []struct {
		text string
		want string
	}{
		{"I went to the market today", "experience"},
		{"I felt so happy about the result", "emotion"},
		{"my friend told me about the meeting", "social"},
		{"how to compile the project", "skill"},
		{"water boils at 100 degrees", "knowledge"},
		{"", "knowledge"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, h.Categorize(tt.text))
		})
	}
}

func TestContentHashDeterministic(t *testing.T) {
	a := ContentHash("the cat sat on the mat")
	b := ContentHash("the cat sat on the mat")
	c := ContentHash("the dog sat on the mat")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestPlaceCoordinates(t *testing.T) {
	// Quadrant follows the category.
	assert.Equal(t, uint8(0), PlaceCoordinates("knowledge", 1, 0.5).H2)
	assert.Equal(t, uint8(1), PlaceCoordinates("social", 1, 0.5).H2)
	assert.Equal(t, uint8(2), PlaceCoordinates("skill", 1, 0.5).H2)
	assert.Equal(t, uint8(3), PlaceCoordinates("experience", 1, 0.5).H2)

	// Modality follows importance.
	assert.Equal(t, uint8(2), PlaceCoordinates("knowledge", 1, 0.1).D)
	assert.Equal(t, uint8(1), PlaceCoordinates("knowledge", 1, 0.5).D)
	assert.Equal(t, uint8(0), PlaceCoordinates("knowledge", 1, 0.9).D)

	// Context slot follows the hash.
	c := PlaceCoordinates("knowledge", 13, 0.5)
	assert.Equal(t, uint8(13%8), c.L)
	assert.Equal(t, 24*c.H2+8*c.D+c.L, c.ClassIndex)
	assert.Less(t, int(c.ClassIndex), 96)
}

func TestClassifyDeterministic(t *testing.T) {
	h := NewHeuristic()
	text := "my friend asked about the plan"
	hash := ContentHash(text)

	a := h.Classify(text, hash, 0.5)
	b := h.Classify(text, hash, 0.5)
	assert.Equal(t, a, b)
}

func TestRelated(t *testing.T) {
	h := NewHeuristic()

	mk := func(h2, d, l uint8) Label {
		return Label{Category: "knowledge", Coordinates: Coordinates{H2: h2, D: d, L: l}}
	}

	// 1, 2, 4 lie on a Fano line.
	assert.True(t, h.Related(mk(0, 1, 1), mk(0, 1, 2)))
	assert.True(t, h.Related(mk(0, 1, 2), mk(0, 1, 4)))

	// Different quadrant or modality never relates.
	assert.False(t, h.Related(mk(0, 1, 1), mk(1, 1, 2)))
	assert.False(t, h.Related(mk(0, 0, 1), mk(0, 1, 2)))

	// Slot 0 and identical slots never relate.
	assert.False(t, h.Related(mk(0, 1, 0), mk(0, 1, 2)))
	assert.False(t, h.Related(mk(0, 1, 3), mk(0, 1, 3)))
}

func TestFrequencyBand(t *testing.T) {
	h := NewHeuristic()

	tests := []struct {
		category string
		min, max float64
	}{
		{"experience", 1.8, 2.4},
		{"emotion", 1.3, 1.8},
		{"social", 1.0, 1.4},
		{"skill", 0.8, 1.2},
		{"knowledge", 0.6, 1.1},
		{"unknown", 0.6, 1.1},
	}

	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			freq, phase := h.FrequencyBand(tt.category, 12345)
			assert.GreaterOrEqual(t, freq, tt.min)
			assert.Less(t, freq, tt.max)
			assert.GreaterOrEqual(t, phase, 0.0)
			assert.Less(t, phase, 6.2831854)

			// Deterministic per hash.
			freq2, phase2 := h.FrequencyBand(tt.category, 12345)
			assert.Equal(t, freq, freq2)
			assert.Equal(t, phase, phase2)
		})
	}
}
