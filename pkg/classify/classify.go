// Package classify provides the boundary interface to the external category
// classifier, plus a self-contained heuristic implementation.
//
// The classifier attaches a coarse category label and a set of geometric
// coordinates to each memory. The engine consumes labels three ways: tagging
// new records, biasing freshly assigned frequency and phase into a per
// category band, and deciding whether two records count as "related" when
// the consolidation engine wires links.
package classify

import (
	"math"
	"math/rand/v2"
	"strings"
)

// Coordinates places a memory in the classifier's discrete geometry: a
// quadrant (H2, 0..3), a modality (D, 0..2, 0 = directly experienced), and a
// context slot (L, 0..7). ClassIndex folds the three into a single 0..95
// index.
type Coordinates struct {
	H2         uint8   `json:"h2"`
	D          uint8   `json:"d"`
	L          uint8   `json:"l"`
	ClassIndex uint8   `json:"class_index"`
	Amplitude  float64 `json:"amplitude"`
	Phase      float64 `json:"phase"`
}

// Label is the classifier's output for one piece of content.
type Label struct {
	// Category is the coarse content category: "experience", "emotion",
	// "social", "skill", or "knowledge".
	Category string `json:"category"`

	// Coordinates is the geometric placement derived from the category,
	// content hash, and importance.
	Coordinates Coordinates `json:"coordinates"`
}

// Classifier labels content and decides relatedness between labels.
//
// Implementations must be deterministic: the same text, hash, and importance
// always produce the same label.
type Classifier interface {
	// Classify labels free text. The content hash disambiguates texts that
	// score identically; importance in [0, 1] selects the modality.
	Classify(text string, contentHash uint64, importance float64) Label

	// Related reports whether two labels should be wired together during
	// consolidation.
	Related(a, b Label) bool

	// FrequencyBand returns the oscillation frequency and initial phase for
	// a category, drawn deterministically from the content hash.
	FrequencyBand(category string, contentHash uint64) (frequency, phase float64)
}

// ContentHash computes the engine's canonical string hash, a 31-multiplier
// byte fold.
func ContentHash(content string) uint64 {
	var h uint64
	for i := 0; i < len(content); i++ {
		h = h*31 + uint64(content[i])
	}
	return h
}

// fanoLines are the seven lines of the Fano plane over context slots 1..7.
var fanoLines = [7][3]uint8{
	{1, 2, 4},
	{2, 3, 5},
	{3, 4, 6},
	{4, 5, 7},
	{5, 6, 1},
	{6, 7, 2},
	{7, 1, 3},
}

// Heuristic is a keyword-based classifier usable offline. It is the default
// implementation wired into the engine when no external classifier is
// attached.
type Heuristic struct{}

// NewHeuristic returns the default keyword classifier.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

var categoryKeywords = []struct {
	category string
	keywords []string
}{
	// Order matters: first matching category wins.
	{"experience", []string{
		"saw", "heard", "did", "went", "happened", "occurred",
		"experience", "event", "today", "yesterday", "just",
	}},
	{"emotion", []string{
		"feel", "felt", "happy", "sad", "angry", "excited",
		"worried", "love", "hate", "emotion", "mood",
	}},
	{"social", []string{
		"said", "told", "asked", "friend", "person", "people",
		"conversation", "meeting", "together", "team",
	}},
	{"skill", []string{
		"how to", "procedure", "method", "code", "function", "build",
		"compile", "deploy", "technique", "practice", "ability",
	}},
}

// Categorize maps text to one of the five coarse categories. Facts and
// concepts default to "knowledge".
func (h *Heuristic) Categorize(text string) string {
	lower := strings.ToLower(text)
	for _, c := range categoryKeywords {
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				return c.category
			}
		}
	}
	return "knowledge"
}

// Classify labels text with a category and geometric coordinates.
func (h *Heuristic) Classify(text string, contentHash uint64, importance float64) Label {
	category := h.Categorize(text)
	return Label{
		Category:    category,
		Coordinates: PlaceCoordinates(category, contentHash, importance),
	}
}

// PlaceCoordinates derives coordinates from a category, content hash, and
// importance score.
func PlaceCoordinates(category string, contentHash uint64, importance float64) Coordinates {
	var h2 uint8
	switch strings.ToLower(category) {
	case "knowledge", "technical", "coding", "system":
		h2 = 0
	case "social", "people", "relationships", "communication":
		h2 = 1
	case "skill", "procedure", "method", "ability":
		h2 = 2
	case "experience", "emotion", "event", "feeling":
		h2 = 3
	default:
		h2 = uint8(contentHash % 4)
	}

	var d uint8
	switch {
	case importance < 0.3:
		d = 2 // imagined or speculative
	case importance < 0.7:
		d = 1 // learned indirectly
	default:
		d = 0 // directly experienced
	}

	l := uint8(contentHash % 8)

	amplitude := importance*0.5 + 0.5
	if amplitude > 1 {
		amplitude = 1
	}
	phase := math.Mod(float64(contentHash)*0.01, 2*math.Pi)

	return Coordinates{
		H2:         h2,
		D:          d,
		L:          l,
		ClassIndex: 24*h2 + 8*d + l,
		Amplitude:  amplitude,
		Phase:      phase,
	}
}

// Related reports whether two labels share a quadrant and modality and sit
// on a common Fano line through their context slots. Slot 0 never relates.
func (h *Heuristic) Related(a, b Label) bool {
	ca, cb := a.Coordinates, b.Coordinates
	if ca.H2 != cb.H2 || ca.D != cb.D {
		return false
	}
	if ca.L == 0 || cb.L == 0 || ca.L == cb.L {
		return false
	}
	for _, line := range fanoLines {
		onLine := func(l uint8) bool {
			return line[0] == l || line[1] == l || line[2] == l
		}
		if onLine(ca.L) && onLine(cb.L) {
			return true
		}
	}
	return false
}

// frequencyBands maps categories to oscillation ranges, loosely named after
// voice registers: fast ephemeral experiences sit at the top, slow stable
// knowledge at the bottom.
var frequencyBands = map[string][2]float64{
	"experience": {1.8, 2.4}, // soprano
	"emotion":    {1.3, 1.8}, // alto
	"social":     {1.0, 1.4}, // tenor
	"skill":      {0.8, 1.2}, // between tenor and bass
	"knowledge":  {0.6, 1.1}, // bass
}

// FrequencyBand draws a frequency from the category's band and a phase from
// [0, 2π), both deterministic in the content hash.
func (h *Heuristic) FrequencyBand(category string, contentHash uint64) (float64, float64) {
	band, ok := frequencyBands[category]
	if !ok {
		band = frequencyBands["knowledge"]
	}

	rng := rand.New(rand.NewPCG(contentHash, 0))
	frequency := band[0] + rng.Float64()*(band[1]-band[0])
	phase := rng.Float64() * 2 * math.Pi
	return frequency, phase
}
