package consolidation

import (
	"go.uber.org/zap"

	"github.com/hypermem/hypermem-go/pkg/engine"
)

// DefaultDreamCycles is the standard number of passes per dream.
const DefaultDreamCycles = 3

// Dreamer runs repeated consolidation cycles with increasing depth: the
// first cycle covers layers 0-1, the second 1-2, the third 2-3.
type Dreamer struct {
	consolidator *Consolidator
	cycles       int
	logger       *zap.Logger
}

// NewDreamer creates a dreamer. cycles values below 1 fall back to
// DefaultDreamCycles; logger may be nil.
func NewDreamer(consolidator *Consolidator, cycles int, logger *zap.Logger) *Dreamer {
	if cycles < 1 {
		cycles = DefaultDreamCycles
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dreamer{
		consolidator: consolidator,
		cycles:       cycles,
		logger:       logger,
	}
}

// Dream runs the configured number of consolidation passes, each one layer
// deeper than the last, and returns the per-cycle reports.
func (d *Dreamer) Dream(eng *engine.Engine) []Report {
	reports := make([]Report, 0, d.cycles)
	for cycle := 0; cycle < d.cycles; cycle++ {
		report := d.consolidator.Consolidate(eng, cycle, cycle+1)
		d.logger.Info("dream cycle",
			zap.Int("cycle", cycle+1),
			zap.Int("replayed", report.MemoriesReplayed),
			zap.Int("constructive_pairs", report.ConstructivePairs),
			zap.Int("destructive_pairs", report.DestructivePairs),
			zap.Int("bundles", report.BundlesCreated),
			zap.Int("transferred", report.MemoriesTransferred),
			zap.Int("links", report.LinksCreated),
			zap.Int("hallucinations", report.Hallucinations))
		reports = append(reports, report)
	}
	return reports
}
