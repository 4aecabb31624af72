package integration

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/hypermem/hypermem-go/pkg/engine"
)

// ghostThreshold separates dormant from ghost memories in wave reports.
const ghostThreshold = 0.001

// LinkInfo describes one skip link for reporting.
type LinkInfo struct {
	FromID   int64   `json:"from_id"`
	ToID     int64   `json:"to_id"`
	Strength float64 `json:"strength"`
	Span     int     `json:"span"`
}

// MemoryInfo describes one memory for wave reports.
type MemoryInfo struct {
	ID                int64   `json:"id"`
	ContentPreview    string  `json:"content_preview"`
	Amplitude         float64 `json:"amplitude"`
	EffectiveStrength float64 `json:"effective_strength"`
	Layer             int     `json:"layer"`
}

// TopologyReport maps the skip link network.
type TopologyReport struct {
	TotalMemories     int              `json:"total_memories"`
	TotalLinks        int              `json:"total_links"`
	AvgLinksPerMemory float64          `json:"avg_links_per_memory"`
	MaxLinks          int              `json:"max_links"`
	LayerDistribution map[int]int      `json:"layer_distribution"`
	StrongestLinks    []LinkInfo       `json:"strongest_links"`
	IsolatedMemories  int              `json:"isolated_memories"`
	NetworkDensity    float64          `json:"network_density"`
}

// WaveReport summarizes wave dynamics across the store.
type WaveReport struct {
	ActiveMemories  int          `json:"active_memories"`
	DormantMemories int          `json:"dormant_memories"`
	GhostMemories   int          `json:"ghost_memories"`
	AvgAmplitude    float64      `json:"avg_amplitude"`
	AvgFrequency    float64      `json:"avg_frequency"`
	Strongest       []MemoryInfo `json:"strongest"`
	WeakestActive   []MemoryInfo `json:"weakest_active"`
}

// ClusterInfo describes one synchronized cluster.
type ClusterInfo struct {
	Size           int     `json:"size"`
	OrderParameter float64 `json:"order_parameter"`
	Theme          string  `json:"theme"`
	MeanAmplitude  float64 `json:"mean_amplitude"`
}

// ClusterReport summarizes Kuramoto synchronization.
type ClusterReport struct {
	Clusters           int           `json:"clusters"`
	LargestClusterSize int           `json:"largest_cluster_size"`
	MeanOrderParameter float64       `json:"mean_order_parameter"`
	FullySynchronized  int           `json:"fully_synchronized"`
	Details            []ClusterInfo `json:"details"`
}

// HealthCheck is a coarse liveness probe over the subsystems.
type HealthCheck struct {
	StoreAccessible bool     `json:"store_accessible"`
	EncodingOK      bool     `json:"encoding_ok"`
	Warnings        []string `json:"warnings,omitempty"`
}

// SystemReport combines every report section.
type SystemReport struct {
	Timestamp time.Time      `json:"timestamp"`
	State     State          `json:"state"`
	Topology  TopologyReport `json:"topology"`
	Waves     WaveReport     `json:"waves"`
	Clusters  ClusterReport  `json:"clusters"`
	Health    HealthCheck    `json:"health"`
}

// Topology builds a topology report over the engine's store.
func Topology(eng *engine.Engine) TopologyReport {
	all := eng.Store().All()

	totalLinks := 0
	maxLinks := 0
	isolated := 0
	layerCounts := make(map[int]int)
	var links []LinkInfo

	for _, m := range all {
		n := len(m.Links)
		totalLinks += n
		if n > maxLinks {
			maxLinks = n
		}
		if n == 0 {
			isolated++
		}
		layerCounts[m.Layer]++

		for _, l := range m.Links {
			links = append(links, LinkInfo{
				FromID:   m.ID,
				ToID:     l.TargetID,
				Strength: l.Strength,
				Span:     l.Span,
			})
		}
	}

	// Links live on both endpoints; halve for the unique count.
	uniqueLinks := totalLinks / 2

	avgLinks := 0.0
	if len(all) > 0 {
		avgLinks = float64(totalLinks) / float64(len(all))
	}

	density := 0.0
	if len(all) > 1 {
		possible := len(all) * (len(all) - 1) / 2
		density = float64(uniqueLinks) / float64(possible)
	}

	sort.Slice(links, func(i, j int) bool { return links[i].Strength > links[j].Strength })
	if len(links) > 10 {
		links = links[:10]
	}

	return TopologyReport{
		TotalMemories:     len(all),
		TotalLinks:        uniqueLinks,
		AvgLinksPerMemory: avgLinks,
		MaxLinks:          maxLinks,
		LayerDistribution: layerCounts,
		StrongestLinks:    links,
		IsolatedMemories:  isolated,
		NetworkDensity:    density,
	}
}

// Waves builds a wave dynamics report at the given time.
func Waves(eng *engine.Engine, now time.Time) WaveReport {
	all := eng.Store().All()

	var report WaveReport
	type scored struct {
		strength float64
		info     MemoryInfo
	}
	infos := make([]scored, 0, len(all))

	var sumAmplitude, sumFrequency float64
	for _, m := range all {
		strength := m.EffectiveStrength(now)
		sumAmplitude += m.Wave.Amplitude
		sumFrequency += m.Wave.Frequency

		preview := m.Content
		if len(preview) > 60 {
			preview = preview[:60]
		}
		infos = append(infos, scored{strength, MemoryInfo{
			ID:                m.ID,
			ContentPreview:    preview,
			Amplitude:         m.Wave.Amplitude,
			EffectiveStrength: strength,
			Layer:             m.Layer,
		}})

		switch abs := math.Abs(strength); {
		case abs > ActiveThreshold:
			report.ActiveMemories++
		case abs > ghostThreshold:
			report.DormantMemories++
		default:
			report.GhostMemories++
		}
	}

	n := len(all)
	if n == 0 {
		n = 1
	}
	report.AvgAmplitude = sumAmplitude / float64(n)
	report.AvgFrequency = sumFrequency / float64(n)

	sort.Slice(infos, func(i, j int) bool {
		return math.Abs(infos[i].strength) > math.Abs(infos[j].strength)
	})
	for i := 0; i < len(infos) && i < 10; i++ {
		report.Strongest = append(report.Strongest, infos[i].info)
	}
	for i := len(infos) - 1; i >= 0 && len(report.WeakestActive) < 10; i-- {
		if math.Abs(infos[i].strength) > ActiveThreshold {
			report.WeakestActive = append(report.WeakestActive, infos[i].info)
		}
	}

	return report
}

// ClusterSummary builds a cluster synchronization report.
func (a *Assessor) ClusterSummary(eng *engine.Engine) ClusterReport {
	clusters := a.Sync.Clusters(eng.Store(), 2)

	var report ClusterReport
	report.Clusters = len(clusters)

	var sumOrder float64
	for _, c := range clusters {
		if len(c.MemoryIDs) > report.LargestClusterSize {
			report.LargestClusterSize = len(c.MemoryIDs)
		}
		sumOrder += c.OrderParameter
		if c.OrderParameter > 0.95 {
			report.FullySynchronized++
		}

		theme := "unknown"
		var sumAmplitude float64
		for i, id := range c.MemoryIDs {
			m, err := eng.Store().Get(id)
			if err != nil {
				continue
			}
			if i == 0 {
				words := strings.Fields(m.Content)
				if len(words) > 5 {
					words = words[:5]
				}
				if len(words) > 0 {
					theme = strings.Join(words, " ")
				}
			}
			sumAmplitude += m.Wave.Amplitude
		}

		report.Details = append(report.Details, ClusterInfo{
			Size:           len(c.MemoryIDs),
			OrderParameter: c.OrderParameter,
			Theme:          theme,
			MeanAmplitude:  sumAmplitude / float64(len(c.MemoryIDs)),
		})
	}
	if len(clusters) > 0 {
		report.MeanOrderParameter = sumOrder / float64(len(clusters))
	}

	return report
}

// FullReport assembles every section plus a health check.
func (a *Assessor) FullReport(eng *engine.Engine) SystemReport {
	now := time.Now()
	topology := Topology(eng)
	waves := Waves(eng, now)

	var warnings []string
	if topology.TotalMemories > 4 && topology.IsolatedMemories > topology.TotalMemories/2 {
		warnings = append(warnings, fmt.Sprintf(
			"%d of %d memories are isolated (no skip links)",
			topology.IsolatedMemories, topology.TotalMemories))
	}
	if waves.ActiveMemories > 0 && waves.GhostMemories > waves.ActiveMemories {
		warnings = append(warnings, fmt.Sprintf(
			"more ghost memories (%d) than active (%d)",
			waves.GhostMemories, waves.ActiveMemories))
	}

	return SystemReport{
		Timestamp: now,
		State:     a.Assess(eng),
		Topology:  topology,
		Waves:     waves,
		Clusters:  a.ClusterSummary(eng),
		Health: HealthCheck{
			StoreAccessible: eng.Store() != nil,
			EncodingOK:      eng.Pipeline() != nil,
			Warnings:        warnings,
		},
	}
}

// Format renders the report as a fixed-width text block for the CLI.
func Format(report SystemReport) string {
	var b strings.Builder
	rule := strings.Repeat("-", 56)

	fmt.Fprintf(&b, "%s\n  HYPERMEM SYSTEM REPORT\n%s\n", strings.Repeat("=", 56), rule)
	fmt.Fprintf(&b, "  %s\n%s\n", report.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC"), rule)

	fmt.Fprintf(&b, "  INTEGRATION\n")
	fmt.Fprintf(&b, "    Level:   %s (phi=%.3f)\n", report.State.Level, report.State.Phi)
	fmt.Fprintf(&b, "    Xi:      %.4f\n", report.State.Xi)
	fmt.Fprintf(&b, "    Order:   r=%.3f\n%s\n", report.State.MeanOrder, rule)

	fmt.Fprintf(&b, "  WAVE DYNAMICS\n")
	fmt.Fprintf(&b, "    Active:  %d\n", report.Waves.ActiveMemories)
	fmt.Fprintf(&b, "    Dormant: %d\n", report.Waves.DormantMemories)
	fmt.Fprintf(&b, "    Ghost:   %d\n", report.Waves.GhostMemories)
	fmt.Fprintf(&b, "    Avg amp: %.3f  avg freq: %.3f\n", report.Waves.AvgAmplitude, report.Waves.AvgFrequency)
	for i, m := range report.Waves.Strongest {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "      %d. [s=%.3f L%d] %s\n", i+1, m.EffectiveStrength, m.Layer, m.ContentPreview)
	}
	fmt.Fprintf(&b, "%s\n", rule)

	fmt.Fprintf(&b, "  TOPOLOGY\n")
	fmt.Fprintf(&b, "    Memories: %d\n", report.Topology.TotalMemories)
	fmt.Fprintf(&b, "    Links:    %d (density %.4f)\n", report.Topology.TotalLinks, report.Topology.NetworkDensity)
	fmt.Fprintf(&b, "    Isolated: %d\n%s\n", report.Topology.IsolatedMemories, rule)

	fmt.Fprintf(&b, "  CLUSTERS\n")
	fmt.Fprintf(&b, "    Count:      %d\n", report.Clusters.Clusters)
	fmt.Fprintf(&b, "    Largest:    %d\n", report.Clusters.LargestClusterSize)
	fmt.Fprintf(&b, "    Mean order: r=%.3f\n%s\n", report.Clusters.MeanOrderParameter, rule)

	fmt.Fprintf(&b, "  HEALTH\n")
	fmt.Fprintf(&b, "    Store:    %s\n", okFail(report.Health.StoreAccessible))
	fmt.Fprintf(&b, "    Encoding: %s\n", okFail(report.Health.EncodingOK))
	for _, w := range report.Health.Warnings {
		fmt.Fprintf(&b, "    ! %s\n", w)
	}
	fmt.Fprintf(&b, "%s\n", strings.Repeat("=", 56))

	return b.String()
}

func okFail(ok bool) string {
	if ok {
		return "OK"
	}
	return "FAIL"
}
