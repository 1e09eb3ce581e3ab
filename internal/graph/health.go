package graph

import "math"

// HealthBreakdown shows the sub-scores of the health formula
type HealthBreakdown struct {
	Integrity   float64 `json:"integrity"`
	Spacing     float64 `json:"spacing"`
	Crowding    float64 `json:"crowding"`
	Exploration float64 `json:"exploration"`
}

// AnalysisReport is the full analysis result
type AnalysisReport struct {
	HealthScore     float64         `json:"health_score"`
	HealthBreakdown HealthBreakdown `json:"health_breakdown"`
	Topology        *TopologyReport `json:"topology"`
	Spacing         *SpacingReport  `json:"spacing"`
}

// AnalyzerConfig holds analysis parameters
type AnalyzerConfig struct {
	MinSeparation float64
	TopN          int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *AnalyzerConfig {
	return &AnalyzerConfig{
		MinSeparation: 45,
		TopN:          10,
	}
}

// Analyze runs all analyses and computes a composite health score
func Analyze(snap *GraphSnapshot, config *AnalyzerConfig) *AnalysisReport {
	if config == nil {
		config = DefaultConfig()
	}
	topology := ComputeTopology(snap, config.TopN)
	spacing := ComputeSpacing(snap, config.MinSeparation, config.TopN)

	total := float64(topology.TotalNodes)

	var integrity, spacingScore, crowding, exploration float64

	if total > 0 {
		// a well-formed forest has one component per root and no level jumps
		if topology.NumComponents == topology.Roots && len(topology.LevelMismatches) == 0 {
			integrity = 1
		} else {
			integrity = clamp(1.0-float64(len(topology.LevelMismatches))/total, 0, 0.5)
		}
		spacingScore = clamp(1.0-math.Min(float64(spacing.Unflagged)/total, 0.1)*10.0, 0, 1)
		crowding = clamp(1.0-math.Min(float64(spacing.CrowdedCount)/total, 0.2)*5.0, 0, 1)
		if open := topology.Expanded + topology.Frontier + topology.FullyExplored; open > 0 {
			exploration = float64(topology.Expanded+topology.FullyExplored) / float64(open)
		}
	}

	healthScore := 0.35*integrity + 0.30*spacingScore + 0.20*crowding + 0.15*exploration

	return &AnalysisReport{
		HealthScore: healthScore,
		HealthBreakdown: HealthBreakdown{
			Integrity:   integrity,
			Spacing:     spacingScore,
			Crowding:    crowding,
			Exploration: exploration,
		},
		Topology: topology,
		Spacing:  spacing,
	}
}

func clamp(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
