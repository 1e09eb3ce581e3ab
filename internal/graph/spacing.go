package graph

import (
	"math"
	"sort"
)

// PairViolation is two nodes placed closer than the minimum separation
type PairViolation struct {
	A        int     `json:"a"`
	B        int     `json:"b"`
	Distance float64 `json:"distance"`
	// Flagged is true when the later node was marked crowded at placement time
	Flagged bool `json:"flagged"`
}

// SpacingReport describes how well the layout keeps nodes apart
type SpacingReport struct {
	MinSeparation   float64         `json:"min_separation"`
	MinPairDistance float64         `json:"min_pair_distance"`
	ClosestPair     [2]int          `json:"closest_pair"`
	ViolationCount  int             `json:"violation_count"`
	Violations      []PairViolation `json:"violations"`
	Unflagged       int             `json:"unflagged_violations"`
	CrowdedCount    int             `json:"crowded_count"`
	MeanChildDist   float64         `json:"mean_child_distance"`
}

// ComputeSpacing checks every pair of nodes against minSep. Snapshots hold a few
// hundred nodes at most, so the quadratic pass is fine.
func ComputeSpacing(snap *GraphSnapshot, minSep float64, topN int) *SpacingReport {
	ids := snap.NodeIDs()
	r := &SpacingReport{MinSeparation: minSep, MinPairDistance: math.Inf(1)}
	if len(ids) < 2 {
		r.MinPairDistance = 0
	}

	for i := 0; i < len(ids); i++ {
		a := snap.Nodes[ids[i]]
		if a.Crowded {
			r.CrowdedCount++
		}
		for j := i + 1; j < len(ids); j++ {
			b := snap.Nodes[ids[j]]
			d := a.Position.Dist(b.Position)
			if d < r.MinPairDistance {
				r.MinPairDistance = d
				r.ClosestPair = [2]int{a.ID, b.ID}
			}
			if d < minSep {
				// ids are ascending, so b is the later placement
				v := PairViolation{A: a.ID, B: b.ID, Distance: d, Flagged: b.Crowded}
				if !v.Flagged {
					r.Unflagged++
				}
				r.Violations = append(r.Violations, v)
			}
		}
	}

	var sum float64
	for _, e := range snap.Edges {
		sum += snap.Nodes[e.Parent].Position.Dist(snap.Nodes[e.Child].Position)
	}
	if len(snap.Edges) > 0 {
		r.MeanChildDist = sum / float64(len(snap.Edges))
	}

	r.ViolationCount = len(r.Violations)
	sort.SliceStable(r.Violations, func(i, j int) bool { return r.Violations[i].Distance < r.Violations[j].Distance })
	if len(r.Violations) > topN {
		r.Violations = r.Violations[:topN]
	}
	return r
}
