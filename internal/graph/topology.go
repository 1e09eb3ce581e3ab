package graph

import (
	"sort"

	"tachyon/constellation/internal/constellation"
)

// HubNode is a node with many children
type HubNode struct {
	ID       int    `json:"id"`
	Label    string `json:"label"`
	Children int    `json:"children"`
}

// LevelBucket is one row of the per-level histogram
type LevelBucket struct {
	Level  int    `json:"level"`
	Branch string `json:"branch"`
	Count  int    `json:"count"`
}

// RegionSize is the node count under one root
type RegionSize struct {
	RootID int    `json:"root_id"`
	Label  string `json:"label"`
	Nodes  int    `json:"nodes"`
}

// TopologyReport contains the structural analysis of the scenario forest
type TopologyReport struct {
	TotalNodes     int            `json:"total_nodes"`
	TotalEdges     int            `json:"total_edges"`
	Roots          int            `json:"roots"`
	NumComponents  int            `json:"num_components"`
	Expanded       int            `json:"expanded"`
	Frontier       int            `json:"frontier"`
	FrontierIDs    []int          `json:"frontier_ids"`
	FullyExplored  int            `json:"fully_explored"`
	DeepestLevel   int            `json:"deepest_level"`
	LevelHistogram []LevelBucket  `json:"level_histogram"`
	BranchCounts   map[string]int `json:"branch_counts"`
	Regions        []RegionSize   `json:"regions"`
	Hubs           []HubNode      `json:"hubs"`
	// LevelMismatches lists children whose level is not parent level + 1
	LevelMismatches []int `json:"level_mismatches,omitempty"`
}

// ComputeTopology analyzes the forest: components, levels, branches, frontier, hubs
func ComputeTopology(snap *GraphSnapshot, topN int) *TopologyReport {
	totalNodes := len(snap.Nodes)
	if totalNodes == 0 {
		return &TopologyReport{BranchCounts: map[string]int{}}
	}

	nodeIDs := snap.NodeIDs()
	uf := NewUnionFind(nodeIDs)
	for _, e := range snap.Edges {
		uf.Union(e.Parent, e.Child)
	}

	roots := snap.RootIDs()
	r := &TopologyReport{
		TotalNodes:    totalNodes,
		TotalEdges:    len(snap.Edges),
		Roots:         len(roots),
		NumComponents: len(uf.Components()),
		BranchCounts:  make(map[string]int),
	}

	levels := make(map[int]int)
	var hubs []HubNode
	for _, id := range nodeIDs {
		n := snap.Nodes[id]
		levels[n.Level]++
		r.BranchCounts[string(n.BranchType)]++
		if n.Level > r.DeepestLevel {
			r.DeepestLevel = n.Level
		}

		kids := len(snap.Children[id])
		switch {
		case n.IsExpanded || kids > 0:
			r.Expanded++
		case n.Level >= constellation.MaxLevel:
			r.FullyExplored++
		default:
			r.Frontier++
			r.FrontierIDs = append(r.FrontierIDs, id)
		}
		if kids > 0 {
			hubs = append(hubs, HubNode{ID: id, Label: n.Label, Children: kids})
		}

		if n.ParentID != nil {
			if p, ok := snap.Nodes[*n.ParentID]; ok && n.Level != p.Level+1 {
				r.LevelMismatches = append(r.LevelMismatches, id)
			}
		}
	}

	for level := 0; level <= r.DeepestLevel; level++ {
		branch, err := constellation.BranchFor(level)
		name := string(branch)
		if err != nil {
			name = "unknown"
		}
		r.LevelHistogram = append(r.LevelHistogram, LevelBucket{Level: level, Branch: name, Count: levels[level]})
	}

	for _, id := range roots {
		r.Regions = append(r.Regions, RegionSize{RootID: id, Label: snap.Nodes[id].Label, Nodes: uf.Size(id)})
	}
	sort.SliceStable(r.Regions, func(i, j int) bool { return r.Regions[i].Nodes > r.Regions[j].Nodes })

	sort.SliceStable(hubs, func(i, j int) bool { return hubs[i].Children > hubs[j].Children })
	if len(hubs) > topN {
		hubs = hubs[:topN]
	}
	r.Hubs = hubs
	if len(r.FrontierIDs) > topN {
		r.FrontierIDs = r.FrontierIDs[:topN]
	}
	return r
}
