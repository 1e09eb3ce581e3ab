package graph

import (
	"sort"

	"tachyon/constellation/internal/constellation"
	"tachyon/constellation/internal/placement"
)

// NodeInfo is a lightweight node representation decoupled from the store
type NodeInfo struct {
	ID         int
	Label      string
	ParentID   *int
	Level      int
	BranchType constellation.BranchType
	IsExpanded bool
	Crowded    bool
	Position   placement.Vec3
}

// EdgeInfo is one parent → child link
type EdgeInfo struct {
	Parent int
	Child  int
}

// GraphSnapshot holds the scenario forest with precomputed adjacency and region map
type GraphSnapshot struct {
	Nodes    map[int]*NodeInfo
	Edges    []EdgeInfo
	Children map[int][]int
	Regions  map[int]int // node id -> root ancestor id, 0 when unreachable
}

// NewSnapshot builds a GraphSnapshot from raw nodes. Edges come from parent ids;
// links to nodes outside the set are dropped.
func NewSnapshot(nodes []*NodeInfo) *GraphSnapshot {
	nodeMap := make(map[int]*NodeInfo, len(nodes))
	children := make(map[int][]int, len(nodes))
	for _, n := range nodes {
		nodeMap[n.ID] = n
		children[n.ID] = nil // ensure entry exists
	}

	var edges []EdgeInfo
	for _, n := range nodes {
		if n.ParentID == nil {
			continue
		}
		if _, ok := nodeMap[*n.ParentID]; !ok {
			continue
		}
		edges = append(edges, EdgeInfo{Parent: *n.ParentID, Child: n.ID})
		children[*n.ParentID] = append(children[*n.ParentID], n.ID)
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].Child < edges[j].Child })
	for id := range children {
		sort.Ints(children[id])
	}

	return &GraphSnapshot{
		Nodes:    nodeMap,
		Edges:    edges,
		Children: children,
		Regions:  computeRegions(nodeMap),
	}
}

// FromNodes converts store nodes into a snapshot
func FromNodes(nodes []constellation.Node) *GraphSnapshot {
	infos := make([]*NodeInfo, 0, len(nodes))
	for _, n := range nodes {
		var parentID *int
		if n.ParentID != nil {
			p := *n.ParentID
			parentID = &p
		}
		infos = append(infos, &NodeInfo{
			ID:         n.ID,
			Label:      n.Label,
			ParentID:   parentID,
			Level:      n.Level,
			BranchType: n.BranchType,
			IsExpanded: n.IsExpanded,
			Crowded:    n.Crowded,
			Position:   n.Position,
		})
	}
	return NewSnapshot(infos)
}

// SnapshotFromStore loads a GraphSnapshot from the live store
func SnapshotFromStore(s *constellation.Store) *GraphSnapshot {
	return FromNodes(s.Nodes())
}

// FilterToRegion returns a new snapshot containing only rootID and its descendants
func (s *GraphSnapshot) FilterToRegion(rootID int) *GraphSnapshot {
	included := make(map[int]bool)
	for id := range s.Nodes {
		isDescendantOf(id, rootID, s.Nodes, included)
	}

	var filtered []*NodeInfo
	for id, isDesc := range included {
		if isDesc {
			filtered = append(filtered, s.Nodes[id])
		}
	}
	return NewSnapshot(filtered)
}

// NodeIDs returns a sorted list of all node IDs (for deterministic output)
func (s *GraphSnapshot) NodeIDs() []int {
	ids := make([]int, 0, len(s.Nodes))
	for id := range s.Nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// RootIDs returns the sorted ids of nodes without a parent in the snapshot
func (s *GraphSnapshot) RootIDs() []int {
	var ids []int
	for _, id := range s.NodeIDs() {
		n := s.Nodes[id]
		if n.ParentID == nil {
			ids = append(ids, id)
			continue
		}
		if _, ok := s.Nodes[*n.ParentID]; !ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func isDescendantOf(nodeID, ancestorID int, nodes map[int]*NodeInfo, cache map[int]bool) bool {
	if nodeID == ancestorID {
		cache[nodeID] = true
		return true
	}
	if cached, ok := cache[nodeID]; ok {
		return cached
	}
	node, ok := nodes[nodeID]
	if !ok || node.ParentID == nil {
		cache[nodeID] = false
		return false
	}
	// mark before recursing so a parent cycle terminates
	cache[nodeID] = false
	result := isDescendantOf(*node.ParentID, ancestorID, nodes, cache)
	cache[nodeID] = result
	return result
}

func computeRegions(nodes map[int]*NodeInfo) map[int]int {
	regions := make(map[int]int, len(nodes))
	for id := range nodes {
		regions[id] = findRoot(id, nodes)
	}
	return regions
}

func findRoot(nodeID int, nodes map[int]*NodeInfo) int {
	current := nodeID
	visited := make(map[int]bool)
	for {
		if visited[current] {
			return 0 // cycle
		}
		visited[current] = true
		node, ok := nodes[current]
		if !ok {
			return 0
		}
		if node.ParentID == nil {
			return current
		}
		if _, ok := nodes[*node.ParentID]; !ok {
			return current
		}
		current = *node.ParentID
	}
}
