package constellation

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"tachyon/constellation/internal/placement"
)

var (
	ErrNotFound        = errors.New("node not found")
	ErrAlreadyExpanded = errors.New("node already expanded")
	ErrDepthExceeded   = errors.New("maximum exploration depth reached")
	ErrEmptyBatch      = errors.New("no scenarios to add")
	ErrInvalidSnapshot = errors.New("invalid constellation snapshot")
	// ErrStaleSession means the tree was reset or reloaded after the caller read the parent
	ErrStaleSession = errors.New("constellation was replaced")
)

// Store owns the flat node collection and the occupied-position index.
// It is the only writer of parent, children, level and expansion fields.
type Store struct {
	mu       sync.RWMutex
	layout   placement.Layout
	nodes    map[int]*Node
	occupied placement.Index
	nextID   int
	// generation changes on every reset, reload and restore
	generation uint64
}

// NewStore creates an empty store using layout for root placement and indexing
func NewStore(layout placement.Layout) *Store {
	s := &Store{layout: layout.WithDefaults()}
	s.resetLocked()
	return s
}

// Layout returns the geometry the store was created with
func (s *Store) Layout() placement.Layout { return s.layout }

// LoadRoots replaces the whole tree with one level-0 node per descriptor,
// placed on the root ring in input order.
func (s *Store) LoadRoots(descs []ScenarioDescriptor) ([]Node, error) {
	if len(descs) == 0 {
		return nil, ErrEmptyBatch
	}
	positions := placement.Roots(len(descs), s.layout)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()

	out := make([]Node, 0, len(descs))
	for i, d := range descs {
		n := FromDescriptor(d)
		n.ID = s.nextID
		s.nextID++
		n.Position = positions[i]
		n.Level = 0
		n.BranchType = BranchRoot
		s.nodes[n.ID] = &n
		s.occupied.Insert(n.Position)
		out = append(out, n.clone())
	}
	return out, nil
}

// Get returns a copy of the node with the given id
func (s *Store) Get(id int) (Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return Node{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return n.clone(), nil
}

// Lookup returns a copy of the node together with the current generation
func (s *Store) Lookup(id int) (Node, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return Node{}, s.generation, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return n.clone(), s.generation, nil
}

// Generation identifies the current tree. Ids are only meaningful within one generation.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// MarkExpanded attaches children to the node id and flags it expanded.
// Each child gets a fresh id, the parent id, level+1 and the level's branch type;
// positions must already be set. Nothing changes when an error is returned.
func (s *Store) MarkExpanded(id int, children []Node) ([]Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markExpandedLocked(id, children)
}

// MarkExpandedAt is MarkExpanded for a parent read at generation gen. It fails
// with ErrStaleSession when the tree has been replaced since.
func (s *Store) MarkExpandedAt(gen uint64, id int, children []Node) ([]Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return nil, fmt.Errorf("%w: node %d belongs to an earlier tree", ErrStaleSession, id)
	}
	return s.markExpandedLocked(id, children)
}

func (s *Store) markExpandedLocked(id int, children []Node) ([]Node, error) {
	parent, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if parent.IsExpanded {
		return nil, fmt.Errorf("%w: %d", ErrAlreadyExpanded, id)
	}
	level := parent.Level + 1
	branch, err := BranchFor(level)
	if err != nil {
		return nil, fmt.Errorf("expanding node %d: %w", id, err)
	}
	if len(children) == 0 {
		return nil, fmt.Errorf("expanding node %d: %w", id, ErrEmptyBatch)
	}

	out := make([]Node, 0, len(children))
	ids := make([]int, 0, len(children))
	for _, c := range children {
		child := c.clone()
		child.ID = s.nextID
		s.nextID++
		pid := parent.ID
		child.ParentID = &pid
		child.Level = level
		child.BranchType = branch
		child.IsExpanded = false
		child.Children = nil
		s.nodes[child.ID] = &child
		s.occupied.Insert(child.Position)
		ids = append(ids, child.ID)
		out = append(out, child.clone())
	}
	parent.IsExpanded = true
	parent.Children = append(parent.Children, ids...)
	return out, nil
}

// Reset drops every node and restarts id assignment
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Store) resetLocked() {
	s.nodes = make(map[int]*Node)
	s.occupied = s.layout.NewIndex()
	s.nextID = 1
	s.generation++
}

// Len returns the number of nodes
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// Nodes returns copies of all nodes ordered by id
func (s *Store) Nodes() []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked(func(*Node) bool { return true })
}

// Roots returns the level-0 nodes ordered by id
func (s *Store) Roots() []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked(func(n *Node) bool { return n.ParentID == nil })
}

// Children returns the direct children of id in creation order
func (s *Store) Children(id int) ([]Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	parent, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	out := make([]Node, 0, len(parent.Children))
	for _, cid := range parent.Children {
		out = append(out, s.nodes[cid].clone())
	}
	return out, nil
}

// Occupied returns a snapshot of the occupied-position index for collision checks
func (s *Store) Occupied() placement.Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.layout.NewIndex()
	for _, p := range s.occupied.All() {
		idx.Insert(p)
	}
	return idx
}

// Restore rebuilds the store from persisted nodes. The snapshot must be a valid
// forest: unique positive ids, existing parents, child level = parent level + 1.
func (s *Store) Restore(nodes []Node) error {
	byID := make(map[int]*Node, len(nodes))
	maxID := 0
	for i := range nodes {
		n := nodes[i].clone()
		if n.ID <= 0 {
			return fmt.Errorf("%w: node id %d", ErrInvalidSnapshot, n.ID)
		}
		if _, dup := byID[n.ID]; dup {
			return fmt.Errorf("%w: duplicate node id %d", ErrInvalidSnapshot, n.ID)
		}
		n.Children = nil
		byID[n.ID] = &n
		if n.ID > maxID {
			maxID = n.ID
		}
	}

	ordered := make([]*Node, 0, len(byID))
	for _, n := range byID {
		ordered = append(ordered, n)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	for _, n := range ordered {
		if n.ParentID == nil {
			if n.Level != 0 {
				return fmt.Errorf("%w: root %d has level %d", ErrInvalidSnapshot, n.ID, n.Level)
			}
			continue
		}
		parent, ok := byID[*n.ParentID]
		if !ok {
			return fmt.Errorf("%w: node %d references missing parent %d", ErrInvalidSnapshot, n.ID, *n.ParentID)
		}
		if n.Level != parent.Level+1 || n.Level > MaxLevel {
			return fmt.Errorf("%w: node %d level %d under parent level %d", ErrInvalidSnapshot, n.ID, n.Level, parent.Level)
		}
		parent.Children = append(parent.Children, n.ID)
	}
	for _, n := range ordered {
		if len(n.Children) > 0 {
			n.IsExpanded = true
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	for _, n := range ordered {
		s.nodes[n.ID] = n
		s.occupied.Insert(n.Position)
	}
	s.nextID = maxID + 1
	return nil
}

func (s *Store) sortedLocked(keep func(*Node) bool) []Node {
	out := make([]Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		if keep(n) {
			out = append(out, n.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
