package graph

// UnionFind groups node ids into components. Ids are mapped to dense slots so
// parent links live in a slice; union is by size with path halving on find.
type UnionFind struct {
	slot   map[int]int
	ids    []int
	parent []int
	size   []int
}

// NewUnionFind creates a UnionFind where each id is its own component
func NewUnionFind(ids []int) *UnionFind {
	uf := &UnionFind{
		slot:   make(map[int]int, len(ids)),
		ids:    make([]int, 0, len(ids)),
		parent: make([]int, 0, len(ids)),
		size:   make([]int, 0, len(ids)),
	}
	for _, id := range ids {
		if _, dup := uf.slot[id]; dup {
			continue
		}
		i := len(uf.ids)
		uf.slot[id] = i
		uf.ids = append(uf.ids, id)
		uf.parent = append(uf.parent, i)
		uf.size = append(uf.size, 1)
	}
	return uf
}

func (uf *UnionFind) root(i int) int {
	for uf.parent[i] != i {
		uf.parent[i] = uf.parent[uf.parent[i]]
		i = uf.parent[i]
	}
	return i
}

// Find returns the representative id of id's component. Unknown ids are their own representative.
func (uf *UnionFind) Find(id int) int {
	i, ok := uf.slot[id]
	if !ok {
		return id
	}
	return uf.ids[uf.root(i)]
}

// Union merges the components containing a and b. Returns true if they were separate.
func (uf *UnionFind) Union(a, b int) bool {
	ia, okA := uf.slot[a]
	ib, okB := uf.slot[b]
	if !okA || !okB {
		return false
	}
	ra, rb := uf.root(ia), uf.root(ib)
	if ra == rb {
		return false
	}
	if uf.size[ra] < uf.size[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	uf.size[ra] += uf.size[rb]
	return true
}

// Size returns the number of ids in id's component, 0 for unknown ids
func (uf *UnionFind) Size(id int) int {
	i, ok := uf.slot[id]
	if !ok {
		return 0
	}
	return uf.size[uf.root(i)]
}

// Components returns all components keyed by representative id
func (uf *UnionFind) Components() map[int][]int {
	groups := make(map[int][]int)
	for i, id := range uf.ids {
		rep := uf.ids[uf.root(i)]
		groups[rep] = append(groups[rep], id)
	}
	return groups
}
