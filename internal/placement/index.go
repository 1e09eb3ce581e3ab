package placement

import "math"

// Index is the occupied-position set consulted by collision checks.
// It is kept apart from the node collection so queries never scan nodes.
type Index interface {
	Insert(p Vec3)
	// Within reports whether any stored point lies strictly closer than r to p
	Within(p Vec3, r float64) bool
	Len() int
	All() []Vec3
}

// List is a linear-scan Index. Fine for the few hundred nodes a session produces.
type List struct {
	points []Vec3
}

// NewList returns an empty List
func NewList() *List { return &List{} }

// Insert adds p to the list
func (l *List) Insert(p Vec3) { l.points = append(l.points, p) }

// Within reports whether any point lies strictly closer than r to p
func (l *List) Within(p Vec3, r float64) bool {
	for _, q := range l.points {
		if p.Dist(q) < r {
			return true
		}
	}
	return false
}

// Len returns the number of stored points
func (l *List) Len() int { return len(l.points) }

// All returns a copy of the stored points in insertion order
func (l *List) All() []Vec3 {
	out := make([]Vec3, len(l.points))
	copy(out, l.points)
	return out
}

type cell struct{ x, y, z int64 }

// Grid is a uniform hash grid. Queries with r <= cell size only visit the 27
// cells around p; larger radii widen the scan, and very large ones fall back to
// a linear pass.
type Grid struct {
	size   float64
	cells  map[cell][]Vec3
	points []Vec3
}

// NewGrid creates a Grid with the given cell edge length (normally the minimum separation)
func NewGrid(cellSize float64) *Grid {
	if cellSize <= 0 || math.IsNaN(cellSize) {
		cellSize = 1
	}
	return &Grid{size: cellSize, cells: make(map[cell][]Vec3)}
}

func (g *Grid) key(p Vec3) cell {
	return cell{
		int64(math.Floor(p.X / g.size)),
		int64(math.Floor(p.Y / g.size)),
		int64(math.Floor(p.Z / g.size)),
	}
}

// Insert files p under its cell
func (g *Grid) Insert(p Vec3) {
	k := g.key(p)
	g.cells[k] = append(g.cells[k], p)
	g.points = append(g.points, p)
}

// Within reports whether any point lies strictly closer than r to p.
// A non-positive r never matches.
func (g *Grid) Within(p Vec3, r float64) bool {
	if r <= 0 {
		return false
	}
	span := int64(math.Ceil(r / g.size))
	if span > 3 {
		// scanning (2·span+1)^3 cells costs more than the points themselves
		for _, q := range g.points {
			if p.Dist(q) < r {
				return true
			}
		}
		return false
	}
	c := g.key(p)
	for dx := -span; dx <= span; dx++ {
		for dy := -span; dy <= span; dy++ {
			for dz := -span; dz <= span; dz++ {
				for _, q := range g.cells[cell{c.x + dx, c.y + dy, c.z + dz}] {
					if p.Dist(q) < r {
						return true
					}
				}
			}
		}
	}
	return false
}

// Len returns the number of stored points
func (g *Grid) Len() int { return len(g.points) }

// All returns a copy of the stored points in insertion order
func (g *Grid) All() []Vec3 {
	out := make([]Vec3, len(g.points))
	copy(out, g.points)
	return out
}
