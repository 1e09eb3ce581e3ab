package placement

import (
	"math"
	"testing"
)

const eps = 1e-9

func TestRoots_RingInvariants(t *testing.T) {
	layout := DefaultLayout()
	for n := 1; n <= 24; n++ {
		pos := Roots(n, layout)
		if len(pos) != n {
			t.Fatalf("n=%d: got %d positions", n, len(pos))
		}
		seen := map[Vec3]bool{}
		for i, p := range pos {
			if seen[p] {
				t.Errorf("n=%d: duplicate position %v", n, p)
			}
			seen[p] = true

			if d := p.HorizontalDist(); math.Abs(d-layout.RootRadius) > eps {
				t.Errorf("n=%d i=%d: horizontal distance %v, want %v", n, i, d, layout.RootRadius)
			}
			want := 2 * math.Pi * float64(i) / float64(n)
			got := math.Atan2(p.Y, p.X)
			if got < 0 {
				got += 2 * math.Pi
			}
			if math.Abs(got-want) > 1e-9 && math.Abs(got-want-2*math.Pi) > 1e-9 {
				t.Errorf("n=%d i=%d: angle %v, want %v", n, i, got, want)
			}
		}
	}
}

func TestRoots_DepthFormula(t *testing.T) {
	layout := DefaultLayout()
	pos := Roots(6, layout)
	for i, p := range pos {
		theta := 2 * math.Pi * float64(i) / 6
		want := 30*math.Sin(3*theta) + 15
		if i%2 == 1 {
			want = 30*math.Sin(3*theta) - 15
		}
		if math.Abs(p.Z-want) > eps {
			t.Errorf("i=%d: z=%v, want %v", i, p.Z, want)
		}
	}
}

func TestRoots_Deterministic(t *testing.T) {
	a := Roots(7, DefaultLayout())
	b := Roots(7, DefaultLayout())
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("position %d differs between runs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestRoots_Empty(t *testing.T) {
	if got := Roots(0, DefaultLayout()); got != nil {
		t.Errorf("Roots(0) = %v, want nil", got)
	}
	if got := Roots(-3, DefaultLayout()); got != nil {
		t.Errorf("Roots(-3) = %v, want nil", got)
	}
}

func TestChildren_SeededIsDeterministic(t *testing.T) {
	layout := DefaultLayout()
	parent := Roots(5, layout)[2]

	a := Children(parent, 3, NewGrid(layout.MinSeparation), NewRand(42), layout)
	b := Children(parent, 3, NewGrid(layout.MinSeparation), NewRand(42), layout)
	if len(a) != 3 || len(b) != 3 {
		t.Fatalf("expected 3 placements, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("placement %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}

	c := Children(parent, 3, NewGrid(layout.MinSeparation), NewRand(43), layout)
	if c[0].Pos == a[0].Pos {
		t.Error("different seeds should jitter differently")
	}
}

func TestChildren_ZeroJitterIsExact(t *testing.T) {
	layout := DefaultLayout()
	layout.AngleJitter = 0
	layout.RadiusJitter = 0
	layout.PushJitter = 0
	layout.DepthJitter = 0
	if got := layout.WithDefaults(); got != layout {
		t.Fatalf("WithDefaults restored jitter: %+v", got)
	}

	parent := Vec3{X: 100}
	a := Children(parent, 4, nil, NewRand(1), layout)
	b := Children(parent, 4, nil, NewRand(99), layout)
	for i := range a {
		if a[i].Pos != b[i].Pos {
			t.Errorf("child %d depends on the seed: %v vs %v", i, a[i].Pos, b[i].Pos)
		}
		if x := a[i].Pos.X; math.Abs(x-(100+layout.OutwardPush)) > eps {
			t.Errorf("child %d x = %v, want %v", i, x, 100+layout.OutwardPush)
		}
		if d := a[i].Pos.Sub(parent.Add(Vec3{X: layout.OutwardPush})).Len(); math.Abs(d-layout.ChildRadius) > eps {
			t.Errorf("child %d ring radius = %v, want %v", i, d, layout.ChildRadius)
		}
	}
}

func TestWithDefaults(t *testing.T) {
	if got := (Layout{}).WithDefaults(); got != DefaultLayout() {
		t.Errorf("zero layout = %+v", got)
	}
	l := Layout{ChildRadius: 10, MinSeparation: 0}
	got := l.WithDefaults()
	if got.ChildRadius != 10 || got.MinSeparation != 0 || got.MaxAttempts != DefaultLayout().MaxAttempts {
		t.Errorf("partial layout = %+v", got)
	}
}

func TestChildren_PushedOutward(t *testing.T) {
	layout := DefaultLayout()
	for _, parent := range Roots(8, layout) {
		out := parent.Normalize(UnitX)
		for _, p := range Children(parent, 3, nil, NewRand(7), layout) {
			along := p.Pos.Sub(parent).Dot(out)
			lo := layout.OutwardPush - layout.PushJitter - eps
			// depth jitter is along Z and the parent has a small Z component
			slack := layout.DepthJitter * math.Abs(out.Z)
			if along < lo-slack {
				t.Errorf("child %v not pushed outward from %v (along=%v)", p.Pos, parent, along)
			}
		}
	}
}

func TestChildren_OriginParentUsesPlusX(t *testing.T) {
	layout := DefaultLayout()
	for _, p := range Children(Origin, 4, nil, NewRand(1), layout) {
		lo := layout.OutwardPush - layout.PushJitter
		hi := layout.OutwardPush + layout.PushJitter
		if p.Pos.X < lo-eps || p.Pos.X > hi+eps {
			t.Errorf("origin child x=%v outside [%v,%v]", p.Pos.X, lo, hi)
		}
		if math.IsNaN(p.Pos.Y) || math.IsNaN(p.Pos.Z) {
			t.Errorf("origin child has NaN coordinates: %v", p.Pos)
		}
	}
}

func TestChildren_ExhaustionIsFlaggedNotFatal(t *testing.T) {
	layout := DefaultLayout()
	layout.MaxAttempts = 3
	layout.MinSeparation = 1e6

	occupied := NewList()
	occupied.Insert(Origin)

	got := Children(Vec3{X: 100}, 4, occupied, NewRand(9), layout)
	if len(got) != 4 {
		t.Fatalf("expected 4 placements even when exhausted, got %d", len(got))
	}
	for i, p := range got {
		if !p.Exhausted {
			t.Errorf("placement %d should be flagged exhausted", i)
		}
		if p.Attempts != 3 {
			t.Errorf("placement %d: attempts=%d, want 3", i, p.Attempts)
		}
	}
	if occupied.Len() != 1 {
		t.Errorf("Children must not mutate occupied, len=%d", occupied.Len())
	}
}

func TestChildren_ZeroCount(t *testing.T) {
	if got := Children(Vec3{X: 1}, 0, nil, NewRand(1), DefaultLayout()); got != nil {
		t.Errorf("expected nil for k=0, got %v", got)
	}
}

// Every pair closer than the minimum separation must involve a placement that was
// flagged exhausted (the later of the two).
func TestChildren_CollisionPropertyAcrossSession(t *testing.T) {
	layout := DefaultLayout()
	rng := NewRand(2024)
	index := layout.NewIndex()

	type placed struct {
		pos       Vec3
		exhausted bool
	}
	var all []placed
	frontier := Roots(6, layout)
	for _, r := range frontier {
		index.Insert(r)
		all = append(all, placed{pos: r})
	}

	for depth := 0; depth < 3; depth++ {
		var next []Vec3
		for _, parent := range frontier {
			batch := Children(parent, 3, index, rng, layout)
			for _, p := range batch {
				index.Insert(p.Pos)
				all = append(all, placed{pos: p.Pos, exhausted: p.Exhausted})
				next = append(next, p.Pos)
			}
		}
		frontier = next[:min(len(next), 6)]
	}

	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			if all[i].pos.Dist(all[j].pos) < layout.MinSeparation && !all[j].exhausted {
				t.Errorf("nodes %d and %d are %.1f apart without an exhaustion flag",
					i, j, all[i].pos.Dist(all[j].pos))
			}
		}
	}
}

func TestPerpendicularBasis_Orthonormal(t *testing.T) {
	dirs := []Vec3{UnitX, UnitY, UnitZ, UnitZ.Scale(-1), {X: 1, Y: 2, Z: 3}, {X: -4, Y: 0.5, Z: -0.1}}
	for _, d := range dirs {
		d = d.Normalize(UnitX)
		u, v := perpendicularBasis(d)
		if math.Abs(u.Len()-1) > 1e-9 || math.Abs(v.Len()-1) > 1e-9 {
			t.Errorf("dir %v: basis not unit length: |u|=%v |v|=%v", d, u.Len(), v.Len())
		}
		if math.Abs(u.Dot(d)) > 1e-9 || math.Abs(v.Dot(d)) > 1e-9 || math.Abs(u.Dot(v)) > 1e-9 {
			t.Errorf("dir %v: basis not orthogonal (u·d=%v v·d=%v u·v=%v)", d, u.Dot(d), v.Dot(d), u.Dot(v))
		}
	}
}

func TestIndex_GridMatchesList(t *testing.T) {
	rng := NewRand(5)
	grid := NewGrid(45)
	list := NewList()
	for i := 0; i < 300; i++ {
		p := Vec3{X: (rng.Float64() - 0.5) * 800, Y: (rng.Float64() - 0.5) * 800, Z: (rng.Float64() - 0.5) * 200}
		grid.Insert(p)
		list.Insert(p)
	}
	if grid.Len() != list.Len() {
		t.Fatalf("len mismatch: grid=%d list=%d", grid.Len(), list.Len())
	}
	for i := 0; i < 500; i++ {
		q := Vec3{X: (rng.Float64() - 0.5) * 900, Y: (rng.Float64() - 0.5) * 900, Z: (rng.Float64() - 0.5) * 300}
		for _, r := range []float64{10, 45, 70, 130} {
			if g, l := grid.Within(q, r), list.Within(q, r); g != l {
				t.Fatalf("Within(%v, %v): grid=%v list=%v", q, r, g, l)
			}
		}
	}
}

func TestIndex_StrictDistance(t *testing.T) {
	for _, idx := range []Index{NewGrid(45), NewList()} {
		idx.Insert(Origin)
		if idx.Within(Vec3{X: 45}, 45) {
			t.Errorf("%T: a point exactly at the separation should not count as a collision", idx)
		}
		if !idx.Within(Vec3{X: 44.9}, 45) {
			t.Errorf("%T: a point inside the separation should collide", idx)
		}
	}
}
