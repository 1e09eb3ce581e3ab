package placement

import (
	"log/slog"
	"math"
	"math/rand/v2"
)

// Placement is one accepted child position
type Placement struct {
	Pos      Vec3 `json:"position"`
	Attempts int  `json:"attempts"`
	// Exhausted is set when no collision-free candidate was found within MaxAttempts
	// and the last candidate was accepted anyway.
	Exhausted bool `json:"exhausted,omitempty"`
}

// Roots places n root nodes on a ring of radius RootRadius around the origin.
// Node i sits at θ = 2πi/n with depth RootWave·sin(3θ) ± RootStagger (even +, odd −).
// The layout is fully deterministic.
func Roots(n int, layout Layout) []Vec3 {
	if n <= 0 {
		return nil
	}
	out := make([]Vec3, n)
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * float64(i) / float64(n)
		stagger := layout.RootStagger
		if i%2 != 0 {
			stagger = -stagger
		}
		out[i] = Vec3{
			X: layout.RootRadius * math.Cos(theta),
			Y: layout.RootRadius * math.Sin(theta),
			Z: layout.RootWave*math.Sin(3*theta) + stagger,
		}
	}
	return out
}

// Children places k children around parent, pushed away from the origin.
//
// Candidates are rejected while they sit closer than MinSeparation to any point in
// occupied or to a sibling accepted earlier in the same batch. After MaxAttempts
// the last candidate is kept and flagged Exhausted. occupied is never modified;
// the caller commits accepted positions once the batch is stored.
func Children(parent Vec3, k int, occupied Index, rng *rand.Rand, layout Layout) []Placement {
	if k <= 0 {
		return nil
	}
	if rng == nil {
		rng = NewTimeRand()
	}
	attempts := layout.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	outward := parent.Normalize(UnitX)
	u, v := perpendicularBasis(outward)

	batch := NewList()
	out := make([]Placement, 0, k)
	for j := 0; j < k; j++ {
		base := 2 * math.Pi * float64(j) / float64(k)

		var cand Vec3
		accepted := false
		n := 0
		for n < attempts {
			n++
			angle := base + jitter(rng, layout.AngleJitter)
			radius := layout.ChildRadius + jitter(rng, layout.RadiusJitter)
			push := layout.OutwardPush + jitter(rng, layout.PushJitter)
			ring := u.Scale(math.Cos(angle)).Add(v.Scale(math.Sin(angle)))

			cand = parent.
				Add(outward.Scale(push)).
				Add(ring.Scale(radius)).
				Add(UnitZ.Scale(jitter(rng, layout.DepthJitter)))

			if !collides(cand, occupied, batch, layout.MinSeparation) {
				accepted = true
				break
			}
		}

		if !accepted {
			slog.Warn("PlacementExhausted: accepting overlapping position",
				"child", j+1, "of", k, "attempts", n,
				"x", round1(cand.X), "y", round1(cand.Y), "z", round1(cand.Z))
		}
		batch.Insert(cand)
		out = append(out, Placement{Pos: cand, Attempts: n, Exhausted: !accepted})
	}
	return out
}

// perpendicularBasis returns two unit vectors spanning the plane normal to dir
func perpendicularBasis(dir Vec3) (Vec3, Vec3) {
	up := UnitZ
	if math.Abs(dir.Dot(up)) > 0.999 {
		up = UnitY
	}
	u := dir.Cross(up).Normalize(UnitY)
	v := dir.Cross(u).Normalize(UnitZ)
	return u, v
}

func collides(p Vec3, occupied Index, batch *List, minSep float64) bool {
	if occupied != nil && occupied.Within(p, minSep) {
		return true
	}
	return batch.Within(p, minSep)
}

// jitter returns a uniform value in [-amount, amount)
func jitter(rng *rand.Rand, amount float64) float64 {
	if amount == 0 {
		return 0
	}
	return (rng.Float64()*2 - 1) * amount
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
