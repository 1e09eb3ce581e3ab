package placement

import "math"

// Vec3 is a point or direction in scene coordinates
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Reference points and axes
var (
	Origin = Vec3{}
	UnitX  = Vec3{X: 1}
	UnitY  = Vec3{Y: 1}
	UnitZ  = Vec3{Z: 1}
)

// Add returns a + b
func (a Vec3) Add(b Vec3) Vec3 { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }

// Sub returns a - b
func (a Vec3) Sub(b Vec3) Vec3 { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }

// Scale multiplies every component by s
func (a Vec3) Scale(s float64) Vec3 { return Vec3{a.X * s, a.Y * s, a.Z * s} }

// Dot returns the scalar product of a and b
func (a Vec3) Dot(b Vec3) float64 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }

// Len is the Euclidean length of a
func (a Vec3) Len() float64 { return math.Sqrt(a.Dot(a)) }

// Dist is the Euclidean distance between a and b
func (a Vec3) Dist(b Vec3) float64 { return a.Sub(b).Len() }

// Cross returns a × b
func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		a.Y*b.Z - a.Z*b.Y,
		a.Z*b.X - a.X*b.Z,
		a.X*b.Y - a.Y*b.X,
	}
}

// Normalize returns the unit vector along a, or fallback when a has zero length
func (a Vec3) Normalize(fallback Vec3) Vec3 {
	l := a.Len()
	if l == 0 || math.IsNaN(l) {
		return fallback
	}
	return a.Scale(1 / l)
}

// HorizontalDist is the distance from the origin within the X/Y plane
func (a Vec3) HorizontalDist() float64 {
	return math.Hypot(a.X, a.Y)
}
