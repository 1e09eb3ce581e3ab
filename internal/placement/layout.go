package placement

import (
	"math/rand/v2"
	"time"
)

// Layout holds the geometry constants of the constellation, in scene units
type Layout struct {
	RootRadius float64 `yaml:"root_radius" json:"root_radius"`
	// RootWave is the amplitude of the sin(3θ) depth term of the root ring
	RootWave float64 `yaml:"root_wave" json:"root_wave"`
	// RootStagger is the ± depth offset alternating with index parity
	RootStagger   float64 `yaml:"root_stagger" json:"root_stagger"`
	ChildRadius   float64 `yaml:"child_radius" json:"child_radius"`
	RadiusJitter  float64 `yaml:"radius_jitter" json:"radius_jitter"`
	OutwardPush   float64 `yaml:"outward_push" json:"outward_push"`
	PushJitter    float64 `yaml:"push_jitter" json:"push_jitter"`
	// AngleJitter is in radians, applied ± around the even angular spacing
	AngleJitter   float64 `yaml:"angle_jitter" json:"angle_jitter"`
	DepthJitter   float64 `yaml:"depth_jitter" json:"depth_jitter"`
	MinSeparation float64 `yaml:"min_separation" json:"min_separation"`
	MaxAttempts   int     `yaml:"max_attempts" json:"max_attempts"`
}

// DefaultLayout returns the constants the constellation view was tuned with
func DefaultLayout() Layout {
	return Layout{
		RootRadius:    120,
		RootWave:      30,
		RootStagger:   15,
		ChildRadius:   60,
		RadiusJitter:  10,
		OutwardPush:   40,
		PushJitter:    10,
		AngleJitter:   0.15,
		DepthJitter:   30,
		MinSeparation: 45,
		MaxAttempts:   20,
	}
}

// WithDefaults returns DefaultLayout for the zero Layout. Any other layout is
// kept as given, so a zero jitter or separation stays disabled; only a
// MaxAttempts below one is raised to the default.
func (l Layout) WithDefaults() Layout {
	if l == (Layout{}) {
		return DefaultLayout()
	}
	if l.MaxAttempts <= 0 {
		l.MaxAttempts = DefaultLayout().MaxAttempts
	}
	return l
}
