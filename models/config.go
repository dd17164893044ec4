package models

// PitchShape selects the visual break of the pitch. Cosmetic only: it offsets
// the rendered ball path and never changes timing or scoring.
type PitchShape string

const (
	ShapeStraight PitchShape = "straight"
	ShapeSlider   PitchShape = "slider"
	ShapeCurve    PitchShape = "curve"
	ShapeSinker   PitchShape = "sinker"
)

// Configuration bounds. Out-of-range values are clamped, never rejected.
const (
	MinVelocityMPH = 70.0
	MaxVelocityMPH = 100.0

	MinPitchGapMs = 600
	MaxPitchGapMs = 2400

	MinMaxPitches = 1
	MaxMaxPitches = 99

	DefaultVelocityMPH = 85.0
	DefaultPitchGapMs  = 1200
	DefaultMaxPitches  = 10
)

// Config is the tunable pitch configuration. Changes apply to the next pitch;
// a pitch already in flight is never retroactively altered.
type Config struct {
	VelocityMPH   float64    `json:"velocity_mph"`
	PitchShape    PitchShape `json:"pitch_shape"`
	PitchGapMs    int        `json:"pitch_gap_ms"` // delay between automatic pitches
	AutoPitch     bool       `json:"auto_pitch"`
	MaxPitches    int        `json:"max_pitches"`
	AssistDisplay bool       `json:"assist_display"` // presentation hint, not used by scoring
}

// DefaultConfig returns the configuration a fresh session starts with
func DefaultConfig() Config {
	return Config{
		VelocityMPH: DefaultVelocityMPH,
		PitchShape:  ShapeStraight,
		PitchGapMs:  DefaultPitchGapMs,
		AutoPitch:   false,
		MaxPitches:  DefaultMaxPitches,
	}
}

// Clamped returns a copy with every field forced into its documented bounds
func (c Config) Clamped() Config {
	if c.VelocityMPH < MinVelocityMPH {
		c.VelocityMPH = MinVelocityMPH
	}
	if c.VelocityMPH > MaxVelocityMPH {
		c.VelocityMPH = MaxVelocityMPH
	}

	if c.PitchGapMs < MinPitchGapMs {
		c.PitchGapMs = MinPitchGapMs
	}
	if c.PitchGapMs > MaxPitchGapMs {
		c.PitchGapMs = MaxPitchGapMs
	}

	if c.MaxPitches < MinMaxPitches {
		c.MaxPitches = MinMaxPitches
	}
	if c.MaxPitches > MaxMaxPitches {
		c.MaxPitches = MaxMaxPitches
	}

	switch c.PitchShape {
	case ShapeStraight, ShapeSlider, ShapeCurve, ShapeSinker:
	default:
		c.PitchShape = ShapeStraight
	}

	return c
}
