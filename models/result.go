package models

import "fmt"

// ResultType identifies the outcome of a single pitch
type ResultType string

const (
	ResultStrike  ResultType = "strike"
	ResultFoul    ResultType = "foul"
	ResultSingle  ResultType = "single"
	ResultDouble  ResultType = "double"
	ResultTriple  ResultType = "triple"
	ResultHomeRun ResultType = "home_run"
)

// IsHit reports whether the result puts the batter on base (or over the fence)
func (rt ResultType) IsHit() bool {
	switch rt {
	case ResultSingle, ResultDouble, ResultTriple, ResultHomeRun:
		return true
	}
	return false
}

// BasesGained returns how many bases the batter earns for a hit result.
// Home runs are handled separately by the scorer and return 4 here.
func (rt ResultType) BasesGained() int {
	switch rt {
	case ResultSingle:
		return 1
	case ResultDouble:
		return 2
	case ResultTriple:
		return 3
	case ResultHomeRun:
		return 4
	}
	return 0
}

// StrikeReason explains why a strike was called
type StrikeReason string

const (
	StrikeEarly StrikeReason = "early" // swing well before the contact point
	StrikeLate  StrikeReason = "late"  // swing well after the contact point
	StrikeMiss  StrikeReason = "miss"  // no swing at all
)

// HitResult is the classified outcome of one pitch. A new one is created each
// time a pitch resolves and replaces the previous one; it is retained for
// display until the next pitch starts.
type HitResult struct {
	Type        ResultType   `json:"type"`
	Reason      StrikeReason `json:"reason,omitempty"` // strikes only
	TimingDelta float64      `json:"timing_delta"`     // |swing progress - contact point|

	// Cosmetic flight numbers, present on hits only. Display values with no
	// bearing on scoring.
	ExitVelocity float64 `json:"exit_velocity,omitempty"` // mph
	LaunchAngle  float64 `json:"launch_angle,omitempty"`  // degrees
	Distance     float64 `json:"distance,omitempty"`      // meters

	Description string `json:"description"`
}

// Describe builds a short display string for the result
func (hr *HitResult) Describe() string {
	switch hr.Type {
	case ResultStrike:
		return fmt.Sprintf("Strike (%s)", hr.Reason)
	case ResultFoul:
		return "Foul ball"
	case ResultHomeRun:
		return fmt.Sprintf("Home run! %.0f m", hr.Distance)
	case ResultSingle, ResultDouble, ResultTriple:
		return fmt.Sprintf("%s, %.0f mph off the bat", hr.Type, hr.ExitVelocity)
	}
	return string(hr.Type)
}
