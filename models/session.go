package models

import (
	"time"
)

// Phase is the explicit state of a batting session
type Phase string

const (
	PhaseIdle     Phase = "idle"      // no pitch in flight, session live
	PhaseInFlight Phase = "in_flight" // ball on its way to the plate
	PhaseGameOver Phase = "game_over" // pitch budget exhausted, terminal until reset
)

// Bases tracks which bases are occupied. At most one runner per base; the
// scorer's advancement rules are the only mutator outside of a full reset.
type Bases struct {
	First  bool `json:"first"`
	Second bool `json:"second"`
	Third  bool `json:"third"`
}

// Occupied returns the number of runners on base
func (b Bases) Occupied() int {
	count := 0
	if b.First {
		count++
	}
	if b.Second {
		count++
	}
	if b.Third {
		count++
	}
	return count
}

// IsEmpty checks if all bases are empty
func (b Bases) IsEmpty() bool {
	return !b.First && !b.Second && !b.Third
}

// Snapshot is the observable state of the session engine, published to the
// browser stream on every change and served from the state endpoint.
type Snapshot struct {
	SessionID  string     `json:"session_id"`
	Phase      Phase      `json:"phase"`
	InFlight   bool       `json:"in_flight"`
	Progress   float64    `json:"progress"` // [0,1] fraction of pitch flight
	LastResult *HitResult `json:"last_result,omitempty"`
	Strikes    int        `json:"strikes"`
	Outs       int        `json:"outs"`
	Runs       int        `json:"runs"`
	PitchCount int        `json:"pitch_count"`
	MaxPitches int        `json:"max_pitches"`
	GameOver   bool       `json:"game_over"`
	Bases      Bases      `json:"bases"`
	Config     Config     `json:"config"`
}

// SessionResult is the final scoreline of one completed session, persisted
// when the session reaches game over.
type SessionResult struct {
	SessionID    string             `json:"session_id"`
	Runs         int                `json:"runs"`
	Pitches      int                `json:"pitches"`
	OutsRecorded int                `json:"outs_recorded"`
	Breakdown    map[ResultType]int `json:"breakdown"` // pitch results by type
	StartedAt    time.Time          `json:"started_at"`
	EndedAt      time.Time          `json:"ended_at"`
}

// AggregateStats summarizes all persisted sessions
type AggregateStats struct {
	TotalSessions int     `json:"total_sessions"`
	TotalRuns     int     `json:"total_runs"`
	BestRuns      int     `json:"best_runs"`
	AvgRuns       float64 `json:"avg_runs"`
	AvgPitches    float64 `json:"avg_pitches"`
}
