package game

import (
	"math"
	"math/rand"

	"swing-trainer/models"
)

// ContactPoint is the flight progress at which the ball notionally crosses the
// plate. Timing deltas are measured against it.
const ContactPoint = 0.86

// Classification thresholds, measured as absolute distance between swing
// progress and ContactPoint. Ascending: perfect < good < okay < foul cutoff.
// A delta beyond the foul cutoff leaves the pitch unresolved until the flight
// completes as a called strike.
const (
	perfectThreshold = 0.02
	goodThreshold    = 0.05
	okayThreshold    = 0.09
	foulCutoff       = 0.14

	// Inside the okay band, anything tighter than this fraction of the band
	// is upgraded to a double. Tuning heuristic, kept as-is for game feel.
	okayDoubleFraction = 0.6
)

// classifySwing maps the progress at the moment of a swing to an outcome.
// The returned bool is false when the swing is inconclusive (too early or too
// late for a foul): the pitch keeps flying and the final verdict is issued at
// flight end.
func classifySwing(progress float64, rng *rand.Rand) (*models.HitResult, bool) {
	return classifyDelta(math.Abs(progress-ContactPoint), rng)
}

// classifyDelta runs the decision ladder on an absolute timing delta
func classifyDelta(delta float64, rng *rand.Rand) (*models.HitResult, bool) {
	switch {
	case delta <= perfectThreshold:
		return newHitResult(models.ResultHomeRun, delta, rng), true
	case delta <= goodThreshold:
		return newHitResult(models.ResultDouble, delta, rng), true
	case delta <= okayThreshold:
		if delta < okayThreshold*okayDoubleFraction {
			return newHitResult(models.ResultDouble, delta, rng), true
		}
		return newHitResult(models.ResultSingle, delta, rng), true
	case delta <= foulCutoff:
		foul := &models.HitResult{
			Type:        models.ResultFoul,
			TimingDelta: delta,
		}
		foul.Description = foul.Describe()
		return foul, true
	}

	return nil, false
}

// lateStrike builds the end-of-flight verdict for an inconclusive swing
func lateStrike(swingProgress float64) *models.HitResult {
	reason := models.StrikeEarly
	if swingProgress > ContactPoint {
		reason = models.StrikeLate
	}
	result := &models.HitResult{
		Type:        models.ResultStrike,
		Reason:      reason,
		TimingDelta: math.Abs(swingProgress - ContactPoint),
	}
	result.Description = result.Describe()
	return result
}

// missedStrike builds the verdict for a flight that ended with no swing
func missedStrike() *models.HitResult {
	result := &models.HitResult{
		Type:   models.ResultStrike,
		Reason: models.StrikeMiss,
	}
	result.Description = result.Describe()
	return result
}

// newHitResult attaches cosmetic flight numbers to a hit-tier outcome
func newHitResult(rt models.ResultType, delta float64, rng *rand.Rand) *models.HitResult {
	velocity, angle := sampleBattedBall(rt, rng)
	result := &models.HitResult{
		Type:         rt,
		TimingDelta:  delta,
		ExitVelocity: velocity,
		LaunchAngle:  angle,
		Distance:     estimateDistance(velocity, angle),
	}
	result.Description = result.Describe()
	return result
}
