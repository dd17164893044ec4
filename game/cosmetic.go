package game

import (
	"math"
	"math/rand"

	"swing-trainer/models"
)

// Batted-ball flavor numbers. Purely for display: the discrete outcome is
// already decided by timing before these are sampled.

const (
	gravity     = 9.81 // m/s^2
	dragFactor  = 0.82 // flat damping applied to the vacuum range
	mphToMeters = 0.44704
)

// Per-tier sampling ranges for exit velocity (mph) and launch angle (degrees)
var battedBallRanges = map[models.ResultType]struct {
	minVelo, maxVelo   float64
	minAngle, maxAngle float64
}{
	models.ResultHomeRun: {minVelo: 100, maxVelo: 115, minAngle: 24, maxAngle: 34},
	models.ResultTriple:  {minVelo: 95, maxVelo: 105, minAngle: 14, maxAngle: 22},
	models.ResultDouble:  {minVelo: 90, maxVelo: 102, minAngle: 12, maxAngle: 24},
	models.ResultSingle:  {minVelo: 75, maxVelo: 95, minAngle: 5, maxAngle: 18},
}

// sampleBattedBall draws exit velocity and launch angle uniformly from the
// tier's documented ranges
func sampleBattedBall(rt models.ResultType, rng *rand.Rand) (velocity, angle float64) {
	r, ok := battedBallRanges[rt]
	if !ok {
		return 0, 0
	}
	velocity = r.minVelo + rng.Float64()*(r.maxVelo-r.minVelo)
	angle = r.minAngle + rng.Float64()*(r.maxAngle-r.minAngle)
	return velocity, angle
}

// estimateDistance returns a carry distance in meters for the given exit
// velocity (mph) and launch angle (degrees): the vacuum projectile range
// damped by a fixed drag factor, floored at zero.
func estimateDistance(velocityMPH, angleDegrees float64) float64 {
	v := velocityMPH * mphToMeters
	theta := angleDegrees * math.Pi / 180
	distance := v * v * math.Sin(2*theta) / gravity * dragFactor
	return math.Max(0, distance)
}
