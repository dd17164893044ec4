package game

import (
	"time"

	"swing-trainer/models"
)

// Flight duration bounds: the slowest trainable pitch takes two seconds to
// reach the plate, the fastest 400 ms.
const (
	maxFlightMs = 2000.0
	minFlightMs = 400.0
)

// flightDuration maps pitch velocity to flight time. Strictly decreasing:
// a faster pitch always reaches the plate sooner.
func flightDuration(velocityMPH float64) time.Duration {
	if velocityMPH < models.MinVelocityMPH {
		velocityMPH = models.MinVelocityMPH
	}
	if velocityMPH > models.MaxVelocityMPH {
		velocityMPH = models.MaxVelocityMPH
	}

	frac := (velocityMPH - models.MinVelocityMPH) / (models.MaxVelocityMPH - models.MinVelocityMPH)
	ms := maxFlightMs - frac*(maxFlightMs-minFlightMs)
	return time.Duration(ms) * time.Millisecond
}
