package game

import (
	"swing-trainer/models"
)

// Scoring rules. The scorer mutates the engine's counters and bases under the
// engine lock; it never schedules anything itself.

const (
	strikesPerOut  = 3
	outsPerInning  = 3
	homeRunBaseRun = 5 // flat home run bonus, plus one per occupied base
)

// applyResult folds one classified pitch outcome into the session counters
func (e *Engine) applyResult(result *models.HitResult) {
	switch result.Type {
	case models.ResultStrike:
		e.strikes++
		if e.strikes >= strikesPerOut {
			e.strikes = 0
			e.recordOut()
		}

	case models.ResultFoul:
		// A foul never completes a strikeout, but it buys one extra pitch.
		if e.strikes < strikesPerOut-1 {
			e.strikes++
		}
		if e.maxPitches < models.MaxMaxPitches {
			e.maxPitches++
		}

	case models.ResultHomeRun:
		e.runs += homeRunBaseRun + e.bases.Occupied()
		e.bases = models.Bases{}
		e.strikes = 0

	case models.ResultSingle, models.ResultDouble, models.ResultTriple:
		var scored int
		e.bases, scored = advanceRunners(e.bases, result.Type.BasesGained())
		e.runs += 1 + scored
		e.strikes = 0
	}
}

// recordOut increments outs and rolls the inning over at three: outs and
// strikes reset and the bases clear, while runs and pitch count stand.
func (e *Engine) recordOut() {
	e.outs++
	e.totalOuts++
	if e.outs >= outsPerInning {
		e.outs = 0
		e.strikes = 0
		e.bases = models.Bases{}
	}
}

// advanceRunners moves every runner forward n bases and places the batter on
// base n-1, returning the new occupancy and the number of runners who crossed
// home. Occupied bases are processed third down to first so a runner never
// lands on a base that has not been vacated yet.
func advanceRunners(b models.Bases, n int) (models.Bases, int) {
	occ := [3]bool{b.First, b.Second, b.Third}
	scored := 0

	for i := 2; i >= 0; i-- {
		if !occ[i] {
			continue
		}
		occ[i] = false
		if j := i + n; j >= 3 {
			scored++
		} else {
			occ[j] = true
		}
	}

	if n-1 >= 3 {
		scored++
	} else {
		occ[n-1] = true
	}

	return models.Bases{First: occ[0], Second: occ[1], Third: occ[2]}, scored
}
