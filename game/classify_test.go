package game

import (
	"math"
	"math/rand"
	"testing"

	"swing-trainer/models"
)

func testRNG() *rand.Rand {
	return rand.New(rand.NewSource(1))
}

// TestClassifySwingLadder tests the timing-delta decision ladder
func TestClassifySwingLadder(t *testing.T) {
	tests := []struct {
		name       string
		progress   float64
		wantType   models.ResultType
		conclusive bool
	}{
		{
			name:       "dead on the contact point",
			progress:   ContactPoint,
			wantType:   models.ResultHomeRun,
			conclusive: true,
		},
		{
			name:       "near the perfect band edge",
			progress:   ContactPoint + 0.019,
			wantType:   models.ResultHomeRun,
			conclusive: true,
		},
		{
			name:       "good band",
			progress:   ContactPoint - 0.04,
			wantType:   models.ResultDouble,
			conclusive: true,
		},
		{
			name:       "okay band tight side is a double",
			progress:   ContactPoint + 0.052,
			wantType:   models.ResultDouble,
			conclusive: true,
		},
		{
			name:       "okay band loose side is a single",
			progress:   ContactPoint - 0.08,
			wantType:   models.ResultSingle,
			conclusive: true,
		},
		{
			name:       "foul band",
			progress:   ContactPoint + 0.12,
			wantType:   models.ResultFoul,
			conclusive: true,
		},
		{
			name:       "beyond the foul cutoff has no verdict yet",
			progress:   ContactPoint - 0.30,
			conclusive: false,
		},
		{
			name:       "swing at release has no verdict yet",
			progress:   0,
			conclusive: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, conclusive := classifySwing(tt.progress, testRNG())

			if conclusive != tt.conclusive {
				t.Fatalf("conclusive = %v, want %v", conclusive, tt.conclusive)
			}
			if !tt.conclusive {
				if result != nil {
					t.Errorf("expected nil result for inconclusive swing, got %v", result.Type)
				}
				return
			}

			if result.Type != tt.wantType {
				t.Errorf("result type = %s, want %s", result.Type, tt.wantType)
			}

			wantDelta := math.Abs(tt.progress - ContactPoint)
			if math.Abs(result.TimingDelta-wantDelta) > 1e-9 {
				t.Errorf("timing delta = %f, want %f", result.TimingDelta, wantDelta)
			}
		})
	}
}

// TestOkayBandTieBreak pins the single-vs-double cutoff inside the okay band:
// strictly tighter than okay*0.6 is a double, exactly at it is a single
func TestOkayBandTieBreak(t *testing.T) {
	cutoff := okayThreshold * okayDoubleFraction

	atCutoff, conclusive := classifyDelta(cutoff, testRNG())
	if !conclusive || atCutoff.Type != models.ResultSingle {
		t.Errorf("delta exactly at cutoff: got %v, want single", atCutoff.Type)
	}

	justInside, conclusive := classifyDelta(math.Nextafter(cutoff, 0), testRNG())
	if !conclusive || justInside.Type != models.ResultDouble {
		t.Errorf("delta just inside cutoff: got %v, want double", justInside.Type)
	}
}

// TestClassifySwingCosmetics checks that hit outcomes carry flight numbers
// and non-hits do not
func TestClassifySwingCosmetics(t *testing.T) {
	hit, _ := classifySwing(ContactPoint, testRNG())
	if hit.ExitVelocity <= 0 || hit.LaunchAngle <= 0 || hit.Distance <= 0 {
		t.Errorf("hit should carry cosmetic numbers, got velo=%f angle=%f dist=%f",
			hit.ExitVelocity, hit.LaunchAngle, hit.Distance)
	}

	r := battedBallRanges[models.ResultHomeRun]
	if hit.ExitVelocity < r.minVelo || hit.ExitVelocity > r.maxVelo {
		t.Errorf("exit velocity %f outside home run range [%f, %f]", hit.ExitVelocity, r.minVelo, r.maxVelo)
	}
	if hit.LaunchAngle < r.minAngle || hit.LaunchAngle > r.maxAngle {
		t.Errorf("launch angle %f outside home run range [%f, %f]", hit.LaunchAngle, r.minAngle, r.maxAngle)
	}

	foul, _ := classifySwing(ContactPoint+0.12, testRNG())
	if foul.ExitVelocity != 0 || foul.Distance != 0 {
		t.Errorf("foul should have no cosmetic numbers, got velo=%f dist=%f", foul.ExitVelocity, foul.Distance)
	}
}

// TestLateStrikeReason tests the early/late verdict for inconclusive swings
func TestLateStrikeReason(t *testing.T) {
	tests := []struct {
		name          string
		swingProgress float64
		want          models.StrikeReason
	}{
		{name: "swing long before contact", swingProgress: 0.10, want: models.StrikeEarly},
		{name: "swing after contact", swingProgress: 0.99, want: models.StrikeLate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := lateStrike(tt.swingProgress)
			if result.Type != models.ResultStrike {
				t.Fatalf("result type = %s, want strike", result.Type)
			}
			if result.Reason != tt.want {
				t.Errorf("reason = %s, want %s", result.Reason, tt.want)
			}
		})
	}
}

func TestMissedStrike(t *testing.T) {
	result := missedStrike()
	if result.Type != models.ResultStrike || result.Reason != models.StrikeMiss {
		t.Errorf("got %s/%s, want strike/miss", result.Type, result.Reason)
	}
}

// TestThresholdOrdering guards the invariant the ladder depends on
func TestThresholdOrdering(t *testing.T) {
	if !(0 < perfectThreshold && perfectThreshold < goodThreshold &&
		goodThreshold < okayThreshold && okayThreshold < foulCutoff && foulCutoff < 1) {
		t.Errorf("thresholds out of order: %f %f %f %f",
			perfectThreshold, goodThreshold, okayThreshold, foulCutoff)
	}
}
