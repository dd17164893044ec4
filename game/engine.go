package game

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"swing-trainer/models"
)

// Progress updates are recomputed on a frame cadence rather than a fixed
// step; classification only ever samples progress at discrete instants.
const frameInterval = 16 * time.Millisecond

// Engine drives the batting session: one pitch in flight at a time, timing
// classification at the moment of a swing, and the strikes/outs/runs ledger.
// All mutation happens under one lock; swing signals from the sensor bridge,
// keyboard handlers and the pacing timer are just callers of the same four
// entry points.
type Engine struct {
	mu sync.Mutex

	cfg models.Config

	sessionID    string
	sessionStart time.Time
	phase        models.Phase
	strikes      int
	outs         int
	totalOuts    int
	runs         int
	pitchCount   int
	maxPitches   int
	bases        models.Bases
	breakdown    map[models.ResultType]int
	lastResult   *models.HitResult

	// flight state for the pitch currently in the air
	progress      float64
	pitchStart    time.Time
	pitchDuration time.Duration
	swung         bool
	swingProgress float64
	frameStop     chan struct{}

	pacingTimer *time.Timer
	// generation invalidates callbacks scheduled before a resolve or reset;
	// a stale timer must never act on a session it no longer belongs to.
	generation int

	now      func() time.Time
	rng      *rand.Rand
	store    *SessionStore
	onChange func(models.Snapshot)
}

// NewEngine creates an engine with default configuration. The store may be
// nil; the session then simply is not persisted.
func NewEngine(store *SessionStore) *Engine {
	e := &Engine{
		cfg:   models.DefaultConfig(),
		now:   time.Now,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		store: store,
	}
	e.resetLocked()
	return e
}

// SetOnChange registers the observer that receives a snapshot after every
// state change. Must be called before the engine starts handling requests.
func (e *Engine) SetOnChange(fn func(models.Snapshot)) {
	e.onChange = fn
}

// RequestPitch starts a new pitch. It is a no-op while a pitch is already in
// flight or after game over.
func (e *Engine) RequestPitch() {
	e.mu.Lock()
	if e.phase != models.PhaseIdle {
		e.mu.Unlock()
		return
	}

	// Never two concurrent flights: cancel anything still scheduled.
	e.cancelPacingLocked()
	e.stopFrameLoopLocked()

	e.phase = models.PhaseInFlight
	e.progress = 0
	e.swung = false
	e.swingProgress = 0
	e.lastResult = nil
	e.pitchStart = e.now()
	e.pitchDuration = flightDuration(e.cfg.VelocityMPH)

	stop := make(chan struct{})
	e.frameStop = stop
	gen := e.generation
	e.mu.Unlock()

	go e.runFrameLoop(stop, gen)
	e.notify()
}

// RequestSwing samples the current flight progress and classifies the swing.
// A conclusive verdict (hit or foul) ends the pitch immediately; an
// inconclusive one is remembered and judged when the flight completes. A
// swing with no pitch in flight is ignored.
func (e *Engine) RequestSwing() {
	e.mu.Lock()
	if e.phase != models.PhaseInFlight {
		e.mu.Unlock()
		return
	}
	if e.swung {
		// One swing per pitch; later signals are sensor chatter.
		e.mu.Unlock()
		return
	}

	progress := e.progressLocked()
	result, conclusive := classifySwing(progress, e.rng)
	if !conclusive {
		e.swung = true
		e.swingProgress = progress
		e.mu.Unlock()
		return
	}

	e.progress = progress // frozen at the sampled instant
	e.resolveLocked(result)
	e.mu.Unlock()
	e.notify()
}

// UpdateConfig clamps and applies new configuration. A pitch already in
// flight keeps its parameters; the pacing timer is rescheduled with the new
// gap. Returns the configuration as applied.
func (e *Engine) UpdateConfig(cfg models.Config) models.Config {
	cfg = cfg.Clamped()

	e.mu.Lock()
	prevMax := e.cfg.MaxPitches
	e.cfg = cfg
	if cfg.MaxPitches != prevMax {
		// Bonus pitches earned by fouls carry over to the new limit.
		bonus := e.maxPitches - prevMax
		e.maxPitches = cfg.MaxPitches + bonus
	}
	if e.phase == models.PhaseIdle && e.pitchCount >= e.maxPitches {
		e.phase = models.PhaseGameOver
		e.finishSessionLocked()
	}
	e.schedulePacingLocked()
	e.mu.Unlock()

	e.notify()
	return cfg
}

// Reset returns the session to a fresh idle state: counters zeroed, bases
// cleared, pending timers cancelled. Configuration is kept.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.resetLocked()
	e.mu.Unlock()
	e.notify()
}

// Close cancels all scheduled work. The engine must not be used afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	e.generation++
	e.stopFrameLoopLocked()
	e.cancelPacingLocked()
	e.mu.Unlock()
}

// Snapshot returns the current observable state
func (e *Engine) Snapshot() models.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) resetLocked() {
	e.generation++
	e.stopFrameLoopLocked()
	e.cancelPacingLocked()

	e.sessionID = uuid.New().String()
	e.sessionStart = e.now()
	e.phase = models.PhaseIdle
	e.strikes = 0
	e.outs = 0
	e.totalOuts = 0
	e.runs = 0
	e.pitchCount = 0
	e.maxPitches = e.cfg.MaxPitches
	e.bases = models.Bases{}
	e.breakdown = make(map[models.ResultType]int)
	e.lastResult = nil
	e.progress = 0
	e.swung = false
	e.swingProgress = 0

	e.schedulePacingLocked()
}

// progressLocked recomputes flight progress from the captured start timestamp
func (e *Engine) progressLocked() float64 {
	elapsed := e.now().Sub(e.pitchStart)
	p := float64(elapsed) / float64(e.pitchDuration)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// runFrameLoop republishes progress once per frame until the flight ends or
// is cancelled
func (e *Engine) runFrameLoop(stop <-chan struct{}, gen int) {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if e.frameTick(gen) {
				return
			}
		}
	}
}

// frameTick advances one frame. Returns true when the loop should stop.
func (e *Engine) frameTick(gen int) bool {
	e.mu.Lock()
	if gen != e.generation || e.phase != models.PhaseInFlight {
		// The pitch was resolved by a swing, or the session was reset.
		e.mu.Unlock()
		return true
	}

	e.progress = e.progressLocked()
	done := e.progress >= 1
	if done {
		// Flight completed without a conclusive swing: synthesize the
		// strike verdict.
		var result *models.HitResult
		if e.swung {
			result = lateStrike(e.swingProgress)
		} else {
			result = missedStrike()
		}
		e.resolveLocked(result)
	}
	e.mu.Unlock()

	e.notify()
	return done
}

// resolveLocked applies a verdict and transitions out of the flight
func (e *Engine) resolveLocked(result *models.HitResult) {
	e.stopFrameLoopLocked()
	e.generation++

	e.applyResult(result)
	e.lastResult = result
	e.breakdown[result.Type]++
	e.pitchCount++

	if e.pitchCount >= e.maxPitches {
		e.phase = models.PhaseGameOver
		e.finishSessionLocked()
		return
	}

	e.phase = models.PhaseIdle
	e.schedulePacingLocked()
}

// schedulePacingLocked cancels any pending automatic pitch and schedules a
// new one when automatic pacing applies. At most one pacing timer exists.
func (e *Engine) schedulePacingLocked() {
	e.cancelPacingLocked()
	if !e.cfg.AutoPitch || e.phase != models.PhaseIdle {
		return
	}

	gen := e.generation
	gap := time.Duration(e.cfg.PitchGapMs) * time.Millisecond
	e.pacingTimer = time.AfterFunc(gap, func() {
		e.mu.Lock()
		stale := gen != e.generation || e.phase != models.PhaseIdle
		e.mu.Unlock()
		if stale {
			return
		}
		e.RequestPitch()
	})
}

func (e *Engine) cancelPacingLocked() {
	if e.pacingTimer != nil {
		e.pacingTimer.Stop()
		e.pacingTimer = nil
	}
}

func (e *Engine) stopFrameLoopLocked() {
	if e.frameStop != nil {
		close(e.frameStop)
		e.frameStop = nil
	}
}

// finishSessionLocked persists the final scoreline in the background
func (e *Engine) finishSessionLocked() {
	if e.store == nil {
		return
	}

	breakdown := make(map[models.ResultType]int, len(e.breakdown))
	for k, v := range e.breakdown {
		breakdown[k] = v
	}
	result := models.SessionResult{
		SessionID:    e.sessionID,
		Runs:         e.runs,
		Pitches:      e.pitchCount,
		OutsRecorded: e.totalOuts,
		Breakdown:    breakdown,
		StartedAt:    e.sessionStart,
		EndedAt:      e.now(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := e.store.SaveSession(ctx, result); err != nil {
			log.Printf("Failed to save session %s: %v", result.SessionID, err)
		}
	}()
}

func (e *Engine) snapshotLocked() models.Snapshot {
	return models.Snapshot{
		SessionID:  e.sessionID,
		Phase:      e.phase,
		InFlight:   e.phase == models.PhaseInFlight,
		Progress:   e.progress,
		LastResult: e.lastResult,
		Strikes:    e.strikes,
		Outs:       e.outs,
		Runs:       e.runs,
		PitchCount: e.pitchCount,
		MaxPitches: e.maxPitches,
		GameOver:   e.phase == models.PhaseGameOver,
		Bases:      e.bases,
		Config:     e.cfg,
	}
}

// notify publishes a snapshot to the registered observer. Always called
// outside the engine lock.
func (e *Engine) notify() {
	if e.onChange == nil {
		return
	}
	e.onChange(e.Snapshot())
}
