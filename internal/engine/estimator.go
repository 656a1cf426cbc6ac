// Package engine implements the goal-likelihood estimator and the alert
// lifecycle: rolling windows of statistic deltas, a bounded pressure index,
// a smoothed goal probability, and Pending/Success/Failed alert tracking.
package engine

import (
	"math"
	"time"

	"github.com/jbot-sports/goalsentry/internal/logger"
	"github.com/jbot-sports/goalsentry/internal/models"
	"github.com/jbot-sports/goalsentry/internal/storage"
)

// BoostWindow is an elapsed-minute bracket with elevated goal rates.
type BoostWindow struct {
	From int
	To   int
}

// Config holds the estimator and lifecycle tunables. The weights are an
// empirically tuned heuristic, not a statistical fit; the defaults are the
// behavior-defining values.
type Config struct {
	Threshold        float64
	Cooldown         time.Duration
	WindowHorizon    time.Duration
	LookaheadMinutes int
	Grace            time.Duration

	ShotWeight       float64
	ShotOnGoalWeight float64
	CornerWeight     float64
	RedCardBonus     float64
	PressureCeiling  float64
	DecayRate        float64
	ProbabilityCap   float64
	BoostAmount      float64
	BoostWindows     []BoostWindow

	CheckpointInterval int
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		Threshold:          0.60,
		Cooldown:           4 * time.Minute,
		WindowHorizon:      15 * time.Minute,
		LookaheadMinutes:   12,
		Grace:              30 * time.Second,
		ShotWeight:         1.0,
		ShotOnGoalWeight:   2.2,
		CornerWeight:       1.2,
		RedCardBonus:       10.0,
		PressureCeiling:    25.0,
		DecayRate:          0.11,
		ProbabilityCap:     0.98,
		BoostAmount:        0.10,
		BoostWindows:       []BoostWindow{{From: 20, To: 25}, {From: 65, To: 70}},
		CheckpointInterval: 20,
	}
}

// fixtureState is the per-fixture mutable estimator state. Only the poll
// loop goroutine touches it.
type fixtureState struct {
	baseline *models.StatTotals
	window   []models.StatDelta
}

// WindowSums are the event counts currently inside the rolling window.
type WindowSums struct {
	Shots       int
	ShotsOnGoal int
	Corners     int
	RedCards    int
}

// Estimator converts cumulative per-fixture totals into a bounded,
// time-decayed pressure signal and a goal probability.
type Estimator struct {
	config     Config
	states     map[int]*fixtureState
	store      *storage.Storage
	cycleCount int
}

// NewEstimator creates an estimator, restoring any checkpointed fixture
// state from the store. A nil store disables persistence.
func NewEstimator(store *storage.Storage, config Config) *Estimator {
	e := &Estimator{
		config: config,
		states: make(map[int]*fixtureState),
		store:  store,
	}

	if store != nil {
		checkpoints, err := store.LoadAllFixtureStates()
		if err != nil {
			logger.Warn("Failed to load persisted fixture states: %v", err)
		} else {
			for id, cp := range checkpoints {
				e.states[id] = &fixtureState{baseline: cp.Baseline, window: cp.Window}
			}
			if len(checkpoints) > 0 {
				logger.Info("Restored %d checkpointed fixture states", len(checkpoints))
			}
		}
	}

	return e
}

func (e *Estimator) getOrCreateState(fixtureID int) *fixtureState {
	if st, ok := e.states[fixtureID]; ok {
		return st
	}
	st := &fixtureState{}
	e.states[fixtureID] = st
	return st
}

// Ingest computes non-negative deltas against the previously stored totals
// for the fixture and appends them to the rolling window, then evicts
// expired entries. The first observation for a fixture only stores the
// baseline; Ingest reports whether a signal is available.
func (e *Estimator) Ingest(fixtureID int, totals models.StatTotals, now time.Time) bool {
	st := e.getOrCreateState(fixtureID)

	if st.baseline == nil {
		base := totals
		st.baseline = &base
		return false
	}

	delta := models.StatDelta{
		At:          now,
		Shots:       clampNonNegative(totals.Shots - st.baseline.Shots),
		ShotsOnGoal: clampNonNegative(totals.ShotsOnGoal - st.baseline.ShotsOnGoal),
		Corners:     clampNonNegative(totals.Corners - st.baseline.Corners),
		RedCards:    clampNonNegative(totals.RedCards - st.baseline.RedCards),
	}
	base := totals
	st.baseline = &base

	st.window = append(st.window, delta)
	e.prune(st, now)
	return true
}

// prune evicts window entries older than the horizon. Entries are
// time-ordered, so eviction stops at the first fresh entry.
func (e *Estimator) prune(st *fixtureState, now time.Time) {
	cutoff := now.Add(-e.config.WindowHorizon)
	i := 0
	for i < len(st.window) && st.window[i].At.Before(cutoff) {
		i++
	}
	if i > 0 {
		st.window = append(st.window[:0], st.window[i:]...)
	}
}

// Prune evicts expired entries for a fixture without ingesting new data.
func (e *Estimator) Prune(fixtureID int, now time.Time) {
	if st, ok := e.states[fixtureID]; ok {
		e.prune(st, now)
	}
}

// WindowSums returns the event counts inside the fixture's rolling window.
func (e *Estimator) WindowSums(fixtureID int) WindowSums {
	var sums WindowSums
	st, ok := e.states[fixtureID]
	if !ok {
		return sums
	}
	for _, d := range st.window {
		sums.Shots += d.Shots
		sums.ShotsOnGoal += d.ShotsOnGoal
		sums.Corners += d.Corners
		sums.RedCards += d.RedCards
	}
	return sums
}

// PressureIndex computes the weighted sum of windowed events, with a flat
// bonus when a red card fell inside the window, clamped to
// [0, PressureCeiling].
func (e *Estimator) PressureIndex(fixtureID int) float64 {
	sums := e.WindowSums(fixtureID)
	pi := e.config.ShotWeight*float64(sums.Shots) +
		e.config.ShotOnGoalWeight*float64(sums.ShotsOnGoal) +
		e.config.CornerWeight*float64(sums.Corners)
	if sums.RedCards > 0 {
		pi += e.config.RedCardBonus
	}
	return clamp(pi, 0, e.config.PressureCeiling)
}

// GoalProbability maps the pressure index through an exponential-decay
// transform, adds the finishing-bracket boost when the elapsed minute falls
// inside a configured window, and a small boost for longer lookaheads. The
// result is clamped to [0, ProbabilityCap].
func (e *Estimator) GoalProbability(fixtureID int, minute int) float64 {
	pi := e.PressureIndex(fixtureID)
	base := 1 - math.Exp(-e.config.DecayRate*pi)

	var boost float64
	for _, w := range e.config.BoostWindows {
		if minute >= w.From && minute <= w.To {
			boost = e.config.BoostAmount
			break
		}
	}

	horizonBoost := clamp(float64(e.config.LookaheadMinutes-10)*0.01, 0, 0.10)

	return clamp(base+boost+horizonBoost, 0, e.config.ProbabilityCap)
}

// Forget drops all state for a fixture (match ended or left the live set).
func (e *Estimator) Forget(fixtureID int) {
	delete(e.states, fixtureID)
	if e.store != nil {
		if err := e.store.DeleteFixtureState(fixtureID); err != nil {
			logger.Warn("Failed to delete checkpoint for fixture %d: %v", fixtureID, err)
		}
	}
}

// Tracked returns the fixture IDs with live estimator state.
func (e *Estimator) Tracked() []int {
	ids := make([]int, 0, len(e.states))
	for id := range e.states {
		ids = append(ids, id)
	}
	return ids
}

// EndCycle advances the cycle counter and checkpoints state on the
// configured interval.
func (e *Estimator) EndCycle() {
	e.cycleCount++
	if e.store != nil && e.config.CheckpointInterval > 0 && e.cycleCount%e.config.CheckpointInterval == 0 {
		e.checkpoint()
	}
}

func (e *Estimator) checkpoint() {
	for id, st := range e.states {
		cp := &models.EstimatorCheckpoint{
			FixtureID: id,
			Baseline:  st.baseline,
			Window:    st.window,
			UpdatedAt: time.Now(),
		}
		if err := e.store.SaveFixtureState(id, cp); err != nil {
			logger.Warn("Failed to checkpoint fixture %d: %v", id, err)
		}
	}
}

// Shutdown checkpoints all live state before exit.
func (e *Estimator) Shutdown() {
	if e.store == nil {
		return
	}
	logger.Info("Checkpointing %d fixture states before shutdown", len(e.states))
	e.checkpoint()
}

func clampNonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
