package engine

import (
	"math"
	"testing"
	"time"

	"github.com/jbot-sports/goalsentry/internal/models"
	"github.com/jbot-sports/goalsentry/internal/storage"
)

func newTestEstimator(t *testing.T) *Estimator {
	t.Helper()
	return NewEstimator(nil, DefaultConfig())
}

func TestIngest_ColdStart(t *testing.T) {
	e := newTestEstimator(t)
	now := time.Now()

	got := e.Ingest(1, models.StatTotals{Shots: 3, ShotsOnGoal: 1}, now)
	if got {
		t.Error("first observation must not produce a signal")
	}
	if pi := e.PressureIndex(1); pi != 0 {
		t.Errorf("pressure after cold start = %f, want 0", pi)
	}

	// Second observation produces deltas against the baseline.
	if !e.Ingest(1, models.StatTotals{Shots: 5, ShotsOnGoal: 2}, now.Add(15*time.Second)) {
		t.Error("second observation must produce a signal")
	}
	sums := e.WindowSums(1)
	if sums.Shots != 2 || sums.ShotsOnGoal != 1 {
		t.Errorf("window sums = %+v, want shots=2 sot=1", sums)
	}
}

func TestIngest_NegativeDeltasClamped(t *testing.T) {
	e := newTestEstimator(t)
	now := time.Now()

	e.Ingest(1, models.StatTotals{Shots: 10, Corners: 4}, now)
	// Upstream totals can reset or go backwards; deltas clamp to zero.
	e.Ingest(1, models.StatTotals{Shots: 6, Corners: 5}, now.Add(15*time.Second))

	sums := e.WindowSums(1)
	if sums.Shots != 0 {
		t.Errorf("shots delta = %d, want 0 (clamped)", sums.Shots)
	}
	if sums.Corners != 1 {
		t.Errorf("corners delta = %d, want 1", sums.Corners)
	}
}

func TestPressureIndex_WeightsAndClamp(t *testing.T) {
	e := newTestEstimator(t)
	now := time.Now()

	e.Ingest(1, models.StatTotals{}, now)
	e.Ingest(1, models.StatTotals{Shots: 2, ShotsOnGoal: 1, Corners: 1}, now.Add(15*time.Second))

	// 1.0*2 + 2.2*1 + 1.2*1 = 5.4
	if pi := e.PressureIndex(1); math.Abs(pi-5.4) > 1e-9 {
		t.Errorf("pressure index = %f, want 5.4", pi)
	}

	// A red card in the window adds the flat bonus.
	e.Ingest(1, models.StatTotals{Shots: 2, ShotsOnGoal: 1, Corners: 1, RedCards: 1}, now.Add(30*time.Second))
	if pi := e.PressureIndex(1); math.Abs(pi-15.4) > 1e-9 {
		t.Errorf("pressure index with red = %f, want 15.4", pi)
	}

	// Heavy pressure clamps at the ceiling.
	e.Ingest(1, models.StatTotals{Shots: 30, ShotsOnGoal: 15, Corners: 10, RedCards: 1}, now.Add(45*time.Second))
	if pi := e.PressureIndex(1); pi != 25.0 {
		t.Errorf("pressure index = %f, want clamped 25.0", pi)
	}
}

func TestPressureIndex_MonotonicInInputs(t *testing.T) {
	cfg := DefaultConfig()
	base := time.Now()

	pressureFor := func(totals models.StatTotals) float64 {
		e := NewEstimator(nil, cfg)
		e.Ingest(1, models.StatTotals{}, base)
		e.Ingest(1, totals, base.Add(15*time.Second))
		return e.PressureIndex(1)
	}

	prev := pressureFor(models.StatTotals{})
	for shots := 1; shots <= 10; shots++ {
		cur := pressureFor(models.StatTotals{Shots: shots})
		if cur < prev {
			t.Fatalf("pressure decreased when shots grew: %f -> %f", prev, cur)
		}
		prev = cur
	}
}

func TestWindowPruning_HorizonBoundary(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WindowHorizon = 900 * time.Second
	e := NewEstimator(nil, cfg)

	t0 := time.Now()
	e.Ingest(1, models.StatTotals{}, t0.Add(-15*time.Second))
	e.Ingest(1, models.StatTotals{Shots: 2, ShotsOnGoal: 1, Corners: 1}, t0)

	if pi := e.PressureIndex(1); pi == 0 {
		t.Fatal("expected non-zero pressure inside horizon")
	}

	// At t0+901s the entry is older than the horizon: window empty, PI zero.
	e.Prune(1, t0.Add(901*time.Second))
	if sums := e.WindowSums(1); sums != (WindowSums{}) {
		t.Errorf("window not empty after horizon: %+v", sums)
	}
	if pi := e.PressureIndex(1); pi != 0 {
		t.Errorf("pressure index = %f, want 0 after horizon", pi)
	}
}

func TestGoalProbability_Bounds(t *testing.T) {
	e := newTestEstimator(t)
	now := time.Now()

	e.Ingest(1, models.StatTotals{}, now)
	e.Ingest(1, models.StatTotals{Shots: 40, ShotsOnGoal: 20, Corners: 15, RedCards: 2}, now.Add(15*time.Second))

	for minute := 0; minute <= 95; minute++ {
		p := e.GoalProbability(1, minute)
		if p < 0.0 || p > 1.0 {
			t.Fatalf("probability out of [0,1] at minute %d: %f", minute, p)
		}
		if p > e.config.ProbabilityCap {
			t.Fatalf("probability above cap at minute %d: %f", minute, p)
		}
	}
}

func TestGoalProbability_BoostWindows(t *testing.T) {
	e := newTestEstimator(t)
	now := time.Now()

	e.Ingest(1, models.StatTotals{}, now)
	e.Ingest(1, models.StatTotals{Shots: 4, ShotsOnGoal: 2, Corners: 2}, now.Add(15*time.Second))

	inside := e.GoalProbability(1, 22)
	outside := e.GoalProbability(1, 40)
	if diff := inside - outside; math.Abs(diff-0.10) > 1e-9 {
		t.Errorf("boost window delta = %f, want 0.10", diff)
	}

	second := e.GoalProbability(1, 67)
	if math.Abs(second-inside) > 1e-9 {
		t.Errorf("second-half boost window differs: %f vs %f", second, inside)
	}
}

func TestGoalProbability_HorizonBoost(t *testing.T) {
	base := time.Now()
	probFor := func(lookahead int) float64 {
		cfg := DefaultConfig()
		cfg.LookaheadMinutes = lookahead
		e := NewEstimator(nil, cfg)
		e.Ingest(1, models.StatTotals{}, base)
		e.Ingest(1, models.StatTotals{Shots: 2}, base.Add(15*time.Second))
		return e.GoalProbability(1, 40)
	}

	// Boost scales with lookahead above 10 minutes, capped at 0.10.
	if diff := probFor(12) - probFor(10); math.Abs(diff-0.02) > 1e-9 {
		t.Errorf("lookahead 12 vs 10 delta = %f, want 0.02", diff)
	}
	if diff := probFor(40) - probFor(20); math.Abs(diff) > 1e-9 {
		t.Errorf("horizon boost not capped: delta = %f", diff)
	}
}

func TestForget(t *testing.T) {
	e := newTestEstimator(t)
	now := time.Now()
	e.Ingest(1, models.StatTotals{}, now)
	e.Ingest(1, models.StatTotals{Shots: 3}, now.Add(15*time.Second))

	e.Forget(1)
	if pi := e.PressureIndex(1); pi != 0 {
		t.Errorf("pressure after Forget = %f, want 0", pi)
	}
	// Next ingest is a cold start again.
	if e.Ingest(1, models.StatTotals{Shots: 5}, now.Add(30*time.Second)) {
		t.Error("ingest after Forget must be a cold start")
	}
}

func TestEstimator_CheckpointRestore(t *testing.T) {
	store, err := storage.New(100, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	cfg := DefaultConfig()
	now := time.Now()

	e := NewEstimator(store, cfg)
	e.Ingest(1, models.StatTotals{}, now)
	e.Ingest(1, models.StatTotals{Shots: 2, ShotsOnGoal: 1, Corners: 1}, now.Add(15*time.Second))
	e.Shutdown()

	restored := NewEstimator(store, cfg)
	if pi := restored.PressureIndex(1); math.Abs(pi-5.4) > 1e-9 {
		t.Errorf("restored pressure index = %f, want 5.4", pi)
	}
	// Baseline survives too: deltas continue from the stored totals.
	if !restored.Ingest(1, models.StatTotals{Shots: 3, ShotsOnGoal: 1, Corners: 1}, now.Add(30*time.Second)) {
		t.Error("restored estimator must not cold-start")
	}
	sums := restored.WindowSums(1)
	if sums.Shots != 3 {
		t.Errorf("restored window shots = %d, want 3 (2 restored + 1 new)", sums.Shots)
	}
}
