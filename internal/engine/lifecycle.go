package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/jbot-sports/goalsentry/internal/logger"
	"github.com/jbot-sports/goalsentry/internal/models"
)

// Sink delivers goal alert cards to the chat channel. Implementations must
// treat failures as recoverable; the lifecycle manager logs and moves on.
type Sink interface {
	SendGoalAlert(card models.GoalCard) (messageID int, err error)
	EditGoalAlert(messageID int, card models.GoalCard) error
	SendCelebration(card models.GoalCard) error
}

// Lifecycle decides when a probability signal becomes a user-facing alert
// and resolves its eventual outcome. At most one Pending alert exists per
// fixture, and a fixture-wide cooldown applies between emissions.
type Lifecycle struct {
	config    Config
	sink      Sink
	active    map[int]*models.AlertRecord
	lastAlert map[int]time.Time
	now       func() time.Time
}

// NewLifecycle creates a lifecycle manager delivering through sink.
func NewLifecycle(sink Sink, config Config) *Lifecycle {
	return &Lifecycle{
		config:    config,
		sink:      sink,
		active:    make(map[int]*models.AlertRecord),
		lastAlert: make(map[int]time.Time),
		now:       time.Now,
	}
}

// Observation is one cycle's signal for a live fixture.
type Observation struct {
	Fixture     models.FixtureSnapshot
	Probability float64
	Pressure    float64
	Sums        WindowSums
}

func (l *Lifecycle) card(obs Observation, status models.AlertStatus) models.GoalCard {
	return models.GoalCard{
		Match:        obs.Fixture.Match(),
		Minute:       obs.Fixture.Elapsed,
		Score:        obs.Fixture.Score(),
		Probability:  obs.Probability,
		PressureIdx:  obs.Pressure,
		Shots:        obs.Sums.Shots,
		ShotsOnGoal:  obs.Sums.ShotsOnGoal,
		Corners:      obs.Sums.Corners,
		LookaheadMin: l.config.LookaheadMinutes,
		Status:       status,
	}
}

// Observe applies one cycle's signal: it may emit a new Pending alert,
// resolve an existing one against the current score and expiry, and keep
// the posted card edited in place.
func (l *Lifecycle) Observe(obs Observation) {
	fid := obs.Fixture.FixtureID
	now := l.now()

	record, ok := l.active[fid]
	if !ok {
		if obs.Probability < l.config.Threshold {
			return
		}
		if last, ok := l.lastAlert[fid]; ok && now.Sub(last) < l.config.Cooldown {
			logger.Debug("Fixture %d above threshold but in cooldown (%.0fs left)",
				fid, (l.config.Cooldown - now.Sub(last)).Seconds())
			return
		}
		// The freshly sent card is current; edits start on the next cycle.
		l.emit(obs, now)
		return
	}

	resolved := false
	if record.Status == models.StatusPending && obs.Fixture.Score() != record.ScoreAtAlert {
		if err := record.Transition(models.StatusSuccess); err == nil {
			resolved = true
			logger.Info("Alert %s for fixture %d resolved: goal scored (%s -> %s)",
				record.ID, fid, record.ScoreAtAlert, obs.Fixture.Score())
		}
	}
	if record.Status == models.StatusPending && record.Expired(now) {
		if err := record.Transition(models.StatusFailed); err == nil {
			resolved = true
			logger.Info("Alert %s for fixture %d expired without a goal", record.ID, fid)
		}
	}

	card := l.card(obs, record.Status)
	if err := l.sink.EditGoalAlert(record.MessageID, card); err != nil {
		logger.Warn("Failed to edit alert message for fixture %d: %v", fid, err)
	}

	if resolved {
		if record.Status == models.StatusSuccess {
			if err := l.sink.SendCelebration(card); err != nil {
				logger.Warn("Failed to send celebration for fixture %d: %v", fid, err)
			}
		}
		delete(l.active, fid)
	}
}

// emit creates and delivers a new Pending alert. Tracking starts only when
// delivery succeeds; a failed send is retried naturally on a later cycle.
func (l *Lifecycle) emit(obs Observation, now time.Time) {
	fid := obs.Fixture.FixtureID
	record := &models.AlertRecord{
		ID:            uuid.New().String(),
		FixtureID:     fid,
		Match:         obs.Fixture.Match(),
		ScoreAtAlert:  obs.Fixture.Score(),
		EmittedMinute: obs.Fixture.Elapsed,
		WindowEndMin:  minInt(90, obs.Fixture.Elapsed+l.config.LookaheadMinutes),
		EmittedAt:     now,
		ExpiresAt:     now.Add(time.Duration(l.config.LookaheadMinutes)*time.Minute + l.config.Grace),
		Probability:   obs.Probability,
		PressureIdx:   obs.Pressure,
		Status:        models.StatusPending,
	}

	msgID, err := l.sink.SendGoalAlert(l.card(obs, models.StatusPending))
	if err != nil {
		logger.Error("Failed to send goal alert for fixture %d: %v", fid, err)
		return
	}
	record.MessageID = msgID

	l.active[fid] = record
	l.lastAlert[fid] = now
	logger.Info("Emitted goal alert %s for fixture %d at minute %d (prob=%.2f, pi=%.1f)",
		record.ID, fid, obs.Fixture.Elapsed, obs.Probability, obs.Pressure)
}

// ResolveDeparted fails any Pending alert whose fixture is no longer in the
// live set and returns the fixture IDs that were cleaned up.
func (l *Lifecycle) ResolveDeparted(live map[int]bool) []int {
	var departed []int
	for fid, record := range l.active {
		if live[fid] {
			continue
		}
		if err := record.Transition(models.StatusFailed); err != nil {
			continue
		}
		logger.Info("Alert %s failed: fixture %d left the live set", record.ID, fid)

		card := models.GoalCard{
			Match:        record.Match,
			Minute:       record.EmittedMinute,
			Score:        record.ScoreAtAlert,
			Probability:  record.Probability,
			PressureIdx:  record.PressureIdx,
			LookaheadMin: l.config.LookaheadMinutes,
			Status:       models.StatusFailed,
		}
		if err := l.sink.EditGoalAlert(record.MessageID, card); err != nil {
			logger.Warn("Failed to edit departed alert for fixture %d: %v", fid, err)
		}
		delete(l.active, fid)
		departed = append(departed, fid)
	}
	return departed
}

// Pending reports whether the fixture has an unresolved alert.
func (l *Lifecycle) Pending(fixtureID int) bool {
	_, ok := l.active[fixtureID]
	return ok
}

// ActiveCount returns the number of unresolved alerts.
func (l *Lifecycle) ActiveCount() int {
	return len(l.active)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
