// Package models defines the core domain entities: fixtures, statistic
// deltas, alert records, and accumulator slips.
package models

import (
	"errors"
	"fmt"
	"time"
)

// FixtureSnapshot is one live fixture as seen in a single poll cycle.
// Immutable once produced by the data source.
type FixtureSnapshot struct {
	FixtureID int       `json:"fixture_id"`
	Elapsed   int       `json:"elapsed"`
	Status    string    `json:"status"`
	HomeTeam  string    `json:"home_team"`
	AwayTeam  string    `json:"away_team"`
	HomeGoals int       `json:"home_goals"`
	AwayGoals int       `json:"away_goals"`
	Kickoff   time.Time `json:"kickoff"`
	SeenAt    time.Time `json:"seen_at"`
}

// Score returns the "H-A" score string used for change tracking.
func (f *FixtureSnapshot) Score() string {
	return fmt.Sprintf("%d-%d", f.HomeGoals, f.AwayGoals)
}

// Match returns the "Home vs Away" display name.
func (f *FixtureSnapshot) Match() string {
	return fmt.Sprintf("%s vs %s", f.HomeTeam, f.AwayTeam)
}

// InPlay reports whether the fixture is currently being played. Some feeds
// report a live status code before elapsed ticks over, so either suffices.
func (f *FixtureSnapshot) InPlay() bool {
	switch f.Status {
	case "1H", "2H", "ET", "LIVE", "INP":
		return true
	}
	return f.Elapsed > 0
}

// Validate checks fixture field constraints.
func (f *FixtureSnapshot) Validate() error {
	if f.FixtureID <= 0 {
		return errors.New("fixture ID must be positive")
	}
	if f.HomeTeam == "" || f.AwayTeam == "" {
		return errors.New("team names must not be empty")
	}
	if f.Elapsed < 0 {
		return errors.New("elapsed minute must not be negative")
	}
	if f.HomeGoals < 0 || f.AwayGoals < 0 {
		return errors.New("goals must not be negative")
	}
	return nil
}

// StatTotals holds the cumulative in-match statistics for both sides
// combined, as reported by the data source.
type StatTotals struct {
	Shots       int `json:"shots"`
	ShotsOnGoal int `json:"shots_on_goal"`
	Corners     int `json:"corners"`
	RedCards    int `json:"red_cards"`
}

// StatDelta is the per-cycle change in cumulative totals, clamped to be
// non-negative by the estimator before it is stored.
type StatDelta struct {
	At          time.Time `json:"at"`
	Shots       int       `json:"shots"`
	ShotsOnGoal int       `json:"shots_on_goal"`
	Corners     int       `json:"corners"`
	RedCards    int       `json:"red_cards"`
}
