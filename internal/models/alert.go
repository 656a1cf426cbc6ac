package models

import (
	"errors"
	"time"
)

// AlertStatus is the lifecycle state of an emitted goal alert.
type AlertStatus string

const (
	StatusPending AlertStatus = "Pending"
	StatusSuccess AlertStatus = "Success"
	StatusFailed  AlertStatus = "Failed"
)

// Terminal reports whether the status is final.
func (s AlertStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// AlertRecord tracks one outstanding goal alert from emission to resolution.
// Transitions are monotonic: Pending -> Success or Pending -> Failed, never
// back. A terminal record is removed from active tracking by the lifecycle
// manager; it is not persisted.
type AlertRecord struct {
	ID            string
	FixtureID     int
	Match         string
	ScoreAtAlert  string
	EmittedMinute int
	WindowEndMin  int
	EmittedAt     time.Time
	ExpiresAt     time.Time
	MessageID     int
	Probability   float64
	PressureIdx   float64
	Status        AlertStatus
}

// ErrTerminalAlert is returned when a transition is attempted on an alert
// that already reached Success or Failed.
var ErrTerminalAlert = errors.New("alert already in terminal state")

// Transition moves the record to the given status. Only Pending records may
// move, and only to a terminal status.
func (a *AlertRecord) Transition(to AlertStatus) error {
	if a.Status.Terminal() {
		return ErrTerminalAlert
	}
	if !to.Terminal() {
		return errors.New("alert may only transition to a terminal status")
	}
	a.Status = to
	return nil
}

// Expired reports whether the alert window (lookahead plus grace) has passed.
func (a *AlertRecord) Expired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}
