package models

import "time"

// Leg is one priced selection in an accumulator.
type Leg struct {
	FixtureID int
	Match     string
	Label     string
	Odds      float64
	Kickoff   time.Time
	Bookmaker string
}

// Slip is an assembled accumulator: a set of legs and their odds product.
// InRange is false when the selector exhausted its retry budget and fell
// back to the closest attempt.
type Slip struct {
	Title   string
	Legs    []Leg
	Product float64
	Stake   float64
	InRange bool
}

// Return is the projected payout at the slip's stake.
func (s *Slip) Return() float64 {
	return s.Stake * s.Product
}
