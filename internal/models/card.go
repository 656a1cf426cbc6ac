package models

// GoalCard carries everything the message sink needs to render a goal alert,
// both on first emission and on subsequent in-place edits.
type GoalCard struct {
	Match        string
	Minute       int
	Score        string
	Probability  float64
	PressureIdx  float64
	Shots        int
	ShotsOnGoal  int
	Corners      int
	LookaheadMin int
	Status       AlertStatus
}
