package models

import "time"

// EstimatorCheckpoint is the persisted per-fixture estimator state: the last
// cumulative totals (delta baseline) and the rolling window contents. Saved
// periodically so a process restart mid-match does not cold-start every
// fixture. Alert records are deliberately not part of the checkpoint.
type EstimatorCheckpoint struct {
	FixtureID int         `json:"fixture_id"`
	Baseline  *StatTotals `json:"baseline,omitempty"`
	Window    []StatDelta `json:"window"`
	UpdatedAt time.Time   `json:"updated_at"`
}
