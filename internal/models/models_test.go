package models

import (
	"testing"
	"time"
)

func validFixture() FixtureSnapshot {
	return FixtureSnapshot{
		FixtureID: 1001,
		Elapsed:   34,
		Status:    "1H",
		HomeTeam:  "Arsenal",
		AwayTeam:  "Chelsea",
		HomeGoals: 1,
		AwayGoals: 0,
		SeenAt:    time.Now(),
	}
}

func TestFixtureSnapshot_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*FixtureSnapshot)
		wantErr bool
	}{
		{"valid", func(f *FixtureSnapshot) {}, false},
		{"zero fixture id", func(f *FixtureSnapshot) { f.FixtureID = 0 }, true},
		{"negative fixture id", func(f *FixtureSnapshot) { f.FixtureID = -5 }, true},
		{"empty home team", func(f *FixtureSnapshot) { f.HomeTeam = "" }, true},
		{"empty away team", func(f *FixtureSnapshot) { f.AwayTeam = "" }, true},
		{"negative elapsed", func(f *FixtureSnapshot) { f.Elapsed = -1 }, true},
		{"negative goals", func(f *FixtureSnapshot) { f.AwayGoals = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFixture()
			tt.mutate(&f)
			err := f.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFixtureSnapshot_Score(t *testing.T) {
	f := validFixture()
	if got := f.Score(); got != "1-0" {
		t.Errorf("Score() = %q, want %q", got, "1-0")
	}
}

func TestFixtureSnapshot_InPlay(t *testing.T) {
	tests := []struct {
		status  string
		elapsed int
		want    bool
	}{
		{"1H", 12, true},
		{"2H", 67, true},
		{"ET", 93, true},
		{"LIVE", 0, true},
		{"HT", 0, false},
		{"NS", 0, false},
		// Elapsed alone is enough even with an odd status code.
		{"", 5, true},
	}

	for _, tt := range tests {
		f := FixtureSnapshot{Status: tt.status, Elapsed: tt.elapsed}
		if got := f.InPlay(); got != tt.want {
			t.Errorf("InPlay() with status=%q elapsed=%d = %v, want %v",
				tt.status, tt.elapsed, got, tt.want)
		}
	}
}

func TestAlertRecord_Transition(t *testing.T) {
	a := AlertRecord{Status: StatusPending}
	if err := a.Transition(StatusSuccess); err != nil {
		t.Fatalf("Pending -> Success failed: %v", err)
	}
	if a.Status != StatusSuccess {
		t.Errorf("status = %s, want Success", a.Status)
	}

	// Terminal states never transition again.
	if err := a.Transition(StatusFailed); err != ErrTerminalAlert {
		t.Errorf("expected ErrTerminalAlert, got %v", err)
	}
	if a.Status != StatusSuccess {
		t.Errorf("terminal status mutated to %s", a.Status)
	}

	b := AlertRecord{Status: StatusPending}
	if err := b.Transition(StatusPending); err == nil {
		t.Error("Pending -> Pending should be rejected")
	}
}

func TestAlertRecord_Expired(t *testing.T) {
	now := time.Now()
	a := AlertRecord{ExpiresAt: now.Add(30 * time.Second)}
	if a.Expired(now) {
		t.Error("alert expired before its expiry time")
	}
	if !a.Expired(now.Add(31 * time.Second)) {
		t.Error("alert not expired after its expiry time")
	}
}

func TestSlip_Return(t *testing.T) {
	s := Slip{Stake: 2.0, Product: 3.5}
	if got := s.Return(); got != 7.0 {
		t.Errorf("Return() = %f, want 7.0", got)
	}
}
