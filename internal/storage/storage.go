// Package storage provides SQLite-backed persistence for per-fixture
// estimator checkpoints.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jbot-sports/goalsentry/internal/models"
	_ "modernc.org/sqlite"
)

// Storage wraps a SQLite database. Goal alerts are intentionally not
// persisted: an in-flight Pending alert is lost on restart, which is an
// accepted limitation.
type Storage struct {
	db          *sql.DB
	maxFixtures int
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/goalsentry/data.db.
func New(maxFixtures int, dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "goalsentry", "data.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	s := &Storage{db: db, maxFixtures: maxFixtures}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS fixture_state (
		fixture_id INTEGER PRIMARY KEY,
		baseline   TEXT,
		window     TEXT NOT NULL DEFAULT '[]',
		updated_at INTEGER NOT NULL
	)`)
	return err
}

// SaveFixtureState upserts one fixture's estimator checkpoint.
func (s *Storage) SaveFixtureState(fixtureID int, cp *models.EstimatorCheckpoint) error {
	var baselineJSON []byte
	if cp.Baseline != nil {
		var err error
		baselineJSON, err = json.Marshal(cp.Baseline)
		if err != nil {
			return fmt.Errorf("failed to marshal baseline: %w", err)
		}
	}
	windowJSON, err := json.Marshal(cp.Window)
	if err != nil {
		return fmt.Errorf("failed to marshal window: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO fixture_state (fixture_id, baseline, window, updated_at)
		VALUES (?,?,?,?)`,
		fixtureID, nullableString(baselineJSON), string(windowJSON), cp.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save fixture state: %w", err)
	}
	return nil
}

// LoadFixtureState returns one fixture's checkpoint, or nil when absent.
func (s *Storage) LoadFixtureState(fixtureID int) (*models.EstimatorCheckpoint, error) {
	row := s.db.QueryRow(`
		SELECT fixture_id, baseline, window, updated_at
		FROM fixture_state WHERE fixture_id = ?`, fixtureID)

	cp, err := scanCheckpoint(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load fixture state: %w", err)
	}
	return cp, nil
}

// LoadAllFixtureStates returns every persisted checkpoint keyed by fixture.
func (s *Storage) LoadAllFixtureStates() (map[int]*models.EstimatorCheckpoint, error) {
	rows, err := s.db.Query(`SELECT fixture_id, baseline, window, updated_at FROM fixture_state`)
	if err != nil {
		return nil, fmt.Errorf("failed to query fixture states: %w", err)
	}
	defer rows.Close()

	states := make(map[int]*models.EstimatorCheckpoint)
	for rows.Next() {
		cp, err := scanCheckpoint(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fixture state: %w", err)
		}
		states[cp.FixtureID] = cp
	}
	return states, rows.Err()
}

// DeleteFixtureState removes a fixture's checkpoint.
func (s *Storage) DeleteFixtureState(fixtureID int) error {
	if _, err := s.db.Exec(`DELETE FROM fixture_state WHERE fixture_id = ?`, fixtureID); err != nil {
		return fmt.Errorf("failed to delete fixture state: %w", err)
	}
	return nil
}

// RotateFixtures keeps at most maxFixtures newest checkpoints by updated_at,
// dropping stale rows from matches long finished.
func (s *Storage) RotateFixtures() error {
	_, err := s.db.Exec(`
		DELETE FROM fixture_state WHERE fixture_id NOT IN (
			SELECT fixture_id FROM fixture_state ORDER BY updated_at DESC LIMIT ?
		)`, s.maxFixtures)
	if err != nil {
		return fmt.Errorf("failed to rotate fixture states: %w", err)
	}
	return nil
}

func scanCheckpoint(scan func(...any) error) (*models.EstimatorCheckpoint, error) {
	var cp models.EstimatorCheckpoint
	var baselineJSON sql.NullString
	var windowJSON string
	var updatedAtNano int64

	if err := scan(&cp.FixtureID, &baselineJSON, &windowJSON, &updatedAtNano); err != nil {
		return nil, err
	}

	if baselineJSON.Valid && baselineJSON.String != "" {
		var base models.StatTotals
		if err := json.Unmarshal([]byte(baselineJSON.String), &base); err != nil {
			return nil, fmt.Errorf("failed to unmarshal baseline: %w", err)
		}
		cp.Baseline = &base
	}
	if err := json.Unmarshal([]byte(windowJSON), &cp.Window); err != nil {
		return nil, fmt.Errorf("failed to unmarshal window: %w", err)
	}

	cp.UpdatedAt = time.Unix(0, updatedAtNano)
	return &cp, nil
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
