// Package storage persists the record and the run history in SQLite.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"that-night/internal/game"
	"that-night/internal/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS record (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	highscore INTEGER NOT NULL DEFAULT 0,
	hotkeys TEXT NOT NULL,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS achievements (
	name TEXT PRIMARY KEY,
	granted INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS runs (
	uuid TEXT PRIMARY KEY,
	character TEXT NOT NULL,
	score INTEGER NOT NULL,
	killed INTEGER NOT NULL,
	used TEXT NOT NULL,
	ticks INTEGER NOT NULL,
	cause TEXT NOT NULL,
	ended_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_score ON runs (score DESC);
`

// Store is a game.Ledger backed by one SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path. Use ":memory:" for a
// throwaway store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	// one connection keeps :memory: databases shared
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Log.WithField("path", path).Info("storage initialized")
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the persisted record, or a fresh one when nothing was saved
// yet.
func (s *Store) Load() (game.Record, error) {
	rec := game.NewRecord()

	var hotkeys string
	err := s.db.QueryRow("SELECT highscore, hotkeys FROM record WHERE id = 1").Scan(&rec.Highscore, &hotkeys)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return rec, nil
	case err != nil:
		return rec, fmt.Errorf("loading record: %w", err)
	}

	var keys []string
	if err := json.Unmarshal([]byte(hotkeys), &keys); err != nil || len(keys) != game.HotkeyCount {
		logger.Log.WithField("hotkeys", hotkeys).Warn("stored hotkeys unreadable, using defaults")
	} else {
		copy(rec.Hotkeys[:], keys)
	}

	rows, err := s.db.Query("SELECT name, granted FROM achievements")
	if err != nil {
		return rec, fmt.Errorf("loading achievements: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var granted bool
		if err := rows.Scan(&name, &granted); err != nil {
			return rec, fmt.Errorf("scanning achievement: %w", err)
		}
		rec.Achievements[game.Achievement(name)] = granted
	}
	return rec, rows.Err()
}

// Save replaces the persisted record in one transaction.
func (s *Store) Save(rec game.Record) error {
	hotkeys, err := json.Marshal(rec.Hotkeys[:])
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
	INSERT INTO record (id, highscore, hotkeys, updated_at)
	VALUES (1, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(id) DO UPDATE SET
		highscore = excluded.highscore,
		hotkeys = excluded.hotkeys,
		updated_at = CURRENT_TIMESTAMP;
	`, rec.Highscore, string(hotkeys))
	if err != nil {
		return fmt.Errorf("saving record: %w", err)
	}

	for a, granted := range rec.Achievements {
		_, err := tx.Exec(`
		INSERT INTO achievements (name, granted) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET granted = excluded.granted;
		`, string(a), granted)
		if err != nil {
			return fmt.Errorf("saving achievement %s: %w", a, err)
		}
	}

	return tx.Commit()
}

// AppendRun stores a finished run. Saving the same run ID twice is a no-op.
func (s *Store) AppendRun(run game.RunSummary) error {
	used, err := json.Marshal(run.Used)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
	INSERT OR IGNORE INTO runs (uuid, character, score, killed, used, ticks, cause, ended_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?);
	`, run.ID, run.Character, run.Score, run.Killed, string(used), run.Ticks, run.Cause, run.EndedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving run %s: %w", run.ID, err)
	}
	return nil
}

// TopRuns returns up to n runs by descending score, oldest first on ties.
func (s *Store) TopRuns(n int) ([]game.RunSummary, error) {
	rows, err := s.db.Query(`
	SELECT uuid, character, score, killed, used, ticks, cause, ended_at
	FROM runs ORDER BY score DESC, ended_at ASC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []game.RunSummary
	for rows.Next() {
		var r game.RunSummary
		var used string
		var ended time.Time
		if err := rows.Scan(&r.ID, &r.Character, &r.Score, &r.Killed, &used, &r.Ticks, &r.Cause, &ended); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if err := json.Unmarshal([]byte(used), &r.Used); err != nil {
			logger.Log.WithFields(logrus.Fields{"run": r.ID, "used": used}).Warn("weapon counters unreadable")
		}
		r.EndedAt = ended
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunCount returns how many runs are stored.
func (s *Store) RunCount() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&n)
	return n, err
}
