// Package journal persists each frame's published events to sqlite for
// post-session analysis. Journaling is best-effort: a write failure is
// the caller's to log, never a reason to stop observing.
package journal

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // CGO-free SQLite

	"github.com/soocke/gamewatch-go/domain/score"
)

type Journal struct {
	db *sql.DB
}

func Open(databasePath string) (*Journal, error) {
	// WAL + busy timeout to avoid "database is locked"
	db, err := sql.Open("sqlite", databasePath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Journal{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS events(
	  rowid      INTEGER PRIMARY KEY,
	  event_id   TEXT    NOT NULL,
	  tick       REAL    NOT NULL,
	  type       TEXT    NOT NULL,
	  amount     REAL,
	  additive   INTEGER NOT NULL,
	  points     REAL    NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);
	`)
	if err != nil {
		return fmt.Errorf("create journal tables: %w", err)
	}
	return nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// RecordFrame writes one tick's events in a single transaction.
func (j *Journal) RecordFrame(tick float64, deltaTime float64, events []score.Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := j.db.Begin()
	if err != nil {
		return fmt.Errorf("begin journal transaction: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO events(event_id, tick, type, amount, additive, points) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare journal insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		name := ""
		additive := false
		if e.Type != nil {
			name = e.Type.Name
			additive = e.Type.Additive
		}
		var amount any
		if e.Amount != nil {
			amount = *e.Amount
		}
		a, i := e.Points(deltaTime)
		if _, err := stmt.Exec(e.ID, tick, name, amount, additive, a+i); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert journal event: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit journal transaction: %w", err)
	}
	return nil
}

// EventCount returns how many events are journaled, optionally filtered
// by type name.
func (j *Journal) EventCount(typeName string) (int, error) {
	var n int
	var err error
	if typeName == "" {
		err = j.db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&n)
	} else {
		err = j.db.QueryRow(`SELECT COUNT(*) FROM events WHERE type = ?`, typeName).Scan(&n)
	}
	return n, err
}
