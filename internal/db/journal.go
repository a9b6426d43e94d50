package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNoSession is returned when a command references an unknown session.
var ErrNoSession = errors.New("session not found")

// StartSession inserts a new session with a random id.
func (db *DB) StartSession() (Session, error) {
	s := Session{ID: uuid.NewString(), StartedAt: time.Now().UTC()}
	if _, err := db.Exec(`INSERT INTO session (id, started_at) VALUES (?, ?)`, s.ID, s.StartedAt); err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}
	return s, nil
}

// GetSession fetches a session by id.
func (db *DB) GetSession(id string) (Session, bool, error) {
	var s Session
	err := db.QueryRow(`SELECT id, started_at FROM session WHERE id = ?`, id).Scan(&s.ID, &s.StartedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return Session{}, false, nil
		}
		return Session{}, false, fmt.Errorf("get session: %w", err)
	}
	return s, true, nil
}

// RecordCommand appends c to the journal and returns it with its id set.
func (db *DB) RecordCommand(c Command) (Command, error) {
	if c.StartedAt.IsZero() {
		c.StartedAt = time.Now()
	}
	c.StartedAt = c.StartedAt.UTC()

	if _, ok, err := db.GetSession(c.SessionID); err != nil {
		return Command{}, err
	} else if !ok {
		return Command{}, fmt.Errorf("record command: %w: %q", ErrNoSession, c.SessionID)
	}

	err := db.QueryRow(
		`INSERT INTO command (session_id, kind, argument, outcome, message, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		c.SessionID, c.Kind, c.Argument, c.Outcome, c.Message, c.StartedAt, c.Duration.Milliseconds(),
	).Scan(&c.ID)
	if err != nil {
		return Command{}, fmt.Errorf("insert command: %w", err)
	}
	return c, nil
}

// ListCommands returns the most recent commands, newest first. A limit of
// zero or less returns every command.
func (db *DB) ListCommands(limit int) ([]Command, error) {
	query := `SELECT id, session_id, kind, argument, outcome, message, started_at, duration_ms
	            FROM command ORDER BY started_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list commands: %w", err)
	}
	defer rows.Close()

	commands := []Command{}
	for rows.Next() {
		var c Command
		var durationMS int64
		if err := rows.Scan(&c.ID, &c.SessionID, &c.Kind, &c.Argument, &c.Outcome, &c.Message, &c.StartedAt, &durationMS); err != nil {
			return nil, fmt.Errorf("scan command: %w", err)
		}
		c.Duration = time.Duration(durationMS) * time.Millisecond
		commands = append(commands, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list commands: %w", err)
	}
	return commands, nil
}

// GetStats returns session and command counts, grouped by command kind.
func (db *DB) GetStats() (Stats, error) {
	var stats Stats
	if err := db.QueryRow(`SELECT COUNT(*) FROM session`).Scan(&stats.Sessions); err != nil {
		return Stats{}, fmt.Errorf("count sessions: %w", err)
	}

	rows, err := db.Query(
		`SELECT kind, COUNT(*),
		        COALESCE(SUM(CASE WHEN outcome IN (?, ?) THEN 1 ELSE 0 END), 0)
		   FROM command
		  GROUP BY kind
		  ORDER BY kind`,
		OutcomeError, OutcomePartial,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("command counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kc KindCount
		if err := rows.Scan(&kc.Kind, &kc.Total, &kc.Failed); err != nil {
			return Stats{}, fmt.Errorf("scan command counts: %w", err)
		}
		stats.ByKind = append(stats.ByKind, kc)
		stats.Commands += kc.Total
		stats.Failed += kc.Failed
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("command counts: %w", err)
	}
	return stats, nil
}
