// Package journal provides an optional SQLite-backed record of what a
// migration run moved and rewrote.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS moves (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	note       TEXT NOT NULL,
	resource   TEXT NOT NULL,
	from_path  TEXT NOT NULL,
	to_path    TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS rewrites (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	note       TEXT NOT NULL,
	action     TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_moves_note ON moves(note);
CREATE INDEX IF NOT EXISTS idx_rewrites_note ON rewrites(note);
`

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Entry is one journal line, either a move or a rewrite.
type Entry struct {
	Kind      string // "move" or "rewrite"
	Note      string
	Detail    string // resource name or rewrite action
	From      string
	To        string
	CreatedAt time.Time
}

// DB wraps a sql.DB with journal operations.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// Open opens (or creates) the journal database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("journal: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: apply schema: %w", err)
	}
	return &DB{conn: conn, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) stamp() string {
	return db.now().UTC().Format(timeLayout)
}

// RecordMove stores a completed resource move.
func (db *DB) RecordMove(ctx context.Context, note, resource, from, to string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO moves (note, resource, from_path, to_path, created_at) VALUES (?, ?, ?, ?, ?)`,
		note, resource, from, to, db.stamp())
	if err != nil {
		return fmt.Errorf("journal: record move: %w", err)
	}
	return nil
}

// RecordRewrite stores a front-matter rewrite.
func (db *DB) RecordRewrite(ctx context.Context, note, action string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO rewrites (note, action, created_at) VALUES (?, ?, ?)`,
		note, action, db.stamp())
	if err != nil {
		return fmt.Errorf("journal: record rewrite: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (db *DB) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT kind, note, detail, from_path, to_path, created_at FROM (
			SELECT 'move' AS kind, note, resource AS detail, from_path, to_path, created_at, id FROM moves
			UNION ALL
			SELECT 'rewrite' AS kind, note, action AS detail, '' AS from_path, '' AS to_path, created_at, id FROM rewrites
		)
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			created string
		)
		if err := rows.Scan(&e.Kind, &e.Note, &e.Detail, &e.From, &e.To, &created); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		e.CreatedAt, _ = time.Parse(timeLayout, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Counts returns the number of recorded moves and rewrites.
func (db *DB) Counts(ctx context.Context) (moves, rewrites int, err error) {
	if err = db.conn.QueryRowContext(ctx, `SELECT count(*) FROM moves`).Scan(&moves); err != nil {
		return 0, 0, fmt.Errorf("journal: count moves: %w", err)
	}
	if err = db.conn.QueryRowContext(ctx, `SELECT count(*) FROM rewrites`).Scan(&rewrites); err != nil {
		return 0, 0, fmt.Errorf("journal: count rewrites: %w", err)
	}
	return moves, rewrites, nil
}
