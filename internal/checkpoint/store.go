// Package checkpoint records committed deployments in a local journal.
//
// The reconciliation engine hands its change notes here at commit time;
// the journal is what "hand off then clear" hands off to. One row per
// save, newest last, queryable for rollback tooling and more-info
// output.
package checkpoint

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Entry is one journaled deployment.
type Entry struct {
	ID        string
	Title     string
	Temporary bool
	Notes     []string
	CreatedAt string
}

// Journal is a SQLite-backed checkpoint log.
type Journal struct {
	db *sql.DB
}

// Open creates or opens the journal database at path.
//
// WAL mode allows reads while a save is being recorded; the busy
// timeout covers contention with a second process inspecting the
// journal. Idempotent: safe to call on an existing database.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to checkpoint journal: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply checkpoint schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the journal.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Record journals one committed deployment and returns its id.
// IDs are UUIDv7 so they sort by creation time.
func (j *Journal) Record(ctx context.Context, title string, temporary bool, notes []string) (string, error) {
	id := uuid.Must(uuid.NewV7()).String()

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO checkpoints (id, title, temporary, notes) VALUES (?, ?, ?, ?)`,
		id, title, boolToInt(temporary), strings.Join(notes, "\n"),
	)
	if err != nil {
		return "", fmt.Errorf("record checkpoint: %w", err)
	}
	return id, nil
}

// List returns every journaled deployment, oldest first.
func (j *Journal) List(ctx context.Context) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, title, temporary, notes, created_at
		 FROM checkpoints
		 ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var temporary int
		var notes string
		if err := rows.Scan(&e.ID, &e.Title, &temporary, &notes, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		e.Temporary = temporary != 0
		if notes != "" {
			e.Notes = strings.Split(notes, "\n")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoints: %w", err)
	}
	return entries, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
