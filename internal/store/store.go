// Package store persists persona profiles and their knowledge base in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dgallion1/personabot/internal/persona"
)

// ErrNotFound is returned when a persona does not exist.
var ErrNotFound = errors.New("not found")

// Record is one stored message of a persona's knowledge base.
type Record struct {
	Text      string
	Author    string
	Channel   string
	Embedding []float32 // nil when no embedder was configured
}

// Store wraps a SQLite database.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS personas (
	name TEXT PRIMARY KEY,
	profile TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	persona TEXT NOT NULL,
	seq INTEGER NOT NULL,
	text TEXT NOT NULL,
	author TEXT NOT NULL DEFAULT '',
	channel TEXT NOT NULL DEFAULT '',
	embedding TEXT
);
CREATE INDEX IF NOT EXISTS idx_messages_persona ON messages(persona, seq);
`

// Open creates or opens the database at path. ":memory:" is allowed.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection: SQLite serializes writers anyway, and ":memory:" is
	// per-connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// SavePersona inserts or replaces a profile, keyed by its name.
func (s *Store) SavePersona(ctx context.Context, p *persona.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if key(p.Name) == "" {
		return errors.New("persona name is required")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode persona: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO personas (name, profile, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET profile = excluded.profile, updated_at = excluded.updated_at`,
		key(p.Name), string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save persona %s: %w", p.Name, err)
	}
	return nil
}

// GetPersona loads a profile by name.
func (s *Store) GetPersona(ctx context.Context, name string) (*persona.Profile, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT profile FROM personas WHERE name = ?`, key(name)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("persona %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get persona %s: %w", name, err)
	}
	var p persona.Profile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("decode persona %s: %w", name, err)
	}
	return &p, nil
}

// ListPersonas returns all profiles ordered by name.
func (s *Store) ListPersonas(ctx context.Context) ([]*persona.Profile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT profile FROM personas ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list personas: %w", err)
	}
	defer rows.Close()

	var out []*persona.Profile
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan persona: %w", err)
		}
		var p persona.Profile
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("decode persona: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// DeletePersona removes a profile and its messages.
func (s *Store) DeletePersona(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM personas WHERE name = ?`, key(name))
	if err != nil {
		return fmt.Errorf("delete persona %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("persona %s: %w", name, ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE persona = ?`, key(name)); err != nil {
		return fmt.Errorf("delete messages %s: %w", name, err)
	}
	return tx.Commit()
}

// ReplaceMessages swaps a persona's knowledge base in one transaction.
func (s *Store) ReplaceMessages(ctx context.Context, name string, records []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE persona = ?`, key(name)); err != nil {
		return fmt.Errorf("clear messages %s: %w", name, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO messages (persona, seq, text, author, channel, embedding) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		var emb any
		if len(r.Embedding) > 0 {
			data, err := json.Marshal(r.Embedding)
			if err != nil {
				return fmt.Errorf("encode embedding %d: %w", i, err)
			}
			emb = string(data)
		}
		if _, err := stmt.ExecContext(ctx, key(name), i, r.Text, r.Author, r.Channel, emb); err != nil {
			return fmt.Errorf("insert message %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Messages returns a persona's knowledge base in insertion order.
func (s *Store) Messages(ctx context.Context, name string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT text, author, channel, embedding FROM messages WHERE persona = ? ORDER BY seq`, key(name))
	if err != nil {
		return nil, fmt.Errorf("query messages %s: %w", name, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var emb sql.NullString
		if err := rows.Scan(&r.Text, &r.Author, &r.Channel, &emb); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if emb.Valid && emb.String != "" {
			if err := json.Unmarshal([]byte(emb.String), &r.Embedding); err != nil {
				return nil, fmt.Errorf("decode embedding: %w", err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MessageCount returns the size of a persona's knowledge base.
func (s *Store) MessageCount(ctx context.Context, name string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE persona = ?`, key(name)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count messages %s: %w", name, err)
	}
	return n, nil
}
