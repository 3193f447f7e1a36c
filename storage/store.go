package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Magrawal16/moontinker/graph"
)

// ErrSketchNotFound indicates the requested sketch doesn't exist.
var ErrSketchNotFound = errors.New("sketch not found")

// Sketch is one stored program: its graph snapshot plus the text it last
// compiled to.
type Sketch struct {
	Name      string
	Graph     *graph.Graph
	Text      string
	UpdatedAt time.Time
}

// Store handles SQLite persistence for sketches.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) a sketch database at path. Use
// ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS sketches (
		name       TEXT PRIMARY KEY,
		snapshot   BLOB NOT NULL,
		text       TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating sketches table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Put inserts or replaces a sketch.
func (s *Store) Put(name string, g *graph.Graph, text string) error {
	snap, err := MarshalSnapshot(g)
	if err != nil {
		return fmt.Errorf("snapshot %q: %w", name, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO sketches (name, snapshot, text, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   snapshot = excluded.snapshot,
		   text = excluded.text,
		   updated_at = excluded.updated_at`,
		name, snap, text, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("storing sketch %q: %w", name, err)
	}
	return nil
}

// Get loads a sketch by name.
func (s *Store) Get(name string) (*Sketch, error) {
	var snap []byte
	var text, updated string
	err := s.db.QueryRow(
		`SELECT snapshot, text, updated_at FROM sketches WHERE name = ?`, name,
	).Scan(&snap, &text, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sketch %q: %w", name, ErrSketchNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading sketch %q: %w", name, err)
	}

	g, err := UnmarshalSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("sketch %q: %w", name, err)
	}
	at, _ := time.Parse(time.RFC3339, updated)
	return &Sketch{Name: name, Graph: g, Text: text, UpdatedAt: at}, nil
}

// List returns stored sketch names in lexical order.
func (s *Store) List() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM sketches ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing sketches: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Delete removes a sketch. Deleting a missing sketch is not an error.
func (s *Store) Delete(name string) error {
	_, err := s.db.Exec(`DELETE FROM sketches WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("deleting sketch %q: %w", name, err)
	}
	return nil
}
