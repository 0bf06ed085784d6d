// Package session keeps serialized fact graphs in SQLite so an interview
// survives a server restart.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dlovans/factform/pkg/factgraph"
)

// ErrNotFound is returned when no graph is stored for a session.
var ErrNotFound = errors.New("session: not found")

// Session describes one stored graph.
type Session struct {
	ID        string
	Graph     string
	UpdatedAt time.Time
}

// Store persists serialized graphs keyed by session id.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

// Open initializes the SQLite database at the given path.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a single connection keeps writes ordered.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		graph TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the database file.
func (s *Store) Path() string { return s.dbPath }

// Save stores the serialized graph for id, replacing any previous one.
func (s *Store) Save(ctx context.Context, id, graph string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, graph, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET graph = excluded.graph, updated_at = excluded.updated_at`,
		id, graph, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", id, err)
	}
	return nil
}

// Load returns the serialized graph stored for id.
func (s *Store) Load(ctx context.Context, id string) (string, error) {
	var graph string
	err := s.db.QueryRowContext(ctx, `SELECT graph FROM sessions WHERE id = ?`, id).Scan(&graph)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load session %s: %w", id, err)
	}
	return graph, nil
}

// Delete forgets the session. Deleting an unknown session is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

// List returns every stored session, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, graph, updated_at FROM sessions ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.Graph, &sess.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Prune deletes sessions not updated since before and reports how many
// were removed.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune sessions: %w", err)
	}
	return res.RowsAffected()
}

// Persister returns a factgraph.Persister writing every save of a graph
// under id.
func (s *Store) Persister(id string) factgraph.Persister {
	return factgraph.PersisterFunc(func(serialized string) error {
		return s.Save(context.Background(), id, serialized)
	})
}

// Restore rebuilds the graph stored for id. A session with nothing stored
// starts from an empty graph.
func (s *Store) Restore(ctx context.Context, dict *factgraph.Dictionary, id string) (*factgraph.Graph, error) {
	graph, err := s.Load(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return factgraph.New(dict, factgraph.WithPersister(s.Persister(id))), nil
	}
	if err != nil {
		return nil, err
	}
	g, err := factgraph.Deserialize(dict, graph, factgraph.WithPersister(s.Persister(id)))
	if err != nil {
		return nil, fmt.Errorf("failed to restore session %s: %w", id, err)
	}
	return g, nil
}
