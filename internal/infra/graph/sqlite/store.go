// Package sqlite provides a SQLite-backed graph store that reuses the
// in-memory engine for transactions and snapshots the full state to a
// single table as JSON blobs after every successful commit.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"mdrcore/internal/infra/graph/memory"
	"mdrcore/pkg/domain"
	"mdrcore/pkg/graph"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Compile-time contract assertion.
var _ graph.Store = (*Store)(nil)

// Store persists the in-memory graph state to SQLite.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore constructs a snapshotting SQLite-backed graph store.
func NewStore(path string, engine *domain.RulesEngine) (*Store, error) {
	if path == "" {
		path = "mdrcore.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &Store{Store: memory.NewStore(engine), db: db, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

var buckets = []string{"libraries", "roots", "values", "version_edges", "reference_edges", "counters"}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	raws := map[string][]byte{}
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return fmt.Errorf("scan state: %w", err)
		}
		raws[bucket] = payload
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate state: %w", err)
	}
	if len(raws) == 0 {
		return nil
	}

	var snapshot memory.Snapshot
	for bucket, payload := range raws {
		if len(payload) == 0 {
			continue
		}
		var target any
		switch bucket {
		case "libraries":
			target = &snapshot.Libraries
		case "roots":
			target = &snapshot.Roots
		case "values":
			target = &snapshot.Values
		case "version_edges":
			target = &snapshot.VersionEdges
		case "reference_edges":
			target = &snapshot.RefEdges
		case "counters":
			target = &snapshot.Counters
		default:
			continue
		}
		if err := json.Unmarshal(payload, target); err != nil {
			return fmt.Errorf("decode %s: %w", bucket, err)
		}
	}
	s.ImportState(snapshot)
	return nil
}

func (s *Store) persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range buckets {
		var data []byte
		switch bucket {
		case "libraries":
			data, err = json.Marshal(snapshot.Libraries)
		case "roots":
			data, err = json.Marshal(snapshot.Roots)
		case "values":
			data, err = json.Marshal(snapshot.Values)
		case "version_edges":
			data, err = json.Marshal(snapshot.VersionEdges)
		case "reference_edges":
			data, err = json.Marshal(snapshot.RefEdges)
		case "counters":
			data, err = json.Marshal(snapshot.Counters)
		}
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO state(bucket,payload) VALUES(?,?)
			ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// RunInTransaction applies fn in the in-memory engine, then snapshots the
// committed state to SQLite.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx graph.Tx) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if err := s.persist(); err != nil {
		return res, err
	}
	return res, nil
}

// PruneOrphanValues prunes in memory and snapshots the result.
func (s *Store) PruneOrphanValues(ctx context.Context) (int, error) {
	pruned, err := s.Store.PruneOrphanValues(ctx)
	if err != nil {
		return pruned, err
	}
	if pruned > 0 {
		if err := s.persist(); err != nil {
			return pruned, err
		}
	}
	return pruned, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the backing database file path.
func (s *Store) Path() string { return s.path }
