// Package storage persists saved snippets and reports: file bodies under a
// directory on disk, metadata in a sqlite index so listings never have to
// stat the directory.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ashita-ai/kaiseki/internal/integrity"
	"github.com/ashita-ai/kaiseki/internal/model"
	"github.com/ashita-ai/kaiseki/migrations"
)

const driverName = "sqlite"

// Store is safe for concurrent use. Writes serialize on a mutex; sqlite in
// WAL mode with a single connection handles the rest.
type Store struct {
	dir string
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// Open prepares the snippet directory and the sqlite index. The directory
// and the database file's parent are created if missing.
func Open(dir, dbPath string) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("storage: snippet directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create snippet directory %q: %w", dir, err)
	}

	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("storage: database path must not be empty")
	}
	if parent := filepath.Dir(dbPath); parent != "" && parent != "." {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return nil, fmt.Errorf("storage: create database directory %q: %w", parent, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts between a save and a
	// concurrent listing.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", dbPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite index %q: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: ping sqlite index %q: %w", dbPath, err)
	}
	if err := RunMigrations(db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{dir: dir, db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping reports index availability, for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveCode writes a code snippet. An empty filename gets a timestamped
// default; a non-empty one gets the .go suffix appended if missing.
func (s *Store) SaveCode(ctx context.Context, code, filename string) (model.SavedSnippet, error) {
	name := s.resolveName(filename, "go_code_", ".go")
	return s.save(ctx, name, model.KindCode, []byte(code))
}

// SaveReport writes a rendered analysis report, default code_analysis_*.txt.
func (s *Store) SaveReport(ctx context.Context, text, filename string) (model.SavedSnippet, error) {
	name := s.resolveName(filename, "code_analysis_", ".txt")
	return s.save(ctx, name, model.KindReport, []byte(text))
}

func (s *Store) resolveName(filename, prefix, ext string) string {
	if filename == "" {
		return prefix + s.now().Format("20060102_150405") + ext
	}
	if !strings.HasSuffix(filename, ext) {
		return filename + ext
	}
	return filename
}

func (s *Store) save(ctx context.Context, name string, kind model.SnippetKind, body []byte) (model.SavedSnippet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return model.SavedSnippet{}, fmt.Errorf("storage: write %q: %w", name, err)
	}

	snip := model.SavedSnippet{
		ID:          uuid.New(),
		Filename:    name,
		Kind:        kind,
		SizeBytes:   int64(len(body)),
		ContentHash: integrity.ContentHash(name, body),
		CreatedAt:   s.now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO snippets (id, filename, kind, size_bytes, content_hash, created_at_utc)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(filename) DO UPDATE SET
  id=excluded.id,
  kind=excluded.kind,
  size_bytes=excluded.size_bytes,
  content_hash=excluded.content_hash,
  created_at_utc=excluded.created_at_utc`,
		snip.ID.String(), snip.Filename, string(snip.Kind), snip.SizeBytes,
		snip.ContentHash, snip.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return model.SavedSnippet{}, fmt.Errorf("storage: index %q: %w", name, err)
	}
	return snip, nil
}

// List returns saved snippets newest first, capped at limit.
func (s *Store) List(ctx context.Context, limit int) ([]model.SavedSnippet, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, filename, kind, size_bytes, content_hash, created_at_utc
FROM snippets
ORDER BY created_at_utc DESC, filename
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: list snippets: %w", err)
	}
	defer rows.Close()

	out := []model.SavedSnippet{}
	for rows.Next() {
		var (
			snip      model.SavedSnippet
			id        string
			kind      string
			createdAt string
		)
		if err := rows.Scan(&id, &snip.Filename, &kind, &snip.SizeBytes, &snip.ContentHash, &createdAt); err != nil {
			return nil, fmt.Errorf("storage: scan snippet row: %w", err)
		}
		snip.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("storage: bad snippet id %q: %w", id, err)
		}
		snip.Kind = model.SnippetKind(kind)
		snip.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("storage: bad snippet timestamp %q: %w", createdAt, err)
		}
		out = append(out, snip)
	}
	return out, rows.Err()
}

// Read returns a saved snippet's body by filename.
func (s *Store) Read(ctx context.Context, filename string) ([]byte, error) {
	if err := model.ValidateFilename(filename); err != nil {
		return nil, err
	}
	var name, hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT filename, content_hash FROM snippets WHERE filename = ?`, filename).Scan(&name, &hash)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: look up %q: %w", filename, err)
	}
	body, err := os.ReadFile(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read %q: %w", name, err)
	}
	// Rows written before hashing existed carry an empty hash and are
	// served as-is; rehash them with scripts/rehash-content-hashes.
	if hash != "" && !integrity.Verify(hash, name, body) {
		return nil, fmt.Errorf("%w: %s", ErrIntegrity, name)
	}
	return body, nil
}
