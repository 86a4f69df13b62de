package sqlite

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

	"github.com/frannie30/ip-add-identifier/internal/entries"
)

// Store persists saved entries in SQLite. AUTOINCREMENT guarantees ids are
// never handed out twice, even after the highest one is deleted.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ entries.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	data TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entries_created ON entries(created_at DESC, id DESC);
`

// New opens (or creates) the database at path and ensures the schema exists.
// Use ":memory:" for an in-memory database.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path must not be empty")
	}
	if path != ":memory:" {
		if err := ensureDir(path); err != nil {
			return nil, fmt.Errorf("%w: %w", entries.ErrStorage, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %w", entries.ErrStorage, err)
	}
	// SQLite only allows one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: set journal mode: %w", entries.ErrStorage, err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: set busy timeout: %w", entries.ErrStorage, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: create schema: %w", entries.ErrStorage, err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Create inserts the entry and assigns the default title in one transaction.
func (s *Store) Create(ctx context.Context, data json.RawMessage, title string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin: %w", entries.ErrStorage, err)
	}
	defer tx.Rollback()

	title = strings.TrimSpace(title)
	res, err := tx.ExecContext(ctx,
		`INSERT INTO entries (title, created_at, data) VALUES (?, ?, ?)`,
		title, s.now().UTC().UnixNano(), string(data),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: insert entry: %w", entries.ErrStorage, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: read entry id: %w", entries.ErrStorage, err)
	}

	if title == "" {
		if _, err := tx.ExecContext(ctx, `UPDATE entries SET title = ? WHERE id = ?`, entries.DefaultTitle(id), id); err != nil {
			return 0, fmt.Errorf("%w: set default title: %w", entries.ErrStorage, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit: %w", entries.ErrStorage, err)
	}
	return id, nil
}

func (s *Store) List(ctx context.Context) ([]entries.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, title, created_at
FROM entries
ORDER BY created_at DESC, id DESC;
`)
	if err != nil {
		return nil, fmt.Errorf("%w: list entries: %w", entries.ErrStorage, err)
	}
	defer rows.Close()

	out := []entries.Summary{}
	for rows.Next() {
		var (
			sum     entries.Summary
			created int64
		)
		if err := rows.Scan(&sum.ID, &sum.Title, &created); err != nil {
			return nil, fmt.Errorf("%w: scan entry row: %w", entries.ErrStorage, err)
		}
		sum.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate entries: %w", entries.ErrStorage, err)
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, id int64) (entries.Entry, error) {
	var (
		e       entries.Entry
		created int64
		data    string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, created_at, data FROM entries WHERE id = ?`, id,
	).Scan(&e.ID, &e.Title, &created, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return entries.Entry{}, entries.ErrNotFound
	}
	if err != nil {
		return entries.Entry{}, fmt.Errorf("%w: get entry %d: %w", entries.ErrStorage, id, err)
	}
	e.CreatedAt = time.Unix(0, created).UTC()
	e.Data = json.RawMessage(data)
	return e, nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: delete entry %d: %w", entries.ErrStorage, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: count deleted rows: %w", entries.ErrStorage, err)
	}
	if n == 0 {
		return entries.ErrNotFound
	}
	return nil
}

// Close releases the underlying database resources.
func (s *Store) Close() error {
	return s.db.Close()
}
