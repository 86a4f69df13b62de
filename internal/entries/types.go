package entries

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

var (
	// ErrNotFound is returned by Get and Delete for unknown or deleted ids.
	ErrNotFound = errors.New("entry not found")
	// ErrStorage wraps failures of the underlying persistence medium.
	ErrStorage = errors.New("entry storage failure")
)

// Summary is the listing view of a saved entry.
type Summary struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// Entry is a persisted Snapshot. Data is kept verbatim.
type Entry struct {
	Summary
	Data json.RawMessage `json:"data"`
}

// Store persists saved entries. Implementations are safe for concurrent use.
type Store interface {
	Create(ctx context.Context, data json.RawMessage, title string) (int64, error)
	List(ctx context.Context) ([]Summary, error)
	Get(ctx context.Context, id int64) (Entry, error)
	Delete(ctx context.Context, id int64) error
	Close() error
}

// DefaultTitle is the label given to entries saved without a title.
func DefaultTitle(id int64) string {
	return "Snapshot #" + strconv.FormatInt(id, 10)
}
