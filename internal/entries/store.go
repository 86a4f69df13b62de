package entries

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	lockRetry    = 10 * time.Millisecond
	lockTimeout  = 5 * time.Second
	staleLockAge = 30 * time.Second
)

// file is the persisted structure of a FileStore.
type file struct {
	NextID    int64     `json:"next_id"`
	Entries   []record  `json:"entries"`
	UpdatedAt time.Time `json:"updated_at"`
}

// record keeps Data as a JSON string so the stored bytes survive a
// round trip through the file unchanged.
type record struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	Data      string    `json:"data"`
}

// FileStore keeps entries in memory and, when it has a path, mirrors every
// mutation to a JSON file. Several FileStores (one per process) may share
// a file: mutations hold a lock file and re-read the file first, and reads
// reload when the file changed underneath. A mutation is applied in memory
// only after the file write succeeded.
type FileStore struct {
	mu      sync.RWMutex
	entries map[int64]Entry
	nextID  int64
	path    string
	now     func() time.Time

	loadedMod  time.Time
	loadedSize int64
}

var _ Store = (*FileStore)(nil)

// NewFileStore returns a store persisted at dataDir/entries.json.
func NewFileStore(dataDir string) *FileStore {
	s := NewMemoryStore()
	s.path = filepath.Join(dataDir, "entries.json")
	return s
}

// NewMemoryStore returns a store that lives for the process lifetime.
func NewMemoryStore() *FileStore {
	return &FileStore{
		entries: make(map[int64]Entry),
		nextID:  1,
		now:     time.Now,
	}
}

// LoadFromDisk loads entries from the JSON file. Returns nil if the file doesn't exist.
func (s *FileStore) LoadFromDisk() error {
	if s.path == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloadLocked()
}

// reloadLocked replaces the in-memory view with the file contents. The id
// counter never moves backwards. Callers hold s.mu.
func (s *FileStore) reloadLocked() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.entries = make(map[int64]Entry)
		s.loadedMod, s.loadedSize = time.Time{}, 0
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: read entries file: %w", ErrStorage, err)
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("%w: decode entries file: %w", ErrStorage, err)
	}

	loaded := make(map[int64]Entry, len(f.Entries))
	next := max(s.nextID, f.NextID, 1)
	for _, r := range f.Entries {
		loaded[r.ID] = Entry{
			Summary: Summary{ID: r.ID, Title: r.Title, CreatedAt: r.CreatedAt},
			Data:    json.RawMessage(r.Data),
		}
		if r.ID >= next {
			next = r.ID + 1
		}
	}
	s.entries = loaded
	s.nextID = next
	s.markLoaded()
	return nil
}

func (s *FileStore) markLoaded() {
	if fi, err := os.Stat(s.path); err == nil {
		s.loadedMod, s.loadedSize = fi.ModTime(), fi.Size()
	}
}

// refresh reloads the file if another writer changed it since the last load.
func (s *FileStore) refresh() error {
	if s.path == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fi, err := os.Stat(s.path)
	switch {
	case err != nil && s.loadedMod.IsZero():
		// Nothing was ever read from the file; keep the current view.
		return nil
	case err != nil && !os.IsNotExist(err):
		return fmt.Errorf("%w: stat entries file: %w", ErrStorage, err)
	case err == nil && fi.ModTime().Equal(s.loadedMod) && fi.Size() == s.loadedSize:
		return nil
	}
	return s.reloadLocked()
}

// lockFile takes the cross-process lock guarding the entries file. A lock
// older than staleLockAge is assumed to belong to a crashed writer.
func (s *FileStore) lockFile(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create data dir: %w", ErrStorage, err)
	}

	lock := s.path + ".lock"
	deadline := time.Now().Add(lockTimeout)
	for {
		f, err := os.OpenFile(lock, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			f.Close()
			return func() { os.Remove(lock) }, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: create lock file: %w", ErrStorage, err)
		}
		if fi, err := os.Stat(lock); err == nil && time.Since(fi.ModTime()) > staleLockAge {
			os.Remove(lock)
			continue
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: entries file is locked by another writer", ErrStorage)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrStorage, ctx.Err())
		case <-time.After(lockRetry):
		}
	}
}

// mutate runs fn on a fresh copy of the entries. With a path, the file lock
// is held and the file re-read first, and the result is saved before it is
// committed to memory.
func (s *FileStore) mutate(ctx context.Context, fn func(entries map[int64]Entry, nextID int64) (int64, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path != "" {
		unlock, err := s.lockFile(ctx)
		if err != nil {
			return err
		}
		defer unlock()
		if err := s.reloadLocked(); err != nil {
			return err
		}
	}

	next := make(map[int64]Entry, len(s.entries)+1)
	for k, v := range s.entries {
		next[k] = v
	}
	nextID, err := fn(next, s.nextID)
	if err != nil {
		return err
	}
	if err := s.saveLocked(next, nextID); err != nil {
		return err
	}
	s.entries = next
	s.nextID = nextID
	return nil
}

// saveLocked writes entries plus the id counter. Callers hold s.mu and the file lock.
func (s *FileStore) saveLocked(entries map[int64]Entry, nextID int64) error {
	if s.path == "" {
		return nil
	}

	f := file{
		NextID:    nextID,
		Entries:   make([]record, 0, len(entries)),
		UpdatedAt: s.now().UTC(),
	}
	for _, e := range entries {
		f.Entries = append(f.Entries, record{ID: e.ID, Title: e.Title, CreatedAt: e.CreatedAt, Data: string(e.Data)})
	}
	sort.Slice(f.Entries, func(i, j int) bool { return f.Entries[i].ID < f.Entries[j].ID })

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("%w: marshal entries: %w", ErrStorage, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("%w: create data dir: %w", ErrStorage, err)
	}

	// Write then rename so a crash never leaves a truncated file.
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".entries-*.json")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", ErrStorage, err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: write entries file: %w", ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: write entries file: %w", ErrStorage, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: replace entries file: %w", ErrStorage, err)
	}
	s.markLoaded()
	return nil
}

// Create stores data under a new id. An empty title becomes DefaultTitle(id).
func (s *FileStore) Create(ctx context.Context, data json.RawMessage, title string) (int64, error) {
	var id int64
	err := s.mutate(ctx, func(entries map[int64]Entry, nextID int64) (int64, error) {
		id = nextID
		t := strings.TrimSpace(title)
		if t == "" {
			t = DefaultTitle(id)
		}
		entries[id] = Entry{
			Summary: Summary{ID: id, Title: t, CreatedAt: s.now().UTC()},
			Data:    append(json.RawMessage(nil), data...),
		}
		return id + 1, nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// List returns summaries, most recent first.
func (s *FileStore) List(ctx context.Context) ([]Summary, error) {
	if err := s.refresh(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Summary, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Summary)
	}
	SortSummaries(out)
	return out, nil
}

func (s *FileStore) Get(ctx context.Context, id int64) (Entry, error) {
	if err := s.refresh(); err != nil {
		return Entry{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	e.Data = append(json.RawMessage(nil), e.Data...)
	return e, nil
}

func (s *FileStore) Delete(ctx context.Context, id int64) error {
	return s.mutate(ctx, func(entries map[int64]Entry, nextID int64) (int64, error) {
		if _, ok := entries[id]; !ok {
			return 0, ErrNotFound
		}
		delete(entries, id)
		return nextID, nil
	})
}

// Count returns the number of stored entries.
func (s *FileStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *FileStore) Close() error { return nil }

// SortSummaries orders by created_at descending, then id descending.
func SortSummaries(list []Summary) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
}
