package entries

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func steppingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	cur := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur = cur.Add(time.Second)
		return cur
	}
}

func TestFileStore_CreateGetRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewFileStore(t.TempDir())
	payload := json.RawMessage(`{"addresses":{"ipv4":"1.2.3.4","ipv6":null},"geolocation":{"city":"TestCity"}}`)

	id, err := s.Create(ctx, payload, "home")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	e, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(e.Data) != string(payload) {
		t.Fatalf("data=%s", e.Data)
	}
	if e.Title != "home" || e.ID != id || e.CreatedAt.IsZero() {
		t.Fatalf("entry=%+v", e.Summary)
	}
}

func TestFileStore_DefaultTitle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()
	if _, err := s.Create(ctx, json.RawMessage(`{}`), "first"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	id, err := s.Create(ctx, json.RawMessage(`{}`), "   ")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	e, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if e.Title != "Snapshot #2" || e.Title != DefaultTitle(id) {
		t.Fatalf("title=%q id=%d", e.Title, id)
	}
}

func TestFileStore_DeleteIsIdempotentNotFound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()
	id, err := s.Create(ctx, json.RawMessage(`{}`), "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after delete: %v", err)
	}
	if err := s.Delete(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Delete: %v", err)
	}
}

func TestFileStore_ListMostRecentFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()
	s.now = steppingClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	for _, title := range []string{"A", "B", "C"} {
		if _, err := s.Create(ctx, json.RawMessage(`{}`), title); err != nil {
			t.Fatalf("Create %s: %v", title, err)
		}
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 || list[0].Title != "C" || list[1].Title != "B" || list[2].Title != "A" {
		t.Fatalf("list=%+v", list)
	}
}

func TestSortSummaries_TieBreaksOnID(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	list := []Summary{{ID: 1, CreatedAt: at}, {ID: 3, CreatedAt: at}, {ID: 2, CreatedAt: at}}
	SortSummaries(list)
	if list[0].ID != 3 || list[1].ID != 2 || list[2].ID != 1 {
		t.Fatalf("list=%+v", list)
	}
}

func TestFileStore_IDsNeverReused(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	s := NewFileStore(dir)

	first, _ := s.Create(ctx, json.RawMessage(`{}`), "")
	second, _ := s.Create(ctx, json.RawMessage(`{}`), "")
	if err := s.Delete(ctx, second); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	third, err := s.Create(ctx, json.RawMessage(`{}`), "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if third <= second || third == first {
		t.Fatalf("ids first=%d second=%d third=%d", first, second, third)
	}

	// The counter survives a restart even when the highest id was deleted.
	if err := s.Delete(ctx, third); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	reopened := NewFileStore(dir)
	if err := reopened.LoadFromDisk(); err != nil {
		t.Fatalf("LoadFromDisk: %v", err)
	}
	fourth, err := reopened.Create(ctx, json.RawMessage(`{}`), "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if fourth <= third {
		t.Fatalf("reused id: fourth=%d third=%d", fourth, third)
	}
}

func TestFileStore_PersistsAcrossReload(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	s := NewFileStore(dir)
	// Non-compact input with HTML-sensitive characters must come back byte for byte.
	payload := json.RawMessage("{\n  \"addresses\": {\"ipv4\": \"10.0.0.1\"},\n  \"network\": {\"isp\": \"AT&T <x>\"}\n}")
	id, err := s.Create(ctx, payload, "office")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	reopened := NewFileStore(dir)
	if err := reopened.LoadFromDisk(); err != nil {
		t.Fatalf("LoadFromDisk: %v", err)
	}
	e, err := reopened.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(e.Data) != string(payload) || e.Title != "office" {
		t.Fatalf("entry=%+v data=%s", e.Summary, e.Data)
	}
	if reopened.Count() != 1 {
		t.Fatalf("count=%d", reopened.Count())
	}
}

func TestFileStore_LoadMissingFile(t *testing.T) {
	t.Parallel()

	s := NewFileStore(filepath.Join(t.TempDir(), "nested"))
	if err := s.LoadFromDisk(); err != nil {
		t.Fatalf("LoadFromDisk: %v", err)
	}
	if s.Count() != 0 {
		t.Fatalf("count=%d", s.Count())
	}
}

func TestFileStore_StorageFailureLeavesNoPartialMutation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	// A regular file where the data directory should be makes every write fail.
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	s := NewFileStore(blocker)

	if _, err := s.Create(ctx, json.RawMessage(`{}`), ""); !errors.Is(err, ErrStorage) {
		t.Fatalf("err=%v", err)
	}
	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("list=%+v", list)
	}
	if _, err := s.Get(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get: %v", err)
	}
}

func TestFileStore_ConcurrentCreatesGetUniqueIDs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()

	const n = 50
	ids := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := s.Create(ctx, json.RawMessage(`{}`), "")
			if err != nil {
				t.Errorf("Create: %v", err)
				return
			}
			ids[i] = id
			_, _ = s.List(ctx)
		}(i)
	}
	wg.Wait()

	seen := map[int64]bool{}
	for _, id := range ids {
		if id < 1 || id > n || seen[id] {
			t.Fatalf("bad or duplicate id %d in %v", id, ids)
		}
		seen[id] = true
	}
}

func TestFileStore_TwoHandlesShareOneFile(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	serve := NewFileStore(dir)
	cli := NewFileStore(dir)
	for _, s := range []*FileStore{serve, cli} {
		if err := s.LoadFromDisk(); err != nil {
			t.Fatalf("LoadFromDisk: %v", err)
		}
	}

	cliID, err := cli.Create(ctx, json.RawMessage(`{"who":"cli"}`), "")
	if err != nil {
		t.Fatalf("cli Create: %v", err)
	}
	serveID, err := serve.Create(ctx, json.RawMessage(`{"who":"serve"}`), "")
	if err != nil {
		t.Fatalf("serve Create: %v", err)
	}
	if cliID == serveID {
		t.Fatalf("id reused across handles: %d", cliID)
	}

	list, err := serve.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("serve sees %d entries, want 2", len(list))
	}
	e, err := serve.Get(ctx, cliID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(e.Data) != `{"who":"cli"}` {
		t.Fatalf("data=%s", e.Data)
	}

	// A delete through one handle is not undone by a later write through the other.
	if err := cli.Delete(ctx, serveID); err != nil {
		t.Fatalf("cli Delete: %v", err)
	}
	if _, err := serve.Create(ctx, json.RawMessage(`{}`), ""); err != nil {
		t.Fatalf("serve Create: %v", err)
	}
	if _, err := cli.Get(ctx, serveID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted entry came back: %v", err)
	}
	if err := serve.Delete(ctx, serveID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Delete: %v", err)
	}

	fresh := NewFileStore(dir)
	if err := fresh.LoadFromDisk(); err != nil {
		t.Fatalf("LoadFromDisk: %v", err)
	}
	if fresh.Count() != 2 {
		t.Fatalf("entries on disk=%d, want 2", fresh.Count())
	}
}

func TestFileStore_ConcurrentHandlesGetUniqueIDs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	handles := []*FileStore{NewFileStore(dir), NewFileStore(dir)}

	const perHandle = 15
	var (
		mu  sync.Mutex
		ids = map[int64]bool{}
		wg  sync.WaitGroup
	)
	for _, h := range handles {
		for i := 0; i < perHandle; i++ {
			wg.Add(1)
			go func(h *FileStore) {
				defer wg.Done()
				id, err := h.Create(ctx, json.RawMessage(`{}`), "")
				if err != nil {
					t.Errorf("Create: %v", err)
					return
				}
				mu.Lock()
				defer mu.Unlock()
				if ids[id] {
					t.Errorf("duplicate id %d", id)
				}
				ids[id] = true
			}(h)
		}
	}
	wg.Wait()

	fresh := NewFileStore(dir)
	if err := fresh.LoadFromDisk(); err != nil {
		t.Fatalf("LoadFromDisk: %v", err)
	}
	if fresh.Count() != 2*perHandle {
		t.Fatalf("entries on disk=%d, want %d", fresh.Count(), 2*perHandle)
	}
}

func TestFileStore_StaleLockIsBroken(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := NewFileStore(dir)
	lock := filepath.Join(dir, "entries.json.lock")
	if err := os.WriteFile(lock, nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(lock, old, old); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	if _, err := s.Create(context.Background(), json.RawMessage(`{}`), ""); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := os.Stat(lock); !os.IsNotExist(err) {
		t.Fatalf("lock file left behind: %v", err)
	}
}

func TestFileStore_HeldLockHonoursContext(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := NewFileStore(dir)
	if err := os.WriteFile(filepath.Join(dir, "entries.json.lock"), nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := s.Create(ctx, json.RawMessage(`{}`), ""); !errors.Is(err, ErrStorage) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err=%v", err)
	}
}
