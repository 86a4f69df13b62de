package identity

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/frannie30/ip-add-identifier/internal/entries"
	"github.com/frannie30/ip-add-identifier/internal/snapshot"
)

type stubAggregator struct {
	snap *snapshot.Snapshot
	err  error
}

func (s stubAggregator) Aggregate(context.Context) (*snapshot.Snapshot, error) {
	return s.snap, s.err
}

func sampleSnapshot() snapshot.Snapshot {
	return snapshot.Snapshot{
		Timestamp: time.Date(2025, 3, 4, 5, 6, 7, 890, time.UTC),
		Addresses: snapshot.Addresses{IPv4: snapshot.String("203.0.113.5")},
		Geolocation: snapshot.Geolocation{
			City:      snapshot.String("Berlin"),
			Latitude:  snapshot.Float(52.52),
			Longitude: snapshot.Float(13.405),
		},
		Security: snapshot.Security{IsProxy: snapshot.Bool(false)},
		Local:    snapshot.Local{Hostname: snapshot.String("laptop"), LocalIPs: []string{"192.168.1.2"}},
	}
}

func TestService_CreateThenGetIsBitIdentical(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := NewService(stubAggregator{}, entries.NewMemoryStore())
	snap := sampleSnapshot()

	id, err := svc.CreateEntry(ctx, snap, "")
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	e, err := svc.GetEntry(ctx, id)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}

	want, _ := json.Marshal(snap)
	if string(e.Data) != string(want) {
		t.Fatalf("data=%s\nwant=%s", e.Data, want)
	}
	if e.Title != "Snapshot #1" {
		t.Fatalf("title=%q", e.Title)
	}

	back, err := DecodeSnapshot(e)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	again, _ := json.Marshal(back)
	if string(again) != string(want) {
		t.Fatalf("decoded=%s", again)
	}
}

func TestService_CreateNormalizesLocalIPs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := NewService(stubAggregator{}, entries.NewMemoryStore())

	id, err := svc.CreateEntry(ctx, snapshot.Snapshot{Timestamp: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}, "t")
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	e, _ := svc.GetEntry(ctx, id)
	var raw map[string]map[string]any
	if err := json.Unmarshal(e.Data, &raw); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if ips, ok := raw["local"]["local_ips"].([]any); !ok || len(ips) != 0 {
		t.Fatalf("local_ips=%v", raw["local"]["local_ips"])
	}
}

func TestService_DeleteTwice(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := NewService(stubAggregator{}, entries.NewMemoryStore())
	id, _ := svc.CreateEntry(ctx, sampleSnapshot(), "x")

	if err := svc.DeleteEntry(ctx, id); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if err := svc.DeleteEntry(ctx, id); !errors.Is(err, entries.ErrNotFound) {
		t.Fatalf("second DeleteEntry: %v", err)
	}
	list, err := svc.ListEntries(ctx)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("list=%+v", list)
	}
}

func TestService_AggregatePassesThroughError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	svc := NewService(stubAggregator{err: boom}, entries.NewMemoryStore())
	if _, err := svc.Aggregate(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
}

func TestService_CreateRejectsMissingTimestamp(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := NewService(stubAggregator{}, entries.NewMemoryStore())
	snap := sampleSnapshot()
	snap.Timestamp = time.Time{}

	if _, err := svc.CreateEntry(ctx, snap, ""); !errors.Is(err, ErrInvalidSnapshot) || !errors.Is(err, snapshot.ErrNoTimestamp) {
		t.Fatalf("err=%v", err)
	}
	list, err := svc.ListEntries(ctx)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("list=%+v", list)
	}
}
