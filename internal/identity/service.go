package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/frannie30/ip-add-identifier/internal/entries"
	"github.com/frannie30/ip-add-identifier/internal/snapshot"
)

// ErrInvalidSnapshot is returned by CreateEntry for a snapshot that cannot be
// stored as given.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// Aggregator produces a fresh Snapshot per call.
type Aggregator interface {
	Aggregate(ctx context.Context) (*snapshot.Snapshot, error)
}

// Service exposes the aggregation and saved-entry operations to the
// request-handling layer. It is transport-agnostic.
type Service struct {
	agg   Aggregator
	store entries.Store
}

func NewService(agg Aggregator, store entries.Store) *Service {
	return &Service{
		agg:   agg,
		store: store,
	}
}

// Aggregate returns the current network identity.
func (s *Service) Aggregate(ctx context.Context) (*snapshot.Snapshot, error) {
	return s.agg.Aggregate(ctx)
}

// CreateEntry persists snap under a new id. An empty title gets the default.
// The snapshot must carry the time it was taken.
func (s *Service) CreateEntry(ctx context.Context, snap snapshot.Snapshot, title string) (int64, error) {
	if snap.Timestamp.IsZero() {
		return 0, fmt.Errorf("%w: %w", ErrInvalidSnapshot, snapshot.ErrNoTimestamp)
	}
	snap.Normalize()
	data, err := json.Marshal(snap)
	if err != nil {
		return 0, fmt.Errorf("encode snapshot: %w", err)
	}
	return s.store.Create(ctx, data, title)
}

func (s *Service) ListEntries(ctx context.Context) ([]entries.Summary, error) {
	return s.store.List(ctx)
}

// GetEntry returns entries.ErrNotFound for unknown ids.
func (s *Service) GetEntry(ctx context.Context, id int64) (entries.Entry, error) {
	return s.store.Get(ctx, id)
}

// DeleteEntry returns entries.ErrNotFound for unknown or already deleted ids.
func (s *Service) DeleteEntry(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, id)
}

// DecodeSnapshot parses a stored entry's payload back into a Snapshot.
func DecodeSnapshot(e entries.Entry) (snapshot.Snapshot, error) {
	var snap snapshot.Snapshot
	if err := json.Unmarshal(e.Data, &snap); err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("decode entry %d: %w", e.ID, err)
	}
	return snap, nil
}
