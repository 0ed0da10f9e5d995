package resolver

import (
	"context"
	"errors"

	"github.com/sells-group/identity-cli/internal/backfill"
	"github.com/sells-group/identity-cli/internal/mapping"
	"github.com/sells-group/identity-cli/internal/model"
)

// mockStore scripts cache contents and records write-throughs.
type mockStore struct {
	entries     map[string]model.MappingEntry
	writes      map[string]string
	bulkWrites  []model.MappingEntry
	unavailable bool
}

func newMockStore() *mockStore {
	return &mockStore{
		entries: map[string]model.MappingEntry{},
		writes:  map[string]string{},
	}
}

func (m *mockStore) storeErr() error {
	return &mapping.StoreUnavailableError{Err: errors.New("store down")}
}

func (m *mockStore) LookupCached(_ context.Context, normalized string) (*model.MappingEntry, error) {
	if m.unavailable {
		return nil, m.storeErr()
	}
	if e, ok := m.entries[normalized]; ok {
		return &e, nil
	}
	return nil, nil
}

func (m *mockStore) BatchLookupCached(_ context.Context, names []string) (map[string]model.MappingEntry, error) {
	if m.unavailable {
		return nil, m.storeErr()
	}
	out := map[string]model.MappingEntry{}
	for _, n := range names {
		if e, ok := m.entries[n]; ok {
			out[n] = e
		}
	}
	return out, nil
}

func (m *mockStore) WriteThrough(_ context.Context, normalized, companyID string, _ model.Tier) error {
	if m.unavailable {
		return m.storeErr()
	}
	m.writes[normalized] = companyID
	return nil
}

func (m *mockStore) BulkWriteThrough(_ context.Context, entries []model.MappingEntry) (int64, error) {
	if m.unavailable {
		return 0, m.storeErr()
	}
	m.bulkWrites = append(m.bulkWrites, entries...)
	return int64(len(entries)), nil
}

func (m *mockStore) Invalidate(context.Context, model.Tier) (int64, error) { return 0, nil }
func (m *mockStore) Migrate(context.Context) error                         { return nil }
func (m *mockStore) Close() error                                          { return nil }

// mockQueue records enqueue batches; activeNames simulates already-queued
// rows and err simulates an unreachable queue.
type mockQueue struct {
	batches     [][]backfill.Request
	activeNames map[string]struct{}
	err         error
}

func newMockQueue() *mockQueue {
	return &mockQueue{activeNames: map[string]struct{}{}}
}

func (m *mockQueue) EnqueueBatch(_ context.Context, requests []backfill.Request) (backfill.EnqueueResult, error) {
	if m.err != nil {
		return backfill.EnqueueResult{}, m.err
	}
	m.batches = append(m.batches, requests)
	var res backfill.EnqueueResult
	for _, r := range requests {
		if _, active := m.activeNames[r.NormalizedName]; active {
			res.Skipped++
			continue
		}
		m.activeNames[r.NormalizedName] = struct{}{}
		res.Queued++
	}
	return res, nil
}

func (m *mockQueue) Claim(context.Context, int) ([]model.EnrichmentRequest, error) { return nil, nil }
func (m *mockQueue) MarkDone(context.Context, string) error                        { return nil }
func (m *mockQueue) MarkFailed(context.Context, string, string) error              { return nil }
func (m *mockQueue) Stats(context.Context) (backfill.QueueStats, error) {
	return backfill.QueueStats{}, nil
}
func (m *mockQueue) Migrate(context.Context) error { return nil }
func (m *mockQueue) Close() error                  { return nil }

// mockClient scripts the external provider by normalized name.
type mockClient struct {
	ids   map[string]string
	err   error
	calls int
}

func (m *mockClient) Resolve(_ context.Context, normalized string) (string, error) {
	m.calls++
	if id, ok := m.ids[normalized]; ok {
		return id, nil
	}
	return "", m.err
}
