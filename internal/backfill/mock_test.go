package backfill

import (
	"context"
	"sync"

	"github.com/sells-group/identity-cli/internal/model"
)

// mockClient scripts Resolve by normalized name; unlisted names fail with err.
type mockClient struct {
	mu  sync.Mutex
	ids map[string]string
	err error
}

func (m *mockClient) Resolve(_ context.Context, normalized string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.ids[normalized]; ok {
		return id, nil
	}
	return "", m.err
}

// mockStore records write-throughs; drain workers hit it concurrently.
type mockStore struct {
	mu     sync.Mutex
	writes map[string]string
	err    error
}

func newMockStore() *mockStore {
	return &mockStore{writes: map[string]string{}}
}

func (m *mockStore) LookupCached(context.Context, string) (*model.MappingEntry, error) {
	return nil, nil
}

func (m *mockStore) BatchLookupCached(context.Context, []string) (map[string]model.MappingEntry, error) {
	return nil, nil
}

func (m *mockStore) WriteThrough(_ context.Context, normalized, companyID string, _ model.Tier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.writes[normalized] = companyID
	return nil
}

func (m *mockStore) BulkWriteThrough(context.Context, []model.MappingEntry) (int64, error) {
	return 0, nil
}

func (m *mockStore) Invalidate(context.Context, model.Tier) (int64, error) { return 0, nil }
func (m *mockStore) Migrate(context.Context) error                         { return nil }
func (m *mockStore) Close() error                                          { return nil }
