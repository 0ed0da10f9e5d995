package lookup

import (
	"context"

	"github.com/sells-group/identity-cli/internal/model"
)

// mockClient scripts Resolve outcomes and records call counts.
type mockClient struct {
	id    string
	err   error
	calls int
}

func (m *mockClient) Resolve(_ context.Context, _ string) (string, error) {
	m.calls++
	return m.id, m.err
}

// mockStore records write-throughs and can simulate an unreachable store.
type mockStore struct {
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
