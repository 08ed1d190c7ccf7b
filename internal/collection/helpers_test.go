package collection

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bookshelf/internal/models"
	"bookshelf/internal/storage"
)

// spyCache is an in-memory storage.Cache that counts saves
type spyCache struct {
	mu       sync.Mutex
	col      models.Collection
	saves    int
	failSave error
}

func newSpyCache(items ...models.Item) *spyCache {
	c := models.NewCollection()
	for _, item := range items {
		c.Append(item)
	}
	return &spyCache{col: c}
}

func (c *spyCache) Load() models.Collection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.col.Clone()
}

func (c *spyCache) Save(col models.Collection) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saves++
	if c.failSave != nil {
		return c.failSave
	}
	c.col = col.Clone()
	return nil
}

func (c *spyCache) Saves() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saves
}

// remoteMock is a storage.Remote driven by testify expectations
type remoteMock struct {
	mock.Mock
}

func (m *remoteMock) List(ctx context.Context) ([]storage.Row, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]storage.Row)
	return rows, args.Error(1)
}

func (m *remoteMock) Insert(ctx context.Context, row storage.Row) (string, error) {
	args := m.Called(ctx, row)
	return args.String(0), args.Error(1)
}

func (m *remoteMock) Update(ctx context.Context, id string, fields storage.Fields) error {
	return m.Called(ctx, id, fields).Error(0)
}

func (m *remoteMock) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *remoteMock) DeleteAll(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *remoteMock) Close() error {
	return nil
}

func book(id, title string, o models.Ownership) models.Item {
	return models.Item{
		ID:            id,
		Title:         title,
		Author:        "Author of " + title,
		Country:       models.HomeCountry,
		Ownership:     o,
		ReadingStatus: models.ReadingUnstarted,
	}
}

// hydrated builds a store and hydrates it, failing the test on error
func hydrated(t *testing.T, cache storage.Cache, remote storage.Remote, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithTimeouts(time.Second, time.Second)}, opts...)
	s := New(cache, remote, nil, opts...)
	_, err := s.Hydrate(context.Background())
	require.NoError(t, err)
	require.True(t, s.Hydrated())
	return s
}

// assertGroupInvariant checks that every item sits in the group its ownership implies
func assertGroupInvariant(t *testing.T, c models.Collection) {
	t.Helper()
	for _, g := range models.Groups {
		for _, item := range c.Group(g) {
			assert.Equal(t, g, item.Group(), "item %s is in the wrong group", item.ID)
		}
	}
}
