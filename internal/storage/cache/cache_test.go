package cache

import (
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookshelf/internal/models"
)

func newCache(t *testing.T) *Cache {
	t.Helper()
	c, err := InMemory(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func putRaw(t *testing.T, c *Cache, data string) {
	t.Helper()
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(Key), []byte(data))
	})
	require.NoError(t, err)
}

func TestLoadEmpty(t *testing.T) {
	c := newCache(t)

	col := c.Load()
	assert.True(t, col.Empty())
	assert.NotNil(t, col.Owned)
	assert.NotNil(t, col.PassedAlong)
	assert.NotNil(t, col.Ebook)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	c := newCache(t)

	col := models.NewCollection()
	col.Prepend(models.Item{
		ID: "9788954651134", Title: "소년이 온다", Author: "한강", ISBN: "9788954651134",
		Country: "KR", Ownership: models.OwnershipOwned, ReadingStatus: models.ReadingInProgress,
		ReadingPeriods: []models.ReadingPeriod{{Start: "2024-10-10"}},
	})
	col.Prepend(models.Item{
		ID: "1700000000000-1", Title: "Stoner", Author: "John Williams", Country: "US",
		Ownership: models.OwnershipEbook, ReadingStatus: models.ReadingFinished,
		RecordStatus: models.RecordFinished, Rating: 5,
	})

	require.NoError(t, c.Save(col))
	assert.Equal(t, col, c.Load())
}

func TestSaveOverwrites(t *testing.T) {
	c := newCache(t)

	col := models.NewCollection()
	col.Prepend(models.Item{ID: "a", Title: "A", Country: "KR", Ownership: models.OwnershipOwned, ReadingStatus: models.ReadingUnstarted})
	require.NoError(t, c.Save(col))
	require.NoError(t, c.Save(models.NewCollection()))

	assert.True(t, c.Load().Empty())
}

func TestLoadCorruptBlob(t *testing.T) {
	for _, data := range []string{"{not json", `"a string"`, `[1,2,3]`, ``} {
		c := newCache(t)
		putRaw(t, c, data)
		assert.True(t, c.Load().Empty(), "blob %q", data)
	}
}

func TestLoadSkipsMalformedEntries(t *testing.T) {
	c := newCache(t)
	putRaw(t, c, `{"schemaVersion":4,"owned":[1,"x",null,{"id":"ok","title":"Fine"}],"passedAlong":null}`)

	col := c.Load()
	require.Len(t, col.Owned, 1)
	assert.Equal(t, "ok", col.Owned[0].ID)
	assert.NotNil(t, col.PassedAlong)
}

func TestLoadLegacyBlob(t *testing.T) {
	c := newCache(t)
	// No schemaVersion: entries use legacy names, tokens and flat reading dates
	putRaw(t, c, `{
		"owned": [{"isbn":"9780141439518","title":"Pride and Prejudice","status":"읽음","readStatus":"stopped",
		           "countryCode":"gb","startDate":"2020-01-01","endDate":"2020-02-01","ownershipType":"ebook"}],
		"passedAlong": [{"title":"Given away","status":"paused"}],
		"ebook": [{"id":"e1","title":"Digital","country":""}]
	}`)

	col := c.Load()

	require.Len(t, col.Owned, 1)
	owned := col.Owned[0]
	assert.Equal(t, "9780141439518", owned.ID, "id falls back to isbn")
	assert.Equal(t, models.ReadingFinished, owned.ReadingStatus)
	assert.Equal(t, models.RecordPaused, owned.RecordStatus)
	assert.Equal(t, "GB", owned.Country)
	assert.Equal(t, []models.ReadingPeriod{{Start: "2020-01-01", End: "2020-02-01"}}, owned.ReadingPeriods)
	assert.Equal(t, models.OwnershipOwned, owned.Ownership, "stored array decides the group")

	require.Len(t, col.PassedAlong, 1)
	given := col.PassedAlong[0]
	assert.NotEmpty(t, given.ID, "id falls back to a generated one")
	assert.Equal(t, models.OwnershipPassedAlong, given.Ownership)
	assert.Equal(t, models.ReadingPaused, given.ReadingStatus)

	require.Len(t, col.Ebook, 1)
	assert.Equal(t, models.HomeCountry, col.Ebook[0].Country)
}

func TestLoadCurrentBlobRemapsDeprecatedValues(t *testing.T) {
	c := newCache(t)
	putRaw(t, c, `{"schemaVersion":4,"owned":[{"id":"s1","title":"Stalled","recordStatus":"stopped","readingStatus":"read"}]}`)

	col := c.Load()
	require.Len(t, col.Owned, 1)
	assert.Equal(t, models.RecordPaused, col.Owned[0].RecordStatus)
	assert.Equal(t, models.ReadingFinished, col.Owned[0].ReadingStatus)
}

func TestGeneratedIDsAreDistinct(t *testing.T) {
	c := newCache(t)
	putRaw(t, c, `{"owned":[{"title":"a"},{"title":"b"},{"title":"c"}]}`)

	col := c.Load()
	seen := map[string]bool{}
	for _, item := range col.Owned {
		assert.False(t, seen[item.ID], "duplicate id %s", item.ID)
		seen[item.ID] = true
	}
}

func TestDisabled(t *testing.T) {
	c := Disabled()
	assert.False(t, c.Enabled())

	col := models.NewCollection()
	col.Prepend(models.Item{ID: "a", Ownership: models.OwnershipOwned})

	assert.NoError(t, c.Save(col))
	assert.True(t, c.Load().Empty())
	assert.NoError(t, c.Close())
}
