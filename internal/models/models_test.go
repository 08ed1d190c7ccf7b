package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOwnershipGroup(t *testing.T) {
	assert.Equal(t, GroupOwned, OwnershipOwned.Group())
	assert.Equal(t, GroupPassedAlong, OwnershipPassedAlong.Group())
	assert.Equal(t, GroupEbook, OwnershipEbook.Group())
	assert.Equal(t, GroupOwned, Ownership("library-loan").Group())

	for _, g := range Groups {
		assert.Equal(t, g, g.Ownership().Group(), "group %s should round trip", g)
	}
}

func TestParseGroup(t *testing.T) {
	testCases := []struct {
		in   string
		want Group
		ok   bool
	}{
		{"owned", GroupOwned, true},
		{" Owned ", GroupOwned, true},
		{"passed", GroupPassedAlong, true},
		{"Passed Along", GroupPassedAlong, true},
		{"ebook", GroupEbook, true},
		{"E-Book", GroupEbook, true},
		{"wishlist", "", false},
		{"", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := ParseGroup(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseStatuses(t *testing.T) {
	rs, ok := ParseReadingStatus("finished")
	assert.True(t, ok)
	assert.Equal(t, ReadingFinished, rs)

	_, ok = ParseReadingStatus("read")
	assert.False(t, ok, "legacy tokens are not canonical")

	rec, ok := ParseRecordStatus("in progress")
	assert.True(t, ok)
	assert.Equal(t, RecordInProgress, rec)

	_, ok = ParseRecordStatus("stopped")
	assert.False(t, ok, "deprecated record status is not canonical")
}

func TestNormalizeCountry(t *testing.T) {
	testCases := []struct {
		in, want string
	}{
		{"", HomeCountry},
		{"   ", HomeCountry},
		{"us", "US"},
		{" jp ", "JP"},
		{"gbr", "GB"},
		{"f", "F"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, NormalizeCountry(tc.in), "input %q", tc.in)
	}
}

func TestCollectionMutations(t *testing.T) {
	c := NewCollection()
	assert.True(t, c.Empty())

	a := Item{ID: "a", Title: "A", Ownership: OwnershipOwned}
	b := Item{ID: "b", Title: "B", Ownership: OwnershipOwned}
	e := Item{ID: "e", Title: "E", Ownership: OwnershipEbook}

	c.Prepend(a)
	c.Prepend(b)
	c.Prepend(e)

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []string{"b", "a"}, ids(c.Owned), "newest first")
	assert.Len(t, c.Ebook, 1)

	item, g, ok := c.Find("a")
	assert.True(t, ok)
	assert.Equal(t, GroupOwned, g)
	assert.Equal(t, "A", item.Title)

	// Same group replace keeps position
	a.Title = "A2"
	assert.True(t, c.Replace(a))
	assert.Equal(t, []string{"b", "a"}, ids(c.Owned))
	assert.Equal(t, "A2", c.Owned[1].Title)

	// Ownership change moves the item
	a.Ownership = OwnershipPassedAlong
	assert.True(t, c.Replace(a))
	assert.Equal(t, []string{"b"}, ids(c.Owned))
	assert.Equal(t, []string{"a"}, ids(c.PassedAlong))

	assert.True(t, c.Remove("e"))
	assert.False(t, c.Remove("e"))
	assert.Empty(t, c.Ebook)
	assert.NotNil(t, c.Ebook)

	assert.False(t, c.Replace(Item{ID: "missing"}))
}

func TestCollectionCloneIsDeep(t *testing.T) {
	c := NewCollection()
	c.Prepend(Item{ID: "a", Ownership: OwnershipOwned, ReadingPeriods: []ReadingPeriod{{Start: "2024-01-01"}}})

	clone := c.Clone()
	clone.Owned[0].Title = "changed"
	clone.Owned[0].ReadingPeriods[0].Start = "1999-01-01"

	assert.Empty(t, c.Owned[0].Title)
	assert.Equal(t, "2024-01-01", c.Owned[0].ReadingPeriods[0].Start)
}

func TestReviewRoundTrip(t *testing.T) {
	r := Review{
		PurchaseReason: "Recommended by a friend",
		BuildQuality:   "Sewn binding,\nthick paper",
		Body:           "Loved the ending.",
	}

	parsed := ParseReview(r.String())
	assert.Equal(t, r, parsed)
}

func TestParseReview(t *testing.T) {
	t.Run("plain text is the body", func(t *testing.T) {
		r := ParseReview("  just a note  ")
		assert.Equal(t, Review{Body: "just a note"}, r)
		assert.Equal(t, "just a note", r.String())
	})

	t.Run("missing sections stay empty", func(t *testing.T) {
		r := ParseReview("[quality]\nflimsy cover\n[review]\nfine")
		assert.Empty(t, r.PurchaseReason)
		assert.Equal(t, "flimsy cover", r.BuildQuality)
		assert.Equal(t, "fine", r.Body)
	})

	t.Run("markers are case insensitive and CRLF tolerant", func(t *testing.T) {
		r := ParseReview("[PURCHASE]\r\nsale\r\n[Review]\r\nok")
		assert.Equal(t, "sale", r.PurchaseReason)
		assert.Equal(t, "ok", r.Body)
	})
}

func ids(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}
