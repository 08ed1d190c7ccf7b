package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookshelf/internal/models"
)

func TestParse_EnglishHeader(t *testing.T) {
	doc := `Title,Author,ISBN,Category,Status,Ownership,Start Date,End Date,Price,Country
Dune,Frank Herbert,9780441013593,  Sci-Fi  ,finished,ebook,2023.1.5,2023/01/20,"15,000",us
Emma,Jane Austen,,,reading,,,,,
`
	got, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, got, 2)

	dune := got[0]
	assert.Equal(t, models.GroupEbook, dune.Group)
	assert.Equal(t, "Dune", dune.Item.Title)
	assert.Equal(t, "Frank Herbert", dune.Item.Author)
	assert.Equal(t, "9780441013593", dune.Item.ISBN)
	assert.Equal(t, "Sci-Fi", dune.Item.Category)
	assert.Equal(t, models.ReadingFinished, dune.Item.ReadingStatus)
	assert.Equal(t, models.OwnershipEbook, dune.Item.Ownership)
	assert.Equal(t, 15000, dune.Item.Price)
	assert.Equal(t, "US", dune.Item.Country)
	assert.Equal(t, []models.ReadingPeriod{{Start: "2023-01-05", End: "2023-01-20"}}, dune.Item.ReadingPeriods)

	emma := got[1]
	assert.Equal(t, models.GroupOwned, emma.Group, "ownership defaults to owned")
	assert.Equal(t, models.ReadingInProgress, emma.Item.ReadingStatus)
	assert.Equal(t, models.HomeCountry, emma.Item.Country)
	assert.Nil(t, emma.Item.ReadingPeriods)
}

func TestParse_KoreanHeader(t *testing.T) {
	doc := "\ufeff제목,저자,출판사,상태,구분,가격,쪽수,완독일\n" +
		"채식주의자,한강,창비,완독,방출,12000원,247,2024년 3월 2일\n" +
		"소년이 온다,한강,창비,읽음,소장,,,\n"

	got, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, models.GroupPassedAlong, got[0].Group)
	assert.Equal(t, "채식주의자", got[0].Item.Title)
	assert.Equal(t, "창비", got[0].Item.Publisher)
	assert.Equal(t, models.ReadingFinished, got[0].Item.ReadingStatus)
	assert.Equal(t, 12000, got[0].Item.Price)
	assert.Equal(t, 247, got[0].Item.PageCount)
	assert.Equal(t, []models.ReadingPeriod{{End: "2024-03-02"}}, got[0].Item.ReadingPeriods)

	assert.Equal(t, models.GroupOwned, got[1].Group)
	assert.Equal(t, models.ReadingFinished, got[1].Item.ReadingStatus, "legacy 읽음 reads as finished")
}

func TestParse_SkipsRowsWithoutTitle(t *testing.T) {
	doc := "title,author\n,Nobody\n  ,Somebody\nReal,Writer\nshort\n"

	got, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Real", got[0].Item.Title)
	assert.Equal(t, "short", got[1].Item.Title)
	assert.Empty(t, got[1].Item.Author)
}

func TestParse_UnknownStatusDefaultsToUnstarted(t *testing.T) {
	got, err := Parse(strings.NewReader("title,status\nX,someday\n"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.ReadingUnstarted, got[0].Item.ReadingStatus)
}

func TestParse_FirstMatchingColumnWins(t *testing.T) {
	got, err := Parse(strings.NewReader("title,제목\nFirst,Second\n"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "First", got[0].Item.Title)
}

func TestParse_NoTitleColumn(t *testing.T) {
	_, err := Parse(strings.NewReader("author,isbn\nA,1\n"))
	assert.ErrorIs(t, err, ErrNoTitleColumn)

	_, err = Parse(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoTitleColumn)
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"2023.1.5", "2023-01-05"},
		{"2023/01/05", "2023-01-05"},
		{"2023-01-05", "2023-01-05"},
		{" 2023. 1. 5. ", "2023-01-05"},
		{"2023년 1월 5일", "2023-01-05"},
		{"2023.7", "2023-07"},
		{"2023.13.1", "2023.13.1"},
		{"2023.1.32", "2023.1.32"},
		{"5/1/2023", "5/1/2023"},
		{"someday", "someday"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDate(tt.in))
		})
	}
}
