package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"bookshelf/internal/models"
)

// Row is one record of the books table
type Row struct {
	ID             string    `db:"id"`
	Title          string    `db:"title"`
	Author         string    `db:"author"`
	Translator     string    `db:"translator"`
	Publisher      string    `db:"publisher"`
	PublishedDate  string    `db:"published_date"`
	Cover          string    `db:"cover"`
	Description    string    `db:"description"`
	ISBN           string    `db:"isbn"`
	Category       string    `db:"category"`
	Series         string    `db:"series"`
	PageCount      int64     `db:"page_count"`
	Format         string    `db:"format"`
	Price          int64     `db:"price"`
	Country        string    `db:"country"`
	Ownership      string    `db:"ownership"`
	ReadingStatus  string    `db:"reading_status"`
	Source         string    `db:"source"`
	Resale         bool      `db:"resale"`
	ReadingPeriods string    `db:"reading_periods"`
	RecordStatus   string    `db:"record_status"`
	Rating         float64   `db:"rating"`
	FirstSentence  string    `db:"first_sentence"`
	LastSentence   string    `db:"last_sentence"`
	MusicTitle     string    `db:"music_title"`
	MusicArtist    string    `db:"music_artist"`
	Weather        string    `db:"weather"`
	SpineColor     string    `db:"spine_color"`
	FontColor      string    `db:"font_color"`
	Review         string    `db:"review"`
	CreatedAt      time.Time `db:"created_at"`
}

// Columns lists the writable columns of the books table in insert order.
// id and created_at are assigned by the backend.
var Columns = []string{
	"title", "author", "translator", "publisher", "published_date", "cover", "description",
	"isbn", "category", "series", "page_count", "format", "price", "country", "ownership",
	"reading_status", "source", "resale", "reading_periods", "record_status", "rating",
	"first_sentence", "last_sentence", "music_title", "music_artist", "weather",
	"spine_color", "font_color", "review",
}

var knownColumns = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Columns))
	for _, c := range Columns {
		m[c] = struct{}{}
	}
	return m
}()

// Values returns the row's values in Columns order
func (r Row) Values() []any {
	return []any{
		r.Title, r.Author, r.Translator, r.Publisher, r.PublishedDate, r.Cover, r.Description,
		r.ISBN, r.Category, r.Series, r.PageCount, r.Format, r.Price, r.Country, r.Ownership,
		r.ReadingStatus, r.Source, r.Resale, r.ReadingPeriods, r.RecordStatus, r.Rating,
		r.FirstSentence, r.LastSentence, r.MusicTitle, r.MusicArtist, r.Weather,
		r.SpineColor, r.FontColor, r.Review,
	}
}

// Fields is a partial update keyed by column name
type Fields map[string]any

// Validate reports the first column that the books table does not have
func (f Fields) Validate() error {
	for col := range f {
		if _, ok := knownColumns[col]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownColumn, col)
		}
	}
	return nil
}

// SortedColumns returns the field names in a stable order
func (f Fields) SortedColumns() []string {
	cols := make([]string, 0, len(f))
	for col := range f {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

// FieldsFromItem returns every writable column of item
func FieldsFromItem(item models.Item) Fields {
	row := RowFromItem(item)
	values := row.Values()
	f := make(Fields, len(Columns))
	for i, col := range Columns {
		f[col] = values[i]
	}
	return f
}

// Item maps the row onto the canonical model. The column set is fixed, so no legacy
// handling is needed beyond defaulting blank vocabulary fields.
func (r Row) Item() models.Item {
	item := models.Item{
		ID:            r.ID,
		Title:         r.Title,
		Author:        r.Author,
		Translator:    r.Translator,
		Publisher:     r.Publisher,
		PublishedDate: r.PublishedDate,
		Cover:         r.Cover,
		Description:   r.Description,
		ISBN:          r.ISBN,
		Category:      r.Category,
		Series:        r.Series,
		PageCount:     int(r.PageCount),
		Format:        r.Format,
		Price:         int(r.Price),
		Country:       models.NormalizeCountry(r.Country),
		Ownership:     models.Ownership(r.Ownership).Group().Ownership(),
		ReadingStatus: models.ReadingUnstarted,
		Source:        r.Source,
		Resale:        r.Resale,
		Rating:        r.Rating,
		FirstSentence: r.FirstSentence,
		LastSentence:  r.LastSentence,
		MusicTitle:    r.MusicTitle,
		MusicArtist:   r.MusicArtist,
		Weather:       r.Weather,
		SpineColor:    r.SpineColor,
		FontColor:     r.FontColor,
		Review:        r.Review,
	}
	if rs, ok := models.ParseReadingStatus(r.ReadingStatus); ok {
		item.ReadingStatus = rs
	}
	if rs, ok := models.ParseRecordStatus(r.RecordStatus); ok {
		item.RecordStatus = rs
	}
	if r.ReadingPeriods != "" {
		var periods []models.ReadingPeriod
		if err := json.Unmarshal([]byte(r.ReadingPeriods), &periods); err == nil && len(periods) > 0 {
			item.ReadingPeriods = periods
		}
	}
	return item
}

// RowFromItem maps an item onto the books columns
func RowFromItem(item models.Item) Row {
	row := Row{
		ID:            item.ID,
		Title:         item.Title,
		Author:        item.Author,
		Translator:    item.Translator,
		Publisher:     item.Publisher,
		PublishedDate: item.PublishedDate,
		Cover:         item.Cover,
		Description:   item.Description,
		ISBN:          item.ISBN,
		Category:      item.Category,
		Series:        item.Series,
		PageCount:     int64(item.PageCount),
		Format:        item.Format,
		Price:         int64(item.Price),
		Country:       item.Country,
		Ownership:     string(item.Ownership),
		ReadingStatus: string(item.ReadingStatus),
		Source:        item.Source,
		Resale:        item.Resale,
		RecordStatus:  string(item.RecordStatus),
		Rating:        item.Rating,
		FirstSentence: item.FirstSentence,
		LastSentence:  item.LastSentence,
		MusicTitle:    item.MusicTitle,
		MusicArtist:   item.MusicArtist,
		Weather:       item.Weather,
		SpineColor:    item.SpineColor,
		FontColor:     item.FontColor,
		Review:        item.Review,
	}
	row.ReadingPeriods = "[]"
	if len(item.ReadingPeriods) > 0 {
		if data, err := json.Marshal(item.ReadingPeriods); err == nil {
			row.ReadingPeriods = string(data)
		}
	}
	return row
}

// CollectionFromRows buckets rows into groups by ownership, keeping their order
func CollectionFromRows(rows []Row) models.Collection {
	c := models.NewCollection()
	for _, row := range rows {
		c.Append(row.Item())
	}
	return c
}
