package stubs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"bookshelf/internal/storage"
)

// MockDB is an in-memory implementation of storage.Remote for development and tests
type MockDB struct {
	mu        sync.RWMutex
	books     map[string]storage.Row
	failWith  error
	listDelay time.Duration
	calls     map[string]int
	seq       map[string]uint64
	next      uint64
	now       func() time.Time
}

// NewMockDB creates a new empty mock database
func NewMockDB() *MockDB {
	return &MockDB{
		books: make(map[string]storage.Row),
		calls: make(map[string]int),
		seq:   make(map[string]uint64),
		now:   time.Now,
	}
}

// FailWith makes every following call return err. A nil err restores normal behavior.
func (m *MockDB) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

// SetListDelay makes List wait d before answering, or until its context ends
func (m *MockDB) SetListDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listDelay = d
}

// Calls returns how many times op was invoked
func (m *MockDB) Calls(op string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[op]
}

func (m *MockDB) enter(op string) error {
	m.calls[op]++
	if m.failWith != nil {
		return fmt.Errorf("%s: %w", op, m.failWith)
	}
	return nil
}

// List returns all books ordered by creation time, newest first
func (m *MockDB) List(ctx context.Context) ([]storage.Row, error) {
	m.mu.Lock()
	err := m.enter("list")
	delay := m.listDelay
	m.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := make([]storage.Row, 0, len(m.books))
	for _, row := range m.books {
		rows = append(rows, row)
	}

	// Sort by created_at descending, then by insertion order
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return m.seq[rows[i].ID] > m.seq[rows[j].ID]
	})

	return rows, nil
}

// Insert stores a new book under a fresh uuid
func (m *MockDB) Insert(ctx context.Context, row storage.Row) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.enter("insert"); err != nil {
		return "", err
	}

	row.ID = uuid.NewString()
	row.CreatedAt = m.now()
	m.next++
	m.seq[row.ID] = m.next
	m.books[row.ID] = row
	return row.ID, nil
}

// Update changes the given columns of one book
func (m *MockDB) Update(ctx context.Context, id string, fields storage.Fields) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.enter("update"); err != nil {
		return err
	}
	if err := fields.Validate(); err != nil {
		return err
	}
	row, ok := m.books[id]
	if !ok {
		return fmt.Errorf("update %s: %w", id, storage.ErrNotFound)
	}

	updated, err := apply(row, fields)
	if err != nil {
		return err
	}
	m.books[id] = updated
	return nil
}

// Delete removes one book
func (m *MockDB) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.enter("delete"); err != nil {
		return err
	}
	if _, ok := m.books[id]; !ok {
		return fmt.Errorf("delete %s: %w", id, storage.ErrNotFound)
	}
	delete(m.books, id)
	delete(m.seq, id)
	return nil
}

// DeleteAll removes every book
func (m *MockDB) DeleteAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.enter("delete_all"); err != nil {
		return err
	}
	m.books = make(map[string]storage.Row)
	m.seq = make(map[string]uint64)
	return nil
}

// Close does nothing for mock DB
func (m *MockDB) Close() error {
	return nil
}

// apply writes fields onto row, checking each value against the column type
func apply(row storage.Row, fields storage.Fields) (storage.Row, error) {
	strs := map[string]*string{
		"title": &row.Title, "author": &row.Author, "translator": &row.Translator,
		"publisher": &row.Publisher, "published_date": &row.PublishedDate, "cover": &row.Cover,
		"description": &row.Description, "isbn": &row.ISBN, "category": &row.Category,
		"series": &row.Series, "format": &row.Format, "country": &row.Country,
		"ownership": &row.Ownership, "reading_status": &row.ReadingStatus, "source": &row.Source,
		"reading_periods": &row.ReadingPeriods, "record_status": &row.RecordStatus,
		"first_sentence": &row.FirstSentence, "last_sentence": &row.LastSentence,
		"music_title": &row.MusicTitle, "music_artist": &row.MusicArtist, "weather": &row.Weather,
		"spine_color": &row.SpineColor, "font_color": &row.FontColor, "review": &row.Review,
	}
	ints := map[string]*int64{"page_count": &row.PageCount, "price": &row.Price}

	for col, v := range fields {
		var ok bool
		switch {
		case strs[col] != nil:
			var s string
			if s, ok = v.(string); ok {
				*strs[col] = s
			}
		case ints[col] != nil:
			var n int64
			if n, ok = v.(int64); ok {
				*ints[col] = n
			}
		case col == "resale":
			row.Resale, ok = v.(bool)
		case col == "rating":
			row.Rating, ok = v.(float64)
		}
		if !ok {
			return row, fmt.Errorf("column %s: unexpected value type %T", col, v)
		}
	}
	return row, nil
}
