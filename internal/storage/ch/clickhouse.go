package ch

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/google/uuid"

	"bookshelf/internal/storage"
)

// ClickHouseDB stores books in a ClickHouse MergeTree table
type ClickHouseDB struct {
	conn clickhouse.Conn
	now  func() time.Time
}

// NewClickHouseDB creates a new ClickHouse database connection. The server is dialed lazily,
// so an unreachable host only fails the first query or Ping.
func NewClickHouseDB(host string, port int, database, user, password string, useTLS bool) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(connOptions(host, port, database, user, password, useTLS))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	return &ClickHouseDB{conn: conn, now: time.Now}, nil
}

// Ping checks that the server answers
func (db *ClickHouseDB) Ping(ctx context.Context) error {
	if err := db.conn.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping ClickHouse: %w", err)
	}
	return nil
}

// OpenDB opens a database/sql handle on the same server, as goose migrations need one
func OpenDB(host string, port int, database, user, password string, useTLS bool) *sql.DB {
	return clickhouse.OpenDB(connOptions(host, port, database, user, password, useTLS))
}

func connOptions(host string, port int, database, user, password string, useTLS bool) *clickhouse.Options {
	options := &clickhouse.Options{
		Addr:     []string{fmt.Sprintf("%s:%d", host, port)},
		Protocol: clickhouse.Native,
		Auth: clickhouse.Auth{
			Database: database,
			Username: user,
			Password: password,
		},
		DialTimeout: 10 * time.Second,
	}

	// Configure TLS if enabled
	if useTLS {
		options.TLS = &tls.Config{
			InsecureSkipVerify: false,
		}
	}
	return options
}

var selectColumns = "id, " + strings.Join(storage.Columns, ", ") + ", created_at"

// List returns every book, newest first
func (db *ClickHouseDB) List(ctx context.Context) ([]storage.Row, error) {
	rows, err := db.conn.Query(ctx, `SELECT `+selectColumns+` FROM books ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	var books []storage.Row
	for rows.Next() {
		var r storage.Row
		err := rows.Scan(
			&r.ID, &r.Title, &r.Author, &r.Translator, &r.Publisher, &r.PublishedDate, &r.Cover,
			&r.Description, &r.ISBN, &r.Category, &r.Series, &r.PageCount, &r.Format, &r.Price,
			&r.Country, &r.Ownership, &r.ReadingStatus, &r.Source, &r.Resale, &r.ReadingPeriods,
			&r.RecordStatus, &r.Rating, &r.FirstSentence, &r.LastSentence, &r.MusicTitle,
			&r.MusicArtist, &r.Weather, &r.SpineColor, &r.FontColor, &r.Review, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}

// Insert stores a new book under a fresh uuid and returns the id
func (db *ClickHouseDB) Insert(ctx context.Context, row storage.Row) (string, error) {
	id := uuid.NewString()

	args := make([]any, 0, len(storage.Columns)+2)
	args = append(args, id)
	args = append(args, row.Values()...)
	args = append(args, db.now().UTC())

	query := fmt.Sprintf(`INSERT INTO books (%s) VALUES (%s)`,
		selectColumns, strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", "))

	if err := db.conn.Exec(ctx, query, args...); err != nil {
		return "", fmt.Errorf("failed to insert book: %w", err)
	}
	return id, nil
}

// Update rewrites the given columns of one book. The mutation is waited for on all replicas
// so a following List sees it.
func (db *ClickHouseDB) Update(ctx context.Context, id string, fields storage.Fields) error {
	if len(fields) == 0 {
		return nil
	}
	if err := fields.Validate(); err != nil {
		return err
	}
	if err := db.exists(ctx, id); err != nil {
		return err
	}

	cols := fields.SortedColumns()
	sets := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols)+1)
	for _, col := range cols {
		sets = append(sets, col+" = ?")
		args = append(args, fields[col])
	}
	args = append(args, id)

	query := `ALTER TABLE books UPDATE ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	if err := db.conn.Exec(syncMutations(ctx), query, args...); err != nil {
		return fmt.Errorf("failed to update book %s: %w", id, err)
	}
	return nil
}

// Delete removes one book
func (db *ClickHouseDB) Delete(ctx context.Context, id string) error {
	if err := db.exists(ctx, id); err != nil {
		return err
	}
	if err := db.conn.Exec(syncMutations(ctx), `DELETE FROM books WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete book %s: %w", id, err)
	}
	return nil
}

// DeleteAll removes every book
func (db *ClickHouseDB) DeleteAll(ctx context.Context) error {
	if err := db.conn.Exec(ctx, `TRUNCATE TABLE IF EXISTS books`); err != nil {
		return fmt.Errorf("failed to delete all books: %w", err)
	}
	return nil
}

func (db *ClickHouseDB) exists(ctx context.Context, id string) error {
	var count uint64
	if err := db.conn.QueryRow(ctx, `SELECT count() FROM books WHERE id = ?`, id).Scan(&count); err != nil {
		return fmt.Errorf("failed to look up book %s: %w", id, err)
	}
	if count == 0 {
		return fmt.Errorf("book %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func syncMutations(ctx context.Context) context.Context {
	return clickhouse.Context(ctx, clickhouse.WithSettings(clickhouse.Settings{
		"mutations_sync": 2,
	}))
}

// Close closes the database connection
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
