package pg

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"bookshelf/internal/storage"
)

const booksTableName = `books`

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresDB stores books in a PostgreSQL table
type PostgresDB struct {
	db  *pgxpool.Pool
	log *zap.Logger
}

// NewPostgresDB opens a connection pool for dsn. Connections are made on first use;
// only a malformed dsn fails here.
func NewPostgresDB(ctx context.Context, dsn string, log *zap.Logger) (*PostgresDB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	return &PostgresDB{db: pool, log: log.Named("pg")}, nil
}

// Ping checks that the server answers
func (r *PostgresDB) Ping(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}
	return nil
}

func listQuery() (string, []any, error) {
	cols := append([]string{"id::text AS id"}, storage.Columns...)
	cols = append(cols, "created_at")
	return qb.Select(cols...).
		From(booksTableName).
		OrderBy("created_at DESC", "id DESC").
		ToSql()
}

func insertQuery(row storage.Row) (string, []any, error) {
	return qb.Insert(booksTableName).
		Columns(storage.Columns...).
		Values(row.Values()...).
		Suffix("RETURNING id::text").
		ToSql()
}

func updateQuery(id string, fields storage.Fields) (string, []any, error) {
	q := qb.Update(booksTableName)
	for _, col := range fields.SortedColumns() {
		q = q.Set(col, fields[col])
	}
	return q.Where(sq.Eq{"id": id}).ToSql()
}

func deleteQuery(id string) (string, []any, error) {
	return qb.Delete(booksTableName).Where(sq.Eq{"id": id}).ToSql()
}

// List returns every book, newest first
func (r *PostgresDB) List(ctx context.Context) ([]storage.Row, error) {
	query, args, err := listQuery()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	books, err := pgx.CollectRows(rows, pgx.RowToStructByName[storage.Row])
	if err != nil {
		return nil, fmt.Errorf("pgx.CollectRows: %w", err)
	}
	return books, nil
}

// Insert stores a new book and returns the id generated by the database
func (r *PostgresDB) Insert(ctx context.Context, row storage.Row) (string, error) {
	query, args, err := insertQuery(row)
	if err != nil {
		return "", err
	}

	var id string
	if err := r.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		r.log.Error("Insert", zap.String("q", query), zap.Error(err))
		return "", fmt.Errorf("failed to insert book: %w", err)
	}
	return id, nil
}

// Update changes the given columns of one book
func (r *PostgresDB) Update(ctx context.Context, id string, fields storage.Fields) error {
	if len(fields) == 0 {
		return nil
	}
	if err := fields.Validate(); err != nil {
		return err
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("book %s: %w", id, storage.ErrNotFound)
	}

	query, args, err := updateQuery(id, fields)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		r.log.Error("Update", zap.String("q", query), zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to update book %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("book %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// Delete removes one book
func (r *PostgresDB) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("book %s: %w", id, storage.ErrNotFound)
	}

	query, args, err := deleteQuery(id)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete book %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("book %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// DeleteAll removes every book
func (r *PostgresDB) DeleteAll(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `TRUNCATE TABLE `+booksTableName); err != nil {
		return fmt.Errorf("failed to delete all books: %w", err)
	}
	return nil
}

// Close releases the pool
func (r *PostgresDB) Close() error {
	r.db.Close()
	return nil
}
