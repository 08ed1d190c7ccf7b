package storage

import (
	"context"
	"errors"

	"bookshelf/internal/models"
)

var (
	// ErrNotFound is returned when an id addresses no row
	ErrNotFound = errors.New("book not found")
	// ErrUnknownColumn is returned when Fields names a column outside the books table
	ErrUnknownColumn = errors.New("unknown column")
)

// Remote defines the durable book store addressed by id
type Remote interface {
	// List returns every row ordered by creation time, newest first
	List(ctx context.Context) ([]Row, error)
	// Insert stores a new row and returns the id assigned by the backend.
	// The ID and CreatedAt of the argument are ignored.
	Insert(ctx context.Context, row Row) (string, error)
	// Update changes the given columns of one row
	Update(ctx context.Context, id string, fields Fields) error
	Delete(ctx context.Context, id string) error
	// DeleteAll removes every row
	DeleteAll(ctx context.Context) error

	// Lifecycle
	Close() error
}

// Cache defines the local copy of the whole collection.
// Load never fails: anything unreadable is treated as an empty collection.
type Cache interface {
	Load() models.Collection
	Save(c models.Collection) error
}
