package collection

import (
	"context"
	"strings"

	"bookshelf/internal/models"
	"bookshelf/internal/storage"
)

// Mode is the backend the store writes through. It is fixed when the store is built.
type Mode string

const (
	ModeRemote    Mode = "remote"
	ModeLocalOnly Mode = "local-only"
)

// writer is the mode-specific half of every mutation
type writer interface {
	mode() Mode
	// admits reports whether item may be created in g
	admits(cur models.Collection, g models.Group, item models.Item) bool
	// insert stores a new item and returns its id
	insert(ctx context.Context, cur models.Collection, item models.Item) (string, error)
	update(ctx context.Context, id string, fields storage.Fields) error
	remove(ctx context.Context, id string) error
	reset(ctx context.Context) error
	// persist runs after every in-memory change
	persist(c models.Collection) error
}

// remoteWriter sends every mutation to the remote store first. The local cache is not
// written in this mode, so it may fall behind the remote store.
type remoteWriter struct {
	remote storage.Remote
}

func (w remoteWriter) mode() Mode { return ModeRemote }

func (w remoteWriter) admits(models.Collection, models.Group, models.Item) bool { return true }

func (w remoteWriter) insert(ctx context.Context, _ models.Collection, item models.Item) (string, error) {
	return w.remote.Insert(ctx, storage.RowFromItem(item))
}

func (w remoteWriter) update(ctx context.Context, id string, fields storage.Fields) error {
	return w.remote.Update(ctx, id, fields)
}

func (w remoteWriter) remove(ctx context.Context, id string) error {
	return w.remote.Delete(ctx, id)
}

func (w remoteWriter) reset(ctx context.Context) error {
	return w.remote.DeleteAll(ctx)
}

func (w remoteWriter) persist(models.Collection) error { return nil }

// localWriter keeps the cache as the only backend and rewrites it after every change
type localWriter struct {
	cache storage.Cache
}

func (w localWriter) mode() Mode { return ModeLocalOnly }

// admits rejects an item whose isbn, or title and author, already exist in g
func (w localWriter) admits(cur models.Collection, g models.Group, item models.Item) bool {
	for _, existing := range cur.Group(g) {
		if item.ISBN != "" && existing.ISBN == item.ISBN {
			return false
		}
		if sameText(existing.Title, item.Title) && sameText(existing.Author, item.Author) {
			return false
		}
	}
	return true
}

// insert derives the id from the isbn, or a timestamp when the isbn is missing or taken
func (w localWriter) insert(_ context.Context, cur models.Collection, item models.Item) (string, error) {
	if item.ISBN != "" {
		if _, _, taken := cur.Find(item.ISBN); !taken {
			return item.ISBN, nil
		}
	}
	return models.NewLocalID(), nil
}

func (w localWriter) update(context.Context, string, storage.Fields) error { return nil }

func (w localWriter) remove(context.Context, string) error { return nil }

func (w localWriter) reset(context.Context) error { return nil }

func (w localWriter) persist(c models.Collection) error {
	return w.cache.Save(c)
}

func sameText(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
