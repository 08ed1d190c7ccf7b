package collection

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"bookshelf/internal/models"
	"bookshelf/internal/storage"
)

var validate = validator.New()

// CreateOptions carries create-time flags that are not part of the item
type CreateOptions struct {
	// Finished marks the new item as read
	Finished bool
}

// change edits the in-memory collection after the backend accepted a mutation
type change func(c *models.Collection)

// mutate runs one mutation under the write lock. plan inspects the current collection,
// talks to the backend and returns the in-memory change, or nil for no change.
func (s *Store) mutate(plan func(cur models.Collection) (change, error)) error {
	if !s.Hydrated() {
		return ErrNotReady
	}

	s.writeMu.Lock()
	apply, err := plan(s.Collection())
	if err != nil || apply == nil {
		s.writeMu.Unlock()
		return err
	}

	s.mu.Lock()
	apply(&s.state)
	snapshot := s.state.Clone()
	s.mu.Unlock()
	s.metrics.observe(snapshot)

	err = s.w.persist(snapshot)
	s.writeMu.Unlock()

	if err != nil {
		s.log.Error("Failed to save local cache", zap.Error(err))
		err = fmt.Errorf("%w: %w", ErrCache, err)
	}
	s.notify(snapshot)
	return err
}

func (s *Store) remoteFailed(op, id string, err error) error {
	s.log.Error("Remote write failed",
		zap.String("op", op),
		zap.String("id", id),
		zap.Error(err),
	)
	s.metrics.remoteFailed(op)
	return fmt.Errorf("%w: %s: %w", ErrRemote, op, err)
}

// Create adds a new item to group g. The group decides the ownership. The reading status
// is finished for the passed-along group or when opts.Finished is set, otherwise the
// draft's status (unstarted when blank).
//
// In local-only mode an item whose isbn, or title and author, already exist in g is
// ignored: created is false and the error is nil.
func (s *Store) Create(ctx context.Context, g models.Group, draft models.Item, opts CreateOptions) (item models.Item, created bool, err error) {
	parsed, ok := models.ParseGroup(string(g))
	if !ok {
		return models.Item{}, false, fmt.Errorf("%w: unknown group %q", ErrInvalid, g)
	}
	g = parsed
	item = derive(g, draft, opts)
	if err := check(item); err != nil {
		return models.Item{}, false, err
	}

	err = s.mutate(func(cur models.Collection) (change, error) {
		if !s.w.admits(cur, g, item) {
			s.log.Debug("Ignoring duplicate item", zap.String("title", item.Title), zap.String("group", string(g)))
			return nil, nil
		}
		id, err := s.w.insert(ctx, cur, item)
		if err != nil {
			return nil, s.remoteFailed("insert", "", err)
		}
		item.ID = id
		created = true
		return func(c *models.Collection) { c.Prepend(item) }, nil
	})
	if err != nil && !created {
		return models.Item{}, false, err
	}
	if !created {
		return models.Item{}, false, nil
	}
	return item.Clone(), true, err
}

func derive(g models.Group, draft models.Item, opts CreateOptions) models.Item {
	item := draft.Clone()
	item.ID = ""
	item.Title = strings.TrimSpace(item.Title)
	item.Author = strings.TrimSpace(item.Author)
	item.Country = models.NormalizeCountry(item.Country)
	item.Ownership = g.Ownership()

	switch {
	case g == models.GroupPassedAlong, opts.Finished:
		item.ReadingStatus = models.ReadingFinished
	case item.ReadingStatus == "":
		item.ReadingStatus = models.ReadingUnstarted
	}
	return item
}

func check(item models.Item) error {
	if err := validate.Struct(item); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Update replaces the stored item with the same id. Changing the ownership moves the
// item to the matching group. Blank ownership and reading status keep their current values.
func (s *Store) Update(ctx context.Context, item models.Item) error {
	return s.mutate(func(cur models.Collection) (change, error) {
		prev, _, ok := cur.Find(item.ID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, item.ID)
		}

		next := item.Clone()
		next.Title = strings.TrimSpace(next.Title)
		next.Country = models.NormalizeCountry(next.Country)
		if next.Ownership == "" {
			next.Ownership = prev.Ownership
		}
		if next.ReadingStatus == "" {
			next.ReadingStatus = prev.ReadingStatus
		}
		if err := check(next); err != nil {
			return nil, err
		}

		if err := s.w.update(ctx, next.ID, storage.FieldsFromItem(next)); err != nil {
			return nil, s.remoteFailed("update", next.ID, err)
		}
		return func(c *models.Collection) { c.Replace(next) }, nil
	})
}

// Delete removes the item with the given id from whichever group holds it
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.mutate(func(cur models.Collection) (change, error) {
		if _, _, ok := cur.Find(id); !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if err := s.w.remove(ctx, id); err != nil {
			return nil, s.remoteFailed("delete", id, err)
		}
		return func(c *models.Collection) { c.Remove(id) }, nil
	})
}

// SetReadingStatus changes only the reading status of one item
func (s *Store) SetReadingStatus(ctx context.Context, id string, status models.ReadingStatus) error {
	if _, ok := models.ParseReadingStatus(string(status)); !ok {
		return fmt.Errorf("%w: reading status %q", ErrInvalid, status)
	}
	return s.setField(ctx, "set_reading_status", id, storage.Fields{"reading_status": string(status)},
		func(item *models.Item) { item.ReadingStatus = status })
}

// SetCountry changes only the country code of one item. The code is normalized first.
func (s *Store) SetCountry(ctx context.Context, id, code string) error {
	code = models.NormalizeCountry(code)
	return s.setField(ctx, "set_country", id, storage.Fields{"country": code},
		func(item *models.Item) { item.Country = code })
}

func (s *Store) setField(ctx context.Context, op, id string, fields storage.Fields, edit func(*models.Item)) error {
	return s.mutate(func(cur models.Collection) (change, error) {
		item, _, ok := cur.Find(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if err := s.w.update(ctx, id, fields); err != nil {
			return nil, s.remoteFailed(op, id, err)
		}
		edit(&item)
		return func(c *models.Collection) { c.Replace(item) }, nil
	})
}

// ResetAll empties every group. In remote mode the remote store is cleared first.
func (s *Store) ResetAll(ctx context.Context) error {
	return s.mutate(func(models.Collection) (change, error) {
		if err := s.w.reset(ctx); err != nil {
			return nil, s.remoteFailed("delete_all", "", err)
		}
		return func(c *models.Collection) { *c = models.NewCollection() }, nil
	})
}
