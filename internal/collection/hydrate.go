package collection

import (
	"context"
	"time"

	"go.uber.org/zap"

	"bookshelf/internal/models"
	"bookshelf/internal/storage"
)

// Source names where a hydration outcome came from
type Source string

const (
	// SourceRemote is the remote store's list
	SourceRemote Source = "remote"
	// SourceFallback is the local cache, taken because the remote was too slow or failed
	SourceFallback Source = "fallback"
	// SourceLocal is the local cache in local-only mode
	SourceLocal Source = "local"
	// SourceTimer is the safety net that fires when hydration takes too long
	SourceTimer Source = "timer"
)

// Outcome is the tagged result of a hydration race
type Outcome struct {
	Source     Source
	Collection models.Collection
	Cancelled  bool
}

// firstOf returns whichever outcome arrives first. The other side keeps running and
// its result is dropped.
func firstOf(ctx context.Context, a, b <-chan Outcome) Outcome {
	select {
	case o := <-a:
		return o
	case o := <-b:
		return o
	case <-ctx.Done():
		return Outcome{Cancelled: true}
	}
}

// Hydrate populates the store once at startup. In remote mode the remote list races the
// race timeout, and any remote error falls back to the cache. Independently, the fallback
// timeout marks the store hydrated from the cache if nothing else has by then.
//
// Hydrate blocks until the race is decided and must be called only once.
func (s *Store) Hydrate(ctx context.Context) (Outcome, error) {
	if !s.hydrating.CompareAndSwap(false, true) {
		return Outcome{}, ErrHydrationStarted
	}

	safetyNet := time.AfterFunc(s.fallbackTimeout, s.fallback)
	defer safetyNet.Stop()

	var out Outcome
	if s.remote == nil {
		out = Outcome{Source: SourceLocal, Collection: s.cache.Load()}
	} else {
		stop := make(chan struct{})
		out = firstOf(ctx, s.listRemote(ctx), s.delayedCache(stop))
		close(stop)
	}
	if out.Cancelled {
		return out, ctx.Err()
	}

	s.writeMu.Lock()
	s.assign(out.Collection)
	s.markHydrated(out.Source)
	s.writeMu.Unlock()
	safetyNet.Stop()

	s.log.Info("Collection hydrated",
		zap.String("source", string(out.Source)),
		zap.Int("items", out.Collection.Len()),
	)
	s.notify(s.Collection())
	return out, nil
}

// listRemote starts the remote list. A failed list resolves to the cache.
func (s *Store) listRemote(ctx context.Context) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() {
		rows, err := s.remote.List(ctx)
		if err != nil {
			s.log.Error("Remote list failed, using local cache", zap.Error(err))
			s.metrics.remoteFailed("list")
			ch <- Outcome{Source: SourceFallback, Collection: s.cache.Load()}
			return
		}
		ch <- Outcome{Source: SourceRemote, Collection: storage.CollectionFromRows(rows)}
	}()
	return ch
}

// delayedCache resolves to the cache after the race timeout unless stop closes first
func (s *Store) delayedCache(stop <-chan struct{}) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() {
		timer := time.NewTimer(s.raceTimeout)
		defer timer.Stop()
		select {
		case <-timer.C:
			s.log.Warn("Remote list is slow, using local cache", zap.Duration("after", s.raceTimeout))
			ch <- Outcome{Source: SourceFallback, Collection: s.cache.Load()}
		case <-stop:
		}
	}()
	return ch
}

// fallback is the safety net: it marks the store hydrated and fills it from the cache
// only when nothing has been loaded yet
func (s *Store) fallback() {
	s.writeMu.Lock()
	if s.Hydrated() {
		s.writeMu.Unlock()
		return
	}
	s.mu.Lock()
	empty := s.state.Empty()
	s.mu.Unlock()
	if empty {
		s.assign(s.cache.Load())
	}
	s.markHydrated(SourceTimer)
	s.writeMu.Unlock()

	s.log.Warn("Hydration is slow, marked hydrated from local cache", zap.Duration("after", s.fallbackTimeout))
	s.notify(s.Collection())
}

func (s *Store) assign(c models.Collection) {
	c = c.Clone()
	s.mu.Lock()
	s.state = c
	s.mu.Unlock()
	s.metrics.observe(c)
}

func (s *Store) markHydrated(source Source) {
	s.readyOnce.Do(func() {
		s.hydrated.Store(true)
		close(s.ready)
		s.metrics.hydratedFrom(string(source))
	})
}
