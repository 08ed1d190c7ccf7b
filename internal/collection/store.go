// Package collection owns the in-memory book collection and routes every change to the
// configured backend.
//
// A Store runs in one of two modes chosen at construction. With a remote store it writes
// remotely first and changes memory only on success. Without one it changes memory and then
// rewrites the whole local cache.
package collection

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"bookshelf/internal/models"
	"bookshelf/internal/storage"
)

var (
	// ErrRemote wraps every failed remote store call made by a mutation
	ErrRemote = errors.New("remote store failed")
	// ErrCache wraps a failed cache write in local-only mode
	ErrCache = errors.New("local cache write failed")
	// ErrNotFound is returned when an id addresses no item
	ErrNotFound = errors.New("item not found")
	// ErrInvalid is returned for items or values that fail validation
	ErrInvalid = errors.New("invalid item")
	// ErrNotReady is returned by mutations before hydration
	ErrNotReady = errors.New("collection is not hydrated yet")
	// ErrHydrationStarted is returned by a second call to Hydrate
	ErrHydrationStarted = errors.New("hydration already started")
)

const (
	DefaultFallbackTimeout = 2500 * time.Millisecond
	DefaultRaceTimeout     = 5 * time.Second
)

// Store is the single owner of the collection
type Store struct {
	cache   storage.Cache
	remote  storage.Remote
	w       writer
	log     *zap.Logger
	metrics *Metrics

	fallbackTimeout time.Duration
	raceTimeout     time.Duration

	// writeMu serializes mutations and hydration assignments; mu guards state
	writeMu sync.Mutex
	mu      sync.RWMutex
	state   models.Collection

	hydrating atomic.Bool
	hydrated  atomic.Bool
	ready     chan struct{}
	readyOnce sync.Once

	subMu   sync.Mutex
	subs    map[int]func(models.Collection)
	nextSub int
}

// Option configures a Store
type Option func(*Store)

// WithTimeouts sets the safety-net timeout and the remote race timeout
func WithTimeouts(fallback, race time.Duration) Option {
	return func(s *Store) {
		s.fallbackTimeout = fallback
		s.raceTimeout = race
	}
}

// WithMetrics records store activity on m
func WithMetrics(m *Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// New creates a store. A nil remote runs the store local-only.
func New(cache storage.Cache, remote storage.Remote, log *zap.Logger, opts ...Option) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{
		cache:           cache,
		remote:          remote,
		log:             log.Named("collection"),
		fallbackTimeout: DefaultFallbackTimeout,
		raceTimeout:     DefaultRaceTimeout,
		state:           models.NewCollection(),
		ready:           make(chan struct{}),
		subs:            make(map[int]func(models.Collection)),
	}
	for _, opt := range opts {
		opt(s)
	}

	if remote != nil {
		s.w = remoteWriter{remote: remote}
	} else {
		s.w = localWriter{cache: cache}
	}
	s.log.Info("Collection store created", zap.String("mode", string(s.w.mode())))
	return s
}

// Mode reports which backend mutations go through
func (s *Store) Mode() Mode {
	return s.w.mode()
}

// Hydrated reports whether startup hydration has completed
func (s *Store) Hydrated() bool {
	return s.hydrated.Load()
}

// Ready is closed once the store is hydrated
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Collection returns a copy of the current collection
func (s *Store) Collection() models.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Find returns a copy of the item with the given id
func (s *Store) Find(id string) (models.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, _, ok := s.state.Find(id)
	return item.Clone(), ok
}

// Subscribe registers fn to receive a copy of the collection after hydration and after
// every successful mutation. The returned function removes the subscription.
func (s *Store) Subscribe(fn func(models.Collection)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) notify(c models.Collection) {
	s.subMu.Lock()
	fns := make([]func(models.Collection), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(c.Clone())
	}
}
