package cart

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/toxic-toad/aquaventure/internal/storage"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultStorageKey is the slot prefix carts are persisted under.
	DefaultStorageKey = "aquaVentureCart"

	DefaultIdleTTL         = 30 * time.Minute
	DefaultCleanupInterval = time.Minute
	DefaultHydrateTimeout  = 5 * time.Second
)

type SessionsConfig struct {
	StorageKey      string
	// IdleTTL is how long an untouched store stays in memory. Its items
	// survive eviction in storage; its last order does not.
	IdleTTL         time.Duration
	CleanupInterval time.Duration
	// HydrateTimeout bounds the first read of a session's stored cart.
	HydrateTimeout  time.Duration
}

type session struct {
	store    *Store
	lastSeen time.Time
}

// Sessions hands out one Store per shopper session and owns their
// lifetime. A store is hydrated once even when the first requests for a
// session arrive concurrently.
type Sessions struct {
	kv  storage.KV
	cfg SessionsConfig
	log zerolog.Logger
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
	sfg      singleflight.Group

	stopCleanup chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func NewSessions(kv storage.KV, cfg SessionsConfig, log zerolog.Logger) *Sessions {
	if cfg.StorageKey == "" {
		cfg.StorageKey = DefaultStorageKey
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	if cfg.HydrateTimeout <= 0 {
		cfg.HydrateTimeout = DefaultHydrateTimeout
	}

	s := &Sessions{
		kv:          kv,
		cfg:         cfg,
		log:         log,
		now:         time.Now,
		sessions:    make(map[string]*session),
		stopCleanup: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.cleanupLoop()

	return s
}

// Key returns the storage key for a session.
func (s *Sessions) Key(sessionID string) string {
	return s.cfg.StorageKey + ":" + sessionID
}

// Get returns the session's Store, hydrating it from storage on first use.
// Hydration runs detached from ctx's cancellation, bounded by
// HydrateTimeout, since concurrent callers share its result. A failed read
// is returned and nothing is cached, so the next call retries.
func (s *Sessions) Get(ctx context.Context, sessionID string) (*Store, error) {
	if st := s.lookup(sessionID); st != nil {
		return st, nil
	}

	v, err, _ := s.sfg.Do(sessionID, func() (interface{}, error) {
		if st := s.lookup(sessionID); st != nil {
			return st, nil
		}

		hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.HydrateTimeout)
		defer cancel()

		st, err := Open(hctx, s.kv, s.Key(sessionID), s.log)
		if err != nil {
			s.log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to load cart")
			return nil, err
		}

		s.mu.Lock()
		s.sessions[sessionID] = &session{store: st, lastSeen: s.now()}
		s.mu.Unlock()
		return st, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Store), nil
}

func (s *Sessions) lookup(sessionID string) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	sess.lastSeen = s.now()
	return sess.store
}

// Len reports how many stores are held in memory.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Sessions) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictIdle()
		case <-s.stopCleanup:
			return
		}
	}
}

// evictIdle drops stores untouched for longer than IdleTTL.
func (s *Sessions) evictIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.cfg.IdleTTL)
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			s.log.Debug().Str("session_id", id).Msg("evicted idle cart")
		}
	}
}

// Close stops the cleanup goroutine. Stores already handed out remain
// usable.
func (s *Sessions) Close() {
	s.stopOnce.Do(func() { close(s.stopCleanup) })
	s.wg.Wait()
}
