// Package registry maps game ids to live sessions.
//
// Lookups and inserts of different ids never contend: the index is a sync.Map and
// each Session carries its own lock.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/fanout"
)

type Registry struct {
	logger *slog.Logger

	sessions sync.Map
	count    atomic.Int64

	dispatcherOpts []fanout.Option
	now            func() time.Time
}

type Option func(*Registry)

// WithDispatcherOptions - applied to every session's dispatcher.
func WithDispatcherOptions(opts ...fanout.Option) Option {
	return func(that *Registry) {
		that.dispatcherOpts = append(that.dispatcherOpts, opts...)
	}
}

// WithClock - replaces time.Now, used by tests of idle eviction.
func WithClock(now func() time.Time) Option {
	return func(that *Registry) {
		that.now = now
	}
}

func New(logger *slog.Logger, opts ...Option) *Registry {
	registry := &Registry{
		logger: logger.With("component", "registry"),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(registry)
	}

	return registry
}

// Create - registers a new waiting game owned by playerX. The session is reachable
// by Get before Create returns.
func (that *Registry) Create(playerX string) *Session {
	for {
		id := uuid.NewString()

		session := &Session{
			id:          id,
			game:        entity.NewGame(id, playerX),
			subscribers: fanout.NewSet(),
			lastActive:  that.now(),
			now:         that.now,
		}

		opts := append([]fanout.Option{fanout.WithFailureHandler(session.removeFailed)}, that.dispatcherOpts...)
		session.dispatcher = fanout.NewDispatcher(that.logger, id, opts...)

		if _, loaded := that.sessions.LoadOrStore(id, session); loaded {
			continue
		}

		that.count.Add(1)
		that.logger.Debug("session created", "game_id", id)

		return session
	}
}

func (that *Registry) Get(id string) (*Session, error) {
	value, ok := that.sessions.Load(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperror.ErrNotFound, id)
	}

	return value.(*Session), nil //nolint:forcetypeassert // only *Session is stored
}

// Delete - evicts the session unconditionally. Holders of the session see ErrNotFound.
func (that *Registry) Delete(id string) {
	value, ok := that.sessions.LoadAndDelete(id)
	if !ok {
		return
	}

	session := value.(*Session) //nolint:forcetypeassert // only *Session is stored
	session.mu.Lock()
	session.evicted = true
	session.mu.Unlock()

	that.count.Add(-1)
}

// EvictIdle - removes every session without subscribers that has been idle for ttl.
// Returns the evicted ids once their pending deliveries have drained, so nothing is
// published for them afterwards.
func (that *Registry) EvictIdle(ctx context.Context, ttl time.Duration) []string {
	now := that.now()

	var evicted []*Session

	that.sessions.Range(func(key, value any) bool {
		session := value.(*Session) //nolint:forcetypeassert // only *Session is stored
		if !session.evictIfIdle(now, ttl) {
			return true
		}

		if that.sessions.CompareAndDelete(key, value) {
			that.count.Add(-1)
			evicted = append(evicted, session)
		}

		return true
	})

	ids := make([]string, 0, len(evicted))

	for _, session := range evicted {
		if err := session.dispatcher.Wait(ctx); err != nil {
			that.logger.Warn("evicted session still has pending deliveries", "game_id", session.id, "error", err)
		}

		ids = append(ids, session.id)
	}

	return ids
}

func (that *Registry) Range(fn func(session *Session) bool) {
	that.sessions.Range(func(_, value any) bool {
		return fn(value.(*Session)) //nolint:forcetypeassert // only *Session is stored
	})
}

func (that *Registry) Len() int {
	return int(that.count.Load())
}
