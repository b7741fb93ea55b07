package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/fanout"
)

// Session - a live game with its subscribers. All access to the game and the
// subscriber set goes through Do.
type Session struct {
	id string

	mu          sync.Mutex
	game        *entity.Game
	subscribers *fanout.Set
	dispatcher  *fanout.Dispatcher
	lastActive  time.Time
	evicted     bool

	now func() time.Time
}

func (that *Session) ID() string {
	return that.id
}

// Do - runs fn while holding the session's lock. Fails with ErrNotFound once the
// session has been evicted.
func (that *Session) Do(fn func(game *entity.Game, subscribers *fanout.Set) error) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.evicted {
		return fmt.Errorf("%w: %s", apperror.ErrNotFound, that.id)
	}

	that.lastActive = that.now()

	return fn(that.game, that.subscribers)
}

// Publish - enqueues a delivery on the session's ordered dispatcher.
// Must be called from inside Do so that queue order follows mutation order.
func (that *Session) Publish(delivery fanout.Delivery) {
	that.dispatcher.Enqueue(delivery)
}

// Dispatcher - exposed for callers that need to wait for pending deliveries.
func (that *Session) Dispatcher() *fanout.Dispatcher {
	return that.dispatcher
}

func (that *Session) removeFailed(failed []fanout.Subscriber) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for _, sub := range failed {
		that.subscribers.Remove(sub)
	}
}

// evictIfIdle - marks the session evicted when nobody is subscribed and it has
// been idle for at least ttl.
func (that *Session) evictIfIdle(now time.Time, ttl time.Duration) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.evicted {
		return true
	}

	if that.subscribers.Len() > 0 || now.Sub(that.lastActive) < ttl {
		return false
	}

	that.evicted = true

	return true
}
