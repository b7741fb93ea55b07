package registry

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/fanout"
)

type nopSubscriber struct{ id string }

func (that nopSubscriber) ID() string { return that.id }

func (that nopSubscriber) Send(context.Context, []byte) error { return nil }

type blockingSink struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (that *blockingSink) Publish(context.Context, string, []byte) error {
	that.once.Do(func() { close(that.entered) })
	<-that.release

	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (that *fakeClock) Now() time.Time {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.now
}

func (that *fakeClock) Advance(d time.Duration) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.now = that.now.Add(d)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestRegistry_CreateAndGet(t *testing.T) {
	t.Run("Created session is immediately reachable", func(t *testing.T) {
		// Given: an empty registry
		reg := New(testLogger())

		// When: a session is created
		session := reg.Create("player-x")

		// Then: Get finds it with a waiting game
		found, err := reg.Get(session.ID())
		require.NoError(t, err)
		assert.Same(t, session, found)
		assert.Equal(t, 1, reg.Len())

		err = found.Do(func(game *entity.Game, _ *fanout.Set) error {
			assert.Equal(t, session.ID(), game.ID)
			assert.Equal(t, "player-x", game.PlayerX)
			assert.True(t, game.IsWaiting())
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("Unknown id is not found", func(t *testing.T) {
		reg := New(testLogger())

		_, err := reg.Get("not-a-uuid")

		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("Concurrent creates produce distinct ids", func(t *testing.T) {
		// Given: a registry
		reg := New(testLogger())

		// When: many goroutines create sessions at once
		const total = 100
		ids := make(chan string, total)
		var wg sync.WaitGroup
		for range total {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ids <- reg.Create("x").ID()
			}()
		}
		wg.Wait()
		close(ids)

		// Then: every id is unique and registered
		seen := make(map[string]struct{}, total)
		for id := range ids {
			seen[id] = struct{}{}
		}
		assert.Len(t, seen, total)
		assert.Equal(t, total, reg.Len())
	})
}

func TestRegistry_Delete(t *testing.T) {
	// Given: a session held by a caller
	reg := New(testLogger())
	session := reg.Create("player-x")

	// When: it is deleted
	reg.Delete(session.ID())

	// Then: both lookups and existing holders see ErrNotFound
	_, err := reg.Get(session.ID())
	require.ErrorIs(t, err, apperror.ErrNotFound)

	err = session.Do(func(*entity.Game, *fanout.Set) error { return nil })
	require.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Equal(t, 0, reg.Len())

	// And: deleting again is a no-op
	reg.Delete(session.ID())
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_EvictIdle(t *testing.T) {
	t.Run("Evicts idle sessions without subscribers", func(t *testing.T) {
		// Given: two sessions, one of them recently active
		clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
		reg := New(testLogger(), WithClock(clock.Now))
		idle := reg.Create("a")
		clock.Advance(20 * time.Minute)
		active := reg.Create("b")

		// When: idle sessions older than 10 minutes are evicted
		evicted := reg.EvictIdle(context.Background(), 10*time.Minute)

		// Then: only the stale one is gone
		assert.Equal(t, []string{idle.ID()}, evicted)
		_, err := reg.Get(idle.ID())
		require.ErrorIs(t, err, apperror.ErrNotFound)
		_, err = reg.Get(active.ID())
		require.NoError(t, err)
	})

	t.Run("Keeps idle sessions that have subscribers", func(t *testing.T) {
		// Given: a stale session with a subscriber
		clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
		reg := New(testLogger(), WithClock(clock.Now))
		session := reg.Create("a")
		require.NoError(t, session.Do(func(_ *entity.Game, subs *fanout.Set) error {
			subs.Add(nopSubscriber{id: "watcher"})
			return nil
		}))
		clock.Advance(time.Hour)

		// When: eviction runs
		evicted := reg.EvictIdle(context.Background(), 10*time.Minute)

		// Then: the session survives
		assert.Empty(t, evicted)
		assert.Equal(t, 1, reg.Len())
	})

	t.Run("Returns only after pending broadcasts reached the sink", func(t *testing.T) {
		// Given: a session whose sink is stuck on a broadcast
		clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
		sink := &blockingSink{entered: make(chan struct{}), release: make(chan struct{})}
		reg := New(testLogger(), WithClock(clock.Now), WithDispatcherOptions(fanout.WithSink(sink)))
		session := reg.Create("a")
		require.NoError(t, session.Do(func(*entity.Game, *fanout.Set) error {
			session.Publish(fanout.Delivery{Payload: []byte("snapshot"), Broadcast: true})
			return nil
		}))
		<-sink.entered
		clock.Advance(time.Hour)

		// When: eviction runs
		done := make(chan []string, 1)
		go func() { done <- reg.EvictIdle(context.Background(), 10*time.Minute) }()

		// Then: it waits for the sink
		select {
		case <-done:
			t.Fatal("eviction returned before the pending broadcast was published")
		case <-time.After(50 * time.Millisecond):
		}

		// And: returns the id once the broadcast has gone through
		close(sink.release)
		select {
		case evicted := <-done:
			assert.Equal(t, []string{session.ID()}, evicted)
		case <-time.After(time.Second):
			t.Fatal("eviction did not return")
		}
	})

	t.Run("Gives up waiting when the context is done", func(t *testing.T) {
		// Given: a stale session whose sink never returns
		clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
		sink := &blockingSink{entered: make(chan struct{}), release: make(chan struct{})}
		defer close(sink.release)
		reg := New(testLogger(), WithClock(clock.Now), WithDispatcherOptions(fanout.WithSink(sink)))
		session := reg.Create("a")
		require.NoError(t, session.Do(func(*entity.Game, *fanout.Set) error {
			session.Publish(fanout.Delivery{Payload: []byte("snapshot"), Broadcast: true})
			return nil
		}))
		<-sink.entered
		clock.Advance(time.Hour)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		// When: eviction runs with a short deadline
		evicted := reg.EvictIdle(ctx, 10*time.Minute)

		// Then: the session is still evicted
		assert.Equal(t, []string{session.ID()}, evicted)
		assert.Equal(t, 0, reg.Len())
	})
}

func TestSession_Isolation(t *testing.T) {
	// Given: two sessions
	reg := New(testLogger())
	first := reg.Create("a")
	second := reg.Create("b")

	// When: the first session's lock is held
	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = first.Do(func(*entity.Game, *fanout.Set) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered
	defer close(release)

	// Then: the second session is still usable
	done := make(chan error, 1)
	go func() {
		done <- second.Do(func(*entity.Game, *fanout.Set) error { return nil })
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("second session blocked by the first")
	}
}
