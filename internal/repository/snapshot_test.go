package repository

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
	"github.com/rocketscienceinc/tictactoe-sessions/testing/suite"
)

func startedSnapshot(t *testing.T) (*entity.Snapshot, []byte) {
	t.Helper()

	game := entity.NewGame("123", "player-x")
	require.NoError(t, game.Join("player-o"))
	require.NoError(t, game.MakeMove("player-x", entity.Position{Row: 1, Col: 1}))

	snapshot := game.Snapshot()
	payload, err := json.Marshal(snapshot)
	require.NoError(t, err)

	return &snapshot, payload
}

func TestSnapshotRepository_Publish(t *testing.T) {
	t.Run("Publish_StoresAndAnnounces", func(t *testing.T) {
		ctx, st := suite.New(t)

		snapshotRepo := NewSnapshotRepository(st.Storage, time.Minute)

		// Given: a follower of the game's events channel and a snapshot
		pubsub := st.Storage.Subscribe(ctx, EventsChannel("123"))
		defer pubsub.Close()
		_, err := pubsub.Receive(ctx)
		require.NoError(t, err)

		snapshot, payload := startedSnapshot(t)

		// When: Publish is called
		err = snapshotRepo.Publish(ctx, "123", payload)

		// Then: the follower receives the payload and the key holds it with a ttl
		require.NoError(t, err)

		select {
		case msg := <-pubsub.Channel():
			assert.JSONEq(t, string(payload), msg.Payload)
		case <-time.After(5 * time.Second):
			t.Fatal("no event published")
		}

		stored, err := snapshotRepo.GetByID(ctx, "123")
		require.NoError(t, err)
		assert.Equal(t, snapshot, stored)

		ttl, err := st.Storage.TTL(ctx, SnapshotKey("123")).Result()
		require.NoError(t, err)
		assert.Positive(t, ttl)
	})
}

func TestSnapshotRepository_GetByID(t *testing.T) {
	t.Run("GetByID_NotFound", func(t *testing.T) {
		ctx, st := suite.New(t)

		snapshotRepo := NewSnapshotRepository(st.Storage, 0)

		// When: GetByID is called with non-existent ID
		stored, err := snapshotRepo.GetByID(ctx, "9999999")

		// Then: an ErrSnapshotNotFound error should be returned
		require.Error(t, err)
		assert.Equal(t, ErrSnapshotNotFound, err)
		assert.Nil(t, stored)
	})
}

func TestSnapshotRepository_DeleteByID(t *testing.T) {
	t.Run("DeleteByID_Success", func(t *testing.T) {
		ctx, st := suite.New(t)

		snapshotRepo := NewSnapshotRepository(st.Storage, 0)

		// Given: a stored snapshot
		_, payload := startedSnapshot(t)
		require.NoError(t, snapshotRepo.Publish(ctx, "123", payload))

		// When: DeleteByID is called with existing ID
		err := snapshotRepo.DeleteByID(ctx, "123")

		// Then: no error should be returned and the snapshot is gone
		require.NoError(t, err)

		_, err = snapshotRepo.GetByID(ctx, "123")
		assert.Equal(t, ErrSnapshotNotFound, err)
	})

	t.Run("DeleteByID_Missing", func(t *testing.T) {
		ctx, st := suite.New(t)

		snapshotRepo := NewSnapshotRepository(st.Storage, 0)

		// When: DeleteByID is called with non-existent ID
		err := snapshotRepo.DeleteByID(ctx, "9999999")

		// Then: it is a no-op
		require.NoError(t, err)
	})
}
