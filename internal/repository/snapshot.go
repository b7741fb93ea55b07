package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
)

var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotRepository - write-through mirror of live games for out-of-process readers.
// Games are never loaded back from it.
type SnapshotRepository interface {
	Publish(ctx context.Context, gameID string, payload []byte) error
	GetByID(ctx context.Context, id string) (*entity.Snapshot, error)
	DeleteByID(ctx context.Context, id string) error
}

type dbSnapshot struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotRepository - ttl of zero keeps keys until they are deleted.
func NewSnapshotRepository(client *redis.Client, ttl time.Duration) SnapshotRepository {
	return &dbSnapshot{
		client: client,
		ttl:    ttl,
	}
}

func SnapshotKey(gameID string) string {
	return "game:" + gameID
}

// EventsChannel - pub/sub channel carrying every broadcast of a game.
func EventsChannel(gameID string) string {
	return SnapshotKey(gameID) + ":events"
}

// Publish - stores the latest snapshot and announces it in one round trip.
func (that *dbSnapshot) Publish(ctx context.Context, gameID string, payload []byte) error {
	pipe := that.client.TxPipeline()
	pipe.Set(ctx, SnapshotKey(gameID), payload, that.ttl)
	pipe.Publish(ctx, EventsChannel(gameID), payload)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish snapshot: %w", err)
	}

	return nil
}

func (that *dbSnapshot) GetByID(ctx context.Context, id string) (*entity.Snapshot, error) {
	response, err := that.client.Get(ctx, SnapshotKey(id)).Bytes()

	if errors.Is(err, redis.Nil) {
		return nil, ErrSnapshotNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot by id: %w", err)
	}

	var snapshot entity.Snapshot
	if err = json.Unmarshal(response, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return &snapshot, nil
}

// DeleteByID - deleting a missing key is not an error.
func (that *dbSnapshot) DeleteByID(ctx context.Context, id string) error {
	if err := that.client.Del(ctx, SnapshotKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot by id: %w", err)
	}

	return nil
}
