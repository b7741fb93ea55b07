package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/fanout"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/registry"
)

const tracerName = "github.com/rocketscienceinc/tictactoe-sessions/internal/usecase"

type sessionRegistry interface {
	Create(playerX string) *registry.Session
	Get(id string) (*registry.Session, error)
}

// GameManager - applies mutations under the session lock and hands the resulting
// snapshot to the session's dispatcher before the lock is released.
type GameManager struct {
	logger   *slog.Logger
	registry sessionRegistry
	tracer   trace.Tracer
}

func NewGameManager(logger *slog.Logger, registry sessionRegistry) *GameManager {
	return &GameManager{
		logger:   logger.With("component", "game_manager"),
		registry: registry,
		tracer:   otel.Tracer(tracerName),
	}
}

func (that *GameManager) CreateGame(ctx context.Context) (*entity.PlayerSnapshot, error) {
	_, span := that.tracer.Start(ctx, "GameManager.CreateGame")
	defer span.End()

	playerX := uuid.NewString()
	session := that.registry.Create(playerX)
	span.SetAttributes(attribute.String("game.id", session.ID()))

	var snapshot entity.Snapshot
	err := session.Do(func(game *entity.Game, _ *fanout.Set) error {
		snapshot = game.Snapshot()
		// nobody can be subscribed yet; only the sink sees the new game
		that.publish(session, snapshot, nil)
		return nil
	})
	if err != nil {
		return nil, that.fail(span, fmt.Errorf("failed to read new game: %w", err))
	}

	that.logger.Info("game created", "game_id", session.ID())

	return &entity.PlayerSnapshot{Snapshot: snapshot, PlayerID: playerX}, nil
}

func (that *GameManager) JoinGame(ctx context.Context, gameID string) (*entity.PlayerSnapshot, error) {
	_, span := that.start(ctx, "GameManager.JoinGame", gameID)
	defer span.End()

	session, err := that.registry.Get(gameID)
	if err != nil {
		return nil, that.fail(span, fmt.Errorf("failed get game: %w", err))
	}

	playerO := uuid.NewString()

	var snapshot entity.Snapshot
	err = session.Do(func(game *entity.Game, subscribers *fanout.Set) error {
		if err := game.Join(playerO); err != nil {
			return err
		}

		snapshot = game.Snapshot()
		that.publish(session, snapshot, subscribers.Members())

		return nil
	})
	if err != nil {
		return nil, that.fail(span, fmt.Errorf("failed join game: %w", err))
	}

	that.logger.Info("player joined", "game_id", gameID)

	return &entity.PlayerSnapshot{Snapshot: snapshot, PlayerID: playerO}, nil
}

func (that *GameManager) MakeMove(ctx context.Context, gameID, playerID string, pos entity.Position) (*entity.Snapshot, error) {
	_, span := that.start(ctx, "GameManager.MakeMove", gameID)
	defer span.End()

	span.SetAttributes(attribute.Int("move.row", pos.Row), attribute.Int("move.col", pos.Col))

	session, err := that.registry.Get(gameID)
	if err != nil {
		return nil, that.fail(span, fmt.Errorf("failed get game: %w", err))
	}

	var snapshot entity.Snapshot
	err = session.Do(func(game *entity.Game, subscribers *fanout.Set) error {
		if err := game.MakeMove(playerID, pos); err != nil {
			return err
		}

		snapshot = game.Snapshot()
		that.publish(session, snapshot, subscribers.Members())

		return nil
	})
	if err != nil {
		return nil, that.fail(span, fmt.Errorf("failed make move: %w", err))
	}

	if snapshot.Status == entity.StatusFinished {
		that.logger.Info("game finished", "game_id", gameID, "winner", snapshot.Winner)
	}

	return &snapshot, nil
}

func (that *GameManager) GetState(ctx context.Context, gameID string) (*entity.Snapshot, error) {
	_, span := that.start(ctx, "GameManager.GetState", gameID)
	defer span.End()

	session, err := that.registry.Get(gameID)
	if err != nil {
		return nil, that.fail(span, fmt.Errorf("failed get game: %w", err))
	}

	var snapshot entity.Snapshot
	err = session.Do(func(game *entity.Game, _ *fanout.Set) error {
		snapshot = game.Snapshot()
		return nil
	})
	if err != nil {
		return nil, that.fail(span, fmt.Errorf("failed read game: %w", err))
	}

	return &snapshot, nil
}

// Subscribe - attaches sub and queues the current snapshot as its first delivery.
// Every mutation accepted afterwards reaches sub after that snapshot.
func (that *GameManager) Subscribe(ctx context.Context, gameID string, sub fanout.Subscriber) (*entity.Snapshot, error) {
	_, span := that.start(ctx, "GameManager.Subscribe", gameID)
	defer span.End()

	session, err := that.registry.Get(gameID)
	if err != nil {
		return nil, that.fail(span, fmt.Errorf("failed get game: %w", err))
	}

	var snapshot entity.Snapshot
	err = session.Do(func(game *entity.Game, subscribers *fanout.Set) error {
		snapshot = game.Snapshot()

		if !subscribers.Add(sub) {
			return nil
		}

		payload, err := json.Marshal(snapshot)
		if err != nil {
			subscribers.Remove(sub)
			return fmt.Errorf("could not marshal snapshot: %w", err)
		}

		session.Publish(fanout.Delivery{Payload: payload, Recipients: []fanout.Subscriber{sub}})

		return nil
	})
	if err != nil {
		return nil, that.fail(span, fmt.Errorf("failed subscribe: %w", err))
	}

	that.logger.Debug("subscriber attached", "game_id", gameID, "subscriber", sub.ID())

	return &snapshot, nil
}

// Unsubscribe - never fails; unknown games and absent handles are ignored.
func (that *GameManager) Unsubscribe(ctx context.Context, gameID string, sub fanout.Subscriber) {
	_, span := that.start(ctx, "GameManager.Unsubscribe", gameID)
	defer span.End()

	session, err := that.registry.Get(gameID)
	if err != nil {
		return
	}

	_ = session.Do(func(_ *entity.Game, subscribers *fanout.Set) error {
		if subscribers.Remove(sub) {
			that.logger.Debug("subscriber detached", "game_id", gameID, "subscriber", sub.ID())
		}
		return nil
	})
}

// publish - serializes the snapshot once and queues it for recipients.
// Called with the session lock held.
func (that *GameManager) publish(session *registry.Session, snapshot entity.Snapshot, recipients []fanout.Subscriber) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		that.logger.Error("could not marshal snapshot", "game_id", snapshot.GameID, "error", err)
		return
	}

	session.Publish(fanout.Delivery{Payload: payload, Recipients: recipients, Broadcast: true})
}

func (that *GameManager) start(ctx context.Context, name, gameID string) (context.Context, trace.Span) {
	return that.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("game.id", gameID)))
}

func (that *GameManager) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	return err
}
