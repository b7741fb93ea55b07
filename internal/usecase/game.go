package usecase

import (
	"context"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/fanout"
)

// GameUseCase - every operation the transport layer may call.
type GameUseCase interface {
	CreateGame(ctx context.Context) (*entity.PlayerSnapshot, error)
	JoinGame(ctx context.Context, gameID string) (*entity.PlayerSnapshot, error)
	MakeMove(ctx context.Context, gameID, playerID string, pos entity.Position) (*entity.Snapshot, error)
	GetState(ctx context.Context, gameID string) (*entity.Snapshot, error)

	Subscribe(ctx context.Context, gameID string, sub fanout.Subscriber) (*entity.Snapshot, error)
	Unsubscribe(ctx context.Context, gameID string, sub fanout.Subscriber)
}

var _ GameUseCase = (*GameManager)(nil)
