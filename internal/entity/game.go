package entity

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/apperror"
)

type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
)

// Game - authoritative state of one session. Callers serialize access.
type Game struct {
	ID          string
	PlayerX     string
	PlayerO     string
	Board       Board
	CurrentTurn Mark
	Status      Status
	Winner      Mark
}

func NewGame(id, playerX string) *Game {
	return &Game{
		ID:          id,
		PlayerX:     playerX,
		CurrentTurn: MarkX,
		Status:      StatusWaiting,
	}
}

func (that *Game) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *Game) IsInProgress() bool {
	return that.Status == StatusInProgress
}

func (that *Game) IsFinished() bool {
	return that.Status == StatusFinished
}

func (that *Game) PlayerCount() int {
	if that.PlayerO == "" {
		return 1
	}

	return 2 //nolint:mnd // a game has two seats
}

// Join - seats playerO and starts the game. The turn stays with X.
func (that *Game) Join(playerO string) error {
	if !that.IsWaiting() {
		return fmt.Errorf("%w: join on %s game", apperror.ErrInvalidState, that.Status)
	}

	that.PlayerO = playerO
	that.Status = StatusInProgress

	return nil
}

// seatFor - the mark held by playerID, if any.
func (that *Game) seatFor(playerID string) (Mark, bool) {
	switch {
	case playerID == "":
		return EmptyCell, false
	case playerID == that.PlayerX:
		return MarkX, true
	case playerID == that.PlayerO:
		return MarkO, true
	default:
		return EmptyCell, false
	}
}

// MakeMove - places the current player's mark at pos.
// Checks run in order: state, turn, bounds, occupancy. On any error the game is unchanged.
func (that *Game) MakeMove(playerID string, pos Position) error {
	if !that.IsInProgress() {
		return fmt.Errorf("%w: move on %s game", apperror.ErrInvalidState, that.Status)
	}

	if mark, ok := that.seatFor(playerID); !ok || mark != that.CurrentTurn {
		return apperror.ErrWrongTurn
	}

	board, err := that.Board.Apply(pos, that.CurrentTurn)
	if err != nil {
		return err
	}

	that.Board = board

	switch {
	case board.CheckWin(that.CurrentTurn):
		that.Winner = that.CurrentTurn
		that.Status = StatusFinished
	case board.IsFull():
		that.Status = StatusFinished
	default:
		that.CurrentTurn = that.CurrentTurn.Opponent()
	}

	return nil
}

// Snapshot - the public view of the game. Credentials are never included.
func (that *Game) Snapshot() Snapshot {
	snapshot := Snapshot{
		GameID:      that.ID,
		Board:       that.Board,
		CurrentTurn: that.CurrentTurn,
		Status:      that.Status,
		PlayerCount: that.PlayerCount(),
	}

	if that.Winner != EmptyCell {
		winner := that.Winner
		snapshot.Winner = &winner
	}

	return snapshot
}
