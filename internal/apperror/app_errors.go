package apperror

import "errors"

var (
	ErrNotFound     = errors.New("game not found")
	ErrInvalidState = errors.New("game is not in a state that allows this operation")
	ErrWrongTurn    = errors.New("it's not your turn")
	ErrOutOfBounds  = errors.New("position is outside the board")
	ErrCellOccupied = errors.New("cell is already occupied")
)
