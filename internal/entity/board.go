package entity

import (
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/apperror"
)

const BoardSize = 3

const (
	MarkX     Mark = "X"
	MarkO     Mark = "O"
	EmptyCell Mark = ""
)

// Mark - a symbol occupying a cell, or EmptyCell.
type Mark string

// Opponent - returns the other seat's mark.
func (that Mark) Opponent() Mark {
	if that == MarkX {
		return MarkO
	}

	return MarkX
}

type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (that Position) InBounds() bool {
	return that.Row >= 0 && that.Row < BoardSize && that.Col >= 0 && that.Col < BoardSize
}

// winLines - every row, column and both diagonals.
var winLines = [8][3]Position{
	{{0, 0}, {0, 1}, {0, 2}},
	{{1, 0}, {1, 1}, {1, 2}},
	{{2, 0}, {2, 1}, {2, 2}},
	{{0, 0}, {1, 0}, {2, 0}},
	{{0, 1}, {1, 1}, {2, 1}},
	{{0, 2}, {1, 2}, {2, 2}},
	{{0, 0}, {1, 1}, {2, 2}},
	{{0, 2}, {1, 1}, {2, 0}},
}

type Board [BoardSize][BoardSize]Mark

// Apply - returns a copy of the board with mark placed at pos.
func (that Board) Apply(pos Position, mark Mark) (Board, error) {
	if !pos.InBounds() {
		return that, fmt.Errorf("%w: row %d, col %d", apperror.ErrOutOfBounds, pos.Row, pos.Col)
	}

	if that[pos.Row][pos.Col] != EmptyCell {
		return that, fmt.Errorf("%w: row %d, col %d", apperror.ErrCellOccupied, pos.Row, pos.Col)
	}

	that[pos.Row][pos.Col] = mark

	return that, nil
}

// CheckWin - reports whether mark fills any complete line.
func (that Board) CheckWin(mark Mark) bool {
	for _, line := range winLines {
		if that[line[0].Row][line[0].Col] == mark &&
			that[line[1].Row][line[1].Col] == mark &&
			that[line[2].Row][line[2].Col] == mark {
			return true
		}
	}

	return false
}

func (that Board) IsFull() bool {
	for _, row := range that {
		for _, cell := range row {
			if cell == EmptyCell {
				return false
			}
		}
	}

	return true
}

// MarshalJSON - empty cells are encoded as null.
func (that Board) MarshalJSON() ([]byte, error) {
	var cells [BoardSize][BoardSize]*string

	for r, row := range that {
		for c, cell := range row {
			if cell == EmptyCell {
				continue
			}

			value := string(cell)
			cells[r][c] = &value
		}
	}

	return json.Marshal(cells)
}

func (that *Board) UnmarshalJSON(data []byte) error {
	var cells [BoardSize][BoardSize]*string
	if err := json.Unmarshal(data, &cells); err != nil {
		return fmt.Errorf("could not unmarshal board: %w", err)
	}

	for r, row := range cells {
		for c, cell := range row {
			if cell == nil {
				that[r][c] = EmptyCell
				continue
			}

			that[r][c] = Mark(*cell)
		}
	}

	return nil
}
