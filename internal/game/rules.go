package game

import "errors"

var ErrInvalidMove = errors.New("invalid_move")
var ErrInvalidMark = errors.New("invalid_mark")

// Outcome is the board result after a placement.
type Outcome int

const (
	Continue Outcome = iota
	Win
	Draw
)

func (o Outcome) String() string {
	switch o {
	case Win:
		return "win"
	case Draw:
		return "draw"
	default:
		return "continue"
	}
}

// Place writes mark at position and evaluates the board. The board is left
// untouched on error.
func Place(b *Board, position int, mark Mark) (Outcome, error) {
	if !mark.Valid() {
		return Continue, ErrInvalidMark
	}
	if position < 0 || position >= Cells || b[position] != Empty {
		return Continue, ErrInvalidMove
	}
	b[position] = mark
	if b.Winner() == mark {
		return Win, nil
	}
	if b.Full() {
		return Draw, nil
	}
	return Continue, nil
}
