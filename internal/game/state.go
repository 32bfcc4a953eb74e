package game

import "strings"

// Mark is the content of one board cell.
type Mark string

const (
	Empty Mark = ""
	X     Mark = "X"
	O     Mark = "O"
)

// Opponent returns the other playing mark. Empty maps to Empty.
func (m Mark) Opponent() Mark {
	switch m {
	case X:
		return O
	case O:
		return X
	default:
		return Empty
	}
}

func (m Mark) Valid() bool { return m == X || m == O }

const Cells = 9

// Board is a 3x3 grid stored row-major, indexes 0..8.
type Board [Cells]Mark

// Cells returns the board as a slice of JSON-friendly strings, using null
// for empty cells the way clients render them.
func (b Board) Cells() []*string {
	out := make([]*string, Cells)
	for i, m := range b {
		if m == Empty {
			continue
		}
		s := string(m)
		out[i] = &s
	}
	return out
}

func (b Board) Full() bool {
	for _, m := range b {
		if m == Empty {
			return false
		}
	}
	return true
}

func (b Board) Count(m Mark) int {
	n := 0
	for _, c := range b {
		if c == m {
			n++
		}
	}
	return n
}

func (b Board) String() string {
	var sb strings.Builder
	for i, m := range b {
		if m == Empty {
			sb.WriteByte('.')
		} else {
			sb.WriteString(string(m))
		}
		if i%3 == 2 && i != Cells-1 {
			sb.WriteByte('/')
		}
	}
	return sb.String()
}
