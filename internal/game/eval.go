package game

// WinLines are the 8 index triples that complete a line: rows, columns,
// then the two diagonals.
var WinLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// Winner returns the mark holding a complete line, or Empty.
func (b Board) Winner() Mark {
	for _, line := range WinLines {
		if m := b[line[0]]; m != Empty && m == b[line[1]] && m == b[line[2]] {
			return m
		}
	}
	return Empty
}

// WinningLine returns the first completed line, if any.
func (b Board) WinningLine() ([3]int, bool) {
	for _, line := range WinLines {
		if m := b[line[0]]; m != Empty && m == b[line[1]] && m == b[line[2]] {
			return line, true
		}
	}
	return [3]int{}, false
}

// LegalMoves lists the empty cells in index order.
func (b Board) LegalMoves() []int {
	moves := make([]int, 0, Cells)
	for i, m := range b {
		if m == Empty {
			moves = append(moves, i)
		}
	}
	return moves
}
