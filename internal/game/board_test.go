package game

import "testing"

func TestPlaceTopRowWins(t *testing.T) {
	var b Board
	moves := []struct {
		pos  int
		mark Mark
	}{{0, X}, {3, O}, {1, X}, {4, O}}
	for _, mv := range moves {
		if out, err := Place(&b, mv.pos, mv.mark); err != nil || out != Continue {
			t.Fatalf("place %d: out=%v err=%v", mv.pos, out, err)
		}
	}
	out, err := Place(&b, 2, X)
	if err != nil {
		t.Fatalf("place 2: %v", err)
	}
	if out != Win {
		t.Fatalf("expected win, got %v", out)
	}
	if b.Winner() != X {
		t.Fatalf("winner = %q, want X", b.Winner())
	}
	line, ok := b.WinningLine()
	if !ok || line != [3]int{0, 1, 2} {
		t.Fatalf("winning line = %v ok=%v", line, ok)
	}
}

func TestPlaceFullBoardWithoutLineDraws(t *testing.T) {
	// X O X / X O O / O X X
	seq := []struct {
		pos  int
		mark Mark
	}{{0, X}, {1, O}, {2, X}, {4, O}, {3, X}, {5, O}, {7, X}, {6, O}}
	var b Board
	for _, mv := range seq {
		if out, err := Place(&b, mv.pos, mv.mark); err != nil || out != Continue {
			t.Fatalf("place %d: out=%v err=%v", mv.pos, out, err)
		}
	}
	out, err := Place(&b, 8, X)
	if err != nil {
		t.Fatalf("place 8: %v", err)
	}
	if out != Draw {
		t.Fatalf("expected draw, got %v (board %s)", out, b)
	}
	if b.Winner() != Empty {
		t.Fatalf("unexpected winner %q", b.Winner())
	}
}

func TestPlaceRejectsOccupiedAndOutOfRange(t *testing.T) {
	var b Board
	if _, err := Place(&b, 4, X); err != nil {
		t.Fatalf("place: %v", err)
	}
	before := b
	for _, pos := range []int{4, -1, 9} {
		if _, err := Place(&b, pos, O); err != ErrInvalidMove {
			t.Fatalf("pos %d: err = %v, want ErrInvalidMove", pos, err)
		}
	}
	if _, err := Place(&b, 0, Empty); err != ErrInvalidMark {
		t.Fatalf("empty mark: err = %v", err)
	}
	if b != before {
		t.Fatalf("board mutated on rejected move: %s", b)
	}
}

func TestEveryLineIsDetected(t *testing.T) {
	for _, line := range WinLines {
		var b Board
		for _, i := range line {
			b[i] = O
		}
		if b.Winner() != O {
			t.Fatalf("line %v not detected", line)
		}
	}
}

func TestCellsAndLegalMoves(t *testing.T) {
	var b Board
	b[0], b[8] = X, O
	cells := b.Cells()
	if len(cells) != Cells || cells[0] == nil || *cells[0] != "X" || cells[1] != nil || *cells[8] != "O" {
		t.Fatalf("unexpected cells %v", cells)
	}
	if got := len(b.LegalMoves()); got != 7 {
		t.Fatalf("legal moves = %d, want 7", got)
	}
	if b.String() != "X../.../..O" {
		t.Fatalf("String() = %q", b.String())
	}
}

func TestComputePayout(t *testing.T) {
	if p := ComputePayout(100, Win); p.WinAmount != 200 || p.RefundAmount != 0 {
		t.Fatalf("win payout = %+v", p)
	}
	if p := ComputePayout(100, Draw); p.RefundAmount != 100 || p.WinAmount != 0 {
		t.Fatalf("draw payout = %+v", p)
	}
	if p := ComputePayout(100, Continue); p != (Payout{}) {
		t.Fatalf("continue payout = %+v", p)
	}
}
