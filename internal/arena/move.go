package arena

import (
	"errors"

	"wager-arena/internal/game"
)

type moveResult struct {
	outcome  game.Outcome
	mark     game.Mark
	position int
}

// applyMove validates and writes one move. On success the board holds the
// mover's mark and, if the game goes on, the turn has passed to the
// opponent. Status changes are left to the caller via the transition table.
// Must be called with s.mu held.
func applyMove(s *Session, playerID string, position int) (moveResult, error) {
	if s.removed {
		return moveResult{}, ErrSessionNotFound
	}
	if s.Status != StatusPlaying {
		return moveResult{}, ErrNotPlaying
	}
	p, ok := s.player(playerID)
	if !ok {
		return moveResult{}, ErrNotAPlayer
	}
	if s.CurrentTurn != playerID {
		return moveResult{}, ErrNotYourTurn
	}
	outcome, err := game.Place(&s.Board, position, p.Mark)
	if err != nil {
		if errors.Is(err, game.ErrInvalidMove) {
			return moveResult{}, ErrInvalidMove
		}
		return moveResult{}, err
	}
	if outcome == game.Continue {
		opp, _ := s.opponent(playerID)
		s.CurrentTurn = opp.ID
	}
	return moveResult{outcome: outcome, mark: p.Mark, position: position}, nil
}
