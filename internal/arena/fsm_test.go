package arena

import (
	"errors"
	"testing"

	"wager-arena/internal/game"
)

func TestTransitionsRejectUnknownEdges(t *testing.T) {
	cases := []struct {
		from Status
		ev   trigger
	}{
		{StatusWaiting, EvLineCompleted},
		{StatusWaiting, EvForfeited},
		{StatusWaiting, EvGroupEmptied},
		{StatusPlaying, EvOpponentJoined},
		{StatusPlaying, EvExpired},
		{StatusPlaying, EvCreatorLeft},
		{StatusPlaying, EvCreatorUnfunded},
		{StatusFinished, EvCreatorUnfunded},
		{StatusFinished, EvOpponentJoined},
		{StatusFinished, EvForfeited},
	}
	for _, tc := range cases {
		s := newSession("s", Player{ID: "a", Name: "A"}, 10, epoch)
		s.Status = tc.from
		if err := s.apply(tc.ev, input{now: epoch, winnerID: "a"}); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("%s on %s: err = %v", tc.ev, tc.from, err)
		}
		if s.Status != tc.from || s.removed {
			t.Fatalf("%s on %s mutated the session", tc.ev, tc.from)
		}
	}
}

func TestJoinTransitionNeedsCommittedStake(t *testing.T) {
	s := newSession("s", Player{ID: "a", Name: "A"}, 10, epoch)
	bob := Player{ID: "b", Name: "B"}
	if err := s.apply(EvOpponentJoined, input{joiner: bob}); err == nil {
		t.Fatal("join without committed stake accepted")
	}
	if err := s.apply(EvOpponentJoined, input{joiner: Player{ID: "a"}, stakeCommitted: true}); !errors.Is(err, ErrAlreadyInSession) {
		t.Fatalf("self join: err = %v", err)
	}
	if err := s.apply(EvOpponentJoined, input{joiner: bob, stakeCommitted: true}); err != nil {
		t.Fatalf("join: %v", err)
	}
	if s.Status != StatusPlaying || s.CurrentTurn != "a" || s.Players[1].Mark != game.O {
		t.Fatalf("unexpected session after join: %+v", s.view())
	}
}

func TestSettlementHappensOnce(t *testing.T) {
	s := newSession("s", Player{ID: "a", Name: "A"}, 10, epoch)
	if err := s.apply(EvOpponentJoined, input{joiner: Player{ID: "b"}, stakeCommitted: true}); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := s.apply(EvForfeited, input{now: epoch, winnerID: "c"}); !errors.Is(err, ErrNotAPlayer) {
		t.Fatalf("stranger winner: err = %v", err)
	}
	if err := s.apply(EvForfeited, input{now: epoch, winnerID: "b"}); err != nil {
		t.Fatalf("forfeit: %v", err)
	}
	if s.Winner != "b" || s.FinishedAt != epoch || s.CurrentTurn != "" {
		t.Fatalf("finish effect not applied: %+v", s.view())
	}
	if err := s.apply(EvLineCompleted, input{winnerID: "a"}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second finish: err = %v", err)
	}
	if err := s.apply(EvGroupEmptied, input{}); err != nil {
		t.Fatalf("group emptied: %v", err)
	}
	if err := s.apply(EvExpired, input{}); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("apply after removal: err = %v", err)
	}
}
