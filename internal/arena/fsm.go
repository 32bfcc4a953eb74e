package arena

import (
	"errors"
	"fmt"
	"time"
)

type trigger string

const (
	EvOpponentJoined  trigger = "opponentJoined"
	EvLineCompleted   trigger = "lineCompleted"
	EvBoardFilled     trigger = "boardFilled"
	EvForfeited       trigger = "forfeited"
	EvCreatorLeft     trigger = "creatorLeft"
	EvCreatorUnfunded trigger = "creatorUnfunded"
	EvExpired         trigger = "expired"
	EvGroupEmptied    trigger = "groupEmptied"
)

var errStakeNotCommitted = errors.New("stake_not_committed")
var errAlreadySettled = errors.New("already_settled")

// input carries the facts a transition needs.
type input struct {
	now            time.Time
	joiner         Player
	winnerID       string
	stakeCommitted bool
}

type transitionKey struct {
	from Status
	ev   trigger
}

type transition struct {
	to     Status
	guard  func(s *Session, in input) error
	effect func(s *Session, in input)
}

var transitions = map[transitionKey]transition{
	{StatusWaiting, EvOpponentJoined}:  {to: StatusPlaying, guard: guardJoin, effect: effectStart},
	{StatusPlaying, EvLineCompleted}:   {to: StatusFinished, guard: guardWinner, effect: effectFinish},
	{StatusPlaying, EvBoardFilled}:     {to: StatusFinished, guard: guardUnsettled, effect: effectFinish},
	{StatusPlaying, EvForfeited}:       {to: StatusFinished, guard: guardWinner, effect: effectFinish},
	{StatusWaiting, EvCreatorLeft}:     {to: statusRemoved},
	{StatusWaiting, EvCreatorUnfunded}: {to: statusRemoved},
	{StatusWaiting, EvExpired}:         {to: statusRemoved},
	{StatusFinished, EvExpired}:        {to: statusRemoved},
	{StatusFinished, EvGroupEmptied}:   {to: statusRemoved},
}

// apply is the only place session status changes. It must be called with
// s.mu held.
func (s *Session) apply(ev trigger, in input) error {
	if s.removed {
		return ErrSessionNotFound
	}
	t, ok := transitions[transitionKey{s.Status, ev}]
	if !ok {
		return fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev, s.Status)
	}
	if t.guard != nil {
		if err := t.guard(s, in); err != nil {
			return err
		}
	}
	if t.effect != nil {
		t.effect(s, in)
	}
	if t.to == statusRemoved {
		s.removed = true
	} else {
		s.Status = t.to
	}
	s.publish()
	return nil
}

// canJoin reports why userID cannot take the open seat, without mutating.
func (s *Session) canJoin(userID string) error {
	if s.removed {
		return ErrSessionNotFound
	}
	if s.Status != StatusWaiting || s.stakesPending {
		return ErrNotJoinable
	}
	if len(s.Players) >= maxPlayers {
		return ErrSessionFull
	}
	if _, ok := s.player(userID); ok {
		return ErrAlreadyInSession
	}
	return nil
}

func guardJoin(s *Session, in input) error {
	if len(s.Players) >= maxPlayers {
		return ErrSessionFull
	}
	if in.joiner.ID == "" || in.joiner.ID == s.CreatorID {
		return ErrAlreadyInSession
	}
	if !in.stakeCommitted || s.stakesCollected {
		return errStakeNotCommitted
	}
	return nil
}

func guardUnsettled(s *Session, _ input) error {
	if s.settlementDone {
		return errAlreadySettled
	}
	return nil
}

func guardWinner(s *Session, in input) error {
	if err := guardUnsettled(s, in); err != nil {
		return err
	}
	if _, ok := s.player(in.winnerID); !ok {
		return ErrNotAPlayer
	}
	return nil
}

func effectStart(s *Session, in input) {
	joiner := in.joiner
	joiner.Mark = s.Players[0].Mark.Opponent()
	s.Players = append(s.Players, joiner)
	s.CurrentTurn = s.CreatorID
	s.stakesPending = false
	s.stakesCollected = true
}

func effectFinish(s *Session, in input) {
	s.Winner = in.winnerID
	s.CurrentTurn = ""
	s.FinishedAt = in.now
	s.settlementDone = true
}
