// Package arena runs the tic-tac-toe lobby and its wagered sessions.
//
// Every session owns a mutex that linearizes join, move, leave, disconnect
// and expiry for that session, including the ledger calls they make. Locks
// are always taken in the order session, registry, groups; the registry and
// group locks are leaves and are never held across I/O.
package arena

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"wager-arena/internal/game"
)

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"

	// statusRemoved is the exit state of the transition table. It is never
	// visible outside the package: a removed session is gone from the registry.
	statusRemoved Status = "removed"
)

const maxPlayers = 2

type Player struct {
	ID   string
	Name string
	Mark game.Mark
}

type Session struct {
	mu sync.Mutex

	ID          string
	Status      Status
	Board       game.Board
	CurrentTurn string
	Players     []Player
	CreatorID   string
	CreatorName string
	Wager       int64
	Winner      string
	CreatedAt   time.Time
	FinishedAt  time.Time

	// stakesPending is set before the paired debit is issued and cleared
	// once it resolves. stakesCollected and settlementDone flip once.
	stakesPending   bool
	stakesCollected bool
	settlementDone  bool
	removed         bool

	// departed holds players that already left; they keep their seat in
	// Players for the record.
	departed map[string]bool

	// snap is republished on every status change so lobby listings and
	// stats never wait on a session that is busy with the ledger.
	snap atomic.Pointer[sessionSnap]
}

type sessionSnap struct {
	status   Status
	listable bool
	listing  GameListing
}

// publish must be called with s.mu held, or before s is shared.
func (s *Session) publish() {
	st := s.Status
	if s.removed {
		st = statusRemoved
	}
	s.snap.Store(&sessionSnap{
		status:   st,
		listable: st == StatusWaiting && !s.stakesPending,
		listing:  s.listing(),
	})
}

func (s *Session) loadSnap() sessionSnap {
	if p := s.snap.Load(); p != nil {
		return *p
	}
	return sessionSnap{status: statusRemoved}
}

func sessionID(now time.Time, creatorID string) string {
	return fmt.Sprintf("ttt-%d-%s", now.UnixMilli(), creatorID)
}

func newSession(id string, creator Player, wager int64, now time.Time) *Session {
	creator.Mark = game.X
	s := &Session{
		ID:          id,
		Status:      StatusWaiting,
		Players:     []Player{creator},
		CreatorID:   creator.ID,
		CreatorName: creator.Name,
		Wager:       wager,
		CreatedAt:   now,
		departed:    map[string]bool{},
	}
	s.publish()
	return s
}

func (s *Session) player(userID string) (Player, bool) {
	for _, p := range s.Players {
		if p.ID == userID {
			return p, true
		}
	}
	return Player{}, false
}

func (s *Session) opponent(userID string) (Player, bool) {
	for _, p := range s.Players {
		if p.ID != userID {
			return p, true
		}
	}
	return Player{}, false
}

// SessionView is the wire and API representation of a session.
type SessionView struct {
	ID          string       `json:"id"`
	Status      Status       `json:"status"`
	Board       []*string    `json:"board"`
	CurrentTurn string       `json:"currentTurn,omitempty"`
	Players     []PlayerView `json:"players"`
	Creator     string       `json:"creator"`
	CreatorName string       `json:"creatorName"`
	Wager       int64        `json:"wager"`
	Winner      string       `json:"winner,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	FinishedAt  *time.Time   `json:"finishedAt,omitempty"`
}

type PlayerView struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Symbol game.Mark `json:"symbol"`
}

// view must be called with s.mu held.
func (s *Session) view() SessionView {
	players := make([]PlayerView, 0, len(s.Players))
	for _, p := range s.Players {
		players = append(players, PlayerView{ID: p.ID, Name: p.Name, Symbol: p.Mark})
	}
	v := SessionView{
		ID:          s.ID,
		Status:      s.Status,
		Board:       s.Board.Cells(),
		CurrentTurn: s.CurrentTurn,
		Players:     players,
		Creator:     s.CreatorID,
		CreatorName: s.CreatorName,
		Wager:       s.Wager,
		Winner:      s.Winner,
		CreatedAt:   s.CreatedAt,
	}
	if !s.FinishedAt.IsZero() {
		at := s.FinishedAt
		v.FinishedAt = &at
	}
	return v
}

// GameListing is a waiting session as shown in the lobby.
type GameListing struct {
	SessionID string    `json:"sessionId"`
	Creator   string    `json:"creator"`
	CreatorID string    `json:"creatorId"`
	Wager     int64     `json:"wager"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Session) listing() GameListing {
	return GameListing{
		SessionID: s.ID,
		Creator:   s.CreatorName,
		CreatorID: s.CreatorID,
		Wager:     s.Wager,
		CreatedAt: s.CreatedAt,
	}
}
