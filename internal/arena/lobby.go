package arena

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// JoinLobby moves conn into the lobby, sends it the open games and
// announces the new lobby size.
func (c *Coordinator) JoinLobby(ctx context.Context, conn *Connection) error {
	if err := c.detachFromOtherSession(ctx, conn, lobbyGroup); err != nil {
		return err
	}
	c.groups.join(lobbyGroup, conn)

	conn.Send(Event{Type: EventAvailableGames, Data: AvailableGames{Games: c.OpenGames()}})
	c.broadcastLobbySize()
	log.Info().Str("conn_id", conn.ID).Str("user_id", conn.UserID).Msg("joined lobby")
	return nil
}

// CreateGame opens a waiting session with conn's user as X.
func (c *Coordinator) CreateGame(ctx context.Context, conn *Connection, wager int64) (SessionView, error) {
	if wager <= 0 {
		return SessionView{}, ErrInvalidWager
	}
	if c.reg.hasWaiting(conn.UserID) {
		return SessionView{}, ErrAlreadyWaiting
	}
	ok, err := c.funds.HasSufficientFunds(ctx, conn.UserID, wager)
	if err != nil {
		return SessionView{}, fmt.Errorf("funds check: %w", err)
	}
	if !ok {
		return SessionView{}, ErrInsufficientFunds
	}
	now := c.clock.Now()
	id := sessionID(now, conn.UserID)
	if c.reg.has(id) {
		return SessionView{}, ErrSessionConflict
	}
	if err := c.detachFromOtherSession(ctx, conn, ""); err != nil {
		return SessionView{}, err
	}

	s := newSession(id, conn.player(), wager, now)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := c.reg.insertWaiting(s); err != nil {
		return SessionView{}, err
	}
	c.groups.join(s.ID, conn)

	view := s.view()
	conn.Send(Event{Type: EventGameCreated, Data: GameCreated{SessionID: s.ID, Session: view}})
	c.groups.broadcast(lobbyGroup, Event{Type: EventNewGameAvailable, Data: s.listing()})
	c.broadcastLobbySize()

	c.sched.arm(id, c.cfg.WaitingTTL, func() { c.expire(id, StatusWaiting) })
	if obs := c.lifecycle(); obs != nil {
		obs.OnSessionCreated(view)
	}
	metricSessionsCreated.Add(1)
	metricLiveSessions.Set(int64(c.reg.len()))
	log.Info().Str("session_id", s.ID).Str("user_id", conn.UserID).Int64("wager", wager).Msg("session created")
	return view, nil
}

// OpenGames lists the sessions still waiting for an opponent. It reads
// published snapshots and never blocks on a session lock.
func (c *Coordinator) OpenGames() []GameListing {
	out := []GameListing{}
	for _, s := range c.reg.waiting() {
		if snap := s.loadSnap(); snap.listable {
			out = append(out, snap.listing)
		}
	}
	return out
}

// Session returns a snapshot of one live session.
func (c *Coordinator) Session(id string) (SessionView, bool) {
	s, err := c.lockSession(id)
	if err != nil {
		return SessionView{}, false
	}
	defer s.mu.Unlock()
	return s.view(), true
}

// SessionsOf returns snapshots of the sessions userID still takes part in.
func (c *Coordinator) SessionsOf(userID string) []SessionView {
	var out []SessionView
	for _, id := range c.reg.sessionsOf(userID) {
		if v, ok := c.Session(id); ok {
			out = append(out, v)
		}
	}
	return out
}

type Stats struct {
	LobbySize int `json:"lobby_size"`
	Waiting   int `json:"waiting"`
	Playing   int `json:"playing"`
	Finished  int `json:"finished"`
}

func (c *Coordinator) Stats() Stats {
	st := Stats{LobbySize: c.groups.size(lobbyGroup)}
	for _, s := range c.reg.all() {
		switch s.loadSnap().status {
		case StatusWaiting:
			st.Waiting++
		case StatusPlaying:
			st.Playing++
		case StatusFinished:
			st.Finished++
		}
	}
	return st
}

func (c *Coordinator) broadcastLobbySize() {
	c.groups.broadcast(lobbyGroup, Event{Type: EventLobbyUpdate, Data: LobbyUpdate{Players: c.groups.size(lobbyGroup)}})
}

// expire is the body of a per-session timer. The timer may race an early
// transition, so the expected status is re-checked under the lock.
func (c *Coordinator) expire(id string, want Status) {
	s, err := c.lockSession(id)
	if err != nil {
		return
	}
	defer s.mu.Unlock()
	if s.Status != want || !c.dueLocked(s, c.clock.Now()) {
		return
	}
	if err := c.removeLocked(s, EvExpired); err == nil {
		metricSessionsExpired.Add(1)
	}
}

// dueLocked reports whether s has outlived its status TTL at now.
func (c *Coordinator) dueLocked(s *Session, now time.Time) bool {
	switch s.Status {
	case StatusWaiting:
		return !now.Before(s.CreatedAt.Add(c.cfg.WaitingTTL))
	case StatusFinished:
		return !now.Before(s.FinishedAt.Add(c.cfg.FinishedTTL))
	default:
		return false
	}
}
