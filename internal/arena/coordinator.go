package arena

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"wager-arena/internal/clock"
	"wager-arena/internal/game"
	"wager-arena/internal/ledger"

	"github.com/rs/zerolog/log"
)

// Funds answers balance pre-checks before any session mutation.
type Funds interface {
	HasSufficientFunds(ctx context.Context, userID string, amount int64) (bool, error)
}

// Settler moves the wager. DebitPair is synchronous; the credit calls only
// record the intent and must not block.
type Settler interface {
	DebitPair(ctx context.Context, sessionID, userA, userB string, wager int64) error
	CreditWinner(sessionID, winnerID string, amount int64)
	RefundDraw(sessionID, userA, userB string, wager int64)
}

type Config struct {
	WaitingTTL  time.Duration
	FinishedTTL time.Duration
}

const (
	defaultWaitingTTL  = 30 * time.Minute
	defaultFinishedTTL = 10 * time.Minute
)

type Coordinator struct {
	cfg     Config
	clock   clock.Clock
	funds   Funds
	settler Settler

	reg    *registry
	groups *groups
	sched  *schedule

	obsMu    sync.RWMutex
	observer LifecycleObserver
}

func NewCoordinator(funds Funds, settler Settler, clk clock.Clock, cfg Config) *Coordinator {
	if cfg.WaitingTTL <= 0 {
		cfg.WaitingTTL = defaultWaitingTTL
	}
	if cfg.FinishedTTL <= 0 {
		cfg.FinishedTTL = defaultFinishedTTL
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Coordinator{
		cfg:     cfg,
		clock:   clk,
		funds:   funds,
		settler: settler,
		reg:     newRegistry(),
		groups:  newGroups(),
		sched:   newSchedule(clk),
	}
}

// Connect registers a new live connection.
func (c *Coordinator) Connect(conn *Connection) {
	metricConnectionsActive.Add(1)
	log.Info().Str("conn_id", conn.ID).Str("user_id", conn.UserID).Msg("connection opened")
}

// Handle decodes and runs one inbound event. Any error, and any panic, is
// reported to conn alone as gameError.
func (c *Coordinator) Handle(ctx context.Context, conn *Connection, typ string, data json.RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			metricPanicsTotal.Add(1)
			log.Error().
				Str("conn_id", conn.ID).
				Str("user_id", conn.UserID).
				Str("event", typ).
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("event handler panic")
			conn.Send(ErrorEvent(ErrInternal))
		}
	}()

	cmd, err := DecodeCommand(typ, data)
	if err == nil {
		err = c.dispatch(ctx, conn, cmd)
	}
	if err != nil {
		c.reject(conn, typ, err)
	}
}

func (c *Coordinator) dispatch(ctx context.Context, conn *Connection, cmd Command) error {
	switch cmd.Type {
	case CmdJoinLobby:
		return c.JoinLobby(ctx, conn)
	case CmdCreateGame:
		_, err := c.CreateGame(ctx, conn, cmd.Wager)
		return err
	case CmdJoinGame:
		return c.JoinGame(ctx, conn, cmd.SessionID)
	case CmdPlayMove:
		return c.PlayMove(ctx, conn, cmd.SessionID, cmd.Position)
	case CmdLeaveGame:
		return c.LeaveGame(ctx, conn, cmd.SessionID)
	default:
		return ErrUnknownCommand
	}
}

func (c *Coordinator) reject(conn *Connection, typ string, err error) {
	metricRejectedTotal.Add(1)
	kind := KindOf(err)
	ev := log.Warn()
	if kind == KindInternal {
		ev = log.Error()
	}
	ev.Err(err).Str("conn_id", conn.ID).Str("user_id", conn.UserID).Str("event", typ).Str("kind", string(kind)).Msg("event rejected")
	conn.Send(ErrorEvent(err))
}

// JoinGame seats conn's user as O in a waiting session, collects both
// stakes and starts play.
func (c *Coordinator) JoinGame(ctx context.Context, conn *Connection, sessionID string) error {
	wager, creatorID, err := c.peekJoinable(sessionID, conn.UserID)
	if err != nil {
		return err
	}
	if err := c.checkStakes(ctx, sessionID, creatorID, conn.UserID, wager); err != nil {
		return err
	}
	if err := c.detachFromOtherSession(ctx, conn, sessionID); err != nil {
		return err
	}

	s, err := c.lockSession(sessionID)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	if err := s.canJoin(conn.UserID); err != nil {
		return err
	}
	if err := c.collectStakes(ctx, s, conn.UserID); err != nil {
		log.Warn().Err(err).Str("session_id", s.ID).Str("user_id", conn.UserID).Int64("wager", s.Wager).Msg("stake collection failed")
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			return c.stakeShortfallLocked(ctx, s)
		}
		return fmt.Errorf("%w: %v", ErrStakeFailed, err)
	}

	if err := s.apply(EvOpponentJoined, input{now: c.clock.Now(), joiner: conn.player(), stakeCommitted: true}); err != nil {
		// The stakes are already taken; refund rather than strand them.
		c.settler.RefundDraw(s.ID, s.CreatorID, conn.UserID, s.Wager)
		return err
	}
	c.reg.started(s, conn.UserID)
	c.sched.cancel(s.ID)
	c.groups.join(s.ID, conn)

	view := s.view()
	c.groups.broadcast(s.ID, Event{Type: EventGameStarted, Data: GameStarted{Session: view}})
	c.groups.broadcast(lobbyGroup, Event{Type: EventGameRemoved, Data: GameRemoved{SessionID: s.ID}})
	if obs := c.lifecycle(); obs != nil {
		obs.OnSessionStarted(view)
	}
	metricSessionsStarted.Add(1)
	log.Info().Str("session_id", s.ID).Str("creator_id", s.CreatorID).Str("user_id", conn.UserID).Int64("wager", s.Wager).Msg("session started")
	return nil
}

// checkStakes verifies both seats can cover the wager before conn is moved
// out of its current group. A creator who can no longer pay loses the
// session.
func (c *Coordinator) checkStakes(ctx context.Context, sessionID, creatorID, joinerID string, wager int64) error {
	ok, err := c.funds.HasSufficientFunds(ctx, joinerID, wager)
	if err != nil {
		return fmt.Errorf("funds check: %w", err)
	}
	if !ok {
		return ErrInsufficientFunds
	}
	ok, err = c.funds.HasSufficientFunds(ctx, creatorID, wager)
	if err != nil {
		return fmt.Errorf("funds check: %w", err)
	}
	if ok {
		return nil
	}
	s, err := c.lockSession(sessionID)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()
	if s.Status != StatusWaiting || s.CreatorID != creatorID {
		return ErrNotJoinable
	}
	return c.dropUnfundedLocked(s)
}

// stakeShortfallLocked decides which side a failed debit belongs to. The
// joiner gets insufficient_funds; a broke creator loses the session.
func (c *Coordinator) stakeShortfallLocked(ctx context.Context, s *Session) error {
	ok, err := c.funds.HasSufficientFunds(ctx, s.CreatorID, s.Wager)
	if err != nil || ok {
		return ErrInsufficientFunds
	}
	return c.dropUnfundedLocked(s)
}

// dropUnfundedLocked removes a waiting session whose creator can no longer
// cover the wager and tells the creator why.
func (c *Coordinator) dropUnfundedLocked(s *Session) error {
	c.groups.broadcast(s.ID, Event{Type: EventGameRemoved, Data: GameRemoved{SessionID: s.ID}})
	if err := c.removeLocked(s, EvCreatorUnfunded); err != nil {
		return err
	}
	log.Warn().Str("session_id", s.ID).Str("creator_id", s.CreatorID).Int64("wager", s.Wager).Msg("creator can no longer cover wager")
	return ErrCreatorUnfunded
}

// collectStakes debits both players. The session is hidden from the lobby
// and closed to other joiners while the debit is in flight. Must be called
// with s.mu held.
func (c *Coordinator) collectStakes(ctx context.Context, s *Session, joinerID string) error {
	s.stakesPending = true
	s.publish()
	defer func() {
		s.stakesPending = false
		s.publish()
	}()
	return c.settler.DebitPair(ctx, s.ID, s.CreatorID, joinerID, s.Wager)
}

// PlayMove places conn's mark and broadcasts the new board or the result.
func (c *Coordinator) PlayMove(ctx context.Context, conn *Connection, sessionID string, position int) error {
	s, err := c.lockSession(sessionID)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	res, err := applyMove(s, conn.UserID, position)
	if err != nil {
		return err
	}
	metricMovesTotal.Add(1)

	switch res.outcome {
	case game.Win:
		return c.finishLocked(s, EvLineCompleted, conn.UserID, "")
	case game.Draw:
		return c.finishLocked(s, EvBoardFilled, "", "")
	default:
		c.groups.broadcast(s.ID, Event{Type: EventBoardUpdated, Data: BoardUpdated{
			Session:  s.view(),
			LastMove: LastMove{Position: res.position, Symbol: res.mark, Player: conn.UserName},
		}})
		return nil
	}
}

// LeaveGame detaches conn from a session. A playing session is forfeited to
// the remaining player.
func (c *Coordinator) LeaveGame(ctx context.Context, conn *Connection, sessionID string) error {
	if err := c.leaveSession(ctx, conn, sessionID, ReasonLeft); err != nil {
		return err
	}
	conn.Send(Event{Type: EventLeaveGameSuccess, Data: LeaveGameSuccess{SessionID: sessionID}})
	return nil
}

// Disconnect runs the leave path for every session the identity takes part
// in, then forgets the connection.
func (c *Coordinator) Disconnect(ctx context.Context, conn *Connection) {
	defer func() {
		if r := recover(); r != nil {
			metricPanicsTotal.Add(1)
			log.Error().Str("conn_id", conn.ID).Str("panic", fmt.Sprint(r)).Bytes("stack", debug.Stack()).Msg("disconnect handler panic")
		}
	}()
	metricConnectionsActive.Add(-1)

	if c.groups.leaveIf(conn, lobbyGroup) {
		c.broadcastLobbySize()
	}
	for _, id := range c.reg.sessionsOf(conn.UserID) {
		err := c.leaveSession(ctx, conn, id, ReasonDisconnected)
		if err != nil && !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrNotAPlayer) {
			log.Error().Err(err).Str("session_id", id).Str("user_id", conn.UserID).Msg("disconnect cleanup failed")
		}
	}
	c.groups.leave(conn)
	log.Info().Str("conn_id", conn.ID).Str("user_id", conn.UserID).Msg("connection closed")
	c.logState()
}

func (c *Coordinator) leaveSession(_ context.Context, conn *Connection, sessionID, reason string) error {
	s, err := c.lockSession(sessionID)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	leaver, ok := s.player(conn.UserID)
	if !ok || s.departed[conn.UserID] {
		return ErrNotAPlayer
	}
	s.departed[conn.UserID] = true
	c.groups.leaveIf(conn, s.ID)
	c.reg.removePlayer(conn.UserID, s.ID)

	left := PlayerLeft{Player: leaver.Name, Session: s.view()}
	if reason == ReasonDisconnected {
		left.Reason = reason
	}
	c.groups.broadcast(s.ID, Event{Type: EventPlayerLeft, Data: left})
	log.Info().Str("session_id", s.ID).Str("user_id", conn.UserID).Str("status", string(s.Status)).Str("reason", reason).Msg("player left session")

	switch s.Status {
	case StatusPlaying:
		opp, _ := s.opponent(conn.UserID)
		forfeit := ForfeitOpponentLeft
		if reason == ReasonDisconnected {
			forfeit = ForfeitOpponentDisconnected
		}
		metricForfeitsTotal.Add(1)
		if err := c.finishLocked(s, EvForfeited, opp.ID, forfeit); err != nil {
			return err
		}
	case StatusWaiting:
		if conn.UserID == s.CreatorID {
			return c.removeLocked(s, EvCreatorLeft)
		}
	}
	if s.Status == StatusFinished && c.groups.size(s.ID) == 0 {
		return c.removeLocked(s, EvGroupEmptied)
	}
	return nil
}

// finishLocked moves a playing session to finished, records the settlement
// and announces the result. forfeit is empty unless the game was abandoned.
func (c *Coordinator) finishLocked(s *Session, ev trigger, winnerID, forfeit string) error {
	if err := s.apply(ev, input{now: c.clock.Now(), winnerID: winnerID}); err != nil {
		return err
	}

	var ids [2]string
	for i, p := range s.Players {
		ids[i] = p.ID
	}
	result := Result{Session: s.view(), WinnerID: winnerID, ByForfeit: forfeit != ""}
	if winnerID != "" {
		payout := game.ComputePayout(s.Wager, game.Win)
		c.settler.CreditWinner(s.ID, winnerID, payout.WinAmount)
		winner, _ := s.player(winnerID)
		result.Outcome, result.Payout = game.Win.String(), payout.WinAmount
		c.groups.broadcast(s.ID, Event{Type: EventGameWon, Data: GameWon{
			Session:      result.Session,
			Winner:       winner.Name,
			WinnerID:     winner.ID,
			WinnerSymbol: winner.Mark,
			WinAmount:    payout.WinAmount,
			ByForfeit:    forfeit != "",
			Reason:       forfeit,
		}})
	} else {
		payout := game.ComputePayout(s.Wager, game.Draw)
		c.settler.RefundDraw(s.ID, ids[0], ids[1], payout.RefundAmount)
		result.Outcome, result.Payout = game.Draw.String(), payout.RefundAmount
		c.groups.broadcast(s.ID, Event{Type: EventGameDraw, Data: GameDraw{Session: result.Session, RefundAmount: payout.RefundAmount}})
	}

	id := s.ID
	c.sched.arm(id, c.cfg.FinishedTTL, func() { c.expire(id, StatusFinished) })
	if obs := c.lifecycle(); obs != nil {
		obs.OnSessionFinished(result)
	}
	metricSessionsFinished.Add(1)
	log.Info().Str("session_id", s.ID).Str("outcome", result.Outcome).Str("winner_id", winnerID).Str("forfeit", forfeit).Int64("payout", result.Payout).Msg("session finished")
	return nil
}

// removeLocked deletes the session from the registry. Only a waiting
// session is announced to the lobby.
func (c *Coordinator) removeLocked(s *Session, ev trigger) error {
	wasWaiting := s.Status == StatusWaiting
	if err := s.apply(ev, input{now: c.clock.Now()}); err != nil {
		return err
	}
	c.reg.remove(s)
	c.sched.cancel(s.ID)
	c.groups.drop(s.ID)
	if wasWaiting {
		c.groups.broadcast(lobbyGroup, Event{Type: EventGameRemoved, Data: GameRemoved{SessionID: s.ID}})
	}
	if obs := c.lifecycle(); obs != nil {
		obs.OnSessionRemoved(s.ID)
	}
	metricSessionsRemoved.Add(1)
	metricLiveSessions.Set(int64(c.reg.len()))
	log.Info().Str("session_id", s.ID).Str("event", string(ev)).Bool("was_waiting", wasWaiting).Msg("session removed")
	return nil
}

// lockSession returns the live session with its lock held.
func (c *Coordinator) lockSession(id string) (*Session, error) {
	s := c.reg.get(id)
	if s == nil {
		return nil, ErrSessionNotFound
	}
	s.mu.Lock()
	if s.removed {
		s.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// peekJoinable rejects a join up front, before conn is moved out of
// whatever group it is in, and returns what the funds check needs.
func (c *Coordinator) peekJoinable(sessionID, userID string) (int64, string, error) {
	s, err := c.lockSession(sessionID)
	if err != nil {
		return 0, "", err
	}
	defer s.mu.Unlock()
	if err := s.canJoin(userID); err != nil {
		return 0, "", err
	}
	return s.Wager, s.CreatorID, nil
}

// detachFromOtherSession runs the leave path if conn currently sits in a
// session group other than target, so that session is never orphaned.
func (c *Coordinator) detachFromOtherSession(ctx context.Context, conn *Connection, target string) error {
	prev := c.groups.current(conn)
	if prev == "" || prev == lobbyGroup || prev == target {
		return nil
	}
	err := c.leaveSession(ctx, conn, prev, ReasonLeft)
	if err != nil && !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrNotAPlayer) {
		return err
	}
	c.groups.leaveIf(conn, prev)
	return nil
}

func (c *Coordinator) logState() {
	if !log.Debug().Enabled() {
		return
	}
	for _, s := range c.reg.all() {
		snap := s.loadSnap()
		log.Debug().Str("session_id", s.ID).Str("status", string(snap.status)).Int("connections", c.groups.size(s.ID)).Msg("live session")
	}
	log.Debug().Int("sessions", c.reg.len()).Int("lobby", c.groups.size(lobbyGroup)).Msg("arena state")
}
