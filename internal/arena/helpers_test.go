package arena

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"wager-arena/internal/clock"
	"wager-arena/internal/ledger"
	"wager-arena/internal/settlement"
	"wager-arena/internal/store"
)

type captureSender struct {
	mu     sync.Mutex
	events []Event
}

func (s *captureSender) Send(ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return true
}

func (s *captureSender) count(typ string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ev := range s.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func (s *captureSender) last(typ string) (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].Type == typ {
			return s.events[i], true
		}
	}
	return Event{}, false
}

func (s *captureSender) lastError(t *testing.T) GameError {
	t.Helper()
	ev, ok := s.last(EventGameError)
	if !ok {
		t.Fatal("expected a gameError event")
	}
	return ev.Data.(GameError)
}

type countingSettler struct {
	mu      sync.Mutex
	pairErr error
	pairs   int
	credits []string
	refunds []string
	onDebit func()
}

func (s *countingSettler) DebitPair(_ context.Context, _, _, _ string, _ int64) error {
	if s.onDebit != nil {
		s.onDebit()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairs++
	return s.pairErr
}

func (s *countingSettler) CreditWinner(sessionID, winnerID string, amount int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credits = append(s.credits, sessionID+"|"+winnerID)
}

func (s *countingSettler) RefundDraw(sessionID, userA, userB string, wager int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refunds = append(s.refunds, sessionID+"|"+userA, sessionID+"|"+userB)
}

func (s *countingSettler) settlements() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.credits) + len(s.refunds)
}

type staticFunds map[string]int64

func (f staticFunds) HasSufficientFunds(_ context.Context, userID string, amount int64) (bool, error) {
	bal, ok := f[userID]
	if !ok {
		bal = 1000
	}
	return bal >= amount, nil
}

type player struct {
	conn *Connection
	out  *captureSender
}

func newPlayer(id string) player {
	out := &captureSender{}
	return player{conn: NewConnection("conn-"+id, id, "name-"+id, out), out: out}
}

var epoch = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func newFakeCoordinator(t *testing.T) (*Coordinator, *countingSettler, *clock.Mock) {
	t.Helper()
	clk := clock.NewMock(epoch)
	settler := &countingSettler{}
	return NewCoordinator(staticFunds{}, settler, clk, Config{}), settler, clk
}

type ledgerRig struct {
	coord  *Coordinator
	ledger *ledger.Ledger
	settle *settlement.Coordinator
	clock  *clock.Mock
}

func newLedgerRig(t *testing.T) ledgerRig {
	t.Helper()
	led := ledger.New(store.NewMemory(), 1000)
	settle := settlement.New(led, settlement.Config{Workers: 2, RetryBase: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	settle.Start(ctx)
	clk := clock.NewMock(epoch)
	return ledgerRig{
		coord:  NewCoordinator(led, settle, clk, Config{}),
		ledger: led,
		settle: settle,
		clock:  clk,
	}
}

func (r ledgerRig) balance(t *testing.T, userID string) int64 {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.settle.WaitIdle(ctx); err != nil {
		t.Fatalf("settlement did not drain: %v", err)
	}
	bal, err := r.ledger.Balance(context.Background(), userID)
	if err != nil {
		t.Fatalf("balance %s: %v", userID, err)
	}
	return bal
}

func mustCreate(t *testing.T, c *Coordinator, p player, wager int64) string {
	t.Helper()
	view, err := c.CreateGame(context.Background(), p.conn, wager)
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	return view.ID
}

func mustJoin(t *testing.T, c *Coordinator, p player, id string) {
	t.Helper()
	if err := c.JoinGame(context.Background(), p.conn, id); err != nil {
		t.Fatalf("join game: %v", err)
	}
}

func mustMove(t *testing.T, c *Coordinator, p player, id string, pos int) {
	t.Helper()
	if err := c.PlayMove(context.Background(), p.conn, id, pos); err != nil {
		t.Fatalf("move %d by %s: %v", pos, p.conn.UserID, err)
	}
}

func startedGame(t *testing.T, c *Coordinator, wager int64) (player, player, string) {
	t.Helper()
	a, b := newPlayer("alice"), newPlayer("bob")
	id := mustCreate(t, c, a, wager)
	mustJoin(t, c, b, id)
	return a, b, id
}

func rawJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}
