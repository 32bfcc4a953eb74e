package arena

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"wager-arena/internal/clock"
	"wager-arena/internal/game"
	"wager-arena/internal/ledger"
)

func TestWinScenarioSettlesTwiceTheWager(t *testing.T) {
	rig := newLedgerRig(t)
	a, b, id := startedGame(t, rig.coord, 100)

	if got := rig.balance(t, "alice"); got != 900 {
		t.Fatalf("alice after stake = %d, want 900", got)
	}
	if got := rig.balance(t, "bob"); got != 900 {
		t.Fatalf("bob after stake = %d, want 900", got)
	}

	mustMove(t, rig.coord, a, id, 0)
	mustMove(t, rig.coord, b, id, 3)
	mustMove(t, rig.coord, a, id, 1)
	mustMove(t, rig.coord, b, id, 4)
	mustMove(t, rig.coord, a, id, 2)

	ev, ok := b.out.last(EventGameWon)
	if !ok {
		t.Fatal("bob did not see gameWon")
	}
	won := ev.Data.(GameWon)
	if won.WinnerID != "alice" || won.WinAmount != 200 || won.WinnerSymbol != game.X || won.ByForfeit {
		t.Fatalf("unexpected gameWon %+v", won)
	}
	if won.Session.Status != StatusFinished || won.Session.Winner != "alice" {
		t.Fatalf("session not finished: %+v", won.Session)
	}
	if got := rig.balance(t, "alice"); got != 1100 {
		t.Fatalf("alice final = %d, want 1100", got)
	}
	if got := rig.balance(t, "bob"); got != 900 {
		t.Fatalf("bob final = %d, want 900", got)
	}
}

func TestDrawRefundsEachPlayer(t *testing.T) {
	rig := newLedgerRig(t)
	a, b, id := startedGame(t, rig.coord, 100)

	// X O X / X O O / O X X
	seq := []struct {
		p   player
		pos int
	}{{a, 0}, {b, 1}, {a, 2}, {b, 4}, {a, 3}, {b, 5}, {a, 7}, {b, 6}, {a, 8}}
	for _, mv := range seq {
		mustMove(t, rig.coord, mv.p, id, mv.pos)
	}

	ev, ok := a.out.last(EventGameDraw)
	if !ok {
		t.Fatal("expected gameDraw")
	}
	draw := ev.Data.(GameDraw)
	if draw.RefundAmount != 100 || draw.Session.Winner != "" || draw.Session.Status != StatusFinished {
		t.Fatalf("unexpected draw %+v", draw)
	}
	if rig.balance(t, "alice") != 1000 || rig.balance(t, "bob") != 1000 {
		t.Fatalf("balances not restored: alice=%d bob=%d", rig.balance(t, "alice"), rig.balance(t, "bob"))
	}
}

func TestCreatorDisconnectBeforeJoinRemovesSession(t *testing.T) {
	c, settler, _ := newFakeCoordinator(t)
	watcher := newPlayer("watcher")
	if err := c.JoinLobby(context.Background(), watcher.conn); err != nil {
		t.Fatalf("join lobby: %v", err)
	}
	a := newPlayer("alice")
	id := mustCreate(t, c, a, 50)
	if watcher.out.count(EventNewGameAvailable) != 1 {
		t.Fatal("lobby did not see newGameAvailable")
	}

	c.Disconnect(context.Background(), a.conn)

	if _, ok := c.Session(id); ok {
		t.Fatal("session still registered after creator disconnect")
	}
	ev, ok := watcher.out.last(EventGameRemoved)
	if !ok || ev.Data.(GameRemoved).SessionID != id {
		t.Fatalf("lobby gameRemoved = %+v ok=%v", ev, ok)
	}
	if settler.pairs != 0 || settler.settlements() != 0 {
		t.Fatalf("settlement calls made: pairs=%d settlements=%d", settler.pairs, settler.settlements())
	}
	if len(c.OpenGames()) != 0 {
		t.Fatal("removed session still listed")
	}
}

func TestDisconnectMidGameForfeitsToOpponent(t *testing.T) {
	rig := newLedgerRig(t)
	a, b, id := startedGame(t, rig.coord, 100)
	mustMove(t, rig.coord, a, id, 4)

	rig.coord.Disconnect(context.Background(), b.conn)

	ev, ok := a.out.last(EventGameWon)
	if !ok {
		t.Fatal("alice did not get gameWon")
	}
	won := ev.Data.(GameWon)
	if !won.ByForfeit || won.Reason != ForfeitOpponentDisconnected || won.WinnerID != "alice" {
		t.Fatalf("unexpected forfeit %+v", won)
	}
	left, ok := a.out.last(EventPlayerLeft)
	if !ok || left.Data.(PlayerLeft).Reason != ReasonDisconnected {
		t.Fatalf("playerLeft = %+v ok=%v", left, ok)
	}
	view, ok := rig.coord.Session(id)
	if !ok || view.Status != StatusFinished {
		t.Fatalf("session = %+v ok=%v, want finished", view, ok)
	}
	if got := rig.balance(t, "alice"); got != 1100 {
		t.Fatalf("alice = %d, want 1100", got)
	}
}

func TestLeaveAndDisconnectRaceSettlesOnce(t *testing.T) {
	for i := 0; i < 50; i++ {
		c, settler, _ := newFakeCoordinator(t)
		a, b, id := startedGame(t, c, 10)

		var wg sync.WaitGroup
		wg.Add(3)
		go func() {
			defer wg.Done()
			_ = c.LeaveGame(context.Background(), a.conn, id)
		}()
		go func() {
			defer wg.Done()
			c.Disconnect(context.Background(), b.conn)
		}()
		go func() {
			defer wg.Done()
			c.Disconnect(context.Background(), a.conn)
		}()
		wg.Wait()

		if n := settler.settlements(); n != 1 {
			t.Fatalf("iteration %d: %d settlement calls, want 1", i, n)
		}
		if _, ok := c.Session(id); ok {
			t.Fatalf("iteration %d: session survived with an empty group", i)
		}
	}
}

func TestVoluntaryLeaveForfeitsAndAcks(t *testing.T) {
	c, settler, _ := newFakeCoordinator(t)
	a, b, id := startedGame(t, c, 10)

	if err := c.LeaveGame(context.Background(), a.conn, id); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if a.out.count(EventLeaveGameSuccess) != 1 {
		t.Fatal("leaver not acked")
	}
	ev, ok := b.out.last(EventGameWon)
	if !ok || ev.Data.(GameWon).Reason != ForfeitOpponentLeft || ev.Data.(GameWon).Winner != "name-bob" {
		t.Fatalf("gameWon = %+v ok=%v", ev, ok)
	}
	if a.out.count(EventGameWon) != 0 {
		t.Fatal("leaver should no longer receive session broadcasts")
	}
	if len(settler.credits) != 1 || settler.credits[0] != id+"|bob" {
		t.Fatalf("credits = %v", settler.credits)
	}

	// A second leave by the same identity is not a membership any more.
	if err := c.LeaveGame(context.Background(), a.conn, id); !errors.Is(err, ErrNotAPlayer) {
		t.Fatalf("second leave err = %v", err)
	}
	if err := c.LeaveGame(context.Background(), b.conn, id); err != nil {
		t.Fatalf("winner leave: %v", err)
	}
	if _, ok := c.Session(id); ok {
		t.Fatal("finished session should be removed once its group is empty")
	}
	if settler.settlements() != 1 {
		t.Fatalf("settlements = %d, want 1", settler.settlements())
	}
}

func TestTurnsAlternateAndBadMovesAreRejected(t *testing.T) {
	c, _, _ := newFakeCoordinator(t)
	a, b, id := startedGame(t, c, 10)
	ctx := context.Background()

	if err := c.PlayMove(ctx, b.conn, id, 0); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("O first: err = %v", err)
	}
	mustMove(t, c, a, id, 4)
	view, _ := c.Session(id)
	if view.CurrentTurn != "bob" {
		t.Fatalf("turn = %s, want bob", view.CurrentTurn)
	}
	if err := c.PlayMove(ctx, a.conn, id, 0); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("X twice: err = %v", err)
	}
	for _, pos := range []int{4, -1, 9} {
		if err := c.PlayMove(ctx, b.conn, id, pos); !errors.Is(err, ErrInvalidMove) {
			t.Fatalf("pos %d: err = %v", pos, err)
		}
	}
	stranger := newPlayer("mallory")
	if err := c.PlayMove(ctx, stranger.conn, id, 0); !errors.Is(err, ErrNotAPlayer) {
		t.Fatalf("stranger: err = %v", err)
	}
	if err := c.PlayMove(ctx, b.conn, "ttt-0-nobody", 0); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("unknown session: err = %v", err)
	}

	mustMove(t, c, b, id, 0)
	view, _ = c.Session(id)
	if view.CurrentTurn != "alice" {
		t.Fatalf("turn = %s, want alice", view.CurrentTurn)
	}
	if *view.Board[4] != "X" || *view.Board[0] != "O" || len(view.Board) != game.Cells {
		t.Fatalf("board = %v", view.Board)
	}
	ev, ok := a.out.last(EventBoardUpdated)
	if !ok {
		t.Fatal("no boardUpdated")
	}
	if lm := ev.Data.(BoardUpdated).LastMove; lm.Position != 0 || lm.Symbol != game.O || lm.Player != "name-bob" {
		t.Fatalf("lastMove = %+v", lm)
	}
}

func TestJoinRejections(t *testing.T) {
	c := NewCoordinator(staticFunds{"poor": 10}, &countingSettler{}, nil, Config{})
	ctx := context.Background()
	a := newPlayer("alice")
	id := mustCreate(t, c, a, 100)

	if err := c.JoinGame(ctx, a.conn, id); !errors.Is(err, ErrAlreadyInSession) {
		t.Fatalf("self join: err = %v", err)
	}
	if err := c.JoinGame(ctx, newPlayer("bob").conn, "ttt-1-ghost"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("missing: err = %v", err)
	}
	poor := newPlayer("poor")
	if err := c.JoinGame(ctx, poor.conn, id); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("poor join: err = %v", err)
	}
	if view, _ := c.Session(id); view.Status != StatusWaiting || len(view.Players) != 1 {
		t.Fatalf("session mutated by rejected join: %+v", view)
	}

	mustJoin(t, c, newPlayer("bob"), id)
	if err := c.JoinGame(ctx, newPlayer("carol").conn, id); !errors.Is(err, ErrNotJoinable) {
		t.Fatalf("late join: err = %v", err)
	}
}

func TestFailedStakeLeavesSessionWaiting(t *testing.T) {
	c, settler, _ := newFakeCoordinator(t)
	settler.pairErr = ledger.ErrInsufficientFunds
	a, b := newPlayer("alice"), newPlayer("bob")
	id := mustCreate(t, c, a, 100)

	c.Handle(context.Background(), b.conn, CmdJoinGame, rawJSON(t, map[string]any{"sessionId": id}))

	if ge := b.out.lastError(t); ge.Code != ErrInsufficientFunds.Error() || ge.Kind != KindFundsInsufficient {
		t.Fatalf("gameError = %+v", ge)
	}
	view, _ := c.Session(id)
	if view.Status != StatusWaiting {
		t.Fatalf("status = %s, want waiting", view.Status)
	}
	if games := c.OpenGames(); len(games) != 1 || games[0].SessionID != id {
		t.Fatalf("open games = %+v", games)
	}

	settler.pairErr = nil
	mustJoin(t, c, b, id)
	if a.out.count(EventGameStarted) != 1 {
		t.Fatal("creator did not see gameStarted")
	}
}

func TestCreateGameRules(t *testing.T) {
	c := NewCoordinator(staticFunds{"poor": 5}, &countingSettler{}, nil, Config{})
	ctx := context.Background()
	a := newPlayer("alice")
	mustCreate(t, c, a, 10)

	c.Handle(ctx, a.conn, CmdCreateGame, rawJSON(t, map[string]any{"wagerAmount": 10}))
	if ge := a.out.lastError(t); ge.Code != ErrAlreadyWaiting.Error() || ge.Message != "You already have a game waiting for players" {
		t.Fatalf("duplicate create error = %+v", ge)
	}

	poor := newPlayer("poor")
	c.Handle(ctx, poor.conn, CmdCreateGame, rawJSON(t, map[string]any{"wagerAmount": 10}))
	if ge := poor.out.lastError(t); ge.Kind != KindFundsInsufficient {
		t.Fatalf("poor create error = %+v", ge)
	}

	for _, payload := range []string{`{"wagerAmount":0}`, `{"wagerAmount":-5}`, `{"wagerAmount":1.5}`, `{"wagerAmount":"ten"}`, `{}`} {
		p := newPlayer("bob")
		c.Handle(ctx, p.conn, CmdCreateGame, []byte(payload))
		if ge := p.out.lastError(t); ge.Kind != KindValidation {
			t.Fatalf("payload %s: error = %+v", payload, ge)
		}
	}
	if st := c.Stats(); st.Waiting != 1 {
		t.Fatalf("waiting = %d, want 1", st.Waiting)
	}
}

func TestJoinLobbyListsOpenGamesAndCounts(t *testing.T) {
	c, _, _ := newFakeCoordinator(t)
	ctx := context.Background()
	a := newPlayer("alice")
	id := mustCreate(t, c, a, 25)

	b := newPlayer("bob")
	if err := c.JoinLobby(ctx, b.conn); err != nil {
		t.Fatalf("join lobby: %v", err)
	}
	ev, ok := b.out.last(EventAvailableGames)
	if !ok {
		t.Fatal("no availableGames")
	}
	games := ev.Data.(AvailableGames).Games
	if len(games) != 1 || games[0].SessionID != id || games[0].Creator != "name-alice" || games[0].Wager != 25 {
		t.Fatalf("games = %+v", games)
	}
	upd, _ := b.out.last(EventLobbyUpdate)
	if upd.Data.(LobbyUpdate).Players != 1 {
		t.Fatalf("lobby players = %+v", upd.Data)
	}

	mustJoin(t, c, b, id)
	if c.Stats().LobbySize != 0 {
		t.Fatal("joiner should have left the lobby")
	}
}

func TestJoinLobbyFromPlayingSessionForfeits(t *testing.T) {
	c, settler, _ := newFakeCoordinator(t)
	a, b, id := startedGame(t, c, 10)

	if err := c.JoinLobby(context.Background(), a.conn); err != nil {
		t.Fatalf("join lobby: %v", err)
	}
	if len(settler.credits) != 1 || settler.credits[0] != id+"|bob" {
		t.Fatalf("credits = %v", settler.credits)
	}
	if _, ok := b.out.last(EventGameWon); !ok {
		t.Fatal("bob should win by forfeit")
	}
}

func TestHandlerPanicIsContained(t *testing.T) {
	c, settler, _ := newFakeCoordinator(t)
	a, b := newPlayer("alice"), newPlayer("bob")
	id := mustCreate(t, c, a, 10)

	settler.onDebit = func() { panic("ledger exploded") }
	c.Handle(context.Background(), b.conn, CmdJoinGame, rawJSON(t, map[string]any{"sessionId": id}))
	if ge := b.out.lastError(t); ge.Code != ErrInternal.Error() {
		t.Fatalf("gameError = %+v", ge)
	}

	settler.onDebit = nil
	done := make(chan struct{})
	go func() {
		defer close(done)
		mustJoin(t, c, b, id)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("session lock was not released after panic")
	}
}

func TestUnknownEventAndMissingFields(t *testing.T) {
	c, _, _ := newFakeCoordinator(t)
	p := newPlayer("alice")
	ctx := context.Background()

	c.Handle(ctx, p.conn, "dance", nil)
	if ge := p.out.lastError(t); ge.Code != ErrUnknownCommand.Error() {
		t.Fatalf("unknown = %+v", ge)
	}
	c.Handle(ctx, p.conn, CmdJoinGame, []byte(`{}`))
	if ge := p.out.lastError(t); ge.Message != "Game ID is required" {
		t.Fatalf("missing id = %+v", ge)
	}
	c.Handle(ctx, p.conn, CmdPlayMove, []byte(`{"sessionId":"x"}`))
	if ge := p.out.lastError(t); ge.Code != ErrPositionRequired.Error() {
		t.Fatalf("missing position = %+v", ge)
	}
	c.Handle(ctx, p.conn, CmdLeaveGame, []byte(`{"sessionId":"x"}`))
	if ge := p.out.lastError(t); ge.Kind != KindNotFound {
		t.Fatalf("leave unknown = %+v", ge)
	}
}

func TestConcurrentJoinsDebitOnce(t *testing.T) {
	for i := 0; i < 50; i++ {
		c, settler, _ := newFakeCoordinator(t)
		id := mustCreate(t, c, newPlayer("alice"), 10)

		names := []string{"bob", "carol", "dave"}
		errs := make([]error, len(names))
		var wg sync.WaitGroup
		for j, name := range names {
			wg.Add(1)
			go func(j int, p player) {
				defer wg.Done()
				errs[j] = c.JoinGame(context.Background(), p.conn, id)
			}(j, newPlayer(name))
		}
		wg.Wait()

		joined := 0
		for _, err := range errs {
			switch {
			case err == nil:
				joined++
			case errors.Is(err, ErrNotJoinable), errors.Is(err, ErrSessionFull):
			default:
				t.Fatalf("unexpected join error: %v", err)
			}
		}
		if joined != 1 || settler.pairs != 1 {
			t.Fatalf("round %d: joined=%d pairs=%d, want 1 and 1", i, joined, settler.pairs)
		}
		if view, _ := c.Session(id); view.Status != StatusPlaying || len(view.Players) != 2 {
			t.Fatalf("round %d: session = %+v", i, view)
		}
	}
}

func TestUnaffordableJoinKeepsRunningGame(t *testing.T) {
	settler := &countingSettler{}
	c := NewCoordinator(staticFunds{"bob": 10}, settler, clock.NewMock(epoch), Config{})
	a, b, running := startedGame(t, c, 10)
	big := mustCreate(t, c, newPlayer("carol"), 500)

	c.Handle(context.Background(), b.conn, CmdJoinGame, rawJSON(t, map[string]any{"sessionId": big}))

	if ge := b.out.lastError(t); ge.Code != ErrInsufficientFunds.Error() {
		t.Fatalf("gameError = %+v", ge)
	}
	if view, _ := c.Session(running); view.Status != StatusPlaying || view.Winner != "" {
		t.Fatalf("running game touched by rejected join: %+v", view)
	}
	if settler.settlements() != 0 || a.out.count(EventPlayerLeft) != 0 {
		t.Fatalf("rejected join settled or announced a leave: credits=%v", settler.credits)
	}
	if view, _ := c.Session(big); len(view.Players) != 1 {
		t.Fatalf("target session mutated: %+v", view)
	}

	// bob still sits in the running game's group.
	mustMove(t, c, a, running, 0)
	if _, ok := b.out.last(EventBoardUpdated); !ok {
		t.Fatal("bob no longer receives updates for the running game")
	}
}

func TestBrokeCreatorLosesWaitingSession(t *testing.T) {
	rig := newLedgerRig(t)
	ctx := context.Background()
	watcher := newPlayer("watcher")
	if err := rig.coord.JoinLobby(ctx, watcher.conn); err != nil {
		t.Fatalf("join lobby: %v", err)
	}
	a := newPlayer("alice")
	id := mustCreate(t, rig.coord, a, 600)

	// alice stakes 600 in bob's game from a second connection.
	other := mustCreate(t, rig.coord, newPlayer("bob"), 600)
	mustJoin(t, rig.coord, newPlayer("alice"), other)
	if got := rig.balance(t, "alice"); got != 400 {
		t.Fatalf("alice = %d, want 400", got)
	}

	carol := newPlayer("carol")
	rig.coord.Handle(ctx, carol.conn, CmdJoinGame, rawJSON(t, map[string]any{"sessionId": id}))
	ge := carol.out.lastError(t)
	if ge.Code != ErrCreatorUnfunded.Error() || ge.Kind != KindStateConflict {
		t.Fatalf("gameError = %+v", ge)
	}
	if got := rig.balance(t, "carol"); got != 1000 {
		t.Fatalf("carol = %d, want 1000", got)
	}

	if _, ok := rig.coord.Session(id); ok {
		t.Fatal("unfunded session still registered")
	}
	for _, p := range []player{a, watcher} {
		ev, ok := p.out.last(EventGameRemoved)
		if !ok || ev.Data.(GameRemoved).SessionID != id {
			t.Fatalf("%s gameRemoved = %+v ok=%v", p.conn.UserID, ev, ok)
		}
	}
	for _, g := range rig.coord.OpenGames() {
		if g.SessionID == id {
			t.Fatal("unfunded session still listed")
		}
	}
	if err := rig.coord.JoinGame(ctx, newPlayer("dave").conn, id); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("later join: err = %v", err)
	}
}

func TestCreatorShortAtDebitLosesSession(t *testing.T) {
	funds := staticFunds{}
	settler := &countingSettler{pairErr: ledger.ErrInsufficientFunds}
	c := NewCoordinator(funds, settler, clock.NewMock(epoch), Config{})
	a := newPlayer("alice")
	id := mustCreate(t, c, a, 600)

	// The balance drops between the pre-check and the debit.
	settler.onDebit = func() { funds["alice"] = 400 }
	if err := c.JoinGame(context.Background(), newPlayer("carol").conn, id); !errors.Is(err, ErrCreatorUnfunded) {
		t.Fatalf("join: err = %v", err)
	}
	if _, ok := c.Session(id); ok {
		t.Fatal("session kept after the creator's stake failed")
	}
	if _, ok := a.out.last(EventGameRemoved); !ok {
		t.Fatal("creator was not told the game was removed")
	}
}

func TestCreateCollisionIsAConflict(t *testing.T) {
	c, settler, clk := newFakeCoordinator(t)
	a, _, id := startedGame(t, c, 10)

	// Same creator, same millisecond as the running game.
	c.Handle(context.Background(), a.conn, CmdCreateGame, rawJSON(t, map[string]any{"wagerAmount": 10}))
	ge := a.out.lastError(t)
	if ge.Code != ErrSessionConflict.Error() || ge.Message == errorMessages[ErrAlreadyWaiting] {
		t.Fatalf("gameError = %+v", ge)
	}
	if view, _ := c.Session(id); view.Status != StatusPlaying || settler.settlements() != 0 {
		t.Fatalf("running game touched by rejected create: %+v", view)
	}

	clk.Advance(time.Millisecond)
	if next := mustCreate(t, c, a, 10); next == id {
		t.Fatalf("reused session id %s", id)
	}
}

func TestRegistryRejectsTakenID(t *testing.T) {
	r := newRegistry()
	if err := r.insertWaiting(newSession("dup", Player{ID: "alice"}, 10, epoch)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := r.insertWaiting(newSession("dup", Player{ID: "bob"}, 10, epoch)); !errors.Is(err, ErrSessionConflict) {
		t.Fatalf("taken id: err = %v", err)
	}
	if err := r.insertWaiting(newSession("other", Player{ID: "alice"}, 10, epoch)); !errors.Is(err, ErrAlreadyWaiting) {
		t.Fatalf("second waiting: err = %v", err)
	}
}

func TestListingsDoNotWaitOnStakeCollection(t *testing.T) {
	c, settler, _ := newFakeCoordinator(t)
	ctx := context.Background()
	keep := mustCreate(t, c, newPlayer("carol"), 5)
	id := mustCreate(t, c, newPlayer("alice"), 10)

	entered, release := make(chan struct{}), make(chan struct{})
	settler.onDebit = func() {
		close(entered)
		<-release
	}
	joined := make(chan error, 1)
	go func() { joined <- c.JoinGame(ctx, newPlayer("bob").conn, id) }()
	<-entered

	type snapshot struct {
		games []GameListing
		stats Stats
		swept int
	}
	got := make(chan snapshot, 1)
	go func() { got <- snapshot{games: c.OpenGames(), stats: c.Stats(), swept: c.Sweep()} }()

	var snap snapshot
	select {
	case snap = <-got:
	case <-time.After(time.Second):
		close(release)
		t.Fatal("listings blocked on a session collecting stakes")
	}
	close(release)

	if len(snap.games) != 1 || snap.games[0].SessionID != keep {
		t.Fatalf("open games during debit = %+v", snap.games)
	}
	if snap.stats.Waiting != 2 || snap.swept != 0 {
		t.Fatalf("stats = %+v swept = %d", snap.stats, snap.swept)
	}
	if err := <-joined; err != nil {
		t.Fatalf("join: %v", err)
	}
	if st := c.Stats(); st.Playing != 1 || st.Waiting != 1 {
		t.Fatalf("stats after join = %+v", st)
	}
}
