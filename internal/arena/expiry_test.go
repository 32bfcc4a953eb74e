package arena

import (
	"context"
	"testing"
	"time"
)

func TestWaitingSessionExpires(t *testing.T) {
	c, settler, clk := newFakeCoordinator(t)
	watcher := newPlayer("watcher")
	if err := c.JoinLobby(t.Context(), watcher.conn); err != nil {
		t.Fatalf("join lobby: %v", err)
	}
	id := mustCreate(t, c, newPlayer("alice"), 10)

	clk.Advance(29 * time.Minute)
	if _, ok := c.Session(id); !ok {
		t.Fatal("session expired early")
	}
	clk.Advance(time.Minute)
	if _, ok := c.Session(id); ok {
		t.Fatal("waiting session should be gone after 30 minutes")
	}
	ev, ok := watcher.out.last(EventGameRemoved)
	if !ok || ev.Data.(GameRemoved).SessionID != id {
		t.Fatalf("gameRemoved = %+v ok=%v", ev, ok)
	}
	if settler.settlements() != 0 || settler.pairs != 0 {
		t.Fatal("expiry of a waiting session must not touch the ledger")
	}

	// The creator may open a new game once the old one is gone.
	mustCreate(t, c, newPlayer("alice"), 10)
}

func TestStartCancelsWaitingTimer(t *testing.T) {
	c, _, clk := newFakeCoordinator(t)
	_, _, id := startedGame(t, c, 10)
	if n := c.sched.pending(); n != 0 {
		t.Fatalf("pending timers = %d, want 0", n)
	}
	clk.Advance(2 * time.Hour)
	view, ok := c.Session(id)
	if !ok || view.Status != StatusPlaying {
		t.Fatalf("playing session must never expire: %+v ok=%v", view, ok)
	}
}

func TestFinishedSessionExpires(t *testing.T) {
	c, _, clk := newFakeCoordinator(t)
	a, b, id := startedGame(t, c, 10)
	mustMove(t, c, a, id, 0)
	mustMove(t, c, b, id, 3)
	mustMove(t, c, a, id, 1)
	mustMove(t, c, b, id, 4)
	mustMove(t, c, a, id, 2)

	clk.Advance(9 * time.Minute)
	if view, ok := c.Session(id); !ok || view.Status != StatusFinished {
		t.Fatalf("finished session gone early: %+v ok=%v", view, ok)
	}
	clk.Advance(time.Minute)
	if _, ok := c.Session(id); ok {
		t.Fatal("finished session should expire after 10 minutes")
	}
	if b.out.count(EventGameRemoved) != 0 {
		t.Fatal("finished sessions are not announced to the lobby")
	}
}

func TestSweepBacksUpTimers(t *testing.T) {
	c, _, clk := newFakeCoordinator(t)
	id := mustCreate(t, c, newPlayer("alice"), 10)
	keep := mustCreate(t, c, newPlayer("bob"), 10)

	// Lose the timer and move the clock without firing anything.
	c.sched.cancel(id)
	c.sched.cancel(keep)
	clk.Set(epoch.Add(15 * time.Minute))
	if n := c.Sweep(); n != 0 {
		t.Fatalf("sweep removed %d fresh sessions", n)
	}
	clk.Set(epoch.Add(31 * time.Minute))
	if n := c.Sweep(); n != 2 {
		t.Fatalf("sweep removed %d, want 2", n)
	}
	if c.Stats().Waiting != 0 {
		t.Fatal("stale sessions still registered")
	}
}

func TestJanitorRunsOnInjectedClock(t *testing.T) {
	c, _, clk := newFakeCoordinator(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	id := mustCreate(t, c, newPlayer("alice"), 10)
	c.sched.cancel(id)
	c.StartJanitor(ctx, 10*time.Minute)

	for i := 0; i < 2; i++ {
		clk.Advance(10 * time.Minute)
		if _, ok := c.Session(id); !ok {
			t.Fatalf("session swept early at pass %d", i+1)
		}
	}
	clk.Advance(10 * time.Minute)
	if _, ok := c.Session(id); ok {
		t.Fatal("janitor did not remove the stale session")
	}

	cancel()
	deadline := time.Now().Add(time.Second)
	for clk.Pending() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("janitor timer still armed after cancel")
		}
		time.Sleep(time.Millisecond)
	}
}
