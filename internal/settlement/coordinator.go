// Package settlement moves wagers through the ledger. Stakes are taken
// synchronously when a session starts; payouts and refunds go through an
// outbox drained by a worker pool with retry and a dead-letter sink. An
// optional journal lets a restarted process pick the outbox back up.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"wager-arena/internal/ledger"
	"wager-arena/internal/store"

	"github.com/rs/zerolog/log"
)

var ErrNotFailed = errors.New("settlement_not_failed")

type Coordinator struct {
	cfg    Config
	ledger Ledger
	sink   DeadLetterSink
	jnl    Journal

	dispatchCh chan Job
	retryQ     *retryQueue
	done       chan struct{}

	mu      sync.Mutex
	started bool
	pending map[string]Job
	failed  map[string]Job
}

func New(l Ledger, cfg Config) *Coordinator {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 200 * time.Millisecond
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 1024
	}
	c := &Coordinator{
		cfg:        cfg,
		ledger:     l,
		dispatchCh: make(chan Job, cfg.Buffer),
		done:       make(chan struct{}),
		pending:    map[string]Job{},
		failed:     map[string]Job{},
	}
	c.retryQ = newRetryQueue(c.dispatchCh, c.done)
	return c
}

// SetDeadLetterSink must be called before Start.
func (c *Coordinator) SetDeadLetterSink(s DeadLetterSink) {
	c.sink = s
}

// SetJournal must be called before Start.
func (c *Coordinator) SetJournal(j Journal) {
	c.jnl = j
}

func (c *Coordinator) journalPending(job Job) {
	if c.jnl != nil {
		c.jnl.JournalPending(job)
	}
}

func (c *Coordinator) journalDone(key string) {
	if c.jnl != nil {
		c.jnl.JournalDone(key)
	}
}

func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	for i := 0; i < c.cfg.Workers; i++ {
		go c.worker(ctx)
	}
	go func() {
		<-ctx.Done()
		close(c.done)
	}()
}

// DebitPair takes the wager from both players before a session starts.
func (c *Coordinator) DebitPair(ctx context.Context, sessionID, userA, userB string, wager int64) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	metricStakeTotal.Add(1)
	if _, err := c.ledger.DebitPair(ctx, sessionID, userA, userB, wager); err != nil {
		metricStakeFailedTotal.Add(1)
		return err
	}
	return nil
}

// CreditWinner records the payout owed to the winner of a session.
func (c *Coordinator) CreditWinner(sessionID, winnerID string, amount int64) {
	c.record(newJob(sessionID, winnerID, KindWin, amount, "won game "+sessionID))
}

// RefundDraw records a wager refund for both players of a drawn session.
func (c *Coordinator) RefundDraw(sessionID, userA, userB string, wager int64) {
	reason := "draw refund for game " + sessionID
	c.record(newJob(sessionID, userA, KindRefund, wager, reason))
	c.record(newJob(sessionID, userB, KindRefund, wager, reason))
}

func newJob(sessionID, userID string, kind Kind, amount int64, reason string) Job {
	return Job{
		ID:        store.NewID(),
		Key:       ledger.IdemKey(sessionID, kind.entryType(), userID),
		SessionID: sessionID,
		UserID:    userID,
		Kind:      kind,
		Amount:    amount,
		Reason:    reason,
		CreatedAt: time.Now(),
	}
}

func (c *Coordinator) record(job Job) {
	c.mu.Lock()
	_, inFlight := c.pending[job.Key]
	_, dead := c.failed[job.Key]
	if inFlight || dead {
		c.mu.Unlock()
		metricDuplicateTotal.Add(1)
		log.Warn().Str("session_id", job.SessionID).Str("user_id", job.UserID).Str("kind", string(job.Kind)).Msg("duplicate settlement intent ignored")
		return
	}
	c.pending[job.Key] = job
	metricPendingLen.Set(int64(len(c.pending)))
	c.mu.Unlock()

	metricQueuedTotal.Add(1)
	c.journalPending(job)
	c.dispatch(job)
}

// dispatch never blocks the caller, who may be holding a session lock.
func (c *Coordinator) dispatch(job Job) {
	select {
	case c.dispatchCh <- job:
		metricQueueLen.Set(int64(len(c.dispatchCh)))
	default:
		c.retryQ.Enqueue(job, c.cfg.RetryBase)
	}
}

func (c *Coordinator) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-c.dispatchCh:
			metricQueueLen.Set(int64(len(c.dispatchCh)))
			c.processJob(ctx, job)
		}
	}
}

func (c *Coordinator) processJob(ctx context.Context, job Job) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	_, err := c.ledger.Credit(callCtx, job.UserID, job.Amount, job.Reason, job.SessionID, job.Kind.entryType())
	cancel()
	if err == nil {
		c.mu.Lock()
		delete(c.pending, job.Key)
		metricPendingLen.Set(int64(len(c.pending)))
		c.mu.Unlock()
		c.journalDone(job.Key)
		metricAppliedTotal.Add(1)
		log.Info().Str("session_id", job.SessionID).Str("user_id", job.UserID).Str("kind", string(job.Kind)).Int64("amount", job.Amount).Msg("settlement applied")
		return
	}
	job.LastError = err.Error()
	if errors.Is(err, ledger.ErrInvalidAmount) {
		c.deadLetter(ctx, job)
		return
	}
	c.retryOrDeadLetter(ctx, job)
}

func (c *Coordinator) retryOrDeadLetter(ctx context.Context, job Job) {
	if job.Attempt >= c.cfg.RetryMax {
		c.deadLetter(ctx, job)
		return
	}
	job.Attempt++
	metricRetryTotal.Add(1)
	delay := c.cfg.RetryBase * time.Duration(1<<(job.Attempt-1))
	log.Warn().Str("session_id", job.SessionID).Str("user_id", job.UserID).Int("attempt", job.Attempt).Dur("delay", delay).Str("error", job.LastError).Msg("settlement retry scheduled")
	c.retryQ.Enqueue(job, delay)
}

func (c *Coordinator) deadLetter(ctx context.Context, job Job) {
	job.FailedAt = time.Now()
	c.mu.Lock()
	delete(c.pending, job.Key)
	c.failed[job.Key] = job
	metricPendingLen.Set(int64(len(c.pending)))
	c.mu.Unlock()

	c.journalDone(job.Key)
	metricDeadLetterTotal.Add(1)
	log.Error().Str("session_id", job.SessionID).Str("user_id", job.UserID).Str("kind", string(job.Kind)).Int64("amount", job.Amount).Int("attempts", job.Attempt+1).Str("error", job.LastError).Msg("settlement dead-lettered")
	if c.sink == nil {
		return
	}
	sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Timeout)
	defer cancel()
	if err := c.sink.PutDeadLetter(sinkCtx, job); err != nil {
		log.Error().Err(err).Str("key", job.Key).Msg("dead-letter sink write failed")
	}
}

// Pending lists jobs that are queued or waiting for a retry.
func (c *Coordinator) Pending() []Job {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sortedJobs(c.pending)
}

// Failed lists dead-lettered jobs.
func (c *Coordinator) Failed() []Job {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sortedJobs(c.failed)
}

// Replay moves a dead-lettered job back into the outbox with a fresh retry
// budget. The ledger idempotency key guarantees a replay cannot pay twice.
func (c *Coordinator) Replay(key string) error {
	c.mu.Lock()
	job, ok := c.failed[key]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFailed, key)
	}
	delete(c.failed, key)
	job.Attempt = 0
	job.LastError = ""
	job.FailedAt = time.Time{}
	c.pending[key] = job
	metricPendingLen.Set(int64(len(c.pending)))
	c.mu.Unlock()

	metricReplayedTotal.Add(1)
	log.Info().Str("key", key).Msg("settlement replay requested")
	c.journalPending(job)
	c.dispatch(job)
	return nil
}

// Restore reloads outbox records left by a previous process. Dead letters
// go back to Failed and pending jobs are dispatched again; keys already
// known are skipped. It returns how many pending jobs were queued.
func (c *Coordinator) Restore(pending, failed []Job) int {
	c.mu.Lock()
	known := func(key string) bool {
		_, p := c.pending[key]
		_, f := c.failed[key]
		return p || f
	}
	for _, job := range failed {
		if !known(job.Key) {
			c.failed[job.Key] = job
		}
	}
	var queue []Job
	for _, job := range pending {
		if known(job.Key) {
			continue
		}
		c.pending[job.Key] = job
		queue = append(queue, job)
	}
	metricPendingLen.Set(int64(len(c.pending)))
	c.mu.Unlock()

	for _, job := range queue {
		c.dispatch(job)
	}
	if len(queue) > 0 || len(failed) > 0 {
		log.Info().Int("pending", len(queue)).Int("failed", len(failed)).Msg("settlement outbox restored")
	}
	return len(queue)
}

// ReplayAll replays every dead-lettered job and returns how many were queued.
func (c *Coordinator) ReplayAll() int {
	n := 0
	for _, job := range c.Failed() {
		if err := c.Replay(job.Key); err == nil {
			n++
		}
	}
	return n
}

// WaitIdle blocks until the outbox is empty or ctx ends.
func (c *Coordinator) WaitIdle(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		c.mu.Lock()
		n := len(c.pending)
		c.mu.Unlock()
		if n == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func sortedJobs(m map[string]Job) []Job {
	out := make([]Job, 0, len(m))
	for _, j := range m {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out
}
