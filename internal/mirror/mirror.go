// Package mirror copies arena lifecycle changes, the settlement outbox and
// its dead letters into Redis so they survive a restart and can be read by
// other processes. Live play never reads from it.
package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"wager-arena/internal/arena"
	"wager-arena/internal/settlement"
)

const (
	keyPrefix      = "ttt:"
	resultsKey     = keyPrefix + "results"
	deadLettersKey = keyPrefix + "settlement:failed"
	pendingKey     = keyPrefix + "settlement:pending"

	defaultQueueSize = 256
)

var ErrNotFound = errors.New("not_found")

type Config struct {
	URL        string
	SessionTTL time.Duration
	ResultsMax int64
	QueueSize  int
}

func (c Config) withDefaults() Config {
	if c.SessionTTL <= 0 {
		c.SessionTTL = time.Hour
	}
	if c.ResultsMax <= 0 {
		c.ResultsMax = 100
	}
	if c.QueueSize <= 0 {
		c.QueueSize = defaultQueueSize
	}
	return c
}

// Mirror implements arena.LifecycleObserver, settlement.DeadLetterSink and
// settlement.Journal.
// Observer callbacks arrive under a session lock, so they are queued and
// written by a single goroutine, which keeps per-session order.
type Mirror struct {
	client *redis.Client
	cfg    Config
	ops    chan op

	closeOnce sync.Once
	done      chan struct{}
}

var (
	_ arena.LifecycleObserver   = (*Mirror)(nil)
	_ settlement.DeadLetterSink = (*Mirror)(nil)
	_ settlement.Journal        = (*Mirror)(nil)
)

type op struct {
	name  string
	apply func(ctx context.Context) error
	ack   chan struct{}
}

func New(cfg Config) (*Mirror, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewWithClient(client, cfg), nil
}

// NewWithClient wraps an existing client. Tests point it at miniredis.
func NewWithClient(client *redis.Client, cfg Config) *Mirror {
	cfg = cfg.withDefaults()
	return &Mirror{
		client: client,
		cfg:    cfg,
		ops:    make(chan op, cfg.QueueSize),
		done:   make(chan struct{}),
	}
}

// Start runs the writer until ctx ends or Close is called.
func (m *Mirror) Start(ctx context.Context) {
	go m.run(ctx)
}

func (m *Mirror) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case o := <-m.ops:
			if o.apply != nil {
				if err := o.apply(ctx); err != nil {
					metricWriteErrors.Add(1)
					log.Warn().Err(err).Str("op", o.name).Msg("mirror write failed")
				} else {
					metricWrites.Add(1)
				}
			}
			if o.ack != nil {
				close(o.ack)
			}
		}
	}
}

func (m *Mirror) Close() error {
	m.closeOnce.Do(func() { close(m.done) })
	return m.client.Close()
}

// Flush waits until every op queued before the call has been written.
func (m *Mirror) Flush(ctx context.Context) error {
	ack := make(chan struct{})
	select {
	case m.ops <- op{name: "flush", ack: ack}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Mirror) enqueue(name string, fn func(ctx context.Context) error) {
	select {
	case m.ops <- op{name: name, apply: fn}:
	default:
		metricDropped.Add(1)
		log.Warn().Str("op", name).Msg("mirror queue full; update dropped")
	}
}

func sessionKey(id string) string {
	return keyPrefix + "session:" + id
}

func (m *Mirror) putSession(ctx context.Context, view arena.SessionView) error {
	data, err := json.Marshal(view)
	if err != nil {
		return err
	}
	return m.client.Set(ctx, sessionKey(view.ID), data, m.cfg.SessionTTL).Err()
}

func (m *Mirror) OnSessionCreated(view arena.SessionView) {
	m.enqueue("session_created", func(ctx context.Context) error { return m.putSession(ctx, view) })
}

func (m *Mirror) OnSessionStarted(view arena.SessionView) {
	m.enqueue("session_started", func(ctx context.Context) error { return m.putSession(ctx, view) })
}

func (m *Mirror) OnSessionFinished(result arena.Result) {
	m.enqueue("session_finished", func(ctx context.Context) error {
		snapshot, err := json.Marshal(result.Session)
		if err != nil {
			return err
		}
		entry, err := json.Marshal(result)
		if err != nil {
			return err
		}
		pipe := m.client.TxPipeline()
		pipe.Set(ctx, sessionKey(result.Session.ID), snapshot, m.cfg.SessionTTL)
		pipe.LPush(ctx, resultsKey, entry)
		pipe.LTrim(ctx, resultsKey, 0, m.cfg.ResultsMax-1)
		_, err = pipe.Exec(ctx)
		return err
	})
}

func (m *Mirror) OnSessionRemoved(sessionID string) {
	m.enqueue("session_removed", func(ctx context.Context) error {
		return m.client.Del(ctx, sessionKey(sessionID)).Err()
	})
}

// Session returns the last mirrored snapshot of a session.
func (m *Mirror) Session(ctx context.Context, id string) (arena.SessionView, error) {
	data, err := m.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return arena.SessionView{}, ErrNotFound
		}
		return arena.SessionView{}, err
	}
	var view arena.SessionView
	if err := json.Unmarshal(data, &view); err != nil {
		return arena.SessionView{}, err
	}
	return view, nil
}

// RecentResults returns up to limit finished games, newest first.
func (m *Mirror) RecentResults(ctx context.Context, limit int64) ([]arena.Result, error) {
	if limit <= 0 || limit > m.cfg.ResultsMax {
		limit = m.cfg.ResultsMax
	}
	raw, err := m.client.LRange(ctx, resultsKey, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]arena.Result, 0, len(raw))
	for _, r := range raw {
		var res arena.Result
		if err := json.Unmarshal([]byte(r), &res); err != nil {
			log.Warn().Err(err).Msg("skipping malformed mirrored result")
			continue
		}
		out = append(out, res)
	}
	return out, nil
}

// PutDeadLetter stores a settlement job that exhausted its retries.
func (m *Mirror) PutDeadLetter(ctx context.Context, job settlement.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return m.client.HSet(ctx, deadLettersKey, job.Key, data).Err()
}

// DeadLetters lists the stored dead letters ordered by job id.
func (m *Mirror) DeadLetters(ctx context.Context) ([]settlement.Job, error) {
	return m.loadJobs(ctx, deadLettersKey)
}

// PendingJobs lists outbox jobs that were queued but not yet applied.
func (m *Mirror) PendingJobs(ctx context.Context) ([]settlement.Job, error) {
	return m.loadJobs(ctx, pendingKey)
}

// JournalPending records a queued job. The write goes through the writer
// queue so it keeps order with the matching JournalDone.
func (m *Mirror) JournalPending(job settlement.Job) {
	data, err := json.Marshal(job)
	if err != nil {
		log.Warn().Err(err).Str("key", job.Key).Msg("encode outbox job failed")
		return
	}
	m.enqueue("outbox_pending", func(ctx context.Context) error {
		return m.client.HSet(ctx, pendingKey, job.Key, data).Err()
	})
}

func (m *Mirror) JournalDone(key string) {
	m.enqueue("outbox_done", func(ctx context.Context) error {
		return m.client.HDel(ctx, pendingKey, key).Err()
	})
}

func (m *Mirror) loadJobs(ctx context.Context, hash string) ([]settlement.Job, error) {
	raw, err := m.client.HGetAll(ctx, hash).Result()
	if err != nil {
		return nil, err
	}
	out := make([]settlement.Job, 0, len(raw))
	for key, r := range raw {
		var job settlement.Job
		if err := json.Unmarshal([]byte(r), &job); err != nil {
			return nil, fmt.Errorf("decode %s %s: %w", hash, key, err)
		}
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ResolveDeadLetter drops a dead letter once it has been replayed.
func (m *Mirror) ResolveDeadLetter(ctx context.Context, key string) error {
	n, err := m.client.HDel(ctx, deadLettersKey, key).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
