package settlement

import (
	"context"
	"time"

	"wager-arena/internal/ledger"
	"wager-arena/internal/store"
)

type Kind string

const (
	KindWin    Kind = "win"
	KindRefund Kind = "refund"
)

func (k Kind) entryType() ledger.EntryType {
	if k == KindRefund {
		return ledger.EntryRefund
	}
	return ledger.EntryWin
}

// Job is one outbox record: a credit owed to a user because a session ended.
type Job struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Kind      Kind      `json:"kind"`
	Amount    int64     `json:"amount"`
	Reason    string    `json:"reason"`
	Attempt   int       `json:"attempt"`
	LastError string    `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	FailedAt  time.Time `json:"failed_at,omitempty"`
}

// Ledger is the subset of *ledger.Ledger settlement drives.
type Ledger interface {
	DebitPair(ctx context.Context, sessionID, userA, userB string, amount int64) ([2]store.LedgerEntry, error)
	Credit(ctx context.Context, userID string, amount int64, reason, sessionID string, typ ledger.EntryType) (store.LedgerEntry, error)
}

// DeadLetterSink receives jobs that exhausted their retries.
type DeadLetterSink interface {
	PutDeadLetter(ctx context.Context, job Job) error
}

// Journal keeps a durable copy of the outbox. Calls arrive on hot paths and
// must not block; a lost entry only costs a replay, which the ledger key
// makes harmless.
type Journal interface {
	JournalPending(job Job)
	JournalDone(key string)
}

type Config struct {
	Workers   int
	RetryMax  int
	RetryBase time.Duration
	Timeout   time.Duration
	Buffer    int
}
