package ledger

import (
	"context"
	"errors"
	"fmt"

	"wager-arena/internal/store"
)

type EntryType string

const (
	EntryDeposit EntryType = "deposit"
	EntryBet     EntryType = "bet"
	EntryWin     EntryType = "win"
	EntryRefund  EntryType = "refund"
	EntryBonus   EntryType = "bonus"
)

var ErrInsufficientFunds = errors.New("insufficient_funds")
var ErrInvalidAmount = errors.New("invalid_amount")

// Backend is the storage a Ledger posts to. Both store.Store and
// store.Memory implement it.
type Backend interface {
	EnsureAccount(ctx context.Context, userID string, initial int64) (bool, error)
	GetAccountBalance(ctx context.Context, userID string) (int64, error)
	PostBatch(ctx context.Context, postings []store.Posting) ([]store.LedgerEntry, error)
	ListLedgerEntries(ctx context.Context, userID string, limit, offset int) ([]store.LedgerEntry, error)
	CountLedgerEntries(ctx context.Context, userID string) (int, error)
}

// Ledger is the wallet facade used by the arena. Every user touched through
// it gets an account on first use, opened with the initial balance.
type Ledger struct {
	backend Backend
	initial int64
}

func New(b Backend, initialBalance int64) *Ledger {
	return &Ledger{backend: b, initial: initialBalance}
}

// Balance returns the user's balance, opening the account if needed.
func (l *Ledger) Balance(ctx context.Context, userID string) (int64, error) {
	if err := l.ensure(ctx, userID); err != nil {
		return 0, err
	}
	return l.backend.GetAccountBalance(ctx, userID)
}

func (l *Ledger) HasSufficientFunds(ctx context.Context, userID string, amount int64) (bool, error) {
	bal, err := l.Balance(ctx, userID)
	if err != nil {
		return false, err
	}
	return bal >= amount, nil
}

func (l *Ledger) Debit(ctx context.Context, userID string, amount int64, reason, sessionID string, typ EntryType) (store.LedgerEntry, error) {
	if amount <= 0 {
		return store.LedgerEntry{}, ErrInvalidAmount
	}
	return l.post(ctx, posting(userID, -amount, reason, sessionID, typ))
}

func (l *Ledger) Credit(ctx context.Context, userID string, amount int64, reason, sessionID string, typ EntryType) (store.LedgerEntry, error) {
	if amount <= 0 {
		return store.LedgerEntry{}, ErrInvalidAmount
	}
	return l.post(ctx, posting(userID, amount, reason, sessionID, typ))
}

// DebitPair takes the same stake from both players in one transaction.
// Either both debits land or neither does.
func (l *Ledger) DebitPair(ctx context.Context, sessionID, userA, userB string, amount int64) ([2]store.LedgerEntry, error) {
	var out [2]store.LedgerEntry
	if amount <= 0 {
		return out, ErrInvalidAmount
	}
	if userA == userB {
		return out, fmt.Errorf("debit pair: same user %q on both sides", userA)
	}
	for _, u := range []string{userA, userB} {
		if err := l.ensure(ctx, u); err != nil {
			return out, err
		}
	}
	reason := "wager for game " + sessionID
	entries, err := l.backend.PostBatch(ctx, []store.Posting{
		posting(userA, -amount, reason, sessionID, EntryBet),
		posting(userB, -amount, reason, sessionID, EntryBet),
	})
	if err != nil {
		return out, mapErr(err)
	}
	copy(out[:], entries)
	return out, nil
}

// TopUp credits a bonus outside any session. Each call is a distinct entry.
func (l *Ledger) TopUp(ctx context.Context, userID string, amount int64, description string) (store.LedgerEntry, error) {
	if amount <= 0 {
		return store.LedgerEntry{}, ErrInvalidAmount
	}
	if description == "" {
		description = "admin top-up"
	}
	p := store.Posting{
		UserID:  userID,
		Amount:  amount,
		Type:    string(EntryBonus),
		Reason:  description,
		IdemKey: "topup:" + store.NewID(),
	}
	return l.post(ctx, p)
}

// Page is one page of a user's history, newest first.
type Page struct {
	Entries    []store.LedgerEntry
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

const DefaultPageLimit = 10

func (l *Ledger) History(ctx context.Context, userID string, page, limit int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > 100 {
		limit = 100
	}
	if err := l.ensure(ctx, userID); err != nil {
		return Page{}, err
	}
	entries, err := l.backend.ListLedgerEntries(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return Page{}, err
	}
	total, err := l.backend.CountLedgerEntries(ctx, userID)
	if err != nil {
		return Page{}, err
	}
	return Page{
		Entries:    entries,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

// IdemKey is the idempotency key of a session-scoped ledger write. One user
// can be debited, credited or refunded at most once per session.
func IdemKey(sessionID string, typ EntryType, userID string) string {
	return sessionID + ":" + string(typ) + ":" + userID
}

func posting(userID string, amount int64, reason, sessionID string, typ EntryType) store.Posting {
	key := IdemKey(sessionID, typ, userID)
	if sessionID == "" {
		key = string(typ) + ":" + store.NewID()
	}
	return store.Posting{
		UserID:    userID,
		Amount:    amount,
		Type:      string(typ),
		SessionID: sessionID,
		Reason:    reason,
		IdemKey:   key,
	}
}

func (l *Ledger) post(ctx context.Context, p store.Posting) (store.LedgerEntry, error) {
	if err := l.ensure(ctx, p.UserID); err != nil {
		return store.LedgerEntry{}, err
	}
	entries, err := l.backend.PostBatch(ctx, []store.Posting{p})
	if err != nil {
		return store.LedgerEntry{}, mapErr(err)
	}
	return entries[0], nil
}

func (l *Ledger) ensure(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("ledger: empty user id")
	}
	_, err := l.backend.EnsureAccount(ctx, userID, l.initial)
	return err
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, store.ErrInsufficientBalance):
		return ErrInsufficientFunds
	case errors.Is(err, store.ErrInvalidAmount):
		return ErrInvalidAmount
	default:
		return err
	}
}
