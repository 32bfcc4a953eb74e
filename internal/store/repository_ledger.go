package store

import (
	"context"
	"errors"
	"sort"

	"github.com/jackc/pgx/v5"
)

const ledgerEntryColumns = `id, user_id, type, amount, balance_after, session_id, reason, idem_key, created_at`

// PostBatch applies every posting in one transaction. Accounts are locked in
// user id order so two batches touching the same pair cannot deadlock. If
// any posting fails, none are applied.
func (s *Store) PostBatch(ctx context.Context, postings []Posting) ([]LedgerEntry, error) {
	if err := validatePostings(postings); err != nil {
		return nil, err
	}
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	out := make([]LedgerEntry, len(postings))
	for _, i := range lockOrder(postings) {
		entry, err := postTx(ctx, tx, postings[i])
		if err != nil {
			return nil, err
		}
		out[i] = entry
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Post(ctx context.Context, p Posting) (LedgerEntry, error) {
	out, err := s.PostBatch(ctx, []Posting{p})
	if err != nil {
		return LedgerEntry{}, err
	}
	return out[0], nil
}

func postTx(ctx context.Context, tx pgx.Tx, p Posting) (LedgerEntry, error) {
	var bal int64
	if err := tx.QueryRow(ctx,
		`SELECT balance FROM accounts WHERE user_id = $1 FOR UPDATE`, p.UserID).Scan(&bal); err != nil {
		return LedgerEntry{}, mapNotFound(err)
	}

	// The account row lock serializes postings for this user, so the key
	// lookup cannot race a concurrent insert of the same key.
	existing, err := scanEntry(tx.QueryRow(ctx,
		`SELECT `+ledgerEntryColumns+` FROM ledger_entries WHERE idem_key = $1`, p.IdemKey))
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return LedgerEntry{}, err
	}

	newBal := bal + p.Amount
	if newBal < 0 {
		return LedgerEntry{}, ErrInsufficientBalance
	}
	if _, err := tx.Exec(ctx,
		`UPDATE accounts SET balance = $1, updated_at = now() WHERE user_id = $2`, newBal, p.UserID); err != nil {
		return LedgerEntry{}, err
	}
	return scanEntry(tx.QueryRow(ctx,
		`INSERT INTO ledger_entries (id, user_id, type, amount, balance_after, session_id, reason, idem_key)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+ledgerEntryColumns,
		NewID(), p.UserID, p.Type, p.Amount, newBal, p.SessionID, p.Reason, p.IdemKey))
}

// ListLedgerEntries returns a user's entries, newest first.
func (s *Store) ListLedgerEntries(ctx context.Context, userID string, limit, offset int) ([]LedgerEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.Pool.Query(ctx,
		`SELECT `+ledgerEntryColumns+` FROM ledger_entries WHERE user_id = $1 ORDER BY id DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]LedgerEntry, 0, limit)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) CountLedgerEntries(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.Pool.QueryRow(ctx, `SELECT count(*) FROM ledger_entries WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

// ListSessionEntries returns every entry caused by one session, oldest first.
func (s *Store) ListSessionEntries(ctx context.Context, sessionID string) ([]LedgerEntry, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT `+ledgerEntryColumns+` FROM ledger_entries WHERE session_id = $1 ORDER BY id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEntry(row pgx.Row) (LedgerEntry, error) {
	var e LedgerEntry
	err := row.Scan(&e.ID, &e.UserID, &e.Type, &e.Amount, &e.BalanceAfter, &e.SessionID, &e.Reason, &e.IdemKey, &e.CreatedAt)
	if err != nil {
		return LedgerEntry{}, mapNotFound(err)
	}
	return e, nil
}

func validatePostings(postings []Posting) error {
	if len(postings) == 0 {
		return ErrInvalidAmount
	}
	for _, p := range postings {
		if p.Amount == 0 {
			return ErrInvalidAmount
		}
		if p.IdemKey == "" {
			return ErrIdemKeyRequired
		}
	}
	return nil
}

// lockOrder returns posting indexes sorted by user id.
func lockOrder(postings []Posting) []int {
	idx := make([]int, len(postings))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return postings[idx[a]].UserID < postings[idx[b]].UserID
	})
	return idx
}
