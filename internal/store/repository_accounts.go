package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// EnsureAccount opens an account with an initial deposit unless it already
// exists. It reports whether the account was created by this call.
func (s *Store) EnsureAccount(ctx context.Context, userID string, initial int64) (bool, error) {
	if initial < 0 {
		return false, ErrInvalidAmount
	}
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`INSERT INTO accounts (user_id, balance) VALUES ($1, $2) ON CONFLICT (user_id) DO NOTHING`,
		userID, initial)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	if initial > 0 {
		if _, err := tx.Exec(ctx,
			`INSERT INTO ledger_entries (id, user_id, type, amount, balance_after, reason, idem_key)
			 VALUES ($1, $2, 'deposit', $3, $3, 'initial balance', $4)`,
			NewID(), userID, initial, InitialDepositKey(userID)); err != nil {
			return false, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) GetAccountBalance(ctx context.Context, userID string) (int64, error) {
	var bal int64
	err := s.Pool.QueryRow(ctx, `SELECT balance FROM accounts WHERE user_id = $1`, userID).Scan(&bal)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return bal, nil
}

func (s *Store) ListAccounts(ctx context.Context, limit, offset int) ([]Account, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx,
		`SELECT user_id, balance, created_at, updated_at FROM accounts ORDER BY user_id LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Account, 0, limit)
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.UserID, &a.Balance, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func mapNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
