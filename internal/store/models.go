package store

import "time"

type Account struct {
	UserID    string
	Balance   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LedgerEntry is one signed balance movement. Debits carry a negative Amount.
type LedgerEntry struct {
	ID           string
	UserID       string
	Type         string
	Amount       int64
	BalanceAfter int64
	SessionID    string
	Reason       string
	IdemKey      string
	CreatedAt    time.Time
}

// Posting is a requested balance movement. A posting whose IdemKey has
// already been applied returns the original entry and changes nothing.
type Posting struct {
	UserID    string
	Amount    int64
	Type      string
	SessionID string
	Reason    string
	IdemKey   string
}

// InitialDepositKey is the idempotency key of the opening deposit.
func InitialDepositKey(userID string) string { return "open:" + userID }
