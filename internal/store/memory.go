package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is an in-process ledger with the same semantics as Store. It is
// used when no Postgres DSN is configured and in tests.
type Memory struct {
	mu       sync.Mutex
	accounts map[string]*Account
	entries  map[string][]LedgerEntry
	byKey    map[string]LedgerEntry
	now      func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[string]*Account),
		entries:  make(map[string][]LedgerEntry),
		byKey:    make(map[string]LedgerEntry),
		now:      time.Now,
	}
}

func (m *Memory) EnsureAccount(_ context.Context, userID string, initial int64) (bool, error) {
	if initial < 0 {
		return false, ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[userID]; ok {
		return false, nil
	}
	now := m.now()
	m.accounts[userID] = &Account{UserID: userID, Balance: initial, CreatedAt: now, UpdatedAt: now}
	if initial > 0 {
		m.appendLocked(LedgerEntry{
			ID:           NewID(),
			UserID:       userID,
			Type:         "deposit",
			Amount:       initial,
			BalanceAfter: initial,
			Reason:       "initial balance",
			IdemKey:      InitialDepositKey(userID),
			CreatedAt:    now,
		})
	}
	return true, nil
}

func (m *Memory) GetAccountBalance(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[userID]
	if !ok {
		return 0, ErrNotFound
	}
	return acct.Balance, nil
}

func (m *Memory) ListAccounts(_ context.Context, limit, offset int) ([]Account, error) {
	if limit <= 0 {
		limit = 50
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		all = append(all, *a)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UserID < all[j].UserID })
	return window(all, limit, offset), nil
}

func (m *Memory) Post(ctx context.Context, p Posting) (LedgerEntry, error) {
	out, err := m.PostBatch(ctx, []Posting{p})
	if err != nil {
		return LedgerEntry{}, err
	}
	return out[0], nil
}

func (m *Memory) PostBatch(_ context.Context, postings []Posting) ([]LedgerEntry, error) {
	if err := validatePostings(postings); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	// Dry run against a scratch copy of the touched balances so a failing
	// posting leaves every account untouched.
	scratch := make(map[string]int64)
	for _, p := range postings {
		if _, seen := m.byKey[p.IdemKey]; seen {
			continue
		}
		acct, ok := m.accounts[p.UserID]
		if !ok {
			return nil, ErrNotFound
		}
		bal, ok := scratch[p.UserID]
		if !ok {
			bal = acct.Balance
		}
		bal += p.Amount
		if bal < 0 {
			return nil, ErrInsufficientBalance
		}
		scratch[p.UserID] = bal
	}

	now := m.now()
	out := make([]LedgerEntry, len(postings))
	for i, p := range postings {
		if prev, seen := m.byKey[p.IdemKey]; seen {
			out[i] = prev
			continue
		}
		acct := m.accounts[p.UserID]
		acct.Balance += p.Amount
		acct.UpdatedAt = now
		e := LedgerEntry{
			ID:           NewID(),
			UserID:       p.UserID,
			Type:         p.Type,
			Amount:       p.Amount,
			BalanceAfter: acct.Balance,
			SessionID:    p.SessionID,
			Reason:       p.Reason,
			IdemKey:      p.IdemKey,
			CreatedAt:    now,
		}
		m.appendLocked(e)
		out[i] = e
	}
	return out, nil
}

func (m *Memory) ListLedgerEntries(_ context.Context, userID string, limit, offset int) ([]LedgerEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	src := m.entries[userID]
	newest := make([]LedgerEntry, len(src))
	for i, e := range src {
		newest[len(src)-1-i] = e
	}
	return window(newest, limit, offset), nil
}

func (m *Memory) CountLedgerEntries(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries[userID]), nil
}

func (m *Memory) ListSessionEntries(_ context.Context, sessionID string) ([]LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []LedgerEntry
	for _, list := range m.entries {
		for _, e := range list {
			if e.SessionID == sessionID {
				out = append(out, e)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) appendLocked(e LedgerEntry) {
	m.entries[e.UserID] = append(m.entries[e.UserID], e)
	m.byKey[e.IdemKey] = e
}

func window[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return []T{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return append([]T(nil), all[offset:end]...)
}
