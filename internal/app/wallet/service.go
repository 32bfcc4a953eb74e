// Package wallet serves balance reads, history and admin funding on top of
// the ledger.
package wallet

import (
	"context"
	"errors"
	"strings"

	"wager-arena/internal/ledger"
	"wager-arena/internal/store"
)

type Service struct {
	ledger *ledger.Ledger
}

func NewService(l *ledger.Ledger) *Service {
	return &Service{ledger: l}
}

// Wallet returns the caller's balance, opening the account on first use.
func (s *Service) Wallet(ctx context.Context, userID string) (*WalletResponse, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidRequest
	}
	bal, err := s.ledger.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &WalletResponse{UserID: userID, Balance: bal}, nil
}

func (s *Service) Transactions(ctx context.Context, userID string, page, limit int) (*TransactionsResponse, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidRequest
	}
	p, err := s.ledger.History(ctx, userID, page, limit)
	if err != nil {
		return nil, err
	}
	items := make([]TransactionItem, 0, len(p.Entries))
	for _, e := range p.Entries {
		items = append(items, toItem(e))
	}
	return &TransactionsResponse{
		Items:      items,
		Pagination: Pagination{Page: p.Page, Limit: p.Limit, Total: p.Total, TotalPages: p.TotalPages},
	}, nil
}

func (s *Service) TopUp(ctx context.Context, userID string, amount int64, description string) (*TopUpResponse, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidRequest
	}
	entry, err := s.ledger.TopUp(ctx, userID, amount, strings.TrimSpace(description))
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidAmount) {
			return nil, ErrInvalidAmount
		}
		return nil, err
	}
	return &TopUpResponse{OK: true, Balance: entry.BalanceAfter, Transaction: toItem(entry)}, nil
}

func toItem(e store.LedgerEntry) TransactionItem {
	return TransactionItem{
		ID:           e.ID,
		Type:         e.Type,
		Amount:       e.Amount,
		BalanceAfter: e.BalanceAfter,
		SessionID:    e.SessionID,
		Description:  e.Reason,
		CreatedAt:    e.CreatedAt,
	}
}
