package wallet

import "time"

type WalletResponse struct {
	UserID  string `json:"user_id"`
	Balance int64  `json:"balance"`
}

type TransactionItem struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Amount       int64     `json:"amount"`
	BalanceAfter int64     `json:"balance_after"`
	SessionID    string    `json:"session_id,omitempty"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type TransactionsResponse struct {
	Items      []TransactionItem `json:"items"`
	Pagination Pagination        `json:"pagination"`
}

type TopUpResponse struct {
	OK          bool            `json:"ok"`
	Balance     int64           `json:"balance"`
	Transaction TransactionItem `json:"transaction"`
}
