package wallet

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrInvalidAmount  = errors.New("invalid_amount")
)
