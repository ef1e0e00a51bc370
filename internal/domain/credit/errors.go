package credit

import "errors"

var (
	// ErrInvalidAmount is returned when amount is <= 0
	ErrInvalidAmount = errors.New("invalid amount: must be greater than 0")

	// ErrInsufficientCredits is returned when a debit exceeds the balance
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrConflict is returned when optimistic-concurrency retries run out
	ErrConflict = errors.New("concurrent update conflict")

	// ErrInvalidCursor is returned for an unparseable pagination cursor
	ErrInvalidCursor = errors.New("invalid pagination cursor")

	ErrInternal = errors.New("internal error")
)
