package giftcard

import "errors"

var (
	// ErrInvalidCode is returned when no card exists for a code
	ErrInvalidCode = errors.New("invalid gift card code")

	// ErrAlreadyRedeemed is returned when the card was redeemed before
	ErrAlreadyRedeemed = errors.New("gift card already redeemed")

	// ErrExpired is returned when the card expired before redemption
	ErrExpired = errors.New("gift card expired")

	// ErrDuplicateCode is returned on a code collision at insert time;
	// callers regenerate and retry
	ErrDuplicateCode = errors.New("gift card code already exists")

	// ErrCodeGenerationExhausted is returned when collision retries run out
	ErrCodeGenerationExhausted = errors.New("gift card code generation exhausted")

	ErrInternal = errors.New("internal error")
)
