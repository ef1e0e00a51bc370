package giftcard

import "time"

// CardResponse represents a gift card in API responses. The redeemer is
// intentionally omitted: the code is a bearer instrument and the issuer
// only needs to know whether it was used.
type CardResponse struct {
	Code       string     `json:"code"`
	Amount     int64      `json:"amount"`
	State      string     `json:"state"`
	ExpiresAt  time.Time  `json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`
	RedeemedAt *time.Time `json:"redeemed_at,omitempty"`
}

// CardResponseFromEntity converts a card to its API shape
func CardResponseFromEntity(c *GiftCard, now time.Time) *CardResponse {
	resp := &CardResponse{
		Code:      c.Code,
		Amount:    c.Amount,
		State:     string(c.StateAt(now)),
		ExpiresAt: c.ExpiresAt,
		CreatedAt: c.CreatedAt,
	}
	if c.RedeemedAt.Valid {
		t := c.RedeemedAt.Time
		resp.RedeemedAt = &t
	}
	return resp
}
