package giftcard

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// State is the derived lifecycle state of a card. It is never stored:
// redemption is a flag, expiry is a time comparison at read time.
type State string

const (
	StateActive   State = "active"
	StateRedeemed State = "redeemed"
	StateExpired  State = "expired"
)

// GiftCard is a bearer instrument: the code itself is the proof of the
// right to redeem. Amount and code are immutable after creation.
type GiftCard struct {
	Code           string        `db:"code"`
	Amount         int64         `db:"amount"`
	IssuerUserID   uuid.UUID     `db:"issuer_user_id"`
	RedeemerUserID uuid.NullUUID `db:"redeemer_user_id"`
	IsRedeemed     bool          `db:"is_redeemed"`
	ExpiresAt      time.Time     `db:"expires_at"`
	CreatedAt      time.Time     `db:"created_at"`
	RedeemedAt     sql.NullTime  `db:"redeemed_at"`
}

// StateAt derives the card state at the given instant. Redemption is
// terminal and wins over expiry: a card redeemed before its expiry stays
// redeemed forever.
func (c *GiftCard) StateAt(now time.Time) State {
	if c.IsRedeemed {
		return StateRedeemed
	}
	if now.After(c.ExpiresAt) {
		return StateExpired
	}
	return StateActive
}
