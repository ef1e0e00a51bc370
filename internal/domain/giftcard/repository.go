package giftcard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const queryTimeout = 3 * time.Second

// Repository provides durable access to gift cards by code (unique index)
// and by issuer (secondary index).
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// InsertTx inserts a card inside the caller's transaction. The unique
// index on code is the collision detector: a duplicate comes back as
// ErrDuplicateCode and the caller regenerates.
func (r *Repository) InsertTx(ctx context.Context, tx *sqlx.Tx, card *GiftCard) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO gift_cards (code, amount, issuer_user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, card.Code, card.Amount, card.IssuerUserID, card.ExpiresAt, card.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateCode
		}
		return fmt.Errorf("%w: insert gift card", ErrInternal)
	}
	return nil
}

// MarkRedeemedTx flips a card to redeemed inside the caller's transaction.
// The conditional UPDATE only matches a card that is not yet redeemed and
// not expired; it is the sole defense against double redemption, so when
// two redemptions race exactly one sees a row. On zero rows the card is
// re-read in the same transaction to report the precise failure.
func (r *Repository) MarkRedeemedTx(ctx context.Context, tx *sqlx.Tx, code string, redeemerID uuid.UUID, now time.Time) (*GiftCard, error) {
	var card GiftCard
	err := tx.GetContext(ctx, &card, `
		UPDATE gift_cards
		SET is_redeemed = TRUE, redeemer_user_id = $2, redeemed_at = $3
		WHERE code = $1 AND is_redeemed = FALSE AND expires_at >= $3
		RETURNING code, amount, issuer_user_id, redeemer_user_id, is_redeemed, expires_at, created_at, redeemed_at
	`, code, redeemerID, now)
	if err == nil {
		return &card, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: mark redeemed", ErrInternal)
	}

	var existing GiftCard
	err = tx.GetContext(ctx, &existing, `
		SELECT code, amount, issuer_user_id, redeemer_user_id, is_redeemed, expires_at, created_at, redeemed_at
		FROM gift_cards WHERE code = $1
	`, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("%w: inspect gift card", ErrInternal)
	}

	switch existing.StateAt(now) {
	case StateRedeemed:
		return nil, ErrAlreadyRedeemed
	case StateExpired:
		return nil, ErrExpired
	default:
		// Active but the conditional write missed it: a concurrent
		// transaction holds the row. Report as already redeemed rather
		// than silently succeeding.
		return nil, ErrAlreadyRedeemed
	}
}

// GetByCode returns a card by its code
func (r *Repository) GetByCode(ctx context.Context, code string) (*GiftCard, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var card GiftCard
	err := r.db.GetContext(ctx2, &card, `
		SELECT code, amount, issuer_user_id, redeemer_user_id, is_redeemed, expires_at, created_at, redeemed_at
		FROM gift_cards WHERE code = $1
	`, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("%w: get by code", ErrInternal)
	}

	return &card, nil
}

// ListByIssuer returns cards funded by the given user, newest first
func (r *Repository) ListByIssuer(ctx context.Context, issuerID uuid.UUID) ([]GiftCard, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cards := make([]GiftCard, 0)
	err := r.db.SelectContext(ctx2, &cards, `
		SELECT code, amount, issuer_user_id, redeemer_user_id, is_redeemed, expires_at, created_at, redeemed_at
		FROM gift_cards
		WHERE issuer_user_id = $1
		ORDER BY created_at DESC
	`, issuerID)
	if err != nil {
		return nil, fmt.Errorf("%w: list by issuer", ErrInternal)
	}

	return cards, nil
}
