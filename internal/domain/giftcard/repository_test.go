package giftcard_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/novamart/novamart-api/internal/domain/giftcard"
)

func TestMarkRedeemedAtExactExpiryInstant(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(db)

	issuerID := createTestUser(t, db)
	redeemerID := createTestUser(t, db)
	repo := giftcard.NewRepository(db)

	// timestamptz keeps microseconds, so truncate before comparing
	expiry := time.Now().Add(time.Hour).Truncate(time.Microsecond)
	card := &giftcard.GiftCard{
		Code:         "NOVA-EDGE-" + uuid.New().String()[:4],
		Amount:       10,
		IssuerUserID: issuerID,
		ExpiresAt:    expiry,
		CreatedAt:    time.Now(),
	}

	tx, err := db.Beginx()
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if err := repo.InsertTx(context.Background(), tx, card); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	// redemption presented exactly at the expiry instant still succeeds
	tx2, err := db.Beginx()
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	defer tx2.Rollback()

	got, err := repo.MarkRedeemedTx(context.Background(), tx2, card.Code, redeemerID, expiry)
	if err != nil {
		t.Fatalf("redeem at expiry instant failed: %v", err)
	}
	if !got.IsRedeemed || got.Amount != 10 {
		t.Fatalf("unexpected card after redeem: %+v", got)
	}
	if err := tx2.Commit(); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
}

func TestMarkRedeemedAfterExpiry(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(db)

	issuerID := createTestUser(t, db)
	redeemerID := createTestUser(t, db)
	repo := giftcard.NewRepository(db)

	expiry := time.Now().Add(time.Hour).Truncate(time.Microsecond)
	card := &giftcard.GiftCard{
		Code:         "NOVA-EDGE-" + uuid.New().String()[:4],
		Amount:       10,
		IssuerUserID: issuerID,
		ExpiresAt:    expiry,
		CreatedAt:    time.Now(),
	}

	tx, err := db.Beginx()
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if err := repo.InsertTx(context.Background(), tx, card); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	tx2, err := db.Beginx()
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	defer tx2.Rollback()

	_, err = repo.MarkRedeemedTx(context.Background(), tx2, card.Code, redeemerID, expiry.Add(time.Microsecond))
	if !errors.Is(err, giftcard.ErrExpired) {
		t.Fatalf("expected ErrExpired just past the instant, got %v", err)
	}
}
