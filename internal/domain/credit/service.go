package credit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/novamart/novamart-api/internal/domain/giftcard"
)

// maxConflictRetries bounds the internal optimistic-concurrency retry
// loop before ErrConflict is surfaced to the caller.
const maxConflictRetries = 5

// maxCodeAttempts bounds regeneration on gift card code collisions.
const maxCodeAttempts = 5

// Service is the credit operations engine. Every operation is one
// database transaction: the balance write, the ledger append and any
// gift card change commit together or not at all.
type Service struct {
	ledger   *Repository
	cards    *giftcard.Repository
	codes    *giftcard.Generator
	validity time.Duration
}

func NewService(ledger *Repository, cards *giftcard.Repository, codes *giftcard.Generator, cardValidity time.Duration) *Service {
	return &Service{
		ledger:   ledger,
		cards:    cards,
		codes:    codes,
		validity: cardValidity,
	}
}

// Earn credits a user for an order. Balance and lifetime earnings grow
// together with one `earned` ledger row.
func (s *Service) Earn(ctx context.Context, userID uuid.UUID, amount int64, orderID string) (*Account, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	acct, err := s.apply(ctx, userID, applyParams{
		delta:       amount,
		txType:      TxTypeEarned,
		description: "Credits earned on purchase",
		orderID:     orderID,
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", userID.String()).Int64("amount", amount).Str("order_id", orderID).Msg("credits earned")
	return acct, nil
}

// Spend debits a user for an order payment. Fails ErrInsufficientCredits
// when the balance cannot cover the amount; nothing is appended then.
func (s *Service) Spend(ctx context.Context, userID uuid.UUID, amount int64, orderID string) (*Account, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	acct, err := s.apply(ctx, userID, applyParams{
		delta:       -amount,
		txType:      TxTypeSpent,
		description: "Credits spent on purchase",
		orderID:     orderID,
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", userID.String()).Int64("amount", amount).Str("order_id", orderID).Msg("credits spent")
	return acct, nil
}

// Refund reverses a prior spend. It is symmetric to Earn but tagged
// `refund` and does not grow lifetime earnings.
func (s *Service) Refund(ctx context.Context, userID uuid.UUID, amount int64, orderID string) (*Account, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	acct, err := s.apply(ctx, userID, applyParams{
		delta:       amount,
		txType:      TxTypeRefund,
		description: "Credits refunded",
		orderID:     orderID,
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", userID.String()).Int64("amount", amount).Str("order_id", orderID).Msg("credits refunded")
	return acct, nil
}

// Share debits the issuer and creates a gift card for the amount in one
// transaction: a crash can never leave a debit without a card or a card
// without a debit. Code collisions regenerate up to maxCodeAttempts.
func (s *Service) Share(ctx context.Context, userID uuid.UUID, amount int64) (*giftcard.GiftCard, *Account, error) {
	if amount <= 0 {
		return nil, nil, ErrInvalidAmount
	}

	codeAttempts := 0
	conflicts := 0
	for {
		code, err := s.codes.Generate()
		if err != nil {
			return nil, nil, err
		}

		card, acct, err := s.shareOnce(ctx, userID, amount, code)
		switch {
		case err == nil:
			log.Info().Str("user_id", userID.String()).Int64("amount", amount).Str("code", card.Code).Msg("gift card issued")
			return card, acct, nil
		case errors.Is(err, giftcard.ErrDuplicateCode):
			codeAttempts++
			if codeAttempts >= maxCodeAttempts {
				log.Error().Str("user_id", userID.String()).Int("attempts", codeAttempts).Msg("gift card code generation exhausted")
				return nil, nil, giftcard.ErrCodeGenerationExhausted
			}
		case errors.Is(err, ErrConflict):
			conflicts++
			if conflicts >= maxConflictRetries {
				return nil, nil, ErrConflict
			}
		default:
			return nil, nil, err
		}
	}
}

func (s *Service) shareOnce(ctx context.Context, userID uuid.UUID, amount int64, code string) (*giftcard.GiftCard, *Account, error) {
	tx, err := s.ledger.BeginTx(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	acct, err := s.ledger.GetAccountTx(ctx, tx, userID)
	if err != nil {
		return nil, nil, err
	}

	next := acct.Balance - amount
	if next < 0 {
		return nil, nil, ErrInsufficientCredits
	}

	if err := s.ledger.UpdateAccountTx(ctx, tx, acct, next, acct.EarnedLifetime); err != nil {
		return nil, nil, err
	}

	if err := s.ledger.InsertTransactionTx(ctx, tx, userID, -amount, TxTypeShared, "Shared via gift card "+code, ""); err != nil {
		return nil, nil, err
	}

	now := time.Now()
	card := &giftcard.GiftCard{
		Code:         code,
		Amount:       amount,
		IssuerUserID: userID,
		ExpiresAt:    now.Add(s.validity),
		CreatedAt:    now,
	}
	if err := s.cards.InsertTx(ctx, tx, card); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, ErrInternal
	}

	acct.Balance = next
	acct.Version++
	return card, acct, nil
}

// Redeem credits the caller with a card's amount and marks the card
// redeemed in one transaction. The registry's conditional write decides
// races: of N concurrent redemptions of the same code exactly one
// commits, the rest see ErrAlreadyRedeemed and no credit is applied.
func (s *Service) Redeem(ctx context.Context, userID uuid.UUID, code string) (int64, *Account, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return 0, nil, giftcard.ErrInvalidCode
	}

	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		amount, acct, err := s.redeemOnce(ctx, userID, code)
		if errors.Is(err, ErrConflict) {
			continue
		}
		if err != nil {
			return 0, nil, err
		}

		log.Info().Str("user_id", userID.String()).Int64("amount", amount).Str("code", code).Msg("gift card redeemed")
		return amount, acct, nil
	}
	return 0, nil, ErrConflict
}

func (s *Service) redeemOnce(ctx context.Context, userID uuid.UUID, code string) (int64, *Account, error) {
	tx, err := s.ledger.BeginTx(ctx)
	if err != nil {
		return 0, nil, err
	}
	defer tx.Rollback()

	card, err := s.cards.MarkRedeemedTx(ctx, tx, code, userID, time.Now())
	if err != nil {
		return 0, nil, err
	}

	acct, err := s.ledger.GetAccountTx(ctx, tx, userID)
	if err != nil {
		return 0, nil, err
	}

	next := acct.Balance + card.Amount
	if err := s.ledger.UpdateAccountTx(ctx, tx, acct, next, acct.EarnedLifetime); err != nil {
		return 0, nil, err
	}

	if err := s.ledger.InsertTransactionTx(ctx, tx, userID, card.Amount, TxTypeReceived, "Received from gift card "+code, ""); err != nil {
		return 0, nil, err
	}

	if err := tx.Commit(); err != nil {
		return 0, nil, ErrInternal
	}

	acct.Balance = next
	acct.Version++
	return card.Amount, acct, nil
}

// GetBalance returns the account snapshot for the read path
func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (*Account, error) {
	return s.ledger.GetAccount(ctx, userID)
}

// ListTransactions returns the user's history, most recent first
func (s *Service) ListTransactions(ctx context.Context, userID uuid.UUID, page Page) ([]Transaction, string, error) {
	return s.ledger.ListTransactions(ctx, userID, page)
}

// SearchTransactions returns filtered transactions (admin use)
func (s *Service) SearchTransactions(ctx context.Context, filters SearchFilters) ([]Transaction, error) {
	return s.ledger.SearchTransactions(ctx, filters)
}

// Reconcile checks the conservation invariant for one account. A
// mismatch is logged at error severity: it means value was created or
// destroyed outside the defined operations.
func (s *Service) Reconcile(ctx context.Context, userID uuid.UUID) (*ReconcileResult, error) {
	result, err := s.ledger.Reconcile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !result.Consistent {
		log.Error().
			Str("user_id", userID.String()).
			Int64("stored_balance", result.StoredBalance).
			Int64("ledger_sum", result.LedgerSum).
			Msg("ledger reconciliation mismatch detected")
	}

	return result, nil
}

type applyParams struct {
	delta       int64
	txType      TxType
	description string
	orderID     string
}

// apply runs one read-validate-write unit with bounded retry on version
// conflicts. Business-rule failures abort immediately; only ErrConflict
// is retried because a fresh snapshot may succeed.
func (s *Service) apply(ctx context.Context, userID uuid.UUID, p applyParams) (*Account, error) {
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		acct, err := s.applyOnce(ctx, userID, p)
		if errors.Is(err, ErrConflict) {
			continue
		}
		return acct, err
	}
	return nil, ErrConflict
}

func (s *Service) applyOnce(ctx context.Context, userID uuid.UUID, p applyParams) (*Account, error) {
	tx, err := s.ledger.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	acct, err := s.ledger.GetAccountTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	next := acct.Balance + p.delta
	if next < 0 {
		return nil, ErrInsufficientCredits
	}

	earned := acct.EarnedLifetime
	if p.txType == TxTypeEarned {
		earned += p.delta
	}

	if err := s.ledger.UpdateAccountTx(ctx, tx, acct, next, earned); err != nil {
		return nil, err
	}

	if err := s.ledger.InsertTransactionTx(ctx, tx, userID, p.delta, p.txType, p.description, p.orderID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, ErrInternal
	}

	acct.Balance = next
	acct.EarnedLifetime = earned
	acct.Version++
	return acct, nil
}
