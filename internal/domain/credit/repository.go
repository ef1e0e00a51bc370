package credit

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const queryTimeout = 3 * time.Second

const defaultPageLimit = 20
const maxPageLimit = 100

// Repository is the ledger store: durable access to accounts keyed by
// user and append access to the transaction log. All balance writes go
// through versioned conditional updates inside a caller-owned
// transaction, so a crash mid-operation never leaves a partial ledger.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// BeginTx starts the transaction an engine operation runs in
func (r *Repository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	return tx, nil
}

func (r *Repository) ensureAccount(ctx context.Context, e sqlx.ExtContext, userID uuid.UUID) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO credit_accounts (user_id, balance, earned_lifetime, pending_credits, version)
		VALUES ($1, 0, 0, 0, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return fmt.Errorf("%w: ensure account", ErrInternal)
	}
	return nil
}

const selectAccount = `
	SELECT user_id, balance, earned_lifetime, pending_credits, version, updated_at
	FROM credit_accounts WHERE user_id = $1
`

// GetAccount returns the account for the read path, lazily creating the
// zero-balance row on first touch.
func (r *Repository) GetAccount(ctx context.Context, userID uuid.UUID) (*Account, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if err := r.ensureAccount(ctx2, r.db, userID); err != nil {
		return nil, err
	}

	var acct Account
	if err := r.db.GetContext(ctx2, &acct, selectAccount, userID); err != nil {
		return nil, fmt.Errorf("%w: get account", ErrInternal)
	}
	return &acct, nil
}

// GetAccountTx reads the account snapshot an operation validates against.
// No row lock is taken: the version check at write time detects races.
func (r *Repository) GetAccountTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (*Account, error) {
	if err := r.ensureAccount(ctx, tx, userID); err != nil {
		return nil, err
	}

	var acct Account
	if err := tx.GetContext(ctx, &acct, selectAccount, userID); err != nil {
		return nil, fmt.Errorf("%w: get account", ErrInternal)
	}
	return &acct, nil
}

// UpdateAccountTx writes the new balance conditionally on the version the
// caller read. Zero rows affected means another operation committed in
// between; the caller aborts and retries with a fresh snapshot.
func (r *Repository) UpdateAccountTx(ctx context.Context, tx *sqlx.Tx, acct *Account, newBalance, newEarnedLifetime int64) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE credit_accounts
		SET balance = $2, earned_lifetime = $3, version = version + 1, updated_at = now()
		WHERE user_id = $1 AND version = $4
	`, acct.UserID, newBalance, newEarnedLifetime, acct.Version)
	if err != nil {
		return fmt.Errorf("%w: update account", ErrInternal)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected", ErrInternal)
	}
	if rows == 0 {
		return ErrConflict
	}
	return nil
}

// InsertTransactionTx appends a ledger row in the same transaction as the
// balance write it records. Rows are never updated or deleted.
func (r *Repository) InsertTransactionTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int64, txType TxType, description, relatedOrderID string) error {
	var orderID interface{}
	if relatedOrderID == "" {
		orderID = nil
	} else {
		orderID = relatedOrderID
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO credit_transactions (id, user_id, amount, type, description, related_order_id, status)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6)
	`, userID, amount, string(txType), description, orderID, string(TxStatusCompleted))
	if err != nil {
		return fmt.Errorf("%w: insert transaction", ErrInternal)
	}
	return nil
}

// ListTransactions returns the user's history, most recent first, as a
// restartable keyset-paginated sequence.
func (r *Repository) ListTransactions(ctx context.Context, userID uuid.UUID, page Page) ([]Transaction, string, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	limit := page.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	query := `
		SELECT id, user_id, amount, type, description, related_order_id, status, created_at
		FROM credit_transactions
		WHERE user_id = $1
	`
	args := []interface{}{userID}

	if page.Cursor != "" {
		cursorTime, cursorID, err := decodeCursor(page.Cursor)
		if err != nil {
			return nil, "", ErrInvalidCursor
		}
		query += ` AND (created_at, id) < ($2, $3)`
		args = append(args, cursorTime, cursorID)
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args)+1)
	args = append(args, limit+1)

	transactions := make([]Transaction, 0, limit+1)
	if err := r.db.SelectContext(ctx2, &transactions, query, args...); err != nil {
		return nil, "", fmt.Errorf("%w: list transactions", ErrInternal)
	}

	var nextCursor string
	if len(transactions) > limit {
		transactions = transactions[:limit]
		last := transactions[len(transactions)-1]
		nextCursor = encodeCursor(last.CreatedAt, last.ID)
	}

	return transactions, nextCursor, nil
}

// SearchTransactions returns filtered transactions (for admin use)
func (r *Repository) SearchTransactions(ctx context.Context, filters SearchFilters) ([]Transaction, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	base := `
		SELECT id, user_id, amount, type, description, related_order_id, status, created_at
		FROM credit_transactions
		WHERE 1=1`
	args := make([]interface{}, 0, 8)
	idx := 1

	if filters.UserID != nil && *filters.UserID != "" {
		base += fmt.Sprintf(" AND user_id = $%d", idx)
		args = append(args, *filters.UserID)
		idx++
	}
	if filters.TxType != nil && *filters.TxType != "" {
		base += fmt.Sprintf(" AND type = $%d", idx)
		args = append(args, *filters.TxType)
		idx++
	}
	if filters.DateFrom != nil {
		base += fmt.Sprintf(" AND created_at >= $%d", idx)
		args = append(args, *filters.DateFrom)
		idx++
	}
	if filters.DateTo != nil {
		base += fmt.Sprintf(" AND created_at <= $%d", idx)
		args = append(args, *filters.DateTo)
		idx++
	}
	if filters.RelatedOrderID != nil && *filters.RelatedOrderID != "" {
		base += fmt.Sprintf(" AND related_order_id = $%d", idx)
		args = append(args, *filters.RelatedOrderID)
		idx++
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}

	base = strings.TrimSpace(base) + fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, filters.Offset)

	transactions := make([]Transaction, 0)
	if err := r.db.SelectContext(ctx2, &transactions, base, args...); err != nil {
		return nil, fmt.Errorf("%w: search transactions", ErrInternal)
	}

	return transactions, nil
}

// Reconcile recomputes the signed sum of a user's history and compares it
// to the stored balance. A mismatch means an atomicity bug corrupted the
// ledger at some point in the past. Both reads run in one repeatable-read
// transaction: an operation committing between them must not show up as a
// phantom mismatch.
func (r *Repository) Reconcile(ctx context.Context, userID uuid.UUID) (*ReconcileResult, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("%w: begin reconcile tx", ErrInternal)
	}
	defer tx.Rollback()

	var acct Account
	if err := tx.GetContext(ctx2, &acct, selectAccount, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// account never touched: zero balance, empty history
			return &ReconcileResult{UserID: userID, Consistent: true}, nil
		}
		return nil, fmt.Errorf("%w: get account", ErrInternal)
	}

	var sum int64
	err = tx.GetContext(ctx2, &sum, `
		SELECT COALESCE(SUM(amount), 0) FROM credit_transactions WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: sum transactions", ErrInternal)
	}

	return &ReconcileResult{
		UserID:        userID,
		StoredBalance: acct.Balance,
		LedgerSum:     sum,
		Consistent:    acct.Balance == sum,
	}, nil
}

func encodeCursor(t time.Time, id uuid.UUID) string {
	raw := strconv.FormatInt(t.UnixNano(), 10) + "|" + id.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(cursor string) (time.Time, uuid.UUID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, uuid.Nil, err
	}

	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, uuid.Nil, errors.New("malformed cursor")
	}

	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, uuid.Nil, err
	}

	id, err := uuid.Parse(parts[1])
	if err != nil {
		return time.Time{}, uuid.Nil, err
	}

	return time.Unix(0, nanos), id, nil
}
