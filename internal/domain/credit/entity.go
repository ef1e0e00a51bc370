package credit

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// TxType defines supported credit transaction types.
type TxType string

const (
	TxTypeEarned   TxType = "earned"
	TxTypeSpent    TxType = "spent"
	TxTypeShared   TxType = "shared"
	TxTypeReceived TxType = "received"
	TxTypeRefund   TxType = "refund"
)

// TxStatus defines transaction lifecycle status.
type TxStatus string

const (
	TxStatusPending   TxStatus = "pending"
	TxStatusCompleted TxStatus = "completed"
)

// Account is the per-user balance record, the source of truth for
// spendable credit. Balance never goes negative; earned_lifetime only
// grows; pending_credits is reserved value that is not yet spendable.
// Version is the optimistic-concurrency token: every balance mutation
// bumps it and is conditional on the value read.
type Account struct {
	UserID         uuid.UUID `db:"user_id"`
	Balance        int64     `db:"balance"`
	EarnedLifetime int64     `db:"earned_lifetime"`
	PendingCredits int64     `db:"pending_credits"`
	Version        int64     `db:"version"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// Transaction is an append-only ledger row. The signed sum of all rows
// for a user always equals that user's stored balance.
type Transaction struct {
	ID             uuid.UUID      `db:"id"`
	UserID         uuid.UUID      `db:"user_id"`
	Amount         int64          `db:"amount"`
	Type           TxType         `db:"type"`
	Description    string         `db:"description"`
	RelatedOrderID sql.NullString `db:"related_order_id"`
	Status         TxStatus       `db:"status"`
	CreatedAt      time.Time      `db:"created_at"`
}

// Page controls cursor pagination of transaction history.
type Page struct {
	Limit  int
	Cursor string
}

// SearchFilters provides admin-facing transaction filtering.
type SearchFilters struct {
	UserID         *string
	TxType         *string
	DateFrom       *time.Time
	DateTo         *time.Time
	RelatedOrderID *string
	Limit          int
	Offset         int
}

// ReconcileResult reports a ledger integrity check: the stored balance
// against the recomputed signed sum of the transaction history.
type ReconcileResult struct {
	UserID        uuid.UUID `json:"user_id"`
	StoredBalance int64     `json:"stored_balance"`
	LedgerSum     int64     `json:"ledger_sum"`
	Consistent    bool      `json:"consistent"`
}
