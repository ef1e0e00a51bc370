package credit

import "time"

// MutationRequest for POST /credits/earn, /credits/spend, /credits/refund
type MutationRequest struct {
	Amount  int64  `json:"amount" validate:"required,gt=0"`
	OrderID string `json:"order_id" validate:"omitempty,max=64"`
}

// ShareRequest for POST /credits/share
type ShareRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

// RedeemRequest for POST /credits/redeem
type RedeemRequest struct {
	Code string `json:"code" validate:"required,gift_code"`
}

// BalanceResponse represents an account in API responses
type BalanceResponse struct {
	Balance        int64     `json:"balance"`
	EarnedLifetime int64     `json:"earned_lifetime"`
	PendingCredits int64     `json:"pending_credits"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BalanceResponseFromEntity converts an account to its API shape
func BalanceResponseFromEntity(a *Account) *BalanceResponse {
	return &BalanceResponse{
		Balance:        a.Balance,
		EarnedLifetime: a.EarnedLifetime,
		PendingCredits: a.PendingCredits,
		UpdatedAt:      a.UpdatedAt,
	}
}

// TransactionResponse represents a ledger row in API responses
type TransactionResponse struct {
	ID             string    `json:"id"`
	Amount         int64     `json:"amount"`
	Type           string    `json:"type"`
	Description    string    `json:"description"`
	RelatedOrderID *string   `json:"related_order_id,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// TransactionResponseFromEntity converts a transaction to its API shape
func TransactionResponseFromEntity(t *Transaction) *TransactionResponse {
	resp := &TransactionResponse{
		ID:          t.ID.String(),
		Amount:      t.Amount,
		Type:        string(t.Type),
		Description: t.Description,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
	}
	if t.RelatedOrderID.Valid {
		v := t.RelatedOrderID.String
		resp.RelatedOrderID = &v
	}
	return resp
}

// ShareResponse for a successful gift card issuance
type ShareResponse struct {
	Code      string    `json:"code"`
	Amount    int64     `json:"amount"`
	Balance   int64     `json:"balance"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RedeemResponse for a successful gift card redemption
type RedeemResponse struct {
	Amount  int64 `json:"amount"`
	Balance int64 `json:"balance"`
}
