package credit

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/novamart/novamart-api/internal/domain/giftcard"
	"github.com/novamart/novamart-api/internal/middleware"
	"github.com/novamart/novamart-api/internal/pkg/response"
	"github.com/novamart/novamart-api/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Balance serves GET /credits/balance
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	acct, err := h.svc.GetBalance(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, BalanceResponseFromEntity(acct))
}

// ListTransactions serves GET /credits/transactions
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	page := Page{Cursor: r.URL.Query().Get("cursor")}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			response.BadRequest(w, "invalid limit")
			return
		}
		page.Limit = limit
	}

	transactions, nextCursor, err := h.svc.ListTransactions(r.Context(), userID, page)
	if err != nil {
		if errors.Is(err, ErrInvalidCursor) {
			response.BadRequest(w, "invalid pagination cursor")
			return
		}
		response.InternalError(w)
		return
	}

	out := make([]*TransactionResponse, 0, len(transactions))
	for i := range transactions {
		out = append(out, TransactionResponseFromEntity(&transactions[i]))
	}

	response.WithMeta(w, out, response.Meta{
		Limit:      len(out),
		NextCursor: nextCursor,
		HasMore:    nextCursor != "",
	})
}

// Earn serves POST /credits/earn
func (h *Handler) Earn(w http.ResponseWriter, r *http.Request) {
	h.handleMutation(w, r, h.svc.Earn)
}

// Spend serves POST /credits/spend
func (h *Handler) Spend(w http.ResponseWriter, r *http.Request) {
	h.handleMutation(w, r, h.svc.Spend)
}

// Refund serves POST /credits/refund
func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	h.handleMutation(w, r, h.svc.Refund)
}

func (h *Handler) handleMutation(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, userID uuid.UUID, amount int64, orderID string) (*Account, error)) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req MutationRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	acct, err := fn(r.Context(), userID, req.Amount, req.OrderID)
	if err != nil {
		h.writeOpError(w, err)
		return
	}

	response.OK(w, BalanceResponseFromEntity(acct))
}

// Share serves POST /credits/share
func (h *Handler) Share(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req ShareRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	card, acct, err := h.svc.Share(r.Context(), userID, req.Amount)
	if err != nil {
		h.writeOpError(w, err)
		return
	}

	response.Created(w, ShareResponse{
		Code:      card.Code,
		Amount:    card.Amount,
		Balance:   acct.Balance,
		ExpiresAt: card.ExpiresAt,
	})
}

// Redeem serves POST /credits/redeem
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req RedeemRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	amount, acct, err := h.svc.Redeem(r.Context(), userID, req.Code)
	if err != nil {
		h.writeOpError(w, err)
		return
	}

	response.OK(w, RedeemResponse{Amount: amount, Balance: acct.Balance})
}

// AdminSearch serves GET /admin/credits/transactions
func (h *Handler) AdminSearch(w http.ResponseWriter, r *http.Request) {
	filters := SearchFilters{}
	q := r.URL.Query()

	if v := q.Get("user_id"); v != "" {
		if _, err := uuid.Parse(v); err != nil {
			response.BadRequest(w, "invalid user id")
			return
		}
		filters.UserID = &v
	}
	if v := q.Get("type"); v != "" {
		if err := validator.ValidateVar(v, "tx_type"); err != nil {
			response.BadRequest(w, "invalid transaction type")
			return
		}
		filters.TxType = &v
	}
	if v := q.Get("order_id"); v != "" {
		filters.RelatedOrderID = &v
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.BadRequest(w, "invalid from timestamp")
			return
		}
		filters.DateFrom = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.BadRequest(w, "invalid to timestamp")
			return
		}
		filters.DateTo = &t
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			response.BadRequest(w, "invalid limit")
			return
		}
		filters.Limit = limit
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil {
			response.BadRequest(w, "invalid offset")
			return
		}
		filters.Offset = offset
	}

	transactions, err := h.svc.SearchTransactions(r.Context(), filters)
	if err != nil {
		response.InternalError(w)
		return
	}

	out := make([]*TransactionResponse, 0, len(transactions))
	for i := range transactions {
		out = append(out, TransactionResponseFromEntity(&transactions[i]))
	}

	response.OK(w, out)
}

// AdminReconcile serves GET /admin/credits/{userId}/reconcile
func (h *Handler) AdminReconcile(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		response.BadRequest(w, "invalid user id")
		return
	}

	result, err := h.svc.Reconcile(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, result)
}

// writeOpError maps engine errors onto the HTTP taxonomy: validation
// errors 400, unknown codes 404, business-rule violations 409/422,
// transient conflicts 409, integrity faults opaque 500.
func (h *Handler) writeOpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		response.BadRequest(w, "amount must be greater than zero")
	case errors.Is(err, giftcard.ErrInvalidCode):
		response.NotFound(w, "gift card not found")
	case errors.Is(err, ErrInsufficientCredits):
		response.UnprocessableEntity(w, "INSUFFICIENT_CREDITS", "not enough credits for this operation")
	case errors.Is(err, giftcard.ErrAlreadyRedeemed):
		response.Error(w, http.StatusConflict, "ALREADY_USED", "gift card has already been redeemed")
	case errors.Is(err, giftcard.ErrExpired):
		response.UnprocessableEntity(w, "GIFT_CARD_EXPIRED", "gift card has expired")
	case errors.Is(err, ErrConflict):
		response.Error(w, http.StatusConflict, "CONFLICT", "operation conflicted with a concurrent update, retry")
	default:
		// includes ErrCodeGenerationExhausted and ledger faults
		response.InternalError(w)
	}
}

// Routes mounts the user-facing credit endpoints. Mutations additionally
// pass the rate limit and idempotency guards.
func (h *Handler) Routes(authMiddleware, rateLimit, idempotency func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Get("/balance", h.Balance)
	r.Get("/transactions", h.ListTransactions)

	r.Group(func(r chi.Router) {
		r.Use(rateLimit)
		r.Use(idempotency)
		r.Post("/earn", h.Earn)
		r.Post("/spend", h.Spend)
		r.Post("/refund", h.Refund)
		r.Post("/share", h.Share)
		r.Post("/redeem", h.Redeem)
	})

	return r
}

// AdminRoutes mounts the reporting endpoints behind the admin role
func (h *Handler) AdminRoutes(authMiddleware, adminOnly func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Use(adminOnly)

	r.Get("/transactions", h.AdminSearch)
	r.Get("/{userId}/reconcile", h.AdminReconcile)

	return r
}
