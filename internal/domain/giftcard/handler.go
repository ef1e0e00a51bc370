package giftcard

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/novamart/novamart-api/internal/middleware"
	"github.com/novamart/novamart-api/internal/pkg/response"
)

// Handler serves the read side of the registry. Issuing and redeeming are
// credit engine operations and live on the credits routes.
type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// ListMine returns cards issued by the caller
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	cards, err := h.repo.ListByIssuer(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}

	now := time.Now()
	out := make([]*CardResponse, 0, len(cards))
	for i := range cards {
		out = append(out, CardResponseFromEntity(&cards[i], now))
	}

	response.OK(w, out)
}

// GetByCode returns a single card. Only the issuer and, after redemption,
// the redeemer may look a card up; anyone else gets 404 so codes cannot
// be probed.
func (h *Handler) GetByCode(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	code := strings.ToUpper(chi.URLParam(r, "code"))

	card, err := h.repo.GetByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, ErrInvalidCode) {
			response.NotFound(w, "gift card not found")
			return
		}
		response.InternalError(w)
		return
	}

	isIssuer := card.IssuerUserID == userID
	isRedeemer := card.RedeemerUserID.Valid && card.RedeemerUserID.UUID == userID
	if !isIssuer && !isRedeemer {
		response.NotFound(w, "gift card not found")
		return
	}

	response.OK(w, CardResponseFromEntity(card, time.Now()))
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/", h.ListMine)
	r.Get("/{code}", h.GetByCode)
	return r
}
