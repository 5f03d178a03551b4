package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/promo-backoffice/internal/lock"
	"github.com/utafrali/promo-backoffice/internal/service"
	apperrors "github.com/utafrali/promo-backoffice/pkg/errors"
)

// CartLocker serializes recomputations per cart.
type CartLocker interface {
	Acquire(ctx context.Context, cartID string) (lock.Releaser, error)
}

// CartHandler handles HTTP requests for cart recomputation.
type CartHandler struct {
	service *service.CartService
	locker  CartLocker
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, locker CartLocker, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service: svc,
		locker:  locker,
		logger:  logger,
	}
}

// RecomputePromotions handles POST /api/v1/carts/{id}/recompute
//
// The per-cart lock turns concurrent recomputes of the same cart into 409s
// rather than letting them race to the same rows.
func (h *CartHandler) RecomputePromotions(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "id")
	if cartID == "" {
		writeBadRequest(w, "cart id is required")
		return
	}

	held, err := h.locker.Acquire(r.Context(), cartID)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			writeError(w, r, h.logger, apperrors.Conflict("cart is already being recomputed"))
			return
		}
		writeError(w, r, h.logger, err)
		return
	}
	defer func() {
		if err := held.Release(r.Context()); err != nil {
			h.logger.WarnContext(r.Context(), "failed to release cart lock",
				slog.String("cart_id", cartID),
				slog.String("error", err.Error()),
			)
		}
	}()

	tenantID, storeID := tenantScope(r.Context())
	result, err := h.service.RecomputeCartPromotions(r.Context(), cartID, tenantID, storeID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if result == nil {
		writeJSON(w, http.StatusNotFound, response{
			Error: &errorResponse{Code: "NOT_FOUND", Message: "cart not found"},
		})
		return
	}

	writeJSON(w, http.StatusOK, response{Data: result})
}
