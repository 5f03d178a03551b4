package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/promo-backoffice/internal/domain"
	"github.com/utafrali/promo-backoffice/internal/engine"
	"github.com/utafrali/promo-backoffice/internal/event"
	"github.com/utafrali/promo-backoffice/internal/repository"
	apperrors "github.com/utafrali/promo-backoffice/pkg/errors"
)

// AppliedPromotion is one promotion's contribution in a recompute result.
type AppliedPromotion struct {
	PromotionID string `json:"promotion_id"`
	Code        string `json:"code"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

// RecomputeResult is the outcome of one cart recomputation.
type RecomputeResult struct {
	CartID            string             `json:"cart_id"`
	SubtotalAmount    int64              `json:"subtotal_amount"`
	DiscountAmount    int64              `json:"discount_amount"`
	TotalAmount       int64              `json:"total_amount"`
	AppliedPromotions []AppliedPromotion `json:"applied_promotions"`
}

// CartService orchestrates cart promotion recomputation. Each call runs as
// one database transaction: load, evaluate, delete-and-regenerate adjustment
// rows, update totals. A failure anywhere rolls the whole recompute back and
// leaves the cart's prior persisted state untouched.
type CartService struct {
	uow      repository.UnitOfWork
	producer *event.Producer
	logger   *slog.Logger
}

// NewCartService creates a new cart recomputation service.
func NewCartService(uow repository.UnitOfWork, producer *event.Producer, logger *slog.Logger) *CartService {
	return &CartService{
		uow:      uow,
		producer: producer,
		logger:   logger,
	}
}

// RecomputeCartPromotions recomputes all promotion adjustments for a cart.
// Returns nil with no error when the cart does not exist; nothing is written
// in that case.
func (s *CartService) RecomputeCartPromotions(ctx context.Context, cartID, tenantID, storeID string) (*RecomputeResult, error) {
	var result *RecomputeResult

	err := s.uow.WithinTx(ctx, func(ctx context.Context, stores repository.Stores) error {
		cart, err := stores.Carts.FindCart(ctx, cartID, tenantID, storeID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				// Missing cart is not an error; the result stays nil and
				// no writes happen.
				return nil
			}
			return fmt.Errorf("find cart: %w", err)
		}

		candidates, err := stores.Promotions.ListAutomaticActive(ctx, tenantID, storeID)
		if err != nil {
			return fmt.Errorf("list candidate promotions: %w", err)
		}

		if err := stores.Adjustments.DeleteForCart(ctx, cartID); err != nil {
			return fmt.Errorf("clear promotion adjustments: %w", err)
		}

		// Always derive the subtotal from the items; the stored value may
		// be stale.
		subtotal := cart.ItemsSubtotal()

		adjustments, applied := evaluateCandidates(cart, candidates, subtotal)

		if len(adjustments) > 0 {
			if err := stores.Adjustments.Insert(ctx, adjustments); err != nil {
				return fmt.Errorf("insert promotion adjustments: %w", err)
			}
		}

		var promoDiscount int64
		for _, adj := range adjustments {
			promoDiscount += adj.Amount
		}

		discount := cart.ManualAdjustmentTotal() + promoDiscount
		total := subtotal - discount
		if total < 0 {
			total = 0
		}

		if err := stores.Adjustments.UpdateCartTotals(ctx, cartID, subtotal, discount, total); err != nil {
			return fmt.Errorf("update cart totals: %w", err)
		}

		result = &RecomputeResult{
			CartID:            cartID,
			SubtotalAmount:    subtotal,
			DiscountAmount:    discount,
			TotalAmount:       total,
			AppliedPromotions: applied,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result == nil {
		s.logger.InfoContext(ctx, "recompute skipped, cart not found",
			slog.String("cart_id", cartID),
			slog.String("tenant_id", tenantID),
		)
		return nil, nil
	}

	s.publishRecomputed(ctx, tenantID, storeID, result)

	s.logger.InfoContext(ctx, "cart promotions recomputed",
		slog.String("cart_id", cartID),
		slog.Int64("subtotal_amount", result.SubtotalAmount),
		slog.Int64("discount_amount", result.DiscountAmount),
		slog.Int64("total_amount", result.TotalAmount),
		slog.Int("applied_promotions", len(result.AppliedPromotions)),
	)

	return result, nil
}

// evaluateCandidates runs each candidate promotion through the rule matcher
// and adjustment calculator, in store order. Non-candidates are filtered
// again here even though the store query already excludes them.
func evaluateCandidates(cart *domain.Cart, candidates []domain.Promotion, subtotal int64) ([]domain.PromotionAdjustment, []AppliedPromotion) {
	var (
		adjustments []domain.PromotionAdjustment
		applied     []AppliedPromotion
	)

	now := time.Now().UTC()
	cartFacts := engine.CartFacts(cart)

	for i := range candidates {
		p := &candidates[i]
		if !p.IsAutomaticCandidate() {
			continue
		}

		if !engine.Matches(p.RulesForScope(domain.RuleScopePromotion), cartFacts) {
			continue
		}

		eligible := engine.EligibleItems(p.RulesForScope(domain.RuleScopeTarget), cart.Items)

		adj := engine.ComputeAdjustment(p, eligible, subtotal)
		if adj == nil {
			continue
		}

		adjustments = append(adjustments, domain.PromotionAdjustment{
			ID:          uuid.New().String(),
			CartID:      cart.ID,
			PromotionID: adj.PromotionID,
			Amount:      adj.Amount,
			Description: adj.Description,
			CreatedAt:   now,
		})
		applied = append(applied, AppliedPromotion{
			PromotionID: adj.PromotionID,
			Code:        p.Code,
			Amount:      adj.Amount,
			Description: adj.Description,
		})
	}

	if applied == nil {
		applied = []AppliedPromotion{}
	}

	return adjustments, applied
}

func (s *CartService) publishRecomputed(ctx context.Context, tenantID, storeID string, result *RecomputeResult) {
	promotionIDs := make([]string, 0, len(result.AppliedPromotions))
	for _, ap := range result.AppliedPromotions {
		promotionIDs = append(promotionIDs, ap.PromotionID)
	}

	err := s.producer.PublishCartRecomputed(ctx, event.CartRecomputedData{
		CartID:            result.CartID,
		TenantID:          tenantID,
		StoreID:           storeID,
		SubtotalAmount:    result.SubtotalAmount,
		DiscountAmount:    result.DiscountAmount,
		TotalAmount:       result.TotalAmount,
		AppliedPromotions: promotionIDs,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.recomputed event",
			slog.String("cart_id", result.CartID),
			slog.String("error", err.Error()),
		)
	}
}
