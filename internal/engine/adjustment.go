package engine

import (
	"fmt"

	"github.com/utafrali/promo-backoffice/internal/domain"
)

// Adjustment is a promotion's computed monetary contribution to a cart.
type Adjustment struct {
	PromotionID string
	Amount      int64
	Description string
}

// ComputeAdjustment computes the discount a promotion contributes given its
// eligible items and the cart's recomputed subtotal. Returns nil when the
// promotion has no application method, no items are eligible, or the
// computed amount is not positive. Amounts are integer minor currency units.
//
// Fixed discounts are clamped to the cart subtotal. Percent discounts are
// not: the eligible-item total can exceed the subtotal under upstream
// tax/rounding skew, and the over-discount is kept until product review
// decides otherwise.
func ComputeAdjustment(p *domain.Promotion, eligible []domain.CartItem, cartSubtotal int64) *Adjustment {
	method := p.Method
	if method == nil || len(eligible) == 0 {
		return nil
	}

	var amount int64

	switch method.Type {
	case domain.MethodTypeFixed:
		amount = fixedAmount(method, eligible)
		if amount > cartSubtotal {
			amount = cartSubtotal
		}
	case domain.MethodTypePercent:
		amount = percentAmount(method, eligible)
	default:
		return nil
	}

	if amount <= 0 {
		return nil
	}

	return &Adjustment{
		PromotionID: p.ID,
		Amount:      amount,
		Description: fmt.Sprintf("Promotion %s", p.Code),
	}
}

// fixedAmount computes a fixed discount. Allocation each contributes per
// qualifying unit, capped at max quantity units per item; allocation across
// contributes the value once regardless of item count.
func fixedAmount(m *domain.ApplicationMethod, eligible []domain.CartItem) int64 {
	if m.Allocation == domain.AllocationAcross {
		return m.ValueAmount
	}

	maxQty := m.MaxQuantity
	if maxQty < 1 {
		maxQty = 1
	}

	var total int64
	for _, item := range eligible {
		qty := item.Quantity
		if qty > maxQty {
			qty = maxQty
		}
		total += m.ValueAmount * int64(qty)
	}
	return total
}

// percentAmount computes a basis-point discount over the eligible items'
// total, rounded half up. Both allocations behave identically for percent.
func percentAmount(m *domain.ApplicationMethod, eligible []domain.CartItem) int64 {
	var eligibleAmount int64
	for _, item := range eligible {
		eligibleAmount += item.TotalAmount
	}

	if eligibleAmount <= 0 || m.ValueBps <= 0 {
		return 0
	}

	// Integer round-half-up on the bps computation.
	return (eligibleAmount*m.ValueBps + domain.MaxValueBps/2) / domain.MaxValueBps
}
