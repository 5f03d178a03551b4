package domain

import (
	"time"
)

// Cart is the external entity the recomputation engine reads and writes.
// Carts are created upstream; this service only recomputes their
// promotion adjustments and totals.
type Cart struct {
	ID                string                `json:"id"`
	TenantID          string                `json:"tenant_id"`
	StoreID           string                `json:"store_id"`
	Currency          string                `json:"currency"`
	Items             []CartItem            `json:"items"`
	ManualAdjustments []CartAdjustment      `json:"manual_adjustments"`
	PromoAdjustments  []PromotionAdjustment `json:"promotion_adjustments"`
	SubtotalAmount    int64                 `json:"subtotal_amount"`
	DiscountAmount    int64                 `json:"discount_amount"`
	TotalAmount       int64                 `json:"total_amount"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

// CartItem is a single line item on a cart. Amounts are integer minor
// currency units.
type CartItem struct {
	ID              string `json:"id"`
	CartID          string `json:"cart_id"`
	VariantID       string `json:"variant_id"`
	ProductID       string `json:"product_id"`
	SKU             string `json:"sku"`
	Quantity        int    `json:"quantity"`
	UnitPriceAmount int64  `json:"unit_price_amount"`
	TotalAmount     int64  `json:"total_amount"`
}

// CartAdjustment is a manual cart-level adjustment applied by an operator,
// outside the promotion engine.
type CartAdjustment struct {
	ID          string `json:"id"`
	CartID      string `json:"cart_id"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

// PromotionAdjustment is a computed discount row tying a promotion's
// contribution to a cart. Rows are deleted and regenerated wholesale on
// every recomputation.
type PromotionAdjustment struct {
	ID          string    `json:"id"`
	CartID      string    `json:"cart_id"`
	PromotionID string    `json:"promotion_id"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// ItemCount returns the total unit count across all line items.
func (c *Cart) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// ItemsSubtotal returns the sum of line item totals. Recomputation always
// derives the subtotal from this rather than trusting the stored value.
func (c *Cart) ItemsSubtotal() int64 {
	var subtotal int64
	for _, item := range c.Items {
		subtotal += item.TotalAmount
	}
	return subtotal
}

// ManualAdjustmentTotal returns the sum of manual cart-level adjustments.
func (c *Cart) ManualAdjustmentTotal() int64 {
	var total int64
	for _, adj := range c.ManualAdjustments {
		total += adj.Amount
	}
	return total
}
