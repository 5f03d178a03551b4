package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/promo-backoffice/internal/domain"
	"github.com/utafrali/promo-backoffice/pkg/database"
	apperrors "github.com/utafrali/promo-backoffice/pkg/errors"
)

// CartStore implements repository.CartReader over any Querier, so the same
// code serves both pool-backed reads and transaction-bound recomputation.
type CartStore struct {
	q database.Querier
}

// NewCartStore creates a cart store over the given query executor.
func NewCartStore(q database.Querier) *CartStore {
	return &CartStore{q: q}
}

// FindCart retrieves a cart with its items and manual adjustments.
func (s *CartStore) FindCart(ctx context.Context, cartID, tenantID, storeID string) (*domain.Cart, error) {
	query := `
		SELECT id, tenant_id, store_id, currency, subtotal_amount,
		       discount_amount, total_amount, created_at, updated_at
		FROM carts
		WHERE id = $1 AND tenant_id = $2 AND store_id = $3`

	var c domain.Cart
	err := s.q.QueryRow(ctx, query, cartID, tenantID, storeID).Scan(
		&c.ID, &c.TenantID, &c.StoreID, &c.Currency, &c.SubtotalAmount,
		&c.DiscountAmount, &c.TotalAmount, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find cart: %w", err)
	}

	if err := s.loadItems(ctx, &c); err != nil {
		return nil, err
	}
	if err := s.loadManualAdjustments(ctx, &c); err != nil {
		return nil, err
	}

	return &c, nil
}

func (s *CartStore) loadItems(ctx context.Context, c *domain.Cart) error {
	rows, err := s.q.Query(ctx, `
		SELECT id, cart_id, variant_id, product_id, sku, quantity,
		       unit_price_amount, total_amount
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY id`, c.ID)
	if err != nil {
		return fmt.Errorf("load cart items: %w", err)
	}
	defer rows.Close()

	c.Items = []domain.CartItem{}
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(
			&item.ID, &item.CartID, &item.VariantID, &item.ProductID,
			&item.SKU, &item.Quantity, &item.UnitPriceAmount, &item.TotalAmount,
		); err != nil {
			return fmt.Errorf("scan cart item row: %w", err)
		}
		c.Items = append(c.Items, item)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate cart item rows: %w", err)
	}

	return nil
}

func (s *CartStore) loadManualAdjustments(ctx context.Context, c *domain.Cart) error {
	rows, err := s.q.Query(ctx, `
		SELECT id, cart_id, amount, description
		FROM cart_adjustments
		WHERE cart_id = $1
		ORDER BY id`, c.ID)
	if err != nil {
		return fmt.Errorf("load cart adjustments: %w", err)
	}
	defer rows.Close()

	c.ManualAdjustments = []domain.CartAdjustment{}
	for rows.Next() {
		var adj domain.CartAdjustment
		if err := rows.Scan(&adj.ID, &adj.CartID, &adj.Amount, &adj.Description); err != nil {
			return fmt.Errorf("scan cart adjustment row: %w", err)
		}
		c.ManualAdjustments = append(c.ManualAdjustments, adj)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate cart adjustment rows: %w", err)
	}

	return nil
}

// CandidateStore implements repository.PromotionReader over any Querier.
type CandidateStore struct {
	q database.Querier
}

// NewCandidateStore creates a candidate promotion reader over the given
// query executor.
func NewCandidateStore(q database.Querier) *CandidateStore {
	return &CandidateStore{q: q}
}

// ListAutomaticActive returns the automatic candidate promotions for the
// tenant and store, hydrated with rules and application methods, in stable
// creation order. Applied in this order, discounts stack deterministically.
func (s *CandidateStore) ListAutomaticActive(ctx context.Context, tenantID, storeID string) ([]domain.Promotion, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM promotions
		WHERE tenant_id = $1 AND store_id = $2
		  AND is_automatic = TRUE AND is_active = TRUE AND status = $3
		ORDER BY created_at ASC, id ASC`, promotionColumns)

	rows, err := s.q.Query(ctx, query, tenantID, storeID, domain.PromotionStatusActive)
	if err != nil {
		return nil, fmt.Errorf("list automatic active promotions: %w", err)
	}
	defer rows.Close()

	var promotions []domain.Promotion
	for rows.Next() {
		var (
			p            domain.Promotion
			metadataJSON []byte
		)
		if err := rows.Scan(
			&p.ID, &p.TenantID, &p.StoreID, &p.Code, &p.Type, &p.Status,
			&p.IsAutomatic, &p.IsActive, &p.StartsAt, &p.EndsAt, &p.UsageLimit,
			&metadataJSON, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan promotion row: %w", err)
		}
		if err := unmarshalMetadata(&p, metadataJSON); err != nil {
			return nil, err
		}
		promotions = append(promotions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate promotion rows: %w", err)
	}

	refs := make([]*domain.Promotion, len(promotions))
	for i := range promotions {
		refs[i] = &promotions[i]
	}
	if err := hydratePromotions(ctx, s.q, refs); err != nil {
		return nil, err
	}

	return promotions, nil
}

// AdjustmentStore implements repository.AdjustmentWriter over any Querier.
type AdjustmentStore struct {
	q database.Querier
}

// NewAdjustmentStore creates an adjustment writer over the given query
// executor.
func NewAdjustmentStore(q database.Querier) *AdjustmentStore {
	return &AdjustmentStore{q: q}
}

// DeleteForCart removes all promotion adjustment rows for the cart.
func (s *AdjustmentStore) DeleteForCart(ctx context.Context, cartID string) error {
	_, err := s.q.Exec(ctx, `DELETE FROM cart_promotion_adjustments WHERE cart_id = $1`, cartID)
	if err != nil {
		return fmt.Errorf("delete promotion adjustments: %w", err)
	}
	return nil
}

// Insert writes new promotion adjustment rows.
func (s *AdjustmentStore) Insert(ctx context.Context, adjustments []domain.PromotionAdjustment) error {
	for _, adj := range adjustments {
		_, err := s.q.Exec(ctx, `
			INSERT INTO cart_promotion_adjustments (id, cart_id, promotion_id, amount, description, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			adj.ID, adj.CartID, adj.PromotionID, adj.Amount, adj.Description, adj.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert promotion adjustment: %w", err)
		}
	}
	return nil
}

// UpdateCartTotals writes the recomputed subtotal, discount, and total.
func (s *AdjustmentStore) UpdateCartTotals(ctx context.Context, cartID string, subtotal, discount, total int64) error {
	ct, err := s.q.Exec(ctx, `
		UPDATE carts
		SET subtotal_amount = $1, discount_amount = $2, total_amount = $3, updated_at = $4
		WHERE id = $5`,
		subtotal, discount, total, time.Now().UTC(), cartID,
	)
	if err != nil {
		return fmt.Errorf("update cart totals: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("cart", cartID)
	}

	return nil
}
