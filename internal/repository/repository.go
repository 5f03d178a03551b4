package repository

import (
	"context"

	"github.com/utafrali/promo-backoffice/internal/domain"
)

// PromotionFilter defines filter criteria for listing promotions.
type PromotionFilter struct {
	Status      *string
	IsAutomatic *bool
	Page        int
	PerPage     int
}

// CampaignFilter defines filter criteria for listing campaigns.
type CampaignFilter struct {
	IsActive *bool
	Page     int
	PerPage  int
}

// PromotionRepository defines the interface for promotion persistence operations.
// Every query is scoped by tenant and store.
type PromotionRepository interface {
	// Create inserts a new promotion with its application method and rules.
	Create(ctx context.Context, p *domain.Promotion) error

	// GetByID retrieves a promotion, hydrated with rules and application method.
	GetByID(ctx context.Context, id, tenantID, storeID string) (*domain.Promotion, error)

	// List returns promotions matching the given filter along with the total count.
	List(ctx context.Context, tenantID, storeID string, filter PromotionFilter) ([]domain.Promotion, int, error)

	// Update modifies an existing promotion and its application method.
	Update(ctx context.Context, p *domain.Promotion) error

	// ReplaceRules deletes all existing rules for the promotion and inserts
	// the replacement set. Replace semantics, not patch.
	ReplaceRules(ctx context.Context, promotionID string, rules []domain.PromotionRule) error

	// Delete removes a promotion with its rules and application method.
	Delete(ctx context.Context, id, tenantID, storeID string) error
}

// CampaignRepository defines the interface for campaign persistence operations.
type CampaignRepository interface {
	// Create inserts a new campaign.
	Create(ctx context.Context, c *domain.Campaign) error

	// GetByID retrieves a campaign with its linked promotion ids.
	GetByID(ctx context.Context, id, tenantID, storeID string) (*domain.Campaign, error)

	// List returns campaigns matching the given filter along with the total count.
	List(ctx context.Context, tenantID, storeID string, filter CampaignFilter) ([]domain.Campaign, int, error)

	// Update modifies an existing campaign.
	Update(ctx context.Context, c *domain.Campaign) error

	// Delete removes a campaign and its promotion links.
	Delete(ctx context.Context, id, tenantID, storeID string) error

	// AttachPromotion links a promotion to a campaign. Idempotent.
	AttachPromotion(ctx context.Context, campaignID, promotionID, tenantID, storeID string) error

	// DetachPromotion removes a promotion link from a campaign.
	DetachPromotion(ctx context.Context, campaignID, promotionID, tenantID, storeID string) error
}

// CartReader loads carts for recomputation.
type CartReader interface {
	// FindCart retrieves a cart with its items and manual adjustments.
	// Returns apperrors.ErrNotFound when the cart does not exist for the
	// given tenant and store.
	FindCart(ctx context.Context, cartID, tenantID, storeID string) (*domain.Cart, error)
}

// PromotionReader loads candidate promotions for recomputation.
type PromotionReader interface {
	// ListAutomaticActive returns automatic, active promotions with status
	// active for the given tenant and store, hydrated with rules and
	// application method, ordered by creation time.
	ListAutomaticActive(ctx context.Context, tenantID, storeID string) ([]domain.Promotion, error)
}

// AdjustmentWriter persists recomputation results.
type AdjustmentWriter interface {
	// DeleteForCart removes all promotion adjustment rows for the cart.
	DeleteForCart(ctx context.Context, cartID string) error

	// Insert writes new promotion adjustment rows.
	Insert(ctx context.Context, adjustments []domain.PromotionAdjustment) error

	// UpdateCartTotals writes the recomputed subtotal, discount, and total.
	UpdateCartTotals(ctx context.Context, cartID string, subtotal, discount, total int64) error
}

// Stores bundles the recomputation collaborators bound to one transaction.
type Stores struct {
	Carts       CartReader
	Promotions  PromotionReader
	Adjustments AdjustmentWriter
}

// UnitOfWork runs a function inside a single database transaction. The
// Stores passed to fn are bound to that transaction; any error from fn
// rolls back everything.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}
