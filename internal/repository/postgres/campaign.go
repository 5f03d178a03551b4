package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/promo-backoffice/internal/domain"
	"github.com/utafrali/promo-backoffice/internal/repository"
	"github.com/utafrali/promo-backoffice/pkg/database"
	apperrors "github.com/utafrali/promo-backoffice/pkg/errors"
)

// CampaignRepository implements repository.CampaignRepository using PostgreSQL.
type CampaignRepository struct {
	pool database.DBTX
}

// NewCampaignRepository creates a new PostgreSQL-backed campaign repository.
func NewCampaignRepository(pool database.DBTX) *CampaignRepository {
	return &CampaignRepository{pool: pool}
}

// Create inserts a new campaign.
func (r *CampaignRepository) Create(ctx context.Context, c *domain.Campaign) error {
	budgetJSON, err := marshalBudget(c.Budget)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO campaigns (
			id, tenant_id, store_id, name, description, starts_at, ends_at,
			is_active, budget, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.pool.Exec(ctx, query,
		c.ID,
		c.TenantID,
		c.StoreID,
		c.Name,
		c.Description,
		c.StartsAt,
		c.EndsAt,
		c.IsActive,
		budgetJSON,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("campaign", "name", c.Name)
		}
		return fmt.Errorf("insert campaign: %w", err)
	}

	return nil
}

// GetByID retrieves a campaign with its linked promotion ids.
func (r *CampaignRepository) GetByID(ctx context.Context, id, tenantID, storeID string) (*domain.Campaign, error) {
	query := `
		SELECT id, tenant_id, store_id, name, description, starts_at, ends_at,
		       is_active, budget, created_at, updated_at
		FROM campaigns
		WHERE id = $1 AND tenant_id = $2 AND store_id = $3`

	var (
		c          domain.Campaign
		budgetJSON []byte
	)

	err := r.pool.QueryRow(ctx, query, id, tenantID, storeID).Scan(
		&c.ID, &c.TenantID, &c.StoreID, &c.Name, &c.Description,
		&c.StartsAt, &c.EndsAt, &c.IsActive, &budgetJSON, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get campaign by id: %w", err)
	}

	if err := unmarshalBudget(&c, budgetJSON); err != nil {
		return nil, err
	}

	if err := r.loadPromotionIDs(ctx, &c); err != nil {
		return nil, err
	}

	return &c, nil
}

// List returns campaigns matching the given filter with the total count.
func (r *CampaignRepository) List(ctx context.Context, tenantID, storeID string, filter repository.CampaignFilter) ([]domain.Campaign, int, error) {
	conditions := []string{"tenant_id = $1", "store_id = $2"}
	args := []any{tenantID, storeID}
	argIndex := 3

	if filter.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argIndex))
		args = append(args, *filter.IsActive)
		argIndex++
	}

	query := fmt.Sprintf(`
		SELECT id, tenant_id, store_id, name, description, starts_at, ends_at,
		       is_active, budget, created_at, updated_at, count(*) OVER() AS total_count
		FROM campaigns
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		strings.Join(conditions, " AND "), argIndex, argIndex+1,
	)

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var (
		campaigns  []domain.Campaign
		totalCount int
	)

	for rows.Next() {
		var (
			c          domain.Campaign
			budgetJSON []byte
		)

		if err := rows.Scan(
			&c.ID, &c.TenantID, &c.StoreID, &c.Name, &c.Description,
			&c.StartsAt, &c.EndsAt, &c.IsActive, &budgetJSON,
			&c.CreatedAt, &c.UpdatedAt, &totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan campaign row: %w", err)
		}

		if err := unmarshalBudget(&c, budgetJSON); err != nil {
			return nil, 0, err
		}

		campaigns = append(campaigns, c)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate campaign rows: %w", err)
	}

	for i := range campaigns {
		if err := r.loadPromotionIDs(ctx, &campaigns[i]); err != nil {
			return nil, 0, err
		}
	}

	if campaigns == nil {
		campaigns = []domain.Campaign{}
	}

	return campaigns, totalCount, nil
}

// Update modifies an existing campaign.
func (r *CampaignRepository) Update(ctx context.Context, c *domain.Campaign) error {
	budgetJSON, err := marshalBudget(c.Budget)
	if err != nil {
		return err
	}

	c.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE campaigns
		SET name = $1, description = $2, starts_at = $3, ends_at = $4,
		    is_active = $5, budget = $6, updated_at = $7
		WHERE id = $8 AND tenant_id = $9 AND store_id = $10`

	ct, err := r.pool.Exec(ctx, query,
		c.Name,
		c.Description,
		c.StartsAt,
		c.EndsAt,
		c.IsActive,
		budgetJSON,
		c.UpdatedAt,
		c.ID,
		c.TenantID,
		c.StoreID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("campaign", "name", c.Name)
		}
		return fmt.Errorf("update campaign: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("campaign", c.ID)
	}

	return nil
}

// Delete removes a campaign; promotion links cascade at the schema level.
func (r *CampaignRepository) Delete(ctx context.Context, id, tenantID, storeID string) error {
	ct, err := r.pool.Exec(ctx,
		`DELETE FROM campaigns WHERE id = $1 AND tenant_id = $2 AND store_id = $3`,
		id, tenantID, storeID,
	)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("campaign", id)
	}

	return nil
}

// AttachPromotion links a promotion to a campaign. Re-attaching an already
// linked promotion is a no-op.
func (r *CampaignRepository) AttachPromotion(ctx context.Context, campaignID, promotionID, tenantID, storeID string) error {
	query := `
		INSERT INTO campaign_promotions (campaign_id, promotion_id)
		SELECT c.id, p.id
		FROM campaigns c, promotions p
		WHERE c.id = $1 AND c.tenant_id = $3 AND c.store_id = $4
		  AND p.id = $2 AND p.tenant_id = $3 AND p.store_id = $4
		ON CONFLICT (campaign_id, promotion_id) DO NOTHING`

	ct, err := r.pool.Exec(ctx, query, campaignID, promotionID, tenantID, storeID)
	if err != nil {
		return fmt.Errorf("attach promotion: %w", err)
	}

	if ct.RowsAffected() == 0 {
		// Either the link already exists or one side is missing. Distinguish
		// by checking the campaign; the caller treats both sides as 404.
		exists, err := r.linkExists(ctx, campaignID, promotionID)
		if err != nil {
			return err
		}
		if !exists {
			return apperrors.NotFound("campaign or promotion", campaignID)
		}
	}

	return nil
}

// DetachPromotion removes a promotion link from a campaign.
func (r *CampaignRepository) DetachPromotion(ctx context.Context, campaignID, promotionID, tenantID, storeID string) error {
	query := `
		DELETE FROM campaign_promotions cp
		USING campaigns c
		WHERE cp.campaign_id = c.id
		  AND cp.campaign_id = $1 AND cp.promotion_id = $2
		  AND c.tenant_id = $3 AND c.store_id = $4`

	ct, err := r.pool.Exec(ctx, query, campaignID, promotionID, tenantID, storeID)
	if err != nil {
		return fmt.Errorf("detach promotion: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("campaign promotion link", promotionID)
	}

	return nil
}

func (r *CampaignRepository) loadPromotionIDs(ctx context.Context, c *domain.Campaign) error {
	rows, err := r.pool.Query(ctx,
		`SELECT promotion_id FROM campaign_promotions WHERE campaign_id = $1 ORDER BY promotion_id`,
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("load campaign promotion ids: %w", err)
	}
	defer rows.Close()

	c.PromotionIDs = []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scan campaign promotion id: %w", err)
		}
		c.PromotionIDs = append(c.PromotionIDs, id)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate campaign promotion ids: %w", err)
	}

	return nil
}

func (r *CampaignRepository) linkExists(ctx context.Context, campaignID, promotionID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM campaign_promotions WHERE campaign_id = $1 AND promotion_id = $2)`,
		campaignID, promotionID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check campaign promotion link: %w", err)
	}
	return exists, nil
}

func marshalBudget(b *domain.CampaignBudget) ([]byte, error) {
	if b == nil {
		return nil, nil
	}
	budgetJSON, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("marshal budget: %w", err)
	}
	return budgetJSON, nil
}

func unmarshalBudget(c *domain.Campaign, budgetJSON []byte) error {
	if budgetJSON == nil || string(budgetJSON) == "null" {
		return nil
	}
	var b domain.CampaignBudget
	if err := json.Unmarshal(budgetJSON, &b); err != nil {
		return fmt.Errorf("unmarshal budget: %w", err)
	}
	c.Budget = &b
	return nil
}
