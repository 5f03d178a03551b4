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

// PromotionRepository implements repository.PromotionRepository using PostgreSQL.
type PromotionRepository struct {
	pool database.DBTX
}

// NewPromotionRepository creates a new PostgreSQL-backed promotion repository.
func NewPromotionRepository(pool database.DBTX) *PromotionRepository {
	return &PromotionRepository{pool: pool}
}

const promotionColumns = `id, tenant_id, store_id, code, type, status, is_automatic, is_active,
	starts_at, ends_at, usage_limit, metadata, created_at, updated_at`

// Create inserts a new promotion with its application method and rules in
// one transaction.
func (r *PromotionRepository) Create(ctx context.Context, p *domain.Promotion) error {
	metadataJSON, err := json.Marshal(p.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO promotions (
			id, tenant_id, store_id, code, type, status, is_automatic, is_active,
			starts_at, ends_at, usage_limit, metadata, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = tx.Exec(ctx, query,
		p.ID,
		p.TenantID,
		p.StoreID,
		p.Code,
		p.Type,
		p.Status,
		p.IsAutomatic,
		p.IsActive,
		p.StartsAt,
		p.EndsAt,
		p.UsageLimit,
		metadataJSON,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("promotion", "code", p.Code)
		}
		return fmt.Errorf("insert promotion: %w", err)
	}

	if p.Method != nil {
		if err := insertMethod(ctx, tx, p.Method); err != nil {
			return err
		}
	}

	if err := insertRules(ctx, tx, p.ID, p.Rules); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a promotion hydrated with its rules and application method.
func (r *PromotionRepository) GetByID(ctx context.Context, id, tenantID, storeID string) (*domain.Promotion, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM promotions
		WHERE id = $1 AND tenant_id = $2 AND store_id = $3`, promotionColumns)

	p, err := scanPromotionRow(r.pool.QueryRow(ctx, query, id, tenantID, storeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get promotion by id: %w", err)
	}

	if err := hydratePromotions(ctx, r.pool, []*domain.Promotion{p}); err != nil {
		return nil, err
	}

	return p, nil
}

// List returns promotions matching the given filter with the total count.
func (r *PromotionRepository) List(ctx context.Context, tenantID, storeID string, filter repository.PromotionFilter) ([]domain.Promotion, int, error) {
	conditions := []string{"tenant_id = $1", "store_id = $2"}
	args := []any{tenantID, storeID}
	argIndex := 3

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	if filter.IsAutomatic != nil {
		conditions = append(conditions, fmt.Sprintf("is_automatic = $%d", argIndex))
		args = append(args, *filter.IsAutomatic)
		argIndex++
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM promotions
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		promotionColumns, strings.Join(conditions, " AND "), argIndex, argIndex+1,
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
		return nil, 0, fmt.Errorf("list promotions: %w", err)
	}
	defer rows.Close()

	var (
		promotions []domain.Promotion
		totalCount int
	)

	for rows.Next() {
		var (
			p            domain.Promotion
			metadataJSON []byte
		)

		if err := rows.Scan(
			&p.ID, &p.TenantID, &p.StoreID, &p.Code, &p.Type, &p.Status,
			&p.IsAutomatic, &p.IsActive, &p.StartsAt, &p.EndsAt, &p.UsageLimit,
			&metadataJSON, &p.CreatedAt, &p.UpdatedAt, &totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan promotion row: %w", err)
		}

		if err := unmarshalMetadata(&p, metadataJSON); err != nil {
			return nil, 0, err
		}

		promotions = append(promotions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate promotion rows: %w", err)
	}

	refs := make([]*domain.Promotion, len(promotions))
	for i := range promotions {
		refs[i] = &promotions[i]
	}
	if err := hydratePromotions(ctx, r.pool, refs); err != nil {
		return nil, 0, err
	}

	if promotions == nil {
		promotions = []domain.Promotion{}
	}

	return promotions, totalCount, nil
}

// Update modifies an existing promotion and upserts its application method.
func (r *PromotionRepository) Update(ctx context.Context, p *domain.Promotion) error {
	metadataJSON, err := json.Marshal(p.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	p.UpdatedAt = time.Now().UTC()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		UPDATE promotions
		SET code = $1, status = $2, is_automatic = $3, is_active = $4,
		    starts_at = $5, ends_at = $6, usage_limit = $7, metadata = $8, updated_at = $9
		WHERE id = $10 AND tenant_id = $11 AND store_id = $12`

	ct, err := tx.Exec(ctx, query,
		p.Code,
		p.Status,
		p.IsAutomatic,
		p.IsActive,
		p.StartsAt,
		p.EndsAt,
		p.UsageLimit,
		metadataJSON,
		p.UpdatedAt,
		p.ID,
		p.TenantID,
		p.StoreID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("promotion", "code", p.Code)
		}
		return fmt.Errorf("update promotion: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("promotion", p.ID)
	}

	if p.Method != nil {
		if err := upsertMethod(ctx, tx, p.Method); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// ReplaceRules deletes all existing rules for the promotion and inserts the
// replacement set in one transaction.
func (r *PromotionRepository) ReplaceRules(ctx context.Context, promotionID string, rules []domain.PromotionRule) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM promotion_rules WHERE promotion_id = $1`, promotionID); err != nil {
		return fmt.Errorf("delete promotion rules: %w", err)
	}

	if err := insertRules(ctx, tx, promotionID, rules); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// Delete removes a promotion; rules, application method, and campaign links
// cascade at the schema level.
func (r *PromotionRepository) Delete(ctx context.Context, id, tenantID, storeID string) error {
	ct, err := r.pool.Exec(ctx,
		`DELETE FROM promotions WHERE id = $1 AND tenant_id = $2 AND store_id = $3`,
		id, tenantID, storeID,
	)
	if err != nil {
		return fmt.Errorf("delete promotion: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("promotion", id)
	}

	return nil
}

// ---------------------------------------------------------------------------
// shared helpers (also used by the transaction-bound promotion reader)
// ---------------------------------------------------------------------------

func scanPromotionRow(row pgx.Row) (*domain.Promotion, error) {
	var (
		p            domain.Promotion
		metadataJSON []byte
	)

	err := row.Scan(
		&p.ID, &p.TenantID, &p.StoreID, &p.Code, &p.Type, &p.Status,
		&p.IsAutomatic, &p.IsActive, &p.StartsAt, &p.EndsAt, &p.UsageLimit,
		&metadataJSON, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalMetadata(&p, metadataJSON); err != nil {
		return nil, err
	}

	return &p, nil
}

func unmarshalMetadata(p *domain.Promotion, metadataJSON []byte) error {
	if metadataJSON != nil && string(metadataJSON) != "null" {
		if err := json.Unmarshal(metadataJSON, &p.Metadata); err != nil {
			return fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return nil
}

// hydratePromotions loads rules and application methods for the given
// promotions with two batch queries.
func hydratePromotions(ctx context.Context, q database.Querier, promotions []*domain.Promotion) error {
	if len(promotions) == 0 {
		return nil
	}

	ids := make([]string, len(promotions))
	byID := make(map[string]*domain.Promotion, len(promotions))
	for i, p := range promotions {
		ids[i] = p.ID
		byID[p.ID] = p
		if p.Rules == nil {
			p.Rules = []domain.PromotionRule{}
		}
	}

	rows, err := q.Query(ctx, `
		SELECT id, promotion_id, scope, attribute, operator, values
		FROM promotion_rules
		WHERE promotion_id = ANY($1)
		ORDER BY promotion_id, id`, ids)
	if err != nil {
		return fmt.Errorf("load promotion rules: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rule       domain.PromotionRule
			valuesJSON []byte
		)
		if err := rows.Scan(&rule.ID, &rule.PromotionID, &rule.Scope, &rule.Attribute, &rule.Operator, &valuesJSON); err != nil {
			return fmt.Errorf("scan promotion rule row: %w", err)
		}
		if valuesJSON != nil {
			if err := json.Unmarshal(valuesJSON, &rule.Values); err != nil {
				return fmt.Errorf("unmarshal rule values: %w", err)
			}
		}
		if p, ok := byID[rule.PromotionID]; ok {
			p.Rules = append(p.Rules, rule)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate promotion rule rows: %w", err)
	}

	methodRows, err := q.Query(ctx, `
		SELECT id, promotion_id, type, allocation, target_type, value_amount,
		       value_bps, currency, max_quantity, is_tax_inclusive
		FROM application_methods
		WHERE promotion_id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("load application methods: %w", err)
	}
	defer methodRows.Close()

	for methodRows.Next() {
		var m domain.ApplicationMethod
		if err := methodRows.Scan(
			&m.ID, &m.PromotionID, &m.Type, &m.Allocation, &m.TargetType,
			&m.ValueAmount, &m.ValueBps, &m.Currency, &m.MaxQuantity, &m.IsTaxInclusive,
		); err != nil {
			return fmt.Errorf("scan application method row: %w", err)
		}
		if p, ok := byID[m.PromotionID]; ok {
			method := m
			p.Method = &method
		}
	}
	if err := methodRows.Err(); err != nil {
		return fmt.Errorf("iterate application method rows: %w", err)
	}

	return nil
}

func insertMethod(ctx context.Context, q database.Querier, m *domain.ApplicationMethod) error {
	query := `
		INSERT INTO application_methods (
			id, promotion_id, type, allocation, target_type, value_amount,
			value_bps, currency, max_quantity, is_tax_inclusive
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := q.Exec(ctx, query,
		m.ID, m.PromotionID, m.Type, m.Allocation, m.TargetType,
		m.ValueAmount, m.ValueBps, m.Currency, m.MaxQuantity, m.IsTaxInclusive,
	)
	if err != nil {
		return fmt.Errorf("insert application method: %w", err)
	}
	return nil
}

func upsertMethod(ctx context.Context, q database.Querier, m *domain.ApplicationMethod) error {
	query := `
		INSERT INTO application_methods (
			id, promotion_id, type, allocation, target_type, value_amount,
			value_bps, currency, max_quantity, is_tax_inclusive
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (promotion_id) DO UPDATE SET
			type = EXCLUDED.type,
			allocation = EXCLUDED.allocation,
			target_type = EXCLUDED.target_type,
			value_amount = EXCLUDED.value_amount,
			value_bps = EXCLUDED.value_bps,
			currency = EXCLUDED.currency,
			max_quantity = EXCLUDED.max_quantity,
			is_tax_inclusive = EXCLUDED.is_tax_inclusive`

	_, err := q.Exec(ctx, query,
		m.ID, m.PromotionID, m.Type, m.Allocation, m.TargetType,
		m.ValueAmount, m.ValueBps, m.Currency, m.MaxQuantity, m.IsTaxInclusive,
	)
	if err != nil {
		return fmt.Errorf("upsert application method: %w", err)
	}
	return nil
}

func insertRules(ctx context.Context, q database.Querier, promotionID string, rules []domain.PromotionRule) error {
	for _, rule := range rules {
		valuesJSON, err := json.Marshal(rule.Values)
		if err != nil {
			return fmt.Errorf("marshal rule values: %w", err)
		}

		_, err = q.Exec(ctx, `
			INSERT INTO promotion_rules (id, promotion_id, scope, attribute, operator, values)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			rule.ID, promotionID, rule.Scope, rule.Attribute, rule.Operator, valuesJSON,
		)
		if err != nil {
			return fmt.Errorf("insert promotion rule: %w", err)
		}
	}
	return nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
