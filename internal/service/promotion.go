package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/promo-backoffice/internal/domain"
	"github.com/utafrali/promo-backoffice/internal/event"
	"github.com/utafrali/promo-backoffice/internal/repository"
	apperrors "github.com/utafrali/promo-backoffice/pkg/errors"
)

// PromotionService implements the business logic for promotion operations.
type PromotionService struct {
	repo     repository.PromotionRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewPromotionService creates a new promotion service.
func NewPromotionService(repo repository.PromotionRepository, producer *event.Producer, logger *slog.Logger) *PromotionService {
	return &PromotionService{
		repo:     repo,
		producer: producer,
		logger:   logger,
	}
}

// MethodInput holds the application method parameters for create and update.
type MethodInput struct {
	Type           string
	Allocation     string
	TargetType     string
	ValueAmount    int64
	ValueBps       int64
	Currency       string
	MaxQuantity    int
	IsTaxInclusive bool
}

// RuleInput holds one rule's parameters.
type RuleInput struct {
	Scope     string
	Attribute string
	Operator  string
	Values    []any
}

// CreatePromotionInput holds the parameters for creating a promotion.
type CreatePromotionInput struct {
	Code        string
	IsAutomatic bool
	IsActive    bool
	StartsAt    *time.Time
	EndsAt      *time.Time
	UsageLimit  *int
	Metadata    map[string]any
	Method      *MethodInput
	Rules       []RuleInput
}

// UpdatePromotionInput holds the parameters for updating a promotion.
// Nil fields are left unchanged.
type UpdatePromotionInput struct {
	Code        *string
	Status      *string
	IsAutomatic *bool
	IsActive    *bool
	StartsAt    *time.Time
	EndsAt      *time.Time
	UsageLimit  *int
	Metadata    map[string]any
	Method      *MethodInput
}

// CreatePromotion creates a new promotion in draft status with its
// application method and rules.
func (s *PromotionService) CreatePromotion(ctx context.Context, tenantID, storeID string, input *CreatePromotionInput) (*domain.Promotion, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		return nil, apperrors.InvalidInput("promotion code is required")
	}
	if input.Method == nil {
		return nil, apperrors.InvalidInput("application method is required")
	}
	if err := validateMethod(input.Method); err != nil {
		return nil, err
	}
	if err := validateRules(input.Rules); err != nil {
		return nil, err
	}
	if input.StartsAt != nil && input.EndsAt != nil && !input.EndsAt.After(*input.StartsAt) {
		return nil, apperrors.InvalidInput("ends_at must be after starts_at")
	}
	if input.UsageLimit != nil && *input.UsageLimit < 1 {
		return nil, apperrors.InvalidInput("usage limit must be at least 1")
	}

	now := time.Now().UTC()
	promotion := &domain.Promotion{
		ID:          uuid.New().String(),
		TenantID:    tenantID,
		StoreID:     storeID,
		Code:        code,
		Type:        domain.PromotionTypeStandard,
		Status:      domain.PromotionStatusDraft,
		IsAutomatic: input.IsAutomatic,
		IsActive:    input.IsActive,
		StartsAt:    input.StartsAt,
		EndsAt:      input.EndsAt,
		UsageLimit:  input.UsageLimit,
		Metadata:    input.Metadata,
		Rules:       buildRules(uuid.New().String, input.Rules),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	method := buildMethod(input.Method)
	method.ID = uuid.New().String()
	method.PromotionID = promotion.ID
	promotion.Method = method

	for i := range promotion.Rules {
		promotion.Rules[i].PromotionID = promotion.ID
	}

	if err := s.repo.Create(ctx, promotion); err != nil {
		return nil, fmt.Errorf("create promotion: %w", err)
	}

	if err := s.producer.PublishPromotionCreated(ctx, promotion); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish promotion.created event",
			slog.String("promotion_id", promotion.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "promotion created",
		slog.String("promotion_id", promotion.ID),
		slog.String("code", promotion.Code),
		slog.String("tenant_id", tenantID),
	)

	return promotion, nil
}

// GetPromotion retrieves a promotion by its ID.
func (s *PromotionService) GetPromotion(ctx context.Context, id, tenantID, storeID string) (*domain.Promotion, error) {
	promotion, err := s.repo.GetByID(ctx, id, tenantID, storeID)
	if err != nil {
		return nil, fmt.Errorf("get promotion by id: %w", err)
	}
	return promotion, nil
}

// ListPromotions returns a filtered, paginated list of promotions.
func (s *PromotionService) ListPromotions(ctx context.Context, tenantID, storeID string, filter repository.PromotionFilter) ([]domain.Promotion, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}

	if filter.Status != nil && !domain.IsValidStatus(*filter.Status) {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("invalid status %q, must be one of: %s", *filter.Status, strings.Join(domain.ValidStatuses(), ", ")))
	}

	promotions, total, err := s.repo.List(ctx, tenantID, storeID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list promotions: %w", err)
	}

	return promotions, total, nil
}

// UpdatePromotion applies partial updates to an existing promotion.
func (s *PromotionService) UpdatePromotion(ctx context.Context, id, tenantID, storeID string, input *UpdatePromotionInput) (*domain.Promotion, error) {
	promotion, err := s.repo.GetByID(ctx, id, tenantID, storeID)
	if err != nil {
		return nil, fmt.Errorf("get promotion for update: %w", err)
	}

	if input.Code != nil {
		code := strings.ToUpper(strings.TrimSpace(*input.Code))
		if code == "" {
			return nil, apperrors.InvalidInput("promotion code must not be empty")
		}
		promotion.Code = code
	}

	if input.Status != nil {
		if !domain.IsValidStatus(*input.Status) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid status %q, must be one of: %s", *input.Status, strings.Join(domain.ValidStatuses(), ", ")))
		}
		promotion.Status = *input.Status
	}

	if input.IsAutomatic != nil {
		promotion.IsAutomatic = *input.IsAutomatic
	}

	if input.IsActive != nil {
		promotion.IsActive = *input.IsActive
	}

	if input.StartsAt != nil {
		promotion.StartsAt = input.StartsAt
	}

	if input.EndsAt != nil {
		promotion.EndsAt = input.EndsAt
	}

	if promotion.StartsAt != nil && promotion.EndsAt != nil && !promotion.EndsAt.After(*promotion.StartsAt) {
		return nil, apperrors.InvalidInput("ends_at must be after starts_at")
	}

	if input.UsageLimit != nil {
		if *input.UsageLimit < 1 {
			return nil, apperrors.InvalidInput("usage limit must be at least 1")
		}
		promotion.UsageLimit = input.UsageLimit
	}

	if input.Metadata != nil {
		promotion.Metadata = input.Metadata
	}

	if input.Method != nil {
		if err := validateMethod(input.Method); err != nil {
			return nil, err
		}
		method := buildMethod(input.Method)
		if promotion.Method != nil {
			method.ID = promotion.Method.ID
		} else {
			method.ID = uuid.New().String()
		}
		method.PromotionID = promotion.ID
		promotion.Method = method
	}

	if err := s.repo.Update(ctx, promotion); err != nil {
		return nil, fmt.Errorf("update promotion: %w", err)
	}

	if err := s.producer.PublishPromotionUpdated(ctx, promotion); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish promotion.updated event",
			slog.String("promotion_id", promotion.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "promotion updated",
		slog.String("promotion_id", promotion.ID),
		slog.String("code", promotion.Code),
	)

	return promotion, nil
}

// UpdateStatus transitions a promotion to the given status.
func (s *PromotionService) UpdateStatus(ctx context.Context, id, tenantID, storeID, status string) (*domain.Promotion, error) {
	return s.UpdatePromotion(ctx, id, tenantID, storeID, &UpdatePromotionInput{Status: &status})
}

// ReplaceRules replaces the promotion's full rule set. Replace semantics:
// rules absent from the input are removed.
func (s *PromotionService) ReplaceRules(ctx context.Context, id, tenantID, storeID string, inputs []RuleInput) (*domain.Promotion, error) {
	promotion, err := s.repo.GetByID(ctx, id, tenantID, storeID)
	if err != nil {
		return nil, fmt.Errorf("get promotion for rule replace: %w", err)
	}

	if err := validateRules(inputs); err != nil {
		return nil, err
	}

	rules := buildRules(uuid.New().String, inputs)
	for i := range rules {
		rules[i].PromotionID = promotion.ID
	}

	if err := s.repo.ReplaceRules(ctx, promotion.ID, rules); err != nil {
		return nil, fmt.Errorf("replace promotion rules: %w", err)
	}

	promotion.Rules = rules
	if promotion.Rules == nil {
		promotion.Rules = []domain.PromotionRule{}
	}

	if err := s.producer.PublishPromotionUpdated(ctx, promotion); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish promotion.updated event",
			slog.String("promotion_id", promotion.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "promotion rules replaced",
		slog.String("promotion_id", promotion.ID),
		slog.Int("rule_count", len(rules)),
	)

	return promotion, nil
}

// DeletePromotion removes a promotion with its rules and application method.
func (s *PromotionService) DeletePromotion(ctx context.Context, id, tenantID, storeID string) error {
	promotion, err := s.repo.GetByID(ctx, id, tenantID, storeID)
	if err != nil {
		return fmt.Errorf("get promotion for delete: %w", err)
	}

	if err := s.repo.Delete(ctx, id, tenantID, storeID); err != nil {
		return fmt.Errorf("delete promotion: %w", err)
	}

	if err := s.producer.PublishPromotionDeleted(ctx, promotion); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish promotion.deleted event",
			slog.String("promotion_id", promotion.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "promotion deleted",
		slog.String("promotion_id", promotion.ID),
		slog.String("code", promotion.Code),
	)

	return nil
}

func validateMethod(m *MethodInput) error {
	if !domain.IsValidMethodType(m.Type) {
		return apperrors.InvalidInput(fmt.Sprintf("invalid method type %q, must be one of: %s", m.Type, strings.Join(domain.ValidMethodTypes(), ", ")))
	}
	if !domain.IsValidAllocation(m.Allocation) {
		return apperrors.InvalidInput(fmt.Sprintf("invalid allocation %q, must be one of: %s", m.Allocation, strings.Join(domain.ValidAllocations(), ", ")))
	}
	if !domain.IsValidTargetType(m.TargetType) {
		return apperrors.InvalidInput(fmt.Sprintf("invalid target type %q, must be %q", m.TargetType, domain.TargetTypeItems))
	}

	switch m.Type {
	case domain.MethodTypeFixed:
		if m.ValueAmount < 0 {
			return apperrors.InvalidInput("fixed value amount must not be negative")
		}
	case domain.MethodTypePercent:
		if m.ValueBps < 0 || m.ValueBps > domain.MaxValueBps {
			return apperrors.InvalidInput(fmt.Sprintf("percent value must be between 0 and %d basis points", domain.MaxValueBps))
		}
	}

	if m.MaxQuantity < 1 {
		return apperrors.InvalidInput("max quantity must be at least 1")
	}

	return nil
}

func validateRules(rules []RuleInput) error {
	for i, r := range rules {
		if !domain.IsValidScope(r.Scope) {
			return apperrors.InvalidInput(fmt.Sprintf("rule %d: invalid scope %q, must be one of: %s", i, r.Scope, strings.Join(domain.ValidScopes(), ", ")))
		}
		if strings.TrimSpace(r.Attribute) == "" {
			return apperrors.InvalidInput(fmt.Sprintf("rule %d: attribute is required", i))
		}
		if !domain.IsValidOperator(r.Operator) {
			return apperrors.InvalidInput(fmt.Sprintf("rule %d: invalid operator %q, must be one of: %s", i, r.Operator, strings.Join(domain.ValidOperators(), ", ")))
		}
		// An empty array is accepted; such a rule simply never matches.
		if r.Values == nil {
			return apperrors.InvalidInput(fmt.Sprintf("rule %d: values are required", i))
		}
	}
	return nil
}

func buildMethod(in *MethodInput) *domain.ApplicationMethod {
	return &domain.ApplicationMethod{
		Type:           in.Type,
		Allocation:     in.Allocation,
		TargetType:     in.TargetType,
		ValueAmount:    in.ValueAmount,
		ValueBps:       in.ValueBps,
		Currency:       in.Currency,
		MaxQuantity:    in.MaxQuantity,
		IsTaxInclusive: in.IsTaxInclusive,
	}
}

func buildRules(newID func() string, inputs []RuleInput) []domain.PromotionRule {
	rules := make([]domain.PromotionRule, 0, len(inputs))
	for _, in := range inputs {
		rules = append(rules, domain.PromotionRule{
			ID:        newID(),
			Scope:     in.Scope,
			Attribute: in.Attribute,
			Operator:  in.Operator,
			Values:    in.Values,
		})
	}
	return rules
}
