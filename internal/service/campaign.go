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

// CampaignService implements the business logic for campaign operations.
type CampaignService struct {
	repo     repository.CampaignRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewCampaignService creates a new campaign service.
func NewCampaignService(repo repository.CampaignRepository, producer *event.Producer, logger *slog.Logger) *CampaignService {
	return &CampaignService{
		repo:     repo,
		producer: producer,
		logger:   logger,
	}
}

// BudgetInput holds campaign budget parameters.
type BudgetInput struct {
	Type        string
	LimitAmount *int64
	Currency    string
	Attribute   string
}

// CreateCampaignInput holds the parameters for creating a campaign.
type CreateCampaignInput struct {
	Name        string
	Description string
	StartsAt    *time.Time
	EndsAt      *time.Time
	IsActive    bool
	Budget      *BudgetInput
}

// UpdateCampaignInput holds the parameters for updating a campaign.
// Nil fields are left unchanged.
type UpdateCampaignInput struct {
	Name        *string
	Description *string
	StartsAt    *time.Time
	EndsAt      *time.Time
	IsActive    *bool
	Budget      *BudgetInput
}

// CreateCampaign creates a new campaign with the given input.
func (s *CampaignService) CreateCampaign(ctx context.Context, tenantID, storeID string, input *CreateCampaignInput) (*domain.Campaign, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.InvalidInput("campaign name is required")
	}
	if input.StartsAt != nil && input.EndsAt != nil && !input.EndsAt.After(*input.StartsAt) {
		return nil, apperrors.InvalidInput("ends_at must be after starts_at")
	}

	budget, err := buildBudget(input.Budget)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	campaign := &domain.Campaign{
		ID:           uuid.New().String(),
		TenantID:     tenantID,
		StoreID:      storeID,
		Name:         name,
		Description:  input.Description,
		StartsAt:     input.StartsAt,
		EndsAt:       input.EndsAt,
		IsActive:     input.IsActive,
		Budget:       budget,
		PromotionIDs: []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, campaign); err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}

	if err := s.producer.PublishCampaignCreated(ctx, campaign); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish campaign.created event",
			slog.String("campaign_id", campaign.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "campaign created",
		slog.String("campaign_id", campaign.ID),
		slog.String("name", campaign.Name),
		slog.String("tenant_id", tenantID),
	)

	return campaign, nil
}

// GetCampaign retrieves a campaign by its ID.
func (s *CampaignService) GetCampaign(ctx context.Context, id, tenantID, storeID string) (*domain.Campaign, error) {
	campaign, err := s.repo.GetByID(ctx, id, tenantID, storeID)
	if err != nil {
		return nil, fmt.Errorf("get campaign by id: %w", err)
	}
	return campaign, nil
}

// ListCampaigns returns a filtered, paginated list of campaigns.
func (s *CampaignService) ListCampaigns(ctx context.Context, tenantID, storeID string, filter repository.CampaignFilter) ([]domain.Campaign, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}

	campaigns, total, err := s.repo.List(ctx, tenantID, storeID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}

	return campaigns, total, nil
}

// UpdateCampaign applies partial updates to an existing campaign.
func (s *CampaignService) UpdateCampaign(ctx context.Context, id, tenantID, storeID string, input *UpdateCampaignInput) (*domain.Campaign, error) {
	campaign, err := s.repo.GetByID(ctx, id, tenantID, storeID)
	if err != nil {
		return nil, fmt.Errorf("get campaign for update: %w", err)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.InvalidInput("campaign name must not be empty")
		}
		campaign.Name = name
	}

	if input.Description != nil {
		campaign.Description = *input.Description
	}

	if input.StartsAt != nil {
		campaign.StartsAt = input.StartsAt
	}

	if input.EndsAt != nil {
		campaign.EndsAt = input.EndsAt
	}

	if campaign.StartsAt != nil && campaign.EndsAt != nil && !campaign.EndsAt.After(*campaign.StartsAt) {
		return nil, apperrors.InvalidInput("ends_at must be after starts_at")
	}

	if input.IsActive != nil {
		campaign.IsActive = *input.IsActive
	}

	if input.Budget != nil {
		budget, err := buildBudget(input.Budget)
		if err != nil {
			return nil, err
		}
		campaign.Budget = budget
	}

	if err := s.repo.Update(ctx, campaign); err != nil {
		return nil, fmt.Errorf("update campaign: %w", err)
	}

	if err := s.producer.PublishCampaignUpdated(ctx, campaign); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish campaign.updated event",
			slog.String("campaign_id", campaign.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "campaign updated",
		slog.String("campaign_id", campaign.ID),
		slog.String("name", campaign.Name),
	)

	return campaign, nil
}

// DeleteCampaign removes a campaign and its promotion links. Linked
// promotions themselves are untouched.
func (s *CampaignService) DeleteCampaign(ctx context.Context, id, tenantID, storeID string) error {
	campaign, err := s.repo.GetByID(ctx, id, tenantID, storeID)
	if err != nil {
		return fmt.Errorf("get campaign for delete: %w", err)
	}

	if err := s.repo.Delete(ctx, id, tenantID, storeID); err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}

	if err := s.producer.PublishCampaignDeleted(ctx, campaign); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish campaign.deleted event",
			slog.String("campaign_id", campaign.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "campaign deleted",
		slog.String("campaign_id", campaign.ID),
		slog.String("name", campaign.Name),
	)

	return nil
}

// AttachPromotion links a promotion to a campaign. Attaching an already
// linked promotion is a no-op.
func (s *CampaignService) AttachPromotion(ctx context.Context, campaignID, promotionID, tenantID, storeID string) (*domain.Campaign, error) {
	if err := s.repo.AttachPromotion(ctx, campaignID, promotionID, tenantID, storeID); err != nil {
		return nil, fmt.Errorf("attach promotion to campaign: %w", err)
	}

	campaign, err := s.repo.GetByID(ctx, campaignID, tenantID, storeID)
	if err != nil {
		return nil, fmt.Errorf("get campaign after attach: %w", err)
	}

	s.logger.InfoContext(ctx, "promotion attached to campaign",
		slog.String("campaign_id", campaignID),
		slog.String("promotion_id", promotionID),
	)

	return campaign, nil
}

// DetachPromotion removes a promotion link from a campaign.
func (s *CampaignService) DetachPromotion(ctx context.Context, campaignID, promotionID, tenantID, storeID string) (*domain.Campaign, error) {
	if err := s.repo.DetachPromotion(ctx, campaignID, promotionID, tenantID, storeID); err != nil {
		return nil, fmt.Errorf("detach promotion from campaign: %w", err)
	}

	campaign, err := s.repo.GetByID(ctx, campaignID, tenantID, storeID)
	if err != nil {
		return nil, fmt.Errorf("get campaign after detach: %w", err)
	}

	s.logger.InfoContext(ctx, "promotion detached from campaign",
		slog.String("campaign_id", campaignID),
		slog.String("promotion_id", promotionID),
	)

	return campaign, nil
}

func buildBudget(in *BudgetInput) (*domain.CampaignBudget, error) {
	if in == nil {
		return nil, nil
	}

	if !domain.IsValidBudgetType(in.Type) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid budget type %q, must be one of: %s", in.Type, strings.Join(domain.ValidBudgetTypes(), ", ")))
	}
	if in.LimitAmount != nil && *in.LimitAmount < 0 {
		return nil, apperrors.InvalidInput("budget limit amount must not be negative")
	}
	if in.Type == domain.BudgetTypeUseByAttribute && strings.TrimSpace(in.Attribute) == "" {
		return nil, apperrors.InvalidInput("budget attribute is required for use_by_attribute budgets")
	}

	return &domain.CampaignBudget{
		Type:        in.Type,
		LimitAmount: in.LimitAmount,
		Currency:    in.Currency,
		Attribute:   in.Attribute,
	}, nil
}
