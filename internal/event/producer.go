package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/promo-backoffice/internal/domain"
	pkgkafka "github.com/utafrali/promo-backoffice/pkg/kafka"
)

// Kafka topic constants for promotion domain events.
const (
	TopicPromotionCreated = "promo.promotion.created"
	TopicPromotionUpdated = "promo.promotion.updated"
	TopicPromotionDeleted = "promo.promotion.deleted"
	TopicCampaignCreated  = "promo.campaign.created"
	TopicCampaignUpdated  = "promo.campaign.updated"
	TopicCampaignDeleted  = "promo.campaign.deleted"
	TopicCartRecomputed   = "promo.cart.recomputed"
)

// Aggregate type constants.
const (
	AggregateTypePromotion = "promotion"
	AggregateTypeCampaign  = "campaign"
	AggregateTypeCart      = "cart"
)

// Source identifier for events originating from this service.
const SourcePromoBackoffice = "promo-backoffice"

// PromotionData is the payload for promotion lifecycle events.
type PromotionData struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenant_id"`
	StoreID     string `json:"store_id"`
	Code        string `json:"code"`
	Status      string `json:"status"`
	IsAutomatic bool   `json:"is_automatic"`
	IsActive    bool   `json:"is_active"`
}

// CampaignData is the payload for campaign lifecycle events.
type CampaignData struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	StoreID  string `json:"store_id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// CartRecomputedData is the payload for a cart.recomputed event.
type CartRecomputedData struct {
	CartID            string   `json:"cart_id"`
	TenantID          string   `json:"tenant_id"`
	StoreID           string   `json:"store_id"`
	SubtotalAmount    int64    `json:"subtotal_amount"`
	DiscountAmount    int64    `json:"discount_amount"`
	TotalAmount       int64    `json:"total_amount"`
	AppliedPromotions []string `json:"applied_promotions"`
}

// Producer publishes promotion domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the promotion back office.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishPromotionCreated publishes a promotion.created event.
func (p *Producer) PublishPromotionCreated(ctx context.Context, promotion *domain.Promotion) error {
	return p.publishPromotion(ctx, TopicPromotionCreated, promotion)
}

// PublishPromotionUpdated publishes a promotion.updated event.
func (p *Producer) PublishPromotionUpdated(ctx context.Context, promotion *domain.Promotion) error {
	return p.publishPromotion(ctx, TopicPromotionUpdated, promotion)
}

// PublishPromotionDeleted publishes a promotion.deleted event.
func (p *Producer) PublishPromotionDeleted(ctx context.Context, promotion *domain.Promotion) error {
	return p.publishPromotion(ctx, TopicPromotionDeleted, promotion)
}

func (p *Producer) publishPromotion(ctx context.Context, topic string, promotion *domain.Promotion) error {
	data := PromotionData{
		ID:          promotion.ID,
		TenantID:    promotion.TenantID,
		StoreID:     promotion.StoreID,
		Code:        promotion.Code,
		Status:      promotion.Status,
		IsAutomatic: promotion.IsAutomatic,
		IsActive:    promotion.IsActive,
	}

	event, err := pkgkafka.NewEvent(topic, promotion.ID, AggregateTypePromotion, SourcePromoBackoffice, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published promotion event",
		slog.String("topic", topic),
		slog.String("promotion_id", promotion.ID),
		slog.String("code", promotion.Code),
	)

	return nil
}

// PublishCampaignCreated publishes a campaign.created event.
func (p *Producer) PublishCampaignCreated(ctx context.Context, campaign *domain.Campaign) error {
	return p.publishCampaign(ctx, TopicCampaignCreated, campaign)
}

// PublishCampaignUpdated publishes a campaign.updated event.
func (p *Producer) PublishCampaignUpdated(ctx context.Context, campaign *domain.Campaign) error {
	return p.publishCampaign(ctx, TopicCampaignUpdated, campaign)
}

// PublishCampaignDeleted publishes a campaign.deleted event.
func (p *Producer) PublishCampaignDeleted(ctx context.Context, campaign *domain.Campaign) error {
	return p.publishCampaign(ctx, TopicCampaignDeleted, campaign)
}

func (p *Producer) publishCampaign(ctx context.Context, topic string, campaign *domain.Campaign) error {
	data := CampaignData{
		ID:       campaign.ID,
		TenantID: campaign.TenantID,
		StoreID:  campaign.StoreID,
		Name:     campaign.Name,
		IsActive: campaign.IsActive,
	}

	event, err := pkgkafka.NewEvent(topic, campaign.ID, AggregateTypeCampaign, SourcePromoBackoffice, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published campaign event",
		slog.String("topic", topic),
		slog.String("campaign_id", campaign.ID),
	)

	return nil
}

// PublishCartRecomputed publishes a cart.recomputed event after the
// recomputation transaction commits.
func (p *Producer) PublishCartRecomputed(ctx context.Context, data CartRecomputedData) error {
	event, err := pkgkafka.NewEvent(TopicCartRecomputed, data.CartID, AggregateTypeCart, SourcePromoBackoffice, data)
	if err != nil {
		return fmt.Errorf("create cart.recomputed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartRecomputed, event); err != nil {
		return fmt.Errorf("publish cart.recomputed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.recomputed event",
		slog.String("cart_id", data.CartID),
		slog.Int64("discount_amount", data.DiscountAmount),
	)

	return nil
}
