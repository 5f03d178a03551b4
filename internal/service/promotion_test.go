package service

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/promo-backoffice/internal/domain"
	"github.com/utafrali/promo-backoffice/internal/event"
	"github.com/utafrali/promo-backoffice/internal/repository"
	apperrors "github.com/utafrali/promo-backoffice/pkg/errors"
	pkgkafka "github.com/utafrali/promo-backoffice/pkg/kafka"
)

// --- Shared test helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestProducer creates an event producer without a real broker; publish
// failures are tolerated by the services under test.
func newTestProducer(logger *slog.Logger) *event.Producer {
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	return event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
}

func strPtr(s string) *string {
	return &s
}

func intPtr(i int) *int {
	return &i
}

func int64Ptr(i int64) *int64 {
	return &i
}

func boolPtr(b bool) *bool {
	return &b
}

func timePtr(t time.Time) *time.Time {
	return &t
}

// --- Mock repository ---

type mockPromotionRepository struct {
	mock.Mock
}

func (m *mockPromotionRepository) Create(ctx context.Context, p *domain.Promotion) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockPromotionRepository) GetByID(ctx context.Context, id, tenantID, storeID string) (*domain.Promotion, error) {
	args := m.Called(ctx, id, tenantID, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Promotion), args.Error(1)
}

func (m *mockPromotionRepository) List(ctx context.Context, tenantID, storeID string, filter repository.PromotionFilter) ([]domain.Promotion, int, error) {
	args := m.Called(ctx, tenantID, storeID, filter)
	return args.Get(0).([]domain.Promotion), args.Int(1), args.Error(2)
}

func (m *mockPromotionRepository) Update(ctx context.Context, p *domain.Promotion) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockPromotionRepository) ReplaceRules(ctx context.Context, promotionID string, rules []domain.PromotionRule) error {
	args := m.Called(ctx, promotionID, rules)
	return args.Error(0)
}

func (m *mockPromotionRepository) Delete(ctx context.Context, id, tenantID, storeID string) error {
	args := m.Called(ctx, id, tenantID, storeID)
	return args.Error(0)
}

func newPromotionService(repo *mockPromotionRepository) *PromotionService {
	logger := newTestLogger()
	return NewPromotionService(repo, newTestProducer(logger), logger)
}

func validMethodInput() *MethodInput {
	return &MethodInput{
		Type:        domain.MethodTypeFixed,
		Allocation:  domain.AllocationEach,
		TargetType:  domain.TargetTypeItems,
		ValueAmount: 500,
		Currency:    "USD",
		MaxQuantity: 2,
	}
}

// --- Tests ---

func TestCreatePromotion_Success(t *testing.T) {
	repo := new(mockPromotionRepository)
	svc := newPromotionService(repo)
	ctx := context.Background()

	repo.On("Create", ctx, mock.AnythingOfType("*domain.Promotion")).Return(nil)

	input := &CreatePromotionInput{
		Code:        "  summer10  ",
		IsAutomatic: true,
		IsActive:    true,
		Method:      validMethodInput(),
		Rules: []RuleInput{
			{Scope: domain.RuleScopePromotion, Attribute: "currency_code", Operator: domain.OperatorEQ, Values: []any{"USD"}},
		},
	}

	promotion, err := svc.CreatePromotion(ctx, "t1", "s1", input)

	require.NoError(t, err)
	assert.NotEmpty(t, promotion.ID)
	assert.Equal(t, "SUMMER10", promotion.Code)
	assert.Equal(t, domain.PromotionStatusDraft, promotion.Status)
	assert.Equal(t, domain.PromotionTypeStandard, promotion.Type)
	assert.Equal(t, "t1", promotion.TenantID)
	assert.Equal(t, "s1", promotion.StoreID)
	require.NotNil(t, promotion.Method)
	assert.Equal(t, promotion.ID, promotion.Method.PromotionID)
	require.Len(t, promotion.Rules, 1)
	assert.Equal(t, promotion.ID, promotion.Rules[0].PromotionID)
	repo.AssertExpectations(t)
}

func TestCreatePromotion_EmptyCode(t *testing.T) {
	repo := new(mockPromotionRepository)
	svc := newPromotionService(repo)

	_, err := svc.CreatePromotion(context.Background(), "t1", "s1", &CreatePromotionInput{
		Code:   "   ",
		Method: validMethodInput(),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreatePromotion_MethodRequired(t *testing.T) {
	repo := new(mockPromotionRepository)
	svc := newPromotionService(repo)

	_, err := svc.CreatePromotion(context.Background(), "t1", "s1", &CreatePromotionInput{
		Code: "TEN-OFF",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCreatePromotion_MethodValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*MethodInput)
	}{
		{"unknown type", func(m *MethodInput) { m.Type = "bogo" }},
		{"unknown allocation", func(m *MethodInput) { m.Allocation = "spread" }},
		{"unknown target type", func(m *MethodInput) { m.TargetType = "shipping" }},
		{"negative fixed value", func(m *MethodInput) { m.ValueAmount = -1 }},
		{"zero max quantity", func(m *MethodInput) { m.MaxQuantity = 0 }},
		{"bps over 10000", func(m *MethodInput) {
			m.Type = domain.MethodTypePercent
			m.ValueBps = 10001
		}},
		{"negative bps", func(m *MethodInput) {
			m.Type = domain.MethodTypePercent
			m.ValueBps = -5
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockPromotionRepository)
			svc := newPromotionService(repo)

			method := validMethodInput()
			tt.modify(method)

			_, err := svc.CreatePromotion(context.Background(), "t1", "s1", &CreatePromotionInput{
				Code:   "TEN-OFF",
				Method: method,
			})

			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestCreatePromotion_RuleValidation(t *testing.T) {
	tests := []struct {
		name string
		rule RuleInput
	}{
		{"bad scope", RuleInput{Scope: "cart", Attribute: "sku", Operator: "eq", Values: []any{"X"}}},
		{"empty attribute", RuleInput{Scope: "target", Attribute: " ", Operator: "eq", Values: []any{"X"}}},
		{"bad operator", RuleInput{Scope: "target", Attribute: "sku", Operator: "like", Values: []any{"X"}}},
		{"no values", RuleInput{Scope: "target", Attribute: "sku", Operator: "eq"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockPromotionRepository)
			svc := newPromotionService(repo)

			_, err := svc.CreatePromotion(context.Background(), "t1", "s1", &CreatePromotionInput{
				Code:   "TEN-OFF",
				Method: validMethodInput(),
				Rules:  []RuleInput{tt.rule},
			})

			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
}

func TestCreatePromotion_EmptyValuesArrayAccepted(t *testing.T) {
	repo := new(mockPromotionRepository)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	svc := newPromotionService(repo)

	p, err := svc.CreatePromotion(context.Background(), "t1", "s1", &CreatePromotionInput{
		Code:   "TEN-OFF",
		Method: validMethodInput(),
		Rules: []RuleInput{
			{Scope: "target", Attribute: "sku", Operator: "in", Values: []any{}},
		},
	})

	require.NoError(t, err)
	require.Len(t, p.Rules, 1)
	assert.Empty(t, p.Rules[0].Values)
	repo.AssertExpectations(t)
}

func TestCreatePromotion_DuplicateCodeConflict(t *testing.T) {
	repo := new(mockPromotionRepository)
	svc := newPromotionService(repo)
	ctx := context.Background()

	repo.On("Create", ctx, mock.AnythingOfType("*domain.Promotion")).
		Return(apperrors.AlreadyExists("promotion", "code", "TEN-OFF"))

	_, err := svc.CreatePromotion(ctx, "t1", "s1", &CreatePromotionInput{
		Code:   "TEN-OFF",
		Method: validMethodInput(),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestCreatePromotion_EndBeforeStart(t *testing.T) {
	repo := new(mockPromotionRepository)
	svc := newPromotionService(repo)

	start := time.Now().UTC().Add(48 * time.Hour)
	end := start.Add(-24 * time.Hour)

	_, err := svc.CreatePromotion(context.Background(), "t1", "s1", &CreatePromotionInput{
		Code:     "TEN-OFF",
		Method:   validMethodInput(),
		StartsAt: timePtr(start),
		EndsAt:   timePtr(end),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestGetPromotion_NotFound(t *testing.T) {
	repo := new(mockPromotionRepository)
	svc := newPromotionService(repo)
	ctx := context.Background()

	repo.On("GetByID", ctx, "p-404", "t1", "s1").Return(nil, apperrors.ErrNotFound)

	_, err := svc.GetPromotion(ctx, "p-404", "t1", "s1")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListPromotions_ClampsPagination(t *testing.T) {
	repo := new(mockPromotionRepository)
	svc := newPromotionService(repo)
	ctx := context.Background()

	expected := repository.PromotionFilter{Page: 1, PerPage: 100}
	repo.On("List", ctx, "t1", "s1", expected).Return([]domain.Promotion{}, 0, nil)

	_, _, err := svc.ListPromotions(ctx, "t1", "s1", repository.PromotionFilter{Page: -3, PerPage: 5000})

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestUpdatePromotion_PartialUpdate(t *testing.T) {
	repo := new(mockPromotionRepository)
	svc := newPromotionService(repo)
	ctx := context.Background()

	existing := &domain.Promotion{
		ID:       "p-1",
		TenantID: "t1",
		StoreID:  "s1",
		Code:     "TEN-OFF",
		Type:     domain.PromotionTypeStandard,
		Status:   domain.PromotionStatusDraft,
		Method: &domain.ApplicationMethod{
			ID:          "m-1",
			PromotionID: "p-1",
			Type:        domain.MethodTypeFixed,
			Allocation:  domain.AllocationEach,
			TargetType:  domain.TargetTypeItems,
			ValueAmount: 500,
			MaxQuantity: 1,
		},
	}

	repo.On("GetByID", ctx, "p-1", "t1", "s1").Return(existing, nil)
	repo.On("Update", ctx, mock.AnythingOfType("*domain.Promotion")).Return(nil)

	updated, err := svc.UpdatePromotion(ctx, "p-1", "t1", "s1", &UpdatePromotionInput{
		Status:   strPtr(domain.PromotionStatusActive),
		IsActive: boolPtr(true),
	})

	require.NoError(t, err)
	assert.Equal(t, domain.PromotionStatusActive, updated.Status)
	assert.True(t, updated.IsActive)
	// Untouched fields survive.
	assert.Equal(t, "TEN-OFF", updated.Code)
	require.NotNil(t, updated.Method)
	assert.Equal(t, "m-1", updated.Method.ID)
}

func TestUpdatePromotion_InvalidStatus(t *testing.T) {
	repo := new(mockPromotionRepository)
	svc := newPromotionService(repo)
	ctx := context.Background()

	existing := &domain.Promotion{ID: "p-1", TenantID: "t1", StoreID: "s1", Code: "TEN-OFF"}
	repo.On("GetByID", ctx, "p-1", "t1", "s1").Return(existing, nil)

	_, err := svc.UpdatePromotion(ctx, "p-1", "t1", "s1", &UpdatePromotionInput{
		Status: strPtr("archived"),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdatePromotion_MethodReplacedKeepsID(t *testing.T) {
	repo := new(mockPromotionRepository)
	svc := newPromotionService(repo)
	ctx := context.Background()

	existing := &domain.Promotion{
		ID:       "p-1",
		TenantID: "t1",
		StoreID:  "s1",
		Code:     "TEN-OFF",
		Method: &domain.ApplicationMethod{
			ID:          "m-1",
			PromotionID: "p-1",
			Type:        domain.MethodTypeFixed,
			Allocation:  domain.AllocationEach,
			TargetType:  domain.TargetTypeItems,
			ValueAmount: 500,
			MaxQuantity: 1,
		},
	}

	repo.On("GetByID", ctx, "p-1", "t1", "s1").Return(existing, nil)
	repo.On("Update", ctx, mock.AnythingOfType("*domain.Promotion")).Return(nil)

	newMethod := &MethodInput{
		Type:        domain.MethodTypePercent,
		Allocation:  domain.AllocationAcross,
		TargetType:  domain.TargetTypeItems,
		ValueBps:    1500,
		MaxQuantity: 1,
	}

	updated, err := svc.UpdatePromotion(ctx, "p-1", "t1", "s1", &UpdatePromotionInput{Method: newMethod})

	require.NoError(t, err)
	assert.Equal(t, "m-1", updated.Method.ID)
	assert.Equal(t, domain.MethodTypePercent, updated.Method.Type)
	assert.Equal(t, int64(1500), updated.Method.ValueBps)
}

func TestReplaceRules_Replacement(t *testing.T) {
	repo := new(mockPromotionRepository)
	svc := newPromotionService(repo)
	ctx := context.Background()

	existing := &domain.Promotion{
		ID:       "p-1",
		TenantID: "t1",
		StoreID:  "s1",
		Code:     "TEN-OFF",
		Rules: []domain.PromotionRule{
			{ID: "r-old", PromotionID: "p-1", Scope: "target", Attribute: "sku", Operator: "eq", Values: []any{"OLD"}},
		},
	}

	repo.On("GetByID", ctx, "p-1", "t1", "s1").Return(existing, nil)
	repo.On("ReplaceRules", ctx, "p-1", mock.AnythingOfType("[]domain.PromotionRule")).Return(nil)

	updated, err := svc.ReplaceRules(ctx, "p-1", "t1", "s1", []RuleInput{
		{Scope: domain.RuleScopeTarget, Attribute: "sku", Operator: domain.OperatorIN, Values: []any{"A", "B"}},
	})

	require.NoError(t, err)
	require.Len(t, updated.Rules, 1)
	assert.Equal(t, "sku", updated.Rules[0].Attribute)
	assert.Equal(t, domain.OperatorIN, updated.Rules[0].Operator)
	assert.NotEqual(t, "r-old", updated.Rules[0].ID)
	assert.Equal(t, "p-1", updated.Rules[0].PromotionID)
	repo.AssertExpectations(t)
}

func TestReplaceRules_EmptySetClearsRules(t *testing.T) {
	repo := new(mockPromotionRepository)
	svc := newPromotionService(repo)
	ctx := context.Background()

	existing := &domain.Promotion{
		ID: "p-1", TenantID: "t1", StoreID: "s1", Code: "TEN-OFF",
		Rules: []domain.PromotionRule{
			{ID: "r-old", Scope: "target", Attribute: "sku", Operator: "eq", Values: []any{"OLD"}},
		},
	}

	repo.On("GetByID", ctx, "p-1", "t1", "s1").Return(existing, nil)
	repo.On("ReplaceRules", ctx, "p-1", mock.AnythingOfType("[]domain.PromotionRule")).Return(nil)

	updated, err := svc.ReplaceRules(ctx, "p-1", "t1", "s1", nil)

	require.NoError(t, err)
	assert.Empty(t, updated.Rules)
}

func TestDeletePromotion_Success(t *testing.T) {
	repo := new(mockPromotionRepository)
	svc := newPromotionService(repo)
	ctx := context.Background()

	existing := &domain.Promotion{ID: "p-1", TenantID: "t1", StoreID: "s1", Code: "TEN-OFF"}
	repo.On("GetByID", ctx, "p-1", "t1", "s1").Return(existing, nil)
	repo.On("Delete", ctx, "p-1", "t1", "s1").Return(nil)

	err := svc.DeletePromotion(ctx, "p-1", "t1", "s1")

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestDeletePromotion_NotFound(t *testing.T) {
	repo := new(mockPromotionRepository)
	svc := newPromotionService(repo)
	ctx := context.Background()

	repo.On("GetByID", ctx, "p-404", "t1", "s1").Return(nil, apperrors.ErrNotFound)

	err := svc.DeletePromotion(ctx, "p-404", "t1", "s1")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
