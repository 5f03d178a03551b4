package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/promo-backoffice/internal/repository"
	"github.com/utafrali/promo-backoffice/internal/service"
	"github.com/utafrali/promo-backoffice/pkg/validator"
)

// CampaignHandler handles HTTP requests for campaign endpoints.
type CampaignHandler struct {
	service *service.CampaignService
	logger  *slog.Logger
}

// NewCampaignHandler creates a new campaign HTTP handler.
func NewCampaignHandler(svc *service.CampaignService, logger *slog.Logger) *CampaignHandler {
	return &CampaignHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// BudgetRequest is the JSON shape of a campaign budget.
type BudgetRequest struct {
	Type        string `json:"type" validate:"required,oneof=spend usage use_by_attribute"`
	LimitAmount *int64 `json:"limit_amount" validate:"omitempty,gte=0"`
	Currency    string `json:"currency" validate:"omitempty,len=3"`
	Attribute   string `json:"attribute" validate:"omitempty,max=100"`
}

// CreateCampaignRequest is the JSON request body for creating a campaign.
type CreateCampaignRequest struct {
	Name        string         `json:"name" validate:"required,min=1,max=255"`
	Description string         `json:"description"`
	StartsAt    *string        `json:"starts_at"`
	EndsAt      *string        `json:"ends_at"`
	IsActive    bool           `json:"is_active"`
	Budget      *BudgetRequest `json:"budget"`
}

// UpdateCampaignRequest is the JSON request body for updating a campaign.
type UpdateCampaignRequest struct {
	Name        *string        `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string        `json:"description"`
	StartsAt    *string        `json:"starts_at"`
	EndsAt      *string        `json:"ends_at"`
	IsActive    *bool          `json:"is_active"`
	Budget      *BudgetRequest `json:"budget"`
}

// AttachPromotionRequest is the JSON request body for linking a promotion.
type AttachPromotionRequest struct {
	PromotionID string `json:"promotion_id" validate:"required,uuid"`
}

// --- Handlers ---

// CreateCampaign handles POST /api/v1/campaigns
func (h *CampaignHandler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req CreateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	startsAt, ok := parseOptionalTime(w, "starts_at", req.StartsAt)
	if !ok {
		return
	}
	endsAt, ok := parseOptionalTime(w, "ends_at", req.EndsAt)
	if !ok {
		return
	}

	input := &service.CreateCampaignInput{
		Name:        req.Name,
		Description: req.Description,
		StartsAt:    startsAt,
		EndsAt:      endsAt,
		IsActive:    req.IsActive,
		Budget:      buildBudgetInput(req.Budget),
	}

	tenantID, storeID := tenantScope(r.Context())
	campaign, err := h.service.CreateCampaign(r.Context(), tenantID, storeID, input)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, response{Data: campaign})
}

// ListCampaigns handles GET /api/v1/campaigns
func (h *CampaignHandler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	filter := repository.CampaignFilter{
		Page:    1,
		PerPage: 20,
	}

	if v := r.URL.Query().Get("page"); v != "" {
		if page, err := strconv.Atoi(v); err == nil && page > 0 {
			filter.Page = page
		}
	}
	if v := r.URL.Query().Get("per_page"); v != "" {
		if perPage, err := strconv.Atoi(v); err == nil && perPage > 0 && perPage <= 100 {
			filter.PerPage = perPage
		}
	}
	if v := r.URL.Query().Get("is_active"); v != "" {
		if isActive, err := strconv.ParseBool(v); err == nil {
			filter.IsActive = &isActive
		}
	}

	tenantID, storeID := tenantScope(r.Context())
	campaigns, total, err := h.service.ListCampaigns(r.Context(), tenantID, storeID, filter)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	totalPages := total / filter.PerPage
	if total%filter.PerPage > 0 {
		totalPages++
	}

	writeJSON(w, http.StatusOK, listResponse{
		Data:       campaigns,
		TotalCount: total,
		Page:       filter.Page,
		PerPage:    filter.PerPage,
		TotalPages: totalPages,
	})
}

// GetCampaign handles GET /api/v1/campaigns/{id}
func (h *CampaignHandler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeBadRequest(w, "campaign id is required")
		return
	}

	tenantID, storeID := tenantScope(r.Context())
	campaign, err := h.service.GetCampaign(r.Context(), id, tenantID, storeID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: campaign})
}

// UpdateCampaign handles PUT /api/v1/campaigns/{id}
func (h *CampaignHandler) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	id := chi.URLParam(r, "id")
	if id == "" {
		writeBadRequest(w, "campaign id is required")
		return
	}

	var req UpdateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	input := &service.UpdateCampaignInput{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
		Budget:      buildBudgetInput(req.Budget),
	}

	if req.StartsAt != nil {
		startsAt, ok := parseOptionalTime(w, "starts_at", req.StartsAt)
		if !ok {
			return
		}
		input.StartsAt = startsAt
	}

	if req.EndsAt != nil {
		endsAt, ok := parseOptionalTime(w, "ends_at", req.EndsAt)
		if !ok {
			return
		}
		input.EndsAt = endsAt
	}

	tenantID, storeID := tenantScope(r.Context())
	campaign, err := h.service.UpdateCampaign(r.Context(), id, tenantID, storeID, input)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: campaign})
}

// DeleteCampaign handles DELETE /api/v1/campaigns/{id}
func (h *CampaignHandler) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeBadRequest(w, "campaign id is required")
		return
	}

	tenantID, storeID := tenantScope(r.Context())
	if err := h.service.DeleteCampaign(r.Context(), id, tenantID, storeID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

// AttachPromotion handles POST /api/v1/campaigns/{id}/promotions
func (h *CampaignHandler) AttachPromotion(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	id := chi.URLParam(r, "id")
	if id == "" {
		writeBadRequest(w, "campaign id is required")
		return
	}

	var req AttachPromotionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	tenantID, storeID := tenantScope(r.Context())
	campaign, err := h.service.AttachPromotion(r.Context(), id, req.PromotionID, tenantID, storeID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: campaign})
}

// DetachPromotion handles DELETE /api/v1/campaigns/{id}/promotions/{promotionId}
func (h *CampaignHandler) DetachPromotion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	promotionID := chi.URLParam(r, "promotionId")
	if id == "" || promotionID == "" {
		writeBadRequest(w, "campaign id and promotion id are required")
		return
	}

	tenantID, storeID := tenantScope(r.Context())
	campaign, err := h.service.DetachPromotion(r.Context(), id, promotionID, tenantID, storeID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: campaign})
}

func buildBudgetInput(req *BudgetRequest) *service.BudgetInput {
	if req == nil {
		return nil
	}
	return &service.BudgetInput{
		Type:        req.Type,
		LimitAmount: req.LimitAmount,
		Currency:    req.Currency,
		Attribute:   req.Attribute,
	}
}
