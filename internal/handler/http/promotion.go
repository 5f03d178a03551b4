package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/promo-backoffice/internal/repository"
	"github.com/utafrali/promo-backoffice/internal/service"
	"github.com/utafrali/promo-backoffice/pkg/validator"
)

// PromotionHandler handles HTTP requests for promotion endpoints.
type PromotionHandler struct {
	service *service.PromotionService
	logger  *slog.Logger
}

// NewPromotionHandler creates a new promotion HTTP handler.
func NewPromotionHandler(svc *service.PromotionService, logger *slog.Logger) *PromotionHandler {
	return &PromotionHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// MethodRequest is the JSON shape of an application method.
type MethodRequest struct {
	Type           string `json:"type" validate:"required,oneof=fixed percent"`
	Allocation     string `json:"allocation" validate:"required,oneof=each across"`
	TargetType     string `json:"target_type" validate:"required,oneof=items"`
	ValueAmount    int64  `json:"value_amount" validate:"gte=0"`
	ValueBps       int64  `json:"value_bps" validate:"gte=0,lte=10000"`
	Currency       string `json:"currency" validate:"omitempty,len=3"`
	MaxQuantity    int    `json:"max_quantity" validate:"required,gte=1"`
	IsTaxInclusive bool   `json:"is_tax_inclusive"`
}

// RuleRequest is the JSON shape of a promotion rule.
type RuleRequest struct {
	Scope     string `json:"scope" validate:"required,oneof=promotion target buy"`
	Attribute string `json:"attribute" validate:"required,min=1,max=100"`
	Operator  string `json:"operator" validate:"required,oneof=eq ne in nin gt gte lt lte"`
	// Values accepts a scalar or an array; scalars are normalized to a
	// one-element array.
	Values json.RawMessage `json:"values" validate:"required"`
}

// CreatePromotionRequest is the JSON request body for creating a promotion.
type CreatePromotionRequest struct {
	Code        string         `json:"code" validate:"required,min=1,max=50"`
	IsAutomatic bool           `json:"is_automatic"`
	IsActive    bool           `json:"is_active"`
	StartsAt    *string        `json:"starts_at"`
	EndsAt      *string        `json:"ends_at"`
	UsageLimit  *int           `json:"usage_limit" validate:"omitempty,gte=1"`
	Metadata    map[string]any `json:"metadata"`
	Method      *MethodRequest `json:"application_method" validate:"required"`
	Rules       []RuleRequest  `json:"rules" validate:"omitempty,dive"`
}

// UpdatePromotionRequest is the JSON request body for updating a promotion.
type UpdatePromotionRequest struct {
	Code        *string        `json:"code" validate:"omitempty,min=1,max=50"`
	Status      *string        `json:"status" validate:"omitempty,oneof=draft active disabled"`
	IsAutomatic *bool          `json:"is_automatic"`
	IsActive    *bool          `json:"is_active"`
	StartsAt    *string        `json:"starts_at"`
	EndsAt      *string        `json:"ends_at"`
	UsageLimit  *int           `json:"usage_limit" validate:"omitempty,gte=1"`
	Metadata    map[string]any `json:"metadata"`
	Method      *MethodRequest `json:"application_method"`
}

// UpdateStatusRequest is the JSON request body for a status transition.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=draft active disabled"`
}

// ReplaceRulesRequest is the JSON request body for replacing a promotion's
// rule set.
type ReplaceRulesRequest struct {
	Rules []RuleRequest `json:"rules" validate:"dive"`
}

// --- Handlers ---

// CreatePromotion handles POST /api/v1/promotions
func (h *PromotionHandler) CreatePromotion(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req CreatePromotionRequest
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

	rules, err := buildRuleInputs(req.Rules)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	input := &service.CreatePromotionInput{
		Code:        req.Code,
		IsAutomatic: req.IsAutomatic,
		IsActive:    req.IsActive,
		StartsAt:    startsAt,
		EndsAt:      endsAt,
		UsageLimit:  req.UsageLimit,
		Metadata:    req.Metadata,
		Method:      buildMethodInput(req.Method),
		Rules:       rules,
	}

	tenantID, storeID := tenantScope(r.Context())
	promotion, err := h.service.CreatePromotion(r.Context(), tenantID, storeID, input)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, response{Data: promotion})
}

// ListPromotions handles GET /api/v1/promotions
func (h *PromotionHandler) ListPromotions(w http.ResponseWriter, r *http.Request) {
	filter := repository.PromotionFilter{
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
	if v := r.URL.Query().Get("status"); v != "" {
		filter.Status = &v
	}
	if v := r.URL.Query().Get("is_automatic"); v != "" {
		if isAutomatic, err := strconv.ParseBool(v); err == nil {
			filter.IsAutomatic = &isAutomatic
		}
	}

	tenantID, storeID := tenantScope(r.Context())
	promotions, total, err := h.service.ListPromotions(r.Context(), tenantID, storeID, filter)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	totalPages := total / filter.PerPage
	if total%filter.PerPage > 0 {
		totalPages++
	}

	writeJSON(w, http.StatusOK, listResponse{
		Data:       promotions,
		TotalCount: total,
		Page:       filter.Page,
		PerPage:    filter.PerPage,
		TotalPages: totalPages,
	})
}

// GetPromotion handles GET /api/v1/promotions/{id}
func (h *PromotionHandler) GetPromotion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeBadRequest(w, "promotion id is required")
		return
	}

	tenantID, storeID := tenantScope(r.Context())
	promotion, err := h.service.GetPromotion(r.Context(), id, tenantID, storeID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: promotion})
}

// UpdatePromotion handles PUT /api/v1/promotions/{id}
func (h *PromotionHandler) UpdatePromotion(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	id := chi.URLParam(r, "id")
	if id == "" {
		writeBadRequest(w, "promotion id is required")
		return
	}

	var req UpdatePromotionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	input := &service.UpdatePromotionInput{
		Code:        req.Code,
		Status:      req.Status,
		IsAutomatic: req.IsAutomatic,
		IsActive:    req.IsActive,
		UsageLimit:  req.UsageLimit,
		Metadata:    req.Metadata,
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

	if req.Method != nil {
		input.Method = buildMethodInput(req.Method)
	}

	tenantID, storeID := tenantScope(r.Context())
	promotion, err := h.service.UpdatePromotion(r.Context(), id, tenantID, storeID, input)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: promotion})
}

// UpdateStatus handles POST /api/v1/promotions/{id}/status
func (h *PromotionHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	id := chi.URLParam(r, "id")
	if id == "" {
		writeBadRequest(w, "promotion id is required")
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	tenantID, storeID := tenantScope(r.Context())
	promotion, err := h.service.UpdateStatus(r.Context(), id, tenantID, storeID, req.Status)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: promotion})
}

// ReplaceRules handles PUT /api/v1/promotions/{id}/rules
func (h *PromotionHandler) ReplaceRules(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	id := chi.URLParam(r, "id")
	if id == "" {
		writeBadRequest(w, "promotion id is required")
		return
	}

	var req ReplaceRulesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	rules, err := buildRuleInputs(req.Rules)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	tenantID, storeID := tenantScope(r.Context())
	promotion, err := h.service.ReplaceRules(r.Context(), id, tenantID, storeID, rules)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: promotion})
}

// DeletePromotion handles DELETE /api/v1/promotions/{id}
func (h *PromotionHandler) DeletePromotion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeBadRequest(w, "promotion id is required")
		return
	}

	tenantID, storeID := tenantScope(r.Context())
	if err := h.service.DeletePromotion(r.Context(), id, tenantID, storeID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

// --- Helpers ---

func buildMethodInput(req *MethodRequest) *service.MethodInput {
	return &service.MethodInput{
		Type:           req.Type,
		Allocation:     req.Allocation,
		TargetType:     req.TargetType,
		ValueAmount:    req.ValueAmount,
		ValueBps:       req.ValueBps,
		Currency:       req.Currency,
		MaxQuantity:    req.MaxQuantity,
		IsTaxInclusive: req.IsTaxInclusive,
	}
}

// buildRuleInputs converts rule DTOs, normalizing scalar values to
// one-element arrays.
func buildRuleInputs(reqs []RuleRequest) ([]service.RuleInput, error) {
	rules := make([]service.RuleInput, 0, len(reqs))
	for _, req := range reqs {
		var values []any
		if err := json.Unmarshal(req.Values, &values); err != nil {
			var scalar any
			if err := json.Unmarshal(req.Values, &scalar); err != nil {
				return nil, fmtRuleValuesError(req.Attribute)
			}
			values = []any{scalar}
		}

		rules = append(rules, service.RuleInput{
			Scope:     req.Scope,
			Attribute: req.Attribute,
			Operator:  req.Operator,
			Values:    values,
		})
	}
	return rules, nil
}

func fmtRuleValuesError(attribute string) error {
	return &invalidRuleValuesError{attribute: attribute}
}

type invalidRuleValuesError struct {
	attribute string
}

func (e *invalidRuleValuesError) Error() string {
	return "rule values for attribute " + e.attribute + " must be a scalar or an array"
}

func parseOptionalTime(w http.ResponseWriter, field string, v *string) (*time.Time, bool) {
	if v == nil {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, *v)
	if err != nil {
		writeBadRequest(w, field+" must be in RFC3339 format")
		return nil, false
	}
	return &t, true
}
