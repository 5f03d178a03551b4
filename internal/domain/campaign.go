package domain

import (
	"time"
)

// Campaign budget type constants.
const (
	BudgetTypeSpend          = "spend"
	BudgetTypeUsage          = "usage"
	BudgetTypeUseByAttribute = "use_by_attribute"
)

// CampaignBudget caps how much a campaign may give away.
type CampaignBudget struct {
	Type        string `json:"type"`
	LimitAmount *int64 `json:"limit_amount,omitempty"`
	Currency    string `json:"currency,omitempty"`
	// Attribute is required when Type is use_by_attribute: the budget is
	// tracked per distinct value of this attribute.
	Attribute string `json:"attribute,omitempty"`
}

// Campaign groups promotions under a shared schedule and budget.
// Promotions are linked many-to-many via the campaign_promotions table.
type Campaign struct {
	ID           string          `json:"id"`
	TenantID     string          `json:"tenant_id"`
	StoreID      string          `json:"store_id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	StartsAt     *time.Time      `json:"starts_at,omitempty"`
	EndsAt       *time.Time      `json:"ends_at,omitempty"`
	IsActive     bool            `json:"is_active"`
	Budget       *CampaignBudget `json:"budget,omitempty"`
	PromotionIDs []string        `json:"promotion_ids"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ValidBudgetTypes returns the set of valid campaign budget types.
func ValidBudgetTypes() []string {
	return []string{BudgetTypeSpend, BudgetTypeUsage, BudgetTypeUseByAttribute}
}

// IsValidBudgetType checks whether the given budget type is valid.
func IsValidBudgetType(t string) bool {
	for _, v := range ValidBudgetTypes() {
		if v == t {
			return true
		}
	}
	return false
}
