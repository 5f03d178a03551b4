package domain

import (
	"time"
)

// Promotion type constants. Only standard promotions exist today; the type
// column is kept so buy-x-get-y promotions can be added without a migration.
const (
	PromotionTypeStandard = "standard"
)

// Promotion status constants.
const (
	PromotionStatusDraft    = "draft"
	PromotionStatusActive   = "active"
	PromotionStatusDisabled = "disabled"
)

// Rule scope constants. Buy-scope rules are stored and validated but not
// consumed by discount computation.
const (
	RuleScopePromotion = "promotion"
	RuleScopeTarget    = "target"
	RuleScopeBuy       = "buy"
)

// Rule operator constants.
const (
	OperatorEQ  = "eq"
	OperatorNE  = "ne"
	OperatorIN  = "in"
	OperatorNIN = "nin"
	OperatorGT  = "gt"
	OperatorGTE = "gte"
	OperatorLT  = "lt"
	OperatorLTE = "lte"
)

// Application method constants.
const (
	MethodTypeFixed   = "fixed"
	MethodTypePercent = "percent"

	AllocationEach   = "each"
	AllocationAcross = "across"

	TargetTypeItems = "items"
)

// MaxValueBps is the upper bound for percent discounts: 10000 bps = 100%.
const MaxValueBps = 10000

// Promotion represents a discount promotion scoped to a tenant and store.
type Promotion struct {
	ID          string             `json:"id"`
	TenantID    string             `json:"tenant_id"`
	StoreID     string             `json:"store_id"`
	Code        string             `json:"code"`
	Type        string             `json:"type"`
	Status      string             `json:"status"`
	IsAutomatic bool               `json:"is_automatic"`
	IsActive    bool               `json:"is_active"`
	StartsAt    *time.Time         `json:"starts_at,omitempty"`
	EndsAt      *time.Time         `json:"ends_at,omitempty"`
	UsageLimit  *int               `json:"usage_limit,omitempty"`
	Metadata    map[string]any     `json:"metadata,omitempty"`
	Rules       []PromotionRule    `json:"rules"`
	Method      *ApplicationMethod `json:"application_method,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// PromotionRule is a single predicate attached to a promotion. Promotion-scope
// rules gate whole-cart eligibility; target-scope rules select which line
// items receive the discount.
type PromotionRule struct {
	ID          string `json:"id"`
	PromotionID string `json:"promotion_id"`
	Scope       string `json:"scope"`
	Attribute   string `json:"attribute"`
	Operator    string `json:"operator"`
	// Values is always stored as an array; scalar payloads are normalized
	// to a one-element array before persistence.
	Values []any `json:"values"`
}

// ApplicationMethod describes how a promotion's discount is computed and
// distributed. It belongs 1:1 to a promotion.
type ApplicationMethod struct {
	ID          string `json:"id"`
	PromotionID string `json:"promotion_id"`
	Type        string `json:"type"`
	Allocation  string `json:"allocation"`
	TargetType  string `json:"target_type"`
	// ValueAmount is in integer minor currency units, used when Type is fixed.
	ValueAmount int64 `json:"value_amount"`
	// ValueBps is in basis points (1% = 100 bps), used when Type is percent.
	ValueBps       int64  `json:"value_bps"`
	Currency       string `json:"currency"`
	MaxQuantity    int    `json:"max_quantity"`
	IsTaxInclusive bool   `json:"is_tax_inclusive"`
}

// IsAutomaticCandidate reports whether the promotion is eligible for
// automatic application during cart recomputation.
func (p *Promotion) IsAutomaticCandidate() bool {
	return p.IsAutomatic && p.IsActive && p.Status == PromotionStatusActive
}

// RulesForScope returns the promotion's rules with the given scope.
func (p *Promotion) RulesForScope(scope string) []PromotionRule {
	var rules []PromotionRule
	for _, r := range p.Rules {
		if r.Scope == scope {
			rules = append(rules, r)
		}
	}
	return rules
}

// ValidStatuses returns the set of valid promotion statuses.
func ValidStatuses() []string {
	return []string{
		PromotionStatusDraft,
		PromotionStatusActive,
		PromotionStatusDisabled,
	}
}

// IsValidStatus checks whether the given status string is a valid promotion status.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// ValidScopes returns the set of valid rule scopes.
func ValidScopes() []string {
	return []string{RuleScopePromotion, RuleScopeTarget, RuleScopeBuy}
}

// IsValidScope checks whether the given scope string is a valid rule scope.
func IsValidScope(scope string) bool {
	for _, s := range ValidScopes() {
		if s == scope {
			return true
		}
	}
	return false
}

// ValidOperators returns the set of valid rule operators.
func ValidOperators() []string {
	return []string{
		OperatorEQ, OperatorNE, OperatorIN, OperatorNIN,
		OperatorGT, OperatorGTE, OperatorLT, OperatorLTE,
	}
}

// IsValidOperator checks whether the given operator string is a valid rule operator.
func IsValidOperator(op string) bool {
	for _, o := range ValidOperators() {
		if o == op {
			return true
		}
	}
	return false
}

// ValidMethodTypes returns the set of valid application method types.
func ValidMethodTypes() []string {
	return []string{MethodTypeFixed, MethodTypePercent}
}

// IsValidMethodType checks whether the given type is a valid application method type.
func IsValidMethodType(t string) bool {
	for _, v := range ValidMethodTypes() {
		if v == t {
			return true
		}
	}
	return false
}

// ValidAllocations returns the set of valid application method allocations.
func ValidAllocations() []string {
	return []string{AllocationEach, AllocationAcross}
}

// IsValidAllocation checks whether the given allocation is valid.
func IsValidAllocation(a string) bool {
	for _, v := range ValidAllocations() {
		if v == a {
			return true
		}
	}
	return false
}

// IsValidTargetType checks whether the given target type is valid.
// Only item-level targeting is supported.
func IsValidTargetType(t string) bool {
	return t == TargetTypeItems
}
