package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAutomaticCandidate(t *testing.T) {
	tests := []struct {
		name        string
		isAutomatic bool
		isActive    bool
		status      string
		want        bool
	}{
		{"automatic active with active status", true, true, PromotionStatusActive, true},
		{"not automatic", false, true, PromotionStatusActive, false},
		{"not active", true, false, PromotionStatusActive, false},
		{"draft status", true, true, PromotionStatusDraft, false},
		{"disabled status", true, true, PromotionStatusDisabled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Promotion{
				IsAutomatic: tt.isAutomatic,
				IsActive:    tt.isActive,
				Status:      tt.status,
			}
			assert.Equal(t, tt.want, p.IsAutomaticCandidate())
		})
	}
}

func TestRulesForScope(t *testing.T) {
	p := &Promotion{
		Rules: []PromotionRule{
			{ID: "r1", Scope: RuleScopePromotion, Attribute: "currency_code"},
			{ID: "r2", Scope: RuleScopeTarget, Attribute: "sku"},
			{ID: "r3", Scope: RuleScopeTarget, Attribute: "product_id"},
			{ID: "r4", Scope: RuleScopeBuy, Attribute: "sku"},
		},
	}

	promotion := p.RulesForScope(RuleScopePromotion)
	assert.Len(t, promotion, 1)
	assert.Equal(t, "r1", promotion[0].ID)

	target := p.RulesForScope(RuleScopeTarget)
	assert.Len(t, target, 2)

	assert.Nil(t, p.RulesForScope("unknown"))
}

func TestIsValidStatus(t *testing.T) {
	assert.True(t, IsValidStatus(PromotionStatusDraft))
	assert.True(t, IsValidStatus(PromotionStatusActive))
	assert.True(t, IsValidStatus(PromotionStatusDisabled))
	assert.False(t, IsValidStatus("archived"))
	assert.False(t, IsValidStatus(""))
}

func TestIsValidOperator(t *testing.T) {
	for _, op := range ValidOperators() {
		assert.True(t, IsValidOperator(op), op)
	}
	assert.False(t, IsValidOperator("between"))
	assert.False(t, IsValidOperator("EQ"))
}

func TestIsValidMethodTypeAndAllocation(t *testing.T) {
	assert.True(t, IsValidMethodType(MethodTypeFixed))
	assert.True(t, IsValidMethodType(MethodTypePercent))
	assert.False(t, IsValidMethodType("buyxgety"))

	assert.True(t, IsValidAllocation(AllocationEach))
	assert.True(t, IsValidAllocation(AllocationAcross))
	assert.False(t, IsValidAllocation("split"))

	assert.True(t, IsValidTargetType(TargetTypeItems))
	assert.False(t, IsValidTargetType("shipping"))
}

func TestIsValidScope(t *testing.T) {
	assert.True(t, IsValidScope(RuleScopePromotion))
	assert.True(t, IsValidScope(RuleScopeTarget))
	assert.True(t, IsValidScope(RuleScopeBuy))
	assert.False(t, IsValidScope("order"))
}
