package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/utafrali/promo-backoffice/internal/domain"
)

func rule(scope, attribute, operator string, values ...any) domain.PromotionRule {
	return domain.PromotionRule{
		Scope:     scope,
		Attribute: attribute,
		Operator:  operator,
		Values:    values,
	}
}

func testCart() *domain.Cart {
	return &domain.Cart{
		ID:       "cart-1",
		Currency: "USD",
		Items: []domain.CartItem{
			{ID: "item-1", VariantID: "var-1", ProductID: "prod-1", SKU: "SKU-1", Quantity: 2, UnitPriceAmount: 1000, TotalAmount: 2000},
			{ID: "item-2", VariantID: "var-2", ProductID: "prod-2", SKU: "SKU-2", Quantity: 1, UnitPriceAmount: 500, TotalAmount: 500},
		},
	}
}

func TestMatches_EmptyRulesVacuouslyTrue(t *testing.T) {
	// The fact source must not even be consulted.
	facts := FactSource(func(string) (any, bool) {
		t.Fatal("fact source consulted for empty rule set")
		return nil, false
	})

	assert.True(t, Matches(nil, facts))
	assert.True(t, Matches([]domain.PromotionRule{}, facts))
}

func TestMatches_UnknownAttributeFailsClosed(t *testing.T) {
	cart := testCart()
	rules := []domain.PromotionRule{
		rule(domain.RuleScopePromotion, "loyalty_tier", domain.OperatorEQ, "gold"),
	}

	assert.False(t, Matches(rules, CartFacts(cart)))
}

func TestMatches_RulesAreANDed(t *testing.T) {
	cart := testCart()

	passing := []domain.PromotionRule{
		rule(domain.RuleScopePromotion, "currency_code", domain.OperatorEQ, "USD"),
		rule(domain.RuleScopePromotion, "item_count", domain.OperatorGTE, 3),
	}
	assert.True(t, Matches(passing, CartFacts(cart)))

	oneFailing := []domain.PromotionRule{
		rule(domain.RuleScopePromotion, "currency_code", domain.OperatorEQ, "USD"),
		rule(domain.RuleScopePromotion, "item_count", domain.OperatorGT, 10),
	}
	assert.False(t, Matches(oneFailing, CartFacts(cart)))
}

func TestMatches_Operators(t *testing.T) {
	cart := testCart()
	facts := CartFacts(cart)

	tests := []struct {
		name string
		rule domain.PromotionRule
		want bool
	}{
		{"eq match", rule("promotion", "currency_code", domain.OperatorEQ, "USD"), true},
		{"eq mismatch", rule("promotion", "currency_code", domain.OperatorEQ, "EUR"), false},
		{"ne match", rule("promotion", "currency_code", domain.OperatorNE, "EUR"), true},
		{"ne mismatch", rule("promotion", "currency_code", domain.OperatorNE, "USD"), false},
		{"in match", rule("promotion", "currency_code", domain.OperatorIN, "EUR", "USD"), true},
		{"in mismatch", rule("promotion", "currency_code", domain.OperatorIN, "EUR", "GBP"), false},
		{"nin match", rule("promotion", "currency_code", domain.OperatorNIN, "EUR", "GBP"), true},
		{"nin mismatch", rule("promotion", "currency_code", domain.OperatorNIN, "USD"), false},
		{"gt match", rule("promotion", "item_count", domain.OperatorGT, 2), true},
		{"gt boundary", rule("promotion", "item_count", domain.OperatorGT, 3), false},
		{"gte boundary", rule("promotion", "item_count", domain.OperatorGTE, 3), true},
		{"lt match", rule("promotion", "item_count", domain.OperatorLT, 4), true},
		{"lte boundary", rule("promotion", "item_count", domain.OperatorLTE, 3), true},
		{"lte mismatch", rule("promotion", "item_count", domain.OperatorLTE, 2), false},
		{"unknown operator", rule("promotion", "item_count", "between", 1, 5), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches([]domain.PromotionRule{tt.rule}, facts))
		})
	}
}

func TestMatches_NumericCoercion(t *testing.T) {
	cart := testCart()
	facts := CartFacts(cart)

	// Rule values round-trip through JSON as float64; they compare
	// numerically against int facts. Ordering operators additionally
	// coerce numeric strings.
	assert.True(t, Matches([]domain.PromotionRule{
		rule("promotion", "item_count", domain.OperatorEQ, float64(3)),
	}, facts))

	assert.True(t, Matches([]domain.PromotionRule{
		rule("promotion", "item_count", domain.OperatorGTE, "3"),
	}, facts))

	// Non-numeric string fails the comparison rather than erroring.
	assert.False(t, Matches([]domain.PromotionRule{
		rule("promotion", "item_count", domain.OperatorGTE, "lots"),
	}, facts))
}

func TestMatches_EqualityIsStrictOnStrings(t *testing.T) {
	cart := testCart()
	facts := CartFacts(cart)

	// A numeric string is not a number under equality: "3" != 3. The
	// inverse operators flip accordingly.
	assert.False(t, Matches([]domain.PromotionRule{
		rule("promotion", "item_count", domain.OperatorEQ, "3"),
	}, facts))
	assert.True(t, Matches([]domain.PromotionRule{
		rule("promotion", "item_count", domain.OperatorNE, "3"),
	}, facts))
	assert.False(t, Matches([]domain.PromotionRule{
		rule("promotion", "item_count", domain.OperatorIN, "2", "3"),
	}, facts))
	assert.True(t, Matches([]domain.PromotionRule{
		rule("promotion", "item_count", domain.OperatorNIN, "2", "3"),
	}, facts))

	// Same strictness for item-level facts.
	item := cart.Items[0]
	assert.False(t, Matches([]domain.PromotionRule{
		rule("target", "price_amount", domain.OperatorEQ, "1000"),
	}, ItemFacts(&item)))
	assert.True(t, Matches([]domain.PromotionRule{
		rule("target", "price_amount", domain.OperatorEQ, float64(1000)),
	}, ItemFacts(&item)))
}

func TestMatches_TypeMismatchNeverEqual(t *testing.T) {
	cart := testCart()
	facts := CartFacts(cart)

	// A boolean rule value against a string fact is a mismatch, not a panic.
	assert.False(t, Matches([]domain.PromotionRule{
		rule("promotion", "currency_code", domain.OperatorEQ, true),
	}, facts))
}

func TestEligibleItems_EmptyRulesKeepAll(t *testing.T) {
	cart := testCart()

	eligible := EligibleItems(nil, cart.Items)

	assert.Len(t, eligible, 2)
}

func TestEligibleItems_FiltersByItemFacts(t *testing.T) {
	cart := testCart()
	rules := []domain.PromotionRule{
		rule(domain.RuleScopeTarget, "sku", domain.OperatorIN, "SKU-1"),
	}

	eligible := EligibleItems(rules, cart.Items)

	assert.Len(t, eligible, 1)
	assert.Equal(t, "item-1", eligible[0].ID)
}

func TestEligibleItems_PriceThreshold(t *testing.T) {
	cart := testCart()
	rules := []domain.PromotionRule{
		rule(domain.RuleScopeTarget, "price_amount", domain.OperatorGTE, 1000),
	}

	eligible := EligibleItems(rules, cart.Items)

	assert.Len(t, eligible, 1)
	assert.Equal(t, "item-1", eligible[0].ID)
}

func TestEligibleItems_NoneMatch(t *testing.T) {
	cart := testCart()
	rules := []domain.PromotionRule{
		rule(domain.RuleScopeTarget, "sku", domain.OperatorEQ, "SKU-404"),
	}

	assert.Empty(t, EligibleItems(rules, cart.Items))
}

func TestCartFacts_KnownAttributes(t *testing.T) {
	cart := testCart()
	facts := CartFacts(cart)

	v, ok := facts("subtotal_amount")
	assert.True(t, ok)
	assert.Equal(t, int64(0), v) // stored subtotal, not derived

	v, ok = facts("item_count")
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	_, ok = facts("nonexistent")
	assert.False(t, ok)
}

func TestRegisterCartFact(t *testing.T) {
	RegisterCartFact("has_items", func(c *domain.Cart) any { return len(c.Items) > 0 })
	defer delete(cartFactExtractors, "has_items")

	cart := testCart()
	assert.True(t, Matches([]domain.PromotionRule{
		rule("promotion", "has_items", domain.OperatorEQ, true),
	}, CartFacts(cart)))
}
