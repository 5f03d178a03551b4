package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/promo-backoffice/internal/domain"
)

func fixedPromo(valueAmount int64, allocation string, maxQty int) *domain.Promotion {
	return &domain.Promotion{
		ID:   "promo-1",
		Code: "TEST",
		Method: &domain.ApplicationMethod{
			Type:        domain.MethodTypeFixed,
			Allocation:  allocation,
			TargetType:  domain.TargetTypeItems,
			ValueAmount: valueAmount,
			MaxQuantity: maxQty,
		},
	}
}

func percentPromo(valueBps int64) *domain.Promotion {
	return &domain.Promotion{
		ID:   "promo-1",
		Code: "TEST",
		Method: &domain.ApplicationMethod{
			Type:        domain.MethodTypePercent,
			Allocation:  domain.AllocationAcross,
			TargetType:  domain.TargetTypeItems,
			ValueBps:    valueBps,
			MaxQuantity: 1,
		},
	}
}

func TestComputeAdjustment_NoMethod(t *testing.T) {
	p := &domain.Promotion{ID: "promo-1", Code: "TEST"}
	items := []domain.CartItem{{Quantity: 1, TotalAmount: 1000}}

	assert.Nil(t, ComputeAdjustment(p, items, 1000))
}

func TestComputeAdjustment_NoEligibleItems(t *testing.T) {
	p := fixedPromo(500, domain.AllocationEach, 2)

	assert.Nil(t, ComputeAdjustment(p, nil, 1000))
	assert.Nil(t, ComputeAdjustment(p, []domain.CartItem{}, 1000))
}

func TestComputeAdjustment_FixedEachCapsPerItemQuantity(t *testing.T) {
	// valueAmount=500, maxQuantity=2, items of quantity 3 and 1:
	// 500*min(3,2) + 500*min(1,2) = 1000 + 500 = 1500.
	p := fixedPromo(500, domain.AllocationEach, 2)
	items := []domain.CartItem{
		{Quantity: 3, TotalAmount: 3000},
		{Quantity: 1, TotalAmount: 1000},
	}

	adj := ComputeAdjustment(p, items, 4000)

	require.NotNil(t, adj)
	assert.Equal(t, int64(1500), adj.Amount)
	assert.Equal(t, "promo-1", adj.PromotionID)
	assert.Equal(t, "Promotion TEST", adj.Description)
}

func TestComputeAdjustment_FixedAcrossAppliesOnce(t *testing.T) {
	p := fixedPromo(700, domain.AllocationAcross, 5)
	items := []domain.CartItem{
		{Quantity: 3, TotalAmount: 3000},
		{Quantity: 2, TotalAmount: 2000},
	}

	adj := ComputeAdjustment(p, items, 5000)

	require.NotNil(t, adj)
	assert.Equal(t, int64(700), adj.Amount)
}

func TestComputeAdjustment_FixedClampedToSubtotal(t *testing.T) {
	p := fixedPromo(5000, domain.AllocationEach, 10)
	items := []domain.CartItem{{Quantity: 3, TotalAmount: 900}}

	adj := ComputeAdjustment(p, items, 900)

	require.NotNil(t, adj)
	assert.Equal(t, int64(900), adj.Amount)
}

func TestComputeAdjustment_FixedMaxQuantityFloorsToOne(t *testing.T) {
	p := fixedPromo(500, domain.AllocationEach, 0)
	items := []domain.CartItem{{Quantity: 4, TotalAmount: 4000}}

	adj := ComputeAdjustment(p, items, 4000)

	require.NotNil(t, adj)
	assert.Equal(t, int64(500), adj.Amount)
}

func TestComputeAdjustment_PercentRoundsHalfUp(t *testing.T) {
	// 10% of 2000 = 200.
	p := percentPromo(1000)
	items := []domain.CartItem{
		{Quantity: 1, TotalAmount: 1500},
		{Quantity: 1, TotalAmount: 500},
	}

	adj := ComputeAdjustment(p, items, 2000)

	require.NotNil(t, adj)
	assert.Equal(t, int64(200), adj.Amount)
}

func TestComputeAdjustment_PercentRounding(t *testing.T) {
	tests := []struct {
		name     string
		bps      int64
		eligible int64
		want     int64
	}{
		{"exact", 1000, 2000, 200},
		{"rounds up at half", 250, 1990, 50},  // 49.75 -> 50
		{"rounds down below half", 333, 100, 3}, // 3.33 -> 3
		{"full percent", 10000, 777, 777},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := percentPromo(tt.bps)
			items := []domain.CartItem{{Quantity: 1, TotalAmount: tt.eligible}}

			adj := ComputeAdjustment(p, items, tt.eligible)

			require.NotNil(t, adj)
			assert.Equal(t, tt.want, adj.Amount)
		})
	}
}

func TestComputeAdjustment_PercentNotClampedToSubtotal(t *testing.T) {
	// Eligible totals can exceed the cart subtotal under upstream skew;
	// percent discounts intentionally keep the over-discount.
	p := percentPromo(10000)
	items := []domain.CartItem{{Quantity: 1, TotalAmount: 3000}}

	adj := ComputeAdjustment(p, items, 2000)

	require.NotNil(t, adj)
	assert.Equal(t, int64(3000), adj.Amount)
}

func TestComputeAdjustment_NonPositiveDiscarded(t *testing.T) {
	zeroFixed := fixedPromo(0, domain.AllocationEach, 1)
	items := []domain.CartItem{{Quantity: 1, TotalAmount: 1000}}
	assert.Nil(t, ComputeAdjustment(zeroFixed, items, 1000))

	zeroPercent := percentPromo(0)
	assert.Nil(t, ComputeAdjustment(zeroPercent, items, 1000))

	zeroEligible := percentPromo(1000)
	freeItems := []domain.CartItem{{Quantity: 1, TotalAmount: 0}}
	assert.Nil(t, ComputeAdjustment(zeroEligible, freeItems, 0))
}

func TestComputeAdjustment_UnknownMethodType(t *testing.T) {
	p := &domain.Promotion{
		ID:   "promo-1",
		Code: "TEST",
		Method: &domain.ApplicationMethod{
			Type:        "buyxgety",
			Allocation:  domain.AllocationEach,
			MaxQuantity: 1,
			ValueAmount: 100,
		},
	}
	items := []domain.CartItem{{Quantity: 1, TotalAmount: 1000}}

	assert.Nil(t, ComputeAdjustment(p, items, 1000))
}
