package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type createRequest struct {
	Code        string `validate:"required,min=1,max=50"`
	Status      string `validate:"omitempty,oneof=draft active disabled"`
	ValueBps    int64  `validate:"gte=0,lte=10000"`
	PromotionID string `validate:"omitempty,uuid"`
	Currency    string `validate:"omitempty,len=3"`
}

func TestValidate_Success(t *testing.T) {
	req := createRequest{
		Code:     "SUMMER10",
		Status:   "active",
		ValueBps: 1000,
		Currency: "USD",
	}

	assert.NoError(t, Validate(req))
}

func TestValidate_RequiredField(t *testing.T) {
	err := Validate(createRequest{})

	require.Error(t, err)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields(), "Code")
	assert.Equal(t, "is required", valErr.Fields()["Code"])
}

func TestValidate_OneOf(t *testing.T) {
	err := Validate(createRequest{Code: "X", Status: "archived"})

	require.Error(t, err)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields()["Status"], "must be one of")
}

func TestValidate_RangeBounds(t *testing.T) {
	err := Validate(createRequest{Code: "X", ValueBps: 20000})

	require.Error(t, err)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields()["ValueBps"], "less than or equal to 10000")
}

func TestValidate_UUID(t *testing.T) {
	err := Validate(createRequest{Code: "X", PromotionID: "not-a-uuid"})

	require.Error(t, err)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must be a valid UUID", valErr.Fields()["PromotionID"])

	assert.NoError(t, Validate(createRequest{
		Code:        "X",
		PromotionID: "550e8400-e29b-41d4-a716-446655440001",
	}))
}

func TestValidationError_MessageListsAllFields(t *testing.T) {
	err := Validate(createRequest{Status: "bogus", Currency: "TOOLONG"})

	require.Error(t, err)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Error(), "Code")
	assert.Contains(t, valErr.Error(), "Status")
	assert.Contains(t, valErr.Error(), "Currency")
}
