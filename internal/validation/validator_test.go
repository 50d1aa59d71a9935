package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/dvloznov/warmindo-recommender/internal/errors"
)

type query struct {
	Product string `json:"product" validate:"required"`
	TopN    int    `json:"top_n,omitempty" validate:"gte=1,lte=50"`
	Mode    string `json:"-" validate:"omitempty,oneof=a b"`
}

func TestValidate(t *testing.T) {
	v := New()

	require.NoError(t, v.Validate(query{Product: "Es Teh", TopN: 6}))

	err := v.Validate(query{TopN: 100, Mode: "c"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	var appErr *apperrors.Error
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, map[string]string{
		"product": "is required",
		"top_n":   "must be less than or equal to 50",
		"Mode":    "must be one of: a b",
	}, appErr.Details)
}

func TestValidate_NonStruct(t *testing.T) {
	err := New().Validate("not a struct")
	require.Error(t, err)
	assert.False(t, apperrors.Is(err, apperrors.ErrValidation))
}
