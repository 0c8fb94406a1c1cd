package validator

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"kasturi-ledger/pkg/apperror"
)

type sample struct {
	Name   string    `json:"name" validate:"required"`
	Qty    int       `json:"quantity" validate:"gte=1"`
	Kind   string    `json:"kind" validate:"omitempty,oneof=CREDIT DEBIT"`
	Target uuid.UUID `json:"target" validate:"uuid_required"`
}

func TestValidateStructUsesJSONNames(t *testing.T) {
	errs := ValidateStruct(&sample{Qty: 1, Target: uuid.New()})
	require.Len(t, errs, 1)
	require.Equal(t, "name", errs[0].FailedField)
	require.Equal(t, "name is required", errs[0].Message())
}

func TestCheck(t *testing.T) {
	err := Check(&sample{Name: "x", Qty: 0, Target: uuid.New()})
	require.True(t, errors.Is(err, apperror.ErrValidation))
	require.Equal(t, "quantity must be at least 1", err.Error())

	err = Check(&sample{Name: "x", Qty: 1, Kind: "REFUND", Target: uuid.New()})
	require.EqualError(t, err, "kind must be one of [CREDIT DEBIT]")

	err = Check(&sample{Name: "x", Qty: 1})
	require.EqualError(t, err, "target is required")

	require.NoError(t, Check(&sample{Name: "x", Qty: 3, Kind: "DEBIT", Target: uuid.New()}))
}
