package promo

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/tavola-miniapp/internal/api"
	"github.com/mmeshcher/tavola-miniapp/internal/validation"
)

type stubAPI struct {
	resp  *api.PromoValidation
	err   error
	calls int
	code  string
}

func (s *stubAPI) ValidatePromo(ctx context.Context, code string) (*api.PromoValidation, error) {
	s.calls++
	s.code = code
	return s.resp, s.err
}

func TestValidate_Success(t *testing.T) {
	stub := &stubAPI{resp: &api.PromoValidation{Status: "success", Valid: true, Discount: decimal.NewFromInt(10)}}
	v := NewValidator(stub, nil)

	res, err := v.Validate(context.Background(), " SAVE10 ", decimal.NewFromInt(22))
	require.NoError(t, err)

	assert.True(t, res.Valid)
	assert.True(t, decimal.NewFromInt(10).Equal(res.Discount))
	assert.Equal(t, "SAVE10", stub.code)
}

func TestValidate_ServerDiscountNotClamped(t *testing.T) {
	stub := &stubAPI{resp: &api.PromoValidation{Valid: true, Discount: decimal.NewFromInt(150)}}

	res, err := NewValidator(stub, nil).Validate(context.Background(), "BIG", decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(150).Equal(res.Discount))
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		stub   *stubAPI
		reason string
	}{
		{
			name:   "server reason",
			stub:   &stubAPI{err: &api.ServerError{Op: "validate promo", StatusCode: http.StatusBadRequest, Message: "expired"}},
			reason: "expired",
		},
		{
			name:   "server without reason",
			stub:   &stubAPI{err: &api.ServerError{Op: "validate promo", StatusCode: http.StatusInternalServerError}},
			reason: ReasonInvalid,
		},
		{
			name:   "network",
			stub:   &stubAPI{err: &api.NetworkError{Op: "validate promo", Err: errors.New("connection refused")}},
			reason: ReasonNetwork,
		},
		{
			name:   "valid false",
			stub:   &stubAPI{resp: &api.PromoValidation{Valid: false, Discount: decimal.NewFromInt(10)}},
			reason: ReasonInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewValidator(tt.stub, nil).Validate(context.Background(), "CODE", decimal.NewFromInt(10))
			require.NoError(t, err)

			assert.False(t, res.Valid)
			assert.True(t, res.Discount.IsZero())
			assert.Equal(t, tt.reason, res.Reason)
		})
	}
}

func TestValidate_EmptyCodeSkipsNetwork(t *testing.T) {
	stub := &stubAPI{}

	_, err := NewValidator(stub, nil).Validate(context.Background(), "   ", decimal.NewFromInt(10))

	var verr *validation.Error
	require.True(t, errors.As(err, &verr))
	assert.Zero(t, stub.calls)
}
