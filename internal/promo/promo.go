// Package promo проверяет промокоды через удалённый API.
package promo

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/tavola-miniapp/internal/api"
	"github.com/mmeshcher/tavola-miniapp/internal/validation"
)

// Причины отказа, если сервер не прислал свою.
const (
	ReasonInvalid = "invalid or expired promo code"
	ReasonNetwork = "failed to check promo code"
)

// API описывает эндпоинт проверки промокода.
type API interface {
	ValidatePromo(ctx context.Context, code string) (*api.PromoValidation, error)
}

// Result содержит итог проверки промокода. Нулевая скидка означает, что код не применён.
type Result struct {
	Valid    bool
	Discount decimal.Decimal
	Reason   string
}

// Validator проверяет промокоды. Состояние корзины не изменяет.
type Validator struct {
	api    API
	logger *zap.Logger
}

// NewValidator создаёт валидатор промокодов.
func NewValidator(a API, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{api: a, logger: logger}
}

// Validate проверяет код. Ошибку возвращает только пустой код; сетевые и серверные
// сбои превращаются в Result с нулевой скидкой и причиной.
// Скидка сервера не ограничивается диапазоном на этой стороне.
func (v *Validator) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (Result, error) {
	code = validation.NormalizePromoCode(code)
	if code == "" {
		return Result{Discount: decimal.Zero}, validation.Errorf("code", "promo code is required")
	}

	resp, err := v.api.ValidatePromo(ctx, code)
	if err != nil {
		reason := api.Reason(err)
		switch {
		case reason != "":
		case api.IsNetwork(err):
			reason = ReasonNetwork
		default:
			reason = ReasonInvalid
		}
		v.logger.Warn("promo code rejected",
			zap.String("code", code),
			zap.String("subtotal", subtotal.StringFixed(2)),
			zap.Error(err),
		)
		return Result{Discount: decimal.Zero, Reason: reason}, nil
	}

	if !resp.Valid {
		reason := resp.Error
		if reason == "" {
			reason = ReasonInvalid
		}
		return Result{Discount: decimal.Zero, Reason: reason}, nil
	}

	v.logger.Info("promo code accepted",
		zap.String("code", code),
		zap.String("discount", resp.Discount.String()),
	)

	return Result{Valid: true, Discount: resp.Discount}, nil
}
