package api

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/tavola-miniapp/internal/model"
)

// PromoValidation описывает ответ эндпоинта проверки промокода.
type PromoValidation struct {
	Status   string          `json:"status"`
	Valid    bool            `json:"valid"`
	Discount decimal.Decimal `json:"discount"`
	Error    string          `json:"error,omitempty"`
}

// ValidatePromo проверяет промокод на сервере.
// Невалидный код сервер возвращает с кодом 400, это приходит как *ServerError с причиной.
func (c *Client) ValidatePromo(ctx context.Context, code string) (*PromoValidation, error) {
	r, err := c.jsonRequest("validate promo", http.MethodPost, "/validate_promo", "",
		map[string]string{"code": code})
	if err != nil {
		return nil, err
	}

	var resp PromoValidation
	if err := c.do(ctx, r, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// NewPromoCode описывает промокод, создаваемый администратором.
type NewPromoCode struct {
	Code      string          `json:"code"`
	Discount  decimal.Decimal `json:"discount"`
	MaxUses   int             `json:"max_uses"`
	ExpiresAt string          `json:"expires_at,omitempty"`
}

// ListPromoCodes возвращает все промокоды.
func (c *Client) ListPromoCodes(ctx context.Context, userID string) ([]model.PromoCode, error) {
	var codes []model.PromoCode
	err := c.do(ctx, request{
		op:     "list promo codes",
		method: http.MethodGet,
		path:   "/promocodes",
		userID: userID,
	}, &codes)
	if err != nil {
		return nil, err
	}
	if codes == nil {
		codes = []model.PromoCode{}
	}
	return codes, nil
}

// CreatePromoCode создаёт промокод.
func (c *Client) CreatePromoCode(ctx context.Context, userID string, p NewPromoCode) error {
	r, err := c.jsonRequest("create promo code", http.MethodPost, "/promocodes", userID, p)
	if err != nil {
		return err
	}
	return c.doStatus(ctx, r)
}

// DeletePromoCode удаляет промокод по идентификатору.
func (c *Client) DeletePromoCode(ctx context.Context, userID string, id int64) error {
	r, err := c.jsonRequest("delete promo code", http.MethodDelete, "/promocodes", userID,
		map[string]int64{"id": id})
	if err != nil {
		return err
	}
	return c.doStatus(ctx, r)
}
