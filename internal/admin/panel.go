package admin

import (
	"context"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/tavola-miniapp/internal/api"
	"github.com/mmeshcher/tavola-miniapp/internal/model"
	"github.com/mmeshcher/tavola-miniapp/internal/validation"
)

// PanelAPI описывает эндпоинты админ-панели.
type PanelAPI interface {
	AddDish(ctx context.Context, userID string, d api.NewDish) error
	DeleteDish(ctx context.Context, userID string, dishID int64) error
	ListPromoCodes(ctx context.Context, userID string) ([]model.PromoCode, error)
	CreatePromoCode(ctx context.Context, userID string, p api.NewPromoCode) error
	DeletePromoCode(ctx context.Context, userID string, id int64) error
	AddAdmin(ctx context.Context, userID, username string) error
}

// DishForm содержит данные формы добавления блюда.
type DishForm struct {
	Name        string
	Price       string
	Description string
	Category    string
	ImageName   string
	Image       io.Reader
}

// PromoForm содержит данные формы создания промокода.
type PromoForm struct {
	Code      string
	Discount  string
	MaxUses   int
	ExpiresAt string
}

// Panel выполняет операции администратора. Запросы отправляются с заголовком
// идентификации; решение о доступе принимает сервер.
type Panel struct {
	api    PanelAPI
	logger *zap.Logger
}

// NewPanel создаёт админ-панель.
func NewPanel(a PanelAPI, logger *zap.Logger) *Panel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Panel{api: a, logger: logger}
}

// AddDish проверяет форму и добавляет блюдо.
func (p *Panel) AddDish(ctx context.Context, user model.User, f DishForm) error {
	name := strings.TrimSpace(f.Name)
	price := strings.TrimSpace(f.Price)
	if name == "" || price == "" {
		return validation.Errorf("dish", "name and price required")
	}
	if _, err := decimal.NewFromString(price); err != nil {
		return validation.Errorf("price", "price must be numeric")
	}

	dish := api.NewDish{
		Name:        name,
		Price:       price,
		Description: strings.TrimSpace(f.Description),
		Category:    strings.TrimSpace(f.Category),
	}
	if f.Image != nil && f.ImageName != "" {
		if !validation.IsAllowedImage(f.ImageName) {
			return validation.Errorf("image", "invalid image extension")
		}
		dish.ImageName = f.ImageName
		dish.Image = f.Image
	}
	if dish.Category == "" {
		dish.Category = "other"
	}

	if err := p.api.AddDish(ctx, user.ID, dish); err != nil {
		return err
	}
	p.logger.Info("dish added", zap.String("name", name), zap.String("by", user.ID))
	return nil
}

// DeleteDish удаляет блюдо.
func (p *Panel) DeleteDish(ctx context.Context, user model.User, dishID int64) error {
	if err := p.api.DeleteDish(ctx, user.ID, dishID); err != nil {
		return err
	}
	p.logger.Info("dish deleted", zap.Int64("dish_id", dishID), zap.String("by", user.ID))
	return nil
}

// PromoCodes возвращает список промокодов.
func (p *Panel) PromoCodes(ctx context.Context, user model.User) ([]model.PromoCode, error) {
	return p.api.ListPromoCodes(ctx, user.ID)
}

// CreatePromoCode проверяет форму и создаёт промокод.
func (p *Panel) CreatePromoCode(ctx context.Context, user model.User, f PromoForm) error {
	code := validation.NormalizePromoCode(f.Code)
	if code == "" {
		return validation.Errorf("code", "promo code is required")
	}

	discount, err := decimal.NewFromString(strings.TrimSpace(f.Discount))
	if err != nil {
		return validation.Errorf("discount", "discount must be numeric")
	}
	if discount.IsNegative() || discount.GreaterThan(decimal.NewFromInt(100)) {
		return validation.Errorf("discount", "discount must be between 0 and 100")
	}

	maxUses := f.MaxUses
	if maxUses <= 0 {
		maxUses = 1
	}

	err = p.api.CreatePromoCode(ctx, user.ID, api.NewPromoCode{
		Code:      code,
		Discount:  discount,
		MaxUses:   maxUses,
		ExpiresAt: strings.TrimSpace(f.ExpiresAt),
	})
	if err != nil {
		return err
	}
	p.logger.Info("promo code created", zap.String("code", code), zap.String("by", user.ID))
	return nil
}

// DeletePromoCode удаляет промокод.
func (p *Panel) DeletePromoCode(ctx context.Context, user model.User, id int64) error {
	return p.api.DeletePromoCode(ctx, user.ID, id)
}

// AddAdmin назначает администратора по username.
func (p *Panel) AddAdmin(ctx context.Context, user model.User, username string) error {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return validation.Errorf("username", "username is required")
	}
	return p.api.AddAdmin(ctx, user.ID, username)
}
