// Package orders загружает историю заказов пользователя и меняет их статус.
package orders

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/mmeshcher/tavola-miniapp/internal/model"
	"github.com/mmeshcher/tavola-miniapp/internal/validation"
)

// ErrNotAdmin возвращается, если смена статуса запрошена без признака администратора.
// Это видимость интерфейса, а не проверка прав: права проверяет сервер.
var ErrNotAdmin = errors.New("admin access required")

// API описывает эндпоинты заказов.
type API interface {
	ListUserOrders(ctx context.Context, userID string) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, userID string, orderID int64, status model.OrderStatus) error
}

// History реализует клиент истории и статусов заказов.
type History struct {
	api    API
	logger *zap.Logger
}

// NewHistory создаёт клиент истории заказов.
func NewHistory(a API, logger *zap.Logger) *History {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &History{api: a, logger: logger}
}

// List возвращает заказы пользователя. Любая ошибка журналируется и даёт пустой список.
func (h *History) List(ctx context.Context, user model.User) []model.Order {
	orders, err := h.api.ListUserOrders(ctx, user.ID)
	if err != nil {
		h.logger.Error("list orders", zap.String("user_id", user.ID), zap.Error(err))
		return []model.Order{}
	}
	return orders
}

// SetStatus отправляет новый статус заказа и перечитывает список с сервера.
// Локально статус не обновляется.
func (h *History) SetStatus(ctx context.Context, user model.User, isAdmin bool, orderID int64, status model.OrderStatus) ([]model.Order, error) {
	if !validation.IsValidOrderStatus(status) {
		return nil, validation.Errorf("status", "unknown order status")
	}
	if !isAdmin {
		return nil, ErrNotAdmin
	}

	if err := h.api.UpdateOrderStatus(ctx, user.ID, orderID, status); err != nil {
		h.logger.Error("update order status",
			zap.Int64("order_id", orderID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return nil, err
	}

	h.logger.Info("order status updated",
		zap.Int64("order_id", orderID),
		zap.String("status", string(status)),
		zap.String("by", user.ID),
	)

	return h.List(ctx, user), nil
}
