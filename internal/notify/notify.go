// Package notify содержит реализации связи с чат-платформой: журнал и очередь AMQP,
// из которой сообщения забирает бот.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/mmeshcher/tavola-miniapp/internal/middleware"
)

// LogHost используется, когда мини-приложение открыто вне чат-платформы.
// Данные заказа и ссылка на оплату только записываются в журнал.
type LogHost struct {
	logger *zap.Logger
}

// NewLogHost создаёт журналирующую реализацию платформы.
func NewLogHost(logger *zap.Logger) *LogHost {
	return &LogHost{logger: logger}
}

// SendData записывает данные заказа в журнал.
func (h *LogHost) SendData(ctx context.Context, data []byte) error {
	user, _ := middleware.GetUserFromContext(ctx)
	h.logger.Info("host data", zap.String("user_id", user.ID), zap.ByteString("data", data))
	return nil
}

// OpenLink записывает ссылку в журнал. Перенаправление выполняет страница по ответу API.
func (h *LogHost) OpenLink(ctx context.Context, url string) error {
	user, _ := middleware.GetUserFromContext(ctx)
	h.logger.Info("host open link", zap.String("user_id", user.ID), zap.String("url", url))
	return nil
}
