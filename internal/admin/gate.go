// Package admin содержит проверку видимости админ-панели и операции администратора.
//
// IsAdmin управляет только отображением элементов интерфейса. Это не граница
// авторизации: каждый привилегированный запрос сервер проверяет самостоятельно.
package admin

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mmeshcher/tavola-miniapp/internal/model"
)

// IsAdmin возвращает true, если admin_id задан и совпадает с идентификатором пользователя.
func IsAdmin(user model.User, cfg model.AdminConfig) bool {
	if cfg.AdminID == nil || *cfg.AdminID == "" || user.ID == "" {
		return false
	}
	return *cfg.AdminID == user.ID
}

// ConfigAPI описывает эндпоинт публичной конфигурации администратора.
type ConfigAPI interface {
	GetAdminConfig(ctx context.Context) (*model.AdminConfig, error)
}

// Gate хранит последнюю полученную конфигурацию администратора.
type Gate struct {
	api    ConfigAPI
	logger *zap.Logger

	mu  sync.RWMutex
	cfg model.AdminConfig
}

// NewGate создаёт гейт с пустой конфигурацией: до Refresh никто не администратор.
func NewGate(a ConfigAPI, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{api: a, logger: logger}
}

// Refresh перечитывает конфигурацию. Ошибка журналируется, прежняя конфигурация сохраняется.
func (g *Gate) Refresh(ctx context.Context) {
	cfg, err := g.api.GetAdminConfig(ctx)
	if err != nil {
		g.logger.Warn("failed to load admin config", zap.Error(err))
		return
	}

	g.mu.Lock()
	g.cfg = *cfg
	g.mu.Unlock()
}

// Config возвращает текущую конфигурацию.
func (g *Gate) Config() model.AdminConfig {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cfg
}

// Allows сообщает, показывать ли пользователю админ-панель.
func (g *Gate) Allows(user model.User) bool {
	return IsAdmin(user, g.Config())
}
