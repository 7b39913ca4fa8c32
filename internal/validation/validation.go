// Package validation содержит проверки входных данных, выполняемые до обращения к сети.
package validation

import (
	"path/filepath"
	"strings"

	"github.com/mmeshcher/tavola-miniapp/internal/model"
)

// Error описывает нарушение предусловия операции.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

// Errorf создаёт ошибку валидации для указанного поля.
func Errorf(field, reason string) *Error {
	return &Error{Field: field, Reason: reason}
}

var allowedImageExt = map[string]struct{}{
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"gif":  {},
	"webp": {},
}

// IsValidOrderStatus проверяет, что статус входит в перечень статусов заказа.
func IsValidOrderStatus(status model.OrderStatus) bool {
	for _, s := range model.OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsValidOrderType проверяет способ получения заказа.
func IsValidOrderType(t model.OrderType) bool {
	return t == model.OrderTypeDelivery || t == model.OrderTypeRestaurant
}

// NormalizePromoCode обрезает пробелы вокруг промокода.
func NormalizePromoCode(code string) string {
	return strings.TrimSpace(code)
}

// IsAllowedImage проверяет расширение загружаемого изображения блюда.
func IsAllowedImage(filename string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return false
	}
	_, ok := allowedImageExt[ext]
	return ok
}

// NormalizeAddress обрезает пробелы в адресе доставки.
func NormalizeAddress(addr string) string {
	return strings.TrimSpace(addr)
}
