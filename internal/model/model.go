// Package model содержит доменные сущности мини-приложения ресторана.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// User описывает пользователя чат-платформы, открывшего мини-приложение.
type User struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// Known сообщает, известен ли идентификатор пользователя.
func (u User) Known() bool {
	return u.ID != ""
}

// Dish описывает блюдо из меню ресторана.
type Dish struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category,omitempty"`
	ImageURL    string          `json:"image_url,omitempty"`
}

// CartItem описывает позицию корзины. Позиции уникальны по ID.
type CartItem struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Qty   int             `json:"qty"`
}

// Amount возвращает стоимость позиции с учётом количества.
func (i CartItem) Amount() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Qty)))
}

// OrderStatus описывает статус заказа на стороне сервера.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusAccepted   OrderStatus = "accepted"
	OrderStatusCooking    OrderStatus = "cooking"
	OrderStatusOnDelivery OrderStatus = "on_delivery"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusFailed     OrderStatus = "failed"
)

// OrderStatuses перечисляет допустимые статусы в порядке жизненного цикла.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusAccepted,
	OrderStatusCooking,
	OrderStatusOnDelivery,
	OrderStatusDelivered,
	OrderStatusFailed,
}

// Order описывает заказ пользователя. Создаётся и хранится сервером.
type Order struct {
	ID        int64           `json:"id"`
	Total     decimal.Decimal `json:"total"`
	Status    OrderStatus     `json:"status"`
	CreatedAt string          `json:"created_at,omitempty"`
	Dishes    []CartItem      `json:"dishes,omitempty"`
}

// OrderType задаёт способ получения заказа.
type OrderType string

const (
	OrderTypeDelivery   OrderType = "delivery"
	OrderTypeRestaurant OrderType = "restaurant"
)

// GeoPoint хранит координаты, выбранные пользователем для доставки.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// AdminConfig описывает публичную конфигурация администратора, отдаваемую сервером.
type AdminConfig struct {
	AdminID *string `json:"admin_id"`
}

// UnmarshalJSON принимает admin_id как строкой, так и числом.
func (c *AdminConfig) UnmarshalJSON(data []byte) error {
	var raw struct {
		AdminID json.RawMessage `json:"admin_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	c.AdminID = nil
	v := bytes.TrimSpace(raw.AdminID)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return nil
	}

	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		c.AdminID = &s
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		return fmt.Errorf("admin_id: %w", err)
	}
	id := n.String()
	c.AdminID = &id
	return nil
}

// PromoCode описывает промокод в админ-панели.
type PromoCode struct {
	ID        int64           `json:"id"`
	Code      string          `json:"code"`
	Discount  decimal.Decimal `json:"discount"`
	Uses      int             `json:"uses"`
	MaxUses   int             `json:"max_uses"`
	ExpiresAt string          `json:"expires_at,omitempty"`
	IsActive  bool            `json:"is_active"`
}

// Promotion описывает рекламную акцию на главном экране.
type Promotion struct {
	ID       int64  `json:"id,omitempty"`
	Text     string `json:"text"`
	ImageURL string `json:"image_url,omitempty"`
}
