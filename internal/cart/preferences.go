package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mmeshcher/tavola-miniapp/internal/model"
	"github.com/mmeshcher/tavola-miniapp/internal/storage"
	"github.com/mmeshcher/tavola-miniapp/internal/validation"
)

// Preferences хранит выбор способа получения заказа и адрес доставки.
type Preferences struct {
	kv storage.KV

	orderType model.OrderType
	address   string
	geo       *model.GeoPoint
}

// LoadPreferences читает настройки доставки. Неизвестный тип заказа заменяется доставкой.
func LoadPreferences(ctx context.Context, kv storage.KV) (*Preferences, error) {
	p := &Preferences{
		kv:        kv,
		orderType: model.OrderTypeDelivery,
	}

	orderType, err := getOptional(ctx, kv, KeyOrderType)
	if err != nil {
		return nil, err
	}
	if t := model.OrderType(orderType); validation.IsValidOrderType(t) {
		p.orderType = t
	}

	p.address, err = getOptional(ctx, kv, KeyDeliveryAddr)
	if err != nil {
		return nil, err
	}

	rawGeo, err := getOptional(ctx, kv, KeyDeliveryGeo)
	if err != nil {
		return nil, err
	}
	if rawGeo != "" {
		var g model.GeoPoint
		if json.Unmarshal([]byte(rawGeo), &g) == nil {
			p.geo = &g
		}
	}

	return p, nil
}

func getOptional(ctx context.Context, kv storage.KV, key string) (string, error) {
	v, err := kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("load %s: %w", key, err)
	}
	return v, nil
}

// OrderType возвращает выбранный способ получения заказа.
func (p *Preferences) OrderType() model.OrderType {
	return p.orderType
}

// SetOrderType сохраняет способ получения заказа.
func (p *Preferences) SetOrderType(ctx context.Context, t model.OrderType) error {
	if !validation.IsValidOrderType(t) {
		return validation.Errorf("order_type", "must be delivery or restaurant")
	}
	if err := p.kv.Set(ctx, KeyOrderType, string(t)); err != nil {
		return fmt.Errorf("persist order type: %w", err)
	}
	p.orderType = t
	return nil
}

// Address возвращает сохранённый адрес доставки.
func (p *Preferences) Address() string {
	return p.address
}

// SetAddress сохраняет адрес доставки. Пустой адрес не принимается.
func (p *Preferences) SetAddress(ctx context.Context, addr string) error {
	addr = validation.NormalizeAddress(addr)
	if addr == "" {
		return validation.Errorf("address", "address is required")
	}
	if err := p.kv.Set(ctx, KeyDeliveryAddr, addr); err != nil {
		return fmt.Errorf("persist address: %w", err)
	}
	p.address = addr
	return nil
}

// Geo возвращает сохранённые координаты или nil.
func (p *Preferences) Geo() *model.GeoPoint {
	if p.geo == nil {
		return nil
	}
	g := *p.geo
	return &g
}

// SetGeo сохраняет координаты пользователя.
func (p *Preferences) SetGeo(ctx context.Context, g model.GeoPoint) error {
	if g.Lat < -90 || g.Lat > 90 || g.Lng < -180 || g.Lng > 180 {
		return validation.Errorf("geo", "coordinates out of range")
	}
	raw, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode geo: %w", err)
	}
	if err := p.kv.Set(ctx, KeyDeliveryGeo, string(raw)); err != nil {
		return fmt.Errorf("persist geo: %w", err)
	}
	p.geo = &g
	return nil
}

// ClearGeo удаляет сохранённые координаты.
func (p *Preferences) ClearGeo(ctx context.Context) error {
	if err := p.kv.Delete(ctx, KeyDeliveryGeo); err != nil {
		return fmt.Errorf("delete geo: %w", err)
	}
	p.geo = nil
	return nil
}
