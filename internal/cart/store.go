// Package cart реализует корзину клиента, которая сохраняется в локальное хранилище
// после каждого изменения.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/tavola-miniapp/internal/model"
	"github.com/mmeshcher/tavola-miniapp/internal/storage"
)

// Ключи локального хранилища.
const (
	KeyCart         = "cart"
	KeyOrderType    = "orderType"
	KeyDeliveryAddr = "delivery_addr"
	KeyDeliveryGeo  = "delivery_geo"
)

var hundred = decimal.NewFromInt(100)

// Store владеет позициями корзины и скидкой текущей сессии.
// Скидка не сохраняется между перезапусками.
type Store struct {
	kv     storage.KV
	logger *zap.Logger

	items      []model.CartItem
	discount   decimal.Decimal
	generation uint64
}

// Load читает корзину из хранилища. Отсутствующее или повреждённое значение даёт пустую корзину.
func Load(ctx context.Context, kv storage.KV, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		kv:     kv,
		logger: logger,
		items:  []model.CartItem{},
	}

	raw, err := kv.Get(ctx, KeyCart)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return s, nil
		}
		return nil, fmt.Errorf("load cart: %w", err)
	}

	var items []model.CartItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		logger.Warn("stored cart is malformed, starting empty", zap.Error(err))
		return s, nil
	}

	s.items = sanitize(items)
	return s, nil
}

// sanitize сводит дубликаты по ID и отбрасывает позиции с некорректным количеством.
func sanitize(items []model.CartItem) []model.CartItem {
	res := make([]model.CartItem, 0, len(items))
	index := make(map[int64]int, len(items))

	for _, it := range items {
		if it.Qty <= 0 || it.Price.IsNegative() {
			continue
		}
		if i, ok := index[it.ID]; ok {
			res[i].Qty += it.Qty
			continue
		}
		index[it.ID] = len(res)
		res = append(res, it)
	}

	return res
}

// Add добавляет блюдо в корзину или увеличивает количество уже добавленного.
func (s *Store) Add(ctx context.Context, dish model.Dish) error {
	for i := range s.items {
		if s.items[i].ID == dish.ID {
			s.items[i].Qty++
			return s.persist(ctx)
		}
	}

	s.items = append(s.items, model.CartItem{
		ID:    dish.ID,
		Name:  dish.Name,
		Price: dish.Price,
		Qty:   1,
	})
	return s.persist(ctx)
}

// Remove удаляет позицию по порядковому номеру. Индекс вне диапазона игнорируется.
func (s *Store) Remove(ctx context.Context, index int) error {
	if index < 0 || index >= len(s.items) {
		return nil
	}

	s.items = append(s.items[:index], s.items[index+1:]...)
	return s.persist(ctx)
}

// Clear очищает корзину и сбрасывает скидку.
func (s *Store) Clear(ctx context.Context) error {
	s.items = []model.CartItem{}
	s.discount = decimal.Zero
	s.generation++
	return s.persist(ctx)
}

// Items возвращает копию позиций в порядке добавления.
func (s *Store) Items() []model.CartItem {
	res := make([]model.CartItem, len(s.items))
	copy(res, s.items)
	return res
}

// Len возвращает число различных позиций.
func (s *Store) Len() int {
	return len(s.items)
}

// Count возвращает суммарное количество единиц в корзине.
func (s *Store) Count() int {
	n := 0
	for _, it := range s.items {
		n += it.Qty
	}
	return n
}

// Subtotal возвращает сумму price*qty по всем позициям.
func (s *Store) Subtotal() decimal.Decimal {
	return Subtotal(s.items)
}

// Total возвращает сумму со скидкой, округлённую до копеек.
// Диапазон скидки не проверяется: вызывающий код обязан ограничить её через ClampDiscount.
func (s *Store) Total(discountPercent decimal.Decimal) decimal.Decimal {
	return Total(s.Subtotal(), discountPercent)
}

// Discount возвращает скидку текущей сессии в процентах.
func (s *Store) Discount() decimal.Decimal {
	return s.discount
}

// Generation возвращает номер поколения корзины. Меняется при каждой очистке.
func (s *Store) Generation() uint64 {
	return s.generation
}

// SetDiscount применяет скидку, если корзина не очищалась после получения generation.
func (s *Store) SetDiscount(generation uint64, percent decimal.Decimal) bool {
	if generation != s.generation {
		return false
	}
	s.discount = percent
	return true
}

// ResetDiscount сбрасывает скидку в ноль.
func (s *Store) ResetDiscount() {
	s.discount = decimal.Zero
}

func (s *Store) persist(ctx context.Context) error {
	raw, err := json.Marshal(s.items)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.kv.Set(ctx, KeyCart, string(raw)); err != nil {
		return fmt.Errorf("persist cart: %w", err)
	}
	return nil
}

// Subtotal считает сумму позиций без скидки.
func Subtotal(items []model.CartItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Amount())
	}
	return sum
}

// Total применяет процентную скидку к сумме. При нулевой скидке сумма не изменяется.
func Total(subtotal, discountPercent decimal.Decimal) decimal.Decimal {
	if discountPercent.IsZero() {
		return subtotal
	}
	return subtotal.Mul(hundred.Sub(discountPercent)).Div(hundred).Round(2)
}

// ClampDiscount ограничивает скидку диапазоном [0, 100].
func ClampDiscount(percent decimal.Decimal) decimal.Decimal {
	if percent.IsNegative() {
		return decimal.Zero
	}
	if percent.GreaterThan(hundred) {
		return hundred
	}
	return percent
}
