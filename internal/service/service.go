// Package service реализует сессию мини-приложения: единственного владельца
// корзины, скидки и настроек доставки.
package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/tavola-miniapp/internal/admin"
	"github.com/mmeshcher/tavola-miniapp/internal/cart"
	"github.com/mmeshcher/tavola-miniapp/internal/checkout"
	"github.com/mmeshcher/tavola-miniapp/internal/model"
	"github.com/mmeshcher/tavola-miniapp/internal/orders"
	"github.com/mmeshcher/tavola-miniapp/internal/promo"
	"github.com/mmeshcher/tavola-miniapp/internal/storage"
	"github.com/mmeshcher/tavola-miniapp/internal/validation"
)

// ReasonCartChanged сообщается, если корзину очистили, пока проверялся промокод.
const ReasonCartChanged = "cart changed while the promo code was being checked"

// ActionSetDeliveryAddress помечает сообщение платформе о новом адресе доставки.
const ActionSetDeliveryAddress = "set_delivery_address"

// Catalog описывает публичные эндпоинты меню и акций.
type Catalog interface {
	ListDishes(ctx context.Context, category string) ([]model.Dish, error)
	ListPromotions(ctx context.Context) ([]model.Promotion, error)
}

// Users описывает эндпоинт роли пользователя.
type Users interface {
	GetUserRole(ctx context.Context, userID string) (string, error)
}

// Deps содержит компоненты, из которых собирается сессия.
type Deps struct {
	Catalog  Catalog
	Promo    *promo.Validator
	Checkout *checkout.Initiator
	Orders   *orders.History
	Gate     *admin.Gate
	Panel    *admin.Panel
	Users    Users
	Host     checkout.Host
	Currency string
	Logger   *zap.Logger
}

// CartView содержит снимок корзины для отображения. Скидка приведена к диапазону [0, 100].
type CartView struct {
	Items    []model.CartItem `json:"items"`
	Count    int              `json:"count"`
	Subtotal decimal.Decimal  `json:"subtotal"`
	Discount decimal.Decimal  `json:"discount"`
	Total    decimal.Decimal  `json:"total"`
	Currency string           `json:"currency,omitempty"`
}

// PromoOutcome описывает результат применения промокода.
type PromoOutcome struct {
	Applied  bool            `json:"applied"`
	Discount decimal.Decimal `json:"discount"`
	Reason   string          `json:"reason,omitempty"`
	Cart     CartView        `json:"cart"`
}

// Delivery содержит настройки получения заказа.
type Delivery struct {
	OrderType model.OrderType `json:"order_type"`
	Address   string          `json:"address,omitempty"`
	Geo       *model.GeoPoint `json:"geo,omitempty"`
}

// DeliveryUpdate содержит изменяемые поля настроек. Nil-поля не меняются,
// ClearGeo удаляет сохранённые координаты.
type DeliveryUpdate struct {
	OrderType *model.OrderType `json:"order_type,omitempty"`
	Address   *string          `json:"address,omitempty"`
	Geo       *model.GeoPoint  `json:"geo,omitempty"`
	ClearGeo  bool             `json:"clear_geo,omitempty"`
}

type deliveryAddressMessage struct {
	Action  string `json:"action"`
	Address string `json:"address"`
}

// Profile содержит данные экрана профиля.
type Profile struct {
	User    model.User    `json:"user"`
	Role    string        `json:"role,omitempty"`
	IsAdmin bool          `json:"is_admin"`
	Orders  []model.Order `json:"orders"`
}

// Session последовательно обрабатывает события интерфейса.
// HTTP-сервер конкурентен, поэтому изменения корзины и настроек выполняются под мьютексом.
// Сетевые вызовы выполняются без него.
type Session struct {
	kv       storage.KV
	catalog  Catalog
	promo    *promo.Validator
	checkout *checkout.Initiator
	orders   *orders.History
	gate     *admin.Gate
	panel    *admin.Panel
	users    Users
	host     checkout.Host
	currency string
	logger   *zap.Logger

	// checkoutMu выстраивает оформления заказов в очередь.
	checkoutMu sync.Mutex

	mu    sync.Mutex
	cart  *cart.Store
	prefs *cart.Preferences
}

// NewSession загружает корзину и настройки из хранилища и создаёт сессию.
func NewSession(ctx context.Context, kv storage.KV, deps Deps) (*Session, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := cart.Load(ctx, kv, logger)
	if err != nil {
		return nil, err
	}
	prefs, err := cart.LoadPreferences(ctx, kv)
	if err != nil {
		return nil, err
	}

	return &Session{
		kv:       kv,
		catalog:  deps.Catalog,
		promo:    deps.Promo,
		checkout: deps.Checkout,
		orders:   deps.Orders,
		gate:     deps.Gate,
		panel:    deps.Panel,
		users:    deps.Users,
		host:     deps.Host,
		currency: deps.Currency,
		logger:   logger,
		cart:     store,
		prefs:    prefs,
	}, nil
}

// Close закрывает хранилище сессии.
func (s *Session) Close() error {
	if s.kv != nil {
		return s.kv.Close()
	}
	return nil
}

// Menu возвращает блюда меню.
func (s *Session) Menu(ctx context.Context, category string) ([]model.Dish, error) {
	return s.catalog.ListDishes(ctx, category)
}

// Promotions возвращает рекламные акции.
func (s *Session) Promotions(ctx context.Context) ([]model.Promotion, error) {
	return s.catalog.ListPromotions(ctx)
}

// CartView возвращает текущее состояние корзины.
func (s *Session) CartView() CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() CartView {
	discount := cart.ClampDiscount(s.cart.Discount())
	return CartView{
		Items:    s.cart.Items(),
		Count:    s.cart.Count(),
		Subtotal: s.cart.Subtotal(),
		Discount: discount,
		Total:    s.cart.Total(discount),
		Currency: s.currency,
	}
}

// AddToCart добавляет блюдо в корзину.
func (s *Session) AddToCart(ctx context.Context, dish model.Dish) (CartView, error) {
	if dish.Name == "" {
		return CartView{}, validation.Errorf("name", "dish name is required")
	}
	if dish.Price.IsNegative() {
		return CartView{}, validation.Errorf("price", "price must not be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.cart.Add(ctx, dish)
	return s.viewLocked(), err
}

// RemoveFromCart удаляет позицию с указанным индексом целиком.
// Индекс вне диапазона ничего не меняет.
func (s *Session) RemoveFromCart(ctx context.Context, index int) (CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.cart.Remove(ctx, index)
	return s.viewLocked(), err
}

// ClearCart очищает корзину и сбрасывает скидку.
func (s *Session) ClearCart(ctx context.Context) (CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.cart.Clear(ctx)
	return s.viewLocked(), err
}

// ApplyPromo проверяет промокод и применяет скидку.
// Проверка выполняется без блокировки; результат применяется, только если
// корзину за это время не очищали.
func (s *Session) ApplyPromo(ctx context.Context, code string) (PromoOutcome, error) {
	s.mu.Lock()
	generation := s.cart.Generation()
	subtotal := s.cart.Subtotal()
	s.mu.Unlock()

	res, err := s.promo.Validate(ctx, code, subtotal)
	if err != nil {
		return PromoOutcome{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := PromoOutcome{Discount: decimal.Zero, Reason: res.Reason}
	switch {
	case res.Valid:
		if s.cart.SetDiscount(generation, res.Discount) {
			out.Applied = true
			out.Discount = res.Discount
		} else {
			out.Reason = ReasonCartChanged
			s.logger.Info("stale promo result dropped", zap.String("code", code))
		}
	case s.cart.Generation() == generation:
		s.cart.ResetDiscount()
	}

	out.Cart = s.viewLocked()
	return out, nil
}

// Checkout оформляет заказ текущей корзины.
// Оформления выполняются по очереди, но повторное нажатие «Оплатить» создаёт новый заказ.
// Платёж создаётся по снимку корзины без блокировки сессии: интерфейс остаётся доступен.
func (s *Session) Checkout(ctx context.Context, user model.User) (*checkout.Result, error) {
	s.checkoutMu.Lock()
	defer s.checkoutMu.Unlock()

	s.mu.Lock()
	snap := &cartSnapshot{
		session:    s,
		items:      s.cart.Items(),
		generation: s.cart.Generation(),
	}
	req := checkout.Request{
		Cart:            snap,
		DiscountPercent: cart.ClampDiscount(s.cart.Discount()),
		OrderType:       s.prefs.OrderType(),
		DeliveryAddress: s.prefs.Address(),
		User:            user,
	}
	s.mu.Unlock()

	return s.checkout.CreatePayment(ctx, req)
}

// cartSnapshot передаёт оформлению корзину на момент нажатия «Оплатить».
type cartSnapshot struct {
	session    *Session
	items      []model.CartItem
	generation uint64
}

func (c *cartSnapshot) Items() []model.CartItem {
	return c.items
}

func (c *cartSnapshot) Total(discountPercent decimal.Decimal) decimal.Decimal {
	return cart.Total(cart.Subtotal(c.items), discountPercent)
}

// Clear очищает корзину сессии, если её не очищали, пока создавался платёж.
func (c *cartSnapshot) Clear(ctx context.Context) error {
	s := c.session

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cart.Generation() != c.generation {
		s.logger.Info("cart already cleared during checkout")
		return nil
	}
	return s.cart.Clear(ctx)
}

// Delivery возвращает настройки получения заказа.
func (s *Session) Delivery() Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deliveryLocked()
}

func (s *Session) deliveryLocked() Delivery {
	return Delivery{
		OrderType: s.prefs.OrderType(),
		Address:   s.prefs.Address(),
		Geo:       s.prefs.Geo(),
	}
}

// SaveDelivery сохраняет изменённые настройки. Поля сохраняются по очереди;
// при ошибке уже сохранённые поля не откатываются. О новом адресе сообщается платформе.
func (s *Session) SaveDelivery(ctx context.Context, upd DeliveryUpdate) (Delivery, error) {
	d, addressSaved, err := s.saveDelivery(ctx, upd)
	if addressSaved {
		s.notifyAddress(ctx, d.Address)
	}
	return d, err
}

func (s *Session) saveDelivery(ctx context.Context, upd DeliveryUpdate) (Delivery, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	addressSaved := false

	if upd.OrderType != nil {
		if err := s.prefs.SetOrderType(ctx, *upd.OrderType); err != nil {
			return s.deliveryLocked(), addressSaved, err
		}
	}
	if upd.Address != nil {
		if err := s.prefs.SetAddress(ctx, *upd.Address); err != nil {
			return s.deliveryLocked(), addressSaved, err
		}
		addressSaved = true
	}
	if upd.ClearGeo {
		if err := s.prefs.ClearGeo(ctx); err != nil {
			return s.deliveryLocked(), addressSaved, err
		}
	}
	if upd.Geo != nil {
		if err := s.prefs.SetGeo(ctx, *upd.Geo); err != nil {
			return s.deliveryLocked(), addressSaved, err
		}
	}

	return s.deliveryLocked(), addressSaved, nil
}

func (s *Session) notifyAddress(ctx context.Context, address string) {
	if s.host == nil {
		return
	}

	data, err := json.Marshal(deliveryAddressMessage{Action: ActionSetDeliveryAddress, Address: address})
	if err != nil {
		s.logger.Warn("encode delivery address for host", zap.Error(err))
		return
	}
	if err := s.host.SendData(ctx, data); err != nil {
		s.logger.Warn("send delivery address to host", zap.Error(err))
	}
}

// IsAdmin сообщает, показывать ли пользователю админ-элементы.
func (s *Session) IsAdmin(user model.User) bool {
	return s.gate.Allows(user)
}

// Profile возвращает заказы пользователя, его роль и признак администратора.
func (s *Session) Profile(ctx context.Context, user model.User) Profile {
	return Profile{
		User:    user,
		Role:    s.role(ctx, user),
		IsAdmin: s.IsAdmin(user),
		Orders:  s.orders.List(ctx, user),
	}
}

// role возвращает роль, известную серверу. Ошибка журналируется и даёт пустую роль.
func (s *Session) role(ctx context.Context, user model.User) string {
	if s.users == nil || !user.Known() {
		return ""
	}

	role, err := s.users.GetUserRole(ctx, user.ID)
	if err != nil {
		s.logger.Warn("get user role", zap.String("user_id", user.ID), zap.Error(err))
		return ""
	}
	return role
}

// UpdateOrderStatus меняет статус заказа и возвращает обновлённый список заказов.
func (s *Session) UpdateOrderStatus(ctx context.Context, user model.User, orderID int64, status model.OrderStatus) ([]model.Order, error) {
	return s.orders.SetStatus(ctx, user, s.IsAdmin(user), orderID, status)
}

// AddDish добавляет блюдо в меню.
func (s *Session) AddDish(ctx context.Context, user model.User, f admin.DishForm) error {
	return s.panel.AddDish(ctx, user, f)
}

// DeleteDish удаляет блюдо из меню.
func (s *Session) DeleteDish(ctx context.Context, user model.User, dishID int64) error {
	return s.panel.DeleteDish(ctx, user, dishID)
}

// PromoCodes возвращает промокоды.
func (s *Session) PromoCodes(ctx context.Context, user model.User) ([]model.PromoCode, error) {
	return s.panel.PromoCodes(ctx, user)
}

// CreatePromoCode создаёт промокод.
func (s *Session) CreatePromoCode(ctx context.Context, user model.User, f admin.PromoForm) error {
	return s.panel.CreatePromoCode(ctx, user, f)
}

// DeletePromoCode удаляет промокод.
func (s *Session) DeletePromoCode(ctx context.Context, user model.User, id int64) error {
	return s.panel.DeletePromoCode(ctx, user, id)
}

// AddAdmin назначает администратора.
func (s *Session) AddAdmin(ctx context.Context, user model.User, username string) error {
	return s.panel.AddAdmin(ctx, user, username)
}

// StartAdminRefresh запускает фоновое обновление конфигурации администратора.
// Первое обновление выполняется сразу.
func (s *Session) StartAdminRefresh(ctx context.Context, interval time.Duration) {
	if s.gate == nil {
		return
	}

	s.gate.Refresh(ctx)
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.gate.Refresh(ctx)
			}
		}
	}()
}
