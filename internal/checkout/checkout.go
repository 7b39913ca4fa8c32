// Package checkout собирает данные платежа и заказа и инициирует оплату.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/tavola-miniapp/internal/api"
	"github.com/mmeshcher/tavola-miniapp/internal/model"
)

var (
	// ErrEmptyCart возвращается, если итоговая сумма не положительна. Запрос в сеть не выполняется.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrNoPaymentURL возвращается, если сервер не прислал ссылку на оплату.
	ErrNoPaymentURL = errors.New("payment url missing in response")
)

// API описывает эндпоинт создания платежа.
type API interface {
	CreatePayment(ctx context.Context, p api.CreatePaymentRequest) (*api.CreatePaymentResponse, error)
}

// Host описывает чат-платформу, внутри которой открыто мини-приложение.
// Обе операции выполняются по принципу best-effort.
type Host interface {
	SendData(ctx context.Context, data []byte) error
	OpenLink(ctx context.Context, url string) error
}

// Cart описывает корзину, из которой оформляется заказ.
type Cart interface {
	Items() []model.CartItem
	Total(discountPercent decimal.Decimal) decimal.Decimal
	Clear(ctx context.Context) error
}

// Request содержит всё, что нужно для оформления заказа.
type Request struct {
	Cart            Cart
	DiscountPercent decimal.Decimal
	OrderType       model.OrderType
	DeliveryAddress string
	User            model.User
}

// Result описывает успешно созданный платёж. PaymentURL задаёт адрес перенаправления.
type Result struct {
	OrderID    string
	PaymentURL string
	Total      decimal.Decimal
}

// Options задаёт постоянные параметры оформления.
type Options struct {
	RestaurantAddress  string
	PaymentDescription string
}

// Initiator оформляет заказ и создаёт платёж.
// Повторный вызов после ошибки создаёт новый заказ: дедупликации нет.
type Initiator struct {
	api    API
	host   Host
	ids    *OrderIDGenerator
	opts   Options
	now    func() time.Time
	logger *zap.Logger
}

// NewInitiator создаёт инициатор платежей. Nil host означает отсутствие интеграции с платформой.
func NewInitiator(a API, host Host, ids *OrderIDGenerator, opts Options, logger *zap.Logger) *Initiator {
	if ids == nil {
		ids = NewOrderIDGenerator(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Initiator{
		api:    a,
		host:   host,
		ids:    ids,
		opts:   opts,
		now:    time.Now,
		logger: logger,
	}
}

// CreatePayment оформляет заказ. При успехе уведомляет платформу, открывает ссылку
// на оплату и очищает корзину, именно в таком порядке. При ошибке корзина и скидка
// не меняются.
func (i *Initiator) CreatePayment(ctx context.Context, req Request) (*Result, error) {
	total := req.Cart.Total(req.DiscountPercent)
	if !total.IsPositive() {
		return nil, ErrEmptyCart
	}

	orderID := i.ids.Next()
	payload := i.buildPayload(req, orderID, total)

	resp, err := i.api.CreatePayment(ctx, payload)
	if err != nil {
		i.logger.Error("create payment failed", zap.String("order_id", orderID), zap.Error(err))
		return nil, err
	}
	if resp.PaymentURL == "" {
		i.logger.Error("create payment returned no url", zap.String("order_id", orderID))
		return nil, ErrNoPaymentURL
	}

	i.notifyHost(ctx, orderID, payload.OrderData, resp.PaymentURL)

	if err := req.Cart.Clear(ctx); err != nil {
		i.logger.Error("clear cart after payment", zap.String("order_id", orderID), zap.Error(err))
	}

	i.logger.Info("payment created",
		zap.String("order_id", orderID),
		zap.String("total", total.StringFixed(2)),
	)

	return &Result{
		OrderID:    orderID,
		PaymentURL: resp.PaymentURL,
		Total:      total,
	}, nil
}

func (i *Initiator) buildPayload(req Request, orderID string, total decimal.Decimal) api.CreatePaymentRequest {
	items := req.Cart.Items()
	dishes := make([]api.OrderDish, 0, len(items))
	for _, it := range items {
		dishes = append(dishes, api.OrderDish{
			ID:    it.ID,
			Name:  it.Name,
			Qty:   it.Qty,
			Price: it.Price,
		})
	}

	orderType := req.OrderType
	if orderType == "" {
		orderType = model.OrderTypeDelivery
	}

	address := i.opts.RestaurantAddress
	if orderType == model.OrderTypeDelivery && req.DeliveryAddress != "" {
		address = req.DeliveryAddress
	}

	amount := total.StringFixed(2)

	return api.CreatePaymentRequest{
		Payment: api.PaymentIntent{
			Amount:      amount,
			OrderID:     orderID,
			Description: i.opts.PaymentDescription,
		},
		OrderData: api.OrderDetails{
			Dishes:    dishes,
			Address:   address,
			Total:     amount,
			OrderID:   orderID,
			OrderType: orderType,
			User:      req.User,
			Timestamp: i.now().UTC().Format(time.RFC3339Nano),
		},
	}
}

func (i *Initiator) notifyHost(ctx context.Context, orderID string, order api.OrderDetails, paymentURL string) {
	if i.host == nil {
		return
	}

	data, err := json.Marshal(order)
	if err != nil {
		i.logger.Warn("encode order for host", zap.String("order_id", orderID), zap.Error(err))
	} else if err := i.host.SendData(ctx, data); err != nil {
		i.logger.Warn("send order to host", zap.String("order_id", orderID), zap.Error(err))
	}

	if err := i.host.OpenLink(ctx, paymentURL); err != nil {
		i.logger.Warn("open payment link", zap.String("order_id", orderID), zap.Error(err))
	}
}
