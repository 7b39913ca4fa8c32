package api

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/tavola-miniapp/internal/model"
)

// PaymentIntent содержит данные для создания счёта на оплату.
type PaymentIntent struct {
	Amount      string `json:"amount"`
	OrderID     string `json:"order_id"`
	Description string `json:"description"`
}

// OrderDish описывает позицию заказа в составе данных заказа.
type OrderDish struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Qty   int             `json:"qty"`
	Price decimal.Decimal `json:"price"`
}

// OrderDetails содержит данные заказа, отправляемые вместе с платежом и чат-платформе.
type OrderDetails struct {
	Dishes    []OrderDish     `json:"dishes"`
	Address   string          `json:"address"`
	Total     string          `json:"total"`
	OrderID   string          `json:"order_id"`
	OrderType model.OrderType `json:"orderType"`
	User      model.User      `json:"user"`
	Timestamp string          `json:"timestamp"`
}

// CreatePaymentRequest объединяет платёж и заказ в одном запросе.
type CreatePaymentRequest struct {
	Payment   PaymentIntent `json:"payment"`
	OrderData OrderDetails  `json:"orderData"`
}

// CreatePaymentResponse описывает ответ эндпоинта создания платежа.
type CreatePaymentResponse struct {
	Status     string `json:"status"`
	PaymentURL string `json:"payment_url"`
	InvoiceID  string `json:"invoice_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CreatePayment создаёт платёж и заказ на сервере.
// Ответ со статусом, отличным от success, возвращается как *ServerError.
func (c *Client) CreatePayment(ctx context.Context, p CreatePaymentRequest) (*CreatePaymentResponse, error) {
	r, err := c.jsonRequest("create payment", http.MethodPost, "/create_payment", p.OrderData.User.ID, p)
	if err != nil {
		return nil, err
	}

	var resp CreatePaymentResponse
	if err := c.do(ctx, r, &resp); err != nil {
		return nil, err
	}

	if resp.Status != "success" {
		return nil, &ServerError{Op: r.op, StatusCode: http.StatusOK, Message: resp.Error}
	}

	return &resp, nil
}
