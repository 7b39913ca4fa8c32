// Package api предоставляет HTTP-клиент удалённого API ресторана.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/tavola-miniapp/internal/model"
)

const (
	// IdentityHeader передаёт идентификатор пользователя платформы. Сервер проверяет его сам.
	IdentityHeader = "X-Telegram-Id"
	// RequestIDHeader связывает записи журнала клиента и сервера.
	RequestIDHeader = "X-Request-Id"

	maxErrorBody = 64 << 10
)

// Client инкапсулирует HTTP-взаимодействие с API ресторана.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент API по базовому адресу вида http://host:port/api.
func NewClient(baseURL string, timeout time.Duration) *Client {
	base := strings.TrimRight(baseURL, "/")
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type statusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type request struct {
	op          string
	method      string
	path        string
	userID      string
	body        io.Reader
	contentType string
}

func (c *Client) jsonRequest(op, method, path, userID string, payload any) (request, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return request{}, fmt.Errorf("%s: encode request: %w", op, err)
	}
	return request{
		op:          op,
		method:      method,
		path:        path,
		userID:      userID,
		body:        bytes.NewReader(raw),
		contentType: "application/json",
	}, nil
}

// do выполняет запрос и декодирует успешный ответ в out.
func (c *Client) do(ctx context.Context, r request, out any) error {
	if c == nil || c.baseURL == "" {
		return &NetworkError{Op: r.op, Err: fmt.Errorf("api client not configured")}
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, r.body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", r.op, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.userID != "" {
		req.Header.Set(IdentityHeader, r.userID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: r.op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ServerError{
			Op:         r.op,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.Body),
		}
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ServerError{
			Op:         r.op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("decode response: %w", err),
		}
	}

	return nil
}

// doStatus выполняет запрос к эндпоинту, отвечающему конвертом {status, error}.
func (c *Client) doStatus(ctx context.Context, r request) error {
	var resp statusResponse
	if err := c.do(ctx, r, &resp); err != nil {
		return err
	}
	if resp.Status == "error" {
		return &ServerError{Op: r.op, StatusCode: http.StatusOK, Message: resp.Error}
	}
	return nil
}

func errorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}

	var resp statusResponse
	if json.Unmarshal(raw, &resp) == nil && resp.Error != "" {
		return resp.Error
	}
	return ""
}

// GetAdminConfig возвращает публичную конфигурацию администратора.
func (c *Client) GetAdminConfig(ctx context.Context) (*model.AdminConfig, error) {
	var cfg model.AdminConfig
	err := c.do(ctx, request{op: "get admin config", method: http.MethodGet, path: "/admin/config"}, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ListDishes возвращает блюда меню, при непустой категории только этой категории.
func (c *Client) ListDishes(ctx context.Context, category string) ([]model.Dish, error) {
	path := "/dishes"
	if category != "" {
		path += "?category=" + url.QueryEscape(category)
	}

	var dishes []model.Dish
	if err := c.do(ctx, request{op: "list dishes", method: http.MethodGet, path: path}, &dishes); err != nil {
		return nil, err
	}
	if dishes == nil {
		dishes = []model.Dish{}
	}
	return dishes, nil
}

// DeleteDish удаляет блюдо. Требует прав администратора на сервере.
func (c *Client) DeleteDish(ctx context.Context, userID string, dishID int64) error {
	return c.doStatus(ctx, request{
		op:     "delete dish",
		method: http.MethodDelete,
		path:   fmt.Sprintf("/dishes/%d", dishID),
		userID: userID,
	})
}

// ListPromotions возвращает рекламные акции.
func (c *Client) ListPromotions(ctx context.Context) ([]model.Promotion, error) {
	var promotions []model.Promotion
	if err := c.do(ctx, request{op: "list promotions", method: http.MethodGet, path: "/promotions"}, &promotions); err != nil {
		return nil, err
	}
	if promotions == nil {
		promotions = []model.Promotion{}
	}
	return promotions, nil
}

// ListUserOrders возвращает заказы пользователя в порядке, заданном сервером.
func (c *Client) ListUserOrders(ctx context.Context, userID string) ([]model.Order, error) {
	if userID == "" {
		userID = "0"
	}

	var orders []model.Order
	err := c.do(ctx, request{
		op:     "list user orders",
		method: http.MethodGet,
		path:   "/user/" + url.PathEscape(userID) + "/orders",
		userID: userID,
	}, &orders)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []model.Order{}
	}
	return orders, nil
}

// UpdateOrderStatus отправляет новый статус заказа.
func (c *Client) UpdateOrderStatus(ctx context.Context, userID string, orderID int64, status model.OrderStatus) error {
	r, err := c.jsonRequest("update order status", http.MethodPost,
		fmt.Sprintf("/order/%d/status", orderID), userID,
		map[string]string{"status": string(status)})
	if err != nil {
		return err
	}
	return c.doStatus(ctx, r)
}

// AddAdmin назначает администратором пользователя с указанным username.
func (c *Client) AddAdmin(ctx context.Context, userID, username string) error {
	r, err := c.jsonRequest("add admin", http.MethodPost, "/add_admin", userID,
		map[string]string{"username": username})
	if err != nil {
		return err
	}
	return c.doStatus(ctx, r)
}

type userRoleResponse struct {
	TelegramID int64  `json:"telegram_id"`
	Role       string `json:"role"`
}

// GetUserRole возвращает роль пользователя, известную серверу.
func (c *Client) GetUserRole(ctx context.Context, userID string) (string, error) {
	var resp userRoleResponse
	err := c.do(ctx, request{
		op:     "get user role",
		method: http.MethodGet,
		path:   "/user/" + url.PathEscape(userID),
		userID: userID,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Role, nil
}
