// Package handler содержит HTTP-обработчики локального API мини-приложения.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/tavola-miniapp/internal/admin"
	"github.com/mmeshcher/tavola-miniapp/internal/api"
	"github.com/mmeshcher/tavola-miniapp/internal/checkout"
	"github.com/mmeshcher/tavola-miniapp/internal/middleware"
	"github.com/mmeshcher/tavola-miniapp/internal/model"
	"github.com/mmeshcher/tavola-miniapp/internal/orders"
	"github.com/mmeshcher/tavola-miniapp/internal/service"
	"github.com/mmeshcher/tavola-miniapp/internal/validation"
)

const maxUploadSize = 10 << 20

// Service определяет контракт сессии, используемой HTTP-обработчиками.
type Service interface {
	Menu(ctx context.Context, category string) ([]model.Dish, error)
	Promotions(ctx context.Context) ([]model.Promotion, error)
	CartView() service.CartView
	AddToCart(ctx context.Context, dish model.Dish) (service.CartView, error)
	RemoveFromCart(ctx context.Context, index int) (service.CartView, error)
	ClearCart(ctx context.Context) (service.CartView, error)
	ApplyPromo(ctx context.Context, code string) (service.PromoOutcome, error)
	Checkout(ctx context.Context, user model.User) (*checkout.Result, error)
	Delivery() service.Delivery
	SaveDelivery(ctx context.Context, upd service.DeliveryUpdate) (service.Delivery, error)
	Profile(ctx context.Context, user model.User) service.Profile
	UpdateOrderStatus(ctx context.Context, user model.User, orderID int64, status model.OrderStatus) ([]model.Order, error)
	IsAdmin(user model.User) bool
	AddDish(ctx context.Context, user model.User, f admin.DishForm) error
	DeleteDish(ctx context.Context, user model.User, dishID int64) error
	PromoCodes(ctx context.Context, user model.User) ([]model.PromoCode, error)
	CreatePromoCode(ctx context.Context, user model.User, f admin.PromoForm) error
	DeletePromoCode(ctx context.Context, user model.User, id int64) error
	AddAdmin(ctx context.Context, user model.User, username string) error
}

// Handler реализует HTTP-обработчики событий интерфейса.
type Handler struct {
	service  Service
	logger   *zap.Logger
	identity *middleware.Identity
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, identity *middleware.Identity) *Handler {
	return &Handler{
		service:  s,
		logger:   logger,
		identity: identity,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError переводит ошибку в HTTP-ответ. Ошибки удалённого API отдаются как 502
// с причиной, присланной сервером.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	var ve *validation.Error
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Error()})
	case errors.Is(err, checkout.ErrEmptyCart):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, orders.ErrNotAdmin):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case api.IsNetwork(err), api.IsServer(err), errors.Is(err, checkout.ErrNoPaymentURL):
		h.logger.Warn(op+" upstream error", zap.Error(err))
		msg := api.Reason(err)
		if msg == "" {
			msg = http.StatusText(http.StatusBadGateway)
		}
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: msg})
	default:
		h.logger.Error(op+" error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: http.StatusText(http.StatusInternalServerError)})
	}
}

func currentUser(r *http.Request) model.User {
	user, _ := middleware.GetUserFromContext(r.Context())
	return user
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// GetMenu возвращает блюда меню, при параметре category только этой категории.
func (h *Handler) GetMenu(w http.ResponseWriter, r *http.Request) {
	dishes, err := h.service.Menu(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.writeError(w, "get menu", err)
		return
	}
	writeJSON(w, http.StatusOK, dishes)
}

// GetPromotions возвращает рекламные акции.
func (h *Handler) GetPromotions(w http.ResponseWriter, r *http.Request) {
	promotions, err := h.service.Promotions(r.Context())
	if err != nil {
		h.writeError(w, "get promotions", err)
		return
	}
	writeJSON(w, http.StatusOK, promotions)
}

// GetCart возвращает состояние корзины.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.CartView())
}

// cartResponse отдаёт корзину после изменения. Ошибка сохранения не отменяет
// изменение в памяти, поэтому она только журналируется.
func (h *Handler) cartResponse(w http.ResponseWriter, op string, view service.CartView, err error) {
	if err != nil {
		var ve *validation.Error
		if errors.As(err, &ve) {
			h.writeError(w, op, err)
			return
		}
		h.logger.Error(op+": cart not persisted", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, view)
}

type addItemRequest struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// AddCartItem добавляет блюдо в корзину.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	view, err := h.service.AddToCart(r.Context(), model.Dish{ID: req.ID, Name: req.Name, Price: req.Price})
	h.cartResponse(w, "add cart item", view, err)
}

// RemoveCartItem удаляет позицию корзины по индексу целиком.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	view, err := h.service.RemoveFromCart(r.Context(), index)
	h.cartResponse(w, "remove cart item", view, err)
}

// ClearCart очищает корзину.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.ClearCart(r.Context())
	h.cartResponse(w, "clear cart", view, err)
}

type promoRequest struct {
	Code string `json:"code"`
}

// ApplyPromo проверяет промокод и применяет скидку.
func (h *Handler) ApplyPromo(w http.ResponseWriter, r *http.Request) {
	var req promoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	out, err := h.service.ApplyPromo(r.Context(), req.Code)
	if err != nil {
		h.writeError(w, "apply promo", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type checkoutResponse struct {
	OrderID    string          `json:"order_id"`
	PaymentURL string          `json:"payment_url"`
	Total      decimal.Decimal `json:"total"`
}

// Checkout оформляет заказ и возвращает ссылку на оплату.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Checkout(r.Context(), currentUser(r))
	if err != nil {
		h.writeError(w, "checkout", err)
		return
	}

	writeJSON(w, http.StatusOK, checkoutResponse{
		OrderID:    res.OrderID,
		PaymentURL: res.PaymentURL,
		Total:      res.Total,
	})
}

// GetDelivery возвращает настройки получения заказа.
func (h *Handler) GetDelivery(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Delivery())
}

// SaveDelivery сохраняет настройки получения заказа.
func (h *Handler) SaveDelivery(w http.ResponseWriter, r *http.Request) {
	var req service.DeliveryUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	d, err := h.service.SaveDelivery(r.Context(), req)
	if err != nil {
		h.writeError(w, "save delivery", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// GetProfile возвращает пользователя, его роль, заказы и признак администратора.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Profile(r.Context(), currentUser(r)))
}

type statusRequest struct {
	Status model.OrderStatus `json:"status"`
}

// UpdateOrderStatus меняет статус заказа и возвращает перечитанный список заказов.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	list, err := h.service.UpdateOrderStatus(r.Context(), currentUser(r), orderID, req.Status)
	if err != nil {
		h.writeError(w, "update order status", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// AddDish принимает multipart-форму нового блюда с необязательным изображением.
func (h *Handler) AddDish(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	form := admin.DishForm{
		Name:        r.FormValue("name"),
		Price:       r.FormValue("price"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
	}

	file, header, err := r.FormFile("image")
	switch {
	case err == nil:
		defer file.Close()
		form.ImageName = header.Filename
		form.Image = file
	case errors.Is(err, http.ErrMissingFile):
	default:
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.AddDish(r.Context(), currentUser(r), form); err != nil {
		h.writeError(w, "add dish", err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// DeleteDish удаляет блюдо.
func (h *Handler) DeleteDish(w http.ResponseWriter, r *http.Request) {
	dishID, ok := pathID(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteDish(r.Context(), currentUser(r), dishID); err != nil {
		h.writeError(w, "delete dish", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetPromoCodes возвращает промокоды.
func (h *Handler) GetPromoCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := h.service.PromoCodes(r.Context(), currentUser(r))
	if err != nil {
		h.writeError(w, "get promo codes", err)
		return
	}
	writeJSON(w, http.StatusOK, codes)
}

type createPromoRequest struct {
	Code      string          `json:"code"`
	Discount  json.RawMessage `json:"discount"`
	MaxUses   int             `json:"max_uses"`
	ExpiresAt string          `json:"expires_at"`
}

// CreatePromoCode создаёт промокод. Скидка принимается числом или строкой.
func (h *Handler) CreatePromoCode(w http.ResponseWriter, r *http.Request) {
	var req createPromoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	discount := string(req.Discount)
	if s, err := strconv.Unquote(discount); err == nil {
		discount = s
	}

	err := h.service.CreatePromoCode(r.Context(), currentUser(r), admin.PromoForm{
		Code:      req.Code,
		Discount:  discount,
		MaxUses:   req.MaxUses,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		h.writeError(w, "create promo code", err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

type deletePromoRequest struct {
	ID int64 `json:"id"`
}

// DeletePromoCode удаляет промокод.
func (h *Handler) DeletePromoCode(w http.ResponseWriter, r *http.Request) {
	var req deletePromoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID <= 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.DeletePromoCode(r.Context(), currentUser(r), req.ID); err != nil {
		h.writeError(w, "delete promo code", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addAdminRequest struct {
	Username string `json:"username"`
}

// AddAdmin назначает администратора по username.
func (h *Handler) AddAdmin(w http.ResponseWriter, r *http.Request) {
	var req addAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.AddAdmin(r.Context(), currentUser(r), req.Username); err != nil {
		h.writeError(w, "add admin", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
