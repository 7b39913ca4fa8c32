package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/tavola-miniapp/internal/api"
	"github.com/mmeshcher/tavola-miniapp/internal/cart"
	"github.com/mmeshcher/tavola-miniapp/internal/model"
	"github.com/mmeshcher/tavola-miniapp/internal/storage"
)

const restaurantAddress = "Sovetskaya st. 1, Gomel"

type stubAPI struct {
	resp  *api.CreatePaymentResponse
	err   error
	calls int
	last  api.CreatePaymentRequest
}

func (s *stubAPI) CreatePayment(ctx context.Context, p api.CreatePaymentRequest) (*api.CreatePaymentResponse, error) {
	s.calls++
	s.last = p
	return s.resp, s.err
}

type recordingHost struct {
	events   []string
	sent     []byte
	link     string
	sendErr  error
	cartSeen int
	store    *cart.Store
}

func (h *recordingHost) SendData(ctx context.Context, data []byte) error {
	h.events = append(h.events, "send")
	h.sent = data
	if h.store != nil {
		h.cartSeen = h.store.Len()
	}
	return h.sendErr
}

func (h *recordingHost) OpenLink(ctx context.Context, url string) error {
	h.events = append(h.events, "open")
	h.link = url
	return nil
}

func newCart(t *testing.T) *cart.Store {
	t.Helper()

	kv, err := storage.NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)

	s, err := cart.Load(context.Background(), kv, nil)
	require.NoError(t, err)
	return s
}

func fillCart(t *testing.T, s *cart.Store) {
	t.Helper()

	ctx := context.Background()
	pizza := model.Dish{ID: 1, Name: "Pizza", Price: decimal.NewFromInt(10)}
	cola := model.Dish{ID: 2, Name: "Cola", Price: decimal.NewFromInt(2)}

	require.NoError(t, s.Add(ctx, pizza))
	require.NoError(t, s.Add(ctx, pizza))
	require.NoError(t, s.Add(ctx, cola))
	require.True(t, s.SetDiscount(s.Generation(), decimal.NewFromInt(10)))
}

func newInitiator(a API, host Host) *Initiator {
	ids := NewOrderIDGenerator(func() time.Time { return time.UnixMilli(1700000000000) })
	return NewInitiator(a, host, ids, Options{
		RestaurantAddress:  restaurantAddress,
		PaymentDescription: "La Tavola order",
	}, nil)
}

func TestCreatePayment_EmptyCart(t *testing.T) {
	stub := &stubAPI{}
	s := newCart(t)

	_, err := newInitiator(stub, nil).CreatePayment(context.Background(), Request{
		Cart:      s,
		OrderType: model.OrderTypeDelivery,
	})

	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Zero(t, stub.calls)
}

func TestCreatePayment_FullDiscountIsEmpty(t *testing.T) {
	stub := &stubAPI{}
	s := newCart(t)
	fillCart(t, s)

	_, err := newInitiator(stub, nil).CreatePayment(context.Background(), Request{
		Cart:            s,
		DiscountPercent: decimal.NewFromInt(100),
	})

	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Zero(t, stub.calls)
}

func TestCreatePayment_Success(t *testing.T) {
	stub := &stubAPI{resp: &api.CreatePaymentResponse{Status: "success", PaymentURL: "https://pay.example/x"}}
	s := newCart(t)
	fillCart(t, s)
	host := &recordingHost{store: s}

	res, err := newInitiator(stub, host).CreatePayment(context.Background(), Request{
		Cart:            s,
		DiscountPercent: s.Discount(),
		OrderType:       model.OrderTypeDelivery,
		DeliveryAddress: "Lenina 5",
		User:            model.User{ID: "42", FirstName: "Ann"},
	})
	require.NoError(t, err)

	assert.Equal(t, "https://pay.example/x", res.PaymentURL)
	assert.Equal(t, "https://pay.example/x", host.link)
	assert.Equal(t, "1700000000000", res.OrderID)
	assert.Equal(t, []string{"send", "open"}, host.events)
	assert.Equal(t, 2, host.cartSeen, "host must be notified before the cart is cleared")

	assert.Equal(t, 0, s.Len())
	assert.True(t, s.Discount().IsZero())

	assert.Equal(t, 1, stub.calls)
	assert.Equal(t, "19.80", stub.last.Payment.Amount)
	assert.Equal(t, "19.80", stub.last.OrderData.Total)
	assert.Equal(t, "La Tavola order", stub.last.Payment.Description)
	assert.Equal(t, "Lenina 5", stub.last.OrderData.Address)
	assert.Equal(t, res.OrderID, stub.last.OrderData.OrderID)
	require.Len(t, stub.last.OrderData.Dishes, 2)
	assert.Equal(t, 2, stub.last.OrderData.Dishes[0].Qty)

	var sent api.OrderDetails
	require.NoError(t, json.Unmarshal(host.sent, &sent))
	assert.Equal(t, res.OrderID, sent.OrderID)
}

func TestCreatePayment_RestaurantUsesFixedAddress(t *testing.T) {
	stub := &stubAPI{resp: &api.CreatePaymentResponse{Status: "success", PaymentURL: "https://pay.example/y"}}
	s := newCart(t)
	fillCart(t, s)

	_, err := newInitiator(stub, nil).CreatePayment(context.Background(), Request{
		Cart:            s,
		OrderType:       model.OrderTypeRestaurant,
		DeliveryAddress: "Lenina 5",
	})
	require.NoError(t, err)
	assert.Equal(t, restaurantAddress, stub.last.OrderData.Address)
	assert.Equal(t, "22.00", stub.last.Payment.Amount)
}

func TestCreatePayment_DeliveryWithoutAddressFallsBack(t *testing.T) {
	stub := &stubAPI{resp: &api.CreatePaymentResponse{Status: "success", PaymentURL: "https://pay.example/z"}}
	s := newCart(t)
	fillCart(t, s)

	_, err := newInitiator(stub, nil).CreatePayment(context.Background(), Request{
		Cart:      s,
		OrderType: model.OrderTypeDelivery,
	})
	require.NoError(t, err)
	assert.Equal(t, restaurantAddress, stub.last.OrderData.Address)
}

func TestCreatePayment_HostFailureDoesNotBlock(t *testing.T) {
	stub := &stubAPI{resp: &api.CreatePaymentResponse{Status: "success", PaymentURL: "https://pay.example/x"}}
	s := newCart(t)
	fillCart(t, s)
	host := &recordingHost{sendErr: errors.New("not inside chat")}

	res, err := newInitiator(stub, host).CreatePayment(context.Background(), Request{Cart: s})
	require.NoError(t, err)

	assert.Equal(t, "https://pay.example/x", res.PaymentURL)
	assert.Equal(t, "https://pay.example/x", host.link)
	assert.Equal(t, 0, s.Len())
}

func TestCreatePayment_FailureLeavesCartUntouched(t *testing.T) {
	tests := []struct {
		name string
		stub *stubAPI
		want error
	}{
		{
			name: "network error",
			stub: &stubAPI{err: &api.NetworkError{Op: "create payment", Err: errors.New("connection refused")}},
		},
		{
			name: "server error",
			stub: &stubAPI{err: &api.ServerError{Op: "create payment", StatusCode: 500}},
		},
		{
			name: "missing url",
			stub: &stubAPI{resp: &api.CreatePaymentResponse{Status: "success"}},
			want: ErrNoPaymentURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newCart(t)
			fillCart(t, s)
			host := &recordingHost{}

			_, err := newInitiator(tt.stub, host).CreatePayment(context.Background(), Request{
				Cart:            s,
				DiscountPercent: s.Discount(),
			})
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}

			assert.Equal(t, 2, s.Len())
			assert.True(t, decimal.NewFromInt(10).Equal(s.Discount()))
			assert.Empty(t, host.events, "no redirect on failure")
		})
	}
}

func TestCreatePayment_RetryGetsNewOrderID(t *testing.T) {
	stub := &stubAPI{err: &api.NetworkError{Op: "create payment", Err: errors.New("timeout")}}
	s := newCart(t)
	fillCart(t, s)
	i := newInitiator(stub, nil)

	_, _ = i.CreatePayment(context.Background(), Request{Cart: s})
	first := stub.last.Payment.OrderID
	_, _ = i.CreatePayment(context.Background(), Request{Cart: s})
	second := stub.last.Payment.OrderID

	assert.NotEqual(t, first, second)
	assert.Equal(t, 2, stub.calls)
}

func TestOrderIDGenerator_Monotonic(t *testing.T) {
	frozen := time.UnixMilli(1000)
	g := NewOrderIDGenerator(func() time.Time { return frozen })

	assert.Equal(t, "1000", g.Next())
	assert.Equal(t, "1001", g.Next())
	assert.Equal(t, "1002", g.Next())

	frozen = time.UnixMilli(5000)
	assert.Equal(t, "5000", g.Next())

	frozen = time.UnixMilli(10)
	assert.Equal(t, "5001", g.Next(), "clock going backwards must not break ordering")
}
