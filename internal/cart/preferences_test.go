package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/tavola-miniapp/internal/model"
	"github.com/mmeshcher/tavola-miniapp/internal/validation"
)

func TestPreferences_Defaults(t *testing.T) {
	p, err := LoadPreferences(context.Background(), newMemKV())
	require.NoError(t, err)

	assert.Equal(t, model.OrderTypeDelivery, p.OrderType())
	assert.Empty(t, p.Address())
	assert.Nil(t, p.Geo())
}

func TestPreferences_RoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()

	p, err := LoadPreferences(ctx, kv)
	require.NoError(t, err)

	require.NoError(t, p.SetOrderType(ctx, model.OrderTypeRestaurant))
	require.NoError(t, p.SetAddress(ctx, "  Main st. 1  "))
	require.NoError(t, p.SetGeo(ctx, model.GeoPoint{Lat: 52.4414, Lng: 30.9829}))

	reloaded, err := LoadPreferences(ctx, kv)
	require.NoError(t, err)

	assert.Equal(t, model.OrderTypeRestaurant, reloaded.OrderType())
	assert.Equal(t, "Main st. 1", reloaded.Address())
	require.NotNil(t, reloaded.Geo())
	assert.Equal(t, 52.4414, reloaded.Geo().Lat)
}

func TestPreferences_Validation(t *testing.T) {
	ctx := context.Background()
	p, err := LoadPreferences(ctx, newMemKV())
	require.NoError(t, err)

	var verr *validation.Error

	err = p.SetOrderType(ctx, "teleport")
	assert.True(t, errors.As(err, &verr))

	err = p.SetAddress(ctx, "   ")
	assert.True(t, errors.As(err, &verr))

	err = p.SetGeo(ctx, model.GeoPoint{Lat: 91})
	assert.True(t, errors.As(err, &verr))
}

func TestPreferences_UnknownStoredOrderType(t *testing.T) {
	kv := newMemKV()
	kv.data[KeyOrderType] = "pickup"
	kv.data[KeyDeliveryGeo] = "not json"

	p, err := LoadPreferences(context.Background(), kv)
	require.NoError(t, err)
	assert.Equal(t, model.OrderTypeDelivery, p.OrderType())
	assert.Nil(t, p.Geo())
}

func TestPreferences_ClearGeo(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()

	p, err := LoadPreferences(ctx, kv)
	require.NoError(t, err)
	require.NoError(t, p.SetGeo(ctx, model.GeoPoint{Lat: 52.4414, Lng: 30.9829}))

	require.NoError(t, p.ClearGeo(ctx))
	assert.Nil(t, p.Geo())
	_, stored := kv.data[KeyDeliveryGeo]
	assert.False(t, stored)

	reloaded, err := LoadPreferences(ctx, kv)
	require.NoError(t, err)
	assert.Nil(t, reloaded.Geo())
}
