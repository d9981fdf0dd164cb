package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderPayloadNumericID(t *testing.T) {
	raw := []byte(`{
		"id": 5001,
		"total_price": "42.50",
		"currency": "EUR",
		"financial_status": "PAID",
		"created_at": "2025-03-01T10:00:00Z",
		"customer": {"id": 7001}
	}`)

	p, err := ParseOrderPayload(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(5001), p.ShopifyOrderID)
	assert.Equal(t, "42.5", p.TotalPrice.String())
	assert.Equal(t, "EUR", p.Currency)
	assert.Equal(t, "paid", p.FinancialStatus)
	require.NotNil(t, p.CustomerShopifyID)
	assert.Equal(t, int64(7001), *p.CustomerShopifyID)
}

func TestParseOrderPayloadGlobalID(t *testing.T) {
	raw := []byte(`{"id": "gid://shopify/Order/5001", "total_price": "10.00"}`)

	p, err := ParseOrderPayload(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(5001), p.ShopifyOrderID)
}

func TestParseOrderPayloadCurrentTotalWins(t *testing.T) {
	raw := []byte(`{"id": 1, "current_total_price": "35.00", "total_price": "40.00"}`)

	p, err := ParseOrderPayload(raw)
	require.NoError(t, err)
	assert.Equal(t, "35", p.TotalPrice.String())
}

func TestParseOrderPayloadDefaults(t *testing.T) {
	p, err := ParseOrderPayload([]byte(`{"id": 1}`))
	require.NoError(t, err)
	assert.True(t, p.TotalPrice.IsZero())
	assert.Equal(t, "USD", p.Currency)
	assert.Nil(t, p.CustomerShopifyID)
	assert.False(t, p.CreatedAt.IsZero())
}

func TestParseOrderPayloadCurrencyFallback(t *testing.T) {
	p, err := ParseOrderPayload([]byte(`{"id": 1, "presentment_currency": "GBP"}`))
	require.NoError(t, err)
	assert.Equal(t, "GBP", p.Currency)
}

func TestParseOrderPayloadMissingID(t *testing.T) {
	_, err := ParseOrderPayload([]byte(`{"total_price": "10.00"}`))
	assert.Error(t, err)
}

func TestParseOrderPayloadNumericMoney(t *testing.T) {
	p, err := ParseOrderPayload([]byte(`{"id": 1, "total_price": 19.99}`))
	require.NoError(t, err)
	assert.Equal(t, "19.99", p.TotalPrice.String())
}

func TestParseCustomerPayloadSparse(t *testing.T) {
	p, err := ParseCustomerPayload([]byte(`{"id": 7001}`))
	require.NoError(t, err)
	assert.Equal(t, int64(7001), p.ShopifyCustomerID)
	assert.Nil(t, p.Email)
	assert.Nil(t, p.FirstName)
	assert.Nil(t, p.LastName)
}

func TestParseCustomerPayloadFull(t *testing.T) {
	raw := []byte(`{"id": "gid://shopify/Customer/7002", "email": "a@b.c", "first_name": "Ada", "last_name": "Lovelace"}`)

	p, err := ParseCustomerPayload(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(7002), p.ShopifyCustomerID)
	require.NotNil(t, p.Email)
	assert.Equal(t, "a@b.c", *p.Email)
}

func TestParseProductPayloadDefaultTitle(t *testing.T) {
	p, err := ParseProductPayload([]byte(`{"id": 9001}`))
	require.NoError(t, err)
	assert.Equal(t, "Untitled", p.Title)
}

func TestParseCartPayloadRequiresToken(t *testing.T) {
	_, err := ParseCartPayload([]byte(`{"currency": "USD"}`))
	assert.Error(t, err)
}

func TestParseCartPayload(t *testing.T) {
	p, err := ParseCartPayload([]byte(`{"token": "abc", "currency": "EUR", "items_subtotal_price": "12.34"}`))
	require.NoError(t, err)
	assert.Equal(t, "abc", p.CartToken)
	assert.Equal(t, "EUR", p.Currency)
	assert.Equal(t, "12.34", p.TotalPrice.String())
}

func TestParseCheckoutPayloadPriceSetFallback(t *testing.T) {
	raw := []byte(`{
		"id": 3001,
		"total_price_set": {"shop_money": {"amount": "55.00"}},
		"completed_at": "2025-03-01T10:00:00Z"
	}`)

	p, err := ParseCheckoutPayload(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(3001), p.ShopifyCheckoutID)
	assert.Equal(t, "55", p.TotalPrice.String())
	assert.NotNil(t, p.CompletedAt)
}

func TestParseCheckoutPayloadTopLevelWins(t *testing.T) {
	raw := []byte(`{"id": 1, "total_price": "20.00", "total_price_set": {"shop_money": {"amount": "99.00"}}}`)

	p, err := ParseCheckoutPayload(raw)
	require.NoError(t, err)
	assert.Equal(t, "20", p.TotalPrice.String())
	assert.Nil(t, p.CompletedAt)
}

func TestParseGID(t *testing.T) {
	id, err := ParseGID("gid://shopify/Product/9001")
	require.NoError(t, err)
	assert.Equal(t, int64(9001), id)

	id, err = ParseGID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = ParseGID("gid://shopify/Product/not-a-number")
	assert.Error(t, err)
}
