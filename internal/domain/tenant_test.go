package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTenantIDFromShopDomainDeterministic(t *testing.T) {
	a := TenantIDFromShopDomain("acme.myshopify.com")
	b := TenantIDFromShopDomain("acme.myshopify.com")
	other := TenantIDFromShopDomain("globex.myshopify.com")

	assert.Len(t, []byte(a), 16)
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(other))
}

func TestParseTenantIDRoundTrip(t *testing.T) {
	id := TenantIDFromShopDomain("acme.myshopify.com")

	parsed, err := ParseTenantID(id.Hex())
	require.NoError(t, err)
	assert.True(t, id.Equal(parsed))
}

func TestParseTenantIDRejectsBadInput(t *testing.T) {
	_, err := ParseTenantID("not-hex")
	assert.Error(t, err)

	_, err = ParseTenantID("abcd")
	assert.Error(t, err)
}

func TestOrderStatusFromFinancial(t *testing.T) {
	assert.Equal(t, OrderStatusFulfilled, OrderStatusFromFinancial("paid"))
	assert.Equal(t, OrderStatusPending, OrderStatusFromFinancial("pending"))
	assert.Equal(t, OrderStatusPending, OrderStatusFromFinancial("refunded"))
	assert.Equal(t, OrderStatusPending, OrderStatusFromFinancial(""))
}

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus("fulfilled")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusFulfilled, status)

	_, err = ParseOrderStatus("shipped")
	assert.Error(t, err)
}
