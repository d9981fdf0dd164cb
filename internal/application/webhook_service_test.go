package application

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWebhookFixture(verifierFails bool) (*WebhookService, *fakeHandler, *fakeEventLog, *fakeBus) {
	handler := newFakeHandler("orders/create", "orders/updated")
	events := newFakeEventLog()
	bus := &fakeBus{}
	resolver := NewTenantResolver(newFakeStoreRepo(), newFakeTenantRepo(), zerolog.Nop())
	service := NewWebhookService(
		&fakeVerifier{fail: verifierFails},
		resolver,
		events,
		[]WebhookHandler{handler},
		bus,
		zerolog.Nop(),
	)
	return service, handler, events, bus
}

func TestProcessHappyPath(t *testing.T) {
	service, handler, _, bus := newWebhookFixture(false)

	result, err := service.Process(context.Background(), "orders/create", "acme.myshopify.com", "evt-1", "sig", []byte(`{"id":1}`))
	require.NoError(t, err)
	assert.False(t, result.Duplicate)
	assert.Equal(t, "evt-1", result.EventID)
	assert.NotEmpty(t, result.TenantID)

	require.Len(t, handler.handled, 1)
	assert.Equal(t, "orders/create", handler.handled[0].Topic)
	assert.Equal(t, []byte(`{"id":1}`), handler.handled[0].Payload)
	require.Len(t, bus.published, 1)
}

func TestProcessInvalidSignatureHasNoSideEffects(t *testing.T) {
	service, handler, events, bus := newWebhookFixture(true)

	_, err := service.Process(context.Background(), "orders/create", "acme.myshopify.com", "evt-1", "bad", []byte(`{"id":1}`))
	require.ErrorIs(t, err, ErrInvalidSignature)

	assert.Empty(t, handler.handled)
	assert.Zero(t, events.records)
	assert.Empty(t, bus.published)
}

func TestProcessDuplicateSkipsHandler(t *testing.T) {
	service, handler, _, bus := newWebhookFixture(false)
	ctx := context.Background()

	first, err := service.Process(ctx, "orders/create", "acme.myshopify.com", "evt-1", "sig", []byte(`{"id":1}`))
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	second, err := service.Process(ctx, "orders/create", "acme.myshopify.com", "evt-1", "sig", []byte(`{"id":1}`))
	require.NoError(t, err)
	assert.True(t, second.Duplicate)

	assert.Len(t, handler.handled, 1)
	assert.Len(t, bus.published, 1)
}

func TestProcessSameEventIDDifferentTenants(t *testing.T) {
	service, handler, _, _ := newWebhookFixture(false)
	ctx := context.Background()

	_, err := service.Process(ctx, "orders/create", "acme.myshopify.com", "evt-1", "sig", []byte(`{"id":1}`))
	require.NoError(t, err)
	result, err := service.Process(ctx, "orders/create", "globex.myshopify.com", "evt-1", "sig", []byte(`{"id":1}`))
	require.NoError(t, err)

	assert.False(t, result.Duplicate)
	assert.Len(t, handler.handled, 2)
}

func TestProcessUnsupportedTopic(t *testing.T) {
	service, _, events, _ := newWebhookFixture(false)

	_, err := service.Process(context.Background(), "refunds/create", "acme.myshopify.com", "evt-1", "sig", []byte(`{}`))
	require.ErrorIs(t, err, ErrUnsupportedTopic)
	assert.Zero(t, events.records)
}

func TestProcessMissingEventIDRejected(t *testing.T) {
	service, handler, events, bus := newWebhookFixture(false)

	_, err := service.Process(context.Background(), "orders/create", "acme.myshopify.com", "", "sig", []byte(`{"id":1}`))
	require.ErrorIs(t, err, ErrMissingEventID)

	assert.Empty(t, handler.handled)
	assert.Zero(t, events.records)
	assert.Empty(t, bus.published)
}

func TestProcessHandlerFailurePropagates(t *testing.T) {
	service, handler, _, bus := newWebhookFixture(false)
	handler.err = errors.New("parse failed")

	_, err := service.Process(context.Background(), "orders/create", "acme.myshopify.com", "evt-1", "sig", []byte(`bad`))
	require.Error(t, err)
	assert.Empty(t, bus.published)
}

func TestSupports(t *testing.T) {
	service, _, _, _ := newWebhookFixture(false)
	assert.True(t, service.Supports("orders/create"))
	assert.False(t, service.Supports("themes/publish"))
}
