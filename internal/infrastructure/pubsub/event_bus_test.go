package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopsight-backend/internal/domain"
)

func testDelivery(topic, shop string) *domain.WebhookDelivery {
	return &domain.WebhookDelivery{
		Topic:    topic,
		Shop:     shop,
		TenantID: domain.TenantIDFromShopDomain(shop),
		EventID:  "evt-1",
		Payload:  []byte(`{}`),
	}
}

func TestPublishReachesSubscriber(t *testing.T) {
	bus := NewEventBus(zerolog.Nop())
	sub := bus.Subscribe(context.Background(), nil)
	defer bus.Unsubscribe(sub.ID)

	bus.Publish(testDelivery("orders/create", "acme.myshopify.com"))

	select {
	case got := <-sub.Events:
		assert.Equal(t, "orders/create", got.Topic)
	case <-time.After(time.Second):
		t.Fatal("delivery not received")
	}
}

func TestTopicFilter(t *testing.T) {
	bus := NewEventBus(zerolog.Nop())
	sub := bus.Subscribe(context.Background(), &Filter{Topics: []string{"orders/create"}})
	defer bus.Unsubscribe(sub.ID)

	bus.Publish(testDelivery("products/create", "acme.myshopify.com"))
	bus.Publish(testDelivery("orders/create", "acme.myshopify.com"))

	got := <-sub.Events
	assert.Equal(t, "orders/create", got.Topic)
	assert.Empty(t, sub.Events)
}

func TestTenantFilter(t *testing.T) {
	bus := NewEventBus(zerolog.Nop())
	sub := bus.Subscribe(context.Background(), &Filter{
		TenantID: domain.TenantIDFromShopDomain("acme.myshopify.com"),
	})
	defer bus.Unsubscribe(sub.ID)

	bus.Publish(testDelivery("orders/create", "globex.myshopify.com"))
	bus.Publish(testDelivery("orders/create", "acme.myshopify.com"))

	got := <-sub.Events
	assert.Equal(t, "acme.myshopify.com", got.Shop)
	assert.Empty(t, sub.Events)
}

func TestUnsubscribeOnContextCancel(t *testing.T) {
	bus := NewEventBus(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	sub := bus.Subscribe(ctx, nil)

	cancel()
	require.Eventually(t, func() bool {
		stats := bus.Stats()
		return stats["active_subscriptions"] == 0
	}, time.Second, 10*time.Millisecond)

	// Publishing after removal must not panic or block.
	bus.Publish(testDelivery("orders/create", "acme.myshopify.com"))
	_ = sub
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	bus := NewEventBus(zerolog.Nop())
	sub := bus.Subscribe(context.Background(), nil)
	defer bus.Unsubscribe(sub.ID)

	// The subscriber never drains; the bus must stay non-blocking.
	for i := 0; i < 100; i++ {
		bus.Publish(testDelivery("orders/create", "acme.myshopify.com"))
	}
	assert.Equal(t, cap(sub.Events), len(sub.Events))
}
