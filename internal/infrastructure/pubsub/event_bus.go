package pubsub

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"shopsight-backend/internal/domain"
)

// Subscription is one live delivery stream. Events stops when the
// subscriber's context ends or the bus is unsubscribed.
type Subscription struct {
	ID     string
	Filter *Filter
	Events chan *domain.WebhookDelivery
	ctx    context.Context
	cancel context.CancelFunc
}

// Filter narrows a subscription to specific topics and/or one tenant.
type Filter struct {
	Topics   []string
	TenantID domain.TenantID
}

// EventBus fans processed webhook deliveries out to in-process
// subscribers (the realtime SSE stream). Delivery is best effort: a
// subscriber with a full buffer misses the event rather than blocking
// the webhook pipeline.
type EventBus struct {
	mu     sync.RWMutex
	subs   map[string]*Subscription
	logger zerolog.Logger
}

func NewEventBus(logger zerolog.Logger) *EventBus {
	return &EventBus{
		subs:   make(map[string]*Subscription),
		logger: logger,
	}
}

// Subscribe registers a new subscriber. The subscription is removed
// automatically when ctx is cancelled.
func (b *EventBus) Subscribe(ctx context.Context, filter *Filter) *Subscription {
	subCtx, cancel := context.WithCancel(ctx)

	sub := &Subscription{
		ID:     uuid.NewString(),
		Filter: filter,
		Events: make(chan *domain.WebhookDelivery, 16),
		ctx:    subCtx,
		cancel: cancel,
	}

	b.mu.Lock()
	b.subs[sub.ID] = sub
	b.mu.Unlock()

	b.logger.Debug().
		Str("subscriptionId", sub.ID).
		Msg("Event bus subscription created")

	go func() {
		<-subCtx.Done()
		b.Unsubscribe(sub.ID)
	}()

	return sub
}

// Unsubscribe removes a subscription and closes its event channel.
func (b *EventBus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subs[id]
	if !ok {
		return
	}

	sub.cancel()
	close(sub.Events)
	delete(b.subs, id)

	b.logger.Debug().
		Str("subscriptionId", id).
		Msg("Event bus subscription removed")
}

// Publish broadcasts a delivery to every matching subscriber.
func (b *EventBus) Publish(delivery *domain.WebhookDelivery) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for _, sub := range b.subs {
		if !matches(delivery, sub.Filter) {
			continue
		}
		select {
		case sub.Events <- delivery:
			delivered++
		case <-sub.ctx.Done():
		default:
			b.logger.Warn().
				Str("subscriptionId", sub.ID).
				Str("topic", delivery.Topic).
				Msg("Subscriber buffer full, dropping event")
		}
	}

	if delivered > 0 {
		b.logger.Debug().
			Str("topic", delivery.Topic).
			Str("shop", delivery.Shop).
			Int("subscribers", delivered).
			Msg("Published delivery to subscribers")
	}
}

// Stats reports the number of active subscriptions.
func (b *EventBus) Stats() map[string]interface{} {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return map[string]interface{}{
		"active_subscriptions": len(b.subs),
	}
}

func matches(delivery *domain.WebhookDelivery, filter *Filter) bool {
	if filter == nil {
		return true
	}

	if len(filter.Topics) > 0 {
		found := false
		for _, topic := range filter.Topics {
			if delivery.Topic == topic {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(filter.TenantID) > 0 && !filter.TenantID.Equal(delivery.TenantID) {
		return false
	}

	return true
}
