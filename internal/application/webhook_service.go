package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"shopsight-backend/internal/domain"
	"shopsight-backend/internal/ports"
)

var (
	// ErrInvalidSignature rejects a delivery whose HMAC does not match.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrUnsupportedTopic rejects a topic no handler claims.
	ErrUnsupportedTopic = errors.New("unsupported webhook topic")
	// ErrMissingEventID rejects a delivery without an event id header;
	// without it there is nothing to dedup on.
	ErrMissingEventID = errors.New("missing webhook event id")
)

// SignatureVerifier checks a raw webhook body against its HMAC header.
type SignatureVerifier interface {
	Verify(payload []byte, signature string) error
}

// WebhookHandler processes deliveries for the topics it claims.
type WebhookHandler interface {
	CanHandle(topic string) bool
	Handle(ctx context.Context, delivery *domain.WebhookDelivery) error
}

// Publisher fans a processed delivery out to live subscribers.
type Publisher interface {
	Publish(delivery *domain.WebhookDelivery)
}

// ProcessResult reports what happened to one delivery.
type ProcessResult struct {
	TenantID  domain.TenantID
	EventID   string
	Duplicate bool
}

// WebhookService runs the ingestion pipeline: signature verification,
// tenant resolution, dedup, then dispatch to the topic handler. The
// dedup insert happens before the handler runs, so a redelivered event
// is skipped even when the first attempt's handler failed.
type WebhookService struct {
	verifier SignatureVerifier
	resolver *TenantResolver
	events   ports.EventLog
	handlers []WebhookHandler
	bus      Publisher
	logger   zerolog.Logger
}

func NewWebhookService(
	verifier SignatureVerifier,
	resolver *TenantResolver,
	events ports.EventLog,
	handlers []WebhookHandler,
	bus Publisher,
	logger zerolog.Logger,
) *WebhookService {
	return &WebhookService{
		verifier: verifier,
		resolver: resolver,
		events:   events,
		handlers: handlers,
		bus:      bus,
		logger:   logger,
	}
}

// Process verifies and applies one delivery. The signature is checked
// against the exact raw bytes before anything else touches them; a
// delivery with no event id is rejected outright since it cannot be
// deduplicated.
func (s *WebhookService) Process(ctx context.Context, topic, shop, eventID, signature string, payload []byte) (*ProcessResult, error) {
	if eventID == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingEventID, topic)
	}
	if err := s.verifier.Verify(payload, signature); err != nil {
		s.logger.Warn().
			Str("topic", topic).
			Str("shop", shop).
			Msg("Webhook signature rejected")
		return nil, fmt.Errorf("%w: %s", ErrInvalidSignature, topic)
	}

	handler := s.handlerFor(topic)
	if handler == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedTopic, topic)
	}

	tenantID, err := s.resolver.Resolve(ctx, shop)
	if err != nil {
		return nil, err
	}

	inserted, err := s.events.Record(ctx, tenantID, eventID, topic)
	if err != nil {
		return nil, fmt.Errorf("record event %s: %w", eventID, err)
	}
	result := &ProcessResult{TenantID: tenantID, EventID: eventID}
	if !inserted {
		s.logger.Info().
			Str("topic", topic).
			Str("shop", shop).
			Str("eventId", eventID).
			Msg("Duplicate webhook skipped")
		result.Duplicate = true
		return result, nil
	}

	delivery := &domain.WebhookDelivery{
		Topic:    topic,
		Shop:     shop,
		TenantID: tenantID,
		EventID:  eventID,
		Payload:  payload,
	}

	ctx = domain.WithTenantID(domain.WithShopDomain(ctx, shop), tenantID)
	if err := handler.Handle(ctx, delivery); err != nil {
		s.logger.Error().
			Err(err).
			Str("topic", topic).
			Str("shop", shop).
			Str("eventId", eventID).
			Msg("Webhook handler failed")
		return nil, err
	}

	if s.bus != nil {
		s.bus.Publish(delivery)
	}

	s.logger.Info().
		Str("topic", topic).
		Str("shop", shop).
		Str("eventId", eventID).
		Str("tenantId", tenantID.Hex()).
		Msg("Webhook processed")
	return result, nil
}

// Supports reports whether any registered handler claims the topic.
func (s *WebhookService) Supports(topic string) bool {
	return s.handlerFor(topic) != nil
}

func (s *WebhookService) handlerFor(topic string) WebhookHandler {
	for _, h := range s.handlers {
		if h.CanHandle(topic) {
			return h
		}
	}
	return nil
}
