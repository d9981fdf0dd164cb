package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	shopifyinfra "shopsight-backend/internal/infrastructure/shopify"
)

// seed-demo posts a batch of signed demo webhooks at a running API
// instance, exercising the same ingestion path real deliveries take.
func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("No .env file found, reading environment directly")
	}

	var (
		target = flag.String("target", envOr("APP_URL", "http://localhost:8080"), "base URL of the running API")
		shop   = flag.String("shop", "demo-store.myshopify.com", "shop domain to seed under")
		orders = flag.Int("orders", 25, "number of demo orders")
		carts  = flag.Int("carts", 15, "number of demo carts")
	)
	flag.Parse()

	secret := os.Getenv("SHOPIFY_API_SECRET")
	if secret == "" {
		logger.Fatal().Msg("SHOPIFY_API_SECRET is required to sign demo webhooks")
	}

	seeder := &seeder{
		target:   *target,
		shop:     *shop,
		verifier: shopifyinfra.NewWebhookVerifier(secret),
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
	}

	sent := 0
	for i := 0; i < 5; i++ {
		sent += seeder.post("products/create", map[string]interface{}{
			"id":         9000 + i,
			"title":      fmt.Sprintf("Demo Product %d", i+1),
			"created_at": time.Now().UTC().Add(-time.Duration(rand.Intn(14*24)) * time.Hour).Format(time.RFC3339),
		})
	}
	for i := 0; i < 10; i++ {
		sent += seeder.post("customers/create", map[string]interface{}{
			"id":         7000 + i,
			"email":      fmt.Sprintf("demo%d@example.com", i+1),
			"first_name": "Demo",
			"last_name":  fmt.Sprintf("Customer %d", i+1),
		})
	}
	for i := 0; i < *orders; i++ {
		status := "pending"
		if rand.Intn(2) == 0 {
			status = "paid"
		}
		sent += seeder.post("orders/create", map[string]interface{}{
			"id":               5000 + i,
			"total_price":      fmt.Sprintf("%d.%02d", 20+rand.Intn(200), rand.Intn(100)),
			"currency":         "USD",
			"financial_status": status,
			"created_at":       time.Now().UTC().Add(-time.Duration(rand.Intn(7*24)) * time.Hour).Format(time.RFC3339),
			"customer":         map[string]interface{}{"id": 7000 + rand.Intn(10)},
		})
	}
	for i := 0; i < *carts; i++ {
		token := uuid.NewString()
		sent += seeder.post("carts/create", map[string]interface{}{
			"token":                token,
			"currency":             "USD",
			"items_subtotal_price": fmt.Sprintf("%d.00", 10+rand.Intn(90)),
		})
		// Roughly a third of the carts get a follow-up touch, which is
		// what the completion rate measures.
		if rand.Intn(3) == 0 {
			sent += seeder.post("carts/update", map[string]interface{}{
				"token":                token,
				"currency":             "USD",
				"items_subtotal_price": fmt.Sprintf("%d.00", 10+rand.Intn(90)),
			})
		}
	}

	logger.Info().Int("sent", sent).Str("shop", *shop).Msg("Demo seed finished")
}

type seeder struct {
	target   string
	shop     string
	verifier *shopifyinfra.WebhookVerifier
	client   *http.Client
	logger   zerolog.Logger
}

// post signs and delivers one webhook; returns 1 on success so callers
// can tally.
func (s *seeder) post(topic string, payload map[string]interface{}) int {
	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error().Err(err).Str("topic", topic).Msg("Marshal failed")
		return 0
	}

	req, err := http.NewRequest(http.MethodPost, s.target+"/api/webhooks/"+topic, bytes.NewReader(body))
	if err != nil {
		s.logger.Error().Err(err).Str("topic", topic).Msg("Request build failed")
		return 0
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Shop-Domain", s.shop)
	req.Header.Set("X-Shopify-Topic", topic)
	req.Header.Set("X-Shopify-Webhook-Id", uuid.NewString())
	req.Header.Set("X-Shopify-Hmac-Sha256", s.verifier.Sign(body))

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error().Err(err).Str("topic", topic).Msg("Delivery failed")
		return 0
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn().Int("status", resp.StatusCode).Str("topic", topic).Msg("Delivery rejected")
		return 0
	}
	return 1
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
