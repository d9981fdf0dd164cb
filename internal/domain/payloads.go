package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Boundary parsing for external Shopify JSON. Each webhook or backfill
// record passes through exactly one of these parsers before it reaches
// a repository; business logic never touches raw maps.

// externalID accepts the two id shapes Shopify sends: a plain number
// (REST webhooks) or a global id string like gid://shopify/Order/5001
// (GraphQL webhooks and backfill).
type externalID int64

func (e *externalID) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*e = externalID(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("id is neither number nor string: %s", data)
	}
	n, err := parseExternalID(s)
	if err != nil {
		return err
	}
	*e = externalID(n)
	return nil
}

// ParseGID extracts the trailing numeric id from a gid://shopify global
// id, or parses a plain numeric string.
func ParseGID(s string) (int64, error) {
	return parseExternalID(s)
}

func parseExternalID(s string) (int64, error) {
	if idx := strings.LastIndex(s, "/"); idx >= 0 {
		s = s[idx+1:]
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed external id %q: %w", s, err)
	}
	return n, nil
}

// money is a decimal that also accepts JSON numbers, since seeded and
// legacy payloads carry totals both ways.
type money struct{ decimal.Decimal }

func (m *money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		m.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("malformed amount %q: %w", s, err)
	}
	m.Decimal = d
	return nil
}

// OrderPayload is the normalized order record fed to the order
// repository.
type OrderPayload struct {
	ShopifyOrderID    int64
	CustomerShopifyID *int64
	TotalPrice        decimal.Decimal
	Currency          string
	FinancialStatus   string
	CreatedAt         time.Time
}

// ParseOrderPayload validates and converts a raw order webhook body.
// current_total_price wins over total_price; currency falls back to
// presentment_currency, then USD.
func ParseOrderPayload(raw []byte) (*OrderPayload, error) {
	var body struct {
		ID                  *externalID `json:"id"`
		CreatedAt           *time.Time  `json:"created_at"`
		CurrentTotalPrice   *money      `json:"current_total_price"`
		TotalPrice          *money      `json:"total_price"`
		Currency            string      `json:"currency"`
		PresentmentCurrency string      `json:"presentment_currency"`
		FinancialStatus     string      `json:"financial_status"`
		Customer            *struct {
			ID externalID `json:"id"`
		} `json:"customer"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("parse order payload: %w", err)
	}
	if body.ID == nil {
		return nil, fmt.Errorf("order payload missing id")
	}

	p := &OrderPayload{
		ShopifyOrderID:  int64(*body.ID),
		TotalPrice:      decimal.Zero,
		Currency:        firstNonEmpty(body.Currency, body.PresentmentCurrency, "USD"),
		FinancialStatus: strings.ToLower(body.FinancialStatus),
		CreatedAt:       time.Now().UTC(),
	}
	if body.CurrentTotalPrice != nil {
		p.TotalPrice = body.CurrentTotalPrice.Decimal
	} else if body.TotalPrice != nil {
		p.TotalPrice = body.TotalPrice.Decimal
	}
	if body.CreatedAt != nil {
		p.CreatedAt = *body.CreatedAt
	}
	if body.Customer != nil {
		id := int64(body.Customer.ID)
		p.CustomerShopifyID = &id
	}
	return p, nil
}

// CustomerPayload is the normalized customer record.
type CustomerPayload struct {
	ShopifyCustomerID int64
	Email             *string
	FirstName         *string
	LastName          *string
	CreatedAt         *time.Time
}

// ParseCustomerPayload validates and converts a raw customer webhook
// body. Absent fields stay nil; the upsert stores them as null.
func ParseCustomerPayload(raw []byte) (*CustomerPayload, error) {
	var body struct {
		ID        *externalID `json:"id"`
		Email     *string     `json:"email"`
		FirstName *string     `json:"first_name"`
		LastName  *string     `json:"last_name"`
		CreatedAt *time.Time  `json:"created_at"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("parse customer payload: %w", err)
	}
	if body.ID == nil {
		return nil, fmt.Errorf("customer payload missing id")
	}
	return &CustomerPayload{
		ShopifyCustomerID: int64(*body.ID),
		Email:             body.Email,
		FirstName:         body.FirstName,
		LastName:          body.LastName,
		CreatedAt:         body.CreatedAt,
	}, nil
}

// ProductPayload is the normalized product record.
type ProductPayload struct {
	ShopifyProductID int64
	Title            string
	CreatedAt        *time.Time
}

// ParseProductPayload validates and converts a raw product webhook
// body. A missing title defaults to "Untitled".
func ParseProductPayload(raw []byte) (*ProductPayload, error) {
	var body struct {
		ID        *externalID `json:"id"`
		Title     string      `json:"title"`
		CreatedAt *time.Time  `json:"created_at"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("parse product payload: %w", err)
	}
	if body.ID == nil {
		return nil, fmt.Errorf("product payload missing id")
	}
	title := body.Title
	if title == "" {
		title = "Untitled"
	}
	return &ProductPayload{
		ShopifyProductID: int64(*body.ID),
		Title:            title,
		CreatedAt:        body.CreatedAt,
	}, nil
}

// CartPayload is the normalized cart record, keyed by the cart token.
type CartPayload struct {
	CartToken  string
	Currency   string
	TotalPrice decimal.Decimal
}

// ParseCartPayload validates and converts a raw cart webhook body.
func ParseCartPayload(raw []byte) (*CartPayload, error) {
	var body struct {
		Token              string `json:"token"`
		Currency           string `json:"currency"`
		ItemsSubtotalPrice *money `json:"items_subtotal_price"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("parse cart payload: %w", err)
	}
	if body.Token == "" {
		return nil, fmt.Errorf("cart payload missing token")
	}
	p := &CartPayload{
		CartToken:  body.Token,
		Currency:   firstNonEmpty(body.Currency, "USD"),
		TotalPrice: decimal.Zero,
	}
	if body.ItemsSubtotalPrice != nil {
		p.TotalPrice = body.ItemsSubtotalPrice.Decimal
	}
	return p, nil
}

// CheckoutPayload is the normalized checkout record.
type CheckoutPayload struct {
	ShopifyCheckoutID int64
	Currency          string
	TotalPrice        decimal.Decimal
	CompletedAt       *time.Time
}

// ParseCheckoutPayload validates and converts a raw checkout webhook
// body. total_price wins over total_price_set.shop_money.amount.
func ParseCheckoutPayload(raw []byte) (*CheckoutPayload, error) {
	var body struct {
		ID            *externalID `json:"id"`
		Currency      string      `json:"currency"`
		TotalPrice    *money      `json:"total_price"`
		TotalPriceSet *struct {
			ShopMoney struct {
				Amount money `json:"amount"`
			} `json:"shop_money"`
		} `json:"total_price_set"`
		CompletedAt *time.Time `json:"completed_at"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("parse checkout payload: %w", err)
	}
	if body.ID == nil {
		return nil, fmt.Errorf("checkout payload missing id")
	}
	p := &CheckoutPayload{
		ShopifyCheckoutID: int64(*body.ID),
		Currency:          firstNonEmpty(body.Currency, "USD"),
		TotalPrice:        decimal.Zero,
		CompletedAt:       body.CompletedAt,
	}
	if body.TotalPrice != nil {
		p.TotalPrice = body.TotalPrice.Decimal
	} else if body.TotalPriceSet != nil {
		p.TotalPrice = body.TotalPriceSet.ShopMoney.Amount.Decimal
	}
	return p, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
