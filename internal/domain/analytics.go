package domain

import "github.com/shopspring/decimal"

// FunnelSource names which table a funnel metric was computed from.
type FunnelSource string

const (
	FunnelSourceCart     FunnelSource = "cart"
	FunnelSourceCheckout FunnelSource = "checkout"
	FunnelSourceNone     FunnelSource = "none"
)

// Summary is the dashboard headline view. Funnel metrics prefer cart
// rows, fall back to checkout rows, and zero out when neither exists.
type Summary struct {
	ProductCount       int64           `json:"productCount"`
	NewProducts7d      int64           `json:"newProducts7d"`
	ActiveCheckouts24h int64           `json:"activeCheckouts24h"`
	CheckoutValue24h   decimal.Decimal `json:"checkoutValue24h"`
	CompletionRate7d   float64         `json:"completionRate7d"`
	Source             FunnelSource    `json:"source"`
}

// SeriesPoint is one day of the funnel revenue/count series.
type SeriesPoint struct {
	Day     string          `json:"day"`
	Revenue decimal.Decimal `json:"revenue"`
	Count   int64           `json:"count"`
}
