package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"shopsight-backend/internal/application"
	"shopsight-backend/internal/domain"
	"shopsight-backend/internal/infrastructure/metrics"
	"shopsight-backend/internal/infrastructure/pubsub"
	"shopsight-backend/internal/ports"
	shopifyinfra "shopsight-backend/internal/infrastructure/shopify"
)

// maxWebhookBody caps inbound webhook payloads.
const maxWebhookBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps application errors onto the HTTP status taxonomy.
func writeError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	var upstream *shopifyinfra.UpstreamError
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, application.ErrInvalidSignature),
		errors.Is(err, application.ErrStateMismatch):
		status = http.StatusUnauthorized
	case errors.Is(err, application.ErrUnsupportedTopic),
		errors.Is(err, application.ErrMissingEventID):
		status = http.StatusBadRequest
	case errors.Is(err, application.ErrStoreNotFound):
		status = http.StatusNotFound
	case errors.As(err, &upstream):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Msg("Request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

// tenantFromRequest resolves the target tenant from either a shop
// domain or an explicit hex tenant id.
func tenantFromRequest(r *http.Request, resolver *application.TenantResolver) (domain.TenantID, error) {
	if shop := r.URL.Query().Get("shop"); shop != "" {
		return resolver.Resolve(r.Context(), shop)
	}
	if raw := r.URL.Query().Get("tenant_id"); raw != "" {
		return domain.ParseTenantID(raw)
	}
	return nil, fmt.Errorf("shop or tenant_id query parameter is required")
}

// parseTimeParam accepts RFC 3339 or a bare date.
func parseTimeParam(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("invalid time %q", raw)
	}
	return &t, nil
}

func listParamsFromRequest(r *http.Request) (ports.ListParams, error) {
	q := r.URL.Query()
	params := ports.ListParams{Cursor: q.Get("cursor")}

	if raw := q.Get("limit"); raw != "" {
		var limit int
		if _, err := fmt.Sscanf(raw, "%d", &limit); err != nil || limit < 0 {
			return params, fmt.Errorf("invalid limit %q", raw)
		}
		params.Limit = limit
	}

	from, err := parseTimeParam(q.Get("from"))
	if err != nil {
		return params, err
	}
	to, err := parseTimeParam(q.Get("to"))
	if err != nil {
		return params, err
	}
	params.From, params.To = from, to

	if status := q.Get("status"); status != "" {
		parsed, err := domain.ParseOrderStatus(status)
		if err != nil {
			return params, err
		}
		params.Status = parsed
	}
	return params, nil
}

func healthHandler(db *gorm.DB, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok", "database": "ok", "redis": "ok"}
		code := http.StatusOK

		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(r.Context()) != nil {
			status["status"], status["database"] = "degraded", "down"
			code = http.StatusServiceUnavailable
		}
		if err := redisClient.Ping(r.Context()).Err(); err != nil {
			status["status"], status["redis"] = "degraded", "down"
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, status)
	}
}

// webhookHandler receives one Shopify delivery. The topic comes from
// the route, the shop and signature from the standard headers, and the
// body is passed through byte-exact for HMAC verification.
func webhookHandler(service *application.WebhookService, instruments *metrics.Metrics, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		topic := chi.URLParam(r, "resource") + "/" + chi.URLParam(r, "action")
		shop := r.Header.Get("X-Shopify-Shop-Domain")
		if shop == "" {
			instruments.WebhooksRejected.WithLabelValues("missing_shop").Inc()
			badRequest(w, "missing X-Shopify-Shop-Domain header")
			return
		}
		eventID := r.Header.Get("X-Shopify-Webhook-Id")
		if eventID == "" {
			eventID = r.Header.Get("X-Shopify-Event-Id")
		}
		signature := r.Header.Get("X-Shopify-Hmac-Sha256")

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err != nil {
			instruments.WebhooksRejected.WithLabelValues("body_read").Inc()
			badRequest(w, "failed to read request body")
			return
		}

		start := time.Now()
		result, err := service.Process(r.Context(), topic, shop, eventID, signature, payload)
		instruments.WebhookDuration.WithLabelValues(topic).Observe(time.Since(start).Seconds())
		if err != nil {
			switch {
			case errors.Is(err, application.ErrInvalidSignature):
				instruments.WebhooksRejected.WithLabelValues("signature").Inc()
			case errors.Is(err, application.ErrUnsupportedTopic):
				instruments.WebhooksRejected.WithLabelValues("topic").Inc()
			case errors.Is(err, application.ErrMissingEventID):
				instruments.WebhooksRejected.WithLabelValues("missing_event_id").Inc()
			default:
				instruments.WebhooksRejected.WithLabelValues("processing").Inc()
			}
			writeError(w, logger, err)
			return
		}

		instruments.WebhooksReceived.WithLabelValues(topic).Inc()
		resp := map[string]interface{}{"ok": true}
		if result.Duplicate {
			instruments.WebhooksDuplicate.WithLabelValues(topic).Inc()
			resp["deduped"] = true
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func oauthInstallHandler(service *application.OAuthService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shop := r.URL.Query().Get("shop")
		if shop == "" {
			badRequest(w, "shop query parameter is required")
			return
		}

		authURL, err := service.BeginInstall(r.Context(), shop)
		if err != nil {
			logger.Warn().Err(err).Str("shop", shop).Msg("Install rejected")
			badRequest(w, err.Error())
			return
		}
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// oauthCallbackHandler finishes the install and sends the merchant to
// the dashboard.
func oauthCallbackHandler(service *application.OAuthService, appURL string, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		shop, code, state := q.Get("shop"), q.Get("code"), q.Get("state")
		if shop == "" || code == "" || state == "" {
			badRequest(w, "shop, code and state query parameters are required")
			return
		}

		store, err := service.CompleteInstall(r.Context(), shop, code, state)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		dest := fmt.Sprintf("%s/dashboard?shop=%s&installed=1", appURL, url.QueryEscape(store.ShopDomain))
		http.Redirect(w, r, dest, http.StatusFound)
	}
}

// backfillHandler runs one synchronous backfill and reports what it
// applied. An upstream failure surfaces as 502 with the already
// persisted pages left in place. A body accessToken runs the backfill
// without a Store row; first overrides the page size.
func backfillHandler(
	resource string,
	run func(ctx context.Context, shop string, opts application.BackfillOptions) (*application.BackfillResult, error),
	instruments *metrics.Metrics,
	logger zerolog.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Shop        string `json:"shop"`
			AccessToken string `json:"accessToken"`
			First       int    `json:"first"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			badRequest(w, "invalid JSON body")
			return
		}
		shop := body.Shop
		if shop == "" {
			shop = r.URL.Query().Get("shop")
		}
		if shop == "" {
			badRequest(w, "shop is required")
			return
		}

		result, err := run(r.Context(), shop, application.BackfillOptions{
			AccessToken: body.AccessToken,
			First:       body.First,
		})
		if err != nil {
			instruments.BackfillRuns.WithLabelValues(resource, "error").Inc()
			writeError(w, logger, err)
			return
		}

		instruments.BackfillRuns.WithLabelValues(resource, "success").Inc()
		instruments.BackfillRecords.WithLabelValues(resource).Add(float64(result.Records))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok":      true,
			"upserts": result.Records,
			"pages":   result.Pages,
		})
	}
}

// resetTenantHandler wipes a tenant's funnel rows. Mode "all" clears
// everything; mode "recent" clears only rows created within the last
// N days.
func resetTenantHandler(service *application.AdminService, resolver *application.TenantResolver, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := struct {
			Shop string `json:"shop"`
			Mode string `json:"mode"`
			Days int    `json:"days"`
		}{Mode: "all", Days: 30}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			badRequest(w, "invalid JSON body")
			return
		}
		if body.Shop == "" {
			badRequest(w, "shop is required")
			return
		}

		tenantID, err := resolver.Resolve(r.Context(), body.Shop)
		if err != nil {
			badRequest(w, err.Error())
			return
		}

		var cutoff *time.Time
		switch body.Mode {
		case "all":
		case "recent":
			t := time.Now().AddDate(0, 0, -body.Days)
			cutoff = &t
		default:
			badRequest(w, "mode must be all or recent")
			return
		}

		result, err := service.ResetFunnel(r.Context(), tenantID, cutoff)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok": true,
			"deleted": map[string]int64{
				"carts":     result.Carts,
				"checkouts": result.Checkouts,
			},
			"mode": body.Mode,
			"shop": body.Shop,
		})
	}
}

func listOrdersHandler(orders ports.OrderRepository, resolver *application.TenantResolver, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := tenantFromRequest(r, resolver)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		params, err := listParamsFromRequest(r)
		if err != nil {
			badRequest(w, err.Error())
			return
		}

		items, nextCursor, err := orders.List(r.Context(), tenantID, params)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"items":      items,
			"nextCursor": nextCursor,
		})
	}
}

func listProductsHandler(products ports.ProductRepository, resolver *application.TenantResolver, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := tenantFromRequest(r, resolver)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		params, err := listParamsFromRequest(r)
		if err != nil {
			badRequest(w, err.Error())
			return
		}

		items, nextCursor, err := products.List(r.Context(), tenantID, params)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"items":      items,
			"nextCursor": nextCursor,
		})
	}
}

func listCustomersHandler(customers ports.CustomerRepository, resolver *application.TenantResolver, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := tenantFromRequest(r, resolver)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		params, err := listParamsFromRequest(r)
		if err != nil {
			badRequest(w, err.Error())
			return
		}

		items, nextCursor, err := customers.List(r.Context(), tenantID, params)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"items":      items,
			"nextCursor": nextCursor,
		})
	}
}

func summaryHandler(analytics *application.AnalyticsService, resolver *application.TenantResolver, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := tenantFromRequest(r, resolver)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		summary, err := analytics.Summary(r.Context(), tenantID)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func checkoutSeriesHandler(analytics *application.AnalyticsService, resolver *application.TenantResolver, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := tenantFromRequest(r, resolver)
		if err != nil {
			badRequest(w, err.Error())
			return
		}

		days := 7
		if raw := r.URL.Query().Get("days"); raw != "" {
			if _, err := fmt.Sscanf(raw, "%d", &days); err != nil || days <= 0 {
				badRequest(w, "invalid days")
				return
			}
		}

		points, source, err := analytics.CheckoutSeries(r.Context(), tenantID, days)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"source": source,
			"points": points,
		})
	}
}

// The direct-read analytics endpoints need the shop domain, not just a
// tenant id: the Admin API call runs against the shop's stored
// credential.
func overviewHandler(analytics *application.AnalyticsService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shop := r.URL.Query().Get("shop")
		if shop == "" {
			badRequest(w, "shop query parameter is required")
			return
		}
		from, to, err := windowParams(r)
		if err != nil {
			badRequest(w, err.Error())
			return
		}

		overview, err := analytics.Overview(r.Context(), shop, from, to)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, overview)
	}
}

func ordersByDateHandler(analytics *application.AnalyticsService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shop := r.URL.Query().Get("shop")
		if shop == "" {
			badRequest(w, "shop query parameter is required")
			return
		}
		from, to, err := windowParams(r)
		if err != nil {
			badRequest(w, err.Error())
			return
		}

		points, err := analytics.OrdersByDate(r.Context(), shop, from, to)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"points": points,
		})
	}
}

func windowParams(r *http.Request) (*time.Time, *time.Time, error) {
	from, err := parseTimeParam(r.URL.Query().Get("from"))
	if err != nil {
		return nil, nil, err
	}
	to, err := parseTimeParam(r.URL.Query().Get("to"))
	if err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

// realtimeSummaryHandler streams the tenant's summary over SSE: one
// snapshot on connect, a fresh one after every processed webhook for
// that tenant, and a periodic refresh so the stream stays current even
// without webhook traffic. The refresh also keeps proxies from closing
// an idle connection.
func realtimeSummaryHandler(
	bus *pubsub.EventBus,
	analytics *application.AnalyticsService,
	resolver *application.TenantResolver,
	logger zerolog.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := tenantFromRequest(r, resolver)
		if err != nil {
			badRequest(w, err.Error())
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming not supported"})
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		sub := bus.Subscribe(r.Context(), &pubsub.Filter{TenantID: tenantID})

		sendSummary := func() {
			summary, err := analytics.Summary(r.Context(), tenantID)
			if err != nil {
				logger.Warn().Err(err).Msg("Realtime summary refresh failed")
				return
			}
			data, err := json.Marshal(summary)
			if err != nil {
				return
			}
			fmt.Fprintf(w, "event: summary\ndata: %s\n\n", data)
			flusher.Flush()
		}
		sendSummary()

		refresh := time.NewTicker(5 * time.Second)
		defer refresh.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case _, open := <-sub.Events:
				if !open {
					return
				}
				sendSummary()
			case <-refresh.C:
				sendSummary()
			}
		}
	}
}
