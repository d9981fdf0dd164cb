package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"shopsight-backend/internal/domain"
	"shopsight-backend/internal/ports"
)

// backfillPageSize is the default Admin GraphQL page size per fetch;
// maxBackfillPageSize caps what a caller may request.
const (
	backfillPageSize    = 50
	maxBackfillPageSize = 100
)

// BackfillOptions are the optional knobs of one run. AccessToken, when
// set, is used instead of the stored credential, which also allows a
// backfill for a shop that never completed OAuth. First overrides the
// page size.
type BackfillOptions struct {
	AccessToken string
	First       int
}

// BackfillResult reports one completed backfill run.
type BackfillResult struct {
	Resource string `json:"resource"`
	Records  int    `json:"records"`
	Pages    int    `json:"pages"`
}

// BackfillService pulls a shop's historical records through the Admin
// GraphQL API, page by page, and feeds them into the same upserts the
// webhook handlers use. Each page is persisted before the next fetch;
// an upstream failure aborts the run and leaves the pages already
// applied in place, safe to re-run.
type BackfillService struct {
	resolver  *TenantResolver
	admin     ports.AdminClient
	orders    ports.OrderRepository
	products  ports.ProductRepository
	customers ports.CustomerRepository
	logger    zerolog.Logger
}

func NewBackfillService(
	resolver *TenantResolver,
	admin ports.AdminClient,
	orders ports.OrderRepository,
	products ports.ProductRepository,
	customers ports.CustomerRepository,
	logger zerolog.Logger,
) *BackfillService {
	return &BackfillService{
		resolver:  resolver,
		admin:     admin,
		orders:    orders,
		products:  products,
		customers: customers,
		logger:    logger,
	}
}

const ordersQuery = `query backfillOrders($first: Int!, $after: String) {
  orders(first: $first, after: $after, sortKey: CREATED_AT) {
    pageInfo { hasNextPage endCursor }
    edges {
      node {
        id
        createdAt
        displayFinancialStatus
        currentTotalPriceSet { shopMoney { amount currencyCode } }
        customer { id }
      }
    }
  }
}`

const productsQuery = `query backfillProducts($first: Int!, $after: String) {
  products(first: $first, after: $after, sortKey: CREATED_AT) {
    pageInfo { hasNextPage endCursor }
    edges {
      node {
        id
        title
        createdAt
      }
    }
  }
}`

const customersQuery = `query backfillCustomers($first: Int!, $after: String) {
  customers(first: $first, after: $after, sortKey: CREATED_AT) {
    pageInfo { hasNextPage endCursor }
    edges {
      node {
        id
        email
        firstName
        lastName
        createdAt
      }
    }
  }
}`

type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

type shopMoney struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
}

// storeFor resolves the credentials a run will use: the Store row when
// the shop installed, with a body token taking precedence, or a
// synthetic store around the body token alone. No row and no token is
// ErrStoreNotFound.
func (s *BackfillService) storeFor(ctx context.Context, shop string, opts BackfillOptions) (*domain.Store, error) {
	store, err := s.resolver.ResolveStore(ctx, shop)
	if err == nil {
		if opts.AccessToken != "" {
			store.AccessToken = opts.AccessToken
		}
		return store, nil
	}
	if opts.AccessToken == "" || !errors.Is(err, ErrStoreNotFound) {
		return nil, err
	}

	tenantID, err := s.resolver.Resolve(ctx, shop)
	if err != nil {
		return nil, err
	}
	return &domain.Store{
		TenantID:    tenantID,
		ShopDomain:  shop,
		AccessToken: opts.AccessToken,
	}, nil
}

func pageSize(opts BackfillOptions) int {
	if opts.First <= 0 {
		return backfillPageSize
	}
	if opts.First > maxBackfillPageSize {
		return maxBackfillPageSize
	}
	return opts.First
}

// BackfillOrders syncs the shop's full order history.
func (s *BackfillService) BackfillOrders(ctx context.Context, shop string, opts BackfillOptions) (*BackfillResult, error) {
	store, err := s.storeFor(ctx, shop, opts)
	if err != nil {
		return nil, err
	}

	type orderNode struct {
		ID                     string    `json:"id"`
		CreatedAt              time.Time `json:"createdAt"`
		DisplayFinancialStatus string    `json:"displayFinancialStatus"`
		CurrentTotalPriceSet   *struct {
			ShopMoney shopMoney `json:"shopMoney"`
		} `json:"currentTotalPriceSet"`
		Customer *struct {
			ID string `json:"id"`
		} `json:"customer"`
	}

	result := &BackfillResult{Resource: "orders"}
	err = s.paginate(ctx, store, ordersQuery, "orders", pageSize(opts), result, func(raw json.RawMessage) error {
		var node orderNode
		if err := json.Unmarshal(raw, &node); err != nil {
			return fmt.Errorf("decode order node: %w", err)
		}
		id, err := domain.ParseGID(node.ID)
		if err != nil {
			return err
		}
		payload := &domain.OrderPayload{
			ShopifyOrderID:  id,
			TotalPrice:      decimal.Zero,
			Currency:        "USD",
			FinancialStatus: strings.ToLower(node.DisplayFinancialStatus),
			CreatedAt:       node.CreatedAt,
		}
		if node.CurrentTotalPriceSet != nil {
			if amount, err := decimal.NewFromString(node.CurrentTotalPriceSet.ShopMoney.Amount); err == nil {
				payload.TotalPrice = amount
			}
			if node.CurrentTotalPriceSet.ShopMoney.CurrencyCode != "" {
				payload.Currency = node.CurrentTotalPriceSet.ShopMoney.CurrencyCode
			}
		}
		if node.Customer != nil {
			if customerID, err := domain.ParseGID(node.Customer.ID); err == nil {
				payload.CustomerShopifyID = &customerID
			}
		}
		_, err = s.orders.Upsert(ctx, store.TenantID, payload)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// BackfillProducts syncs the shop's full product catalog.
func (s *BackfillService) BackfillProducts(ctx context.Context, shop string, opts BackfillOptions) (*BackfillResult, error) {
	store, err := s.storeFor(ctx, shop, opts)
	if err != nil {
		return nil, err
	}

	type productNode struct {
		ID        string     `json:"id"`
		Title     string     `json:"title"`
		CreatedAt *time.Time `json:"createdAt"`
	}

	result := &BackfillResult{Resource: "products"}
	err = s.paginate(ctx, store, productsQuery, "products", pageSize(opts), result, func(raw json.RawMessage) error {
		var node productNode
		if err := json.Unmarshal(raw, &node); err != nil {
			return fmt.Errorf("decode product node: %w", err)
		}
		id, err := domain.ParseGID(node.ID)
		if err != nil {
			return err
		}
		title := node.Title
		if title == "" {
			title = "Untitled"
		}
		_, err = s.products.Upsert(ctx, store.TenantID, &domain.ProductPayload{
			ShopifyProductID: id,
			Title:            title,
			CreatedAt:        node.CreatedAt,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// BackfillCustomers syncs the shop's full customer list.
func (s *BackfillService) BackfillCustomers(ctx context.Context, shop string, opts BackfillOptions) (*BackfillResult, error) {
	store, err := s.storeFor(ctx, shop, opts)
	if err != nil {
		return nil, err
	}

	type customerNode struct {
		ID        string     `json:"id"`
		Email     *string    `json:"email"`
		FirstName *string    `json:"firstName"`
		LastName  *string    `json:"lastName"`
		CreatedAt *time.Time `json:"createdAt"`
	}

	result := &BackfillResult{Resource: "customers"}
	err = s.paginate(ctx, store, customersQuery, "customers", pageSize(opts), result, func(raw json.RawMessage) error {
		var node customerNode
		if err := json.Unmarshal(raw, &node); err != nil {
			return fmt.Errorf("decode customer node: %w", err)
		}
		id, err := domain.ParseGID(node.ID)
		if err != nil {
			return err
		}
		_, err = s.customers.Upsert(ctx, store.TenantID, &domain.CustomerPayload{
			ShopifyCustomerID: id,
			Email:             node.Email,
			FirstName:         node.FirstName,
			LastName:          node.LastName,
			CreatedAt:         node.CreatedAt,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// paginate drives the sequential cursor loop shared by all three
// resources: fetch a page, apply every node, then advance. The walk is
// strictly sequential so persistence of page N always precedes the
// fetch of page N+1.
func (s *BackfillService) paginate(
	ctx context.Context,
	store *domain.Store,
	query, field string,
	first int,
	result *BackfillResult,
	apply func(raw json.RawMessage) error,
) error {
	var after *string
	for {
		variables := map[string]interface{}{
			"first": first,
			"after": after,
		}
		data, err := s.admin.GraphQL(ctx, store.ShopDomain, store.AccessToken, query, variables)
		if err != nil {
			return fmt.Errorf("backfill %s page %d: %w", field, result.Pages+1, err)
		}

		var body map[string]struct {
			PageInfo pageInfo `json:"pageInfo"`
			Edges    []struct {
				Node json.RawMessage `json:"node"`
			} `json:"edges"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return fmt.Errorf("backfill %s: decode page: %w", field, err)
		}
		conn, ok := body[field]
		if !ok {
			return fmt.Errorf("backfill %s: connection missing from response", field)
		}

		for _, edge := range conn.Edges {
			if err := apply(edge.Node); err != nil {
				return fmt.Errorf("backfill %s: %w", field, err)
			}
			result.Records++
		}
		result.Pages++

		s.logger.Debug().
			Str("shop", store.ShopDomain).
			Str("resource", field).
			Int("page", result.Pages).
			Int("records", result.Records).
			Msg("Backfill page applied")

		if !conn.PageInfo.HasNextPage {
			break
		}
		cursor := conn.PageInfo.EndCursor
		after = &cursor
	}

	s.logger.Info().
		Str("shop", store.ShopDomain).
		Str("resource", field).
		Int("pages", result.Pages).
		Int("records", result.Records).
		Msg("Backfill finished")
	return nil
}
