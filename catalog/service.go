package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/itsneelabh/storesync/api"
	"github.com/itsneelabh/storesync/cache"
	"github.com/itsneelabh/storesync/core"
	"github.com/itsneelabh/storesync/normalize"
	"github.com/itsneelabh/storesync/resilience"
	"github.com/itsneelabh/storesync/telemetry"
)

// Candidate envelope keys, in priority order.
var (
	productKeys  = []string{"products", "data", "items"}
	detailKeys   = []string{"product", "data"}
	categoryKeys = []string{"categories", "data"}
)

// Backend is the subset of api.Client the catalog reads from.
type Backend interface {
	FetchProducts(ctx context.Context, sess *api.Session) (*api.Response, error)
	FetchProduct(ctx context.Context, sess *api.Session, productID string) (*api.Response, error)
	FetchCategories(ctx context.Context, sess *api.Session) (*api.Response, error)
}

// Service reads the catalog through the retry executor and an optional
// read-through cache.
type Service struct {
	backend Backend
	retry   *resilience.RetryExecutor
	cache   cache.Store
	ttl     time.Duration
	logger  core.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables read-through caching of catalog bodies for ttl.
func WithCache(store cache.Store, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = store
		s.ttl = ttl
	}
}

// WithLogger sets the service logger.
func WithLogger(logger core.Logger) Option {
	return func(s *Service) {
		s.logger = core.WithComponent(logger, "catalog")
	}
}

// NewService creates a catalog service.
func NewService(backend Backend, retry *resilience.RetryExecutor, opts ...Option) *Service {
	s := &Service{
		backend: backend,
		retry:   retry,
		logger:  &core.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.retry == nil {
		s.retry = resilience.NewRetryExecutor(nil)
	}
	return s
}

// Products returns the full product list.
func (s *Service) Products(ctx context.Context, sess *api.Session) ([]Product, error) {
	ctx, span := telemetry.StartSpan(ctx, "catalog.Products")
	body, err := s.cachedBody(ctx, "catalog:products", func(ctx context.Context) (*api.Response, error) {
		return s.backend.FetchProducts(ctx, sess)
	})
	telemetry.EndSpan(span, err)
	if err != nil {
		return nil, resilience.Surface("catalog.Products", err)
	}

	products := ProductsFromRecords(normalize.ExtractRecords(body, productKeys...))
	s.logger.Debug("Catalog loaded", map[string]interface{}{
		"operation": "catalog_products",
		"count":     len(products),
	})
	return products, nil
}

// Product returns one product's details.
func (s *Service) Product(ctx context.Context, sess *api.Session, productID string) (Product, error) {
	body, err := s.cachedBody(ctx, "catalog:product:"+productID, func(ctx context.Context) (*api.Response, error) {
		return s.backend.FetchProduct(ctx, sess, productID)
	})
	if err != nil {
		return Product{}, resilience.Surface("catalog.Product", err)
	}

	rec, ok := normalize.ExtractRecord(body, detailKeys...)
	if !ok {
		return Product{}, productNotFound(productID)
	}
	p, ok := ProductFromRecord(rec)
	if !ok {
		return Product{}, productNotFound(productID)
	}
	return p, nil
}

// Categories returns the category list.
func (s *Service) Categories(ctx context.Context, sess *api.Session) ([]Category, error) {
	body, err := s.cachedBody(ctx, "catalog:categories", func(ctx context.Context) (*api.Response, error) {
		return s.backend.FetchCategories(ctx, sess)
	})
	if err != nil {
		return nil, resilience.Surface("catalog.Categories", err)
	}

	records := normalize.ExtractRecords(body, categoryKeys...)
	out := make([]Category, 0, len(records))
	for _, r := range records {
		if c, ok := CategoryFromRecord(r); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// Invalidate drops every cached catalog body this service knows about.
func (s *Service) Invalidate(ctx context.Context, productIDs ...string) error {
	if s.cache == nil {
		return nil
	}
	keys := []string{"catalog:products", "catalog:categories"}
	for _, id := range productIDs {
		keys = append(keys, "catalog:product:"+id)
	}
	for _, k := range keys {
		if err := s.cache.Delete(ctx, k); err != nil {
			return fmt.Errorf("invalidate %s: %w", k, err)
		}
	}
	return nil
}

// cachedBody fetches through the retry executor, caching the decoded body
// as JSON when a cache is configured.
func (s *Service) cachedBody(ctx context.Context, key string, fetch func(context.Context) (*api.Response, error)) (interface{}, error) {
	load := func(ctx context.Context) (interface{}, error) {
		resp, err := resilience.RetryValue(ctx, s.retry, key, fetch)
		if err != nil {
			return nil, err
		}
		return resp.Body, nil
	}

	if s.cache == nil {
		return load(ctx)
	}

	raw, err := cache.GetOrLoad(ctx, s.cache, s.logger, key, s.ttl, func(ctx context.Context) (string, error) {
		body, err := load(ctx)
		if err != nil {
			return "", err
		}
		b, err := json.Marshal(body)
		if err != nil {
			return "", fmt.Errorf("encode %s for cache: %w", key, err)
		}
		return string(b), nil
	})
	if err != nil {
		return nil, err
	}
	return normalize.Decode([]byte(raw))
}

func productNotFound(productID string) error {
	return core.NewAPIError("catalog.Product", core.KindNotFound, resilience.MessageNotFound,
		&core.FrameworkError{Op: "catalog.Product", Kind: "catalog", ID: productID, Err: core.ErrProductNotFound})
}
