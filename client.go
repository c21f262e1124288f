// Package storesync is the entry point for the storefront sync client.
//
// A Client wires the REST transport, the retry executor, the catalog cache,
// telemetry and the per-session cart synchronizers together behind the
// operations a storefront UI needs:
//
//	cfg, _ := core.NewConfig(core.WithBaseURL("http://localhost:8085/api/v1"))
//	client, err := storesync.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close(context.Background())
//
//	sess, err := client.Login(ctx, api.Credentials{Phone: phone, Password: pw})
//	products, err := client.FetchCatalog(ctx, sess)
//	res, err := client.MutateCartQuantity(ctx, sess, products[0].ID, 2)
//
// Every failed call returns a *core.APIError carrying a user-facing message.
package storesync

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/itsneelabh/storesync/api"
	"github.com/itsneelabh/storesync/cache"
	"github.com/itsneelabh/storesync/cart"
	"github.com/itsneelabh/storesync/catalog"
	"github.com/itsneelabh/storesync/core"
	"github.com/itsneelabh/storesync/normalize"
	"github.com/itsneelabh/storesync/orders"
	"github.com/itsneelabh/storesync/resilience"
	"github.com/itsneelabh/storesync/search"
	"github.com/itsneelabh/storesync/telemetry"
	"github.com/itsneelabh/storesync/wishlist"
)

// UnauthorizedHandler is called whenever a call made with sess was rejected
// as unauthorized. It typically clears the session and routes to login.
type UnauthorizedHandler func(sess *api.Session, err error)

// Option configures a Client.
type Option func(*Client)

// WithLogger replaces the logger built from the logging configuration.
func WithLogger(logger core.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithUnauthorizedHandler registers the re-authentication callback.
func WithUnauthorizedHandler(h UnauthorizedHandler) Option {
	return func(c *Client) {
		c.onUnauthorized = h
	}
}

// WithHTTPClient replaces the traced default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithCacheStore uses store for the catalog cache instead of the one
// described by the cache configuration.
func WithCacheStore(store cache.Store) Option {
	return func(c *Client) {
		c.cache = store
		c.cacheSet = true
	}
}

// Client is safe for concurrent use by multiple sessions.
type Client struct {
	cfg        *core.Config
	logger     core.Logger
	httpClient *http.Client

	api      *api.Client
	retry    *resilience.RetryExecutor
	catalog  *catalog.Service
	orders   *orders.Service
	wishlist *wishlist.Service

	cache    cache.Store
	cacheSet bool
	provider *telemetry.Provider

	onUnauthorized UnauthorizedHandler

	mu    sync.Mutex
	carts map[*api.Session]*cart.Synchronizer
}

// New builds a client from cfg. A nil cfg loads defaults and environment
// variables through core.NewConfig.
func New(cfg *core.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		var err error
		if cfg, err = core.NewConfig(); err != nil {
			return nil, err
		}
	} else if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:   cfg,
		carts: make(map[*api.Session]*cart.Synchronizer),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = core.NewProductionLogger(cfg.Logging, cfg.Development, cfg.Name)
	}

	if cfg.Telemetry.Enabled {
		p, err := telemetry.NewProvider(context.Background(), cfg.Telemetry, cfg.Name,
			telemetry.WithProviderLogger(core.WithComponent(c.logger, "telemetry")),
			telemetry.WithServiceVersion(Version),
		)
		if err != nil {
			return nil, err
		}
		c.provider = p
	}

	if !c.cacheSet {
		store, err := cache.NewStore(cfg.Cache, c.logger)
		if err != nil {
			c.shutdownProvider(context.Background())
			return nil, err
		}
		c.cache = store
	}

	apiOpts := []api.Option{api.WithLogger(c.logger)}
	if c.httpClient != nil {
		apiOpts = append(apiOpts, api.WithHTTPClient(c.httpClient))
	}
	apiClient, err := api.NewClient(cfg.API, cfg.Auth, apiOpts...)
	if err != nil {
		c.shutdownProvider(context.Background())
		return nil, err
	}
	c.api = apiClient

	c.retry = resilience.CreateRetryExecutor(cfg.Retry, resilience.NewDependencies(resilience.WithLogger(c.logger)))

	catalogOpts := []catalog.Option{catalog.WithLogger(c.logger)}
	if c.cache != nil {
		catalogOpts = append(catalogOpts, catalog.WithCache(c.cache, cfg.Cache.CatalogTTL))
	}
	c.catalog = catalog.NewService(c.api, c.retry, catalogOpts...)
	c.orders = orders.NewService(c.api, c.retry, c.logger)
	c.wishlist = wishlist.NewService(c.api, c.retry, c.logger)

	c.logger.Info("Client initialized", map[string]interface{}{
		"base_url":  cfg.API.BaseURL,
		"cache":     cfg.Cache.Provider,
		"telemetry": cfg.Telemetry.Enabled,
		"version":   Version,
	})
	return c, nil
}

// Config returns the configuration the client was built with.
func (c *Client) Config() *core.Config {
	return c.cfg
}

// API returns the underlying REST transport.
func (c *Client) API() *api.Client {
	return c.api
}

// Login authenticates and returns a new session.
func (c *Client) Login(ctx context.Context, creds api.Credentials) (*api.Session, error) {
	ctx, span := telemetry.StartSpan(ctx, "storesync.Login")
	sess, err := c.api.Login(ctx, creds)
	telemetry.EndSpan(span, err)
	if err != nil {
		return nil, resilience.Surface("storesync.Login", err)
	}
	c.logger.Info("Logged in", map[string]interface{}{
		"operation": "login",
		"user_id":   sess.UserID,
	})
	return sess, nil
}

// Logout ends sess on the backend and drops its cart synchronizer. The
// synchronizer is dropped even when the backend call fails.
func (c *Client) Logout(ctx context.Context, sess *api.Session) error {
	c.mu.Lock()
	delete(c.carts, sess)
	c.mu.Unlock()

	if err := c.api.Logout(ctx, sess); err != nil {
		return c.surface(sess, "storesync.Logout", err)
	}
	return nil
}

// Profile returns the logged-in user's profile record.
func (c *Client) Profile(ctx context.Context, sess *api.Session) (normalize.Record, error) {
	resp, err := resilience.RetryValue(ctx, c.retry, "profile", func(ctx context.Context) (*api.Response, error) {
		return c.api.FetchProfile(ctx, sess)
	})
	if err != nil {
		return nil, c.surface(sess, "storesync.Profile", err)
	}
	rec, _ := normalize.ExtractRecord(resp.Body, "data", "user", "profile")
	return rec, nil
}

// FetchCatalog returns the product list.
func (c *Client) FetchCatalog(ctx context.Context, sess *api.Session) ([]catalog.Product, error) {
	products, err := c.catalog.Products(ctx, sess)
	return products, c.check(sess, err)
}

// Product returns one product's details.
func (c *Client) Product(ctx context.Context, sess *api.Session, productID string) (catalog.Product, error) {
	p, err := c.catalog.Product(ctx, sess, productID)
	return p, c.check(sess, err)
}

// Categories returns the category list.
func (c *Client) Categories(ctx context.Context, sess *api.Session) ([]catalog.Category, error) {
	cats, err := c.catalog.Categories(ctx, sess)
	return cats, c.check(sess, err)
}

// Search filters products by query. See search.Filter for the matching
// rules.
func (c *Client) Search(products []catalog.Product, query string) []catalog.Product {
	return search.Filter(products, query)
}

// NewSearch returns a debouncer delivering filtered product lists after the
// configured quiet window.
func (c *Client) NewSearch(deliver func(search.Result[catalog.Product])) *search.Debouncer[catalog.Product] {
	d := search.NewDebouncer(c.cfg.Search.DebounceWindow, deliver)
	d.SetLogger(c.logger)
	return d
}

// Cart returns the synchronizer owning sess's cart, creating it on first
// use. All cart operations for one session must go through the same
// synchronizer.
func (c *Client) Cart(sess *api.Session) *cart.Synchronizer {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.carts[sess]; ok {
		return s
	}
	s := cart.NewSynchronizer(c.api, sess, c.cfg.Cart,
		cart.WithLogger(c.logger),
		cart.WithRetryExecutor(c.retry),
	)
	c.carts[sess] = s
	return s
}

// FetchCart reads the server cart.
func (c *Client) FetchCart(ctx context.Context, sess *api.Session) (cart.Cart, error) {
	ct, err := c.Cart(sess).Fetch(ctx)
	return ct, c.check(sess, err)
}

// MutateCartQuantity sets a line's quantity through the debounced
// optimistic path.
func (c *Client) MutateCartQuantity(ctx context.Context, sess *api.Session, productID string, quantity int) (cart.Result, error) {
	res, err := c.Cart(sess).SetQuantity(ctx, productID, quantity)
	return res, c.check(sess, err)
}

// RemoveCartItem deletes a line.
func (c *Client) RemoveCartItem(ctx context.Context, sess *api.Session, productID string) (cart.Result, error) {
	res, err := c.Cart(sess).RemoveItem(ctx, productID)
	return res, c.check(sess, err)
}

// AddToCart adds quantity units of a product.
func (c *Client) AddToCart(ctx context.Context, sess *api.Session, productID string, quantity int) (cart.Result, error) {
	res, err := c.Cart(sess).AddItem(ctx, productID, quantity)
	return res, c.check(sess, err)
}

// PlaceOrder submits an order. On success the cart is refetched, since the
// backend clears it, and cached catalog bodies are dropped so stock is
// re-read.
func (c *Client) PlaceOrder(ctx context.Context, sess *api.Session, req orders.PlaceOrderRequest) (*orders.Placement, error) {
	p, err := c.orders.Place(ctx, sess, req)
	if err != nil {
		return nil, c.check(sess, err)
	}

	ids := make([]string, 0, len(req.Items))
	for _, it := range req.Items {
		ids = append(ids, it.ProductID)
	}
	if err := c.catalog.Invalidate(ctx, ids...); err != nil {
		c.logger.Warn("Failed to invalidate catalog cache", map[string]interface{}{
			"operation": "place_order",
			"error":     err.Error(),
		})
	}
	if _, err := c.Cart(sess).Fetch(ctx); err != nil {
		c.logger.Warn("Cart refresh after order failed", map[string]interface{}{
			"operation": "place_order",
			"order_id":  p.OrderID,
			"error":     err.Error(),
		})
	}
	return p, nil
}

// Orders returns the user's order history.
func (c *Client) Orders(ctx context.Context, sess *api.Session) ([]orders.Order, error) {
	list, err := c.orders.List(ctx, sess)
	return list, c.check(sess, err)
}

// CancelOrder cancels a pending order.
func (c *Client) CancelOrder(ctx context.Context, sess *api.Session, orderID string) error {
	return c.check(sess, c.orders.Cancel(ctx, sess, orderID))
}

// Wishlist returns the saved products.
func (c *Client) Wishlist(ctx context.Context, sess *api.Session) ([]wishlist.Entry, error) {
	entries, err := c.wishlist.List(ctx, sess)
	return entries, c.check(sess, err)
}

// AddToWishlist saves a product. Saving an already saved product succeeds.
func (c *Client) AddToWishlist(ctx context.Context, sess *api.Session, productID string) (wishlist.AddResult, error) {
	res, err := c.wishlist.Add(ctx, sess, productID)
	return res, c.check(sess, err)
}

// RemoveFromWishlist deletes a wishlist entry by its entry id.
func (c *Client) RemoveFromWishlist(ctx context.Context, sess *api.Session, wishlistID string) error {
	return c.check(sess, c.wishlist.Remove(ctx, sess, wishlistID))
}

// ToggleWishlist saves productID when it is not saved and removes it when
// it is. It reports whether the product is saved afterwards.
func (c *Client) ToggleWishlist(ctx context.Context, sess *api.Session, productID string) (bool, error) {
	saved, err := c.wishlist.Toggle(ctx, sess, productID)
	return saved, c.check(sess, err)
}

// Snapshot is everything a storefront home screen shows.
type Snapshot struct {
	Products []catalog.Product
	Cart     cart.Cart
	Orders   []orders.Order
}

// Refresh loads the catalog, cart and order history concurrently. The first
// failure cancels the other loads and is returned.
func (c *Client) Refresh(ctx context.Context, sess *api.Session) (*Snapshot, error) {
	var attrs []attribute.KeyValue
	if sess != nil {
		attrs = append(attrs, attribute.String("user_id", sess.UserID))
	}
	ctx, span := telemetry.StartSpan(ctx, "storesync.Refresh", attrs...)
	var snap Snapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		products, err := c.catalog.Products(gctx, sess)
		snap.Products = products
		return err
	})
	g.Go(func() error {
		ct, err := c.Cart(sess).Fetch(gctx)
		snap.Cart = ct
		return err
	})
	g.Go(func() error {
		list, err := c.orders.List(gctx, sess)
		snap.Orders = list
		return err
	})

	err := g.Wait()
	telemetry.EndSpan(span, err)
	if err != nil {
		return nil, c.check(sess, err)
	}
	return &snap, nil
}

// Close releases the cache connection and flushes telemetry.
func (c *Client) Close(ctx context.Context) error {
	var errs []error
	if closer, ok := c.cache.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.shutdownProvider(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Client) shutdownProvider(ctx context.Context) error {
	if c.provider == nil {
		return nil
	}
	return c.provider.Shutdown(ctx)
}

// surface classifies a raw failure and runs the unauthorized hook.
func (c *Client) surface(sess *api.Session, op string, err error) error {
	return c.check(sess, resilience.Surface(op, err))
}

// check runs the unauthorized hook for an already surfaced error.
func (c *Client) check(sess *api.Session, err error) error {
	if err != nil && c.onUnauthorized != nil && core.KindOf(err) == core.KindUnauthorized {
		c.onUnauthorized(sess, err)
	}
	return err
}
