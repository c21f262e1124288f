// Package cart keeps a local copy of the user's cart consistent with the
// backend while applying quantity changes optimistically.
//
// A quantity change is shown locally at once, debounced per product, then
// sent under a single in-flight guard. Success is followed by a short settle
// delay and a refetch; failure discards the local change.
package cart

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/itsneelabh/storesync/api"
	"github.com/itsneelabh/storesync/core"
	"github.com/itsneelabh/storesync/normalize"
	"github.com/itsneelabh/storesync/resilience"
	"github.com/itsneelabh/storesync/telemetry"
)

// Candidate envelope keys for the cart body, in priority order.
var cartKeys = []string{"data", "cartItems", "items"}

// DefaultFetchTimeout bounds one shared cart fetch, retries included.
const DefaultFetchTimeout = time.Minute

// Backend is the subset of api.Client the synchronizer needs.
type Backend interface {
	FetchCart(ctx context.Context, sess *api.Session) (*api.Response, error)
	UpdateCartQuantity(ctx context.Context, sess *api.Session, productID string, quantity int) (*api.Response, error)
	AddToCart(ctx context.Context, sess *api.Session, productID string, quantity int) (*api.Response, error)
	RemoveFromCart(ctx context.Context, sess *api.Session, productID string) (*api.Response, error)
}

// intent is a quantity change waiting out its debounce window. base is the
// line as it was before the first change in the burst.
type intent struct {
	seq     uint64
	target  int
	base    Line
	hadBase bool
}

// Synchronizer owns one session's cart.
type Synchronizer struct {
	backend Backend
	sess    *api.Session
	retry   *resilience.RetryExecutor
	logger  core.Logger

	debounce    time.Duration
	settle      time.Duration
	refresh     time.Duration
	maxQuantity int
	fee         decimal.Decimal

	fetchTimeout time.Duration

	mu      sync.Mutex
	lines   []Line
	states  map[string]LineState
	intents map[string]*intent
	seq     uint64

	inFlight          atomic.Bool
	updateUnsupported atomic.Bool
	fetches           singleflight.Group
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithLogger sets the logger.
func WithLogger(logger core.Logger) Option {
	return func(s *Synchronizer) {
		s.logger = core.WithComponent(logger, "cart")
	}
}

// WithFetchTimeout bounds a shared Fetch, retries included. Non-positive
// values keep DefaultFetchTimeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Synchronizer) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithRetryExecutor replaces the default retry executor.
func WithRetryExecutor(r *resilience.RetryExecutor) Option {
	return func(s *Synchronizer) {
		if r != nil {
			s.retry = r
		}
	}
}

// NewSynchronizer creates a synchronizer for sess. Zero timing and quantity
// fields in cfg take the package defaults. A zero DeliveryFee is a free
// delivery; only a negative fee falls back to DefaultDeliveryFee.
func NewSynchronizer(backend Backend, sess *api.Session, cfg core.CartConfig, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		backend:     backend,
		sess:        sess,
		retry:       resilience.NewRetryExecutor(nil),
		logger:      &core.NoOpLogger{},
		debounce:    cfg.DebounceWindow,
		settle:      cfg.SettleDelay,
		refresh:     cfg.RefreshInterval,
		maxQuantity: cfg.MaxQuantity,
		fee:         DefaultDeliveryFee,

		fetchTimeout: DefaultFetchTimeout,
		states:      make(map[string]LineState),
		intents:     make(map[string]*intent),
	}
	if cfg.DeliveryFee >= 0 {
		s.fee = decimal.NewFromFloat(cfg.DeliveryFee)
	}
	if s.maxQuantity <= 0 || s.maxQuantity > MaxQuantity {
		s.maxQuantity = MaxQuantity
	}
	if s.refresh <= 0 {
		s.refresh = 5 * time.Second
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session returns the session this cart belongs to.
func (s *Synchronizer) Session() *api.Session {
	return s.sess
}

// InFlight reports whether a backend mutation is running.
func (s *Synchronizer) InFlight() bool {
	return s.inFlight.Load()
}

// Snapshot returns a copy of the local cart.
func (s *Synchronizer) Snapshot() Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Synchronizer) snapshotLocked() Cart {
	lines := make([]Line, len(s.lines))
	copy(lines, s.lines)
	return Cart{Lines: lines, DeliveryFee: s.fee}
}

// State returns the mutation state of productID's line.
func (s *Synchronizer) State(productID string) LineState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[productID]
}

// ComputeSubtotal sums the current lines.
func (s *Synchronizer) ComputeSubtotal() decimal.Decimal {
	return s.Snapshot().Subtotal()
}

// ComputeTotal is the subtotal plus the delivery fee when the subtotal is
// positive.
func (s *Synchronizer) ComputeTotal() decimal.Decimal {
	return s.Snapshot().Total()
}

// Fetch replaces the local cart with the backend's. Concurrent calls share
// one request. The shared request is detached from any single caller's
// cancellation and bounded by the fetch timeout instead; each caller stops
// waiting when its own ctx ends.
func (s *Synchronizer) Fetch(ctx context.Context) (Cart, error) {
	ch := s.fetches.DoChan("cart", func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		return s.fetch(fctx)
	})
	select {
	case <-ctx.Done():
		return s.Snapshot(), resilience.Surface("cart.Fetch", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return s.Snapshot(), resilience.Surface("cart.Fetch", res.Err)
		}
		return res.Val.(Cart), nil
	}
}

func (s *Synchronizer) fetch(ctx context.Context) (Cart, error) {
	resp, err := resilience.RetryValue(ctx, s.retry, "cart.fetch", func(ctx context.Context) (*api.Response, error) {
		return s.backend.FetchCart(ctx, s.sess)
	})
	telemetry.Counter(telemetry.MetricCartFetches, "status", statusLabel(err))
	if err != nil {
		return Cart{}, err
	}

	records := normalize.ExtractRecords(resp.Body, cartKeys...)
	lines := make([]Line, 0, len(records))
	for i, r := range records {
		line, ok := LineFromRecord(r)
		if !ok {
			s.logger.Warn("Skipping cart line without product id", map[string]interface{}{
				"operation": "cart_fetch",
				"index":     i,
				"error":     fmt.Errorf("cart line %d: %w", i, core.ErrNoProductID).Error(),
			})
			continue
		}
		if raw, ok := normalize.Lookup(r, "quantity"); ok {
			if q, ok := normalize.Int(raw); ok && q > MaxQuantity {
				s.logger.Warn("Backend returned out-of-range quantity, clamping", map[string]interface{}{
					"operation":  "cart_fetch",
					"product_id": line.ProductID,
					"quantity":   q,
					"clamped_to": line.Quantity,
				})
			}
		}
		lines = append(lines, line)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = lines
	// Changes still waiting out their debounce window stay visible.
	for id, in := range s.intents {
		s.setLocked(id, in.target, Line{ProductID: id})
	}
	return s.snapshotLocked(), nil
}

// SetQuantity changes productID's quantity. A quantity below 1 removes the
// line; above the maximum it is clamped.
//
// The returned error is set only with OutcomeRolledBack and is a
// *core.APIError.
func (s *Synchronizer) SetQuantity(ctx context.Context, productID string, quantity int) (Result, error) {
	if s.inFlight.Load() {
		return s.ignored(productID, quantity), nil
	}
	if quantity < MinQuantity {
		quantity = 0
	} else if quantity > s.maxQuantity {
		s.logger.Warn("Quantity above maximum, clamping", map[string]interface{}{
			"operation":  "cart_set_quantity",
			"product_id": productID,
			"requested":  quantity,
			"clamped_to": s.maxQuantity,
		})
		quantity = s.maxQuantity
	}

	seq := s.stage(productID, quantity)

	if s.debounce > 0 {
		timer := time.NewTimer(s.debounce)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			if s.abandon(productID, seq) {
				return Result{Outcome: OutcomeRolledBack, ProductID: productID, Quantity: quantity, Cart: s.Snapshot()},
					resilience.Surface("cart.SetQuantity", ctx.Err())
			}
			return s.superseded(productID, quantity), nil
		}
	}

	in, outcome := s.claim(productID, seq)
	switch outcome {
	case OutcomeSuperseded:
		return s.superseded(productID, quantity), nil
	case OutcomeIgnored:
		return s.ignored(productID, quantity), nil
	}
	defer s.inFlight.Store(false)

	return s.commit(ctx, "cart.SetQuantity", productID, quantity, in.base, in.hadBase)
}

// RemoveItem deletes productID from the cart. A 404 from the backend means
// it was already gone and counts as success.
func (s *Synchronizer) RemoveItem(ctx context.Context, productID string) (Result, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return s.ignored(productID, 0), nil
	}
	defer s.inFlight.Store(false)

	s.mu.Lock()
	base, hadBase := s.lineLocked(productID)
	if in, ok := s.intents[productID]; ok {
		base, hadBase = in.base, in.hadBase
		delete(s.intents, productID)
	}
	s.setLocked(productID, 0, base)
	s.states[productID] = StatePending
	s.mu.Unlock()

	return s.commit(ctx, "cart.RemoveItem", productID, 0, base, hadBase)
}

// AddItem adds quantity of productID, as the product page does. The line
// shows locally at once and is rolled back if the backend refuses it.
func (s *Synchronizer) AddItem(ctx context.Context, productID string, quantity int) (Result, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return s.ignored(productID, quantity), nil
	}
	defer s.inFlight.Store(false)

	quantity = clampQuantity(quantity)
	if quantity > s.maxQuantity {
		quantity = s.maxQuantity
	}

	s.mu.Lock()
	base, hadBase := s.lineLocked(productID)
	if in, ok := s.intents[productID]; ok {
		base, hadBase = in.base, in.hadBase
		delete(s.intents, productID)
	}
	s.setLocked(productID, quantity, base)
	s.states[productID] = StatePending
	s.mu.Unlock()

	ctx, span := telemetry.StartSpan(ctx, "cart.AddItem",
		attribute.String("product_id", productID),
		attribute.Int("quantity", quantity))

	err := s.retry.Execute(ctx, "cart.add", func(ctx context.Context) error {
		_, err := s.backend.AddToCart(ctx, s.sess, productID, quantity)
		return err
	})
	telemetry.EndSpan(span, err)
	if err != nil {
		s.logger.Warn("Cart add failed, rolling back", map[string]interface{}{
			"operation":  "cart_add",
			"product_id": productID,
			"quantity":   quantity,
			"error":      err.Error(),
		})
		s.rollback(ctx, productID, base, hadBase)
		s.recordOutcome("add", OutcomeRolledBack)
		return Result{Outcome: OutcomeRolledBack, ProductID: productID, Quantity: quantity, Cart: s.Snapshot()},
			resilience.Surface("cart.AddItem", err)
	}

	s.markState(productID, StateCommitted)
	s.recordOutcome("add", OutcomeCommitted)
	s.reconcile(ctx, "cart.AddItem")
	return Result{Outcome: OutcomeCommitted, ProductID: productID, Quantity: quantity, Cart: s.Snapshot()}, nil
}

// AutoRefresh refetches the cart every refresh interval until ctx ends.
// Ticks that find a mutation in flight are skipped.
func (s *Synchronizer) AutoRefresh(ctx context.Context) {
	ticker := time.NewTicker(s.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.inFlight.Load() {
				s.logger.Debug("Skipping cart refresh, mutation in flight", map[string]interface{}{
					"operation": "cart_auto_refresh",
				})
				continue
			}
			if _, err := s.Fetch(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("Periodic cart refresh failed", map[string]interface{}{
					"operation": "cart_auto_refresh",
					"error":     err.Error(),
				})
			}
		}
	}
}

// stage applies the optimistic change and registers the intent.
func (s *Synchronizer) stage(productID string, quantity int) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	in, ok := s.intents[productID]
	if !ok {
		in = &intent{}
		in.base, in.hadBase = s.lineLocked(productID)
		s.intents[productID] = in
	}
	in.seq = s.seq
	in.target = quantity

	s.setLocked(productID, quantity, in.base)
	s.states[productID] = StatePending
	return in.seq
}

// claim ends the debounce for seq. The caller owns the in-flight guard
// when the outcome is OutcomeCommitted.
func (s *Synchronizer) claim(productID string, seq uint64) (*intent, Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	in, ok := s.intents[productID]
	if !ok || in.seq != seq {
		return nil, OutcomeSuperseded
	}
	delete(s.intents, productID)

	if !s.inFlight.CompareAndSwap(false, true) {
		s.restoreLocked(productID, in.base, in.hadBase)
		s.states[productID] = StateIdle
		return nil, OutcomeIgnored
	}
	return in, OutcomeCommitted
}

// abandon drops seq's intent after the caller gave up, restoring the base
// line. It reports false when a newer intent already owns the product.
func (s *Synchronizer) abandon(productID string, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	in, ok := s.intents[productID]
	if !ok || in.seq != seq {
		return false
	}
	delete(s.intents, productID)
	s.restoreLocked(productID, in.base, in.hadBase)
	s.states[productID] = StateRolledBack
	return true
}

// commit sends the change under the in-flight guard and settles the local
// state. quantity zero means removal.
func (s *Synchronizer) commit(ctx context.Context, op, productID string, quantity int, base Line, hadBase bool) (Result, error) {
	kind := "update"
	if quantity == 0 {
		kind = "remove"
	}

	ctx, span := telemetry.StartSpan(ctx, op,
		attribute.String("product_id", productID),
		attribute.Int("quantity", quantity))

	err := s.retry.Execute(ctx, "cart."+kind, func(ctx context.Context) error {
		if quantity == 0 {
			return s.remove(ctx, productID)
		}
		return s.update(ctx, productID, quantity)
	})
	telemetry.EndSpan(span, err)

	if err != nil {
		s.logger.Warn("Cart mutation failed, rolling back", map[string]interface{}{
			"operation":  "cart_" + kind,
			"product_id": productID,
			"quantity":   quantity,
			"error":      err.Error(),
		})
		s.rollback(ctx, productID, base, hadBase)
		s.recordOutcome(kind, OutcomeRolledBack)
		return Result{Outcome: OutcomeRolledBack, ProductID: productID, Quantity: quantity, Cart: s.Snapshot()},
			resilience.Surface(op, err)
	}

	s.markState(productID, StateCommitted)
	s.recordOutcome(kind, OutcomeCommitted)
	s.logger.Debug("Cart mutation committed", map[string]interface{}{
		"operation":  "cart_" + kind,
		"product_id": productID,
		"quantity":   quantity,
	})
	s.reconcile(ctx, op)
	return Result{Outcome: OutcomeCommitted, ProductID: productID, Quantity: quantity, Cart: s.Snapshot()}, nil
}

// update sends the new quantity, falling back to the add endpoint on
// backends that lack the update route.
func (s *Synchronizer) update(ctx context.Context, productID string, quantity int) error {
	if !s.updateUnsupported.Load() {
		_, err := s.backend.UpdateCartQuantity(ctx, s.sess, productID, quantity)
		if !updateMissing(err) {
			return err
		}
		s.updateUnsupported.Store(true)
		s.logger.Info("Update endpoint unavailable, using add endpoint", map[string]interface{}{
			"operation": "cart_update",
			"status":    core.StatusOf(err),
		})
	}
	_, err := s.backend.AddToCart(ctx, s.sess, productID, quantity)
	return err
}

func (s *Synchronizer) remove(ctx context.Context, productID string) error {
	_, err := s.backend.RemoveFromCart(ctx, s.sess, productID)
	if core.StatusOf(err) == http.StatusNotFound {
		return nil
	}
	return err
}

// updateMissing reports whether err says the update route does not exist.
func updateMissing(err error) bool {
	var httpErr *core.HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	switch httpErr.Status {
	case http.StatusNotFound, http.StatusMethodNotAllowed, http.StatusNotImplemented:
		return true
	}
	return false
}

// reconcile waits for the backend to settle and refetches. Failures are
// logged; the committed local state stands.
func (s *Synchronizer) reconcile(ctx context.Context, op string) {
	if s.settle > 0 {
		timer := time.NewTimer(s.settle)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
	if _, err := s.fetch(ctx); err != nil {
		s.logger.Warn("Cart refetch after mutation failed", map[string]interface{}{
			"operation": "cart_reconcile",
			"after":     op,
			"error":     err.Error(),
		})
		return
	}
	telemetry.Counter(telemetry.MetricCartReconciled)
}

func (s *Synchronizer) ignored(productID string, quantity int) Result {
	s.recordOutcome("set", OutcomeIgnored)
	s.logger.Debug("Cart mutation ignored, another is in flight", map[string]interface{}{
		"operation":  "cart_set_quantity",
		"product_id": productID,
	})
	return Result{Outcome: OutcomeIgnored, ProductID: productID, Quantity: quantity, Cart: s.Snapshot(), Reason: core.ErrMutationInFlight}
}

func (s *Synchronizer) superseded(productID string, quantity int) Result {
	s.recordOutcome("set", OutcomeSuperseded)
	return Result{Outcome: OutcomeSuperseded, ProductID: productID, Quantity: quantity, Cart: s.Snapshot()}
}

// rollback discards an optimistic change by refetching, restoring the base
// line when the backend cannot be read.
func (s *Synchronizer) rollback(ctx context.Context, productID string, base Line, hadBase bool) {
	s.markState(productID, StateRolledBack)
	if _, err := s.fetch(ctx); err != nil {
		s.mu.Lock()
		s.restoreLocked(productID, base, hadBase)
		s.mu.Unlock()
	}
}

func (s *Synchronizer) markState(productID string, state LineState) {
	s.mu.Lock()
	s.states[productID] = state
	s.mu.Unlock()
}

func (s *Synchronizer) recordOutcome(kind string, o Outcome) {
	telemetry.Counter(telemetry.MetricCartMutations, "kind", kind, "outcome", o.String())
}

func (s *Synchronizer) lineLocked(productID string) (Line, bool) {
	for _, l := range s.lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return Line{ProductID: productID}, false
}

// setLocked sets productID's quantity, removing the line at zero and
// creating it from tmpl when absent.
func (s *Synchronizer) setLocked(productID string, quantity int, tmpl Line) {
	for i := range s.lines {
		if s.lines[i].ProductID != productID {
			continue
		}
		if quantity == 0 {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
		} else {
			s.lines[i].Quantity = quantity
		}
		return
	}
	if quantity > 0 {
		tmpl.ProductID = productID
		tmpl.Quantity = quantity
		s.lines = append(s.lines, tmpl)
	}
}

func (s *Synchronizer) restoreLocked(productID string, base Line, hadBase bool) {
	if !hadBase {
		s.setLocked(productID, 0, base)
		return
	}
	s.setLocked(productID, base.Quantity, base)
}

func statusLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return string(resilience.Classify(err).Kind)
}
