package cart

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/storesync/api"
	"github.com/itsneelabh/storesync/core"
	"github.com/itsneelabh/storesync/internal/mockstore"
	"github.com/itsneelabh/storesync/internal/testutil"
	"github.com/itsneelabh/storesync/normalize"
	"github.com/itsneelabh/storesync/resilience"
)

var testConfig = core.CartConfig{
	DebounceWindow:  20 * time.Millisecond,
	SettleDelay:     time.Millisecond,
	RefreshInterval: time.Hour,
	DeliveryFee:     60,
	MaxQuantity:     100,
}

func fastRetry() *resilience.RetryExecutor {
	r := resilience.NewRetryExecutor(&resilience.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1})
	r.SetSleeper(func(context.Context, time.Duration) error { return nil })
	return r
}

func newSync(t *testing.T, b *testutil.Backend, opts ...Option) *Synchronizer {
	t.Helper()
	opts = append([]Option{WithRetryExecutor(fastRetry())}, opts...)
	return NewSynchronizer(b.Client, b.Session, testConfig, opts...)
}

// fakeBackend serves a fixed cart body and records mutations.
type fakeBackend struct {
	mu      sync.Mutex
	body    interface{}
	fetchFn func() error
	fetches int32

	updateFn func(productID string, qty int) error
	updates  []int
	gate     chan struct{}

	addGate chan struct{}
	addErr  error
}

func (f *fakeBackend) FetchCart(ctx context.Context, _ *api.Session) (*api.Response, error) {
	atomic.AddInt32(&f.fetches, 1)
	f.mu.Lock()
	fn, body := f.fetchFn, f.body
	f.mu.Unlock()
	if fn != nil {
		if err := fn(); err != nil {
			return nil, err
		}
	}
	return &api.Response{Status: http.StatusOK, Body: body}, nil
}

func (f *fakeBackend) UpdateCartQuantity(ctx context.Context, _ *api.Session, productID string, qty int) (*api.Response, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	f.updates = append(f.updates, qty)
	fn := f.updateFn
	f.mu.Unlock()
	if fn != nil {
		if err := fn(productID, qty); err != nil {
			return nil, err
		}
	}
	return &api.Response{Status: http.StatusOK, Body: map[string]interface{}{"success": true}}, nil
}

func (f *fakeBackend) AddToCart(ctx context.Context, _ *api.Session, _ string, _ int) (*api.Response, error) {
	if f.addGate != nil {
		select {
		case <-f.addGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.addErr != nil {
		return nil, f.addErr
	}
	return &api.Response{Status: http.StatusOK}, nil
}

func (f *fakeBackend) RemoveFromCart(context.Context, *api.Session, string) (*api.Response, error) {
	return &api.Response{Status: http.StatusOK}, nil
}

func decode(t *testing.T, s string) interface{} {
	t.Helper()
	v, err := normalize.Decode([]byte(s))
	require.NoError(t, err)
	return v
}

func TestFetchAllEnvelopeShapes(t *testing.T) {
	shapes := []mockstore.CartShape{
		mockstore.ShapeSuccessData, mockstore.ShapeData, mockstore.ShapeBare,
		mockstore.ShapeCartItems, mockstore.ShapeItems,
	}
	for _, shape := range shapes {
		for _, populate := range []bool{false, true} {
			t.Run(string(shape), func(t *testing.T) {
				b := testutil.NewBackend(t, mockstore.WithCartShape(shape), mockstore.WithPopulatedProducts(populate))
				b.Store.SeedCart(b.Session.Token, "p1", 2)
				b.Store.SeedCart(b.Session.Token, "p3", 1)
				s := newSync(t, b)

				c, err := s.Fetch(context.Background())
				require.NoError(t, err)
				require.Len(t, c.Lines, 2)
				assert.Equal(t, "p1", c.Lines[0].ProductID)
				assert.Equal(t, 2, c.Lines[0].Quantity)
				assert.Equal(t, "100", c.Subtotal().String())
				assert.Equal(t, "160", c.Total().String())
			})
		}
	}
}

func TestFetchSkipsLinesWithoutProductID(t *testing.T) {
	logger := &testutil.Logger{}
	fb := &fakeBackend{body: decode(t, `{"success":true,"data":[{"quantity":2},{"productId":"p1","quantity":1,"price":"10"}]}`)}
	s := NewSynchronizer(fb, &api.Session{Token: "t"}, testConfig, WithRetryExecutor(fastRetry()), WithLogger(logger))

	c, err := s.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, "p1", c.Lines[0].ProductID)
	assert.True(t, logger.HasMessage("Skipping cart line without product id"))
	warns := logger.ByLevel("WARN")
	require.Len(t, warns, 1)
	assert.Contains(t, warns[0].Fields["error"], core.ErrNoProductID.Error())
}

func TestFetchClampsOutOfRangeQuantities(t *testing.T) {
	logger := &testutil.Logger{}
	fb := &fakeBackend{body: decode(t, `[{"productId":"p1","quantity":150},{"productId":"p2","quantity":"0"},{"productId":"p3","quantity":"x"}]`)}
	s := NewSynchronizer(fb, &api.Session{Token: "t"}, testConfig, WithLogger(logger))

	c, err := s.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, c.Lines, 3)
	assert.Equal(t, 100, c.Lines[0].Quantity)
	assert.Equal(t, 1, c.Lines[1].Quantity)
	assert.Equal(t, 1, c.Lines[2].Quantity)
	assert.Len(t, logger.ByLevel("WARN"), 1)
}

func TestComputeTotals(t *testing.T) {
	fb := &fakeBackend{body: decode(t, `{"success":true,"data":[{"productId":"p1","quantity":5,"product":{"price":"20"}}]}`)}
	s := NewSynchronizer(fb, &api.Session{Token: "t"}, testConfig)

	assert.True(t, s.ComputeTotal().IsZero())
	_, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(s.ComputeSubtotal()))
	assert.True(t, decimal.NewFromInt(160).Equal(s.ComputeTotal()))
}

func TestFreeDeliveryFee(t *testing.T) {
	fb := &fakeBackend{body: decode(t, `{"data":[{"productId":"p1","quantity":1,"product":{"price":"10"}}]}`)}
	cfg := testConfig
	cfg.DeliveryFee = 0
	s := NewSynchronizer(fb, &api.Session{Token: "t"}, cfg)

	_, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(s.ComputeSubtotal()))
	assert.True(t, s.ComputeSubtotal().Equal(s.ComputeTotal()))
}

func TestFetchCollapsesConcurrentCalls(t *testing.T) {
	release := make(chan struct{})
	fb := &fakeBackend{body: []interface{}{}}
	fb.fetchFn = func() error {
		<-release
		return nil
	}
	s := NewSynchronizer(fb, &api.Session{Token: "t"}, testConfig)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Fetch(context.Background())
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&fb.fetches))
}

func TestFetchSurfacesError(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Store.FailNext("/addToCart", 3, http.StatusBadGateway, "")
	s := newSync(t, b)

	_, err := s.Fetch(context.Background())
	var apiErr *core.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, core.KindServerError, apiErr.Kind)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
}

func TestSetQuantityClampsToMaximum(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Store.SeedCart(b.Session.Token, "p1", 2)
	s := newSync(t, b)
	_, err := s.Fetch(context.Background())
	require.NoError(t, err)

	res, err := s.SetQuantity(context.Background(), "p1", 150)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCommitted, res.Outcome)
	assert.Equal(t, 100, res.Quantity)

	muts := b.Store.Mutations()
	require.Len(t, muts, 1)
	assert.Equal(t, 100, muts[0].Quantity)

	line, ok := res.Cart.Line("p1")
	require.True(t, ok)
	assert.Equal(t, 100, line.Quantity)
	assert.Equal(t, StateCommitted, s.State("p1"))
}

func TestSetQuantityDebounceSendsOnlyLast(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Store.SeedCart(b.Session.Token, "p1", 2)
	s := newSync(t, b)
	_, err := s.Fetch(context.Background())
	require.NoError(t, err)

	first := make(chan Result, 1)
	go func() {
		res, _ := s.SetQuantity(context.Background(), "p1", 3)
		first <- res
	}()
	time.Sleep(5 * time.Millisecond)
	second, err := s.SetQuantity(context.Background(), "p1", 4)
	require.NoError(t, err)

	assert.Equal(t, OutcomeSuperseded, (<-first).Outcome)
	assert.Equal(t, OutcomeCommitted, second.Outcome)

	muts := b.Store.Mutations()
	require.Len(t, muts, 1)
	assert.Equal(t, 4, muts[0].Quantity)
	assert.Equal(t, 4, b.Store.CartQuantity(b.Session.Token, "p1"))
}

func TestSetQuantityIsOptimistic(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Store.SeedCart(b.Session.Token, "p1", 2)
	cfg := testConfig
	cfg.DebounceWindow = 100 * time.Millisecond
	s := NewSynchronizer(b.Client, b.Session, cfg, WithRetryExecutor(fastRetry()))
	_, err := s.Fetch(context.Background())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.SetQuantity(context.Background(), "p1", 7)
	}()

	require.Eventually(t, func() bool {
		l, _ := s.Snapshot().Line("p1")
		return l.Quantity == 7
	}, time.Second, time.Millisecond)
	assert.Equal(t, StatePending, s.State("p1"))
	assert.Equal(t, 2, b.Store.CartQuantity(b.Session.Token, "p1"))

	// A fetch during the window keeps the pending change visible.
	c, err := s.Fetch(context.Background())
	require.NoError(t, err)
	l, _ := c.Line("p1")
	assert.Equal(t, 7, l.Quantity)

	<-done
	assert.Equal(t, 7, b.Store.CartQuantity(b.Session.Token, "p1"))
}

func TestSetQuantityIgnoredWhileInFlight(t *testing.T) {
	fb := &fakeBackend{
		body: decode(t, `[{"productId":"p1","quantity":1,"price":"20"},{"productId":"p2","quantity":1,"price":"5"}]`),
		gate: make(chan struct{}),
	}
	s := NewSynchronizer(fb, &api.Session{Token: "t"}, testConfig, WithRetryExecutor(fastRetry()))
	_, err := s.Fetch(context.Background())
	require.NoError(t, err)

	done := make(chan Result, 1)
	go func() {
		res, _ := s.SetQuantity(context.Background(), "p1", 3)
		done <- res
	}()
	require.Eventually(t, s.InFlight, time.Second, time.Millisecond)

	res, err := s.SetQuantity(context.Background(), "p2", 9)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)
	assert.ErrorIs(t, res.Reason, core.ErrMutationInFlight)
	l, _ := s.Snapshot().Line("p2")
	assert.Equal(t, 1, l.Quantity)

	res, err = s.RemoveItem(context.Background(), "p2")
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)

	close(fb.gate)
	assert.Equal(t, OutcomeCommitted, (<-done).Outcome)
	assert.False(t, s.InFlight())

	fb.mu.Lock()
	assert.Equal(t, []int{3}, fb.updates)
	fb.mu.Unlock()
}

func TestSetQuantityLosesGuardAfterDebounce(t *testing.T) {
	fb := &fakeBackend{
		body: decode(t, `[{"productId":"p1","quantity":1},{"productId":"p2","quantity":4}]`),
		gate: make(chan struct{}),
	}
	cfg := testConfig
	cfg.DebounceWindow = 30 * time.Millisecond
	s := NewSynchronizer(fb, &api.Session{Token: "t"}, cfg, WithRetryExecutor(fastRetry()))
	_, err := s.Fetch(context.Background())
	require.NoError(t, err)

	first := make(chan Result, 1)
	go func() {
		res, _ := s.SetQuantity(context.Background(), "p1", 2)
		first <- res
	}()
	// p2's window ends while p1 is still being sent.
	time.Sleep(10 * time.Millisecond)
	second := make(chan Result, 1)
	go func() {
		res, _ := s.SetQuantity(context.Background(), "p2", 8)
		second <- res
	}()

	res := <-second
	assert.Equal(t, OutcomeIgnored, res.Outcome)
	l, _ := s.Snapshot().Line("p2")
	assert.Equal(t, 4, l.Quantity, "optimistic change reverted")

	close(fb.gate)
	assert.Equal(t, OutcomeCommitted, (<-first).Outcome)
}

func TestSetQuantityRollsBackOnFailure(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Store.SeedCart(b.Session.Token, "p1", 2)
	b.Store.FailNext("/addToCart/update", 3, http.StatusInternalServerError, "")
	s := newSync(t, b)
	_, err := s.Fetch(context.Background())
	require.NoError(t, err)

	res, err := s.SetQuantity(context.Background(), "p1", 5)
	assert.Equal(t, OutcomeRolledBack, res.Outcome)
	require.Error(t, err)
	assert.Equal(t, core.KindServerError, core.KindOf(err))
	assert.Equal(t, resilience.MessageServerError, err.(*core.APIError).Message)

	l, _ := res.Cart.Line("p1")
	assert.Equal(t, 2, l.Quantity)
	assert.Equal(t, StateRolledBack, s.State("p1"))
	assert.Equal(t, 3, b.Store.RequestCount(http.MethodPut, "/addToCart/update"))
}

func TestSetQuantityRestoresBaseWhenRefetchFails(t *testing.T) {
	fb := &fakeBackend{body: decode(t, `[{"productId":"p1","quantity":2}]`)}
	s := NewSynchronizer(fb, &api.Session{Token: "t"}, testConfig, WithRetryExecutor(fastRetry()))
	_, err := s.Fetch(context.Background())
	require.NoError(t, err)

	fb.updateFn = func(string, int) error {
		return &core.HTTPError{Status: http.StatusBadRequest, ServerMessage: "Insufficient stock"}
	}
	fb.mu.Lock()
	fb.fetchFn = func() error { return &core.TransportError{Err: errors.New("connection refused")} }
	fb.mu.Unlock()

	res, err := s.SetQuantity(context.Background(), "p1", 9)
	assert.Equal(t, OutcomeRolledBack, res.Outcome)
	assert.Equal(t, core.KindValidation, core.KindOf(err))
	assert.Equal(t, "cart.SetQuantity: [VALIDATION_ERROR] Insufficient stock", err.Error())

	l, ok := res.Cart.Line("p1")
	require.True(t, ok)
	assert.Equal(t, 2, l.Quantity)
}

func TestSetQuantityNewLineRolledBackDisappears(t *testing.T) {
	fb := &fakeBackend{body: []interface{}{}}
	fb.updateFn = func(string, int) error { return &core.HTTPError{Status: http.StatusForbidden} }
	s := NewSynchronizer(fb, &api.Session{Token: "t"}, testConfig, WithRetryExecutor(fastRetry()))

	res, err := s.SetQuantity(context.Background(), "p9", 2)
	assert.Equal(t, OutcomeRolledBack, res.Outcome)
	assert.Equal(t, core.KindForbidden, core.KindOf(err))
	assert.True(t, s.Snapshot().Empty())
}

func TestSetQuantityFallsBackToAdd(t *testing.T) {
	b := testutil.NewBackend(t, mockstore.WithoutUpdateEndpoint())
	b.Store.SeedCart(b.Session.Token, "p1", 2)
	s := newSync(t, b)
	_, err := s.Fetch(context.Background())
	require.NoError(t, err)

	res, err := s.SetQuantity(context.Background(), "p1", 5)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCommitted, res.Outcome)
	assert.Equal(t, 5, b.Store.CartQuantity(b.Session.Token, "p1"))

	res, err = s.SetQuantity(context.Background(), "p1", 6)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCommitted, res.Outcome)
	assert.Equal(t, 6, b.Store.CartQuantity(b.Session.Token, "p1"))

	assert.Equal(t, 1, b.Store.RequestCount(http.MethodPut, "/addToCart/update"))
	assert.Equal(t, 2, b.Store.RequestCount(http.MethodPost, "/addToCart/add"))
}

func TestSetQuantityBelowOneRemoves(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Store.SeedCart(b.Session.Token, "p1", 2)
	b.Store.SeedCart(b.Session.Token, "p2", 1)
	s := newSync(t, b)
	_, err := s.Fetch(context.Background())
	require.NoError(t, err)

	res, err := s.SetQuantity(context.Background(), "p1", 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCommitted, res.Outcome)
	assert.Equal(t, 0, res.Quantity)
	_, ok := res.Cart.Line("p1")
	assert.False(t, ok)
	assert.Equal(t, 0, b.Store.CartQuantity(b.Session.Token, "p1"))

	muts := b.Store.Mutations()
	require.Len(t, muts, 1)
	assert.Equal(t, http.MethodDelete, muts[0].Method)
}

func TestSetQuantityCanceledDuringDebounce(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Store.SeedCart(b.Session.Token, "p1", 2)
	cfg := testConfig
	cfg.DebounceWindow = time.Second
	s := NewSynchronizer(b.Client, b.Session, cfg, WithRetryExecutor(fastRetry()))
	_, err := s.Fetch(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	res, err := s.SetQuantity(ctx, "p1", 8)
	assert.Equal(t, OutcomeRolledBack, res.Outcome)
	assert.Error(t, err)

	l, _ := s.Snapshot().Line("p1")
	assert.Equal(t, 2, l.Quantity)
	assert.Empty(t, b.Store.Mutations())
}

func TestUnauthorizedIsNotRetried(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Session = &api.Session{Token: "expired"}
	s := newSync(t, b)

	res, err := s.SetQuantity(context.Background(), "p1", 2)
	assert.Equal(t, OutcomeRolledBack, res.Outcome)
	assert.True(t, core.IsReauthRequired(err))
	assert.Equal(t, 1, b.Store.RequestCount(http.MethodPut, "/addToCart/update"))
}

func TestRemoveItem(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Store.SeedCart(b.Session.Token, "p1", 2)
	s := newSync(t, b)
	_, err := s.Fetch(context.Background())
	require.NoError(t, err)

	res, err := s.RemoveItem(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCommitted, res.Outcome)
	assert.True(t, res.Cart.Empty())

	// Already gone on the backend: still a success.
	res, err = s.RemoveItem(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCommitted, res.Outcome)
}

func TestRemoveItemFailureRestoresLine(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Store.SeedCart(b.Session.Token, "p1", 2)
	b.Store.FailNext("/addToCart/remove", 3, http.StatusServiceUnavailable, "")
	s := newSync(t, b)
	_, err := s.Fetch(context.Background())
	require.NoError(t, err)

	res, err := s.RemoveItem(context.Background(), "p1")
	assert.Equal(t, OutcomeRolledBack, res.Outcome)
	assert.Equal(t, core.KindServerError, core.KindOf(err))
	l, ok := res.Cart.Line("p1")
	require.True(t, ok)
	assert.Equal(t, 2, l.Quantity)
}

func TestAddItem(t *testing.T) {
	b := testutil.NewBackend(t)
	s := newSync(t, b)

	res, err := s.AddItem(context.Background(), "p3", 2)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCommitted, res.Outcome)
	l, ok := res.Cart.Line("p3")
	require.True(t, ok)
	assert.Equal(t, 2, l.Quantity)
	assert.Equal(t, "60", l.UnitPrice.String())
	assert.Equal(t, "180", res.Cart.Total().String())

	res, err = s.AddItem(context.Background(), "nope", 1)
	assert.Equal(t, OutcomeRolledBack, res.Outcome)
	assert.True(t, core.IsNotFound(err))
}

func TestAddItemIsOptimistic(t *testing.T) {
	fb := &fakeBackend{
		body:    decode(t, `[{"productId":"p1","quantity":1,"price":"20"}]`),
		addGate: make(chan struct{}),
	}
	s := NewSynchronizer(fb, &api.Session{Token: "t"}, testConfig, WithRetryExecutor(fastRetry()))
	_, err := s.Fetch(context.Background())
	require.NoError(t, err)

	done := make(chan Result, 1)
	go func() {
		res, _ := s.AddItem(context.Background(), "p2", 3)
		done <- res
	}()
	require.Eventually(t, func() bool {
		l, ok := s.Snapshot().Line("p2")
		return ok && l.Quantity == 3
	}, time.Second, time.Millisecond)
	assert.Equal(t, StatePending, s.State("p2"))

	close(fb.addGate)
	assert.Equal(t, OutcomeCommitted, (<-done).Outcome)
	assert.Equal(t, StateCommitted, s.State("p2"))
}

func TestAddItemFailureRemovesOptimisticLine(t *testing.T) {
	fb := &fakeBackend{
		body:   decode(t, `[{"productId":"p1","quantity":1,"price":"20"}]`),
		addErr: &core.HTTPError{Status: http.StatusBadRequest, ServerMessage: "Out of stock"},
	}
	s := NewSynchronizer(fb, &api.Session{Token: "t"}, testConfig, WithRetryExecutor(fastRetry()))
	_, err := s.Fetch(context.Background())
	require.NoError(t, err)

	res, err := s.AddItem(context.Background(), "p2", 2)
	assert.Equal(t, OutcomeRolledBack, res.Outcome)
	assert.Equal(t, core.KindValidation, core.KindOf(err))
	_, ok := res.Cart.Line("p2")
	assert.False(t, ok)
	assert.Len(t, res.Cart.Lines, 1)
	assert.Equal(t, StateRolledBack, s.State("p2"))
}

func TestFetchSurvivesOtherCallerCanceling(t *testing.T) {
	release := make(chan struct{})
	fb := &fakeBackend{body: decode(t, `[{"productId":"p1","quantity":2,"price":"20"}]`)}
	fb.fetchFn = func() error {
		<-release
		return nil
	}
	s := NewSynchronizer(fb, &api.Session{Token: "t"}, testConfig, WithRetryExecutor(fastRetry()))

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := s.Fetch(ctx)
		first <- err
	}()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&fb.fetches) == 1 }, time.Second, time.Millisecond)

	second := make(chan error, 1)
	var got Cart
	go func() {
		c, err := s.Fetch(context.Background())
		got = c
		second <- err
	}()

	cancel()
	err := <-first
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	require.NoError(t, <-second)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 2, got.Lines[0].Quantity)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fb.fetches))
}

func TestAutoRefresh(t *testing.T) {
	b := testutil.NewBackend(t)
	cfg := testConfig
	cfg.RefreshInterval = 10 * time.Millisecond
	s := NewSynchronizer(b.Client, b.Session, cfg, WithRetryExecutor(fastRetry()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.AutoRefresh(ctx)
		close(done)
	}()

	b.Store.SeedCart(b.Session.Token, "p4", 3)
	require.Eventually(t, func() bool {
		l, ok := s.Snapshot().Line("p4")
		return ok && l.Quantity == 3
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("AutoRefresh did not stop")
	}
}
