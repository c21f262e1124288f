package orders

import (
	"context"
	"net/http"

	"github.com/itsneelabh/storesync/api"
	"github.com/itsneelabh/storesync/core"
	"github.com/itsneelabh/storesync/normalize"
	"github.com/itsneelabh/storesync/resilience"
	"github.com/itsneelabh/storesync/telemetry"
)

var listKeys = []string{"data", "orders"}

// Backend is the subset of api.Client used for orders.
type Backend interface {
	FetchOrders(ctx context.Context, sess *api.Session) (*api.Response, error)
	CreateOrder(ctx context.Context, sess *api.Session, payload interface{}) (*api.Response, error)
	CancelOrder(ctx context.Context, sess *api.Session, orderID string) (*api.Response, error)
}

// Placement is the backend's answer to a placed order.
type Placement struct {
	OrderID string
	Message string
	Raw     interface{}
}

// Service talks to the order endpoints.
type Service struct {
	backend Backend
	retry   *resilience.RetryExecutor
	logger  core.Logger
}

// NewService creates an order service. A nil logger is replaced with a
// no-op one.
func NewService(backend Backend, retry *resilience.RetryExecutor, logger core.Logger) *Service {
	if retry == nil {
		retry = resilience.NewRetryExecutor(nil)
	}
	return &Service{backend: backend, retry: retry, logger: core.WithComponent(logger, "orders")}
}

// List returns the order history.
func (s *Service) List(ctx context.Context, sess *api.Session) ([]Order, error) {
	resp, err := resilience.RetryValue(ctx, s.retry, "orders.list", func(ctx context.Context) (*api.Response, error) {
		return s.backend.FetchOrders(ctx, sess)
	})
	if err != nil {
		return nil, resilience.Surface("orders.List", err)
	}

	records := normalize.ExtractRecords(resp.Body, listKeys...)
	out := make([]Order, 0, len(records))
	for _, r := range records {
		if o, ok := FromRecord(r); ok {
			out = append(out, o)
			continue
		}
		s.logger.Warn("Skipping order without id", map[string]interface{}{
			"operation": "orders_list",
		})
	}
	return out, nil
}

// Place validates and submits req. It is sent once; creating an order is
// not idempotent, so failures are never retried.
func (s *Service) Place(ctx context.Context, sess *api.Session, req PlaceOrderRequest) (*Placement, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "orders.Place")
	resp, err := s.backend.CreateOrder(ctx, sess, req)
	telemetry.EndSpan(span, err)
	if err != nil {
		s.logger.Warn("Order placement failed", map[string]interface{}{
			"operation": "orders_place",
			"items":     len(req.Items),
			"error":     err.Error(),
		})
		return nil, resilience.Surface("orders.Place", err)
	}

	obj, _ := normalize.Object(resp.Body)
	if !normalize.IsSuccess(obj) && resp.Status != http.StatusOK && resp.Status != http.StatusCreated {
		return nil, resilience.Surface("orders.Place", &core.HTTPError{
			Method:        http.MethodPost,
			Status:        resp.Status,
			ServerMessage: normalize.Message(resp.Body),
			Body:          resp.Body,
		})
	}

	p := &Placement{
		OrderID: normalize.String(obj, "data.orderId", "orderId", "data._id"),
		Message: normalize.Message(resp.Body),
		Raw:     resp.Body,
	}
	s.logger.Info("Order placed", map[string]interface{}{
		"operation": "orders_place",
		"order_id":  p.OrderID,
		"items":     len(req.Items),
	})
	return p, nil
}

// Cancel cancels a pending order.
func (s *Service) Cancel(ctx context.Context, sess *api.Session, orderID string) error {
	if orderID == "" {
		return core.NewAPIError("orders.Cancel", core.KindNotFound, resilience.MessageNotFound,
			&core.FrameworkError{Op: "orders.Cancel", Kind: "order", Err: core.ErrOrderNotFound})
	}
	err := s.retry.Execute(ctx, "orders.cancel", func(ctx context.Context) error {
		_, err := s.backend.CancelOrder(ctx, sess, orderID)
		return err
	})
	if err != nil {
		return resilience.Surface("orders.Cancel", err)
	}
	s.logger.Info("Order cancelled", map[string]interface{}{
		"operation": "orders_cancel",
		"order_id":  orderID,
	})
	return nil
}
