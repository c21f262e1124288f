// Package orders lists, places and cancels storefront orders.
package orders

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/itsneelabh/storesync/identity"
	"github.com/itsneelabh/storesync/normalize"
)

// Status is an order's lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusCompleted  Status = "completed"
	StatusUnknown    Status = "unknown"
)

var knownStatuses = map[Status]struct{}{
	StatusPending: {}, StatusConfirmed: {}, StatusProcessing: {}, StatusShipped: {},
	StatusDelivered: {}, StatusCancelled: {}, StatusCompleted: {},
}

// ParseStatus matches case-insensitively. An empty string is pending; any
// other unrecognised value is StatusUnknown.
func ParseStatus(s string) Status {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return StatusPending
	}
	if s == "canceled" {
		return StatusCancelled
	}
	if _, ok := knownStatuses[Status(s)]; ok {
		return Status(s)
	}
	return StatusUnknown
}

// Order is one entry of the order history.
type Order struct {
	ID            string           `json:"id"`
	Status        Status           `json:"status"`
	Total         decimal.Decimal  `json:"total"`
	ItemCount     int              `json:"item_count"`
	PaymentMethod string           `json:"payment_method,omitempty"`
	CreatedAt     time.Time        `json:"created_at,omitempty"`
	Raw           normalize.Record `json:"-"`
}

// Cancellable reports whether the user may still cancel the order.
func (o Order) Cancellable() bool {
	return o.Status == StatusPending
}

// FromRecord maps an order record. Records without any id are rejected.
func FromRecord(r normalize.Record) (Order, bool) {
	id, ok := identity.OrderID(r)
	if !ok {
		return Order{}, false
	}
	o := Order{
		ID:            id,
		Status:        ParseStatus(normalize.String(r, "orderStatus", "status")),
		ItemCount:     itemCount(r),
		PaymentMethod: normalize.String(r, "paymentMethod"),
		CreatedAt:     parseTime(normalize.String(r, "createdAt", "orderDate", "date")),
		Raw:           r,
	}
	o.Total, _ = normalize.DecimalAt(r, "totalAmount", "total", "orderInfo.total", "amount")
	return o, true
}

func itemCount(r normalize.Record) int {
	if v, ok := normalize.Lookup(r, "totalItems"); ok {
		if n, ok := normalize.Int(v); ok {
			return n
		}
	}
	for _, path := range []string{"orderInfo.items", "items", "products"} {
		if v, ok := normalize.First(r, path); ok {
			if arr, ok := normalize.Array(v); ok {
				return len(arr)
			}
		}
	}
	return 0
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// FilterByStatus keeps orders in status. An empty status returns the input.
func FilterByStatus(orders []Order, status Status) []Order {
	if status == "" {
		return orders
	}
	out := make([]Order, 0)
	for _, o := range orders {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out
}

// CountByStatus tallies orders per status.
func CountByStatus(orders []Order) map[Status]int {
	counts := make(map[Status]int)
	for _, o := range orders {
		counts[o.Status]++
	}
	return counts
}
