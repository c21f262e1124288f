package cart

import (
	"github.com/shopspring/decimal"

	"github.com/itsneelabh/storesync/identity"
	"github.com/itsneelabh/storesync/normalize"
)

// Quantity bounds for a cart line.
const (
	MinQuantity = 1
	MaxQuantity = 100
)

// DefaultDeliveryFee is charged whenever the subtotal is positive.
var DefaultDeliveryFee = decimal.NewFromInt(60)

// Line is one product in the cart.
type Line struct {
	ProductID string           `json:"product_id"`
	Quantity  int              `json:"quantity"`
	UnitPrice decimal.Decimal  `json:"unit_price"`
	Name      string           `json:"name,omitempty"`
	ImageURL  string           `json:"image_url,omitempty"`
	Raw       normalize.Record `json:"-"`
}

// Total is UnitPrice times Quantity.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// NormalizeQuantity coerces a raw quantity into [MinQuantity, MaxQuantity].
// Missing or non-numeric values become MinQuantity.
func NormalizeQuantity(v interface{}) int {
	q, ok := normalize.Int(v)
	if !ok {
		return MinQuantity
	}
	return clampQuantity(q)
}

func clampQuantity(q int) int {
	switch {
	case q < MinQuantity:
		return MinQuantity
	case q > MaxQuantity:
		return MaxQuantity
	default:
		return q
	}
}

// ResolveUnitPrice looks for the price on the populated product first, then
// on the line itself. Unparsable prices count as zero.
func ResolveUnitPrice(r normalize.Record) decimal.Decimal {
	for _, path := range []string{"product.price", "productId.price", "price"} {
		if d, ok := normalize.DecimalAt(r, path); ok && !d.IsZero() {
			return d
		}
	}
	return decimal.Zero
}

// LineFromRecord maps a backend cart line. It fails when no product id can
// be resolved.
func LineFromRecord(r normalize.Record) (Line, bool) {
	id, ok := identity.ProductID(r)
	if !ok {
		return Line{}, false
	}
	qty, _ := normalize.Lookup(r, "quantity")
	return Line{
		ProductID: id,
		Quantity:  NormalizeQuantity(qty),
		UnitPrice: ResolveUnitPrice(r),
		Name:      normalize.String(r, "product.name", "product.productName", "productId.productName", "productId.name", "productName", "name"),
		ImageURL:  normalize.String(r, "product.productImage", "product.image", "productId.productImage", "productId.image", "productImage", "image"),
		Raw:       r,
	}, true
}

// Cart is a snapshot of the cart lines.
type Cart struct {
	Lines       []Line          `json:"lines"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
}

// Subtotal sums the line totals.
func (c Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.Lines {
		sum = sum.Add(l.Total())
	}
	return sum
}

// Fee is the delivery fee applied to this cart: DeliveryFee when the
// subtotal is positive, zero otherwise.
func (c Cart) Fee() decimal.Decimal {
	if c.Subtotal().IsPositive() {
		return c.DeliveryFee
	}
	return decimal.Zero
}

// Total is Subtotal plus Fee.
func (c Cart) Total() decimal.Decimal {
	return c.Subtotal().Add(c.Fee())
}

// ItemCount is the total quantity across lines.
func (c Cart) ItemCount() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// Line returns the line for productID.
func (c Cart) Line(productID string) (Line, bool) {
	for _, l := range c.Lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return Line{}, false
}

// Empty reports whether the cart has no lines.
func (c Cart) Empty() bool {
	return len(c.Lines) == 0
}
