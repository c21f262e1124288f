package orders

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/itsneelabh/storesync/cart"
	"github.com/itsneelabh/storesync/core"
)

// Payment methods the backend accepts.
const (
	PaymentCashOnDelivery = "cash_on_delivery"
	PaymentBkash          = "bkash"
)

// Item is one product in an order request.
type Item struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"min=1,max=100"`
}

// ShippingAddress is where the order goes.
type ShippingAddress struct {
	FullName    string `json:"fullName" validate:"required"`
	PhoneNumber string `json:"phoneNumber" validate:"required"`
	Address     string `json:"address" validate:"required"`
	City        string `json:"city" validate:"required"`
	PostalCode  string `json:"postalCode,omitempty"`
}

// PlaceOrderRequest is the body of the order creation call.
type PlaceOrderRequest struct {
	Items           []Item          `json:"items" validate:"required,min=1,dive"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod" validate:"required,oneof=cash_on_delivery bkash"`
	OrderNotes      string          `json:"orderNotes,omitempty"`
	DeliveryFee     float64         `json:"deliveryFee"`
}

var validate = validator.New()

// fieldLabels names request fields the way a checkout form does.
var fieldLabels = map[string]string{
	"Items":         "at least one item",
	"ProductID":     "a product for every item",
	"Quantity":      "a quantity between 1 and 100 for every item",
	"FullName":      "full name",
	"PhoneNumber":   "phone number",
	"Address":       "address",
	"City":          "city",
	"PaymentMethod": "a payment method (cash on delivery or bKash)",
}

// Validate checks the request before anything is sent. A failure is a
// core.KindValidation APIError whose message lists the missing fields; the
// field-level detail wraps core.ErrInvalidOrder underneath.
func (r PlaceOrderRequest) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return core.NewAPIError("orders.Validate", core.KindValidation, "Please check your order details.",
			&core.FrameworkError{Op: "orders.Validate", Kind: "order", Message: err.Error(), Err: core.ErrInvalidOrder})
	}
	fields := make([]string, 0, len(verrs))
	labels := make([]string, 0, len(verrs))
	seen := make(map[string]bool, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
		label, ok := fieldLabels[fe.StructField()]
		if !ok {
			label = strings.ToLower(fe.Field())
		}
		if !seen[label] {
			seen[label] = true
			labels = append(labels, label)
		}
	}
	return core.NewAPIError("orders.Validate", core.KindValidation, "Please provide: "+strings.Join(labels, ", "),
		&core.FrameworkError{
			Op:      "orders.Validate",
			Kind:    "order",
			Message: "invalid fields: " + strings.Join(fields, ", "),
			Err:     core.ErrInvalidOrder,
		})
}

// NewRequestFromCart builds an order request from the cart's lines.
func NewRequestFromCart(c cart.Cart, addr ShippingAddress, paymentMethod, notes string) (PlaceOrderRequest, error) {
	if c.Empty() {
		return PlaceOrderRequest{}, core.NewAPIError("orders.NewRequestFromCart", core.KindValidation, "Your cart is empty.",
			&core.FrameworkError{Op: "orders.NewRequestFromCart", Kind: "order", Err: core.ErrEmptyCart})
	}
	items := make([]Item, 0, len(c.Lines))
	for _, l := range c.Lines {
		items = append(items, Item{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	if paymentMethod == "" {
		paymentMethod = PaymentCashOnDelivery
	}
	return PlaceOrderRequest{
		Items:           items,
		ShippingAddress: addr,
		PaymentMethod:   paymentMethod,
		OrderNotes:      notes,
		DeliveryFee:     c.Fee().InexactFloat64(),
	}, nil
}
