package mockstore

import "time"

// Product mirrors the backend's product document. Price is a string because
// the real backend sends it that way.
type Product struct {
	ID          string   `json:"_id"`
	Name        string   `json:"productName"`
	Description string   `json:"description"`
	Price       string   `json:"price"`
	Category    Category `json:"category"`
	Image       string   `json:"productImage,omitempty"`
	Stock       int      `json:"stock"`
	Discount    string   `json:"discount,omitempty"`
}

// Category is a product category.
type Category struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// User is a seeded consumer account.
type User struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Password string `json:"-"`
}

// OrderItem is one order line.
type OrderItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

// Order is a placed order.
type Order struct {
	ID              string            `json:"_id"`
	OrderID         string            `json:"orderId"`
	UserID          string            `json:"userId"`
	Items           []OrderItem       `json:"items"`
	OrderStatus     string            `json:"orderStatus"`
	TotalAmount     string            `json:"totalAmount"`
	DeliveryFee     float64           `json:"deliveryFee"`
	PaymentMethod   string            `json:"paymentMethod"`
	OrderNotes      string            `json:"orderNotes,omitempty"`
	ShippingAddress map[string]string `json:"shippingAddress"`
	CreatedAt       time.Time         `json:"createdAt"`
}

// WishlistEntry links a user to a product.
type WishlistEntry struct {
	ID        string `json:"_id"`
	ProductID string `json:"productId"`
}

// Mutation is a recorded cart write, used by tests to assert what the client
// actually sent.
type Mutation struct {
	Method    string
	Path      string
	ProductID string
	Quantity  int
	At        time.Time
}
