// Package mockstore is an in-memory storefront backend that speaks the same
// JSON dialect as the real one, including its inconsistent response shapes.
// It backs the client tests and the cmd/mockstore development server.
package mockstore

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// CartShape selects how GET /addToCart wraps the cart lines.
type CartShape string

const (
	ShapeSuccessData CartShape = "success-data" // {"success":true,"data":[...]}
	ShapeData        CartShape = "data"         // {"data":[...]}
	ShapeBare        CartShape = "bare"         // [...]
	ShapeCartItems   CartShape = "cartItems"    // {"cartItems":[...]}
	ShapeItems       CartShape = "items"        // {"success":true,"items":[...]}
)

// APIPrefix is where the storefront routes are mounted.
const APIPrefix = "/api/v1"

// Option configures a Store.
type Option func(*Store)

// WithCartShape sets the cart response envelope.
func WithCartShape(shape CartShape) Option {
	return func(s *Store) { s.cartShape = shape }
}

// WithPopulatedProducts embeds the product document in each cart line
// instead of sending the bare product id.
func WithPopulatedProducts(populate bool) Option {
	return func(s *Store) { s.populate = populate }
}

// WithoutUpdateEndpoint makes the quantity update endpoint answer 404, as
// older backends did.
func WithoutUpdateEndpoint() Option {
	return func(s *Store) { s.disableUpdate = true }
}

// WithLatency delays every storefront response.
func WithLatency(d time.Duration) Option {
	return func(s *Store) { s.latency = d }
}

type cartLine struct {
	ProductID string
	Quantity  int
}

// Store holds all backend state behind one lock.
type Store struct {
	mu sync.RWMutex

	products   []Product
	categories []Category
	users      map[string]*User  // phone -> user
	sessions   map[string]string // token -> user id
	carts      map[string][]cartLine
	orders     map[string][]*Order
	wishlists  map[string][]WishlistEntry

	cartShape     CartShape
	populate      bool
	disableUpdate bool
	latency       time.Duration

	faults       []*Fault
	requests     []seenRequest
	requestTotal int64
	mutations    []Mutation
	orderSeq     int
}

// New returns a seeded Store.
func New(opts ...Option) *Store {
	s := &Store{
		users:     make(map[string]*User),
		sessions:  make(map[string]string),
		carts:     make(map[string][]cartLine),
		orders:    make(map[string][]*Order),
		wishlists: make(map[string][]WishlistEntry),
		cartShape: ShapeSuccessData,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Seed()
	return s
}

// Seed loads the demo catalog and the demo consumer account.
func (s *Store) Seed() {
	s.mu.Lock()
	defer s.mu.Unlock()

	rice := Category{ID: "cat-rice", Name: "Rice"}
	fruits := Category{ID: "cat-fruits", Name: "Fruits"}
	pulses := Category{ID: "cat-pulses", Name: "Pulses"}
	oil := Category{ID: "cat-oil", Name: "Oil"}
	dairy := Category{ID: "cat-dairy", Name: "Dairy"}
	s.categories = []Category{rice, fruits, pulses, oil, dairy}

	s.products = []Product{
		{ID: "p1", Name: "Fresh Rice", Description: "Locally milled rice", Price: "20", Category: rice, Stock: 500},
		{ID: "p2", Name: "Basmati Rice", Description: "Long grain aromatic rice", Price: "120.50", Category: rice, Stock: 120},
		{ID: "p3", Name: "Banana", Description: "Sweet ripe bananas", Price: "60", Category: fruits, Stock: 80, Discount: "5"},
		{ID: "p4", Name: "Red Lentils", Description: "Masoor dal", Price: "110", Category: pulses, Stock: 200},
		{ID: "p5", Name: "Mustard Oil", Description: "Cold pressed mustard oil", Price: "250", Category: oil, Stock: 40},
		{ID: "p6", Name: "Fresh Milk", Description: "Pasteurised cow milk", Price: "90", Category: dairy, Stock: 60},
	}

	s.users[DemoPhone] = &User{ID: "u-1", Name: "Demo Consumer", Phone: DemoPhone, Password: DemoPassword}
}

// Demo account credentials.
const (
	DemoPhone    = "01700000000"
	DemoPassword = "secret"
)

// IssueToken opens a session for the demo consumer without going through
// the login endpoint.
func (s *Store) IssueToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := uuid.NewString()
	s.sessions[token] = s.users[DemoPhone].ID
	return token
}

// SetCartShape changes the cart envelope at runtime.
func (s *Store) SetCartShape(shape CartShape) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cartShape = shape
}

// SeedCart puts a line straight into a session's cart. Quantities outside
// the valid range are stored as given.
func (s *Store) SeedCart(token, productID string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID := s.sessions[token]
	s.carts[userID] = setLine(s.carts[userID], productID, quantity)
}

// CartQuantity returns the server-side quantity of productID in the
// session's cart, or 0.
func (s *Store) CartQuantity(token, productID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.carts[s.sessions[token]] {
		if l.ProductID == productID {
			return l.Quantity
		}
	}
	return 0
}

// Mutations returns a copy of the recorded cart writes.
func (s *Store) Mutations() []Mutation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Mutation, len(s.mutations))
	copy(out, s.mutations)
	return out
}

// SetOrderStatus forces an order into a status, for cancellation tests.
func (s *Store) SetOrderStatus(token, orderID, status string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders[s.sessions[token]] {
		if o.OrderID == orderID || o.ID == orderID {
			o.OrderStatus = status
			return true
		}
	}
	return false
}

// Handler returns the full router: health, admin and the storefront API
// under APIPrefix.
func (s *Store) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "mockstore"})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Post("/inject-error", s.adminInjectFault)
		r.Post("/reset", s.adminReset)
		r.Get("/status", s.adminStatus)
	})

	r.Route(APIPrefix, func(r chi.Router) {
		r.Use(s.faultMiddleware)
		r.Use(s.latencyMiddleware)

		r.Post("/login", s.login)
		r.Get("/consumer/products", s.listProducts)
		r.Get("/consumer/products/{id}", s.getProduct)
		r.Get("/consumer/view-all-category", s.listCategories)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)

			r.Post("/logout", s.logout)
			r.Get("/profile", s.profile)

			r.Get("/addToCart", s.getCart)
			r.Post("/addToCart/add", s.addToCart)
			r.Put("/addToCart/update", s.updateCart)
			r.Delete("/addToCart/remove/{id}", s.removeFromCart)

			r.Get("/orders", s.listOrders)
			r.Post("/orders/create", s.createOrder)
			r.Put("/orders/cancel/{id}", s.cancelOrder)

			r.Get("/wishlist", s.getWishlist)
			r.Post("/wishlist/add", s.addToWishlist)
			r.Delete("/wishlist/{id}", s.removeFromWishlist)
		})
	})
	return r
}

func (s *Store) latencyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		d := s.latency
		s.mu.RUnlock()
		if d > 0 {
			select {
			case <-time.After(d):
			case <-r.Context().Done():
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Store) productByID(id string) (Product, bool) {
	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

func setLine(lines []cartLine, productID string, quantity int) []cartLine {
	for i := range lines {
		if lines[i].ProductID == productID {
			lines[i].Quantity = quantity
			return lines
		}
	}
	return append(lines, cartLine{ProductID: productID, Quantity: quantity})
}
