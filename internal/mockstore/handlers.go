package mockstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ctxKey struct{}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{"success": false, "message": message})
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

func (s *Store) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.RLock()
		id, ok := s.sessions[token]
		s.mu.RUnlock()
		if token == "" || !ok {
			fail(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func (s *Store) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	user, ok := s.users[req.Phone]
	if !ok || user.Password != req.Password {
		s.mu.Unlock()
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
		return
	}
	token := uuid.NewString()
	s.sessions[token] = user.ID
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Login successful",
		"token":   token,
		"user":    user,
	})
}

func (s *Store) logout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Logged out"})
}

func (s *Store) profile(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ID == userID(r) {
			writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": u})
			return
		}
	}
	fail(w, http.StatusNotFound, "User not found")
}

func (s *Store) listProducts(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	s.mu.RLock()
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		if category == "" || strings.EqualFold(p.Category.Name, category) || p.Category.ID == category {
			out = append(out, p)
		}
	}
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{"products": out})
}

func (s *Store) getProduct(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	p, ok := s.productByID(chi.URLParam(r, "id"))
	s.mu.RUnlock()
	if !ok {
		fail(w, http.StatusNotFound, "Product not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "product": p})
}

func (s *Store) listCategories(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	out := append([]Category(nil), s.categories...)
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{"categories": out})
}

// renderLine builds the wire form of one cart line. Lines carry their own
// _id so clients must not mistake it for the product id.
func (s *Store) renderLine(l cartLine) map[string]interface{} {
	line := map[string]interface{}{
		"_id":      "line-" + l.ProductID,
		"quantity": l.Quantity,
	}
	p, ok := s.productByID(l.ProductID)
	if s.populate && ok {
		line["productId"] = p
		return line
	}
	line["productId"] = l.ProductID
	if ok {
		line["price"] = p.Price
		line["productName"] = p.Name
	}
	return line
}

func (s *Store) getCart(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	lines := make([]map[string]interface{}, 0)
	for _, l := range s.carts[userID(r)] {
		lines = append(lines, s.renderLine(l))
	}
	shape := s.cartShape
	s.mu.RUnlock()

	switch shape {
	case ShapeBare:
		writeJSON(w, http.StatusOK, lines)
	case ShapeData:
		writeJSON(w, http.StatusOK, map[string]interface{}{"data": lines})
	case ShapeCartItems:
		writeJSON(w, http.StatusOK, map[string]interface{}{"cartItems": lines})
	case ShapeItems:
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "items": lines})
	default:
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": lines})
	}
}

type quantityRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (s *Store) decodeQuantity(w http.ResponseWriter, r *http.Request) (quantityRequest, bool) {
	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return req, false
	}
	if req.ProductID == "" {
		fail(w, http.StatusBadRequest, "productId is required")
		return req, false
	}
	return req, true
}

func (s *Store) record(r *http.Request, productID string, quantity int) {
	s.mutations = append(s.mutations, Mutation{
		Method:    r.Method,
		Path:      r.URL.Path,
		ProductID: productID,
		Quantity:  quantity,
		At:        time.Now(),
	})
}

func (s *Store) addToCart(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeQuantity(w, r)
	if !ok {
		return
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(r, req.ProductID, req.Quantity)
	if _, ok := s.productByID(req.ProductID); !ok {
		fail(w, http.StatusNotFound, "Product not found")
		return
	}
	s.carts[userID(r)] = setLine(s.carts[userID(r)], req.ProductID, req.Quantity)
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Product added to cart"})
}

func (s *Store) updateCart(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	disabled := s.disableUpdate
	s.mu.RUnlock()
	if disabled {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Cannot PUT " + r.URL.Path})
		return
	}

	req, ok := s.decodeQuantity(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(r, req.ProductID, req.Quantity)
	lines := s.carts[userID(r)]
	for i := range lines {
		if lines[i].ProductID == req.ProductID {
			lines[i].Quantity = req.Quantity
			writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Cart updated"})
			return
		}
	}
	fail(w, http.StatusNotFound, "Item not found in cart")
}

func (s *Store) removeFromCart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(r, id, 0)
	lines := s.carts[userID(r)]
	for i := range lines {
		if lines[i].ProductID == id {
			s.carts[userID(r)] = append(lines[:i], lines[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Item removed"})
			return
		}
	}
	fail(w, http.StatusNotFound, "Item not found in cart")
}

func (s *Store) listOrders(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	orders := append([]*Order(nil), s.orders[userID(r)]...)
	s.mu.RUnlock()
	if orders == nil {
		orders = []*Order{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": orders})
}

type createOrderRequest struct {
	Items []struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
	ShippingAddress map[string]string `json:"shippingAddress"`
	PaymentMethod   string            `json:"paymentMethod"`
	OrderNotes      string            `json:"orderNotes"`
}

const deliveryFee = 60

func (s *Store) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Items) == 0 {
		fail(w, http.StatusBadRequest, "Order must contain at least one item")
		return
	}
	if req.PaymentMethod != "cash_on_delivery" && req.PaymentMethod != "bkash" {
		fail(w, http.StatusBadRequest, "Invalid payment method")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.NewFromInt(deliveryFee)
	items := make([]OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		p, ok := s.productByID(it.ProductID)
		if !ok {
			fail(w, http.StatusNotFound, fmt.Sprintf("Product %s not found", it.ProductID))
			return
		}
		price, _ := decimal.NewFromString(p.Price)
		total = total.Add(price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		items = append(items, OrderItem{ProductID: p.ID, Quantity: it.Quantity, Price: p.Price})
	}

	s.orderSeq++
	order := &Order{
		ID:              uuid.NewString(),
		OrderID:         "ORD-" + strconv.Itoa(1000+s.orderSeq),
		UserID:          userID(r),
		Items:           items,
		OrderStatus:     "pending",
		TotalAmount:     total.StringFixed(2),
		DeliveryFee:     deliveryFee,
		PaymentMethod:   req.PaymentMethod,
		OrderNotes:      req.OrderNotes,
		ShippingAddress: req.ShippingAddress,
		CreatedAt:       time.Now().UTC(),
	}
	s.orders[userID(r)] = append(s.orders[userID(r)], order)
	delete(s.carts, userID(r))

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Order placed successfully",
		"data":    map[string]string{"orderId": order.OrderID, "_id": order.ID},
	})
}

func (s *Store) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders[userID(r)] {
		if o.OrderID != id && o.ID != id {
			continue
		}
		if o.OrderStatus != "pending" {
			fail(w, http.StatusBadRequest, "Only pending orders can be cancelled")
			return
		}
		o.OrderStatus = "cancelled"
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Order cancelled", "data": o})
		return
	}
	fail(w, http.StatusNotFound, "Order not found")
}

func (s *Store) getWishlist(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	items := make([]map[string]interface{}, 0)
	counts := make(map[string]int)
	for _, e := range s.wishlists[userID(r)] {
		p, ok := s.productByID(e.ProductID)
		if !ok {
			continue
		}
		items = append(items, map[string]interface{}{"_id": e.ID, "productId": p})
		counts[p.Category.Name]++
	}
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    map[string]interface{}{"items": items, "categoryCounts": counts},
	})
}

func (s *Store) addToWishlist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string `json:"productId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		fail(w, http.StatusBadRequest, "productId is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.productByID(req.ProductID); !ok {
		fail(w, http.StatusNotFound, "Product not found")
		return
	}
	for _, e := range s.wishlists[userID(r)] {
		if e.ProductID == req.ProductID {
			fail(w, http.StatusBadRequest, "Product already in wishlist")
			return
		}
	}
	entry := WishlistEntry{ID: uuid.NewString(), ProductID: req.ProductID}
	s.wishlists[userID(r)] = append(s.wishlists[userID(r)], entry)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "data": entry})
}

func (s *Store) removeFromWishlist(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.wishlists[userID(r)]
	for i := range entries {
		if entries[i].ID == id {
			s.wishlists[userID(r)] = append(entries[:i], entries[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Removed from wishlist"})
			return
		}
	}
	fail(w, http.StatusNotFound, "Wishlist item not found")
}
