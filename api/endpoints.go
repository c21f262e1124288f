package api

import (
	"context"
	"net/http"
)

// QuantityRequest is the body of cart add and update calls.
type QuantityRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// ProductRequest is the body of wishlist add calls.
type ProductRequest struct {
	ProductID string `json:"productId"`
}

// FetchProducts lists the catalog.
func (c *Client) FetchProducts(ctx context.Context, sess *Session) (*Response, error) {
	return c.Do(ctx, sess, http.MethodGet, c.endpoints.Products, "", nil)
}

// FetchProduct loads one product's details.
func (c *Client) FetchProduct(ctx context.Context, sess *Session, productID string) (*Response, error) {
	return c.Do(ctx, sess, http.MethodGet, c.endpoints.ProductDetails, productID, nil)
}

// FetchCategories lists product categories.
func (c *Client) FetchCategories(ctx context.Context, sess *Session) (*Response, error) {
	return c.Do(ctx, sess, http.MethodGet, c.endpoints.Categories, "", nil)
}

// FetchCart loads the session's cart.
func (c *Client) FetchCart(ctx context.Context, sess *Session) (*Response, error) {
	return c.Do(ctx, sess, http.MethodGet, c.endpoints.Cart, "", nil)
}

// AddToCart adds productID with quantity to the cart.
func (c *Client) AddToCart(ctx context.Context, sess *Session, productID string, quantity int) (*Response, error) {
	return c.Do(ctx, sess, http.MethodPost, c.endpoints.CartAdd, "", QuantityRequest{ProductID: productID, Quantity: quantity})
}

// UpdateCartQuantity sets the quantity of a cart line.
func (c *Client) UpdateCartQuantity(ctx context.Context, sess *Session, productID string, quantity int) (*Response, error) {
	return c.Do(ctx, sess, http.MethodPut, c.endpoints.CartUpdate, "", QuantityRequest{ProductID: productID, Quantity: quantity})
}

// RemoveFromCart deletes the cart line for productID.
func (c *Client) RemoveFromCart(ctx context.Context, sess *Session, productID string) (*Response, error) {
	return c.Do(ctx, sess, http.MethodDelete, c.endpoints.CartRemove, productID, nil)
}

// FetchOrders lists the session's orders.
func (c *Client) FetchOrders(ctx context.Context, sess *Session) (*Response, error) {
	return c.Do(ctx, sess, http.MethodGet, c.endpoints.Orders, "", nil)
}

// CreateOrder submits an order payload.
func (c *Client) CreateOrder(ctx context.Context, sess *Session, payload interface{}) (*Response, error) {
	return c.Do(ctx, sess, http.MethodPost, c.endpoints.OrderCreate, "", payload)
}

// CancelOrder asks the backend to cancel orderID.
func (c *Client) CancelOrder(ctx context.Context, sess *Session, orderID string) (*Response, error) {
	return c.Do(ctx, sess, http.MethodPut, c.endpoints.OrderCancel, orderID, nil)
}

// FetchWishlist lists the session's wishlist.
func (c *Client) FetchWishlist(ctx context.Context, sess *Session) (*Response, error) {
	return c.Do(ctx, sess, http.MethodGet, c.endpoints.Wishlist, "", nil)
}

// AddToWishlist adds productID to the wishlist.
func (c *Client) AddToWishlist(ctx context.Context, sess *Session, productID string) (*Response, error) {
	return c.Do(ctx, sess, http.MethodPost, c.endpoints.WishlistAdd, "", ProductRequest{ProductID: productID})
}

// RemoveFromWishlist deletes a wishlist entry by its own id.
func (c *Client) RemoveFromWishlist(ctx context.Context, sess *Session, wishlistID string) (*Response, error) {
	return c.Do(ctx, sess, http.MethodDelete, c.endpoints.WishlistRemove, wishlistID, nil)
}

// FetchProfile loads the logged-in user's profile.
func (c *Client) FetchProfile(ctx context.Context, sess *Session) (*Response, error) {
	return c.Do(ctx, sess, http.MethodGet, c.endpoints.Profile, "", nil)
}
