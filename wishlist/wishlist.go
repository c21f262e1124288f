// Package wishlist manages the user's saved products.
package wishlist

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/itsneelabh/storesync/api"
	"github.com/itsneelabh/storesync/catalog"
	"github.com/itsneelabh/storesync/core"
	"github.com/itsneelabh/storesync/identity"
	"github.com/itsneelabh/storesync/normalize"
	"github.com/itsneelabh/storesync/resilience"
)

// alreadyPresentMessage is what the backend answers, with a 400, when the
// product is already saved.
const alreadyPresentMessage = "Product already in wishlist"

var listKeys = []string{"data", "items", "wishlist"}

// Entry is one saved product. ID is the wishlist entry id, which is what
// Remove takes.
type Entry struct {
	ID        string
	ProductID string
	Product   *catalog.Product
}

// AddResult reports an Add.
type AddResult struct {
	EntryID string
	// AlreadyPresent is true when the product was saved before this call.
	AlreadyPresent bool
}

// Backend is the subset of api.Client used for the wishlist.
type Backend interface {
	FetchWishlist(ctx context.Context, sess *api.Session) (*api.Response, error)
	AddToWishlist(ctx context.Context, sess *api.Session, productID string) (*api.Response, error)
	RemoveFromWishlist(ctx context.Context, sess *api.Session, wishlistID string) (*api.Response, error)
}

// Service talks to the wishlist endpoints.
type Service struct {
	backend Backend
	retry   *resilience.RetryExecutor
	logger  core.Logger
}

// NewService creates a wishlist service.
func NewService(backend Backend, retry *resilience.RetryExecutor, logger core.Logger) *Service {
	if retry == nil {
		retry = resilience.NewRetryExecutor(nil)
	}
	return &Service{backend: backend, retry: retry, logger: core.WithComponent(logger, "wishlist")}
}

// EntryFromRecord maps a wishlist record. The product may be a bare id or
// a populated product document.
func EntryFromRecord(r normalize.Record) (Entry, bool) {
	id, _ := identity.RecordID(r)
	e := Entry{
		ID:        id,
		ProductID: normalize.String(r, "productId._id", "productId", "product._id", "product.id"),
	}
	for _, key := range []string{"productId", "product"} {
		if v, ok := normalize.Lookup(r, key); ok {
			if obj, ok := normalize.Object(v); ok {
				if p, ok := catalog.ProductFromRecord(obj); ok {
					e.Product = &p
					break
				}
			}
		}
	}
	if e.ID == "" && e.ProductID == "" {
		return Entry{}, false
	}
	return e, true
}

// Find returns the entry holding productID.
func Find(entries []Entry, productID string) (Entry, bool) {
	for _, e := range entries {
		if e.ProductID == productID {
			return e, true
		}
	}
	return Entry{}, false
}

// List returns the saved entries.
func (s *Service) List(ctx context.Context, sess *api.Session) ([]Entry, error) {
	resp, err := resilience.RetryValue(ctx, s.retry, "wishlist.list", func(ctx context.Context) (*api.Response, error) {
		return s.backend.FetchWishlist(ctx, sess)
	})
	if err != nil {
		return nil, resilience.Surface("wishlist.List", err)
	}

	records := normalize.ExtractRecords(resp.Body, listKeys...)
	out := make([]Entry, 0, len(records))
	for _, r := range records {
		if e, ok := EntryFromRecord(r); ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// Add saves productID. If the backend reports the product as already
// saved, the list is re-read to find the existing entry and the call
// succeeds with AlreadyPresent set.
func (s *Service) Add(ctx context.Context, sess *api.Session, productID string) (AddResult, error) {
	resp, err := s.backend.AddToWishlist(ctx, sess, productID)
	if err != nil {
		if !isAlreadyPresent(err) {
			return AddResult{}, resilience.Surface("wishlist.Add", err)
		}
		s.logger.Debug("Product already in wishlist, looking up entry", map[string]interface{}{
			"operation":  "wishlist_add",
			"product_id": productID,
		})
		entries, lerr := s.List(ctx, sess)
		if lerr != nil {
			return AddResult{AlreadyPresent: true}, lerr
		}
		e, _ := Find(entries, productID)
		return AddResult{EntryID: e.ID, AlreadyPresent: true}, nil
	}

	obj, _ := normalize.Object(resp.Body)
	return AddResult{EntryID: normalize.String(obj, "data.wishlistId", "data._id", "data.id")}, nil
}

// Remove deletes the entry with wishlistID.
func (s *Service) Remove(ctx context.Context, sess *api.Session, wishlistID string) error {
	if wishlistID == "" {
		return core.NewAPIError("wishlist.Remove", core.KindValidation, "Please choose a wishlist item to remove.",
			&core.FrameworkError{Op: "wishlist.Remove", Kind: "wishlist", Message: "wishlist entry id is required", Err: core.ErrInvalidConfiguration})
	}
	err := s.retry.Execute(ctx, "wishlist.remove", func(ctx context.Context) error {
		_, err := s.backend.RemoveFromWishlist(ctx, sess, wishlistID)
		return err
	})
	return resilience.Surface("wishlist.Remove", err)
}

// Toggle adds productID when absent and removes it when present. It
// reports whether the product is saved afterwards.
func (s *Service) Toggle(ctx context.Context, sess *api.Session, productID string) (bool, error) {
	entries, err := s.List(ctx, sess)
	if err != nil {
		return false, err
	}
	if e, ok := Find(entries, productID); ok && e.ID != "" {
		if err := s.Remove(ctx, sess, e.ID); err != nil {
			return true, err
		}
		return false, nil
	}
	if _, err := s.Add(ctx, sess, productID); err != nil {
		return false, err
	}
	return true, nil
}

func isAlreadyPresent(err error) bool {
	var httpErr *core.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Status != http.StatusBadRequest {
		return false
	}
	c := resilience.Classify(err)
	return c.Kind == core.KindValidation && strings.EqualFold(strings.TrimSpace(c.Message), alreadyPresentMessage)
}
