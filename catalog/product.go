// Package catalog reads products and categories from the storefront and
// turns the backend's loosely shaped records into typed values.
package catalog

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/itsneelabh/storesync/identity"
	"github.com/itsneelabh/storesync/normalize"
)

// DefaultRating is shown for products the backend sends without a rating.
const DefaultRating = 4.5

// Product is one catalog entry.
type Product struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Price       decimal.Decimal  `json:"price"`
	Category    string           `json:"category,omitempty"`
	CategoryID  string           `json:"category_id,omitempty"`
	ImageURL    string           `json:"image_url,omitempty"`
	Rating      float64          `json:"rating"`
	Discount    string           `json:"discount,omitempty"`
	Stock       int              `json:"stock"`
	Raw         normalize.Record `json:"-"`
}

// Category is a product category.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProductFromRecord maps a backend product record. Records without an id
// are rejected.
func ProductFromRecord(r normalize.Record) (Product, bool) {
	id, ok := identity.RecordID(r)
	if !ok {
		return Product{}, false
	}

	p := Product{
		ID:          id,
		Name:        normalize.String(r, "name", "productName"),
		Description: normalize.String(r, "description"),
		ImageURL:    imageURL(r),
		Discount:    normalize.String(r, "discount"),
		Rating:      DefaultRating,
		Raw:         r,
	}
	p.Price, _ = normalize.DecimalAt(r, "price")
	p.Category, p.CategoryID = category(r)

	if rating, ok := normalize.DecimalAt(r, "rating"); ok && rating.IsPositive() {
		p.Rating = rating.InexactFloat64()
	}
	if v, ok := normalize.Lookup(r, "stock"); ok {
		p.Stock, _ = normalize.Int(v)
	}
	return p, true
}

// ProductsFromRecords maps every record that has an id, preserving order.
func ProductsFromRecords(records []normalize.Record) []Product {
	out := make([]Product, 0, len(records))
	for _, r := range records {
		if p, ok := ProductFromRecord(r); ok {
			out = append(out, p)
		}
	}
	return out
}

// CategoryFromRecord maps a category record; either an id or a name is
// enough.
func CategoryFromRecord(r normalize.Record) (Category, bool) {
	id, _ := identity.RecordID(r)
	name := normalize.String(r, "name", "categoryName")
	if id == "" && name == "" {
		return Category{}, false
	}
	return Category{ID: id, Name: name}, true
}

// SearchFields exposes the product to the search filter.
func (p Product) SearchFields() []string {
	return []string{p.Name, p.Description, p.Category, p.Price.String()}
}

// category accepts both a plain name and a populated {_id, name} object.
func category(r normalize.Record) (name, id string) {
	v, ok := normalize.Lookup(r, "category")
	if !ok {
		return "", normalize.String(r, "categoryId")
	}
	if obj, ok := normalize.Object(v); ok {
		id, _ = identity.RecordID(obj)
		return normalize.String(obj, "name"), id
	}
	name, _ = normalize.Scalar(v)
	return name, normalize.String(r, "categoryId")
}

func imageURL(r normalize.Record) string {
	if s := normalize.String(r, "image", "productImage"); s != "" {
		return s
	}
	if v, ok := normalize.Lookup(r, "images"); ok {
		if arr, ok := normalize.Array(v); ok && len(arr) > 0 {
			s, _ := normalize.Scalar(arr[0])
			return s
		}
	}
	return ""
}

// FilterByCategory keeps products whose category name or id matches,
// ignoring case. An empty category returns the input unchanged.
func FilterByCategory(products []Product, category string) []Product {
	category = strings.TrimSpace(category)
	if category == "" {
		return products
	}
	out := make([]Product, 0)
	for _, p := range products {
		if strings.EqualFold(p.Category, category) || p.CategoryID == category {
			out = append(out, p)
		}
	}
	return out
}
