// Package identity resolves canonical identifiers from backend records.
//
// The backend references a product in a cart or order line in whichever
// shape the query produced: a bare id, a populated product object under
// productId, a product object under product, or fields flattened onto the
// line. The resolved id is the reconciliation key between optimistic local
// state and refetched server state, so the probe order is fixed.
package identity

import "github.com/itsneelabh/storesync/normalize"

// productIDPaths is the probe order for a line's product id. Populated
// references come first so a line whose own _id is the cart-row id still
// resolves to the product.
var productIDPaths = [][]string{
	{"productId", "_id"},
	{"productId"},
	{"product", "_id"},
	{"product", "id"},
	{"_id"},
	{"id"},
}

// ProductID returns the product identifier of a cart or order line.
// The first defined, non-object, non-empty value wins. ok is false when
// nothing resolves; callers must skip such lines.
func ProductID(line normalize.Record) (string, bool) {
	return firstScalar(line, productIDPaths)
}

// RecordID returns a record's own identifier (_id, then id).
func RecordID(r normalize.Record) (string, bool) {
	return firstScalar(r, [][]string{{"_id"}, {"id"}})
}

// OrderID returns an order identifier (orderId, then _id, then id).
func OrderID(r normalize.Record) (string, bool) {
	return firstScalar(r, [][]string{{"orderId"}, {"_id"}, {"id"}})
}

func firstScalar(r normalize.Record, paths [][]string) (string, bool) {
	if r == nil {
		return "", false
	}
	for _, p := range paths {
		v, ok := normalize.Lookup(r, p...)
		if !ok {
			continue
		}
		if s, ok := normalize.Scalar(v); ok {
			return s, true
		}
	}
	return "", false
}
