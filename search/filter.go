// Package search filters in-memory collections by free-text queries and
// debounces rapid query changes so only the latest one is answered.
package search

import "strings"

// Searchable is anything that exposes text fields to match against.
type Searchable interface {
	SearchFields() []string
}

// Terms splits a query into lowercase whitespace-separated terms.
func Terms(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// Matches reports whether every term occurs in at least one field.
func Matches(fields []string, terms []string) bool {
	lowered := make([]string, len(fields))
	for i, f := range fields {
		lowered[i] = strings.ToLower(f)
	}
	for _, term := range terms {
		found := false
		for _, f := range lowered {
			if strings.Contains(f, term) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Filter returns the items matching every term of query, in input order.
// An empty query returns items unchanged; no match returns an empty,
// non-nil slice.
func Filter[T Searchable](items []T, query string) []T {
	terms := Terms(query)
	if len(terms) == 0 {
		return items
	}
	out := make([]T, 0)
	for _, it := range items {
		if Matches(it.SearchFields(), terms) {
			out = append(out, it)
		}
	}
	return out
}
