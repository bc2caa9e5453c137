package services

import (
	"sort"
	"strings"

	"hightech/internal/models"
)

// Sort policies accepted by CatalogQuery.Sort.
const (
	SortPopular   = "popular"
	SortRating    = "rating"
	SortPriceLow  = "price-low"
	SortPriceHigh = "price-high"
)

// FilterAll is the sentinel that disables a category or material filter.
const FilterAll = "All"

// CatalogQuery holds the search, filter and sort selection of a listing request.
type CatalogQuery struct {
	Search   string
	Category string
	Material string
	Sort     string
}

func isAll(filter string) bool {
	return filter == "" || filter == FilterAll
}

// Matches reports whether a listing passes the search and filters.
func (q CatalogQuery) Matches(l models.Listing) bool {
	if !isAll(q.Category) && l.Category != q.Category {
		return false
	}
	if !isAll(q.Material) && l.Material != q.Material {
		return false
	}
	if q.Search == "" {
		return true
	}
	needle := strings.ToLower(q.Search)
	return strings.Contains(strings.ToLower(l.Name), needle) ||
		strings.Contains(strings.ToLower(l.Description), needle)
}

// SortPolicy normalizes a sort selection; unknown values fall back to SortPopular.
func SortPolicy(s string) string {
	switch s {
	case SortRating, SortPriceLow, SortPriceHigh:
		return s
	default:
		return SortPopular
	}
}

// Apply filters products and orders them by the selected policy. The input order is kept
// for ties, so callers pass products already ordered by name.
func Apply[T models.Product](products []T, q CatalogQuery) []T {
	out := make([]T, 0, len(products))
	for _, p := range products {
		if q.Matches(p.Listing()) {
			out = append(out, p)
		}
	}

	var less func(a, b models.Listing) bool
	switch SortPolicy(q.Sort) {
	case SortRating:
		less = func(a, b models.Listing) bool { return a.Rating > b.Rating }
	case SortPriceLow:
		less = func(a, b models.Listing) bool { return a.Price < b.Price }
	case SortPriceHigh:
		less = func(a, b models.Listing) bool { return a.Price > b.Price }
	default:
		less = func(a, b models.Listing) bool { return a.Popularity > b.Popularity }
	}
	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i].Listing(), out[j].Listing())
	})
	return out
}
