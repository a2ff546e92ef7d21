package catalog

import (
	"errors"
	"fmt"
	"sort"

	"github.com/SigNoz/freshmart-storefront/internal/models"
)

// SortKey orders a product listing
type SortKey string

const (
	SortFeatured  SortKey = "featured"
	SortPriceLow  SortKey = "price-low"
	SortPriceHigh SortKey = "price-high"
	SortRating    SortKey = "rating"
)

// AllCategories is the listing value meaning "no category filter"
const AllCategories = "all"

var ErrUnknownSortKey = errors.New("unknown sort key")

// ParseSortKey validates a sort key. Empty means featured.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(s); k {
	case "":
		return SortFeatured, nil
	case SortFeatured, SortPriceLow, SortPriceHigh, SortRating:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSortKey, s)
	}
}

// Query holds the listing controls. The zero value lists everything in
// catalog order.
type Query struct {
	Category     string
	PriceCeiling float64 // inclusive, <= 0 means no ceiling
	OrganicOnly  bool
	InStockOnly  bool
	Sort         SortKey
}

// Apply filters and sorts products. It never mutates its input and always
// returns a non-nil slice.
func Apply(products []models.Product, q Query) []models.Product {
	result := make([]models.Product, 0, len(products))
	for _, p := range products {
		if q.Category != "" && q.Category != AllCategories && p.Category != q.Category {
			continue
		}
		if q.PriceCeiling > 0 && p.Price > q.PriceCeiling {
			continue
		}
		if q.OrganicOnly && !p.IsOrganic {
			continue
		}
		if q.InStockOnly && !p.InStock {
			continue
		}
		result = append(result, p)
	}

	switch q.Sort {
	case SortPriceLow:
		sort.SliceStable(result, func(i, j int) bool { return result[i].Price < result[j].Price })
	case SortPriceHigh:
		sort.SliceStable(result, func(i, j int) bool { return result[i].Price > result[j].Price })
	case SortRating:
		sort.SliceStable(result, func(i, j int) bool { return result[i].Rating > result[j].Rating })
	}
	return result
}

// List applies q to the whole catalog
func (c *Catalog) List(q Query) []models.Product {
	return Apply(c.products, q)
}
