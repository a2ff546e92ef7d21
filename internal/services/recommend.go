package services

import (
	"sort"

	"github.com/SigNoz/freshmart-storefront/internal/catalog"
	"github.com/SigNoz/freshmart-storefront/internal/models"
)

const (
	// MinRecommendations is the size the popularity fallback fills up to
	MinRecommendations = 4
	// MaxRecommendations caps every recommendation list
	MaxRecommendations = 6
)

// RecommendationContext is the browsing position recommendations are made for.
// Both fields are optional.
type RecommendationContext struct {
	CurrentProductID int64
	Category         string
}

// Recommender suggests products from a fixed catalog
type Recommender struct {
	catalog *catalog.Catalog
	popular []models.Product // catalog by rating, highest first, ties in catalog order
}

// NewRecommender creates a recommender over c
func NewRecommender(c *catalog.Catalog) *Recommender {
	popular := c.Products()
	sort.SliceStable(popular, func(i, j int) bool {
		return popular[i].Rating > popular[j].Rating
	})
	return &Recommender{catalog: c, popular: popular}
}

// Recommend returns up to MaxRecommendations products for rc. Candidates are
// taken from the same category, then from recentlyViewed, then from the most
// popular products when the first two yield fewer than MinRecommendations.
// The current product is never returned and no product appears twice.
func (r *Recommender) Recommend(rc RecommendationContext, recentlyViewed []int64) []models.Product {
	products := r.catalog.Products()
	var candidates []models.Product

	if rc.Category != "" {
		for _, p := range products {
			if p.Category == rc.Category && p.ID != rc.CurrentProductID {
				candidates = append(candidates, p)
			}
		}
	}

	if len(recentlyViewed) > 0 {
		viewed := make(map[int64]struct{}, len(recentlyViewed))
		for _, id := range recentlyViewed {
			viewed[id] = struct{}{}
		}
		for _, p := range products {
			if _, ok := viewed[p.ID]; ok && p.ID != rc.CurrentProductID {
				candidates = append(candidates, p)
			}
		}
	}

	if missing := MinRecommendations - len(candidates); missing > 0 {
		for _, p := range r.popular {
			if missing == 0 {
				break
			}
			if p.ID != rc.CurrentProductID {
				candidates = append(candidates, p)
				missing--
			}
		}
	}

	out := make([]models.Product, 0, MaxRecommendations)
	seen := make(map[int64]struct{}, len(candidates))
	for _, p := range candidates {
		if len(out) == MaxRecommendations {
			break
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}
