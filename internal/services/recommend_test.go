package services

import (
	"testing"

	"github.com/SigNoz/freshmart-storefront/internal/catalog"
	"github.com/SigNoz/freshmart-storefront/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productIDs(products []models.Product) []int64 {
	out := make([]int64, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func smallCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(nil, []models.Product{
		{ID: 1, Name: "Apples", Category: "fruits", Price: 120, Rating: 4.0},
		{ID: 2, Name: "Bananas", Category: "fruits", Price: 40, Rating: 4.5},
		{ID: 3, Name: "Milk", Category: "dairy", Price: 30, Rating: 4.9},
		{ID: 4, Name: "Curd", Category: "dairy", Price: 50, Rating: 3.0},
		{ID: 5, Name: "Bread", Category: "bakery", Price: 45, Rating: 4.7},
		{ID: 6, Name: "Buns", Category: "bakery", Price: 35, Rating: 4.7},
	})
	require.NoError(t, err)
	return c
}

func TestRecommendSameCategoryOnly(t *testing.T) {
	r := NewRecommender(testCatalog(t))

	recs := r.Recommend(RecommendationContext{CurrentProductID: 1, Category: "fruits"}, []int64{8, 9, 10})
	assert.Equal(t, []int64{2, 3, 4, 5, 6, 7}, productIDs(recs))
}

func TestRecommendPopularityFallback(t *testing.T) {
	r := NewRecommender(smallCatalog(t))

	// one same-category product, then the three best rated others
	recs := r.Recommend(RecommendationContext{CurrentProductID: 1, Category: "fruits"}, nil)
	assert.Equal(t, []int64{2, 3, 5, 6}, productIDs(recs))

	// recently viewed comes before the fallback
	recs = r.Recommend(RecommendationContext{CurrentProductID: 1, Category: "fruits"}, []int64{4})
	assert.Equal(t, []int64{2, 4, 3, 5}, productIDs(recs))
}

func TestRecommendDedupesAfterFallback(t *testing.T) {
	r := NewRecommender(smallCatalog(t))

	// 4 comes from both the category and the history, so the fallback only
	// tops up two and the deduplicated list is shorter than four
	recs := r.Recommend(RecommendationContext{CurrentProductID: 3, Category: "dairy"}, []int64{4})
	assert.Equal(t, []int64{4, 5, 6}, productIDs(recs))
}

func TestRecommendRecentlyViewedInCatalogOrder(t *testing.T) {
	r := NewRecommender(testCatalog(t))

	// the fallback tops up with Mangoes, already present from the history
	recs := r.Recommend(RecommendationContext{CurrentProductID: 8}, []int64{10, 8, 3, 9})
	assert.Equal(t, []int64{3, 9, 10}, productIDs(recs))
}

func TestRecommendProperties(t *testing.T) {
	c := testCatalog(t)
	r := NewRecommender(c)

	histories := [][]int64{nil, {1}, {10, 9, 8}, {1, 2, 3, 4, 5, 6, 7, 8, 9, 10}}
	for _, p := range c.Products() {
		for _, h := range histories {
			for _, category := range []string{"", p.Category, "bakery"} {
				recs := r.Recommend(RecommendationContext{CurrentProductID: p.ID, Category: category}, h)

				assert.LessOrEqual(t, len(recs), MaxRecommendations)
				seen := map[int64]bool{}
				for _, rec := range recs {
					assert.NotEqual(t, p.ID, rec.ID, "current product returned")
					assert.False(t, seen[rec.ID], "duplicate %d", rec.ID)
					seen[rec.ID] = true
				}
			}
		}
	}
}

func TestRecommendSingleProductCatalog(t *testing.T) {
	c, err := catalog.New(nil, []models.Product{{ID: 1, Name: "Apples", Category: "fruits", Price: 1}})
	require.NoError(t, err)

	recs := NewRecommender(c).Recommend(RecommendationContext{CurrentProductID: 1, Category: "fruits"}, []int64{1})
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}
