package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/SigNoz/freshmart-storefront/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed data/catalog.yaml
var defaultCatalog []byte

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidCatalog  = errors.New("invalid catalog")
)

// Catalog is the immutable, ordered list of purchasable products
type Catalog struct {
	products   []models.Product
	byID       map[int64]int
	categories []models.Category
	maxPrice   float64
}

type catalogFile struct {
	Categories []models.Category `yaml:"categories"`
	Products   []productRecord   `yaml:"products"`
}

// productRecord mirrors the fixture layout. InStock is a pointer so that a
// missing field defaults to true.
type productRecord struct {
	ID            int64   `yaml:"id"`
	Name          string  `yaml:"name"`
	Category      string  `yaml:"category"`
	Price         float64 `yaml:"price"`
	OriginalPrice float64 `yaml:"original_price"`
	Image         string  `yaml:"image"`
	Rating        float64 `yaml:"rating"`
	Reviews       int     `yaml:"reviews"`
	Organic       bool    `yaml:"organic"`
	InStock       *bool   `yaml:"in_stock"`
	New           bool    `yaml:"new"`
	Description   string  `yaml:"description"`
}

func (r productRecord) product() models.Product {
	inStock := true
	if r.InStock != nil {
		inStock = *r.InStock
	}
	return models.Product{
		ID:            r.ID,
		Name:          r.Name,
		Description:   r.Description,
		Image:         r.Image,
		Category:      r.Category,
		Price:         r.Price,
		OriginalPrice: r.OriginalPrice,
		Rating:        r.Rating,
		Reviews:       r.Reviews,
		IsOrganic:     r.Organic,
		InStock:       inStock,
		IsNew:         r.New,
	}
}

// Default returns the catalog compiled into the binary
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// LoadFile reads a catalog fixture from disk
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog fixture
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	products := make([]models.Product, 0, len(f.Products))
	for _, r := range f.Products {
		products = append(products, r.product())
	}
	return New(f.Categories, products)
}

// New validates products and builds a catalog preserving their order.
// When categories is empty any category key is accepted.
func New(categories []models.Category, products []models.Product) (*Catalog, error) {
	known := make(map[string]bool, len(categories))
	for _, c := range categories {
		if c.Slug == "" {
			return nil, fmt.Errorf("%w: category with empty slug", ErrInvalidCatalog)
		}
		known[c.Slug] = true
	}

	c := &Catalog{
		products:   make([]models.Product, len(products)),
		byID:       make(map[int64]int, len(products)),
		categories: append([]models.Category(nil), categories...),
	}
	copy(c.products, products)

	for i, p := range c.products {
		if err := validateProduct(p); err != nil {
			return nil, err
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate product id %d", ErrInvalidCatalog, p.ID)
		}
		if len(known) > 0 && !known[p.Category] {
			return nil, fmt.Errorf("%w: product %d has unknown category %q", ErrInvalidCatalog, p.ID, p.Category)
		}
		c.byID[p.ID] = i
		if p.Price > c.maxPrice {
			c.maxPrice = p.Price
		}
	}
	return c, nil
}

func validateProduct(p models.Product) error {
	switch {
	case p.ID <= 0:
		return fmt.Errorf("%w: product id must be positive, got %d", ErrInvalidCatalog, p.ID)
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: product %d has no name", ErrInvalidCatalog, p.ID)
	case p.Price <= 0:
		return fmt.Errorf("%w: product %d has non-positive price", ErrInvalidCatalog, p.ID)
	case p.OriginalPrice != 0 && p.OriginalPrice < p.Price:
		return fmt.Errorf("%w: product %d original price %.2f below price %.2f",
			ErrInvalidCatalog, p.ID, p.OriginalPrice, p.Price)
	case p.Rating < 0 || p.Rating > 5:
		return fmt.Errorf("%w: product %d rating %.1f outside [0,5]", ErrInvalidCatalog, p.ID, p.Rating)
	case p.Reviews < 0:
		return fmt.Errorf("%w: product %d has negative review count", ErrInvalidCatalog, p.ID)
	}
	return nil
}

// Products returns a copy of all products in catalog order
func (c *Catalog) Products() []models.Product {
	out := make([]models.Product, len(c.products))
	copy(out, c.products)
	return out
}

// Product returns a product by ID
func (c *Catalog) Product(id int64) (models.Product, error) {
	i, ok := c.byID[id]
	if !ok {
		return models.Product{}, fmt.Errorf("%w: id %d", ErrProductNotFound, id)
	}
	return c.products[i], nil
}

// Categories returns the fixed category set
func (c *Catalog) Categories() []models.Category {
	return append([]models.Category(nil), c.categories...)
}

// MaxPrice is the highest product price, the default price ceiling
func (c *Catalog) MaxPrice() float64 {
	return c.maxPrice
}

// Len returns the number of products
func (c *Catalog) Len() int {
	return len(c.products)
}

// Search returns products whose name, description or category contains term,
// case-insensitively, in catalog order. A blank term matches nothing.
func (c *Catalog) Search(term string) []models.Product {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return []models.Product{}
	}
	result := []models.Product{}
	for _, p := range c.products {
		if strings.Contains(strings.ToLower(p.Name), term) ||
			strings.Contains(strings.ToLower(p.Description), term) ||
			strings.Contains(strings.ToLower(p.Category), term) {
			result = append(result, p)
		}
	}
	return result
}
