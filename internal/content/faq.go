// Package content serves the static help center content.
package content

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/SigNoz/freshmart-storefront/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed data/faq.yaml
var defaultFAQ []byte

// AllCategories disables the category filter
const AllCategories = "all"

// ErrInvalidFAQ is returned for malformed FAQ fixtures
var ErrInvalidFAQ = errors.New("invalid faq")

// FAQ is an immutable list of help center questions
type FAQ struct {
	entries    []models.FAQEntry
	categories []string
}

// DefaultFAQ returns the embedded FAQ
func DefaultFAQ() (*FAQ, error) {
	return ParseFAQ(defaultFAQ)
}

// ParseFAQ decodes a YAML document with an entries list
func ParseFAQ(data []byte) (*FAQ, error) {
	var doc struct {
		Entries []models.FAQEntry `yaml:"entries"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFAQ, err)
	}

	f := &FAQ{}
	ids := make(map[string]struct{}, len(doc.Entries))
	seenCategory := make(map[string]struct{})
	for _, e := range doc.Entries {
		if e.ID == "" || e.Question == "" || e.Answer == "" {
			return nil, fmt.Errorf("%w: entry %q is incomplete", ErrInvalidFAQ, e.ID)
		}
		if _, dup := ids[e.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidFAQ, e.ID)
		}
		ids[e.ID] = struct{}{}
		if _, ok := seenCategory[e.Category]; !ok && e.Category != "" {
			seenCategory[e.Category] = struct{}{}
			f.categories = append(f.categories, e.Category)
		}
		f.entries = append(f.entries, e)
	}
	return f, nil
}

// Categories returns the entry categories in first-seen order
func (f *FAQ) Categories() []string {
	out := make([]string, len(f.categories))
	copy(out, f.categories)
	return out
}

// Search returns the entries whose question or answer contains query,
// case-insensitively. An empty query matches everything. Category narrows
// the result unless it is empty or "all".
func (f *FAQ) Search(query, category string) []models.FAQEntry {
	query = strings.ToLower(strings.TrimSpace(query))
	category = strings.TrimSpace(category)

	out := []models.FAQEntry{}
	for _, e := range f.entries {
		if category != "" && category != AllCategories && e.Category != category {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(e.Question), query) &&
			!strings.Contains(strings.ToLower(e.Answer), query) {
			continue
		}
		out = append(out, e)
	}
	return out
}
