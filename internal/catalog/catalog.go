// Package catalog provides the menu the cart draws its line items from.
package catalog

import (
	"slices"

	"github.com/crispydelights/storefront/internal/domain"
)

// Catalog resolves menu entries by id.
type Catalog interface {
	Lookup(id int) (domain.CatalogEntry, bool)
	List() []domain.CatalogEntry
}

// Static is an immutable in-memory catalog.
type Static struct {
	entries []domain.CatalogEntry
	byID    map[int]domain.CatalogEntry
}

// NewStatic builds a catalog from entries, preserving their order. A later
// entry with a repeated id replaces the earlier one in lookups.
func NewStatic(entries []domain.CatalogEntry) *Static {
	s := &Static{
		entries: slices.Clone(entries),
		byID:    make(map[int]domain.CatalogEntry, len(entries)),
	}
	for _, e := range entries {
		s.byID[e.ID] = e
	}
	return s
}

func (s *Static) Lookup(id int) (domain.CatalogEntry, bool) {
	e, ok := s.byID[id]
	return e, ok
}

func (s *Static) List() []domain.CatalogEntry {
	return slices.Clone(s.entries)
}

// Menu returns the Crispy Delights menu.
func Menu() *Static {
	return NewStatic([]domain.CatalogEntry{
		{
			ID:          1,
			Name:        "Classic Crispy Bucket",
			Description: "Our signature crispy fried chicken pieces in a family-sized bucket. Perfect for sharing.",
			Price:       "$19.99",
			Image:       "/images/crispy-bucket.jpg",
		},
		{
			ID:          2,
			Name:        "Spicy Chicken Sandwich",
			Description: "Crispy chicken fillet with our special spicy sauce, fresh lettuce, and pickles on a toasted bun.",
			Price:       "$8.99",
			Image:       "/images/chicken-sandwich.jpg",
		},
		{
			ID:          3,
			Name:        "Chicken Tenders Combo",
			Description: "Golden crispy chicken tenders served with fries, coleslaw, and your choice of dipping sauce.",
			Price:       "$12.99",
			Image:       "/images/chicken-tenders.jpg",
		},
		{
			ID:          4,
			Name:        "Nashville Hot Chicken",
			Description: "Extra spicy fried chicken with our Nashville-inspired hot sauce and cooling pickles.",
			Price:       "$14.99",
			Image:       "/images/chicken-tenders.jpg",
		},
		{
			ID:          5,
			Name:        "Family Feast",
			Description: "16 pieces of chicken, 4 sides, and 4 drinks. The perfect meal for the whole family.",
			Price:       "$39.99",
			Image:       "/images/crispy-bucket.jpg",
		},
		{
			ID:          6,
			Name:        "Crispy Chicken Salad",
			Description: "Fresh mixed greens topped with crispy chicken strips, cherry tomatoes, and ranch dressing.",
			Price:       "$10.99",
			Image:       "/images/chicken-salad.jpg",
		},
	})
}
