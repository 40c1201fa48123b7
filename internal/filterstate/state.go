// Package filterstate holds the shopper's active catalog selection and its
// shareable query-string form.
package filterstate

import (
	"slices"
	"strings"

	"storefront/internal/models"

	"github.com/google/uuid"
)

// FilterState is an immutable selection. Sets are sorted and deduplicated and
// an empty set is always nil, so two equal selections compare equal.
type FilterState struct {
	Levels     []uuid.UUID
	Brands     []uuid.UUID
	Colors     []string
	Sizes      []string
	Attributes map[uuid.UUID][]string
	Price      string
	Sort       models.SortKey
}

// New returns the all-default selection.
func New() FilterState {
	return FilterState{Price: models.DefaultPriceBucket, Sort: models.DefaultSort}
}

func (s FilterState) clone() FilterState {
	out := s
	out.Levels = slices.Clone(s.Levels)
	out.Brands = slices.Clone(s.Brands)
	out.Colors = slices.Clone(s.Colors)
	out.Sizes = slices.Clone(s.Sizes)
	if len(s.Attributes) > 0 {
		out.Attributes = make(map[uuid.UUID][]string, len(s.Attributes))
		for id, values := range s.Attributes {
			out.Attributes[id] = slices.Clone(values)
		}
	} else {
		out.Attributes = nil
	}
	if out.Price == "" {
		out.Price = models.DefaultPriceBucket
	}
	if out.Sort == "" {
		out.Sort = models.DefaultSort
	}
	return out
}

// IsDefault reports whether nothing is selected and price and sort are at
// their defaults.
func (s FilterState) IsDefault() bool {
	return len(s.Levels) == 0 && len(s.Brands) == 0 && len(s.Colors) == 0 && len(s.Sizes) == 0 &&
		len(s.Attributes) == 0 && (s.Price == "" || s.Price == models.DefaultPriceBucket) &&
		(s.Sort == "" || s.Sort == models.DefaultSort)
}

// ActiveAttributeIDs returns the attributes with at least one selected option,
// in canonical order.
func (s FilterState) ActiveAttributeIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s.Attributes))
	for id, values := range s.Attributes {
		if len(values) > 0 {
			ids = append(ids, id)
		}
	}
	slices.SortFunc(ids, compareUUID)
	return ids
}

// PriceBucket resolves the selected bucket, defaulting to all prices.
func (s FilterState) PriceBucket() models.PriceBucket {
	b, _ := models.LookupPriceBucket(s.Price)
	return b
}

func compareUUID(a, b uuid.UUID) int {
	return strings.Compare(a.String(), b.String())
}

func containsUUID(set []uuid.UUID, id uuid.UUID) bool {
	_, ok := slices.BinarySearchFunc(set, id, compareUUID)
	return ok
}

func containsString(set []string, v string) bool {
	_, ok := slices.BinarySearch(set, strings.TrimSpace(v))
	return ok
}

func toggleUUID(set []uuid.UUID, id uuid.UUID) []uuid.UUID {
	i, ok := slices.BinarySearchFunc(set, id, compareUUID)
	if ok {
		set = slices.Delete(set, i, i+1)
	} else {
		set = slices.Insert(set, i, id)
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

func toggleString(set []string, v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return set
	}
	i, ok := slices.BinarySearch(set, v)
	if ok {
		set = slices.Delete(set, i, i+1)
	} else {
		set = slices.Insert(set, i, v)
	}
	if len(set) == 0 {
		return nil
	}
	return set
}
