package filterstate

import (
	"storefront/internal/models"

	"github.com/google/uuid"
)

// Action is one selection event.
type Action interface {
	apply(s FilterState) FilterState
}

// Apply is the single entry point for changing a selection. It never modifies
// the given state.
func Apply(s FilterState, a Action) FilterState {
	if a == nil {
		return s.clone()
	}
	return a.apply(s.clone())
}

// ApplyAll folds a sequence of actions over s.
func ApplyAll(s FilterState, actions ...Action) FilterState {
	for _, a := range actions {
		s = Apply(s, a)
	}
	return s
}

type ToggleCategory struct{ ID uuid.UUID }

type ToggleBrand struct{ ID uuid.UUID }

type ToggleColor struct{ Value string }

type ToggleSize struct{ Value string }

type ToggleAttributeOption struct {
	AttributeID uuid.UUID
	Value       string
}

// SetPrice selects a bucket; unknown keys select all prices.
type SetPrice struct{ Key string }

// SetSort selects an order; unknown keys select the default order.
type SetSort struct{ Key string }

// Reset clears the selection.
type Reset struct{}

func (a ToggleCategory) apply(s FilterState) FilterState {
	s.Levels = toggleUUID(s.Levels, a.ID)
	return s
}

func (a ToggleBrand) apply(s FilterState) FilterState {
	s.Brands = toggleUUID(s.Brands, a.ID)
	return s
}

func (a ToggleColor) apply(s FilterState) FilterState {
	s.Colors = toggleString(s.Colors, a.Value)
	return s
}

func (a ToggleSize) apply(s FilterState) FilterState {
	s.Sizes = toggleString(s.Sizes, a.Value)
	return s
}

func (a ToggleAttributeOption) apply(s FilterState) FilterState {
	values := toggleString(s.Attributes[a.AttributeID], a.Value)
	if len(values) == 0 {
		delete(s.Attributes, a.AttributeID)
		if len(s.Attributes) == 0 {
			s.Attributes = nil
		}
		return s
	}
	if s.Attributes == nil {
		s.Attributes = make(map[uuid.UUID][]string)
	}
	s.Attributes[a.AttributeID] = values
	return s
}

func (a SetPrice) apply(s FilterState) FilterState {
	b, _ := models.LookupPriceBucket(a.Key)
	s.Price = b.Key
	return s
}

func (a SetSort) apply(s FilterState) FilterState {
	s.Sort = models.ParseSortKey(a.Key)
	return s
}

func (Reset) apply(FilterState) FilterState {
	return New()
}
