package filterstate

import (
	"storefront/internal/models"

	"github.com/google/uuid"
)

// DimensionKind names one facet of the selection.
type DimensionKind int

const (
	DimCategory DimensionKind = iota
	DimBrand
	DimColor
	DimSize
	DimAttribute
	DimPrice
	DimSort
)

func (k DimensionKind) String() string {
	switch k {
	case DimCategory:
		return KeyLevels
	case DimBrand:
		return KeyBrands
	case DimColor:
		return KeyColors
	case DimSize:
		return KeySizes
	case DimAttribute:
		return "attribute"
	case DimPrice:
		return KeyPrice
	case DimSort:
		return KeySort
	}
	return "unknown"
}

// Dimension identifies a facet; AttributeID is set only for DimAttribute.
type Dimension struct {
	Kind        DimensionKind
	AttributeID uuid.UUID
}

func (d Dimension) String() string {
	if d.Kind == DimAttribute {
		return "attribute:" + d.AttributeID.String()
	}
	return d.Kind.String()
}

func AttributeDimension(id uuid.UUID) Dimension {
	return Dimension{Kind: DimAttribute, AttributeID: id}
}

// Without returns a copy of s with dimension d reset to its default.
func (s FilterState) Without(d Dimension) FilterState {
	out := s.clone()
	switch d.Kind {
	case DimCategory:
		out.Levels = nil
	case DimBrand:
		out.Brands = nil
	case DimColor:
		out.Colors = nil
	case DimSize:
		out.Sizes = nil
	case DimAttribute:
		delete(out.Attributes, d.AttributeID)
		if len(out.Attributes) == 0 {
			out.Attributes = nil
		}
	case DimPrice:
		out.Price = models.DefaultPriceBucket
	case DimSort:
		out.Sort = models.DefaultSort
	}
	return out
}

// Only keeps the listed dimensions and resets everything else.
func (s FilterState) Only(dims ...Dimension) FilterState {
	out := New()
	for _, d := range dims {
		switch d.Kind {
		case DimCategory:
			out.Levels = append([]uuid.UUID(nil), s.Levels...)
		case DimBrand:
			out.Brands = append([]uuid.UUID(nil), s.Brands...)
		case DimColor:
			out.Colors = append([]string(nil), s.Colors...)
		case DimSize:
			out.Sizes = append([]string(nil), s.Sizes...)
		case DimAttribute:
			if values := s.Attributes[d.AttributeID]; len(values) > 0 {
				if out.Attributes == nil {
					out.Attributes = make(map[uuid.UUID][]string)
				}
				out.Attributes[d.AttributeID] = append([]string(nil), values...)
			}
		case DimPrice:
			out.Price = s.Price
		case DimSort:
			out.Sort = s.Sort
		}
	}
	return out
}

// Active reports whether d narrows the result set.
func (s FilterState) Active(d Dimension) bool {
	switch d.Kind {
	case DimCategory:
		return len(s.Levels) > 0
	case DimBrand:
		return len(s.Brands) > 0
	case DimColor:
		return len(s.Colors) > 0
	case DimSize:
		return len(s.Sizes) > 0
	case DimAttribute:
		return len(s.Attributes[d.AttributeID]) > 0
	case DimPrice:
		return s.Price != "" && s.Price != models.DefaultPriceBucket
	}
	return false
}
