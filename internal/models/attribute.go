package models

import (
	"time"

	"github.com/google/uuid"
)

type AttributeDataType string

const (
	AttributeText    AttributeDataType = "text"
	AttributeNumber  AttributeDataType = "number"
	AttributeBoolean AttributeDataType = "boolean"
	AttributeDate    AttributeDataType = "date"
)

type AttributeVisibility string

const (
	VisibilityTopLine     AttributeVisibility = "top_line"
	VisibilityMoreFilters AttributeVisibility = "more_filters"
)

// Attribute is a filterable dimension.
type Attribute struct {
	ID           uuid.UUID           `json:"id" db:"id"`
	Name         string              `json:"name" db:"name"`
	Label        string              `json:"label" db:"label"`
	DataType     AttributeDataType   `json:"data_type" db:"data_type"`
	DisplayOrder int                 `json:"display_order" db:"display_order"`
	Visibility   AttributeVisibility `json:"visibility" db:"visibility"`
	Options      []*AttributeOption  `json:"options,omitempty" db:"-"`
}

// AttributeScope links an attribute to a category node at levels 1..3.
type AttributeScope struct {
	AttributeID uuid.UUID     `json:"attribute_id" db:"attribute_id"`
	Level       CategoryLevel `json:"level" db:"level"`
	NodeID      uuid.UUID     `json:"node_id" db:"node_id"`
}

type AttributeOption struct {
	ID           uuid.UUID `json:"id" db:"id"`
	AttributeID  uuid.UUID `json:"attribute_id" db:"attribute_id"`
	Value        string    `json:"value" db:"value"`
	DisplayOrder int       `json:"display_order" db:"display_order"`
	IsActive     bool      `json:"is_active" db:"is_active"`
}

// ProductAttributeValue carries the raw persisted payload; exactly one of the
// value columns is populated for the attribute's data type.
type ProductAttributeValue struct {
	ProductID    uuid.UUID  `json:"product_id" db:"product_id"`
	AttributeID  uuid.UUID  `json:"attribute_id" db:"attribute_id"`
	ValueText    *string    `json:"value_text" db:"value_text"`
	ValueNumber  *float64   `json:"value_number" db:"value_number"`
	ValueBoolean *bool      `json:"value_boolean" db:"value_boolean"`
	ValueDate    *time.Time `json:"value_date" db:"value_date"`
}

// FilterSettings controls which attributes render above the fold for a category.
type FilterSettings struct {
	CategoryID   uuid.UUID   `json:"category_id" db:"category_id"`
	TopLineIDs   []uuid.UUID `json:"top_line_ids" db:"top_line_ids"`
	HiddenIDs    []uuid.UUID `json:"hidden_ids" db:"hidden_ids"`
	ShowPrice    bool        `json:"show_price" db:"show_price"`
	ShowBrands   bool        `json:"show_brands" db:"show_brands"`
	AllAvailable bool        `json:"all_available" db:"-"`
}

// DefaultFilterSettings shows every filter.
func DefaultFilterSettings() *FilterSettings {
	return &FilterSettings{ShowPrice: true, ShowBrands: true, AllAvailable: true}
}
