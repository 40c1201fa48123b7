package models

import (
	"time"

	"github.com/google/uuid"
)

// CategoryLevel is the depth of a node in the four-level catalog tree.
type CategoryLevel int

const (
	LevelNone CategoryLevel = iota
	LevelCategory
	LevelSubcategory
	LevelSubSubcategory
	LevelSubSubSubcategory
)

// MaxCategoryDepth is the number of nesting levels a slug path may address.
const MaxCategoryDepth = 4

func (l CategoryLevel) Valid() bool {
	return l >= LevelCategory && l <= LevelSubSubSubcategory
}

func (l CategoryLevel) String() string {
	switch l {
	case LevelCategory:
		return "category"
	case LevelSubcategory:
		return "subcategory"
	case LevelSubSubcategory:
		return "sub_subcategory"
	case LevelSubSubSubcategory:
		return "sub_sub_subcategory"
	}
	return "none"
}

// ProductColumn is the products table foreign key holding ids of this level.
func (l CategoryLevel) ProductColumn() string {
	switch l {
	case LevelCategory:
		return "category_id"
	case LevelSubcategory:
		return "subcategory_id"
	case LevelSubSubcategory:
		return "sub_subcategory_id"
	case LevelSubSubSubcategory:
		return "sub_sub_subcategory_id"
	}
	return ""
}

// CategoryNode is one node of the category hierarchy. Slugs are unique among siblings.
type CategoryNode struct {
	ID           uuid.UUID     `json:"id" db:"id"`
	Name         string        `json:"name" db:"name"`
	Slug         string        `json:"slug" db:"slug"`
	Level        CategoryLevel `json:"level" db:"level"`
	ParentID     *uuid.UUID    `json:"parent_id" db:"parent_id"` // nil only at level 1
	IsActive     bool          `json:"is_active" db:"is_active"`
	Synonyms     []string      `json:"synonyms,omitempty" db:"synonyms"`
	GridImageKey *string       `json:"grid_image_key,omitempty" db:"grid_image_key"`
	DisplayOrder int           `json:"display_order" db:"display_order"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" db:"updated_at"`
}

// CategoryRef pins a browsing context to one node at a known level.
type CategoryRef struct {
	Level CategoryLevel `json:"level"`
	ID    uuid.UUID     `json:"id"`
}

// GridTile is a child category rendered on a category landing page.
type GridTile struct {
	Node     *CategoryNode `json:"node"`
	ImageURL string        `json:"image_url,omitempty"`
}
