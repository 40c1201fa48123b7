package models

import (
	"time"

	"github.com/google/uuid"
)

type ProductStatus string

const (
	StatusDraft      ProductStatus = "draft"
	StatusPublished  ProductStatus = "published"
	StatusPrivate    ProductStatus = "private"
	StatusOutOfStock ProductStatus = "out_of_stock"
)

// Product is a catalog entry as read by the filter engine.
type Product struct {
	ID                  uuid.UUID     `json:"id" db:"id"`
	Name                string        `json:"name" db:"name"`
	Slug                string        `json:"slug" db:"slug"`
	CategoryID          *uuid.UUID    `json:"category_id" db:"category_id"`
	SubcategoryID       *uuid.UUID    `json:"subcategory_id" db:"subcategory_id"`
	SubSubcategoryID    *uuid.UUID    `json:"sub_subcategory_id" db:"sub_subcategory_id"`
	SubSubSubcategoryID *uuid.UUID    `json:"sub_sub_subcategory_id" db:"sub_sub_subcategory_id"`
	BrandID             *uuid.UUID    `json:"brand_id" db:"brand_id"`
	SellerID            uuid.UUID     `json:"seller_id" db:"seller_id"`
	Status              ProductStatus `json:"status" db:"status"`
	Price               float64       `json:"price" db:"price"`
	CompareAtPrice      *float64      `json:"compare_at_price" db:"compare_at_price"`
	Weight              *float64      `json:"weight" db:"weight"`
	IsFeatured          bool          `json:"is_featured" db:"is_featured"`
	CreatedAt           time.Time     `json:"created_at" db:"created_at"`
}

// CategoryIDAt returns the product's path id at the given level.
func (p *Product) CategoryIDAt(level CategoryLevel) *uuid.UUID {
	switch level {
	case LevelCategory:
		return p.CategoryID
	case LevelSubcategory:
		return p.SubcategoryID
	case LevelSubSubcategory:
		return p.SubSubcategoryID
	case LevelSubSubSubcategory:
		return p.SubSubSubcategoryID
	}
	return nil
}

// Page is one window of a filtered, sorted product listing.
type Page struct {
	Items   []*Product `json:"items"`
	Total   int        `json:"total"`
	HasMore bool       `json:"has_more"`
	Offset  int        `json:"offset"`
	Limit   int        `json:"limit"`
}
