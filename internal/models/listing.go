package models

// SortKey names one of the fixed listing orders.
type SortKey string

const (
	SortFeatured  SortKey = "featured"
	SortNewest    SortKey = "newest"
	SortPriceAsc  SortKey = "price-asc"
	SortPriceDesc SortKey = "price-desc"
)

const DefaultSort = SortFeatured

var sortKeys = []SortKey{SortFeatured, SortNewest, SortPriceAsc, SortPriceDesc}

// SortKeys lists the supported orders in display order.
func SortKeys() []SortKey {
	out := make([]SortKey, len(sortKeys))
	copy(out, sortKeys)
	return out
}

// ParseSortKey falls back to the default order for anything unknown.
func ParseSortKey(raw string) SortKey {
	for _, k := range sortKeys {
		if string(k) == raw {
			return k
		}
	}
	return DefaultSort
}

// PriceBucket is a named, half-open price range [Min, Max).
type PriceBucket struct {
	Key   string   `json:"key"`
	Label string   `json:"label"`
	Min   *float64 `json:"min,omitempty"`
	Max   *float64 `json:"max,omitempty"`
}

const DefaultPriceBucket = "all"

func bound(v float64) *float64 { return &v }

var priceBuckets = []PriceBucket{
	{Key: DefaultPriceBucket, Label: "All prices"},
	{Key: "under-25", Label: "Under 25", Max: bound(25)},
	{Key: "25-50", Label: "25 to 50", Min: bound(25), Max: bound(50)},
	{Key: "50-100", Label: "50 to 100", Min: bound(50), Max: bound(100)},
	{Key: "100-200", Label: "100 to 200", Min: bound(100), Max: bound(200)},
	{Key: "200-plus", Label: "200 and above", Min: bound(200)},
}

func PriceBuckets() []PriceBucket {
	out := make([]PriceBucket, len(priceBuckets))
	copy(out, priceBuckets)
	return out
}

// LookupPriceBucket reports whether key names a known bucket.
func LookupPriceBucket(key string) (PriceBucket, bool) {
	for _, b := range priceBuckets {
		if b.Key == key {
			return b, true
		}
	}
	return priceBuckets[0], false
}

// Contains reports whether price falls inside the bucket.
func (b PriceBucket) Contains(price float64) bool {
	if b.Min != nil && price < *b.Min {
		return false
	}
	if b.Max != nil && price >= *b.Max {
		return false
	}
	return true
}
