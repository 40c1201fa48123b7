package filterstate

import (
	"net/url"
	"slices"
	"strings"

	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/schema"
)

// Query keys of the addressable selection.
const (
	KeyLevels     = "levels"
	KeyBrands     = "brands"
	KeyColors     = "colors"
	KeySizes      = "sizes"
	KeyAttributes = "attributes"
	KeyPrice      = "price"
	KeySort       = "sort"
)

// Keys lists every query key the selection owns.
var Keys = []string{KeyLevels, KeyBrands, KeyColors, KeySizes, KeyAttributes, KeyPrice, KeySort}

const (
	listSep  = ","
	attrSep  = "|"
	pairSep  = ":"
	tokenEsc = "%"
)

var tokenEscaper = strings.NewReplacer(tokenEsc, "%25", listSep, "%2C", attrSep, "%7C", pairSep, "%3A")

// Encode renders the canonical query string. Defaults are omitted, so the
// default selection encodes to "".
func Encode(s FilterState) string {
	return ToValues(s).Encode()
}

// ToValues renders the selection as query values, omitting defaults.
func ToValues(s FilterState) url.Values {
	v := url.Values{}
	if len(s.Levels) > 0 {
		v.Set(KeyLevels, joinUUIDs(s.Levels))
	}
	if len(s.Brands) > 0 {
		v.Set(KeyBrands, joinUUIDs(s.Brands))
	}
	if len(s.Colors) > 0 {
		v.Set(KeyColors, joinTokens(s.Colors))
	}
	if len(s.Sizes) > 0 {
		v.Set(KeySizes, joinTokens(s.Sizes))
	}
	if ids := s.ActiveAttributeIDs(); len(ids) > 0 {
		parts := make([]string, 0, len(ids))
		for _, id := range ids {
			parts = append(parts, id.String()+pairSep+joinTokens(s.Attributes[id]))
		}
		v.Set(KeyAttributes, strings.Join(parts, attrSep))
	}
	if s.Price != "" && s.Price != models.DefaultPriceBucket {
		v.Set(KeyPrice, s.Price)
	}
	if s.Sort != "" && s.Sort != models.DefaultSort {
		v.Set(KeySort, string(s.Sort))
	}
	return v
}

// Decode parses a query string produced by Encode. It never fails: an
// unreadable string yields the default selection and an unreadable key keeps
// that key's default.
func Decode(raw string) FilterState {
	// ParseQuery keeps every well-formed pair even when it reports an error.
	values, _ := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	if values == nil {
		return New()
	}
	return FromValues(values)
}

type rawState struct {
	Levels     string `schema:"levels"`
	Brands     string `schema:"brands"`
	Colors     string `schema:"colors"`
	Sizes      string `schema:"sizes"`
	Attributes string `schema:"attributes"`
	Price      string `schema:"price"`
	Sort       string `schema:"sort"`
}

var decoder = newDecoder()

func newDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

// FromValues reads the selection out of request query values, ignoring keys
// it does not own.
func FromValues(values url.Values) FilterState {
	var raw rawState
	own := url.Values{}
	for _, k := range Keys {
		if vs, ok := values[k]; ok && len(vs) > 0 {
			own[k] = vs[:1]
		}
	}
	if err := decoder.Decode(&raw, own); err != nil {
		return New()
	}

	s := New()
	s.Levels = parseUUIDs(raw.Levels)
	s.Brands = parseUUIDs(raw.Brands)
	s.Colors = parseTokens(raw.Colors)
	s.Sizes = parseTokens(raw.Sizes)
	s.Attributes = parseAttributes(raw.Attributes)
	if b, ok := models.LookupPriceBucket(strings.TrimSpace(raw.Price)); ok {
		s.Price = b.Key
	}
	s.Sort = models.ParseSortKey(strings.TrimSpace(raw.Sort))
	return s
}

func joinUUIDs(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, listSep)
}

func joinTokens(values []string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = tokenEscaper.Replace(v)
	}
	return strings.Join(parts, listSep)
}

func parseUUIDs(raw string) []uuid.UUID {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []uuid.UUID
	for _, part := range strings.Split(raw, listSep) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return nil
		}
		out = toggleInto(out, id)
	}
	return out
}

func toggleInto(set []uuid.UUID, id uuid.UUID) []uuid.UUID {
	if containsUUID(set, id) {
		return set
	}
	return toggleUUID(set, id)
}

func parseTokens(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, listSep) {
		v, err := url.PathUnescape(part)
		if err != nil {
			return nil
		}
		if v = strings.TrimSpace(v); v == "" || containsString(out, v) {
			continue
		}
		out = toggleString(out, v)
	}
	return out
}

func parseAttributes(raw string) map[uuid.UUID][]string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	out := make(map[uuid.UUID][]string)
	for _, segment := range strings.Split(raw, attrSep) {
		if strings.TrimSpace(segment) == "" {
			continue
		}
		idPart, valuePart, ok := strings.Cut(segment, pairSep)
		if !ok {
			return nil
		}
		id, err := uuid.Parse(strings.TrimSpace(idPart))
		if err != nil {
			return nil
		}
		values := parseTokens(valuePart)
		if len(values) == 0 {
			continue
		}
		merged := out[id]
		for _, v := range values {
			if !slices.Contains(merged, v) {
				merged = toggleString(merged, v)
			}
		}
		out[id] = merged
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
