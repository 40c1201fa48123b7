package models

import (
	"crypto/sha1"
	"encoding/hex"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Scope narrows a catalog read. Every read is additionally limited to
// published products of sellers that are not suspended.
type Scope struct {
	// Category is the page context; nil browses the whole catalog.
	Category *CategoryRef
	// Levels matches products with any of these nodes anywhere on their path.
	Levels    []uuid.UUID
	BrandIDs  []uuid.UUID
	SellerIDs []uuid.UUID
	Price     PriceBucket
	// Candidates restricts to these products. nil means no restriction and an
	// empty set matches nothing.
	Candidates IDSet
}

func (s Scope) clone() Scope {
	out := s
	out.Levels = slices.Clone(s.Levels)
	out.BrandIDs = slices.Clone(s.BrandIDs)
	out.SellerIDs = slices.Clone(s.SellerIDs)
	out.Candidates = s.Candidates.Clone()
	return out
}

// WithCandidates narrows the scope to ids, intersecting with any existing
// candidate restriction.
func (s Scope) WithCandidates(ids IDSet) Scope {
	out := s.clone()
	if ids == nil {
		return out
	}
	out.Candidates = out.Candidates.Intersect(ids)
	return out
}

// Unsatisfiable reports whether the scope is known to match nothing.
func (s Scope) Unsatisfiable() bool {
	return s.Candidates != nil && len(s.Candidates) == 0
}

// Key is a stable digest of the scope, equal for scopes that select the
// same products regardless of id order.
func (s Scope) Key() string {
	var b strings.Builder
	if s.Category != nil {
		b.WriteString(s.Category.Level.String())
		b.WriteString("=")
		b.WriteString(s.Category.ID.String())
	}
	writeIDs := func(name string, ids []uuid.UUID) {
		b.WriteString(";" + name + "=")
		b.WriteString(joinSorted(ids))
	}
	writeIDs("levels", s.Levels)
	writeIDs("brands", s.BrandIDs)
	writeIDs("sellers", s.SellerIDs)
	b.WriteString(";price=" + s.Price.Key)
	if s.Candidates != nil {
		writeIDs("candidates", s.Candidates.Slice())
	}
	sum := sha1.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func joinSorted(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	slices.Sort(parts)
	return strings.Join(parts, ",")
}
