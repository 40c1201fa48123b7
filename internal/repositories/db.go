package repositories

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/models"

	"github.com/jackc/pgx/v5"
)

// Querier is the read surface of a pgx pool; pgxmock pools satisfy it too.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// visibleProducts is the FROM clause shared by every catalog read: only
// published products whose seller is not suspended.
const visibleProducts = `
		FROM products p
		JOIN sellers s ON s.id = p.seller_id AND s.is_suspended = FALSE
		WHERE p.status = 'published'`

// scopeFilter accumulates positional arguments for a scoped WHERE clause.
type scopeFilter struct {
	clause strings.Builder
	args   []interface{}
}

func (f *scopeFilter) arg(v interface{}) int {
	f.args = append(f.args, v)
	return len(f.args)
}

func (f *scopeFilter) and(format string, v interface{}) {
	n := f.arg(v)
	f.clause.WriteString(" AND ")
	f.clause.WriteString(strings.ReplaceAll(format, "$?", fmt.Sprintf("$%d", n)))
}

// buildScope renders the scope as AND conditions on the products alias p.
// Arguments are numbered after any the caller already bound.
func buildScope(scope models.Scope, bound ...interface{}) *scopeFilter {
	f := &scopeFilter{args: append([]interface{}{}, bound...)}

	if scope.Category != nil && scope.Category.Level.Valid() {
		f.and("p."+scope.Category.Level.ProductColumn()+" = $?", scope.Category.ID)
	}
	if len(scope.Levels) > 0 {
		f.and("(p.category_id = ANY($?) OR p.subcategory_id = ANY($?) OR p.sub_subcategory_id = ANY($?) OR p.sub_sub_subcategory_id = ANY($?))", scope.Levels)
	}
	if len(scope.BrandIDs) > 0 {
		f.and("p.brand_id = ANY($?)", scope.BrandIDs)
	}
	if len(scope.SellerIDs) > 0 {
		f.and("p.seller_id = ANY($?)", scope.SellerIDs)
	}
	if scope.Price.Min != nil {
		f.and("p.price >= $?", *scope.Price.Min)
	}
	if scope.Price.Max != nil {
		f.and("p.price < $?", *scope.Price.Max)
	}
	if scope.Candidates != nil {
		f.and("p.id = ANY($?)", scope.Candidates.Slice())
	}
	return f
}

func (f *scopeFilter) String() string { return f.clause.String() }

// orderBy maps a sort key onto a stable ORDER BY; id breaks ties so pages
// never overlap.
func orderBy(key models.SortKey) string {
	switch models.ParseSortKey(string(key)) {
	case models.SortNewest:
		return "p.created_at DESC, p.id ASC"
	case models.SortPriceAsc:
		return "p.price ASC, p.id ASC"
	case models.SortPriceDesc:
		return "p.price DESC, p.id ASC"
	default:
		return "p.is_featured DESC, p.created_at DESC, p.id ASC"
	}
}
