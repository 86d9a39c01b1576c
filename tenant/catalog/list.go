package catalog

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/stokaro/tenancy/core/sqlutil"
	"github.com/stokaro/tenancy/tenant"
)

// Filter narrows List results. The zero value lists every tenant that is not
// deleted.
type Filter struct {
	Statuses []tenant.Status
	Plan     tenant.Plan
	// Search matches a case-insensitive substring of the name or the subdomain.
	Search string
	// IncludeDeleted also lists soft-deleted tenants. Ignored when Statuses
	// is set.
	IncludeDeleted bool
}

// Page selects a window of results. A non-positive Limit uses the
// configured default page size.
type Page struct {
	Limit  int
	Offset int
}

func (f Filter) conditions() (sq.And, error) {
	var conds sq.And

	switch {
	case len(f.Statuses) > 0:
		statuses := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			if !s.IsValid() {
				return nil, &tenant.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", s)}
			}
			statuses = append(statuses, string(s))
		}
		conds = append(conds, sq.Eq{"status": statuses})
	case !f.IncludeDeleted:
		conds = append(conds, sq.NotEq{"status": string(tenant.StatusDeleted)})
	}

	if f.Plan != "" {
		if !f.Plan.IsValid() {
			return nil, &tenant.ValidationError{Field: "plan", Reason: fmt.Sprintf("unknown plan %q", f.Plan)}
		}
		conds = append(conds, sq.Eq{"plan": string(f.Plan)})
	}

	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		pattern := "%" + sqlutil.EscapeLike(search) + "%"
		conds = append(conds, sq.Or{
			sq.Like{"LOWER(name)": pattern},
			sq.Like{"subdomain": pattern},
		})
	}
	return conds, nil
}

// List returns one page of tenants ordered by creation time, together with
// the total number of tenants matching the filter.
func (c *Catalog) List(ctx context.Context, filter Filter, page Page) ([]*tenant.Tenant, int, error) {
	if page.Offset < 0 {
		return nil, 0, &tenant.ValidationError{Field: "offset", Reason: "must not be negative"}
	}
	conds, err := filter.conditions()
	if err != nil {
		return nil, 0, err
	}

	countQuery, countArgs, err := c.builder().Select("COUNT(*)").From(Table).Where(conds).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}
	var total int
	if err := c.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to count tenants: %w", err)
	}

	query, args, err := c.selectTenants().
		Where(conds).
		OrderBy("created_at", "id").
		Limit(uint64(c.opts.PageSize(page.Limit))).
		Offset(uint64(page.Offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list query: %w", err)
	}

	items := []*tenant.Tenant{}
	if err := c.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list tenants: %w", err)
	}
	return items, total, nil
}
