// Package stats reports content counts of a tenant.
package stats

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/stokaro/tenancy/tenant"
	"github.com/stokaro/tenancy/tenant/catalog"
	"github.com/stokaro/tenancy/tenant/scope"
	"github.com/stokaro/tenancy/tenant/template"
)

// Statistics are the row counts of a tenant's main tables.
type Statistics struct {
	Articles   int `json:"articles"`
	Users      int `json:"users"`
	Categories int `json:"categories"`
	Tags       int `json:"tags"`
	Comments   int `json:"comments"`
}

// Option configures GetStatistics.
type Option func(*options)

type options struct {
	includeDeleted bool
}

// IncludeDeleted also reports soft-deleted tenants, whose schema is still
// in place.
func IncludeDeleted() Option {
	return func(o *options) {
		o.includeDeleted = true
	}
}

// Aggregator computes tenant statistics.
type Aggregator struct {
	catalog  *catalog.Catalog
	switcher *scope.Switcher
	logger   *slog.Logger
}

// New creates an aggregator.
func New(cat *catalog.Catalog, sw *scope.Switcher) *Aggregator {
	return &Aggregator{
		catalog:  cat,
		switcher: sw,
		logger:   slog.Default(),
	}
}

// WithLogger sets the logger for the aggregator
func (a *Aggregator) WithLogger(l *slog.Logger) *Aggregator {
	tmp := *a
	tmp.logger = l
	return &tmp
}

// GetStatistics counts the articles, users, categories, tags and comments of
// a tenant in one read-only transaction. Deleted tenants are reported as not
// found unless IncludeDeleted is given. Any failing count fails the call.
func (a *Aggregator) GetStatistics(ctx context.Context, tenantID uuid.UUID, opts ...Option) (*Statistics, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	t, err := a.catalog.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if t.IsDeleted() && !o.includeDeleted {
		return nil, &tenant.NotFoundError{Key: "id", Value: tenantID.String()}
	}

	result, err := scope.Query(ctx, a.switcher, t.SchemaName, Count, scope.ReadOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to collect statistics for tenant %s: %w", t.Subdomain, err)
	}
	a.logger.Debug("Collected tenant statistics", "tenant", t.ID, "schema", t.SchemaName)
	return result, nil
}

// Count counts the rows of the current tenant schema. It is usable with any
// session, for callers already inside WithTenantContext.
func Count(ctx context.Context, s *scope.Session) (*Statistics, error) {
	var st Statistics
	counts := []struct {
		table string
		dest  *int
	}{
		{template.TableArticles, &st.Articles},
		{template.TableUsers, &st.Users},
		{template.TableCategories, &st.Categories},
		{template.TableTags, &st.Tags},
		{template.TableComments, &st.Comments},
	}
	for _, cnt := range counts {
		query, args, err := s.Builder().Select("COUNT(*)").From(cnt.table).ToSql()
		if err != nil {
			return nil, fmt.Errorf("failed to build count query: %w", err)
		}
		if err := s.QueryRowContext(ctx, query, args...).Scan(cnt.dest); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", cnt.table, err)
		}
	}
	return &st, nil
}
