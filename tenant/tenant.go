// Package tenant defines the tenant model shared by the catalog, the
// provisioner, the scope switcher and the statistics aggregator, together with
// the error taxonomy they report.
package tenant

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a tenant.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusTrial     Status = "trial"
	StatusExpired   Status = "expired"
	StatusDeleted   Status = "deleted"
)

var validStatuses = []Status{StatusActive, StatusSuspended, StatusTrial, StatusExpired, StatusDeleted}

// Statuses returns every known status.
func Statuses() []Status {
	return slices.Clone(validStatuses)
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	return slices.Contains(validStatuses, s)
}

// ParseStatus parses a status name, case-insensitively.
func ParseStatus(value string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(value)))
	if !s.IsValid() {
		return "", &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", value)}
	}
	return s, nil
}

// Plan is the commercial plan of a tenant.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

var validPlans = []Plan{PlanFree, PlanPro, PlanEnterprise}

// IsValid reports whether p is a known plan.
func (p Plan) IsValid() bool {
	return slices.Contains(validPlans, p)
}

// ParsePlan parses a plan name, case-insensitively.
func ParsePlan(value string) (Plan, error) {
	p := Plan(strings.ToLower(strings.TrimSpace(value)))
	if !p.IsValid() {
		return "", &ValidationError{Field: "plan", Reason: fmt.Sprintf("unknown plan %q", value)}
	}
	return p, nil
}

// Tenant is a catalog row.
type Tenant struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	Name       string     `db:"name" json:"name"`
	Subdomain  string     `db:"subdomain" json:"subdomain"`
	SchemaName string     `db:"schema_name" json:"schema_name"`
	Status     Status     `db:"status" json:"status"`
	Plan       Plan       `db:"plan" json:"plan"`
	Settings   Settings   `db:"settings" json:"settings"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
	ExpiresAt  *time.Time `db:"expires_at" json:"expires_at,omitempty"`
}

// IsDeleted reports whether the tenant has been soft-deleted.
func (t *Tenant) IsDeleted() bool {
	return t.Status == StatusDeleted
}

// CanServe reports whether the tenant may serve traffic at the given time.
// Active and trial tenants can, unless their expiry has passed.
func (t *Tenant) CanServe(now time.Time) bool {
	if t.Status != StatusActive && t.Status != StatusTrial {
		return false
	}
	return t.ExpiresAt == nil || now.Before(*t.ExpiresAt)
}
