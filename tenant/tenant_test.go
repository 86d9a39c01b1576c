package tenant_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/stokaro/tenancy/tenant"
)

func TestParseStatus(t *testing.T) {
	c := qt.New(t)

	for _, s := range tenant.Statuses() {
		got, err := tenant.ParseStatus(string(s))
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.Equals, s)
	}

	got, err := tenant.ParseStatus(" Suspended ")
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, tenant.StatusSuspended)

	_, err = tenant.ParseStatus("archived")
	c.Assert(tenant.IsValidation(err), qt.IsTrue)
}

func TestParsePlan(t *testing.T) {
	c := qt.New(t)

	got, err := tenant.ParsePlan("PRO")
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, tenant.PlanPro)

	_, err = tenant.ParsePlan("gold")
	c.Assert(err, qt.ErrorMatches, `invalid plan: unknown plan "gold"`)
}

func TestCanServe(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name    string
		status  tenant.Status
		expires *time.Time
		want    bool
	}{
		{name: "active", status: tenant.StatusActive, want: true},
		{name: "trial before expiry", status: tenant.StatusTrial, expires: &future, want: true},
		{name: "trial after expiry", status: tenant.StatusTrial, expires: &past, want: false},
		{name: "suspended", status: tenant.StatusSuspended, want: false},
		{name: "expired", status: tenant.StatusExpired, want: false},
		{name: "deleted", status: tenant.StatusDeleted, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			tn := &tenant.Tenant{Status: tt.status, ExpiresAt: tt.expires}
			c.Assert(tn.CanServe(now), qt.Equals, tt.want)
			c.Assert(tn.IsDeleted(), qt.Equals, tt.status == tenant.StatusDeleted)
		})
	}
}

func TestErrorHelpers(t *testing.T) {
	c := qt.New(t)

	cause := errors.New("relation already exists")
	perr := &tenant.ProvisioningError{Subdomain: "acme", Step: "create_tables", Err: cause}
	wrapped := fmt.Errorf("engine: %w", perr)

	c.Assert(tenant.IsProvisioning(wrapped), qt.IsTrue)
	c.Assert(errors.Is(wrapped, cause), qt.IsTrue)
	c.Assert(perr.Error(), qt.Equals, `provisioning tenant "acme" failed at create_tables: relation already exists`)

	c.Assert(tenant.IsConflict(fmt.Errorf("x: %w", &tenant.ConflictError{Field: "subdomain", Value: "acme"})), qt.IsTrue)
	c.Assert(tenant.IsNotFound(&tenant.NotFoundError{Key: "id", Value: "x"}), qt.IsTrue)
	c.Assert(tenant.IsPermission(&tenant.PermissionError{Field: "plan"}), qt.IsTrue)
	c.Assert(tenant.IsValidation(cause), qt.IsFalse)
	c.Assert(tenant.IsConflict(nil), qt.IsFalse)
}
