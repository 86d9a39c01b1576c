package provisioner

import (
	"context"
	"fmt"
	"slices"

	"github.com/stokaro/tenancy/dbschema/reader"
	"github.com/stokaro/tenancy/tenant/template"
)

// Report describes how a live tenant schema compares to the template.
type Report struct {
	Schema        string   `json:"schema"`
	Exists        bool     `json:"exists"`
	MissingTables []string `json:"missing_tables"`
	// ExtraTables are tables not defined by the template. They are reported
	// but do not make the schema incomplete.
	ExtraTables []string `json:"extra_tables,omitempty"`
}

// Complete reports whether the schema has every template table.
func (r *Report) Complete() bool {
	return r.Exists && len(r.MissingTables) == 0
}

// Verify inspects schema in the live database and lists the template tables
// it lacks.
func (p *Provisioner) Verify(ctx context.Context, schema string) (*Report, error) {
	r := reader.New(p.db, p.dialect)
	report := &Report{Schema: schema}

	exists, err := r.SchemaExists(ctx, schema)
	if err != nil {
		return nil, err
	}
	if !exists {
		report.MissingTables = template.TableNames()
		return report, nil
	}
	report.Exists = true

	live, err := r.TableNames(ctx, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to verify schema %s: %w", schema, err)
	}
	expected := template.TableNames()
	for _, name := range expected {
		if !slices.Contains(live, name) {
			report.MissingTables = append(report.MissingTables, name)
		}
	}
	for _, name := range live {
		if !slices.Contains(expected, name) {
			report.ExtraTables = append(report.ExtraTables, name)
		}
	}
	return report, nil
}
