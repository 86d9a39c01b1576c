// Package config holds the options shared by the catalog, the provisioner,
// the tenant scope and the engine.
//
// Options are plain Go values: start from DefaultOptions and adjust with the
// With helpers. FromViper reads the same keys from a viper instance for the
// command line tool.
package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/stokaro/tenancy/tenant"
)

const (
	DefaultSchemaPrefix     = tenant.DefaultSchemaPrefix
	DefaultSharedSchema     = tenant.DefaultSharedSchema
	DefaultProvisionTimeout = 30 * time.Second
	DefaultPageSize         = 50
	DefaultMaxPageSize      = 500
)

// Viper keys understood by FromViper.
const (
	KeySchemaPrefix     = "schema_prefix"
	KeySharedSchema     = "shared_schema"
	KeyBaseDomain       = "base_domain"
	KeyProvisionTimeout = "provision_timeout"
	KeyDefaultPageSize  = "page_size.default"
	KeyMaxPageSize      = "page_size.max"
)

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Options configures the tenancy engine.
type Options struct {
	// SchemaPrefix is prepended to the sanitized subdomain to form a tenant
	// schema name.
	SchemaPrefix string
	// SharedSchema holds the tenants catalog. On PostgreSQL it is appended to
	// the search path of scoped sessions. MySQL keeps the catalog in the
	// database named by the connection URL; there the shared schema name
	// selects that database and scoped sessions return the connection to it.
	SharedSchema string
	// BaseDomain is the parent domain of tenant hosts, e.g. blogs.example.com.
	// Empty means only bare subdomains can be resolved.
	BaseDomain string
	// ProvisionTimeout bounds one provisioning attempt. Zero disables it.
	ProvisionTimeout time.Duration
	// DefaultPageSize is used by List when no limit is given.
	DefaultPageSize int
	// MaxPageSize caps the limit accepted by List.
	MaxPageSize int
}

// DefaultOptions returns the default options.
func DefaultOptions() *Options {
	return &Options{
		SchemaPrefix:     DefaultSchemaPrefix,
		SharedSchema:     DefaultSharedSchema,
		ProvisionTimeout: DefaultProvisionTimeout,
		DefaultPageSize:  DefaultPageSize,
		MaxPageSize:      DefaultMaxPageSize,
	}
}

func (o *Options) clone() *Options {
	if o == nil {
		return DefaultOptions()
	}
	cp := *o
	return &cp
}

// WithSchemaPrefix returns a copy of the options using prefix.
func (o *Options) WithSchemaPrefix(prefix string) *Options {
	cp := o.clone()
	cp.SchemaPrefix = prefix
	return cp
}

// WithSharedSchema returns a copy of the options using schema as the shared schema.
func (o *Options) WithSharedSchema(schema string) *Options {
	cp := o.clone()
	cp.SharedSchema = schema
	return cp
}

// WithBaseDomain returns a copy of the options using domain as base domain.
//
// Example:
//
//	opts := config.DefaultOptions().WithBaseDomain("blogs.example.com")
func (o *Options) WithBaseDomain(domain string) *Options {
	cp := o.clone()
	cp.BaseDomain = strings.Trim(strings.ToLower(domain), ".")
	return cp
}

// WithProvisionTimeout returns a copy of the options using d as the
// provisioning timeout.
func (o *Options) WithProvisionTimeout(d time.Duration) *Options {
	cp := o.clone()
	cp.ProvisionTimeout = d
	return cp
}

// WithPageSizes returns a copy of the options with the given list page sizes.
func (o *Options) WithPageSizes(defaultSize, maxSize int) *Options {
	cp := o.clone()
	cp.DefaultPageSize = defaultSize
	cp.MaxPageSize = maxSize
	return cp
}

// Validate checks the options for consistency.
func (o *Options) Validate() error {
	if !identifierPattern.MatchString(o.SchemaPrefix) {
		return fmt.Errorf("invalid schema prefix %q: must match %s", o.SchemaPrefix, identifierPattern)
	}
	if !identifierPattern.MatchString(o.SharedSchema) {
		return fmt.Errorf("invalid shared schema %q: must match %s", o.SharedSchema, identifierPattern)
	}
	if strings.HasPrefix(o.SharedSchema, o.SchemaPrefix) {
		return fmt.Errorf("shared schema %q must not start with the tenant schema prefix %q", o.SharedSchema, o.SchemaPrefix)
	}
	if o.ProvisionTimeout < 0 {
		return fmt.Errorf("provision timeout must not be negative")
	}
	if o.DefaultPageSize <= 0 || o.MaxPageSize <= 0 {
		return fmt.Errorf("page sizes must be positive")
	}
	if o.DefaultPageSize > o.MaxPageSize {
		return fmt.Errorf("default page size %d exceeds max page size %d", o.DefaultPageSize, o.MaxPageSize)
	}
	return nil
}

// PageSize resolves a requested page size: non-positive means the default,
// anything above the maximum is capped.
func (o *Options) PageSize(requested int) int {
	switch {
	case requested <= 0:
		return o.DefaultPageSize
	case requested > o.MaxPageSize:
		return o.MaxPageSize
	default:
		return requested
	}
}

// SetDefaults registers the default values of every key on v.
func SetDefaults(v *viper.Viper) {
	d := DefaultOptions()
	v.SetDefault(KeySchemaPrefix, d.SchemaPrefix)
	v.SetDefault(KeySharedSchema, d.SharedSchema)
	v.SetDefault(KeyBaseDomain, d.BaseDomain)
	v.SetDefault(KeyProvisionTimeout, d.ProvisionTimeout)
	v.SetDefault(KeyDefaultPageSize, d.DefaultPageSize)
	v.SetDefault(KeyMaxPageSize, d.MaxPageSize)
}

// FromViper builds validated options from v. Keys that are not set fall back
// to the defaults.
func FromViper(v *viper.Viper) (*Options, error) {
	SetDefaults(v)
	opts := DefaultOptions().
		WithSchemaPrefix(v.GetString(KeySchemaPrefix)).
		WithSharedSchema(v.GetString(KeySharedSchema)).
		WithBaseDomain(v.GetString(KeyBaseDomain)).
		WithProvisionTimeout(v.GetDuration(KeyProvisionTimeout)).
		WithPageSizes(v.GetInt(KeyDefaultPageSize), v.GetInt(KeyMaxPageSize))
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}
