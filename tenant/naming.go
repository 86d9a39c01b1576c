package tenant

import (
	"fmt"
	"net"
	"net/mail"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultSchemaPrefix is prepended to the subdomain to build a schema name.
	DefaultSchemaPrefix = "tenant_"
	// DefaultSharedSchema holds the catalog and anything not owned by a tenant.
	DefaultSharedSchema = "public"

	// MinSubdomainLength and MaxSubdomainLength bound a subdomain. The upper
	// bound is the DNS label limit.
	MinSubdomainLength = 3
	MaxSubdomainLength = 63

	// MaxIdentifierLength is the PostgreSQL identifier limit; MySQL allows 64.
	MaxIdentifierLength = 63

	MaxNameLength = 255
)

var (
	subdomainPattern  = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)
	identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
	nonSubdomainRun   = regexp.MustCompile(`[^a-z0-9]+`)

	reservedSubdomains = []string{"www", "api", "admin", "app", "mail"}
)

// ReservedSubdomains returns the subdomains that cannot be given to a tenant.
func ReservedSubdomains() []string {
	return slices.Clone(reservedSubdomains)
}

// NormalizeSubdomain lowercases and trims a subdomain.
func NormalizeSubdomain(subdomain string) string {
	return strings.ToLower(strings.TrimSpace(subdomain))
}

// ValidateSubdomain checks an already normalized subdomain.
func ValidateSubdomain(subdomain string) error {
	switch {
	case subdomain == "":
		return &ValidationError{Field: "subdomain", Reason: "must not be empty"}
	case len(subdomain) < MinSubdomainLength:
		return &ValidationError{Field: "subdomain", Reason: fmt.Sprintf("must be at least %d characters", MinSubdomainLength)}
	case len(subdomain) > MaxSubdomainLength:
		return &ValidationError{Field: "subdomain", Reason: fmt.Sprintf("must be at most %d characters", MaxSubdomainLength)}
	case !subdomainPattern.MatchString(subdomain):
		return &ValidationError{Field: "subdomain", Reason: "may only contain a-z, 0-9 and '-', and must start and end with a letter or digit"}
	case slices.Contains(reservedSubdomains, subdomain):
		return &ValidationError{Field: "subdomain", Reason: fmt.Sprintf("%q is reserved", subdomain)}
	}
	return nil
}

// SchemaName derives the schema name of a tenant from its subdomain. Dashes
// become underscores so the result needs no quoting. The mapping is not
// injective ("a-b" and "a_b" would collide if underscores were allowed), so
// the catalog enforces schema name uniqueness on its own.
func SchemaName(prefix, subdomain string) (string, error) {
	if err := ValidateSubdomain(subdomain); err != nil {
		return "", err
	}
	name := prefix + strings.ReplaceAll(subdomain, "-", "_")
	if len(name) > MaxIdentifierLength {
		return "", &ValidationError{
			Field:  "subdomain",
			Reason: fmt.Sprintf("must be at most %d characters", MaxIdentifierLength-len(prefix)),
		}
	}
	return name, nil
}

// ValidateSchemaName checks that name is either the shared schema or a tenant
// schema carrying prefix.
func ValidateSchemaName(prefix, shared, name string) error {
	if name == "" {
		return &ValidationError{Field: "schema_name", Reason: "must not be empty"}
	}
	if len(name) > MaxIdentifierLength || !identifierPattern.MatchString(name) {
		return &ValidationError{Field: "schema_name", Reason: fmt.Sprintf("%q is not a valid schema name", name)}
	}
	if name == shared {
		return nil
	}
	if !strings.HasPrefix(name, prefix) || len(name) == len(prefix) {
		return &ValidationError{Field: "schema_name", Reason: fmt.Sprintf("%q is not a tenant schema", name)}
	}
	return nil
}

// ValidateName checks a tenant display name.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return &ValidationError{Field: "name", Reason: fmt.Sprintf("must be at most %d characters", MaxNameLength)}
	}
	return nil
}

// ValidateEmail checks that email is a bare address such as admin@acme.test.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return &ValidationError{Field: "admin_email", Reason: fmt.Sprintf("%q is not a valid email address", email)}
	}
	return nil
}

// SuggestSubdomain derives a subdomain candidate from a display name:
// "Café Müller & Co" becomes "cafe-muller-co". The result is not checked
// against the reserved list or the catalog.
func SuggestSubdomain(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	s := nonSubdomainRun.ReplaceAllString(strings.ToLower(folded), "-")
	s = strings.Trim(s, "-")
	if len(s) > MaxSubdomainLength {
		s = strings.TrimRight(s[:MaxSubdomainLength], "-")
	}
	return s
}

// SubdomainFromHost extracts the tenant subdomain from either a bare
// subdomain ("acme") or a host under baseDomain ("acme.blogs.example.com",
// optionally with a port). Matching is case-insensitive.
func SubdomainFromHost(host, baseDomain string) (string, error) {
	host = NormalizeSubdomain(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(host, ".")
	if host == "" {
		return "", &ValidationError{Field: "host", Reason: "must not be empty"}
	}

	if !strings.Contains(host, ".") {
		return checkedSubdomain(host)
	}

	base := strings.Trim(strings.ToLower(baseDomain), ".")
	if base == "" {
		return "", &ValidationError{Field: "host", Reason: fmt.Sprintf("%q is not a subdomain and no base domain is configured", host)}
	}
	sub, ok := strings.CutSuffix(host, "."+base)
	if !ok {
		return "", &ValidationError{Field: "host", Reason: fmt.Sprintf("%q is not under %q", host, base)}
	}
	if strings.Contains(sub, ".") {
		return "", &ValidationError{Field: "host", Reason: fmt.Sprintf("%q has nested labels under %q", host, base)}
	}
	return checkedSubdomain(sub)
}

func checkedSubdomain(sub string) (string, error) {
	if err := ValidateSubdomain(sub); err != nil {
		return "", err
	}
	return sub, nil
}
