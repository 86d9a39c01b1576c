// Package provision implements the command that creates a tenant.
package provision

import (
	"fmt"
	"os"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/stokaro/tenancy/cmd/internal/cliutil"
	"github.com/stokaro/tenancy/tenant"
	"github.com/stokaro/tenancy/tenant/provisioner"
)

const (
	nameFlag          = "name"
	subdomainFlag     = "subdomain"
	planFlag          = "plan"
	adminEmailFlag    = "admin-email"
	adminNameFlag     = "admin-name"
	adminPasswordFlag = "admin-password"
	verifyFlag        = "verify"
)

// PasswordEnv is read when --admin-password is not given.
const PasswordEnv = "TENANCY_ADMIN_PASSWORD"

var flags = map[string]cobraflags.Flag{
	nameFlag: &cobraflags.StringFlag{
		Name:  nameFlag,
		Value: "",
		Usage: "Display name of the tenant (required)",
	},
	subdomainFlag: &cobraflags.StringFlag{
		Name:  subdomainFlag,
		Value: "",
		Usage: "Tenant subdomain (default: derived from the name)",
	},
	planFlag: &cobraflags.StringFlag{
		Name:  planFlag,
		Value: string(tenant.PlanFree),
		Usage: "Subscription plan: free, pro or enterprise",
	},
	adminEmailFlag: &cobraflags.StringFlag{
		Name:  adminEmailFlag,
		Value: "",
		Usage: "Email of the first administrator (required)",
	},
	adminNameFlag: &cobraflags.StringFlag{
		Name:  adminNameFlag,
		Value: "",
		Usage: "Display name of the first administrator",
	},
	adminPasswordFlag: &cobraflags.StringFlag{
		Name:  adminPasswordFlag,
		Value: "",
		Usage: "Password of the first administrator (default: $" + PasswordEnv + ")",
	},
	verifyFlag: &cobraflags.StringFlag{
		Name:  verifyFlag,
		Value: "false",
		Usage: "Check the new schema against the template after provisioning",
	},
}

func NewProvisionCommand() *cobra.Command {
	provisionCmd := &cobra.Command{
		Use:   "provision",
		Short: "Provision a new tenant",
		Long: `Create a tenant: its catalog row, its schema with every template table and
its first administrator. The password is hashed with bcrypt before it is sent
to the database.

Examples:
  tenantctl provision --name "Acme Blog" --admin-email admin@acme.test
  tenantctl provision --name "Acme Blog" --subdomain acme --plan pro \
    --admin-email admin@acme.test --verify true`,
		RunE: provisionCommand,
	}

	cobraflags.RegisterMap(provisionCmd, flags)

	return provisionCmd
}

func buildRequest() (provisioner.Request, error) {
	name := flags[nameFlag].GetString()
	if name == "" {
		return provisioner.Request{}, fmt.Errorf("tenant name is required (use --%s flag)", nameFlag)
	}
	subdomain := flags[subdomainFlag].GetString()
	if subdomain == "" {
		subdomain = tenant.SuggestSubdomain(name)
	}
	plan, err := tenant.ParsePlan(flags[planFlag].GetString())
	if err != nil {
		return provisioner.Request{}, err
	}
	email := flags[adminEmailFlag].GetString()
	if email == "" {
		return provisioner.Request{}, fmt.Errorf("administrator email is required (use --%s flag)", adminEmailFlag)
	}

	password := flags[adminPasswordFlag].GetString()
	if password == "" {
		password = os.Getenv(PasswordEnv)
	}
	if password == "" {
		return provisioner.Request{}, fmt.Errorf("administrator password is required (use --%s flag or %s)", adminPasswordFlag, PasswordEnv)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return provisioner.Request{}, fmt.Errorf("failed to hash password: %w", err)
	}

	return provisioner.Request{
		Name:              name,
		Subdomain:         subdomain,
		Plan:              plan,
		AdminEmail:        email,
		AdminPasswordHash: string(hash),
		AdminName:         flags[adminNameFlag].GetString(),
	}, nil
}

type output struct {
	*provisioner.Result
	Verification *provisioner.Report `json:"verification,omitempty"`
}

func provisionCommand(cmd *cobra.Command, _ []string) error {
	verify, err := cast.ToBoolE(flags[verifyFlag].GetString())
	if err != nil {
		return fmt.Errorf("invalid --%s value: %w", verifyFlag, err)
	}
	req, err := buildRequest()
	if err != nil {
		return err
	}

	e, err := cliutil.OpenEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	res, err := e.ProvisionTenant(cmd.Context(), req)
	if err != nil {
		return err
	}

	out := output{Result: res}
	if verify {
		report, err := e.Provisioner().Verify(cmd.Context(), res.Tenant.SchemaName)
		if err != nil {
			return err
		}
		out.Verification = report
		if !report.Complete() {
			_ = cliutil.PrintJSON(cmd.OutOrStdout(), out)
			return fmt.Errorf("schema %s is incomplete: missing %v", report.Schema, report.MissingTables)
		}
	}
	return cliutil.PrintJSON(cmd.OutOrStdout(), out)
}
