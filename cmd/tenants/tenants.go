// Package tenants implements the commands that inspect and manage catalog
// entries of existing tenants.
package tenants

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/go-extras/cobraflags"
	"github.com/google/uuid"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/stokaro/tenancy/cmd/internal/cliutil"
	"github.com/stokaro/tenancy/engine"
	"github.com/stokaro/tenancy/tenant"
	"github.com/stokaro/tenancy/tenant/catalog"
)

const (
	statusFlag         = "status"
	planFlag           = "plan"
	searchFlag         = "search"
	includeDeletedFlag = "include-deleted"
	limitFlag          = "limit"
	offsetFlag         = "offset"
	outputFlag         = "output"

	nameFlag        = "name"
	settingsFlag    = "settings"
	expiresAtFlag   = "expires-at"
	clearExpiryFlag = "clear-expiry"
	elevatedFlag    = "elevated"
)

var listFlags = map[string]cobraflags.Flag{
	statusFlag: &cobraflags.StringFlag{
		Name:  statusFlag,
		Value: "",
		Usage: "Comma-separated statuses to list, e.g. active,suspended",
	},
	planFlag: &cobraflags.StringFlag{
		Name:  planFlag,
		Value: "",
		Usage: "Only list tenants on this plan",
	},
	searchFlag: &cobraflags.StringFlag{
		Name:  searchFlag,
		Value: "",
		Usage: "Case-insensitive substring of the name or subdomain",
	},
	includeDeletedFlag: &cobraflags.StringFlag{
		Name:  includeDeletedFlag,
		Value: "false",
		Usage: "Also list soft-deleted tenants",
	},
	limitFlag: &cobraflags.StringFlag{
		Name:  limitFlag,
		Value: "0",
		Usage: "Page size (0 uses the configured default)",
	},
	offsetFlag: &cobraflags.StringFlag{
		Name:  offsetFlag,
		Value: "0",
		Usage: "Number of tenants to skip",
	},
	outputFlag: &cobraflags.StringFlag{
		Name:  outputFlag,
		Value: "table",
		Usage: "Output format: table or json",
	},
}

var updateFlags = map[string]cobraflags.Flag{
	nameFlag: &cobraflags.StringFlag{
		Name:  nameFlag,
		Value: "",
		Usage: "New display name",
	},
	statusFlag: &cobraflags.StringFlag{
		Name:  statusFlag,
		Value: "",
		Usage: "New status (requires --elevated)",
	},
	planFlag: &cobraflags.StringFlag{
		Name:  planFlag,
		Value: "",
		Usage: "New plan (requires --elevated)",
	},
	settingsFlag: &cobraflags.StringFlag{
		Name:  settingsFlag,
		Value: "",
		Usage: `Settings patch as JSON, e.g. '{"features":{"comments":false}}'`,
	},
	expiresAtFlag: &cobraflags.StringFlag{
		Name:  expiresAtFlag,
		Value: "",
		Usage: "New expiry date (RFC 3339)",
	},
	clearExpiryFlag: &cobraflags.StringFlag{
		Name:  clearExpiryFlag,
		Value: "false",
		Usage: "Remove the expiry date",
	},
	elevatedFlag: &cobraflags.StringFlag{
		Name:  elevatedFlag,
		Value: "false",
		Usage: "Allow changes to status and plan",
	},
}

func NewTenantsCommand() *cobra.Command {
	tenantsCmd := &cobra.Command{
		Use:   "tenants",
		Short: "Inspect and manage tenants",
		Long: `Inspect and manage tenants recorded in the catalog.

Examples:
  tenantctl tenants list --status active,suspended --search acme
  tenantctl tenants get acme
  tenantctl tenants resolve acme.blogs.example.com:8443
  tenantctl tenants update 6f1c1e4e-8d0a-4d43-9a8e-0f3c0c6d2b11 --plan pro --elevated true
  tenantctl tenants delete 6f1c1e4e-8d0a-4d43-9a8e-0f3c0c6d2b11`,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List tenants",
		Args:  cobra.NoArgs,
		RunE:  listCommand,
	}
	cobraflags.RegisterMap(listCmd, listFlags)

	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a tenant",
		Args:  cobra.ExactArgs(1),
		RunE:  updateCommand,
	}
	cobraflags.RegisterMap(updateCmd, updateFlags)

	tenantsCmd.AddCommand(
		listCmd,
		&cobra.Command{
			Use:   "get <id|subdomain>",
			Short: "Show one tenant",
			Args:  cobra.ExactArgs(1),
			RunE:  getCommand,
		},
		&cobra.Command{
			Use:   "resolve <host>",
			Short: "Show the tenant serving a host name",
			Args:  cobra.ExactArgs(1),
			RunE:  resolveCommand,
		},
		updateCmd,
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Soft-delete a tenant",
			Args:  cobra.ExactArgs(1),
			RunE:  deleteCommand,
		},
	)

	return tenantsCmd
}

func withEngine(cmd *cobra.Command, fn func(e *engine.Engine) error) error {
	e, err := cliutil.OpenEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()
	return fn(e)
}

// parseFilter reads the list flags.
func parseFilter() (catalog.Filter, catalog.Page, error) {
	var filter catalog.Filter
	for _, s := range strings.Split(listFlags[statusFlag].GetString(), ",") {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		status, err := tenant.ParseStatus(s)
		if err != nil {
			return filter, catalog.Page{}, err
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	if p := listFlags[planFlag].GetString(); p != "" {
		plan, err := tenant.ParsePlan(p)
		if err != nil {
			return filter, catalog.Page{}, err
		}
		filter.Plan = plan
	}
	filter.Search = listFlags[searchFlag].GetString()

	var err error
	if filter.IncludeDeleted, err = cast.ToBoolE(listFlags[includeDeletedFlag].GetString()); err != nil {
		return filter, catalog.Page{}, fmt.Errorf("invalid --%s value: %w", includeDeletedFlag, err)
	}
	var page catalog.Page
	if page.Limit, err = cast.ToIntE(listFlags[limitFlag].GetString()); err != nil {
		return filter, page, fmt.Errorf("invalid --%s value: %w", limitFlag, err)
	}
	if page.Offset, err = cast.ToIntE(listFlags[offsetFlag].GetString()); err != nil {
		return filter, page, fmt.Errorf("invalid --%s value: %w", offsetFlag, err)
	}
	return filter, page, nil
}

func listCommand(cmd *cobra.Command, _ []string) error {
	filter, page, err := parseFilter()
	if err != nil {
		return err
	}
	format := listFlags[outputFlag].GetString()
	if format != "table" && format != "json" {
		return fmt.Errorf("invalid output format %q: must be table or json", format)
	}

	return withEngine(cmd, func(e *engine.Engine) error {
		items, total, err := e.Catalog().List(cmd.Context(), filter, page)
		if err != nil {
			return err
		}
		if format == "json" {
			return cliutil.PrintJSON(cmd.OutOrStdout(), map[string]any{
				"tenants": items,
				"total":   total,
			})
		}
		return printTable(cmd.OutOrStdout(), items, total)
	})
}

func printTable(w io.Writer, items []*tenant.Tenant, total int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSUBDOMAIN\tSCHEMA\tSTATUS\tPLAN\tNAME\tCREATED")
	for _, t := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.Subdomain, t.SchemaName, t.Status, t.Plan, t.Name, t.CreatedAt.Format(time.DateOnly))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d of %d tenants\n", len(items), total)
	return nil
}

func getCommand(cmd *cobra.Command, args []string) error {
	return withEngine(cmd, func(e *engine.Engine) error {
		var (
			t   *tenant.Tenant
			err error
		)
		if id, perr := uuid.Parse(args[0]); perr == nil {
			t, err = e.Catalog().Get(cmd.Context(), id)
		} else {
			t, err = e.Catalog().FindBySubdomain(cmd.Context(), args[0])
		}
		if err != nil {
			return err
		}
		return cliutil.PrintJSON(cmd.OutOrStdout(), t)
	})
}

func resolveCommand(cmd *cobra.Command, args []string) error {
	return withEngine(cmd, func(e *engine.Engine) error {
		t, err := e.ResolveTenant(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !t.CanServe(time.Now()) {
			fmt.Fprintf(cmd.ErrOrStderr(), "tenant %s is %s and cannot serve requests\n", t.Subdomain, t.Status)
		}
		return cliutil.PrintJSON(cmd.OutOrStdout(), t)
	})
}

// parsePatch reads the update flags.
func parsePatch() (catalog.Patch, catalog.Access, error) {
	var patch catalog.Patch
	access := catalog.AccessStandard

	if s := updateFlags[nameFlag].GetString(); s != "" {
		patch.Name = &s
	}
	if s := updateFlags[statusFlag].GetString(); s != "" {
		status, err := tenant.ParseStatus(s)
		if err != nil {
			return patch, access, err
		}
		patch.Status = &status
	}
	if s := updateFlags[planFlag].GetString(); s != "" {
		plan, err := tenant.ParsePlan(s)
		if err != nil {
			return patch, access, err
		}
		patch.Plan = &plan
	}
	if s := updateFlags[settingsFlag].GetString(); s != "" {
		var sp tenant.SettingsPatch
		if err := json.Unmarshal([]byte(s), &sp); err != nil {
			return patch, access, fmt.Errorf("invalid --%s value: %w", settingsFlag, err)
		}
		patch.Settings = &sp
	}
	if s := updateFlags[expiresAtFlag].GetString(); s != "" {
		at, err := cast.ToTimeE(s)
		if err != nil {
			return patch, access, fmt.Errorf("invalid --%s value: %w", expiresAtFlag, err)
		}
		patch.ExpiresAt = &at
	}

	var err error
	if patch.ClearExpiry, err = cast.ToBoolE(updateFlags[clearExpiryFlag].GetString()); err != nil {
		return patch, access, fmt.Errorf("invalid --%s value: %w", clearExpiryFlag, err)
	}
	elevated, err := cast.ToBoolE(updateFlags[elevatedFlag].GetString())
	if err != nil {
		return patch, access, fmt.Errorf("invalid --%s value: %w", elevatedFlag, err)
	}
	if elevated {
		access = catalog.AccessElevated
	}
	return patch, access, nil
}

func updateCommand(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid tenant id %q: %w", args[0], err)
	}
	patch, access, err := parsePatch()
	if err != nil {
		return err
	}

	return withEngine(cmd, func(e *engine.Engine) error {
		t, err := e.Catalog().Update(cmd.Context(), id, patch, access)
		if err != nil {
			return err
		}
		return cliutil.PrintJSON(cmd.OutOrStdout(), t)
	})
}

func deleteCommand(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid tenant id %q: %w", args[0], err)
	}

	return withEngine(cmd, func(e *engine.Engine) error {
		if err := e.Catalog().SoftDelete(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Tenant %s deleted\n", id)
		return nil
	})
}
