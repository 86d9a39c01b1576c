// Package migrate implements the commands that manage the shared catalog
// schema.
package migrate

import (
	"fmt"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/stokaro/tenancy/cmd/internal/cliutil"
	"github.com/stokaro/tenancy/migration/migrator"
)

const versionFlag = "version"

var toFlags = map[string]cobraflags.Flag{
	versionFlag: &cobraflags.StringFlag{
		Name:  versionFlag,
		Value: "",
		Usage: "Target catalog migration version (required)",
	},
}

func NewMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate [up|down|to|status]",
		Short: "Manage the tenant catalog schema",
		Long: `Apply or revert the versioned migrations of the shared tenant catalog.

Without a subcommand all pending migrations are applied, which is what
"up" does as well. Tenant schemas are not touched by these commands.

Examples:
  tenantctl migrate                      # Apply pending migrations
  tenantctl migrate status               # Show the current version
  tenantctl migrate down                 # Revert the last migration
  tenantctl migrate to --version 1       # Migrate up or down to version 1`,
		RunE: upCommand,
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending catalog migrations",
		RunE:  upCommand,
	})
	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Revert the last applied catalog migration",
		RunE:  downCommand,
	})
	migrateCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the catalog migration status",
		RunE:  statusCommand,
	})

	toCmd := &cobra.Command{
		Use:   "to",
		Short: "Migrate the catalog to a specific version",
		RunE:  toCommand,
	}
	cobraflags.RegisterMap(toCmd, toFlags)
	migrateCmd.AddCommand(toCmd)

	return migrateCmd
}

func withMigrator(cmd *cobra.Command, fn func(m *migrator.Migrator) error) error {
	e, err := cliutil.OpenEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	m, err := e.Migrator()
	if err != nil {
		return err
	}
	return fn(m)
}

func upCommand(cmd *cobra.Command, _ []string) error {
	return withMigrator(cmd, func(m *migrator.Migrator) error {
		if err := m.MigrateUp(cmd.Context()); err != nil {
			return err
		}
		return printVersion(cmd, m)
	})
}

func downCommand(cmd *cobra.Command, _ []string) error {
	return withMigrator(cmd, func(m *migrator.Migrator) error {
		if err := m.MigrateDown(cmd.Context()); err != nil {
			return err
		}
		return printVersion(cmd, m)
	})
}

func toCommand(cmd *cobra.Command, _ []string) error {
	raw := toFlags[versionFlag].GetString()
	if raw == "" {
		return fmt.Errorf("target version is required (use --%s flag)", versionFlag)
	}
	version, err := cast.ToIntE(raw)
	if err != nil || version < 0 {
		return fmt.Errorf("invalid target version %q", raw)
	}

	return withMigrator(cmd, func(m *migrator.Migrator) error {
		if err := m.MigrateTo(cmd.Context(), version); err != nil {
			return err
		}
		return printVersion(cmd, m)
	})
}

func statusCommand(cmd *cobra.Command, _ []string) error {
	return withMigrator(cmd, func(m *migrator.Migrator) error {
		status, err := m.GetMigrationStatus(cmd.Context())
		if err != nil {
			return err
		}
		return cliutil.PrintJSON(cmd.OutOrStdout(), status)
	})
}

func printVersion(cmd *cobra.Command, m *migrator.Migrator) error {
	version, err := m.GetCurrentVersion(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Catalog schema at version %d\n", version)
	return nil
}
