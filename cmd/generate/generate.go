package generate

import (
	"fmt"
	"strings"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/stokaro/tenancy/cmd/internal/cliutil"
	"github.com/stokaro/tenancy/core/platform"
	"github.com/stokaro/tenancy/migration/migrator"
	"github.com/stokaro/tenancy/tenant"
	"github.com/stokaro/tenancy/tenant/template"
)

var generateCmd = &cobra.Command{
	Use:   "generate [schema|migration]",
	Short: "Print the tenant schema or create empty catalog migration files",
	Long: `Print the DDL that provisioning runs for a tenant, or create empty catalog
migration files for manual editing.

Default behavior (no subcommand): print the tenant schema

Available subcommands:
  schema     - Print the tenant schema DDL
  migration  - Generate empty catalog migration files

Examples:
  tenantctl generate                                   # Schema for every dialect
  tenantctl generate schema --dialect mysql --subdomain acme
  tenantctl generate migration --name add_tenant_region`,
	RunE: schemaCommand,
}

// Schema flags
const (
	dialectFlag   = "dialect"
	subdomainFlag = "subdomain"
)

var schemaFlags = map[string]cobraflags.Flag{
	dialectFlag: &cobraflags.StringFlag{
		Name:  dialectFlag,
		Value: "",
		Usage: "Database dialect (postgres, mysql, mariadb). If empty, prints every dialect",
	},
	subdomainFlag: &cobraflags.StringFlag{
		Name:  subdomainFlag,
		Value: "example",
		Usage: "Subdomain the schema name is derived from",
	},
}

// Migration flags
const (
	nameFlag      = "name"
	outputDirFlag = "output-dir"
)

var migrationFlags = map[string]cobraflags.Flag{
	nameFlag: &cobraflags.StringFlag{
		Name:  nameFlag,
		Value: "",
		Usage: "Name for the migration (required)",
	},
	outputDirFlag: &cobraflags.StringFlag{
		Name:  outputDirFlag,
		Value: "./migrations",
		Usage: "Directory where migration files will be saved",
	},
}

func NewGenerateCommand() *cobra.Command {
	cobraflags.RegisterMap(generateCmd, schemaFlags)

	generateCmd.AddCommand(newSchemaCommand())
	generateCmd.AddCommand(newMigrationCommand())
	return generateCmd
}

func newSchemaCommand() *cobra.Command {
	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the tenant schema DDL",
		Long: `Print the statements that create a tenant schema with every template table,
in the order the provisioner executes them.`,
		RunE: schemaCommand,
	}

	cobraflags.RegisterMap(schemaCmd, schemaFlags)
	return schemaCmd
}

func newMigrationCommand() *cobra.Command {
	migrationCmd := &cobra.Command{
		Use:   "migration",
		Short: "Generate empty catalog migration files",
		Long: `Generate an up and a down script numbered after the highest version already
present in the output directory.`,
		RunE: migrationCommand,
	}

	cobraflags.RegisterMap(migrationCmd, migrationFlags)
	return migrationCmd
}

func schemaCommand(cmd *cobra.Command, _ []string) error {
	dialects := []string{platform.Postgres, platform.MySQL, platform.MariaDB}
	if d := schemaFlags[dialectFlag].GetString(); d != "" {
		n := platform.NormalizeDialect(d)
		if n == "" {
			return fmt.Errorf("unsupported dialect %q", d)
		}
		dialects = []string{n}
	}

	opts, err := cliutil.Options()
	if err != nil {
		return err
	}
	schema, err := tenant.SchemaName(opts.SchemaPrefix, schemaFlags[subdomainFlag].GetString())
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	for _, d := range dialects {
		statements, err := template.Render(d, schema)
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "=== %s TENANT SCHEMA (template v%d) ===\n\n", strings.ToUpper(d), template.Version)
		for _, statement := range statements {
			fmt.Fprintf(w, "%s;\n\n", statement)
		}
	}
	return nil
}

func migrationCommand(cmd *cobra.Command, _ []string) error {
	migrationName := migrationFlags[nameFlag].GetString()
	outputDir := migrationFlags[outputDirFlag].GetString()

	if migrationName == "" {
		return fmt.Errorf("migration name is required (use --name flag)")
	}

	files, err := migrator.CreateEmptyMigration(outputDir, migrationName)
	if err != nil {
		return fmt.Errorf("error generating migration files: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Generated migration files:\n")
	fmt.Fprintf(w, "  UP:   %s\n", files.UpFile)
	fmt.Fprintf(w, "  DOWN: %s\n", files.DownFile)
	fmt.Fprintf(w, "  Version: %d\n", files.Version)
	return nil
}
