// Command tenantctl provisions and manages the tenants of a schema-per-tenant
// database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stokaro/tenancy/cmd/generate"
	"github.com/stokaro/tenancy/cmd/internal/cliutil"
	"github.com/stokaro/tenancy/cmd/migrate"
	"github.com/stokaro/tenancy/cmd/provision"
	"github.com/stokaro/tenancy/cmd/stats"
	"github.com/stokaro/tenancy/cmd/tenants"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "tenantctl",
		Short:         "Provision and manage tenants of a schema-per-tenant database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cliutil.BindRoot(root)

	root.AddCommand(
		migrate.NewMigrateCommand(),
		provision.NewProvisionCommand(),
		tenants.NewTenantsCommand(),
		stats.NewStatsCommand(),
		generate.NewGenerateCommand(),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
