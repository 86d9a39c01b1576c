// Package stats implements the command that prints tenant content counts.
package stats

import (
	"fmt"

	"github.com/go-extras/cobraflags"
	"github.com/google/uuid"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/stokaro/tenancy/cmd/internal/cliutil"
	tstats "github.com/stokaro/tenancy/tenant/stats"
)

const includeDeletedFlag = "include-deleted"

var flags = map[string]cobraflags.Flag{
	includeDeletedFlag: &cobraflags.StringFlag{
		Name:  includeDeletedFlag,
		Value: "false",
		Usage: "Count the content of a soft-deleted tenant",
	},
}

func NewStatsCommand() *cobra.Command {
	statsCmd := &cobra.Command{
		Use:   "stats <tenant-id>",
		Short: "Show content statistics of a tenant",
		Long: `Count the articles, users, categories, tags and comments stored in a
tenant schema.

Example:
  tenantctl stats 6f1c1e4e-8d0a-4d43-9a8e-0f3c0c6d2b11`,
		Args: cobra.ExactArgs(1),
		RunE: statsCommand,
	}

	cobraflags.RegisterMap(statsCmd, flags)

	return statsCmd
}

func statsCommand(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid tenant id %q: %w", args[0], err)
	}
	includeDeleted, err := cast.ToBoolE(flags[includeDeletedFlag].GetString())
	if err != nil {
		return fmt.Errorf("invalid --%s value: %w", includeDeletedFlag, err)
	}
	var opts []tstats.Option
	if includeDeleted {
		opts = append(opts, tstats.IncludeDeleted())
	}

	e, err := cliutil.OpenEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	s, err := e.GetStatistics(cmd.Context(), id, opts...)
	if err != nil {
		return err
	}
	return cliutil.PrintJSON(cmd.OutOrStdout(), s)
}
