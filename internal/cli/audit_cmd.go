package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/yukikurage/timesheet-api/internal/constants"
	"github.com/yukikurage/timesheet-api/internal/services"
)

func newAuditCmd(app *App) *cobra.Command {
	var (
		entity   string
		entityID uint64
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Print the audit history of one record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, ok := services.ParseAuditEntity(strings.ToUpper(strings.ReplaceAll(entity, "-", "_")))
			if !ok {
				return fmt.Errorf("unknown entity %q", entity)
			}
			if limit < constants.MinPageSize || limit > constants.MaxPageSize {
				return fmt.Errorf("--limit must be between %d and %d", constants.MinPageSize, constants.MaxPageSize)
			}

			logs, total, err := app.Audit.Trail(cmd.Context(), e, entityID, limit)
			if err != nil {
				return fmt.Errorf("reading audit history: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDATE\tUSER\tACTION\tCHANGES")
			for _, l := range logs {
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n",
					l.ID, l.CreatedAt.Format(time.RFC3339), l.UserID, l.Action, string(l.Changes))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d entries\n", len(logs), total)
			return nil
		},
	}

	cmd.Flags().StringVar(&entity, "entity", "", "audited entity (TIMESHEET, HR_TIMESHEET, HR_ACTIVITY, PROJECT, TASK, USER)")
	cmd.Flags().Uint64Var(&entityID, "entity-id", 0, "record ID")
	cmd.Flags().IntVar(&limit, "limit", constants.DefaultPageSize, "maximum number of entries")
	_ = cmd.MarkFlagRequired("entity")
	_ = cmd.MarkFlagRequired("entity-id")

	return cmd
}
