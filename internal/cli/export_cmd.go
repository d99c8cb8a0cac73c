package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newExportCmd(app *App) *cobra.Command {
	var (
		timesheetID uint64
		out         string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write an HR timesheet report as an xlsx workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := app.Export.RenderHRTimesheet(cmd.Context(), timesheetID)
			if err != nil {
				return fmt.Errorf("exporting timesheet %d: %w", timesheetID, err)
			}
			if out == "" {
				out = result.Filename
			}
			if err := os.WriteFile(out, result.Data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", out, len(result.Data))
			if result.ArchiveKey != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Archived as %s\n", result.ArchiveKey)
			}
			return nil
		},
	}

	cmd.Flags().Uint64Var(&timesheetID, "hr-timesheet", 0, "HR timesheet ID")
	cmd.Flags().StringVar(&out, "out", "", "output file (defaults to the report file name)")
	_ = cmd.MarkFlagRequired("hr-timesheet")

	return cmd
}
