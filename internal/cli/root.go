// Package cli implements timesheetctl, the operator command line.
package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yukikurage/timesheet-api/internal/services"
)

// App holds what the commands operate on.
type App struct {
	DB     *gorm.DB
	Export *services.ExportService
	Audit  *services.AuditService
	Log    *zap.Logger
}

// NewRootCmd creates the top-level "timesheetctl" command.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "timesheetctl",
		Short:         "Operator tools for the timesheet API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newMigrateCmd(app),
		newExportCmd(app),
		newAuditCmd(app),
	)

	return root
}
