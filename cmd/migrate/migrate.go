package migrate

import (
	"github.com/spf13/cobra"

	"intihelp/internal/app"
	"intihelp/internal/config"
	"intihelp/internal/logging"
)

var (
	// Cmd is the migrate command.
	Cmd = &cobra.Command{
		Use:     "migrate",
		Short:   "Apply the database schema",
		Long:    "This command creates every table and seeds the task type catalog. It is safe to run repeatedly.",
		Example: "intihelp migrate --config config/config.yaml",
		RunE:    migrate,
	}
)

func migrate(cmd *cobra.Command, args []string) error {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	logging.Info("migrating database")
	if err := app.Migrate(cmd.Context(), cfg); err != nil {
		return err
	}
	logging.Info("migration complete")
	return nil
}
