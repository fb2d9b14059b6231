package serve

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"intihelp/internal/app"
	"intihelp/internal/config"
	"intihelp/internal/logging"
)

const (
	usage   = "serve"
	short   = "Start the IntiHelp HTTP API"
	long    = "This command starts the HTTP API and the due date reminder job"
	example = "intihelp serve --config config/config.yaml"
)

var (
	// Cmd is the serve command.
	Cmd = &cobra.Command{
		Use:        usage,
		Short:      short,
		Long:       long,
		Aliases:    []string{"s"},
		SuggestFor: []string{"start", "run", "up"},
		Example:    example,
		RunE:       serve,
	}
)

func serve(cmd *cobra.Command, args []string) error {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := logging.SetLevel(cfg.Log.Level); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	logging.Info("[serve] starting", "port", cfg.Server.Port, "driver", cfg.Database.Driver)
	return a.Run(ctx)
}
