package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"intihelp/cmd/migrate"
	"intihelp/cmd/serve"
	"intihelp/cmd/version"
	"intihelp/internal/config"
)

var cmds = []*cobra.Command{
	serve.Cmd,
	migrate.Cmd,
	version.Cmd,
}

// Execute builds the command tree and executes commands.
func Execute() error {
	command := &cobra.Command{
		Use:           "intihelp",
		Short:         "IntiHelp marketplace API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Usage()
		},
	}
	command.PersistentFlags().StringP("config", "c", config.DefaultPath, "path to the YAML config file")

	for _, c := range cmds {
		command.AddCommand(c)
	}

	return command.ExecuteContext(context.Background())
}
