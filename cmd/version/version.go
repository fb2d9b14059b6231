package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version and Commit are set with -ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

var (
	// Cmd is the version command.
	Cmd = &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "intihelp %s (%s)\n", Version, Commit)
		},
	}
)
