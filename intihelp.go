package main

import (
	"intihelp/cmd"
	"intihelp/internal/logging"
)

func main() {
	defer logging.Sync()

	if err := cmd.Execute(); err != nil {
		logging.Fatal("intihelp failure", "error", err)
	}
}
