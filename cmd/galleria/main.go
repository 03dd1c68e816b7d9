package main

import (
	"os"

	"github.com/galleria-app/galleria/cmd"
	"github.com/galleria-app/galleria/cmd/migrate"
	"github.com/galleria-app/galleria/cmd/run"
)

func main() {
	rootCmd := cmd.NewRootCommand()

	runCmd := run.NewRunCommand()
	rootCmd.AddCommand(runCmd)

	migrateCmd := migrate.NewMigrateCommand()
	rootCmd.AddCommand(migrateCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
