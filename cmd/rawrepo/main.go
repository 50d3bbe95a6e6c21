package main

import (
	"os"

	"github.com/dbcdk/rawrepo-record-service/cmd"
	"github.com/dbcdk/rawrepo-record-service/cmd/migrate"
	"github.com/dbcdk/rawrepo-record-service/cmd/service"
	serverErrors "github.com/dbcdk/rawrepo-record-service/pkg/server/errors"
)

func main() {
	rootCmd := cmd.NewRootCommand()

	rootCmd.AddCommand(migrate.NewMigrateCommand())
	rootCmd.AddCommand(service.NewDumpCommand())
	rootCmd.AddCommand(service.NewRecordCommand())
	rootCmd.AddCommand(service.NewRelationsCommand())
	rootCmd.AddCommand(cmd.NewVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(serverErrors.Classify(err).ExitCode())
	}
}
