package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbcdk/rawrepo-record-service/internal/build"
)

// NewVersionCommand returns the command to get the rawrepo version
func NewVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Return the rawrepo version",
		Long:  "Return the rawrepo version.",
		RunE:  version,
		Args:  cobra.NoArgs,
	}

	return cmd
}

// print out the built version
func version(cmd *cobra.Command, _ []string) error {
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "rawrepo version %s date %s commit id %s\n", build.Version, build.Date, build.Commit)
	return err
}
