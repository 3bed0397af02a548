package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	mlcore "github.com/YuminosukeSato/mlcore"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the mlcore version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "mlcore "+mlcore.Version)
		},
	}
}
