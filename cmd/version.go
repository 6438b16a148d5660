package cmd

import (
	"fmt"

	"github.com/odcpw/berabundle-sub001/internal/version"
	"github.com/spf13/cobra"
)

var runVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Prints the version info of berabundle",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Version: %s\n", version.GetVersion())
		fmt.Printf("Commit: %s\n", version.GetCommit())
		return nil
	},
}
