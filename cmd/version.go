package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of e2ectl",
		Long:  `All software has versions. This is e2ectl's.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("e2ectl version %s\n", rootCmd.Version)
		},
	}
}
