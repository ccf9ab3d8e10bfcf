package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the client version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "GophLibrary Client\nVersion: %s\nBuild Date: %s\n",
			cmpOr(version, "N/A"), cmpOr(buildDate, "N/A"))
	},
}
