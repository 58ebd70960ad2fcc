package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/m3rciful/soulbot/core/buildinfo"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "soulbot "+buildinfo.String())
	},
}
