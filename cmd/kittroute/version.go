package main

import (
	"fmt"

	"github.com/Jmi2020/KITT-sub006/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("kittroute version %s\n", version.Get())
	},
}
