package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of coursework-engine",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("coursework-engine %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
