package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weftlang/weft/internal/config"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the weftc version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s %s\n", config.ToolName, config.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
