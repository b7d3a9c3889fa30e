package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weftlang/weft/internal/exts"
)

var extensionsCmd = &cobra.Command{
	Use:   "extensions",
	Short: "List the extensions bundled with this compiler",
	Run: func(cmd *cobra.Command, args []string) {
		for _, e := range exts.Builtins().Extensions() {
			fmt.Printf("%s %s\n", e.Name, e.Version)
			for _, t := range e.Types() {
				if t.Linear {
					fmt.Printf("  type %s (linear)\n", t.Name)
				} else {
					fmt.Printf("  type %s\n", t.Name)
				}
			}
			for _, op := range e.Ops() {
				if op.SideEffecting {
					fmt.Printf("  op %s (effecting)\n", op.Name)
				} else {
					fmt.Printf("  op %s\n", op.Name)
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(extensionsCmd)
}
