package main

import (
	"fmt"

	"github.com/sercanarga/svdpatch/internal/color"
	"github.com/sercanarga/svdpatch/internal/makedeps"
	"github.com/spf13/cobra"
)

var makedepsCmd = &cobra.Command{
	Use:   "makedeps <yaml-file> <deps-file>",
	Short: "Write a Makefile dependency line for a patch document's includes",
	Long: `Resolves every _include file a patch document transitively pulls in
and writes "<deps-file>: <dep1> <dep2> ..." to deps-file, so a Makefile
can rebuild the patched SVD when any included YAML file changes.

Example:
  svdpatch makedeps nrf52.yaml nrf52.d`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := makedeps.Run(args[0], args[1]); err != nil {
			return fmt.Errorf("%s", color.Failf("%v", err))
		}
		fmt.Println(color.Okf("dependencies written to %s", args[1]))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(makedepsCmd)
}
