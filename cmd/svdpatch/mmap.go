package main

import (
	"fmt"
	"os"

	"github.com/sercanarga/svdpatch/internal/color"
	"github.com/sercanarga/svdpatch/internal/mmap"
	"github.com/sercanarga/svdpatch/internal/svd"
	"github.com/spf13/cobra"
)

var mmapCmd = &cobra.Command{
	Use:   "mmap <svd-file>",
	Short: "Print a flattened memory map of a device",
	Long: `Prints one line per peripheral, register and field, in address order,
followed by the device's interrupt vector table.

Example:
  svdpatch mmap nrf52.svd.patched`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("%s", color.Failf("%v", err))
		}
		defer f.Close()

		root, err := svd.Decode(f)
		if err != nil {
			return fmt.Errorf("%s", color.Failf("%v", err))
		}

		if err := mmap.Report(cmd.OutOrStdout(), root); err != nil {
			return fmt.Errorf("%s", color.Failf("%v", err))
		}
		fmt.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mmapCmd)
}
