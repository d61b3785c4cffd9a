package main

import (
	"fmt"
	"os"

	"github.com/sercanarga/svdpatch/internal/color"
	"github.com/sercanarga/svdpatch/internal/interrupts"
	"github.com/sercanarga/svdpatch/internal/svd"
	"github.com/spf13/cobra"
)

var interruptsNoGaps bool

var interruptsCmd = &cobra.Command{
	Use:   "interrupts <svd-file>",
	Short: "Report a device's interrupt vector table",
	Long: `Lists every interrupt defined anywhere in the device, sorted by
vector number, and reports any unused vector numbers below the
highest one seen.

Example:
  svdpatch interrupts nrf52.svd.patched`,
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

		if err := interrupts.Report(cmd.OutOrStdout(), root, !interruptsNoGaps); err != nil {
			return fmt.Errorf("%s", color.Failf("%v", err))
		}
		fmt.Println()
		return nil
	},
}

func init() {
	interruptsCmd.Flags().BoolVar(&interruptsNoGaps, "no-gaps", false, "don't report unused vector numbers")
	rootCmd.AddCommand(interruptsCmd)
}
