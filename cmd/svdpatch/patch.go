package main

import (
	"fmt"

	"github.com/sercanarga/svdpatch/internal/color"
	"github.com/sercanarga/svdpatch/internal/device"
	"github.com/sercanarga/svdpatch/internal/logging"
	"github.com/spf13/cobra"
)

var patchVerbose bool

var patchCmd = &cobra.Command{
	Use:   "patch <yaml-file>",
	Short: "Apply a YAML patch document to its SVD file",
	Long: `Loads the given YAML patch document, resolves any _include files,
applies every directive to the SVD file named by its _svd key, and
writes the result alongside the original as "<svd-file>.patched".

Example:
  svdpatch patch nrf52.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.New(patchVerbose)
		yamlFile := args[0]

		log.Debugf("loading patch document %s", yamlFile)
		outPath, err := device.Run(yamlFile)
		if err != nil {
			return fmt.Errorf("%s", color.Failf("%v", err))
		}

		fmt.Println(color.Okf("patched SVD written to %s", outPath))
		return nil
	},
}

func init() {
	patchCmd.Flags().BoolVarP(&patchVerbose, "verbose", "v", false, "enable debug logging (logs the patch document being loaded; individual directives are not logged)")
	rootCmd.AddCommand(patchCmd)
}
