package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "svdpatch",
	Short: "CMSIS-SVD patch engine",
	Long: `svdpatch applies a declarative YAML patch document to a CMSIS-SVD file,
adding, modifying, deleting and restructuring peripherals, registers and
fields without hand-editing the generated XML.

It also reports on a device's interrupt table and memory map, and can
emit Makefile dependency lines for a patch document's includes.`,
}

func main() {
	os.Exit(run())
}

// run executes the root command and returns the process exit code. Split out
// from main so testscript.RunMain can invoke it as an in-process subcommand.
func run() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
