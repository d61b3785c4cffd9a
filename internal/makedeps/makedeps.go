// Package makedeps writes a Makefile-style dependency line listing every
// YAML file transitively included by a patch document, so build systems can
// track rebuilds.
package makedeps

import (
	"fmt"
	"os"
	"sort"

	"github.com/sercanarga/svdpatch/internal/include"
	"github.com/sercanarga/svdpatch/internal/patchdoc"
)

// Run loads yamlPath, resolves every include it (transitively) names, and
// writes "<depsPath>: <dep1> <dep2> ..." to depsPath.
func Run(yamlPath, depsPath string) error {
	device, err := patchdoc.Load(yamlPath)
	if err != nil {
		return err
	}
	device.Set("_path", &patchdoc.Value{Kind: patchdoc.Scalar, Scalar: yamlPath})

	seen := map[string]bool{}
	if err := include.Resolve(device, yamlPath, seen); err != nil {
		return err
	}

	deps := make([]string, 0, len(seen))
	for path := range seen {
		deps = append(deps, path)
	}
	sort.Strings(deps)

	f, err := os.Create(depsPath)
	if err != nil {
		return err
	}
	defer f.Close()

	line := depsPath + ":"
	for _, d := range deps {
		line += " " + d
	}
	_, err = fmt.Fprintln(f, line)
	return err
}
