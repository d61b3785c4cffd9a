// Package device implements the top-level patch driver: it loads the patch
// document and the SVD file it names, resolves includes, runs every
// device-level directive in order, dispatches peripheral patches, applies
// the schema-order normaliser, and writes the patched SVD back out.
package device

import (
	"fmt"
	"os"
	"strings"

	"github.com/sercanarga/svdpatch/internal/include"
	"github.com/sercanarga/svdpatch/internal/patchdoc"
	"github.com/sercanarga/svdpatch/internal/peripheral"
	"github.com/sercanarga/svdpatch/internal/svd"
	"github.com/sercanarga/svdpatch/internal/svderrs"
)

// deviceChildren are the device-level scalar tags that _modify may target
// directly, as opposed to targeting a peripheral of the same name.
var deviceChildren = map[string]bool{
	"vendor": true, "vendorID": true, "name": true, "series": true,
	"version": true, "description": true, "licenseText": true,
	"headerSystemFilename": true, "headerDefinitionsPrefix": true,
	"addressUnitBits": true, "width": true, "size": true, "access": true,
	"protection": true, "resetValue": true, "resetMask": true,
}

// Run loads yamlPath's patch document, resolves includes, applies it to the
// SVD file it names, and writes the patched file to "<svd path>.patched".
// It returns the output path on success.
func Run(yamlPath string) (string, error) {
	root, err := patchdoc.Load(yamlPath)
	if err != nil {
		return "", err
	}
	root.Set("_path", &patchdoc.Value{Kind: patchdoc.Scalar, Scalar: yamlPath})

	svdRel, ok := root.GetString("_svd")
	if !ok {
		return "", &svderrs.LoadError{Path: yamlPath, Reason: "you must have an _svd key in the root YAML file"}
	}
	svdPath := include.Abspath(yamlPath, svdRel)
	outPath := svdPath + ".patched"

	f, err := os.Open(svdPath)
	if err != nil {
		return "", &svderrs.LoadError{Path: svdPath, Reason: err.Error()}
	}
	defer f.Close()
	svdRoot, err := svd.Decode(f)
	if err != nil {
		return "", err
	}

	if err := include.Resolve(root, yamlPath, map[string]bool{}); err != nil {
		return "", err
	}

	loadDevice := func(path string) (*svd.Element, error) {
		other, err := os.Open(path)
		if err != nil {
			return nil, &svderrs.LoadError{Path: path, Reason: err.Error()}
		}
		defer other.Close()
		return svd.Decode(other)
	}

	if err := Process(svdRoot, root, true, loadDevice); err != nil {
		return "", err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()
	if err := svd.Encode(out, svdRoot); err != nil {
		return "", err
	}
	return outPath, nil
}

// Process runs every device-level directive against svdRoot in the order
// the patch engine has always used: delete, copy, modify, clear-fields,
// add, derive, rebase, then every bare peripheral spec, then finally the
// schema-order normaliser. loadDevice resolves another SVD file for a
// cross-file _copy; it is only invoked for "path:name" copy sources.
func Process(svdRoot *svd.Element, deviceDoc *patchdoc.Value, updateFields bool, loadDevice func(path string) (*svd.Element, error)) error {
	path, _ := deviceDoc.GetString("_path")

	for _, item := range deviceDoc.GetSequence("_delete") {
		peripheral.Delete(svdRoot, item.Scalar)
	}

	if copyTag := deviceDoc.GetMapping("_copy"); copyTag != nil {
		for _, pname := range copyTag.Keys {
			if err := peripheral.Copy(svdRoot, pname, copyTag.Get(pname), path, loadDevice); err != nil {
				return err
			}
		}
	}

	if modTag := deviceDoc.GetMapping("_modify"); modTag != nil {
		for _, key := range modTag.Keys {
			val := modTag.Get(key)
			switch {
			case key == "cpu":
				if err := modifyCPU(svdRoot, val); err != nil {
					return err
				}
			case key == "_peripherals":
				for _, pspec := range val.Keys {
					if err := peripheral.Modify(svdRoot, pspec, val.Get(pspec)); err != nil {
						return err
					}
				}
			case deviceChildren[key]:
				modifyChild(svdRoot, key, val.Scalar)
			default:
				if err := peripheral.Modify(svdRoot, key, val); err != nil {
					return err
				}
			}
		}
	}

	for _, item := range deviceDoc.GetSequence("_clear_fields") {
		peripheral.ClearFields(svdRoot, item.Scalar)
	}

	if addTag := deviceDoc.GetMapping("_add"); addTag != nil {
		for _, pname := range addTag.Keys {
			if err := peripheral.Add(svdRoot, pname, addTag.Get(pname)); err != nil {
				return err
			}
		}
	}

	if deriveTag := deviceDoc.GetMapping("_derive"); deriveTag != nil {
		for _, pname := range deriveTag.Keys {
			pderive, _ := deriveTag.GetString(pname)
			if err := peripheral.Derive(svdRoot, pname, pderive); err != nil {
				return err
			}
		}
	}

	if rebaseTag := deviceDoc.GetMapping("_rebase"); rebaseTag != nil {
		for _, pname := range rebaseTag.Keys {
			pold, _ := rebaseTag.GetString(pname)
			if err := peripheral.Rebase(svdRoot, pname, pold); err != nil {
				return err
			}
		}
	}

	for _, pspec := range deviceDoc.Keys {
		if strings.HasPrefix(pspec, "_") {
			continue
		}
		if err := peripheral.Process(svdRoot, pspec, deviceDoc.Get(pspec), updateFields); err != nil {
			return err
		}
	}

	return svd.SortRecursive(svdRoot)
}

func modifyChild(svdRoot *svd.Element, key, val string) {
	for _, c := range svdRoot.FindAllChildren(key) {
		c.Text = val
	}
}

func modifyCPU(svdRoot *svd.Element, mod *patchdoc.Value) error {
	cpu := svdRoot.FindChild("cpu")
	if cpu == nil {
		cpu = svd.NewElement("cpu")
		svdRoot.AppendChild(cpu)
	}
	for _, key := range mod.Keys {
		val := mod.Get(key)
		if val.Kind != patchdoc.Scalar {
			return fmt.Errorf("cpu.%s: expected a scalar value", key)
		}
		cpu.SetText(key, val.Scalar)
	}
	return nil
}
