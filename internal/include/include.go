// Package include resolves _include directives in a loaded patch document,
// merging each included file's mapping into the including mapping.
package include

import (
	"path/filepath"

	"github.com/sercanarga/svdpatch/internal/patchdoc"
)

// Abspath resolves relpath relative to the directory containing frompath and
// returns it as a cleaned absolute path (include paths are always relative
// to the file that names them, never to the process cwd). Symlinks are not
// resolved.
func Abspath(frompath, relpath string) string {
	base := filepath.Dir(filepath.Clean(frompath))
	joined := filepath.Join(base, relpath)
	if abs, err := filepath.Abs(joined); err == nil {
		return abs
	}
	return filepath.Clean(joined)
}

// Resolve recursively loads every path named by parent's _include sequence
// (and, for each file so loaded, the _include sequences nested one level
// down inside each of its non-underscore-prefixed peripheral specs), merging
// each loaded document into parent with Merge. The _include sequences inside
// parent's own peripheral specs are not resolved. path is the file parent itself was
// loaded from, used to resolve relative include paths.
//
// seen is shared across the whole recursive resolution (not reset per call)
// so that a genuine include cycle terminates instead of looping forever: an
// already-resolved absolute path is simply skipped the second time it's
// named, anywhere in the tree.
func Resolve(parent *patchdoc.Value, path string, seen map[string]bool) error {
	includes := parent.GetSequence("_include")
	for _, item := range includes {
		relpath := item.Scalar
		abs := Abspath(path, relpath)
		if seen[abs] {
			continue
		}
		seen[abs] = true

		child, err := patchdoc.Load(abs)
		if err != nil {
			return err
		}

		// Peripheral-level includes: a non-underscore key whose value is
		// itself a mapping carrying its own _include.
		for _, pspec := range child.Keys {
			if len(pspec) > 0 && pspec[0] == '_' {
				continue
			}
			pval := child.Get(pspec)
			if pval == nil || pval.Kind != patchdoc.Mapping {
				continue
			}
			if pval.Has("_include") {
				if err := Resolve(pval, abs, seen); err != nil {
					return err
				}
			}
		}

		// Top-level includes nested inside the included file itself.
		if err := Resolve(child, abs, seen); err != nil {
			return err
		}

		Merge(parent, child)
	}
	return nil
}

// Merge recursively folds child's keys into parent: parent's own values take
// priority on scalar conflicts, sequence values concatenate, and mapping
// values merge recursively. _path and _include are never copied across,
// since they describe the child's own provenance, not the parent's.
func Merge(parent, child *patchdoc.Value) {
	for _, key := range child.Keys {
		if key == "_path" || key == "_include" {
			continue
		}
		cv := child.Get(key)
		if pv := parent.Get(key); pv != nil {
			switch pv.Kind {
			case patchdoc.Sequence:
				if cv.Kind == patchdoc.Sequence {
					pv.Sequence = append(pv.Sequence, cv.Sequence...)
				}
			case patchdoc.Mapping:
				if cv.Kind == patchdoc.Mapping {
					Merge(pv, cv)
				}
			}
			// Scalar: parent's value wins, nothing to do.
			continue
		}
		parent.Set(key, cv)
	}
}
