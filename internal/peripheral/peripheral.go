// Package peripheral implements peripheral-level patch operations inside a
// device: modify, add, delete, derive, copy, rebase, and the peripheral-spec
// processing loop that dispatches each register/interrupt/cluster spec down
// to internal/register.
package peripheral

import (
	"fmt"
	"strings"

	"github.com/sercanarga/svdpatch/internal/include"
	"github.com/sercanarga/svdpatch/internal/match"
	"github.com/sercanarga/svdpatch/internal/patchdoc"
	"github.com/sercanarga/svdpatch/internal/register"
	"github.com/sercanarga/svdpatch/internal/svd"
	"github.com/sercanarga/svdpatch/internal/svderrs"
)

// IterPeripherals returns every <peripheral> inside device matching pspec.
// When checkDerived is true (the default for most callers), peripherals
// already carrying a derivedFrom attribute are skipped — patches target the
// concrete peripheral that owns the data, not its derived aliases.
func IterPeripherals(device *svd.Element, pspec string, checkDerived bool) []*svd.Element {
	peripheralsTag := device.FindChild("peripherals")
	if peripheralsTag == nil {
		return nil
	}
	var out []*svd.Element
	for _, ptag := range peripheralsTag.Iter("peripheral") {
		name, _ := ptag.FindText("name")
		if !match.Name(name, pspec) {
			continue
		}
		if checkDerived {
			if _, ok := ptag.Attr("derivedFrom"); ok {
				continue
			}
		}
		out = append(out, ptag)
	}
	return out
}

func findByName(peripheralsTag *svd.Element, name string) *svd.Element {
	for _, ptag := range peripheralsTag.FindAllChildren("peripheral") {
		if n, _ := ptag.FindText("name"); n == name {
			return ptag
		}
	}
	return nil
}

// Modify applies pmod's key/value pairs to every peripheral matching pspec.
// The addressBlock key replaces that block's named fields in place;
// addressBlocks replaces the whole set of address blocks.
func Modify(device *svd.Element, pspec string, pmod *patchdoc.Value) error {
	for _, ptag := range IterPeripherals(device, pspec, true) {
		for _, key := range pmod.Keys {
			value := pmod.Get(key)
			switch key {
			case "addressBlock":
				ab := ptag.FindChild("addressBlock")
				if ab == nil {
					ab = svd.NewElement("addressBlock")
					ptag.AppendChild(ab)
				}
				for _, abKey := range value.Keys {
					ab.RemoveChildrenByTag(abKey)
					ab.SetText(abKey, value.Get(abKey).Scalar)
				}
			case "addressBlocks":
				ptag.RemoveChildrenByTag("addressBlock")
				for _, abSpec := range value.Sequence {
					abEl := svd.NewElement("addressBlock")
					ptag.AppendChild(abEl)
					for _, abKey := range abSpec.Keys {
						abEl.SetText(abKey, abSpec.Get(abKey).Scalar)
					}
				}
			default:
				ptag.SetText(key, value.Scalar)
			}
		}
	}
	return nil
}

// Add creates a new peripheral named pname inside device, populated from
// padd. Nested "registers" and "interrupts" mappings are expanded one
// entry at a time; "addressBlock"/"addressBlocks" build address-block
// subtrees the same way Modify does.
func Add(device *svd.Element, pname string, padd *patchdoc.Value) error {
	parent := device.FindChild("peripherals")
	if parent == nil {
		parent = svd.NewElement("peripherals")
		device.AppendChild(parent)
	}
	if findByName(parent, pname) != nil {
		return &svderrs.NameCollision{Owner: "device", Kind: "peripheral", Name: pname}
	}

	pnew := svd.NewElement("peripheral")
	if derived, ok := padd.GetString("derivedFrom"); ok {
		pnew.SetAttr("derivedFrom", derived)
	}
	parent.AppendChild(pnew)
	pnew.SetText("name", pname)

	for _, key := range padd.Keys {
		value := padd.Get(key)
		switch key {
		case "derivedFrom", "name":
			continue
		case "registers":
			regTag := svd.NewElement("registers")
			pnew.AppendChild(regTag)
			for _, rname := range value.Keys {
				if err := register.Add(pnew, rname, value.Get(rname)); err != nil {
					return err
				}
			}
		case "interrupts":
			for _, iname := range value.Keys {
				if err := addInterrupt(pnew, iname, value.Get(iname)); err != nil {
					return err
				}
			}
		case "addressBlock":
			ab := svd.NewElement("addressBlock")
			pnew.AppendChild(ab)
			for _, abKey := range value.Keys {
				ab.SetText(abKey, value.Get(abKey).Scalar)
			}
		case "addressBlocks":
			// Fixed (spec.md quirk list): appends to the newly created
			// peripheral, not a stray out-of-scope tag.
			for _, abSpec := range value.Sequence {
				abEl := svd.NewElement("addressBlock")
				pnew.AppendChild(abEl)
				for _, abKey := range abSpec.Keys {
					abEl.SetText(abKey, abSpec.Get(abKey).Scalar)
				}
			}
		default:
			pnew.SetText(key, value.Scalar)
		}
	}
	return nil
}

// Delete removes every peripheral matching pspec, including already-derived
// ones.
func Delete(device *svd.Element, pspec string) {
	parent := device.FindChild("peripherals")
	if parent == nil {
		return
	}
	for _, ptag := range IterPeripherals(device, pspec, false) {
		parent.RemoveChild(ptag)
	}
}

// Derive strips pname's contents down to name/baseAddress/interrupt,
// marking it derivedFrom pderive, and repoints every peripheral that was
// already derivedFrom pname to pderive instead.
func Derive(device *svd.Element, pname, pderive string) error {
	parent := device.FindChild("peripherals")
	ptag := findByName(parent, pname)
	derived := findByName(parent, pderive)
	if ptag == nil {
		return &svderrs.MissingPeripheral{Spec: pname}
	}
	if derived == nil {
		return &svderrs.MissingPeripheral{Spec: pderive}
	}

	kept := ptag.Children[:0]
	for _, c := range ptag.Children {
		if c.Tag == "name" || c.Tag == "baseAddress" || c.Tag == "interrupt" {
			kept = append(kept, c)
			continue
		}
		c.Parent = nil
	}
	ptag.Children = kept
	ptag.SetAttr("derivedFrom", pderive)

	for _, p := range parent.FindAllChildren("peripheral") {
		if df, ok := p.Attr("derivedFrom"); ok && df == pname {
			p.SetAttr("derivedFrom", pderive)
		}
	}
	return nil
}

// Copy creates (or replaces) peripheral pname as a deep copy of another
// peripheral named by pmod's "from" key, which may be "name" (same file) or
// "relative/path.svd:name" (another file). basePath resolves the relative
// include path; loadDevice loads and returns that other file's device root
// on demand, letting callers plug in their own SVD loader without this
// package importing it directly (avoiding an import cycle with
// internal/device, which imports this package).
func Copy(device *svd.Element, pname string, pmod *patchdoc.Value, basePath string, loadDevice func(path string) (*svd.Element, error)) error {
	parent := device.FindChild("peripherals")
	ptag := findByName(parent, pname)

	from, _ := pmod.GetString("from")
	parts := strings.Split(from, ":")
	copyName := parts[len(parts)-1]

	var source *svd.Element
	if len(parts) == 2 {
		copyPath := include.Abspath(basePath, parts[0])
		otherDevice, err := loadDevice(copyPath)
		if err != nil {
			return err
		}
		source = otherDevice.FindChild("peripherals")
	} else {
		source = parent
	}

	srcTag := findByName(source, copyName)
	if srcTag == nil {
		return &svderrs.MissingPeripheral{Spec: copyName}
	}
	pcopy := srcTag.DeepCopy()

	if source == parent {
		pcopy.RemoveChildrenByTag("interrupt")
		pcopy.RemoveChildrenByTag("baseAddress")
	}
	pcopy.SetText("name", pname)

	if ptag != nil {
		for _, tag := range []string{"interrupt", "baseAddress"} {
			for _, c := range ptag.FindAllChildren(tag) {
				pcopy.AppendChild(c)
			}
		}
		parent.RemoveChild(ptag)
	}
	parent.AppendChild(pcopy)
	return nil
}

// Rebase moves pold's contents (everything but name/baseAddress/interrupt)
// onto pnew, marks pold as derivedFrom pnew, and repoints every peripheral
// that was already derivedFrom pold to pnew instead.
func Rebase(device *svd.Element, pnew, pold string) error {
	parent := device.FindChild("peripherals")
	oldTag := findByName(parent, pold)
	newTag := findByName(parent, pnew)
	if oldTag == nil {
		return &svderrs.MissingPeripheral{Spec: pold}
	}
	if newTag == nil {
		return &svderrs.MissingPeripheral{Spec: pnew}
	}

	var moved []*svd.Element
	kept := oldTag.Children[:0]
	for _, c := range oldTag.Children {
		if c.Tag == "name" || c.Tag == "baseAddress" || c.Tag == "interrupt" {
			kept = append(kept, c)
			continue
		}
		moved = append(moved, c)
	}
	oldTag.Children = kept
	for _, c := range moved {
		newTag.AppendChild(c)
	}

	newTag.RemoveAttr("derivedFrom")
	oldTag.SetAttr("derivedFrom", pnew)

	for _, p := range parent.FindAllChildren("peripheral") {
		if df, ok := p.Attr("derivedFrom"); ok && df == pold {
			p.SetAttr("derivedFrom", pnew)
		}
	}
	return nil
}

// ClearFields clears every field of every register inside every peripheral
// matching pspec (including derived peripherals, since clearing removes
// nothing that derive relies on).
func ClearFields(device *svd.Element, pspec string) {
	for _, ptag := range IterPeripherals(device, pspec, false) {
		register.ClearFields(ptag, "*")
	}
}

func addInterrupt(ptag *svd.Element, iname string, iadd *patchdoc.Value) error {
	for _, itag := range ptag.FindAllChildren("interrupt") {
		if n, _ := itag.FindText("name"); n == iname {
			pname, _ := ptag.FindText("name")
			return &svderrs.NameCollision{Owner: pname, Kind: "interrupt", Name: iname}
		}
	}
	inew := svd.NewElement("interrupt")
	ptag.AppendChild(inew)
	inew.SetText("name", iname)
	for _, key := range iadd.Keys {
		inew.SetText(key, iadd.Get(key).Scalar)
	}
	return nil
}

func modifyInterrupt(ptag *svd.Element, ispec string, imod *patchdoc.Value) {
	for _, itag := range ptag.FindAllChildren("interrupt") {
		name, _ := itag.FindText("name")
		if !match.Name(name, ispec) {
			continue
		}
		for _, key := range imod.Keys {
			value := imod.Get(key)
			tag := itag.FindChild(key)
			if value.Scalar == "" {
				if tag != nil {
					itag.RemoveChild(tag)
				}
				continue
			}
			itag.SetText(key, value.Scalar)
		}
	}
}

func deleteInterrupt(ptag *svd.Element, ispec string) {
	var toRemove []*svd.Element
	for _, itag := range ptag.FindAllChildren("interrupt") {
		name, _ := itag.FindText("name")
		if match.Name(name, ispec) {
			toRemove = append(toRemove, itag)
		}
	}
	for _, itag := range toRemove {
		ptag.RemoveChild(itag)
	}
}

// Process runs the full peripheral-spec directive sequence (_delete,
// _modify, _strip, _strip_end, _clear_fields, _add, _derive, bare register
// specs, _array, _cluster) against every peripheral matching pspec inside
// device. Peripherals already carrying derivedFrom only accept interrupt
// add/modify/delete; everything else is silently skipped, matching the
// source engine exactly.
func Process(device *svd.Element, pspec string, peripheral *patchdoc.Value, updateFields bool) error {
	pcount := 0
	for _, ptag := range IterPeripherals(device, pspec, false) {
		pcount++

		if _, isDerived := ptag.Attr("derivedFrom"); isDerived {
			if del := peripheral.GetMapping("_delete"); del != nil {
				if interrupts := del.GetSequence("_interrupts"); interrupts != nil {
					for _, ispec := range interrupts {
						deleteInterrupt(ptag, ispec.Scalar)
					}
				}
			}
			if mod := peripheral.GetMapping("_modify"); mod != nil {
				if interrupts := mod.GetMapping("_interrupts"); interrupts != nil {
					for _, ispec := range interrupts.Keys {
						modifyInterrupt(ptag, ispec, interrupts.Get(ispec))
					}
				}
			}
			if add := peripheral.GetMapping("_add"); add != nil {
				if interrupts := add.GetMapping("_interrupts"); interrupts != nil {
					for _, iname := range interrupts.Keys {
						if err := addInterrupt(ptag, iname, interrupts.Get(iname)); err != nil {
							return err
						}
					}
				}
			}
			continue
		}

		if del := peripheral.Get("_delete"); del != nil {
			if err := applyDeletions(ptag, del); err != nil {
				return err
			}
		}

		if mod := peripheral.GetMapping("_modify"); mod != nil {
			for _, rspec := range mod.Keys {
				rmod := mod.Get(rspec)
				switch rspec {
				case "_registers":
					for _, inner := range rmod.Keys {
						register.Modify(ptag, inner, rmod.Get(inner))
					}
				case "_interrupts":
					for _, ispec := range rmod.Keys {
						modifyInterrupt(ptag, ispec, rmod.Get(ispec))
					}
				case "_cluster":
					for _, cspec := range rmod.Keys {
						register.ModifyCluster(ptag, cspec, rmod.Get(cspec))
					}
				default:
					register.Modify(ptag, rspec, rmod)
				}
			}
		}

		for _, prefix := range stringSeq(peripheral.GetSequence("_strip")) {
			register.Strip(ptag, prefix, false)
		}
		for _, suffix := range stringSeq(peripheral.GetSequence("_strip_end")) {
			register.Strip(ptag, suffix, true)
		}

		for _, rspec := range stringSeq(peripheral.GetSequence("_clear_fields")) {
			register.ClearFields(ptag, rspec)
		}

		if add := peripheral.GetMapping("_add"); add != nil {
			for _, rname := range add.Keys {
				radd := add.Get(rname)
				switch rname {
				case "_registers":
					for _, inner := range radd.Keys {
						if err := register.Add(ptag, inner, radd.Get(inner)); err != nil {
							return err
						}
					}
				case "_interrupts":
					for _, iname := range radd.Keys {
						if err := addInterrupt(ptag, iname, radd.Get(iname)); err != nil {
							return err
						}
					}
				default:
					if err := register.Add(ptag, rname, radd); err != nil {
						return err
					}
				}
			}
		}

		if derive := peripheral.GetMapping("_derive"); derive != nil {
			for _, rname := range derive.Keys {
				rderive := derive.Get(rname)
				switch rname {
				case "_registers":
					for _, inner := range rderive.Keys {
						if err := register.Derive(ptag, inner, rderive.Get(inner)); err != nil {
							return err
						}
					}
				case "_interrupts":
					return fmt.Errorf("deriving interrupts not implemented yet: %s", rname)
				default:
					if err := register.Derive(ptag, rname, rderive); err != nil {
						return err
					}
				}
			}
		}

		for _, rspec := range peripheral.Keys {
			if strings.HasPrefix(rspec, "_") {
				continue
			}
			if err := register.ProcessRegister(ptag, rspec, peripheral.Get(rspec)); err != nil {
				return err
			}
			_ = updateFields
		}

		if arr := peripheral.GetMapping("_array"); arr != nil {
			for _, rspec := range arr.Keys {
				if err := register.CollectInArray(ptag, rspec, arr.Get(rspec)); err != nil {
					return err
				}
			}
		}

		if cluster := peripheral.GetMapping("_cluster"); cluster != nil {
			for _, cname := range cluster.Keys {
				if err := register.CollectInCluster(ptag, cname, cluster.Get(cname)); err != nil {
					return err
				}
			}
		}
	}
	if pcount == 0 {
		return &svderrs.MissingPeripheral{Spec: pspec}
	}
	return nil
}

func applyDeletions(ptag *svd.Element, del *patchdoc.Value) error {
	if del.Kind == patchdoc.Sequence {
		for _, item := range del.Sequence {
			register.Delete(ptag, item.Scalar)
		}
		return nil
	}
	for _, rspec := range del.Keys {
		switch rspec {
		case "_registers":
			for _, item := range del.Get(rspec).Sequence {
				register.Delete(ptag, item.Scalar)
			}
		case "_interrupts":
			for _, item := range del.Get(rspec).Sequence {
				deleteInterrupt(ptag, item.Scalar)
			}
		default:
			register.Delete(ptag, rspec)
		}
	}
	return nil
}

func stringSeq(vals []*patchdoc.Value) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = v.Scalar
	}
	return out
}
