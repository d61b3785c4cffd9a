// Package field implements field-level patch operations inside a single
// register: strip, modify, add, delete, clear, merge, split, collect into
// array, and the enum/range builders that "process" a field spec.
package field

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sercanarga/svdpatch/internal/bitmask"
	"github.com/sercanarga/svdpatch/internal/enumbuild"
	"github.com/sercanarga/svdpatch/internal/match"
	"github.com/sercanarga/svdpatch/internal/patchdoc"
	"github.com/sercanarga/svdpatch/internal/svd"
	"github.com/sercanarga/svdpatch/internal/svderrs"
)

// IterFields returns every <field> inside rtag's <fields> whose name
// matches fspec.
func IterFields(rtag *svd.Element, fspec string) []*svd.Element {
	fieldsTag := rtag.FindChild("fields")
	if fieldsTag == nil {
		return nil
	}
	var out []*svd.Element
	for _, ftag := range fieldsTag.Iter("field") {
		name, _ := ftag.FindText("name")
		if match.Name(name, fspec) {
			out = append(out, ftag)
		}
	}
	return out
}

// SortedByOffset returns fields ordered by ascending bit offset.
func SortedByOffset(fields []*svd.Element) []*svd.Element {
	out := append([]*svd.Element(nil), fields...)
	sort.SliceStable(out, func(i, j int) bool {
		oi, _ := bitmask.FieldOffsetWidth(out[i])
		oj, _ := bitmask.FieldOffsetWidth(out[j])
		return oi < oj
	})
	return out
}

// Strip removes substr from every field name (and displayName, if present)
// inside rtag.
func Strip(rtag *svd.Element, substr string, stripEnd bool) {
	re := match.CreateRegexFromPattern(substr, stripEnd)
	fieldsTag := rtag.FindChild("fields")
	if fieldsTag == nil {
		return
	}
	for _, ftag := range fieldsTag.Iter("field") {
		if nametag := ftag.FindChild("name"); nametag != nil {
			nametag.Text = re.ReplaceAllString(nametag.Text, "")
		}
		if dnametag := ftag.FindChild("displayName"); dnametag != nil {
			dnametag.Text = re.ReplaceAllString(dnametag.Text, "")
		}
	}
}

// Modify applies fmod's key/value pairs to every field matching fspec
// inside rtag.
func Modify(rtag *svd.Element, fspec string, fmod *patchdoc.Value) error {
	for _, ftag := range IterFields(rtag, fspec) {
		for _, key := range fmod.Keys {
			tagName := key
			if tagName == "_write_constraint" {
				tagName = "writeConstraint"
			}
			val := fmod.Get(key)

			if tagName == "writeConstraint" {
				if err := modifyWriteConstraint(ftag, val); err != nil {
					return err
				}
				continue
			}
			ftag.SetText(tagName, val.Scalar)
		}
	}
	return nil
}

func modifyWriteConstraint(ftag *svd.Element, val *patchdoc.Value) error {
	tag := ftag.FindChild("writeConstraint")
	if tag == nil {
		tag = svd.NewElement("writeConstraint")
		ftag.AppendChild(tag)
	}
	tag.Children = nil

	switch {
	case val.Kind == patchdoc.Scalar && val.Scalar == "none":
		ftag.RemoveChild(tag)
	case val.Kind == patchdoc.Scalar && val.Scalar == "enum":
		tag.SetText("useEnumeratedValues", "true")
	case val.Kind == patchdoc.Sequence && len(val.Sequence) == 2:
		lo, _ := strconv.ParseInt(val.Sequence[0].Scalar, 0, 64)
		hi, _ := strconv.ParseInt(val.Sequence[1].Scalar, 0, 64)
		wc := enumbuild.MakeWriteConstraint(enumbuild.WriteConstraintRange{Min: lo, Max: hi})
		tag.AppendChild(wc.FindChild("range"))
	default:
		return &svderrs.EnumShape{Reason: fmt.Sprintf("unknown writeConstraint type %v", val.Scalar)}
	}
	return nil
}

// Add creates a new field named fname inside rtag's <fields> (creating it
// if absent), populated from fadd's scalar key/value pairs.
func Add(rtag *svd.Element, fname string, fadd *patchdoc.Value) error {
	parent := rtag.FindChild("fields")
	if parent == nil {
		parent = svd.NewElement("fields")
		rtag.AppendChild(parent)
	}
	for _, ftag := range parent.Iter("field") {
		if name, _ := ftag.FindText("name"); name == fname {
			rname, _ := rtag.FindText("name")
			return &svderrs.NameCollision{Owner: rname, Kind: "field", Name: fname}
		}
	}
	fnew := svd.NewElement("field")
	parent.AppendChild(fnew)
	fnew.SetText("name", fname)
	for _, key := range fadd.Keys {
		fnew.SetText(key, fadd.Get(key).Scalar)
	}
	return nil
}

// Delete removes every field matching fspec inside rtag.
func Delete(rtag *svd.Element, fspec string) {
	fieldsTag := rtag.FindChild("fields")
	if fieldsTag == nil {
		return
	}
	for _, ftag := range IterFields(rtag, fspec) {
		fieldsTag.RemoveChild(ftag)
	}
}

// Clear removes enumeratedValues and writeConstraint children from every
// field matching fspec inside rtag.
func Clear(rtag *svd.Element, fspec string) {
	for _, ftag := range IterFields(rtag, fspec) {
		ftag.RemoveChildrenByTag("enumeratedValues")
		ftag.RemoveChildrenByTag("writeConstraint")
	}
}

// commonPrefix returns the longest string that prefixes every element of ss.
func commonPrefix(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	prefix := ss[0]
	for _, s := range ss[1:] {
		for !strings.HasPrefix(s, prefix) {
			prefix = prefix[:len(prefix)-1]
			if prefix == "" {
				return ""
			}
		}
	}
	return prefix
}

// Merge folds every field named by value (a single fspec, a list of fspecs,
// or, if value is nil, key itself used directly as the fspec with the new
// name auto-derived as the fields' common name prefix) into one new field
// named key.
func Merge(rtag *svd.Element, key string, value *patchdoc.Value) error {
	var fields []*svd.Element
	name := key

	switch {
	case value == nil:
		fields = IterFields(rtag, key)
		var names []string
		for _, f := range fields {
			n, _ := f.FindText("name")
			names = append(names, n)
		}
		name = commonPrefix(names)
	case value.Kind == patchdoc.Scalar:
		fields = IterFields(rtag, value.Scalar)
	case value.Kind == patchdoc.Sequence:
		for _, item := range value.Sequence {
			fields = append(fields, IterFields(rtag, item.Scalar)...)
		}
	default:
		rname, _ := rtag.FindText("name")
		return &svderrs.MergeError{Register: rname, Spec: key, Reason: fmt.Sprintf("invalid usage of merge for %s.%s", rname, key)}
	}

	if len(fields) == 0 {
		rname, _ := rtag.FindText("name")
		return &svderrs.MergeError{Register: rname, Spec: key}
	}

	parent := rtag.FindChild("fields")
	desc, _ := fields[0].FindText("description")
	bitwidth := 0
	bitoffset := -1
	for _, f := range fields {
		off, w := bitmask.FieldOffsetWidth(f)
		bitwidth += w
		if bitoffset < 0 || off < bitoffset {
			bitoffset = off
		}
	}
	for _, f := range fields {
		parent.RemoveChild(f)
	}
	fnew := svd.NewElement("field")
	parent.AppendChild(fnew)
	fnew.SetText("name", name)
	fnew.SetText("description", desc)
	fnew.SetText("bitOffset", strconv.Itoa(bitoffset))
	fnew.SetText("bitWidth", strconv.Itoa(bitwidth))
	return nil
}

// CollectInArray collects every field matching fspec into a single
// dim/dimIncrement/dimIndex field array.
func CollectInArray(rtag *svd.Element, fspec string, fmod *patchdoc.Value) error {
	li, ri := match.SpecIndex(fspec)
	type entry struct {
		tag    *svd.Element
		suffix string
		offset int
	}
	var entries []entry
	for _, ftag := range IterFields(rtag, fspec) {
		fname, _ := ftag.FindText("name")
		off, _ := bitmask.FieldOffsetWidth(ftag)
		entries = append(entries, entry{ftag, sliceToken(fname, li, ri), off})
	}
	rname, _ := rtag.FindText("name")
	if len(entries) == 0 {
		return fmt.Errorf("%s: fields %s not found", rname, fspec)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].offset < entries[j].offset })

	dim := len(entries)
	var dimIndex string
	if fmod != nil && fmod.Has("_start_from_zero") {
		idx := make([]string, dim)
		for i := range idx {
			idx[i] = strconv.Itoa(i)
		}
		dimIndex = strings.Join(idx, ",")
	} else if dim == 1 {
		dimIndex = entries[0].suffix + "-" + entries[0].suffix
	} else {
		toks := make([]string, dim)
		for i, e := range entries {
			toks[i] = e.suffix
		}
		dimIndex = strings.Join(toks, ",")
	}

	offsets := make([]int, dim)
	for i, e := range entries {
		offsets[i] = e.offset
	}
	dimIncrement := 0
	if dim > 1 {
		dimIncrement = offsets[1] - offsets[0]
	}
	if !bitmask.CheckOffsets(offsets, dimIncrement) {
		return &svderrs.ArrayShapeError{Owner: rname, Spec: fspec}
	}

	parent := rtag.FindChild("fields")
	for _, e := range entries[1:] {
		parent.RemoveChild(e.tag)
	}
	ftag := entries[0].tag
	var name string
	if fmod != nil {
		if n, ok := fmod.GetString("name"); ok {
			name = n
		}
	}
	if name == "" {
		name = fspec[:li] + "%s" + fspec[len(fspec)-ri:]
	}
	nametag := ftag.FindChild("name")
	if fmod != nil {
		if desc, ok := fmod.GetString("description"); ok && desc != "_original" {
			ftag.SetText("description", desc)
		} else if len(dimIndex) > 0 && dimIndex[0] == '0' {
			replaceToken(ftag, nametag.Text, li, ri)
		}
	} else if len(dimIndex) > 0 && dimIndex[0] == '0' {
		replaceToken(ftag, nametag.Text, li, ri)
	}
	nametag.Text = name
	ftag.InsertChild("dim", strconv.Itoa(dim))
	ftag.InsertChild("dimIndex", dimIndex)
	ftag.InsertChild("dimIncrement", fmt.Sprintf("0x%x", dimIncrement))
	return nil
}

func sliceToken(name string, li, ri int) string {
	if li < 0 {
		li = 0
	}
	end := len(name) - ri
	if ri < 0 || end < li || end > len(name) {
		end = len(name)
	}
	return name[li:end]
}

func replaceToken(ftag *svd.Element, name string, li, ri int) {
	desc := ftag.FindChild("description")
	if desc == nil {
		return
	}
	token := sliceToken(name, li, ri)
	desc.Text = strings.Replace(desc.Text, token, "%s", 1)
}

// Split replaces one field matching fspec with bitwidth single-bit fields,
// named and described per fsplit (or, absent that, the common name prefix
// plus an index).
func Split(rtag *svd.Element, fspec string, fsplit *patchdoc.Value) error {
	fields := IterFields(rtag, fspec)
	rname, _ := rtag.FindText("name")
	if len(fields) == 0 {
		return &svderrs.MergeError{Register: rname, Spec: fspec, Reason: "could not find any fields to split"}
	}
	parent := rtag.FindChild("fields")

	name := ""
	if fsplit != nil {
		if n, ok := fsplit.GetString("name"); ok {
			name = n
		}
	}
	if name == "" {
		var names []string
		for _, f := range fields {
			n, _ := f.FindText("name")
			names = append(names, n)
		}
		name = commonPrefix(names) + "%s"
	}

	desc := ""
	if fsplit != nil {
		if d, ok := fsplit.GetString("description"); ok {
			desc = d
		}
	}
	if desc == "" {
		desc, _ = fields[0].FindText("description")
	}

	bitoffset, _ := bitmask.FieldOffsetWidth(fields[0])
	bitwidth := 0
	for _, f := range fields {
		_, w := bitmask.FieldOffsetWidth(f)
		bitwidth += w
	}
	parent.RemoveChild(fields[0])
	for i := 0; i < bitwidth; i++ {
		fnew := svd.NewElement("field")
		parent.AppendChild(fnew)
		fnew.SetText("name", strings.ReplaceAll(name, "%s", strconv.Itoa(i)))
		fnew.SetText("description", strings.ReplaceAll(desc, "%s", strconv.Itoa(i)))
		fnew.SetText("bitOffset", strconv.Itoa(bitoffset+i))
		fnew.SetText("bitWidth", "1")
	}
	return nil
}

// Process dispatches a field spec value to either the enum builder or the
// range builder, matching the shape the patch document gives it: a mapping
// (possibly with _read/_write sub-keys) means enum, a two-element sequence
// means a writeConstraint range.
func Process(rtag *svd.Element, pname, fspec string, val *patchdoc.Value) error {
	switch val.Kind {
	case patchdoc.Mapping:
		usages := []string{"_read", "_write"}
		any := false
		for _, u := range usages {
			if val.Has(u) {
				any = true
			}
		}
		if !any {
			if err := ProcessEnum(rtag, pname, fspec, val, "read-write"); err != nil {
				return err
			}
		}
		for _, u := range usages {
			if val.Has(u) {
				usage := strings.TrimPrefix(u, "_")
				if err := ProcessEnum(rtag, pname, fspec, val.Get(u), usage); err != nil {
					return err
				}
			}
		}
	case patchdoc.Sequence:
		if len(val.Sequence) == 2 {
			return ProcessRange(rtag, pname, fspec, val)
		}
	}
	return nil
}

// ProcessEnum attaches an enumeratedValues (or a derivedFrom stub) to every
// field matching fspec.
func ProcessEnum(rtag *svd.Element, pname, fspec string, field *patchdoc.Value, usage string) error {
	replaceIfExists := false
	if field.Has("_replace_enum") {
		field = field.Get("_replace_enum")
		replaceIfExists = true
	}

	var derived string
	hasDerived := false
	if d, ok := field.GetString("_derivedFrom"); ok {
		derived = d
		hasDerived = true
	}

	var enumName, enumUsage string
	haveEnum := false

	matched := SortedByOffset(IterFields(rtag, fspec))
	for _, ftag := range matched {
		name, _ := ftag.FindText("name")

		if !hasDerived {
			if !haveEnum {
				values, err := fieldValues(field)
				if err != nil {
					return err
				}
				enum, err := enumbuild.MakeEnumeratedValues(name, values, usage)
				if err != nil {
					return err
				}
				enumName, _ = enum.FindText("name")
				enumUsage, _ = enum.FindText("usage")
				haveEnum = true
			}

			for _, ev := range ftag.FindAllChildren("enumeratedValues") {
				var evUsage string
				if len(ev.Children) > 0 {
					if u, ok := ev.FindText("usage"); ok {
						evUsage = u
					} else {
						evUsage = "read-write"
					}
				} else {
					derivedName, _ := ev.Attr("derivedFrom")
					found := findDerivedUsage(rtag, derivedName)
					if found == "" {
						return fmt.Errorf("%s: field %s derives enumeratedValues %s which could not be found", pname, name, derivedName)
					}
					evUsage = found
				}
				if evUsage == enumUsage || evUsage == "read-write" {
					if replaceIfExists {
						ftag.RemoveChild(ev)
					} else {
						return &svderrs.EnumConflict{Peripheral: pname, Field: name, Usage: evUsage}
					}
				}
			}
			enum, err := enumbuild.MakeEnumeratedValues(name, mustFieldValues(field), usage)
			if err != nil {
				return err
			}
			ftag.AppendChild(enum)
			derived = enumName
			hasDerived = true
		} else {
			ftag.AppendChild(enumbuild.MakeDerivedEnumeratedValues(derived))
		}
	}
	if !hasDerived {
		rname, _ := rtag.FindText("name")
		return &svderrs.MissingField{Peripheral: pname, Register: rname, Spec: fspec}
	}
	return nil
}

func mustFieldValues(field *patchdoc.Value) []enumbuild.EnumValue {
	v, _ := fieldValues(field)
	return v
}

func fieldValues(field *patchdoc.Value) ([]enumbuild.EnumValue, error) {
	var out []enumbuild.EnumValue
	for _, k := range field.Keys {
		if strings.HasPrefix(k, "_") {
			continue
		}
		pair := field.Get(k)
		if pair.Kind != patchdoc.Sequence || len(pair.Sequence) != 2 {
			return nil, &svderrs.EnumShape{Reason: "enumeratedValue " + k + ": expected [value, description]"}
		}
		val, err := strconv.ParseInt(pair.Sequence[0].Scalar, 0, 64)
		if err != nil {
			return nil, &svderrs.EnumShape{Reason: "enumeratedValue " + k + ": invalid numeric value"}
		}
		out = append(out, enumbuild.EnumValue{Name: k, Value: val, Description: pair.Sequence[1].Scalar})
	}
	return out, nil
}

func findDerivedUsage(rtag *svd.Element, derivedName string) string {
	fieldsTag := rtag.FindChild("fields")
	if fieldsTag == nil {
		return ""
	}
	for _, ftag := range fieldsTag.Iter("field") {
		for _, ev := range ftag.FindAllChildren("enumeratedValues") {
			if n, _ := ev.FindText("name"); n == derivedName {
				if u, ok := ev.FindText("usage"); ok {
					return u
				}
				return "read-write"
			}
		}
	}
	return ""
}

// ProcessRange attaches a writeConstraint range to every field matching
// fspec.
func ProcessRange(rtag *svd.Element, pname, fspec string, field *patchdoc.Value) error {
	setAny := false
	lo, _ := strconv.ParseInt(field.Sequence[0].Scalar, 0, 64)
	hi, _ := strconv.ParseInt(field.Sequence[1].Scalar, 0, 64)
	for _, ftag := range IterFields(rtag, fspec) {
		ftag.AppendChild(enumbuild.MakeWriteConstraint(enumbuild.WriteConstraintRange{Min: lo, Max: hi}))
		setAny = true
	}
	if !setAny {
		rname, _ := rtag.FindText("name")
		return &svderrs.MissingField{Peripheral: pname, Register: rname, Spec: fspec}
	}
	return nil
}
