// Package register implements register- and cluster-level patch operations
// inside a single peripheral: strip, modify, add, delete, derive, collect
// into array/cluster, clear fields, and the register-spec processing loop
// that dispatches each field spec down to internal/field.
package register

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bitset"
	"github.com/sercanarga/svdpatch/internal/bitmask"
	"github.com/sercanarga/svdpatch/internal/field"
	"github.com/sercanarga/svdpatch/internal/match"
	"github.com/sercanarga/svdpatch/internal/patchdoc"
	"github.com/sercanarga/svdpatch/internal/svd"
	"github.com/sercanarga/svdpatch/internal/svderrs"
)

// IterRegisters returns every <register> inside ptag matching rspec.
func IterRegisters(ptag *svd.Element, rspec string) []*svd.Element {
	var out []*svd.Element
	for _, rtag := range ptag.Iter("register") {
		name, _ := rtag.FindText("name")
		if match.Name(name, rspec) {
			out = append(out, rtag)
		}
	}
	return out
}

// IterRegistersWithMatches is IterRegisters plus, for each register, the
// sub-specification of rspec it actually matched (relevant when rspec is a
// brace/comma alternation and different registers hit different branches).
func IterRegistersWithMatches(ptag *svd.Element, rspec string) ([]*svd.Element, []string) {
	var tags []*svd.Element
	var subs []string
	for _, rtag := range ptag.Iter("register") {
		name, _ := rtag.FindText("name")
		if sub := match.Subspec(name, rspec); sub != "" {
			tags = append(tags, rtag)
			subs = append(subs, sub)
		}
	}
	return tags, subs
}

// IterClusters returns every <cluster> inside ptag matching cspec.
func IterClusters(ptag *svd.Element, cspec string) []*svd.Element {
	var out []*svd.Element
	for _, ctag := range ptag.Iter("cluster") {
		name, _ := ctag.FindText("name")
		if match.Name(name, cspec) {
			out = append(out, ctag)
		}
	}
	return out
}

// Strip removes substr from every register name (and displayName) inside
// ptag.
func Strip(ptag *svd.Element, substr string, stripEnd bool) {
	re := match.CreateRegexFromPattern(substr, stripEnd)
	for _, rtag := range ptag.Iter("register") {
		if nametag := rtag.FindChild("name"); nametag != nil {
			nametag.Text = re.ReplaceAllString(nametag.Text, "")
		}
		if dnametag := rtag.FindChild("displayName"); dnametag != nil {
			dnametag.Text = re.ReplaceAllString(dnametag.Text, "")
		}
	}
}

// Modify applies rmod's key/value pairs to every register matching rspec.
func Modify(ptag *svd.Element, rspec string, rmod *patchdoc.Value) {
	for _, rtag := range IterRegisters(ptag, rspec) {
		for _, key := range rmod.Keys {
			val := rmod.Get(key)
			tag := rtag.FindChild(key)
			if val.Kind == patchdoc.Scalar && val.Scalar == "" {
				if tag != nil {
					rtag.RemoveChild(tag)
				}
				continue
			}
			rtag.SetText(key, val.Scalar)
		}
	}
}

// ModifyCluster applies cmod's key/value pairs to every cluster matching
// cspec.
func ModifyCluster(ptag *svd.Element, cspec string, cmod *patchdoc.Value) {
	for _, ctag := range IterClusters(ptag, cspec) {
		for _, key := range cmod.Keys {
			val := cmod.Get(key)
			tag := ctag.FindChild(key)
			if val.Scalar == "" {
				if tag != nil {
					ctag.RemoveChild(tag)
				}
				continue
			}
			ctag.SetText(key, val.Scalar)
		}
	}
}

func registersParent(ptag *svd.Element) *svd.Element {
	parent := ptag.FindChild("registers")
	if parent == nil {
		parent = svd.NewElement("registers")
		ptag.AppendChild(parent)
	}
	return parent
}

// Add creates a new register named rname inside ptag, populated from radd.
// A nested "fields" mapping is expanded via field.Add, one field at a time.
func Add(ptag *svd.Element, rname string, radd *patchdoc.Value) error {
	parent := registersParent(ptag)
	for _, rtag := range parent.Iter("register") {
		if name, _ := rtag.FindText("name"); name == rname {
			pname, _ := ptag.FindText("name")
			return &svderrs.NameCollision{Owner: pname, Kind: "register", Name: rname}
		}
	}
	rnew := svd.NewElement("register")
	parent.AppendChild(rnew)
	rnew.SetText("name", rname)
	for _, key := range radd.Keys {
		val := radd.Get(key)
		if key == "fields" {
			fieldsTag := svd.NewElement("fields")
			rnew.AppendChild(fieldsTag)
			for _, fname := range val.Keys {
				if err := field.Add(rnew, fname, val.Get(fname)); err != nil {
					return err
				}
			}
			continue
		}
		rnew.SetText(key, val.Scalar)
	}
	return nil
}

// Derive creates a new register named rname by deep-copying the register
// named by rderive's "_from" key, then overwriting the text of each child
// named by one of rderive's remaining scalar keys. A key whose child the
// copy does not have is ignored (no new child is created). Modifying fields
// on a derived register is not supported, matching the source engine.
func Derive(ptag *svd.Element, rname string, rderive *patchdoc.Value) error {
	parent := registersParent(ptag)
	pname, _ := ptag.FindText("name")

	srcName, ok := rderive.GetString("_from")
	if !ok {
		return fmt.Errorf("derive: source register not given, please add a _from field to %s", rname)
	}

	var source *svd.Element
	for _, rtag := range parent.Iter("register") {
		name, _ := rtag.FindText("name")
		if name == rname {
			return &svderrs.NameCollision{Owner: pname, Kind: "register", Name: rname}
		}
		if name == srcName {
			source = rtag
		}
	}
	if source == nil {
		return &svderrs.MissingRegister{Peripheral: pname, Spec: srcName}
	}

	rcopy := source.DeepCopy()
	rcopy.SetText("name", rname)
	if dn := rcopy.FindChild("displayName"); dn != nil {
		rcopy.RemoveChild(dn)
	}
	for _, key := range rderive.Keys {
		if key == "_from" {
			continue
		}
		if key == "fields" {
			return fmt.Errorf("modifying fields in derived register not implemented")
		}
		tag := rcopy.FindChild(key)
		if tag == nil {
			continue
		}
		tag.Text = rderive.Get(key).Scalar
	}
	parent.AppendChild(rcopy)
	return nil
}

// Delete removes every register matching rspec inside ptag.
func Delete(ptag *svd.Element, rspec string) {
	parent := ptag.FindChild("registers")
	if parent == nil {
		return
	}
	for _, rtag := range IterRegisters(ptag, rspec) {
		parent.RemoveChild(rtag)
	}
}

// ClearFields clears every field of every register matching rspec.
func ClearFields(ptag *svd.Element, rspec string) {
	for _, rtag := range IterRegisters(ptag, rspec) {
		field.Clear(rtag, "*")
	}
}

type collected struct {
	tag    *svd.Element
	suffix string
	offset int
}

func collectCandidates(ptag *svd.Element, rspec string, li, ri int) []collected {
	var out []collected
	for _, rtag := range IterRegisters(ptag, rspec) {
		name, _ := rtag.FindText("name")
		off, _ := strconv.ParseInt(mustText(rtag, "addressOffset"), 0, 64)
		out = append(out, collected{rtag, sliceToken(name, li, ri), int(off)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].offset < out[j].offset })
	return out
}

func mustText(e *svd.Element, tag string) string {
	t, _ := e.FindText(tag)
	return t
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

// CollectInArray collects every register matching rspec into a single
// dim/dimIncrement/dimIndex register array, requiring equally-spaced
// offsets and identical field bitmasks across every candidate.
func CollectInArray(ptag *svd.Element, rspec string, rmod *patchdoc.Value) error {
	li, ri := match.SpecIndex(rspec)
	entries := collectCandidates(ptag, rspec, li, ri)
	pname, _ := ptag.FindText("name")
	if len(entries) == 0 {
		return fmt.Errorf("%s: registers %s not found", pname, rspec)
	}

	dim := len(entries)
	var dimIndex string
	if rmod != nil && rmod.Has("_start_from_zero") {
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
	masks := make([]*bitset.BitSet, dim)
	for i, e := range entries {
		offsets[i] = e.offset
		masks[i] = bitmask.Bitmask(e.tag)
	}
	dimIncrement := 0
	if dim > 1 {
		dimIncrement = offsets[1] - offsets[0]
	}
	if !bitmask.CheckOffsets(offsets, dimIncrement) || !bitmask.CheckBitmasks(masks, masks[0]) {
		return &svderrs.ArrayShapeError{Owner: pname, Spec: rspec}
	}

	parent := ptag.FindChild("registers")
	for _, e := range entries[1:] {
		parent.RemoveChild(e.tag)
	}
	rtag := entries[0].tag
	nametag := rtag.FindChild("name")

	var name string
	if rmod != nil {
		if n, ok := rmod.GetString("name"); ok {
			name = n
		}
	}
	if name == "" {
		name = rspec[:li] + "%s" + rspec[len(rspec)-ri:]
	}

	if rmod != nil {
		if desc, ok := rmod.GetString("description"); ok && desc != "_original" {
			rtag.SetText("description", desc)
		} else if len(dimIndex) > 0 && dimIndex[0] == '0' {
			replaceToken(rtag, nametag.Text, li, ri)
		}
	} else if len(dimIndex) > 0 && dimIndex[0] == '0' {
		replaceToken(rtag, nametag.Text, li, ri)
	}
	nametag.Text = name
	if rmod != nil {
		if err := ProcessRegister(ptag, name, rmod); err != nil {
			return err
		}
	}
	rtag.InsertChild("dim", strconv.Itoa(dim))
	rtag.InsertChild("dimIncrement", fmt.Sprintf("0x%x", dimIncrement))
	rtag.InsertChild("dimIndex", dimIndex)
	return nil
}

func replaceToken(rtag *svd.Element, name string, li, ri int) {
	desc := rtag.FindChild("description")
	if desc == nil {
		return
	}
	token := sliceToken(name, li, ri)
	desc.Text = strings.Replace(desc.Text, token, "%s", 1)
}

// CollectInCluster groups several named register sets into one cluster
// containing one array-shaped register per rspec key of cmod (excluding
// "description"). Every rspec's candidate set must have equal cardinality,
// matching dimIndex, offsets and bitmasks to the first rspec processed.
func CollectInCluster(ptag *svd.Element, cname string, cmod *patchdoc.Value) error {
	type rset struct {
		rspec   string
		entries []collected
	}
	var rspecs []string
	for _, k := range cmod.Keys {
		if k != "description" {
			rspecs = append(rspecs, k)
		}
	}

	rdict := map[string]rset{}
	var first bool = true
	var dim int
	var dimIndex string
	var offsets []int
	var dimIncrement int
	ok := true

	pname, _ := ptag.FindText("name")

	for _, rspec := range rspecs {
		tags, subs := IterRegistersWithMatches(ptag, rspec)
		var entries []collected
		for i, rtag := range tags {
			li, ri := match.SpecIndex(subs[i])
			name, _ := rtag.FindText("name")
			off, _ := strconv.ParseInt(mustText(rtag, "addressOffset"), 0, 64)
			entries = append(entries, collected{rtag, sliceToken(name, li, ri), int(off)})
		}
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].offset < entries[j].offset })
		rdict[rspec] = rset{rspec, entries}

		curDimIndex := joinSuffixes(entries)
		curOffsets := offsetsOf(entries)
		curMasks := masksOf(entries)
		curDimIncrement := 0
		if len(entries) > 1 {
			curDimIncrement = curOffsets[1] - curOffsets[0]
		}

		if first {
			dim = len(entries)
			if dim == 0 {
				ok = false
				break
			}
			dimIndex = curDimIndex
			offsets = curOffsets
			dimIncrement = curDimIncrement
			if !bitmask.CheckOffsets(offsets, dimIncrement) || !bitmask.CheckBitmasks(curMasks, curMasks[0]) {
				ok = false
				break
			}
		} else {
			if dim != len(entries) || dimIndex != curDimIndex ||
				!bitmask.CheckOffsets(curOffsets, dimIncrement) || !bitmask.CheckBitmasks(curMasks, curMasks[0]) {
				ok = false
				break
			}
		}
		first = false
	}
	if !ok {
		return fmt.Errorf("%s: registers cannot be collected into %s cluster", pname, cname)
	}

	registersTag := registersParent(ptag)
	ctag := svd.NewElement("cluster")
	registersTag.AppendChild(ctag)

	addressOffset := -1
	for _, rspec := range rspecs {
		off := rdict[rspec].entries[0].offset
		if addressOffset < 0 || off < addressOffset {
			addressOffset = off
		}
	}

	ctag.SetText("name", cname)
	description := fmt.Sprintf("Cluster %s, containing %s", cname, strings.Join(rspecs, ", "))
	if d, hasDesc := cmod.GetString("description"); hasDesc {
		description = d
	}
	ctag.SetText("description", description)
	ctag.SetText("addressOffset", fmt.Sprintf("0x%x", addressOffset))

	for _, rspec := range rspecs {
		entries := rdict[rspec].entries
		for _, e := range entries[1:] {
			registersTag.RemoveChild(e.tag)
		}
		rtag := entries[0].tag
		rmod := cmod.Get(rspec)
		if err := ProcessRegister(ptag, rspec, rmod); err != nil {
			return err
		}
		newRtag := rtag.DeepCopy()
		registersTag.RemoveChild(rtag)

		var name string
		if rmod != nil {
			if n, ok2 := rmod.GetString("name"); ok2 {
				name = n
			}
		}
		if name == "" {
			li, ri := match.SpecIndex(rspec)
			name = rspec[:li] + rspec[len(rspec)-ri:]
		}
		newRtag.SetText("name", name)
		if rmod != nil {
			if d, ok2 := rmod.GetString("description"); ok2 {
				rtag.SetText("description", d)
			}
		}
		offTag := newRtag.FindChild("addressOffset")
		curOff, _ := strconv.ParseInt(offTag.Text, 0, 64)
		offTag.Text = fmt.Sprintf("0x%x", int(curOff)-addressOffset)
		ctag.AppendChild(newRtag)
	}
	ctag.InsertChild("dim", strconv.Itoa(dim))
	ctag.InsertChild("dimIncrement", fmt.Sprintf("0x%x", dimIncrement))
	ctag.InsertChild("dimIndex", dimIndex)
	return nil
}

func joinSuffixes(entries []collected) string {
	toks := make([]string, len(entries))
	for i, e := range entries {
		toks[i] = e.suffix
	}
	return strings.Join(toks, ",")
}

func offsetsOf(entries []collected) []int {
	out := make([]int, len(entries))
	for i, e := range entries {
		out[i] = e.offset
	}
	return out
}

func masksOf(entries []collected) []*bitset.BitSet {
	out := make([]*bitset.BitSet, len(entries))
	for i, e := range entries {
		out[i] = bitmask.Bitmask(e.tag)
	}
	return out
}

// ProcessRegister runs the full register-spec directive sequence (_delete,
// _clear, _modify, _add, _merge, _split, _strip, _strip_end, bare field
// specs, _array) against every register matching rspec inside ptag.
func ProcessRegister(ptag *svd.Element, rspec string, reg *patchdoc.Value) error {
	pname, _ := ptag.FindText("name")
	rcount := 0
	for _, rtag := range IterRegisters(ptag, rspec) {
		rcount++

		for _, fspec := range stringSeq(reg.GetSequence("_delete")) {
			field.Delete(rtag, fspec)
		}
		for _, fspec := range stringSeq(reg.GetSequence("_clear")) {
			field.Clear(rtag, fspec)
		}
		if modTag := reg.GetMapping("_modify"); modTag != nil {
			for _, fspec := range modTag.Keys {
				if err := field.Modify(rtag, fspec, modTag.Get(fspec)); err != nil {
					return err
				}
			}
		}
		if addTag := reg.GetMapping("_add"); addTag != nil {
			for _, fname := range addTag.Keys {
				if err := field.Add(rtag, fname, addTag.Get(fname)); err != nil {
					return err
				}
			}
		}
		if mergeTag := reg.Get("_merge"); mergeTag != nil {
			if err := applyMerges(rtag, mergeTag); err != nil {
				return err
			}
		}
		if splitTag := reg.Get("_split"); splitTag != nil {
			if err := applySplits(rtag, splitTag); err != nil {
				return err
			}
		}
		for _, prefix := range stringSeq(reg.GetSequence("_strip")) {
			field.Strip(rtag, prefix, false)
		}
		for _, suffix := range stringSeq(reg.GetSequence("_strip_end")) {
			field.Strip(rtag, suffix, true)
		}

		for _, fspec := range reg.Keys {
			if strings.HasPrefix(fspec, "_") {
				continue
			}
			if err := field.Process(rtag, pname, fspec, reg.Get(fspec)); err != nil {
				return err
			}
		}

		if arrTag := reg.GetMapping("_array"); arrTag != nil {
			for _, fspec := range arrTag.Keys {
				if err := field.CollectInArray(rtag, fspec, arrTag.Get(fspec)); err != nil {
					return err
				}
			}
		}
	}
	if rcount == 0 {
		return &svderrs.MissingRegister{Peripheral: pname, Spec: rspec}
	}
	return nil
}

func applyMerges(rtag *svd.Element, mergeTag *patchdoc.Value) error {
	if mergeTag.Kind == patchdoc.Sequence {
		for _, item := range mergeTag.Sequence {
			if err := field.Merge(rtag, item.Scalar, nil); err != nil {
				return err
			}
		}
		return nil
	}
	for _, key := range mergeTag.Keys {
		if err := field.Merge(rtag, key, mergeTag.Get(key)); err != nil {
			return err
		}
	}
	return nil
}

func applySplits(rtag *svd.Element, splitTag *patchdoc.Value) error {
	if splitTag.Kind == patchdoc.Sequence {
		for _, item := range splitTag.Sequence {
			if err := field.Split(rtag, item.Scalar, nil); err != nil {
				return err
			}
		}
		return nil
	}
	for _, key := range splitTag.Keys {
		if err := field.Split(rtag, key, splitTag.Get(key)); err != nil {
			return err
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
