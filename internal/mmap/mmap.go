// Package mmap renders a flattened, human-readable memory map of a device:
// one line per peripheral, register and field, plus a trailing interrupt
// vector listing.
package mmap

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/sercanarga/svdpatch/internal/bitmask"
	"github.com/sercanarga/svdpatch/internal/svd"
)

// Report writes the memory map of root (a decoded <device> element) to w.
func Report(w io.Writer, root *svd.Element) error {
	var lines []string

	for _, ptag := range root.Iter("peripheral") {
		if _, derived := ptag.Attr("derivedFrom"); derived {
			continue
		}
		name, _ := ptag.FindText("name")
		baseTxt, _ := ptag.FindText("baseAddress")
		base, _ := strconv.ParseInt(baseTxt, 0, 64)
		lines = append(lines, fmt.Sprintf("0x%08X A PERIPHERAL %s", base, name))

		registersTag := ptag.FindChild("registers")
		if registersTag != nil {
			lines = append(lines, walkRegisters(registersTag, base)...)
		}
	}
	// Every line starts with a fixed-width "0x%08X" address, so a string sort
	// orders them by address (peripheral, then register, then its fields).
	sort.Strings(lines)

	ints, err := collectInterrupts(root)
	if err != nil {
		return err
	}
	lines = append(lines, ints...)

	_, err = io.WriteString(w, strings.Join(lines, "\n"))
	return err
}

func walkRegisters(container *svd.Element, base int64) []string {
	var lines []string
	for _, child := range container.Children {
		offTxt, _ := child.FindText("addressOffset")
		off, _ := strconv.ParseInt(offTxt, 0, 64)
		addr := base + off
		name, _ := child.FindText("name")
		desc, _ := child.FindText("description")

		switch child.Tag {
		case "register":
			lines = append(lines, fmt.Sprintf("0x%08X B  REGISTER %s: %s", addr, name, desc))
			if fieldsTag := child.FindChild("fields"); fieldsTag != nil {
				for _, ftag := range fieldsTag.FindAllChildren("field") {
					offset, width := bitmask.FieldOffsetWidth(ftag)
					fname, _ := ftag.FindText("name")
					fdesc, _ := ftag.FindText("description")
					lines = append(lines, fmt.Sprintf("0x%08X C   FIELD %02dw%02d %s: %s", addr, offset, width, fname, fdesc))
				}
			}
		case "cluster":
			lines = append(lines, walkRegisters(child, addr)...)
		}
	}
	return lines
}

func collectInterrupts(root *svd.Element) ([]string, error) {
	type irq struct {
		value      int64
		name, desc string
		peripheral string
	}
	var all []irq
	for _, ptag := range root.Iter("peripheral") {
		pname, _ := ptag.FindText("name")
		for _, itag := range ptag.FindAllChildren("interrupt") {
			name, _ := itag.FindText("name")
			desc, _ := itag.FindText("description")
			valTxt, _ := itag.FindText("value")
			val, _ := strconv.ParseInt(valTxt, 0, 64)
			all = append(all, irq{val, name, desc, pname})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].value < all[j].value })

	out := make([]string, len(all))
	for i, e := range all {
		out[i] = fmt.Sprintf("INTERRUPT %03d: %s (%s): %s", e.value, e.name, e.peripheral, e.desc)
	}
	return out, nil
}
