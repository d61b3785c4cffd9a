// Package bitmask computes register sizes, field bit ranges, and the
// coverage bitmask used to check that a set of candidate registers or
// fields can legally be collected into an array or cluster.
package bitmask

import (
	"strconv"

	"github.com/bits-and-blooms/bitset"
	"github.com/sercanarga/svdpatch/internal/svd"
)

// defaultSize is the register size, in bits, assumed when no <size> is
// found on the register itself or any ancestor (peripheral, device).
const defaultSize = 32

// Size looks up a register's bit width: its own <size>, or the nearest
// ancestor's, or defaultSize if none is set anywhere up the tree.
func Size(rtag *svd.Element) int {
	for n := rtag; n != nil; n = n.Parent {
		if txt, ok := n.FindText("size"); ok {
			if v, err := strconv.ParseInt(txt, 0, 64); err == nil {
				return int(v)
			}
		}
	}
	return defaultSize
}

// FieldOffsetWidth returns a field's bit offset and width, parsing whichever
// of the three SVD forms is present: bitOffset+bitWidth, bitRange
// ("[msb:lsb]"), or lsb+msb.
func FieldOffsetWidth(ftag *svd.Element) (offset, width int) {
	if txt, ok := ftag.FindText("bitOffset"); ok {
		offset = mustParse(txt)
		width = mustParse(mustText(ftag, "bitWidth"))
		return offset, width
	}
	if txt, ok := ftag.FindText("bitRange"); ok {
		inner := txt
		if len(inner) >= 2 {
			inner = inner[1 : len(inner)-1]
		}
		msbStr, lsbStr, _ := splitColon(inner)
		lsb := mustParse(lsbStr)
		msb := mustParse(msbStr)
		return lsb, msb - lsb + 1
	}
	if txt, ok := ftag.FindText("lsb"); ok {
		lsb := mustParse(txt)
		msb := mustParse(mustText(ftag, "msb"))
		// Fixed: width is inclusive of both bit positions (msb - lsb + 1),
		// not msb - lsb.
		return lsb, msb - lsb + 1
	}
	return 0, 0
}

func splitColon(s string) (left, right string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}

func mustParse(s string) int {
	v, _ := strconv.ParseInt(s, 0, 64)
	return int(v)
}

func mustText(e *svd.Element, tag string) string {
	txt, _ := e.FindText(tag)
	return txt
}

// Bitmask computes the coverage bitmask of a register: the bits claimed by
// all of its fields, OR'd together. Used to check that two registers have
// structurally identical field layouts before collecting them into an
// array.
func Bitmask(rtag *svd.Element) *bitset.BitSet {
	size := uint(Size(rtag))
	bs := bitset.New(size)
	fieldsTag := rtag.FindChild("fields")
	if fieldsTag == nil {
		return bs
	}
	for _, ftag := range fieldsTag.Iter("field") {
		offset, width := FieldOffsetWidth(ftag)
		for b := offset; b < offset+width; b++ {
			if b >= 0 && uint(b) < size {
				bs.Set(uint(b))
			}
		}
	}
	return bs
}

// CheckOffsets reports whether consecutive offsets are all spaced exactly
// dimIncrement apart.
func CheckOffsets(offsets []int, dimIncrement int) bool {
	for i := 1; i < len(offsets); i++ {
		if offsets[i]-offsets[i-1] != dimIncrement {
			return false
		}
	}
	return true
}

// CheckBitmasks reports whether every mask in masks equals want.
func CheckBitmasks(masks []*bitset.BitSet, want *bitset.BitSet) bool {
	for _, m := range masks {
		if !m.Equal(want) {
			return false
		}
	}
	return true
}
