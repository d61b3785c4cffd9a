package svd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// ignoreParent drops the back-pointer from the comparison: two detached
// copies of the same tree have different Parent chains by construction,
// and go-cmp would otherwise need to walk the cycle on every node.
var ignoreParent = cmpopts.IgnoreFields(Element{}, "Parent")

const sampleSVD = `<?xml version="1.0" encoding="UTF-8"?>
<device>
  <name>TESTDEV</name>
  <size>32</size>
  <peripherals>
    <peripheral>
      <name>TIM1</name>
      <baseAddress>0x40000000</baseAddress>
      <registers>
        <register>
          <name>CR1</name>
          <addressOffset>0x0</addressOffset>
          <fields>
            <field>
              <name>EN</name>
              <bitOffset>0</bitOffset>
              <bitWidth>1</bitWidth>
            </field>
          </fields>
        </register>
      </registers>
    </peripheral>
  </peripherals>
</device>
`

func decodeSample(t *testing.T) *Element {
	t.Helper()
	root, err := Decode(strings.NewReader(sampleSVD))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return root
}

func TestDecodeBuildsTree(t *testing.T) {
	root := decodeSample(t)
	if root.Tag != "device" {
		t.Fatalf("root tag = %q, want device", root.Tag)
	}
	name, ok := root.FindText("name")
	if !ok || name != "TESTDEV" {
		t.Fatalf("name = %q, %v", name, ok)
	}

	fields := root.Iter("field")
	if len(fields) != 1 {
		t.Fatalf("got %d fields, want 1", len(fields))
	}
	if fields[0].Parent == nil || fields[0].Parent.Tag != "fields" {
		t.Fatalf("field parent not wired correctly")
	}
}

func TestDeepCopyIsDetached(t *testing.T) {
	root := decodeSample(t)
	peripheral := root.FindChild("peripherals").FindChild("peripheral")
	cp := peripheral.DeepCopy()
	if cp.Parent != nil {
		t.Fatalf("deep copy should be detached, got parent %v", cp.Parent)
	}
	cp.SetText("name", "TIM2")
	orig, _ := peripheral.FindText("name")
	if orig != "TIM1" {
		t.Fatalf("mutating the copy mutated the original: %q", orig)
	}
}

func TestDeepCopyMatchesOriginalStructurally(t *testing.T) {
	root := decodeSample(t)
	peripheral := root.FindChild("peripherals").FindChild("peripheral")
	cp := peripheral.DeepCopy()

	if diff := cmp.Diff(peripheral, cp, ignoreParent); diff != "" {
		t.Fatalf("deep copy diverges from original (-orig +copy):\n%s", diff)
	}
}

func TestAncestorWithChild(t *testing.T) {
	root := decodeSample(t)
	field := root.Iter("field")[0]
	reg := field.AncestorWithChild("addressOffset")
	if reg == nil || reg.Tag != "register" {
		t.Fatalf("expected nearest ancestor with addressOffset to be register, got %v", reg)
	}
}

func TestEncodeRoundTrips(t *testing.T) {
	root := decodeSample(t)
	var buf bytes.Buffer
	if err := Encode(&buf, root); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "<name>TESTDEV</name>") {
		t.Fatalf("encoded output missing device name: %s", out)
	}
	if !strings.Contains(out, `baseAddress`) {
		t.Fatalf("encoded output missing baseAddress: %s", out)
	}

	reDecoded, err := Decode(strings.NewReader(out))
	if err != nil {
		t.Fatalf("re-decoding encoded output: %v", err)
	}
	if n, _ := reDecoded.FindText("name"); n != "TESTDEV" {
		t.Fatalf("round trip lost device name: %q", n)
	}
}

func TestSortElementOrdersChildren(t *testing.T) {
	field := NewElement("field")
	field.SetText("bitWidth", "1")
	field.SetText("name", "EN")
	field.SetText("bitOffset", "0")

	if err := SortElement(field); err != nil {
		t.Fatalf("SortElement: %v", err)
	}
	var tags []string
	for _, c := range field.Children {
		tags = append(tags, c.Tag)
	}
	want := []string{"name", "bitOffset", "bitWidth"}
	for i, tag := range want {
		if tags[i] != tag {
			t.Fatalf("child order = %v, want %v", tags, want)
		}
	}
}

func TestSortElementRejectsUnknownChild(t *testing.T) {
	field := NewElement("field")
	field.InsertChild("bogusChild", "x")
	if err := SortElement(field); err == nil {
		t.Fatalf("expected UnknownTag error for bogus child")
	}
}

func TestSortRecursiveSkipsVendorExtensions(t *testing.T) {
	dev := NewElement("device")
	ve := dev.InsertChild("vendorExtensions", "")
	ve.InsertChild("zzz", "keep me")
	ve.InsertChild("aaa", "keep me too")

	if err := SortRecursive(dev); err != nil {
		t.Fatalf("SortRecursive: %v", err)
	}
	if ve.Children[0].Tag != "zzz" {
		t.Fatalf("vendorExtensions children should be untouched, got %v", ve.Children)
	}
}
