package mmap

import (
	"strings"
	"testing"

	"github.com/sercanarga/svdpatch/internal/svd"
)

const fixtureSVD = `<?xml version="1.0"?>
<device>
  <peripherals>
    <peripheral>
      <name>PeriphA</name>
      <baseAddress>0x10000000</baseAddress>
      <interrupt>
        <name>INT_A1</name>
        <value>1</value>
        <description>Interrupt A1</description>
      </interrupt>
      <registers>
        <register>
          <name>REG1</name>
          <description>Register A1</description>
          <addressOffset>0x10</addressOffset>
          <fields>
            <field>
              <name>F1</name>
              <description>Field 1</description>
              <bitOffset>5</bitOffset>
              <bitWidth>2</bitWidth>
            </field>
          </fields>
        </register>
      </registers>
    </peripheral>
    <peripheral>
      <name>Derived</name>
      <baseAddress>0x10001000</baseAddress>
    </peripheral>
  </peripherals>
</device>
`

func TestReportMatchesExpectedFormat(t *testing.T) {
	root, err := svd.Decode(strings.NewReader(fixtureSVD))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	ptag := root.FindChild("peripherals").FindAllChildren("peripheral")[1]
	ptag.SetAttr("derivedFrom", "PeriphA")

	var sb strings.Builder
	if err := Report(&sb, root); err != nil {
		t.Fatalf("Report: %v", err)
	}
	out := sb.String()

	wantLines := []string{
		"0x10000000 A PERIPHERAL PeriphA",
		"0x10000010 B  REGISTER REG1: Register A1",
		"0x10000010 C   FIELD 05w02 F1: Field 1",
		"INTERRUPT 001: INT_A1 (PeriphA): Interrupt A1",
	}
	for _, want := range wantLines {
		if !strings.Contains(out, want) {
			t.Errorf("output missing line %q\nfull output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Derived") {
		t.Errorf("derived peripheral should not appear in the memory map: %s", out)
	}
}
