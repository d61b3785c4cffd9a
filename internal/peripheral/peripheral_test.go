package peripheral

import (
	"testing"

	"github.com/sercanarga/svdpatch/internal/patchdoc"
	"github.com/sercanarga/svdpatch/internal/svd"
)

func scalar(s string) *patchdoc.Value { return &patchdoc.Value{Kind: patchdoc.Scalar, Scalar: s} }

func mapping(pairs ...interface{}) *patchdoc.Value {
	v := &patchdoc.Value{Kind: patchdoc.Mapping}
	for i := 0; i+1 < len(pairs); i += 2 {
		v.Set(pairs[i].(string), pairs[i+1].(*patchdoc.Value))
	}
	return v
}

func sequence(items ...*patchdoc.Value) *patchdoc.Value {
	return &patchdoc.Value{Kind: patchdoc.Sequence, Sequence: items}
}

func deviceWithPeripherals(t *testing.T, names ...string) *svd.Element {
	t.Helper()
	device := svd.NewElement("device")
	peripherals := device.InsertChild("peripherals", "")
	for _, n := range names {
		ptag := peripherals.InsertChild("peripheral", "")
		ptag.SetText("name", n)
		ptag.SetText("baseAddress", "0x40000000")
		itag := ptag.InsertChild("interrupt", "")
		itag.SetText("name", n + "_IRQ")
		itag.SetText("value", "1")
	}
	return device
}

func TestAddRejectsDuplicatePeripheral(t *testing.T) {
	device := deviceWithPeripherals(t, "TIM1")
	err := Add(device, "TIM1", mapping("baseAddress", scalar("0x40001000")))
	if err == nil {
		t.Fatalf("expected an error adding a duplicate peripheral name")
	}
}

func TestAddWithAddressBlocksAppendsToNewPeripheral(t *testing.T) {
	device := deviceWithPeripherals(t)
	blocks := sequence(
		mapping("offset", scalar("0x0"), "size", scalar("0x400"), "usage", scalar("registers")),
		mapping("offset", scalar("0x400"), "size", scalar("0x400"), "usage", scalar("registers")),
	)
	if err := Add(device, "TIM2", mapping("baseAddress", scalar("0x40001000"), "addressBlocks", blocks)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	ptag := IterPeripherals(device, "TIM2", true)[0]
	got := ptag.FindAllChildren("addressBlock")
	if len(got) != 2 {
		t.Fatalf("got %d addressBlock children on the new peripheral, want 2 (regression for the addPeripheral addressBlocks bug)", len(got))
	}
}

func TestModifyAddressBlockReplacesInPlace(t *testing.T) {
	device := deviceWithPeripherals(t, "TIM1")
	ptag := IterPeripherals(device, "TIM1", true)[0]
	ab := ptag.InsertChild("addressBlock", "")
	ab.SetText("offset", "0x0")
	ab.SetText("size", "0x400")

	err := Modify(device, "TIM1", mapping("addressBlock", mapping("size", scalar("0x800"))))
	if err != nil {
		t.Fatalf("Modify: %v", err)
	}
	size, _ := ptag.FindChild("addressBlock").FindText("size")
	if size != "0x800" {
		t.Fatalf("size = %q, want 0x800", size)
	}
}

func TestDeriveStripsToNameBaseAddressInterrupt(t *testing.T) {
	device := deviceWithPeripherals(t, "TIM1", "TIM2")
	tim2 := IterPeripherals(device, "TIM2", true)[0]
	tim2.InsertChild("description", "full timer")

	if err := Derive(device, "TIM2", "TIM1"); err != nil {
		t.Fatalf("Derive: %v", err)
	}
	tim2 = IterPeripherals(device, "TIM2", false)[0]
	if _, ok := tim2.Attr("derivedFrom"); !ok {
		t.Fatalf("expected derivedFrom attr to be set")
	}
	if tim2.FindChild("description") != nil {
		t.Fatalf("derived peripheral should have its description stripped")
	}
	if tim2.FindChild("baseAddress") == nil || tim2.FindChild("interrupt") == nil {
		t.Fatalf("derived peripheral should keep baseAddress and interrupt")
	}
}

func TestDeriveRepointsExistingDerivedPeripherals(t *testing.T) {
	device := deviceWithPeripherals(t, "TIM1", "TIM2", "TIM3")
	tim3 := IterPeripherals(device, "TIM3", true)[0]
	tim3.SetAttr("derivedFrom", "TIM1")

	if err := Derive(device, "TIM1", "TIM2"); err != nil {
		t.Fatalf("Derive: %v", err)
	}
	df, _ := tim3.Attr("derivedFrom")
	if df != "TIM2" {
		t.Fatalf("derivedFrom = %q, want TIM2 (repointed)", df)
	}
}

func TestProcessAddsInterruptToDerivedPeripheral(t *testing.T) {
	device := deviceWithPeripherals(t, "TIM1", "TIM2")
	tim2 := IterPeripherals(device, "TIM2", true)[0]
	tim2.SetAttr("derivedFrom", "TIM1")

	spec := mapping("_add", mapping("_interrupts", mapping("EXTRA", mapping("value", scalar("9")))))
	if err := Process(device, "TIM2", spec, false); err != nil {
		t.Fatalf("Process: %v", err)
	}
	found := false
	for _, itag := range tim2.FindAllChildren("interrupt") {
		if n, _ := itag.FindText("name"); n == "EXTRA" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the interrupt add to apply even to a derived peripheral")
	}
}

func TestProcessMissingPeripheralReturnsError(t *testing.T) {
	device := deviceWithPeripherals(t)
	err := Process(device, "NOPE", mapping(), false)
	if err == nil {
		t.Fatalf("expected a MissingPeripheral error")
	}
}
