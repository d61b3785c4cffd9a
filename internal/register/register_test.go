package register

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

func peripheralWithRegisters(t *testing.T, names ...string) *svd.Element {
	t.Helper()
	ptag := svd.NewElement("peripheral")
	ptag.SetText("name", "PERIPH")
	regs := ptag.InsertChild("registers", "")
	for i, n := range names {
		rtag := regs.InsertChild("register", "")
		rtag.SetText("name", n)
		rtag.SetText("addressOffset", hex(i*4))
		fieldsTag := rtag.InsertChild("fields", "")
		f := fieldsTag.InsertChild("field", "")
		f.SetText("name", "EN")
		f.SetText("bitOffset", "0")
		f.SetText("bitWidth", "1")
	}
	return ptag
}

func hex(n int) string {
	return "0x" + hexDigits(n)
}

func hexDigits(n int) string {
	const digits = "0123456789abcdef"
	if n == 0 {
		return "0"
	}
	var out []byte
	for n > 0 {
		out = append([]byte{digits[n%16]}, out...)
		n /= 16
	}
	return string(out)
}

func TestAddRejectsDuplicateRegisterName(t *testing.T) {
	ptag := peripheralWithRegisters(t, "REG0")
	err := Add(ptag, "REG0", mapping())
	if err == nil {
		t.Fatalf("expected a NameCollision error")
	}
}

func TestAddExpandsNestedFields(t *testing.T) {
	ptag := peripheralWithRegisters(t)
	fields := mapping("EN", mapping("bitOffset", scalar("0"), "bitWidth", scalar("1")))
	if err := Add(ptag, "CR1", mapping("addressOffset", scalar("0x0"), "fields", fields)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	regs := IterRegisters(ptag, "CR1")
	if len(regs) != 1 {
		t.Fatalf("got %d registers named CR1, want 1", len(regs))
	}
}

func TestDeriveCopiesSourceRegister(t *testing.T) {
	ptag := peripheralWithRegisters(t, "SRC")
	src := IterRegisters(ptag, "SRC")[0]
	src.SetText("description", "original")

	if err := Derive(ptag, "DST", mapping("_from", scalar("SRC"), "description", scalar("derived copy"))); err != nil {
		t.Fatalf("Derive: %v", err)
	}
	regs := IterRegisters(ptag, "DST")
	if len(regs) != 1 {
		t.Fatalf("got %d registers named DST, want 1", len(regs))
	}
	desc, _ := regs[0].FindText("description")
	if desc != "derived copy" {
		t.Fatalf("description = %q, want %q", desc, "derived copy")
	}
	// the source register's own fields should be untouched.
	srcFields := IterRegisters(ptag, "SRC")[0].FindChild("fields").Iter("field")
	if len(srcFields) != 1 {
		t.Fatalf("source register fields were mutated by Derive")
	}
}

func TestDeriveMissingSourceReturnsError(t *testing.T) {
	ptag := peripheralWithRegisters(t)
	err := Derive(ptag, "DST", mapping("_from", scalar("NOPE")))
	if err == nil {
		t.Fatalf("expected a MissingRegister error")
	}
}

func TestCollectInArrayCollapsesUniformStrideRegisters(t *testing.T) {
	ptag := peripheralWithRegisters(t, "CH0", "CH1", "CH2")
	if err := CollectInArray(ptag, "CH*", nil); err != nil {
		t.Fatalf("CollectInArray: %v", err)
	}
	regs := IterRegisters(ptag, "*")
	if len(regs) != 1 {
		t.Fatalf("got %d registers after collecting into an array, want 1", len(regs))
	}
	dim, _ := regs[0].FindText("dim")
	if dim != "3" {
		t.Fatalf("dim = %s, want 3", dim)
	}
}

func TestCollectInArrayRejectsMismatchedBitmasks(t *testing.T) {
	ptag := peripheralWithRegisters(t, "CH0", "CH1")
	// give CH1 a different field layout so the bitmasks can't match.
	ch1 := IterRegisters(ptag, "CH1")[0]
	extra := ch1.FindChild("fields").InsertChild("field", "")
	extra.SetText("name", "EXTRA")
	extra.SetText("bitOffset", "4")
	extra.SetText("bitWidth", "1")

	if err := CollectInArray(ptag, "CH*", nil); err == nil {
		t.Fatalf("expected an ArrayShapeError for mismatched field layouts")
	}
}

func TestProcessRegisterMissingRegisterReturnsError(t *testing.T) {
	ptag := peripheralWithRegisters(t)
	err := ProcessRegister(ptag, "NOPE", mapping())
	if err == nil {
		t.Fatalf("expected a MissingRegister error")
	}
}

func TestProcessRegisterDeletesFields(t *testing.T) {
	ptag := peripheralWithRegisters(t, "REG0")
	spec := mapping("_delete", sequence(scalar("EN")))
	if err := ProcessRegister(ptag, "REG0", spec); err != nil {
		t.Fatalf("ProcessRegister: %v", err)
	}
	rtag := IterRegisters(ptag, "REG0")[0]
	if len(rtag.FindChild("fields").Iter("field")) != 0 {
		t.Fatalf("expected EN field to be deleted")
	}
}

func TestStripRemovesSubstringFromRegisterNames(t *testing.T) {
	ptag := peripheralWithRegisters(t, "REG_A", "REG_B")
	Strip(ptag, "REG_", false)
	names := []string{}
	for _, r := range IterRegisters(ptag, "*") {
		n, _ := r.FindText("name")
		names = append(names, n)
	}
	if names[0] != "A" || names[1] != "B" {
		t.Fatalf("names = %v, want [A B]", names)
	}
}
