package field

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

func registerWithFields(t *testing.T, names ...string) *svd.Element {
	t.Helper()
	rtag := svd.NewElement("register")
	rtag.SetText("name", "REG1")
	fieldsTag := rtag.InsertChild("fields", "")
	for i, n := range names {
		ftag := fieldsTag.InsertChild("field", "")
		ftag.SetText("name", n)
		ftag.SetText("bitOffset", itoa(i*4))
		ftag.SetText("bitWidth", "4")
	}
	return rtag
}

func itoa(n int) string {
	digits := "0123456789"
	if n == 0 {
		return "0"
	}
	var out []byte
	for n > 0 {
		out = append([]byte{digits[n%10]}, out...)
		n /= 10
	}
	return string(out)
}

func TestAddRejectsDuplicateName(t *testing.T) {
	rtag := registerWithFields(t, "F0")
	err := Add(rtag, "F0", mapping())
	if err == nil {
		t.Fatalf("expected a NameCollision error")
	}
}

func TestAddInsertsField(t *testing.T) {
	rtag := registerWithFields(t)
	if err := Add(rtag, "EN", mapping("bitOffset", scalar("0"), "bitWidth", scalar("1"))); err != nil {
		t.Fatalf("Add: %v", err)
	}
	fields := IterFields(rtag, "EN")
	if len(fields) != 1 {
		t.Fatalf("got %d fields named EN, want 1", len(fields))
	}
}

func TestDeleteRemovesMatchingFields(t *testing.T) {
	rtag := registerWithFields(t, "F0", "F1", "F2")
	Delete(rtag, "F*")
	if len(IterFields(rtag, "*")) != 0 {
		t.Fatalf("expected all fields to be deleted")
	}
}

func TestStripRemovesSubstringFromNames(t *testing.T) {
	rtag := registerWithFields(t, "FIELD_A", "FIELD_B")
	Strip(rtag, "FIELD_", false)
	names := []string{}
	for _, f := range IterFields(rtag, "*") {
		n, _ := f.FindText("name")
		names = append(names, n)
	}
	if names[0] != "A" || names[1] != "B" {
		t.Fatalf("names = %v, want [A B]", names)
	}
}

func TestMergeCombinesBitWidths(t *testing.T) {
	rtag := registerWithFields(t, "LO", "HI")
	if err := Merge(rtag, "COMBINED", sequence(scalar("LO"), scalar("HI"))); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	fields := IterFields(rtag, "*")
	if len(fields) != 1 {
		t.Fatalf("expected fields to collapse into one, got %d", len(fields))
	}
	width, _ := fields[0].FindText("bitWidth")
	if width != "8" {
		t.Fatalf("bitWidth = %s, want 8 (4+4)", width)
	}
}

func TestMergeErrorsWhenNoFieldsMatch(t *testing.T) {
	rtag := registerWithFields(t, "F0")
	err := Merge(rtag, "NOPE", nil)
	if err == nil {
		t.Fatalf("expected a MergeError when no fields match")
	}
}

func TestSplitExpandsIntoSingleBitFields(t *testing.T) {
	rtag := registerWithFields(t, "MODE")
	if err := Split(rtag, "MODE", nil); err != nil {
		t.Fatalf("Split: %v", err)
	}
	fields := IterFields(rtag, "*")
	if len(fields) != 4 {
		t.Fatalf("got %d fields after splitting a 4-bit field, want 4", len(fields))
	}
	for _, f := range fields {
		w, _ := f.FindText("bitWidth")
		if w != "1" {
			t.Fatalf("split field width = %s, want 1", w)
		}
	}
}

func TestCollectInArrayBuildsDimFields(t *testing.T) {
	rtag := registerWithFields(t, "CH0", "CH1", "CH2")
	if err := CollectInArray(rtag, "CH*", nil); err != nil {
		t.Fatalf("CollectInArray: %v", err)
	}
	fields := IterFields(rtag, "*")
	if len(fields) != 1 {
		t.Fatalf("got %d fields after collecting, want 1", len(fields))
	}
	dim, _ := fields[0].FindText("dim")
	if dim != "3" {
		t.Fatalf("dim = %s, want 3", dim)
	}
}

func TestProcessEnumAttachesEnumeratedValues(t *testing.T) {
	rtag := registerWithFields(t, "MODE")
	val := mapping(
		"off", sequence(scalar("0"), scalar("disabled")),
		"on", sequence(scalar("1"), scalar("enabled")),
	)
	if err := Process(rtag, "PERIPH", "MODE", val); err != nil {
		t.Fatalf("Process: %v", err)
	}
	ftag := IterFields(rtag, "MODE")[0]
	ev := ftag.FindChild("enumeratedValues")
	if ev == nil {
		t.Fatalf("expected an enumeratedValues child after processing an enum spec")
	}
}

func TestProcessRangeAttachesWriteConstraint(t *testing.T) {
	rtag := registerWithFields(t, "VAL")
	if err := Process(rtag, "PERIPH", "VAL", sequence(scalar("0"), scalar("15"))); err != nil {
		t.Fatalf("Process: %v", err)
	}
	ftag := IterFields(rtag, "VAL")[0]
	if ftag.FindChild("writeConstraint") == nil {
		t.Fatalf("expected a writeConstraint child after processing a range spec")
	}
}
