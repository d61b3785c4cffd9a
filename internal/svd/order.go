package svd

import (
	"sort"

	"github.com/sercanarga/svdpatch/internal/svderrs"
)

var arrTags = []string{"dim", "dimIncrement", "dimIndex", "dimName", "dimArrayIndex"}
var accTags = []string{"size", "access", "protection", "resetValue", "resetMask"}

func concat(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// orders holds, for every tag that may have children, the full ordered list
// of child tags the SVD schema allows. A tag not present here is assumed to
// never legally carry children; seeing one with children is fatal.
//
// Transcribed from sort_element in patch.py lines 239-355.
var orders = map[string][]string{
	"enumeratedValue":  {"name", "description", "value", "isDefault"},
	"enumeratedValues": {"name", "headerEnumName", "usage", "enumeratedValue"},
	"field": concat(arrTags, []string{
		"name", "description", "bitOffset", "bitWidth", "lsb", "msb",
		"bitRange", "access", "modifiedWriteValues", "writeConstraint",
		"readAction", "enumeratedValues",
	}),
	"fields":          {"field"},
	"writeConstraint": {"writeAsRead", "useEnumeratedValues", "range"},
	"range":           {"minimum", "maximum"},
	"register": concat(arrTags, []string{
		"name", "displayName", "description", "alternateGroup",
		"alternateRegister", "addressOffset",
	}, accTags, []string{
		"dataType", "modifiedWriteValues", "writeConstraint", "readAction", "fields",
	}),
	"cluster": concat(arrTags, []string{
		"name", "description", "alternateCluster", "headerStructName", "addressOffset",
	}, accTags, []string{
		"register", "cluster",
	}),
	"registers":    {"cluster", "register"},
	"interrupt":    {"name", "description", "value"},
	"addressBlock": {"offset", "size", "usage", "protection"},
	"peripheral": concat(arrTags, []string{
		"name", "version", "description", "alternatePeripheral", "groupName",
		"prependToName", "appendToName", "headerStructName", "disableCondition",
		"baseAddress",
	}, accTags, []string{
		"addressBlock", "interrupt", "registers",
	}),
	"peripherals": {"peripheral"},
	"cpu": {
		"name", "revision", "endian", "mpuPresent", "fpuPresent", "fpuDP",
		"dspPresent", "icachePresent", "dcachePresent", "itcmPresent",
		"dtcmPresent", "vtorPresent", "nvicPrioBits", "vendorSystickConfig",
		"deviceNumInterrupts", "sauNumRegions", "sauRegionsConfig",
	},
	"sauRegionsConfig": {"region"},
	"region":           {"base", "limit", "access"},
	"device": concat([]string{
		"vendor", "vendorID", "name", "series", "version", "description",
		"licenseText", "cpu", "headerSystemFilename", "headerDefinitionsPrefix",
		"addressUnitBits", "width",
	}, accTags, []string{
		"peripherals", "vendorExtensions",
	}),
}

func tagIndex(table []string, tag string) int {
	for i, t := range table {
		if t == tag {
			return i
		}
	}
	return -1
}

// SortElement reorders e's direct children into schema order; children with
// the same tag keep their relative order. No child is removed (comments never
// reach the tree, since svd.Decode drops them). It returns
// *svderrs.UnknownTag if a child's tag isn't listed for e's tag, or if e has
// children but e's own tag has no order table at all.
//
// vendorExtensions is never sorted: its contents are schema-external and
// sort_element in the original explicitly leaves them untouched.
func SortElement(e *Element) error {
	if e.Tag == "vendorExtensions" {
		return nil
	}
	if len(e.Children) == 0 {
		return nil
	}
	table, ok := orders[e.Tag]
	if !ok {
		return &svderrs.UnknownTag{Tag: e.Tag}
	}
	for _, c := range e.Children {
		if tagIndex(table, c.Tag) < 0 {
			return &svderrs.UnknownTag{Tag: e.Tag, Child: c.Tag}
		}
	}
	sort.SliceStable(e.Children, func(i, j int) bool {
		return tagIndex(table, e.Children[i].Tag) < tagIndex(table, e.Children[j].Tag)
	})
	return nil
}

// SortRecursive applies SortElement to e and, unless e is a vendorExtensions
// node, to every descendant.
func SortRecursive(e *Element) error {
	if err := SortElement(e); err != nil {
		return err
	}
	if e.Tag == "vendorExtensions" {
		return nil
	}
	for _, c := range e.Children {
		if err := SortRecursive(c); err != nil {
			return err
		}
	}
	return nil
}
