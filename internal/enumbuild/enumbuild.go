// Package enumbuild constructs writeConstraint and enumeratedValues
// subtrees from patch-document specifications.
package enumbuild

import (
	"sort"
	"strconv"

	"github.com/sercanarga/svdpatch/internal/svd"
	"github.com/sercanarga/svdpatch/internal/svderrs"
)

// WriteConstraintRange is an inclusive (minimum, maximum) write constraint.
type WriteConstraintRange struct {
	Min, Max int64
}

// MakeWriteConstraint builds a <writeConstraint><range>...</range> subtree.
func MakeWriteConstraint(r WriteConstraintRange) *svd.Element {
	wc := svd.NewElement("writeConstraint")
	rangeEl := wc.InsertChild("range", "")
	rangeEl.SetText("minimum", strconv.FormatInt(r.Min, 10))
	rangeEl.SetText("maximum", strconv.FormatInt(r.Max, 10))
	return wc
}

// EnumValue is one named, valued, described enumeratedValue entry.
type EnumValue struct {
	Name        string
	Value       int64
	Description string
}

var usageSuffix = map[string]string{"read": "R", "write": "W"}

// MakeEnumeratedValues builds an <enumeratedValues> subtree from name,
// usage ("read-write" by default), and an ordered list of values. It
// rejects (returning *svderrs.EnumShape) duplicate numeric values, a name
// starting with a digit, or any value with an empty description.
// Keys beginning with "_" in the source spec are expected to already have
// been filtered out by the caller before building values.
func MakeEnumeratedValues(name string, values []EnumValue, usage string) (*svd.Element, error) {
	if usage == "" {
		usage = "read-write"
	}
	if len(name) > 0 && name[0] >= '0' && name[0] <= '9' {
		return nil, &svderrs.EnumShape{Reason: "enumeratedValue " + name + ": can't start with a number"}
	}

	seen := map[int64]bool{}
	for _, v := range values {
		if seen[v.Value] {
			return nil, &svderrs.EnumShape{Reason: "enumeratedValue " + name + ": can't have duplicate values"}
		}
		seen[v.Value] = true
	}

	ev := svd.NewElement("enumeratedValues")
	ev.SetText("name", name+usageSuffix[usage])
	ev.SetText("usage", usage)

	for _, v := range values {
		if len(v.Name) > 0 && v.Name[0] >= '0' && v.Name[0] <= '9' {
			return nil, &svderrs.EnumShape{Reason: "enumeratedValue " + name + "." + v.Name + ": can't start with a number"}
		}
		if v.Description == "" {
			return nil, &svderrs.EnumShape{Reason: "enumeratedValue " + name + ": can't have empty description for value " + strconv.FormatInt(v.Value, 10)}
		}
		el := ev.InsertChild("enumeratedValue", "")
		el.SetText("name", v.Name)
		el.SetText("description", v.Description)
		el.SetText("value", strconv.FormatInt(v.Value, 10))
	}
	return ev, nil
}

// MakeDerivedEnumeratedValues builds an <enumeratedValues derivedFrom=name/>
// stub referencing another field's enumeration.
func MakeDerivedEnumeratedValues(name string) *svd.Element {
	evd := svd.NewElement("enumeratedValues")
	evd.SetAttr("derivedFrom", name)
	return evd
}

// SortedNames returns the Name of every entry in values, sorted
// alphabetically; the input order of values is not kept.
func SortedNames(values []EnumValue) []string {
	names := make([]string, len(values))
	for i, v := range values {
		names[i] = v.Name
	}
	sort.Strings(names)
	return names
}
