// Package interrupts reports a device's interrupt vector table, sorted by
// interrupt number, optionally noting any gaps.
package interrupts

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/sercanarga/svdpatch/internal/svd"
)

type entry struct {
	name, desc, peripheral string
}

// Parse collects every interrupt defined anywhere under root, keyed by its
// numeric value.
func Parse(root *svd.Element) (map[int]entry, error) {
	out := map[int]entry{}
	for _, ptag := range root.Iter("peripheral") {
		pname, _ := ptag.FindText("name")
		for _, itag := range ptag.Iter("interrupt") {
			name, _ := itag.FindText("name")
			valTxt, _ := itag.FindText("value")
			val, err := strconv.ParseInt(valTxt, 0, 64)
			if err != nil {
				return nil, fmt.Errorf("interrupt %s: invalid value %q", name, valTxt)
			}
			desc := ""
			if d, ok := itag.FindText("description"); ok {
				desc = strings.ReplaceAll(d, "\n", " ")
			}
			out[int(val)] = entry{name: name, desc: desc, peripheral: pname}
		}
	}
	return out, nil
}

// Report writes one "<value> <name>: <description> (in <peripheral>)" line
// per interrupt, ascending by value, followed by a "Gaps: ..." line listing
// every unused vector number below the highest one seen, when withGaps is
// true.
func Report(w io.Writer, root *svd.Element, withGaps bool) error {
	ints, err := Parse(root)
	if err != nil {
		return err
	}

	vals := make([]int, 0, len(ints))
	for v := range ints {
		vals = append(vals, v)
	}
	sort.Ints(vals)

	missing := map[int]bool{}
	lastint := -1
	var lines []string
	for _, val := range vals {
		for v := lastint + 1; v < val; v++ {
			missing[v] = true
		}
		lastint = val
		i := ints[val]
		lines = append(lines, fmt.Sprintf("%d %s: %s (in %s)", val, i.name, i.desc, i.peripheral))
	}
	if withGaps {
		var gaps []int
		for v := range missing {
			gaps = append(gaps, v)
		}
		sort.Ints(gaps)
		gapStrs := make([]string, len(gaps))
		for i, v := range gaps {
			gapStrs[i] = strconv.Itoa(v)
		}
		lines = append(lines, "Gaps: "+strings.Join(gapStrs, ", "))
	}

	_, err = io.WriteString(w, strings.Join(lines, "\n"))
	return err
}
