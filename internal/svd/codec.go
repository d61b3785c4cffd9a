package svd

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Decode reads a well-formed XML document and builds an Element tree,
// preserving child order and tracking parent pointers. Comments are
// dropped: the schema normaliser can't preserve their position across a
// sort, so there is no point carrying them past this boundary (spec.md §9,
// "Normaliser drops comments").
//
// Grounded on the token-driven descent in
// cue-lang-cue/encoding/xml/koala/decode.go, generalized from building a CUE
// AST to building a plain parent-linked Element tree.
func Decode(r io.Reader) (*Element, error) {
	dec := xml.NewDecoder(r)

	var stack []*Element
	var root *Element

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("svd: decoding xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &Element{Tag: t.Name.Local}
			for _, a := range t.Attr {
				el.Attrs = append(el.Attrs, Attr{Name: a.Name.Local, Value: a.Value})
			}
			if len(stack) > 0 {
				stack[len(stack)-1].AppendChild(el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("svd: unbalanced end element %q", t.Name.Local)
			}
			finished := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				root = finished
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}

	if root == nil {
		return nil, fmt.Errorf("svd: empty document")
	}
	return root, nil
}

// Encode writes the element tree as well-formed, indented XML.
func Encode(w io.Writer, root *Element) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(xml.Header)
	if err := encodeElement(bw, root, 0); err != nil {
		return err
	}
	bw.WriteByte('\n')
	return bw.Flush()
}

func encodeElement(w *bufio.Writer, e *Element, depth int) error {
	indent := strings.Repeat("  ", depth)
	w.WriteString(indent)
	w.WriteByte('<')
	w.WriteString(e.Tag)
	for _, a := range e.Attrs {
		w.WriteByte(' ')
		w.WriteString(a.Name)
		w.WriteString(`="`)
		w.WriteString(escapeAttr(a.Value))
		w.WriteByte('"')
	}

	text := strings.TrimSpace(e.Text)
	if len(e.Children) == 0 && text == "" {
		w.WriteString("/>\n")
		return nil
	}
	w.WriteString(">")

	if len(e.Children) == 0 {
		if err := xml.EscapeText(w, []byte(text)); err != nil {
			return err
		}
		w.WriteString("</")
		w.WriteString(e.Tag)
		w.WriteString(">\n")
		return nil
	}

	w.WriteByte('\n')
	for _, c := range e.Children {
		if err := encodeElement(w, c, depth+1); err != nil {
			return err
		}
	}
	w.WriteString(indent)
	w.WriteString("</")
	w.WriteString(e.Tag)
	w.WriteString(">\n")
	return nil
}

func escapeAttr(s string) string {
	var sb strings.Builder
	xml.EscapeText(&sb, []byte(s))
	out := sb.String()
	out = strings.ReplaceAll(out, `"`, "&quot;")
	return out
}
