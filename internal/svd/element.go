// Package svd models the CMSIS-SVD XML tree as an ordered, parent-linked
// element tree and provides the tree-mutation primitives every higher patch
// layer builds on: create/remove children, set/replace text, find by tag.
package svd

// Attr is a single XML attribute, order-preserved.
type Attr struct {
	Name  string
	Value string
}

// Element is one node of the SVD tree. Children are ordered; Parent is set
// on every node reachable from Decode so that callers can walk upward (the
// register-size lookup needs this to find an inherited <size>).
type Element struct {
	Tag      string
	Attrs    []Attr
	Text     string
	Children []*Element
	Parent   *Element
}

// NewElement creates a detached element with the given tag.
func NewElement(tag string) *Element {
	return &Element{Tag: tag}
}

// Attr returns the named attribute's value, if present.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr sets (or replaces) an attribute.
func (e *Element) SetAttr(name, value string) {
	for i := range e.Attrs {
		if e.Attrs[i].Name == name {
			e.Attrs[i].Value = value
			return
		}
	}
	e.Attrs = append(e.Attrs, Attr{Name: name, Value: value})
}

// RemoveAttr removes the named attribute, if present.
func (e *Element) RemoveAttr(name string) {
	for i := range e.Attrs {
		if e.Attrs[i].Name == name {
			e.Attrs = append(e.Attrs[:i], e.Attrs[i+1:]...)
			return
		}
	}
}

// FindChild returns the first direct child with the given tag.
func (e *Element) FindChild(tag string) *Element {
	for _, c := range e.Children {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

// FindAllChildren returns every direct child with the given tag.
func (e *Element) FindAllChildren(tag string) []*Element {
	var out []*Element
	for _, c := range e.Children {
		if c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}

// FindText returns the text of the first direct child with the given tag.
func (e *Element) FindText(tag string) (string, bool) {
	c := e.FindChild(tag)
	if c == nil {
		return "", false
	}
	return c.Text, true
}

// Iter returns every descendant (including e itself) whose tag matches,
// depth-first, document order. Mirrors lxml's Element.iter(tag).
func (e *Element) Iter(tag string) []*Element {
	var out []*Element
	var walk func(*Element)
	walk = func(n *Element) {
		if n.Tag == tag {
			out = append(out, n)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(e)
	return out
}

// AppendChild appends a child, setting its parent pointer.
func (e *Element) AppendChild(child *Element) {
	child.Parent = e
	e.Children = append(e.Children, child)
}

// InsertChild appends a new child with the given tag and text, returning it.
func (e *Element) InsertChild(tag, text string) *Element {
	c := &Element{Tag: tag, Text: text}
	e.AppendChild(c)
	return c
}

// RemoveChild removes a direct child by identity.
func (e *Element) RemoveChild(child *Element) {
	for i, c := range e.Children {
		if c == child {
			e.Children = append(e.Children[:i], e.Children[i+1:]...)
			child.Parent = nil
			return
		}
	}
}

// RemoveChildrenByTag removes every direct child with the given tag.
func (e *Element) RemoveChildrenByTag(tag string) {
	kept := e.Children[:0]
	for _, c := range e.Children {
		if c.Tag == tag {
			c.Parent = nil
			continue
		}
		kept = append(kept, c)
	}
	e.Children = kept
}

// SetText finds (or creates) a direct child with the given tag and sets its
// text, returning it.
func (e *Element) SetText(tag, value string) *Element {
	c := e.FindChild(tag)
	if c == nil {
		c = e.InsertChild(tag, value)
		return c
	}
	c.Text = value
	return c
}

// DeepCopy returns a structural copy of e and all its descendants, detached
// from any parent. Used by peripheral copy and register derive, which both
// need a full subtree duplicate (tags, attributes, text, ordered children).
func (e *Element) DeepCopy() *Element {
	cp := &Element{
		Tag:   e.Tag,
		Text:  e.Text,
		Attrs: append([]Attr(nil), e.Attrs...),
	}
	for _, c := range e.Children {
		cp.AppendChild(c.DeepCopy())
	}
	return cp
}

// AncestorWithChild walks up the parent chain and returns the first
// ancestor (including e) that has a direct child with the given tag.
func (e *Element) AncestorWithChild(tag string) *Element {
	for n := e; n != nil; n = n.Parent {
		if n.FindChild(tag) != nil {
			return n
		}
	}
	return nil
}
