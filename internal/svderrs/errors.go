// Package svderrs defines the structured error kinds raised by the patch
// engine. None are recovered internally: every error aborts the run.
package svderrs

import "fmt"

// MissingPeripheral reports that a peripheral spec matched zero entities.
type MissingPeripheral struct {
	Spec string
}

func (e *MissingPeripheral) Error() string {
	return fmt.Sprintf("could not find peripheral %q", e.Spec)
}

// MissingRegister reports that a register spec matched zero entities inside
// a given peripheral.
type MissingRegister struct {
	Peripheral string
	Spec       string
}

func (e *MissingRegister) Error() string {
	return fmt.Sprintf("could not find %s:%s", e.Peripheral, e.Spec)
}

// MissingField reports that a field spec matched zero entities inside a
// given peripheral/register.
type MissingField struct {
	Peripheral string
	Register   string
	Spec       string
}

func (e *MissingField) Error() string {
	return fmt.Sprintf("could not find %s:%s.%s", e.Peripheral, e.Register, e.Spec)
}

// NameCollision reports that an add/copy/derive operation produced a
// duplicate name within its parent scope.
type NameCollision struct {
	Owner string
	Kind  string // "peripheral", "register", "field", "interrupt"
	Name  string
}

func (e *NameCollision) Error() string {
	return fmt.Sprintf("%s already has a %s %s", e.Owner, e.Kind, e.Name)
}

// MergeError reports a malformed or missing _merge/_split target.
type MergeError struct {
	Register string
	Spec     string
	Reason   string
}

func (e *MergeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s.%s: %s", e.Register, e.Spec, e.Reason)
	}
	return fmt.Sprintf("could not find any fields to merge %s.%s", e.Register, e.Spec)
}

// ArrayShapeError reports that candidate offsets weren't equally spaced, or
// candidate bitmasks weren't identical, when collecting registers or fields
// into an array. Cluster collection does not use this type: its failures are
// returned as plain errors.
type ArrayShapeError struct {
	Owner string
	Spec  string
}

func (e *ArrayShapeError) Error() string {
	return fmt.Sprintf("%s: registers cannot be collected into %s array", e.Owner, e.Spec)
}

// EnumConflict reports that an enumeratedValues usage collided with an
// existing one and replacement was not requested.
type EnumConflict struct {
	Peripheral string
	Field      string
	Usage      string
}

func (e *EnumConflict) Error() string {
	return fmt.Sprintf("%s: field %s already has enumeratedValues for %s", e.Peripheral, e.Field, e.Usage)
}

// EnumShape reports a malformed enumeratedValues definition: duplicate
// numeric value, leading-digit name, empty description, or unknown
// writeConstraint form.
type EnumShape struct {
	Reason string
}

func (e *EnumShape) Error() string {
	return e.Reason
}

// UnknownTag reports that the normaliser saw a child tag not listed for its
// parent, or an element whose tag has no order entry but has children.
type UnknownTag struct {
	Tag   string
	Child string
}

func (e *UnknownTag) Error() string {
	if e.Child == "" {
		return fmt.Sprintf("unknown tag %q has no schema order", e.Tag)
	}
	return fmt.Sprintf("unexpected child %q inside %q", e.Child, e.Tag)
}

// LoadError reports a duplicate key in the patch document, an unreadable
// include, or a missing _svd key.
type LoadError struct {
	Path   string
	Line   int
	Column int
	Reason string
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return e.Reason
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Column, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}
