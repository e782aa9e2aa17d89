// Package dmap implements the DMAP tagged-atom wire format and the
// content-code registry that gives the otherwise-opaque four-byte tags
// their names and data types. It is grounded on tominsam/PythonDaap's
// DAAPObject (processData/encode) and dmapCodeTypes/dmapDataTypes tables,
// restated as a zero-copy, slice-offset decoder per the teacher's own
// "buffer vs copy" guidance: the pack's binary-format readers (e.g. the
// atom walkers in other_examples' mp4/id3v2 decoders) all hold a position
// into the original buffer rather than copying substrings out of it.
package dmap

import (
	"encoding/json"
	"fmt"
)

// DataType identifies how an atom's payload bytes are interpreted. The
// numeric values match the wire encoding used in dmap.contentcodestype.
type DataType uint16

const (
	TypeUnknown   DataType = 0
	TypeInt8      DataType = 1
	TypeUint8     DataType = 2
	TypeInt16     DataType = 3
	TypeUint16    DataType = 4
	TypeInt32     DataType = 5
	TypeUint32    DataType = 6
	TypeInt64     DataType = 7
	TypeUint64    DataType = 8
	TypeString    DataType = 9
	TypeTimestamp DataType = 10
	TypeVersion   DataType = 11
	TypeContainer DataType = 12
)

func (t DataType) String() string {
	switch t {
	case TypeInt8:
		return "byte"
	case TypeUint8:
		return "ubyte"
	case TypeInt16:
		return "short"
	case TypeUint16:
		return "ushort"
	case TypeInt32:
		return "int"
	case TypeUint32:
		return "uint"
	case TypeInt64:
		return "long"
	case TypeUint64:
		return "ulong"
	case TypeString:
		return "string"
	case TypeTimestamp:
		return "timestamp"
	case TypeVersion:
		return "version"
	case TypeContainer:
		return "container"
	}
	return "unknown"
}

// IsContainer reports whether atoms of this type hold children rather than
// a scalar value.
func (t DataType) IsContainer() bool {
	return t == TypeContainer
}

// Code is a four-byte DMAP content code, e.g. "mlcl" or "asar".
type Code [4]byte

func (c Code) String() string {
	return string(c[:])
}

// NewCode builds a Code from a tag string; panics if s is not exactly four
// bytes, since every call site in this package uses compile-time literals.
func NewCode(s string) Code {
	if len(s) != 4 {
		panic(fmt.Sprintf("dmap: content code %q is not 4 bytes", s))
	}
	var c Code
	copy(c[:], s)
	return c
}

// Version is a DMAP version atom: two independent 16-bit halves, kept as
// separate Major and Minor fields. Decode does not combine them into a
// single major.minor number.
type Version struct {
	Major uint16
	Minor uint16
}

// Atom is the fundamental DMAP unit: a code, and either a decoded scalar
// value or an ordered list of children. Scalars are resolved eagerly at
// decode time (every response fits in memory, per spec's explicit
// non-requirement for incremental decode) but the backing buffer for a raw
// (unknown-code) atom is kept as a slice into the original response rather
// than copied.
type Atom struct {
	Code     Code
	Name     string // symbolic name, e.g. "dmap.itemname"; "" if unknown
	Type     DataType
	Children []*Atom     // non-nil only for TypeContainer
	Value    interface{} // int64, uint64, string, Version, or []byte for unknown codes
}

// Int returns the atom's value as an int64, for any integer type. ok is
// false for non-integer atoms.
func (a *Atom) Int() (v int64, ok bool) {
	switch a.Type {
	case TypeInt8, TypeInt16, TypeInt32, TypeInt64:
		v, ok = a.Value.(int64)
	case TypeUint8, TypeUint16, TypeUint32, TypeUint64, TypeTimestamp:
		if u, isU := a.Value.(uint64); isU {
			v, ok = int64(u), true
		}
	}
	return
}

// String returns the atom's value as a string; ok is false for non-string
// atoms.
func (a *Atom) String() (v string, ok bool) {
	if a.Type != TypeString {
		return "", false
	}
	v, ok = a.Value.(string)
	return
}

// Version returns a version atom's Major/Minor halves; ok is false
// otherwise. §9's old-iTunes detection compares Major directly rather than
// a combined major.minor float, so the two halves are kept distinct
// instead of collapsed at decode time.
func (a *Atom) Version() (v Version, ok bool) {
	if a.Type != TypeVersion {
		return Version{}, false
	}
	v, ok = a.Value.(Version)
	return
}

// MarshalJSON renders the atom (and its children) for use with
// objlog.ObjLog implementations that encode to JSON.
func (a *Atom) MarshalJSON() ([]byte, error) {
	type jsonAtom struct {
		Code     string      `json:"code"`
		Name     string      `json:"name,omitempty"`
		Type     string      `json:"type"`
		Value    interface{} `json:"value,omitempty"`
		Children []*Atom     `json:"children,omitempty"`
	}
	ja := jsonAtom{Code: a.Code.String(), Name: a.Name, Type: a.Type.String()}
	if a.Type == TypeContainer {
		ja.Children = a.Children
	} else if b, isBytes := a.Value.([]byte); isBytes {
		ja.Value = fmt.Sprintf("%x", b)
	} else {
		ja.Value = a.Value
	}
	return json.Marshal(ja)
}
