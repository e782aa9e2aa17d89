package dmap

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// headerSize is the fixed code+length prefix every atom carries: a 4-byte
// code followed by a big-endian uint32 payload length (§4.3).
const headerSize = 8

// Decode parses buf as a sequence of sibling atoms at the top level (the
// shape every DAAP response body has: one or more top-level atoms, usually
// exactly one). reg resolves codes to names/types; an unrecognized code is
// kept as a raw, type-less atom rather than rejected, since a server may
// legitimately use a code this client's registry hasn't learned yet.
//
// Decode walks buf by slice offset rather than copying substrings out of
// it, per the teacher's own buffer-vs-copy convention for framed binary
// data; only unknown-code payloads end up referencing (not copying) the
// original buffer, while string values are copied out of it.
func Decode(buf []byte, reg *Registry) ([]*Atom, error) {
	var atoms []*Atom
	off := 0
	for off < len(buf) {
		a, n, err := decodeOne(buf[off:], reg)
		if err != nil {
			return nil, err
		}
		atoms = append(atoms, a)
		off += n
	}
	return atoms, nil
}

// decodeOne parses a single atom starting at buf[0] and returns it along
// with the number of bytes consumed.
func decodeOne(buf []byte, reg *Registry) (*Atom, int, error) {
	if len(buf) < headerSize {
		return nil, 0, fmt.Errorf("dmap: truncated atom header: %d bytes remain, need %d", len(buf), headerSize)
	}
	var code Code
	copy(code[:], buf[0:4])
	length := binary.BigEndian.Uint32(buf[4:8])
	total := headerSize + int(length)
	if total > len(buf) {
		return nil, 0, fmt.Errorf("dmap: atom %s declares length %d but only %d bytes remain", code, length, len(buf)-headerSize)
	}
	payload := buf[headerSize:total]

	name, typ, found := reg.Lookup(code)
	a := &Atom{Code: code, Name: name, Type: typ}
	if !found {
		// Unknown code: keep the raw payload, untyped, rather than
		// guessing. A reference into buf, not a copy.
		a.Value = payload
		return a, total, nil
	}

	if typ.IsContainer() {
		children, err := decodeContainer(payload, reg)
		if err != nil {
			return nil, 0, fmt.Errorf("dmap: %s (%s): %w", code, name, err)
		}
		a.Children = children
		return a, total, nil
	}

	v, err := decodeScalar(typ, payload)
	if err != nil {
		return nil, 0, fmt.Errorf("dmap: %s (%s): %w", code, name, err)
	}
	a.Value = v
	return a, total, nil
}

// decodeContainer decodes payload as a run of sibling atoms; the sum of
// each child's consumed length must exactly equal len(payload) (§4.3's
// container length-sum invariant) — a short or over-long child is a
// malformed response.
func decodeContainer(payload []byte, reg *Registry) ([]*Atom, error) {
	var children []*Atom
	off := 0
	for off < len(payload) {
		child, n, err := decodeOne(payload[off:], reg)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
		off += n
	}
	if off != len(payload) {
		return nil, fmt.Errorf("container length mismatch: children consumed %d bytes, container declares %d", off, len(payload))
	}
	return children, nil
}

func decodeScalar(typ DataType, payload []byte) (interface{}, error) {
	switch typ {
	case TypeInt8:
		if len(payload) != 1 {
			return nil, fmt.Errorf("byte value has %d bytes, want 1", len(payload))
		}
		return int64(int8(payload[0])), nil
	case TypeUint8:
		if len(payload) != 1 {
			return nil, fmt.Errorf("ubyte value has %d bytes, want 1", len(payload))
		}
		return uint64(payload[0]), nil
	case TypeInt16:
		if len(payload) != 2 {
			return nil, fmt.Errorf("short value has %d bytes, want 2", len(payload))
		}
		return int64(int16(binary.BigEndian.Uint16(payload))), nil
	case TypeUint16:
		if len(payload) != 2 {
			return nil, fmt.Errorf("ushort value has %d bytes, want 2", len(payload))
		}
		return uint64(binary.BigEndian.Uint16(payload)), nil
	case TypeInt32:
		if len(payload) != 4 {
			return nil, fmt.Errorf("int value has %d bytes, want 4", len(payload))
		}
		return int64(int32(binary.BigEndian.Uint32(payload))), nil
	case TypeUint32:
		if len(payload) != 4 {
			return nil, fmt.Errorf("uint value has %d bytes, want 4", len(payload))
		}
		return uint64(binary.BigEndian.Uint32(payload)), nil
	case TypeInt64:
		if len(payload) != 8 {
			return nil, fmt.Errorf("long value has %d bytes, want 8", len(payload))
		}
		return int64(binary.BigEndian.Uint64(payload)), nil
	case TypeUint64:
		if len(payload) != 8 {
			return nil, fmt.Errorf("ulong value has %d bytes, want 8", len(payload))
		}
		return binary.BigEndian.Uint64(payload), nil
	case TypeTimestamp:
		if len(payload) != 4 {
			return nil, fmt.Errorf("timestamp value has %d bytes, want 4", len(payload))
		}
		return uint64(binary.BigEndian.Uint32(payload)), nil
	case TypeVersion:
		if len(payload) != 4 {
			return nil, fmt.Errorf("version value has %d bytes, want 4", len(payload))
		}
		return Version{
			Major: binary.BigEndian.Uint16(payload[0:2]),
			Minor: binary.BigEndian.Uint16(payload[2:4]),
		}, nil
	case TypeString:
		return decodeString(payload)
	default:
		return nil, fmt.Errorf("unsupported scalar type %s", typ)
	}
}

// decodeString decodes payload as UTF-8, falling back to Latin-1
// (ISO-8859-1) when it isn't valid UTF-8. Older iTunes/Rhapsody-era
// servers have been observed to emit Latin-1 bytes in string atoms; the
// fallback mirrors daap.py's try/except around str.decode('utf-8'), but
// uses golang.org/x/text/encoding/charmap (the same package the teacher
// uses in its Windows-event string handling) instead of a hand-rolled
// byte-widening loop.
func decodeString(payload []byte) (string, error) {
	if isValidUTF8(payload) {
		return string(payload), nil
	}
	out, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), payload)
	if err != nil {
		return "", fmt.Errorf("string payload is neither valid UTF-8 nor Latin-1: %w", err)
	}
	return string(out), nil
}

func isValidUTF8(b []byte) bool {
	for i := 0; i < len(b); {
		c := b[i]
		if c < 0x80 {
			i++
			continue
		}
		var n int
		switch {
		case c&0xE0 == 0xC0:
			n = 1
		case c&0xF0 == 0xE0:
			n = 2
		case c&0xF8 == 0xF0:
			n = 3
		default:
			return false
		}
		if i+n >= len(b) {
			return false
		}
		for k := 1; k <= n; k++ {
			if b[i+k]&0xC0 != 0x80 {
				return false
			}
		}
		i += n + 1
	}
	return true
}

// Encode renders a atoms' code, type, and value back to wire bytes,
// including the recursive container-length header. Used for request
// bodies; no current operation in this client sends a container body, but
// §4.3 requires Encode to round-trip anything Decode produces.
func Encode(a *Atom) ([]byte, error) {
	var payload []byte
	var err error
	if a.Type.IsContainer() {
		for _, c := range a.Children {
			cb, cerr := Encode(c)
			if cerr != nil {
				return nil, cerr
			}
			payload = append(payload, cb...)
		}
	} else {
		payload, err = encodeScalar(a.Type, a.Value)
		if err != nil {
			return nil, fmt.Errorf("dmap: encode %s: %w", a.Code, err)
		}
	}
	out := make([]byte, headerSize+len(payload))
	copy(out[0:4], a.Code[:])
	binary.BigEndian.PutUint32(out[4:8], uint32(len(payload)))
	copy(out[headerSize:], payload)
	return out, nil
}

func encodeScalar(typ DataType, v interface{}) ([]byte, error) {
	switch typ {
	case TypeInt8:
		return []byte{byte(v.(int64))}, nil
	case TypeUint8:
		return []byte{byte(v.(uint64))}, nil
	case TypeInt16:
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, uint16(v.(int64)))
		return b, nil
	case TypeUint16:
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, uint16(v.(uint64)))
		return b, nil
	case TypeInt32:
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, uint32(v.(int64)))
		return b, nil
	case TypeUint32:
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, uint32(v.(uint64)))
		return b, nil
	case TypeInt64:
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, uint64(v.(int64)))
		return b, nil
	case TypeUint64:
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, v.(uint64))
		return b, nil
	case TypeTimestamp:
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, uint32(v.(uint64)))
		return b, nil
	case TypeVersion:
		ver := v.(Version)
		b := make([]byte, 4)
		binary.BigEndian.PutUint16(b[0:2], ver.Major)
		binary.BigEndian.PutUint16(b[2:4], ver.Minor)
		return b, nil
	case TypeString:
		return []byte(v.(string)), nil
	default:
		return nil, fmt.Errorf("unsupported scalar type %s", typ)
	}
}
