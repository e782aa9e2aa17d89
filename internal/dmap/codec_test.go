package dmap

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeContainer(t *testing.T) {
	reg := NewRegistry()
	reg.set(NewCode("msrv"), "dmap.serverinforesponse", TypeContainer)
	reg.set(NewCode("mstt"), "dmap.status", TypeUint32)
	reg.set(NewCode("minm"), "dmap.itemname", TypeString)

	root := &Atom{
		Code: NewCode("msrv"),
		Name: "dmap.serverinforesponse",
		Type: TypeContainer,
		Children: []*Atom{
			{Code: NewCode("mstt"), Name: "dmap.status", Type: TypeUint32, Value: uint64(200)},
			{Code: NewCode("minm"), Name: "dmap.itemname", Type: TypeString, Value: "Library"},
		},
	}

	buf, err := Encode(root)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(buf[0:4], []byte("msrv")) {
		t.Fatalf("serialized bytes do not begin with msrv: %x", buf[0:4])
	}

	atoms, err := Decode(buf, reg)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(atoms) != 1 {
		t.Fatalf("got %d top-level atoms, want 1", len(atoms))
	}
	got := atoms[0]
	if len(got.Children) != 2 {
		t.Fatalf("got %d children, want 2", len(got.Children))
	}
	status, ok := got.Children[0].Int()
	if !ok || status != 200 {
		t.Fatalf("mstt = %v, %v; want 200, true", status, ok)
	}
	name, ok := got.Children[1].String()
	if !ok || name != "Library" {
		t.Fatalf("minm = %q, %v; want Library, true", name, ok)
	}
}

func TestVersionAtomRoundTrip(t *testing.T) {
	reg := NewRegistry()
	reg.set(NewCode("apro"), "daap.protocolversion", TypeVersion)

	payload := []byte{0x00, 0x02, 0x00, 0x00}
	buf := append([]byte{}, []byte("apro")...)
	buf = append(buf, 0, 0, 0, 4)
	buf = append(buf, payload...)

	atoms, err := Decode(buf, reg)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	v, ok := atoms[0].Version()
	if !ok || v.Major != 2 || v.Minor != 0 {
		t.Fatalf("apro decoded to %+v, %v; want {2 0}, true", v, ok)
	}

	reenc, err := Encode(atoms[0])
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(reenc[headerSize:], payload) {
		t.Fatalf("re-encoded payload = %x, want %x", reenc[headerSize:], payload)
	}
}

func TestDecodeUnknownCodeKeepsRawBytes(t *testing.T) {
	reg := NewRegistry()
	buf := append([]byte{}, []byte("zzzz")...)
	buf = append(buf, 0, 0, 0, 3)
	buf = append(buf, 'a', 'b', 'c')

	atoms, err := Decode(buf, reg)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if atoms[0].Name != "" {
		t.Fatalf("unknown code got a name %q", atoms[0].Name)
	}
	raw, ok := atoms[0].Value.([]byte)
	if !ok || !bytes.Equal(raw, []byte("abc")) {
		t.Fatalf("unknown code value = %v, want raw bytes abc", atoms[0].Value)
	}
}

func TestDecodeContainerLengthMismatch(t *testing.T) {
	reg := NewRegistry()
	reg.set(NewCode("msrv"), "dmap.serverinforesponse", TypeContainer)
	reg.set(NewCode("mstt"), "dmap.status", TypeUint32)

	// Container declares 8 bytes but its one child needs 8+4=12.
	buf := append([]byte{}, []byte("msrv")...)
	buf = append(buf, 0, 0, 0, 8)
	child := append([]byte{}, []byte("mstt")...)
	child = append(child, 0, 0, 0, 4)
	child = append(child, 0, 0, 0, 200)
	buf = append(buf, child...)

	if _, err := Decode(buf, reg); err == nil {
		t.Fatalf("expected a container length mismatch error, got nil")
	}
}

func TestDecodeTruncatedHeader(t *testing.T) {
	reg := NewRegistry()
	if _, err := Decode([]byte{'m', 's', 't'}, reg); err == nil {
		t.Fatalf("expected a truncated header error, got nil")
	}
}

func TestDecodeStringLatin1Fallback(t *testing.T) {
	reg := NewRegistry()
	reg.set(NewCode("minm"), "dmap.itemname", TypeString)

	// 0xE9 alone is not valid UTF-8; it is Latin-1 for U+00E9 (é).
	buf := append([]byte{}, []byte("minm")...)
	buf = append(buf, 0, 0, 0, 1, 0xE9)

	atoms, err := Decode(buf, reg)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, ok := atoms[0].String()
	if !ok || got != "é" {
		t.Fatalf("got %q, %v; want \"é\", true", got, ok)
	}
}
