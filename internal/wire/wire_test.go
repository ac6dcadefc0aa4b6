package wire

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func mustDecodeValue(t *testing.T, b []byte) []byte {
	t.Helper()
	p, err := DecodeValue(b)
	if err != nil {
		t.Fatalf("DecodeValue error: %v", err)
	}
	return p
}

func TestValueRTEmptyAndNonEmpty(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte("hello"),
		[]byte(`[{"id":1},{"id":2}]`),
		{0, 1, 2, 3, 4},
	}
	for _, payload := range cases {
		p := mustDecodeValue(t, EncodeValue(payload))
		if !bytes.Equal(p, payload) {
			t.Fatalf("payload mismatch: got %x want %x", p, payload)
		}
	}
}

func TestValueRejectsTrailingBytes(t *testing.T) {
	enc := EncodeValue([]byte("x"))
	enc = append(enc, 0xDE, 0xAD)
	if _, err := DecodeValue(enc); err == nil {
		t.Fatalf("expected error on trailing bytes")
	}
}

func TestValueRejectsForeignStrings(t *testing.T) {
	for _, s := range []string{"", "[]", `{"code":200}`, "TIER"} {
		if _, err := DecodeValue([]byte(s)); err != ErrCorrupt {
			t.Fatalf("DecodeValue(%q) err=%v want ErrCorrupt", s, err)
		}
	}
}

func TestValueCorruptHeadersAndLengths(t *testing.T) {
	enc := EncodeValue([]byte("abc"))

	// bad magic
	badMagic := append([]byte(nil), enc...)
	badMagic[0] = 'X'
	if _, err := DecodeValue(badMagic); err == nil {
		t.Fatalf("expected error on bad magic")
	}

	// wrong version
	badVer := append([]byte(nil), enc...)
	badVer[4] = version + 1
	if _, err := DecodeValue(badVer); err == nil {
		t.Fatalf("expected error on bad version")
	}

	// wrong kind
	badKind := append([]byte(nil), enc...)
	badKind[5] = kindValue + 1
	if _, err := DecodeValue(badKind); err == nil {
		t.Fatalf("expected error on bad kind")
	}

	// vlen is at offset 6..9 (4 magic +1 ver +1 kind)
	tooLong := append([]byte(nil), enc...)
	binary.BigEndian.PutUint32(tooLong[6:10], uint32(len("abc")+1))
	if _, err := DecodeValue(tooLong); err == nil {
		t.Fatalf("expected error on vlen beyond buffer")
	}

	trunc := enc[:len(enc)-1]
	if _, err := DecodeValue(trunc); err == nil {
		t.Fatalf("expected error on truncated buffer")
	}
}

func TestValueZeroCopyPayload(t *testing.T) {
	enc := EncodeValue([]byte("Z"))
	p := mustDecodeValue(t, enc)
	p[0] = 'Q'
	if p2 := mustDecodeValue(t, enc); p2[0] != 'Q' {
		t.Fatalf("expected zero-copy slice into enc buffer")
	}
}
