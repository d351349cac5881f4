package aob

import (
	"bytes"
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expBytes []byte
		expMask  []byte
	}{
		{
			name:     "exact bytes",
			text:     "48 8b 05",
			expBytes: []byte{0x48, 0x8b, 0x05},
			expMask:  []byte{0xff, 0xff, 0xff},
		},
		{
			name:     "both wildcard spellings",
			text:     "48 ? ?? 10",
			expBytes: []byte{0x48, 0x00, 0x00, 0x10},
			expMask:  []byte{0xff, 0x00, 0x00, 0xff},
		},
		{
			name:     "upper case and extra whitespace",
			text:     "  4D\tFF \n 0a  ",
			expBytes: []byte{0x4d, 0xff, 0x0a},
			expMask:  []byte{0xff, 0xff, 0xff},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse(tt.text)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(p.Bytes, tt.expBytes) {
				t.Fatalf("expected bytes 0x%x - got 0x%x", tt.expBytes, p.Bytes)
			}
			if !bytes.Equal(p.Mask, tt.expMask) {
				t.Fatalf("expected mask 0x%x - got 0x%x", tt.expMask, p.Mask)
			}
			if !p.IsValid() {
				t.Fatal("expected parsed pattern to be valid")
			}
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expIndex int
	}{
		{name: "empty", text: "", expIndex: -1},
		{name: "blank", text: "   \t ", expIndex: -1},
		{name: "not hex", text: "48 zz", expIndex: 1},
		{name: "three digits", text: "480 8b", expIndex: 0},
		{name: "single digit", text: "4 8b", expIndex: 0},
		{name: "triple wildcard", text: "48 ???", expIndex: 1},
		{name: "prefixed", text: "0x48", expIndex: 0},
		{name: "signed", text: "+4", expIndex: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			if !errors.Is(err, ErrMalformedPattern) {
				t.Fatalf("expected ErrMalformedPattern - got %v", err)
			}

			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("expected *ParseError - got %T", err)
			}
			if parseErr.Index != tt.expIndex {
				t.Fatalf("expected token index %d - got %d", tt.expIndex, parseErr.Index)
			}
		})
	}
}

func TestPattern_String(t *testing.T) {
	p := MustParse("48 8B 05 ? ? ? ? 48")
	exp := "48 8b 05 ?? ?? ?? ?? 48"
	if p.String() != exp {
		t.Fatalf("expected %q - got %q", exp, p.String())
	}

	again, err := Parse(p.String())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(again.Bytes, p.Bytes) || !bytes.Equal(again.Mask, p.Mask) {
		t.Fatal("expected canonical form to parse back to the same pattern")
	}
}

func TestFromBytes(t *testing.T) {
	src := []byte{1, 2, 3}
	p, err := FromBytes(src)
	if err != nil {
		t.Fatal(err)
	}
	src[0] = 9
	if p.Bytes[0] != 1 {
		t.Fatal("expected FromBytes to copy its input")
	}

	if _, err := FromBytes(nil); !errors.Is(err, ErrMalformedPattern) {
		t.Fatalf("expected ErrMalformedPattern - got %v", err)
	}
}
