package bitpack

import (
	"bytes"
	"errors"
	"math/bits"
	"math/rand"
	"testing"
)

func TestReverseByteMatchesStdlib(t *testing.T) {
	for v := 0; v < 256; v++ {
		b := byte(v)
		if got, want := ReverseByte(b), bits.Reverse8(b); got != want {
			t.Fatalf("ReverseByte(%#02x) = %#02x, want %#02x", b, got, want)
		}
		if got := ReverseByte(ReverseByte(b)); got != b {
			t.Fatalf("ReverseByte twice on %#02x = %#02x", b, got)
		}
	}
}

func TestReverseBitsVectors(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		bits int
		want []byte
	}{
		{"byte aligned", []byte{0xFF, 0x00, 0xF0}, 24, []byte{0x0F, 0x00, 0xFF}},
		{"20 bits", []byte{0x01, 0x24, 0x08}, 20, []byte{0x41, 0x02, 0x08}},
		{"single byte", []byte{0x01}, 8, []byte{0x80}},
		{"five bits", []byte{0x13}, 5, []byte{0x19}},
		{"ten bits", []byte{0x01, 0x00}, 10, []byte{0x00, 0x02}},
		{"ten bits high", []byte{0x00, 0x02}, 10, []byte{0x01, 0x00}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := append([]byte(nil), tc.in...)
			ReverseBits(buf, tc.bits)
			if !bytes.Equal(buf, tc.want) {
				t.Fatalf("ReverseBits(%X, %d) = %X, want %X", tc.in, tc.bits, buf, tc.want)
			}
			ReverseBits(buf, tc.bits)
			if !bytes.Equal(buf, tc.in) {
				t.Fatalf("second ReverseBits = %X, want %X", buf, tc.in)
			}
		})
	}
}

func TestReverseBitsMatchesBitOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for n := 1; n <= 72; n++ {
		buf := make([]byte, ByteLen(n))
		rng.Read(buf)
		before := Unpack(buf, n)

		ReverseBits(buf, n)
		after := Unpack(buf, n)
		for i := 0; i < n; i++ {
			if after[i] != before[n-1-i] {
				t.Fatalf("n=%d: bit %d = %v, want %v", n, i, after[i], before[n-1-i])
			}
		}
	}
}

func TestReverseBitsInvolution(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for n := 1; n <= 96; n++ {
		for trial := 0; trial < 16; trial++ {
			orig := make([]byte, ByteLen(n))
			rng.Read(orig)
			buf := append([]byte(nil), orig...)

			ReverseBits(ReverseBits(buf, n), n)
			if !bytes.Equal(buf, orig) {
				t.Fatalf("n=%d: round trip %X, want %X", n, buf, orig)
			}
		}
	}
}

func TestReverseBitsKeepsPadding(t *testing.T) {
	buf := []byte{0x01, 0xF0}
	ReverseBits(buf, 12)
	if buf[1]&0xF0 != 0xF0 {
		t.Fatalf("padding bits changed: %X", buf)
	}
	if buf[0] != 0x00 || buf[1]&0x0F != 0x08 {
		t.Fatalf("ReverseBits = %X, want 00 F8", buf)
	}
}

func TestReverseBitsChecked(t *testing.T) {
	if _, err := ReverseBitsChecked([]byte{0x00}, 9); !errors.Is(err, ErrBadLength) {
		t.Fatalf("err = %v, want ErrBadLength", err)
	}
	if _, err := ReverseBitsChecked(nil, 0); !errors.Is(err, ErrBadLength) {
		t.Fatalf("err = %v, want ErrBadLength", err)
	}
	out, err := ReverseBitsChecked([]byte{0x80}, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0] != 0x01 {
		t.Fatalf("ReverseBitsChecked = %X, want 01", out)
	}
}

func TestPackUnpack(t *testing.T) {
	bits := []bool{true, false, true, true, false, false, false, false, true}
	buf := Pack(bits)
	if !bytes.Equal(buf, []byte{0x0D, 0x01}) {
		t.Fatalf("Pack = %X, want 0D01", buf)
	}
	got := Unpack(buf, len(bits))
	for i := range bits {
		if got[i] != bits[i] {
			t.Fatalf("bit %d = %v, want %v", i, got[i], bits[i])
		}
	}
	SetBit(buf, 8, false)
	SetBit(buf, 1, true)
	if !bytes.Equal(buf, []byte{0x0F, 0x00}) {
		t.Fatalf("SetBit result = %X, want 0F00", buf)
	}
}

func TestInterleaveTDITMS(t *testing.T) {
	tdi := []byte{0x08} // instruction 001000
	tms := []byte{0x20} // exit on the sixth bit
	words := InterleaveTDITMS(tdi, tms, 6)

	if len(words) != 2 {
		t.Fatalf("len = %d, want 2", len(words))
	}
	// pair 3 carries TDI=1, pair 5 carries TMS=1.
	if words[0] != 0x40 || words[1] != 0x08 {
		t.Fatalf("words = %X, want 40 08", words)
	}
	for i := 0; i < 6; i++ {
		gotTDI, gotTMS := SplitTDITMS(words, i)
		if gotTDI != Bit(tdi, i) || gotTMS != Bit(tms, i) {
			t.Fatalf("pair %d = (%v,%v), want (%v,%v)", i, gotTDI, gotTMS, Bit(tdi, i), Bit(tms, i))
		}
	}
	if InterleaveTDITMS(nil, nil, 0) != nil {
		t.Fatalf("expected nil for zero bits")
	}
}
