// Package bitpack holds the byte and bit transforms used to move values in
// and out of LSB-first JTAG bit streams.
package bitpack

import (
	"errors"
	"fmt"
)

// ErrBadLength is returned when a bit count does not fit the supplied buffer.
var ErrBadLength = errors.New("bitpack: bit count does not fit buffer")

// ByteLen returns the number of bytes needed to hold bits.
func ByteLen(bits int) int {
	return (bits + 7) / 8
}

// ReverseByte mirrors the 8 bits of b.
func ReverseByte(b byte) byte {
	b = (b&0x0F)<<4 | (b&0xF0)>>4
	b = (b&0x33)<<2 | (b&0xCC)>>2
	b = (b&0x55)<<1 | (b&0xAA)>>1
	return b
}

// ReverseBitsChecked is ReverseBits with the length checks reported as an
// error instead of a panic.
func ReverseBitsChecked(buf []byte, bits int) ([]byte, error) {
	if bits < 1 || ByteLen(bits) > len(buf) {
		return buf, fmt.Errorf("%w: %d bits in %d bytes", ErrBadLength, bits, len(buf))
	}
	return ReverseBits(buf, bits), nil
}

// ReverseBits reverses the order of the first bits bits of buf in place, so
// bit 0 swaps with bit bits-1 and so on across byte boundaries. Bits of the
// last byte beyond the count are left untouched. It panics if buf is shorter
// than ByteLen(bits).
func ReverseBits(buf []byte, bits int) []byte {
	if bits <= 0 {
		return buf
	}
	length := ByteLen(bits)
	shift := bits % 8
	_ = buf[length-1]

	var pad byte
	if shift != 0 {
		pad = buf[length-1] &^ (1<<shift - 1)
		buf[length-1] &^= pad
	}

	if length == 1 {
		buf[0] = ReverseByte(buf[0]) >> ((8 - shift) % 8)
		buf[0] |= pad
		return buf
	}

	for i := 0; i < length/2; i++ {
		far := length - i - 1
		buf[i], buf[far] = ReverseByte(buf[far]), ReverseByte(buf[i])
	}
	if length%2 == 1 {
		buf[length/2] = ReverseByte(buf[length/2])
	}

	if shift == 0 {
		return buf
	}

	// The short byte now sits at the front with its empty bits at the bottom;
	// slide everything down by the unused count.
	unused := uint(8 - shift)
	carry := uint16(buf[0]) >> unused
	for i := 1; i < length; i++ {
		carry |= uint16(buf[i]) << (8 - unused)
		buf[i-1] = byte(carry)
		carry >>= 8
	}
	buf[length-1] = byte(carry) | pad
	return buf
}

// Bit reports bit i of an LSB-first buffer.
func Bit(buf []byte, i int) bool {
	return buf[i/8]&(1<<(uint(i)%8)) != 0
}

// SetBit sets or clears bit i of an LSB-first buffer.
func SetBit(buf []byte, i int, v bool) {
	mask := byte(1 << (uint(i) % 8))
	if v {
		buf[i/8] |= mask
	} else {
		buf[i/8] &^= mask
	}
}

// Pack converts a slice of bits into an LSB-first byte buffer.
func Pack(bits []bool) []byte {
	if len(bits) == 0 {
		return nil
	}
	buf := make([]byte, ByteLen(len(bits)))
	for i, bit := range bits {
		if bit {
			buf[i/8] |= 1 << (uint(i) % 8)
		}
	}
	return buf
}

// Unpack expands the first bits bits of buf.
func Unpack(buf []byte, bits int) []bool {
	if bits == 0 {
		return nil
	}
	out := make([]bool, bits)
	for i := 0; i < bits; i++ {
		out[i] = Bit(buf, i)
	}
	return out
}
