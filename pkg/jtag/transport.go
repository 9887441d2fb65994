package jtag

import "fmt"

// Pins is a snapshot of the four JTAG signal lines.
type Pins struct {
	TMS bool
	TDI bool
	TDO bool
	TCK bool
}

func (p Pins) String() string {
	return fmt.Sprintf("TMS=%d TDI=%d TDO=%d TCK=%d", b2i(p.TMS), b2i(p.TDI), b2i(p.TDO), b2i(p.TCK))
}

func b2i(v bool) int {
	if v {
		return 1
	}
	return 0
}

// Transport is the primitive pin and bit-stream interface a boundary-scan
// session drives. Bit buffers are LSB-first: bit 0 of buf[0] goes out first.
// A nil tdo buffer means the caller does not want the returned bits; a
// non-nil one must hold at least ByteLen(bits) bytes.
//
// Implementations block until the probe has executed the request.
type Transport interface {
	// SetPins drives TMS, TDI and TCK directly. TDO is ignored.
	SetPins(p Pins) error
	// GetPins samples all four lines.
	GetPins() (Pins, error)
	// ClockTCK pulses TCK cycles times with TDI and TMS held constant.
	ClockTCK(cycles int, tdi, tms bool) error
	// SendTDIBits shifts bits from tdi with TMS held constant.
	SendTDIBits(tdi []byte, bits int, tms bool, tdo []byte) error
	// SendTMSBits clocks bits from tms with TDI held constant.
	SendTMSBits(tms []byte, bits int, tdi bool, tdo []byte) error
	// SendTDITMSBits clocks paired TDI and TMS streams of equal length.
	SendTDITMSBits(tdi, tms []byte, bits int, tdo []byte) error
	// GetTDOBits holds TDI and TMS constant and reads bits from TDO.
	GetTDOBits(tdi, tms bool, tdo []byte, bits int) error
}

// ValidateShiftBuffers ensures the supplied streams hold bits bits and returns
// the number of bytes required to accommodate the bit length. Nil buffers are
// skipped; the caller decides which streams are mandatory.
func ValidateShiftBuffers(bits int, bufs ...[]byte) (int, error) {
	if bits <= 0 {
		return 0, BadParameter("validate", "bits must be positive, got %d", bits)
	}
	required := (bits + 7) / 8
	for _, buf := range bufs {
		if buf != nil && len(buf) < required {
			return 0, BadParameter("validate", "buffer too short, need %d bytes, have %d", required, len(buf))
		}
	}
	return required, nil
}
