package bscan

import (
	"encoding/binary"

	"github.com/OpenTraceLab/bsio/pkg/bitpack"
	"github.com/OpenTraceLab/bsio/pkg/jtag"
	"github.com/OpenTraceLab/bsio/pkg/tap"
)

// Shift clocks req.Bits bits from req.TDI through the register selected by the
// current shift state. Without Exit every bit goes out with TMS low and the TAP
// stays where it is. With Exit the final bit is clocked with TMS high, its TDO
// value lands in the last bit of req.TDO, and the TAP ends in Exit1.
func (c *Controller) Shift(req ShiftRequest) error {
	return c.record(c.shift("Shift", req))
}

func (c *Controller) shift(op string, req ShiftRequest) error {
	if err := c.ready(op); err != nil {
		return err
	}
	if !c.state.IsShift() {
		return jtag.BadParameter(op, "TAP is in %s, not a shift state", c.state)
	}
	if req.Bits <= 0 {
		return jtag.BadParameter(op, "bit count must be positive, got %d", req.Bits)
	}
	n := bitpack.ByteLen(req.Bits)
	if len(req.TDI) < n {
		return jtag.BadParameter(op, "tdi holds %d bytes, %d bits need %d", len(req.TDI), req.Bits, n)
	}
	if req.TDO != nil && len(req.TDO) != n {
		return jtag.BadParameter(op, "tdo holds %d bytes, %d bits need exactly %d", len(req.TDO), req.Bits, n)
	}

	if !req.Exit {
		if err := c.transport.SendTDIBits(req.TDI, req.Bits, false, req.TDO); err != nil {
			return jtag.Wrap(op, jtag.CodeTransport, err)
		}
		return nil
	}

	last := req.Bits - 1
	if last > 0 {
		if err := c.transport.SendTDIBits(req.TDI, last, false, req.TDO); err != nil {
			return jtag.Wrap(op, jtag.CodeTransport, err)
		}
	}
	var out [1]byte
	if err := c.transport.GetTDOBits(bitpack.Bit(req.TDI, last), true, out[:], 1); err != nil {
		return jtag.Wrap(op, jtag.CodeTransport, err)
	}
	if req.TDO != nil {
		bitpack.SetBit(req.TDO, last, out[0]&1 != 0)
	}
	if c.state == tap.StateShiftIR {
		c.state = tap.StateExit1IR
	} else {
		c.state = tap.StateExit1DR
	}
	return nil
}

// ShiftBit shifts one bit and returns the bit captured from TDO.
func (c *Controller) ShiftBit(bit bool, exit bool) (bool, error) {
	tdi := []byte{0}
	if bit {
		tdi[0] = 1
	}
	tdo := make([]byte, 1)
	if err := c.record(c.shift("ShiftBit", ShiftRequest{TDI: tdi, Bits: 1, Exit: exit, TDO: tdo})); err != nil {
		return false, err
	}
	return tdo[0]&1 != 0, nil
}

// ShiftBinary shifts a string of binary digits, first character first. '1' is
// a one and any other character a zero. tdo may be nil.
func (c *Controller) ShiftBinary(digits string, exit bool, tdo []byte) error {
	if digits == "" {
		return c.record(jtag.BadParameter("ShiftBinary", "empty digit string"))
	}
	bits := make([]bool, len(digits))
	for i := range bits {
		bits[i] = digits[i] == '1'
	}
	tdi := bitpack.Pack(bits)
	return c.record(c.shift("ShiftBinary", ShiftRequest{TDI: tdi, Bits: len(digits), Exit: exit, TDO: tdo}))
}

// ShiftByte shifts eight bits and returns the captured byte.
func (c *Controller) ShiftByte(v byte, exit bool) (byte, error) {
	tdo := make([]byte, 1)
	if err := c.record(c.shift("ShiftByte", ShiftRequest{TDI: []byte{v}, Bits: 8, Exit: exit, TDO: tdo})); err != nil {
		return 0, err
	}
	return tdo[0], nil
}

// ShiftBytes shifts every bit of data, data[0] first. tdo may be nil; otherwise
// it must be as long as data.
func (c *Controller) ShiftBytes(data []byte, exit bool, tdo []byte) error {
	if len(data) == 0 {
		return c.record(jtag.BadParameter("ShiftBytes", "empty buffer"))
	}
	return c.record(c.shift("ShiftBytes", ShiftRequest{TDI: data, Bits: len(data) * 8, Exit: exit, TDO: tdo}))
}

// ShiftUint16 shifts v LSB-first and returns the captured word.
func (c *Controller) ShiftUint16(v uint16, exit bool) (uint16, error) {
	var tdi, tdo [2]byte
	binary.LittleEndian.PutUint16(tdi[:], v)
	if err := c.record(c.shift("ShiftUint16", ShiftRequest{TDI: tdi[:], Bits: 16, Exit: exit, TDO: tdo[:]})); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(tdo[:]), nil
}

// ShiftInt16 is ShiftUint16 for two's complement values.
func (c *Controller) ShiftInt16(v int16, exit bool) (int16, error) {
	out, err := c.ShiftUint16(uint16(v), exit)
	return int16(out), err
}

// ShiftUint32 shifts v LSB-first and returns the captured word.
func (c *Controller) ShiftUint32(v uint32, exit bool) (uint32, error) {
	var tdi, tdo [4]byte
	binary.LittleEndian.PutUint32(tdi[:], v)
	if err := c.record(c.shift("ShiftUint32", ShiftRequest{TDI: tdi[:], Bits: 32, Exit: exit, TDO: tdo[:]})); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(tdo[:]), nil
}

// ShiftInt32 is ShiftUint32 for two's complement values.
func (c *Controller) ShiftInt32(v int32, exit bool) (int32, error) {
	out, err := c.ShiftUint32(uint32(v), exit)
	return int32(out), err
}
