package cmsisdap

import (
	"encoding/binary"
	"fmt"
)

// CMSIS-DAP Command IDs
const (
	CmdInfo         = 0x00
	CmdConnect      = 0x02
	CmdDisconnect   = 0x03
	CmdSWJPins      = 0x10
	CmdSWJClock     = 0x11
	CmdJTAGSequence = 0x14
)

// DAP_Info Info IDs
const (
	InfoVendorName   = 0x01
	InfoProductName  = 0x02
	InfoSerialNum    = 0x03
	InfoFirmwareVer  = 0x04
	InfoCapabilities = 0xF0
	InfoPacketCount  = 0xFE
	InfoPacketSize   = 0xFF
)

// Connection ports
const (
	PortDefault = 0
	PortSWD     = 1
	PortJTAG    = 2
)

// Status codes
const (
	StatusOK    = 0x00
	StatusError = 0xFF
)

// DAP_SWJ_Pins bit positions
const (
	PinTCK    = 1 << 0 // SWCLK/TCK
	PinTMS    = 1 << 1 // SWDIO/TMS
	PinTDI    = 1 << 2
	PinTDO    = 1 << 3
	PinNTRST  = 1 << 5
	PinNRESET = 1 << 7
)

// JTAG Sequence info flags
const (
	JTAGSeqTCKMask = 0x3F // Bits [5:0] = TCK count (1-63, where 0 means 64)
	JTAGSeqTMS     = 0x40 // Bit [6] = TMS value
	JTAGSeqTDO     = 0x80 // Bit [7] = Capture TDO
)

// MaxSequenceClocks is the longest run a single sequence descriptor can hold.
const MaxSequenceClocks = 64

// Protocol encodes commands and decodes responses for one probe.
type Protocol struct {
	PacketSize int
}

// NewProtocol creates a protocol handler for the given packet size.
func NewProtocol(packetSize int) *Protocol {
	return &Protocol{PacketSize: packetSize}
}

func checkHeader(resp []byte, cmd byte) error {
	if len(resp) < 2 {
		return fmt.Errorf("response too short")
	}
	if resp[0] != cmd {
		return fmt.Errorf("invalid command ID: 0x%02X, want 0x%02X", resp[0], cmd)
	}
	return nil
}

func checkStatus(resp []byte, cmd byte, what string) error {
	if err := checkHeader(resp, cmd); err != nil {
		return err
	}
	if resp[1] != StatusOK {
		return fmt.Errorf("%s failed (status 0x%02X)", what, resp[1])
	}
	return nil
}

// EncodeInfo builds a DAP_Info command
func (p *Protocol) EncodeInfo(infoID byte) []byte {
	return []byte{CmdInfo, infoID}
}

// DecodeInfo parses a DAP_Info string response
func (p *Protocol) DecodeInfo(resp []byte) (string, error) {
	if err := checkHeader(resp, CmdInfo); err != nil {
		return "", err
	}
	length := int(resp[1])
	if len(resp) < 2+length {
		return "", fmt.Errorf("incomplete info string")
	}
	// Strings are NUL terminated on most firmware.
	s := resp[2 : 2+length]
	if n := len(s); n > 0 && s[n-1] == 0 {
		s = s[:n-1]
	}
	return string(s), nil
}

// DecodeInfoShort parses a DAP_Info response carrying a 16-bit value, such as
// InfoPacketSize.
func (p *Protocol) DecodeInfoShort(resp []byte) (uint16, error) {
	if err := checkHeader(resp, CmdInfo); err != nil {
		return 0, err
	}
	if resp[1] != 2 || len(resp) < 4 {
		return 0, fmt.Errorf("expected 2-byte info value, got %d", resp[1])
	}
	return binary.LittleEndian.Uint16(resp[2:4]), nil
}

// EncodeConnect builds a DAP_Connect command
func (p *Protocol) EncodeConnect(port byte) []byte {
	return []byte{CmdConnect, port}
}

// DecodeConnect parses a DAP_Connect response
func (p *Protocol) DecodeConnect(resp []byte) (byte, error) {
	if err := checkHeader(resp, CmdConnect); err != nil {
		return 0, err
	}
	if resp[1] == 0 {
		return 0, fmt.Errorf("connection failed")
	}
	return resp[1], nil
}

// EncodeDisconnect builds a DAP_Disconnect command
func (p *Protocol) EncodeDisconnect() []byte {
	return []byte{CmdDisconnect}
}

// DecodeDisconnect parses a DAP_Disconnect response
func (p *Protocol) DecodeDisconnect(resp []byte) error {
	return checkStatus(resp, CmdDisconnect, "disconnect")
}

// EncodeSetClock builds a DAP_SWJ_Clock command
func (p *Protocol) EncodeSetClock(hz uint32) []byte {
	cmd := make([]byte, 5)
	cmd[0] = CmdSWJClock
	binary.LittleEndian.PutUint32(cmd[1:], hz)
	return cmd
}

// DecodeSetClock parses response
func (p *Protocol) DecodeSetClock(resp []byte) error {
	return checkStatus(resp, CmdSWJClock, "set clock")
}

// EncodeSWJPins builds a DAP_SWJ_Pins command. Only pins in sel are driven to
// their value in out; wait is the settle time in microseconds.
func (p *Protocol) EncodeSWJPins(out, sel byte, wait uint32) []byte {
	cmd := make([]byte, 7)
	cmd[0] = CmdSWJPins
	cmd[1] = out
	cmd[2] = sel
	binary.LittleEndian.PutUint32(cmd[3:], wait)
	return cmd
}

// DecodeSWJPins returns the sampled pin byte.
func (p *Protocol) DecodeSWJPins(resp []byte) (byte, error) {
	if err := checkHeader(resp, CmdSWJPins); err != nil {
		return 0, err
	}
	return resp[1], nil
}

// JTAGSequence represents one run of TCK clocks with a constant TMS value.
type JTAGSequence struct {
	Info byte   // Sequence info byte (TCK count, TMS, TDO capture)
	TDI  []byte // TDI data to shift
}

// NewJTAGSequence creates a sequence descriptor
func NewJTAGSequence(tckCount int, tms bool, captureTDO bool, tdi []byte) JTAGSequence {
	info := byte(tckCount & JTAGSeqTCKMask)
	if tms {
		info |= JTAGSeqTMS
	}
	if captureTDO {
		info |= JTAGSeqTDO
	}
	return JTAGSequence{Info: info, TDI: tdi}
}

// TCKCount returns the number of TCK clocks in this sequence
func (seq *JTAGSequence) TCKCount() int {
	count := int(seq.Info & JTAGSeqTCKMask)
	if count == 0 {
		return 64 // 0 means 64
	}
	return count
}

// TMS returns the TMS value for this sequence
func (seq *JTAGSequence) TMS() bool {
	return (seq.Info & JTAGSeqTMS) != 0
}

// CaptureTDO returns whether TDO should be captured
func (seq *JTAGSequence) CaptureTDO() bool {
	return (seq.Info & JTAGSeqTDO) != 0
}

// EncodeJTAGSequence builds a DAP_JTAG_Sequence command
// Each sequence is: [info_byte][tdi_data...]
func (p *Protocol) EncodeJTAGSequence(sequences []JTAGSequence) []byte {
	size := 2
	for _, seq := range sequences {
		size += 1 + len(seq.TDI)
	}

	cmd := make([]byte, size)
	cmd[0] = CmdJTAGSequence
	cmd[1] = byte(len(sequences))

	offset := 2
	for _, seq := range sequences {
		cmd[offset] = seq.Info
		offset++
		copy(cmd[offset:], seq.TDI)
		offset += len(seq.TDI)
	}
	return cmd
}

// DecodeJTAGSequence parses response and extracts TDO data, one slice per
// capturing sequence.
func (p *Protocol) DecodeJTAGSequence(resp []byte, sequences []JTAGSequence) ([][]byte, error) {
	if err := checkStatus(resp, CmdJTAGSequence, "sequence"); err != nil {
		return nil, err
	}

	result := make([][]byte, 0, len(sequences))
	offset := 2
	for _, seq := range sequences {
		if !seq.CaptureTDO() {
			continue
		}
		n := (seq.TCKCount() + 7) / 8
		if offset+n > len(resp) {
			return nil, fmt.Errorf("incomplete TDO data")
		}
		tdo := make([]byte, n)
		copy(tdo, resp[offset:offset+n])
		result = append(result, tdo)
		offset += n
	}
	return result, nil
}
