package idcode

import "fmt"

// IDCode represents a parsed IEEE 1149.1 JTAG IDCODE
type IDCode struct {
	Raw              uint32 // full IDCODE
	Version          uint8  // [31:28]
	PartNumber       uint16 // [27:12]
	ManufacturerCode uint16 // [11:1] JEP106, continuation count in [11:8]
	HasIDCode        bool   // bit 0 == 1
}

// String formats the code as "0x01414093 (ver 0, part 0x1414, mfr 0x049)".
func (id IDCode) String() string {
	return fmt.Sprintf("0x%08X (ver %d, part 0x%04X, mfr 0x%03X)",
		id.Raw, id.Version, id.PartNumber, id.ManufacturerCode)
}

// Manufacturer represents a JEP106 manufacturer entry
type Manufacturer struct {
	Code         uint16 // JEP106 code as it appears in IDCODE[11:1]
	Name         string // "Xilinx"
	Abbreviation string // "XLNX"
}

// Bank returns the JEP106 bank (continuation count + 1).
func (m Manufacturer) Bank() int {
	return int(m.Code>>7) + 1
}

// ID returns the 7-bit identifier within the bank.
func (m Manufacturer) ID() uint8 {
	return uint8(m.Code & 0x7F)
}
