package bscan

import (
	"fmt"
	"strconv"
	"strings"
)

// Family selects the instruction register width of the target.
type Family uint8

const (
	// FamilyCompact parts have a 6-bit instruction register.
	FamilyCompact Family = iota
	// FamilyExtended parts have a 10-bit instruction register: the 6-bit
	// opcode followed by 4 padding bits.
	FamilyExtended
)

func (f Family) String() string {
	switch f {
	case FamilyCompact:
		return "compact"
	case FamilyExtended:
		return "extended"
	}
	return fmt.Sprintf("Family(%d)", f)
}

// Valid reports whether f is a known family.
func (f Family) Valid() bool {
	return f == FamilyCompact || f == FamilyExtended
}

// IRLength returns the instruction register width in bits.
func (f Family) IRLength() int {
	if f == FamilyExtended {
		return 10
	}
	return 6
}

// ParseFamily accepts "compact"/"extended" or the register width "6"/"10".
func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "compact", "6":
		return FamilyCompact, nil
	case "extended", "10":
		return FamilyExtended, nil
	}
	return 0, fmt.Errorf("bscan: unknown family %q", s)
}

// Instruction is a boundary-scan opcode. Only the low 6 bits are shifted.
type Instruction uint8

const (
	InstrExtest    Instruction = 0x00
	InstrSample    Instruction = 0x01
	InstrUser1     Instruction = 0x02
	InstrUser2     Instruction = 0x03
	InstrReadback  Instruction = 0x04
	InstrConfigure Instruction = 0x05
	InstrIntest    Instruction = 0x07
	InstrIDCode    Instruction = 0x08
	InstrUserCode  Instruction = 0x09
	InstrUser3     Instruction = 0x22 // Extended only
	InstrUser4     Instruction = 0x23 // Extended only
	InstrBypass    Instruction = 0xFF
)

var instructionNames = map[Instruction]string{
	InstrExtest:    "EXTEST",
	InstrSample:    "SAMPLE",
	InstrUser1:     "USER1",
	InstrUser2:     "USER2",
	InstrReadback:  "READBACK",
	InstrConfigure: "CONFIGURE",
	InstrIntest:    "INTEST",
	InstrIDCode:    "IDCODE",
	InstrUserCode:  "USERCODE",
	InstrUser3:     "USER3",
	InstrUser4:     "USER4",
	InstrBypass:    "BYPASS",
}

func (i Instruction) String() string {
	if name, ok := instructionNames[i]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", uint8(i))
}

// Opcode returns the 6 bits that are actually shifted into the register.
func (i Instruction) Opcode() byte {
	return byte(i) & 0x3F
}

// ValidFor reports whether the instruction exists on the given family.
func (i Instruction) ValidFor(f Family) bool {
	if i == InstrUser3 || i == InstrUser4 {
		return f == FamilyExtended
	}
	return f.Valid()
}

// ParseInstruction accepts a mnemonic such as "USER1" (case-insensitive) or a
// numeric opcode in any base strconv understands ("0x08", "8").
func ParseInstruction(s string) (Instruction, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	for instr, name := range instructionNames {
		if name == key {
			return instr, nil
		}
	}
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 8)
	if err != nil {
		return 0, fmt.Errorf("bscan: unknown instruction %q", s)
	}
	return Instruction(v), nil
}

// Device identifies one of the parts the controller recognizes by IDCODE.
type Device int

const (
	DeviceUnknown Device = iota
	DeviceXC3S200
	DeviceXC3S1000
)

var knownDevices = map[uint32]Device{
	0x01414093: DeviceXC3S200,
	0x01428093: DeviceXC3S1000,
}

// DeviceFromID maps an IDCODE to a known device. Unrecognized codes yield
// DeviceUnknown.
func DeviceFromID(id uint32) Device {
	return knownDevices[id]
}

// IDCode returns the canonical IDCODE of d, or 0 for DeviceUnknown.
func (d Device) IDCode() uint32 {
	for id, dev := range knownDevices {
		if dev == d {
			return id
		}
	}
	return 0
}

func (d Device) String() string {
	switch d {
	case DeviceXC3S200:
		return "XC3S200"
	case DeviceXC3S1000:
		return "XC3S1000"
	}
	return "unknown"
}

// ShiftRequest describes one register access. TDI holds Bits significant bits
// LSB-first. TDO, when non-nil, must be exactly ceil(Bits/8) bytes and receives
// the returned bits at the same positions.
type ShiftRequest struct {
	TDI  []byte
	Bits int
	Exit bool
	TDO  []byte
}
