package idcode

// ParseIDCode parses a raw 32-bit IDCODE into its component fields
func ParseIDCode(raw uint32) IDCode {
	return IDCode{
		Raw:              raw,
		Version:          uint8((raw >> 28) & 0xF),
		PartNumber:       uint16((raw >> 12) & 0xFFFF),
		ManufacturerCode: uint16((raw >> 1) & 0x7FF),
		HasIDCode:        (raw & 0x1) == 0x1,
	}
}

// Valid reports whether raw looks like an IDCODE rather than a bypass bit or
// a stuck line. All-zero and all-one captures are rejected, as is the
// reserved manufacturer 0x07F.
func Valid(raw uint32) bool {
	if raw == 0 || raw == 0xFFFFFFFF || raw&1 == 0 {
		return false
	}
	return (raw>>1)&0x7F != 0x7F
}
