package bitpack

// InterleaveTDITMS folds separate TDI and TMS streams into the dual-stream
// wire format used by pin-level adapters: bit pair k occupies bits 2k (TDI)
// and 2k+1 (TMS) of its byte, four pairs per byte, first pair in the low bits.
func InterleaveTDITMS(tdi, tms []byte, bits int) []byte {
	if bits <= 0 {
		return nil
	}
	words := make([]byte, (bits+3)/4)
	for i := 0; i < bits; i++ {
		pos := uint(i%4) * 2
		if Bit(tdi, i) {
			words[i/4] |= 1 << pos
		}
		if Bit(tms, i) {
			words[i/4] |= 2 << pos
		}
	}
	return words
}

// SplitTDITMS returns the TDI and TMS values of pair i of an interleaved
// buffer.
func SplitTDITMS(words []byte, i int) (tdi, tms bool) {
	pair := words[i/4] >> (uint(i%4) * 2)
	return pair&1 != 0, pair&2 != 0
}
