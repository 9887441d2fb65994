package jtag

// AdapterInfo describes capabilities reported by a JTAG adapter implementation.
type AdapterInfo struct {
	Name         string
	Vendor       string
	Model        string
	SerialNumber string
	Firmware     string
	MinFrequency int // Hertz
	MaxFrequency int // Hertz
	SupportsPins bool
	Notes        string
}

// Describer is implemented by transports that can report what they are.
type Describer interface {
	Info() (AdapterInfo, error)
}
