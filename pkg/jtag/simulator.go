package jtag

import (
	"github.com/OpenTraceLab/bsio/pkg/bitpack"
	"github.com/OpenTraceLab/bsio/pkg/tap"
)

// Opcodes the simulated device decodes. Anything else selects BYPASS.
const (
	simOpIDCode = 0x08
	simOpUser1  = 0x02
	simOpUser2  = 0x03
)

// SimDevice configures the single TAP modelled by SimTransport.
type SimDevice struct {
	IDCode     uint32
	IRLength   int // 6 for Compact parts, 10 for Extended
	UserLength int // width of the USER1/USER2 data registers
}

// DefaultSimDevice is an XC3S200-like Compact part.
func DefaultSimDevice() SimDevice {
	return SimDevice{IDCode: 0x01414093, IRLength: 6, UserLength: 32}
}

// SimOpKind identifies which primitive a recorded SimOp came from.
type SimOpKind uint8

const (
	SimSetPins SimOpKind = iota
	SimGetPins
	SimClockTCK
	SimSendTDI
	SimSendTMS
	SimSendTDITMS
	SimGetTDO
)

var simOpNames = [...]string{"SetPins", "GetPins", "ClockTCK", "SendTDIBits", "SendTMSBits", "SendTDITMSBits", "GetTDOBits"}

func (k SimOpKind) String() string {
	if int(k) < len(simOpNames) {
		return simOpNames[k]
	}
	return "SimOpKind(?)"
}

// SimOp captures one primitive call for inspection within tests.
type SimOp struct {
	Kind  SimOpKind
	TDI   []bool // per clock
	TMS   []bool
	TDO   []bool
	Start tap.State
	End   tap.State
}

// Clocks returns the number of TCK cycles the op produced.
func (op SimOp) Clocks() int {
	return len(op.TMS)
}

// FailHook lets tests make the n-th primitive call (counting from zero) fail
// before it touches the simulated TAP.
type FailHook func(kind SimOpKind, n int) error

// SimTransport is an in-memory Transport modelling one TAP controller with an
// instruction register and IDCODE, BYPASS and USER1/USER2 data registers. Every
// TCK edge advances a tap.StateMachine, so state tracking in the session can be
// checked against what the device really saw.
//
// The IDCODE register streams its most significant bit first, which is the
// order the session's ID reassembly expects from the adapter.
type SimTransport struct {
	Device   SimDevice
	InfoData AdapterInfo
	OnCall   FailHook

	tap   *tap.StateMachine
	ir    uint32
	shift []bool // bit 0 is the cell nearest TDO
	user  map[uint32][]bool
	pins  Pins
	ops   []SimOp
	calls int
}

// NewSimTransport constructs a simulator for the provided device.
func NewSimTransport(dev SimDevice) *SimTransport {
	if dev.IRLength <= 0 {
		dev.IRLength = 6
	}
	if dev.UserLength <= 0 {
		dev.UserLength = 32
	}
	s := &SimTransport{
		Device: dev,
		InfoData: AdapterInfo{
			Name:         "JTAG Simulator",
			Model:        "sim",
			MaxFrequency: 10_000_000,
			SupportsPins: true,
		},
		tap:  tap.NewStateMachine(),
		ir:   simOpIDCode,
		user: make(map[uint32][]bool),
	}
	return s
}

// Info implements Describer.
func (s *SimTransport) Info() (AdapterInfo, error) {
	return s.InfoData, nil
}

// State reports the state of the simulated TAP.
func (s *SimTransport) State() tap.State {
	return s.tap.State()
}

// Instruction reports the latched instruction opcode.
func (s *SimTransport) Instruction() uint32 {
	return s.ir
}

// UserRegister returns the latched contents of a USER data register.
func (s *SimTransport) UserRegister(opcode uint32) []bool {
	return append([]bool(nil), s.user[opcode]...)
}

// Ops returns a copy of every recorded primitive call.
func (s *SimTransport) Ops() []SimOp {
	return append([]SimOp(nil), s.ops...)
}

// LastOp returns the most recent primitive call.
func (s *SimTransport) LastOp() SimOp {
	if len(s.ops) == 0 {
		return SimOp{}
	}
	return s.ops[len(s.ops)-1]
}

// ClearOps forgets the recorded calls.
func (s *SimTransport) ClearOps() {
	s.ops = nil
}

func (s *SimTransport) begin(kind SimOpKind) (*SimOp, error) {
	n := s.calls
	s.calls++
	if s.OnCall != nil {
		if err := s.OnCall(kind, n); err != nil {
			return nil, NewError(kind.String(), CodeTransport, err)
		}
	}
	s.ops = append(s.ops, SimOp{Kind: kind, Start: s.tap.State()})
	return &s.ops[len(s.ops)-1], nil
}

func (s *SimTransport) clock(op *SimOp, tdi, tms bool) bool {
	tdo := false
	switch s.tap.State() {
	case tap.StateCaptureIR:
		s.shift = make([]bool, s.Device.IRLength)
		s.shift[0] = true
	case tap.StateCaptureDR:
		s.shift = s.captureDR()
	case tap.StateShiftIR, tap.StateShiftDR:
		if len(s.shift) > 0 {
			tdo = s.shift[0]
			copy(s.shift, s.shift[1:])
			s.shift[len(s.shift)-1] = tdi
		}
	}

	switch s.tap.Clock(tms) {
	case tap.StateUpdateIR:
		var opcode uint32
		for i := 0; i < 6 && i < len(s.shift); i++ {
			if s.shift[i] {
				opcode |= 1 << i
			}
		}
		s.ir = opcode
	case tap.StateUpdateDR:
		if s.ir == simOpUser1 || s.ir == simOpUser2 {
			s.user[s.ir] = append([]bool(nil), s.shift...)
		}
	case tap.StateTestLogicReset:
		s.ir = simOpIDCode
	}

	op.TDI = append(op.TDI, tdi)
	op.TMS = append(op.TMS, tms)
	op.TDO = append(op.TDO, tdo)
	op.End = s.tap.State()
	return tdo
}

func (s *SimTransport) captureDR() []bool {
	switch s.ir {
	case simOpIDCode:
		reg := make([]bool, 32)
		for i := range reg {
			reg[i] = s.Device.IDCode&(1<<(31-i)) != 0
		}
		return reg
	case simOpUser1, simOpUser2:
		reg := make([]bool, s.Device.UserLength)
		copy(reg, s.user[s.ir])
		return reg
	}
	return []bool{false}
}

func (s *SimTransport) presentedTDO() bool {
	if s.tap.State().IsShift() && len(s.shift) > 0 {
		return s.shift[0]
	}
	return false
}

// SetPins drives the lines; a rising TCK edge clocks the TAP.
func (s *SimTransport) SetPins(p Pins) error {
	op, err := s.begin(SimSetPins)
	if err != nil {
		return err
	}
	if p.TCK && !s.pins.TCK {
		s.clock(op, p.TDI, p.TMS)
	}
	s.pins = Pins{TMS: p.TMS, TDI: p.TDI, TCK: p.TCK}
	return nil
}

// GetPins samples the lines.
func (s *SimTransport) GetPins() (Pins, error) {
	if _, err := s.begin(SimGetPins); err != nil {
		return Pins{}, err
	}
	p := s.pins
	p.TDO = s.presentedTDO()
	return p, nil
}

// ClockTCK implements Transport.
func (s *SimTransport) ClockTCK(cycles int, tdi, tms bool) error {
	if cycles <= 0 {
		return BadParameter("ClockTCK", "cycles must be positive, got %d", cycles)
	}
	op, err := s.begin(SimClockTCK)
	if err != nil {
		return err
	}
	for i := 0; i < cycles; i++ {
		s.clock(op, tdi, tms)
	}
	return nil
}

// SendTDIBits implements Transport.
func (s *SimTransport) SendTDIBits(tdi []byte, bits int, tms bool, tdo []byte) error {
	if tdi == nil {
		return BadParameter("SendTDIBits", "nil tdi buffer")
	}
	if _, err := ValidateShiftBuffers(bits, tdi, tdo); err != nil {
		return err
	}
	op, err := s.begin(SimSendTDI)
	if err != nil {
		return err
	}
	for i := 0; i < bits; i++ {
		out := s.clock(op, bitpack.Bit(tdi, i), tms)
		if tdo != nil {
			bitpack.SetBit(tdo, i, out)
		}
	}
	return nil
}

// SendTMSBits implements Transport.
func (s *SimTransport) SendTMSBits(tms []byte, bits int, tdi bool, tdo []byte) error {
	if tms == nil {
		return BadParameter("SendTMSBits", "nil tms buffer")
	}
	if _, err := ValidateShiftBuffers(bits, tms, tdo); err != nil {
		return err
	}
	op, err := s.begin(SimSendTMS)
	if err != nil {
		return err
	}
	for i := 0; i < bits; i++ {
		out := s.clock(op, tdi, bitpack.Bit(tms, i))
		if tdo != nil {
			bitpack.SetBit(tdo, i, out)
		}
	}
	return nil
}

// SendTDITMSBits implements Transport. The streams are folded into the
// interleaved wire format and replayed pair by pair, as a pin-level adapter
// would receive them.
func (s *SimTransport) SendTDITMSBits(tdi, tms []byte, bits int, tdo []byte) error {
	if tdi == nil || tms == nil {
		return BadParameter("SendTDITMSBits", "tdi and tms buffers are required")
	}
	if _, err := ValidateShiftBuffers(bits, tdi, tms, tdo); err != nil {
		return err
	}
	op, err := s.begin(SimSendTDITMS)
	if err != nil {
		return err
	}
	words := bitpack.InterleaveTDITMS(tdi, tms, bits)
	for i := 0; i < bits; i++ {
		d, m := bitpack.SplitTDITMS(words, i)
		out := s.clock(op, d, m)
		if tdo != nil {
			bitpack.SetBit(tdo, i, out)
		}
	}
	return nil
}

// GetTDOBits implements Transport.
func (s *SimTransport) GetTDOBits(tdi, tms bool, tdo []byte, bits int) error {
	if tdo == nil {
		return BadParameter("GetTDOBits", "nil tdo buffer")
	}
	if _, err := ValidateShiftBuffers(bits, tdo); err != nil {
		return err
	}
	op, err := s.begin(SimGetTDO)
	if err != nil {
		return err
	}
	for i := 0; i < bits; i++ {
		bitpack.SetBit(tdo, i, s.clock(op, tdi, tms))
	}
	return nil
}
