package bscan

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/OpenTraceLab/bsio/pkg/bitpack"
	"github.com/OpenTraceLab/bsio/pkg/jtag"
	"github.com/OpenTraceLab/bsio/pkg/tap"
)

// DefaultResetClocks is the number of TMS=1 clocks used to force
// Test-Logic-Reset unless WithResetClocks says otherwise.
const DefaultResetClocks = tap.MinResetClocks

// Controller is a boundary-scan session over one Transport. See the package
// documentation for the concurrency contract.
type Controller struct {
	transport   jtag.Transport
	logger      *log.Logger
	resetClocks int

	state     tap.State
	family    Family
	connected bool
	lastErr   error
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger routes the controller's debug output to l.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithResetClocks sets the length of the reset sequence. Values below
// tap.MinResetClocks are raised to it.
func WithResetClocks(n int) Option {
	return func(c *Controller) {
		if n < tap.MinResetClocks {
			n = tap.MinResetClocks
		}
		c.resetClocks = n
	}
}

// New wraps t in an unconnected Controller.
func New(t jtag.Transport, opts ...Option) *Controller {
	c := &Controller{
		transport:   t,
		logger:      log.New(io.Discard),
		resetClocks: DefaultResetClocks,
		state:       tap.StateTestLogicReset,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transport returns the transport the controller drives.
func (c *Controller) Transport() jtag.Transport {
	return c.transport
}

// State reports the tracked TAP state.
func (c *Controller) State() tap.State {
	return c.state
}

// Family reports the family chosen at Connect.
func (c *Controller) Family() Family {
	return c.family
}

// Connected reports whether a session is open.
func (c *Controller) Connected() bool {
	return c.connected
}

// ResetClocks reports the configured reset sequence length.
func (c *Controller) ResetClocks() int {
	return c.resetClocks
}

// LastError returns the result of the most recent operation: nil after a
// success, the returned error after a failure.
func (c *Controller) LastError() error {
	return c.lastErr
}

// LastErrorCode is shorthand for jtag.CodeOf(c.LastError()).
func (c *Controller) LastErrorCode() jtag.ErrorCode {
	return jtag.CodeOf(c.lastErr)
}

func (c *Controller) record(err error) error {
	c.lastErr = err
	return err
}

func (c *Controller) ready(op string) error {
	if c.transport == nil || !c.connected {
		return jtag.NewError(op, jtag.CodeNotConnected, jtag.ErrNotConnected)
	}
	return nil
}

// Connect opens a session for the given family and forces the TAP into
// Test-Logic-Reset. Connecting an open session resets it again.
func (c *Controller) Connect(f Family) error {
	if !f.Valid() {
		return c.record(jtag.BadParameter("Connect", "unknown family %d", f))
	}
	if c.transport == nil {
		return c.record(jtag.NewError("Connect", jtag.CodeNotConnected, jtag.ErrNotConnected))
	}
	c.connected = true
	if err := c.gotoState(tap.StateTestLogicReset); err != nil {
		c.connected = false
		return c.record(jtag.Wrap("Connect", jtag.CodeTransport, err))
	}
	c.family = f
	c.logger.Info("connected", "family", f, "reset_clocks", c.resetClocks)
	return c.record(nil)
}

// Disconnect ends the session and closes the transport when it implements
// io.Closer.
func (c *Controller) Disconnect() error {
	if !c.connected {
		return c.record(jtag.NewError("Disconnect", jtag.CodeNotConnected, jtag.ErrNotConnected))
	}
	c.connected = false
	c.logger.Info("disconnected")
	if closer, ok := c.transport.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return c.record(jtag.Wrap("Disconnect", jtag.CodeTransport, err))
		}
	}
	return c.record(nil)
}

// GotoState walks the TAP to target one edge at a time with TDI held low.
// Test-Logic-Reset is always reached with the full reset sequence, whatever
// the tracked state. On transport failure the tracked state is the last edge
// that completed.
func (c *Controller) GotoState(target tap.State) error {
	return c.record(c.gotoState(target))
}

func (c *Controller) gotoState(target tap.State) error {
	const op = "GotoState"
	if err := c.ready(op); err != nil {
		return err
	}
	if !target.Valid() {
		return jtag.BadParameter(op, "invalid target state %d", target)
	}

	if target == tap.StateTestLogicReset {
		if err := c.transport.ClockTCK(c.resetClocks, false, true); err != nil {
			return jtag.Wrap(op, jtag.CodeTransport, err)
		}
		c.logger.Debug("tap reset", "from", c.state, "clocks", c.resetClocks)
		c.state = tap.StateTestLogicReset
		return nil
	}

	seq, err := tap.Route(c.state, target)
	if err != nil {
		return jtag.BadParameter(op, "%v", err)
	}
	for i, tms := range seq.TMS {
		if err := c.transport.ClockTCK(1, false, tms); err != nil {
			return jtag.Wrap(op, jtag.CodeTransport, err)
		}
		c.state = seq.States[i+1]
	}
	if len(seq.TMS) > 0 {
		c.logger.Debug("tap", "from", seq.States[0], "to", target, "clocks", len(seq.TMS))
	}
	return nil
}

// SetInstruction loads instr into the instruction register and returns to
// Run-Test/Idle. Eight ones are clocked ahead of the opcode to fill the
// register of the bypassed device sharing the chain.
func (c *Controller) SetInstruction(instr Instruction) error {
	return c.record(c.setInstruction(instr))
}

func (c *Controller) setInstruction(instr Instruction) error {
	const op = "SetInstruction"
	if err := c.ready(op); err != nil {
		return err
	}
	if !instr.ValidFor(c.family) {
		return jtag.BadParameter(op, "%s is not available on %s parts", instr, c.family)
	}

	if err := c.gotoState(tap.StateShiftIR); err != nil {
		return jtag.Wrap(op, jtag.CodeTransport, err)
	}
	if err := c.transport.ClockTCK(8, true, false); err != nil {
		return jtag.Wrap(op, jtag.CodeTransport, err)
	}

	var tms byte
	if c.family == FamilyCompact {
		tms = 0x20 // exit on the sixth bit
	}
	if err := c.transport.SendTDITMSBits([]byte{instr.Opcode()}, []byte{tms}, 6, nil); err != nil {
		return jtag.Wrap(op, jtag.CodeTransport, err)
	}
	if c.family == FamilyExtended {
		if err := c.transport.SendTMSBits([]byte{0x08}, 4, true, nil); err != nil {
			return jtag.Wrap(op, jtag.CodeTransport, err)
		}
	}
	c.state = tap.StateExit1IR

	if err := c.gotoState(tap.StateRunTestIdle); err != nil {
		return jtag.Wrap(op, jtag.CodeTransport, err)
	}
	c.logger.Debug("instruction", "name", instr, "opcode", instr.Opcode(), "family", c.family)
	return nil
}

// ReadDeviceID loads IDCODE, reads the 32-bit identifier and returns to
// Run-Test/Idle. An unrecognized identifier is reported as DeviceUnknown
// together with the raw value; it is not an error.
func (c *Controller) ReadDeviceID() (Device, uint32, error) {
	id, err := c.readDeviceID()
	if err != nil {
		return DeviceUnknown, 0, c.record(err)
	}
	c.record(nil)
	return DeviceFromID(id), id, nil
}

func (c *Controller) readDeviceID() (uint32, error) {
	const op = "ReadDeviceID"
	if err := c.ready(op); err != nil {
		return 0, err
	}
	if err := c.gotoState(tap.StateRunTestIdle); err != nil {
		return 0, jtag.Wrap(op, jtag.CodeTransport, err)
	}
	if err := c.setInstruction(InstrIDCode); err != nil {
		return 0, jtag.Wrap(op, jtag.CodeTransport, err)
	}
	if err := c.gotoState(tap.StateShiftDR); err != nil {
		return 0, jtag.Wrap(op, jtag.CodeTransport, err)
	}
	tdo := make([]byte, 4)
	if err := c.transport.GetTDOBits(false, false, tdo, 32); err != nil {
		return 0, jtag.Wrap(op, jtag.CodeTransport, err)
	}
	if err := c.gotoState(tap.StateRunTestIdle); err != nil {
		return 0, jtag.Wrap(op, jtag.CodeTransport, err)
	}

	id := assembleIDCode(tdo)
	c.logger.Debug("idcode", "value", fmt.Sprintf("0x%08X", id), "device", DeviceFromID(id))
	return id, nil
}

// assembleIDCode reverses each received byte and packs them big-endian, so the
// first byte off the wire becomes the most significant one.
func assembleIDCode(raw []byte) uint32 {
	var id uint32
	for _, b := range raw {
		id = id<<8 | uint32(bitpack.ReverseByte(b))
	}
	return id
}
