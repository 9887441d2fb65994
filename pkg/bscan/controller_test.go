package bscan

import (
	"errors"
	"testing"

	"github.com/OpenTraceLab/bsio/pkg/jtag"
	"github.com/OpenTraceLab/bsio/pkg/tap"
)

func newSession(t *testing.T, dev jtag.SimDevice, f Family, opts ...Option) (*Controller, *jtag.SimTransport) {
	t.Helper()
	sim := jtag.NewSimTransport(dev)
	ctl := New(sim, opts...)
	if err := ctl.Connect(f); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return ctl, sim
}

func opsOfKind(ops []jtag.SimOp, kind jtag.SimOpKind) []jtag.SimOp {
	var out []jtag.SimOp
	for _, op := range ops {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}

func TestConnectForcesReset(t *testing.T) {
	for _, tc := range []struct {
		opts []Option
		want int
	}{
		{nil, 5},
		{[]Option{WithResetClocks(7)}, 7},
		{[]Option{WithResetClocks(2)}, 5},
	} {
		ctl, sim := newSession(t, jtag.DefaultSimDevice(), FamilyCompact, tc.opts...)
		if !ctl.Connected() || ctl.State() != tap.StateTestLogicReset {
			t.Fatalf("after Connect: connected=%v state=%s", ctl.Connected(), ctl.State())
		}
		op := sim.LastOp()
		if op.Kind != jtag.SimClockTCK || op.Clocks() != tc.want {
			t.Fatalf("reset op = %s with %d clocks, want ClockTCK with %d", op.Kind, op.Clocks(), tc.want)
		}
		for i := range op.TMS {
			if !op.TMS[i] || op.TDI[i] {
				t.Fatalf("reset clock %d: tms=%v tdi=%v", i, op.TMS[i], op.TDI[i])
			}
		}
		if ctl.ResetClocks() != tc.want {
			t.Fatalf("ResetClocks() = %d, want %d", ctl.ResetClocks(), tc.want)
		}
	}
}

func TestConnectRejectsUnknownFamily(t *testing.T) {
	sim := jtag.NewSimTransport(jtag.DefaultSimDevice())
	ctl := New(sim)
	if err := ctl.Connect(Family(7)); !errors.Is(err, jtag.ErrBadParameter) {
		t.Fatalf("Connect error = %v, want ErrBadParameter", err)
	}
	if ctl.Connected() || len(sim.Ops()) != 0 {
		t.Fatalf("rejected Connect touched the transport")
	}
}

func TestConnectFailureKeepsFamily(t *testing.T) {
	ctl, sim := newSession(t, jtag.DefaultSimDevice(), FamilyCompact)

	boom := errors.New("cable unplugged")
	sim.OnCall = func(jtag.SimOpKind, int) error { return boom }
	if err := ctl.Connect(FamilyExtended); !errors.Is(err, boom) {
		t.Fatalf("Connect error = %v, want %v", err, boom)
	}
	if ctl.Connected() {
		t.Fatalf("session left open after failed reset")
	}
	if ctl.Family() != FamilyCompact {
		t.Fatalf("Family() = %s after failed Connect, want %s", ctl.Family(), FamilyCompact)
	}

	sim.OnCall = nil
	if err := ctl.Connect(FamilyExtended); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if ctl.Family() != FamilyExtended {
		t.Fatalf("Family() = %s, want %s", ctl.Family(), FamilyExtended)
	}
}

func TestOperationsRequireConnect(t *testing.T) {
	sim := jtag.NewSimTransport(jtag.DefaultSimDevice())
	ctl := New(sim)

	calls := map[string]func() error{
		"GotoState":      func() error { return ctl.GotoState(tap.StateShiftDR) },
		"SetInstruction": func() error { return ctl.SetInstruction(InstrIDCode) },
		"ReadDeviceID":   func() error { _, _, err := ctl.ReadDeviceID(); return err },
		"ShiftByte":      func() error { _, err := ctl.ShiftByte(0xAA, false); return err },
		"Disconnect":     ctl.Disconnect,
	}
	for name, call := range calls {
		err := call()
		if !errors.Is(err, jtag.ErrNotConnected) {
			t.Fatalf("%s error = %v, want ErrNotConnected", name, err)
		}
		if ctl.LastErrorCode() != jtag.CodeNotConnected {
			t.Fatalf("%s LastErrorCode = %s", name, ctl.LastErrorCode())
		}
	}
	if len(sim.Ops()) != 0 {
		t.Fatalf("unconnected controller clocked %d ops", len(sim.Ops()))
	}
}

func TestGotoStateAllPairs(t *testing.T) {
	ctl, sim := newSession(t, jtag.DefaultSimDevice(), FamilyCompact)

	for from := tap.State(0); from < tap.NumStates; from++ {
		for to := tap.State(0); to < tap.NumStates; to++ {
			if err := ctl.GotoState(from); err != nil {
				t.Fatalf("GotoState(%s): %v", from, err)
			}
			sim.ClearOps()
			if err := ctl.GotoState(to); err != nil {
				t.Fatalf("GotoState(%s -> %s): %v", from, to, err)
			}
			if ctl.State() != to || sim.State() != to {
				t.Fatalf("%s -> %s: controller in %s, device in %s", from, to, ctl.State(), sim.State())
			}
			if to == tap.StateTestLogicReset {
				continue
			}
			for _, op := range sim.Ops() {
				if op.Kind != jtag.SimClockTCK || op.Clocks() != 1 || op.TDI[0] {
					t.Fatalf("%s -> %s: unexpected step %s clocks=%d tdi=%v", from, to, op.Kind, op.Clocks(), op.TDI)
				}
			}
			if from == to && len(sim.Ops()) != 0 {
				t.Fatalf("GotoState(%s) from itself clocked %d times", to, len(sim.Ops()))
			}
		}
	}
	if ctl.LastError() != nil {
		t.Fatalf("LastError after successes = %v", ctl.LastError())
	}
}

func TestGotoStateResetIsUnconditional(t *testing.T) {
	ctl, sim := newSession(t, jtag.DefaultSimDevice(), FamilyCompact)
	for s := tap.State(0); s < tap.NumStates; s++ {
		if err := ctl.GotoState(s); err != nil {
			t.Fatalf("GotoState(%s): %v", s, err)
		}
		sim.ClearOps()
		if err := ctl.GotoState(tap.StateTestLogicReset); err != nil {
			t.Fatalf("reset from %s: %v", s, err)
		}
		ops := sim.Ops()
		if len(ops) != 1 || ops[0].Clocks() != DefaultResetClocks {
			t.Fatalf("reset from %s took %d ops", s, len(ops))
		}
		if sim.State() != tap.StateTestLogicReset {
			t.Fatalf("device in %s after reset from %s", sim.State(), s)
		}
	}
}

func TestGotoStateFailureLeavesLastStep(t *testing.T) {
	ctl, sim := newSession(t, jtag.DefaultSimDevice(), FamilyCompact)
	if err := ctl.GotoState(tap.StateRunTestIdle); err != nil {
		t.Fatalf("GotoState: %v", err)
	}

	boom := errors.New("cable unplugged")
	calls := 0
	sim.OnCall = func(jtag.SimOpKind, int) error {
		calls++
		if calls == 3 {
			return boom
		}
		return nil
	}

	// RTI -> SelectDR -> CaptureDR -> ShiftDR; the third edge fails.
	err := ctl.GotoState(tap.StateShiftDR)
	if !errors.Is(err, boom) {
		t.Fatalf("GotoState error = %v, want %v", err, boom)
	}
	if jtag.CodeOf(err) != jtag.CodeTransport {
		t.Fatalf("code = %s", jtag.CodeOf(err))
	}
	if ctl.State() != tap.StateCaptureDR || sim.State() != tap.StateCaptureDR {
		t.Fatalf("after failure: controller %s, device %s", ctl.State(), sim.State())
	}
	if !errors.Is(ctl.LastError(), boom) {
		t.Fatalf("LastError = %v", ctl.LastError())
	}

	sim.OnCall = nil
	if err := ctl.GotoState(tap.StateShiftDR); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if sim.State() != tap.StateShiftDR {
		t.Fatalf("retry left device in %s", sim.State())
	}
	if ctl.LastError() != nil {
		t.Fatalf("LastError not cleared by success")
	}
}

func TestGotoStateRejectsInvalidTarget(t *testing.T) {
	ctl, _ := newSession(t, jtag.DefaultSimDevice(), FamilyCompact)
	if err := ctl.GotoState(tap.State(42)); jtag.CodeOf(err) != jtag.CodeBadParameter {
		t.Fatalf("error = %v, want bad parameter", err)
	}
}

func TestSetInstructionCompact(t *testing.T) {
	ctl, sim := newSession(t, jtag.DefaultSimDevice(), FamilyCompact)
	sim.ClearOps()

	if err := ctl.SetInstruction(InstrUser1); err != nil {
		t.Fatalf("SetInstruction: %v", err)
	}
	if ctl.State() != tap.StateRunTestIdle || sim.State() != tap.StateRunTestIdle {
		t.Fatalf("ended in %s / %s", ctl.State(), sim.State())
	}
	if sim.Instruction() != uint32(InstrUser1) {
		t.Fatalf("device latched %02X", sim.Instruction())
	}

	ops := sim.Ops()
	pad := 0
	for _, op := range opsOfKind(ops, jtag.SimClockTCK) {
		if op.Clocks() == 8 {
			pad++
			for i := range op.TDI {
				if !op.TDI[i] || op.TMS[i] {
					t.Fatalf("padding clock %d: tdi=%v tms=%v", i, op.TDI[i], op.TMS[i])
				}
			}
		}
	}
	if pad != 1 {
		t.Fatalf("saw %d padding runs, want 1", pad)
	}

	dual := opsOfKind(ops, jtag.SimSendTDITMS)
	if len(dual) != 1 || dual[0].Clocks() != 6 {
		t.Fatalf("instruction ops = %+v", dual)
	}
	for i, tms := range dual[0].TMS {
		if tms != (i == 5) {
			t.Fatalf("instruction bit %d tms=%v", i, tms)
		}
	}
	if dual[0].End != tap.StateExit1IR {
		t.Fatalf("instruction op ended in %s", dual[0].End)
	}
	if n := len(opsOfKind(ops, jtag.SimSendTMS)); n != 0 {
		t.Fatalf("compact load sent %d padding ops", n)
	}
}

func TestSetInstructionExtended(t *testing.T) {
	dev := jtag.DefaultSimDevice()
	dev.IRLength = 10
	ctl, sim := newSession(t, dev, FamilyExtended)
	sim.ClearOps()

	if err := ctl.SetInstruction(InstrUser3); err != nil {
		t.Fatalf("SetInstruction: %v", err)
	}
	if sim.Instruction() != uint32(InstrUser3.Opcode()) {
		t.Fatalf("device latched %02X", sim.Instruction())
	}
	if ctl.State() != tap.StateRunTestIdle || sim.State() != tap.StateRunTestIdle {
		t.Fatalf("ended in %s / %s", ctl.State(), sim.State())
	}

	ops := sim.Ops()
	dual := opsOfKind(ops, jtag.SimSendTDITMS)
	if len(dual) != 1 || dual[0].Clocks() != 6 || dual[0].End != tap.StateShiftIR {
		t.Fatalf("instruction ops = %+v", dual)
	}
	for i, tms := range dual[0].TMS {
		if tms {
			t.Fatalf("extended instruction bit %d sent with tms high", i)
		}
	}
	pad := opsOfKind(ops, jtag.SimSendTMS)
	if len(pad) != 1 || pad[0].Clocks() != 4 || pad[0].End != tap.StateExit1IR {
		t.Fatalf("padding ops = %+v", pad)
	}
	for i := range pad[0].TMS {
		if pad[0].TMS[i] != (i == 3) || !pad[0].TDI[i] {
			t.Fatalf("padding bit %d: tms=%v tdi=%v", i, pad[0].TMS[i], pad[0].TDI[i])
		}
	}
}

func TestSetInstructionBypassSendsLowBits(t *testing.T) {
	ctl, sim := newSession(t, jtag.DefaultSimDevice(), FamilyCompact)
	if err := ctl.SetInstruction(InstrBypass); err != nil {
		t.Fatalf("SetInstruction: %v", err)
	}
	if sim.Instruction() != 0x3F {
		t.Fatalf("device latched %02X, want 3F", sim.Instruction())
	}
}

func TestSetInstructionFamilyCheck(t *testing.T) {
	ctl, sim := newSession(t, jtag.DefaultSimDevice(), FamilyCompact)
	sim.ClearOps()
	for _, instr := range []Instruction{InstrUser3, InstrUser4} {
		if err := ctl.SetInstruction(instr); !errors.Is(err, jtag.ErrBadParameter) {
			t.Fatalf("SetInstruction(%s) error = %v", instr, err)
		}
	}
	if len(sim.Ops()) != 0 {
		t.Fatalf("rejected instruction clocked %d ops", len(sim.Ops()))
	}
}

func TestSetInstructionPropagatesErrors(t *testing.T) {
	ctl, sim := newSession(t, jtag.DefaultSimDevice(), FamilyCompact)
	boom := errors.New("endpoint stalled")
	sim.OnCall = func(kind jtag.SimOpKind, _ int) error {
		if kind == jtag.SimSendTDITMS {
			return boom
		}
		return nil
	}
	if err := ctl.SetInstruction(InstrSample); !errors.Is(err, boom) {
		t.Fatalf("SetInstruction error = %v, want %v", err, boom)
	}
	if ctl.State() != tap.StateShiftIR || sim.State() != tap.StateShiftIR {
		t.Fatalf("after failure: controller %s, device %s", ctl.State(), sim.State())
	}
}

func TestReadDeviceID(t *testing.T) {
	cases := []struct {
		name string
		id   uint32
		want Device
	}{
		{"xc3s200", 0x01414093, DeviceXC3S200},
		{"xc3s1000", 0x01428093, DeviceXC3S1000},
		{"unknown", 0x4BA00477, DeviceUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dev := jtag.DefaultSimDevice()
			dev.IDCode = tc.id
			ctl, sim := newSession(t, dev, FamilyCompact)

			got, id, err := ctl.ReadDeviceID()
			if err != nil {
				t.Fatalf("ReadDeviceID: %v", err)
			}
			if id != tc.id || got != tc.want {
				t.Fatalf("ReadDeviceID = %s %08X, want %s %08X", got, id, tc.want, tc.id)
			}
			if ctl.State() != tap.StateRunTestIdle || sim.State() != tap.StateRunTestIdle {
				t.Fatalf("ended in %s / %s", ctl.State(), sim.State())
			}
		})
	}
}

func TestAssembleIDCode(t *testing.T) {
	if got := assembleIDCode([]byte{0x80, 0x00, 0x00, 0x01}); got != 0x01000080 {
		t.Fatalf("assembleIDCode = %08X, want 01000080", got)
	}
}

type closingSim struct {
	*jtag.SimTransport
	closed int
}

func (c *closingSim) Close() error {
	c.closed++
	return nil
}

func TestDisconnectClosesTransport(t *testing.T) {
	tr := &closingSim{SimTransport: jtag.NewSimTransport(jtag.DefaultSimDevice())}
	ctl := New(tr)
	if err := ctl.Connect(FamilyCompact); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := ctl.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if tr.closed != 1 || ctl.Connected() {
		t.Fatalf("closed=%d connected=%v", tr.closed, ctl.Connected())
	}
	if err := ctl.Disconnect(); !errors.Is(err, jtag.ErrNotConnected) {
		t.Fatalf("second Disconnect error = %v", err)
	}
	if tr.closed != 1 {
		t.Fatalf("transport closed %d times", tr.closed)
	}
}
