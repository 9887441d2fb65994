// Package bscan drives a single boundary-scan TAP over a primitive
// jtag.Transport.
//
// The Controller tracks the TAP state locally and walks the IEEE 1149.1 graph
// one TCK edge at a time using the routing table in package tap. On top of
// that it offers instruction loads for the two supported instruction register
// widths and a family of typed shifts.
//
// # Usage
//
//	ctl := bscan.New(transport, bscan.WithLogger(logger))
//	if err := ctl.Connect(bscan.FamilyCompact); err != nil {
//		return err
//	}
//	defer ctl.Disconnect()
//
//	dev, id, err := ctl.ReadDeviceID()
//
//	// Load USER1 and exchange 32 bits with the design.
//	err = ctl.SetInstruction(bscan.InstrUser1)
//	err = ctl.GotoState(tap.StateShiftDR)
//	reply, err := ctl.ShiftUint32(0xCAFEF00D, true)
//
// # Shifts
//
// Values go out LSB-first. A shift without exit keeps the TAP in Shift-DR or
// Shift-IR so several shifts can be chained into one long register access. A
// shift with exit clocks its final bit with TMS high and leaves the TAP in the
// matching Exit1 state.
//
// Leaving a shift state with GotoState instead clocks one extra TDI=0 bit into
// the register.
//
// # Errors
//
// Every operation returns an error carrying a jtag.ErrorCode. Misuse
// (bad buffers, wrong state, unknown instruction) and a missing Connect are
// detected before anything is clocked. The most recent result is also kept
// for callers that prefer to poll it with LastError.
//
// # Concurrency
//
// A Controller is not safe for concurrent use. Exactly one goroutine should
// own it, or callers must serialize access externally.
package bscan
