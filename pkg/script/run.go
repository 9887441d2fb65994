package script

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/OpenTraceLab/bsio/pkg/bitpack"
	"github.com/OpenTraceLab/bsio/pkg/bscan"
	"github.com/OpenTraceLab/bsio/pkg/jtag"
	"github.com/OpenTraceLab/bsio/pkg/tap"
)

// Session is the part of bscan.Controller a script drives.
type Session interface {
	State() tap.State
	GotoState(target tap.State) error
	SetInstruction(instr bscan.Instruction) error
	ReadDeviceID() (bscan.Device, uint32, error)
	ShiftBit(bit bool, exit bool) (bool, error)
	ShiftBinary(digits string, exit bool, tdo []byte) error
	ShiftByte(v byte, exit bool) (byte, error)
	ShiftBytes(data []byte, exit bool, tdo []byte) error
	ShiftUint16(v uint16, exit bool) (uint16, error)
	ShiftInt16(v int16, exit bool) (int16, error)
	ShiftUint32(v uint32, exit bool) (uint32, error)
	ShiftInt32(v int32, exit bool) (int32, error)
}

var _ Session = (*bscan.Controller)(nil)

// Result is the outcome of one executed statement.
type Result struct {
	Pos    lexer.Position
	Op     string
	State  tap.State // TAP state after the statement
	Output string    // captured value, empty for statements that capture nothing
}

func (r Result) String() string {
	if r.Output == "" {
		return fmt.Sprintf("%s %s [%s]", r.Pos, r.Op, r.State)
	}
	return fmt.Sprintf("%s %s -> %s [%s]", r.Pos, r.Op, r.Output, r.State)
}

// Error reports the statement a script stopped at.
type Error struct {
	Pos lexer.Position
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Pos, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Run executes every statement in order and stops at the first failure. The
// results of the statements that completed are returned alongside the error.
func Run(s Session, sc *Script) ([]Result, error) {
	results := make([]Result, 0, len(sc.Statements))
	for _, st := range sc.Statements {
		out, err := exec(s, st)
		if err != nil {
			return results, &Error{Pos: st.Pos, Op: st.Op(), Err: err}
		}
		results = append(results, Result{Pos: st.Pos, Op: st.Op(), State: s.State(), Output: out})
	}
	return results, nil
}

func exec(s Session, st *Statement) (string, error) {
	switch {
	case st.Reset:
		return "", s.GotoState(tap.StateTestLogicReset)
	case st.State != "":
		target, err := tap.ParseState(st.State)
		if err != nil {
			return "", jtag.BadParameter("state", "%v", err)
		}
		return "", s.GotoState(target)
	case st.Instruction != "":
		instr, err := bscan.ParseInstruction(st.Instruction)
		if err != nil {
			return "", jtag.BadParameter("instruction", "%v", err)
		}
		return "", s.SetInstruction(instr)
	case st.IDCode:
		dev, id, err := s.ReadDeviceID()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("0x%08X %s", id, dev), nil
	case st.Shift != nil:
		return shift(s, st.Shift)
	}
	return "", jtag.BadParameter("script", "empty statement")
}

func shift(s Session, st *ShiftStmt) (string, error) {
	kind := strings.ToLower(st.Kind)
	if kind != "bytes" && len(st.Values) != 1 {
		return "", jtag.BadParameter("shift", "%s takes one value, got %d", kind, len(st.Values))
	}
	v := st.Values[0]

	switch kind {
	case "bit":
		n, err := parseUint(v, 1)
		if err != nil {
			return "", err
		}
		out, err := s.ShiftBit(n == 1, st.Exit)
		if err != nil {
			return "", err
		}
		if out {
			return "1", nil
		}
		return "0", nil
	case "binary":
		tdo := make([]byte, bitpack.ByteLen(len(v)))
		if err := s.ShiftBinary(v, st.Exit, tdo); err != nil {
			return "", err
		}
		var b strings.Builder
		for _, bit := range bitpack.Unpack(tdo, len(v)) {
			if bit {
				b.WriteByte('1')
			} else {
				b.WriteByte('0')
			}
		}
		return b.String(), nil
	case "byte":
		n, err := parseUint(v, 8)
		if err != nil {
			return "", err
		}
		out, err := s.ShiftByte(byte(n), st.Exit)
		return fmt.Sprintf("0x%02X", out), err
	case "bytes":
		data := make([]byte, len(st.Values))
		for i, val := range st.Values {
			n, err := parseUint(val, 8)
			if err != nil {
				return "", err
			}
			data[i] = byte(n)
		}
		tdo := make([]byte, len(data))
		if err := s.ShiftBytes(data, st.Exit, tdo); err != nil {
			return "", err
		}
		return fmt.Sprintf("% X", tdo), nil
	case "u16":
		n, err := parseUint(v, 16)
		if err != nil {
			return "", err
		}
		out, err := s.ShiftUint16(uint16(n), st.Exit)
		return fmt.Sprintf("0x%04X", out), err
	case "i16":
		n, err := parseInt(v, 16)
		if err != nil {
			return "", err
		}
		out, err := s.ShiftInt16(int16(n), st.Exit)
		return strconv.Itoa(int(out)), err
	case "u32":
		n, err := parseUint(v, 32)
		if err != nil {
			return "", err
		}
		out, err := s.ShiftUint32(uint32(n), st.Exit)
		return fmt.Sprintf("0x%08X", out), err
	case "i32":
		n, err := parseInt(v, 32)
		if err != nil {
			return "", err
		}
		out, err := s.ShiftInt32(int32(n), st.Exit)
		return strconv.Itoa(int(out)), err
	}
	return "", jtag.BadParameter("shift", "unknown kind %q", st.Kind)
}

func parseUint(s string, bits int) (uint64, error) {
	n, err := strconv.ParseUint(s, 0, bits)
	if err != nil {
		return 0, jtag.BadParameter("shift", "value %q does not fit %d unsigned bits", s, bits)
	}
	return n, nil
}

func parseInt(s string, bits int) (int64, error) {
	n, err := strconv.ParseInt(s, 0, bits)
	if err != nil {
		return 0, jtag.BadParameter("shift", "value %q does not fit %d signed bits", s, bits)
	}
	return n, nil
}
