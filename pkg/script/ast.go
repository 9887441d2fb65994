package script

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Script is a parsed scan script
type Script struct {
	Statements []*Statement `( @@ ";"? )*`
}

// Statement is one script command. Exactly one field is set.
type Statement struct {
	Pos lexer.Position

	Reset       bool       `(  @"reset"`
	State       string     ` | "state" @Ident`
	Instruction string     ` | "instruction" @( Ident | Hex | Int )`
	IDCode      bool       ` | @"idcode"`
	Shift       *ShiftStmt ` | "shift" @@ )`
}

// ShiftStmt is "shift <kind> <value>... [exit]"
type ShiftStmt struct {
	Kind   string   `@( "bit" | "binary" | "bytes" | "byte" | "u16" | "i16" | "u32" | "i32" )`
	Values []string `@( String | Hex | Int )+`
	Exit   bool     `@"exit"?`
}

// Op names the statement for results and errors ("shift u16").
func (s *Statement) Op() string {
	switch {
	case s.Reset:
		return "reset"
	case s.State != "":
		return "state " + s.State
	case s.Instruction != "":
		return "instruction " + s.Instruction
	case s.IDCode:
		return "idcode"
	case s.Shift != nil:
		return "shift " + strings.ToLower(s.Shift.Kind)
	}
	return "empty"
}
