package script

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// ScriptLexer tokenizes scan scripts. Keywords are plain identifiers matched
// case-insensitively by the parser.
var ScriptLexer = lexer.MustSimple([]lexer.SimpleRule{
	// Shell style comments
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Whitespace", Pattern: `[\s]+`},

	// Digit strings for binary shifts ("10x11")
	{Name: "String", Pattern: `"[^"\n]*"`},

	// Numbers
	{Name: "Hex", Pattern: `0[xX][0-9A-Fa-f]+`},
	{Name: "Int", Pattern: `-?[0-9]+`},

	// State names may use '-' or '_' as separators ("shift-dr", "dr_shift")
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_\-]*`},

	{Name: "Semicolon", Pattern: `;`},
})
