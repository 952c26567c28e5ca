// Package span holds the small source-position type threaded through the
// lexer, parser, IR, and bytecode span table.
package span

import "fmt"

// Span identifies a source location for error messages and the bytecode
// span table.
type Span struct {
	Line, Col int
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d", s.Line, s.Col)
}
