package pycfg

import "fmt"

// SyntaxError is returned when source fails to lex, parse, resolve, or
// compile, i.e. any failure that happens before a single instruction runs.
// Err is the underlying error; Unwrap exposes it so callers can use
// errors.Is/errors.As through to it instead of matching on Msg text.
type SyntaxError struct {
	Msg string
	Err error
}

func (e *SyntaxError) Error() string { return fmt.Sprintf("syntax error: %s", e.Msg) }
func (e *SyntaxError) Unwrap() error { return e.Err }

// RuntimeError is returned when compiled bytecode fails during execution:
// type errors, division by zero, unhashable keys, unbound names, and the
// like. It is also returned when a result cannot be converted to host
// values (for example a dict with a non-string key). It wraps the
// lower-level error without exposing internal packages to callers; Unwrap
// returns that wrapped error.
type RuntimeError struct {
	Msg string
	Err error
}

func (e *RuntimeError) Error() string { return fmt.Sprintf("runtime error: %s", e.Msg) }
func (e *RuntimeError) Unwrap() error { return e.Err }
