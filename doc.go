// Package pycfg embeds a small Python-syntax configuration language: parse
// source, compile it to the packed bytecode format in internal/bc, run it
// on the stack-machine evaluator in internal/eval, and project the
// resulting global bindings into plain Go values a host program can
// consume without linking against any of the internal packages.
//
// Typical use:
//
//	result, err := pycfg.Eval(src)
//	if err != nil {
//	    var se *pycfg.SyntaxError
//	    if errors.As(err, &se) {
//	        // src failed to parse or resolve before any instruction ran.
//	    }
//	}
//	port := result.Values["port"].(int64)
package pycfg
