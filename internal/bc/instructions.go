package bc

import (
	"fmt"
	"strings"
)

// Instructions is an immutable, word-aligned packed bytecode buffer plus its
// span side table. It never holds Go-heap-owned payload data inline; slot
// indices, constant indices, and jump offsets are all fixed-size plain data,
// so there is no per-opcode drop logic to run when an Instructions is
// discarded. Drop exists only to satisfy the conceptual contract (and to
// make double-drop of the shared empty singleton a detectable bug).
type Instructions struct {
	buf   []byte
	spans []SpanEntry
}

var sharedEmpty = NewWriter().Finish(nil)

// Empty returns the shared zero-instruction buffer (a single EndOfBc). It
// performs no allocation beyond the one paid at package init.
func Empty() *Instructions { return sharedEmpty }

// Drop releases the buffer and span table. Calling Drop on the shared empty
// singleton is a bug: it would corrupt every caller still holding it.
func (ins *Instructions) Drop() {
	if ins == sharedEmpty {
		panic("bc: attempted to drop the shared empty instruction buffer")
	}
	ins.buf = nil
	ins.spans = nil
}

// Len returns the size of the packed buffer in bytes, including the
// terminal EndOfBc instruction.
func (ins *Instructions) Len() int { return len(ins.buf) }

// SpanAt returns the span recorded for the instruction at addr, if any.
func (ins *Instructions) SpanAt(addr Addr) (SpanEntry, bool) {
	for _, e := range ins.spans {
		if e.Addr == addr {
			return e, true
		}
	}
	return SpanEntry{}, false
}

// OpcodeAt returns the opcode at addr.
func (ins *Instructions) OpcodeAt(addr Addr) Opcode {
	return Opcode(ins.buf[addr])
}

// Next returns the address of the instruction following the one at addr.
func (ins *Instructions) Next(addr Addr) Addr {
	return addr.Add(instrSize(ins.OpcodeAt(addr)))
}

// Int32At reads a 4-byte payload field at the given absolute address.
func (ins *Instructions) Int32At(addr Addr) int32 {
	return getInt32(ins.buf[addr : addr+4])
}

// ByteAt reads a 1-byte payload field at the given absolute address.
func (ins *Instructions) ByteAt(addr Addr) byte {
	return ins.buf[addr]
}

// String renders the buffer the way the original evaluator's Display impl
// does: one "offset: Op args;" segment per instruction, the terminal
// EndOfBc rendered as "offset: END" with no trailing separator and no
// separate entry for its own opcode name.
func (ins *Instructions) String() string {
	var b strings.Builder
	addr := Addr(0)
	for {
		op := ins.OpcodeAt(addr)
		if op == OpEndOfBc {
			fmt.Fprintf(&b, "%d: END", uint32(addr))
			break
		}
		fmt.Fprintf(&b, "%d: %s%s; ", uint32(addr), op, ins.argsString(addr, op))
		addr = addr.Add(instrSize(op))
	}
	return b.String()
}

func (ins *Instructions) argsString(addr Addr, op Opcode) string {
	p := addr.Add(1)
	switch op {
	case OpConst, OpLoadLocal, OpStoreLocal, OpLoadGlobal, OpStoreGlobal,
		OpBuildList, OpBuildTuple, OpBuildDict, OpCall:
		return fmt.Sprintf(" %d", ins.Int32At(p))
	case OpJumpIfFalse, OpJump:
		return fmt.Sprintf(" +%d", ins.Int32At(p))
	case OpTypeIs:
		return fmt.Sprintf(" %d %v", ins.Int32At(p), ins.ByteAt(p.Add(4)) != 0)
	case OpPercentSOne, OpFormatOne:
		return fmt.Sprintf(" %d %d", ins.Int32At(p), ins.Int32At(p.Add(4)))
	case OpBinOp:
		return fmt.Sprintf(" %s", BinOp(ins.ByteAt(p)))
	case OpCallFrozen:
		return fmt.Sprintf(" %d recv=%v %d", ins.Int32At(p), ins.ByteAt(p.Add(4)) != 0, ins.Int32At(p.Add(5)))
	case OpCallMethod, OpCallFrozenFunc:
		return fmt.Sprintf(" %d %d", ins.Int32At(p), ins.Int32At(p.Add(4)))
	default:
		return ""
	}
}

// RewriteCallToFrozenFunc overwrites the LoadGlobal+Call pair at addr with a
// single devirtualized CallFrozenFunc instruction, used by ir.Freeze once a
// deferred call site's callee is confirmed to be a known module-level def.
// The two instructions it replaces are exactly as wide as the one it writes
// (8 bytes each, 16 total), so no later address in the buffer shifts: every
// other jump target and call site address remains valid.
func (ins *Instructions) RewriteCallToFrozenFunc(addr Addr, globalID, argc int32) {
	if ins.OpcodeAt(addr) != OpLoadGlobal {
		panic("bc: RewriteCallToFrozenFunc: not a LoadGlobal at addr")
	}
	next := ins.Next(addr)
	if ins.OpcodeAt(next) != OpCall {
		panic("bc: RewriteCallToFrozenFunc: LoadGlobal not followed by Call")
	}
	if instrSize(OpLoadGlobal)+instrSize(OpCall) != instrSize(OpCallFrozenFunc) {
		panic("bc: RewriteCallToFrozenFunc: size mismatch between replaced and replacement instructions")
	}
	window := ins.buf[addr : addr+Addr(instrSize(OpCallFrozenFunc))]
	for i := range window {
		window[i] = 0
	}
	window[0] = byte(OpCallFrozenFunc)
	putInt32(window[1:5], globalID)
	putInt32(window[5:9], argc)
}
