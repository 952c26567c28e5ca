package bc

import (
	"fmt"

	"github.com/kessler-lang/pycfg/internal/span"
)

// SpanEntry maps one byte address to the source span responsible for the
// instruction at that address. It travels with the buffer inside the
// terminal EndOfBc instruction's side table.
type SpanEntry struct {
	Addr Addr
	Span span.Span
}

// Writer appends instructions to a growing byte buffer. It is the mutable
// half of the instruction encoding; Finish converts it into an immutable
// Instructions.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty writer.
func NewWriter() *Writer {
	return &Writer{}
}

// IP returns the current write position, the address the next instruction
// will be written at.
func (w *Writer) IP() Addr { return Addr(len(w.buf)) }

func (w *Writer) emitHeader(op Opcode) Addr {
	instrStart := w.IP()
	w.buf = append(w.buf, byte(op))
	return instrStart
}

func (w *Writer) writeInt32(v int32) {
	var tmp [4]byte
	putInt32(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *Writer) writeByte(v byte) {
	w.buf = append(w.buf, v)
}

// pad finishes an instruction started at instrStart by zero-padding the
// buffer up to instrSize(op), asserting the result is word-aligned.
func (w *Writer) pad(instrStart Addr, op Opcode) {
	want := int(instrStart) + instrSize(op)
	if want < len(w.buf) {
		panic(fmt.Sprintf("bc: payload for %s overran its fixed size", op))
	}
	for len(w.buf) < want {
		w.buf = append(w.buf, 0)
	}
	if (len(w.buf)-int(instrStart))%WordAlign != 0 {
		panic(fmt.Sprintf("bc: instruction %s is not word-aligned", op))
	}
}

// --- Per-opcode emitters. Each returns the instruction's start address. ---

func (w *Writer) WriteConst(idx int32) Addr {
	start := w.emitHeader(OpConst)
	w.writeInt32(idx)
	w.pad(start, OpConst)
	return start
}

func (w *Writer) WriteLoadLocal(slot uint32) Addr {
	start := w.emitHeader(OpLoadLocal)
	w.writeInt32(int32(slot))
	w.pad(start, OpLoadLocal)
	return start
}

func (w *Writer) WriteStoreLocal(slot uint32) Addr {
	start := w.emitHeader(OpStoreLocal)
	w.writeInt32(int32(slot))
	w.pad(start, OpStoreLocal)
	return start
}

func (w *Writer) WriteLoadGlobal(id uint32) Addr {
	start := w.emitHeader(OpLoadGlobal)
	w.writeInt32(int32(id))
	w.pad(start, OpLoadGlobal)
	return start
}

func (w *Writer) WriteStoreGlobal(id uint32) Addr {
	start := w.emitHeader(OpStoreGlobal)
	w.writeInt32(int32(id))
	w.pad(start, OpStoreGlobal)
	return start
}

func (w *Writer) WriteBuildList(count uint32) Addr {
	start := w.emitHeader(OpBuildList)
	w.writeInt32(int32(count))
	w.pad(start, OpBuildList)
	return start
}

func (w *Writer) WriteBuildTuple(count uint32) Addr {
	start := w.emitHeader(OpBuildTuple)
	w.writeInt32(int32(count))
	w.pad(start, OpBuildTuple)
	return start
}

func (w *Writer) WriteBuildDict(count uint32) Addr {
	start := w.emitHeader(OpBuildDict)
	w.writeInt32(int32(count))
	w.pad(start, OpBuildDict)
	return start
}

func (w *Writer) WriteLen() Addr {
	start := w.emitHeader(OpLen)
	w.pad(start, OpLen)
	return start
}

func (w *Writer) WriteType() Addr {
	start := w.emitHeader(OpType)
	w.pad(start, OpType)
	return start
}

func (w *Writer) WriteTypeIs(typeConstIdx int32, polarity bool) Addr {
	start := w.emitHeader(OpTypeIs)
	w.writeInt32(typeConstIdx)
	if polarity {
		w.writeByte(1)
	} else {
		w.writeByte(0)
	}
	w.pad(start, OpTypeIs)
	return start
}

func (w *Writer) WritePercentSOne(prefixIdx, suffixIdx int32) Addr {
	start := w.emitHeader(OpPercentSOne)
	w.writeInt32(prefixIdx)
	w.writeInt32(suffixIdx)
	w.pad(start, OpPercentSOne)
	return start
}

func (w *Writer) WriteFormatOne(prefixIdx, suffixIdx int32) Addr {
	start := w.emitHeader(OpFormatOne)
	w.writeInt32(prefixIdx)
	w.writeInt32(suffixIdx)
	w.pad(start, OpFormatOne)
	return start
}

func (w *Writer) WriteBinOp(op BinOp) Addr {
	start := w.emitHeader(OpBinOp)
	w.writeByte(byte(op))
	w.pad(start, OpBinOp)
	return start
}

func (w *Writer) WriteNot() Addr {
	start := w.emitHeader(OpNot)
	w.pad(start, OpNot)
	return start
}

// WriteJumpIfFalse emits a forward-patchable conditional jump. The
// returned PatchAddr must be passed to Patch before Finish.
func (w *Writer) WriteJumpIfFalse() (Addr, PatchAddr) {
	start := w.emitHeader(OpJumpIfFalse)
	field := w.IP()
	w.writeInt32(ForwardSentinel)
	w.pad(start, OpJumpIfFalse)
	return start, PatchAddr{InstrStart: start, Field: field}
}

// WriteJump emits a forward-patchable unconditional jump.
func (w *Writer) WriteJump() (Addr, PatchAddr) {
	start := w.emitHeader(OpJump)
	field := w.IP()
	w.writeInt32(ForwardSentinel)
	w.pad(start, OpJump)
	return start, PatchAddr{InstrStart: start, Field: field}
}

func (w *Writer) WriteCallFrozen(calleeConstIdx int32, hasReceiver bool, argspecIdx int32) Addr {
	start := w.emitHeader(OpCallFrozen)
	w.writeInt32(calleeConstIdx)
	if hasReceiver {
		w.writeByte(1)
	} else {
		w.writeByte(0)
	}
	w.writeInt32(argspecIdx)
	w.pad(start, OpCallFrozen)
	return start
}

// WriteCallFrozenFunc emits a devirtualized call to a module-level def
// known at this point to exist: globalID identifies the def's global
// slot directly, skipping the generic LoadGlobal+Call value dispatch.
// Its payload is sized so that a later freeze-time rewrite can overwrite
// a LoadGlobal+Call pair (also 16 bytes together) in place; see
// Instructions.RewriteCallToFrozenFunc.
func (w *Writer) WriteCallFrozenFunc(globalID, argc int32) Addr {
	start := w.emitHeader(OpCallFrozenFunc)
	w.writeInt32(globalID)
	w.writeInt32(argc)
	w.pad(start, OpCallFrozenFunc)
	return start
}

func (w *Writer) WriteCallMethod(methodSymIdx, argspecIdx int32) Addr {
	start := w.emitHeader(OpCallMethod)
	w.writeInt32(methodSymIdx)
	w.writeInt32(argspecIdx)
	w.pad(start, OpCallMethod)
	return start
}

func (w *Writer) WriteCall(argspecIdx int32) Addr {
	start := w.emitHeader(OpCall)
	w.writeInt32(argspecIdx)
	w.pad(start, OpCall)
	return start
}

func (w *Writer) WriteReturn() Addr {
	start := w.emitHeader(OpReturn)
	w.pad(start, OpReturn)
	return start
}

func (w *Writer) WritePop() Addr {
	start := w.emitHeader(OpPop)
	w.pad(start, OpPop)
	return start
}

func (w *Writer) WriteIndex() Addr {
	start := w.emitHeader(OpIndex)
	w.pad(start, OpIndex)
	return start
}

func (w *Writer) WriteSetIndex() Addr {
	start := w.emitHeader(OpSetIndex)
	w.pad(start, OpSetIndex)
	return start
}

// AddrToPatch validates that PatchAddr's field still holds the forward
// sentinel and returns it unchanged; it exists as a named validation step
// matching the contract in the design (callers that computed a PatchAddr
// themselves, e.g. after a buffer copy, should re-validate through here).
func (w *Writer) AddrToPatch(p PatchAddr) PatchAddr {
	got := getInt32(w.buf[p.Field : p.Field+4])
	if got != ForwardSentinel {
		panic("bc: patch target is not a forward sentinel")
	}
	return p
}

// Patch resolves a forward jump, overwriting its target field with the
// signed byte offset from the instruction's start to the current write
// position.
func (w *Writer) Patch(p PatchAddr) {
	got := getInt32(w.buf[p.Field : p.Field+4])
	if got != ForwardSentinel {
		panic("bc: double-patch of a forward jump")
	}
	off := offsetFrom(w.IP(), p.InstrStart)
	putInt32(w.buf[p.Field:p.Field+4], off)
	if off%WordAlign != 0 {
		panic("bc: patched offset is not word-aligned")
	}
}

// PatchTo resolves p's target field to an arbitrary address, forward or
// backward, used for loop back-edges where the jump target is earlier in
// the buffer than the jump instruction itself.
func (w *Writer) PatchTo(p PatchAddr, target Addr) {
	got := getInt32(w.buf[p.Field : p.Field+4])
	if got != ForwardSentinel {
		panic("bc: double-patch of a forward jump")
	}
	off := offsetFrom(target, p.InstrStart)
	putInt32(w.buf[p.Field:p.Field+4], off)
	if off%WordAlign != 0 {
		panic("bc: patched offset is not word-aligned")
	}
}

// Finish appends the terminal EndOfBc instruction and converts the writer
// into an immutable Instructions buffer. The writer must not be used
// afterwards.
func (w *Writer) Finish(spans []SpanEntry) *Instructions {
	start := w.emitHeader(OpEndOfBc)
	w.writeInt32(int32(0)) // start-of-bc address: this buffer always starts at 0
	w.writeInt32(int32(len(spans)))
	w.pad(start, OpEndOfBc)
	return &Instructions{buf: w.buf, spans: spans}
}
