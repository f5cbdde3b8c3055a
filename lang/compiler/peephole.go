package compiler

import "encoding/binary"

// RunPeephole scans bb's finalised instruction stream and applies the two
// rewrites spec.md §4.4 describes:
//
//  1. LOAD_I32_CONST Rt, k ; MOVE Rd, Rt collapses to LOAD_I32_CONST Rd, k,
//     provided no branch can land on the MOVE (nothing ever observes Rt's
//     intermediate value in that case).
//  2. MOVE Rx, Rx is removed outright, provided no branch targets it.
//
// Both rewrites consult the jump-target set computed from the stream before
// any rewriting starts, and refuse to touch an instruction a branch might
// land on -- the latent bug spec.md §9 flags in the original peephole pass,
// which rewrote blindly without checking where jumps pointed. Deleting
// bytes shifts every instruction that follows, so every surviving jump's
// offset is recomputed from the target's new address rather than carried
// over untouched, even when neither the jump nor its target was rewritten.
func RunPeephole(bb *BytecodeBuffer) {
	bb.applyRewrite(collapseLoadMove)
	bb.applyRewrite(removeSelfMoves)
}

type insnView struct {
	addr int
	op   Opcode
	w    int
}

func decode(bb *BytecodeBuffer) []insnView {
	var insns []insnView
	for at := 0; at < len(bb.Code); {
		op := Opcode(bb.Code[at])
		w := op.fixedWidth()
		insns = append(insns, insnView{addr: at, op: op, w: w})
		at += w
	}
	return insns
}

// jumpOffsetField returns the byte range of op's trailing 16-bit relative
// offset, for the jump-family opcodes (every jump carries its offset in its
// final two bytes, per bytecode.go's EmitJump/EmitJumpN/EmitLoop).
func jumpOffsetField(iv insnView) (lo, hi int) { return iv.addr + iv.w - 2, iv.addr + iv.w }

func jumpTarget(bb *BytecodeBuffer, iv insnView) int {
	lo, hi := jumpOffsetField(iv)
	off := int(int16(binary.BigEndian.Uint16(bb.Code[lo:hi])))
	return iv.addr + iv.w + off
}

func jumpTargetSet(bb *BytecodeBuffer, insns []insnView) map[int]bool {
	targets := make(map[int]bool)
	for _, iv := range insns {
		if iv.op.IsJump() {
			targets[jumpTarget(bb, iv)] = true
		}
	}
	return targets
}

// rewriteFn inspects the instruction at insns[i] (and, if it wants, the
// ones following) and either leaves it alone (consumed=1, repl=nil), drops
// it (consumed=1, repl=[]byte{}), or folds it together with successors into
// a replacement (consumed=N, repl=<its raw bytes>).
type rewriteFn func(bb *BytecodeBuffer, insns []insnView, i int, targets map[int]bool) (consumed int, repl []byte)

// pendingJump records a jump instruction's position in the new stream
// (by the address of its opcode byte) together with the original address
// its offset pointed at, so the offset can be recomputed once every
// surviving instruction's new address is known.
type pendingJump struct {
	newAt   int // new address of the jump instruction itself
	width   int
	oldTarget int
}

func (bb *BytecodeBuffer) applyRewrite(fn rewriteFn) {
	insns := decode(bb)
	targets := jumpTargetSet(bb, insns)

	oldToNew := make(map[int]int, len(insns)+1)
	var newCode []byte
	var newLines, newCols []int32
	var jumps []pendingJump

	i := 0
	for i < len(insns) {
		consumed, repl := fn(bb, insns, i, targets)
		if consumed <= 0 {
			consumed = 1
		}
		start := insns[i].addr
		newAt := len(newCode)
		oldToNew[start] = newAt

		if repl != nil {
			newCode = append(newCode, repl...)
			for range repl {
				newLines = append(newLines, bb.Lines[start])
				newCols = append(newCols, bb.Columns[start])
			}
			if len(repl) > 0 && Opcode(repl[0]).IsJump() {
				jumps = append(jumps, pendingJump{newAt: newAt, width: len(repl), oldTarget: jumpTarget(bb, insns[i])})
			}
		} else {
			for k := 0; k < consumed; k++ {
				iv := insns[i+k]
				curNew := len(newCode)
				newCode = append(newCode, bb.Code[iv.addr:iv.addr+iv.w]...)
				newLines = append(newLines, bb.Lines[iv.addr:iv.addr+iv.w]...)
				newCols = append(newCols, bb.Columns[iv.addr:iv.addr+iv.w]...)
				oldToNew[iv.addr] = curNew
				if iv.op.IsJump() {
					jumps = append(jumps, pendingJump{newAt: curNew, width: iv.w, oldTarget: jumpTarget(bb, iv)})
				}
			}
		}
		i += consumed
	}
	// Sentinel so a jump whose original target was the one-past-the-end
	// address (falling off the function) still resolves.
	oldToNew[len(bb.Code)] = len(newCode)

	for _, j := range jumps {
		newTarget, ok := oldToNew[j.oldTarget]
		if !ok {
			// Target fell inside a dropped/collapsed instruction's footprint,
			// which can't happen: both rewrites refuse to touch a jump target.
			newTarget = j.oldTarget
		}
		from := j.newAt + j.width
		rel := newTarget - from
		lo, hi := j.newAt+j.width-2, j.newAt+j.width
		binary.BigEndian.PutUint16(newCode[lo:hi], uint16(int16(rel)))
	}

	bb.Code, bb.Lines, bb.Columns = newCode, newLines, newCols
}

// collapseLoadMove merges a LOAD_I32_CONST immediately followed by a MOVE
// that consumes its result, when the MOVE is not itself a branch target
// (so nothing could ever observe the load's temp register between the two
// instructions) and the MOVE reads exactly that register.
func collapseLoadMove(bb *BytecodeBuffer, insns []insnView, i int, targets map[int]bool) (int, []byte) {
	iv := insns[i]
	if iv.op != OpLoadI32Const || i+1 >= len(insns) {
		return 1, nil
	}
	next := insns[i+1]
	if next.op != OpMove || targets[next.addr] {
		return 1, nil
	}
	rt := bb.Code[iv.addr+1]
	rd := bb.Code[next.addr+1]
	rs := bb.Code[next.addr+2]
	if rs != rt {
		return 1, nil
	}
	return 2, []byte{byte(OpLoadI32Const), rd, bb.Code[iv.addr+2], bb.Code[iv.addr+3]}
}

// removeSelfMoves drops a MOVE Rx, Rx instruction outright, unless some
// branch lands exactly on it.
func removeSelfMoves(bb *BytecodeBuffer, insns []insnView, i int, targets map[int]bool) (int, []byte) {
	iv := insns[i]
	if iv.op != OpMove || targets[iv.addr] {
		return 1, nil
	}
	if bb.Code[iv.addr+1] != bb.Code[iv.addr+2] {
		return 1, nil
	}
	return 1, []byte{}
}
