package ssa

// SplitBlockAfter implements Builder.SplitBlockAfter.
//
// Before:
//
//	blk: a; instr; c; d; Jump succ
//
// After:
//
//	blk:  a; instr
//	tail: c; d; Jump succ
//
// The predecessor entries of every successor now refer to the tail block.
func (b *builder) SplitBlockAfter(raw BasicBlock, instr *Instruction) BasicBlock {
	blk := raw.(*basicBlock)
	if instr.next == nil {
		panic("BUG: splitting after the tail of " + blk.Name())
	}
	return b.splitAt(blk, instr.next)
}

// SplitBlockBefore implements Builder.SplitBlockBefore.
func (b *builder) SplitBlockBefore(raw BasicBlock, instr *Instruction) BasicBlock {
	return b.splitAt(raw.(*basicBlock), instr)
}

// splitAt moves first and everything after it into a new block laid out after blk.
func (b *builder) splitAt(blk *basicBlock, first *Instruction) BasicBlock {
	tail := b.AllocateBasicBlockAfter(blk).(*basicBlock)

	last := first.prev
	if last != nil {
		last.next = nil
	} else {
		blk.rootInstr = nil
	}
	first.prev = nil
	tail.rootInstr, tail.currentInstr = first, blk.currentInstr
	blk.currentInstr = last

	// All the branches are at the end of a block, so every outgoing edge moves.
	for cur := first; cur != nil; cur = cur.next {
		if !cur.IsBranching() {
			continue
		}
		target := cur.blk.(*basicBlock)
		for i := range target.preds {
			pred := &target.preds[i]
			if pred.branch == cur {
				pred.blk = tail
			}
		}
	}
	tail.success, blk.success = blk.success, nil
	return tail
}

// InsertCondBranch implements Builder.InsertCondBranch.
func (b *builder) InsertCondBranch(raw BasicBlock, cond Value, taken, fallthru BasicBlock) {
	blk := raw.(*basicBlock)
	if tail := blk.currentInstr; tail != nil && tail.IsTerminator() {
		panic("BUG: " + blk.Name() + " is already terminated")
	}

	brnz := b.AllocateInstruction()
	brnz.AsBrnz(cond, nil, taken)
	blk.insertInstruction(brnz)

	jmp := b.AllocateInstruction()
	jmp.AsJump(nil, fallthru)
	blk.insertInstruction(jmp)
}
