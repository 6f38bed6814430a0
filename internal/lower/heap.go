package lower

import (
	"context"
	"math"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/tetratelabs/legalize/internal/isa"
	"github.com/tetratelabs/legalize/internal/legalizeapi"
	"github.com/tetratelabs/legalize/internal/ssa"
)

// heapLowering expands every OpcodeHeapAddr into an explicit bounds check.
//
// Before:
//
//	blk0: ...; v2 = HeapAddr heap0, v1, off, size; rest...
//
// After:
//
//	blk0: ...; <check>; Brnz ok, blk1; Jump blk2
//	blk1: base = <heap base>; v2 = Iadd base, idx; rest...
//	blk2: Trap heap_oob
type heapLowering struct {
	b       ssa.Builder
	targets isa.Targets
	spectre bool

	// ptrBits is resolved at the first heap access.
	ptrBits byte
	ptrType ssa.Type
}

// cursor tells where new instructions go: appended to blk when anchor is nil,
// right before anchor otherwise.
type cursor struct {
	blk    ssa.BasicBlock
	anchor *ssa.Instruction
}

func (h *heapLowering) insert(c cursor, instr *ssa.Instruction) ssa.Value {
	if c.anchor == nil {
		h.b.SetCurrentBlock(c.blk)
		h.b.InsertInstruction(instr)
	} else {
		h.b.InsertInstructionBefore(c.blk, instr, c.anchor)
	}
	return instr.Return()
}

// boundCheck is the comparison `lhs <= limit` guarding an access.
type boundCheck struct {
	lhs ssa.Value

	// imm is the limit when it is encoded in IcmpImm, otherwise limit holds it.
	imm    int64
	useImm bool
	limit  ssa.Value
}

func lowerHeapAccesses(ctx context.Context, b ssa.Builder, targets isa.Targets, spectre bool) error {
	tr := tlog.SpanFromContext(ctx).V("heap")

	h := &heapLowering{b: b, targets: targets, spectre: spectre}

	// The iterator visits the continuation blocks as well since they are laid out right
	// after the block being split, so several accesses in one block are all lowered.
	for blk := b.BlockIteratorBegin(); blk != nil; blk = b.BlockIteratorNext() {
		for cur := blk.Root(); cur != nil; cur = cur.Next() {
			if cur.Opcode() != ssa.OpcodeHeapAddr {
				continue
			}

			heap, _, _, _ := cur.HeapAddrData()
			if h.ptrBits == 0 {
				// Functions without heap accesses may be compiled for targets of any pointer width.
				bits, err := targets.PointerBits()
				if err != nil {
					return errors.Wrap(err, "%s: %s", blk.Name(), heap)
				}
				h.ptrBits, h.ptrType = bits, ssa.IntType(bits)
			}

			if err := h.lower(blk, cur); err != nil {
				return errors.Wrap(err, "%s: %s", blk.Name(), heap)
			}

			tr.Printw("lowered heap access", "blk", blk.Name(), "heap", heap, "addr", cur.Return().Format(b))
			// The rest of the block was moved to the continuation, which is visited next.
			break
		}
	}
	return nil
}

func (h *heapLowering) lower(blk ssa.BasicBlock, heapAddr *ssa.Instruction) error {
	b := h.b
	heap, index, offset, size := heapAddr.HeapAddrData()

	hd, ok := b.HeapData(heap)
	if !ok {
		return errors.New("undeclared heap")
	}
	if index.Type() != hd.IndexType {
		return errors.New("index is %s, heap index type is %s", index.Type(), hd.IndexType)
	}
	idxBits := index.Type().Bits()
	if idxBits > h.ptrBits {
		return errors.New("index type %s is wider than the %d-bit pointer", index.Type(), h.ptrBits)
	}
	if rt := heapAddr.Return().Type(); rt != h.ptrType {
		return errors.New("address type %s does not match the %d-bit pointer", rt, h.ptrBits)
	}

	cont := b.SplitBlockAfter(blk, heapAddr)
	b.RemoveInstruction(blk, heapAddr)

	check := cursor{blk: blk}
	body := cursor{blk: cont, anchor: cont.Root()}

	idx := index
	if idxBits < h.ptrBits {
		idx = h.insert(check, b.AllocateInstruction().AsUExtend(index, idxBits, h.ptrBits))
	}

	end := uint64(offset) + uint64(size)

	var chk boundCheck
	var guarded bool
	switch hd.Style {
	case ssa.HeapStyleStatic:
		switch {
		case end > hd.Bound:
			// Every index is out of bounds.
			trap := h.trapBlock(cont)
			b.SetCurrentBlock(blk)
			b.InsertInstruction(b.AllocateInstruction().AsJump(nil, trap))
		case idxBits == 32 && math.MaxUint32+end <= satAdd(hd.Bound, hd.OffsetGuard):
			// The largest index still lands in the bound or the guard region.
			b.SetCurrentBlock(blk)
			b.InsertInstruction(b.AllocateInstruction().AsJump(nil, cont))
		default:
			limit := hd.Bound
			if end > hd.OffsetGuard {
				limit -= end
			}
			chk = h.staticCheck(check, idx, limit)
			guarded = true
		}
	case ssa.HeapStyleDynamic:
		bound, err := h.globalValue(check, hd.BoundGV)
		if err != nil {
			return errors.Wrap(err, "bound")
		}
		if bound.Type() != h.ptrType {
			return errors.New("bound %s is %s, want %s", hd.BoundGV, bound.Type(), h.ptrType)
		}

		chk = boundCheck{lhs: idx, limit: bound}
		if end > hd.OffsetGuard {
			chk.lhs = h.accessEnd(check, idx, idxBits, end)
		}
		guarded = true
	}

	if guarded {
		cond := h.compare(check, chk)
		b.InsertCondBranch(blk, cond, cont, h.trapBlock(cont))
	}

	base, err := h.globalValue(body, hd.Base)
	if err != nil {
		return errors.Wrap(err, "base")
	}

	if !guarded || !h.spectre {
		addr := h.address(body, heapAddr, base, idx, offset)
		h.insert(body, addr)
		return nil
	}

	addr := h.address(body, b.AllocateInstruction(), base, idx, offset)
	addrVal := h.insert(body, addr)
	cond := h.compare(body, chk)
	zero := h.insert(body, b.AllocateInstruction().AsIconst(h.ptrType, 0))
	h.insert(body, heapAddr.Rewrite().AsSelectSpectreGuard(cond, addrVal, zero))
	return nil
}

// trapBlock allocates the block right after cont which the failed checks branch to.
func (h *heapLowering) trapBlock(cont ssa.BasicBlock) ssa.BasicBlock {
	trap := h.b.AllocateBasicBlockAfter(cont)
	h.b.SetCurrentBlock(trap)
	h.b.InsertInstruction(h.b.AllocateInstruction().AsTrap(legalizeapi.TrapCodeHeapOutOfBounds))
	return trap
}

// address initializes instr as the last instruction computing base + idx + offset.
// The instructions before it are inserted at c.
func (h *heapLowering) address(c cursor, instr *ssa.Instruction, base, idx ssa.Value, offset uint32) *ssa.Instruction {
	if offset == 0 {
		return instr.Rewrite().AsIadd(base, idx)
	}

	sum := h.insert(c, h.b.AllocateInstruction().AsIadd(base, idx))
	if h.targets.ImmLegal(isa.ImmQuery{Op: isa.OpIaddImm, Bits: h.ptrBits, Imm: int64(offset)}) {
		return instr.Rewrite().AsIaddImm(sum, int64(offset))
	}
	off := h.insert(c, h.b.AllocateInstruction().AsIconst(h.ptrType, uint64(offset)))
	return instr.Rewrite().AsIadd(sum, off)
}

func (h *heapLowering) staticCheck(c cursor, idx ssa.Value, limit uint64) boundCheck {
	imm := ssa.SignExtend(limit, h.ptrBits)
	q := isa.ImmQuery{Op: isa.OpIcmpImm, Bits: h.ptrBits, Imm: imm, Cond: isa.CondUnsignedLessOrEqual}
	if h.targets.ImmLegal(q) {
		return boundCheck{lhs: idx, imm: imm, useImm: true}
	}

	lim := h.insert(c, h.b.AllocateInstruction().AsIconst(h.ptrType, limit))
	return boundCheck{lhs: idx, limit: lim}
}

// accessEnd returns idx + end, trapping when it overflows the pointer.
func (h *heapLowering) accessEnd(c cursor, idx ssa.Value, idxBits byte, end uint64) ssa.Value {
	b := h.b

	// A zero-extended 32-bit index plus a 33-bit end never wraps 64 bits.
	if idxBits == 32 && h.ptrBits == 64 {
		if h.targets.ImmLegal(isa.ImmQuery{Op: isa.OpIaddImm, Bits: 64, Imm: int64(end)}) {
			return h.insert(c, b.AllocateInstruction().AsIaddImm(idx, int64(end)))
		}
		e := h.insert(c, b.AllocateInstruction().AsIconst(h.ptrType, end))
		return h.insert(c, b.AllocateInstruction().AsIadd(idx, e))
	}

	e := h.insert(c, b.AllocateInstruction().AsIconst(h.ptrType, end))
	return h.insert(c, b.AllocateInstruction().AsUaddOverflowTrap(idx, e, legalizeapi.TrapCodeHeapOutOfBounds))
}

func (h *heapLowering) compare(c cursor, chk boundCheck) ssa.Value {
	if chk.useImm {
		return h.insert(c, h.b.AllocateInstruction().AsIcmpImm(chk.lhs, chk.imm, ssa.IntegerCmpCondUnsignedLessThanOrEqual))
	}
	return h.insert(c, h.b.AllocateInstruction().AsIcmp(chk.lhs, chk.limit, ssa.IntegerCmpCondUnsignedLessThanOrEqual))
}

// globalValue materializes gv at c. Loads are emitted every time, so a bound which may
// change between two accesses is read again for each of them.
func (h *heapLowering) globalValue(c cursor, gv ssa.GlobalValue) (ssa.Value, error) {
	b := h.b
	d, ok := b.GlobalValueData(gv)
	if !ok {
		return ssa.ValueInvalid, errors.New("undeclared %s", gv)
	}

	switch d.Kind {
	case ssa.GlobalValueKindVMContext:
		vmctx := b.VMContext()
		if !vmctx.Valid() {
			return ssa.ValueInvalid, errors.New("%s: no vmctx parameter", gv)
		}
		return vmctx, nil
	case ssa.GlobalValueKindLoad, ssa.GlobalValueKindIaddImm:
	default:
		return ssa.ValueInvalid, errors.New("%s: unknown kind %d", gv, d.Kind)
	}

	if d.Base >= gv {
		return ssa.ValueInvalid, errors.New("%s is based on %s declared after it", gv, d.Base)
	}
	base, err := h.globalValue(c, d.Base)
	if err != nil {
		return ssa.ValueInvalid, errors.Wrap(err, "%s", gv)
	}

	if d.Kind == ssa.GlobalValueKindLoad {
		if d.Offset < math.MinInt32 || d.Offset > math.MaxInt32 {
			return ssa.ValueInvalid, errors.New("%s: offset %#x does not fit a load", gv, d.Offset)
		}
		return h.insert(c, b.AllocateInstruction().AsLoad(base, uint32(d.Offset), d.Type)), nil
	}

	if h.targets.ImmLegal(isa.ImmQuery{Op: isa.OpIaddImm, Bits: base.Type().Bits(), Imm: d.Offset}) {
		return h.insert(c, b.AllocateInstruction().AsIaddImm(base, d.Offset)), nil
	}
	off := h.insert(c, b.AllocateInstruction().AsIconst(base.Type(), uint64(d.Offset)))
	return h.insert(c, b.AllocateInstruction().AsIadd(base, off)), nil
}

// satAdd returns a + b, or MaxUint64 if it overflows.
func satAdd(a, b uint64) uint64 {
	if s := a + b; s >= a {
		return s
	}
	return math.MaxUint64
}
