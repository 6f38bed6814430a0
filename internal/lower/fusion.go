package lower

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/tetratelabs/legalize/internal/isa"
	"github.com/tetratelabs/legalize/internal/ssa"
)

// fusion rewrites `IaddPairwise (widen low X), (widen high Y)`.
//
// When X == Y, both widens agree on the signedness and every target has a native
// instruction for it, the add becomes `SwidenPairwiseAdd X` or `UwidenPairwiseAdd X`.
// Otherwise each widen becomes an explicit lane extend feeding the plain IaddPairwise.
type fusion struct {
	b       ssa.Builder
	targets isa.Targets

	// uses counts the operand references of each Value in the function.
	uses map[ssa.ValueID]int
	// owner is the block of each instruction.
	owner map[*ssa.Instruction]ssa.BasicBlock
}

func fuseWidenPairwise(ctx context.Context, b ssa.Builder, targets isa.Targets) {
	tr := tlog.SpanFromContext(ctx).V("fusion")

	f := &fusion{
		b:       b,
		targets: targets,
		uses:    make(map[ssa.ValueID]int),
		owner:   make(map[*ssa.Instruction]ssa.BasicBlock),
	}
	f.countUses()

	for blk := b.BlockIteratorBegin(); blk != nil; blk = b.BlockIteratorNext() {
		for cur := blk.Root(); cur != nil; cur = cur.Next() {
			if cur.Opcode() != ssa.OpcodeIaddPairwise {
				continue
			}

			switch f.rewrite(cur) {
			case fusionFused:
				tr.Printw("fused widen pairwise add", "blk", blk.Name(), "instr", cur.Format(b))
			case fusionExtended:
				tr.Printw("extended widen pairwise add", "blk", blk.Name(), "instr", cur.Format(b))
			}
		}
	}
}

type fusionResult byte

const (
	fusionNoMatch fusionResult = iota
	fusionFused
	fusionExtended
)

func (f *fusion) rewrite(add *ssa.Instruction) fusionResult {
	a, b := add.Arg2()
	low, high := f.widenDef(a), f.widenDef(b)
	if low == nil || high == nil {
		return fusionNoMatch
	}

	x, lowSigned, lowHalf := low.WidenData()
	y, highSigned, highHalf := high.WidenData()
	if lowHalf != ssa.VecHalfLow || highHalf != ssa.VecHalfHigh {
		return fusionNoMatch
	}

	q := isa.PairwiseQuery{LaneBits: x.Type().LaneBits(), Signed: lowSigned}
	if x == y && lowSigned == highSigned && f.targets.PairwiseFused(q) {
		add.Rewrite().AsWidenPairwiseAdd(x, lowSigned)
		f.release(low)
		f.release(high)
		return fusionFused
	}

	low.Rewrite().AsVExtend(x, lowSigned, ssa.VecHalfLow)
	high.Rewrite().AsVExtend(y, highSigned, ssa.VecHalfHigh)
	return fusionExtended
}

func (f *fusion) widenDef(v ssa.Value) *ssa.Instruction {
	def := f.b.ValueDefinition(v)
	if def == nil {
		return nil
	}
	switch def.Opcode() {
	case ssa.OpcodeSwidenLow, ssa.OpcodeSwidenHigh, ssa.OpcodeUwidenLow, ssa.OpcodeUwidenHigh:
		return def
	}
	return nil
}

// release drops the use of widen by the fused add, and removes widen once nothing uses it.
func (f *fusion) release(widen *ssa.Instruction) {
	id := widen.Return().ID()
	f.uses[id]--
	if f.uses[id] > 0 {
		return
	}

	blk, ok := f.owner[widen]
	if !ok {
		return
	}
	x := widen.Arg()
	f.b.RemoveInstruction(blk, widen)
	delete(f.owner, widen)
	f.uses[x.ID()]--
}

func (f *fusion) countUses() {
	for blk := f.b.BlockIteratorBegin(); blk != nil; blk = f.b.BlockIteratorNext() {
		for cur := blk.Root(); cur != nil; cur = cur.Next() {
			f.owner[cur] = blk

			v1, v2, v3, vs := cur.Args()
			for _, v := range [...]ssa.Value{v1, v2, v3} {
				if v.Valid() {
					f.uses[v.ID()]++
				}
			}
			for _, v := range vs {
				f.uses[v.ID()]++
			}
		}
	}
}
