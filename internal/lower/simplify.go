package lower

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/tetratelabs/legalize/internal/isa"
	"github.com/tetratelabs/legalize/internal/ssa"
)

// simplify folds constant operands into immediate forms when every target can encode them.
// Each instruction is visited once and rewritten at most once, so the pass always terminates.
// The rewritten instruction keeps its result Value, and the Iconst stays in place.
func simplify(ctx context.Context, b ssa.Builder, targets isa.Targets) {
	tr := tlog.SpanFromContext(ctx).V("simplify")

	for blk := b.BlockIteratorBegin(); blk != nil; blk = b.BlockIteratorNext() {
		for cur := blk.Root(); cur != nil; cur = cur.Next() {
			var folded bool
			switch cur.Opcode() {
			case ssa.OpcodeIadd:
				folded = simplifyIadd(b, targets, cur)
			case ssa.OpcodeIsub:
				folded = simplifyIsub(b, targets, cur)
			case ssa.OpcodeIcmp:
				folded = simplifyIcmp(b, targets, cur)
			}

			if folded {
				tr.Printw("folded immediate", "blk", blk.Name(), "instr", cur.Format(b))
			}
		}
	}
}

func simplifyIadd(b ssa.Builder, targets isa.Targets, instr *ssa.Instruction) bool {
	x, y := instr.BinaryData()
	if !x.Type().IsInt() {
		return false
	}

	if c, ok := iconstValue(b, y); ok && immLegal(targets, isa.OpIaddImm, x, c, 0) {
		instr.Rewrite().AsIaddImm(x, c)
		return true
	}
	if c, ok := iconstValue(b, x); ok && immLegal(targets, isa.OpIaddImm, y, c, 0) {
		instr.Rewrite().AsIaddImm(y, c)
		return true
	}
	return false
}

// simplifyIsub turns `Isub x, c` into `IaddImm x, -c`. The negation wraps at the operand
// width, so negating the minimum value gives itself.
func simplifyIsub(b ssa.Builder, targets isa.Targets, instr *ssa.Instruction) bool {
	x, y := instr.BinaryData()
	if !x.Type().IsInt() {
		return false
	}

	c, ok := iconstValue(b, y)
	if !ok {
		return false
	}

	neg := ssa.SignExtend(-uint64(c), x.Type().Bits())
	if !immLegal(targets, isa.OpIaddImm, x, neg, 0) {
		return false
	}
	instr.Rewrite().AsIaddImm(x, neg)
	return true
}

// simplifyIcmp folds the constant of an Icmp whose result is immediately converted by Bint.
// The Bint keeps referring to the same Value.
func simplifyIcmp(b ssa.Builder, targets isa.Targets, instr *ssa.Instruction) bool {
	next := instr.Next()
	if next == nil || next.Opcode() != ssa.OpcodeBint || next.UnaryData() != instr.Return() {
		return false
	}

	x, y, cond := instr.IcmpData()
	if !x.Type().IsInt() {
		return false
	}

	if c, ok := iconstValue(b, y); ok && immLegal(targets, isa.OpIcmpImm, x, c, cond) {
		instr.Rewrite().AsIcmpImm(x, c, cond)
		return true
	}
	if c, ok := iconstValue(b, x); ok && immLegal(targets, isa.OpIcmpImm, y, c, cond.Swap()) {
		instr.Rewrite().AsIcmpImm(y, c, cond.Swap())
		return true
	}
	return false
}

// iconstValue returns the constant v is defined with, sign-extended from its width.
func iconstValue(b ssa.Builder, v ssa.Value) (int64, bool) {
	def := b.ValueDefinition(v)
	if def == nil || def.Opcode() != ssa.OpcodeIconst {
		return 0, false
	}
	return def.SignedConstantVal(), true
}

func immLegal(targets isa.Targets, op isa.OpClass, x ssa.Value, imm int64, cond ssa.IntegerCmpCond) bool {
	q := isa.ImmQuery{Op: op, Bits: x.Type().Bits(), Imm: imm}
	if op == isa.OpIcmpImm {
		q.Cond = isaCond(cond)
	}
	return targets.ImmLegal(q)
}

func isaCond(c ssa.IntegerCmpCond) isa.Cond {
	switch c {
	case ssa.IntegerCmpCondEqual:
		return isa.CondEq
	case ssa.IntegerCmpCondNotEqual:
		return isa.CondNe
	case ssa.IntegerCmpCondSignedLessThan:
		return isa.CondSignedLess
	case ssa.IntegerCmpCondSignedGreaterThanOrEqual:
		return isa.CondSignedGreaterOrEqual
	case ssa.IntegerCmpCondSignedGreaterThan:
		return isa.CondSignedGreater
	case ssa.IntegerCmpCondSignedLessThanOrEqual:
		return isa.CondSignedLessOrEqual
	case ssa.IntegerCmpCondUnsignedLessThan:
		return isa.CondUnsignedLess
	case ssa.IntegerCmpCondUnsignedGreaterThanOrEqual:
		return isa.CondUnsignedGreaterOrEqual
	case ssa.IntegerCmpCondUnsignedGreaterThan:
		return isa.CondUnsignedGreater
	case ssa.IntegerCmpCondUnsignedLessThanOrEqual:
		return isa.CondUnsignedLessOrEqual
	}
	panic("BUG: invalid integer comparison condition")
}
