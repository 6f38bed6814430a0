// Package testcases builds the functions shared by the tests of the passes, the golden
// fixtures and the command line tool.
package testcases

import (
	"fmt"

	"github.com/tetratelabs/legalize/internal/ssa"
)

// TestCase is a named function built into an ssa.Builder.
type TestCase struct {
	Name  string
	Build func(b ssa.Builder)
}

var (
	IaddImm = TestCase{Name: "iadd_imm", Build: func(b ssa.Builder) {
		binaryConst(b, "iadd_imm", ssa.TypeI32, 2, (*ssa.Instruction).AsIadd, false)
	}}
	IaddImmConstFirst = TestCase{Name: "iadd_imm_const_first", Build: func(b ssa.Builder) {
		binaryConst(b, "iadd_imm_const_first", ssa.TypeI32, 2, (*ssa.Instruction).AsIadd, true)
	}}
	IsubImm = TestCase{Name: "isub_imm", Build: func(b ssa.Builder) {
		binaryConst(b, "isub_imm", ssa.TypeI32, 2, (*ssa.Instruction).AsIsub, false)
	}}
	IsubImmMin = TestCase{Name: "isub_imm_min", Build: func(b ssa.Builder) {
		binaryConst(b, "isub_imm_min", ssa.TypeI32, 0x80000000, (*ssa.Instruction).AsIsub, false)
	}}
	IaddImm64 = TestCase{Name: "iadd_imm64", Build: func(b ssa.Builder) {
		binaryConst(b, "iadd_imm64", ssa.TypeI64, 2, (*ssa.Instruction).AsIadd, false)
	}}
	IcmpImm = TestCase{Name: "icmp_imm", Build: func(b ssa.Builder) {
		icmpBint(b, "icmp_imm", ssa.IntegerCmpCondSignedLessThan, false)
	}}
	IcmpImmConstFirst = TestCase{Name: "icmp_imm_const_first", Build: func(b ssa.Builder) {
		icmpBint(b, "icmp_imm_const_first", ssa.IntegerCmpCondSignedLessThan, true)
	}}
	WidenPairwiseSame = TestCase{Name: "widen_pairwise_same", Build: func(b ssa.Builder) {
		widenPairwise(b, "widen_pairwise_same", false, false, true)
	}}
	WidenPairwiseDifferent = TestCase{Name: "widen_pairwise_different", Build: func(b ssa.Builder) {
		widenPairwise(b, "widen_pairwise_different", true, true, false)
	}}
	WidenPairwiseMixedSign = TestCase{Name: "widen_pairwise_mixed_sign", Build: func(b ssa.Builder) {
		widenPairwise(b, "widen_pairwise_mixed_sign", true, false, true)
	}}
)

// All returns every test case, with the heap accesses built for a 64KiB static heap.
func All() []TestCase {
	return []TestCase{
		IaddImm, IaddImmConstFirst, IsubImm, IsubImmMin, IaddImm64,
		IcmpImm, IcmpImmConstFirst,
		HeapAddr(StaticHeap64K, 0, 0),
		HeapAddr(HeapConfig{Dynamic: true, IndexType: ssa.TypeI32}, 0, 4),
		HeapAddrTwice(HeapConfig{Dynamic: true, IndexType: ssa.TypeI32}),
		WidenPairwiseSame, WidenPairwiseDifferent, WidenPairwiseMixedSign,
	}
}

// Lookup returns the case from All with the given name.
func Lookup(name string) (TestCase, bool) {
	for _, tc := range All() {
		if tc.Name == name {
			return tc, true
		}
	}
	return TestCase{}, false
}

// binaryConst builds `f(x) = x op c`, or `c op x` if constFirst.
func binaryConst(b ssa.Builder, name string, typ ssa.Type, c uint64,
	as func(i *ssa.Instruction, x, y ssa.Value) *ssa.Instruction, constFirst bool,
) {
	b.Init(&ssa.Signature{Name: name, Params: []ssa.Type{typ}, Results: []ssa.Type{typ}})
	entry := b.AllocateBasicBlock()
	x := entry.AddParam(b, typ)
	b.SetCurrentBlock(entry)

	iconst := b.AllocateInstruction().AsIconst(typ, c)
	b.InsertInstruction(iconst)

	op := b.AllocateInstruction()
	if constFirst {
		as(op, iconst.Return(), x)
	} else {
		as(op, x, iconst.Return())
	}
	b.InsertInstruction(op)
	b.InsertInstruction(b.AllocateInstruction().AsReturn([]ssa.Value{op.Return()}))
}

// icmpBint builds `f(x) = bint(x cond 2)`, or `bint(2 cond x)` if constFirst.
func icmpBint(b ssa.Builder, name string, cond ssa.IntegerCmpCond, constFirst bool) {
	b.Init(&ssa.Signature{Name: name, Params: []ssa.Type{ssa.TypeI32}, Results: []ssa.Type{ssa.TypeI32}})
	entry := b.AllocateBasicBlock()
	x := entry.AddParam(b, ssa.TypeI32)
	b.SetCurrentBlock(entry)

	iconst := b.AllocateInstruction().AsIconst32(2)
	b.InsertInstruction(iconst)

	icmp := b.AllocateInstruction()
	if constFirst {
		icmp.AsIcmp(iconst.Return(), x, cond)
	} else {
		icmp.AsIcmp(x, iconst.Return(), cond)
	}
	b.InsertInstruction(icmp)

	bint := b.AllocateInstruction().AsBint(icmp.Return(), ssa.TypeI32)
	b.InsertInstruction(bint)
	b.InsertInstruction(b.AllocateInstruction().AsReturn([]ssa.Value{bint.Return()}))
}

// widenPairwise builds `IaddPairwise (widen low x), (widen high y)` over 8-bit lanes.
// y is x if sameOperand.
func widenPairwise(b ssa.Builder, name string, lowSigned, highSigned, sameOperand bool) {
	params := []ssa.Type{ssa.TypeI8x16}
	if !sameOperand {
		params = append(params, ssa.TypeI8x16)
	}
	b.Init(&ssa.Signature{Name: name, Params: params, Results: []ssa.Type{ssa.TypeI16x8}})
	entry := b.AllocateBasicBlock()
	x := entry.AddParam(b, ssa.TypeI8x16)
	y := x
	if !sameOperand {
		y = entry.AddParam(b, ssa.TypeI8x16)
	}
	b.SetCurrentBlock(entry)

	low := b.AllocateInstruction().AsWiden(x, lowSigned, ssa.VecHalfLow)
	b.InsertInstruction(low)
	high := b.AllocateInstruction().AsWiden(y, highSigned, ssa.VecHalfHigh)
	b.InsertInstruction(high)
	add := b.AllocateInstruction().AsIaddPairwise(low.Return(), high.Return())
	b.InsertInstruction(add)
	b.InsertInstruction(b.AllocateInstruction().AsReturn([]ssa.Value{add.Return()}))
}

// HeapConfig describes the heap accessed by HeapAddr and HeapAddrTwice.
type HeapConfig struct {
	// Bound is the size of a static heap.
	Bound uint64
	// Dynamic heaps load their bound from vmctx+8 at every access.
	Dynamic     bool
	OffsetGuard uint64
	IndexType   ssa.Type
}

// StaticHeap64K is a 64KiB static heap without offset guard, indexed with i32.
var StaticHeap64K = HeapConfig{Bound: 0x10000, IndexType: ssa.TypeI32}

// String returns a short description used in test case names, e.g. "static_0x10000_guard_0x0_i32".
func (c HeapConfig) String() string {
	if c.Dynamic {
		return fmt.Sprintf("dynamic_guard_%#x_%s", c.OffsetGuard, c.IndexType)
	}
	return fmt.Sprintf("static_%#x_guard_%#x_%s", c.Bound, c.OffsetGuard, c.IndexType)
}

// HeapAddr builds `f(vmctx, idx) = HeapAddr heap0, idx, offset, size` on a 64-bit pointer.
func HeapAddr(c HeapConfig, offset, size uint32) TestCase {
	name := fmt.Sprintf("heap_addr_%s_off_%#x_size_%#x", c, offset, size)
	return TestCase{Name: name, Build: func(b ssa.Builder) {
		_, idx, heap := heapFunc(b, name, c, 1)
		addr := b.AllocateInstruction().AsHeapAddr(heap, idx, offset, size, ssa.TypeI64)
		b.InsertInstruction(addr)
		b.InsertInstruction(b.AllocateInstruction().AsReturn([]ssa.Value{addr.Return()}))
	}}
}

// HeapAddrTwice builds a function loading from the heap at two indexes, one after the other.
func HeapAddrTwice(c HeapConfig) TestCase {
	name := fmt.Sprintf("heap_addr_twice_%s", c)
	return TestCase{Name: name, Build: func(b ssa.Builder) {
		entry, idx, heap := heapFunc(b, name, c, 2)

		addr0 := b.AllocateInstruction().AsHeapAddr(heap, idx, 0, 4, ssa.TypeI64)
		b.InsertInstruction(addr0)
		load0 := b.AllocateInstruction().AsLoad(addr0.Return(), 0, ssa.TypeI32)
		b.InsertInstruction(load0)

		addr1 := b.AllocateInstruction().AsHeapAddr(heap, entry.Param(2), 0, 4, ssa.TypeI64)
		b.InsertInstruction(addr1)
		b.InsertInstruction(b.AllocateInstruction().AsStore(load0.Return(), addr1.Return(), 0))
		b.InsertInstruction(b.AllocateInstruction().AsReturn(nil))
	}}
}

// heapFunc starts a function taking vmctx followed by `indexes` heap indexes, and declares
// the heap described by c. The current block is the entry block.
func heapFunc(b ssa.Builder, name string, c HeapConfig, indexes int) (entry ssa.BasicBlock, idx ssa.Value, heap ssa.Heap) {
	sig := &ssa.Signature{Name: name, Params: []ssa.Type{ssa.TypeI64}}
	for i := 0; i < indexes; i++ {
		sig.Params = append(sig.Params, c.IndexType)
	}
	if indexes == 1 {
		sig.Results = []ssa.Type{ssa.TypeI64}
	}
	b.Init(sig)

	entry = b.AllocateBasicBlock()
	vmctx := entry.AddParam(b, ssa.TypeI64)
	idx = entry.AddParam(b, c.IndexType)
	for i := 1; i < indexes; i++ {
		entry.AddParam(b, c.IndexType)
	}
	b.DeclareVMContext(vmctx)

	gvCtx := b.DeclareGlobalValue(ssa.GlobalValueData{Kind: ssa.GlobalValueKindVMContext})
	gvBase := b.DeclareGlobalValue(ssa.GlobalValueData{
		Kind: ssa.GlobalValueKindLoad, Base: gvCtx, Offset: 0, Type: ssa.TypeI64, ReadOnly: true,
	})
	hd := ssa.HeapData{Base: gvBase, Bound: c.Bound, OffsetGuard: c.OffsetGuard, IndexType: c.IndexType}
	if c.Dynamic {
		hd.Style = ssa.HeapStyleDynamic
		hd.BoundGV = b.DeclareGlobalValue(ssa.GlobalValueData{
			Kind: ssa.GlobalValueKindLoad, Base: gvCtx, Offset: 8, Type: ssa.TypeI64,
		})
	}
	heap = b.DeclareHeap(hd)

	b.SetCurrentBlock(entry)
	return entry, idx, heap
}
