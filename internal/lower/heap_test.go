package lower

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetratelabs/legalize/internal/ssa"
	"github.com/tetratelabs/legalize/internal/testcases"
)

const (
	staticGlobals = `
globals:
	gv0 = vmctx v0
	gv1 = load.i64 gv0+0x0 readonly
`
	dynamicGlobals = staticGlobals + `	gv2 = load.i64 gv0+0x8
`
)

func TestLowerHeapAccesses(t *testing.T) {
	dynamic32 := testcases.HeapConfig{Dynamic: true, IndexType: ssa.TypeI32}

	for _, tc := range []struct {
		name    string
		tc      testcases.TestCase
		targets []string
		spectre bool
		exp     string
	}{
		{
			name:    "static bound as immediate",
			tc:      testcases.HeapAddr(testcases.StaticHeap64K, 0, 0),
			targets: []string{"x86_64"},
			exp: staticGlobals + `
heaps:
	heap0 = static gv1, bound 0x10000, offset_guard 0x0, index_type i32

blk0: (v0:i64, v1:i32)
	v3:i64 = UExtend v1, 32->64
	v4:b1 = IcmpImm le_u, v3, 0x10000
	Brnz v4, blk1
	Jump blk2

blk1: () <-- (blk0)
	v5:i64 = Load v0, 0x0
	v2:i64 = Iadd v5, v3
	Return v2

blk2: () <-- (blk0)
	Trap heap_oob
`,
		},
		{
			name:    "static bound in a register",
			tc:      testcases.HeapAddr(testcases.StaticHeap64K, 0, 0),
			targets: []string{"x86_64", "riscv64"},
			exp: staticGlobals + `
heaps:
	heap0 = static gv1, bound 0x10000, offset_guard 0x0, index_type i32

blk0: (v0:i64, v1:i32)
	v3:i64 = UExtend v1, 32->64
	v4:i64 = Iconst_64 0x10000
	v5:b1 = Icmp le_u, v3, v4
	Brnz v5, blk1
	Jump blk2

blk1: () <-- (blk0)
	v6:i64 = Load v0, 0x0
	v2:i64 = Iadd v6, v3
	Return v2

blk2: () <-- (blk0)
	Trap heap_oob
`,
		},
		{
			name:    "static bound minus the access end",
			tc:      testcases.HeapAddr(testcases.StaticHeap64K, 0x10, 4),
			targets: []string{"x86_64"},
			exp: staticGlobals + `
heaps:
	heap0 = static gv1, bound 0x10000, offset_guard 0x0, index_type i32

blk0: (v0:i64, v1:i32)
	v3:i64 = UExtend v1, 32->64
	v4:b1 = IcmpImm le_u, v3, 0xffec
	Brnz v4, blk1
	Jump blk2

blk1: () <-- (blk0)
	v5:i64 = Load v0, 0x0
	v6:i64 = Iadd v5, v3
	v2:i64 = IaddImm v6, 0x10
	Return v2

blk2: () <-- (blk0)
	Trap heap_oob
`,
		},
		{
			name: "access end within the offset guard",
			tc: testcases.HeapAddr(testcases.HeapConfig{
				Bound: 0x10000, OffsetGuard: 0x1000, IndexType: ssa.TypeI32,
			}, 0x10, 4),
			targets: []string{"x86_64"},
			exp: staticGlobals + `
heaps:
	heap0 = static gv1, bound 0x10000, offset_guard 0x1000, index_type i32

blk0: (v0:i64, v1:i32)
	v3:i64 = UExtend v1, 32->64
	v4:b1 = IcmpImm le_u, v3, 0x10000
	Brnz v4, blk1
	Jump blk2

blk1: () <-- (blk0)
	v5:i64 = Load v0, 0x0
	v6:i64 = Iadd v5, v3
	v2:i64 = IaddImm v6, 0x10
	Return v2

blk2: () <-- (blk0)
	Trap heap_oob
`,
		},
		{
			name: "check elided by the offset guard",
			tc: testcases.HeapAddr(testcases.HeapConfig{
				Bound: 0x1_0000_0000, OffsetGuard: 0x8000_0000, IndexType: ssa.TypeI32,
			}, 0, 8),
			targets: []string{"x86_64"},
			exp: staticGlobals + `
heaps:
	heap0 = static gv1, bound 0x100000000, offset_guard 0x80000000, index_type i32

blk0: (v0:i64, v1:i32)
	v3:i64 = UExtend v1, 32->64
	Jump blk1

blk1: () <-- (blk0)
	v4:i64 = Load v0, 0x0
	v2:i64 = Iadd v4, v3
	Return v2
`,
		},
		{
			name: "access always out of bounds",
			tc: testcases.HeapAddr(testcases.HeapConfig{
				Bound: 0x10, IndexType: ssa.TypeI64,
			}, 0x10, 4),
			targets: []string{"x86_64"},
			exp: staticGlobals + `
heaps:
	heap0 = static gv1, bound 0x10, offset_guard 0x0, index_type i64

blk0: (v0:i64, v1:i64)
	Jump blk2

blk1: ()
	v3:i64 = Load v0, 0x0
	v4:i64 = Iadd v3, v1
	v2:i64 = IaddImm v4, 0x10
	Return v2

blk2: () <-- (blk0)
	Trap heap_oob
`,
		},
		{
			name:    "static with spectre mitigation",
			tc:      testcases.HeapAddr(testcases.StaticHeap64K, 0, 0),
			targets: []string{"x86_64"},
			spectre: true,
			exp: staticGlobals + `
heaps:
	heap0 = static gv1, bound 0x10000, offset_guard 0x0, index_type i32

blk0: (v0:i64, v1:i32)
	v3:i64 = UExtend v1, 32->64
	v4:b1 = IcmpImm le_u, v3, 0x10000
	Brnz v4, blk1
	Jump blk2

blk1: () <-- (blk0)
	v5:i64 = Load v0, 0x0
	v6:i64 = Iadd v5, v3
	v7:b1 = IcmpImm le_u, v3, 0x10000
	v8:i64 = Iconst_64 0x0
	v2:i64 = SelectSpectreGuard v7, v6, v8
	Return v2

blk2: () <-- (blk0)
	Trap heap_oob
`,
		},
		{
			name:    "dynamic bound",
			tc:      testcases.HeapAddr(dynamic32, 0, 4),
			targets: []string{"x86_64"},
			exp: dynamicGlobals + `
heaps:
	heap0 = dynamic gv1, bound gv2, offset_guard 0x0, index_type i32

blk0: (v0:i64, v1:i32)
	v3:i64 = UExtend v1, 32->64
	v4:i64 = Load v0, 0x8
	v5:i64 = IaddImm v3, 0x4
	v6:b1 = Icmp le_u, v5, v4
	Brnz v6, blk1
	Jump blk2

blk1: () <-- (blk0)
	v7:i64 = Load v0, 0x0
	v2:i64 = Iadd v7, v3
	Return v2

blk2: () <-- (blk0)
	Trap heap_oob
`,
		},
		{
			name: "dynamic bound with full width index",
			tc: testcases.HeapAddr(testcases.HeapConfig{
				Dynamic: true, OffsetGuard: 0x10, IndexType: ssa.TypeI64,
			}, 0x20, 8),
			targets: []string{"x86_64"},
			exp: dynamicGlobals + `
heaps:
	heap0 = dynamic gv1, bound gv2, offset_guard 0x10, index_type i64

blk0: (v0:i64, v1:i64)
	v3:i64 = Load v0, 0x8
	v4:i64 = Iconst_64 0x28
	v5:i64 = UaddOverflowTrap v1, v4, heap_oob
	v6:b1 = Icmp le_u, v5, v3
	Brnz v6, blk1
	Jump blk2

blk1: () <-- (blk0)
	v7:i64 = Load v0, 0x0
	v8:i64 = Iadd v7, v1
	v2:i64 = IaddImm v8, 0x20
	Return v2

blk2: () <-- (blk0)
	Trap heap_oob
`,
		},
		{
			name: "dynamic bound with spectre mitigation",
			tc: testcases.HeapAddr(testcases.HeapConfig{
				Dynamic: true, OffsetGuard: 0x10, IndexType: ssa.TypeI64,
			}, 0x20, 8),
			targets: []string{"x86_64"},
			spectre: true,
			exp: dynamicGlobals + `
heaps:
	heap0 = dynamic gv1, bound gv2, offset_guard 0x10, index_type i64

blk0: (v0:i64, v1:i64)
	v3:i64 = Load v0, 0x8
	v4:i64 = Iconst_64 0x28
	v5:i64 = UaddOverflowTrap v1, v4, heap_oob
	v6:b1 = Icmp le_u, v5, v3
	Brnz v6, blk1
	Jump blk2

blk1: () <-- (blk0)
	v7:i64 = Load v0, 0x0
	v8:i64 = Iadd v7, v1
	v9:i64 = IaddImm v8, 0x20
	v10:b1 = Icmp le_u, v5, v3
	v11:i64 = Iconst_64 0x0
	v2:i64 = SelectSpectreGuard v10, v9, v11
	Return v2

blk2: () <-- (blk0)
	Trap heap_oob
`,
		},
		{
			name: "dynamic bound with access end within the guard",
			tc: testcases.HeapAddr(testcases.HeapConfig{
				Dynamic: true, OffsetGuard: 0x1000, IndexType: ssa.TypeI64,
			}, 0, 8),
			targets: []string{"aarch64"},
			spectre: true,
			exp: dynamicGlobals + `
heaps:
	heap0 = dynamic gv1, bound gv2, offset_guard 0x1000, index_type i64

blk0: (v0:i64, v1:i64)
	v3:i64 = Load v0, 0x8
	v4:b1 = Icmp le_u, v1, v3
	Brnz v4, blk1
	Jump blk2

blk1: () <-- (blk0)
	v5:i64 = Load v0, 0x0
	v6:i64 = Iadd v5, v1
	v7:b1 = Icmp le_u, v1, v3
	v8:i64 = Iconst_64 0x0
	v2:i64 = SelectSpectreGuard v7, v6, v8
	Return v2

blk2: () <-- (blk0)
	Trap heap_oob
`,
		},
		{
			name:    "dynamic bound is read again for each access",
			tc:      testcases.HeapAddrTwice(dynamic32),
			targets: []string{"x86_64"},
			exp: dynamicGlobals + `
heaps:
	heap0 = dynamic gv1, bound gv2, offset_guard 0x0, index_type i32

blk0: (v0:i64, v1:i32, v2:i32)
	v6:i64 = UExtend v1, 32->64
	v7:i64 = Load v0, 0x8
	v8:i64 = IaddImm v6, 0x4
	v9:b1 = Icmp le_u, v8, v7
	Brnz v9, blk1
	Jump blk2

blk1: () <-- (blk0)
	v10:i64 = Load v0, 0x0
	v3:i64 = Iadd v10, v6
	v4:i32 = Load v3, 0x0
	v11:i64 = UExtend v2, 32->64
	v12:i64 = Load v0, 0x8
	v13:i64 = IaddImm v11, 0x4
	v14:b1 = Icmp le_u, v13, v12
	Brnz v14, blk3
	Jump blk4

blk3: () <-- (blk1)
	v15:i64 = Load v0, 0x0
	v5:i64 = Iadd v15, v11
	Store v4, v5, 0x0
	Return

blk4: () <-- (blk1)
	Trap heap_oob

blk2: () <-- (blk0)
	Trap heap_oob
`,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			b := ssa.NewBuilder()
			tc.tc.Build(b)

			err := lowerHeapAccesses(context.Background(), b, targetsFor(t, tc.targets...), tc.spectre)
			require.NoError(t, err)
			require.Equal(t, tc.exp, b.Format())
			require.NoError(t, b.Validate())
		})
	}
}

func TestLowerHeapAccesses_errors(t *testing.T) {
	for _, tc := range []struct {
		name    string
		tc      testcases.TestCase
		targets []string
		errMsg  string
	}{
		{
			name:    "targets disagree on pointer width",
			tc:      testcases.HeapAddr(testcases.StaticHeap64K, 0, 4),
			targets: []string{"x86_64", "i686"},
			errMsg:  "targets disagree on pointer width",
		},
		{
			name:    "address wider than the pointer",
			tc:      testcases.HeapAddr(testcases.StaticHeap64K, 0, 4),
			targets: []string{"i686"},
			errMsg:  "address type i64 does not match the 32-bit pointer",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			b := ssa.NewBuilder()
			tc.tc.Build(b)

			err := lowerHeapAccesses(context.Background(), b, targetsFor(t, tc.targets...), false)
			require.ErrorContains(t, err, tc.errMsg)
		})
	}
}

func TestLowerHeapAccesses_indexTypeMismatch(t *testing.T) {
	b := ssa.NewBuilder()
	b.Init(&ssa.Signature{Name: "mismatch", Params: []ssa.Type{ssa.TypeI64, ssa.TypeI64}})
	entry := b.AllocateBasicBlock()
	vmctx := entry.AddParam(b, ssa.TypeI64)
	idx := entry.AddParam(b, ssa.TypeI64)
	b.DeclareVMContext(vmctx)

	gv := b.DeclareGlobalValue(ssa.GlobalValueData{Kind: ssa.GlobalValueKindVMContext})
	heap := b.DeclareHeap(ssa.HeapData{Base: gv, Bound: 0x1000, IndexType: ssa.TypeI32})

	b.SetCurrentBlock(entry)
	b.InsertInstruction(b.AllocateInstruction().AsHeapAddr(heap, idx, 0, 1, ssa.TypeI64))
	b.InsertInstruction(b.AllocateInstruction().AsReturn(nil))

	err := lowerHeapAccesses(context.Background(), b, targetsFor(t, "x86_64"), false)
	require.ErrorContains(t, err, "index is i64, heap index type is i32")
}
