package ssa

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetratelabs/legalize/internal/legalizeapi"
)

func TestBuilder_Validate(t *testing.T) {
	for _, tc := range []struct {
		name   string
		setup  func(b *builder)
		expErr string
	}{
		{
			name: "ok",
			setup: func(b *builder) {
				blk := b.AllocateBasicBlock()
				b.SetCurrentBlock(blk)
				b.InsertInstruction(b.AllocateInstruction().AsReturn(nil))
			},
		},
		{
			name:   "no blocks",
			setup:  func(*builder) {},
			expErr: "function has no blocks",
		},
		{
			name: "empty block",
			setup: func(b *builder) {
				b.AllocateBasicBlock()
			},
			expErr: "empty block",
		},
		{
			name: "missing terminator",
			setup: func(b *builder) {
				blk := b.AllocateBasicBlock()
				b.SetCurrentBlock(blk)
				b.InsertInstruction(b.AllocateInstruction().AsIconst32(1))
			},
			expErr: "missing terminator, ends with Iconst",
		},
		{
			name: "terminator in the middle",
			setup: func(b *builder) {
				blk := b.AllocateBasicBlock()
				b.SetCurrentBlock(blk)
				b.InsertInstruction(b.AllocateInstruction().AsTrap(legalizeapi.TrapCodeUnreachable))
				b.InsertInstruction(b.AllocateInstruction().AsReturn(nil))
			},
			expErr: "terminator Trap in the middle of the block",
		},
		{
			name: "undeclared heap",
			setup: func(b *builder) {
				blk := b.AllocateBasicBlock()
				v := blk.AddParam(b, TypeI32)
				b.SetCurrentBlock(blk)
				b.InsertInstruction(b.AllocateInstruction().AsHeapAddr(3, v, 0, 0, TypeI64))
				b.InsertInstruction(b.AllocateInstruction().AsReturn(nil))
			},
			expErr: "HeapAddr refers to undeclared heap3",
		},
		{
			name: "spectre guard on mismatched choices",
			setup: func(b *builder) {
				blk := b.AllocateBasicBlock()
				c := blk.AddParam(b, TypeB1)
				x := blk.AddParam(b, TypeI64)
				y := blk.AddParam(b, TypeI32)
				b.SetCurrentBlock(blk)
				b.InsertInstruction(b.AllocateInstruction().AsSelectSpectreGuard(c, x, y))
				b.InsertInstruction(b.AllocateInstruction().AsReturn(nil))
			},
			expErr: "SelectSpectreGuard with operands b1, i64, i32",
		},
		{
			name: "vmctx global without vmctx",
			setup: func(b *builder) {
				blk := b.AllocateBasicBlock()
				b.SetCurrentBlock(blk)
				b.InsertInstruction(b.AllocateInstruction().AsReturn(nil))
				b.DeclareGlobalValue(GlobalValueData{Kind: GlobalValueKindVMContext})
			},
			expErr: "gv0 is vmctx but no VM context parameter is declared",
		},
		{
			name: "dynamic heap with undeclared bound",
			setup: func(b *builder) {
				blk := b.AllocateBasicBlock()
				vmctx := blk.AddParam(b, TypeI64)
				b.DeclareVMContext(vmctx)
				b.SetCurrentBlock(blk)
				b.InsertInstruction(b.AllocateInstruction().AsReturn(nil))
				gv := b.DeclareGlobalValue(GlobalValueData{Kind: GlobalValueKindVMContext})
				b.DeclareHeap(HeapData{Base: gv, Style: HeapStyleDynamic, BoundGV: 5, IndexType: TypeI64})
			},
			expErr: "bound refers to undeclared gv5",
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			b := NewBuilder().(*builder)
			b.Init(&Signature{})
			tc.setup(b)
			err := b.Validate()
			if tc.expErr == "" {
				require.NoError(t, err)
			} else {
				require.ErrorContains(t, err, tc.expErr)
			}
		})
	}
}
