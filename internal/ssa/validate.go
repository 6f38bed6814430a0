package ssa

import (
	"tlog.app/go/errors"
)

// Validate implements Builder.Validate.
func (b *builder) Validate() error {
	if len(b.layout) == 0 {
		return errors.New("function has no blocks")
	}
	if b.layout[0] != b.entryBlk() {
		return errors.New("%s is laid out before the entry block", b.layout[0].Name())
	}

	inLayout := make(map[*basicBlock]struct{}, len(b.layout))
	for _, blk := range b.layout {
		inLayout[blk] = struct{}{}
	}

	for _, blk := range b.layout {
		if err := b.validateBlock(blk, inLayout); err != nil {
			return errors.Wrap(err, "%s", blk.Name())
		}
	}

	for i, gv := range b.globalValues {
		switch gv.Kind {
		case GlobalValueKindVMContext:
			if !b.vmctx.Valid() {
				return errors.New("%s is vmctx but no VM context parameter is declared", GlobalValue(i))
			}
		default:
			// Bases must be declared first, which also rules out cycles.
			if int(gv.Base) >= i {
				return errors.New("%s must be based on an earlier global value, got %s", GlobalValue(i), gv.Base)
			}
		}
	}

	for i := range b.heaps {
		h := &b.heaps[i]
		if err := b.validateHeap(h); err != nil {
			return errors.Wrap(err, "%s", Heap(i))
		}
	}
	return nil
}

func (b *builder) validateBlock(blk *basicBlock, inLayout map[*basicBlock]struct{}) error {
	tail := blk.currentInstr
	if tail == nil {
		return errors.New("empty block")
	}
	if !tail.IsTerminator() {
		return errors.New("missing terminator, ends with %s", tail.opcode)
	}

	for cur := blk.rootInstr; cur != nil; cur = cur.next {
		if cur != tail && cur.IsTerminator() {
			return errors.New("terminator %s in the middle of the block", cur.opcode)
		}
		if cur.opcode == OpcodeBrz || cur.opcode == OpcodeBrnz {
			if next := cur.next; next == nil || !next.IsBranching() {
				return errors.New("conditional branch must be followed by a branch")
			}
		}
		if cur.IsBranching() {
			if _, ok := inLayout[cur.blk.(*basicBlock)]; !ok {
				return errors.New("branch to %s which is not part of the function", cur.blk.Name())
			}
		}
		if cur.opcode == OpcodeSelectSpectreGuard {
			c, x, y := cur.SelectData()
			if c.Type() != TypeB1 || x.Type() != y.Type() {
				return errors.New("%s with operands %s, %s, %s", cur.opcode, c.Type(), x.Type(), y.Type())
			}
		}
		if cur.opcode == OpcodeHeapAddr {
			heap, _, _, _ := cur.HeapAddrData()
			if _, ok := b.HeapData(heap); !ok {
				return errors.New("%s refers to undeclared %s", cur.opcode, heap)
			}
		}
	}
	return nil
}

func (b *builder) validateHeap(h *HeapData) error {
	if !h.IndexType.IsInt() {
		return errors.New("index type must be an integer, got %s", h.IndexType)
	}
	if _, ok := b.GlobalValueData(h.Base); !ok {
		return errors.New("base refers to undeclared %s", h.Base)
	}
	if h.Style == HeapStyleDynamic {
		if _, ok := b.GlobalValueData(h.BoundGV); !ok {
			return errors.New("bound refers to undeclared %s", h.BoundGV)
		}
	}
	return nil
}
