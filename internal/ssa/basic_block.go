package ssa

import (
	"fmt"
	"strings"
)

// BasicBlock represents the Basic Block of an SSA function.
// Each BasicBlock always ends with a terminator (Jump, Return or Trap),
// optionally preceded by conditional branches.
type BasicBlock interface {
	// ID returns the unique ID of this block.
	ID() BasicBlockID

	// Name returns the unique string ID of this block. e.g. blk0, blk1, ...
	Name() string

	// AddParam adds the parameter to the block whose type specified by `t`.
	AddParam(b Builder, t Type) Value

	// Params returns the number of parameters to this block.
	Params() int

	// Param returns (Variable, Value) which corresponds to the i-th parameter of this block.
	// The returned Value is the definition of the param in this block.
	Param(i int) Value

	// Root returns the root instruction of this block.
	Root() *Instruction

	// Tail returns the tail instruction of this block.
	Tail() *Instruction

	// Preds returns the number of predecessors of this block.
	Preds() int

	// Pred returns the i-th predecessor of this block.
	Pred(i int) BasicBlock

	// Succs returns the number of successors of this block.
	Succs() int

	// Succ returns the i-th successor of this block.
	Succ(i int) BasicBlock

	// EntryBlock returns true if this block represents the function entry.
	EntryBlock() bool

	// FormatHeader returns the debug string of this block, not including instruction.
	FormatHeader(b Builder) string
}

// BasicBlockID is the unique ID of a basicBlock.
type BasicBlockID uint32

// String implements fmt.Stringer for debugging.
func (bid BasicBlockID) String() string {
	return fmt.Sprintf("blk%d", bid)
}

type (
	// basicBlock is a basic block in a SSA-transformed function.
	basicBlock struct {
		id                      BasicBlockID
		rootInstr, currentInstr *Instruction
		params                  []Value
		preds                   []basicBlockPredecessorInfo
		success                 []*basicBlock
	}

	// basicBlockPredecessorInfo is the information of a predecessor of a basicBlock.
	// predecessor is determined by a pair of block and the branch instruction used to jump to the successor.
	basicBlockPredecessorInfo struct {
		blk    *basicBlock
		branch *Instruction
	}
)

// ID implements BasicBlock.ID.
func (bb *basicBlock) ID() BasicBlockID {
	return bb.id
}

// Name implements BasicBlock.Name.
func (bb *basicBlock) Name() string {
	return bb.id.String()
}

// EntryBlock implements BasicBlock.EntryBlock.
func (bb *basicBlock) EntryBlock() bool {
	return bb.id == 0
}

// AddParam implements BasicBlock.AddParam.
func (bb *basicBlock) AddParam(b Builder, typ Type) Value {
	paramValue := b.(*builder).allocateValue(typ)
	bb.params = append(bb.params, paramValue)
	return paramValue
}

// Params implements BasicBlock.Params.
func (bb *basicBlock) Params() int {
	return len(bb.params)
}

// Param implements BasicBlock.Param.
func (bb *basicBlock) Param(i int) Value {
	return bb.params[i]
}

// Root implements BasicBlock.Root.
func (bb *basicBlock) Root() *Instruction {
	return bb.rootInstr
}

// Tail implements BasicBlock.Tail.
func (bb *basicBlock) Tail() *Instruction {
	return bb.currentInstr
}

// Preds implements BasicBlock.Preds.
func (bb *basicBlock) Preds() int {
	return len(bb.preds)
}

// Pred implements BasicBlock.Pred.
func (bb *basicBlock) Pred(i int) BasicBlock {
	return bb.preds[i].blk
}

// Succs implements BasicBlock.Succs.
func (bb *basicBlock) Succs() int {
	return len(bb.success)
}

// Succ implements BasicBlock.Succ.
func (bb *basicBlock) Succ(i int) BasicBlock {
	return bb.success[i]
}

// insertInstruction appends instr at the end of this block and registers the edge if it is a branch.
func (bb *basicBlock) insertInstruction(instr *Instruction) {
	current := bb.currentInstr
	if current != nil {
		current.next = instr
		instr.prev = current
	} else {
		bb.rootInstr = instr
	}
	bb.currentInstr = instr

	if instr.IsBranching() {
		bb.addEdge(instr)
	}
}

// insertInstructionBefore places instr right before anchor, which must belong to this block.
func (bb *basicBlock) insertInstructionBefore(instr, anchor *Instruction) {
	prev := anchor.prev
	instr.prev, instr.next = prev, anchor
	anchor.prev = instr
	if prev != nil {
		prev.next = instr
	} else {
		bb.rootInstr = instr
	}

	if instr.IsBranching() {
		bb.addEdge(instr)
	}
}

// removeInstruction unlinks instr from this block. Branches cannot be removed.
func (bb *basicBlock) removeInstruction(instr *Instruction) {
	if instr.IsBranching() {
		panic("BUG: removing a branch leaves a dangling edge")
	}
	prev, next := instr.prev, instr.next
	if prev != nil {
		prev.next = next
	} else {
		bb.rootInstr = next
	}
	if next != nil {
		next.prev = prev
	} else {
		bb.currentInstr = prev
	}
	instr.prev, instr.next = nil, nil
}

func (bb *basicBlock) addEdge(branch *Instruction) {
	target := branch.blk.(*basicBlock)
	target.preds = append(target.preds, basicBlockPredecessorInfo{blk: bb, branch: branch})
	bb.success = append(bb.success, target)
}

// FormatHeader implements BasicBlock.FormatHeader.
func (bb *basicBlock) FormatHeader(b Builder) string {
	ps := make([]string, len(bb.params))
	for i, p := range bb.params {
		ps[i] = p.formatWithType(b)
	}

	if len(bb.preds) > 0 {
		preds := make([]string, 0, len(bb.preds))
		for _, pred := range bb.preds {
			preds = append(preds, pred.blk.Name())
		}
		return fmt.Sprintf("%s: (%s) <-- (%s)",
			bb.Name(), strings.Join(ps, ", "), strings.Join(preds, ","))
	}
	return fmt.Sprintf("%s: (%s)", bb.Name(), strings.Join(ps, ", "))
}

// String implements fmt.Stringer for debugging purpose only.
func (bb *basicBlock) String() string {
	return bb.Name()
}
