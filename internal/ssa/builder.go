package ssa

import (
	"fmt"
	"strings"

	"github.com/tetratelabs/legalize/internal/legalizeapi"
)

// Builder is used to build and edit the SSA of a single function.
type Builder interface {
	// Init must be called to reuse this builder for the next function.
	Init(sig *Signature)

	// Signature returns the Signature of the currently-compiled function.
	Signature() *Signature

	// AllocateBasicBlock creates a basic block placed at the end of the layout.
	AllocateBasicBlock() BasicBlock

	// AllocateBasicBlockAfter creates a basic block placed right after `after` in the layout.
	AllocateBasicBlockAfter(after BasicBlock) BasicBlock

	// CurrentBlock returns the currently handled BasicBlock which is set by the latest call to SetCurrentBlock.
	CurrentBlock() BasicBlock

	// SetCurrentBlock sets the instruction insertion target to the BasicBlock `b`.
	SetCurrentBlock(b BasicBlock)

	// AllocateInstruction returns a new Instruction.
	AllocateInstruction() *Instruction

	// InsertInstruction appends the instruction to the current block and allocates its result.
	InsertInstruction(instr *Instruction)

	// InsertInstructionBefore inserts instr right before anchor in blk.
	InsertInstructionBefore(blk BasicBlock, instr, anchor *Instruction)

	// RemoveInstruction unlinks a non-branching instruction from blk.
	RemoveInstruction(blk BasicBlock, instr *Instruction)

	// SplitBlockAfter moves every instruction after `instr` in blk, and the outgoing edges,
	// into a new block placed right after blk. blk is left without a terminator.
	SplitBlockAfter(blk BasicBlock, instr *Instruction) BasicBlock

	// SplitBlockBefore is like SplitBlockAfter, except that instr moves to the new block too.
	SplitBlockBefore(blk BasicBlock, instr *Instruction) BasicBlock

	// InsertCondBranch terminates blk with `Brnz cond, taken` followed by `Jump fallthru`.
	InsertCondBranch(blk BasicBlock, cond Value, taken, fallthru BasicBlock)

	// ValueDefinition returns the instruction defining v, or nil if v is a block parameter.
	ValueDefinition(v Value) *Instruction

	// DeclareVMContext marks v, a parameter of the entry block, as the VM context pointer.
	DeclareVMContext(v Value)

	// VMContext returns the value declared by DeclareVMContext, or ValueInvalid.
	VMContext() Value

	// DeclareGlobalValue registers a global value of the function.
	DeclareGlobalValue(d GlobalValueData) GlobalValue

	// GlobalValueData returns the descriptor of gv.
	GlobalValueData(gv GlobalValue) (GlobalValueData, bool)

	// DeclareHeap registers a heap accessible from OpcodeHeapAddr.
	DeclareHeap(d HeapData) Heap

	// HeapData returns the descriptor of h.
	HeapData(h Heap) (*HeapData, bool)

	// AnnotateValue is for debugging purpose.
	AnnotateValue(value Value, annotation string)

	// Format returns the debugging string of the SSA function.
	Format() string

	// Validate checks the structural invariants of the function.
	Validate() error

	// BlockIteratorBegin initializes the state to iterate over all the BasicBlock(s) in layout order.
	// Combined with BlockIteratorNext, we can use this like:
	//
	// 	for blk := builder.BlockIteratorBegin(); blk != nil; blk = builder.BlockIteratorNext() {
	// 		// ...
	//	}
	BlockIteratorBegin() BasicBlock

	// BlockIteratorNext advances the state for iteration initialized by BlockIteratorBegin.
	// Returns nil if there's no unseen BasicBlock.
	BlockIteratorNext() BasicBlock

	// Blocks returns the number of blocks of the function.
	Blocks() int
}

// Signature is the name and the type of a function.
type Signature struct {
	Name            string
	Params, Results []Type
}

// String implements fmt.Stringer.
func (s *Signature) String() string {
	str := strings.Builder{}
	str.WriteString(s.Name)
	str.WriteByte('(')
	for i, typ := range s.Params {
		if i > 0 {
			str.WriteString(", ")
		}
		str.WriteString(typ.String())
	}
	str.WriteString(") -> (")
	for i, typ := range s.Results {
		if i > 0 {
			str.WriteString(", ")
		}
		str.WriteString(typ.String())
	}
	str.WriteByte(')')
	return str.String()
}

// NewBuilder returns a new Builder implementation.
func NewBuilder() Builder {
	return &builder{
		instructionsPool: legalizeapi.NewPool[Instruction](),
		basicBlocksPool:  legalizeapi.NewPool[basicBlock](),
		valueAnnotations: make(map[ValueID]string),
		vmctx:            ValueInvalid,
	}
}

// builder implements Builder interface.
type builder struct {
	basicBlocksPool  legalizeapi.Pool[basicBlock]
	instructionsPool legalizeapi.Pool[Instruction]
	currentSignature *Signature

	// layout is the order in which blocks are printed and visited.
	layout    []*basicBlock
	currentBB *basicBlock

	// nextValueID is used by builder.AllocateValue.
	nextValueID ValueID

	// valueIDToInstruction maps a ValueID to its defining instruction. nil for block parameters.
	valueIDToInstruction []*Instruction
	valueAnnotations     map[ValueID]string

	vmctx        Value
	globalValues []GlobalValueData
	heaps        []HeapData

	// blockIterCur is used to implement blockIteratorBegin and blockIteratorNext.
	blockIterCur int
}

// Init implements Builder.Init.
func (b *builder) Init(s *Signature) {
	b.currentSignature = s
	b.instructionsPool.Reset()
	b.basicBlocksPool.Reset()
	b.layout = b.layout[:0]
	b.currentBB = nil
	for v := ValueID(0); v < b.nextValueID; v++ {
		delete(b.valueAnnotations, v)
	}
	b.valueIDToInstruction = b.valueIDToInstruction[:0]
	b.nextValueID = 0
	b.vmctx = ValueInvalid
	b.globalValues = b.globalValues[:0]
	b.heaps = b.heaps[:0]
}

// Signature implements Builder.Signature.
func (b *builder) Signature() *Signature {
	return b.currentSignature
}

// AnnotateValue implements Builder.AnnotateValue.
func (b *builder) AnnotateValue(value Value, a string) {
	b.valueAnnotations[value.ID()] = a
}

// AllocateInstruction implements Builder.AllocateInstruction.
func (b *builder) AllocateInstruction() *Instruction {
	instr := b.instructionsPool.Allocate()
	instr.reset()
	return instr
}

// AllocateBasicBlock implements Builder.AllocateBasicBlock.
func (b *builder) AllocateBasicBlock() BasicBlock {
	blk := b.allocateBasicBlock()
	b.layout = append(b.layout, blk)
	return blk
}

// AllocateBasicBlockAfter implements Builder.AllocateBasicBlockAfter.
func (b *builder) AllocateBasicBlockAfter(after BasicBlock) BasicBlock {
	blk := b.allocateBasicBlock()
	pos := b.layoutIndex(after.(*basicBlock)) + 1
	b.layout = append(b.layout, nil)
	copy(b.layout[pos+1:], b.layout[pos:])
	b.layout[pos] = blk
	return blk
}

func (b *builder) allocateBasicBlock() *basicBlock {
	id := BasicBlockID(b.basicBlocksPool.Allocated())
	blk := b.basicBlocksPool.Allocate()
	blk.id = id
	return blk
}

func (b *builder) layoutIndex(blk *basicBlock) int {
	for i, l := range b.layout {
		if l == blk {
			return i
		}
	}
	panic("BUG: " + blk.Name() + " is not in the layout")
}

// SetCurrentBlock implements Builder.SetCurrentBlock.
func (b *builder) SetCurrentBlock(bb BasicBlock) {
	b.currentBB = bb.(*basicBlock)
}

// CurrentBlock implements Builder.CurrentBlock.
func (b *builder) CurrentBlock() BasicBlock {
	return b.currentBB
}

// InsertInstruction implements Builder.InsertInstruction.
func (b *builder) InsertInstruction(instr *Instruction) {
	b.currentBB.insertInstruction(instr)
	b.allocateResult(instr)
}

// InsertInstructionBefore implements Builder.InsertInstructionBefore.
func (b *builder) InsertInstructionBefore(blk BasicBlock, instr, anchor *Instruction) {
	blk.(*basicBlock).insertInstructionBefore(instr, anchor)
	b.allocateResult(instr)
}

// RemoveInstruction implements Builder.RemoveInstruction.
func (b *builder) RemoveInstruction(blk BasicBlock, instr *Instruction) {
	blk.(*basicBlock).removeInstruction(instr)
	if rv := instr.rValue; rv.Valid() && b.valueIDToInstruction[rv.ID()] == instr {
		b.valueIDToInstruction[rv.ID()] = nil
	}
}

// allocateResult assigns the result Value of instr. An instruction which already has a
// result keeps it, so that a re-inserted instruction still defines the same Value.
func (b *builder) allocateResult(instr *Instruction) {
	if rv := instr.rValue; rv.Valid() {
		b.valueIDToInstruction[rv.ID()] = instr
		return
	}

	resultTypesFn := instructionReturnTypes[instr.opcode]
	if resultTypesFn == nil {
		panic("TODO: " + instr.opcode.String())
	}

	t1 := resultTypesFn(instr)
	if t1.invalid() {
		return
	}

	r1 := b.allocateValue(t1)
	instr.rValue = r1
	b.valueIDToInstruction[r1.ID()] = instr
}

// allocateValue implements Builder.AllocateValue.
func (b *builder) allocateValue(typ Type) (v Value) {
	v = newValue(b.nextValueID, typ)
	b.nextValueID++
	b.valueIDToInstruction = append(b.valueIDToInstruction, nil)
	return
}

// ValueDefinition implements Builder.ValueDefinition.
func (b *builder) ValueDefinition(v Value) *Instruction {
	if !v.Valid() || int(v.ID()) >= len(b.valueIDToInstruction) {
		return nil
	}
	return b.valueIDToInstruction[v.ID()]
}

// DeclareVMContext implements Builder.DeclareVMContext.
func (b *builder) DeclareVMContext(v Value) {
	b.vmctx = v
}

// VMContext implements Builder.VMContext.
func (b *builder) VMContext() Value {
	return b.vmctx
}

// DeclareGlobalValue implements Builder.DeclareGlobalValue.
func (b *builder) DeclareGlobalValue(d GlobalValueData) GlobalValue {
	b.globalValues = append(b.globalValues, d)
	return GlobalValue(len(b.globalValues) - 1)
}

// GlobalValueData implements Builder.GlobalValueData.
func (b *builder) GlobalValueData(gv GlobalValue) (GlobalValueData, bool) {
	if int(gv) >= len(b.globalValues) {
		return GlobalValueData{}, false
	}
	return b.globalValues[gv], true
}

// DeclareHeap implements Builder.DeclareHeap.
func (b *builder) DeclareHeap(d HeapData) Heap {
	b.heaps = append(b.heaps, d)
	return Heap(len(b.heaps) - 1)
}

// HeapData implements Builder.HeapData.
func (b *builder) HeapData(h Heap) (*HeapData, bool) {
	if int(h) >= len(b.heaps) {
		return nil, false
	}
	return &b.heaps[h], true
}

// Format implements Builder.Format.
func (b *builder) Format() string {
	str := strings.Builder{}
	if len(b.globalValues) > 0 {
		str.WriteString("\nglobals:\n")
		for i, gv := range b.globalValues {
			fmt.Fprintf(&str, "\t%s = %s", GlobalValue(i), gv)
			if gv.Kind == GlobalValueKindVMContext && b.vmctx.Valid() {
				str.WriteString(" " + b.vmctx.Format(b))
			}
			str.WriteByte('\n')
		}
	}
	if len(b.heaps) > 0 {
		str.WriteString("\nheaps:\n")
		for i := range b.heaps {
			fmt.Fprintf(&str, "\t%s = %s\n", Heap(i), &b.heaps[i])
		}
	}

	// Not using the block iterator so that Format can be called in the middle of a pass.
	for _, bb := range b.layout {
		str.WriteByte('\n')
		str.WriteString(bb.FormatHeader(b))
		str.WriteByte('\n')

		for cur := bb.Root(); cur != nil; cur = cur.Next() {
			str.WriteByte('\t')
			str.WriteString(cur.Format(b))
			str.WriteByte('\n')
		}
	}
	return str.String()
}

// BlockIteratorNext implements Builder.BlockIteratorNext.
func (b *builder) BlockIteratorNext() BasicBlock {
	if blk := b.blockIteratorNext(); blk == nil {
		return nil // BasicBlock((*basicBlock)(nil)) != BasicBlock(nil)
	} else {
		return blk
	}
}

func (b *builder) blockIteratorNext() *basicBlock {
	if b.blockIterCur >= len(b.layout) {
		return nil
	}
	ret := b.layout[b.blockIterCur]
	b.blockIterCur++
	return ret
}

// BlockIteratorBegin implements Builder.BlockIteratorBegin.
func (b *builder) BlockIteratorBegin() BasicBlock {
	if blk := b.blockIteratorBegin(); blk == nil {
		return nil
	} else {
		return blk
	}
}

func (b *builder) blockIteratorBegin() *basicBlock {
	b.blockIterCur = 0
	return b.blockIteratorNext()
}

// Blocks implements Builder.Blocks.
func (b *builder) Blocks() int {
	return len(b.layout)
}

// entryBlk returns the entry block of the function.
func (b *builder) entryBlk() *basicBlock {
	return b.basicBlocksPool.View(0)
}
