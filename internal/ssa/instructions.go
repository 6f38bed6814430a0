package ssa

import (
	"fmt"
	"strings"

	"github.com/tetratelabs/legalize/internal/legalizeapi"
)

// Opcode is the operation of an Instruction.
type Opcode uint32

// Instruction is a single operation of a function. All opcodes share this flat struct;
// the meaning of u1, u2, v, v2, v3 and vs depends on the opcode and is only exposed
// through the AsXxx constructors and the XxxData accessors.
type Instruction struct {
	opcode     Opcode
	u1, u2     uint64
	v, v2, v3  Value
	vs         []Value
	typ        Type
	blk        BasicBlock
	prev, next *Instruction

	rValue Value
}

// Opcode returns the opcode of this instruction.
func (i *Instruction) Opcode() Opcode {
	return i.opcode
}

// reset clears i, leaving every Value field invalid.
func (i *Instruction) reset() {
	*i = Instruction{}
	i.v = ValueInvalid
	i.v2 = ValueInvalid
	i.v3 = ValueInvalid
	i.rValue = ValueInvalid
	i.typ = typeInvalid
}

// Rewrite clears the operands of i so that it can be re-initialized with another
// AsXxx call while keeping the result Value and the position in its block:
//
//	instr.Rewrite().AsIaddImm(x, 8)
//
// Branches cannot be rewritten since their edges are registered in the blocks.
func (i *Instruction) Rewrite() *Instruction {
	if i.IsBranching() {
		panic("BUG: rewriting a branch leaves a dangling edge")
	}
	rv, prev, next := i.rValue, i.prev, i.next
	i.reset()
	i.rValue, i.prev, i.next = rv, prev, next
	return i
}

// Return returns the Value produced by this instruction, or ValueInvalid.
func (i *Instruction) Return() Value {
	return i.rValue
}

// Args returns the arguments to this instruction.
func (i *Instruction) Args() (v1, v2, v3 Value, vs []Value) {
	return i.v, i.v2, i.v3, i.vs
}

// Arg returns the first argument to this instruction.
func (i *Instruction) Arg() Value {
	return i.v
}

// Arg2 returns the first two arguments to this instruction.
func (i *Instruction) Arg2() (Value, Value) {
	return i.v, i.v2
}

// Next returns the next instruction laid out next to itself.
func (i *Instruction) Next() *Instruction {
	return i.next
}

// Prev returns the previous instruction laid out prior to itself.
func (i *Instruction) Prev() *Instruction {
	return i.prev
}

// IsBranching returns true if this instruction is a branching instruction.
func (i *Instruction) IsBranching() bool {
	switch i.opcode {
	case OpcodeJump, OpcodeBrz, OpcodeBrnz:
		return true
	default:
		return false
	}
}

// IsTerminator returns true if this instruction must be the last one of a block.
func (i *Instruction) IsTerminator() bool {
	switch i.opcode {
	case OpcodeJump, OpcodeReturn, OpcodeTrap:
		return true
	default:
		return false
	}
}

const (
	OpcodeInvalid Opcode = iota

	// OpcodeJump takes the list of args to the `block` and unconditionally jumps to it.
	OpcodeJump

	// OpcodeBrz branches into `blk` with `args` if the value `c` equals zero: `Brz c, blk, args`.
	OpcodeBrz

	// OpcodeBrnz branches into `blk` with `args` if the value `c` is not zero: `Brnz c, blk, args`.
	OpcodeBrnz

	// OpcodeReturn returns from the function: `return rvalues`.
	OpcodeReturn

	// OpcodeTrap unconditionally faults with a trap code: `Trap code`.
	OpcodeTrap

	// OpcodeIconst represents the integer const.
	OpcodeIconst

	// OpcodeIadd performs an integer addition: `v = Iadd x, y`.
	OpcodeIadd

	// OpcodeIsub performs an integer subtraction: `v = Isub x, y`.
	OpcodeIsub

	// OpcodeIcmp compares two integer values with the given condition: `v = icmp Cond, x, y`.
	OpcodeIcmp

	// OpcodeIaddImm adds an immediate to an integer value: `v = IaddImm x, Imm`.
	OpcodeIaddImm

	// OpcodeIcmpImm compares an integer value with an immediate: `v = IcmpImm Cond, x, Imm`.
	OpcodeIcmpImm

	// OpcodeBint converts a boolean to an integer: `v = Bint b`.
	OpcodeBint

	// OpcodeUExtend zero-extends the given integer: `v = UExtend x, from->to`.
	OpcodeUExtend

	// OpcodeSExtend sign-extends the given integer: `v = SExtend x, from->to`.
	OpcodeSExtend

	// OpcodeLoad loads a Type value from the [base + offset] address: `v = Load base, offset`.
	OpcodeLoad

	// OpcodeStore stores a value to the [base + offset] address: `Store v, base, offset`.
	OpcodeStore

	// OpcodeHeapAddr computes the bounds-checked native address of a heap access:
	// `v = HeapAddr heap, index, offset, size`.
	OpcodeHeapAddr

	// OpcodeUaddOverflowTrap adds two unsigned integers and traps on overflow: `v = UaddOverflowTrap x, y, code`.
	OpcodeUaddOverflowTrap

	// OpcodeSelectSpectreGuard chooses x if c is true, y otherwise, and must be lowered to a
	// conditional move so that it cannot be speculated around: `v = SelectSpectreGuard c, x, y`.
	OpcodeSelectSpectreGuard

	// OpcodeSwidenLow sign-extends the low half lanes of a vector: `v = SwidenLow x`.
	OpcodeSwidenLow

	// OpcodeSwidenHigh sign-extends the high half lanes of a vector: `v = SwidenHigh x`.
	OpcodeSwidenHigh

	// OpcodeUwidenLow zero-extends the low half lanes of a vector: `v = UwidenLow x`.
	OpcodeUwidenLow

	// OpcodeUwidenHigh zero-extends the high half lanes of a vector: `v = UwidenHigh x`.
	OpcodeUwidenHigh

	// OpcodeIaddPairwise adds adjacent lane pairs of x, then of y: `v = IaddPairwise x, y`.
	OpcodeIaddPairwise

	// OpcodeSwidenPairwiseAdd sign-extends adjacent lane pairs and adds them: `v = SwidenPairwiseAdd x`.
	OpcodeSwidenPairwiseAdd

	// OpcodeUwidenPairwiseAdd zero-extends adjacent lane pairs and adds them: `v = UwidenPairwiseAdd x`.
	OpcodeUwidenPairwiseAdd

	// OpcodeVSExtend sign-extends one half of the lanes of a vector: `v = VSExtend x, half`.
	OpcodeVSExtend

	// OpcodeVUExtend zero-extends one half of the lanes of a vector: `v = VUExtend x, half`.
	OpcodeVUExtend

	// opcodeEnd marks the end of the opcode list.
	opcodeEnd
)

// VecHalf selects a half of the lanes of a vector.
type VecHalf byte

const (
	VecHalfLow VecHalf = iota
	VecHalfHigh
)

// String implements fmt.Stringer.
func (h VecHalf) String() string {
	if h == VecHalfHigh {
		return "high"
	}
	return "low"
}

// returnTypesFn provides the info to determine the type of instruction.
type returnTypesFn func(instr *Instruction) Type

var (
	returnTypesFnNoReturns returnTypesFn = func(*Instruction) Type { return typeInvalid }
	returnTypesFnSingle    returnTypesFn = func(instr *Instruction) Type { return instr.typ }
	returnTypesFnB1        returnTypesFn = func(*Instruction) Type { return TypeB1 }
)

// instructionReturnTypes provides the function to determine the return types of an instruction.
var instructionReturnTypes = [opcodeEnd]returnTypesFn{
	OpcodeJump:               returnTypesFnNoReturns,
	OpcodeBrz:                returnTypesFnNoReturns,
	OpcodeBrnz:               returnTypesFnNoReturns,
	OpcodeReturn:             returnTypesFnNoReturns,
	OpcodeTrap:               returnTypesFnNoReturns,
	OpcodeStore:              returnTypesFnNoReturns,
	OpcodeIconst:             returnTypesFnSingle,
	OpcodeIadd:               returnTypesFnSingle,
	OpcodeIsub:               returnTypesFnSingle,
	OpcodeIcmp:               returnTypesFnB1,
	OpcodeIaddImm:            returnTypesFnSingle,
	OpcodeIcmpImm:            returnTypesFnB1,
	OpcodeBint:               returnTypesFnSingle,
	OpcodeUExtend:            returnTypesFnSingle,
	OpcodeSExtend:            returnTypesFnSingle,
	OpcodeLoad:               returnTypesFnSingle,
	OpcodeHeapAddr:           returnTypesFnSingle,
	OpcodeUaddOverflowTrap:   returnTypesFnSingle,
	OpcodeSelectSpectreGuard: returnTypesFnSingle,
	OpcodeSwidenLow:          returnTypesFnSingle,
	OpcodeSwidenHigh:         returnTypesFnSingle,
	OpcodeUwidenLow:          returnTypesFnSingle,
	OpcodeUwidenHigh:         returnTypesFnSingle,
	OpcodeIaddPairwise:       returnTypesFnSingle,
	OpcodeSwidenPairwiseAdd:  returnTypesFnSingle,
	OpcodeUwidenPairwiseAdd:  returnTypesFnSingle,
	OpcodeVSExtend:           returnTypesFnSingle,
	OpcodeVUExtend:           returnTypesFnSingle,
}

// AsIconst64 initializes this instruction as a 64-bit integer constant instruction with OpcodeIconst.
func (i *Instruction) AsIconst64(v uint64) *Instruction {
	i.opcode = OpcodeIconst
	i.typ = TypeI64
	i.u1 = v
	return i
}

// AsIconst32 initializes this instruction as a 32-bit integer constant instruction with OpcodeIconst.
func (i *Instruction) AsIconst32(v uint32) *Instruction {
	i.opcode = OpcodeIconst
	i.typ = TypeI32
	i.u1 = uint64(v)
	return i
}

// AsIconst initializes this instruction as an integer constant of the given type.
// The value is truncated to the width of typ.
func (i *Instruction) AsIconst(typ Type, v uint64) *Instruction {
	if !typ.IsInt() {
		panic("BUG: Iconst of non-integer type " + typ.String())
	}
	i.opcode = OpcodeIconst
	i.typ = typ
	if bits := typ.Bits(); bits < 64 {
		v &= 1<<bits - 1
	}
	i.u1 = v
	return i
}

// ConstantVal returns the raw bits of an OpcodeIconst.
func (i *Instruction) ConstantVal() uint64 {
	if i.opcode != OpcodeIconst {
		panic("BUG: ConstantVal only available for OpcodeIconst")
	}
	return i.u1
}

// SignedConstantVal returns the value of an OpcodeIconst sign-extended from its type width.
func (i *Instruction) SignedConstantVal() int64 {
	return SignExtend(i.ConstantVal(), i.typ.Bits())
}

// AsIadd initializes this instruction as an integer addition instruction with OpcodeIadd.
func (i *Instruction) AsIadd(x, y Value) *Instruction {
	i.opcode = OpcodeIadd
	i.v = x
	i.v2 = y
	i.typ = x.Type()
	return i
}

// AsIsub initializes this instruction as an integer subtraction instruction with OpcodeIsub.
func (i *Instruction) AsIsub(x, y Value) *Instruction {
	i.opcode = OpcodeIsub
	i.v = x
	i.v2 = y
	i.typ = x.Type()
	return i
}

// BinaryData return the operands for a binary instruction.
func (i *Instruction) BinaryData() (x, y Value) {
	return i.v, i.v2
}

// AsIcmp initializes this instruction as an integer comparison instruction with OpcodeIcmp.
func (i *Instruction) AsIcmp(x, y Value, c IntegerCmpCond) *Instruction {
	i.opcode = OpcodeIcmp
	i.v = x
	i.v2 = y
	i.u1 = uint64(c)
	i.typ = TypeB1
	return i
}

// IcmpData returns the operands and comparison condition of this integer comparison instruction.
func (i *Instruction) IcmpData() (x, y Value, c IntegerCmpCond) {
	return i.v, i.v2, IntegerCmpCond(i.u1)
}

// AsIaddImm initializes this instruction as an immediate addition with OpcodeIaddImm.
func (i *Instruction) AsIaddImm(x Value, imm int64) *Instruction {
	i.opcode = OpcodeIaddImm
	i.v = x
	i.u1 = uint64(imm)
	i.typ = x.Type()
	return i
}

// IaddImmData returns the operand and the immediate of OpcodeIaddImm.
func (i *Instruction) IaddImmData() (x Value, imm int64) {
	return i.v, int64(i.u1)
}

// AsIcmpImm initializes this instruction as an immediate comparison with OpcodeIcmpImm.
func (i *Instruction) AsIcmpImm(x Value, imm int64, c IntegerCmpCond) *Instruction {
	i.opcode = OpcodeIcmpImm
	i.v = x
	i.u1 = uint64(imm)
	i.u2 = uint64(c)
	i.typ = TypeB1
	return i
}

// IcmpImmData returns the operand, the immediate and the condition of OpcodeIcmpImm.
func (i *Instruction) IcmpImmData() (x Value, imm int64, c IntegerCmpCond) {
	return i.v, int64(i.u1), IntegerCmpCond(i.u2)
}

// AsBint initializes this instruction as a boolean to integer conversion with OpcodeBint.
func (i *Instruction) AsBint(b Value, typ Type) *Instruction {
	i.opcode = OpcodeBint
	i.v = b
	i.typ = typ
	return i
}

// UnaryData return the operand for a unary instruction.
func (i *Instruction) UnaryData() Value {
	return i.v
}

// AsSExtend initializes this instruction as a sign extension instruction with OpcodeSExtend.
func (i *Instruction) AsSExtend(v Value, from, to byte) *Instruction {
	i.opcode = OpcodeSExtend
	i.v = v
	i.u1 = uint64(from)<<8 | uint64(to)
	i.typ = IntType(to)
	return i
}

// AsUExtend initializes this instruction as an unsigned extension instruction with OpcodeUExtend.
func (i *Instruction) AsUExtend(v Value, from, to byte) *Instruction {
	i.opcode = OpcodeUExtend
	i.v = v
	i.u1 = uint64(from)<<8 | uint64(to)
	i.typ = IntType(to)
	return i
}

// ExtendData returns the bit widths and the signedness of an extension instruction.
func (i *Instruction) ExtendData() (from, to byte, signed bool) {
	if i.opcode != OpcodeSExtend && i.opcode != OpcodeUExtend {
		panic("BUG: ExtendData only available for OpcodeSExtend and OpcodeUExtend")
	}
	from = byte(i.u1 >> 8)
	to = byte(i.u1)
	signed = i.opcode == OpcodeSExtend
	return
}

// AsLoad initializes this instruction as a load instruction with OpcodeLoad.
func (i *Instruction) AsLoad(ptr Value, offset uint32, typ Type) *Instruction {
	i.opcode = OpcodeLoad
	i.v = ptr
	i.u1 = uint64(offset)
	i.typ = typ
	return i
}

// LoadData returns the operands for a load instruction.
func (i *Instruction) LoadData() (ptr Value, offset uint32, typ Type) {
	return i.v, uint32(i.u1), i.typ
}

// AsStore initializes this instruction as a store instruction with OpcodeStore.
func (i *Instruction) AsStore(value, ptr Value, offset uint32) *Instruction {
	i.opcode = OpcodeStore
	i.v = value
	i.v2 = ptr
	i.u1 = uint64(offset)
	return i
}

// StoreData returns the operands for a store instruction.
func (i *Instruction) StoreData() (value, ptr Value, offset uint32) {
	return i.v, i.v2, uint32(i.u1)
}

// AsHeapAddr initializes this instruction as a heap address computation with OpcodeHeapAddr.
// The result has the pointer type `typ`, and the access covers [index+offset, index+offset+size).
func (i *Instruction) AsHeapAddr(heap Heap, index Value, offset, size uint32, typ Type) *Instruction {
	i.opcode = OpcodeHeapAddr
	i.v = index
	i.u1 = uint64(heap)
	i.u2 = uint64(offset) | uint64(size)<<32
	i.typ = typ
	return i
}

// HeapAddrData returns the operands of OpcodeHeapAddr.
func (i *Instruction) HeapAddrData() (heap Heap, index Value, offset, size uint32) {
	return Heap(i.u1), i.v, uint32(i.u2), uint32(i.u2 >> 32)
}

// AsUaddOverflowTrap initializes this instruction as an overflow-trapping addition with OpcodeUaddOverflowTrap.
func (i *Instruction) AsUaddOverflowTrap(x, y Value, code legalizeapi.TrapCode) *Instruction {
	i.opcode = OpcodeUaddOverflowTrap
	i.v = x
	i.v2 = y
	i.u1 = uint64(code)
	i.typ = x.Type()
	return i
}

// UaddOverflowTrapData returns the operands of OpcodeUaddOverflowTrap.
func (i *Instruction) UaddOverflowTrapData() (x, y Value, code legalizeapi.TrapCode) {
	return i.v, i.v2, legalizeapi.TrapCode(i.u1)
}

// AsSelectSpectreGuard initializes this instruction as OpcodeSelectSpectreGuard.
func (i *Instruction) AsSelectSpectreGuard(c, x, y Value) *Instruction {
	i.opcode = OpcodeSelectSpectreGuard
	i.v, i.v2, i.v3 = c, x, y
	i.typ = x.Type()
	return i
}

// SelectData returns the condition and both choices of OpcodeSelectSpectreGuard.
func (i *Instruction) SelectData() (c, x, y Value) {
	return i.v, i.v2, i.v3
}

// AsWiden initializes this instruction as one of OpcodeSwidenLow, OpcodeSwidenHigh,
// OpcodeUwidenLow and OpcodeUwidenHigh.
func (i *Instruction) AsWiden(x Value, signed bool, half VecHalf) *Instruction {
	switch {
	case signed && half == VecHalfLow:
		i.opcode = OpcodeSwidenLow
	case signed:
		i.opcode = OpcodeSwidenHigh
	case half == VecHalfLow:
		i.opcode = OpcodeUwidenLow
	default:
		i.opcode = OpcodeUwidenHigh
	}
	i.v = x
	i.typ = widenedType(x.Type())
	return i
}

// WidenData returns the operand, signedness and half of a widen instruction.
func (i *Instruction) WidenData() (x Value, signed bool, half VecHalf) {
	switch i.opcode {
	case OpcodeSwidenLow:
		return i.v, true, VecHalfLow
	case OpcodeSwidenHigh:
		return i.v, true, VecHalfHigh
	case OpcodeUwidenLow:
		return i.v, false, VecHalfLow
	case OpcodeUwidenHigh:
		return i.v, false, VecHalfHigh
	default:
		panic("BUG: WidenData only available for widen opcodes")
	}
}

// AsIaddPairwise initializes this instruction as OpcodeIaddPairwise.
func (i *Instruction) AsIaddPairwise(x, y Value) *Instruction {
	i.opcode = OpcodeIaddPairwise
	i.v = x
	i.v2 = y
	i.typ = x.Type()
	return i
}

// AsWidenPairwiseAdd initializes this instruction as OpcodeSwidenPairwiseAdd or OpcodeUwidenPairwiseAdd.
func (i *Instruction) AsWidenPairwiseAdd(x Value, signed bool) *Instruction {
	if signed {
		i.opcode = OpcodeSwidenPairwiseAdd
	} else {
		i.opcode = OpcodeUwidenPairwiseAdd
	}
	i.v = x
	i.typ = widenedType(x.Type())
	return i
}

// AsVExtend initializes this instruction as OpcodeVSExtend or OpcodeVUExtend.
func (i *Instruction) AsVExtend(x Value, signed bool, half VecHalf) *Instruction {
	if signed {
		i.opcode = OpcodeVSExtend
	} else {
		i.opcode = OpcodeVUExtend
	}
	i.v = x
	i.u1 = uint64(half)
	i.typ = widenedType(x.Type())
	return i
}

// VExtendData returns the operand, signedness and half of OpcodeVSExtend or OpcodeVUExtend.
func (i *Instruction) VExtendData() (x Value, signed bool, half VecHalf) {
	return i.v, i.opcode == OpcodeVSExtend, VecHalf(i.u1)
}

func widenedType(t Type) Type {
	w := t.Widen()
	if w.invalid() {
		panic("BUG: cannot widen " + t.String())
	}
	return w
}

// AsReturn initializes this instruction as a return instruction with OpcodeReturn.
func (i *Instruction) AsReturn(vs []Value) *Instruction {
	i.opcode = OpcodeReturn
	i.vs = vs
	return i
}

// ReturnVals returns the return values of OpcodeReturn.
func (i *Instruction) ReturnVals() []Value {
	return i.vs
}

// AsTrap initializes this instruction as OpcodeTrap.
func (i *Instruction) AsTrap(code legalizeapi.TrapCode) *Instruction {
	i.opcode = OpcodeTrap
	i.u1 = uint64(code)
	return i
}

// TrapData returns the trap code of OpcodeTrap.
func (i *Instruction) TrapData() legalizeapi.TrapCode {
	return legalizeapi.TrapCode(i.u1)
}

// AsJump initializes this instruction as a jump instruction with OpcodeJump.
func (i *Instruction) AsJump(vs []Value, target BasicBlock) *Instruction {
	i.opcode = OpcodeJump
	i.vs = vs
	i.blk = target
	return i
}

// AsBrz initializes this instruction as a branch-if-zero instruction with OpcodeBrz.
func (i *Instruction) AsBrz(v Value, args []Value, target BasicBlock) *Instruction {
	i.opcode = OpcodeBrz
	i.v = v
	i.vs = args
	i.blk = target
	return i
}

// AsBrnz initializes this instruction as a branch-if-not-zero instruction with OpcodeBrnz.
func (i *Instruction) AsBrnz(v Value, args []Value, target BasicBlock) *Instruction {
	i.opcode = OpcodeBrnz
	i.v = v
	i.vs = args
	i.blk = target
	return i
}

// BranchData returns the branch data for this instruction necessary for backends.
func (i *Instruction) BranchData() (condVal Value, blockArgs []Value, target BasicBlock) {
	switch i.opcode {
	case OpcodeJump:
		condVal = ValueInvalid
	case OpcodeBrz, OpcodeBrnz:
		condVal = i.v
	default:
		panic("BUG")
	}
	blockArgs = i.vs
	target = i.blk
	return
}

// Format returns a string representation of this instruction with the given builder.
// For debugging purposes only.
func (i *Instruction) Format(b Builder) string {
	var instSuffix string
	switch i.opcode {
	case OpcodeIadd, OpcodeIsub, OpcodeIaddPairwise:
		instSuffix = fmt.Sprintf(" %s, %s", i.v.Format(b), i.v2.Format(b))
	case OpcodeIcmp:
		instSuffix = fmt.Sprintf(" %s, %s, %s", IntegerCmpCond(i.u1), i.v.Format(b), i.v2.Format(b))
	case OpcodeIaddImm:
		instSuffix = fmt.Sprintf(" %s, %#x", i.v.Format(b), int64(i.u1))
	case OpcodeIcmpImm:
		instSuffix = fmt.Sprintf(" %s, %s, %#x", IntegerCmpCond(i.u2), i.v.Format(b), int64(i.u1))
	case OpcodeBint, OpcodeSwidenLow, OpcodeSwidenHigh, OpcodeUwidenLow, OpcodeUwidenHigh,
		OpcodeSwidenPairwiseAdd, OpcodeUwidenPairwiseAdd:
		instSuffix = " " + i.v.Format(b)
	case OpcodeVSExtend, OpcodeVUExtend:
		instSuffix = fmt.Sprintf(" %s, %s", i.v.Format(b), VecHalf(i.u1))
	case OpcodeSExtend, OpcodeUExtend:
		instSuffix = fmt.Sprintf(" %s, %d->%d", i.v.Format(b), i.u1>>8, i.u1&0xff)
	case OpcodeLoad:
		instSuffix = fmt.Sprintf(" %s, %#x", i.v.Format(b), int32(i.u1))
	case OpcodeStore:
		instSuffix = fmt.Sprintf(" %s, %s, %#x", i.v.Format(b), i.v2.Format(b), int32(i.u1))
	case OpcodeHeapAddr:
		heap, index, offset, size := i.HeapAddrData()
		instSuffix = fmt.Sprintf(" %s, %s, %#x, %#x", heap, index.Format(b), offset, size)
	case OpcodeUaddOverflowTrap:
		instSuffix = fmt.Sprintf(" %s, %s, %s", i.v.Format(b), i.v2.Format(b), legalizeapi.TrapCode(i.u1))
	case OpcodeSelectSpectreGuard:
		instSuffix = fmt.Sprintf(" %s, %s, %s", i.v.Format(b), i.v2.Format(b), i.v3.Format(b))
	case OpcodeIconst:
		switch i.typ {
		case TypeI8:
			instSuffix = fmt.Sprintf("_8 %#x", uint8(i.u1))
		case TypeI16:
			instSuffix = fmt.Sprintf("_16 %#x", uint16(i.u1))
		case TypeI32:
			instSuffix = fmt.Sprintf("_32 %#x", uint32(i.u1))
		case TypeI64:
			instSuffix = fmt.Sprintf("_64 %#x", i.u1)
		}
	case OpcodeTrap:
		instSuffix = " " + legalizeapi.TrapCode(i.u1).String()
	case OpcodeReturn:
		if len(i.vs) == 0 {
			break
		}
		instSuffix = " " + formatValues(b, i.vs)
	case OpcodeJump:
		vs := make([]string, len(i.vs)+1)
		vs[0] = " " + i.blk.Name()
		for idx := range i.vs {
			vs[idx+1] = i.vs[idx].Format(b)
		}
		instSuffix = strings.Join(vs, ", ")
	case OpcodeBrz, OpcodeBrnz:
		vs := make([]string, len(i.vs)+2)
		vs[0] = " " + i.v.Format(b)
		vs[1] = i.blk.Name()
		for idx := range i.vs {
			vs[idx+2] = i.vs[idx].Format(b)
		}
		instSuffix = strings.Join(vs, ", ")
	default:
		panic(fmt.Sprintf("TODO: format for %s", i.opcode))
	}

	instr := i.opcode.String() + instSuffix
	if rv := i.rValue; rv.Valid() {
		return fmt.Sprintf("%s = %s", rv.formatWithType(b), instr)
	}
	return instr
}

func formatValues(b Builder, vs []Value) string {
	strs := make([]string, len(vs))
	for idx := range vs {
		strs[idx] = vs[idx].Format(b)
	}
	return strings.Join(strs, ", ")
}

var opcodeNames = [opcodeEnd]string{
	OpcodeInvalid:            "invalid",
	OpcodeJump:               "Jump",
	OpcodeBrz:                "Brz",
	OpcodeBrnz:               "Brnz",
	OpcodeReturn:             "Return",
	OpcodeTrap:               "Trap",
	OpcodeIconst:             "Iconst",
	OpcodeIadd:               "Iadd",
	OpcodeIsub:               "Isub",
	OpcodeIcmp:               "Icmp",
	OpcodeIaddImm:            "IaddImm",
	OpcodeIcmpImm:            "IcmpImm",
	OpcodeBint:               "Bint",
	OpcodeUExtend:            "UExtend",
	OpcodeSExtend:            "SExtend",
	OpcodeLoad:               "Load",
	OpcodeStore:              "Store",
	OpcodeHeapAddr:           "HeapAddr",
	OpcodeUaddOverflowTrap:   "UaddOverflowTrap",
	OpcodeSelectSpectreGuard: "SelectSpectreGuard",
	OpcodeSwidenLow:          "SwidenLow",
	OpcodeSwidenHigh:         "SwidenHigh",
	OpcodeUwidenLow:          "UwidenLow",
	OpcodeUwidenHigh:         "UwidenHigh",
	OpcodeIaddPairwise:       "IaddPairwise",
	OpcodeSwidenPairwiseAdd:  "SwidenPairwiseAdd",
	OpcodeUwidenPairwiseAdd:  "UwidenPairwiseAdd",
	OpcodeVSExtend:           "VSExtend",
	OpcodeVUExtend:           "VUExtend",
}

// String implements fmt.Stringer.
func (o Opcode) String() string {
	if o >= opcodeEnd {
		panic(fmt.Sprintf("unknown opcode %d", o))
	}
	return opcodeNames[o]
}
