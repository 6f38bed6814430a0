package ssa

import (
	"fmt"
	"math"
)

// Value is a typed SSA value: the ValueID in the low half, the Type above it.
type Value uint64

// ValueID identifies a Value within a function regardless of its type.
type ValueID uint32

const (
	valueIDInvalid ValueID = math.MaxUint32
	ValueInvalid   Value   = Value(valueIDInvalid)
)

func newValue(id ValueID, typ Type) Value {
	return Value(id) | Value(typ)<<32
}

// ID returns the ValueID of v.
func (v Value) ID() ValueID { return ValueID(v) }

// Type returns the Type of v.
func (v Value) Type() Type { return Type(v >> 32) }

// Valid is false for ValueInvalid.
func (v Value) Valid() bool { return v.ID() != valueIDInvalid }

// Format returns the annotation of v if any, otherwise "v<id>".
func (v Value) Format(b Builder) string {
	if a, ok := b.(*builder).valueAnnotations[v.ID()]; ok {
		return a
	}
	return fmt.Sprintf("v%d", v.ID())
}

func (v Value) formatWithType(b Builder) string {
	return fmt.Sprintf("%s:%s", v.Format(b), v.Type())
}

// SignExtend interprets the low `bits` bits of v as a two's complement integer.
func SignExtend(v uint64, bits byte) int64 {
	shift := 64 - uint(bits)
	return int64(v<<shift) >> shift
}
