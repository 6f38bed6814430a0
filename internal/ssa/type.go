package ssa

// Type is the type of a Value. Scalar and vector types share the same space.
type Type byte

const (
	typeInvalid Type = iota

	// TypeB1 is the boolean produced by comparisons.
	TypeB1

	TypeI8
	TypeI16
	TypeI32
	TypeI64
	TypeF32
	TypeF64

	// Vector types are 128 bits wide.
	TypeI8x16
	TypeI16x8
	TypeI32x4
	TypeI64x2

	typeEnd
)

// String implements fmt.Stringer.
func (t Type) String() (ret string) {
	switch t {
	case typeInvalid:
		return "invalid"
	case TypeB1:
		return "b1"
	case TypeI8:
		return "i8"
	case TypeI16:
		return "i16"
	case TypeI32:
		return "i32"
	case TypeI64:
		return "i64"
	case TypeF32:
		return "f32"
	case TypeF64:
		return "f64"
	case TypeI8x16:
		return "i8x16"
	case TypeI16x8:
		return "i16x8"
	case TypeI32x4:
		return "i32x4"
	case TypeI64x2:
		return "i64x2"
	default:
		panic(int(t))
	}
}

// IsInt returns true if the type is a scalar integer type.
func (t Type) IsInt() bool {
	return t >= TypeI8 && t <= TypeI64
}

// IsFloat returns true if the type is a floating point type.
func (t Type) IsFloat() bool {
	return t == TypeF32 || t == TypeF64
}

// IsVector returns true if the type is a 128-bit vector type.
func (t Type) IsVector() bool {
	return t >= TypeI8x16 && t <= TypeI64x2
}

// Bits returns the number of bits required to represent the type.
func (t Type) Bits() byte {
	switch t {
	case TypeB1:
		return 1
	case TypeI8:
		return 8
	case TypeI16:
		return 16
	case TypeI32, TypeF32:
		return 32
	case TypeI64, TypeF64:
		return 64
	case TypeI8x16, TypeI16x8, TypeI32x4, TypeI64x2:
		return 128
	default:
		panic(int(t))
	}
}

// Size returns the number of bytes required to represent the type.
func (t Type) Size() byte {
	if t == TypeB1 {
		return 1
	}
	return t.Bits() / 8
}

// LaneBits returns the width of a single lane of a vector type.
func (t Type) LaneBits() byte {
	switch t {
	case TypeI8x16:
		return 8
	case TypeI16x8:
		return 16
	case TypeI32x4:
		return 32
	case TypeI64x2:
		return 64
	default:
		panic("BUG: LaneBits on non-vector type " + t.String())
	}
}

// Lanes returns the number of lanes of a vector type.
func (t Type) Lanes() int {
	return 128 / int(t.LaneBits())
}

// Widen returns the vector type whose lanes are twice as wide, or typeInvalid for TypeI64x2.
func (t Type) Widen() Type {
	switch t {
	case TypeI8x16:
		return TypeI16x8
	case TypeI16x8:
		return TypeI32x4
	case TypeI32x4:
		return TypeI64x2
	default:
		return typeInvalid
	}
}

// IntType returns the scalar integer type of the given width.
func IntType(bits byte) Type {
	switch bits {
	case 8:
		return TypeI8
	case 16:
		return TypeI16
	case 32:
		return TypeI32
	case 64:
		return TypeI64
	default:
		return typeInvalid
	}
}

func (t Type) invalid() bool {
	return t == typeInvalid
}

// Valid returns true if t is a known type.
func (t Type) Valid() bool {
	return t > typeInvalid && t < typeEnd
}
