package ssa

// IntegerCmpCond represents a condition for integer comparison.
type IntegerCmpCond byte

const (
	// IntegerCmpCondInvalid represents an invalid condition.
	IntegerCmpCondInvalid IntegerCmpCond = iota
	// IntegerCmpCondEqual represents "==".
	IntegerCmpCondEqual
	// IntegerCmpCondNotEqual represents "!=".
	IntegerCmpCondNotEqual
	// IntegerCmpCondSignedLessThan represents Signed "<".
	IntegerCmpCondSignedLessThan
	// IntegerCmpCondSignedGreaterThanOrEqual represents Signed ">=".
	IntegerCmpCondSignedGreaterThanOrEqual
	// IntegerCmpCondSignedGreaterThan represents Signed ">".
	IntegerCmpCondSignedGreaterThan
	// IntegerCmpCondSignedLessThanOrEqual represents Signed "<=".
	IntegerCmpCondSignedLessThanOrEqual
	// IntegerCmpCondUnsignedLessThan represents Unsigned "<".
	IntegerCmpCondUnsignedLessThan
	// IntegerCmpCondUnsignedGreaterThanOrEqual represents Unsigned ">=".
	IntegerCmpCondUnsignedGreaterThanOrEqual
	// IntegerCmpCondUnsignedGreaterThan represents Unsigned ">".
	IntegerCmpCondUnsignedGreaterThan
	// IntegerCmpCondUnsignedLessThanOrEqual represents Unsigned "<=".
	IntegerCmpCondUnsignedLessThanOrEqual
)

// String implements fmt.Stringer.
func (i IntegerCmpCond) String() string {
	switch i {
	case IntegerCmpCondEqual:
		return "eq"
	case IntegerCmpCondNotEqual:
		return "neq"
	case IntegerCmpCondSignedLessThan:
		return "lt_s"
	case IntegerCmpCondSignedGreaterThanOrEqual:
		return "ge_s"
	case IntegerCmpCondSignedGreaterThan:
		return "gt_s"
	case IntegerCmpCondSignedLessThanOrEqual:
		return "le_s"
	case IntegerCmpCondUnsignedLessThan:
		return "lt_u"
	case IntegerCmpCondUnsignedGreaterThanOrEqual:
		return "ge_u"
	case IntegerCmpCondUnsignedGreaterThan:
		return "gt_u"
	case IntegerCmpCondUnsignedLessThanOrEqual:
		return "le_u"
	default:
		panic("invalid integer comparison condition")
	}
}

// Signed returns true if the condition is signed integer comparison.
func (i IntegerCmpCond) Signed() bool {
	switch i {
	case IntegerCmpCondSignedLessThan, IntegerCmpCondSignedGreaterThanOrEqual,
		IntegerCmpCondSignedGreaterThan, IntegerCmpCondSignedLessThanOrEqual:
		return true
	case IntegerCmpCondEqual, IntegerCmpCondNotEqual,
		IntegerCmpCondUnsignedLessThan, IntegerCmpCondUnsignedGreaterThanOrEqual,
		IntegerCmpCondUnsignedGreaterThan, IntegerCmpCondUnsignedLessThanOrEqual:
		return false
	default:
		panic("invalid integer comparison condition")
	}
}

// Swap returns the condition that holds for (y, x) whenever i holds for (x, y).
func (i IntegerCmpCond) Swap() IntegerCmpCond {
	switch i {
	case IntegerCmpCondEqual, IntegerCmpCondNotEqual:
		return i
	case IntegerCmpCondSignedLessThan:
		return IntegerCmpCondSignedGreaterThan
	case IntegerCmpCondSignedGreaterThan:
		return IntegerCmpCondSignedLessThan
	case IntegerCmpCondSignedLessThanOrEqual:
		return IntegerCmpCondSignedGreaterThanOrEqual
	case IntegerCmpCondSignedGreaterThanOrEqual:
		return IntegerCmpCondSignedLessThanOrEqual
	case IntegerCmpCondUnsignedLessThan:
		return IntegerCmpCondUnsignedGreaterThan
	case IntegerCmpCondUnsignedGreaterThan:
		return IntegerCmpCondUnsignedLessThan
	case IntegerCmpCondUnsignedLessThanOrEqual:
		return IntegerCmpCondUnsignedGreaterThanOrEqual
	case IntegerCmpCondUnsignedGreaterThanOrEqual:
		return IntegerCmpCondUnsignedLessThanOrEqual
	default:
		panic("invalid integer comparison condition")
	}
}
