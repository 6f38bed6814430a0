package legalizeapi

// TrapCode identifies why a trapping instruction faults at run time.
type TrapCode uint32

const (
	TrapCodeUnreachable TrapCode = iota
	// TrapCodeHeapOutOfBounds is raised by the bounds check emitted for heap accesses.
	TrapCodeHeapOutOfBounds
	TrapCodeIntegerOverflow
	trapCodeMax
)

// String implements fmt.Stringer.
func (c TrapCode) String() string {
	switch c {
	case TrapCodeUnreachable:
		return "unreachable"
	case TrapCodeHeapOutOfBounds:
		return "heap_oob"
	case TrapCodeIntegerOverflow:
		return "int_ovf"
	}
	panic("BUG: unknown trap code")
}

// Valid returns true if c is a known trap code.
func (c TrapCode) Valid() bool {
	return c < trapCodeMax
}
