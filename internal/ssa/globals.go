package ssa

import "fmt"

// GlobalValue references a GlobalValueData declared in a Builder.
type GlobalValue uint32

// String implements fmt.Stringer.
func (g GlobalValue) String() string {
	return fmt.Sprintf("gv%d", g)
}

// GlobalValueKind is the kind of GlobalValueData.
type GlobalValueKind byte

const (
	// GlobalValueKindVMContext is the value of the VM context parameter of the function.
	GlobalValueKindVMContext GlobalValueKind = iota
	// GlobalValueKindLoad is loaded from [Base + Offset].
	GlobalValueKindLoad
	// GlobalValueKindIaddImm is Base + Offset.
	GlobalValueKindIaddImm
)

// GlobalValueData describes how to compute a value which is global to the function,
// such as the base pointer or the current bound of a heap.
type GlobalValueData struct {
	Kind   GlobalValueKind
	Base   GlobalValue
	Offset int64
	Type   Type
	// ReadOnly is true if the loaded value never changes during the execution of the function.
	ReadOnly bool
}

// String implements fmt.Stringer.
func (d GlobalValueData) String() string {
	switch d.Kind {
	case GlobalValueKindVMContext:
		return "vmctx"
	case GlobalValueKindLoad:
		s := fmt.Sprintf("load.%s %s%+#x", d.Type, d.Base, d.Offset)
		if d.ReadOnly {
			s += " readonly"
		}
		return s
	case GlobalValueKindIaddImm:
		return fmt.Sprintf("iadd_imm.%s %s, %#x", d.Type, d.Base, d.Offset)
	}
	panic("BUG: unknown global value kind")
}

// Heap references a HeapData declared in a Builder.
type Heap uint32

// String implements fmt.Stringer.
func (h Heap) String() string {
	return fmt.Sprintf("heap%d", h)
}

// HeapStyle tells how the bound of a heap is known.
type HeapStyle byte

const (
	// HeapStyleStatic heaps have a bound which is a compile-time constant.
	HeapStyleStatic HeapStyle = iota
	// HeapStyleDynamic heaps have a bound read from a global value at every access.
	HeapStyleDynamic
)

// String implements fmt.Stringer.
func (s HeapStyle) String() string {
	if s == HeapStyleDynamic {
		return "dynamic"
	}
	return "static"
}

// HeapData describes a linear memory region accessed through OpcodeHeapAddr.
type HeapData struct {
	// Base is the global value holding the native address of the first byte.
	Base  GlobalValue
	Style HeapStyle
	// Bound is the size in bytes of a HeapStyleStatic heap.
	Bound uint64
	// BoundGV is the global value holding the current size in bytes of a HeapStyleDynamic heap.
	BoundGV GlobalValue
	// OffsetGuard is the number of bytes past the bound that are guaranteed to fault.
	OffsetGuard uint64
	// IndexType is the integer type of the indexes into this heap.
	IndexType Type
}

// String implements fmt.Stringer.
func (h *HeapData) String() string {
	var bound string
	if h.Style == HeapStyleDynamic {
		bound = h.BoundGV.String()
	} else {
		bound = fmt.Sprintf("%#x", h.Bound)
	}
	return fmt.Sprintf("%s %s, bound %s, offset_guard %#x, index_type %s",
		h.Style, h.Base, bound, h.OffsetGuard, h.IndexType)
}
