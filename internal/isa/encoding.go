package isa

import (
	"fmt"
	"math"

	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/arm64"
	"github.com/twitchyliquid64/golang-asm/obj/riscv"
	"github.com/twitchyliquid64/golang-asm/obj/x86"
)

// Encoding is the native instruction selected for an operation.
type Encoding struct {
	As obj.As
	// Name is set for instructions the assembler has no opcode for.
	Name string
}

// String implements fmt.Stringer.
func (e Encoding) String() string {
	if e.Name != "" {
		return e.Name
	}
	return e.As.String()
}

// OpClass is the class of operation an ImmQuery asks about.
type OpClass byte

const (
	opClassInvalid OpClass = iota
	// OpIaddImm is an integer addition with an immediate operand. Subtractions are asked
	// as additions of the negated constant.
	OpIaddImm
	// OpIcmpImm is an integer comparison with an immediate operand.
	OpIcmpImm
)

// Cond is the condition of an OpIcmpImm.
type Cond byte

const (
	CondEq Cond = iota
	CondNe
	CondSignedLess
	CondSignedGreaterOrEqual
	CondSignedGreater
	CondSignedLessOrEqual
	CondUnsignedLess
	CondUnsignedGreaterOrEqual
	CondUnsignedGreater
	CondUnsignedLessOrEqual
)

// ImmQuery asks whether an operation of Bits width can take Imm as an immediate.
// Imm must already be sign-extended from Bits.
type ImmQuery struct {
	Op   OpClass
	Bits byte
	Imm  int64
	Cond Cond
}

// PairwiseQuery asks whether a single instruction extends and adds adjacent lanes.
type PairwiseQuery struct {
	LaneBits byte
	Signed   bool
}

// Imm returns the instruction encoding q, or false if q needs the constant in a register.
func (t *Target) Imm(q ImmQuery) (Encoding, bool) {
	switch t.arch {
	case ArchX86_64:
		return x86Imm(q, true)
	case ArchI686:
		return x86Imm(q, false)
	case ArchAarch64:
		return arm64Imm(q)
	case ArchRiscv64:
		return riscvImm(q)
	}
	return Encoding{}, false
}

var (
	x86Add = map[byte]obj.As{8: x86.AADDB, 16: x86.AADDW, 32: x86.AADDL, 64: x86.AADDQ}
	x86Cmp = map[byte]obj.As{8: x86.ACMPB, 16: x86.ACMPW, 32: x86.ACMPL, 64: x86.ACMPQ}
)

// x86Imm: immediates are at most 32 bits and sign-extended to the operand size.
func x86Imm(q ImmQuery, is64 bool) (Encoding, bool) {
	if q.Bits == 64 && !is64 {
		return Encoding{}, false
	}
	if !fitsSigned(q.Imm, min(q.Bits, 32)) {
		return Encoding{}, false
	}

	var as obj.As
	switch q.Op {
	case OpIaddImm:
		as = x86Add[q.Bits]
	case OpIcmpImm:
		as = x86Cmp[q.Bits]
	}
	if as == 0 {
		return Encoding{}, false
	}
	return Encoding{As: as}, true
}

// arm64Imm: arithmetic immediates are 12 bits, optionally shifted left by 12.
// A negative constant is encoded by switching to the inverse instruction.
func arm64Imm(q ImmQuery) (Encoding, bool) {
	if q.Bits != 32 && q.Bits != 64 {
		return Encoding{}, false
	}
	w := q.Bits == 32

	var pos, neg obj.As
	switch q.Op {
	case OpIaddImm:
		pos, neg = pick(w, arm64.AADDW, arm64.AADD), pick(w, arm64.ASUBW, arm64.ASUB)
	case OpIcmpImm:
		pos, neg = pick(w, arm64.ACMPW, arm64.ACMP), pick(w, arm64.ACMNW, arm64.ACMN)
	default:
		return Encoding{}, false
	}

	if _, _, ok := asImm12(uint64(q.Imm)); ok && q.Imm >= 0 {
		return Encoding{As: pos}, true
	}
	if q.Imm != math.MinInt64 {
		if _, _, ok := asImm12(uint64(-q.Imm)); ok && q.Imm < 0 {
			return Encoding{As: neg}, true
		}
	}
	return Encoding{}, false
}

// asImm12 returns the immediate value and the shift (0 or 1 meaning LSL #12)
// if v is encodable as an arm64 arithmetic immediate.
func asImm12(v uint64) (imm uint16, shift byte, ok bool) {
	if v>>12 == 0 {
		return uint16(v), 0, true
	}
	if v&0xfff == 0 && v>>24 == 0 {
		return uint16(v >> 12), 1, true
	}
	return 0, 0, false
}

// riscvImm: I-type immediates are signed 12 bits. Comparisons only exist as set-less-than.
func riscvImm(q ImmQuery) (Encoding, bool) {
	if q.Bits != 32 && q.Bits != 64 {
		return Encoding{}, false
	}
	if !fitsSigned(q.Imm, 12) {
		return Encoding{}, false
	}

	switch q.Op {
	case OpIaddImm:
		return Encoding{As: pick(q.Bits == 32, riscv.AADDIW, riscv.AADDI)}, true
	case OpIcmpImm:
		switch q.Cond {
		case CondSignedLess:
			return Encoding{As: riscv.ASLTI}, true
		case CondUnsignedLess:
			return Encoding{As: riscv.ASLTIU}, true
		}
	}
	return Encoding{}, false
}

// PairwiseFused returns the instruction which extends and adds adjacent lanes in one go.
func (t *Target) PairwiseFused(q PairwiseQuery) (Encoding, bool) {
	switch t.arch {
	case ArchX86_64, ArchI686:
		if !t.Has(FeatureSSSE3) {
			return Encoding{}, false
		}
		switch {
		case q.LaneBits == 8:
			// Multiply-add by a splat of ones; the signedness picks which operand is the input.
			return Encoding{As: x86.APMADDUBSW}, true
		case q.LaneBits == 16 && q.Signed:
			return Encoding{As: x86.APMADDWL}, true
		}
	case ArchAarch64:
		if !t.Has(FeatureNEON) {
			return Encoding{}, false
		}
		switch q.LaneBits {
		case 8, 16, 32:
			if q.Signed {
				return Encoding{Name: "SADDLP"}, true
			}
			return Encoding{Name: "UADDLP"}, true
		}
	}
	return Encoding{}, false
}

// Trap returns the instruction used for trap blocks.
func (t *Target) Trap() Encoding {
	switch t.arch {
	case ArchX86_64, ArchI686:
		return Encoding{As: x86.AUD2}
	case ArchAarch64:
		return Encoding{As: arm64.ABRK}
	default:
		return Encoding{As: riscv.AEBREAK}
	}
}

// SpectreSelect returns the conditional move used for SelectSpectreGuard on a pointer,
// or false if the target has none and masks with arithmetic instead.
func (t *Target) SpectreSelect() (Encoding, bool) {
	switch t.arch {
	case ArchX86_64:
		return Encoding{As: x86.ACMOVQHI}, true
	case ArchI686:
		return Encoding{As: x86.ACMOVLHI}, true
	case ArchAarch64:
		return Encoding{As: arm64.ACSEL}, true
	}
	return Encoding{}, false
}

func fitsSigned(v int64, bits byte) bool {
	if bits >= 64 {
		return true
	}
	lim := int64(1) << (bits - 1)
	return v >= -lim && v < lim
}

func pick(w bool, a, b obj.As) obj.As {
	if w {
		return a
	}
	return b
}

// Describe returns a one line summary of the native sequences used on t, e.g.
// "X86_64 (x86_64 has_ssse3): pointer 64-bit, trap UD2, spectre select CMOVQHI".
func (t *Target) Describe() string {
	sel := "none"
	if enc, ok := t.SpectreSelect(); ok {
		sel = enc.String()
	}
	return fmt.Sprintf("%s (%s): pointer %d-bit, trap %s, spectre select %s",
		t.DisplayName(), t, t.PointerBits(), t.Trap(), sel)
}
