// Package isa describes the instruction sets the legalizer targets, and answers
// whether an operation has a native encoding on them.
//
// The package does not depend on the IR: callers describe the operation with
// ImmQuery and PairwiseQuery.
package isa

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"tlog.app/go/errors"
)

// Arch is an instruction set architecture.
type Arch byte

const (
	ArchX86_64 Arch = iota
	ArchI686
	ArchAarch64
	ArchRiscv64

	archCount
)

var archNames = [archCount]string{
	ArchX86_64:  "x86_64",
	ArchI686:    "i686",
	ArchAarch64: "aarch64",
	ArchRiscv64: "riscv64",
}

// String implements fmt.Stringer.
func (a Arch) String() string {
	return archNames[a]
}

// PointerBits returns the width of a native pointer.
func (a Arch) PointerBits() byte {
	if a == ArchI686 {
		return 32
	}
	return 64
}

// Feature is an optional extension of an Arch.
type Feature uint32

const (
	FeatureSSSE3 Feature = 1 << iota
	FeatureAVX2
	FeatureNEON
	FeatureV
)

var featureNames = []struct {
	name string
	f    Feature
	arch []Arch
}{
	{"has_ssse3", FeatureSSSE3, []Arch{ArchX86_64, ArchI686}},
	{"has_avx2", FeatureAVX2, []Arch{ArchX86_64, ArchI686}},
	{"has_neon", FeatureNEON, []Arch{ArchAarch64}},
	{"has_v", FeatureV, []Arch{ArchRiscv64}},
}

// baseFeatures are always present on an Arch.
var baseFeatures = [archCount]Feature{
	ArchAarch64: FeatureNEON,
}

// Target is an immutable description of one target ISA.
type Target struct {
	arch     Arch
	features Feature
}

// NewTarget returns the Target for arch with the given extensions enabled on top of the baseline.
func NewTarget(arch Arch, features ...Feature) *Target {
	t := &Target{arch: arch, features: baseFeatures[arch]}
	for _, f := range features {
		t.features |= f
	}
	return t
}

// Lookup parses a target identifier such as "x86_64 has_ssse3" or "aarch64".
func Lookup(spec string) (*Target, error) {
	fields := strings.Fields(spec)
	if len(fields) == 0 {
		return nil, errors.New("empty target")
	}

	arch, ok := archByName(fields[0])
	if !ok {
		return nil, errors.New("unknown target %q", fields[0])
	}

	t := NewTarget(arch)
	for _, flag := range fields[1:] {
		f, err := featureByName(arch, flag)
		if err != nil {
			return nil, errors.Wrap(err, "target %s", arch)
		}
		t.features |= f
	}
	return t, nil
}

func archByName(name string) (Arch, bool) {
	switch name {
	case "x86_64", "amd64":
		return ArchX86_64, true
	case "i686", "x86", "386":
		return ArchI686, true
	case "aarch64", "arm64":
		return ArchAarch64, true
	case "riscv64":
		return ArchRiscv64, true
	}
	return 0, false
}

func featureByName(arch Arch, name string) (Feature, error) {
	for _, fn := range featureNames {
		if fn.name != name {
			continue
		}
		for _, a := range fn.arch {
			if a == arch {
				return fn.f, nil
			}
		}
		return 0, errors.New("flag %s does not apply", name)
	}
	return 0, errors.New("unknown flag %s", name)
}

// Arch returns the architecture of this target.
func (t *Target) Arch() Arch {
	return t.arch
}

// PointerBits returns the width of a native pointer.
func (t *Target) PointerBits() byte {
	return t.arch.PointerBits()
}

// Has returns true if the feature is enabled.
func (t *Target) Has(f Feature) bool {
	return t.features&f == f
}

// String returns the identifier accepted by Lookup.
func (t *Target) String() string {
	str := strings.Builder{}
	str.WriteString(t.arch.String())
	for _, fn := range featureNames {
		if t.Has(fn.f) && baseFeatures[t.arch]&fn.f == 0 {
			str.WriteByte(' ')
			str.WriteString(fn.name)
		}
	}
	return str.String()
}

// DisplayName returns a human readable name of the target, e.g. "Aarch64".
func (t *Target) DisplayName() string {
	return cases.Title(language.English).String(t.arch.String())
}

// Targets is the list of targets a function is compiled for at once.
// An operation is legal only if it is legal on every target.
type Targets []*Target

// ParseTargets calls Lookup on each spec.
func ParseTargets(specs ...string) (Targets, error) {
	ts := make(Targets, 0, len(specs))
	for _, s := range specs {
		t, err := Lookup(s)
		if err != nil {
			return nil, err
		}
		ts = append(ts, t)
	}
	return ts, nil
}

// ImmLegal returns true if every target encodes q natively. False for no targets.
func (ts Targets) ImmLegal(q ImmQuery) bool {
	return ts.all(func(t *Target) bool {
		_, ok := t.Imm(q)
		return ok
	})
}

// PairwiseFused returns true if every target has a fused widening pairwise add for q.
func (ts Targets) PairwiseFused(q PairwiseQuery) bool {
	return ts.all(func(t *Target) bool {
		_, ok := t.PairwiseFused(q)
		return ok
	})
}

func (ts Targets) all(fn func(t *Target) bool) bool {
	if len(ts) == 0 {
		return false
	}
	for _, t := range ts {
		if !fn(t) {
			return false
		}
	}
	return true
}

// PointerBits returns the pointer width shared by all the targets.
func (ts Targets) PointerBits() (byte, error) {
	if len(ts) == 0 {
		return 0, errors.New("no targets")
	}
	bits := ts[0].PointerBits()
	for _, t := range ts[1:] {
		if t.PointerBits() != bits {
			return 0, errors.New("targets disagree on pointer width: %s is %d-bit, %s is %d-bit",
				ts[0].arch, bits, t.arch, t.PointerBits())
		}
	}
	return bits, nil
}

// String implements fmt.Stringer.
func (ts Targets) String() string {
	strs := make([]string, len(ts))
	for i, t := range ts {
		strs[i] = t.String()
	}
	return strings.Join(strs, ", ")
}
