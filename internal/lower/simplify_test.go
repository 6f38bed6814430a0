package lower

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetratelabs/legalize/internal/isa"
	"github.com/tetratelabs/legalize/internal/ssa"
	"github.com/tetratelabs/legalize/internal/testcases"
)

func targetsFor(t *testing.T, specs ...string) isa.Targets {
	ts, err := isa.ParseTargets(specs...)
	require.NoError(t, err)
	return ts
}

func TestSimplify(t *testing.T) {
	for _, tc := range []struct {
		name      string
		tc        testcases.TestCase
		targets   []string
		before    string
		after     string
		unchanged bool
	}{
		{
			name:    "iadd i32",
			tc:      testcases.IaddImm,
			targets: []string{"x86_64"},
			before: `
blk0: (v0:i32)
	v1:i32 = Iconst_32 0x2
	v2:i32 = Iadd v0, v1
	Return v2
`,
			after: `
blk0: (v0:i32)
	v1:i32 = Iconst_32 0x2
	v2:i32 = IaddImm v0, 0x2
	Return v2
`,
		},
		{
			name:    "iadd constant first",
			tc:      testcases.IaddImmConstFirst,
			targets: []string{"aarch64"},
			after: `
blk0: (v0:i32)
	v1:i32 = Iconst_32 0x2
	v2:i32 = IaddImm v0, 0x2
	Return v2
`,
		},
		{
			name:    "isub i32",
			tc:      testcases.IsubImm,
			targets: []string{"x86_64"},
			before: `
blk0: (v0:i32)
	v1:i32 = Iconst_32 0x2
	v2:i32 = Isub v0, v1
	Return v2
`,
			after: `
blk0: (v0:i32)
	v1:i32 = Iconst_32 0x2
	v2:i32 = IaddImm v0, -0x2
	Return v2
`,
		},
		{
			name:    "isub min wraps to itself",
			tc:      testcases.IsubImmMin,
			targets: []string{"x86_64"},
			after: `
blk0: (v0:i32)
	v1:i32 = Iconst_32 0x80000000
	v2:i32 = IaddImm v0, -0x80000000
	Return v2
`,
		},
		{
			name:      "isub min not an imm12",
			tc:        testcases.IsubImmMin,
			targets:   []string{"riscv64"},
			unchanged: true,
		},
		{
			name:    "icmp feeding bint",
			tc:      testcases.IcmpImm,
			targets: []string{"x86_64"},
			before: `
blk0: (v0:i32)
	v1:i32 = Iconst_32 0x2
	v2:b1 = Icmp lt_s, v0, v1
	v3:i32 = Bint v2
	Return v3
`,
			after: `
blk0: (v0:i32)
	v1:i32 = Iconst_32 0x2
	v2:b1 = IcmpImm lt_s, v0, 0x2
	v3:i32 = Bint v2
	Return v3
`,
		},
		{
			name:    "icmp constant first swaps the condition",
			tc:      testcases.IcmpImmConstFirst,
			targets: []string{"x86_64"},
			after: `
blk0: (v0:i32)
	v1:i32 = Iconst_32 0x2
	v2:b1 = IcmpImm gt_s, v0, 0x2
	v3:i32 = Bint v2
	Return v3
`,
		},
		{
			name:    "icmp lt_s on riscv64",
			tc:      testcases.IcmpImm,
			targets: []string{"riscv64"},
			after: `
blk0: (v0:i32)
	v1:i32 = Iconst_32 0x2
	v2:b1 = IcmpImm lt_s, v0, 0x2
	v3:i32 = Bint v2
	Return v3
`,
		},
		{
			// riscv64 only has set-less-than, so gt_s needs the constant in a register.
			name:      "icmp gt_s on riscv64",
			tc:        testcases.IcmpImmConstFirst,
			targets:   []string{"riscv64"},
			unchanged: true,
		},
		{
			name:    "iadd i64",
			tc:      testcases.IaddImm64,
			targets: []string{"x86_64"},
			after: `
blk0: (v0:i64)
	v1:i64 = Iconst_64 0x2
	v2:i64 = IaddImm v0, 0x2
	Return v2
`,
		},
		{
			name:    "iadd i64 with a target lacking 64-bit immediates",
			tc:      testcases.IaddImm64,
			targets: []string{"x86_64", "i686"},
			before: `
blk0: (v0:i64)
	v1:i64 = Iconst_64 0x2
	v2:i64 = Iadd v0, v1
	Return v2
`,
			unchanged: true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			b := ssa.NewBuilder()
			tc.tc.Build(b)

			before := b.Format()
			if tc.before != "" {
				require.Equal(t, tc.before, before)
			}

			simplify(context.Background(), b, targetsFor(t, tc.targets...))
			if tc.unchanged {
				require.Equal(t, before, b.Format())
			} else {
				require.Equal(t, tc.after, b.Format())
			}
			require.NoError(t, b.Validate())
		})
	}
}

func TestSimplify_keepsValueDefinition(t *testing.T) {
	b := ssa.NewBuilder()
	testcases.IaddImm.Build(b)

	ret := b.BlockIteratorBegin().Tail()
	v := ret.ReturnVals()[0]

	simplify(context.Background(), b, targetsFor(t, "x86_64"))

	def := b.ValueDefinition(v)
	require.Equal(t, ssa.OpcodeIaddImm, def.Opcode())
	require.Equal(t, v, def.Return())
	_, imm := def.IaddImmData()
	require.Equal(t, int64(2), imm)
}

func TestSimplify_icmpWithoutBint(t *testing.T) {
	b := ssa.NewBuilder()
	b.Init(&ssa.Signature{Name: "icmp_branch", Params: []ssa.Type{ssa.TypeI32}})
	entry, exit := b.AllocateBasicBlock(), b.AllocateBasicBlock()
	x := entry.AddParam(b, ssa.TypeI32)

	b.SetCurrentBlock(entry)
	iconst := b.AllocateInstruction().AsIconst32(7)
	b.InsertInstruction(iconst)
	icmp := b.AllocateInstruction().AsIcmp(x, iconst.Return(), ssa.IntegerCmpCondEqual)
	b.InsertInstruction(icmp)
	b.InsertCondBranch(entry, icmp.Return(), exit, exit)
	b.SetCurrentBlock(exit)
	b.InsertInstruction(b.AllocateInstruction().AsReturn(nil))

	simplify(context.Background(), b, targetsFor(t, "x86_64"))
	require.Equal(t, ssa.OpcodeIcmp, icmp.Opcode())
}
