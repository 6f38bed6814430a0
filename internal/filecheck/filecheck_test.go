package filecheck

import (
	"testing"

	"github.com/stretchr/testify/require"
	"tlog.app/go/errors"
)

const output = `
blk0: (v0:i64, v1:i32)
	v3:i64 = UExtend v1, 32->64
	v4:b1 = IcmpImm le_u, v3, 0x10000
	Brnz v4, blk1
	Jump blk2

blk1: () <-- (blk0)
	v5:i64 = Load v0, 0x0
	v2:i64 = Iadd v5, v3
	Return v2

blk2: () <-- (blk0)
	Trap heap_oob
`

func TestParse(t *testing.T) {
	ds, err := Parse(`
; static bound
check:   blk0: (v0:i64,   v1:i32)
nextln: v3:i64 = UExtend v1, 32->64
`)
	require.NoError(t, err)
	require.Equal(t, []Directive{
		{Kind: KindCheck, Text: "blk0: (v0:i64, v1:i32)", Line: 3},
		{Kind: KindNextLine, Text: "v3:i64 = UExtend v1, 32->64", Line: 4},
	}, ds)

	_, err = Parse("nextln: Return v2")
	require.ErrorContains(t, err, "line 1: nextln: without a preceding check:")

	_, err = Parse("check: blk0: ()\nsameln: blk1")
	require.ErrorContains(t, err, `line 2: expected check: or nextln:, got "sameln: blk1"`)
}

func TestMatch(t *testing.T) {
	for _, tc := range []struct {
		name   string
		src    string
		errMsg string
	}{
		{
			name: "adjacent lines",
			src: `
check: v4:b1 = IcmpImm le_u, v3, 0x10000
nextln: Brnz v4, blk1
nextln: Jump blk2
`,
		},
		{
			name: "check skips ahead",
			src: `
check: blk0: (v0:i64, v1:i32)
check: Trap heap_oob
`,
		},
		{
			name: "anchor recurs",
			src: `
check: blk1: () <-- (blk0)
check: Return v2
check: blk2: () <-- (blk0)
nextln: Trap heap_oob
`,
		},
		{
			name: "nextln does not skip",
			src: `
check: blk1: () <-- (blk0)
nextln: v2:i64 = Iadd v5, v3
`,
			errMsg: `line 3: nextln: "v2:i64 = Iadd v5, v3" does not match output line 9 "v5:i64 = Load v0, 0x0"`,
		},
		{
			name: "order matters",
			src: `
check: blk2: () <-- (blk0)
check: blk1: () <-- (blk0)
`,
			errMsg: `line 3: check: "blk1: () <-- (blk0)" not found`,
		},
		{
			name: "past the end",
			src: `
check: Trap heap_oob
nextln:
nextln: Return
`,
			errMsg: `line 4: nextln: "Return" past the end of output`,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ds, err := Parse(tc.src)
			require.NoError(t, err)

			err = Match(ds, output)
			if tc.errMsg != "" {
				require.ErrorContains(t, err, tc.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestParseFixture(t *testing.T) {
	f, err := ParseFixture("heap.txtar", []byte(`# comment
target: x86_64 has_ssse3
target: aarch64
spectre: on
-- iadd_imm --
check: blk0: (v0:i32)
nextln: v1:i32 = Iconst_32 0x2
-- isub_imm --
check: v2:i32 = IaddImm v0, -0x2
`))
	require.NoError(t, err)
	require.Equal(t, []string{"x86_64 has_ssse3", "aarch64"}, f.Targets)
	require.True(t, f.Spectre)
	require.Len(t, f.Cases, 2)
	require.Equal(t, "iadd_imm", f.Cases[0].Name)
	require.Len(t, f.Cases[0].Directives, 2)
	require.Equal(t, "isub_imm", f.Cases[1].Name)

	compiled := map[string]string{
		"iadd_imm": "\nblk0: (v0:i32)\n\tv1:i32 = Iconst_32 0x2\n\tv2:i32 = IaddImm v0, 0x2\n",
		"isub_imm": "\nblk0: (v0:i32)\n\tv2:i32 = IaddImm v0, -0x2\n",
	}
	require.NoError(t, f.Check(func(name string) (string, error) { return compiled[name], nil }))

	err = f.Check(func(name string) (string, error) { return "", errors.New("boom") })
	require.ErrorContains(t, err, "iadd_imm")
	require.ErrorContains(t, err, "boom")
}

func TestParseFixture_errors(t *testing.T) {
	for _, tc := range []struct {
		src, errMsg string
	}{
		{src: "spectre: on\n", errMsg: "no target"},
		{src: "target: x86_64\nspectre: maybe\n", errMsg: `line 2: spectre must be on or off, got "maybe"`},
		{src: "target: x86_64\nopt_level: speed\n", errMsg: `line 2: unknown key "opt_level"`},
		{src: "target x86_64\n", errMsg: "line 1: expected key: value"},
		{src: "target: x86_64\n-- f --\nnextln: x\n", errMsg: "nextln: without a preceding check:"},
	} {
		_, err := ParseFixture("bad.txtar", []byte(tc.src))
		require.ErrorContains(t, err, tc.errMsg)
	}
}
