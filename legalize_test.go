package legalize

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"tlog.app/go/errors"

	"github.com/tetratelabs/legalize/internal/filecheck"
	"github.com/tetratelabs/legalize/internal/ssa"
	"github.com/tetratelabs/legalize/internal/testcases"
)

var testCtx = context.Background()

func TestNewCompiler(t *testing.T) {
	c, err := NewCompiler(testCtx, NewCompileConfig().WithTargets("x86_64", "aarch64"))
	require.NoError(t, err)
	require.Equal(t, "x86_64, aarch64", c.Targets().String())

	_, err = NewCompiler(testCtx, nil)
	require.ErrorContains(t, err, "no targets configured")

	_, err = NewCompiler(testCtx, NewCompileConfig().WithTargets("mips"))
	require.ErrorContains(t, err, `resolve targets: unknown target "mips"`)

	// Mixed pointer widths only matter to heap accesses.
	c, err = NewCompiler(testCtx, NewCompileConfig().WithTargets("x86_64", "i686"))
	require.NoError(t, err)

	b := ssa.NewBuilder()
	testcases.IaddImm.Build(b)
	require.NoError(t, c.Compile(testCtx, b))

	b = ssa.NewBuilder()
	testcases.HeapAddr(testcases.StaticHeap64K, 0, 4).Build(b)
	require.ErrorContains(t, c.Compile(testCtx, b), "targets disagree on pointer width")
}

func TestCompiler_Targets_copy(t *testing.T) {
	c, err := NewCompiler(testCtx, NewCompileConfig().WithTargets("x86_64"))
	require.NoError(t, err)

	ts := c.Targets()
	ts[0] = nil
	require.NotNil(t, c.Targets()[0])
}

func TestCompiler_CompileAll(t *testing.T) {
	c, err := NewCompiler(testCtx, NewCompileConfig().WithTargets("x86_64 has_ssse3").WithSpectreMitigation(true))
	require.NoError(t, err)

	all := testcases.All()
	bs := make([]ssa.Builder, len(all))
	for i, tc := range all {
		bs[i] = ssa.NewBuilder()
		tc.Build(bs[i])
	}
	require.NoError(t, c.CompileAll(testCtx, bs...))

	// Compiling one at a time gives the same result.
	for i, tc := range all {
		b := ssa.NewBuilder()
		tc.Build(b)
		require.NoError(t, c.Compile(testCtx, b))
		require.Equal(t, b.Format(), bs[i].Format(), tc.Name)
	}
}

func TestCompiler_CompileAll_error(t *testing.T) {
	c, err := NewCompiler(testCtx, NewCompileConfig().WithTargets("i686"))
	require.NoError(t, err)

	ok := ssa.NewBuilder()
	testcases.IaddImm.Build(ok)
	bad := ssa.NewBuilder()
	testcases.HeapAddr(testcases.StaticHeap64K, 0, 4).Build(bad)

	err = c.CompileAll(testCtx, ok, bad)
	require.ErrorContains(t, err, "address type i64 does not match the 32-bit pointer")
}

func TestFixtures(t *testing.T) {
	paths, err := filepath.Glob("testdata/*.txtar")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		path := path
		t.Run(filepath.Base(path), func(t *testing.T) {
			f, err := filecheck.ReadFixture(path)
			require.NoError(t, err)

			c, err := NewCompiler(testCtx, NewCompileConfig().WithTargets(f.Targets...).WithSpectreMitigation(f.Spectre))
			require.NoError(t, err)

			err = f.Check(func(name string) (string, error) {
				tc, ok := testcases.Lookup(name)
				if !ok {
					return "", errors.New("unknown function %q", name)
				}
				b := ssa.NewBuilder()
				tc.Build(b)
				if err := c.Compile(testCtx, b); err != nil {
					return "", err
				}
				return b.Format(), nil
			})
			require.NoError(t, err)
		})
	}
}
