package legalize

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetratelabs/legalize/internal/isa"
)

func TestCompileConfig(t *testing.T) {
	tests := []struct {
		name     string
		with     func(*CompileConfig) *CompileConfig
		expected *CompileConfig
	}{
		{
			name: "WithTargets",
			with: func(c *CompileConfig) *CompileConfig {
				return c.WithTargets("x86_64 has_ssse3", "aarch64")
			},
			expected: &CompileConfig{targets: []string{"x86_64 has_ssse3", "aarch64"}},
		},
		{
			name: "WithTargets appends",
			with: func(c *CompileConfig) *CompileConfig {
				return c.WithTargets("x86_64").WithTargets("riscv64")
			},
			expected: &CompileConfig{targets: []string{"x86_64", "riscv64"}},
		},
		{
			name:     "WithHostTarget",
			with:     func(c *CompileConfig) *CompileConfig { return c.WithHostTarget() },
			expected: &CompileConfig{hostTarget: true},
		},
		{
			name:     "WithSpectreMitigation",
			with:     func(c *CompileConfig) *CompileConfig { return c.WithSpectreMitigation(true) },
			expected: &CompileConfig{spectreMitigation: true},
		},
	}

	for _, tt := range tests {
		tc := tt

		t.Run(tc.name, func(t *testing.T) {
			input := &CompileConfig{}
			cc := tc.with(input)
			require.Equal(t, tc.expected, cc)
			// The source wasn't modified
			require.Equal(t, &CompileConfig{}, input)
		})
	}

	t.Run("shared base", func(t *testing.T) {
		base := NewCompileConfig().WithTargets("x86_64")
		a := base.WithTargets("aarch64")
		b := base.WithTargets("riscv64")
		require.Equal(t, []string{"x86_64"}, base.targets)
		require.Equal(t, []string{"x86_64", "aarch64"}, a.targets)
		require.Equal(t, []string{"x86_64", "riscv64"}, b.targets)
	})
}

func TestCompileConfig_resolve(t *testing.T) {
	ts, err := NewCompileConfig().WithTargets("x86_64 has_ssse3", "aarch64").resolve()
	require.NoError(t, err)
	require.Equal(t, isa.Targets{
		isa.NewTarget(isa.ArchX86_64, isa.FeatureSSSE3),
		isa.NewTarget(isa.ArchAarch64),
	}, ts)

	_, err = NewCompileConfig().WithTargets("x86_64 has_v").resolve()
	require.ErrorContains(t, err, "target x86_64: flag has_v does not apply")

	if _, herr := isa.Host(); herr == nil {
		ts, err = NewCompileConfig().WithTargets("riscv64").WithHostTarget().resolve()
		require.NoError(t, err)
		require.Len(t, ts, 2)
		require.Equal(t, isa.ArchRiscv64, ts[0].Arch())
	}
}
