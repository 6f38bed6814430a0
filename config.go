package legalize

import (
	"github.com/tetratelabs/legalize/internal/isa"
)

// CompileConfig controls compilation behavior, with the default implementation as NewCompileConfig.
//
// Each With method returns a copy, so a config can be shared and specialized:
//
//	base := legalize.NewCompileConfig().WithSpectreMitigation(true)
//	x86 := base.WithTargets("x86_64 has_ssse3")
//	arm := base.WithTargets("aarch64")
type CompileConfig struct {
	targets           []string
	hostTarget        bool
	spectreMitigation bool
}

// defaultConfig helps avoid copy/pasting the wrong defaults.
var defaultConfig = &CompileConfig{}

// clone ensures all fields are copied even if nil.
func (c *CompileConfig) clone() *CompileConfig {
	return &CompileConfig{
		targets:           append([]string(nil), c.targets...),
		hostTarget:        c.hostTarget,
		spectreMitigation: c.spectreMitigation,
	}
}

// NewCompileConfig returns a config with no targets and spectre mitigation off.
// At least one target must be added with WithTargets or WithHostTarget.
func NewCompileConfig() *CompileConfig {
	return defaultConfig.clone()
}

// WithTargets appends targets to legalize for, e.g. "x86_64 has_ssse3" or "aarch64".
//
// Notes:
// * An operation is only rewritten into a native form if every target encodes it.
// * Names are resolved by NewCompiler, which fails on unknown targets or flags.
func (c *CompileConfig) WithTargets(targets ...string) *CompileConfig {
	ret := c.clone()
	ret.targets = append(ret.targets, targets...)
	return ret
}

// WithHostTarget adds the target detected on the machine running the compiler.
func (c *CompileConfig) WithHostTarget() *CompileConfig {
	ret := c.clone()
	ret.hostTarget = true
	return ret
}

// WithSpectreMitigation guards the address of every bound-checked heap access, so that it
// is zero when the check fails even under speculative execution. Defaults to false.
func (c *CompileConfig) WithSpectreMitigation(enabled bool) *CompileConfig {
	ret := c.clone()
	ret.spectreMitigation = enabled
	return ret
}

// resolve looks up the configured targets, the host one last.
func (c *CompileConfig) resolve() (isa.Targets, error) {
	ts, err := isa.ParseTargets(c.targets...)
	if err != nil {
		return nil, err
	}
	if c.hostTarget {
		h, err := isa.Host()
		if err != nil {
			return nil, err
		}
		ts = append(ts, h)
	}
	return ts, nil
}
