// Package legalize rewrites SSA functions into the instructions legal on a set of target ISAs.
//
// Ex.
//
//	c, _ := legalize.NewCompiler(ctx, legalize.NewCompileConfig().WithTargets("x86_64 has_ssse3"))
//	err := c.Compile(ctx, b) // b is an ssa.Builder holding the function
package legalize

import (
	"context"

	"golang.org/x/sync/errgroup"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/tetratelabs/legalize/internal/isa"
	"github.com/tetratelabs/legalize/internal/lower"
	"github.com/tetratelabs/legalize/internal/ssa"
)

// Compiler legalizes functions for the targets it was configured with.
type Compiler interface {
	// Targets returns the resolved targets, in configuration order with the host target last.
	Targets() isa.Targets

	// Compile legalizes the function held by b in place.
	//
	// Note: On error, b is left in an unspecified state and must be discarded.
	Compile(ctx context.Context, b ssa.Builder) error

	// CompileAll compiles independent functions concurrently and returns the first error.
	//
	// Note: Each builder is only touched by one goroutine, so they must not share state.
	CompileAll(ctx context.Context, bs ...ssa.Builder) error
}

// NewCompiler resolves the targets of cfg. It fails if there are none, or if one is unknown.
//
// Note: Targets with different pointer widths are accepted. Only functions accessing a heap
// fail to compile for them, since the address width is ambiguous.
func NewCompiler(ctx context.Context, cfg *CompileConfig) (Compiler, error) {
	if cfg == nil {
		cfg = NewCompileConfig()
	}

	ts, err := cfg.resolve()
	if err != nil {
		return nil, errors.Wrap(err, "resolve targets")
	}
	if len(ts) == 0 {
		return nil, errors.New("no targets configured")
	}

	tlog.SpanFromContext(ctx).V("config").Printw("new compiler", "targets", ts, "spectre", cfg.spectreMitigation)

	return &compiler{opts: lower.Options{Targets: ts, SpectreMitigation: cfg.spectreMitigation}}, nil
}

type compiler struct {
	opts lower.Options
}

// Targets implements Compiler.Targets
func (c *compiler) Targets() isa.Targets {
	return append(isa.Targets(nil), c.opts.Targets...)
}

// Compile implements Compiler.Compile
func (c *compiler) Compile(ctx context.Context, b ssa.Builder) error {
	return lower.Run(ctx, b, c.opts)
}

// CompileAll implements Compiler.CompileAll
func (c *compiler) CompileAll(ctx context.Context, bs ...ssa.Builder) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "legalize functions", "n", len(bs))
	defer tr.Finish("err", &err)

	g, ctx := errgroup.WithContext(ctx)
	for _, b := range bs {
		b := b
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return c.Compile(ctx, b)
		})
	}
	return g.Wait()
}
