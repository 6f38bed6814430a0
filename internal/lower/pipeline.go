// Package lower implements the passes rewriting a function into the instructions
// legal on every requested target.
package lower

import (
	"context"
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/tetratelabs/legalize/internal/isa"
	"github.com/tetratelabs/legalize/internal/legalizeapi"
	"github.com/tetratelabs/legalize/internal/ssa"
)

// Options configures Run.
type Options struct {
	// Targets are the ISAs the result must be legal on. A rewrite only happens if
	// it is legal on all of them.
	Targets isa.Targets
	// SpectreMitigation guards the address of every checked heap access with a
	// SelectSpectreGuard on the bound check.
	SpectreMitigation bool
}

// Run legalizes the function held by b in place.
//
// The passes run in this order: simplify, heap lowering, fusion. Immediates are folded
// before heap accesses are expanded so that the bound checks are not folded again.
// On error, b is left in an unspecified state and must be discarded.
func Run(ctx context.Context, b ssa.Builder, opts Options) (err error) {
	name := b.Signature().Name

	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "legalize function", "func", name, "targets", opts.Targets)
	defer tr.Finish("err", &err)

	if len(opts.Targets) == 0 {
		return errors.New("%s: no targets", name)
	}

	// The passes rely on every block being terminated.
	if err := b.Validate(); err != nil {
		return errors.Wrap(err, "%s: invalid input", name)
	}

	if legalizeapi.PrintSSABeforeLegalize {
		fmt.Println("[[[SSA before legalize]]]" + b.Format())
	}
	if tr.If("dump_before") {
		tr.Printw("function before", "ssa", b.Format())
	}

	simplify(ctx, b, opts.Targets)

	if err := lowerHeapAccesses(ctx, b, opts.Targets, opts.SpectreMitigation); err != nil {
		return errors.Wrap(err, "%s: heap lowering", name)
	}

	fuseWidenPairwise(ctx, b, opts.Targets)

	if legalizeapi.SSAValidationEnabled {
		if err := b.Validate(); err != nil {
			return errors.Wrap(err, "%s: invalid output", name)
		}
	}

	if legalizeapi.PrintSSAAfterLegalize {
		fmt.Println("[[[SSA after legalize]]]" + b.Format())
	}
	if tr.If("dump_after") {
		tr.Printw("function after", "ssa", b.Format())
	}
	return nil
}
