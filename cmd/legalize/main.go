package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/tetratelabs/legalize"
	"github.com/tetratelabs/legalize/internal/filecheck"
	"github.com/tetratelabs/legalize/internal/isa"
	"github.com/tetratelabs/legalize/internal/ssa"
	"github.com/tetratelabs/legalize/internal/testcases"
)

func main() {
	listCmd := &cli.Command{
		Name:        "list",
		Description: "list the built-in functions",
		Action:      listAct,
	}

	targetsCmd := &cli.Command{
		Name:        "targets",
		Description: "describe targets, all known ones and the host if none given",
		Action:      targetsAct,
		Args:        cli.Args{},
	}

	compileCmd := &cli.Command{
		Name:        "compile",
		Description: "legalize a built-in function: compile <function> <target>... [spectre]",
		Action:      compileAct,
		Args:        cli.Args{},
	}

	checkCmd := &cli.Command{
		Name:        "check",
		Description: "run txtar fixtures",
		Action:      checkAct,
		Args:        cli.Args{},
	}

	app := &cli.Command{
		Name:        "legalize",
		Description: "legalize rewrites SSA functions into instructions legal on target ISAs",
		Commands: []*cli.Command{
			listCmd,
			targetsCmd,
			compileCmd,
			checkCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func listAct(c *cli.Command) error {
	listFunctions(os.Stdout)
	return nil
}

func targetsAct(c *cli.Command) error {
	return describeTargets(os.Stdout, c.Args...)
}

func compileAct(c *cli.Command) error {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	if len(c.Args) < 2 {
		return errors.New("usage: compile <function> <target>... [spectre]")
	}

	return compileFunction(ctx, os.Stdout, c.Args[0], c.Args[1:]...)
}

func checkAct(c *cli.Command) error {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	return checkFixtures(ctx, os.Stdout, c.Args...)
}

func listFunctions(w io.Writer) {
	for _, tc := range testcases.All() {
		fmt.Fprintln(w, tc.Name)
	}
}

func describeTargets(w io.Writer, specs ...string) error {
	var ts isa.Targets
	if len(specs) == 0 {
		for _, a := range []isa.Arch{isa.ArchX86_64, isa.ArchI686, isa.ArchAarch64, isa.ArchRiscv64} {
			ts = append(ts, isa.NewTarget(a))
		}
		if h, err := isa.Host(); err == nil {
			ts = append(ts, h)
		}
	} else {
		var err error
		ts, err = isa.ParseTargets(specs...)
		if err != nil {
			return err
		}
	}

	for _, t := range ts {
		fmt.Fprintln(w, t.Describe())
	}
	return nil
}

// compileFunction prints the function before and after legalization.
// An argument "spectre" among the targets enables the mitigation.
func compileFunction(ctx context.Context, w io.Writer, name string, args ...string) error {
	tc, ok := testcases.Lookup(name)
	if !ok {
		return errors.New("unknown function %q", name)
	}

	cfg := legalize.NewCompileConfig()
	for _, a := range args {
		if a == "spectre" {
			cfg = cfg.WithSpectreMitigation(true)
		} else {
			cfg = cfg.WithTargets(a)
		}
	}

	c, err := legalize.NewCompiler(ctx, cfg)
	if err != nil {
		return err
	}

	b := ssa.NewBuilder()
	tc.Build(b)
	fmt.Fprintf(w, "; %s before\n%s", name, b.Format())

	if err := c.Compile(ctx, b); err != nil {
		return errors.Wrap(err, "compile %v", name)
	}
	fmt.Fprintf(w, "\n; %s after\n%s", name, b.Format())
	return nil
}

// checkFixtures runs every fixture concurrently and reports the first failure.
func checkFixtures(ctx context.Context, w io.Writer, paths ...string) error {
	if len(paths) == 0 {
		return errors.New("no fixtures given")
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)

	for _, path := range paths {
		path := path
		g.Go(func() error {
			if err := checkFixture(ctx, path); err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintf(w, "ok %s\n", path)
			return nil
		})
	}

	return g.Wait()
}

func checkFixture(ctx context.Context, path string) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "check fixture", "path", path)
	defer tr.Finish("err", &err)

	f, err := filecheck.ReadFixture(path)
	if err != nil {
		return err
	}

	c, err := legalize.NewCompiler(ctx, legalize.NewCompileConfig().WithTargets(f.Targets...).WithSpectreMitigation(f.Spectre))
	if err != nil {
		return errors.Wrap(err, "%s", path)
	}

	err = f.Check(func(name string) (string, error) {
		tc, ok := testcases.Lookup(name)
		if !ok {
			return "", errors.New("unknown function %q", name)
		}

		b := ssa.NewBuilder()
		tc.Build(b)
		if err := c.Compile(ctx, b); err != nil {
			return "", err
		}
		return b.Format(), nil
	})
	if err != nil {
		return errors.Wrap(err, "%s", path)
	}
	return nil
}
