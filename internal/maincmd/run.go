package maincmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mna/mainer"

	"github.com/orus-lang/orus/lang/ast"
	"github.com/orus-lang/orus/lang/compiler"
	"github.com/orus-lang/orus/lang/machine"
)

func (c *Cmd) Run(_ context.Context, stdio mainer.Stdio, args []string) error {
	for _, file := range args {
		if err := c.runFile(stdio, file); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cmd) runFile(stdio mainer.Stdio, file string) error {
	start := time.Now()

	if c.ShowTokens {
		if err := TokenizeFiles(stdio, file); err != nil {
			return err
		}
	}

	cp, err := compileFile(file)
	if err != nil {
		printErr(stdio.Stderr, err)
		return err
	}

	if c.ShowAST {
		printer := ast.Printer{Output: stdio.Stdout, Fset: cp.fset}
		if perr := printer.Print(cp.arena, cp.chunk); perr != nil {
			return perr
		}
	}
	if c.ShowOptimizionStats {
		fmt.Fprintf(stdio.Stdout, "optimizer: %d constants folded, %d expressions folded, %d nodes eliminated\n",
			cp.stats.ConstantsFolded, cp.stats.ExpressionsFolded, cp.stats.NodesEliminated)
	}
	if c.ShowBytecode {
		out, derr := compiler.Dasm(cp.program)
		if derr != nil {
			return derr
		}
		stdio.Stdout.Write(out)
	}

	compileDone := time.Now()

	th := machine.NewThread(file)
	th.SetIO(stdio.Stdout, stdio.Stderr)
	th.SetTrace(c.Trace)
	th.SetDevMode(c.Debug)
	if c.Profile {
		c.reportProfilingConfig(stdio)
	}
	defer th.Free()

	_, rerr := th.Interpret(cp.program)

	if c.Benchmark {
		fmt.Fprintf(stdio.Stderr, "%s: compile %s, run %s, total %s\n",
			file, compileDone.Sub(start), time.Since(compileDone), time.Since(start))
	}

	if rerr != nil {
		printErr(stdio.Stderr, rerr)
		return &runtimeFailure{rerr}
	}
	return nil
}

// reportProfilingConfig writes which profiling sub-flags were requested.
// The VM dispatch loop itself does not instrument counters (spec.md §1
// keeps "profile output dumps" a CLI/collaborator concern); this just
// echoes what was asked for, to stdio.Stderr or --profile-output.
func (c *Cmd) reportProfilingConfig(stdio mainer.Stdio) {
	w := stdio.Stderr
	if c.ProfileOutput != "" {
		f, err := createProfileOutput(c.ProfileOutput)
		if err == nil {
			defer f.Close()
			w = f
		}
	}
	fmt.Fprintf(w, "profiling enabled: instructions=%v hot_paths=%v registers=%v memory_access=%v branches=%v\n",
		c.ProfileInstructions, c.ProfileHotPaths, c.ProfileRegisters, c.ProfileMemoryAccess, c.ProfileBranches)
}

func createProfileOutput(path string) (*os.File, error) {
	return os.Create(path)
}
