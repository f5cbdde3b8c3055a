package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/mna/mainer"
)

const binName = "orus"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] <command> [<path>...]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] <command> [<path>...] [-- <arg>...]
       %[1]s -h|--help
       %[1]s -v|--version

Compiler and all-in-one tool for the %[1]s programming language.

The <command> can be one of:
       run                       Compile and execute a source file.
       build                     Compile a source file and print the
                                 resulting bytecode without executing it.
       repl                      Start an interactive read-eval-print loop.
       parse                     Execute the parser phase of the
                                 compilation and print the resulting
                                 abstract syntax tree (AST).
       resolve                   Execute the resolver phase of the
                                 compilation and print the resulting
                                 abstract syntax tree (AST) with symbol
                                 resolution information.
       tokenize                  Execute the scanner phase of the
                                 compilation and print the resulting
                                 tokens.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       --trace                   Trace every dispatched instruction to
                                 stderr (trace_execution).
       --debug                   Enable extra runtime assertions
                                 (debug_mode).
       --benchmark               Print wall-clock compile/run time
                                 (benchmark_mode).
       --show-ast                Print the parsed/resolved AST before
                                 running.
       --show-bytecode           Print the disassembled bytecode before
                                 running.
       --show-tokens             Print the token stream before running.
       --show-optimization-stats Print constant-folding statistics.
       --profile                 Enable VM profiling (vm_profiling_enabled).
       --profile-instructions    Profile sub-flag: per-instruction counts.
       --profile-hot-paths       Profile sub-flag: hot-path counters.
       --profile-registers       Profile sub-flag: register pressure.
       --profile-memory-access   Profile sub-flag: memory access counts.
       --profile-branches        Profile sub-flag: branch counters.
       --profile-output=<path>   Write the profiling report to <path>
                                 instead of stderr.
       --verbose                 Print extra diagnostic information.
       --quiet                   Suppress non-error output.
       --config=<path>           Load configuration from <path>
                                 (config_file).
       --with-comments           Include comments in the AST (parse and
                                 resolve only).

More information on the %[1]s repository:
       https://github.com/orus-lang/orus
`, binName)
)

// exit codes per spec.md §6: 0 success, 65 compile error, 70 runtime
// error, and mainer's own InvalidArgs for bad CLI usage.
const (
	exitSuccess      = mainer.ExitCode(0)
	exitCompileError = mainer.ExitCode(65)
	exitRuntimeError = mainer.ExitCode(70)
)

// Cmd is the parsed command line, populated by mainer.Parser from flag tags
// before Validate/Main dispatch to the requested subcommand.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	WithComments bool `flag:"with-comments"`

	Trace     bool `flag:"trace"`
	Debug     bool `flag:"debug"`
	Benchmark bool `flag:"benchmark"`

	ShowAST             bool `flag:"show-ast"`
	ShowBytecode        bool `flag:"show-bytecode"`
	ShowTokens          bool `flag:"show-tokens"`
	ShowOptimizionStats bool `flag:"show-optimization-stats"`

	Profile               bool `flag:"profile"`
	ProfileInstructions   bool `flag:"profile-instructions"`
	ProfileHotPaths       bool `flag:"profile-hot-paths"`
	ProfileRegisters      bool `flag:"profile-registers"`
	ProfileMemoryAccess   bool `flag:"profile-memory-access"`
	ProfileBranches       bool `flag:"profile-branches"`
	ProfileOutput         string `flag:"profile-output"`

	Verbose bool `flag:"verbose"`
	Quiet   bool `flag:"quiet"`

	ConfigFile string `flag:"config"`

	env EnvConfig

	args  []string
	flags map[string]bool
	cmdFn func(context.Context, mainer.Stdio, []string) error
}

func (c *Cmd) SetArgs(args []string) {
	c.args = args
}

func (c *Cmd) SetFlags(flags map[string]bool) {
	c.flags = flags
}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}

	if len(c.args) == 0 {
		return errors.New("no command specified")
	}

	cmdName := c.args[0]

	commands := buildCmds(c)
	c.cmdFn = commands[cmdName]
	if c.cmdFn == nil {
		return fmt.Errorf("unknown command: %s", c.args[0])
	}

	switch cmdName {
	case "tokenize", "parse", "resolve", "run", "build":
		if len(c.args[1:]) == 0 {
			return fmt.Errorf("%s: at least one file must be provided", cmdName)
		}
	}

	if c.flags["with-comments"] && cmdName != "parse" && cmdName != "resolve" {
		return fmt.Errorf("%s: invalid flag 'with-comments'", cmdName)
	}
	if c.Verbose && c.Quiet {
		return errors.New("--verbose and --quiet are mutually exclusive")
	}

	if env, err := loadEnvConfig(); err == nil {
		c.env = env
		if !c.flags["trace"] && env.Trace {
			c.Trace = true
		}
		if !c.flags["debug"] && env.Debug {
			c.Debug = true
		}
	}

	return nil
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false, // env vars are read explicitly via loadEnvConfig, not mainer's generic binding
		EnvPrefix: strings.ToUpper(binName) + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success

	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.cmdFn(ctx, stdio, c.args[1:]); err != nil {
		// each command takes care of printing its errors; the error kind
		// (compile vs runtime) decides which exit code we report.
		var ce *compileError
		if errors.As(err, &ce) {
			return exitCompileError
		}
		var re *runtimeFailure
		if errors.As(err, &re) {
			return exitRuntimeError
		}
		return mainer.Failure
	}
	return exitSuccess
}

// valid commands are those that take a mainer.Stdio and a slice of strings as
// input, and return an error as output.
func buildCmds(v interface{}) map[string]func(context.Context, mainer.Stdio, []string) error {
	cmds := make(map[string]func(context.Context, mainer.Stdio, []string) error)

	vv := reflect.ValueOf(v)
	vt := vv.Type()
	for i := 0; i < vt.NumMethod(); i++ {
		m := vt.Method(i)
		mt := m.Type

		// must take 4 parameters (including receiver) and return 1
		if mt.NumIn() != 4 || mt.NumOut() != 1 {
			continue
		}

		if rt := mt.Out(0); rt.Kind() != reflect.Interface || rt.Name() != "error" {
			continue
		}
		if p0 := mt.In(0); p0.Kind() != reflect.Ptr || p0.Elem().Name() != "Cmd" {
			continue
		}
		if p1 := mt.In(1); p1.Kind() != reflect.Interface || p1.Name() != "Context" {
			continue
		}
		if p2 := mt.In(2); p2.Kind() != reflect.Struct || p2.Name() != "Stdio" {
			continue
		}
		if p3 := mt.In(3); p3.Kind() != reflect.Slice || p3.Elem().Name() != "string" {
			continue
		}
		cmds[strings.ToLower(m.Name)] = vv.Method(i).Interface().(func(context.Context, mainer.Stdio, []string) error)
	}
	return cmds
}
