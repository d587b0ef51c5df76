// Command loxrun is a REPL and script runner for the Lox language.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"strings"

	"github.com/chzyer/readline"

	"github.com/loxrun/loxrun/internal/builtins"
	"github.com/loxrun/loxrun/internal/interpreter"
	"github.com/loxrun/loxrun/internal/loxerr"
	"github.com/loxrun/loxrun/internal/parser"
)

var (
	cmd = flag.String("c", "", "Program passed in as a string")

	cpuProfile = flag.String("cpuprofile", "", "Write a CPU profile to the specified file before exiting.")
	memProfile = flag.String("memprofile", "", "Write an allocation profile to the specified file before exiting.")
	traceFile  = flag.String("trace", "", "Write an execution trace to the specified file before exiting.")
)

const (
	exitOK       = 0
	exitUsage    = 64
	exitDataErr  = 65 // syntax or static-resolution error
	exitSoftware = 70 // runtime error
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: loxrun [options] [script]\n\nOptions:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "loxrun: failed to create CPU profile: %s\n", err)
			os.Exit(exitSoftware)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "loxrun: failed to start CPU profile: %s\n", err)
			os.Exit(exitSoftware)
		}
		defer pprof.StopCPUProfile()
	}
	if *memProfile != "" {
		defer func() {
			f, err := os.Create(*memProfile)
			if err != nil {
				fmt.Fprintf(os.Stderr, "loxrun: failed to create memory profile: %s\n", err)
				return
			}
			defer f.Close()
			runtime.GC()
			pprof.WriteHeapProfile(f)
		}()
	}
	if *traceFile != "" {
		f, err := os.Create(*traceFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "loxrun: failed to create trace file: %s\n", err)
			os.Exit(exitSoftware)
		}
		defer f.Close()
		if err := trace.Start(f); err != nil {
			fmt.Fprintf(os.Stderr, "loxrun: failed to start trace: %s\n", err)
			os.Exit(exitSoftware)
		}
		defer trace.Stop()
	}

	if *cmd != "" {
		os.Exit(runSource(strings.NewReader(*cmd), interpreter.New()))
		return
	}

	switch len(flag.Args()) {
	case 0:
		os.Exit(runREPL())
	case 1:
		os.Exit(runFile(flag.Arg(0)))
	default:
		usage()
		os.Exit(exitUsage)
	}
}

// run parses and interprets the source read from r, prepending the prelude when withPrelude is set.
func run(r io.Reader, interp *interpreter.Interpreter, withPrelude bool) error {
	program, err := parser.Parse(r)
	if err != nil {
		return err
	}
	if withPrelude {
		program = builtins.Prepend(program)
	}
	return interp.Interpret(program)
}

// exitCodeFor maps a run error to the process exit code spec'd for Lox implementations: 65 for a syntax or
// resolution error, 70 for a runtime error.
func exitCodeFor(err error) int {
	if err == nil {
		return exitOK
	}
	var runtimeErr *loxerr.RuntimeError
	if errors.As(err, &runtimeErr) {
		return exitSoftware
	}
	return exitDataErr
}

func runSource(r io.Reader, interp *interpreter.Interpreter) int {
	err := run(r, interp, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return exitCodeFor(err)
}

func runFile(name string) int {
	f, err := os.Open(name)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitDataErr
	}
	defer f.Close()
	return runSource(f, interpreter.New())
}

func runREPL() int {
	cfg := &readline.Config{Prompt: "> "}
	if homeDir, err := os.UserHomeDir(); err == nil {
		cfg.HistoryFile = path.Join(homeDir, ".loxrun_history")
	} else {
		fmt.Fprintf(os.Stderr, "Can't find home directory (%s); command history won't be saved.\n", err)
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loxrun: starting REPL: %s\n", err)
		return exitSoftware
	}
	defer rl.Close()

	fmt.Fprintln(os.Stderr, "Welcome to Lox!")

	interp := interpreter.New(interpreter.REPLMode())
	first := true
	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if errors.Is(err, io.EOF) {
				break
			}
			fmt.Fprintf(os.Stderr, "loxrun: reading input: %s\n", err)
			return exitSoftware
		}
		if err := run(strings.NewReader(line), interp, first); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		first = false
	}
	return exitOK
}
