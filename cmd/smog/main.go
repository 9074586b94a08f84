// Command smog is the CLI entry point: run a source file, compile it to a
// disassembly listing (disassemble does the same from source), or start
// the interactive REPL.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kristofer/smog/internal/repl"
	"github.com/kristofer/smog/pkg/bytecode"
	"github.com/kristofer/smog/pkg/compiler"
	"github.com/kristofer/smog/pkg/parser"
	"github.com/kristofer/smog/pkg/vm"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		repl.Start(repl.Options{})
		return
	}

	switch os.Args[1] {
	case "version", "-v", "--version":
		fmt.Printf("smog version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	case "repl":
		runRepl(os.Args[2:])
	case "run":
		requireFile(os.Args[2:], "run")
		runFile(os.Args[2])
	case "compile":
		requireFile(os.Args[2:], "compile")
		compileFile(os.Args[2])
	case "disassemble":
		requireFile(os.Args[2:], "disassemble")
		compileFile(os.Args[2])
	default:
		runFile(os.Args[1])
	}
}

func requireFile(args []string, cmd string) {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "smog %s: no file specified\nUsage: smog %s <file>\n", cmd, cmd)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("smog - a small message-passing language")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  smog                    start the interactive REPL")
	fmt.Println("  smog [file]             run a .smog source file")
	fmt.Println("  smog run <file>         run a .smog source file")
	fmt.Println("  smog compile <file>     compile and print a disassembly listing")
	fmt.Println("  smog disassemble <file> alias for compile")
	fmt.Println("  smog repl [-debug] [-no-color]")
	fmt.Println("                          start the REPL with options")
	fmt.Println("  smog version            print the version")
	fmt.Println("  smog help               print this message")
}

func runRepl(args []string) {
	fs := flag.NewFlagSet("repl", flag.ExitOnError)
	noColor := fs.Bool("no-color", false, "disable styled output")
	debug := fs.Bool("debug", false, "show per-evaluation timing")
	fs.Parse(args)
	repl.Start(repl.Options{NoColor: *noColor, Debug: *debug})
}

func readSource(filename string) string {
	if ext := filepath.Ext(filename); ext == ".sg" {
		fmt.Fprintf(os.Stderr, "smog: %s looks like a disassembly listing, not source — run the .smog file it was compiled from\n", filename)
		os.Exit(1)
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}
	return string(data)
}

func runFile(filename string) {
	source := readSource(filename)

	program, err := parser.New(source).Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Parse error: %v\n", err)
		os.Exit(1)
	}
	instrs, err := compiler.New().Program(program)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compile error: %v\n", err)
		os.Exit(1)
	}
	if _, err := vm.New(vm.NewModuleLoader(), vm.NewPrimitives()).Run(instrs); err != nil {
		fmt.Fprintf(os.Stderr, "Runtime error: %v\n", err)
		os.Exit(1)
	}
}

// compileFile compiles filename to bytecode and prints its disassembly.
// There is no binary .sg round trip here — the richer Instruction stream
// this compiler emits carries *bytecode.Class pointers and native closures
// that have no stable on-disk encoding (see DESIGN.md); what "compile"
// gives you instead is the same listing `smog disassemble` would produce
// from that same source, with no separate serialize/deserialize step.
func compileFile(filename string) {
	source := readSource(filename)

	program, err := parser.New(source).Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Parse error: %v\n", err)
		os.Exit(1)
	}
	instrs, err := compiler.New().Program(program)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compile error: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(bytecode.Disassemble(instrs))
}
