// Command distc is the CLI entry point for the distlang compiler.
//
// Usage:
//
//	distc tokens <file> [--json]     Print tokens
//	distc parse  <file>              Print both programs as JSON
//	distc build  <file> [-o out.ll]  Write the main and distributed IR modules
//	distc run    <file>              Lower and execute main
//	distc repl                       Start interactive REPL
//
// Every command accepts -v to trace code generation on stderr.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"distlang/internal/ast"
	"distlang/internal/codegen"
	"distlang/internal/diag"
	"distlang/internal/lexer"
	"distlang/internal/parser"
	"distlang/internal/runtime"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	command := os.Args[1]
	logger := newLogger(hasFlag("-v"))

	switch command {
	case "tokens":
		filename := fileArg()
		cmdTokens(readFile(filename), filename, hasFlag("--json"))
	case "parse":
		filename := fileArg()
		cmdParse(readFile(filename), filename)
	case "build":
		filename := fileArg()
		cmdBuild(readFile(filename), filename, flagValue("-o"), logger)
	case "run":
		filename := fileArg()
		cmdRun(readFile(filename), filename, logger)
	case "repl":
		cmdRepl(logger)
	default:
		fmt.Fprintf(os.Stderr, "error: unknown command '%s'\n", command)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  distc tokens <file> [--json]      Tokenize and print tokens")
	fmt.Fprintln(os.Stderr, "  distc parse  <file>               Parse and print both programs (JSON)")
	fmt.Fprintln(os.Stderr, "  distc build  <file> [-o out.ll]   Write <out>.ll and <out>.dis.ll")
	fmt.Fprintln(os.Stderr, "  distc run    <file>               Lower and execute main")
	fmt.Fprintln(os.Stderr, "  distc repl                        Start interactive REPL")
	fmt.Fprintln(os.Stderr, "Flags:")
	fmt.Fprintln(os.Stderr, "  -v    trace code generation on stderr")
}

func fileArg() string {
	if len(os.Args) < 3 || strings.HasPrefix(os.Args[2], "-") {
		fmt.Fprintln(os.Stderr, "error: missing file argument")
		os.Exit(1)
	}
	return os.Args[2]
}

func readFile(filename string) string {
	source, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot read file %s: %v\n", filename, err)
		os.Exit(1)
	}
	return string(source)
}

func hasFlag(flag string) bool {
	for _, arg := range os.Args[2:] {
		if arg == flag {
			return true
		}
	}
	return false
}

// flagValue returns the argument following flag, or "" if flag is absent.
func flagValue(flag string) string {
	args := os.Args[2:]
	for i, arg := range args {
		if arg == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func newLogger(verbose bool) *slog.Logger {
	if !verbose {
		return nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// frontEnd lexes and parses source. Lexer errors stop before parsing.
func frontEnd(source, filename string) (*ast.File, diag.List) {
	tokens, lexDiags := lexer.New(source, filename).Tokenize()
	if len(lexDiags) > 0 {
		return nil, lexDiags
	}
	return parser.New(tokens).ParseFile()
}

// ---- tokens command ----

func cmdTokens(source, filename string, jsonMode bool) {
	tokens, diags := lexer.New(source, filename).Tokenize()

	if jsonMode {
		printTokensJSON(tokens, diags)
	} else {
		printTokensText(tokens, diags)
	}

	if len(diags) > 0 {
		os.Exit(1)
	}
}

// ---- parse command ----

func cmdParse(source, filename string) {
	tokens, lexDiags := lexer.New(source, filename).Tokenize()
	file, parseDiags := parser.New(tokens).ParseFile()

	allDiags := append(lexDiags, parseDiags...)

	output := map[string]interface{}{
		"ast":         ast.NodeToMap(file),
		"diagnostics": diagsToSlice(allDiags),
	}
	printJSON(output)

	if len(allDiags) > 0 {
		os.Exit(1)
	}
}

// ---- build command ----

func cmdBuild(source, filename, outPath string, logger *slog.Logger) {
	file, out := compile(source, filename, logger)

	if outPath == "" {
		outPath = strings.TrimSuffix(filename, filepath.Ext(filename)) + ".ll"
	}
	if err := writeModule(outPath, out.Main.String()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", outPath)

	if len(file.Distributed) == 0 {
		return
	}
	disPath := strings.TrimSuffix(outPath, ".ll") + ".dis.ll"
	if err := writeModule(disPath, out.Distributed.String()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", disPath)
}

func writeModule(path, text string) error {
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return nil
}

// ---- run command ----

func cmdRun(source, filename string, logger *slog.Logger) {
	_, out := compile(source, filename, logger)

	code, err := runtime.NewMachine(out.Main, os.Stdout).RunMain()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(code)
}

// compile runs the whole pipeline and exits on any error. Warnings are
// printed and compilation continues.
func compile(source, filename string, logger *slog.Logger) (*ast.File, *codegen.Output) {
	file, diags := frontEnd(source, filename)
	if len(diags) > 0 {
		printDiagsText(diags)
		os.Exit(1)
	}

	out, err := codegen.Compile(context.Background(), file, codegen.Options{
		ModuleName: filename,
		Logger:     logger,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	printDiagsText(out.Diagnostics)
	if out.Diagnostics.HasErrors() {
		os.Exit(1)
	}
	return file, out
}
