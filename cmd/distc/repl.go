package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"distlang/internal/ast"
	"distlang/internal/codegen"
	"distlang/internal/diag"
	"distlang/internal/runtime"
)

// ---- ANSI colors ----

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// session is the source accepted so far. Each submission is appended to
// it, and the whole program is lowered and run again; only output produced
// past the previous run is shown.
type session struct {
	committed string
	printed   int
	logger    *slog.Logger
}

// submit lowers and runs the committed source plus input. Input is kept
// unless it fails to compile or returns from main.
func (s *session) submit(stdout, stderr io.Writer, input string) {
	candidate := s.committed + input
	file, diags := frontEnd(candidate, "<repl>")
	if len(diags) > 0 {
		writeDiags(stderr, diags, colorRed, colorYellow)
		return
	}

	out, err := codegen.Compile(context.Background(), file, codegen.Options{ModuleName: "repl", Logger: s.logger})
	if err != nil {
		fmt.Fprintf(stderr, "%serror: %s%s\n", colorRed, err, colorReset)
		return
	}
	writeDiags(stderr, s.fresh(out.Diagnostics), colorRed, colorYellow)
	if out.Diagnostics.HasErrors() {
		return
	}

	var buf bytes.Buffer
	code, err := runtime.NewMachine(out.Main, &buf).RunMain()
	if s.printed <= buf.Len() {
		stdout.Write(buf.Bytes()[s.printed:])
	}
	if err != nil {
		fmt.Fprintf(stderr, "%serror: %s%s\n", colorRed, err, colorReset)
		return
	}

	if s.returns(file) {
		fmt.Fprintf(stdout, "%s=> %d%s\n", colorCyan, code, colorReset)
		return
	}
	s.committed = candidate
	s.printed = buf.Len()
}

// fresh drops diagnostics that belong to already committed input.
func (s *session) fresh(diags diag.List) []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, d := range diags {
		if d.Span.Start.Offset >= len(s.committed) {
			out = append(out, d)
		}
	}
	return out
}

// returns reports whether the new input can return from main, either
// directly or from a branch of a conditional.
func (s *session) returns(file *ast.File) bool {
	for _, stmt := range file.Body {
		if stmt.GetSpan().Start.Offset >= len(s.committed) && hasReturn(stmt) {
			return true
		}
	}
	return false
}

// hasReturn reports whether stmt contains a return outside any function
// declaration. Conditionals in value position fail to compile and are not
// searched.
func hasReturn(stmt ast.Stmt) bool {
	switch n := stmt.(type) {
	case *ast.ReturnStmt:
		return true
	case *ast.ExprStmt:
		cond, ok := n.Expr.(*ast.IfExpr)
		if !ok {
			return false
		}
		for _, branch := range []ast.Program{cond.Consequence, cond.Alternative} {
			for _, inner := range branch {
				if hasReturn(inner) {
					return true
				}
			}
		}
	}
	return false
}

// ---- repl command ----

func cmdRepl(logger *slog.Logger) {
	// Determine history file path (~/.distc_history)
	historyFile := ""
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = filepath.Join(home, ".distc_history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            colorGreen + "distc> " + colorReset,
		HistoryFile:       historyFile,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline init failed: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Fprintf(rl.Stdout(), "%s%sdistlang REPL%s %s(type 'exit' or Ctrl+D to quit, 'return e' to evaluate)%s\n\n",
		colorBold, colorCyan, colorReset, colorGray, colorReset)

	s := &session{logger: logger}
	var accumulated strings.Builder
	braceDepth := 0

	for {
		if braceDepth > 0 {
			rl.SetPrompt(colorGray + "...    " + colorReset)
		} else {
			rl.SetPrompt(colorGreen + "distc> " + colorReset)
		}

		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				if braceDepth > 0 {
					// cancel multi-line input
					accumulated.Reset()
					braceDepth = 0
					continue
				}
				fmt.Fprintf(rl.Stdout(), "\n%s(use 'exit' or Ctrl+D to quit)%s\n", colorGray, colorReset)
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(rl.Stdout())
			}
			break
		}

		if braceDepth == 0 && strings.TrimSpace(line) == "exit" {
			break
		}

		braceDepth += strings.Count(line, "{") - strings.Count(line, "}")
		accumulated.WriteString(line)
		accumulated.WriteString("\n")
		if braceDepth > 0 {
			continue
		}
		braceDepth = 0

		input := accumulated.String()
		accumulated.Reset()
		if strings.TrimSpace(input) == "" {
			continue
		}
		s.submit(rl.Stdout(), rl.Stderr(), input)
	}
}
