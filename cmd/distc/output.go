package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"distlang/internal/diag"
	"distlang/internal/token"
)

// ---- output helpers ----

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "error: JSON encoding failed: %v\n", err)
		os.Exit(1)
	}
}

func printDiagsText(diags []diag.Diagnostic) {
	writeDiags(os.Stderr, diags, "", "")
}

// writeDiags prints one diagnostic per line; errors and warnings are
// wrapped in the given color codes when they are non-empty.
func writeDiags(w io.Writer, diags []diag.Diagnostic, errColor, warnColor string) {
	for _, d := range diags {
		color := errColor
		if d.Severity == diag.Warning {
			color = warnColor
		}
		if color == "" {
			fmt.Fprintln(w, d.String())
			continue
		}
		fmt.Fprintf(w, "%s%s%s\n", color, d.String(), colorReset)
	}
}

func diagsToSlice(diags []diag.Diagnostic) []map[string]interface{} {
	result := make([]map[string]interface{}, len(diags))
	for i, d := range diags {
		result[i] = map[string]interface{}{
			"code":     d.Code,
			"severity": d.Severity.String(),
			"message":  d.Message,
			"line":     d.Span.Start.Line,
			"column":   d.Span.Start.Column,
			"offset":   d.Span.Start.Offset,
		}
		if d.Hint != "" {
			result[i]["hint"] = d.Hint
		}
	}
	return result
}

// ---- token output helpers ----

func printTokensText(tokens []token.Token, diags []diag.Diagnostic) {
	for _, tok := range tokens {
		lexeme := tok.Lexeme
		switch tok.Kind {
		case token.NEWLINE:
			lexeme = "\\n"
		case token.STRING:
			lexeme = fmt.Sprintf("%q", tok.Lexeme)
		}
		fmt.Printf("%-12s %-20s %s\n", tok.Kind, lexeme, tok.Span.Start)
	}
	printDiagsText(diags)
}

func printTokensJSON(tokens []token.Token, diags []diag.Diagnostic) {
	type tokenJSON struct {
		Kind   string `json:"kind"`
		Lexeme string `json:"lexeme"`
		Line   int    `json:"line"`
		Column int    `json:"column"`
		Offset int    `json:"offset"`
	}

	toks := make([]tokenJSON, 0, len(tokens))
	for _, tok := range tokens {
		toks = append(toks, tokenJSON{
			Kind:   tok.Kind.String(),
			Lexeme: tok.Lexeme,
			Line:   tok.Span.Start.Line,
			Column: tok.Span.Start.Column,
			Offset: tok.Span.Start.Offset,
		})
	}

	printJSON(map[string]interface{}{
		"tokens":      toks,
		"diagnostics": diagsToSlice(diags),
	})
}
