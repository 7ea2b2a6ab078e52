// Package codegen lowers a parsed program to basic-block IR.
//
// A source file yields two compilation units: the full program, and the
// top-level functions marked dis. Each unit becomes its own module with an
// i32 @main entry built from its top-level statements.
package codegen

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/llir/llvm/ir"
	"golang.org/x/sync/errgroup"

	"distlang/internal/ast"
	"distlang/internal/diag"
)

// Options configures a compilation.
type Options struct {
	// ModuleName is recorded as the source filename of the main module. The
	// distributed module gets the same name with a .dis suffix.
	ModuleName string
	Logger     *slog.Logger
}

// Output holds the lowered units of one source file.
type Output struct {
	Main        *ir.Module
	Distributed *ir.Module
	Diagnostics diag.List
}

// Compile lowers both units of file concurrently. Recoverable problems are
// returned in Output.Diagnostics. An internal error in either unit fails the
// whole compilation and no module is returned.
func Compile(ctx context.Context, file *ast.File, opts Options) (*Output, error) {
	log := opts.Logger
	if log == nil {
		log = discardLogger()
	}

	var (
		out                  Output
		mainDiags, distDiags diag.List
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		m, diags, err := compileUnit(file.Body, opts.ModuleName, log.With("unit", "main"))
		out.Main, mainDiags = m, diags
		return err
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		m, diags, err := compileUnit(file.Distributed, opts.ModuleName+".dis", log.With("unit", "dis"))
		out.Distributed, distDiags = m, diags
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// dis functions are lowered twice; report their problems once.
	out.Diagnostics = append(mainDiags, inDistributedUnit(unseen(distDiags, mainDiags))...)
	return &out, nil
}

// distributedHint marks diagnostics only the distributed unit produced.
const distributedHint = "in the distributed unit; only dis functions are compiled there"

func inDistributedUnit(list diag.List) diag.List {
	for i := range list {
		if list[i].Hint == "" {
			list[i].Hint = distributedHint
		} else {
			list[i].Hint = distributedHint + "; " + list[i].Hint
		}
	}
	return list
}

// CompileProgram lowers a single program into one module.
func CompileProgram(prog ast.Program, opts Options) (*ir.Module, diag.List, error) {
	return compileUnit(prog, opts.ModuleName, opts.Logger)
}

func compileUnit(prog ast.Program, name string, log *slog.Logger) (m *ir.Module, diags diag.List, err error) {
	defer func() {
		if r := recover(); r != nil {
			ie, ok := r.(*InternalError)
			if !ok {
				panic(r)
			}
			m, diags, err = nil, nil, fmt.Errorf("lowering %s: %w", name, ie)
		}
	}()

	m = ir.NewModule()
	m.SourceFilename = name
	e := NewEvaluator(m, log)
	e.log.Debug("lowering unit", "module", name, "statements", len(prog))
	e.EvalEntry(prog)
	return m, e.Diagnostics(), nil
}

func unseen(list, seen diag.List) diag.List {
	known := make(map[diag.Diagnostic]bool, len(seen))
	for _, d := range seen {
		known[d] = true
	}
	var out diag.List
	for _, d := range list {
		if !known[d] {
			out = append(out, d)
		}
	}
	return out
}
