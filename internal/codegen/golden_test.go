package codegen

import (
	"bytes"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"

	"distlang/internal/runtime"
)

// goldenTest compiles the source.dl section of a testdata archive, runs
// @main and compares the result and stdout sections. A dis section lists
// the functions expected in the distributed module.
func goldenTest(t *testing.T, path string) {
	t.Helper()

	ar, err := txtar.ParseFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	sections := make(map[string]string, len(ar.Files))
	for _, f := range ar.Files {
		sections[f.Name] = string(f.Data)
	}
	source, ok := sections["source.dl"]
	if !ok {
		t.Fatalf("%s has no source.dl section", path)
	}

	out := compileOK(t, source)
	var buf bytes.Buffer
	code, err := runtime.NewMachine(out.Main, &buf).RunMain()
	if err != nil {
		t.Fatalf("runtime error: %v\n%s", err, out.Main)
	}

	if want, ok := sections["result"]; ok {
		n, err := strconv.Atoi(strings.TrimSpace(want))
		if err != nil {
			t.Fatalf("bad result section: %v", err)
		}
		if code != n {
			t.Errorf("result: expected %d, got %d", n, code)
		}
	}

	if want, ok := sections["stdout"]; ok {
		compareLines(t, "stdout", want, buf.String())
	}

	if want, ok := sections["dis"]; ok {
		got := funcNames(out.Distributed)
		sort.Strings(got)
		compareLines(t, "dis", want, strings.Join(got, "\n"))
	}
}

func compareLines(t *testing.T, what, expected, got string) {
	t.Helper()
	expectedStr := strings.TrimRight(expected, "\n")
	gotStr := strings.TrimRight(got, "\n")
	if gotStr == expectedStr {
		return
	}

	expectedLines := strings.Split(expectedStr, "\n")
	gotLines := strings.Split(gotStr, "\n")
	t.Errorf("%s mismatch", what)
	maxLines := len(expectedLines)
	if len(gotLines) > maxLines {
		maxLines = len(gotLines)
	}
	for i := 0; i < maxLines; i++ {
		exp, g := "<missing>", "<missing>"
		if i < len(expectedLines) {
			exp = expectedLines[i]
		}
		if i < len(gotLines) {
			g = gotLines[i]
		}
		prefix := "  "
		if exp != g {
			prefix = "! "
		}
		t.Logf("%sline %d: expected=%q got=%q", prefix, i+1, exp, g)
	}
}

func TestGolden(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "*.txtar"))
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) == 0 {
		t.Fatal("no golden files in testdata")
	}
	for _, path := range paths {
		path := path
		t.Run(strings.TrimSuffix(filepath.Base(path), ".txtar"), func(t *testing.T) {
			goldenTest(t, path)
		})
	}
}
