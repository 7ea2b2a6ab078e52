package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestSessionKeepsBindings(t *testing.T) {
	var s session
	var stdout, stderr bytes.Buffer

	s.submit(&stdout, &stderr, "let x: int = 2\n")
	s.submit(&stdout, &stderr, "printf(\"x=%d\\n\", x)\n")
	s.submit(&stdout, &stderr, "x = x * 10\n")
	s.submit(&stdout, &stderr, "printf(\"x=%d\\n\", x)\n")

	if stderr.Len() != 0 {
		t.Fatalf("unexpected errors: %s", stderr.String())
	}
	if got := stdout.String(); got != "x=2\nx=20\n" {
		t.Errorf("output = %q", got)
	}
}

func TestSessionReturnIsNotCommitted(t *testing.T) {
	var s session
	var stdout, stderr bytes.Buffer

	s.submit(&stdout, &stderr, "let x: int = 4\n")
	s.submit(&stdout, &stderr, "return x + 1\n")
	if !strings.Contains(stdout.String(), "=> 5") {
		t.Fatalf("expected => 5, got %q", stdout.String())
	}

	stdout.Reset()
	s.submit(&stdout, &stderr, "return x\n")
	if !strings.Contains(stdout.String(), "=> 4") {
		t.Errorf("expected => 4 after a returned submission, got %q", stdout.String())
	}
}

func TestSessionDropsFailedInput(t *testing.T) {
	var s session
	var stdout, stderr bytes.Buffer

	s.submit(&stdout, &stderr, "let x: int = 1\n")
	s.submit(&stdout, &stderr, "let y: int = missing\n")
	if !strings.Contains(stderr.String(), "missing is not found") {
		t.Fatalf("expected an undefined-name error, got %q", stderr.String())
	}

	stderr.Reset()
	s.submit(&stdout, &stderr, "return x\n")
	if stderr.Len() != 0 {
		t.Errorf("failed input was kept: %s", stderr.String())
	}
	if !strings.Contains(stdout.String(), "=> 1") {
		t.Errorf("expected => 1, got %q", stdout.String())
	}
}

func TestSessionConditionalReturnIsNotCommitted(t *testing.T) {
	var s session
	var stdout, stderr bytes.Buffer

	s.submit(&stdout, &stderr, "let x: int = 3\n")
	s.submit(&stdout, &stderr, "if (true) { return 5; }\n")
	if !strings.Contains(stdout.String(), "=> 5") {
		t.Fatalf("expected => 5, got %q", stdout.String())
	}

	stdout.Reset()
	s.submit(&stdout, &stderr, "printf(\"x=%d\\n\", x)\n")
	s.submit(&stdout, &stderr, "if (x > 1) { x = x + 1; } else { return 0; }\n")
	s.submit(&stdout, &stderr, "printf(\"x=%d\\n\", x)\n")
	if stderr.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %s", stderr.String())
	}
	if got := stdout.String(); !strings.HasPrefix(got, "x=3\n") || strings.Contains(got, "x=4") {
		t.Errorf("output = %q", got)
	}
}
