package tokenize

import (
	"errors"
	"testing"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		path string
		want Language
	}{
		{"main.go", LangGo},
		{"lib.rs", LangRust},
		{"script.py", LangPython},
		{"app.tsx", LangTypeScript},
		{"index.mjs", LangJavaScript},
		{"header.h", LangC},
		{"impl.cc", LangCpp},
		{"Main.java", LangJava},
		{"build.kts", LangKotlin},
		{"tool.rb", LangRuby},
		{"run.sh", LangShell},
		{"notes.txt", LangUnknown},
		{"Makefile", LangUnknown},
	}

	for _, tt := range tests {
		if got := DetectLanguage(tt.path); got != tt.want {
			t.Errorf("DetectLanguage(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestSlashTokenizer(t *testing.T) {
	source := []byte(`package main

// a comment line
func main() {
	x := 1 // trailing comment
	/* block
	   comment */
	y   :=    2
}
`)

	lines, err := ForLanguage(LangGo).Tokenize(source)
	if err != nil {
		t.Fatalf("Tokenize error: %v", err)
	}

	want := []Line{
		{Text: "package main", Number: 1},
		{Text: "func main() {", Number: 4},
		{Text: "x := 1", Number: 5},
		{Text: "y := 2", Number: 8},
		{Text: "}", Number: 9},
	}

	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d: %+v", len(lines), len(want), lines)
	}
	for i, w := range want {
		if lines[i] != w {
			t.Errorf("line %d = %+v, want %+v", i, lines[i], w)
		}
	}
}

func TestSlashTokenizerBlockCommentSameLine(t *testing.T) {
	lines, err := ForLanguage(LangC).Tokenize([]byte("a /* mid */ b\n"))
	if err != nil {
		t.Fatalf("Tokenize error: %v", err)
	}
	if len(lines) != 1 || lines[0].Text != "a b" {
		t.Errorf("got %+v, want one line %q", lines, "a b")
	}
}

func TestHashTokenizer(t *testing.T) {
	source := []byte(`# module docstring comment
def f():
    x = 1  # inline
    return   x
`)

	lines, err := ForLanguage(LangPython).Tokenize(source)
	if err != nil {
		t.Fatalf("Tokenize error: %v", err)
	}

	want := []Line{
		{Text: "def f():", Number: 2},
		{Text: "x = 1", Number: 3},
		{Text: "return x", Number: 4},
	}

	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d: %+v", len(lines), len(want), lines)
	}
	for i, w := range want {
		if lines[i] != w {
			t.Errorf("line %d = %+v, want %+v", i, lines[i], w)
		}
	}
}

func TestTokenizeBlankAndCommentOnlyDropped(t *testing.T) {
	source := []byte("\n\n// only comments\n\n// here\n\n")
	lines, err := ForLanguage(LangGo).Tokenize(source)
	if err != nil {
		t.Fatalf("Tokenize error: %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("expected no normalized lines, got %+v", lines)
	}
}

func TestTokenizeNotText(t *testing.T) {
	for _, src := range [][]byte{
		{0xff, 0xfe, 0x00, 0x01},
		[]byte("hello\x00world"),
	} {
		_, err := ForLanguage(LangGo).Tokenize(src)
		if !errors.Is(err, ErrNotText) {
			t.Errorf("Tokenize(%v) error = %v, want ErrNotText", src, err)
		}
	}
}

func TestPlainTokenizerKeepsCommentText(t *testing.T) {
	lines, err := ForLanguage(LangUnknown).Tokenize([]byte("value // not stripped\n"))
	if err != nil {
		t.Fatalf("Tokenize error: %v", err)
	}
	if len(lines) != 1 || lines[0].Text != "value // not stripped" {
		t.Errorf("got %+v", lines)
	}
}
