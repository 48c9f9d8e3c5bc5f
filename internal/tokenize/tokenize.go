// Package tokenize converts raw source text into the normalized line
// sequences used for duplicate hashing. Comments are stripped, runs of
// whitespace collapse to a single space, and blank lines are dropped while
// original line numbers are preserved for reporting.
package tokenize

import (
	"bytes"
	"errors"
	"strings"
	"unicode/utf8"
)

// Version identifies the tokenization rules. Bumping it invalidates every
// persisted code block, since stored hashes were computed under old rules.
const Version = "1"

// ErrNotText reports source that cannot be decoded as UTF-8 text.
var ErrNotText = errors.New("source is not decodable text")

// Line is one normalized source line.
type Line struct {
	Text   string // comment-stripped, whitespace-collapsed content
	Number int    // 1-indexed line number in the original file
}

// Tokenizer produces normalized lines for one source language.
type Tokenizer interface {
	Tokenize(source []byte) ([]Line, error)
}

// ForLanguage returns the tokenizer for a language tag.
// Unknown languages get a tokenizer that performs no comment stripping.
func ForLanguage(lang Language) Tokenizer {
	switch lang {
	case LangGo, LangRust, LangC, LangCpp, LangJava, LangKotlin,
		LangJavaScript, LangTypeScript:
		return &slashTokenizer{}
	case LangPython, LangRuby, LangShell:
		return &hashTokenizer{}
	default:
		return &plainTokenizer{}
	}
}

// splitLines validates the source as text and splits it into raw lines.
func splitLines(source []byte) ([]string, error) {
	if !utf8.Valid(source) || bytes.IndexByte(source, 0) >= 0 {
		return nil, ErrNotText
	}
	return strings.Split(string(source), "\n"), nil
}

// normalize collapses whitespace runs to single spaces and trims the ends.
func normalize(line string) string {
	return strings.Join(strings.Fields(line), " ")
}

// slashTokenizer handles languages with // line comments and /* */ block
// comments (Go, C family, Java, Rust, JS/TS).
type slashTokenizer struct{}

func (t *slashTokenizer) Tokenize(source []byte) ([]Line, error) {
	raw, err := splitLines(source)
	if err != nil {
		return nil, err
	}

	var lines []Line
	inBlock := false
	for i, rawLine := range raw {
		text, nowInBlock := stripSlashComments(rawLine, inBlock)
		inBlock = nowInBlock
		if norm := normalize(text); norm != "" {
			lines = append(lines, Line{Text: norm, Number: i + 1})
		}
	}
	return lines, nil
}

// stripSlashComments removes // and /* */ comments from one line.
// String literals are not tracked; this is a syntactic pass and a comment
// marker inside a string only costs a missed window, never a wrong hash.
func stripSlashComments(line string, inBlock bool) (string, bool) {
	var sb strings.Builder
	i := 0
	for i < len(line) {
		if inBlock {
			end := strings.Index(line[i:], "*/")
			if end < 0 {
				return sb.String(), true
			}
			i += end + 2
			inBlock = false
			continue
		}
		if strings.HasPrefix(line[i:], "//") {
			return sb.String(), false
		}
		if strings.HasPrefix(line[i:], "/*") {
			i += 2
			inBlock = true
			continue
		}
		sb.WriteByte(line[i])
		i++
	}
	return sb.String(), inBlock
}

// hashTokenizer handles languages with # line comments (Python, Ruby, shell).
type hashTokenizer struct{}

func (t *hashTokenizer) Tokenize(source []byte) ([]Line, error) {
	raw, err := splitLines(source)
	if err != nil {
		return nil, err
	}

	var lines []Line
	for i, rawLine := range raw {
		text := rawLine
		if idx := strings.Index(text, "#"); idx >= 0 {
			text = text[:idx]
		}
		if norm := normalize(text); norm != "" {
			lines = append(lines, Line{Text: norm, Number: i + 1})
		}
	}
	return lines, nil
}

// plainTokenizer normalizes whitespace without stripping comments.
type plainTokenizer struct{}

func (t *plainTokenizer) Tokenize(source []byte) ([]Line, error) {
	raw, err := splitLines(source)
	if err != nil {
		return nil, err
	}

	var lines []Line
	for i, rawLine := range raw {
		if norm := normalize(rawLine); norm != "" {
			lines = append(lines, Line{Text: norm, Number: i + 1})
		}
	}
	return lines, nil
}
