package violation

import "strings"

// excludes reports whether a bucket's snippet matches a structural exclusion:
// blocks that are identical by convention rather than by duplication.
func (f Filters) excludes(snippet string) bool {
	lines := nonEmptyLines(snippet)
	if len(lines) == 0 {
		return false
	}

	if f.ExcludeImports && allLines(lines, isImportLine) {
		return true
	}
	if f.ExcludeComments && allLines(lines, isCommentLine) {
		return true
	}
	if f.ExcludeKeywordArgs && allLines(lines, isKeywordArgLine) {
		return true
	}
	return false
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func allLines(lines []string, pred func(string) bool) bool {
	for _, l := range lines {
		if !pred(l) {
			return false
		}
	}
	return true
}

// importPrefixes cover import statements across the supported languages.
var importPrefixes = []string{
	"import ", "import(", "from ", "use ", "require ", "require(",
	"#include", "package ", "extern crate ",
}

// isImportLine matches import statements and the members of a grouped import
// block (bare quoted paths, aliased paths, group parentheses).
func isImportLine(line string) bool {
	for _, p := range importPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	switch line {
	case "(", ")", "import (":
		return true
	}
	// Go import group members: optionally aliased quoted paths.
	if strings.HasPrefix(line, `"`) && strings.HasSuffix(line, `"`) {
		return true
	}
	if i := strings.IndexByte(line, ' '); i > 0 {
		rest := line[i+1:]
		if strings.HasPrefix(rest, `"`) && strings.HasSuffix(rest, `"`) {
			return true
		}
	}
	return false
}

// isCommentLine matches comment and docstring text that survives
// normalization (docstrings are string literals, not comments, to the
// tokenizer).
func isCommentLine(line string) bool {
	return strings.HasPrefix(line, "//") ||
		strings.HasPrefix(line, "#") ||
		strings.HasPrefix(line, "/*") ||
		strings.HasPrefix(line, "*") ||
		strings.HasPrefix(line, `"""`) ||
		strings.HasPrefix(line, "'''")
}

// isKeywordArgLine matches consecutive keyword-argument lists: name=value
// entries that only line up because of call-site convention.
func isKeywordArgLine(line string) bool {
	trimmed := strings.TrimSuffix(strings.TrimSuffix(line, ","), ")")
	eq := strings.IndexByte(trimmed, '=')
	if eq <= 0 {
		return false
	}
	name := strings.TrimSpace(trimmed[:eq])
	if name == "" {
		return false
	}
	for _, r := range name {
		if !isIdentRune(r) {
			return false
		}
	}
	return strings.HasSuffix(line, ",") || strings.HasSuffix(line, ")")
}

func isIdentRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
