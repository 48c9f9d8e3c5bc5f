package tokenize

import (
	"path/filepath"
	"strings"
)

// Language is a source language tag used to select a tokenizer.
type Language string

const (
	LangGo         Language = "go"
	LangRust       Language = "rust"
	LangPython     Language = "python"
	LangTypeScript Language = "typescript"
	LangJavaScript Language = "javascript"
	LangC          Language = "c"
	LangCpp        Language = "cpp"
	LangJava       Language = "java"
	LangKotlin     Language = "kotlin"
	LangRuby       Language = "ruby"
	LangShell      Language = "shell"
	LangUnknown    Language = "unknown"
)

// DetectLanguage maps a file path to a language tag by extension.
func DetectLanguage(path string) Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return LangGo
	case ".rs":
		return LangRust
	case ".py":
		return LangPython
	case ".ts", ".tsx":
		return LangTypeScript
	case ".js", ".jsx", ".mjs":
		return LangJavaScript
	case ".c", ".h":
		return LangC
	case ".cpp", ".hpp", ".cc", ".cxx":
		return LangCpp
	case ".java":
		return LangJava
	case ".kt", ".kts":
		return LangKotlin
	case ".rb":
		return LangRuby
	case ".sh", ".bash":
		return LangShell
	default:
		return LangUnknown
	}
}
