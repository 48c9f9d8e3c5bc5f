// Package rule is the execution framework shared by all lint rules: files
// stream through per-file checks one at a time, and rules that need
// whole-project state finalize once after every file has been seen.
package rule

import (
	"time"

	"github.com/dupehound/dupehound/internal/tokenize"
	"github.com/dupehound/dupehound/internal/violation"
)

// FileContext carries everything a rule may need for one file.
type FileContext struct {
	Path     string
	Source   []byte
	Language tokenize.Language
	ModTime  time.Time
}

// Rule is a per-file check. Check may be called concurrently for different
// files; implementations own their synchronization.
type Rule interface {
	ID() string
	Check(file *FileContext) ([]violation.Finding, error)
}

// Finalizer is implemented by rules that can only report once the whole
// project has been seen. The runner guarantees Finalize starts after every
// Check call has returned.
type Finalizer interface {
	Finalize() ([]violation.Finding, error)
}
