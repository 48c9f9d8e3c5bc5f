package engine

import (
	"github.com/dupehound/dupehound/internal/rule"
	"github.com/dupehound/dupehound/internal/violation"
)

// ID implements rule.Rule.
func (e *Engine) ID() string { return RuleID }

// Check implements rule.Rule. It is the collection phase entry point used by
// the runner.
func (e *Engine) Check(file *rule.FileContext) ([]violation.Finding, error) {
	return e.CheckFile(file.Path, file.Source, file.Language, file.ModTime)
}
