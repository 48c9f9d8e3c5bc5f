package violation

import "strings"

// Suppression is the per-file ignore state parsed from source comments.
// It is recomputed from current source on every run.
type Suppression struct {
	FileWide bool
	Lines    map[int]struct{}
}

// Covers reports whether an occurrence spanning [start, end] is suppressed.
// An inline directive suppresses every occurrence whose span contains its
// line.
func (s Suppression) Covers(start, end int) bool {
	if s.FileWide {
		return true
	}
	for line := range s.Lines {
		if line >= start && line <= end {
			return true
		}
	}
	return false
}

const (
	ignoreMarker  = "dupehound:ignore"
	disableMarker = "dupehound:disable"
)

// ParseSuppressions scans source for suppression directives targeting rule.
// "dupehound:ignore" suppresses occurrences covering its line;
// "dupehound:disable" suppresses the whole file. Either form takes an
// optional "=rule-a,rule-b" target list; a directive naming only rules this
// engine does not own never suppresses anything.
func ParseSuppressions(rule string, source []byte) Suppression {
	sup := Suppression{Lines: make(map[int]struct{})}

	for i, line := range strings.Split(string(source), "\n") {
		if idx := strings.Index(line, disableMarker); idx >= 0 {
			if directiveTargets(line[idx+len(disableMarker):], rule) {
				sup.FileWide = true
			}
			continue
		}
		if idx := strings.Index(line, ignoreMarker); idx >= 0 {
			if directiveTargets(line[idx+len(ignoreMarker):], rule) {
				sup.Lines[i+1] = struct{}{}
			}
		}
	}
	return sup
}

// directiveTargets checks the text after a marker for a rule list. The
// marker must end its token: a bare directive (end of line or whitespace
// next) applies to every rule, "=" introduces an explicit rule list, and any
// other continuation is prose, not a directive. Unknown rule names are
// ignored.
func directiveTargets(rest, rule string) bool {
	if rest == "" {
		return true
	}
	switch rest[0] {
	case ' ', '\t', '\r':
		return true
	case '=':
	default:
		return false
	}
	list := rest[1:]
	if i := strings.IndexAny(list, " \t"); i >= 0 {
		list = list[:i]
	}
	for _, name := range strings.Split(list, ",") {
		if strings.TrimSpace(name) == rule {
			return true
		}
	}
	return false
}
