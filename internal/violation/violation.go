// Package violation converts duplicate hash buckets into reported findings,
// applying content filters, suppression directives, and the occurrence
// threshold.
package violation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dupehound/dupehound/internal/index"
)

// Location points at one occurrence of a duplicated block.
type Location struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d-%d", l.File, l.StartLine, l.EndLine)
}

// Finding is one reported violation. Each duplicated occurrence gets its own
// finding that cross-references every other occurrence, so per-file consumers
// still see complete information.
type Finding struct {
	Rule       string     `json:"rule"`
	File       string     `json:"file"`
	Line       int        `json:"line"`
	Column     int        `json:"column"`
	EndLine    int        `json:"end_line"`
	Message    string     `json:"message"`
	Suggestion string     `json:"suggestion"`
	CrossRefs  []Location `json:"cross_refs"`
}

// Filters toggles the structural exclusions applied to a bucket before any
// findings are emitted.
type Filters struct {
	ExcludeImports     bool `koanf:"exclude_imports"`
	ExcludeComments    bool `koanf:"exclude_comments"`
	ExcludeKeywordArgs bool `koanf:"exclude_keyword_args"`
}

// DefaultFilters enables every structural exclusion.
func DefaultFilters() Filters {
	return Filters{
		ExcludeImports:     true,
		ExcludeComments:    true,
		ExcludeKeywordArgs: true,
	}
}

// Synthesizer turns duplicate buckets into findings.
type Synthesizer struct {
	rule           string
	minOccurrences int
	filters        Filters
	suppressions   map[string]Suppression
}

// NewSynthesizer creates a synthesizer for one rule.
func NewSynthesizer(rule string, minOccurrences int, filters Filters) *Synthesizer {
	return &Synthesizer{
		rule:           rule,
		minOccurrences: minOccurrences,
		filters:        filters,
		suppressions:   make(map[string]Suppression),
	}
}

// SetSuppression records the suppression state parsed from a file's current
// source. Suppressions are per-run state and are never persisted.
func (s *Synthesizer) SetSuppression(path string, sup Suppression) {
	s.suppressions[path] = sup
}

// Synthesize converts one duplicate bucket into findings. Filtering order:
// content filters drop the whole bucket, suppression drops individual
// occurrences, and buckets left below the occurrence threshold are dropped
// entirely.
func (s *Synthesizer) Synthesize(bucket []index.CodeBlock) []Finding {
	if len(bucket) == 0 {
		return nil
	}

	// Occurrences share normalized content but their raw snippets can differ
	// by interleaved comments and blank lines. One occurrence matching a
	// structural filter settles the whole bucket, independent of bucket order.
	for _, b := range bucket {
		if s.filters.excludes(b.Snippet) {
			return nil
		}
	}

	kept := make([]index.CodeBlock, 0, len(bucket))
	for _, b := range bucket {
		if s.suppressed(b) {
			continue
		}
		kept = append(kept, b)
	}

	if len(kept) < s.minOccurrences {
		return nil
	}

	sort.Slice(kept, func(i, j int) bool {
		if kept[i].FilePath != kept[j].FilePath {
			return kept[i].FilePath < kept[j].FilePath
		}
		return kept[i].StartLine < kept[j].StartLine
	})

	findings := make([]Finding, 0, len(kept))
	for i, b := range kept {
		others := make([]Location, 0, len(kept)-1)
		for j, o := range kept {
			if j == i {
				continue
			}
			others = append(others, Location{
				File:      o.FilePath,
				StartLine: o.StartLine,
				EndLine:   o.EndLine,
			})
		}

		lines := b.EndLine - b.StartLine + 1
		findings = append(findings, Finding{
			Rule:       s.rule,
			File:       b.FilePath,
			Line:       b.StartLine,
			Column:     1,
			EndLine:    b.EndLine,
			Message: fmt.Sprintf("duplicated block of %d lines also appears at %s",
				lines, joinLocations(others)),
			Suggestion: "extract the repeated block into a shared helper and call it from each site",
			CrossRefs:  others,
		})
	}
	return findings
}

func (s *Synthesizer) suppressed(b index.CodeBlock) bool {
	sup, ok := s.suppressions[b.FilePath]
	if !ok {
		return false
	}
	return sup.Covers(b.StartLine, b.EndLine)
}

func joinLocations(locs []Location) string {
	parts := make([]string, len(locs))
	for i, l := range locs {
		parts[i] = l.String()
	}
	return strings.Join(parts, ", ")
}
