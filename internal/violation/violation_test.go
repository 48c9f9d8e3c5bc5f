package violation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dupehound/dupehound/internal/index"
)

func occ(file string, start, end int, snippet string) index.CodeBlock {
	return index.CodeBlock{FilePath: file, Hash: 1, StartLine: start, EndLine: end, Snippet: snippet}
}

func TestSynthesizeOneFindingPerOccurrence(t *testing.T) {
	s := NewSynthesizer("duplicate-code", 2, Filters{})

	findings := s.Synthesize([]index.CodeBlock{
		occ("a.go", 3, 5, "x"),
		occ("b.go", 7, 9, "x"),
		occ("c.go", 1, 3, "x"),
	})

	require.Len(t, findings, 3)
	for _, f := range findings {
		assert.Equal(t, "duplicate-code", f.Rule)
		assert.Len(t, f.CrossRefs, 2, "each finding references every other occurrence")
		for _, ref := range f.CrossRefs {
			assert.NotEqual(t, f.File, ref.File, "a finding never references itself")
		}
		assert.NotEmpty(t, f.Message)
		assert.NotEmpty(t, f.Suggestion)
	}
}

func TestSynthesizeThreshold(t *testing.T) {
	s := NewSynthesizer("duplicate-code", 3, Filters{})

	below := s.Synthesize([]index.CodeBlock{
		occ("a.go", 1, 3, "x"),
		occ("b.go", 1, 3, "x"),
	})
	assert.Empty(t, below, "bucket below threshold is dropped entirely")

	at := s.Synthesize([]index.CodeBlock{
		occ("a.go", 1, 3, "x"),
		occ("b.go", 1, 3, "x"),
		occ("c.go", 1, 3, "x"),
	})
	assert.Len(t, at, 3, "bucket at threshold reports one finding per occurrence")
}

func TestSynthesizeDeterministicOrder(t *testing.T) {
	s := NewSynthesizer("duplicate-code", 2, Filters{})

	findings := s.Synthesize([]index.CodeBlock{
		occ("z.go", 1, 3, "x"),
		occ("a.go", 9, 11, "x"),
		occ("a.go", 1, 3, "x"),
	})

	require.Len(t, findings, 3)
	assert.Equal(t, "a.go", findings[0].File)
	assert.Equal(t, 1, findings[0].Line)
	assert.Equal(t, "a.go", findings[1].File)
	assert.Equal(t, 9, findings[1].Line)
	assert.Equal(t, "z.go", findings[2].File)
}

func TestSuppressionExcludesOccurrence(t *testing.T) {
	s := NewSynthesizer("duplicate-code", 2, Filters{})
	s.SetSuppression("b.go", Suppression{Lines: map[int]struct{}{8: {}}})

	findings := s.Synthesize([]index.CodeBlock{
		occ("a.go", 3, 5, "x"),
		occ("b.go", 7, 9, "x"), // directive on line 8 is inside this span
		occ("c.go", 1, 3, "x"),
	})

	require.Len(t, findings, 2)
	for _, f := range findings {
		assert.NotEqual(t, "b.go", f.File)
	}
}

func TestSuppressionCanDropBucketBelowThreshold(t *testing.T) {
	s := NewSynthesizer("duplicate-code", 2, Filters{})
	s.SetSuppression("b.go", Suppression{FileWide: true})

	findings := s.Synthesize([]index.CodeBlock{
		occ("a.go", 3, 5, "x"),
		occ("b.go", 7, 9, "x"),
	})
	assert.Empty(t, findings)
}

func TestContentFilterImports(t *testing.T) {
	snippet := "import (\n\t\"fmt\"\n\t\"os\"\n)"
	bucket := []index.CodeBlock{
		occ("a.go", 1, 4, snippet),
		occ("b.go", 1, 4, snippet),
	}

	filtered := NewSynthesizer("duplicate-code", 2, Filters{ExcludeImports: true})
	assert.Empty(t, filtered.Synthesize(bucket), "import groups are identical by convention")

	unfiltered := NewSynthesizer("duplicate-code", 2, Filters{})
	assert.Len(t, unfiltered.Synthesize(bucket), 2)
}

func TestContentFilterIndependentOfOccurrenceOrder(t *testing.T) {
	// Same normalized content, but one occurrence's snippet carries an
	// interleaved comment. The bucket is excluded whichever occurrence
	// comes first.
	pure := "import (\n\t\"fmt\"\n\t\"os\"\n)"
	commented := "import (\n\t\"fmt\"\n\t// keep sorted\n\t\"os\"\n)"

	s := NewSynthesizer("duplicate-code", 2, Filters{ExcludeImports: true})

	assert.Empty(t, s.Synthesize([]index.CodeBlock{
		occ("a.go", 1, 5, commented),
		occ("b.go", 1, 4, pure),
	}))
	assert.Empty(t, s.Synthesize([]index.CodeBlock{
		occ("b.go", 1, 4, pure),
		occ("a.go", 1, 5, commented),
	}))
}

func TestContentFilterPythonImports(t *testing.T) {
	snippet := "import os\nfrom typing import Any\nimport sys"
	bucket := []index.CodeBlock{
		occ("a.py", 1, 3, snippet),
		occ("b.py", 1, 3, snippet),
	}
	s := NewSynthesizer("duplicate-code", 2, Filters{ExcludeImports: true})
	assert.Empty(t, s.Synthesize(bucket))
}

func TestContentFilterComments(t *testing.T) {
	snippet := "\"\"\"\n# shared boilerplate header\n\"\"\""
	bucket := []index.CodeBlock{
		occ("a.py", 1, 3, snippet),
		occ("b.py", 1, 3, snippet),
	}
	s := NewSynthesizer("duplicate-code", 2, Filters{ExcludeComments: true})
	assert.Empty(t, s.Synthesize(bucket))
}

func TestContentFilterKeywordArgs(t *testing.T) {
	snippet := "name=\"widget\",\nsize=12,\ncolor=\"red\")"
	bucket := []index.CodeBlock{
		occ("a.py", 4, 6, snippet),
		occ("b.py", 9, 11, snippet),
	}
	s := NewSynthesizer("duplicate-code", 2, Filters{ExcludeKeywordArgs: true})
	assert.Empty(t, s.Synthesize(bucket))
}

func TestContentFilterKeepsRealCode(t *testing.T) {
	snippet := "x := compute()\nif x > 0 {\n\treturn x\n}"
	bucket := []index.CodeBlock{
		occ("a.go", 1, 4, snippet),
		occ("b.go", 1, 4, snippet),
	}
	s := NewSynthesizer("duplicate-code", 2, DefaultFilters())
	assert.Len(t, s.Synthesize(bucket), 2, "ordinary code passes every filter")
}

func TestParseSuppressions(t *testing.T) {
	source := []byte(`package main

func a() { // dupehound:ignore
}

func b() { // dupehound:ignore=duplicate-code
}

func c() { // dupehound:ignore=other-rule
}
`)

	sup := ParseSuppressions("duplicate-code", source)
	assert.False(t, sup.FileWide)
	assert.Contains(t, sup.Lines, 3, "bare directive applies to every rule")
	assert.Contains(t, sup.Lines, 6, "targeted directive applies to the named rule")
	assert.NotContains(t, sup.Lines, 9, "directive naming an unknown rule never suppresses")
}

func TestParseSuppressionsMarkerMustEndToken(t *testing.T) {
	source := []byte(`package main

// dupehound:disabled tracking lives elsewhere
func a() { // dupehound:ignores nothing
}

func b() { // dupehound:ignore trailing prose is fine
}
`)

	sup := ParseSuppressions("duplicate-code", source)
	assert.False(t, sup.FileWide, "prose containing the marker is not a directive")
	assert.NotContains(t, sup.Lines, 4)
	assert.Contains(t, sup.Lines, 7, "whitespace after the marker ends the token")
}

func TestParseSuppressionsFileWide(t *testing.T) {
	sup := ParseSuppressions("duplicate-code", []byte("// dupehound:disable\npackage gen\n"))
	assert.True(t, sup.FileWide)
	assert.True(t, sup.Covers(100, 120))
}

func TestParseSuppressionsFileWideUnknownTarget(t *testing.T) {
	sup := ParseSuppressions("duplicate-code", []byte("// dupehound:disable=no-such-rule\n"))
	assert.False(t, sup.FileWide)
}

func TestSuppressionCovers(t *testing.T) {
	sup := Suppression{Lines: map[int]struct{}{5: {}}}
	assert.True(t, sup.Covers(3, 7))
	assert.True(t, sup.Covers(5, 5))
	assert.False(t, sup.Covers(6, 9))
	assert.False(t, sup.Covers(1, 4))
}
