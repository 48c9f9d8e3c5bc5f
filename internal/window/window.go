// Package window slides a fixed-size window across a file's normalized lines
// and computes one 64-bit content hash per window.
package window

import (
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/dupehound/dupehound/internal/tokenize"
)

// Block is one hashed window, addressed by original source line range.
type Block struct {
	Hash      uint64
	StartLine int // 1-indexed, inclusive
	EndLine   int // 1-indexed, inclusive
	Snippet   string
}

// Hash produces every overlapping size-line window over the normalized lines.
// raw carries the original (non-normalized) source lines so each block can
// retain a human-readable snippet. For n normalized lines the result has
// max(0, n-size+1) blocks. Hashes are deterministic across runs and
// processes: xxhash of the window's normalized texts joined by newlines.
func Hash(lines []tokenize.Line, raw []string, size int) []Block {
	if size <= 0 || len(lines) < size {
		return nil
	}

	blocks := make([]Block, 0, len(lines)-size+1)
	for i := 0; i+size <= len(lines); i++ {
		win := lines[i : i+size]

		d := xxhash.New()
		for j, ln := range win {
			if j > 0 {
				d.WriteString("\n")
			}
			d.WriteString(ln.Text)
		}

		start := win[0].Number
		end := win[size-1].Number
		blocks = append(blocks, Block{
			Hash:      d.Sum64(),
			StartLine: start,
			EndLine:   end,
			Snippet:   snippet(raw, start, end),
		})
	}
	return blocks
}

// snippet extracts the raw source span for a line range.
func snippet(raw []string, start, end int) string {
	if start < 1 || start > len(raw) {
		return ""
	}
	if end > len(raw) {
		end = len(raw)
	}
	return strings.Join(raw[start-1:end], "\n")
}

// SplitRaw splits source text into raw lines for snippet extraction.
func SplitRaw(source []byte) []string {
	return strings.Split(string(source), "\n")
}
