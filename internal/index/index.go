// Package index provides the persistent cross-file hash index backing
// duplicate detection. It owns all FileRecord and CodeBlock storage; callers
// interact only through the Store contract and never cache blocks themselves.
package index

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// CodeBlock is a hashed window of normalized source stored for one file.
type CodeBlock struct {
	FilePath  string `json:"file_path"`
	Hash      uint64 `json:"hash"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Snippet   string `json:"snippet"`
}

// FileRecord is the freshness bookkeeping for one indexed file.
type FileRecord struct {
	FilePath     string `json:"file_path"`
	ModifiedTime int64  `json:"modified_time"` // unix nanoseconds
	BlockCount   int    `json:"block_count"`
}

// Store is the cross-file index contract. Implementations serialize writes
// internally: ReplaceBlocks and PruneMissingFiles never run concurrently with
// each other or with reads, and reads may run concurrently with reads.
type Store interface {
	// IsFresh reports whether a record exists for path with this exact
	// modification time.
	IsFresh(path string, modTime int64) bool

	// ReplaceBlocks atomically deletes the file's existing blocks, inserts
	// the new set, and upserts its FileRecord. The new state is visible to
	// FindByHash as soon as ReplaceBlocks returns.
	ReplaceBlocks(path string, modTime int64, blocks []CodeBlock) error

	// FindByHash returns every stored block across all files with this hash.
	FindByHash(hash uint64) ([]CodeBlock, error)

	// BlocksForFile returns the stored blocks for one file.
	BlocksForFile(path string) ([]CodeBlock, error)

	// PruneMissingFiles deletes records (and their blocks) for any indexed
	// file not present in existing.
	PruneMissingFiles(existing map[string]struct{}) error

	// Stats reports the current index contents.
	Stats() (IndexStats, error)

	Close() error
}

// IndexStats summarizes index contents for maintenance commands.
type IndexStats struct {
	Files  int64 `json:"files"`
	Blocks int64 `json:"blocks"`
}

// Fingerprint derives a stable identifier for the hashing scheme in effect.
// Stored blocks are only comparable to fresh ones when the window size and
// tokenizer rules match, so a fingerprint change resets the index.
func Fingerprint(windowSize int, tokenizerVersion string) string {
	sum := blake3.Sum256([]byte(fmt.Sprintf("v1:%d:%s", windowSize, tokenizerVersion)))
	return hex.EncodeToString(sum[:16])
}
