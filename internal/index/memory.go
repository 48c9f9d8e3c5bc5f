package index

import (
	"sort"
	"sync"
)

// MemoryStore is an in-process Store with the same freshness and lookup
// contract as the SQLite implementation. Nothing survives the run; it backs
// --no-index mode and test isolation.
type MemoryStore struct {
	mu     sync.RWMutex
	files  map[string]FileRecord
	blocks map[string][]CodeBlock // keyed by file path
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		files:  make(map[string]FileRecord),
		blocks: make(map[string][]CodeBlock),
	}
}

// IsFresh implements Store.
func (m *MemoryStore) IsFresh(path string, modTime int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.files[path]
	return ok && rec.ModifiedTime == modTime
}

// ReplaceBlocks implements Store.
func (m *MemoryStore) ReplaceBlocks(path string, modTime int64, blocks []CodeBlock) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]CodeBlock, len(blocks))
	for i, b := range blocks {
		b.FilePath = path
		stored[i] = b
	}
	m.blocks[path] = stored
	m.files[path] = FileRecord{
		FilePath:     path,
		ModifiedTime: modTime,
		BlockCount:   len(blocks),
	}
	return nil
}

// FindByHash implements Store.
func (m *MemoryStore) FindByHash(hash uint64) ([]CodeBlock, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []CodeBlock
	for _, blocks := range m.blocks {
		for _, b := range blocks {
			if b.Hash == hash {
				out = append(out, b)
			}
		}
	}
	// Same (file, start line) order as the SQLite store; map iteration must
	// not leak into bucket order.
	sort.Slice(out, func(i, j int) bool {
		if out[i].FilePath != out[j].FilePath {
			return out[i].FilePath < out[j].FilePath
		}
		return out[i].StartLine < out[j].StartLine
	})
	return out, nil
}

// BlocksForFile implements Store.
func (m *MemoryStore) BlocksForFile(path string) ([]CodeBlock, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]CodeBlock, len(m.blocks[path]))
	copy(out, m.blocks[path])
	return out, nil
}

// PruneMissingFiles implements Store.
func (m *MemoryStore) PruneMissingFiles(existing map[string]struct{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for path := range m.files {
		if _, ok := existing[path]; !ok {
			delete(m.files, path)
			delete(m.blocks, path)
		}
	}
	return nil
}

// Stats implements Store.
func (m *MemoryStore) Stats() (IndexStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := IndexStats{Files: int64(len(m.files))}
	for _, blocks := range m.blocks {
		st.Blocks += int64(len(blocks))
	}
	return st, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }
