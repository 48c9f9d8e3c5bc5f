package index

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fileRow is the files table: one row per indexed file.
type fileRow struct {
	FilePath     string `gorm:"primaryKey;size:1024;column:file_path"`
	ModifiedTime int64  `gorm:"column:modified_time"`
	BlockCount   int    `gorm:"column:block_count"`
}

func (fileRow) TableName() string { return "files" }

// blockRow is the code_blocks table. HashValue is the uint64 window hash
// bit-cast to int64 because SQLite has no unsigned 64-bit affinity; the cast
// is lossless and reversed on read.
type blockRow struct {
	ID        uint   `gorm:"primaryKey"`
	FilePath  string `gorm:"index;size:1024;column:file_path"`
	HashValue int64  `gorm:"index;column:hash_value"`
	StartLine int    `gorm:"column:start_line"`
	EndLine   int    `gorm:"column:end_line"`
	Snippet   string `gorm:"type:text;column:snippet"`
}

func (blockRow) TableName() string { return "code_blocks" }

// metaRow stores the hashing-scheme fingerprint.
type metaRow struct {
	Key   string `gorm:"primaryKey;size:64"`
	Value string `gorm:"size:256"`
}

func (metaRow) TableName() string { return "meta" }

const fingerprintKey = "fingerprint"

// SQLiteStore is the file-backed Store implementation. A single RW mutex
// provides the single-writer/multi-reader discipline the Store contract
// requires.
type SQLiteStore struct {
	mu sync.RWMutex
	db *gorm.DB
}

// Open opens or creates the index database at path. A corrupted or
// unreadable database is discarded and recreated empty, and a fingerprint
// mismatch truncates all stored files and blocks; both degrade to a full
// re-hash rather than an error.
func Open(path, fingerprint string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create index directory: %w", err)
		}
	}

	db, err := open(path)
	if err != nil {
		// Corrupted or unreadable: discard and start empty.
		_ = os.Remove(path)
		db, err = open(path)
		if err != nil {
			return nil, fmt.Errorf("recreate index: %w", err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.checkFingerprint(fingerprint); err != nil {
		return nil, err
	}
	return s, nil
}

func open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&fileRow{}, &blockRow{}, &metaRow{}); err != nil {
		return nil, err
	}
	return db, nil
}

// checkFingerprint truncates stored blocks when the hashing scheme changed.
func (s *SQLiteStore) checkFingerprint(fingerprint string) error {
	var row metaRow
	err := s.db.Where("key = ?", fingerprintKey).First(&row).Error
	if err == nil && row.Value == fingerprint {
		return nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("read index fingerprint: %w", err)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&blockRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&fileRow{}).Error; err != nil {
			return err
		}
		return tx.Save(&metaRow{Key: fingerprintKey, Value: fingerprint}).Error
	})
}

// IsFresh implements Store.
func (s *SQLiteStore) IsFresh(path string, modTime int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var row fileRow
	if err := s.db.Where("file_path = ?", path).First(&row).Error; err != nil {
		return false
	}
	return row.ModifiedTime == modTime
}

// ReplaceBlocks implements Store.
func (s *SQLiteStore) ReplaceBlocks(path string, modTime int64, blocks []CodeBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("file_path = ?", path).Delete(&blockRow{}).Error; err != nil {
			return err
		}

		if len(blocks) > 0 {
			rows := make([]blockRow, len(blocks))
			for i, b := range blocks {
				rows[i] = blockRow{
					FilePath:  path,
					HashValue: int64(b.Hash),
					StartLine: b.StartLine,
					EndLine:   b.EndLine,
					Snippet:   b.Snippet,
				}
			}
			if err := tx.CreateInBatches(rows, 500).Error; err != nil {
				return err
			}
		}

		return tx.Save(&fileRow{
			FilePath:     path,
			ModifiedTime: modTime,
			BlockCount:   len(blocks),
		}).Error
	})
}

// FindByHash implements Store.
func (s *SQLiteStore) FindByHash(hash uint64) ([]CodeBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []blockRow
	err := s.db.Where("hash_value = ?", int64(hash)).
		Order("file_path, start_line").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toBlocks(rows), nil
}

// BlocksForFile implements Store.
func (s *SQLiteStore) BlocksForFile(path string) ([]CodeBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []blockRow
	err := s.db.Where("file_path = ?", path).
		Order("start_line").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toBlocks(rows), nil
}

// PruneMissingFiles implements Store.
func (s *SQLiteStore) PruneMissingFiles(existing map[string]struct{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var paths []string
	if err := s.db.Model(&fileRow{}).Pluck("file_path", &paths).Error; err != nil {
		return err
	}

	var stale []string
	for _, p := range paths {
		if _, ok := existing[p]; !ok {
			stale = append(stale, p)
		}
	}
	if len(stale) == 0 {
		return nil
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("file_path IN ?", stale).Delete(&blockRow{}).Error; err != nil {
			return err
		}
		return tx.Where("file_path IN ?", stale).Delete(&fileRow{}).Error
	})
}

// Stats implements Store.
func (s *SQLiteStore) Stats() (IndexStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st IndexStats
	if err := s.db.Model(&fileRow{}).Count(&st.Files).Error; err != nil {
		return st, err
	}
	if err := s.db.Model(&blockRow{}).Count(&st.Blocks).Error; err != nil {
		return st, err
	}
	return st, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toBlocks(rows []blockRow) []CodeBlock {
	blocks := make([]CodeBlock, len(rows))
	for i, r := range rows {
		blocks[i] = CodeBlock{
			FilePath:  r.FilePath,
			Hash:      uint64(r.HashValue),
			StartLine: r.StartLine,
			EndLine:   r.EndLine,
			Snippet:   r.Snippet,
		}
	}
	return blocks
}
