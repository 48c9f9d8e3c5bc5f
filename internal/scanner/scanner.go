// Package scanner discovers the source files a run analyzes, honoring
// config excludes and .gitignore patterns.
package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/dupehound/dupehound/internal/config"
	"github.com/dupehound/dupehound/internal/tokenize"
)

// Scanner finds source files in a directory tree.
type Scanner struct {
	cfg        *config.Config
	cfgMatcher gitignore.Matcher
	gitMatcher gitignore.Matcher
	gitRoot    string
}

// New creates a scanner from config (nil means defaults).
func New(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Scanner{cfg: cfg}
}

// findGitRoot walks up from start looking for a .git directory.
func findGitRoot(start string) string {
	dir := start
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadExcludePatterns builds the config matcher (matched against scan-root
// relative paths) and the .gitignore matcher (matched against repository-root
// relative paths, since that is what the pattern domains are anchored to).
func (s *Scanner) loadExcludePatterns(root string) {
	var patterns []gitignore.Pattern

	for _, p := range s.cfg.Exclude.Patterns {
		patterns = append(patterns, gitignore.ParsePattern(p, nil))
	}
	for _, d := range s.cfg.Exclude.Dirs {
		patterns = append(patterns, gitignore.ParsePattern(d+"/", nil))
	}
	if len(patterns) > 0 {
		s.cfgMatcher = gitignore.NewMatcher(patterns)
	}

	if s.cfg.Exclude.Gitignore {
		if gitRoot := findGitRoot(root); gitRoot != "" {
			bfs := osfs.New(gitRoot)
			if gitPatterns, err := gitignore.ReadPatterns(bfs, nil); err == nil && len(gitPatterns) > 0 {
				s.gitRoot = gitRoot
				s.gitMatcher = gitignore.NewMatcher(gitPatterns)
			}
		}
	}
}

func (s *Scanner) isExcluded(path, relPath string, isDir bool) bool {
	if !isDir {
		ext := filepath.Ext(path)
		for _, e := range s.cfg.Exclude.Extensions {
			if ext == e {
				return true
			}
		}
	}

	if s.cfgMatcher != nil && s.cfgMatcher.Match(splitPath(relPath), isDir) {
		return true
	}

	if s.gitMatcher != nil {
		gitRel, err := filepath.Rel(s.gitRoot, path)
		if err == nil && !strings.HasPrefix(gitRel, "..") {
			if s.gitMatcher.Match(splitPath(gitRel), isDir) {
				return true
			}
		}
	}
	return false
}

func splitPath(p string) []string {
	return strings.Split(p, string(filepath.Separator))
}

// ScanDir recursively collects analyzable files under root. Files in
// unknown languages are skipped since no tokenizer can claim them.
func (s *Scanner) ScanDir(root string) ([]string, error) {
	files := make([]string, 0, 256)
	s.loadExcludePatterns(root)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		relPath, _ := filepath.Rel(root, path)
		if d.IsDir() {
			if relPath != "." && s.isExcluded(path, relPath, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if s.isExcluded(path, relPath, false) {
			return nil
		}
		if tokenize.DetectLanguage(path) != tokenize.LangUnknown {
			files = append(files, path)
		}
		return nil
	})

	return files, walkErr
}

// ScanPaths collects files from a mix of file and directory arguments.
func (s *Scanner) ScanPaths(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			found, err := s.ScanDir(p)
			if err != nil {
				return nil, err
			}
			files = append(files, found...)
			continue
		}
		if tokenize.DetectLanguage(p) != tokenize.LangUnknown {
			files = append(files, p)
		}
	}
	return files, nil
}

// FilterBySize drops files larger than maxSize bytes, returning the kept
// list and the skip count. maxSize <= 0 keeps everything.
func FilterBySize(files []string, maxSize int64) ([]string, int) {
	if maxSize <= 0 {
		return files, 0
	}

	kept := make([]string, 0, len(files))
	skipped := 0
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil || info.Size() > maxSize {
			skipped++
			continue
		}
		kept = append(kept, f)
	}
	return kept, skipped
}
