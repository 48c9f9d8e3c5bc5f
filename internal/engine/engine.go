// Package engine implements the duplicate-code rule: a two-phase analysis
// that collects hashed windows per file into the cross-file index, then
// finalizes once every file has been seen. Duplication is a property of the
// file set, not any single file, so the per-file step reports nothing and the
// full finding list materializes at finalize time.
package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dupehound/dupehound/internal/index"
	"github.com/dupehound/dupehound/internal/tokenize"
	"github.com/dupehound/dupehound/internal/violation"
	"github.com/dupehound/dupehound/internal/window"
)

// RuleID identifies this rule in findings and suppression directives.
const RuleID = "duplicate-code"

// State is the engine lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateAnalyzing
	StateFinalizing
	StateDone
)

// ErrDone reports a per-file call arriving after Finalize.
var ErrDone = errors.New("engine already finalized")

// neverFreshMtime never equals a real modification time, so a file recorded
// with it fails the freshness check on every run.
const neverFreshMtime int64 = -1

// Config controls duplicate detection.
type Config struct {
	// WindowLines is the minimum duplicate length in normalized lines.
	WindowLines int
	// MinOccurrences is the bucket size threshold for reporting.
	MinOccurrences int
	// Filters are the structural content exclusions.
	Filters violation.Filters
	// IndexPath locates the persistent index. Ignored when InMemory is set.
	IndexPath string
	// InMemory replaces the persistent index with a run-scoped store.
	InMemory bool
}

// Validate rejects configurations that would make every result meaningless.
// Called before any file is processed; a failure here is fatal to the run.
func (c Config) Validate() error {
	if c.WindowLines <= 0 {
		return fmt.Errorf("window size must be positive, got %d", c.WindowLines)
	}
	if c.MinOccurrences < 2 {
		return fmt.Errorf("minimum occurrence count must be at least 2, got %d", c.MinOccurrences)
	}
	return nil
}

// DefaultConfig returns the stock duplicate-rule settings.
func DefaultConfig() Config {
	return Config{
		WindowLines:    3,
		MinOccurrences: 2,
		Filters:        violation.DefaultFilters(),
		IndexPath:      ".dupehound/index.db",
	}
}

// Notice is a non-fatal per-file problem surfaced alongside findings.
type Notice struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// Engine is the duplicate-code rule. Safe for concurrent CheckFile calls;
// index writes serialize inside the store and Finalize must not start until
// every CheckFile call has returned.
type Engine struct {
	cfg   Config
	synth *violation.Synthesizer

	initOnce sync.Once
	initErr  error
	store    index.Store

	mu         sync.Mutex
	state      State
	analyzing  int
	seenFiles  map[string]struct{}
	seenHashes map[uint64]struct{}
	notices    []Notice

	tokenized atomic.Int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithStore substitutes the index store (for tests or alternative backends).
func WithStore(s index.Store) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// New creates the duplicate engine. The configuration is validated here,
// before any file is processed; the index itself opens lazily on the first
// per-file call.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("duplicate rule config: %w", err)
	}

	e := &Engine{
		cfg:        cfg,
		synth:      violation.NewSynthesizer(RuleID, cfg.MinOccurrences, cfg.Filters),
		state:      StateUninitialized,
		seenFiles:  make(map[string]struct{}),
		seenHashes: make(map[uint64]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// init opens the index on first use.
func (e *Engine) init() error {
	e.initOnce.Do(func() {
		if e.store == nil {
			if e.cfg.InMemory {
				e.store = index.NewMemory()
			} else {
				fp := index.Fingerprint(e.cfg.WindowLines, tokenize.Version)
				e.store, e.initErr = index.Open(e.cfg.IndexPath, fp)
			}
		}
		if e.initErr == nil {
			e.mu.Lock()
			e.state = StateReady
			e.mu.Unlock()
		}
	})
	return e.initErr
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// TokenizedFiles returns how many files were tokenized this run. A warm
// index makes this zero on an unchanged tree.
func (e *Engine) TokenizedFiles() int64 {
	return e.tokenized.Load()
}

// Notices returns the non-fatal problems collected so far.
func (e *Engine) Notices() []Notice {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Notice, len(e.notices))
	copy(out, e.notices)
	return out
}

// CheckFile is the collection phase step for one file. It refreshes the
// file's blocks in the index when stale and always returns an empty finding
// list: no duplication verdict exists until Finalize.
func (e *Engine) CheckFile(path string, source []byte, lang tokenize.Language, modTime time.Time) ([]violation.Finding, error) {
	if err := e.init(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	if e.state == StateFinalizing || e.state == StateDone {
		e.mu.Unlock()
		return nil, ErrDone
	}
	e.state = StateAnalyzing
	e.analyzing++
	e.seenFiles[path] = struct{}{}
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.analyzing--
		if e.analyzing == 0 && e.state == StateAnalyzing {
			e.state = StateReady
		}
		e.mu.Unlock()
	}()

	// Suppression directives are never persisted, so they are re-read from
	// current source even when the index is fresh.
	sup := violation.ParseSuppressions(RuleID, source)
	e.mu.Lock()
	e.synth.SetSuppression(path, sup)
	e.mu.Unlock()

	mtime := modTime.UnixNano()
	if e.store.IsFresh(path, mtime) {
		blocks, err := e.store.BlocksForFile(path)
		if err != nil {
			e.addNotice(path, fmt.Sprintf("index read failed: %v", err))
			return nil, nil
		}
		e.registerHashes(blocks)
		return nil, nil
	}

	e.tokenized.Add(1)
	lines, err := tokenize.ForLanguage(lang).Tokenize(source)
	if err != nil {
		e.addNotice(path, fmt.Sprintf("parse failure: %v", err))
		// Drop any stale blocks so deleted-then-binary files cannot keep
		// contributing occurrences, but record no usable mtime: the file must
		// be re-read and re-reported on the next run.
		if werr := e.store.ReplaceBlocks(path, neverFreshMtime, nil); werr != nil {
			e.addNotice(path, fmt.Sprintf("index write failed: %v", werr))
		}
		return nil, nil
	}

	hashed := window.Hash(lines, window.SplitRaw(source), e.cfg.WindowLines)
	blocks := make([]index.CodeBlock, len(hashed))
	for i, b := range hashed {
		blocks[i] = index.CodeBlock{
			FilePath:  path,
			Hash:      b.Hash,
			StartLine: b.StartLine,
			EndLine:   b.EndLine,
			Snippet:   b.Snippet,
		}
	}

	if err := e.store.ReplaceBlocks(path, mtime, blocks); err != nil {
		// The file keeps its old index state and is re-analyzed next run;
		// only the caching benefit is lost.
		e.addNotice(path, fmt.Sprintf("index write failed: %v", err))
		return nil, nil
	}

	e.registerHashes(blocks)
	return nil, nil
}

// Finalize is the whole-project phase: prune records for files no longer on
// disk, query every hash observed this run, and synthesize findings from
// buckets with enough occurrences. The engine is done afterwards; a fresh
// run needs a fresh Engine, though the persistent index survives.
func (e *Engine) Finalize() ([]violation.Finding, error) {
	if err := e.init(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	if e.state == StateDone {
		e.mu.Unlock()
		return nil, ErrDone
	}
	e.state = StateFinalizing
	seen := e.seenFiles
	hashes := make([]uint64, 0, len(e.seenHashes))
	for h := range e.seenHashes {
		hashes = append(hashes, h)
	}
	e.mu.Unlock()

	if err := e.store.PruneMissingFiles(seen); err != nil {
		return nil, fmt.Errorf("prune index: %w", err)
	}

	// Deterministic bucket order regardless of map iteration or worker
	// scheduling.
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })

	var findings []violation.Finding
	for _, h := range hashes {
		bucket, err := e.store.FindByHash(h)
		if err != nil {
			return nil, fmt.Errorf("index lookup: %w", err)
		}
		if len(bucket) < 2 {
			continue
		}
		findings = append(findings, e.synth.Synthesize(bucket)...)
	}

	sort.Slice(findings, func(i, j int) bool {
		if findings[i].File != findings[j].File {
			return findings[i].File < findings[j].File
		}
		if findings[i].Line != findings[j].Line {
			return findings[i].Line < findings[j].Line
		}
		return findings[i].EndLine < findings[j].EndLine
	})

	e.mu.Lock()
	e.state = StateDone
	e.mu.Unlock()
	return findings, nil
}

// Close releases the index handle.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

func (e *Engine) registerHashes(blocks []index.CodeBlock) {
	e.mu.Lock()
	for _, b := range blocks {
		e.seenHashes[b.Hash] = struct{}{}
	}
	e.mu.Unlock()
}

func (e *Engine) addNotice(path, msg string) {
	e.mu.Lock()
	e.notices = append(e.notices, Notice{File: path, Message: msg})
	e.mu.Unlock()
}
