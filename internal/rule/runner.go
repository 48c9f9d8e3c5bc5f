package rule

import (
	"fmt"
	"os"
	"runtime"
	"sort"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/dupehound/dupehound/internal/tokenize"
	"github.com/dupehound/dupehound/internal/violation"
)

// DefaultWorkerMultiplier is applied to NumCPU for worker count.
// 2x suits the mixed I/O and hashing workload.
const DefaultWorkerMultiplier = 2

// FileError records a file that could not be read or checked.
type FileError struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Result is the outcome of one full run.
type Result struct {
	Findings []violation.Finding `json:"findings"`
	Errors   []FileError         `json:"errors,omitempty"`
	Files    int                 `json:"files"`
}

// Runner drives rules over a file set: per-file checks from a worker pool,
// then one finalize pass once all per-file work has committed.
type Runner struct {
	rules      []Rule
	maxWorkers int
	onProgress func()
}

// Option configures a Runner.
type Option func(*Runner)

// WithWorkers sets the worker pool size (<= 0 means 2x NumCPU).
func WithWorkers(n int) Option {
	return func(r *Runner) {
		r.maxWorkers = n
	}
}

// WithProgress sets a callback invoked after each file is checked.
func WithProgress(fn func()) Option {
	return func(r *Runner) {
		r.onProgress = fn
	}
}

// NewRunner creates a runner over the given rules.
func NewRunner(rules []Rule, opts ...Option) *Runner {
	r := &Runner{rules: rules}
	for _, opt := range opts {
		opt(r)
	}
	if r.maxWorkers <= 0 {
		r.maxWorkers = runtime.NumCPU() * DefaultWorkerMultiplier
	}
	return r
}

// Run checks every file and then finalizes. Unreadable files are collected
// as errors, never fatal; per-file findings and finalize findings merge into
// one deterministic, sorted list.
func (r *Runner) Run(files []string) (*Result, error) {
	res := &Result{Files: len(files)}
	var mu sync.Mutex

	p := pool.New().WithMaxGoroutines(r.maxWorkers)
	for _, path := range files {
		p.Go(func() {
			findings, err := r.checkOne(path)

			mu.Lock()
			if err != nil {
				res.Errors = append(res.Errors, FileError{Path: path, Err: err})
			}
			res.Findings = append(res.Findings, findings...)
			mu.Unlock()

			if r.onProgress != nil {
				r.onProgress()
			}
		})
	}
	p.Wait()

	// All per-file writes have committed; finalizing rules may now see the
	// whole project.
	for _, rl := range r.rules {
		fin, ok := rl.(Finalizer)
		if !ok {
			continue
		}
		findings, err := fin.Finalize()
		if err != nil {
			return nil, fmt.Errorf("finalize %s: %w", rl.ID(), err)
		}
		res.Findings = append(res.Findings, findings...)
	}

	sortFindings(res.Findings)
	sort.Slice(res.Errors, func(i, j int) bool { return res.Errors[i].Path < res.Errors[j].Path })
	return res, nil
}

func (r *Runner) checkOne(path string) ([]violation.Finding, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	file := &FileContext{
		Path:     path,
		Source:   source,
		Language: tokenize.DetectLanguage(path),
		ModTime:  info.ModTime(),
	}

	var findings []violation.Finding
	for _, rl := range r.rules {
		f, err := rl.Check(file)
		if err != nil {
			return findings, err
		}
		findings = append(findings, f...)
	}
	return findings, nil
}

func sortFindings(findings []violation.Finding) {
	sort.Slice(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Rule < b.Rule
	})
}
