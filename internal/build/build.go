// Package build runs the content pipeline: scan the content tree, parse and
// validate each markdown file, apply the results to an in-memory store in
// deterministic order, and assemble the manifest plus failure report.
//
// Parsing is concurrent; application is not. Parse outcomes are sorted by
// source path before they touch the store, so slug collisions always resolve
// the same way regardless of worker count or filesystem enumeration order.
package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/calvinalkan/fileproc"
	"github.com/google/uuid"

	"inkwell/internal/content"
	"inkwell/internal/frontmatter"
	"inkwell/internal/manifest"
	"inkwell/internal/store"
)

// InternalDir is the directory under the content root that holds pipeline
// state (lock file, derived index). Files inside it are never indexed.
const InternalDir = ".inkwell"

// DefaultLockTimeout bounds how long a build waits for a concurrent build
// against the same root to finish.
const DefaultLockTimeout = 10 * time.Second

// Options configures a single build run.
type Options struct {
	// ContentDir is the root scanned for .md files.
	ContentDir string

	// Workers caps concurrent file parsing. <= 0 means runtime.NumCPU().
	Workers int

	// Prior is the manifest of the previous build, if any. Files whose
	// content fingerprint matches their prior entry are reused without
	// reparsing.
	Prior *manifest.Manifest

	// LockPath, when non-empty, is flocked for the duration of the build.
	LockPath string

	// LockTimeout bounds lock acquisition. <= 0 means DefaultLockTimeout.
	LockTimeout time.Duration
}

// Stats counts what a build did per file.
type Stats struct {
	Parsed int
	Reused int
	Failed int
}

// Result is the output of a build run. Manifest holds only documents that
// passed validation; Report lists everything that did not.
type Result struct {
	Manifest *manifest.Manifest
	Report   *manifest.Report
	Stats    Stats
}

// fileOutcome is one successfully parsed (or reused) document, keyed for
// deterministic application by its source path.
type fileOutcome struct {
	doc    content.Document
	reused bool
}

// fileIssue marks a per-file parse failure so scan errors can be attributed
// to their source path and taxonomy kind.
type fileIssue struct {
	path string
	err  error
}

func (e *fileIssue) Error() string {
	return fmt.Sprintf("%s: %v", e.path, e.err)
}

func (e *fileIssue) Unwrap() error {
	return e.err
}

// Run executes one build. A missing or unreadable content root is fatal;
// per-file failures are recorded in the report and the build continues.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}

	if opts.ContentDir == "" {
		return nil, errors.New("content dir is empty")
	}

	info, err := os.Stat(opts.ContentDir)
	if err != nil {
		return nil, fmt.Errorf("content dir: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("content dir %s is not a directory", opts.ContentDir)
	}

	if opts.LockPath != "" {
		timeout := opts.LockTimeout
		if timeout <= 0 {
			timeout = DefaultLockTimeout
		}

		lock, lockErr := acquireLock(opts.LockPath, timeout)
		if lockErr != nil {
			return nil, lockErr
		}

		defer func() { _ = lock.Close() }()
	}

	outcomes, failures, err := scanContentFiles(ctx, opts)
	if err != nil {
		return nil, err
	}

	// Application order is the only thing that decides collision winners.
	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].doc.SourcePath < outcomes[j].doc.SourcePath
	})

	st := store.New()
	idx := store.NewTagIndex()
	stats := Stats{}

	for _, out := range outcomes {
		insertErr := st.Insert(out.doc)
		if insertErr != nil {
			var collision *store.CollisionError
			if errors.As(insertErr, &collision) {
				failures = append(failures, manifest.Failure{
					SourcePath: out.doc.SourcePath,
					Kind:       manifest.KindCollision,
					Detail:     collision.Error(),
				})

				continue
			}

			return nil, fmt.Errorf("store %s: %w", out.doc.SourcePath, insertErr)
		}

		idx.Add(out.doc.Slug, out.doc.PublishedAt, out.doc.Tags)

		if out.reused {
			stats.Reused++
		} else {
			stats.Parsed++
		}
	}

	sort.Slice(failures, func(i, j int) bool {
		if failures[i].SourcePath != failures[j].SourcePath {
			return failures[i].SourcePath < failures[j].SourcePath
		}

		return failures[i].Detail < failures[j].Detail
	})

	stats.Failed = len(failures)

	report := &manifest.Report{
		BuildID:    uuid.Must(uuid.NewV7()).String(),
		FinishedAt: time.Now().UTC().Format(time.RFC3339),
		Failures:   failures,
	}

	return &Result{
		Manifest: manifest.New(st.All(), idx.Snapshot()),
		Report:   report,
		Stats:    stats,
	}, nil
}

var errSkipInternalPath = errors.New("internal path")

// scanContentFiles walks the content root in parallel, parsing every .md
// file (or reusing its prior document when the fingerprint is unchanged).
func scanContentFiles(ctx context.Context, opts Options) ([]fileOutcome, []manifest.Failure, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var prior map[string]manifest.Document
	if opts.Prior != nil {
		prior = opts.Prior.ByPath()
	}

	// fileproc sizes its own pool; the semaphore enforces the configured cap.
	sem := make(chan struct{}, workers)

	procOpts := []fileproc.Option{
		fileproc.WithRecursive(),
		fileproc.WithSuffix(".md"),
		fileproc.WithOnError(func(err error, _, _ int) bool {
			return !errors.Is(err, errSkipInternalPath)
		}),
	}

	results, errs := fileproc.Process(ctx, opts.ContentDir, func(f *fileproc.File, _ *fileproc.FileWorker) (*fileOutcome, error) {
		path := f.RelPath()
		if isInternalPath(path) {
			return nil, errSkipInternalPath
		}

		sem <- struct{}{}
		defer func() { <-sem }()

		relPath := filepath.ToSlash(string(path))

		raw, readErr := io.ReadAll(f)
		if readErr != nil {
			return nil, &fileIssue{path: relPath, err: fmt.Errorf("fs: %w", readErr)}
		}

		if prior != nil {
			prev, ok := prior[relPath]
			if ok && prev.Fingerprint == content.Fingerprint(raw) {
				return &fileOutcome{doc: prev.ToContent(), reused: true}, nil
			}
		}

		doc, parseErr := content.FromSource(relPath, raw)
		if parseErr != nil {
			return nil, &fileIssue{path: relPath, err: parseErr}
		}

		return &fileOutcome{doc: doc}, nil
	}, procOpts...)

	failures := make([]manifest.Failure, 0, len(errs))

	for _, err := range errs {
		var ioErr *fileproc.IOError
		if errors.As(err, &ioErr) {
			failures = append(failures, manifest.Failure{
				SourcePath: filepath.ToSlash(ioErr.Path),
				Kind:       manifest.KindIO,
				Detail:     ioErr.Err.Error(),
			})

			continue
		}

		var procErr *fileproc.ProcessError
		if !errors.As(err, &procErr) {
			return nil, nil, fmt.Errorf("scan content: %w", err)
		}

		failures = append(failures, toFailure(procErr))
	}

	outcomes := make([]fileOutcome, 0, len(results))

	for i := range results {
		if results[i] == nil {
			continue
		}

		outcomes = append(outcomes, *results[i])
	}

	return outcomes, failures, nil
}

// toFailure maps a callback error onto the report taxonomy.
func toFailure(procErr *fileproc.ProcessError) manifest.Failure {
	path := filepath.ToSlash(procErr.Path)
	detail := procErr.Err.Error()

	var issue *fileIssue
	if errors.As(procErr.Err, &issue) {
		path = issue.path
		detail = issue.err.Error()
	}

	kind := manifest.KindIO

	var blockErr *frontmatter.BlockError
	if errors.As(procErr.Err, &blockErr) {
		kind = manifest.KindMalformedBlock
	}

	var valErr *content.ValidationError
	if errors.As(procErr.Err, &valErr) {
		kind = manifest.KindValidation
	}

	return manifest.Failure{
		SourcePath: path,
		Kind:       kind,
		Detail:     detail,
	}
}

var internalDirPrefix = []byte(InternalDir)

// isInternalPath reports whether path is the internal state directory or
// inside it. Checked byte-wise to avoid allocating for every skipped file.
func isInternalPath(path []byte) bool {
	if bytes.Equal(path, internalDirPrefix) {
		return true
	}

	if !bytes.HasPrefix(path, internalDirPrefix) || len(path) <= len(internalDirPrefix) {
		return false
	}

	sep := path[len(internalDirPrefix)]

	return sep == '/' || sep == '\\'
}
