// Package workspace manages a set of WAT documents that are checked
// together: loading from disk, incremental updates, parallel validation and
// watching the file system for changes.
package workspace

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/wat-engine/errors"
	"github.com/wippyai/wat-engine/wat"
	"github.com/wippyai/wat-engine/wat/diag"
)

// maxIncrementalEdits is the number of changed regions above which Update
// reparses from scratch instead of applying edits one by one.
const maxIncrementalEdits = 8

// Report is the result of checking one document.
type Report struct {
	Name        string            `json:"name"`
	Diagnostics []diag.Diagnostic `json:"diagnostics"`
	Snapshot    *wat.Snapshot     `json:"-"`
	Version     int               `json:"version"`
	Cancelled   bool              `json:"cancelled,omitempty"`
}

// Errors returns the number of error diagnostics.
func (r Report) Errors() int { return diag.Count(r.Diagnostics, diag.Error) }

// Filter post-processes the diagnostics of every report, for example to apply
// severity overrides. It must not modify its argument.
type Filter func([]diag.Diagnostic) []diag.Diagnostic

// Option configures a Workspace.
type Option func(*Workspace)

// WithLogger sets the logger. The package Logger is used otherwise.
func WithLogger(l *zap.Logger) Option {
	return func(w *Workspace) { w.log = l }
}

// WithJobs bounds the number of documents checked at once.
func WithJobs(n int) Option {
	return func(w *Workspace) {
		if n > 0 {
			w.jobs = n
		}
	}
}

// WithMaxSourceBytes sets the size limit of every document.
func WithMaxSourceBytes(n int) Option {
	return func(w *Workspace) {
		if n > 0 {
			w.maxBytes = n
		}
	}
}

// WithFilter installs a diagnostics filter.
func WithFilter(f Filter) Option {
	return func(w *Workspace) { w.filter = f }
}

// Workspace is a set of open documents keyed by name, usually a file path.
// It is safe for concurrent use.
type Workspace struct {
	registry *wat.Registry
	log      *zap.Logger
	filter   Filter
	jobs     int
	maxBytes int

	mu   sync.RWMutex
	docs map[string]*wat.Document
}

// New creates an empty workspace that accepts the files reg knows.
func New(reg *wat.Registry, opts ...Option) *Workspace {
	w := &Workspace{
		registry: reg,
		jobs:     runtime.NumCPU(),
		maxBytes: wat.DefaultMaxSourceBytes,
		docs:     make(map[string]*wat.Document),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.log == nil {
		w.log = Logger()
	}
	return w
}

// Registry returns the language registry of the workspace.
func (w *Workspace) Registry() *wat.Registry { return w.registry }

// Open parses text as a new document, replacing any document of that name.
func (w *Workspace) Open(name, text string) (*wat.Document, error) {
	doc, err := wat.NewDocument(name, text, wat.WithMaxSourceBytes(w.maxBytes))
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	w.docs[name] = doc
	w.mu.Unlock()

	w.log.Debug("document opened", zap.String("name", name), zap.Int("bytes", len(text)))
	return doc, nil
}

// Load reads path from disk and opens it. Files the registry does not
// recognize by extension or content are rejected.
func (w *Workspace) Load(path string) (*wat.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Load(path, err)
	}
	if _, ok := w.registry.Detect(path, data); !ok {
		return nil, errors.New(errors.PhaseLoad, errors.KindUnsupported).
			File(path).
			Detail("not a WebAssembly text file").
			Build()
	}
	return w.Open(path, string(data))
}

// Close forgets a document and reports whether it was open.
func (w *Workspace) Close(name string) bool {
	w.mu.Lock()
	_, ok := w.docs[name]
	delete(w.docs, name)
	w.mu.Unlock()

	if ok {
		w.log.Debug("document closed", zap.String("name", name))
	}
	return ok
}

// Document returns an open document.
func (w *Workspace) Document(name string) (*wat.Document, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	doc, ok := w.docs[name]
	return doc, ok
}

// Names returns the names of the open documents in sorted order.
func (w *Workspace) Names() []string {
	w.mu.RLock()
	names := make([]string, 0, len(w.docs))
	for name := range w.docs {
		names = append(names, name)
	}
	w.mu.RUnlock()
	slices.Sort(names)
	return names
}

func (w *Workspace) document(name string) (*wat.Document, error) {
	doc, ok := w.Document(name)
	if !ok {
		return nil, errors.NotFound(errors.PhaseLoad, "document", name)
	}
	return doc, nil
}

// Update brings an open document to text. The difference to the current text
// is applied as line edits so unchanged regions keep their subtrees; large
// rewrites and edits that race with another writer fall back to a full parse.
func (w *Workspace) Update(name, text string) (*wat.Snapshot, error) {
	doc, err := w.document(name)
	if err != nil {
		return nil, err
	}
	snap := doc.Snapshot()
	edits := Edits(snap.Tree.Source(), text)
	if len(edits) == 0 {
		return snap, nil
	}
	if len(edits) > maxIncrementalEdits {
		w.log.Debug("full reparse", zap.String("name", name), zap.Int("edits", len(edits)))
		return doc.Replace(text)
	}
	for _, e := range edits {
		next, err := doc.Apply(snap.Version, e)
		if err != nil {
			if stderrors.Is(err, &errors.Error{Phase: errors.PhaseParse, Kind: errors.KindLimitExceeded}) {
				return nil, err
			}
			w.log.Debug("incremental update failed, reparsing",
				zap.String("name", name),
				zap.Int("version", snap.Version),
				zap.Error(err))
			return doc.Replace(text)
		}
		snap = next
	}
	w.log.Debug("document updated",
		zap.String("name", name),
		zap.Int("version", snap.Version),
		zap.Int("edits", len(edits)))
	return snap, nil
}

// Check validates the current snapshot of one document.
func (w *Workspace) Check(ctx context.Context, name string) (Report, error) {
	doc, err := w.document(name)
	if err != nil {
		return Report{}, err
	}
	snap := doc.Snapshot()
	res := snap.Validate(ctx)
	ds := res.Diagnostics
	if w.filter != nil {
		ds = w.filter(ds)
	}
	rep := Report{
		Name:        name,
		Version:     snap.Version,
		Diagnostics: ds,
		Snapshot:    snap,
		Cancelled:   res.Cancelled,
	}
	if res.Cancelled {
		return rep, errors.Cancelled(errors.PhaseValidate, ctx.Err())
	}
	return rep, nil
}

// CheckAll validates every open document, at most jobs at a time, and returns
// the reports sorted by name. The first failure cancels the rest.
func (w *Workspace) CheckAll(ctx context.Context) ([]Report, error) {
	names := w.Names()
	reports := make([]Report, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.jobs)
	for i, name := range names {
		g.Go(func() error {
			rep, err := w.Check(gctx, name)
			if err != nil {
				return err
			}
			reports[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	w.log.Debug("checked documents", zap.Int("count", len(reports)))
	return reports, nil
}

// Collect expands roots into the source files to check. Directories are
// walked recursively for files with a registered extension, skipping hidden
// directories; files named explicitly are kept as given.
func (w *Workspace) Collect(ctx context.Context, roots []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, root := range roots {
		root = filepath.Clean(root)
		info, err := os.Stat(root)
		if err != nil {
			return nil, errors.Load(root, err)
		}
		if !info.IsDir() {
			add(root)
			continue
		}
		err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return errors.Cancelled(errors.PhaseLoad, ctxErr)
			}
			if d.IsDir() {
				if p != root && hidden(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if _, ok := w.registry.Lookup(p); ok {
				add(p)
			}
			return nil
		})
		if err != nil {
			if stderrors.Is(err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindCancelled}) {
				return nil, err
			}
			return nil, errors.Load(root, err)
		}
	}
	return out, nil
}

// LoadAll collects roots and loads every file found.
func (w *Workspace) LoadAll(ctx context.Context, roots []string) error {
	paths, err := w.Collect(ctx, roots)
	if err != nil {
		return err
	}
	for _, p := range paths {
		if _, err := w.Load(p); err != nil {
			return err
		}
	}
	return nil
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
