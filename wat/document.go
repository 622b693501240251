package wat

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/wippyai/wat-engine/errors"
	"github.com/wippyai/wat-engine/wat/syntax"
)

// DefaultMaxSourceBytes bounds the text a Document accepts.
const DefaultMaxSourceBytes = 16 << 20

// Snapshot is one immutable version of a document.
type Snapshot struct {
	Tree    *syntax.Tree
	Version int
	// Stats describes the reparse that produced the snapshot. It is zero for
	// full parses.
	Stats Stats

	mu     sync.Mutex
	result *Result
}

// Validate returns the diagnostics of the snapshot. A complete result is
// computed once and shared by all callers; a cancelled run is not kept.
func (s *Snapshot) Validate(ctx context.Context) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result != nil {
		return *s.result
	}
	res := Validate(ctx, s.Tree)
	if !res.Cancelled {
		s.result = &res
	}
	return res
}

// Document is a named source text under edit. Readers take snapshots
// without locking; writers are serialized and publish whole snapshots.
type Document struct {
	name     string
	maxBytes int

	mu  sync.Mutex
	cur atomic.Pointer[Snapshot]
}

// DocumentOption configures a Document.
type DocumentOption func(*Document)

// WithMaxSourceBytes sets the size limit; n <= 0 keeps the default.
func WithMaxSourceBytes(n int) DocumentOption {
	return func(d *Document) {
		if n > 0 {
			d.maxBytes = n
		}
	}
}

// NewDocument parses text as version 0 of the document name.
func NewDocument(name, text string, opts ...DocumentOption) (*Document, error) {
	d := &Document{name: name, maxBytes: DefaultMaxSourceBytes}
	for _, opt := range opts {
		opt(d)
	}
	if err := d.checkSize(len(text)); err != nil {
		return nil, err
	}
	d.cur.Store(&Snapshot{Tree: Parse(text)})
	return d, nil
}

func (d *Document) checkSize(n int) error {
	if n > d.maxBytes {
		err := errors.LimitExceeded(errors.PhaseParse, "source", n, d.maxBytes)
		err.File = d.name
		return err
	}
	return nil
}

// Name returns the name the document was opened with.
func (d *Document) Name() string { return d.name }

// Snapshot returns the current snapshot.
func (d *Document) Snapshot() *Snapshot { return d.cur.Load() }

// Version returns the current version.
func (d *Document) Version() int { return d.cur.Load().Version }

// Text returns the current source text.
func (d *Document) Text() string { return d.cur.Load().Tree.Source() }

// Apply applies an edit computed against version and publishes the result as
// the next version. Edits against any other version are rejected.
func (d *Document) Apply(version int, edit syntax.Edit) (*Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cur := d.cur.Load()
	if version != cur.Version {
		return nil, errors.StaleEdit(d.name, version, cur.Version)
	}
	if err := edit.Check(len(cur.Tree.Source())); err != nil {
		return nil, err
	}
	if err := d.checkSize(len(cur.Tree.Source()) + edit.Delta()); err != nil {
		return nil, err
	}
	tree, stats, err := Reparse(cur.Tree, edit)
	if err != nil {
		return nil, err
	}
	next := &Snapshot{Tree: tree, Version: cur.Version + 1, Stats: stats}
	d.cur.Store(next)
	return next, nil
}

// Replace parses text from scratch as the next version.
func (d *Document) Replace(text string) (*Snapshot, error) {
	if err := d.checkSize(len(text)); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	next := &Snapshot{Tree: Parse(text), Version: d.cur.Load().Version + 1}
	d.cur.Store(next)
	return next, nil
}
