package wat

import (
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/go-enry/go-enry/v2"

	"github.com/wippyai/wat-engine/errors"
)

// LanguageWAT is the registry name of the WebAssembly text format. It matches
// the linguist name go-enry reports.
const LanguageWAT = "WebAssembly"

// Language is a source language the workspace knows how to check.
type Language struct {
	Name       string
	Extensions []string
}

// Registry maps file names to languages. It is built once by the program and
// passed to whatever needs it.
type Registry struct {
	mu    sync.RWMutex
	langs map[string]*Language
	byExt map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{langs: make(map[string]*Language), byExt: make(map[string]string)}
}

// StandardRegistry returns a registry with the WebAssembly text format
// registered for .wat and .wast files.
func StandardRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register(Language{Name: LanguageWAT, Extensions: []string{".wat", ".wast"}})
	return r
}

// Register adds lang, or adds its extensions to an already registered
// language of the same name. An extension claimed by another language is an
// error.
func (r *Registry) Register(lang Language) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ext := range lang.Extensions {
		if owner, ok := r.byExt[normalizeExt(ext)]; ok && owner != lang.Name {
			return errors.InvalidInput(errors.PhaseConfig, "extension "+ext+" is already registered for "+owner)
		}
	}
	l, ok := r.langs[lang.Name]
	if !ok {
		l = &Language{Name: lang.Name}
		r.langs[lang.Name] = l
	}
	for _, ext := range lang.Extensions {
		ext = normalizeExt(ext)
		if _, ok := r.byExt[ext]; ok {
			continue
		}
		r.byExt[ext] = lang.Name
		l.Extensions = append(l.Extensions, ext)
	}
	return nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Lookup finds the language registered for the extension of path.
func (r *Registry) Lookup(path string) (Language, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return Language{}, false
	}
	name, ok := r.byExt[ext]
	if !ok {
		return Language{}, false
	}
	return r.copyOf(name), true
}

// Detect is Lookup with a fallback to go-enry, which recognizes languages by
// file name and content. Only registered languages are returned.
func (r *Registry) Detect(path string, content []byte) (Language, bool) {
	if l, ok := r.Lookup(path); ok {
		return l, true
	}
	name := enry.GetLanguage(filepath.Base(path), content)
	if name == "" {
		return Language{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.langs[name]; !ok {
		return Language{}, false
	}
	return r.copyOf(name), true
}

// Extensions lists every registered extension, sorted.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	slices.Sort(out)
	return out
}

func (r *Registry) copyOf(name string) Language {
	l := r.langs[name]
	return Language{Name: l.Name, Extensions: slices.Clone(l.Extensions)}
}
