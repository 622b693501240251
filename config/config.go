// Package config loads the .watcheck.yaml project configuration.
package config

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/wat-engine/errors"
	"github.com/wippyai/wat-engine/wat"
	"github.com/wippyai/wat-engine/wat/diag"
)

// FileName is the name of the project configuration file.
const FileName = ".watcheck.yaml"

// Severity values accepted in the severity section.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityOff     = "off"
)

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
)

var vcsRootMarkers = []string{".git", ".hg", ".svn"}

// Config is the resolved configuration.
type Config struct {
	// Severity overrides the severity of a diagnostic category, keyed by
	// category name.
	Severity map[string]string `yaml:"severity"`
	// Requires is a semver constraint the tool version must satisfy.
	Requires string `yaml:"requires"`
	Output   string `yaml:"output"`
	// Path is the file the configuration was read from, empty for defaults.
	Path           string   `yaml:"-"`
	Extensions     []string `yaml:"extensions"`
	MaxSourceBytes int      `yaml:"max_source_bytes"`
	Jobs           int      `yaml:"jobs"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		Severity:       map[string]string{},
		Output:         OutputText,
		Extensions:     []string{".wat", ".wast"},
		MaxSourceBytes: wat.DefaultMaxSourceBytes,
		Jobs:           runtime.NumCPU(),
	}
}

// Parse decodes YAML over the defaults. Unknown keys are errors. name is
// used in error messages only.
func Parse(data []byte, name string) (*Config, error) {
	c := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !stderrors.Is(err, io.EOF) {
		e := errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "decode yaml")
		e.File = name
		return nil, e
	}
	if c.Severity == nil {
		c.Severity = map[string]string{}
	}
	c.Path = name
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads and parses the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		e := errors.Load(path, err)
		e.Phase = errors.PhaseConfig
		return nil, e
	}
	return Parse(data, path)
}

// Find searches startDir and its parents for FileName. The search stops at a
// version control root or the file system root; "" means none was found.
func Find(ctx context.Context, startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "resolve start directory")
	}
	for {
		if err := ctx.Err(); err != nil {
			return "", errors.Cancelled(errors.PhaseConfig, err)
		}
		path := filepath.Join(dir, FileName)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
		if isVCSRoot(dir) {
			return "", nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func isVCSRoot(dir string) bool {
	for _, m := range vcsRootMarkers {
		if _, err := os.Stat(filepath.Join(dir, m)); err == nil {
			return true
		}
	}
	return false
}

// Resolve loads explicit if set, otherwise the file Find discovers from
// workDir, otherwise the defaults.
func Resolve(ctx context.Context, explicit, workDir string) (*Config, error) {
	if explicit != "" {
		return Load(explicit)
	}
	path, err := Find(ctx, workDir)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

func (c *Config) invalid(format string, args ...any) error {
	return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
		File(c.Path).
		Detail(format, args...).
		Build()
}

// Validate checks every field.
func (c *Config) Validate() error {
	if c.Requires != "" {
		if _, err := semver.NewConstraint(c.Requires); err != nil {
			return c.invalid("requires %q is not a version constraint: %v", c.Requires, err)
		}
	}
	if c.MaxSourceBytes <= 0 {
		return c.invalid("max_source_bytes must be positive, got %d", c.MaxSourceBytes)
	}
	if c.Jobs <= 0 {
		return c.invalid("jobs must be positive, got %d", c.Jobs)
	}
	if c.Output != OutputText && c.Output != OutputJSON {
		return c.invalid("output must be %q or %q, got %q", OutputText, OutputJSON, c.Output)
	}
	for _, ext := range c.Extensions {
		if strings.TrimPrefix(ext, ".") == "" || strings.ContainsAny(ext, `/\`) {
			return c.invalid("invalid extension %q", ext)
		}
	}
	for name, sev := range c.Severity {
		if _, ok := diag.ParseCategory(name); !ok {
			return c.invalid("unknown diagnostic category %q", name)
		}
		if !slices.Contains([]string{SeverityError, SeverityWarning, SeverityOff}, sev) {
			return c.invalid("severity of %s must be error, warning or off, got %q", name, sev)
		}
	}
	return nil
}

// CheckVersion reports whether version satisfies Requires. Versions that do
// not parse as semver, such as development builds, always pass.
func (c *Config) CheckVersion(version string) error {
	if c.Requires == "" {
		return nil
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return nil
	}
	cons, err := semver.NewConstraint(c.Requires)
	if err != nil {
		return c.invalid("requires %q is not a version constraint: %v", c.Requires, err)
	}
	if !cons.Check(v) {
		return errors.New(errors.PhaseConfig, errors.KindUnsupported).
			File(c.Path).
			Value(version).
			Detail("watcheck %s does not satisfy requires %q", version, c.Requires).
			Build()
	}
	return nil
}

// Apply rewrites diagnostics per the severity overrides: "off" drops a
// category, "warning" and "error" set its severity.
func (c *Config) Apply(ds []diag.Diagnostic) []diag.Diagnostic {
	if len(c.Severity) == 0 {
		return ds
	}
	out := make([]diag.Diagnostic, 0, len(ds))
	for _, d := range ds {
		switch c.Severity[d.Category.String()] {
		case SeverityOff:
			continue
		case SeverityWarning:
			d.Severity = diag.Warning
		case SeverityError:
			d.Severity = diag.Error
		}
		out = append(out, d)
	}
	return out
}

// Registry returns the standard registry extended with the configured
// extensions.
func (c *Config) Registry() (*wat.Registry, error) {
	r := wat.StandardRegistry()
	if err := r.Register(wat.Language{Name: wat.LanguageWAT, Extensions: c.Extensions}); err != nil {
		return nil, err
	}
	return r, nil
}
