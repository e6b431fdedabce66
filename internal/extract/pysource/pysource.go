// Package pysource extracts kind descriptors from Django-style model
// sources using tree-sitter-python. Behavior that the house contract cares
// about (validation before save, atomic saves, logging, signal wiring) is
// read from the syntax tree, never from raw text search.
package pysource

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-hclog"
	sitter "github.com/tree-sitter/go-tree-sitter"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"github.com/dshills/modelcritic/internal/kind"
	"github.com/dshills/modelcritic/internal/redact"
)

// DefaultInclude matches the usual places Django keeps models.
var DefaultInclude = []string{"**/models.py", "**/models/*.py"}

// Source reads every model file under Root matching Include.
type Source struct {
	Root    string
	Include []string
	Exclude []string
	logger  hclog.Logger
}

// NewSource returns a Source rooted at root. Empty include uses DefaultInclude.
func NewSource(root string, include, exclude []string, logger hclog.Logger) *Source {
	if len(include) == 0 {
		include = DefaultInclude
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Source{Root: root, Include: include, Exclude: exclude, logger: logger}
}

// Name identifies the source in logs.
func (s *Source) Name() string { return "python:" + s.Root }

// Kinds parses the model files and returns concrete (non-abstract) model
// classes in file then declaration order. Per-file failures are joined into
// the returned error while the remaining files are still extracted.
func (s *Source) Kinds(ctx context.Context) ([]*kind.Descriptor, error) {
	files, err := s.modelFiles()
	if err != nil {
		return nil, err
	}

	p := newParser()
	defer p.close()

	var (
		classes []*classInfo
		errs    []error
	)
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		found, err := s.parseModelFile(p, path)
		if err != nil {
			errs = append(errs, err)
		}
		classes = append(classes, found...)
	}

	wired := map[string][]string{}
	var out []*kind.Descriptor
	byName := indexClasses(classes)
	for _, c := range classes {
		if c.abstract || !c.isModel(byName) {
			continue
		}
		sigs, ok := wired[c.nsDir]
		if !ok {
			sigs, err = s.namespaceSignals(p, c.nsDir)
			if err != nil {
				errs = append(errs, err)
			}
			wired[c.nsDir] = sigs
		}
		d := c.descriptor(byName)
		d.Signals = sigs
		out = append(out, d)
	}
	s.logger.Debug("python source extracted", "root", s.Root, "files", len(files), "kinds", len(out))
	return out, errors.Join(errs...)
}

func (s *Source) modelFiles() ([]string, error) {
	if _, err := os.Stat(s.Root); err != nil {
		return nil, fmt.Errorf("python source root: %w", err)
	}
	fsys := os.DirFS(s.Root)
	seen := map[string]bool{}
	var files []string
	for _, pattern := range s.Include {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			if seen[m] || s.excluded(m) || filepath.Base(m) == "__init__.py" {
				continue
			}
			seen[m] = true
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}

func (s *Source) excluded(rel string) bool {
	for _, pattern := range s.Exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// namespaceOf maps "formations/models.py" and "formations/models/vae.py"
// to the app directory "formations".
func namespaceOf(rel string) string {
	dir := filepath.Dir(filepath.ToSlash(rel))
	if filepath.Base(dir) == "models" {
		dir = filepath.Dir(dir)
	}
	if dir == "." {
		return ""
	}
	return filepath.ToSlash(dir)
}

func (s *Source) parseModelFile(p *parser, rel string) (found []*classInfo, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%s: extraction aborted: %v", rel, rec)
		}
	}()
	src, err := os.ReadFile(filepath.Join(s.Root, rel))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rel, err)
	}
	tree := p.parse(src)
	if tree == nil {
		return nil, fmt.Errorf("%s: parse failed", rel)
	}
	defer tree.Close()

	root := tree.RootNode()
	nsDir := namespaceOf(rel)
	for _, n := range namedChildren(root) {
		cls, _ := unwrapDecorated(n)
		if cls == nil || cls.Kind() != "class_definition" {
			continue
		}
		c := parseClass(cls, src)
		c.path = rel
		c.nsDir = nsDir
		c.namespace = filepath.Base(nsDir)
		if nsDir == "" {
			c.namespace = ""
		}
		found = append(found, c)
	}
	if root.HasError() {
		s.logger.Warn("syntax errors in model file; extraction is partial", "file", rel)
	}
	return found, nil
}

// namespaceSignals scans every .py file in the app directory for signal
// receivers and connect() calls.
func (s *Source) namespaceSignals(p *parser, nsDir string) ([]string, error) {
	fsys := os.DirFS(filepath.Join(s.Root, nsDir))
	files, err := doublestar.Glob(fsys, "**/*.py")
	if err != nil {
		return nil, fmt.Errorf("scan signals in %s: %w", nsDir, err)
	}
	sort.Strings(files)
	set := map[string]bool{}
	for _, f := range files {
		src, err := os.ReadFile(filepath.Join(s.Root, nsDir, f))
		if err != nil {
			return nil, fmt.Errorf("scan signals in %s: %w", nsDir, err)
		}
		tree := p.parse(src)
		if tree == nil {
			continue
		}
		for _, sig := range findSignals(tree.RootNode(), src) {
			set[sig] = true
		}
		tree.Close()
	}
	out := make([]string, 0, len(set))
	for sig := range set {
		out = append(out, sig)
	}
	return sortStrings(out), nil
}

type parser struct {
	p *sitter.Parser
}

func newParser() *parser {
	p := sitter.NewParser()
	_ = p.SetLanguage(sitter.NewLanguage(python.Language()))
	return &parser{p: p}
}

func (p *parser) parse(src []byte) *sitter.Tree { return p.p.Parse(src, nil) }

func (p *parser) close() { p.p.Close() }

// ParseSource extracts the model classes of a single in-memory file. It is
// used by tests and by the manifest generator; namespace is taken verbatim.
func ParseSource(namespace string, src []byte) ([]*kind.Descriptor, error) {
	p := newParser()
	defer p.close()
	tree := p.parse(src)
	if tree == nil {
		return nil, fmt.Errorf("parse failed")
	}
	defer tree.Close()

	root := tree.RootNode()
	var classes []*classInfo
	for _, n := range namedChildren(root) {
		cls, _ := unwrapDecorated(n)
		if cls == nil || cls.Kind() != "class_definition" {
			continue
		}
		c := parseClass(cls, src)
		c.namespace = namespace
		c.path = namespace
		classes = append(classes, c)
	}
	sigs := findSignals(root, src)
	byName := indexClasses(classes)
	var out []*kind.Descriptor
	for _, c := range classes {
		if c.abstract || !c.isModel(byName) {
			continue
		}
		d := c.descriptor(byName)
		d.Signals = sigs
		out = append(out, d)
	}
	return out, nil
}

func scrub(s string) string { return redact.Redact(s) }

func sortStrings(s []string) []string {
	sort.Strings(s)
	return s
}

func trimQuotes(s string) string {
	s = strings.TrimLeft(s, "rRbBuUfF")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2*len(q) {
			return s[len(q) : len(s)-len(q)]
		}
	}
	return s
}
