// Package manifest loads kind descriptors from YAML documents. A manifest
// file holds one or more documents separated by "---"; each document
// describes one kind with the same shape the registry works with.
package manifest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/dshills/modelcritic/internal/kind"
	"github.com/dshills/modelcritic/internal/redact"
)

// Manifest is one loaded file.
type Manifest struct {
	Path  string
	Hash  string // "sha256:<hex>"
	Kinds []*kind.Descriptor
}

// document is the on-disk form of a descriptor. Constants are a plain list
// in YAML rather than the set the registry uses.
type document struct {
	Name         string            `yaml:"name"`
	Namespace    string            `yaml:"namespace"`
	Doc          string            `yaml:"doc,omitempty"`
	Fields       []kind.Field      `yaml:"fields,omitempty"`
	Methods      []string          `yaml:"methods,omitempty"`
	Properties   []string          `yaml:"properties,omitempty"`
	Helpers      []string          `yaml:"helpers,omitempty"`
	Constants    []string          `yaml:"constants,omitempty"`
	Meta         kind.Meta         `yaml:"meta,omitempty"`
	Capabilities kind.Capabilities `yaml:"capabilities,omitempty"`
	Traits       kind.Traits       `yaml:"traits,omitempty"`
	Signals      []string          `yaml:"signals,omitempty"`
}

var validKinds = map[kind.FieldKind]bool{
	kind.FieldText: true, kind.FieldInteger: true, kind.FieldDecimal: true,
	kind.FieldFloat: true, kind.FieldBoolean: true, kind.FieldDate: true,
	kind.FieldForeign: true, kind.FieldMany: true, kind.FieldGeneric: true,
	kind.FieldJSON: true, kind.FieldOther: true,
}

// Load reads a manifest file, computes its hash, and decodes every document.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	sum := sha256.Sum256(data)
	m := &Manifest{
		Path: path,
		Hash: fmt.Sprintf("sha256:%x", sum),
	}
	source := fmt.Sprintf("%s@%s", filepath.ToSlash(path), m.Hash[:len("sha256:")+12])
	defaultNS := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	kinds, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	for _, d := range kinds {
		d.Source = source
		if d.Namespace == "" {
			d.Namespace = defaultNS
		}
	}
	m.Kinds = kinds
	return m, nil
}

// Decode reads every YAML document from r. Unknown keys are rejected so a
// misspelled directive does not silently drop a capability.
func Decode(r io.Reader) ([]*kind.Descriptor, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var out []*kind.Descriptor
	for i := 1; ; i++ {
		var doc document
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		if reflect.ValueOf(doc).IsZero() {
			continue
		}
		d, err := doc.descriptor()
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func (doc document) descriptor() (*kind.Descriptor, error) {
	if strings.TrimSpace(doc.Name) == "" {
		return nil, errors.New("name is required")
	}
	seen := map[string]bool{}
	for i, f := range doc.Fields {
		if f.Name == "" {
			return nil, fmt.Errorf("%s: field %d has no name", doc.Name, i+1)
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("%s: duplicate field %q", doc.Name, f.Name)
		}
		seen[f.Name] = true
		if f.Kind == "" {
			doc.Fields[i].Kind = kind.FieldOther
		} else if !validKinds[f.Kind] {
			return nil, fmt.Errorf("%s.%s: unknown field kind %q", doc.Name, f.Name, f.Kind)
		}
	}
	d := &kind.Descriptor{
		Name:         doc.Name,
		Namespace:    doc.Namespace,
		Doc:          doc.Doc,
		Fields:       doc.Fields,
		Methods:      doc.Methods,
		Properties:   doc.Properties,
		Helpers:      doc.Helpers,
		Constants:    make(map[string]bool, len(doc.Constants)),
		Meta:         doc.Meta,
		Capabilities: doc.Capabilities,
		Traits:       doc.Traits,
		Signals:      doc.Signals,
	}
	for _, c := range doc.Constants {
		d.Constants[c] = true
	}
	redact.Descriptor(d)
	return d, nil
}

// Encode writes kinds as a multi-document manifest that Decode reads back.
func Encode(w io.Writer, kinds []*kind.Descriptor) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	for _, d := range kinds {
		doc := document{
			Name:         d.Name,
			Namespace:    d.Namespace,
			Doc:          d.Doc,
			Fields:       d.Fields,
			Methods:      d.Methods,
			Properties:   d.Properties,
			Helpers:      d.Helpers,
			Constants:    d.ConstantNames(),
			Meta:         d.Meta,
			Capabilities: d.Capabilities,
			Traits:       d.Traits,
			Signals:      d.Signals,
		}
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode %s: %w", d.QualifiedName(), err)
		}
	}
	return enc.Close()
}

// Source is a registry source reading every manifest matching its globs.
type Source struct {
	Patterns []string
}

// NewSource returns a Source over the given doublestar patterns.
func NewSource(patterns ...string) *Source {
	return &Source{Patterns: patterns}
}

// Name identifies the source in logs.
func (s *Source) Name() string { return "manifest:" + strings.Join(s.Patterns, ",") }

// Kinds loads all matching files in sorted path order. A broken file is
// reported in the joined error and the remaining files are still loaded.
func (s *Source) Kinds(ctx context.Context) ([]*kind.Descriptor, error) {
	paths, err := s.Files()
	if err != nil {
		return nil, err
	}
	var (
		out  []*kind.Descriptor
		errs []error
	)
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		m, err := Load(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, m.Kinds...)
	}
	return out, errors.Join(errs...)
}

// Files expands the patterns. A pattern without glob metacharacters must
// name an existing file.
func (s *Source) Files() ([]string, error) {
	seen := map[string]bool{}
	var paths []string
	for _, pattern := range s.Patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("manifest glob %q: %w", pattern, err)
		}
		if len(matches) == 0 && !hasMeta(pattern) {
			return nil, fmt.Errorf("manifest %s: %w", pattern, os.ErrNotExist)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}
