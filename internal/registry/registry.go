// Package registry snapshots record-kind descriptors from one or more
// sources and answers namespace/kind lookups against that snapshot.
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/agext/levenshtein"
	"github.com/hashicorp/go-hclog"

	"github.com/dshills/modelcritic/internal/kind"
)

// Source produces descriptors. Extraction failures for part of a source are
// returned as an error alongside whatever was extracted.
type Source interface {
	Name() string
	Kinds(ctx context.Context) ([]*kind.Descriptor, error)
}

// DefaultExcluded lists framework-internal namespaces skipped by unfiltered
// audits.
var DefaultExcluded = []string{"auth", "sessions", "contenttypes", "staticfiles", "messages", "admin"}

// Option configures a Registry.
type Option func(*Registry)

// WithExcludedNamespaces adds namespaces to the default exclusion set.
func WithExcludedNamespaces(namespaces ...string) Option {
	return func(r *Registry) {
		for _, ns := range namespaces {
			r.excluded[ns] = true
		}
	}
}

// WithLogger sets the logger used to report extraction problems.
func WithLogger(l hclog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// Registry is a read-only view over loaded descriptors.
type Registry struct {
	logger   hclog.Logger
	sources  []Source
	excluded map[string]bool
	kinds    []*kind.Descriptor
	problems []string
	loaded   bool
}

// New returns an empty registry excluding DefaultExcluded namespaces.
func New(opts ...Option) *Registry {
	r := &Registry{
		logger:   hclog.NewNullLogger(),
		excluded: map[string]bool{},
	}
	for _, ns := range DefaultExcluded {
		r.excluded[ns] = true
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddSource registers a source. Sources are enumerated in the order added.
func (r *Registry) AddSource(s Source) {
	r.sources = append(r.sources, s)
}

// Load enumerates every source once. A failing source is logged and
// recorded in Problems; only context cancellation stops the load.
func (r *Registry) Load(ctx context.Context) error {
	r.kinds = nil
	r.problems = nil
	seen := map[string]string{}
	for _, s := range r.sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		kinds, err := s.Kinds(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Warn("source extraction incomplete", "source", s.Name(), "error", err)
			r.problems = append(r.problems, fmt.Sprintf("%s: %v", s.Name(), err))
		}
		for _, d := range kinds {
			q := d.QualifiedName()
			if prev, dup := seen[q]; dup {
				r.problems = append(r.problems, fmt.Sprintf("%s: duplicate kind %s ignored (first defined by %s)", s.Name(), q, prev))
				continue
			}
			seen[q] = s.Name()
			for _, p := range d.Problems {
				r.logger.Debug("extraction note", "kind", q, "note", p)
			}
			r.kinds = append(r.kinds, d)
		}
		r.logger.Debug("source loaded", "source", s.Name(), "kinds", len(kinds))
	}
	r.loaded = true
	return nil
}

// Problems returns the extraction problems recorded by the last Load.
func (r *Registry) Problems() []string {
	return append([]string(nil), r.problems...)
}

// Len returns the number of loaded kinds, excluded namespaces included.
func (r *Registry) Len() int { return len(r.kinds) }

// Excluded reports whether namespace is skipped by unfiltered listings.
func (r *Registry) Excluded(namespace string) bool { return r.excluded[namespace] }

// Namespaces returns every loaded namespace in sorted order.
func (r *Registry) Namespaces() []string {
	set := map[string]bool{}
	for _, d := range r.kinds {
		set[d.Namespace] = true
	}
	out := make([]string, 0, len(set))
	for ns := range set {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// ListKinds returns copies of the descriptors selected by the filters:
//
//	neither      every kind outside the excluded namespaces
//	namespace    every kind of that namespace
//	name         every kind with that name, in any namespace
//	both         the single matching kind
//
// An empty selection under any filter is a *NotFoundError.
func (r *Registry) ListKinds(namespace, name string) ([]*kind.Descriptor, error) {
	if !r.loaded {
		return nil, fmt.Errorf("registry not loaded")
	}
	var out []*kind.Descriptor
	for _, d := range r.kinds {
		switch {
		case namespace == "" && name == "":
			if r.excluded[d.Namespace] {
				continue
			}
		case name == "":
			if d.Namespace != namespace {
				continue
			}
		case namespace == "":
			if d.Name != name {
				continue
			}
		default:
			if d.Namespace != namespace || d.Name != name {
				continue
			}
		}
		out = append(out, d.Clone())
	}
	if len(out) == 0 && (namespace != "" || name != "") {
		return nil, r.notFound(namespace, name)
	}
	return out, nil
}

// NotFoundError reports a lookup that matched no kind.
type NotFoundError struct {
	Namespace   string
	Kind        string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	var what string
	switch {
	case e.Namespace != "" && e.Kind != "":
		what = fmt.Sprintf("kind %s.%s", e.Namespace, e.Kind)
	case e.Kind != "":
		what = fmt.Sprintf("kind %s", e.Kind)
	default:
		what = fmt.Sprintf("namespace %s", e.Namespace)
	}
	msg := fmt.Sprintf("no %s found", what)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(e.Suggestions, ", "))
	}
	return msg
}

const maxSuggestions = 3

func (r *Registry) notFound(namespace, name string) *NotFoundError {
	e := &NotFoundError{Namespace: namespace, Kind: name}
	var query string
	var candidates []string
	switch {
	case name == "":
		query, candidates = namespace, r.Namespaces()
	case namespace == "":
		query = name
		for _, d := range r.kinds {
			candidates = append(candidates, d.Name)
		}
	default:
		query = namespace + "." + name
		for _, d := range r.kinds {
			candidates = append(candidates, d.QualifiedName())
		}
	}
	e.Suggestions = suggest(query, candidates)
	return e
}

// suggest ranks candidates by case-insensitive edit distance and keeps the
// closest few that are plausibly typos of query.
func suggest(query string, candidates []string) []string {
	type scored struct {
		name string
		dist int
	}
	limit := len(query)/2 + 1
	if limit < 2 {
		limit = 2
	}
	q := strings.ToLower(query)
	seen := map[string]bool{}
	var ranked []scored
	for _, c := range candidates {
		if seen[c] {
			continue
		}
		seen[c] = true
		if d := levenshtein.Distance(q, strings.ToLower(c), nil); d <= limit {
			ranked = append(ranked, scored{c, d})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].dist != ranked[j].dist {
			return ranked[i].dist < ranked[j].dist
		}
		return ranked[i].name < ranked[j].name
	})
	var out []string
	for i := 0; i < len(ranked) && i < maxSuggestions; i++ {
		out = append(out, ranked[i].name)
	}
	return out
}
