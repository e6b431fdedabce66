package report

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-hclog"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/modelcritic/internal/signals"
)

// DefaultCacheSize bounds the number of cached renderings.
const DefaultCacheSize = 256

// KeyFor is the cache key of one rendered report.
func KeyFor(id string) string { return "rapport_" + id }

// TypeKey is the cache key of the rendered list of one report type.
func TypeKey(t TypeRapport) string { return "rapports_" + string(t) }

// RenderCache holds rendered JSON payloads of reports and report lists.
type RenderCache struct {
	entries *lru.Cache[string, []byte]
	logger  hclog.Logger
}

// NewRenderCache returns a cache of at most size entries.
func NewRenderCache(size int, logger hclog.Logger) (*RenderCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("render cache: %w", err)
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &RenderCache{entries: entries, logger: logger.Named("cache")}, nil
}

// Connect registers the invalidation hook for post_save and post_delete in
// the rapports namespace of bus.
func (c *RenderCache) Connect(bus *signals.Registry) {
	hook := func(_ context.Context, instance any) {
		if r, ok := instance.(*Rapport); ok {
			c.Invalidate(r)
		}
	}
	bus.Connect(Namespace, signals.PostSave, hook)
	bus.Connect(Namespace, signals.PostDelete, hook)
}

// Invalidate removes the rendering of r and of its type's list. When an
// update changed the type, the list of the previous type goes too.
func (c *RenderCache) Invalidate(r *Rapport) {
	removed := c.entries.Remove(KeyFor(r.ID))
	removedList := c.entries.Remove(TypeKey(r.TypeRapport))
	if r.previousType != "" {
		c.entries.Remove(TypeKey(r.previousType))
	}
	c.logger.Debug("cache invalidated", "id", r.ID, "type", r.TypeRapport,
		"previous_type", r.previousType, "rapport_key", removed, "list_key", removedList)
}

// Get returns a cached payload.
func (c *RenderCache) Get(key string) ([]byte, bool) { return c.entries.Get(key) }

// Contains reports whether key is cached without touching its recency.
func (c *RenderCache) Contains(key string) bool { return c.entries.Contains(key) }

// Len returns the number of cached payloads.
func (c *RenderCache) Len() int { return c.entries.Len() }

// Render returns the JSON of r, from cache when present.
func (c *RenderCache) Render(r *Rapport) ([]byte, error) {
	key := KeyFor(r.ID)
	if b, ok := c.entries.Get(key); ok {
		return b, nil
	}
	b, err := json.Marshal(r.ToDict())
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", key, err)
	}
	c.entries.Add(key, b)
	return b, nil
}

// RenderType returns the JSON list of every stored report of type t.
func (c *RenderCache) RenderType(s *Store, t TypeRapport) ([]byte, error) {
	key := TypeKey(t)
	if b, ok := c.entries.Get(key); ok {
		return b, nil
	}
	rows := s.List(Filter{Type: t})
	list := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		list = append(list, r.ToDict())
	}
	b, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", key, err)
	}
	c.entries.Add(key, b)
	return b, nil
}
