package report

import (
	"github.com/hashicorp/go-hclog"

	"github.com/dshills/modelcritic/internal/signals"
)

// App is the report store with its render cache connected on one bus.
type App struct {
	Store *Store
	Cache *RenderCache
}

// NewApp builds the store and cache and connects the invalidation hook.
func NewApp(bus *signals.Registry, logger hclog.Logger) (*App, error) {
	cache, err := NewRenderCache(DefaultCacheSize, logger)
	if err != nil {
		return nil, err
	}
	cache.Connect(bus)
	return &App{Store: NewStore(bus, logger), Cache: cache}, nil
}
